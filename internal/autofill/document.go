// Package autofill fills the unanswered parts of a performance sheet by
// searching each subsystem's equipment and operating parameters for the first
// configuration whose checks pass.
package autofill

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/mohae/deepcopy"
)

// Document is a nested key-value tree addressed by dotted paths.
type Document map[string]any

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Document:
		return m, true
	}
	return nil, false
}

// Get returns the value at a dotted path.
func (d Document) Get(path string) (any, bool) {
	var cur any = map[string]any(d)
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Set writes v at a dotted path, creating intermediate maps and replacing
// scalars that stand in the way.
func (d Document) Set(path string, v any) {
	parts := strings.Split(path, ".")
	m := map[string]any(d)
	for _, part := range parts[:len(parts)-1] {
		next, ok := asMap(m[part])
		if !ok {
			next = map[string]any{}
			m[part] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = v
}

// Float reads a numeric leaf. Numbers may arrive as JSON numbers or numeric strings.
func (d Document) Float(path string) (float64, bool) {
	v, ok := d.Get(path)
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// String reads a leaf as text; numbers are formatted without trailing zeros.
func (d Document) String(path string) (string, bool) {
	v, ok := d.Get(path)
	if !ok || !Supplied(v) {
		return "", false
	}
	return toString(v)
}

func toString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s), true
	case bool:
		return strconv.FormatBool(s), true
	}
	if f, ok := toFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return "", false
}

// Bool reads a flag. "yes" and "true" strings count as set.
func (d Document) Bool(path string) bool {
	v, ok := d.Get(path)
	if !ok {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		s := strings.ToLower(strings.TrimSpace(b))
		return s == "true" || s == "yes"
	}
	return false
}

// Supplied reports whether a leaf carries a caller answer. Nil and empty
// strings are unanswered fields of a blank sheet.
func Supplied(v any) bool {
	switch s := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(s) != ""
	}
	return true
}

// Clone returns a deep copy.
func (d Document) Clone() Document {
	if d == nil {
		return Document{}
	}
	return Document(deepcopy.Copy(map[string]any(d)).(map[string]any))
}

// Merge overlays the caller's document on generated values. Supplied caller
// leaves always win, nested maps merge key by key, and an unanswered caller
// leaf only survives where nothing was generated.
func Merge(caller, generated Document) Document {
	out := generated.Clone()
	mergeInto(out, caller)
	return out
}

func mergeInto(dst, src map[string]any) {
	for k, sv := range src {
		if sm, ok := asMap(sv); ok {
			if dm, ok := asMap(dst[k]); ok {
				mergeInto(dm, sm)
				continue
			}
			dst[k] = deepcopy.Copy(map[string]any(sm))
			continue
		}
		if Supplied(sv) {
			dst[k] = deepcopy.Copy(sv)
			continue
		}
		if _, ok := dst[k]; !ok {
			dst[k] = sv
		}
	}
}

// Flatten lists every leaf by its dotted path.
func Flatten(d Document) map[string]any {
	out := map[string]any{}
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, v := range m {
			p := k
			if prefix != "" {
				p = prefix + "." + k
			}
			if sub, ok := asMap(v); ok {
				walk(p, sub)
				continue
			}
			out[p] = v
		}
	}
	walk("", d)
	return out
}

// Unflatten builds a document from dotted paths.
func Unflatten(leaves map[string]any) Document {
	paths := make([]string, 0, len(leaves))
	for p := range leaves {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	d := Document{}
	for _, p := range paths {
		d.Set(p, leaves[p])
	}
	return d
}

// toDocument converts a typed value into a document through its JSON form.
func toDocument(v any) (Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return d, nil
}
