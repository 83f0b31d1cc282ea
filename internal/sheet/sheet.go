// Package sheet reads request documents from spreadsheets and writes autofill
// results back out. The first row names a dotted document path per column and
// every following row is one document.
package sheet

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/CoePress/coesco-web/internal/autofill"
	"github.com/xuri/excelize/v2"
)

// ErrEmptySheet is returned for a sheet without a header and at least one row.
var ErrEmptySheet = errors.New("empty sheet")

// Format of a sheet file.
type Format string

const (
	XLSX Format = "xlsx"
	CSV  Format = "csv"
)

// FormatOf picks the format from a file name.
func FormatOf(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "xlsx", "xlsm":
		return XLSX, nil
	case "csv":
		return CSV, nil
	}
	return "", fmt.Errorf("unsupported sheet format %q", filepath.Ext(name))
}

// Read parses documents in the given format.
func Read(format Format, r io.Reader) ([]autofill.Document, error) {
	switch format {
	case XLSX:
		return ReadXLSX(r)
	case CSV:
		return ReadCSV(r)
	}
	return nil, fmt.Errorf("unsupported sheet format %q", format)
}

// Write renders documents in the given format.
func Write(format Format, w io.Writer, docs []autofill.Document) error {
	switch format {
	case XLSX:
		return WriteXLSX(w, docs)
	case CSV:
		return WriteCSV(w, docs)
	}
	return fmt.Errorf("unsupported sheet format %q", format)
}

// ReadXLSX parses the first worksheet of a workbook.
func ReadXLSX(r io.Reader) ([]autofill.Document, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return documents(rows)
}

// ReadCSV parses comma separated rows.
func ReadCSV(r io.Reader) ([]autofill.Document, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return documents(rows)
}

func documents(rows [][]string) ([]autofill.Document, error) {
	if len(rows) < 2 {
		return nil, ErrEmptySheet
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}

	var docs []autofill.Document
	for _, row := range rows[1:] {
		leaves := map[string]any{}
		for i, cell := range row {
			if i >= len(header) || header[i] == "" {
				continue
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			leaves[header[i]] = cellValue(cell)
		}
		if len(leaves) == 0 {
			continue
		}
		docs = append(docs, autofill.Unflatten(leaves))
	}
	if len(docs) == 0 {
		return nil, ErrEmptySheet
	}
	return docs, nil
}

func cellValue(s string) any {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// columns is the sorted union of the leaf paths of every document.
func columns(flat []map[string]any) []string {
	seen := map[string]bool{}
	var cols []string
	for _, m := range flat {
		for p := range m {
			if !seen[p] {
				seen[p] = true
				cols = append(cols, p)
			}
		}
	}
	sort.Strings(cols)
	return cols
}

func cellText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func table(docs []autofill.Document) [][]string {
	flat := make([]map[string]any, len(docs))
	for i, d := range docs {
		flat[i] = autofill.Flatten(d)
	}
	cols := columns(flat)
	out := [][]string{cols}
	for _, m := range flat {
		row := make([]string, len(cols))
		for i, c := range cols {
			if v, ok := m[c]; ok {
				row[i] = cellText(v)
			}
		}
		out = append(out, row)
	}
	return out
}

// WriteCSV writes one header row and one row per document.
func WriteCSV(w io.Writer, docs []autofill.Document) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(table(docs)); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteXLSX writes a workbook with a bold header row. Numeric leaves stay numbers.
func WriteXLSX(w io.Writer, docs []autofill.Document) error {
	f := excelize.NewFile()
	defer f.Close()
	const name = "Results"
	if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
		return err
	}

	flat := make([]map[string]any, len(docs))
	for i, d := range docs {
		flat[i] = autofill.Flatten(d)
	}
	cols := columns(flat)

	header := make([]interface{}, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(name, 1, 1, bold); err != nil {
		return err
	}

	for r, m := range flat {
		row := make([]interface{}, len(cols))
		for i, c := range cols {
			switch v := m[c].(type) {
			case float64, bool, string, nil:
				row[i] = v
			default:
				row[i] = cellText(v)
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return err
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Results turns autofill responses into exportable documents. Each one carries
// the filled values plus an autofill namespace with the run outcome.
func Results(res []autofill.Response) []autofill.Document {
	docs := make([]autofill.Document, 0, len(res))
	for _, r := range res {
		d := autofill.Document{}
		if r.AutoFillValues != nil {
			d = r.AutoFillValues.Clone()
		}
		d.Set("autofill.success", r.Success)
		d.Set("autofill.generatedSections", strings.Join(r.GeneratedSections, ","))
		if r.Error != "" {
			d.Set("autofill.error", r.Error)
		}
		for section, msg := range r.SectionErrors {
			d.Set("autofill.errors."+section, msg)
		}
		docs = append(docs, d)
	}
	return docs
}
