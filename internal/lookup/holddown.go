package lookup

import (
	"sort"
	"strconv"
	"strings"
)

// Holddown is a resolved hold-down matrix entry for one reel, assembly and cylinder.
type Holddown struct {
	Key            string        `json:"key"`
	Cylinder       string        `json:"cylinder"`
	Fallback       bool          `json:"fallback"`
	Pressure       float64       `json:"pressure"`
	ForceAvailable float64       `json:"force_available"`
	MinWidth       float64       `json:"min_width"`
	Entry          HolddownEntry `json:"entry"`
}

// HolddownKey builds "{holddown_family}+{holddown_sort}+{assembly}+{cylinder}" for a reel model.
func (t *Tables) HolddownKey(model, assembly, cylinder string) (string, error) {
	prefix, err := t.holddownPrefix(model, assembly)
	if err != nil {
		return "", err
	}
	return prefix + cylinder, nil
}

func (t *Tables) holddownPrefix(model, assembly string) (string, error) {
	r, err := t.Reel(model)
	if err != nil {
		return "", err
	}
	s, err := t.HolddownSort(assembly)
	if err != nil {
		return "", err
	}
	return r.HolddownFamily + "+" + strconv.Itoa(s) + "+" + strings.TrimSpace(assembly) + "+", nil
}

// ValidCylinders lists the cylinders the matrix holds for a reel model and assembly,
// in fallback priority order: hydraulic, then air cylinders from the largest bore down.
func (t *Tables) ValidCylinders(model, assembly string) ([]string, error) {
	prefix, err := t.holddownPrefix(model, assembly)
	if err != nil {
		return nil, err
	}
	var cyls []string
	for key := range t.d.HolddownMatrix {
		if c, ok := strings.CutPrefix(key, prefix); ok {
			cyls = append(cyls, c)
		}
	}
	sort.Slice(cyls, func(i, j int) bool {
		ri, rj := cylinderRank(cyls[i]), cylinderRank(cyls[j])
		if ri != rj {
			return ri > rj
		}
		return cyls[i] < cyls[j]
	})
	return cyls, nil
}

// cylinderRank orders hydraulic above any air bore and larger bores above smaller.
func cylinderRank(cylinder string) float64 {
	c := strings.ToLower(cylinder)
	if strings.Contains(c, "hydraulic") {
		return 1e6
	}
	end := 0
	for end < len(c) && (c[end] >= '0' && c[end] <= '9' || c[end] == '.') {
		end++
	}
	bore, err := strconv.ParseFloat(c[:end], 64)
	if err != nil {
		return 0
	}
	return bore
}

// Holddown resolves the hold-down entry for (model, assembly, cylinder) at the given air
// pressure. An unknown cylinder falls back to the highest priority valid cylinder for
// the same model and assembly; a pair with no valid cylinder is an error.
func (t *Tables) Holddown(model, assembly, cylinder string, airPressure float64) (Holddown, error) {
	key, err := t.HolddownKey(model, assembly, cylinder)
	if err != nil {
		return Holddown{}, err
	}
	used, fallback := cylinder, false
	entry, ok := t.d.HolddownMatrix[key]
	if !ok {
		valid, err := t.ValidCylinders(model, assembly)
		if err != nil {
			return Holddown{}, err
		}
		if len(valid) == 0 {
			return Holddown{}, &UnknownKeyError{Table: TableHolddownMatrix, Key: key}
		}
		used, fallback = valid[0], true
		key, _ = t.HolddownKey(model, assembly, used)
		entry = t.d.HolddownMatrix[key]
	}

	pressure := entry.PSI
	if strings.Contains(entry.PressureLabel, "psi Air") {
		pressure = min(airPressure, entry.MaxPSI)
	}
	return Holddown{
		Key:            key,
		Cylinder:       used,
		Fallback:       fallback,
		Pressure:       pressure,
		ForceAvailable: entry.ForceFactor * pressure,
		MinWidth:       entry.MinWidth,
		Entry:          entry,
	}, nil
}
