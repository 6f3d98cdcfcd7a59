package catalogue

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// SpecEntry is the external form of one catalogue row.
type SpecEntry struct {
	AirRating    float64 `json:"airRating" yaml:"airRating"`
	TrenchRating float64 `json:"trenchRating" yaml:"trenchRating"`
	DuctRating   float64 `json:"ductRating" yaml:"ductRating"`
	Resistance   float64 `json:"resistance" yaml:"resistance"`
	Reactance    float64 `json:"reactance" yaml:"reactance"`
	Material     string  `json:"material,omitempty" yaml:"material,omitempty"`
	Diameter     float64 `json:"diameter,omitempty" yaml:"diameter,omitempty"`
}

// Spec is the uploaded catalogue shape: core label -> size label (mm²) -> row.
//
//	3C:
//	  "25": {airRating: 101, trenchRating: 101, ductRating: 86, resistance: 0.87, reactance: 0.086}
type Spec map[string]map[string]SpecEntry

// ParseSpec decodes a YAML or JSON catalogue document.
func ParseSpec(data []byte) (Spec, error) {
	var s Spec
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalogue, err)
	}
	return s, nil
}

// FromSpec validates an external catalogue and builds the sorted form.
func FromSpec(name string, s Spec) (*Catalogue, error) {
	tables := make(map[CoreConfig][]Entry, len(s))
	for coreLabel, rows := range s {
		core, err := ParseCoreConfig(coreLabel)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCatalogue, err)
		}
		if _, dup := tables[core]; dup {
			return nil, fmt.Errorf("%w: core configuration %s given twice", ErrInvalidCatalogue, core)
		}

		entries := make([]Entry, 0, len(rows))
		for sizeLabel, row := range rows {
			size, err := parseSize(sizeLabel)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrInvalidCatalogue, core, err)
			}
			entries = append(entries, Entry{
				Size:         size,
				AirRating:    row.AirRating,
				TrenchRating: row.TrenchRating,
				DuctRating:   row.DuctRating,
				Resistance:   row.Resistance,
				Reactance:    row.Reactance,
				Material:     row.Material,
				Diameter:     row.Diameter,
			})
		}
		tables[core] = entries
	}
	return New(name, tables)
}

// Spec converts the catalogue back to its external form.
func (c *Catalogue) Spec() Spec {
	s := make(Spec, len(c.tables))
	for core, entries := range c.tables {
		rows := make(map[string]SpecEntry, len(entries))
		for _, e := range entries {
			rows[strconv.FormatFloat(e.Size, 'f', -1, 64)] = SpecEntry{
				AirRating:    e.AirRating,
				TrenchRating: e.TrenchRating,
				DuctRating:   e.DuctRating,
				Resistance:   e.Resistance,
				Reactance:    e.Reactance,
				Material:     e.Material,
				Diameter:     e.Diameter,
			}
		}
		s[core.String()] = rows
	}
	return s
}

func parseSize(label string) (float64, error) {
	norm := strings.ToLower(strings.TrimSpace(label))
	norm = strings.TrimSuffix(norm, "mm²")
	norm = strings.TrimSuffix(norm, "mm2")
	norm = strings.TrimSpace(norm)
	size, err := strconv.ParseFloat(norm, 64)
	if err != nil || math.IsNaN(size) || math.IsInf(size, 0) {
		return 0, fmt.Errorf("size %q is not a number", label)
	}
	return size, nil
}
