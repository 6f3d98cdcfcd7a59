package sizing

import (
	"fmt"

	"cablesizer/internal/catalogue"
	"cablesizer/internal/models"
)

// band maps keys up to and including upTo onto factor.
type band struct {
	upTo   float64
	factor float64
}

// XLPE, reference 30 °C.
var airTemperature = []band{
	{30, 1.00}, {35, 0.96}, {40, 0.91}, {45, 0.87}, {50, 0.82},
	{55, 0.76}, {60, 0.71}, {65, 0.65}, {70, 0.58},
}

// XLPE, reference 20 °C.
var groundTemperature = []band{
	{20, 1.00}, {25, 0.96}, {30, 0.93}, {35, 0.89}, {40, 0.85},
	{45, 0.80}, {50, 0.76}, {55, 0.71}, {60, 0.65}, {65, 0.60}, {70, 0.53},
}

// Bunched circuits.
var grouping = []band{
	{1, 1.00}, {2, 0.80}, {3, 0.70}, {4, 0.65}, {5, 0.60}, {6, 0.57},
	{7, 0.54}, {8, 0.52}, {9, 0.50}, {12, 0.45}, {16, 0.41}, {20, 0.38},
}

// Laying depth in metres, reference 0.7 m.
var depth = []band{
	{0.7, 1.00}, {1.0, 0.98}, {1.25, 0.96}, {1.5, 0.95},
	{1.75, 0.94}, {2.0, 0.93}, {2.5, 0.91}, {3.0, 0.90},
}

// Soil thermal resistivity in K·m/W, reference 2.5.
var soil = []band{
	{2.5, 1.00}, {3.0, 0.96},
}

// lookup returns the factor of the first band covering key. Keys past the
// last band clamp to it and report clamped.
func lookup(bands []band, key float64) (factor float64, clamped bool) {
	if len(bands) == 0 {
		return 1, false
	}
	for _, b := range bands {
		if key <= b.upTo {
			return b.factor, false
		}
	}
	return bands[len(bands)-1].factor, true
}

// Derate computes K = Kt × Kg × Kd × Ks for the segment. Depth and soil
// apply to ground installations only. A valid override replaces the product.
func Derate(seg models.CableSegment, method catalogue.Method) (models.DeratingBreakdown, []string) {
	var notes []string

	tempTable := airTemperature
	if method.Ground() {
		tempTable = groundTemperature
	}
	kt, clamped := lookup(tempTable, seg.AmbientTemp)
	if clamped {
		notes = append(notes, fmt.Sprintf("ambient temperature %.0f °C is beyond the derating table", seg.AmbientTemp))
	}

	kg, _ := lookup(grouping, float64(seg.NumberOfLoadedCircuits))

	kd, ks := 1.0, 1.0
	if method.Ground() {
		kd, _ = lookup(depth, seg.InstallationDepth)
		ks, _ = lookup(soil, seg.SoilResistivity)
	}

	d := models.DeratingBreakdown{
		Temperature: kt,
		Grouping:    kg,
		Depth:       kd,
		Soil:        ks,
		Total:       kt * kg * kd * ks,
	}

	switch {
	case seg.DeratingFactor > 0 && seg.DeratingFactor <= 1:
		d.Override = true
		d.Total = seg.DeratingFactor
	case seg.DeratingFactor != 0:
		notes = append(notes, fmt.Sprintf("derating override %.2f is outside (0,1] and was ignored", seg.DeratingFactor))
	}

	if d.Total <= 0 {
		d.Total = 1
	}
	return d, notes
}
