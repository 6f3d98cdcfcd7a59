package sizing

import (
	"errors"
	"math"

	"cablesizer/internal/catalogue"
	"cablesizer/internal/models"
)

// ErrUnsatisfiable marks a constraint no practical catalogue size can meet.
var ErrUnsatisfiable = errors.New("unsatisfiable within catalogue range")

// Adiabatic k factors, A·s½/mm².
var shortCircuitK = map[models.Material]map[models.Insulation]float64{
	models.Copper:    {models.XLPE: 143, models.PVC: 115},
	models.Aluminium: {models.XLPE: 94, models.PVC: 76},
}

func kFactor(material models.Material, insulation models.Insulation) float64 {
	if material == "" {
		material = models.Copper
	}
	if insulation == "" {
		insulation = models.XLPE
	}
	return shortCircuitK[material][insulation]
}

// VoltageDropPercent is the drop of one run carrying current over lengthM,
// as a percentage of the line voltage.
func VoltageDropPercent(phases int, current, lengthM float64, e catalogue.Entry, powerFactor, voltage float64) float64 {
	if voltage <= 0 {
		return math.Inf(1)
	}
	sinPhi := math.Sqrt(math.Max(0, 1-powerFactor*powerFactor))
	k := sqrt3
	if phases == 1 {
		k = 2
	}
	return k * current * (lengthM / 1000) * (e.Resistance*powerFactor + e.Reactance*sinPhi) / voltage * 100
}

// ShortCircuitArea is the minimum cross-section in mm² that survives iscKA
// for clearingTime seconds: I²t ≤ k²S².
func ShortCircuitArea(iscKA, clearingTime, k float64) float64 {
	if iscKA <= 0 || clearingTime <= 0 || k <= 0 {
		return 0
	}
	return iscKA * 1000 * math.Sqrt(clearingTime) / k
}

// smallest scans ascending entries for the first one satisfying ok.
func smallest(entries []catalogue.Entry, ok func(catalogue.Entry) bool) (catalogue.Entry, error) {
	for _, e := range entries {
		if ok(e) {
			return e, nil
		}
	}
	return catalogue.Entry{}, ErrUnsatisfiable
}

// practicalRange drops sizes too large to pull as a single run. A catalogue
// holding nothing below the limit is used whole.
func practicalRange(entries []catalogue.Entry, maxSize float64) []catalogue.Entry {
	n := 0
	for n < len(entries) && entries[n].Size <= maxSize {
		n++
	}
	if n == 0 {
		return entries
	}
	return entries[:n]
}

// constraint is one sizing rule evaluated at a fixed run count.
type constraint struct {
	name     string
	advisory bool
	holds    func(catalogue.Entry) bool
	detail   string

	size float64
	err  error
}

func (c *constraint) scan(entries []catalogue.Entry) {
	e, err := smallest(entries, c.holds)
	c.size, c.err = e.Size, err
}

func (c *constraint) check(selected catalogue.Entry, selectedOK bool) models.ConstraintCheck {
	out := models.ConstraintCheck{
		Name:        c.name,
		Evaluated:   true,
		Satisfiable: c.err == nil,
		Advisory:    c.advisory,
		Detail:      c.detail,
	}
	if c.err == nil {
		out.RequiredSize = c.size
	}
	out.Passed = selectedOK && c.holds(selected)
	return out
}

func skipped(name, detail string) models.ConstraintCheck {
	return models.ConstraintCheck{Name: name, Passed: true, Detail: detail}
}
