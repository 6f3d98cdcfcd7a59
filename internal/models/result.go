package models

// Status of a sizing result.
const (
	StatusApproved = "APPROVED"
	StatusWarning  = "WARNING"
	StatusFailed   = "FAILED"
)

// Constraint names, also used as DrivingConstraint values.
const (
	ConstraintAmpacity            = "ampacity"
	ConstraintVoltageDropRunning  = "voltageDropRunning"
	ConstraintVoltageDropStarting = "voltageDropStarting"
	ConstraintShortCircuit        = "shortCircuit"
	ConstraintMinimumSize         = "minimumSize"
	ConstraintUnsatisfiable       = "unsatisfiable"
)

// DeratingBreakdown holds the individual correction factors. Total is their
// product unless Override is set.
type DeratingBreakdown struct {
	Temperature float64 `json:"temperature"`
	Grouping    float64 `json:"grouping"`
	Depth       float64 `json:"depth"`
	Soil        float64 `json:"soil"`
	Override    bool    `json:"override"`
	Total       float64 `json:"total"`
}

// ConstraintCheck is the machine-checkable outcome of one sizing constraint.
type ConstraintCheck struct {
	Name         string  `json:"name"`
	Evaluated    bool    `json:"evaluated"`
	Satisfiable  bool    `json:"satisfiable"`
	RequiredSize float64 `json:"requiredSize"` // mm² per run, 0 when not satisfiable
	Passed       bool    `json:"passed"`       // holds at the selected size
	Advisory     bool    `json:"advisory"`     // reported but not part of the selection
	Detail       string  `json:"detail,omitempty"`
}

// SizingResult is the derived, immutable outcome of sizing one segment.
type SizingResult struct {
	Index       int    `json:"index"`
	SerialNo    int    `json:"serialNo"`
	CableNumber string `json:"cableNumber"`

	FullLoadCurrent float64           `json:"fullLoadCurrent"`
	StartingCurrent float64           `json:"startingCurrent"`
	DeratingFactor  float64           `json:"deratingFactor"`
	Derating        DeratingBreakdown `json:"derating"`
	DeratedCurrent  float64           `json:"deratedCurrent"`
	RequiredCurrent float64           `json:"requiredCurrent"`

	SizeByAmpacity            float64 `json:"sizeByAmpacity"`
	SizeByVoltageDropRunning  float64 `json:"sizeByVoltageDropRunning"`
	SizeByVoltageDropStarting float64 `json:"sizeByVoltageDropStarting"`
	SizeByShortCircuit        float64 `json:"sizeByShortCircuit"`

	// SelectedConductorArea is the catalogue size of each parallel run in
	// mm². The total copper is SelectedConductorArea times NumberOfRuns.
	SelectedConductorArea float64 `json:"selectedConductorArea"`
	NumberOfRuns          int     `json:"numberOfRuns"`
	DrivingConstraint     string  `json:"drivingConstraint"`

	VoltageDropPercent         float64 `json:"voltageDropPercent"`
	StartingVoltageDropPercent float64 `json:"startingVoltageDropPercent"`

	Constraints []ConstraintCheck `json:"constraints"`
	Status      string            `json:"status"`
	Anomalies   []string          `json:"anomalies"`
}

// Check returns the named constraint outcome.
func (r SizingResult) Check(name string) (ConstraintCheck, bool) {
	for _, c := range r.Constraints {
		if c.Name == name {
			return c, true
		}
	}
	return ConstraintCheck{}, false
}
