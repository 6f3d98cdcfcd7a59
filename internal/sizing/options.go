package sizing

// Options tune the engine. Zero-valued fields fall back to DefaultOptions.
type Options struct {
	// SafetyMargin multiplies the derated current for the ampacity check:
	// 1.25 for coarse sizing, 1.0 for catalogue-accurate sizing.
	SafetyMargin float64 `json:"safetyMargin,omitempty"`

	RunningLimitMotor   float64 `json:"runningLimitMotor,omitempty"`   // % drop
	RunningLimitGeneral float64 `json:"runningLimitGeneral,omitempty"` // % drop
	StartingLimit       float64 `json:"startingLimit,omitempty"`       // % drop

	MinConductorSize float64 `json:"minConductorSize,omitempty"` // mm²
	MaxPracticalSize float64 `json:"maxPracticalSize,omitempty"` // mm², largest size pulled as a single run
	MaxRuns          int     `json:"maxRuns,omitempty"`

	// BlockingShortCircuit makes the withstand constraint part of the
	// selection. Off by default: the result is reported as advisory.
	BlockingShortCircuit bool `json:"blockingShortCircuit,omitempty"`

	DefaultPowerFactor   float64 `json:"defaultPowerFactor,omitempty"`
	DefaultEfficiency    float64 `json:"defaultEfficiency,omitempty"`
	ExcessiveDropPercent float64 `json:"excessiveDropPercent,omitempty"`
}

func DefaultOptions() Options {
	return Options{
		SafetyMargin:         1.25,
		RunningLimitMotor:    3,
		RunningLimitGeneral:  5,
		StartingLimit:        15,
		MinConductorSize:     2.5,
		MaxPracticalSize:     300,
		MaxRuns:              10,
		DefaultPowerFactor:   0.85,
		DefaultEfficiency:    0.95,
		ExcessiveDropPercent: 50,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.SafetyMargin <= 0 {
		o.SafetyMargin = d.SafetyMargin
	}
	if o.RunningLimitMotor <= 0 {
		o.RunningLimitMotor = d.RunningLimitMotor
	}
	if o.RunningLimitGeneral <= 0 {
		o.RunningLimitGeneral = d.RunningLimitGeneral
	}
	if o.StartingLimit <= 0 {
		o.StartingLimit = d.StartingLimit
	}
	if o.MinConductorSize <= 0 {
		o.MinConductorSize = d.MinConductorSize
	}
	if o.MaxPracticalSize <= 0 {
		o.MaxPracticalSize = d.MaxPracticalSize
	}
	if o.MaxRuns <= 0 {
		o.MaxRuns = d.MaxRuns
	}
	if o.DefaultPowerFactor <= 0 || o.DefaultPowerFactor > 1 {
		o.DefaultPowerFactor = d.DefaultPowerFactor
	}
	if o.DefaultEfficiency <= 0 || o.DefaultEfficiency > 1 {
		o.DefaultEfficiency = d.DefaultEfficiency
	}
	if o.ExcessiveDropPercent <= 0 {
		o.ExcessiveDropPercent = d.ExcessiveDropPercent
	}
	return o
}

// Overlay returns o with every positive field of over applied on top.
// BlockingShortCircuit can only be switched on.
func (o Options) Overlay(over Options) Options {
	set := func(dst *float64, v float64) {
		if v > 0 {
			*dst = v
		}
	}
	set(&o.SafetyMargin, over.SafetyMargin)
	set(&o.RunningLimitMotor, over.RunningLimitMotor)
	set(&o.RunningLimitGeneral, over.RunningLimitGeneral)
	set(&o.StartingLimit, over.StartingLimit)
	set(&o.MinConductorSize, over.MinConductorSize)
	set(&o.MaxPracticalSize, over.MaxPracticalSize)
	set(&o.DefaultPowerFactor, over.DefaultPowerFactor)
	set(&o.DefaultEfficiency, over.DefaultEfficiency)
	set(&o.ExcessiveDropPercent, over.ExcessiveDropPercent)
	if over.MaxRuns > 0 {
		o.MaxRuns = over.MaxRuns
	}
	if over.BlockingShortCircuit {
		o.BlockingShortCircuit = true
	}
	return o
}
