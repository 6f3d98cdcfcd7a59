package models

import (
	"strings"

	"cablesizer/internal/catalogue"
)

// StartingMethod is how a motor load is started.
type StartingMethod string

const (
	StartNone        StartingMethod = "None"
	StartDOL         StartingMethod = "DOL"
	StartStarDelta   StartingMethod = "StarDelta"
	StartSoftStarter StartingMethod = "SoftStarter"
	StartVFD         StartingMethod = "VFD"
)

// ParseStartingMethod maps schedule spellings ("D.O.L", "Y-D", "soft starter", "drive") onto the closed set.
func ParseStartingMethod(s string) StartingMethod {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "", "-", "", "_", "", ".", "", "/", "").Replace(norm)
	switch norm {
	case "DOL", "DIRECTONLINE", "DIRECT":
		return StartDOL
	case "STARDELTA", "YD", "YDELTA", "WYEDELTA", "SD":
		return StartStarDelta
	case "SOFTSTARTER", "SOFTSTART", "SS":
		return StartSoftStarter
	case "VFD", "VSD", "DRIVE", "INVERTER", "VARIABLEFREQUENCYDRIVE":
		return StartVFD
	}
	return StartNone
}

func (m *StartingMethod) UnmarshalText(text []byte) error {
	*m = ParseStartingMethod(string(text))
	return nil
}

// Motor reports whether the method implies a motor load.
func (m StartingMethod) Motor() bool {
	return m != "" && m != StartNone
}

// LoadType selects the full-load current formula.
type LoadType string

const (
	LoadMotor   LoadType = "Motor"
	LoadFeeder  LoadType = "Feeder"
	LoadGeneral LoadType = "General"
)

func (t *LoadType) UnmarshalText(text []byte) error {
	norm := strings.ToUpper(strings.TrimSpace(string(text)))
	switch {
	case norm == "":
		*t = ""
	case strings.Contains(norm, "MOTOR"), strings.Contains(norm, "PUMP"), strings.Contains(norm, "FAN"):
		*t = LoadMotor
	case strings.Contains(norm, "FEEDER"), strings.Contains(norm, "TRANSFORMER"),
		strings.Contains(norm, "PANEL"), strings.Contains(norm, "BOARD"):
		*t = LoadFeeder
	default:
		*t = LoadGeneral
	}
	return nil
}

// Material is the conductor metal.
type Material string

const (
	Copper    Material = "Cu"
	Aluminium Material = "Al"
)

func (m *Material) UnmarshalText(text []byte) error {
	norm := strings.ToUpper(strings.TrimSpace(string(text)))
	switch {
	case norm == "":
		*m = ""
	case strings.HasPrefix(norm, "AL"):
		*m = Aluminium
	default:
		*m = Copper
	}
	return nil
}

// Insulation selects the short-circuit k constant.
type Insulation string

const (
	XLPE Insulation = "XLPE"
	PVC  Insulation = "PVC"
)

func (i *Insulation) UnmarshalText(text []byte) error {
	norm := strings.ToUpper(strings.TrimSpace(string(text)))
	switch {
	case norm == "":
		*i = ""
	case strings.Contains(norm, "PVC"):
		*i = PVC
	default:
		*i = XLPE
	}
	return nil
}

// CableSegment is one physical cable run between two buses. FromBus is the
// downstream end nearer the load, ToBus the upstream end nearer the source.
type CableSegment struct {
	SerialNo    int    `json:"serialNo"`
	CableNumber string `json:"cableNumber"`
	FromBus     string `json:"fromBus"`
	ToBus       string `json:"toBus"`

	Voltage     float64 `json:"voltage"` // V line-to-line
	LoadKW      float64 `json:"loadKW"`
	Length      float64 `json:"length"` // m
	PowerFactor float64 `json:"powerFactor"`
	Efficiency  float64 `json:"efficiency"`
	// DeratingFactor overrides the computed factor when in (0,1].
	DeratingFactor float64 `json:"deratingFactor,omitempty"`

	NumberOfCores      catalogue.CoreConfig `json:"numberOfCores"`
	Material           Material             `json:"conductorMaterial"`
	Insulation         Insulation           `json:"insulation,omitempty"`
	InstallationMethod catalogue.Method     `json:"installationMethod"`
	StartingMethod     StartingMethod       `json:"startingMethod"`
	LoadType           LoadType             `json:"loadType,omitempty"`
	ProtectionType     string               `json:"protectionType,omitempty"`

	MaxShortCircuitCurrent float64 `json:"maxShortCircuitCurrent,omitempty"` // kA
	ProtectionClearingTime float64 `json:"protectionClearingTime,omitempty"` // s

	AmbientTemp            float64 `json:"ambientTemp,omitempty"` // °C
	NumberOfLoadedCircuits int     `json:"numberOfLoadedCircuits,omitempty"`
	InstallationDepth      float64 `json:"installationDepth,omitempty"` // m
	SoilResistivity        float64 `json:"soilResistivity,omitempty"`   // K·m/W
}

// Normalize trims identifiers and bus names in place.
func (s *CableSegment) Normalize() {
	s.CableNumber = strings.TrimSpace(s.CableNumber)
	s.FromBus = strings.TrimSpace(s.FromBus)
	s.ToBus = strings.TrimSpace(s.ToBus)
	s.ProtectionType = strings.TrimSpace(s.ProtectionType)
}

// IsMotor reports whether the segment feeds a motor.
func (s CableSegment) IsMotor() bool {
	if s.LoadType != "" {
		return s.LoadType == LoadMotor
	}
	return s.StartingMethod.Motor()
}

// CanonicalBus is the comparison form of a bus name.
func CanonicalBus(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
