package models

// Voltage drop bands of a resolved path.
const (
	DropNormal   = "normal"   // ≤ 3 %
	DropFlagged  = "flagged"  // 3–5 %, valid but reported
	DropExceeded = "exceeded" // > 5 %
)

// Sources of a path voltage drop.
const (
	DropSourceSegment = "segment"
	DropSourcePreview = "preview"
)

// Diagnostic kinds raised by topology resolution.
const (
	DiagNoRoot          = "no_root"
	DiagDeadEnd         = "dead_end"
	DiagCycle           = "cycle"
	DiagIterationCap    = "iteration_cap"
	DiagMultipleParents = "multiple_parents"
	DiagBlankBus        = "blank_bus"
	DiagUnmarkedRoot    = "unmarked_root"
	DiagExcessiveDrop   = "excessive_drop"
)

// CablePath is the chain of segments from one leaf bus to the root it reaches.
type CablePath struct {
	StartEquipment     string         `json:"startEquipment"`
	EndSource          string         `json:"endSource"`
	Cables             []CableSegment `json:"cables"` // leaf to root
	SegmentIndexes     []int          `json:"segmentIndexes"`
	TotalDistance      float64        `json:"totalDistance"`
	TotalVoltage       float64        `json:"totalVoltage"`
	CumulativeLoad     float64        `json:"cumulativeLoad"`
	VoltageDrop        float64        `json:"voltageDrop"`
	VoltageDropPercent float64        `json:"voltageDropPercent"`
	IsValid            bool           `json:"isValid"`
	DropBand           string         `json:"dropBand"`
	DropSource         string         `json:"dropSource"`
}

// UnresolvedTrace is a leaf whose trace ended without reaching a root.
// SegmentIndexes holds the partial chain, which never repeats a bus.
type UnresolvedTrace struct {
	Leaf           string `json:"leaf"`
	Reason         string `json:"reason"`
	Bus            string `json:"bus"`
	SegmentIndexes []int  `json:"segmentIndexes"`
}

// Diagnostic is a warning-level structural finding naming the offending bus.
type Diagnostic struct {
	Level   string `json:"level"`
	Kind    string `json:"kind"`
	Bus     string `json:"bus,omitempty"`
	Message string `json:"message"`
}

// Topology is the output of one resolution pass.
type Topology struct {
	Roots       []string          `json:"roots"`
	Leaves      []string          `json:"leaves"`
	Paths       []CablePath       `json:"paths"`
	Unresolved  []UnresolvedTrace `json:"unresolved"`
	Diagnostics []Diagnostic      `json:"diagnostics"`
}

// Summary counts the outcome of a recompute.
type Summary struct {
	Segments     int `json:"segments"`
	Approved     int `json:"approved"`
	Warning      int `json:"warning"`
	Failed       int `json:"failed"`
	Paths        int `json:"paths"`
	ValidPaths   int `json:"validPaths"`
	FlaggedPaths int `json:"flaggedPaths"`
	Unresolved   int `json:"unresolved"`
}

// Report is the complete derived state for one snapshot of segments.
type Report struct {
	Catalogue string         `json:"catalogue"`
	Results   []SizingResult `json:"results"`
	Topology
	Summary Summary `json:"summary"`
}
