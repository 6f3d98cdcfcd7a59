package catalogue

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidCatalogue is returned when a catalogue table fails validation.
var ErrInvalidCatalogue = errors.New("invalid catalogue")

// CoreConfig is the number of cores of a cable.
type CoreConfig int

const (
	SingleCore CoreConfig = iota + 1
	TwoCore
	ThreeCore
	FourCore
)

// AllCores lists every core configuration in ascending order.
var AllCores = []CoreConfig{SingleCore, TwoCore, ThreeCore, FourCore}

func (c CoreConfig) Valid() bool {
	return c >= SingleCore && c <= FourCore
}

func (c CoreConfig) String() string {
	if !c.Valid() {
		return ""
	}
	return strconv.Itoa(int(c)) + "C"
}

// ParseCoreConfig accepts the spellings found in cable schedules: "3", "3C", "3-core", "3 Core", "three".
func ParseCoreConfig(s string) (CoreConfig, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "", " ", "", "_", "", "/", "").Replace(norm)
	norm = strings.TrimSuffix(norm, "CORES")
	norm = strings.TrimSuffix(norm, "CORE")
	norm = strings.TrimSuffix(norm, "C")

	switch norm {
	case "1", "SINGLE", "ONE":
		return SingleCore, nil
	case "2", "TWO", "TWIN":
		return TwoCore, nil
	case "3", "THREE":
		return ThreeCore, nil
	case "4", "FOUR", "3.5", "3½":
		return FourCore, nil
	}
	return 0, fmt.Errorf("unknown core configuration %q", s)
}

func (c CoreConfig) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText is lenient: unrecognised text leaves the value unset.
func (c *CoreConfig) UnmarshalText(text []byte) error {
	parsed, err := ParseCoreConfig(string(text))
	if err != nil {
		*c = 0
		return nil
	}
	*c = parsed
	return nil
}

// UnmarshalJSON accepts both numbers (3) and strings ("3C").
func (c *CoreConfig) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		s, err := strconv.Unquote(string(data))
		if err != nil {
			return fmt.Errorf("core configuration: %w", err)
		}
		return c.UnmarshalText([]byte(s))
	}
	return c.UnmarshalText(data)
}

// Method is the installation method a rating column applies to.
type Method int

const (
	Air Method = iota + 1
	Trench
	Duct
)

func (m Method) Valid() bool {
	return m >= Air && m <= Duct
}

// Ground reports whether the cable is installed below grade.
func (m Method) Ground() bool {
	return m == Trench || m == Duct
}

func (m Method) String() string {
	switch m {
	case Air:
		return "Air"
	case Trench:
		return "Trench"
	case Duct:
		return "Duct"
	}
	return ""
}

// ParseMethod maps free-text installation descriptions onto a rating column.
func ParseMethod(s string) (Method, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	switch {
	case norm == "":
	case strings.Contains(norm, "DUCT"), strings.Contains(norm, "CONDUIT"), strings.Contains(norm, "PIPE"):
		return Duct, nil
	case strings.Contains(norm, "TRENCH"), strings.Contains(norm, "BURIED"),
		strings.Contains(norm, "GROUND"), strings.Contains(norm, "DIRECT"), strings.Contains(norm, "SOIL"):
		return Trench, nil
	case strings.Contains(norm, "AIR"), strings.Contains(norm, "TRAY"),
		strings.Contains(norm, "LADDER"), strings.Contains(norm, "CLIPPED"):
		return Air, nil
	}
	return 0, fmt.Errorf("unknown installation method %q", s)
}

func (m Method) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText is lenient: unrecognised text leaves the value unset.
func (m *Method) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		*m = 0
		return nil
	}
	*m = parsed
	return nil
}

// Entry is one conductor size of one core configuration.
type Entry struct {
	Size         float64 `json:"size"` // mm²
	AirRating    float64 `json:"airRating"`
	TrenchRating float64 `json:"trenchRating"`
	DuctRating   float64 `json:"ductRating"`
	Resistance   float64 `json:"resistance"` // Ω/km, AC at operating temperature
	Reactance    float64 `json:"reactance"`  // Ω/km
	Material     string  `json:"material,omitempty"`
	Diameter     float64 `json:"diameter,omitempty"` // mm
}

// Rating returns the ampacity of the entry for the given installation method.
func (e Entry) Rating(m Method) float64 {
	switch m {
	case Trench:
		return e.TrenchRating
	case Duct:
		return e.DuctRating
	default:
		return e.AirRating
	}
}

// Catalogue is an immutable conductor table keyed by core configuration,
// each list sorted by ascending size.
type Catalogue struct {
	name   string
	tables map[CoreConfig][]Entry
}

// New copies, sorts and validates the given tables.
func New(name string, tables map[CoreConfig][]Entry) (*Catalogue, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: no core configurations", ErrInvalidCatalogue)
	}

	c := &Catalogue{name: name, tables: make(map[CoreConfig][]Entry, len(tables))}
	for core, entries := range tables {
		if !core.Valid() {
			return nil, fmt.Errorf("%w: core configuration %d", ErrInvalidCatalogue, int(core))
		}
		if len(entries) == 0 {
			return nil, fmt.Errorf("%w: %s has no sizes", ErrInvalidCatalogue, core)
		}

		sorted := make([]Entry, len(entries))
		copy(sorted, entries)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Size < sorted[j].Size })

		for i, e := range sorted {
			if err := validateEntry(e); err != nil {
				return nil, fmt.Errorf("%w: %s %gmm²: %v", ErrInvalidCatalogue, core, e.Size, err)
			}
			if i > 0 && sorted[i-1].Size == e.Size {
				return nil, fmt.Errorf("%w: %s has duplicate size %gmm²", ErrInvalidCatalogue, core, e.Size)
			}
		}
		c.tables[core] = sorted
	}
	return c, nil
}

func validateEntry(e Entry) error {
	switch {
	case !finite(e.Size, e.AirRating, e.TrenchRating, e.DuctRating, e.Resistance, e.Reactance):
		return errors.New("values must be finite numbers")
	case e.Size <= 0:
		return errors.New("size must be positive")
	case e.AirRating < 0, e.TrenchRating < 0, e.DuctRating < 0:
		return errors.New("ratings must not be negative")
	case e.AirRating == 0 && e.TrenchRating == 0 && e.DuctRating == 0:
		return errors.New("at least one rating is required")
	case e.Resistance < 0, e.Reactance < 0:
		return errors.New("impedance must not be negative")
	}
	return nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (c *Catalogue) Name() string {
	return c.name
}

// Cores returns the configured core configurations in ascending order.
func (c *Catalogue) Cores() []CoreConfig {
	out := make([]CoreConfig, 0, len(c.tables))
	for _, core := range AllCores {
		if _, ok := c.tables[core]; ok {
			out = append(out, core)
		}
	}
	return out
}

// Entries returns a copy of the sizes for core, smallest first.
func (c *Catalogue) Entries(core CoreConfig) []Entry {
	entries := c.tables[core]
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// Lookup finds the entry of an exact size.
func (c *Catalogue) Lookup(core CoreConfig, size float64) (Entry, bool) {
	entries := c.tables[core]
	i := sort.Search(len(entries), func(i int) bool { return entries[i].Size >= size })
	if i < len(entries) && entries[i].Size == size {
		return entries[i], true
	}
	return Entry{}, false
}
