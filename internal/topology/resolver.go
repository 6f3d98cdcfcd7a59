package topology

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"cablesizer/internal/models"
)

const (
	DefaultIterationCap      = 100
	DefaultPreviewResistance = 0.1 // Ω/km
	DefaultExcessiveDrop     = 50  // %

	validDropPercent   = 5.0
	flaggedDropPercent = 3.0

	levelWarning = "warning"
)

// DefaultSourceMarkers are the name fragments that identify a supply bus.
var DefaultSourceMarkers = []string{"TRF", "TRAFO", "TRANSFORMER", "XFMR"}

// DropFunc returns the running voltage drop in volts of the segment at index.
type DropFunc func(index int, seg models.CableSegment) float64

// PreviewDrop estimates every segment with one representative resistance and
// the unity-efficiency full-load current. It is meant for quick feedback while
// editing; sized results give the figure to rely on.
func PreviewDrop(resistance float64) DropFunc {
	return func(_ int, seg models.CableSegment) float64 {
		if seg.Voltage <= 0 || seg.LoadKW <= 0 || seg.Length <= 0 {
			return 0
		}
		pf := seg.PowerFactor
		if pf <= 0 || pf > 1 {
			pf = 0.85
		}
		current := seg.LoadKW * 1000 / (math.Sqrt(3) * seg.Voltage * pf)
		return math.Sqrt(3) * current * resistance * seg.Length / 1000
	}
}

type Config struct {
	IterationCap      int
	SourceMarkers     []string
	PreviewResistance float64
	ExcessiveDrop     float64
}

// Resolver rebuilds the radial tree from a flat segment list and traces each
// leaf bus back to its source.
type Resolver struct {
	cfg  Config
	logr *zap.Logger
}

func New(cfg Config, logr *zap.Logger) *Resolver {
	if cfg.IterationCap <= 0 {
		cfg.IterationCap = DefaultIterationCap
	}
	if len(cfg.SourceMarkers) == 0 {
		cfg.SourceMarkers = DefaultSourceMarkers
	}
	if cfg.PreviewResistance <= 0 {
		cfg.PreviewResistance = DefaultPreviewResistance
	}
	if cfg.ExcessiveDrop <= 0 {
		cfg.ExcessiveDrop = DefaultExcessiveDrop
	}
	if logr == nil {
		logr = zap.NewNop()
	}
	return &Resolver{cfg: cfg, logr: logr}
}

// busSet keeps canonical names in first-appearance order along with the
// spelling they were first seen with.
type busSet struct {
	order   []string
	display map[string]string
}

func newBusSet() *busSet {
	return &busSet{display: make(map[string]string)}
}

func (s *busSet) add(raw string) {
	key := models.CanonicalBus(raw)
	if key == "" {
		return
	}
	if _, ok := s.display[key]; ok {
		return
	}
	s.order = append(s.order, key)
	s.display[key] = strings.TrimSpace(raw)
}

func (s *busSet) has(key string) bool {
	_, ok := s.display[key]
	return ok
}

// minus returns the keys of s absent from other, in s's order.
func (s *busSet) minus(other *busSet) []string {
	var out []string
	for _, key := range s.order {
		if !other.has(key) {
			out = append(out, key)
		}
	}
	return out
}

// network is the classified form of one segment snapshot.
type network struct {
	segments []models.CableSegment
	parent   map[string]int // fromBus -> first segment leaving it
	roots    map[string]bool
	names    map[string]string
}

func (n *network) name(key string) string {
	if d, ok := n.names[key]; ok {
		return d
	}
	return key
}

// Resolve classifies buses, traces every leaf and aggregates each resolved
// path. A nil drop selects the preview estimate. Structural problems are
// reported as diagnostics and unresolved traces, never as errors.
func (r *Resolver) Resolve(segments []models.CableSegment, drop DropFunc) models.Topology {
	source := models.DropSourceSegment
	if drop == nil {
		drop = PreviewDrop(r.cfg.PreviewResistance)
		source = models.DropSourcePreview
	}

	topo := models.Topology{
		Roots:       []string{},
		Leaves:      []string{},
		Paths:       []models.CablePath{},
		Unresolved:  []models.UnresolvedTrace{},
		Diagnostics: []models.Diagnostic{},
	}
	warn := func(kind, bus, format string, args ...any) {
		d := models.Diagnostic{Level: levelWarning, Kind: kind, Bus: bus, Message: fmt.Sprintf(format, args...)}
		topo.Diagnostics = append(topo.Diagnostics, d)
		r.logr.Warn("topology: "+d.Message, zap.String("kind", kind), zap.String("bus", bus))
	}

	froms, tos, all := newBusSet(), newBusSet(), newBusSet()
	// receiving buses of segments the walk can follow; an ignored second
	// parent still hides a leaf but never creates a root
	fed := newBusSet()
	net := &network{
		segments: segments,
		parent:   make(map[string]int),
		roots:    make(map[string]bool),
		names:    all.display,
	}
	for i, seg := range segments {
		froms.add(seg.FromBus)
		tos.add(seg.ToBus)
		all.add(seg.FromBus)
		all.add(seg.ToBus)

		from, to := models.CanonicalBus(seg.FromBus), models.CanonicalBus(seg.ToBus)
		if from == "" || to == "" {
			fed.add(seg.ToBus)
			warn(models.DiagBlankBus, strings.TrimSpace(seg.FromBus+seg.ToBus),
				"segment %d (%s) has a blank bus name", i, seg.CableNumber)
			continue
		}
		if first, ok := net.parent[from]; ok {
			warn(models.DiagMultipleParents, strings.TrimSpace(seg.FromBus),
				"bus %s feeds %s and %s; following %s", strings.TrimSpace(seg.FromBus),
				segments[first].CableNumber, seg.CableNumber, segments[first].CableNumber)
			continue
		}
		net.parent[from] = i
		fed.add(seg.ToBus)
	}

	roots := fed.minus(froms)
	leaves := froms.minus(tos)
	for _, key := range roots {
		net.roots[key] = true
		topo.Roots = append(topo.Roots, net.name(key))
	}
	for _, key := range leaves {
		topo.Leaves = append(topo.Leaves, net.name(key))
	}

	if len(roots) == 0 {
		if len(segments) > 0 {
			warn(models.DiagNoRoot, "", "no source bus found: every receiving bus also feeds another cable")
		}
		return topo
	}
	r.checkMarkers(roots, net, warn)

	for _, leaf := range leaves {
		indexes, reason, bus := r.trace(leaf, net)
		if reason != "" {
			topo.Unresolved = append(topo.Unresolved, models.UnresolvedTrace{
				Leaf:           net.name(leaf),
				Reason:         reason,
				Bus:            net.name(bus),
				SegmentIndexes: indexes,
			})
			switch reason {
			case models.DiagDeadEnd:
				warn(reason, net.name(bus), "trace from %s stops at %s: no cable leaves it", net.name(leaf), net.name(bus))
			case models.DiagCycle:
				warn(reason, net.name(bus), "trace from %s returns to %s: the network loops", net.name(leaf), net.name(bus))
			default:
				warn(reason, net.name(bus), "trace from %s exceeded %d steps", net.name(leaf), r.cfg.IterationCap)
			}
			continue
		}

		p := aggregate(net, leaf, bus, indexes, drop)
		p.DropSource = source
		if p.VoltageDropPercent > r.cfg.ExcessiveDrop {
			warn(models.DiagExcessiveDrop, p.StartEquipment, "path %s to %s drops %.1f%%",
				p.StartEquipment, p.EndSource, p.VoltageDropPercent)
		}
		r.logr.Debug("path resolved",
			zap.String("leaf", p.StartEquipment),
			zap.String("source", p.EndSource),
			zap.Int("segments", len(indexes)),
			zap.Float64("drop_pct", p.VoltageDropPercent))
		topo.Paths = append(topo.Paths, p)
	}
	return topo
}

// checkMarkers warns about structural roots that do not look like a supply
// when at least one other root does.
func (r *Resolver) checkMarkers(roots []string, net *network, warn func(kind, bus, format string, args ...any)) {
	var marked, unmarked []string
	for _, key := range roots {
		if r.isSource(key) {
			marked = append(marked, key)
		} else {
			unmarked = append(unmarked, key)
		}
	}
	if len(marked) == 0 {
		return
	}
	for _, key := range unmarked {
		warn(models.DiagUnmarkedRoot, net.name(key),
			"%s only receives cables but is not named like a source", net.name(key))
	}
}

func (r *Resolver) isSource(key string) bool {
	for _, m := range r.cfg.SourceMarkers {
		if m != "" && strings.Contains(key, strings.ToUpper(m)) {
			return true
		}
	}
	return false
}

// trace walks from leaf towards a root. An empty reason means the walk
// reached the root bus returned; otherwise bus is where it stopped.
// The visited check runs before appending, so a partial chain never repeats a bus.
func (r *Resolver) trace(leaf string, net *network) (indexes []int, reason, bus string) {
	indexes = []int{}
	visited := map[string]bool{leaf: true}
	current := leaf

	for step := 0; step < r.cfg.IterationCap; step++ {
		i, ok := net.parent[current]
		if !ok {
			return indexes, models.DiagDeadEnd, current
		}
		next := models.CanonicalBus(net.segments[i].ToBus)
		if visited[next] {
			return indexes, models.DiagCycle, next
		}
		indexes = append(indexes, i)
		if net.roots[next] {
			return indexes, "", next
		}
		visited[next] = true
		current = next
	}
	return indexes, models.DiagIterationCap, current
}

func aggregate(net *network, leaf, root string, indexes []int, drop DropFunc) models.CablePath {
	leafSeg := net.segments[indexes[0]]
	p := models.CablePath{
		StartEquipment: net.name(leaf),
		EndSource:      net.name(root),
		Cables:         make([]models.CableSegment, 0, len(indexes)),
		SegmentIndexes: indexes,
		TotalVoltage:   leafSeg.Voltage,
		CumulativeLoad: leafSeg.LoadKW,
	}
	for _, i := range indexes {
		seg := net.segments[i]
		p.Cables = append(p.Cables, seg)
		p.TotalDistance += seg.Length
		p.VoltageDrop += drop(i, seg)
	}
	if p.TotalVoltage > 0 {
		p.VoltageDropPercent = p.VoltageDrop / p.TotalVoltage * 100
	}
	p.IsValid = p.TotalVoltage > 0 && p.VoltageDropPercent <= validDropPercent

	switch {
	case !p.IsValid:
		p.DropBand = models.DropExceeded
	case p.VoltageDropPercent > flaggedDropPercent:
		p.DropBand = models.DropFlagged
	default:
		p.DropBand = models.DropNormal
	}
	return p
}
