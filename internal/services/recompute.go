package services

import (
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cablesizer/internal/catalogue"
	"cablesizer/internal/metrics"
	"cablesizer/internal/models"
	"cablesizer/internal/sizing"
	"cablesizer/internal/topology"
)

const anomalyZeroLoadLeaf = "zero load on equipment branch"

// Recomputer derives the full report for one snapshot of segments.
type Recomputer struct {
	engine   *sizing.Engine
	resolver *topology.Resolver
	workers  int
	metrics  *metrics.SizingMetrics
	logr     *zap.Logger
}

// NewRecomputer builds a recomputer. m may be nil.
func NewRecomputer(engine *sizing.Engine, resolver *topology.Resolver, workers int, m *metrics.SizingMetrics, logr *zap.Logger) *Recomputer {
	if workers <= 0 {
		workers = 1
	}
	if logr == nil {
		logr = zap.NewNop()
	}
	return &Recomputer{engine: engine, resolver: resolver, workers: workers, metrics: m, logr: logr}
}

// WithOptions returns a copy sizing with different engine options.
func (rc *Recomputer) WithOptions(opts sizing.Options) *Recomputer {
	cp := *rc
	cp.engine = sizing.New(opts, rc.logr.Named("sizing"))
	return &cp
}

// Engine exposes the sizing engine for single-segment requests.
func (rc *Recomputer) Engine() *sizing.Engine {
	return rc.engine
}

// Recompute sizes every segment and resolves topology against the sized
// drops. The input slice is not modified. Results are stored by index, so
// the output does not depend on the worker count.
func (rc *Recomputer) Recompute(segments []models.CableSegment, cat *catalogue.Catalogue) models.Report {
	start := time.Now()
	if cat == nil {
		cat = catalogue.Default()
	}

	segs := make([]models.CableSegment, len(segments))
	copy(segs, segments)
	for i := range segs {
		segs[i].Normalize()
	}

	results := make([]models.SizingResult, len(segs))
	var g errgroup.Group
	g.SetLimit(rc.workers)
	for i := range segs {
		i := i
		g.Go(func() error {
			res := rc.engine.Size(segs[i], cat)
			res.Index = i
			results[i] = res
			return nil
		})
	}
	_ = g.Wait() // sizing reports problems in its results, never as errors

	topo := rc.resolver.Resolve(segs, func(i int, seg models.CableSegment) float64 {
		return sizing.DropVolts(seg, results[i])
	})

	flagZeroLoadLeaves(segs, results, topo)

	report := models.Report{
		Catalogue: cat.Name(),
		Results:   results,
		Topology:  topo,
		Summary:   summarize(results, topo),
	}

	rc.observe(report, time.Since(start))
	return report
}

// flagZeroLoadLeaves marks equipment branches that carry no load. A zero
// load on a pass-through feeder is normal and left alone.
func flagZeroLoadLeaves(segs []models.CableSegment, results []models.SizingResult, topo models.Topology) {
	leaves := make(map[string]bool, len(topo.Leaves))
	for _, l := range topo.Leaves {
		leaves[models.CanonicalBus(l)] = true
	}
	for i, seg := range segs {
		if seg.LoadKW != 0 || !leaves[models.CanonicalBus(seg.FromBus)] {
			continue
		}
		results[i].Anomalies = append(results[i].Anomalies, anomalyZeroLoadLeaf)
		if results[i].Status == models.StatusApproved {
			results[i].Status = models.StatusWarning
		}
	}
}

func summarize(results []models.SizingResult, topo models.Topology) models.Summary {
	s := models.Summary{
		Segments:   len(results),
		Paths:      len(topo.Paths),
		Unresolved: len(topo.Unresolved),
	}
	for _, r := range results {
		switch r.Status {
		case models.StatusApproved:
			s.Approved++
		case models.StatusWarning:
			s.Warning++
		case models.StatusFailed:
			s.Failed++
		}
	}
	for _, p := range topo.Paths {
		if p.IsValid {
			s.ValidPaths++
		}
		if p.DropBand == models.DropFlagged {
			s.FlaggedPaths++
		}
	}
	return s
}

func (rc *Recomputer) observe(report models.Report, elapsed time.Duration) {
	rc.logr.Debug("recompute finished",
		zap.Int("segments", report.Summary.Segments),
		zap.Int("failed", report.Summary.Failed),
		zap.Int("paths", report.Summary.Paths),
		zap.Int("unresolved", report.Summary.Unresolved),
		zap.Duration("elapsed", elapsed))

	if rc.metrics == nil {
		return
	}
	rc.metrics.RecordRecompute(report.Catalogue, elapsed.Seconds())
	for _, r := range report.Results {
		rc.metrics.RecordSegment(r.Status)
	}
	for _, p := range report.Paths {
		rc.metrics.RecordPath(p.DropBand)
	}
	for _, u := range report.Unresolved {
		rc.metrics.RecordUnresolved(u.Reason)
	}
}

// Recompute runs a default recomputer: default options, sequential sizing,
// no metrics or logging.
func Recompute(segments []models.CableSegment, cat *catalogue.Catalogue) models.Report {
	rc := NewRecomputer(sizing.New(sizing.DefaultOptions(), nil), topology.New(topology.Config{}, nil), 1, nil, nil)
	return rc.Recompute(segments, cat)
}
