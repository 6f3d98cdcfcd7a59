// Package metrics provides Prometheus collectors for sizing and the HTTP API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SizingMetrics contains Prometheus metrics for recompute runs
type SizingMetrics struct {
	registry *prometheus.Registry

	recomputeDuration *prometheus.HistogramVec
	segmentsTotal     *prometheus.CounterVec
	pathsTotal        *prometheus.CounterVec
	unresolvedTotal   *prometheus.CounterVec

	catalogueCacheHits   prometheus.Counter
	catalogueCacheMisses prometheus.Counter
}

// NewSizingMetrics creates and registers new sizing metrics
func NewSizingMetrics(registry *prometheus.Registry) (*SizingMetrics, error) {
	m := &SizingMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *SizingMetrics) initMetrics() {
	m.recomputeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cablesizer_recompute_duration_seconds",
			Help:    "Time taken to size all segments and resolve topology",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
		},
		[]string{"catalogue"},
	)

	m.segmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cablesizer_segments_sized_total",
			Help: "Total number of segments sized",
		},
		[]string{"status"}, // status: APPROVED, WARNING, FAILED
	)

	m.pathsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cablesizer_paths_resolved_total",
			Help: "Total number of leaf-to-source paths resolved",
		},
		[]string{"band"}, // band: normal, flagged, exceeded
	)

	m.unresolvedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cablesizer_traces_unresolved_total",
			Help: "Total number of leaf traces that did not reach a source",
		},
		[]string{"reason"}, // reason: dead_end, cycle, iteration_cap
	)

	m.catalogueCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cablesizer_catalogue_cache_hits_total",
		Help: "Total number of catalogue lookups served from cache",
	})

	m.catalogueCacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cablesizer_catalogue_cache_misses_total",
		Help: "Total number of catalogue lookups that went to the store",
	})
}

func (m *SizingMetrics) getCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.recomputeDuration,
		m.segmentsTotal,
		m.pathsTotal,
		m.unresolvedTotal,
		m.catalogueCacheHits,
		m.catalogueCacheMisses,
	}
}

// Describe implements the Collector interface
func (m *SizingMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.getCollectors() {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *SizingMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.getCollectors() {
		collector.Collect(ch)
	}
}

// RecordRecompute records the duration of one recompute
func (m *SizingMetrics) RecordRecompute(catalogue string, duration float64) {
	m.recomputeDuration.WithLabelValues(catalogue).Observe(duration)
}

// RecordSegment records one sized segment by status
func (m *SizingMetrics) RecordSegment(status string) {
	m.segmentsTotal.WithLabelValues(status).Inc()
}

// RecordPath records one resolved path by drop band
func (m *SizingMetrics) RecordPath(band string) {
	m.pathsTotal.WithLabelValues(band).Inc()
}

// RecordUnresolved records one trace that ended without a source
func (m *SizingMetrics) RecordUnresolved(reason string) {
	m.unresolvedTotal.WithLabelValues(reason).Inc()
}

// RecordCatalogueLookup records a catalogue cache hit or miss
func (m *SizingMetrics) RecordCatalogueLookup(hit bool) {
	if hit {
		m.catalogueCacheHits.Inc()
		return
	}
	m.catalogueCacheMisses.Inc()
}
