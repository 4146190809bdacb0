// Package telemetry wires up structured logging and Prometheus counters for
// a solve/repair run. Kept separate from internal/search so the search loop
// itself stays free of a direct prometheus dependency (spec §4.7's "search
// must not depend on wall-clock fields" extends naturally to "must not
// depend on a metrics backend either" — both are reported after the fact).
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/elektrokombinacija/stas/internal/scheduler"
	"github.com/elektrokombinacija/stas/internal/search"
)

// NewLogger builds a production zap logger at the given level ("debug",
// "info", "warn", "error"; anything else falls back to "info").
func NewLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		cfg.Level = lvl
	}
	return cfg.Build()
}

// Metrics holds the Prometheus collectors a solve/repair run publishes to.
// A nil *Metrics is safe to call every method on (no-op), matching the
// scheduler's nil-logger convention.
type Metrics struct {
	nodesGenerated   prometheus.Counter
	nodesExpanded    prometheus.Counter
	nodesEvaluated   prometheus.Counter
	nodesPruned      prometheus.Counter
	nodesDeadEnd     prometheus.Counter
	schedulingFails  prometheus.Gauge
	solveDuration    prometheus.Histogram
}

// NewMetrics registers one run's collectors against reg. Pass
// prometheus.NewRegistry() for an isolated registry in tests, or
// prometheus.DefaultRegisterer for a long-running process.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		nodesGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "stas_search_nodes_generated_total",
			Help: "Allocation nodes generated by the search loop.",
		}),
		nodesExpanded: factory.NewCounter(prometheus.CounterOpts{
			Name: "stas_search_nodes_expanded_total",
			Help: "Allocation nodes popped from open and expanded.",
		}),
		nodesEvaluated: factory.NewCounter(prometheus.CounterOpts{
			Name: "stas_search_nodes_evaluated_total",
			Help: "Allocation nodes that had APR/NSQ/TETAQ computed.",
		}),
		nodesPruned: factory.NewCounter(prometheus.CounterOpts{
			Name: "stas_search_nodes_pruned_total",
			Help: "Allocation nodes rejected by a pruner.",
		}),
		nodesDeadEnd: factory.NewCounter(prometheus.CounterOpts{
			Name: "stas_search_nodes_dead_end_total",
			Help: "Allocation nodes with an infinite TETAQ (unschedulable).",
		}),
		schedulingFails: factory.NewGauge(prometheus.GaugeOpts{
			Name: "stas_scheduling_failures_cumulative",
			Help: "Mirrors scheduler.GlobalFailureCount, a process-wide monotonic counter, at publish time.",
		}),
		solveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "stas_solve_duration_seconds",
			Help:    "Wall-clock duration of one solve/repair call.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// PublishSearchStats records one search run's final counters. Call once
// after ItagsSearch.Run returns.
func (m *Metrics) PublishSearchStats(stats search.Stats) {
	if m == nil {
		return
	}
	m.nodesGenerated.Add(float64(stats.Generated))
	m.nodesExpanded.Add(float64(stats.Expanded))
	m.nodesEvaluated.Add(float64(stats.Evaluated))
	m.nodesPruned.Add(float64(stats.Pruned))
	m.nodesDeadEnd.Add(float64(stats.DeadEnd))
}

// PublishSchedulingFailures samples the scheduler's process-wide monotonic
// counter and sets the gauge to its current value (safe to call repeatedly;
// unlike a Counter this does not double-count across calls).
func (m *Metrics) PublishSchedulingFailures() {
	if m == nil {
		return
	}
	m.schedulingFails.Set(float64(scheduler.GlobalFailureCount()))
}

// ObserveSolveDuration records one solve call's wall-clock duration in
// seconds, measured by the caller, not by internal/search.
func (m *Metrics) ObserveSolveDuration(seconds float64) {
	if m == nil {
		return
	}
	m.solveDuration.Observe(seconds)
}
