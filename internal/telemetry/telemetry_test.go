package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/elektrokombinacija/stas/internal/search"
)

func gaugeValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	m := <-ch
	var pb dto.Metric
	require.NoError(t, m.Write(&pb))
	if pb.Counter != nil {
		return pb.Counter.GetValue()
	}
	return pb.Gauge.GetValue()
}

func TestNewLoggerFallsBackToInfoOnBadLevel(t *testing.T) {
	log, err := NewLogger("not-a-level")
	require.NoError(t, err)
	require.NotNil(t, log)
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.PublishSearchStats(search.Stats{Generated: 3})
		m.PublishSchedulingFailures()
		m.ObserveSolveDuration(1.5)
	})
}

func TestPublishSearchStatsIncrementsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.PublishSearchStats(search.Stats{Generated: 4, Expanded: 2, Evaluated: 3, Pruned: 1, DeadEnd: 1})

	require.Equal(t, 4.0, gaugeValue(t, m.nodesGenerated))
	require.Equal(t, 2.0, gaugeValue(t, m.nodesExpanded))
	require.Equal(t, 1.0, gaugeValue(t, m.nodesPruned))
}
