package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Stoky555/ownership-graph/internal/metrics"
	"github.com/Stoky555/ownership-graph/pkg/engine"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.ObserveRun(metrics.OpIndirect, time.Now())
	m.ObserveRun(metrics.OpIndirect, time.Now())
	m.ObserveRun(metrics.OpDirect, time.Now())
	m.ObserveStats(engine.Stats{Strategy: engine.StrategyPaths, Contributions: 42})
	m.ObserveRequest("/v1/indirect", 200)
	m.ObserveRequest("/v1/indirect", 400)

	assert.InDelta(t, 2, testutil.ToFloat64(m.EngineRuns.WithLabelValues(metrics.OpIndirect)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.EngineRuns.WithLabelValues(metrics.OpDirect)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/v1/indirect", "400")), 0)

	count, err := testutil.GatherAndCount(reg, "ownership_engine_duration_seconds", "ownership_engine_contributions")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.New(reg)
	assert.Panics(t, func() { metrics.New(reg) })
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.ObserveRun(metrics.OpGraph, time.Now())
		m.ObserveStats(engine.Stats{})
		m.ObserveRequest("/", 200)
	})
}
