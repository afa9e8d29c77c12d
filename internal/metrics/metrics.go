// Package metrics instruments engine runs and HTTP requests with Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Stoky555/ownership-graph/pkg/engine"
)

const namespace = "ownership"

// Operation labels.
const (
	OpDirect   = "direct"
	OpIndirect = "indirect"
	OpNames    = "names"
	OpLayers   = "layers"
	OpGraph    = "graph"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing,
// so callers that run without a registry need no guards.
type Metrics struct {
	EngineRuns          *prometheus.CounterVec
	EngineDuration      *prometheus.HistogramVec
	EngineContributions *prometheus.HistogramVec
	HTTPRequests        *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests
// to keep them isolated from the default registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EngineRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "runs_total",
				Help:      "Engine operations executed, by operation.",
			},
			[]string{"operation"},
		),
		EngineDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "duration_seconds",
				Help:      "Engine operation latency in seconds, by operation.",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"operation"},
		),
		EngineContributions: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "contributions",
				Help:      "Path contributions recorded per indirect run, by strategy.",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
			},
			[]string{"strategy"},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests served, by route and status code.",
			},
			[]string{"route", "code"},
		),
	}
}

// ObserveRun records one engine operation that started at start.
func (m *Metrics) ObserveRun(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.EngineRuns.WithLabelValues(operation).Inc()
	m.EngineDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObserveStats records the work done by an indirect run.
func (m *Metrics) ObserveStats(stats engine.Stats) {
	if m == nil {
		return
	}
	m.EngineContributions.WithLabelValues(string(stats.Strategy)).Observe(float64(stats.Contributions))
}

// ObserveRequest counts one served HTTP request.
func (m *Metrics) ObserveRequest(route string, code int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
