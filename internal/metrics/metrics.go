// Package metrics exposes Prometheus instrumentation for the tournament
// services on a private registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "americano"

// Metrics holds the collectors used by the service layer. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	operations       *prometheus.CounterVec
	operationSeconds *prometheus.HistogramVec
	matchesGenerated prometheus.Counter
	scoresSubmitted  *prometheus.CounterVec
	cacheFailures    prometheus.Counter
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Tournament operations by name and outcome.",
		}, []string{"operation", "outcome"}),
		operationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of tournament operations including the transaction.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		matchesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_generated_total",
			Help:      "Matches created by round, plan and next-match generation.",
		}),
		scoresSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scores_submitted_total",
			Help:      "Match results recorded, by source.",
		}, []string{"source"}),
		cacheFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "standings_cache_failures_total",
			Help:      "Failed best-effort writes to the standings cache.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.operations,
		m.operationSeconds,
		m.matchesGenerated,
		m.scoresSubmitted,
		m.cacheFailures,
	)
	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveOperation records the outcome and duration of one operation
func (m *Metrics) ObserveOperation(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.operationSeconds.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// MatchesGenerated adds n freshly created matches
func (m *Metrics) MatchesGenerated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.matchesGenerated.Add(float64(n))
}

// ScoreSubmitted counts a recorded result from source (http, kafka, simulate)
func (m *Metrics) ScoreSubmitted(source string) {
	if m == nil {
		return
	}
	m.scoresSubmitted.WithLabelValues(source).Inc()
}

// CacheFailure counts a failed cache write
func (m *Metrics) CacheFailure() {
	if m == nil {
		return
	}
	m.cacheFailures.Inc()
}
