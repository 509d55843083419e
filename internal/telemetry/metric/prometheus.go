package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "regdesk"

// Registry holds all client metrics on a private prometheus registry.
//
// All Record methods are safe to call on a nil *Registry, so components
// can be built without metrics in tests.
type Registry struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	SessionChecks *prometheus.CounterVec

	UniquenessQueries *prometheus.CounterVec
	StaleResults      *prometheus.CounterVec
}

// NewRegistry creates a registry with all client collectors registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Backend calls by method and outcome (success, http_error, network_error).",
		}, []string{"method", "outcome"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Backend call latency.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"method"}),
		SessionChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_checks_total",
			Help:      "Session guard verdicts (valid, refreshed, absent, invalid, unverified).",
		}, []string{"outcome"}),
		UniquenessQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uniqueness_queries_total",
			Help:      "Duplicate-check queries by field and outcome (exists, unique, failed).",
		}, []string{"field", "outcome"}),
		StaleResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uniqueness_stale_results_total",
			Help:      "Duplicate-check results discarded because the input changed.",
		}, []string{"field"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		r.RequestsTotal,
		r.RequestDuration,
		r.SessionChecks,
		r.UniquenessQueries,
		r.StaleResults,
	)

	return r
}

// RecordRequest counts one backend call and observes its latency.
func (r *Registry) RecordRequest(method, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.RequestsTotal.WithLabelValues(method, outcome).Inc()
	r.RequestDuration.WithLabelValues(method).Observe(d.Seconds())
}

// RecordSessionCheck counts one guard verdict.
func (r *Registry) RecordSessionCheck(outcome string) {
	if r == nil {
		return
	}
	r.SessionChecks.WithLabelValues(outcome).Inc()
}

// RecordUniquenessQuery counts one duplicate-check query.
func (r *Registry) RecordUniquenessQuery(field, outcome string) {
	if r == nil {
		return
	}
	r.UniquenessQueries.WithLabelValues(field, outcome).Inc()
}

// RecordStaleResult counts one discarded duplicate-check result.
func (r *Registry) RecordStaleResult(field string) {
	if r == nil {
		return
	}
	r.StaleResults.WithLabelValues(field).Inc()
}

// WriteToTextfile writes all metrics to path in the text exposition format.
func (r *Registry) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
