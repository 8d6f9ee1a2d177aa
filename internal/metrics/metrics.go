// Package metrics exposes Prometheus instrumentation for the web UI and
// its backend client.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for Templar.
type Metrics struct {
	// HTTP serving
	HTTPRequestsTotal          *prometheus.CounterVec
	HTTPRequestDurationSeconds *prometheus.HistogramVec
	HTTPErrorsTotal            *prometheus.CounterVec

	// Backend client
	BackendRequestsTotal          *prometheus.CounterVec
	BackendRequestDurationSeconds *prometheus.HistogramVec

	// Template collection
	TemplatesCount    prometheus.Gauge
	StoreFetchesTotal *prometheus.CounterVec

	// Form activity
	UploadsTotal *prometheus.CounterVec
	DeletesTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates a Metrics instance with all metrics registered on a private
// registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "templar_http_requests_total",
				Help: "Total number of HTTP requests served",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "templar_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "templar_http_errors_total",
				Help: "Total number of HTTP error responses",
			},
			[]string{"error_type"},
		),

		BackendRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "templar_backend_requests_total",
				Help: "Total number of requests sent to the template backend",
			},
			[]string{"operation", "outcome"},
		),
		BackendRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "templar_backend_request_duration_seconds",
				Help:    "Backend request duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"operation"},
		),

		TemplatesCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "templar_templates_count",
				Help: "Number of templates in the last successfully fetched collection",
			},
		),
		StoreFetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "templar_store_fetches_total",
				Help: "Total number of collection fetches by outcome",
			},
			[]string{"outcome"},
		),

		UploadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "templar_uploads_total",
				Help: "Total number of template uploads by outcome",
			},
			[]string{"outcome"},
		),
		DeletesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "templar_deletes_total",
				Help: "Total number of template deletions by outcome",
			},
			[]string{"outcome"},
		),

		registry: reg,
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDurationSeconds,
		m.HTTPErrorsTotal,
		m.BackendRequestsTotal,
		m.BackendRequestDurationSeconds,
		m.TemplatesCount,
		m.StoreFetchesTotal,
		m.UploadsTotal,
		m.DeletesTotal,
	)

	return m
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the scrape endpoint handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeStale   = "stale"
)

func outcomeOf(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}

// RecordBackendRequest tracks one backend client call. It matches the
// backend client's request recorder hook signature.
func (m *Metrics) RecordBackendRequest(operation string, err error, elapsed time.Duration) {
	m.BackendRequestsTotal.WithLabelValues(operation, outcomeOf(err)).Inc()
	m.BackendRequestDurationSeconds.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// RecordStoreFetch tracks one collection fetch and, on success, the
// collection size.
func (m *Metrics) RecordStoreFetch(count int, err error) {
	m.StoreFetchesTotal.WithLabelValues(outcomeOf(err)).Inc()
	if err == nil {
		m.TemplatesCount.Set(float64(count))
	}
}

// RecordUpload tracks one upload attempt.
func (m *Metrics) RecordUpload(err error) {
	m.UploadsTotal.WithLabelValues(outcomeOf(err)).Inc()
}

// RecordDelete tracks one delete attempt.
func (m *Metrics) RecordDelete(err error) {
	m.DeletesTotal.WithLabelValues(outcomeOf(err)).Inc()
}
