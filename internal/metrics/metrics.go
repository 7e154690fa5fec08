// Package metrics keeps prometheus collectors of one application instance.
// Collectors are registered on the instance registry, never on the global one,
// so several applications may live in one process.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "projpool"

// Cleanup run results
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

type Metrics struct {
	registry *prometheus.Registry

	inFlight        prometheus.Gauge
	requestsCount   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	authRejections *prometheus.CounterVec
	tokensCleaned  prometheus.Counter
	cleanupRuns    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "in_flight_requests",
			Help:      "A gauge of requests currently being served.",
		}),
		requestsCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "A counter for requests to the wrapped handler.",
		}, []string{"handler", "code", "method"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "A histogram of latencies for requests.",
			Buckets:   []float64{.005, .01, .05, 0.1, .25, .5, 1, 2, 5},
		}, []string{"handler", "code", "method"}),
		authRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "rejections_total",
			Help:      "Rejected authentication attempts by error code.",
		}, []string{"error"}),
		tokensCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "revoked_tokens_cleaned_total",
			Help:      "Blocklist records removed by the cleanup job.",
		}),
		cleanupRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_runs_total",
			Help:      "Cleanup job runs by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.inFlight,
		m.requestsCount,
		m.requestDuration,
		m.authRejections,
		m.tokensCleaned,
		m.cleanupRuns,
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler exposes the instance registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Instrument observes requests to handler.
// name has to be a route template, not the request path, to keep label cardinality bounded.
func (m *Metrics) Instrument(name string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}

	labels := prometheus.Labels{"handler": name}
	return promhttp.InstrumentHandlerInFlight(m.inFlight,
		promhttp.InstrumentHandlerDuration(m.requestDuration.MustCurryWith(labels),
			promhttp.InstrumentHandlerCounter(m.requestsCount.MustCurryWith(labels), next),
		),
	)
}

func (m *Metrics) AuthRejected(code string) {
	if m == nil {
		return
	}
	m.authRejections.WithLabelValues(code).Inc()
}

func (m *Metrics) TokensCleaned(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.tokensCleaned.Add(float64(n))
}

func (m *Metrics) CleanupRun(result string) {
	if m == nil {
		return
	}
	m.cleanupRuns.WithLabelValues(result).Inc()
}
