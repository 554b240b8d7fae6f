// Package metrics holds the Prometheus collectors for the service.
//
// Collectors live on a private registry (not the global default) so tests
// can build as many servers as they like. Every method is safe on a nil
// *Metrics, which lets packages take metrics as an optional dependency.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "devtrack"

type Metrics struct {
	registry *prometheus.Registry

	// httpRequests counts finished requests.
	// Labels: method, route (chi route pattern), status
	httpRequests *prometheus.CounterVec

	// httpDuration measures request latency.
	// Labels: method, route
	httpDuration *prometheus.HistogramVec

	// upstreamFailures counts degraded upstream calls.
	// Labels: source (github, llm), part (repositories, events, ...)
	upstreamFailures *prometheus.CounterVec

	// providerRequests counts data-provider operations by provider kind.
	// Labels: provider (github, mock), operation
	providerRequests *prometheus.CounterVec

	// insightOutcomes counts synthesizer results.
	// Labels: operation (insights, chat), kind (ok, fallback), reason
	insightOutcomes *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
		upstreamFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "failures_total",
			Help:      "Upstream calls that failed and were degraded",
		}, []string{"source", "part"}),
		providerRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "requests_total",
			Help:      "Data provider operations by provider kind",
		}, []string{"provider", "operation"}),
		insightOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "insight",
			Name:      "outcomes_total",
			Help:      "Insight and chat results by kind and fallback reason",
		}, []string{"operation", "kind", "reason"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) UpstreamFailure(source, part string) {
	if m == nil {
		return
	}
	m.upstreamFailures.WithLabelValues(source, part).Inc()
}

func (m *Metrics) ProviderRequest(provider, operation string) {
	if m == nil {
		return
	}
	m.providerRequests.WithLabelValues(provider, operation).Inc()
}

func (m *Metrics) InsightOutcome(operation, kind, reason string) {
	if m == nil {
		return
	}
	m.insightOutcomes.WithLabelValues(operation, kind, reason).Inc()
}
