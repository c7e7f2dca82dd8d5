package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "mcp_server"

// Metrics holds the server's collectors on a private registry so tests and
// embedders never fight over the global one.
type Metrics struct {
	registry *prometheus.Registry
	handler  http.Handler

	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	engineRuns *prometheus.CounterVec
	failures   prometheus.Counter
}

// NewMetrics registers the request and engine collectors plus the Go
// runtime collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "HTTP requests handled, by route, method and status.",
		}, []string{"route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "request_duration_seconds",
			Help:      "Time spent in one request cycle.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		engineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "engine_runs_total",
			Help:      "Protocol engine runs, by resulting status.",
		}, []string{"status"}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "handler_errors_total",
			Help:      "Request cycles that ended in a handler error or panic.",
		}),
	}
	registry.MustRegister(m.requests, m.duration, m.engineRuns, m.failures)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	return m
}

func (m *Metrics) observeRequest(route, method string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *Metrics) observeEngine(status int) {
	m.engineRuns.WithLabelValues(strconv.Itoa(status)).Inc()
}

func (m *Metrics) observeFailure() {
	m.failures.Inc()
}

// Registry exposes the registry for embedders that serve it elsewhere.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
