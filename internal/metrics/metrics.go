// Package metrics exposes Prometheus collectors on a dedicated registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shopadmin"

// ServerMetrics tracks HTTP traffic
type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

// OrderMetrics tracks core order operations by outcome
type OrderMetrics struct {
	Operations *prometheus.CounterVec
}

// OutboxMetrics tracks event publication
type OutboxMetrics struct {
	Published *prometheus.CounterVec
	Failed    *prometheus.CounterVec
}

// Registry bundles every collector the service exports
type Registry struct {
	reg    *prometheus.Registry
	Server *ServerMetrics
	Orders *OrderMetrics
	Outbox *OutboxMetrics
}

// New registers all collectors on a fresh registry
func New() *Registry {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "orders",
		Name:      "operations_total",
		Help:      "Order operations by result.",
	}, []string{"op", "result"})
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "published_total",
		Help:      "Outbox events published.",
	}, []string{"event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "failed_total",
		Help:      "Outbox publish attempts that failed after retries.",
	}, []string{"event_type"})

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		requests, latency, operations, published, failed,
	)

	return &Registry{
		reg:    reg,
		Server: &ServerMetrics{Requests: requests, LatencyMS: latency},
		Orders: &OrderMetrics{Operations: operations},
		Outbox: &OutboxMetrics{Published: published, Failed: failed},
	}
}

// Handler serves the registry in the Prometheus text format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer exposes the underlying registry for tests and custom exporters
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Observe records one order operation. A nil receiver is a no-op.
func (m *OrderMetrics) Observe(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Operations.WithLabelValues(op, result).Inc()
}
