// Package metrics exposes the daemon's Prometheus collectors and an
// HTTP handler to scrape them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry wraps every Prometheus collector the daemon publishes,
// registered against a private prometheus.Registry rather than the
// global default so that constructing more than one Registry (as
// package tests do) never collides on metric names.
type Registry struct {
	reg *prometheus.Registry

	ConnectionsActive   prometheus.Gauge
	ConnectionsTotal    prometheus.Counter
	ConnectionsRejected prometheus.Counter

	SignalsEmitted prometheus.Counter

	RateLimitRejections prometheus.Counter
	FanoutConsidered    prometheus.Counter

	HistorySize prometheus.Gauge
	TokenCount  prometheus.Gauge

	AuthFailures prometheus.Counter

	CPUPercent    prometheus.Gauge
	MemoryBytes   prometheus.Gauge
	Goroutines    prometheus.Gauge
}

// New creates a private Prometheus registry and registers every
// collector against it.
func New() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Registry{
		reg: reg,

		ConnectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "signalbus_connections_active",
			Help: "Number of currently open client connections.",
		}),
		ConnectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "signalbus_connections_total",
			Help: "Total number of client connections accepted.",
		}),
		ConnectionsRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "signalbus_connections_rejected_total",
			Help: "Total number of connections rejected by the accept-rate guard.",
		}),
		SignalsEmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "signalbus_signals_emitted_total",
			Help: "Total number of signals successfully emitted.",
		}),
		RateLimitRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "signalbus_rate_limit_rejections_total",
			Help: "Total number of emits rejected by the rate limiter.",
		}),
		FanoutConsidered: factory.NewCounter(prometheus.CounterOpts{
			Name: "signalbus_fanout_queues_considered_total",
			Help: "Total number of delivery queues considered during fan-out.",
		}),
		HistorySize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "signalbus_history_size",
			Help: "Current number of retained history entries.",
		}),
		TokenCount: factory.NewGauge(prometheus.GaugeOpts{
			Name: "signalbus_tokens_live",
			Help: "Current number of live auth tokens.",
		}),
		AuthFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "signalbus_auth_failures_total",
			Help: "Total number of failed authentication or permission checks.",
		}),
		CPUPercent: factory.NewGauge(prometheus.GaugeOpts{
			Name: "signalbus_process_cpu_percent",
			Help: "Process CPU usage percentage, sampled periodically.",
		}),
		MemoryBytes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "signalbus_process_memory_bytes",
			Help: "Process resident memory usage in bytes, sampled periodically.",
		}),
		Goroutines: factory.NewGauge(prometheus.GaugeOpts{
			Name: "signalbus_goroutines",
			Help: "Current number of live goroutines.",
		}),
	}
}

// Handler returns the HTTP handler that serves /metrics for this
// registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
