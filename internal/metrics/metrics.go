// Package metrics holds the runtime's Prometheus instruments. Grounded on
// the teacher's internal/escrow/metrics.go NewMetrics() constructor pattern:
// a plain struct of *prometheus.CounterVec/*GaugeVec/*HistogramVec fields,
// built with promauto so registration happens at construction.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every counter/gauge/histogram the runtime emits.
type Metrics struct {
	QueueDepth   *prometheus.GaugeVec
	QueueLatency *prometheus.HistogramVec

	MessagesProcessed *prometheus.CounterVec
	MessagesDropped   *prometheus.CounterVec
	ErrorsTotal       *prometheus.CounterVec

	CircuitBreakerState *prometheus.GaugeVec

	HTTPCallDuration *prometheus.HistogramVec
	HTTPRetries      *prometheus.CounterVec
}

// New constructs and registers the runtime's metrics.
func New() *Metrics {
	return &Metrics{
		QueueDepth: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "signalbot_queue_depth",
				Help: "Current depth of the ingress or a shard queue.",
			},
			[]string{"queue"},
		),
		QueueLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signalbot_queue_latency_seconds",
				Help:    "Time a message spent queued before a worker picked it up.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"shard"},
		),
		MessagesProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalbot_messages_processed_total",
				Help: "Total messages dispatched, by outcome.",
			},
			[]string{"outcome"}, // dispatched, duplicate, no_text, no_match, sync_skipped, command_failed
		),
		MessagesDropped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalbot_messages_dropped_total",
				Help: "Total frames dropped at ingress due to backpressure.",
			},
			[]string{"policy"},
		),
		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalbot_errors_total",
				Help: "Total errors by component and kind.",
			},
			[]string{"component", "kind"},
		),
		CircuitBreakerState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "signalbot_circuit_breaker_state",
				Help: "Circuit breaker state: 0=CLOSED 1=OPEN 2=HALF_OPEN.",
			},
			[]string{"name"},
		),
		HTTPCallDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signalbot_http_call_duration_seconds",
				Help:    "Outbound HTTP call duration.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint", "status"},
		),
		HTTPRetries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalbot_http_retries_total",
				Help: "Total retry attempts by endpoint.",
			},
			[]string{"endpoint"},
		),
	}
}
