// Package observability provides Prometheus metrics and OpenTelemetry
// tracing for the notify pipeline. Both are optional: the queue and root
// service treat nil instances as disabled.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the metric instruments for the notify pipeline.
type Metrics struct {
	// EventsEmittedTotal counts envelopes built by Emit.
	EventsEmittedTotal prometheus.Counter

	// DeliveriesTotal counts delivery attempts by channel and outcome
	// (delivered, retried, failed, skipped).
	DeliveriesTotal *prometheus.CounterVec

	// QueueDepth tracks the number of jobs waiting in the delivery queue.
	QueueDepth prometheus.Gauge

	// DeliveryLatency observes per-attempt dispatch latency in seconds.
	DeliveryLatency prometheus.Histogram
}

// NewMetrics creates and registers the notify metric instruments.
// Pass prometheus.DefaultRegisterer for standalone usage.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsEmittedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "notify_events_emitted_total",
			Help: "Total number of emitted event envelopes.",
		}),
		DeliveriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "notify_deliveries_total",
			Help: "Delivery attempts by channel and outcome.",
		}, []string{"channel", "status"}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "notify_queue_depth",
			Help: "Jobs currently waiting in the delivery queue.",
		}),
		DeliveryLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "notify_delivery_latency_seconds",
			Help:    "Per-attempt dispatch latency.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// RecordDelivery records one delivery attempt outcome.
func (m *Metrics) RecordDelivery(channel, status string, latencySeconds float64) {
	m.DeliveriesTotal.WithLabelValues(channel, status).Inc()
	m.DeliveryLatency.Observe(latencySeconds)
}
