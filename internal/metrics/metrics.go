// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name
const Namespace = "dario"

// Metrics holds all Prometheus metrics.
type Metrics struct {
	RatingWritesTotal *prometheus.CounterVec

	IntentsTotal          *prometheus.CounterVec
	ChatbotFailuresTotal  *prometheus.CounterVec
	NLUDurationSeconds    prometheus.Histogram
	RealtimeConnections   prometheus.Gauge
	RealtimeDroppedEvents prometheus.Counter
}

// NewMetrics creates and registers all metrics. A nil registerer uses the
// default one.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RatingWritesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "ratings",
				Name:      "writes_total",
				Help:      "Rating writes by operation and outcome",
			},
			[]string{"op", "status"},
		),
		IntentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "chatbot",
				Name:      "intents_total",
				Help:      "Chatbot messages by dispatched intent",
			},
			[]string{"intent"},
		),
		ChatbotFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "chatbot",
				Name:      "failures_total",
				Help:      "Chatbot messages answered with the apology, by failing stage",
			},
			[]string{"stage"},
		),
		NLUDurationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: "chatbot",
				Name:      "nlu_duration_seconds",
				Help:      "Latency of intent detection",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
			},
		),
		RealtimeConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "realtime",
				Name:      "connections",
				Help:      "Open realtime connections on this instance",
			},
		),
		RealtimeDroppedEvents: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "realtime",
				Name:      "dropped_events_total",
				Help:      "Events dropped because a subscriber was too slow",
			},
		),
	}
}
