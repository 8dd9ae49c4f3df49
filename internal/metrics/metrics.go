// Package metrics exposes Prometheus metrics for the payment gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the gateway's Prometheus collectors
type Metrics struct {
	// Initiation outcomes: instant, pending, rejected
	PaymentsInitiatedTotal *prometheus.CounterVec

	// Terminal decisions by status and kind
	PaymentsDecidedTotal *prometheus.CounterVec

	// Status queries served to polling clients
	StatusQueriesTotal prometheus.Counter

	// Time from initiation to terminal decision
	DecisionDuration prometheus.Histogram
}

// New registers and returns the gateway metrics
func New() *Metrics {
	return &Metrics{
		PaymentsInitiatedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "momoflow_payments_initiated_total",
				Help: "Payment initiations by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		PaymentsDecidedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "momoflow_payments_decided_total",
				Help: "Terminal payment decisions by kind and status",
			},
			[]string{"kind", "status"},
		),
		StatusQueriesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "momoflow_status_queries_total",
				Help: "Status queries served to polling clients",
			},
		),
		DecisionDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "momoflow_decision_duration_seconds",
				Help:    "Time from payment initiation to terminal decision",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			},
		),
	}
}
