// Package metrics provides Prometheus metrics for the notification engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks counters for the generate/dispatch/retry pipeline
type Metrics struct {
	GeneratedTotal prometheus.Counter
	SentTotal      prometheus.Counter
	FailedTotal    *prometheus.CounterVec
	RetriedTotal   prometheus.Counter
	SendDuration   prometheus.Histogram
}

// NewMetrics registers the engine metrics on the given registerer
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		GeneratedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "leasenotify_notifications_generated_total",
			Help: "Notifications created by the candidate generator",
		}),
		SentTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "leasenotify_notifications_sent_total",
			Help: "Notifications successfully dispatched",
		}),
		FailedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leasenotify_notifications_failed_total",
			Help: "Dispatch failures by error category",
		}, []string{"category"}),
		RetriedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "leasenotify_notifications_retried_total",
			Help: "Failed notifications re-queued for retry",
		}),
		SendDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "leasenotify_send_duration_seconds",
			Help:    "Duration of individual sender calls",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
