package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups all Prometheus instruments exposed by the Core
// service. Registered once at startup via New(); passed by pointer
// wherever needed.
type Metrics struct {
	NotificationsCreated   prometheus.Counter
	NotificationsDelivered *prometheus.CounterVec
	ConfirmationsIngested  prometheus.Counter
	BusPublishFailures     prometheus.Counter
	HTTPRequestDuration    *prometheus.HistogramVec
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct. Using a custom registry (instead
// of prometheus.DefaultRegisterer) keeps tests isolated and avoids
// global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		NotificationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Total number of notifications accepted by the Create endpoint.",
		}),
		NotificationsDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_delivered_total",
			Help: "Total number of notifications marked delivered, split by delivery path.",
		}, []string{"via"}),
		ConfirmationsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "confirmations_ingested_total",
			Help: "Total number of delivery confirmations consumed from the bus.",
		}),
		BusPublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bus_publish_failures_total",
			Help: "Total number of failed attempts to publish a notification event to the bus.",
		}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route and status class.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}

	reg.MustRegister(
		m.NotificationsCreated,
		m.NotificationsDelivered,
		m.ConfirmationsIngested,
		m.BusPublishFailures,
		m.HTTPRequestDuration,
	)

	return m
}
