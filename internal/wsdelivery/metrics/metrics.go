package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups all Prometheus instruments exposed by the WS-Delivery
// service.
type Metrics struct {
	ConnectionsOpen     prometheus.Gauge
	FramesSent          *prometheus.CounterVec
	FramesAcked         prometheus.Counter
	FramesRetried       prometheus.Counter
	ConnectionsTornDown *prometheus.CounterVec
	DedupHits           prometheus.Counter
	HTTPRequestDuration *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConnectionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ws_connections_open",
			Help: "Number of currently open WebSocket connections.",
		}),
		FramesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ws_frames_sent_total",
			Help: "Total number of frames written to clients, split by frame kind.",
		}, []string{"kind"}),
		FramesAcked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ws_frames_acked_total",
			Help: "Total number of acknowledged frames that carried a NEW notification.",
		}),
		FramesRetried: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ws_frames_retried_total",
			Help: "Total number of frame retransmissions due to a missing ack.",
		}),
		ConnectionsTornDown: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ws_connections_torn_down_total",
			Help: "Total number of connections torn down, split by reason.",
		}, []string{"reason"}),
		DedupHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ws_dedup_hits_total",
			Help: "Total number of bus events discarded as already-seen redeliveries.",
		}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route and status class.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}

	reg.MustRegister(
		m.ConnectionsOpen,
		m.FramesSent,
		m.FramesAcked,
		m.FramesRetried,
		m.ConnectionsTornDown,
		m.DedupHits,
		m.HTTPRequestDuration,
	)

	return m
}
