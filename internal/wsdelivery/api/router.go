package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/notifyhub/realtime/internal/bus"
	"github.com/notifyhub/realtime/internal/httpmw"
	"github.com/notifyhub/realtime/internal/ticketgate"
	"github.com/notifyhub/realtime/internal/wsdelivery/api/handler"
	wsmw "github.com/notifyhub/realtime/internal/wsdelivery/api/middleware"
	"github.com/notifyhub/realtime/internal/wsdelivery/metrics"
	"github.com/notifyhub/realtime/internal/wsdelivery/registry"
)

// Config bundles everything NewRouter needs to wire WS-Delivery's
// single upgrade endpoint plus its ambient health/metrics surface.
type Config struct {
	Registry             *registry.Registry
	Publisher            bus.Publisher
	TicketGate           *ticketgate.Gate
	Metrics              *metrics.Metrics
	MetricsRegistry      prometheus.Gatherer
	AllowedOrigins       []string
	ConnectionBufferSize int
	RetryInterval        time.Duration
	RetryMaxCount        int
	PingInterval         time.Duration
	Logger               *zap.Logger
}

func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(httpmw.CorrelationID)
	r.Use(httpmw.RequestLogger(cfg.Logger))

	wsh := handler.NewWSHandler(
		cfg.Registry, cfg.Publisher, cfg.Metrics, cfg.AllowedOrigins,
		cfg.ConnectionBufferSize, cfg.RetryInterval, cfg.RetryMaxCount, cfg.PingInterval,
		cfg.Logger,
	)

	hh := handler.NewHealthHandler()
	r.Get("/health", hh.Health)
	r.Handle("/metrics", promhttp.HandlerFor(cfg.MetricsRegistry, promhttp.HandlerOpts{}))

	r.With(wsmw.Ticket(cfg.TicketGate)).Get("/ws", wsh.Serve)

	return r
}
