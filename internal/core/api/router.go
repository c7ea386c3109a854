package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/notifyhub/realtime/internal/core/api/handler"
	apimw "github.com/notifyhub/realtime/internal/core/api/middleware"
	"github.com/notifyhub/realtime/internal/core/ratelimit"
	"github.com/notifyhub/realtime/internal/core/service"
	"github.com/notifyhub/realtime/internal/httpmw"
	"github.com/notifyhub/realtime/internal/ticketgate"
)

// Config bundles everything NewRouter needs beyond the service, so the
// constructor signature doesn't grow every time a new cross-cutting
// concern shows up.
type Config struct {
	Service         *service.NotificationService
	TicketGate      *ticketgate.Gate
	TicketLimiters  *ratelimit.PrincipalLimiters
	TicketLifespan  time.Duration
	JWTSecret       string
	JWTIssuer       string
	MaxRequestBytes int64
	Registry        prometheus.Gatherer
	Logger          *zap.Logger
}

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestSize(cfg.MaxRequestBytes))
	r.Use(httpmw.CorrelationID)
	r.Use(httpmw.RequestLogger(cfg.Logger))

	// --- handler instances ---
	nh := handler.NewNotificationHandler(cfg.Service, cfg.Logger)
	th := handler.NewTicketHandler(cfg.TicketGate, cfg.TicketLimiters, cfg.TicketLifespan, cfg.Logger)
	hh := handler.NewHealthHandler()

	r.Get("/health", hh.Health)
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apimw.Auth(cfg.JWTSecret, cfg.JWTIssuer))

		r.Post("/ws-tickets", th.Issue)

		r.With(apimw.RequireRole("produce_notifications")).Post("/notifications/undelivered", nh.Create)
		r.Get("/notifications/undelivered", nh.FetchUndelivered)
		r.With(apimw.RequireRole("produce_notifications")).Put("/notifications/undelivered/{id}/invalidate_at", nh.InvalidateAt)

		r.Get("/notifications/delivered", nh.FetchDelivered)
		r.Get("/notifications/delivered/{id}", nh.GetDelivered)
		r.Put("/notifications/delivered/{id}/seen", nh.SetSeen)
		r.Delete("/notifications/delivered/{id}", nh.Delete)
	})

	return r
}
