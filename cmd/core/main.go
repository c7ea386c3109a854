package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/notifyhub/realtime/internal/bus"
	"github.com/notifyhub/realtime/internal/core/api"
	"github.com/notifyhub/realtime/internal/core/config"
	"github.com/notifyhub/realtime/internal/core/confirmations"
	"github.com/notifyhub/realtime/internal/core/db"
	"github.com/notifyhub/realtime/internal/core/metrics"
	"github.com/notifyhub/realtime/internal/core/ratelimit"
	"github.com/notifyhub/realtime/internal/core/repository"
	"github.com/notifyhub/realtime/internal/core/service"
	"github.com/notifyhub/realtime/internal/ticketgate"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	// ---- bus ----
	busCtx, cancelBus := context.WithCancel(ctx)
	defer cancelBus()

	busClient := bus.New(cfg.BusURL, cfg.BusReconnectEvery, logger)
	go busClient.Run(busCtx)
	publisher := bus.NewPublisher(busClient)

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	repo := repository.NewPgNotificationRepository(pool)
	svc := service.NewNotificationService(repo, publisher, logger, cfg.MaxContentBytes)
	gate := ticketgate.New(cfg.TicketSecret)
	ticketLimiters := ratelimit.New(cfg.TicketRatePerSec, cfg.TicketBurst)

	// ---- confirmations consumer ----
	consumer := confirmations.NewConsumer(busClient, svc, m, cfg.ConfirmationPrefetch, logger)
	consumer.Run(busCtx)

	// ---- HTTP server ----
	router := api.NewRouter(api.Config{
		Service:         svc,
		TicketGate:      gate,
		TicketLimiters:  ticketLimiters,
		TicketLifespan:  cfg.TicketLifespan,
		JWTSecret:       cfg.JWTSecret,
		JWTIssuer:       cfg.JWTIssuer,
		MaxRequestBytes: cfg.MaxRequestBytes,
		Registry:        reg,
		Logger:          logger,
	})
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Info("core server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	cancelBus()

	logger.Info("core server stopped cleanly")
}
