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
	"github.com/notifyhub/realtime/internal/ticketgate"
	"github.com/notifyhub/realtime/internal/wsdelivery/api"
	"github.com/notifyhub/realtime/internal/wsdelivery/config"
	"github.com/notifyhub/realtime/internal/wsdelivery/consumer"
	"github.com/notifyhub/realtime/internal/wsdelivery/dedup"
	"github.com/notifyhub/realtime/internal/wsdelivery/metrics"
	"github.com/notifyhub/realtime/internal/wsdelivery/netstatus"
	"github.com/notifyhub/realtime/internal/wsdelivery/registry"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- bus ----
	ctx := context.Background()
	busCtx, cancelBus := context.WithCancel(ctx)
	defer cancelBus()

	busClient := bus.New(cfg.BusURL, cfg.BusReconnectEvery, logger)
	go busClient.Run(busCtx)
	publisher := bus.NewPublisher(busClient)

	// ---- ws-delivery dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	userRegistry := registry.New()
	dedupCache := dedup.New(cfg.DedupTTL, logger)
	gate := ticketgate.New(cfg.TicketSecret)

	go dedupCache.Run(busCtx, cfg.DedupSweepInterval)

	statusBroadcaster := netstatus.New(busClient.Signal(), userRegistry, logger)
	go statusBroadcaster.Run(busCtx)

	eventConsumer := consumer.New(busClient, userRegistry, dedupCache, cfg.NotificationQueue, cfg.ConsumerPrefetch, logger)
	eventConsumer.Run(busCtx)

	// ---- HTTP server ----
	router := api.NewRouter(api.Config{
		Registry:             userRegistry,
		Publisher:            publisher,
		TicketGate:           gate,
		Metrics:              m,
		MetricsRegistry:      reg,
		AllowedOrigins:       cfg.AllowedOrigins,
		ConnectionBufferSize: cfg.ConnectionBufferSize,
		RetryInterval:        cfg.RetryInterval,
		RetryMaxCount:        cfg.RetryMaxCount,
		PingInterval:         cfg.PingInterval,
		Logger:               logger,
	})
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Info("ws-delivery server starting", zap.String("addr", srv.Addr))
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

	logger.Info("ws-delivery server stopped cleanly")
}
