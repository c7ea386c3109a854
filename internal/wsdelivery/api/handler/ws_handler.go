// Package handler holds WS-Delivery's HTTP surface: the single
// WebSocket upgrade endpoint.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/notifyhub/realtime/internal/bus"
	"github.com/notifyhub/realtime/internal/wsdelivery/api/middleware"
	"github.com/notifyhub/realtime/internal/wsdelivery/domain"
	"github.com/notifyhub/realtime/internal/wsdelivery/metrics"
	"github.com/notifyhub/realtime/internal/wsdelivery/push"
	"github.com/notifyhub/realtime/internal/wsdelivery/registry"
)

// WSHandler upgrades an authenticated request to a WebSocket and spins
// up the per-connection push engine for it.
type WSHandler struct {
	registry             *registry.Registry
	publisher            bus.Publisher
	metrics              *metrics.Metrics
	upgrader             websocket.Upgrader
	connectionBufferSize int
	retryInterval        time.Duration
	retryMaxCount        int
	pingInterval         time.Duration
	logger               *zap.Logger
}

func NewWSHandler(
	reg *registry.Registry,
	pub bus.Publisher,
	m *metrics.Metrics,
	allowedOrigins []string,
	connectionBufferSize int,
	retryInterval time.Duration,
	retryMaxCount int,
	pingInterval time.Duration,
	logger *zap.Logger,
) *WSHandler {
	return &WSHandler{
		registry:             reg,
		publisher:            pub,
		metrics:              m,
		upgrader:             websocket.Upgrader{CheckOrigin: checkOrigin(allowedOrigins)},
		connectionBufferSize: connectionBufferSize,
		retryInterval:        retryInterval,
		retryMaxCount:        retryMaxCount,
		pingInterval:         pingInterval,
		logger:               logger,
	}
}

// checkOrigin allows only requests whose Origin header is in the
// configured allow-list; an empty allow-list means origin checking is
// disabled (useful for local development, never for production).
func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		for _, a := range allowed {
			if a == origin {
				return true
			}
		}
		return false
	}
}

// Serve handles GET /ws. Auth happens upstream in middleware.Ticket;
// this handler only needs the resulting Principal.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	connID := uuid.New()
	ctx, cancel := context.WithCancel(r.Context())

	c := push.New(
		connID, principal.UserID, principal.DeviceID,
		conn, h.connectionBufferSize,
		h.retryInterval, h.retryMaxCount, h.pingInterval,
		func(notificationID string) {
			confirmCtx, confirmCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer confirmCancel()
			if err := h.publisher.PublishConfirmation(confirmCtx, bus.Confirmation{
				NotificationID: notificationID,
				UserID:         principal.UserID.String(),
				Timestamp:      time.Now().UTC(),
			}); err != nil {
				h.logger.Error("publish confirmation failed", zap.Error(err), zap.String("notification_id", notificationID))
			}
			h.metrics.FramesAcked.Inc()
		},
		h.logger,
	)

	h.registry.Register(principal.UserID, registry.EnqueueHandle{ConnID: connID, Send: c.Enqueue})
	h.metrics.ConnectionsOpen.Inc()

	go h.readPump(ctx, cancel, conn, c)

	reason := c.Run(ctx)
	cancel()
	conn.Close()
	h.registry.Unregister(principal.UserID, connID)
	h.metrics.ConnectionsOpen.Dec()
	h.metrics.ConnectionsTornDown.WithLabelValues(string(reason)).Inc()

	h.logger.Info("websocket connection closed",
		zap.String("user_id", principal.UserID.String()),
		zap.String("device_id", principal.DeviceID.String()),
		zap.String("reason", string(reason)),
	)
}

// readPump is the only goroutine that reads from conn, translating
// inbound ack frames into HandleAck calls on the push engine. It exits
// when the socket errors or ctx is cancelled by the push engine's own
// teardown.
func (h *WSHandler) readPump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, c *push.Connection) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var ack domain.AckFrame
		if err := json.Unmarshal(data, &ack); err != nil {
			h.logger.Debug("discarding malformed ack frame", zap.Error(err))
			continue
		}
		c.HandleAck(ack.MessageID)
	}
}
