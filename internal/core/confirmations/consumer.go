// Package confirmations consumes delivery confirmations published by
// WS-Delivery and applies them to the notification store, closing the
// loop between the two services.
package confirmations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notifyhub/realtime/internal/bus"
	"github.com/notifyhub/realtime/internal/core/domain"
	"github.com/notifyhub/realtime/internal/core/metrics"
	"github.com/notifyhub/realtime/internal/core/service"
)

// Consumer subscribes to the confirmations queue and ingests each
// message into the notification service. bus.Client runs one consuming
// goroutine for the subscription and calls the handler for each message
// in turn; Consumer only supplies the per-message handler.
type Consumer struct {
	client   *bus.Client
	svc      *service.NotificationService
	metrics  *metrics.Metrics
	prefetch int
	logger   *zap.Logger
}

func NewConsumer(client *bus.Client, svc *service.NotificationService, m *metrics.Metrics, prefetch int, logger *zap.Logger) *Consumer {
	return &Consumer{client: client, svc: svc, metrics: m, prefetch: prefetch, logger: logger}
}

// Run registers the handler and returns immediately; bus.Client owns
// the consuming goroutine and replays the subscription across
// reconnects.
func (c *Consumer) Run(ctx context.Context) {
	c.client.Subscribe(ctx, bus.QueueConfirmations, c.prefetch, c.handle)
}

func (c *Consumer) handle(body []byte) bus.Disposition {
	confirmation, err := bus.DecodeConfirmation(body)
	if err != nil {
		c.logger.Warn("dropping malformed confirmation", zap.Error(err))
		return bus.Reject(false)
	}

	id, err := domain.ParseNotificationID(confirmation.NotificationID)
	if err != nil {
		c.logger.Warn("dropping confirmation with invalid notification id",
			zap.String("notification_id", confirmation.NotificationID), zap.Error(err))
		return bus.Reject(false)
	}

	userID, err := uuid.Parse(confirmation.UserID)
	if err != nil {
		c.logger.Warn("dropping confirmation with invalid user id",
			zap.String("user_id", confirmation.UserID), zap.Error(err))
		return bus.Reject(false)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.svc.ConfirmationIngest(ctx, id, userID, confirmation.Timestamp); err != nil {
		c.logger.Error("confirmation ingest failed",
			zap.String("notification_id", confirmation.NotificationID),
			zap.String("user_id", confirmation.UserID),
			zap.Error(err))
		return bus.Reject(true)
	}

	c.metrics.ConfirmationsIngested.Inc()
	return bus.Ack()
}
