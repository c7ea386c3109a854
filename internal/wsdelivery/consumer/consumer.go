// Package consumer bridges the bus notifications exchange into the
// registry: it owns ws-delivery's own durable queue, dedup-filters
// redeliveries, and fans each event out to every connection of its
// recipients. An event with no user_ids goes to every registered
// connection; this covers broadcast notifications and every DELETED
// event, which carries no user_ids.
package consumer

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notifyhub/realtime/internal/bus"
	"github.com/notifyhub/realtime/internal/wsdelivery/dedup"
	"github.com/notifyhub/realtime/internal/wsdelivery/domain"
	"github.com/notifyhub/realtime/internal/wsdelivery/registry"
)

// bindKey binds the queue to every routing key on the notifications
// topic exchange: ws-delivery fans every status out to connections,
// it does not filter by status at the broker.
const bindKey = "#"

type Consumer struct {
	client   *bus.Client
	registry *registry.Registry
	dedup    *dedup.Cache
	queue    string
	prefetch int
	logger   *zap.Logger
}

func New(client *bus.Client, reg *registry.Registry, dedupCache *dedup.Cache, queue string, prefetch int, logger *zap.Logger) *Consumer {
	return &Consumer{client: client, registry: reg, dedup: dedupCache, queue: queue, prefetch: prefetch, logger: logger}
}

// Run registers the subscription. Non-blocking: delivery handling runs
// on the bus client's own consumer goroutine, re-subscribed automatically
// on every reconnect.
func (c *Consumer) Run(ctx context.Context) {
	c.client.SubscribeTopic(ctx, c.queue, bindKey, c.prefetch, c.handle)
}

func (c *Consumer) handle(body []byte) bus.Disposition {
	evt, err := bus.DecodeEvent(body)
	if err != nil {
		c.logger.Error("discarding malformed notification event", zap.Error(err))
		return bus.Reject(false)
	}

	if c.dedup.Seen(evt.NotificationID, string(evt.Status)) {
		return bus.Ack()
	}

	frame := eventToFrame(evt)

	if len(evt.UserIDs) == 0 {
		c.registry.Broadcast(frame)
		return bus.Ack()
	}

	for _, raw := range evt.UserIDs {
		userID, err := uuid.Parse(raw)
		if err != nil {
			c.logger.Warn("skipping malformed recipient user_id", zap.String("user_id", raw), zap.Error(err))
			continue
		}
		c.registry.Deliver(userID, frame)
	}
	return bus.Ack()
}

func eventToFrame(evt bus.NotificationEvent) domain.WSFrame {
	return domain.WSFrame{
		NetworkStatus: domain.NetworkOK,
		Notification: &domain.NotificationPayload{
			ID:          evt.NotificationID,
			Status:      string(evt.Status),
			ContentType: evt.ContentType,
			Content:     evt.Content,
			Seen:        evt.Seen,
		},
	}
}
