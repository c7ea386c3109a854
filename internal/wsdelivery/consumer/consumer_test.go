package consumer

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notifyhub/realtime/internal/bus"
	"github.com/notifyhub/realtime/internal/wsdelivery/dedup"
	"github.com/notifyhub/realtime/internal/wsdelivery/domain"
	"github.com/notifyhub/realtime/internal/wsdelivery/registry"
)

func newTestConsumer() (*Consumer, *registry.Registry) {
	reg := registry.New()
	d := dedup.New(time.Minute, zap.NewNop())
	return New(nil, reg, d, "ws-notifications", 10, zap.NewNop()), reg
}

func TestConsumer_DeliversToExplicitRecipients(t *testing.T) {
	c, reg := newTestConsumer()
	userID := uuid.New()

	var got domain.WSFrame
	reg.Register(userID, registry.EnqueueHandle{
		ConnID: uuid.New(),
		Send:   func(f domain.WSFrame) bool { got = f; return true },
	})

	evt := bus.NotificationEvent{
		NotificationID: "n-1",
		Status:         bus.EventNew,
		Timestamp:      time.Now(),
		UserIDs:        []string{userID.String()},
	}
	body, _ := json.Marshal(evt)

	disp := c.handle(body)
	if disp != bus.Ack() {
		t.Fatalf("expected ack, got %+v", disp)
	}
	if got.Notification == nil || got.Notification.ID != "n-1" {
		t.Fatalf("expected delivery of n-1, got %+v", got)
	}
}

func TestConsumer_BroadcastsWhenNoRecipients(t *testing.T) {
	c, reg := newTestConsumer()
	userA, userB := uuid.New(), uuid.New()

	var countA, countB int
	reg.Register(userA, registry.EnqueueHandle{ConnID: uuid.New(), Send: func(domain.WSFrame) bool { countA++; return true }})
	reg.Register(userB, registry.EnqueueHandle{ConnID: uuid.New(), Send: func(domain.WSFrame) bool { countB++; return true }})

	evt := bus.NotificationEvent{NotificationID: "n-2", Status: bus.EventNew, Timestamp: time.Now()}
	body, _ := json.Marshal(evt)

	c.handle(body)

	if countA != 1 || countB != 1 {
		t.Fatalf("expected broadcast to both users, got a=%d b=%d", countA, countB)
	}
}

func TestConsumer_DedupSkipsRedelivery(t *testing.T) {
	c, reg := newTestConsumer()
	userID := uuid.New()

	var count int
	reg.Register(userID, registry.EnqueueHandle{ConnID: uuid.New(), Send: func(domain.WSFrame) bool { count++; return true }})

	evt := bus.NotificationEvent{NotificationID: "n-3", Status: bus.EventNew, Timestamp: time.Now(), UserIDs: []string{userID.String()}}
	body, _ := json.Marshal(evt)

	c.handle(body)
	c.handle(body)

	if count != 1 {
		t.Fatalf("expected exactly one delivery despite redelivery, got %d", count)
	}
}

func TestConsumer_RejectsMalformedBody(t *testing.T) {
	c, _ := newTestConsumer()

	disp := c.handle([]byte("not json"))
	if disp != bus.Reject(false) {
		t.Fatalf("expected reject without requeue, got %+v", disp)
	}
}
