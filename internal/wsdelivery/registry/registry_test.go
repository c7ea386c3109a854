package registry_test

import (
	"testing"

	"github.com/google/uuid"

	"github.com/notifyhub/realtime/internal/wsdelivery/domain"
	"github.com/notifyhub/realtime/internal/wsdelivery/registry"
)

func TestRegistry_RegisterDeliverUnregister(t *testing.T) {
	r := registry.New()
	userID := uuid.New()
	connID := uuid.New()

	var received []domain.WSFrame
	r.Register(userID, registry.EnqueueHandle{
		ConnID: connID,
		Send: func(f domain.WSFrame) bool {
			received = append(received, f)
			return true
		},
	})

	if got := r.ConnectionCount(userID); got != 1 {
		t.Fatalf("expected 1 connection, got %d", got)
	}

	r.Deliver(userID, domain.WSFrame{MessageID: uuid.New()})
	if len(received) != 1 {
		t.Fatalf("expected 1 delivered frame, got %d", len(received))
	}

	r.Unregister(userID, connID)
	if got := r.ConnectionCount(userID); got != 0 {
		t.Fatalf("expected 0 connections after unregister, got %d", got)
	}

	r.Deliver(userID, domain.WSFrame{MessageID: uuid.New()})
	if len(received) != 1 {
		t.Fatal("expected no further delivery after unregister")
	}
}

func TestRegistry_MultipleDevicesPerUser(t *testing.T) {
	r := registry.New()
	userID := uuid.New()

	var countA, countB int
	r.Register(userID, registry.EnqueueHandle{ConnID: uuid.New(), Send: func(domain.WSFrame) bool { countA++; return true }})
	r.Register(userID, registry.EnqueueHandle{ConnID: uuid.New(), Send: func(domain.WSFrame) bool { countB++; return true }})

	r.Deliver(userID, domain.WSFrame{MessageID: uuid.New()})

	if countA != 1 || countB != 1 {
		t.Fatalf("expected both devices to receive the frame, got a=%d b=%d", countA, countB)
	}
}

func TestRegistry_Broadcast(t *testing.T) {
	r := registry.New()
	userA, userB := uuid.New(), uuid.New()

	var total int
	r.Register(userA, registry.EnqueueHandle{ConnID: uuid.New(), Send: func(domain.WSFrame) bool { total++; return true }})
	r.Register(userB, registry.EnqueueHandle{ConnID: uuid.New(), Send: func(domain.WSFrame) bool { total++; return true }})

	r.Broadcast(domain.WSFrame{MessageID: uuid.New()})

	if total != 2 {
		t.Fatalf("expected broadcast to reach both users, got %d deliveries", total)
	}
}
