package netstatus_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notifyhub/realtime/internal/bus"
	"github.com/notifyhub/realtime/internal/wsdelivery/domain"
	"github.com/notifyhub/realtime/internal/wsdelivery/netstatus"
	"github.com/notifyhub/realtime/internal/wsdelivery/registry"
)

func TestBroadcaster_BroadcastsOnDownAndUp(t *testing.T) {
	signal := make(chan bus.Lifecycle, 4)

	reg := registry.New()
	received := make(chan domain.WSFrame, 4)
	reg.Register(uuid.New(), registry.EnqueueHandle{
		ConnID: uuid.New(),
		Send: func(f domain.WSFrame) bool {
			received <- f
			return true
		},
	})

	b := netstatus.New(signal, reg, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	signal <- bus.Down
	select {
	case f := <-received:
		if f.NetworkStatus != domain.NetworkError {
			t.Fatalf("expected ERROR status, got %s", f.NetworkStatus)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a frame after Down signal")
	}

	signal <- bus.Up
	select {
	case f := <-received:
		if f.NetworkStatus != domain.NetworkOK {
			t.Fatalf("expected OK status, got %s", f.NetworkStatus)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a frame after Up signal")
	}
}
