package dedup_test

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/realtime/internal/wsdelivery/dedup"
)

func TestCache_Seen_FirstMissThenHit(t *testing.T) {
	c := dedup.New(time.Minute, zap.NewNop())

	if c.Seen("abc123", "NEW") {
		t.Fatal("expected first observation to be a miss")
	}
	if !c.Seen("abc123", "NEW") {
		t.Fatal("expected second observation to be a hit")
	}
}

func TestCache_Seen_DifferentStatusIsDistinct(t *testing.T) {
	c := dedup.New(time.Minute, zap.NewNop())

	c.Seen("abc123", "NEW")
	if c.Seen("abc123", "UPDATED") {
		t.Fatal("expected a different status for the same id to be a separate entry")
	}
}

func TestCache_ExpiredEntryIsMissAgain(t *testing.T) {
	c := dedup.New(10*time.Millisecond, zap.NewNop())

	c.Seen("abc123", "NEW")
	time.Sleep(20 * time.Millisecond)

	if c.Seen("abc123", "NEW") {
		t.Fatal("expected entry to have expired and be treated as a miss")
	}
}

func TestCache_Run_SweepsExpiredEntries(t *testing.T) {
	c := dedup.New(10*time.Millisecond, zap.NewNop())
	c.Seen("abc123", "NEW")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	go c.Run(ctx, 20*time.Millisecond)
	<-ctx.Done()

	if c.Size() != 0 {
		t.Fatalf("expected sweep to evict the expired entry, size=%d", c.Size())
	}
}
