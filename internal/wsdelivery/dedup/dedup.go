// Package dedup filters redelivered bus events. The bus guarantees
// at-least-once delivery, and a reconnecting consumer may see the same
// event again; each (notification_id, status) pair should only be
// dispatched to fan-out once within its lifespan.
package dedup

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type key struct {
	notificationID string
	status         string
}

// Cache is a mutex-guarded map of recently seen (notification_id,
// status) pairs. Contention is expected to be low: entries are
// short-lived and the sweep is periodic, same assumption the spec
// makes about this cache versus the user registry's finer-grained
// locking.
type Cache struct {
	mu      sync.Mutex
	entries map[key]time.Time
	ttl     time.Duration
	logger  *zap.Logger
}

func New(ttl time.Duration, logger *zap.Logger) *Cache {
	return &Cache{entries: make(map[key]time.Time), ttl: ttl, logger: logger}
}

// Seen reports whether (notificationID, status) was already admitted
// within ttl. On a miss it records the pair with first_seen_at=now
// and returns false; on a hit it returns true without inserting.
func (c *Cache) Seen(notificationID, status string) bool {
	k := key{notificationID, status}
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if firstSeen, ok := c.entries[k]; ok && now.Sub(firstSeen) < c.ttl {
		return true
	}
	c.entries[k] = now
	return false
}

// Run periodically evicts entries older than ttl. Blocks until ctx is
// cancelled; meant to run in its own goroutine.
func (c *Cache) Run(ctx context.Context, sweepInterval time.Duration) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	c.logger.Info("dedup sweep started", zap.Duration("interval", sweepInterval), zap.Duration("ttl", c.ttl))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *Cache) sweep() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for k, firstSeen := range c.entries {
		if now.Sub(firstSeen) >= c.ttl {
			delete(c.entries, k)
			evicted++
		}
	}
	if evicted > 0 {
		c.logger.Debug("dedup sweep evicted entries", zap.Int("count", evicted))
	}
}

// Size returns the current entry count, mainly for tests.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
