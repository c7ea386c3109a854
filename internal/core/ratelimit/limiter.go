// Package ratelimit guards per-principal ticket issuance, generalizing
// the teacher's fixed-channel token bucket (one limiter per a small,
// known enum of channels) to one limiter per principal, created lazily
// since the set of callers is unbounded and not known up front.
package ratelimit

import (
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// PrincipalLimiters holds one token bucket limiter per principal,
// guarding POST /ws-tickets against a single caller minting tickets
// faster than it could plausibly open connections.
type PrincipalLimiters struct {
	mu         sync.Mutex
	limiters   map[uuid.UUID]*rate.Limiter
	ratePerSec int
	burst      int
}

// New creates a PrincipalLimiters with ratePerSec tokens per second and
// burst capacity, applied independently to each principal.
func New(ratePerSec, burst int) *PrincipalLimiters {
	return &PrincipalLimiters{
		limiters:   make(map[uuid.UUID]*rate.Limiter),
		ratePerSec: ratePerSec,
		burst:      burst,
	}
}

// Allow reports whether principalID may issue another ticket right
// now, consuming a token if so. Unlike Wait, it never blocks: ticket
// issuance is a request/response endpoint, not a worker pulling off a
// queue, so backpressure here should be a 429, not a stall.
func (l *PrincipalLimiters) Allow(principalID uuid.UUID) bool {
	return l.limiterFor(principalID).Allow()
}

func (l *PrincipalLimiters) limiterFor(principalID uuid.UUID) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[principalID]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(l.ratePerSec), l.burst)
		l.limiters[principalID] = lim
	}
	return lim
}
