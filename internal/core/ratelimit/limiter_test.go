package ratelimit_test

import (
	"testing"

	"github.com/google/uuid"

	"github.com/notifyhub/realtime/internal/core/ratelimit"
)

func TestPrincipalLimiters_AllowsBurstThenDenies(t *testing.T) {
	l := ratelimit.New(1, 2)
	id := uuid.New()

	if !l.Allow(id) {
		t.Fatal("expected first request within burst to be allowed")
	}
	if !l.Allow(id) {
		t.Fatal("expected second request within burst to be allowed")
	}
	if l.Allow(id) {
		t.Fatal("expected third request to exceed burst and be denied")
	}
}

func TestPrincipalLimiters_IsolatedPerPrincipal(t *testing.T) {
	l := ratelimit.New(1, 1)
	a, b := uuid.New(), uuid.New()

	if !l.Allow(a) {
		t.Fatal("expected first principal's first request to be allowed")
	}
	if !l.Allow(b) {
		t.Fatal("expected a different principal to have its own independent bucket")
	}
}
