package ticketgate_test

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/notifyhub/realtime/internal/ticketgate"
)

func TestGate_IssueRedeem_RoundTrip(t *testing.T) {
	g := ticketgate.New("shared-secret")
	userID, deviceID := uuid.New(), uuid.New()

	ticket := g.Issue(userID, deviceID, time.Minute)

	gotUser, gotDevice, err := g.Redeem(ticket.Token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotUser != userID || gotDevice != deviceID {
		t.Fatalf("expected %s/%s, got %s/%s", userID, deviceID, gotUser, gotDevice)
	}
}

func TestGate_Redeem_Expired(t *testing.T) {
	g := ticketgate.New("shared-secret")
	ticket := g.Issue(uuid.New(), uuid.New(), -time.Second)

	if _, _, err := g.Redeem(ticket.Token); err != ticketgate.ErrExpired {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestGate_Redeem_WrongSecret(t *testing.T) {
	issuer := ticketgate.New("secret-a")
	verifier := ticketgate.New("secret-b")

	ticket := issuer.Issue(uuid.New(), uuid.New(), time.Minute)
	if _, _, err := verifier.Redeem(ticket.Token); err != ticketgate.ErrForged {
		t.Fatalf("expected ErrForged, got %v", err)
	}
}

func TestGate_Redeem_Malformed(t *testing.T) {
	g := ticketgate.New("shared-secret")
	if _, _, err := g.Redeem("not-a-valid-token"); err != ticketgate.ErrMalformed {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}
