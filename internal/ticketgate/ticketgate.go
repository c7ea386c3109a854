// Package ticketgate implements the WebSocket upgrade ticket used to
// bridge Core's authenticated HTTP surface and WS-Delivery's unauthenticated
// upgrade endpoint without a second round trip or a shared store.
//
// Core issues a ticket by HMAC-signing the principal, device and an
// expiry into a compact token. WS-Delivery verifies the signature
// locally with the same shared secret. Neither process needs to call
// the other or share a datastore; the token carries its own proof.
package ticketgate

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrExpired   = errors.New("ticket expired")
	ErrMalformed = errors.New("ticket malformed")
	ErrForged    = errors.New("ticket signature mismatch")
)

// Ticket is the issued credential returned to the caller of
// POST /api/v1/ws-tickets.
type Ticket struct {
	Token     string    `json:"token"`
	UserID    uuid.UUID `json:"user_id"`
	DeviceID  uuid.UUID `json:"device_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Gate issues and verifies tickets using a shared HMAC secret. Both
// Core (Issue) and WS-Delivery (Redeem) construct one from the same
// WS_TICKET_SECRET configuration value.
type Gate struct {
	secret []byte
}

func New(secret string) *Gate {
	return &Gate{secret: []byte(secret)}
}

// Issue mints a ticket for userID/deviceID that expires after ttl.
// The device ID lets a principal hold one WS connection per device
// without tickets colliding across devices.
func (g *Gate) Issue(userID, deviceID uuid.UUID, ttl time.Duration) Ticket {
	expiresAt := time.Now().UTC().Add(ttl)
	token := g.sign(userID, deviceID, expiresAt)
	return Ticket{Token: token, UserID: userID, DeviceID: deviceID, ExpiresAt: expiresAt}
}

// Redeem verifies token's signature and expiry and returns the
// principal and device it was issued for. Redeem is read-only: unlike
// a one-shot store-backed ticket, a signed token can be presented more
// than once until it expires. Nothing records redeemed tickets, so a
// token can open further connections until its ttl runs out.
func (g *Gate) Redeem(token string) (userID, deviceID uuid.UUID, err error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != 16+16+8+32 {
		return uuid.Nil, uuid.Nil, ErrMalformed
	}

	payload := raw[:16+16+8]
	sig := raw[16+16+8:]

	mac := hmac.New(sha256.New, g.secret)
	mac.Write(payload)
	expected := mac.Sum(nil)
	if subtle.ConstantTimeCompare(sig, expected) != 1 {
		return uuid.Nil, uuid.Nil, ErrForged
	}

	copy(userID[:], payload[:16])
	copy(deviceID[:], payload[16:32])
	expiresUnix := int64(binary.BigEndian.Uint64(payload[32:40]))
	if time.Now().UTC().After(time.Unix(expiresUnix, 0).UTC()) {
		return uuid.Nil, uuid.Nil, ErrExpired
	}

	return userID, deviceID, nil
}

func (g *Gate) sign(userID, deviceID uuid.UUID, expiresAt time.Time) string {
	payload := make([]byte, 16+16+8)
	copy(payload[:16], userID[:])
	copy(payload[16:32], deviceID[:])
	binary.BigEndian.PutUint64(payload[32:40], uint64(expiresAt.Unix()))

	mac := hmac.New(sha256.New, g.secret)
	mac.Write(payload)
	sig := mac.Sum(nil)

	raw := append(payload, sig...)
	return base64.RawURLEncoding.EncodeToString(raw)
}
