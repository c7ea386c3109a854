// Package middleware holds WS-Delivery's HTTP middleware. Unlike Core,
// which authenticates via a Bearer JWT, WS-Delivery authenticates the
// upgrade request via a short-lived ticket issued by Core, since a
// browser's native WebSocket client cannot set an Authorization header.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/notifyhub/realtime/internal/ticketgate"
)

type principalKey struct{}

// Principal identifies the device a WebSocket connection belongs to,
// redeemed from the ticket query parameter.
type Principal struct {
	UserID   uuid.UUID
	DeviceID uuid.UUID
}

// Ticket redeems the ?ticket= query parameter via gate and, on success,
// stores the resulting Principal on the request context. Rejects with
// 401 on any redemption failure; the ticket carries its own expiry so
// there is nothing else to check here.
func Ticket(gate *ticketgate.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.URL.Query().Get("ticket")
			if token == "" {
				http.Error(w, "missing ticket", http.StatusUnauthorized)
				return
			}

			userID, deviceID, err := gate.Redeem(token)
			if err != nil {
				http.Error(w, "invalid or expired ticket", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), principalKey{}, Principal{UserID: userID, DeviceID: deviceID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPrincipal retrieves the Principal stored by Ticket.
func GetPrincipal(ctx context.Context) Principal {
	p, _ := ctx.Value(principalKey{}).(Principal)
	return p
}
