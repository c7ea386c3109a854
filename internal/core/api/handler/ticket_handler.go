package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apimw "github.com/notifyhub/realtime/internal/core/api/middleware"
	"github.com/notifyhub/realtime/internal/core/ratelimit"
	"github.com/notifyhub/realtime/internal/ticketgate"
)

// TicketHandler issues WS-Delivery upgrade tickets for the
// authenticated caller. Core holds the authenticated principal; the
// ticket lets WS-Delivery authorize a connection without repeating
// the auth handshake (see DESIGN.md).
type TicketHandler struct {
	gate     *ticketgate.Gate
	limiters *ratelimit.PrincipalLimiters
	lifespan time.Duration
	logger   *zap.Logger
}

func NewTicketHandler(gate *ticketgate.Gate, limiters *ratelimit.PrincipalLimiters, lifespan time.Duration, logger *zap.Logger) *TicketHandler {
	return &TicketHandler{gate: gate, limiters: limiters, lifespan: lifespan, logger: logger}
}

// Issue handles POST /api/v1/ws-tickets
func (h *TicketHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DeviceID uuid.UUID `json:"device_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.DeviceID == uuid.Nil {
		respondError(w, http.StatusBadRequest, "device_id is required")
		return
	}

	principal := apimw.GetPrincipal(r.Context())

	if !h.limiters.Allow(principal.ID) {
		respondError(w, http.StatusTooManyRequests, "too many ticket requests, slow down")
		return
	}

	ticket := h.gate.Issue(principal.ID, body.DeviceID, h.lifespan)

	respondJSON(w, http.StatusCreated, ticket)
}
