package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/notifyhub/realtime/internal/core/api/middleware"
	"github.com/notifyhub/realtime/internal/core/domain"
	"github.com/notifyhub/realtime/internal/core/service"
	"github.com/notifyhub/realtime/internal/httpmw"
)

// NotificationHandler handles the notification CRUD surface: creation
// by producers, and the undelivered/delivered lifecycle for recipients.
type NotificationHandler struct {
	svc    *service.NotificationService
	logger *zap.Logger
}

func NewNotificationHandler(svc *service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, logger: logger}
}

// Create handles POST /api/v1/notifications/undelivered
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	principal := apimw.GetPrincipal(r.Context())
	n, err := h.svc.Create(r.Context(), req, principal.ID)
	if err != nil {
		h.logger.Warn("create notification failed",
			zap.String("correlation_id", httpmw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, n)
}

// FetchUndelivered handles GET /api/v1/notifications/undelivered
func (h *NotificationHandler) FetchUndelivered(w http.ResponseWriter, r *http.Request) {
	principal := apimw.GetPrincipal(r.Context())
	notifications, err := h.svc.FetchUndelivered(r.Context(), principal.ID)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": notifications})
}

// InvalidateAt handles PUT /api/v1/notifications/undelivered/{id}/invalidate_at
func (h *NotificationHandler) InvalidateAt(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseNotificationID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var body struct {
		InvalidateAt time.Time `json:"invalidate_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	principal := apimw.GetPrincipal(r.Context())
	if err := h.svc.InvalidateAt(r.Context(), principal.ID, id, body.InvalidateAt); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// FetchDelivered handles GET /api/v1/notifications/delivered
func (h *NotificationHandler) FetchDelivered(w http.ResponseWriter, r *http.Request) {
	filter := parseListFilter(r)
	principal := apimw.GetPrincipal(r.Context())

	notifications, total, err := h.svc.FetchDelivered(r.Context(), principal.ID, filter)
	if err != nil {
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"data":      notifications,
		"total":     total,
		"page":      filter.PageIdx,
		"page_size": filter.PageSize,
	})
}

// GetDelivered handles GET /api/v1/notifications/delivered/{id}
func (h *NotificationHandler) GetDelivered(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseNotificationID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	principal := apimw.GetPrincipal(r.Context())
	n, err := h.svc.GetDelivered(r.Context(), principal.ID, id)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, n)
}

// SetSeen handles PUT /api/v1/notifications/delivered/{id}/seen
func (h *NotificationHandler) SetSeen(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseNotificationID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var body struct {
		Seen bool `json:"seen"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	principal := apimw.GetPrincipal(r.Context())
	n, err := h.svc.SetSeen(r.Context(), principal.ID, id, body.Seen)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, n)
}

// Delete handles DELETE /api/v1/notifications/delivered/{id}
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseNotificationID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	principal := apimw.GetPrincipal(r.Context())
	if err := h.svc.Delete(r.Context(), principal.ID, id); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseListFilter(r *http.Request) domain.ListFilter {
	q := r.URL.Query()
	filter := domain.ListFilter{PageIdx: 1, PageSize: 20}

	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		filter.PageIdx = p
	}
	if l, err := strconv.Atoi(q.Get("page_size")); err == nil && l > 0 && l <= 100 {
		filter.PageSize = l
	}
	if s := q.Get("seen"); s != "" {
		if b, err := strconv.ParseBool(s); err == nil {
			filter.Seen = &b
		}
	}
	return filter
}
