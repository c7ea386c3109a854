package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status tracks the delivery lifecycle of a notification.
type Status string

const (
	StatusUndelivered Status = "undelivered"
	StatusDelivered   Status = "delivered"
	StatusDeleted     Status = "deleted"
)

// MaxContentBytes is the default cap on Content; configurable via
// config.Config.MaxContentBytes, threaded into Validate by the caller.
const MaxContentBytes = 4096

// Notification is the core, durable entity owned by the core service.
type Notification struct {
	ID                     NotificationID `json:"id"`
	ProducerNotificationID int64          `json:"producer_notification_id"`
	CreatedBy              uuid.UUID      `json:"created_by"`
	CreatedAt              time.Time      `json:"created_at"`
	InvalidateAt           *time.Time     `json:"invalidate_at,omitempty"`
	UserIDs                []uuid.UUID    `json:"user_ids"`
	ContentType            string         `json:"content_type"`
	Content                []byte         `json:"content,omitempty"`
	Status                 Status         `json:"status"`
	Seen                   bool           `json:"seen"`
	DeliveredAt            *time.Time     `json:"delivered_at,omitempty"`
}

// IsBroadcast reports whether every reader is an implicit recipient.
func (n *Notification) IsBroadcast() bool {
	return len(n.UserIDs) == 0
}

// IsRecipient reports whether userID is a recipient of n.
func (n *Notification) IsRecipient(userID uuid.UUID) bool {
	if n.IsBroadcast() {
		return true
	}
	for _, u := range n.UserIDs {
		if u == userID {
			return true
		}
	}
	return false
}

// IsExpired reports whether n's invalidate_at has passed as of now.
func (n *Notification) IsExpired(now time.Time) bool {
	return n.InvalidateAt != nil && !n.InvalidateAt.After(now)
}

// RedactForDeleted clears fields the spec requires suppressed once a
// notification reaches the Deleted status.
func (n *Notification) RedactForDeleted() {
	n.Content = nil
	n.ContentType = ""
	n.DeliveredAt = nil
}

// Delivery is the per-recipient sidecar row that lets a broadcast
// notification be delivered exactly once per user without mutating the
// shared notification row (spec §9).
type Delivery struct {
	NotificationID NotificationID `json:"notification_id"`
	UserID         uuid.UUID      `json:"user_id"`
	DeliveredAt    time.Time      `json:"delivered_at"`
	Seen           bool           `json:"seen"`
}

// CreateNotificationRequest is the inbound HTTP payload for Create.
// Content is tagged as []byte rather than string so encoding/json
// base64-decodes it for us; a malformed base64 payload surfaces as a
// decode error before Validate ever runs, which is what produces the
// spec's 400 (bad base64) response.
type CreateNotificationRequest struct {
	ProducerNotificationID int64       `json:"producer_notification_id"`
	InvalidateAt           *time.Time  `json:"invalidate_at,omitempty"`
	UserIDs                []uuid.UUID `json:"user_ids"`
	ContentType            string      `json:"content_type"`
	Content                []byte      `json:"content"`
}

// Validate checks the request against the invariants in spec §4.1.
// maxContentBytes is injected so the limit stays configurable rather
// than a compile-time constant, per the ambient config pattern.
func (r *CreateNotificationRequest) Validate(now time.Time, rawContentLen, maxContentBytes int) error {
	if r.ContentType == "" {
		return ErrValidation("content_type must not be empty")
	}
	if rawContentLen > maxContentBytes {
		return ErrPayloadTooLarge
	}
	if r.InvalidateAt != nil && r.InvalidateAt.Before(now) {
		return ErrValidation("invalidate_at must be >= now")
	}
	return nil
}

// ListFilter holds query parameters for paginated delivered listings.
type ListFilter struct {
	PageIdx  int
	PageSize int
	Seen     *bool
}
