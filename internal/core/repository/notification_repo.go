package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/notifyhub/realtime/internal/core/domain"
)

// NotificationRepository defines all persistence operations for
// notifications and their per-recipient delivery sidecar. The pgx
// implementation is in pg_notification_repo.go; tests use a
// hand-written in-memory mock (mock_notification_repo.go), same split
// the teacher uses.
//
// Delivery tracking is unified across targeted and broadcast
// notifications through the deliveries sidecar (see DESIGN.md's
// resolution of the §4.1/§9 tension): the notification row's own
// Status is an aggregate, advanced to Delivered the first time any
// recipient's delivery row is inserted, while exactly-once-per-pair is
// enforced by the sidecar's (notification_id, user_id) primary key
// regardless of fan-out size.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	GetByID(ctx context.Context, id domain.NotificationID) (*domain.Notification, error)

	// FetchUndelivered returns, and atomically marks delivered, every
	// notification principal has not yet had delivered to them.
	FetchUndelivered(ctx context.Context, principal uuid.UUID, now time.Time) ([]*domain.Notification, error)

	InvalidateAt(ctx context.Context, principal uuid.UUID, id domain.NotificationID, newAt time.Time) error

	FetchDelivered(ctx context.Context, principal uuid.UUID, filter domain.ListFilter) ([]*domain.Notification, int, error)
	GetDelivered(ctx context.Context, principal uuid.UUID, id domain.NotificationID) (*domain.Notification, error)

	SetSeen(ctx context.Context, principal uuid.UUID, id domain.NotificationID, seen bool) (*domain.Notification, error)
	Delete(ctx context.Context, principal uuid.UUID, id domain.NotificationID) error

	// ConfirmationIngest is idempotent: applying the same confirmation
	// more than once, or an older one after a newer one, is a no-op.
	ConfirmationIngest(ctx context.Context, id domain.NotificationID, userID uuid.UUID, timestamp time.Time) error
}
