package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notifyhub/realtime/internal/bus"
	"github.com/notifyhub/realtime/internal/core/domain"
	"github.com/notifyhub/realtime/internal/core/repository"
)

// NotificationService coordinates the repository and the bus publisher.
// All business rules (validation, exactly-once fetch, recipient checks)
// live here. HTTP handlers and the confirmations consumer depend on this
// service, not on the repository or bus directly.
type NotificationService struct {
	repo          repository.NotificationRepository
	pub           bus.Publisher
	logger        *zap.Logger
	maxContentLen int
}

func NewNotificationService(
	repo repository.NotificationRepository,
	pub bus.Publisher,
	logger *zap.Logger,
	maxContentLen int,
) *NotificationService {
	return &NotificationService{repo: repo, pub: pub, logger: logger, maxContentLen: maxContentLen}
}

// Create validates, persists, and publishes a single notification. The
// producer_notification_id + created_by pair is the idempotency key: a
// repeat Create with the same pair creates nothing, publishes nothing,
// and fails with an error wrapping domain.ErrAlreadyExists.
func (s *NotificationService) Create(ctx context.Context, req domain.CreateNotificationRequest, createdBy uuid.UUID) (*domain.Notification, error) {
	now := time.Now().UTC()
	if err := req.Validate(now, len(req.Content), s.maxContentLen); err != nil {
		return nil, err
	}

	id, err := domain.NewNotificationID()
	if err != nil {
		return nil, fmt.Errorf("generate notification id: %w", err)
	}

	n := &domain.Notification{
		ID:                     id,
		ProducerNotificationID: req.ProducerNotificationID,
		CreatedBy:              createdBy,
		CreatedAt:              now,
		InvalidateAt:           req.InvalidateAt,
		UserIDs:                req.UserIDs,
		ContentType:            req.ContentType,
		Content:                req.Content,
		Status:                 domain.StatusUndelivered,
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("persist notification: %w", err)
	}

	s.publish(ctx, n, bus.EventNew)
	return n, nil
}

// FetchUndelivered returns every notification addressed to principal
// that has not yet been delivered to them, atomically marking them
// delivered as it does.
func (s *NotificationService) FetchUndelivered(ctx context.Context, principal uuid.UUID) ([]*domain.Notification, error) {
	return s.repo.FetchUndelivered(ctx, principal, time.Now().UTC())
}

// InvalidateAt updates when a notification created by principal stops
// being deliverable. Only the creator may do this. This is producer-side
// housekeeping: it updates the row in place and does not publish to the
// bus, so connected recipients are not notified of the new deadline.
func (s *NotificationService) InvalidateAt(ctx context.Context, principal uuid.UUID, id domain.NotificationID, newAt time.Time) error {
	return s.repo.InvalidateAt(ctx, principal, id, newAt)
}

func (s *NotificationService) FetchDelivered(ctx context.Context, principal uuid.UUID, filter domain.ListFilter) ([]*domain.Notification, int, error) {
	return s.repo.FetchDelivered(ctx, principal, filter)
}

func (s *NotificationService) GetDelivered(ctx context.Context, principal uuid.UUID, id domain.NotificationID) (*domain.Notification, error) {
	return s.repo.GetDelivered(ctx, principal, id)
}

// SetSeen records principal's seen flag and publishes an UPDATED event
// carrying the new value.
func (s *NotificationService) SetSeen(ctx context.Context, principal uuid.UUID, id domain.NotificationID, seen bool) (*domain.Notification, error) {
	n, err := s.repo.SetSeen(ctx, principal, id, seen)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, n, bus.EventUpdated)
	return n, nil
}

// Delete redacts a notification on behalf of principal. The
// notification row persists, but its content and content type are
// cleared and the status becomes Deleted for every recipient, so it no
// longer appears in any recipient's delivered reads.
func (s *NotificationService) Delete(ctx context.Context, principal uuid.UUID, id domain.NotificationID) error {
	if err := s.repo.Delete(ctx, principal, id); err != nil {
		return err
	}

	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Warn("reload after delete failed", zap.String("notification_id", id.Hex()), zap.Error(err))
		return nil
	}
	s.publish(ctx, n, bus.EventDeleted)
	return nil
}

// ConfirmationIngest applies a delivery confirmation received from
// WS-Delivery over the confirmations queue.
func (s *NotificationService) ConfirmationIngest(ctx context.Context, id domain.NotificationID, userID uuid.UUID, timestamp time.Time) error {
	return s.repo.ConfirmationIngest(ctx, id, userID, timestamp)
}

func (s *NotificationService) publish(ctx context.Context, n *domain.Notification, status bus.EventStatus) {
	evt := notificationToEvent(n, status)
	if err := s.pub.PublishNotificationEvent(ctx, evt); err != nil {
		s.logger.Error("publish notification event",
			zap.String("notification_id", n.ID.Hex()),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}

// notificationToEvent builds the wire event for status. DELETED events
// carry only id, status, and timestamp per spec §3 — content and
// delivery-state fields are left nil rather than echoing stale data the
// recipient must discard anyway.
func notificationToEvent(n *domain.Notification, status bus.EventStatus) bus.NotificationEvent {
	evt := bus.NotificationEvent{
		NotificationID: n.ID.Hex(),
		Status:         status,
		Timestamp:      time.Now().UTC(),
	}
	if status == bus.EventDeleted {
		return evt
	}

	createdBy := n.CreatedBy.String()
	contentType := n.ContentType
	seen := n.Seen

	userIDs := make([]string, len(n.UserIDs))
	for i, u := range n.UserIDs {
		userIDs[i] = u.String()
	}

	if status == bus.EventUpdated {
		evt.Seen = &seen
		evt.UserIDs = userIDs
		return evt
	}

	evt.CreatedBy = &createdBy
	evt.Seen = &seen
	evt.ContentType = &contentType
	evt.Content = n.Content
	evt.UserIDs = userIDs
	return evt
}
