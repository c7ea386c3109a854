package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/notifyhub/realtime/internal/core/domain"
)

// mockNotificationRepository is a hand-written in-memory stand-in for
// NotificationRepository, used by service-level tests in place of a
// real database, same split as the teacher's mock repositories.
type mockNotificationRepository struct {
	mu            sync.Mutex
	notifications map[domain.NotificationID]*domain.Notification
	deliveries    map[deliveryKey]*domain.Delivery
}

type deliveryKey struct {
	notificationID domain.NotificationID
	userID         uuid.UUID
}

// NewMockNotificationRepository returns an in-memory NotificationRepository.
func NewMockNotificationRepository() NotificationRepository {
	return &mockNotificationRepository{
		notifications: make(map[domain.NotificationID]*domain.Notification),
		deliveries:    make(map[deliveryKey]*domain.Delivery),
	}
}

func (m *mockNotificationRepository) Create(_ context.Context, n *domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.notifications {
		if existing.CreatedBy == n.CreatedBy && existing.ProducerNotificationID == n.ProducerNotificationID {
			return domain.ErrAlreadyExists
		}
	}

	cp := *n
	cp.UserIDs = append([]uuid.UUID(nil), n.UserIDs...)
	cp.Content = append([]byte(nil), n.Content...)
	m.notifications[n.ID] = &cp
	return nil
}

func (m *mockNotificationRepository) GetByID(_ context.Context, id domain.NotificationID) (*domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.notifications[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (m *mockNotificationRepository) FetchUndelivered(_ context.Context, principal uuid.UUID, now time.Time) ([]*domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*domain.Notification
	for _, n := range m.notifications {
		if n.Status == domain.StatusDeleted || n.IsExpired(now) || !n.IsRecipient(principal) {
			continue
		}
		key := deliveryKey{n.ID, principal}
		if _, delivered := m.deliveries[key]; delivered {
			continue
		}

		m.deliveries[key] = &domain.Delivery{NotificationID: n.ID, UserID: principal, DeliveredAt: now}
		if n.Status == domain.StatusUndelivered {
			n.Status = domain.StatusDelivered
			n.DeliveredAt = &now
		}

		cp := *n
		cp.Status = domain.StatusDelivered
		cp.Seen = false
		cp.DeliveredAt = &now
		result = append(result, &cp)
	}
	return result, nil
}

func (m *mockNotificationRepository) InvalidateAt(_ context.Context, principal uuid.UUID, id domain.NotificationID, newAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.notifications[id]
	if !ok {
		return domain.ErrNotFound
	}
	if n.CreatedBy != principal {
		return domain.ErrForbidden
	}
	n.InvalidateAt = &newAt
	return nil
}

func (m *mockNotificationRepository) FetchDelivered(_ context.Context, principal uuid.UUID, filter domain.ListFilter) ([]*domain.Notification, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	var matched []*domain.Notification
	for key, d := range m.deliveries {
		if key.userID != principal {
			continue
		}
		n, ok := m.notifications[key.notificationID]
		if !ok || n.Status == domain.StatusDeleted || n.IsExpired(now) {
			continue
		}
		if filter.Seen != nil && d.Seen != *filter.Seen {
			continue
		}
		cp := *n
		cp.Seen = d.Seen
		cp.DeliveredAt = &d.DeliveredAt
		matched = append(matched, &cp)
	}

	total := len(matched)
	start := (filter.PageIdx - 1) * filter.PageSize
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + filter.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (m *mockNotificationRepository) GetDelivered(_ context.Context, principal uuid.UUID, id domain.NotificationID) (*domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.deliveries[deliveryKey{id, principal}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	n, ok := m.notifications[id]
	if !ok || n.Status == domain.StatusDeleted {
		return nil, domain.ErrNotFound
	}
	cp := *n
	cp.Seen = d.Seen
	cp.DeliveredAt = &d.DeliveredAt
	return &cp, nil
}

func (m *mockNotificationRepository) SetSeen(_ context.Context, principal uuid.UUID, id domain.NotificationID, seen bool) (*domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.notifications[id]
	if !ok || n.Status == domain.StatusDeleted {
		return nil, domain.ErrNotFound
	}
	d, ok := m.deliveries[deliveryKey{id, principal}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	d.Seen = seen

	cp := *n
	cp.Seen = d.Seen
	cp.DeliveredAt = &d.DeliveredAt
	return &cp, nil
}

func (m *mockNotificationRepository) Delete(_ context.Context, principal uuid.UUID, id domain.NotificationID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.deliveries[deliveryKey{id, principal}]; !ok {
		return domain.ErrNotFound
	}
	n, ok := m.notifications[id]
	if !ok {
		return domain.ErrNotFound
	}
	n.Status = domain.StatusDeleted
	n.Content = nil
	n.ContentType = ""
	return nil
}

func (m *mockNotificationRepository) ConfirmationIngest(_ context.Context, id domain.NotificationID, userID uuid.UUID, timestamp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := deliveryKey{id, userID}
	if d, ok := m.deliveries[key]; ok {
		if timestamp.After(d.DeliveredAt) {
			d.DeliveredAt = timestamp
		}
	} else {
		m.deliveries[key] = &domain.Delivery{NotificationID: id, UserID: userID, DeliveredAt: timestamp}
	}

	if n, ok := m.notifications[id]; ok && n.Status == domain.StatusUndelivered {
		n.Status = domain.StatusDelivered
		n.DeliveredAt = &timestamp
	}
	return nil
}
