package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notifyhub/realtime/internal/bus"
	"github.com/notifyhub/realtime/internal/core/domain"
	"github.com/notifyhub/realtime/internal/core/repository"
	"github.com/notifyhub/realtime/internal/core/service"
)

type fakePublisher struct {
	mu            sync.Mutex
	events        []bus.NotificationEvent
	confirmations []bus.Confirmation
}

func (f *fakePublisher) PublishNotificationEvent(_ context.Context, evt bus.NotificationEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
	return nil
}

func (f *fakePublisher) PublishConfirmation(_ context.Context, c bus.Confirmation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmations = append(f.confirmations, c)
	return nil
}

func newService() (*service.NotificationService, *fakePublisher) {
	repo := repository.NewMockNotificationRepository()
	pub := &fakePublisher{}
	svc := service.NewNotificationService(repo, pub, zap.NewNop(), domain.MaxContentBytes)
	return svc, pub
}

var validCreateReq = domain.CreateNotificationRequest{
	ProducerNotificationID: 1,
	ContentType:            "text/plain",
	Content:                []byte("hello"),
}

func TestNotificationService_Create(t *testing.T) {
	svc, pub := newService()
	ctx := context.Background()
	createdBy := uuid.New()

	n, err := svc.Create(ctx, validCreateReq, createdBy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.ID.IsZero() {
		t.Fatal("expected a non-zero ID")
	}
	if n.Status != domain.StatusUndelivered {
		t.Fatalf("expected status=undelivered, got %s", n.Status)
	}
	if len(pub.events) != 1 || pub.events[0].Status != bus.EventNew {
		t.Fatalf("expected a single NEW event, got %v", pub.events)
	}
}

func TestNotificationService_Create_Duplicate(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	createdBy := uuid.New()

	if _, err := svc.Create(ctx, validCreateReq, createdBy); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := svc.Create(ctx, validCreateReq, createdBy)
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestNotificationService_Create_InvalidRequest(t *testing.T) {
	svc, _ := newService()

	bad := validCreateReq
	bad.ContentType = ""
	_, err := svc.Create(context.Background(), bad, uuid.New())
	if !domain.IsValidation(err) {
		t.Fatalf("expected a validation error, got %v", err)
	}
}

func TestNotificationService_FetchUndelivered(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	createdBy := uuid.New()
	recipient := uuid.New()

	req := validCreateReq
	req.UserIDs = []uuid.UUID{recipient}
	if _, err := svc.Create(ctx, req, createdBy); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.FetchUndelivered(ctx, recipient)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 undelivered notification, got %d", len(got))
	}
	if got[0].Status != domain.StatusDelivered {
		t.Fatalf("expected status flipped to delivered, got %s", got[0].Status)
	}

	again, err := svc.FetchUndelivered(ctx, recipient)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(again) != 0 {
		t.Fatal("expected exactly-once delivery: second fetch should be empty")
	}
}

func TestNotificationService_InvalidateAt_Forbidden(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	n, err := svc.Create(ctx, validCreateReq, uuid.New())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = svc.InvalidateAt(ctx, uuid.New(), n.ID, time.Now().UTC().Add(time.Hour))
	if err != domain.ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestNotificationService_SetSeen_And_Delete(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	createdBy := uuid.New()
	recipient := uuid.New()

	req := validCreateReq
	req.UserIDs = []uuid.UUID{recipient}
	n, err := svc.Create(ctx, req, createdBy)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.FetchUndelivered(ctx, recipient); err != nil {
		t.Fatalf("fetch undelivered: %v", err)
	}

	updated, err := svc.SetSeen(ctx, recipient, n.ID, true)
	if err != nil {
		t.Fatalf("set seen: %v", err)
	}
	if !updated.Seen {
		t.Fatal("expected seen=true")
	}

	if err := svc.Delete(ctx, recipient, n.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetDelivered(ctx, recipient, n.ID); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestNotificationService_ConfirmationIngest(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	createdBy := uuid.New()
	recipient := uuid.New()

	req := validCreateReq
	req.UserIDs = []uuid.UUID{recipient}
	n, err := svc.Create(ctx, req, createdBy)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.ConfirmationIngest(ctx, n.ID, recipient, time.Now().UTC()); err != nil {
		t.Fatalf("confirmation ingest: %v", err)
	}

	got, err := svc.GetDelivered(ctx, recipient, n.ID)
	if err != nil {
		t.Fatalf("get delivered: %v", err)
	}
	if got.Status != domain.StatusDelivered {
		t.Fatalf("expected status=delivered, got %s", got.Status)
	}
}
