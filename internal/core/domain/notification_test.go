package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/notifyhub/realtime/internal/core/domain"
)

func TestCreateNotificationRequest_Validate(t *testing.T) {
	now := time.Now()

	valid := domain.CreateNotificationRequest{
		ProducerNotificationID: 7,
		UserIDs:                []uuid.UUID{uuid.New()},
		ContentType:            "text/plain",
		Content:                []byte("hi"),
	}

	t.Run("valid request passes", func(t *testing.T) {
		if err := valid.Validate(now, 2, domain.MaxContentBytes); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("empty content_type", func(t *testing.T) {
		r := valid
		r.ContentType = ""
		if err := r.Validate(now, 2, domain.MaxContentBytes); !domain.IsValidation(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("content exceeds max", func(t *testing.T) {
		r := valid
		err := r.Validate(now, domain.MaxContentBytes+1, domain.MaxContentBytes)
		if err != domain.ErrPayloadTooLarge {
			t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
		}
	})

	t.Run("content at max length passes", func(t *testing.T) {
		r := valid
		if err := r.Validate(now, domain.MaxContentBytes, domain.MaxContentBytes); err != nil {
			t.Fatalf("expected no error at max length, got %v", err)
		}
	})

	t.Run("invalidate_at before now rejected", func(t *testing.T) {
		r := valid
		past := now.Add(-time.Minute)
		r.InvalidateAt = &past
		if err := r.Validate(now, 2, domain.MaxContentBytes); !domain.IsValidation(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("invalidate_at at or after now accepted", func(t *testing.T) {
		r := valid
		future := now.Add(time.Minute)
		r.InvalidateAt = &future
		if err := r.Validate(now, 2, domain.MaxContentBytes); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})
}

func TestNotification_IsRecipient(t *testing.T) {
	u1, u2 := uuid.New(), uuid.New()

	targeted := domain.Notification{UserIDs: []uuid.UUID{u1}}
	if !targeted.IsRecipient(u1) {
		t.Fatal("expected u1 to be a recipient")
	}
	if targeted.IsRecipient(u2) {
		t.Fatal("expected u2 not to be a recipient")
	}

	broadcast := domain.Notification{}
	if !broadcast.IsRecipient(u1) || !broadcast.IsRecipient(u2) {
		t.Fatal("expected broadcast notification to recipient-match everyone")
	}
}

func TestNotification_IsExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Second)
	future := now.Add(time.Second)

	expired := domain.Notification{InvalidateAt: &past}
	if !expired.IsExpired(now) {
		t.Fatal("expected expired notification")
	}

	notExpired := domain.Notification{InvalidateAt: &future}
	if notExpired.IsExpired(now) {
		t.Fatal("expected non-expired notification")
	}

	noInvalidation := domain.Notification{}
	if noInvalidation.IsExpired(now) {
		t.Fatal("expected notification with no invalidate_at to never expire")
	}
}

func TestNotification_RedactForDeleted(t *testing.T) {
	deliveredAt := time.Now()
	n := domain.Notification{
		ContentType: "text/plain",
		Content:     []byte("secret"),
		DeliveredAt: &deliveredAt,
	}
	n.RedactForDeleted()

	if n.Content != nil || n.ContentType != "" || n.DeliveredAt != nil {
		t.Fatal("expected all optional fields cleared after redaction")
	}
}

func TestNotificationID_RoundTrip(t *testing.T) {
	id, err := domain.NewNotificationID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	parsed, err := domain.ParseNotificationID(id.Hex())
	if err != nil {
		t.Fatalf("unexpected error parsing hex: %v", err)
	}
	if parsed != id {
		t.Fatalf("expected round-trip equality, got %v != %v", parsed, id)
	}
}

func TestParseNotificationID_InvalidLength(t *testing.T) {
	if _, err := domain.ParseNotificationID("abc"); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
