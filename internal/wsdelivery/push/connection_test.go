package push_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/notifyhub/realtime/internal/wsdelivery/domain"
	"github.com/notifyhub/realtime/internal/wsdelivery/push"
)

// dial spins up a loopback WS server and returns the server-side conn
// (handed to the push engine under test) and the client-side conn the
// test drives directly, standing in for a real browser client.
func dial(t *testing.T) (server, client *websocket.Conn, cleanup func()) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	serverCh := make(chan *websocket.Conn, 1)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		serverCh <- conn
	}))

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	c, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("client dial failed: %v", err)
	}

	s := <-serverCh

	return s, c, func() {
		c.Close()
		s.Close()
		ts.Close()
	}
}

func readFrame(t *testing.T, client *websocket.Conn) domain.WSFrame {
	t.Helper()
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("read frame failed: %v", err)
	}
	var frame domain.WSFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("unmarshal frame failed: %v", err)
	}
	return frame
}

func TestConnection_EnqueueDeliveredAndAcked(t *testing.T) {
	server, client, cleanup := dial(t)
	defer cleanup()

	var confirmed []string
	conn := push.New(
		uuid.New(), uuid.New(), uuid.New(),
		server, 16,
		50*time.Millisecond, 5, time.Hour,
		func(id string) { confirmed = append(confirmed, id) },
		zap.NewNop(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan push.CloseReason, 1)
	go func() { done <- conn.Run(ctx) }()

	status := "NEW"
	conn.Enqueue(domain.WSFrame{Notification: &domain.NotificationPayload{ID: "notif-1", Status: status}})

	frame := readFrame(t, client)
	if frame.Notification == nil || frame.Notification.ID != "notif-1" {
		t.Fatalf("expected to receive notif-1, got %+v", frame)
	}

	// the read pump that turns wire acks into HandleAck calls lives in
	// the api package; here we call it directly as that pump would.
	conn.HandleAck(frame.MessageID)

	deadline := time.After(time.Second)
	for len(confirmed) == 0 {
		select {
		case <-deadline:
			t.Fatal("expected confirmation callback for acked NEW frame")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}

	if confirmed[0] != "notif-1" {
		t.Fatalf("expected confirmation for notif-1, got %v", confirmed)
	}

	cancel()
	if reason := <-done; reason != push.CloseShutdown {
		t.Fatalf("expected shutdown close reason, got %s", reason)
	}
}

func TestConnection_RetransmitsUnackedFrame(t *testing.T) {
	server, client, cleanup := dial(t)
	defer cleanup()

	conn := push.New(
		uuid.New(), uuid.New(), uuid.New(),
		server, 16,
		20*time.Millisecond, 5, time.Hour,
		nil,
		zap.NewNop(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan push.CloseReason, 1)
	go func() { done <- conn.Run(ctx) }()

	conn.Enqueue(domain.WSFrame{Notification: &domain.NotificationPayload{ID: "notif-2", Status: "NEW"}})

	first := readFrame(t, client)
	second := readFrame(t, client)

	if first.MessageID != second.MessageID {
		t.Fatalf("expected retransmit to reuse the same message_id, got %s vs %s", first.MessageID, second.MessageID)
	}

	cancel()
	<-done
}

func TestConnection_TearsDownAfterRetryExhaustion(t *testing.T) {
	server, client, cleanup := dial(t)
	defer cleanup()

	conn := push.New(
		uuid.New(), uuid.New(), uuid.New(),
		server, 16,
		5*time.Millisecond, 2, time.Hour,
		nil,
		zap.NewNop(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan push.CloseReason, 1)
	go func() { done <- conn.Run(ctx) }()

	conn.Enqueue(domain.WSFrame{Notification: &domain.NotificationPayload{ID: "notif-3", Status: "NEW"}})

	// drain retransmits without acking, forcing exhaustion.
	for i := 0; i < 4; i++ {
		client.SetReadDeadline(time.Now().Add(time.Second))
		if _, _, err := client.ReadMessage(); err != nil {
			break
		}
	}

	select {
	case reason := <-done:
		if reason != push.CloseUnresponsive {
			t.Fatalf("expected unresponsive close reason, got %s", reason)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected connection to tear down after exhausting retries")
	}
}

func TestConnection_LagTeardownWhenOutboxFull(t *testing.T) {
	server, client, cleanup := dial(t)
	defer cleanup()
	_ = client

	conn := push.New(
		uuid.New(), uuid.New(), uuid.New(),
		server, 1,
		time.Hour, 5, time.Hour,
		nil,
		zap.NewNop(),
	)

	// fill the outbox and overflow it before the actor goroutine starts
	// draining, so the overflow is deterministic regardless of scheduling.
	overflowed := false
	for i := 0; i < 10; i++ {
		if !conn.Enqueue(domain.WSFrame{Notification: &domain.NotificationPayload{ID: "flood", Status: "NEW"}}) {
			overflowed = true
			break
		}
	}
	if !overflowed {
		t.Fatal("expected outbox to overflow before the actor started draining")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan push.CloseReason, 1)
	go func() { done <- conn.Run(ctx) }()

	select {
	case reason := <-done:
		if reason != push.CloseLagged {
			t.Fatalf("expected lagged close reason, got %s", reason)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected connection to tear down once the outbox overflowed")
	}
}
