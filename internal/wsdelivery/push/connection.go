// Package push implements the per-connection reliable push engine: one
// actor goroutine owns a connection's outbox, inflight frames and
// retry timer, fed by channels so no intra-connection locking is
// needed. Generalizes the teacher's priority-queue "one goroutine owns
// the channel" discipline and the retry worker's ticker-poll shape,
// fused into a single per-connection actor.
package push

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/notifyhub/realtime/internal/wsdelivery/domain"
)

// writeWait bounds how long a control-frame write (ping) may block.
const writeWait = 5 * time.Second

// CloseReason records why a connection's actor loop exited, for logging.
type CloseReason string

const (
	CloseClientClosed CloseReason = "client_closed"
	CloseLagged       CloseReason = "lagged"
	CloseUnresponsive CloseReason = "unresponsive"
	CloseShutdown     CloseReason = "shutdown"
)

type entry struct {
	domain.InflightEntry
	notificationID string
}

// Connection owns the push state for one live WebSocket. Exactly one
// goroutine (Run) ever touches inflight/outbox/state; everything else
// communicates through channels.
type Connection struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	DeviceID uuid.UUID

	conn *websocket.Conn

	outbox chan domain.WSFrame
	ackCh  chan uuid.UUID
	lagCh  chan struct{}

	retryInterval time.Duration
	retryMaxCount int
	pingInterval  time.Duration

	onConfirm func(notificationID string)
	logger    *zap.Logger
}

func New(
	id, userID, deviceID uuid.UUID,
	conn *websocket.Conn,
	bufferSize int,
	retryInterval time.Duration,
	retryMaxCount int,
	pingInterval time.Duration,
	onConfirm func(notificationID string),
	logger *zap.Logger,
) *Connection {
	return &Connection{
		ID:       id,
		UserID:   userID,
		DeviceID: deviceID,
		conn:     conn,

		outbox: make(chan domain.WSFrame, bufferSize),
		ackCh:  make(chan uuid.UUID, bufferSize),
		lagCh:  make(chan struct{}, 1),

		retryInterval: retryInterval,
		retryMaxCount: retryMaxCount,
		pingInterval:  pingInterval,

		onConfirm: onConfirm,
		logger:    logger,
	}
}

// Enqueue assigns a fresh message_id/timestamp and queues frame for
// send. Returns false if the outbox is full, in which case the
// connection marks itself lagged and Run will tear down. This is the
// function handed to the registry as an EnqueueHandle.Send.
func (c *Connection) Enqueue(frame domain.WSFrame) bool {
	frame.MessageID = uuid.New()
	frame.MessageTimestamp = time.Now().UTC()

	select {
	case c.outbox <- frame:
		return true
	default:
		select {
		case c.lagCh <- struct{}{}:
		default:
		}
		return false
	}
}

// HandleAck is called by the read pump when the client acks a
// message_id. Non-blocking: a burst of acks beyond the buffer is
// dropped, which is safe because an unacked frame simply retransmits.
func (c *Connection) HandleAck(messageID uuid.UUID) {
	select {
	case c.ackCh <- messageID:
	default:
	}
}

// Run is the connection's actor loop. It owns inflight/outbox state
// exclusively and returns when ctx is cancelled, the client closes, or
// the connection is torn down for lag/unresponsiveness.
func (c *Connection) Run(ctx context.Context) CloseReason {
	inflight := make(map[uuid.UUID]*entry)

	retryTimer := time.NewTimer(c.retryInterval)
	defer retryTimer.Stop()
	pingTimer := time.NewTimer(c.pingInterval)
	defer pingTimer.Stop()

	resetRetryTimer := func() {
		if !retryTimer.Stop() {
			select {
			case <-retryTimer.C:
			default:
			}
		}
		earliest := time.Time{}
		for _, e := range inflight {
			if earliest.IsZero() || e.NextRetryAt.Before(earliest) {
				earliest = e.NextRetryAt
			}
		}
		if earliest.IsZero() {
			retryTimer.Reset(c.retryInterval)
			return
		}
		d := time.Until(earliest)
		if d < 0 {
			d = 0
		}
		retryTimer.Reset(d)
	}

	send := func(frame domain.WSFrame, wasNew bool, notificationID string) {
		payload, err := json.Marshal(frame)
		if err != nil {
			c.logger.Error("marshal frame failed", zap.Error(err))
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			c.logger.Debug("write frame failed", zap.Error(err))
			return
		}
		inflight[frame.MessageID] = &entry{
			InflightEntry: domain.InflightEntry{
				Payload:     payload,
				Attempts:    0,
				NextRetryAt: time.Now().Add(c.retryInterval),
				WasNew:      wasNew,
			},
			notificationID: notificationID,
		}
		resetRetryTimer()
	}

	resetPingTimer := func() {
		if !pingTimer.Stop() {
			select {
			case <-pingTimer.C:
			default:
			}
		}
		pingTimer.Reset(c.pingInterval)
	}

	for {
		select {
		case <-ctx.Done():
			return CloseShutdown

		case <-c.lagCh:
			return CloseLagged

		case frame := <-c.outbox:
			wasNew := frame.Notification != nil && frame.Notification.Status == "NEW"
			notificationID := ""
			if frame.Notification != nil {
				notificationID = frame.Notification.ID
			}
			send(frame, wasNew, notificationID)

		case messageID := <-c.ackCh:
			resetPingTimer()
			e, ok := inflight[messageID]
			if !ok {
				continue
			}
			delete(inflight, messageID)
			resetRetryTimer()
			if e.WasNew && c.onConfirm != nil {
				c.onConfirm(e.notificationID)
			}

		case <-pingTimer.C:
			// A native WS control frame, not a domain.WSFrame: keepalive
			// must stay distinct from the NetworkOK application frame,
			// which clients interpret as "bus reconnected, resync now".
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.logger.Debug("ping write failed", zap.Error(err))
				return CloseClientClosed
			}
			resetPingTimer()

		case <-retryTimer.C:
			now := time.Now()
			for _, e := range inflight {
				if e.NextRetryAt.After(now) {
					continue
				}
				if e.Attempts >= c.retryMaxCount {
					return CloseUnresponsive
				}
				if err := c.conn.WriteMessage(websocket.TextMessage, e.Payload); err != nil {
					c.logger.Debug("retry write failed", zap.Error(err))
					return CloseClientClosed
				}
				e.Attempts++
				e.NextRetryAt = now.Add(c.retryInterval)
			}
			resetRetryTimer()
		}
	}
}
