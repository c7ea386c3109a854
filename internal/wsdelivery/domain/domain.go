// Package domain holds the types shared across WS-Delivery's internal
// packages: the wire frame sent to clients, the per-connection state
// machine, and the bookkeeping entry kept for each unacked frame.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// NetworkStatus reports bus connectivity to the client so it can
// decide whether to fall back to long-polling Core.
type NetworkStatus string

const (
	NetworkOK    NetworkStatus = "OK"
	NetworkError NetworkStatus = "ERROR"
)

// NotificationPayload is the notification half of a WSFrame. Mirrors
// bus.NotificationEvent's shape but is its own type since the two wire
// formats evolve independently.
type NotificationPayload struct {
	ID          string  `json:"id"`
	Status      string  `json:"status"`
	ContentType *string `json:"content_type,omitempty"`
	Content     []byte  `json:"content,omitempty"`
	Seen        *bool   `json:"seen,omitempty"`
}

// WSFrame is the server-to-client wire message. A frame with
// Notification == nil and NetworkStatus == ERROR signals a bus outage;
// nil/OK signals recovery. Every frame, including network-status-only
// frames, goes through the same ack-required push discipline.
type WSFrame struct {
	MessageID        uuid.UUID            `json:"message_id"`
	MessageTimestamp time.Time            `json:"message_timestamp"`
	NetworkStatus    NetworkStatus        `json:"network_status"`
	Notification     *NotificationPayload `json:"notification,omitempty"`
}

// AckFrame is the client-to-server response: an ack carries only the
// message_id of the frame it acknowledges.
type AckFrame struct {
	MessageID uuid.UUID `json:"message_id"`
}

// ConnState is the per-connection state machine driven by the push
// engine.
type ConnState int

const (
	Open ConnState = iota
	Closing
	Closed
)

func (s ConnState) String() string {
	switch s {
	case Open:
		return "open"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// InflightEntry tracks one unacked frame awaiting retransmission or ack.
type InflightEntry struct {
	Payload     []byte
	Attempts    int
	NextRetryAt time.Time
	WasNew      bool
}
