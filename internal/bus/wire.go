// Package bus wraps a single logical AMQP connection shared by both
// services, with reconnect, topology re-declaration, and a lifecycle
// signal consumed by ws-delivery's network-status broadcaster.
//
// Wire payloads are JSON, not generated protobuf: the spec names
// "NotificationProtobuf"/"ConfirmationProtobuf" conceptually, but this
// repo has no protoc pipeline available and none of the retrieved
// example repos vendor generated .pb.go code for a comparable
// notification fan-out path, so hand-authoring a proto.Message
// implementation by hand would not be grounded in anything in the
// corpus. JSON keeps the wire format swappable without touching this
// package's public surface (see DESIGN.md).
package bus

import "time"

// EventStatus is the routing key / payload status for a NotificationEvent.
type EventStatus string

const (
	EventNew     EventStatus = "NEW"
	EventUpdated EventStatus = "UPDATED"
	EventDeleted EventStatus = "DELETED"
)

// NotificationEvent is the notifications-exchange wire payload.
// NEW carries the full notification; UPDATED carries only Seen; DELETED
// carries only NotificationID/Status/Timestamp, per spec §3. NEW and
// UPDATED also carry UserIDs so ws-delivery can route them.
type NotificationEvent struct {
	NotificationID string      `json:"id"`
	Status         EventStatus `json:"status"`
	Timestamp      time.Time   `json:"timestamp"`
	CreatedBy      *string     `json:"created_by,omitempty"`
	Seen           *bool       `json:"seen,omitempty"`
	ContentType    *string     `json:"content_type,omitempty"`
	Content        []byte      `json:"content,omitempty"`
	UserIDs        []string    `json:"user_ids,omitempty"`
}

// Confirmation is the confirmations-exchange wire payload, emitted by
// ws-delivery when a user acks a NEW frame.
type Confirmation struct {
	NotificationID string    `json:"notification_id"`
	UserID         string    `json:"user_id"`
	Timestamp      time.Time `json:"timestamp"`
}

const (
	ExchangeNotifications = "notifications"
	ExchangeConfirmations = "confirmations"
	QueueConfirmations    = "confirmations"
)
