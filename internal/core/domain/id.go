package domain

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

// NotificationID is the opaque 12-byte identifier described by the data
// model: a 4-byte timestamp prefix followed by an 8-byte random+counter
// tail, hex-serialised at the edge. The shape mirrors the ObjectID
// convention used across document-store-backed services in the corpus,
// generalised here with crypto/rand instead of a machine/process
// discriminator, since this service has no multi-process id authority
// to disambiguate.
type NotificationID [12]byte

var idCounter uint32

// NewNotificationID mints a fresh id: now (4 bytes, big-endian seconds)
// plus a random 5-byte body plus a 3-byte rolling counter to keep ids
// generated within the same second from colliding under concurrent load.
func NewNotificationID() (NotificationID, error) {
	var id NotificationID
	binary.BigEndian.PutUint32(id[0:4], uint32(time.Now().Unix()))

	if _, err := rand.Read(id[4:9]); err != nil {
		return NotificationID{}, fmt.Errorf("generate notification id: %w", err)
	}

	c := atomic.AddUint32(&idCounter, 1)
	id[9] = byte(c >> 16)
	id[10] = byte(c >> 8)
	id[11] = byte(c)
	return id, nil
}

func (id NotificationID) Hex() string {
	return hex.EncodeToString(id[:])
}

func (id NotificationID) IsZero() bool {
	return id == NotificationID{}
}

// ParseNotificationID decodes the 24-char hex form used at the HTTP edge.
func ParseNotificationID(s string) (NotificationID, error) {
	var id NotificationID
	if len(s) != 24 {
		return id, ErrValidation("id must be 24 hex characters")
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, ErrValidation("id must be hex-encoded")
	}
	copy(id[:], b)
	return id, nil
}
