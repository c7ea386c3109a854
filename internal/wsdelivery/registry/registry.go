// Package registry maps a user to the set of their currently live
// connections, so an inbound notification can be fanned out to every
// device that user has open.
package registry

import (
	"sync"

	"github.com/google/uuid"

	"github.com/notifyhub/realtime/internal/wsdelivery/domain"
)

// EnqueueHandle is the only thing the registry is allowed to hold onto
// for a connection: an identifier and a non-blocking send function.
// The registry never sees the connection struct itself, so it cannot
// accidentally couple fan-out to push-engine internals.
type EnqueueHandle struct {
	ConnID uuid.UUID
	Send   func(domain.WSFrame) (ok bool)
}

// Registry is a user_id -> set<EnqueueHandle> map guarded by a single
// RWMutex, modeled on the teacher's priority-queue discipline of one
// owner per piece of shared state. Deliver and Broadcast copy the
// handles under the read lock and send after releasing it.
type Registry struct {
	mu    sync.RWMutex
	users map[uuid.UUID]map[uuid.UUID]EnqueueHandle
}

func New() *Registry {
	return &Registry{users: make(map[uuid.UUID]map[uuid.UUID]EnqueueHandle)}
}

// Register adds a connection's handle under userID. Call on successful
// WS handshake.
func (r *Registry) Register(userID uuid.UUID, handle EnqueueHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.users[userID]
	if !ok {
		conns = make(map[uuid.UUID]EnqueueHandle)
		r.users[userID] = conns
	}
	conns[handle.ConnID] = handle
}

// Unregister removes a connection. The registry holds no lifetime over
// connections beyond set membership: unregister is authoritative on
// connection death, called unconditionally by the WS handler once the
// push engine's Run has returned.
func (r *Registry) Unregister(userID, connID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.users[userID]
	if !ok {
		return
	}
	delete(conns, connID)
	if len(conns) == 0 {
		delete(r.users, userID)
	}
}

// Deliver pushes frame to every connection registered for userID,
// non-blockingly. A handle whose Send reports failure (its outbox is
// full) is left for the push engine to tear down on its own; the
// registry does not remove entries here, only Unregister does.
func (r *Registry) Deliver(userID uuid.UUID, frame domain.WSFrame) {
	r.mu.RLock()
	conns := make([]EnqueueHandle, 0, len(r.users[userID]))
	for _, h := range r.users[userID] {
		conns = append(conns, h)
	}
	r.mu.RUnlock()

	for _, h := range conns {
		h.Send(frame)
	}
}

// Broadcast pushes frame to every connection currently registered,
// across all users. Used for broadcast notifications (empty
// user_ids) and for the network-status broadcaster.
func (r *Registry) Broadcast(frame domain.WSFrame) {
	r.mu.RLock()
	handles := make([]EnqueueHandle, 0)
	for _, conns := range r.users {
		for _, h := range conns {
			handles = append(handles, h)
		}
	}
	r.mu.RUnlock()

	for _, h := range handles {
		h.Send(frame)
	}
}

// ConnectionCount returns the number of live connections for userID,
// mainly for tests and metrics.
func (r *Registry) ConnectionCount(userID uuid.UUID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[userID])
}
