// Package netstatus tells every connected client when the bus
// connection to Core is down, so clients can fall back to polling
// Core directly instead of waiting on pushes that cannot arrive.
package netstatus

import (
	"context"

	"go.uber.org/zap"

	"github.com/notifyhub/realtime/internal/bus"
	"github.com/notifyhub/realtime/internal/wsdelivery/domain"
	"github.com/notifyhub/realtime/internal/wsdelivery/registry"
)

// Broadcaster watches a bus lifecycle signal and broadcasts a
// network_status frame to every live connection on each transition.
// Takes the channel rather than *bus.Client so it can be driven by a
// fake signal in tests without a real AMQP connection.
type Broadcaster struct {
	signal   <-chan bus.Lifecycle
	registry *registry.Registry
	logger   *zap.Logger
}

func New(signal <-chan bus.Lifecycle, reg *registry.Registry, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{signal: signal, registry: reg, logger: logger}
}

// Run blocks until ctx is cancelled, broadcasting an ERROR frame on
// Down and an OK frame on Up. Meant to run in its own goroutine.
func (b *Broadcaster) Run(ctx context.Context) {
	var last bus.Lifecycle
	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-b.signal:
			if !ok {
				return
			}
			if state == last {
				continue
			}
			last = state
			b.broadcast(state)
		}
	}
}

func (b *Broadcaster) broadcast(state bus.Lifecycle) {
	status := domain.NetworkOK
	if state == bus.Down {
		status = domain.NetworkError
	}
	b.logger.Info("broadcasting network status", zap.String("status", string(status)))
	b.registry.Broadcast(domain.WSFrame{NetworkStatus: status})
}
