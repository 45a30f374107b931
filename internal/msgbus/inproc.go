// Package msgbus provides the message buses graphs subscribe to: an
// in-process bus for single-process fan-out and a Redis-backed bus for
// crossing process boundaries.
package msgbus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/petrijr/cascade/pkg/api"
)

// InProcBus delivers announced values synchronously to all subscribers
// registered for the channel. Delivery errors are logged and do not stop
// delivery to remaining subscribers.
type InProcBus struct {
	log *slog.Logger

	mu   sync.RWMutex
	subs map[string][]api.Subscriber
}

// NewInProcBus creates an empty in-process bus. If logger is nil,
// slog.Default() is used.
func NewInProcBus(logger *slog.Logger) *InProcBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &InProcBus{
		log:  logger,
		subs: make(map[string][]api.Subscriber),
	}
}

var _ api.Bus = (*InProcBus)(nil)

func (b *InProcBus) AddSubscriber(local string, sub api.Subscriber) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[local] = append(b.subs[local], sub)
	return nil
}

func (b *InProcBus) Announce(ctx context.Context, local string, v any) error {
	b.mu.RLock()
	subs := append([]api.Subscriber(nil), b.subs[local]...)
	b.mu.RUnlock()

	for _, sub := range subs {
		if err := sub.Deliver(ctx, v); err != nil {
			b.log.Error("bus delivery failed", "channel", local, "subscriber", sub.ID, "error", err)
		}
	}
	return nil
}
