package msgbus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/petrijr/cascade/internal/codec"
	"github.com/petrijr/cascade/pkg/api"
)

// RedisBus is a Bus backed by Redis pub/sub. Channels are namespaced as
//
//	<prefix>bus:<channel>
//
// and values are gob-encoded, so only values announced through a
// RedisBus can be delivered. Each AddSubscriber starts a receive loop on
// its own goroutine; Close tears all of them down.
type RedisBus struct {
	client *redis.Client
	prefix string
	log    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	grp    *errgroup.Group

	mu     sync.Mutex
	closed bool
}

// NewRedisBus constructs a Redis-backed bus. prefix is optional but
// recommended (e.g. "cascade:"). The caller owns the client; Close stops
// the receive loops but leaves the client open.
func NewRedisBus(client *redis.Client, prefix string, logger *slog.Logger) *RedisBus {
	if prefix == "" {
		prefix = "cascade:"
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	grp, ctx := errgroup.WithContext(ctx)
	return &RedisBus{
		client: client,
		prefix: prefix,
		log:    logger,
		ctx:    ctx,
		cancel: cancel,
		grp:    grp,
	}
}

var _ api.Bus = (*RedisBus)(nil)

func (b *RedisBus) key(local string) string {
	return b.prefix + "bus:" + local
}

func (b *RedisBus) AddSubscriber(local string, sub api.Subscriber) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return api.ErrBusClosed
	}

	ps := b.client.Subscribe(b.ctx, b.key(local))
	b.grp.Go(func() error {
		defer func() { _ = ps.Close() }()
		b.receive(ps, local, sub)
		return nil
	})
	return nil
}

func (b *RedisBus) receive(ps *redis.PubSub, local string, sub api.Subscriber) {
	ch := ps.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			v, err := codec.Decode([]byte(msg.Payload))
			if err != nil {
				b.log.Error("bus message decode failed", "channel", local, "error", err)
				continue
			}
			if err := sub.Deliver(b.ctx, v); err != nil {
				b.log.Error("bus delivery failed", "channel", local, "subscriber", sub.ID, "error", err)
			}
		}
	}
}

func (b *RedisBus) Announce(ctx context.Context, local string, v any) error {
	data, err := codec.Encode(v)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.key(local), data).Err()
}

// Close stops all receive loops and waits for them to exit.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	return b.grp.Wait()
}
