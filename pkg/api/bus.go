package api

import "context"

// Subscriber is a delivery target registered against a Bus. When a value
// is produced on the channel the subscriber is registered for, the bus
// invokes Deliver.
type Subscriber struct {
	ID      string
	Deliver func(ctx context.Context, v any) error
}

// Bus is an external message bus, opaque to the core. Implementations live
// outside this package; an in-process bus and a Redis-backed bus ship with
// the library.
type Bus interface {
	// AddSubscriber registers sub for values produced on local.
	AddSubscriber(local string, sub Subscriber) error

	// Announce produces a value on local, delivering it to all
	// registered subscribers.
	Announce(ctx context.Context, local string, v any) error
}

// TopicStore is a write sink for publisher nodes: an append-only store of
// values keyed by topic.
type TopicStore interface {
	Append(ctx context.Context, topic string, v any) error

	// Read returns all values appended to topic, in append order.
	Read(ctx context.Context, topic string) ([]any, error)

	Close() error
}

// PublishConfig describes a publisher node: the topic it writes and the
// store it writes into.
type PublishConfig struct {
	Topic string
	Store TopicStore
}
