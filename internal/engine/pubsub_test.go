package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/cascade/pkg/api"
)

// fakeBus is a minimal in-test bus keeping subscribers per channel.
type fakeBus struct {
	mu   sync.Mutex
	subs map[string][]api.Subscriber
}

func newFakeBus() *fakeBus {
	return &fakeBus{subs: make(map[string][]api.Subscriber)}
}

func (b *fakeBus) AddSubscriber(local string, sub api.Subscriber) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[local] = append(b.subs[local], sub)
	return nil
}

func (b *fakeBus) Announce(ctx context.Context, local string, v any) error {
	b.mu.Lock()
	subs := append([]api.Subscriber(nil), b.subs[local]...)
	b.mu.Unlock()
	for _, s := range subs {
		if err := s.Deliver(ctx, v); err != nil {
			return err
		}
	}
	return nil
}

// fakeStore records appends per topic.
type fakeStore struct {
	mu     sync.Mutex
	topics map[string][]any
}

func newFakeStore() *fakeStore {
	return &fakeStore{topics: make(map[string][]any)}
}

func (s *fakeStore) Append(ctx context.Context, topic string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics[topic] = append(s.topics[topic], v)
	return nil
}

func (s *fakeStore) Read(ctx context.Context, topic string) ([]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]any(nil), s.topics[topic]...), nil
}

func (s *fakeStore) Close() error { return nil }

func TestSubscribeDeliversToIngress(t *testing.T) {
	t.Parallel()

	root := api.NewNode(identity, api.WithID("root"))
	require.NoError(t, FIFOIn(root))

	bus := newFakeBus()
	sub := api.NewNode(nil, api.WithID("events"))
	require.NoError(t, Subscribe(bus, sub, root))

	require.NoError(t, bus.Announce(context.Background(), "events", "hello"))

	v, ok := root.Runtime.In()
	require.True(t, ok)
	require.Equal(t, "hello", v)
}

func TestSubscribeRejectsTransformingSubscriber(t *testing.T) {
	t.Parallel()

	root := api.NewNode(identity, api.WithID("root"))
	require.NoError(t, FIFOIn(root))

	sub := api.NewNode(identity, api.WithID("events"))
	require.Error(t, Subscribe(newFakeBus(), sub, root))
}

func TestSubscribeRequiresLoweredGraph(t *testing.T) {
	t.Parallel()

	root := api.NewNode(identity, api.WithID("root"))
	sub := api.NewNode(nil, api.WithID("events"))
	require.ErrorIs(t, Subscribe(newFakeBus(), sub, root), api.ErrNotLowered)
}

func TestPublishAppendsChildAndWritesTopic(t *testing.T) {
	t.Parallel()

	root := api.NewNode(identity, api.WithID("root"))
	store := newFakeStore()

	pub, err := Publish(nil, "root", api.PublishConfig{Topic: "out", Store: store}, root, nil)
	require.NoError(t, err)
	require.Len(t, root.Children, 1)
	require.Same(t, pub, root.Children[0])

	require.NoError(t, RunSync(context.Background(), root, []any{"a", "b"}, nil))

	vals, err := store.Read(context.Background(), "out")
	require.NoError(t, err)
	require.Equal(t, []any{"a", "b"}, vals)
}

func TestPublishPreconditions(t *testing.T) {
	t.Parallel()

	root := api.NewNode(identity, api.WithID("root"))
	store := newFakeStore()

	_, err := Publish(nil, "root", api.PublishConfig{Store: store}, root, nil)
	require.Error(t, err, "missing topic")

	_, err = Publish(nil, "root", api.PublishConfig{Topic: "out"}, root, nil)
	require.Error(t, err, "missing store")

	_, err = Publish(nil, "nope", api.PublishConfig{Topic: "out", Store: store}, root, nil)
	require.ErrorIs(t, err, api.ErrNodeNotFound)
}

func TestPublishAnnouncesOnBus(t *testing.T) {
	t.Parallel()

	// Producer graph publishes; a second graph subscribes to the topic.
	producer := api.NewNode(identity, api.WithID("producer"))
	store := newFakeStore()
	bus := newFakeBus()

	_, err := Publish(bus, "producer", api.PublishConfig{Topic: "fanout", Store: store}, producer, nil)
	require.NoError(t, err)

	consumerLeaf := &collector{}
	consumer := api.NewNode(consumerLeaf.transform, api.WithID("consumer"), api.WithThreads(1))
	require.NoError(t, RunPool(consumer, testPoolOptions()))
	defer KillGraph(consumer, nil)

	require.NoError(t, Subscribe(bus, api.NewNode(nil, api.WithID("fanout")), consumer))

	require.NoError(t, RunSync(context.Background(), producer, []any{1, 2}, nil))

	require.Eventually(t, func() bool {
		return len(consumerLeaf.values()) == 2
	}, 10*time.Second, 5*time.Millisecond)
	require.ElementsMatch(t, []any{1, 2}, consumerLeaf.values())
}
