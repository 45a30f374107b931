// Package topicstore provides the persistent write sinks behind publisher
// nodes: append-only stores of values keyed by topic, with in-memory,
// SQLite, Postgres, Redis and Mongo backends.
package topicstore

import (
	"context"
	"sync"

	"github.com/petrijr/cascade/pkg/api"
)

// MemoryStore is a non-durable TopicStore for tests and local use.
// It is safe for concurrent use.
type MemoryStore struct {
	mu     sync.Mutex
	topics map[string][]any
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{topics: make(map[string][]any)}
}

var _ api.TopicStore = (*MemoryStore)(nil)

func (s *MemoryStore) Append(ctx context.Context, topic string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics[topic] = append(s.topics[topic], v)
	return nil
}

func (s *MemoryStore) Read(ctx context.Context, topic string) ([]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]any(nil), s.topics[topic]...), nil
}

func (s *MemoryStore) Close() error { return nil }
