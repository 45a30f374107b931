package topicstore

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/petrijr/cascade/internal/codec"
	"github.com/petrijr/cascade/pkg/api"
)

// RedisStore is a TopicStore keeping each topic in a Redis list:
//
//	<prefix>topic:<name>
//
// Values are gob-encoded.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore constructs a Redis-backed store. prefix is optional but
// recommended (e.g. "cascade:"). The caller owns the client.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "cascade:"
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

var _ api.TopicStore = (*RedisStore)(nil)

func (s *RedisStore) key(topic string) string {
	return s.prefix + "topic:" + topic
}

func (s *RedisStore) Append(ctx context.Context, topic string, v any) error {
	data, err := codec.Encode(v)
	if err != nil {
		return err
	}
	return s.client.RPush(ctx, s.key(topic), data).Err()
}

func (s *RedisStore) Read(ctx context.Context, topic string) ([]any, error) {
	res, err := s.client.LRange(ctx, s.key(topic), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(res))
	for _, raw := range res {
		v, err := codec.Decode([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Close is a no-op: the caller owns the client.
func (s *RedisStore) Close() error { return nil }
