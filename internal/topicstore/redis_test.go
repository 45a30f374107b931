package topicstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
)

// The Redis store tests need a live server. Set CASCADE_REDIS_ADDR
// (e.g. "localhost:6379") to run them.
type RedisStoreTestSuite struct {
	suite.Suite
	client *redis.Client
	store  *RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	addr := os.Getenv("CASCADE_REDIS_ADDR")
	if addr == "" {
		t.Skip("CASCADE_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("redis ping failed: %v", err)
	}

	s := new(RedisStoreTestSuite)
	s.client = client
	s.store = NewRedisStore(client, "cascade-test:")
	suite.Run(t, s)
}

func (s *RedisStoreTestSuite) SetupTest() {
	ctx := context.Background()
	keys, err := s.client.Keys(ctx, "cascade-test:*").Result()
	s.Require().NoError(err)
	if len(keys) > 0 {
		s.Require().NoError(s.client.Del(ctx, keys...).Err())
	}
}

func (s *RedisStoreTestSuite) TestRoundTrip() {
	ctx := context.Background()

	s.Require().NoError(s.store.Append(ctx, "orders", "first"))
	s.Require().NoError(s.store.Append(ctx, "orders", "second"))

	vals, err := s.store.Read(ctx, "orders")
	s.Require().NoError(err)
	s.Require().Equal([]any{"first", "second"}, vals)
}

func (s *RedisStoreTestSuite) TestEmptyTopic() {
	vals, err := s.store.Read(context.Background(), "missing")
	s.Require().NoError(err)
	s.Require().Empty(vals)
}
