package topicstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// The Mongo store tests need a live server. Set CASCADE_MONGO_URI
// (e.g. "mongodb://localhost:27017") to run them.
func newTestMongoStore(t *testing.T) *MongoStore {
	t.Helper()

	uri := os.Getenv("CASCADE_MONGO_URI")
	if uri == "" {
		t.Skip("CASCADE_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx, nil))
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	db := client.Database("cascade_test")
	_, err = db.Collection("topic_entries").DeleteMany(ctx, bson.M{})
	require.NoError(t, err)

	return NewMongoStore(db)
}

func TestMongoStoreRoundTrip(t *testing.T) {
	s := newTestMongoStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "orders", "first"))
	require.NoError(t, s.Append(ctx, "orders", "second"))
	require.NoError(t, s.Append(ctx, "audit", 7))

	vals, err := s.Read(ctx, "orders")
	require.NoError(t, err)
	require.Equal(t, []any{"first", "second"}, vals, "append order preserved")

	vals, err = s.Read(ctx, "audit")
	require.NoError(t, err)
	require.Equal(t, []any{7}, vals)
}

func TestMongoStoreEmptyTopic(t *testing.T) {
	s := newTestMongoStore(t)

	vals, err := s.Read(context.Background(), "missing")
	require.NoError(t, err)
	require.Empty(t, vals)
}
