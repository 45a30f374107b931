package topicstore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/petrijr/cascade/internal/codec"
	"github.com/petrijr/cascade/pkg/api"
)

// MongoStore is a TopicStore keeping topic entries as documents in a
// single collection, ordered by insertion.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore constructs a store over db's "topic_entries" collection.
// The caller owns the client.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection("topic_entries")}
}

var _ api.TopicStore = (*MongoStore)(nil)

func (s *MongoStore) Append(ctx context.Context, topic string, v any) error {
	payload, err := codec.Encode(v)
	if err != nil {
		return err
	}
	_, err = s.coll.InsertOne(ctx, bson.M{
		"topic":      topic,
		"payload":    payload,
		"created_at": time.Now().UnixNano(),
	})
	return err
}

func (s *MongoStore) Read(ctx context.Context, topic string) ([]any, error) {
	cur, err := s.coll.Find(ctx, bson.M{"topic": topic},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []any
	for cur.Next(ctx) {
		var doc struct {
			Payload []byte `bson:"payload"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		v, err := codec.Decode(doc.Payload)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, cur.Err()
}

// Close is a no-op: the caller owns the client.
func (s *MongoStore) Close() error { return nil }
