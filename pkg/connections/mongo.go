package connections

import (
	"context"
	"errors"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/notifyhub/pkg/fanout"
)

// MongoStore keeps one document per connection, with the connection ID as _id.
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database, collection string) *MongoStore {
	return &MongoStore{coll: db.Collection(collection)}
}

func (s *MongoStore) Put(ctx context.Context, conn fanout.Connection) error {
	if conn.ConnectionID == "" {
		return ErrEmptyConnectionID
	}
	_, err := s.coll.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: conn.ConnectionID}},
		conn,
		options.Replace().SetUpsert(true),
	)
	return err
}

func (s *MongoStore) Remove(ctx context.Context, connectionID string) error {
	_, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: connectionID}})
	return err
}

func (s *MongoStore) Touch(ctx context.Context, connectionID string, at time.Time) error {
	return s.set(ctx, connectionID, "last_seen", at.Unix())
}

func (s *MongoStore) SetTopics(ctx context.Context, connectionID string, topics []string) error {
	if topics == nil {
		topics = []string{}
	}
	return s.set(ctx, connectionID, "subscribed_topics", slices.Clone(topics))
}

func (s *MongoStore) set(ctx context.Context, connectionID, field string, value any) error {
	res, err := s.coll.UpdateByID(ctx, connectionID, bson.D{
		{Key: "$set", Value: bson.D{{Key: field, Value: value}}},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrConnectionNotFound
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, connectionID string) (fanout.Connection, error) {
	var conn fanout.Connection
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: connectionID}}).Decode(&conn)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fanout.Connection{}, ErrConnectionNotFound
	}
	if err != nil {
		return fanout.Connection{}, err
	}
	return conn.WithDefaults(), nil
}

func (s *MongoStore) All(ctx context.Context) ([]fanout.Connection, error) {
	cur, err := s.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	out := []fanout.Connection{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return normalize(out), nil
}
