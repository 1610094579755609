// Package mongo provides a MongoDB-backed implementation of the storage.Store
// interface. Documents use UUID strings as _id so identifiers look the same
// regardless of backend.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/mmynk/campusbuy/internal/storage"
)

var _ storage.Store = (*MongoStore)(nil)

const (
	usersCollection         = "users"
	groupsCollection        = "groups"
	contributionsCollection = "contributions"
)

// MongoStore implements storage.Store on a MongoDB database.
type MongoStore struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
}

// New connects to uri, selects database and ensures indexes exist.
// timeout bounds every individual database call.
func New(ctx context.Context, uri, database string, timeout time.Duration) (*MongoStore, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	s := &MongoStore{client: client, db: client.Database(database), timeout: timeout}
	if err := s.ensureIndexes(connectCtx); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		groupsCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "category", Value: 1}}},
			{Keys: bson.D{{Key: "creator", Value: 1}}},
			{Keys: bson.D{{Key: "members", Value: 1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
		contributionsCollection: {
			{Keys: bson.D{{Key: "group", Value: 1}, {Key: "contributor", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
	}
	for name, idx := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// withTimeout derives a per-call context.
func (s *MongoStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// Ping checks connectivity to the primary.
func (s *MongoStore) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}
