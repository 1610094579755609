package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mmynk/campusbuy/internal/models"
	"github.com/mmynk/campusbuy/internal/storage"
)

// CreateUser inserts a new user document.
func (s *MongoStore) CreateUser(ctx context.Context, user *models.User) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.db.Collection(usersCollection).InsertOne(ctx, newUserDoc(user))
	if mongo.IsDuplicateKeyError(err) {
		return storage.ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByEmail finds a user by email address.
func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.D{{Key: "email", Value: email}})
}

// GetUserByID finds a user by ID.
func (s *MongoStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, bson.D{{Key: "_id", Value: id}})
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.D) (*models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var doc userDoc
	err := s.db.Collection(usersCollection).FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return doc.toModel(), nil
}

// GetUserSummaries resolves ids to summaries, projecting only public fields.
func (s *MongoStore) GetUserSummaries(ctx context.Context, ids []string) (map[string]models.UserSummary, error) {
	summaries := make(map[string]models.UserSummary, len(ids))
	if len(ids) == 0 {
		return summaries, nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	projection := bson.D{
		{Key: "firstName", Value: 1},
		{Key: "lastName", Value: 1},
		{Key: "email", Value: 1},
	}
	cursor, err := s.db.Collection(usersCollection).Find(ctx,
		bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}},
		options.Find().SetProjection(projection),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find users: %w", err)
	}

	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	for i := range docs {
		summaries[docs[i].ID] = docs[i].toModel().Summary()
	}
	return summaries, nil
}
