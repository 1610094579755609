package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mmynk/campusbuy/internal/models"
	"github.com/mmynk/campusbuy/internal/storage"
)

var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

// CreateGroup inserts a new group document.
func (s *MongoStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	if group.CreatedAt.IsZero() {
		group.CreatedAt = now
	}
	group.UpdatedAt = now
	group.Version = 1

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.db.Collection(groupsCollection).InsertOne(ctx, newGroupDoc(group)); err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}
	return nil
}

// GetGroup finds a group by ID.
func (s *MongoStore) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var doc groupDoc
	err := s.db.Collection(groupsCollection).FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return doc.toModel(), nil
}

// ListGroups finds groups matching filter, newest first.
func (s *MongoStore) ListGroups(ctx context.Context, filter storage.GroupFilter) ([]*models.Group, error) {
	query := bson.D{}
	if filter.Status != "" {
		query = append(query, bson.E{Key: "status", Value: string(filter.Status)})
	}
	if filter.Category != "" {
		query = append(query, bson.E{Key: "category", Value: filter.Category})
	}
	if filter.CreatorID != "" {
		query = append(query, bson.E{Key: "creator", Value: filter.CreatorID})
	}
	if filter.MemberID != "" {
		query = append(query, bson.E{Key: "members", Value: filter.MemberID})
	}
	return s.findGroups(ctx, query, options.Find().SetSort(newestFirst))
}

// ListExpiredOpenGroups finds open groups whose expiry has passed.
func (s *MongoStore) ListExpiredOpenGroups(ctx context.Context, now time.Time) ([]*models.Group, error) {
	query := bson.D{
		{Key: "status", Value: string(models.GroupOpen)},
		{Key: "expiryDate", Value: bson.D{{Key: "$lte", Value: now}}},
	}
	return s.findGroups(ctx, query, options.Find().SetSort(bson.D{{Key: "expiryDate", Value: 1}}))
}

func (s *MongoStore) findGroups(ctx context.Context, query bson.D, opts *options.FindOptions) ([]*models.Group, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cursor, err := s.db.Collection(groupsCollection).Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	var docs []groupDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode groups: %w", err)
	}

	groups := make([]*models.Group, 0, len(docs))
	for i := range docs {
		groups = append(groups, docs[i].toModel())
	}
	return groups, nil
}

// UpdateGroup replaces the group document if its version still matches.
func (s *MongoStore) UpdateGroup(ctx context.Context, group *models.Group) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	doc := newGroupDoc(group)
	doc.Version = group.Version + 1
	doc.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)

	coll := s.db.Collection(groupsCollection)
	result, err := coll.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: group.ID}, {Key: "version", Value: group.Version}},
		doc,
	)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	if result.MatchedCount == 0 {
		return s.versionMismatch(ctx, group.ID)
	}

	group.Version = doc.Version
	group.UpdatedAt = doc.UpdatedAt
	return nil
}

// DeleteGroup removes the group document and its contributions if its
// version still matches.
func (s *MongoStore) DeleteGroup(ctx context.Context, id string, version int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	coll := s.db.Collection(groupsCollection)
	result, err := coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}, {Key: "version", Value: version}})
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	if result.DeletedCount == 0 {
		return s.versionMismatch(ctx, id)
	}

	if _, err := s.db.Collection(contributionsCollection).DeleteMany(ctx, bson.D{{Key: "group", Value: id}}); err != nil {
		return fmt.Errorf("failed to delete group contributions: %w", err)
	}
	return nil
}

// versionMismatch tells a missing group apart from a stale version.
func (s *MongoStore) versionMismatch(ctx context.Context, id string) error {
	n, err := s.db.Collection(groupsCollection).CountDocuments(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("failed to check group existence: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return storage.ErrVersionConflict
}
