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

// CreateContribution inserts the contribution and then applies it to the
// group with one guarded FindOneAndUpdate. If the update does not apply the
// contribution document is removed again, even when ctx is already done.
func (s *MongoStore) CreateContribution(ctx context.Context, c *models.Contribution, now time.Time) (*models.Group, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now.UTC().Truncate(time.Millisecond)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	groups := s.db.Collection(groupsCollection)
	contributions := s.db.Collection(contributionsCollection)

	n, err := groups.CountDocuments(ctx, bson.D{{Key: "_id", Value: c.GroupID}})
	if err != nil {
		return nil, fmt.Errorf("failed to check group existence: %w", err)
	}
	if n == 0 {
		return nil, storage.ErrNotFound
	}

	if _, err := contributions.InsertOne(ctx, newContributionDoc(c)); err != nil {
		return nil, fmt.Errorf("failed to insert contribution: %w", err)
	}

	amount := int64(c.Amount)
	guard := bson.D{
		{Key: "_id", Value: c.GroupID},
		{Key: "status", Value: string(models.GroupOpen)},
		{Key: "expiryDate", Value: bson.D{{Key: "$gt", Value: now}}},
		{Key: "members", Value: c.ContributorID},
		{Key: "$expr", Value: bson.D{{Key: "$lte", Value: bson.A{
			bson.D{{Key: "$add", Value: bson.A{"$currentAmount", amount}}},
			"$targetAmount",
		}}}},
	}
	// The second stage sees the incremented amount.
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "currentAmount", Value: bson.D{{Key: "$add", Value: bson.A{"$currentAmount", amount}}}},
			{Key: "version", Value: bson.D{{Key: "$add", Value: bson.A{"$version", 1}}}},
			{Key: "updatedAt", Value: now},
		}}},
		{{Key: "$set", Value: bson.D{
			{Key: "status", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$gte", Value: bson.A{"$currentAmount", "$targetAmount"}}},
				string(models.GroupCompleted),
				"$status",
			}}}},
		}}},
	}

	var doc groupDoc
	err = groups.FindOneAndUpdate(ctx, guard, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err == nil {
		return doc.toModel(), nil
	}

	if delErr := s.discardContribution(ctx, c.ID); delErr != nil {
		return nil, fmt.Errorf("failed to remove rejected contribution %s: %w", c.ID, delErr)
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to increment group amount: %w", err)
	}

	var current groupDoc
	if err := groups.FindOne(ctx, bson.D{{Key: "_id", Value: c.GroupID}}).Decode(&current); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return nil, storage.RejectionReason(current.toModel(), c.ContributorID, now)
}

// discardContribution deletes a contribution whose increment did not apply.
// It runs on its own deadline so a cancelled or timed-out request cannot
// leave an unapplied contribution in the ledger.
func (s *MongoStore) discardContribution(ctx context.Context, id string) error {
	ctx, cancel := s.withTimeout(context.WithoutCancel(ctx))
	defer cancel()

	_, err := s.db.Collection(contributionsCollection).DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	return err
}

// ListContributionsByGroup finds a group's contributions, newest first.
func (s *MongoStore) ListContributionsByGroup(ctx context.Context, groupID string) ([]*models.Contribution, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cursor, err := s.db.Collection(contributionsCollection).Find(ctx,
		bson.D{{Key: "group", Value: groupID}},
		options.Find().SetSort(newestFirst),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list contributions by group: %w", err)
	}

	var docs []contributionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode contributions: %w", err)
	}

	contributions := make([]*models.Contribution, 0, len(docs))
	for i := range docs {
		contributions = append(contributions, docs[i].toModel())
	}
	return contributions, nil
}
