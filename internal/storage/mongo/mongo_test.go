package mongo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/campusbuy/internal/models"
	"github.com/mmynk/campusbuy/internal/storage"
)

// newTestStore connects to CAMPUSBUY_TEST_MONGO_URI and uses a throwaway
// database. Tests are skipped when the variable is unset.
func newTestStore(t *testing.T) *MongoStore {
	t.Helper()

	uri := os.Getenv("CAMPUSBUY_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("CAMPUSBUY_TEST_MONGO_URI not set")
	}

	ctx := context.Background()
	dbName := fmt.Sprintf("campusbuy_test_%s", uuid.New().String()[:8])
	store, err := New(ctx, uri, dbName, 5*time.Second)
	require.NoError(t, err)

	t.Cleanup(func() {
		store.db.Drop(context.Background())
		store.Close()
	})
	return store
}

func TestMongoGroupLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	group := &models.Group{
		Name:         "Bulk textbooks",
		Description:  "Pooling for the semester reading list",
		CreatorID:    "alice",
		Members:      []string{"alice"},
		MaxMembers:   2,
		Category:     "books",
		TargetAmount: 100,
		Status:       models.GroupOpen,
		ExpiryDate:   time.Now().Add(24 * time.Hour),
	}
	require.NoError(t, store.CreateGroup(ctx, group))
	assert.EqualValues(t, 1, group.Version)

	stale := group.Clone()
	group.Name = "Renamed"
	require.NoError(t, store.UpdateGroup(ctx, group))
	assert.ErrorIs(t, store.UpdateGroup(ctx, stale), storage.ErrVersionConflict)

	updated, err := store.CreateContribution(ctx, &models.Contribution{
		GroupID: group.ID, ContributorID: "alice", Amount: 60, Status: models.ContributionCompleted,
	}, time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 60, updated.CurrentAmount)
	assert.Equal(t, models.GroupOpen, updated.Status)

	_, err = store.CreateContribution(ctx, &models.Contribution{
		GroupID: group.ID, ContributorID: "alice", Amount: 50, Status: models.ContributionCompleted,
	}, time.Now())
	assert.ErrorIs(t, err, storage.ErrExceedsTarget)

	updated, err = store.CreateContribution(ctx, &models.Contribution{
		GroupID: group.ID, ContributorID: "alice", Amount: 40, Status: models.ContributionCompleted,
	}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.GroupCompleted, updated.Status)

	list, err := store.ListContributionsByGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	groups, err := store.ListGroups(ctx, storage.GroupFilter{MemberID: "alice"})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Renamed", groups[0].Name)

	require.NoError(t, store.DeleteGroup(ctx, group.ID, updated.Version))
	_, err = store.GetGroup(ctx, group.ID)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestMongoDuplicateEmail(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateUser(ctx, models.NewUser("a@example.com", "A", "B", "hash")))
	err := store.CreateUser(ctx, models.NewUser("a@example.com", "C", "D", "hash"))
	assert.ErrorIs(t, err, storage.ErrDuplicateEmail)
}
