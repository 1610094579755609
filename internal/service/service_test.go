package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mmynk/campusbuy/internal/models"
	"github.com/mmynk/campusbuy/internal/storage/sqlite"
)

// fixture wires the services to a temp SQLite database and a controllable
// clock.
type fixture struct {
	store         *sqlite.SQLiteStore
	groups        *GroupService
	contributions *ContributionService
	now           time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	f := &fixture{store: store, now: time.Now().UTC().Truncate(time.Millisecond)}
	f.groups = NewGroupService(store)
	f.groups.now = func() time.Time { return f.now }
	f.contributions = NewContributionService(store, f.groups)
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fixture) user(t *testing.T, name string) string {
	t.Helper()
	u := models.NewUser(name+"@campus.edu", name, "Tester", "hash")
	require.NoError(t, f.store.CreateUser(context.Background(), u))
	return u.ID
}

func (f *fixture) createGroup(t *testing.T, creatorID string, maxMembers int, target models.Cents) *models.GroupDetail {
	t.Helper()
	g, err := f.groups.CreateGroup(context.Background(), creatorID, CreateGroupCommand{
		Name:         "Bulk rice order",
		Description:  "Pooling for a 25kg bag of rice",
		MaxMembers:   maxMembers,
		Category:     "groceries",
		TargetAmount: target,
		ExpiryDate:   f.now.Add(7 * 24 * time.Hour),
		Rules:        []string{"Pick up at the dorm lobby"},
	})
	require.NoError(t, err)
	return g
}

func (f *fixture) reload(t *testing.T, id string) *models.Group {
	t.Helper()
	g, err := f.store.GetGroup(context.Background(), id)
	require.NoError(t, err)
	return g
}

// checkInvariants asserts the model invariants that must hold after every
// operation.
func checkInvariants(t *testing.T, g *models.Group) {
	t.Helper()
	require.LessOrEqual(t, int64(g.CurrentAmount), int64(g.TargetAmount), "current amount exceeds target")
	if g.CurrentAmount >= g.TargetAmount {
		require.Equal(t, models.GroupCompleted, g.Status, "reached target without completing")
	}
	require.Contains(t, g.Members, g.CreatorID, "creator is not a member")
	require.LessOrEqual(t, len(g.Members), g.MaxMembers, "members exceed max")
	if len(g.Members) == g.MaxMembers {
		require.NotEqual(t, models.GroupOpen, g.Status, "full group still open")
	}
}

var concurrencyWorkers = 10

func runConcurrently(n int, fn func(i int)) {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fn(i)
		}(i)
	}
	wg.Wait()
}
