package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mmynk/campusbuy/internal/models"
	"github.com/mmynk/campusbuy/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewCreatesParentDirectories(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "data", "nested", "campusbuy.db")
	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store in missing directory: %v", err)
	}
	defer store.Close()

	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func newTestGroup(creator string, target models.Cents, maxMembers int) *models.Group {
	return &models.Group{
		Name:         "Bulk textbooks",
		Description:  "Pooling for the semester reading list",
		CreatorID:    creator,
		Members:      []string{creator},
		MaxMembers:   maxMembers,
		Category:     "books",
		TargetAmount: target,
		Status:       models.GroupOpen,
		ExpiryDate:   time.Now().Add(7 * 24 * time.Hour),
		Rules:        []string{"Pay within 48h"},
	}
}

func TestUsers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := models.NewUser("Alice@Example.com", "Alice", "Smith", "hash")
	if err := store.CreateUser(ctx, alice); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	t.Run("GetUserByEmail", func(t *testing.T) {
		got, err := store.GetUserByEmail(ctx, "alice@example.com")
		if err != nil {
			t.Fatalf("GetUserByEmail failed: %v", err)
		}
		if got.ID != alice.ID || got.Role != models.RoleStudent || got.Level != 1 {
			t.Errorf("unexpected user: %+v", got)
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		dup := models.NewUser("alice@example.com", "Other", "Alice", "hash")
		err := store.CreateUser(ctx, dup)
		if !errors.Is(err, storage.ErrDuplicateEmail) {
			t.Errorf("expected ErrDuplicateEmail, got %v", err)
		}
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := store.GetUserByID(ctx, "nonexistent-id")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("GetUserSummaries omits unknown ids", func(t *testing.T) {
		got, err := store.GetUserSummaries(ctx, []string{alice.ID, "ghost"})
		if err != nil {
			t.Fatalf("GetUserSummaries failed: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("expected 1 summary, got %d", len(got))
		}
		if got[alice.ID].FirstName != "Alice" {
			t.Errorf("unexpected summary: %+v", got[alice.ID])
		}
	})
}

func TestGroups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateGroup generates ID and version", func(t *testing.T) {
		group := newTestGroup("alice", 100, 5)
		if err := store.CreateGroup(ctx, group); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		if group.ID == "" {
			t.Error("Expected group ID to be generated")
		}
		if group.Version != 1 {
			t.Errorf("Version = %d, want 1", group.Version)
		}
		if group.CreatedAt.IsZero() {
			t.Error("Expected CreatedAt to be set")
		}
	})

	t.Run("GetGroup retrieves complete group", func(t *testing.T) {
		original := newTestGroup("bob", 250, 4)
		original.Image = "https://example.com/books.png"
		original.Members = append(original.Members, "carol")
		if err := store.CreateGroup(ctx, original); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}

		got, err := store.GetGroup(ctx, original.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if got.Name != original.Name || got.CreatorID != "bob" || got.TargetAmount != 250 {
			t.Errorf("unexpected group: %+v", got)
		}
		if len(got.Members) != 2 || got.Members[1] != "carol" {
			t.Errorf("Members = %v", got.Members)
		}
		if len(got.Rules) != 1 || got.Rules[0] != "Pay within 48h" {
			t.Errorf("Rules = %v", got.Rules)
		}
		if got.Image != original.Image {
			t.Errorf("Image = %q", got.Image)
		}
		if got.ExpiryDate.UnixMilli() != original.ExpiryDate.UnixMilli() {
			t.Errorf("ExpiryDate = %v, want %v", got.ExpiryDate, original.ExpiryDate)
		}
	})

	t.Run("GetGroup returns ErrNotFound", func(t *testing.T) {
		_, err := store.GetGroup(ctx, "nonexistent-id")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("UpdateGroup checks version", func(t *testing.T) {
		group := newTestGroup("dave", 100, 3)
		if err := store.CreateGroup(ctx, group); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}

		stale := group.Clone()

		group.Name = "Renamed"
		group.Members = append(group.Members, "erin")
		if err := store.UpdateGroup(ctx, group); err != nil {
			t.Fatalf("UpdateGroup failed: %v", err)
		}
		if group.Version != 2 {
			t.Errorf("Version = %d, want 2", group.Version)
		}

		stale.Name = "Lost update"
		if err := store.UpdateGroup(ctx, stale); !errors.Is(err, storage.ErrVersionConflict) {
			t.Errorf("expected ErrVersionConflict, got %v", err)
		}

		got, err := store.GetGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if got.Name != "Renamed" || len(got.Members) != 2 {
			t.Errorf("unexpected group after update: %+v", got)
		}
	})

	t.Run("UpdateGroup on missing group", func(t *testing.T) {
		ghost := newTestGroup("x", 10, 2)
		ghost.ID = "nonexistent-id"
		ghost.Version = 1
		if err := store.UpdateGroup(ctx, ghost); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("DeleteGroup", func(t *testing.T) {
		group := newTestGroup("frank", 100, 2)
		if err := store.CreateGroup(ctx, group); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		if err := store.DeleteGroup(ctx, group.ID, group.Version+1); !errors.Is(err, storage.ErrVersionConflict) {
			t.Errorf("expected ErrVersionConflict for stale version, got %v", err)
		}
		if err := store.DeleteGroup(ctx, group.ID, group.Version); err != nil {
			t.Fatalf("DeleteGroup failed: %v", err)
		}
		if _, err := store.GetGroup(ctx, group.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
		if err := store.DeleteGroup(ctx, group.ID, group.Version); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound on second delete, got %v", err)
		}
	})
}

func TestListGroups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := newTestGroup("alice", 100, 5)
	a.Members = append(a.Members, "bob")
	b := newTestGroup("bob", 100, 5)
	b.Category = "food"
	c := newTestGroup("alice", 100, 5)
	c.Status = models.GroupClosed

	for _, g := range []*models.Group{a, b, c} {
		if err := store.CreateGroup(ctx, g); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter storage.GroupFilter
		want   []string
	}{
		{"all newest first", storage.GroupFilter{}, []string{c.ID, b.ID, a.ID}},
		{"by status", storage.GroupFilter{Status: models.GroupOpen}, []string{b.ID, a.ID}},
		{"by category", storage.GroupFilter{Category: "food"}, []string{b.ID}},
		{"by creator", storage.GroupFilter{CreatorID: "alice"}, []string{c.ID, a.ID}},
		{"by member", storage.GroupFilter{MemberID: "bob"}, []string{b.ID, a.ID}},
		{"combined", storage.GroupFilter{CreatorID: "alice", Status: models.GroupClosed}, []string{c.ID}},
		{"no match", storage.GroupFilter{Category: "none"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups, err := store.ListGroups(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListGroups failed: %v", err)
			}
			if len(groups) != len(tt.want) {
				t.Fatalf("got %d groups, want %d", len(groups), len(tt.want))
			}
			for i, g := range groups {
				if g.ID != tt.want[i] {
					t.Errorf("groups[%d] = %s, want %s", i, g.ID, tt.want[i])
				}
			}
		})
	}
}

func TestListExpiredOpenGroups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	live := newTestGroup("alice", 100, 5)
	expired := newTestGroup("alice", 100, 5)
	expired.ExpiryDate = time.Now().Add(-time.Hour)
	closedExpired := newTestGroup("alice", 100, 5)
	closedExpired.ExpiryDate = time.Now().Add(-time.Hour)
	closedExpired.Status = models.GroupClosed

	for _, g := range []*models.Group{live, expired, closedExpired} {
		if err := store.CreateGroup(ctx, g); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
	}

	groups, err := store.ListExpiredOpenGroups(ctx, time.Now())
	if err != nil {
		t.Fatalf("ListExpiredOpenGroups failed: %v", err)
	}
	if len(groups) != 1 || groups[0].ID != expired.ID {
		t.Errorf("unexpected groups: %v", groups)
	}
}

func TestCreateContribution(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	contribute := func(groupID, who string, amount models.Cents) (*models.Group, error) {
		return store.CreateContribution(ctx, &models.Contribution{
			GroupID:       groupID,
			ContributorID: who,
			Amount:        amount,
			Status:        models.ContributionCompleted,
		}, time.Now())
	}

	t.Run("increments and completes", func(t *testing.T) {
		group := newTestGroup("alice", 100, 2)
		if err := store.CreateGroup(ctx, group); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}

		updated, err := contribute(group.ID, "alice", 60)
		if err != nil {
			t.Fatalf("CreateContribution failed: %v", err)
		}
		if updated.CurrentAmount != 60 || updated.Status != models.GroupOpen {
			t.Errorf("after 60: amount=%v status=%s", updated.CurrentAmount, updated.Status)
		}
		if updated.Version != 2 {
			t.Errorf("Version = %d, want 2", updated.Version)
		}

		updated, err = contribute(group.ID, "alice", 40)
		if err != nil {
			t.Fatalf("CreateContribution failed: %v", err)
		}
		if updated.CurrentAmount != 100 || updated.Status != models.GroupCompleted {
			t.Errorf("after 100: amount=%v status=%s", updated.CurrentAmount, updated.Status)
		}

		if _, err := contribute(group.ID, "alice", 1); !errors.Is(err, storage.ErrGroupNotOpen) {
			t.Errorf("expected ErrGroupNotOpen, got %v", err)
		}

		list, err := store.ListContributionsByGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("ListContributionsByGroup failed: %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("expected 2 contributions, got %d", len(list))
		}
		if list[0].Amount != 40 || list[1].Amount != 60 {
			t.Errorf("expected newest first, got %v then %v", list[0].Amount, list[1].Amount)
		}
	})

	t.Run("rejections leave no contribution", func(t *testing.T) {
		group := newTestGroup("bob", 100, 3)
		if err := store.CreateGroup(ctx, group); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}

		if _, err := contribute(group.ID, "bob", 150); !errors.Is(err, storage.ErrExceedsTarget) {
			t.Errorf("expected ErrExceedsTarget, got %v", err)
		}
		if _, err := contribute(group.ID, "mallory", 10); !errors.Is(err, storage.ErrNotMember) {
			t.Errorf("expected ErrNotMember, got %v", err)
		}
		if _, err := contribute("nonexistent-id", "bob", 10); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}

		list, err := store.ListContributionsByGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("ListContributionsByGroup failed: %v", err)
		}
		if len(list) != 0 {
			t.Errorf("expected no contributions, got %d", len(list))
		}
	})

	t.Run("expired group rejects", func(t *testing.T) {
		group := newTestGroup("carol", 100, 3)
		group.ExpiryDate = time.Now().Add(-time.Minute)
		if err := store.CreateGroup(ctx, group); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		if _, err := contribute(group.ID, "carol", 10); !errors.Is(err, storage.ErrGroupNotOpen) {
			t.Errorf("expected ErrGroupNotOpen, got %v", err)
		}
	})
}

func TestCreateContributionConcurrent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	const workers = 20
	group := newTestGroup("m0", 100, workers)
	for i := 1; i < workers; i++ {
		group.Members = append(group.Members, fmt.Sprintf("m%d", i))
	}
	if err := store.CreateGroup(ctx, group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted, rejected := 0, 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.CreateContribution(ctx, &models.Contribution{
				GroupID:       group.ID,
				ContributorID: fmt.Sprintf("m%d", i),
				Amount:        10,
				Status:        models.ContributionCompleted,
			}, time.Now())

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, storage.ErrGroupNotOpen), errors.Is(err, storage.ErrExceedsTarget):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if accepted != 10 {
		t.Errorf("accepted = %d, want 10 (rejected %d)", accepted, rejected)
	}

	got, err := store.GetGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if got.CurrentAmount != 100 {
		t.Errorf("CurrentAmount = %v, want 100", got.CurrentAmount)
	}
	if got.Status != models.GroupCompleted {
		t.Errorf("Status = %s, want completed", got.Status)
	}

	list, err := store.ListContributionsByGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("ListContributionsByGroup failed: %v", err)
	}
	if len(list) != 10 {
		t.Errorf("persisted contributions = %d, want 10", len(list))
	}
}

func TestPlaceholders(t *testing.T) {
	tests := map[int]string{0: "", 1: "?", 3: "?, ?, ?"}
	for n, want := range tests {
		if got := placeholders(n); got != want {
			t.Errorf("placeholders(%d) = %q, want %q", n, got, want)
		}
	}
}
