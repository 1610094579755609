// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/mmynk/campusbuy/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrVersionConflict is returned by UpdateGroup when the stored version
	// no longer matches the version the caller read.
	ErrVersionConflict = errors.New("group was modified concurrently")

	// ErrDuplicateEmail is returned when a user with the same email exists.
	ErrDuplicateEmail = errors.New("email already registered")

	// The following are returned by CreateContribution when its guarded
	// increment matches nothing.
	ErrGroupNotOpen  = errors.New("group is not open")
	ErrExceedsTarget = errors.New("contribution would exceed target amount")
	ErrNotMember     = errors.New("contributor is not a member of the group")
)

// GroupFilter narrows ListGroups. Empty fields match everything.
type GroupFilter struct {
	Status    models.GroupStatus
	Category  string
	CreatorID string
	MemberID  string
}

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// GetUserSummaries resolves ids to display-safe summaries. Unknown ids
	// are omitted from the result.
	GetUserSummaries(ctx context.Context, ids []string) (map[string]models.UserSummary, error)
}

// GroupStore persists groups.
type GroupStore interface {
	// CreateGroup persists a new group. ID, CreatedAt, UpdatedAt and Version
	// are populated by the store.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup returns ErrNotFound when the group does not exist.
	GetGroup(ctx context.Context, id string) (*models.Group, error)

	// ListGroups returns matching groups, newest first.
	ListGroups(ctx context.Context, filter GroupFilter) ([]*models.Group, error)

	// UpdateGroup overwrites the group if its stored version equals
	// group.Version, then increments group.Version. It returns
	// ErrVersionConflict on a stale version and ErrNotFound when the group
	// is gone.
	UpdateGroup(ctx context.Context, group *models.Group) error

	// DeleteGroup removes the group and its contributions if the stored
	// version equals version. It returns ErrVersionConflict or ErrNotFound
	// like UpdateGroup.
	DeleteGroup(ctx context.Context, id string, version int64) error

	// ListExpiredOpenGroups returns open groups whose expiry is at or
	// before now.
	ListExpiredOpenGroups(ctx context.Context, now time.Time) ([]*models.Group, error)
}

// ContributionStore persists contributions.
type ContributionStore interface {
	// CreateContribution records a completed contribution and adds its
	// amount to the owning group as one atomic step. The increment only
	// applies if the group is open and unexpired at now, the contributor is
	// a member, and the new total does not exceed the target; the group is
	// marked completed when the target is reached. It returns the updated
	// group.
	CreateContribution(ctx context.Context, c *models.Contribution, now time.Time) (*models.Group, error)

	// ListContributionsByGroup returns contributions for a group, newest
	// first.
	ListContributionsByGroup(ctx context.Context, groupID string) ([]*models.Contribution, error)
}

// Store aggregates every persistence concern. Backends (SQLite, MongoDB)
// implement it in full.
type Store interface {
	UserStore
	GroupStore
	ContributionStore

	// Ping checks connectivity for health checks.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// RejectionReason explains why a guarded contribution increment matched
// nothing, given the group as it is after the attempt.
func RejectionReason(group *models.Group, contributorID string, now time.Time) error {
	switch {
	case !group.IsMember(contributorID):
		return ErrNotMember
	case group.Status != models.GroupOpen || group.IsExpired(now):
		return ErrGroupNotOpen
	default:
		return ErrExceedsTarget
	}
}
