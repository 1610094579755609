package models

import (
	"fmt"
	"slices"
	"time"
	"unicode/utf8"
)

// GroupStatus is the lifecycle state of a group.
type GroupStatus string

const (
	GroupOpen      GroupStatus = "open"
	GroupClosed    GroupStatus = "closed"
	GroupCompleted GroupStatus = "completed"
)

// Valid reports whether s is a known status.
func (s GroupStatus) Valid() bool {
	switch s {
	case GroupOpen, GroupClosed, GroupCompleted:
		return true
	}
	return false
}

const (
	MinGroupMembers = 2
	MaxGroupMembers = 100
	MaxGroupRules   = 10
	MaxRuleLength   = 200
)

// MaxTargetAmount is the largest target a group may set (1,000,000.00).
const MaxTargetAmount Cents = 1_000_000_00

// Group represents a pooled-purchase campaign.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	Name        string
	Description string

	// CreatorID is the member with exclusive rights over the group's
	// structure and status. It is always present in Members.
	CreatorID string

	// Members holds user IDs with set semantics; order is not meaningful.
	Members []string

	MaxMembers int
	Category   string

	// TargetAmount is the goal that completes the group once reached.
	TargetAmount Cents

	// CurrentAmount is the sum of accepted contributions. It never exceeds
	// TargetAmount.
	CurrentAmount Cents

	Status     GroupStatus
	ExpiryDate time.Time

	// Image is an optional URL.
	Image string
	Rules []string

	// Version is incremented by the store on every write and used for
	// optimistic concurrency control.
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// InvariantError reports a group field that violates a model invariant.
type InvariantError struct {
	Field   string
	Message string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsMember reports whether userID belongs to the group.
func (g *Group) IsMember(userID string) bool {
	return slices.Contains(g.Members, userID)
}

// IsCreator reports whether userID is the group's creator.
func (g *Group) IsCreator(userID string) bool {
	return g.CreatorID == userID
}

// IsFull reports whether the membership cap has been reached.
func (g *Group) IsFull() bool {
	return len(g.Members) >= g.MaxMembers
}

// IsExpired reports whether the expiry date is at or before now.
func (g *Group) IsExpired(now time.Time) bool {
	return !g.ExpiryDate.After(now)
}

// AddMember appends userID unless it is already a member.
func (g *Group) AddMember(userID string) bool {
	if g.IsMember(userID) {
		return false
	}
	g.Members = append(g.Members, userID)
	return true
}

// RemoveMember drops userID from the members. It reports whether anything
// was removed.
func (g *Group) RemoveMember(userID string) bool {
	n := len(g.Members)
	g.Members = slices.DeleteFunc(g.Members, func(m string) bool { return m == userID })
	return len(g.Members) != n
}

// Clone returns a deep copy of the group.
func (g *Group) Clone() *Group {
	c := *g
	c.Members = slices.Clone(g.Members)
	c.Rules = slices.Clone(g.Rules)
	return &c
}

// DeriveStatus computes the status a group must have given its current
// amounts, membership and the time now. Completed wins over everything and
// is terminal; an open group that is full or expired becomes closed.
// A closed group is never reopened here.
func DeriveStatus(g *Group, now time.Time) GroupStatus {
	if g.Status == GroupCompleted || g.CurrentAmount >= g.TargetAmount {
		return GroupCompleted
	}
	if g.Status == GroupOpen && (g.IsFull() || g.IsExpired(now)) {
		return GroupClosed
	}
	return g.Status
}

// Refresh applies DeriveStatus to g and reports whether the status changed.
func (g *Group) Refresh(now time.Time) bool {
	next := DeriveStatus(g, now)
	if next == g.Status {
		return false
	}
	g.Status = next
	return true
}

// CheckTransition validates an explicit status change requested by the
// creator. It does not check authorization.
func (g *Group) CheckTransition(to GroupStatus, now time.Time) error {
	if !to.Valid() {
		return &InvariantError{Field: "status", Message: "invalid status value"}
	}
	if g.Status == GroupCompleted {
		return &InvariantError{Field: "status", Message: "cannot change status of a completed group"}
	}
	if to == GroupOpen {
		if g.IsFull() {
			return &InvariantError{Field: "status", Message: "cannot set status to open when group is full"}
		}
		if g.IsExpired(now) {
			return &InvariantError{Field: "status", Message: "cannot set status to open when group has expired"}
		}
	}
	return nil
}

// Validate checks the invariants that must hold before a group is persisted.
func (g *Group) Validate() error {
	switch {
	case g.MaxMembers < MinGroupMembers:
		return &InvariantError{Field: "maxMembers", Message: fmt.Sprintf("must be at least %d", MinGroupMembers)}
	case g.TargetAmount <= 0:
		return &InvariantError{Field: "targetAmount", Message: "must be greater than 0"}
	case g.TargetAmount > MaxTargetAmount:
		return &InvariantError{Field: "targetAmount", Message: fmt.Sprintf("must be at most %.0f", MaxTargetAmount.Float())}
	case g.CurrentAmount < 0:
		return &InvariantError{Field: "currentAmount", Message: "cannot be negative"}
	case g.CurrentAmount > g.TargetAmount:
		return &InvariantError{Field: "targetAmount", Message: "current amount cannot exceed target amount"}
	case !g.Status.Valid():
		return &InvariantError{Field: "status", Message: "invalid status value"}
	case g.CreatorID == "" || !g.IsMember(g.CreatorID):
		return &InvariantError{Field: "creator", Message: "creator must be a member"}
	case len(g.Members) > g.MaxMembers:
		return &InvariantError{Field: "maxMembers", Message: "cannot be lower than the current member count"}
	case len(g.Rules) > MaxGroupRules:
		return &InvariantError{Field: "rules", Message: fmt.Sprintf("cannot have more than %d rules", MaxGroupRules)}
	}
	seen := make(map[string]bool, len(g.Members))
	for _, m := range g.Members {
		if seen[m] {
			return &InvariantError{Field: "members", Message: "duplicate member"}
		}
		seen[m] = true
	}
	for _, r := range g.Rules {
		if utf8.RuneCountInString(r) > MaxRuleLength {
			return &InvariantError{Field: "rules", Message: fmt.Sprintf("rule cannot exceed %d characters", MaxRuleLength)}
		}
	}
	return nil
}

// GroupDetail is a group with its creator and members resolved to
// display-safe summaries.
type GroupDetail struct {
	*Group
	Creator       UserSummary
	MemberDetails []UserSummary
}
