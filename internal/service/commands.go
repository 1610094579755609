package service

import (
	"time"

	"github.com/mmynk/campusbuy/internal/models"
)

// CreateGroupCommand carries the caller-supplied fields of a new group.
type CreateGroupCommand struct {
	Name         string
	Description  string
	MaxMembers   int
	Category     string
	TargetAmount models.Cents
	ExpiryDate   time.Time
	Image        string
	Rules        []string
}

// GroupPatch lists the fields UpdateGroup may change. Nil fields are left
// untouched. Creator, members, amounts and status are changed only through
// their dedicated operations.
type GroupPatch struct {
	Name         *string
	Description  *string
	MaxMembers   *int
	Category     *string
	TargetAmount *models.Cents
	ExpiryDate   *time.Time
	Image        *string
	Rules        *[]string
}

// IsEmpty reports whether the patch changes nothing.
func (p GroupPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.MaxMembers == nil &&
		p.Category == nil && p.TargetAmount == nil && p.ExpiryDate == nil &&
		p.Image == nil && p.Rules == nil
}

func (p GroupPatch) apply(g *models.Group) {
	if p.Name != nil {
		g.Name = *p.Name
	}
	if p.Description != nil {
		g.Description = *p.Description
	}
	if p.MaxMembers != nil {
		g.MaxMembers = *p.MaxMembers
	}
	if p.Category != nil {
		g.Category = *p.Category
	}
	if p.TargetAmount != nil {
		g.TargetAmount = *p.TargetAmount
	}
	if p.ExpiryDate != nil {
		g.ExpiryDate = *p.ExpiryDate
	}
	if p.Image != nil {
		g.Image = *p.Image
	}
	if p.Rules != nil {
		g.Rules = append([]string(nil), (*p.Rules)...)
	}
}

// ListGroupsQuery filters ListGroups. Empty fields match everything.
type ListGroupsQuery struct {
	Status    string
	Category  string
	CreatorID string
	MemberID  string
}

// RegisterCommand carries a new account's details.
type RegisterCommand struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      models.Role
}
