package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/mmynk/campusbuy/internal/apperr"
	"github.com/mmynk/campusbuy/internal/metrics"
	"github.com/mmynk/campusbuy/internal/models"
	"github.com/mmynk/campusbuy/internal/storage"
)

// maxUpdateAttempts bounds retries of a versioned group write that lost a
// race with a concurrent writer.
const maxUpdateAttempts = 3

// GroupService owns the group lifecycle: creation, membership, ownership
// and status.
type GroupService struct {
	store storage.Store
	now   func() time.Time
}

// NewGroupService creates a new GroupService with the given storage backend.
func NewGroupService(store storage.Store) *GroupService {
	return &GroupService{store: store, now: time.Now}
}

// CreateGroup creates a new open group with the creator as its only member.
func (s *GroupService) CreateGroup(ctx context.Context, creatorID string, cmd CreateGroupCommand) (*models.GroupDetail, error) {
	slog.Info("CreateGroup request received",
		"creator_id", creatorID,
		"name", cmd.Name,
		"max_members", cmd.MaxMembers,
		"target_amount", cmd.TargetAmount,
	)

	now := s.now()
	if !cmd.ExpiryDate.After(now) {
		return nil, apperr.Validation("Expiry date must be in the future",
			apperr.FieldError{Field: "expiryDate", Message: "must be in the future"})
	}

	group := &models.Group{
		Name:         strings.TrimSpace(cmd.Name),
		Description:  strings.TrimSpace(cmd.Description),
		CreatorID:    creatorID,
		Members:      []string{creatorID},
		MaxMembers:   cmd.MaxMembers,
		Category:     strings.TrimSpace(cmd.Category),
		TargetAmount: cmd.TargetAmount,
		Status:       models.GroupOpen,
		ExpiryDate:   cmd.ExpiryDate.UTC(),
		Image:        cmd.Image,
		Rules:        cmd.Rules,
	}
	if err := group.Validate(); err != nil {
		return nil, invariantError(err)
	}

	// Save to storage (generates ID, timestamps and version)
	if err := s.store.CreateGroup(ctx, group); err != nil {
		slog.Error("CreateGroup failed", "error", err)
		return nil, apperr.Internal("failed to create group", err)
	}
	metrics.RecordGroupCreated()

	slog.Info("Group created", "group_id", group.ID, "creator_id", creatorID)
	return s.detail(ctx, group)
}

// GetGroup retrieves a group by ID with its creator and members resolved.
// The returned status reflects expiry and membership at the time of the
// call; nothing is written.
func (s *GroupService) GetGroup(ctx context.Context, id string) (*models.GroupDetail, error) {
	slog.Info("GetGroup request received", "group_id", id)

	group, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	group.Refresh(s.now())

	return s.detail(ctx, group)
}

// ListGroups returns groups matching every given filter, newest first.
func (s *GroupService) ListGroups(ctx context.Context, q ListGroupsQuery) ([]*models.GroupDetail, error) {
	slog.Info("ListGroups request received",
		"status", q.Status,
		"category", q.Category,
		"creator_id", q.CreatorID,
		"member_id", q.MemberID,
	)

	filter := storage.GroupFilter{
		Category:  strings.TrimSpace(q.Category),
		CreatorID: q.CreatorID,
		MemberID:  q.MemberID,
	}
	status := models.GroupStatus(q.Status)
	if status != "" {
		if !status.Valid() {
			return nil, apperr.Validation("Invalid status filter",
				apperr.FieldError{Field: "status", Message: "must be one of open, closed, completed"})
		}
		// Completed is always stored as soon as it holds. Open and closed
		// are matched on the derived status below.
		if status == models.GroupCompleted {
			filter.Status = status
		}
	}
	if q.CreatorID != "" {
		if err := validateID("creator", q.CreatorID); err != nil {
			return nil, err
		}
	}
	if q.MemberID != "" {
		if err := validateID("member", q.MemberID); err != nil {
			return nil, err
		}
	}

	groups, err := s.store.ListGroups(ctx, filter)
	if err != nil {
		slog.Error("ListGroups failed", "error", err)
		return nil, apperr.Internal("failed to list groups", err)
	}

	now := s.now()
	matched := groups[:0]
	var ids []string
	for _, g := range groups {
		g.Refresh(now)
		if status != "" && g.Status != status {
			continue
		}
		matched = append(matched, g)
		ids = append(ids, g.Members...)
	}
	groups = matched
	summaries, err := s.store.GetUserSummaries(ctx, ids)
	if err != nil {
		slog.Error("ListGroups failed to resolve members", "error", err)
		return nil, apperr.Internal("failed to resolve group members", err)
	}

	details := make([]*models.GroupDetail, 0, len(groups))
	for _, g := range groups {
		details = append(details, buildDetail(g, summaries))
	}

	slog.Info("ListGroups successful", "count", len(details))
	return details, nil
}

// UpdateGroup applies patch to a group. Only the creator may update, and
// completed groups cannot be changed.
func (s *GroupService) UpdateGroup(ctx context.Context, id, actorID string, patch GroupPatch) (*models.GroupDetail, error) {
	slog.Info("UpdateGroup request received", "group_id", id, "actor_id", actorID)

	if patch.IsEmpty() {
		return nil, apperr.Validation("Nothing to update")
	}

	group, err := s.mutate(ctx, id, func(g *models.Group, now time.Time) error {
		if !g.IsCreator(actorID) {
			return apperr.Forbidden("Not authorized to update this group")
		}
		if g.Status == models.GroupCompleted {
			return apperr.Validation("Cannot update a completed group")
		}
		if patch.ExpiryDate != nil && !patch.ExpiryDate.After(now) {
			return apperr.Validation("Expiry date must be in the future",
				apperr.FieldError{Field: "expiryDate", Message: "must be in the future"})
		}
		patch.apply(g)
		g.ExpiryDate = g.ExpiryDate.UTC()
		return nil
	})
	if err != nil {
		slog.Warn("UpdateGroup rejected", "group_id", id, "actor_id", actorID, "error", err)
		return nil, err
	}

	slog.Info("Group updated", "group_id", id, "version", group.Version)
	return s.detail(ctx, group)
}

// JoinGroup adds the actor to an open group that has room and has not
// expired. A group found full or expired is closed even though the join
// is rejected.
func (s *GroupService) JoinGroup(ctx context.Context, id, actorID string) (*models.GroupDetail, error) {
	slog.Info("JoinGroup request received", "group_id", id, "actor_id", actorID)

	group, err := s.mutate(ctx, id, func(g *models.Group, now time.Time) error {
		switch {
		case g.Status == models.GroupCompleted:
			return apperr.Validation("Group is not open for joining")
		case g.IsMember(actorID):
			return apperr.Validation("Already a member of this group")
		case g.IsFull():
			return apperr.Validation("Group is full")
		case g.IsExpired(now):
			return apperr.Validation("Group has expired")
		case g.Status != models.GroupOpen:
			return apperr.Validation("Group is not open for joining")
		}
		g.AddMember(actorID)
		return nil
	})
	if err != nil {
		slog.Warn("JoinGroup rejected", "group_id", id, "actor_id", actorID, "error", err)
		return nil, err
	}

	slog.Info("Member joined group", "group_id", id, "actor_id", actorID, "members", len(group.Members))
	return s.detail(ctx, group)
}

// LeaveGroup removes the actor from a group. The creator cannot leave.
func (s *GroupService) LeaveGroup(ctx context.Context, id, actorID string) (*models.GroupDetail, error) {
	slog.Info("LeaveGroup request received", "group_id", id, "actor_id", actorID)

	group, err := s.mutate(ctx, id, func(g *models.Group, now time.Time) error {
		switch {
		case g.Status == models.GroupCompleted:
			return apperr.Validation("Cannot change membership of a completed group")
		case g.IsCreator(actorID):
			return apperr.Validation("Creator cannot leave the group")
		case !g.IsMember(actorID):
			return apperr.Validation("You are not a member of this group")
		}
		g.RemoveMember(actorID)
		return nil
	})
	if err != nil {
		slog.Warn("LeaveGroup rejected", "group_id", id, "actor_id", actorID, "error", err)
		return nil, err
	}

	slog.Info("Member left group", "group_id", id, "actor_id", actorID)
	return s.detail(ctx, group)
}

// KickMember removes targetID from a group on the creator's behalf.
func (s *GroupService) KickMember(ctx context.Context, id, actorID, targetID string) (*models.GroupDetail, error) {
	slog.Info("KickMember request received", "group_id", id, "actor_id", actorID, "target_id", targetID)

	group, err := s.mutate(ctx, id, func(g *models.Group, now time.Time) error {
		switch {
		case !g.IsCreator(actorID):
			return apperr.Forbidden("Only the group creator can remove members")
		case g.Status == models.GroupCompleted:
			return apperr.Validation("Cannot change membership of a completed group")
		case targetID == g.CreatorID:
			return apperr.Validation("Cannot remove the group creator")
		case !g.IsMember(targetID):
			return apperr.Validation("User is not a member of this group")
		}
		g.RemoveMember(targetID)
		return nil
	})
	if err != nil {
		slog.Warn("KickMember rejected", "group_id", id, "target_id", targetID, "error", err)
		return nil, err
	}

	slog.Info("Member removed from group", "group_id", id, "target_id", targetID)
	return s.detail(ctx, group)
}

// TransferOwnership hands the creator role to another member.
func (s *GroupService) TransferOwnership(ctx context.Context, id, actorID, newOwnerID string) (*models.GroupDetail, error) {
	slog.Info("TransferOwnership request received", "group_id", id, "actor_id", actorID, "new_owner_id", newOwnerID)

	group, err := s.mutate(ctx, id, func(g *models.Group, now time.Time) error {
		if !g.IsCreator(actorID) {
			return apperr.Forbidden("Only the group creator can transfer ownership")
		}
		if !g.IsMember(newOwnerID) {
			return apperr.Validation("New owner must be a member of the group")
		}
		g.CreatorID = newOwnerID
		return nil
	})
	if err != nil {
		slog.Warn("TransferOwnership rejected", "group_id", id, "new_owner_id", newOwnerID, "error", err)
		return nil, err
	}

	slog.Info("Group ownership transferred", "group_id", id, "creator_id", group.CreatorID)
	return s.detail(ctx, group)
}

// UpdateStatus sets a group's status on the creator's behalf. A group
// cannot be reopened while full or expired, and completed is final.
func (s *GroupService) UpdateStatus(ctx context.Context, id, actorID string, status models.GroupStatus) (*models.GroupDetail, error) {
	slog.Info("UpdateStatus request received", "group_id", id, "actor_id", actorID, "status", status)

	if !status.Valid() {
		return nil, apperr.Validation("Invalid status value",
			apperr.FieldError{Field: "status", Message: "must be one of open, closed, completed"})
	}

	group, err := s.mutate(ctx, id, func(g *models.Group, now time.Time) error {
		if !g.IsCreator(actorID) {
			return apperr.Forbidden("Only the group creator can update status")
		}
		if err := g.CheckTransition(status, now); err != nil {
			return invariantError(err)
		}
		g.Status = status
		return nil
	})
	if err != nil {
		slog.Warn("UpdateStatus rejected", "group_id", id, "status", status, "error", err)
		return nil, err
	}

	slog.Info("Group status updated", "group_id", id, "status", group.Status)
	return s.detail(ctx, group)
}

// DeleteGroup removes a group and its contributions. Only the creator may
// delete, and completed groups are kept.
func (s *GroupService) DeleteGroup(ctx context.Context, id, actorID string) error {
	slog.Info("DeleteGroup request received", "group_id", id, "actor_id", actorID)

	for attempt := 1; ; attempt++ {
		group, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		group.Refresh(s.now())

		if !group.IsCreator(actorID) {
			return apperr.Forbidden("Not authorized to delete this group")
		}
		if group.Status == models.GroupCompleted {
			return apperr.Validation("Cannot delete a completed group")
		}

		err = s.store.DeleteGroup(ctx, id, group.Version)
		if errors.Is(err, storage.ErrVersionConflict) && attempt < maxUpdateAttempts {
			slog.Debug("DeleteGroup version conflict, retrying", "group_id", id, "attempt", attempt)
			continue
		}
		if err != nil {
			slog.Error("DeleteGroup failed", "group_id", id, "error", err)
			return groupStoreError("delete group", err)
		}

		slog.Info("Group deleted", "group_id", id)
		return nil
	}
}

// ExpireGroups closes open groups whose expiry has passed and returns how
// many were closed. It is the eager counterpart of the closure every read
// and write already derives, and is safe to run concurrently with them.
func (s *GroupService) ExpireGroups(ctx context.Context) (int, error) {
	now := s.now()
	groups, err := s.store.ListExpiredOpenGroups(ctx, now)
	if err != nil {
		return 0, apperr.Internal("failed to list expired groups", err)
	}

	closed := 0
	for _, g := range groups {
		changed, err := s.persistDerived(ctx, g)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				continue
			}
			return closed, err
		}
		if changed {
			closed++
		}
	}
	return closed, nil
}

// persistDerived stores the derived status of group, which must be as read
// from the store, if it differs from the stored one. group is updated in
// place. A version conflict reloads the group before the next attempt.
func (s *GroupService) persistDerived(ctx context.Context, group *models.Group) (bool, error) {
	for attempt := 1; ; attempt++ {
		from := group.Status
		if !group.Refresh(s.now()) {
			return false, nil
		}
		err := s.store.UpdateGroup(ctx, group)
		if errors.Is(err, storage.ErrVersionConflict) && attempt < maxUpdateAttempts {
			if group, err = s.load(ctx, group.ID); err != nil {
				return false, err
			}
			continue
		}
		if err != nil {
			return false, groupStoreError("update group status", err)
		}
		metrics.RecordStatusTransition(string(from), string(group.Status))
		return true, nil
	}
}

// mutate runs fn against a fresh copy of the group with its derived status
// applied, re-derives the status, validates and persists the result with a
// version check. A status change found by the first derivation is persisted
// even when fn rejects. Version conflicts restart from a fresh read.
func (s *GroupService) mutate(ctx context.Context, id string, fn func(g *models.Group, now time.Time) error) (*models.Group, error) {
	for attempt := 1; ; attempt++ {
		stored, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		from := stored.Status
		now := s.now()
		derived := stored.Refresh(now)

		next := stored.Clone()
		if err := fn(next, now); err != nil {
			if derived {
				perr := s.store.UpdateGroup(ctx, stored)
				if errors.Is(perr, storage.ErrVersionConflict) && attempt < maxUpdateAttempts {
					continue
				}
				if perr == nil {
					metrics.RecordStatusTransition(string(from), string(stored.Status))
				} else if !errors.Is(perr, storage.ErrVersionConflict) {
					slog.Error("Failed to persist derived status", "group_id", id, "error", perr)
				}
			}
			return nil, err
		}

		next.Refresh(now)
		if err := next.Validate(); err != nil {
			return nil, invariantError(err)
		}

		err = s.store.UpdateGroup(ctx, next)
		if errors.Is(err, storage.ErrVersionConflict) && attempt < maxUpdateAttempts {
			slog.Debug("Group version conflict, retrying", "group_id", id, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, groupStoreError("update group", err)
		}
		metrics.RecordStatusTransition(string(from), string(next.Status))
		return next, nil
	}
}

func (s *GroupService) load(ctx context.Context, id string) (*models.Group, error) {
	if err := validateID("group id", id); err != nil {
		return nil, err
	}
	group, err := s.store.GetGroup(ctx, id)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			slog.Error("Failed to load group", "group_id", id, "error", err)
		}
		return nil, groupStoreError("load group", err)
	}
	return group, nil
}

func (s *GroupService) detail(ctx context.Context, g *models.Group) (*models.GroupDetail, error) {
	summaries, err := s.store.GetUserSummaries(ctx, g.Members)
	if err != nil {
		slog.Error("Failed to resolve group members", "group_id", g.ID, "error", err)
		return nil, apperr.Internal("failed to resolve group members", err)
	}
	return buildDetail(g, summaries), nil
}

// buildDetail resolves creator and members from summaries. Users that no
// longer exist are represented by their ID alone.
func buildDetail(g *models.Group, summaries map[string]models.UserSummary) *models.GroupDetail {
	summary := func(id string) models.UserSummary {
		if u, ok := summaries[id]; ok {
			return u
		}
		return models.UserSummary{ID: id}
	}

	detail := &models.GroupDetail{
		Group:         g,
		Creator:       summary(g.CreatorID),
		MemberDetails: make([]models.UserSummary, 0, len(g.Members)),
	}
	for _, m := range g.Members {
		detail.MemberDetails = append(detail.MemberDetails, summary(m))
	}
	return detail
}
