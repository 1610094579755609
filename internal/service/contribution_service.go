package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mmynk/campusbuy/internal/apperr"
	"github.com/mmynk/campusbuy/internal/metrics"
	"github.com/mmynk/campusbuy/internal/models"
	"github.com/mmynk/campusbuy/internal/storage"
)

var (
	errNotMemberContribute = apperr.Forbidden("You must be a member of the group to contribute")
	errNotMemberView       = apperr.Forbidden("You must be a member of the group to view contributions")
	errGroupNotOpen        = apperr.Validation("Cannot contribute to a closed or completed group")
	errExceedsTarget       = apperr.Validation("Contribution would exceed target amount")
)

// ContributionService records contributions against groups.
type ContributionService struct {
	store  storage.Store
	groups *GroupService
}

// NewContributionService creates a ledger over store. groups applies the
// lazy status derivation shared with the lifecycle operations.
func NewContributionService(store storage.Store, groups *GroupService) *ContributionService {
	return &ContributionService{store: store, groups: groups}
}

// ContributionResult is an accepted contribution with the group state it
// produced.
type ContributionResult struct {
	Contribution *models.ContributionDetail
	Group        *models.Group
}

// CreateContribution records amount against the group on the actor's
// behalf. The check and the increment are a single atomic store operation,
// so concurrent contributions can never push the group past its target.
func (s *ContributionService) CreateContribution(ctx context.Context, actorID, groupID string, amount models.Cents) (*ContributionResult, error) {
	slog.Info("CreateContribution request received",
		"group_id", groupID,
		"actor_id", actorID,
		"amount", amount,
	)

	if amount <= 0 {
		return nil, apperr.Validation("Amount must be greater than 0",
			apperr.FieldError{Field: "amount", Message: "must be greater than 0"})
	}

	// Fail fast with the public message for the common cases; the store
	// re-checks every guard atomically.
	group, err := s.groups.load(ctx, groupID)
	if err != nil {
		return nil, err
	}
	now := s.groups.now()
	if models.DeriveStatus(group, now) != group.Status {
		if _, err := s.groups.persistDerived(ctx, group.Clone()); err != nil {
			slog.Warn("Failed to persist derived status", "group_id", groupID, "error", err)
		}
		group.Refresh(now)
	}
	switch {
	case !group.IsMember(actorID):
		return nil, reject("not_member", errNotMemberContribute)
	case group.Status != models.GroupOpen:
		return nil, reject("not_open", errGroupNotOpen)
	case group.CurrentAmount+amount > group.TargetAmount:
		return nil, reject("exceeds_target", errExceedsTarget)
	}

	contribution := &models.Contribution{
		GroupID:       groupID,
		ContributorID: actorID,
		Amount:        amount,
		Status:        models.ContributionCompleted,
	}
	updated, err := s.store.CreateContribution(ctx, contribution, now)
	switch {
	case errors.Is(err, storage.ErrNotMember):
		return nil, reject("not_member", errNotMemberContribute)
	case errors.Is(err, storage.ErrGroupNotOpen):
		return nil, reject("not_open", errGroupNotOpen)
	case errors.Is(err, storage.ErrExceedsTarget):
		return nil, reject("exceeds_target", errExceedsTarget)
	case errors.Is(err, storage.ErrNotFound):
		return nil, errGroupNotFound
	case err != nil:
		slog.Error("CreateContribution failed", "group_id", groupID, "error", err)
		return nil, apperr.Internal("failed to create contribution", err)
	}

	metrics.RecordContribution(amount.Float())
	metrics.RecordStatusTransition(string(group.Status), string(updated.Status))

	summaries, err := s.store.GetUserSummaries(ctx, []string{actorID})
	if err != nil {
		return nil, apperr.Internal("failed to resolve contributor", err)
	}

	slog.Info("Contribution recorded",
		"contribution_id", contribution.ID,
		"group_id", groupID,
		"current_amount", updated.CurrentAmount,
		"status", updated.Status,
	)
	return &ContributionResult{
		Contribution: contributionDetail(contribution, summaries),
		Group:        updated,
	}, nil
}

// ListGroupContributions returns the group's contributions, newest first.
// Only members may list them.
func (s *ContributionService) ListGroupContributions(ctx context.Context, actorID, groupID string) ([]*models.ContributionDetail, error) {
	slog.Info("ListGroupContributions request received", "group_id", groupID, "actor_id", actorID)

	group, err := s.groups.load(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsMember(actorID) {
		return nil, errNotMemberView
	}

	contributions, err := s.store.ListContributionsByGroup(ctx, groupID)
	if err != nil {
		slog.Error("ListGroupContributions failed", "group_id", groupID, "error", err)
		return nil, apperr.Internal("failed to list contributions", err)
	}

	ids := make([]string, 0, len(contributions))
	for _, c := range contributions {
		ids = append(ids, c.ContributorID)
	}
	summaries, err := s.store.GetUserSummaries(ctx, ids)
	if err != nil {
		return nil, apperr.Internal("failed to resolve contributors", err)
	}

	details := make([]*models.ContributionDetail, 0, len(contributions))
	for _, c := range contributions {
		details = append(details, contributionDetail(c, summaries))
	}

	slog.Info("ListGroupContributions successful", "group_id", groupID, "count", len(details))
	return details, nil
}

func reject(reason string, err error) error {
	metrics.RecordContributionRejected(reason)
	return err
}

func contributionDetail(c *models.Contribution, summaries map[string]models.UserSummary) *models.ContributionDetail {
	contributor, ok := summaries[c.ContributorID]
	if !ok {
		contributor = models.UserSummary{ID: c.ContributorID}
	}
	return &models.ContributionDetail{Contribution: c, Contributor: contributor}
}
