package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/campusbuy/internal/models"
	"github.com/mmynk/campusbuy/internal/storage"
)

// incrementGroupAmount adds a contribution to its group only when every guard
// holds at the moment of the write. SQLite evaluates all SET expressions
// against the pre-update row.
const incrementGroupAmount = `
UPDATE groups SET
    current_amount = current_amount + ?1,
    status = CASE WHEN current_amount + ?1 >= target_amount THEN 'completed' ELSE status END,
    version = version + 1,
    updated_at = ?2
WHERE id = ?3
  AND status = 'open'
  AND expiry_date > ?2
  AND current_amount + ?1 <= target_amount
  AND EXISTS (SELECT 1 FROM group_members WHERE group_id = ?3 AND user_id = ?4)`

// CreateContribution records a contribution and applies it to the group in a
// single transaction.
func (s *SQLiteStore) CreateContribution(ctx context.Context, c *models.Contribution, now time.Time) (*models.Group, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now.UTC()
	}

	var updated *models.Group
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM groups WHERE id = ?", c.GroupID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check group existence: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO contributions (id, group_id, contributor_id, amount, status, transaction_id, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.GroupID, c.ContributorID, int64(c.Amount), string(c.Status),
			nullString(c.TransactionID), toMillis(c.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert contribution: %w", err)
		}

		result, err := tx.ExecContext(ctx, incrementGroupAmount,
			int64(c.Amount), toMillis(now), c.GroupID, c.ContributorID,
		)
		if err != nil {
			return fmt.Errorf("failed to increment group amount: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check affected rows: %w", err)
		}

		group, err := getGroup(ctx, tx, c.GroupID)
		if err != nil {
			return err
		}
		if n == 0 {
			return storage.RejectionReason(group, c.ContributorID, now)
		}
		updated = group
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ListContributionsByGroup retrieves all contributions for a group.
func (s *SQLiteStore) ListContributionsByGroup(ctx context.Context, groupID string) ([]*models.Contribution, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, contributor_id, amount, status, transaction_id, created_at
		 FROM contributions WHERE group_id = ? ORDER BY created_at DESC, rowid DESC`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list contributions by group: %w", err)
	}
	defer rows.Close()

	var contributions []*models.Contribution
	for rows.Next() {
		c := &models.Contribution{}
		var status string
		var transactionID sql.NullString
		var createdAt int64

		if err := rows.Scan(&c.ID, &c.GroupID, &c.ContributorID, &c.Amount, &status,
			&transactionID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan contribution: %w", err)
		}

		c.Status = models.ContributionStatus(status)
		c.CreatedAt = fromMillis(createdAt)
		if transactionID.Valid {
			c.TransactionID = transactionID.String
		}
		contributions = append(contributions, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contributions: %w", err)
	}

	return contributions, nil
}
