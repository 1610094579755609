package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/campusbuy/internal/models"
	"github.com/mmynk/campusbuy/internal/storage"
)

const groupColumns = `id, name, description, creator_id, max_members, category, target_amount,
	current_amount, status, expiry_date, image, version, created_at, updated_at`

// CreateGroup persists a new group with its members and rules.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	// Generate ID if not set
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if group.CreatedAt.IsZero() {
		group.CreatedAt = now
	}
	group.UpdatedAt = now
	group.Version = 1

	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO groups (`+groupColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			group.ID, group.Name, group.Description, group.CreatorID, group.MaxMembers, group.Category,
			int64(group.TargetAmount), int64(group.CurrentAmount), string(group.Status), toMillis(group.ExpiryDate),
			nullString(group.Image), group.Version, toMillis(group.CreatedAt), toMillis(group.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert group: %w", err)
		}
		return replaceChildren(ctx, tx, group)
	})
}

// GetGroup retrieves a group by ID, including members and rules.
func (s *SQLiteStore) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	group, err := getGroup(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return group, nil
}

// ListGroups retrieves groups matching filter, newest first.
func (s *SQLiteStore) ListGroups(ctx context.Context, filter storage.GroupFilter) ([]*models.Group, error) {
	var where []string
	var args []any

	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.CreatorID != "" {
		where = append(where, "creator_id = ?")
		args = append(args, filter.CreatorID)
	}
	if filter.MemberID != "" {
		where = append(where, "id IN (SELECT group_id FROM group_members WHERE user_id = ?)")
		args = append(args, filter.MemberID)
	}

	query := `SELECT ` + groupColumns + ` FROM groups`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"

	return listGroups(ctx, s.db, query, args...)
}

// ListExpiredOpenGroups retrieves open groups whose expiry has passed.
func (s *SQLiteStore) ListExpiredOpenGroups(ctx context.Context, now time.Time) ([]*models.Group, error) {
	return listGroups(ctx, s.db,
		`SELECT `+groupColumns+` FROM groups WHERE status = 'open' AND expiry_date <= ? ORDER BY expiry_date`,
		toMillis(now),
	)
}

// UpdateGroup overwrites a group if its version matches the stored one.
func (s *SQLiteStore) UpdateGroup(ctx context.Context, group *models.Group) error {
	updatedAt := time.Now().UTC()

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE groups SET name = ?, description = ?, creator_id = ?, max_members = ?, category = ?,
				target_amount = ?, current_amount = ?, status = ?, expiry_date = ?, image = ?,
				version = version + 1, updated_at = ?
			 WHERE id = ? AND version = ?`,
			group.Name, group.Description, group.CreatorID, group.MaxMembers, group.Category,
			int64(group.TargetAmount), int64(group.CurrentAmount), string(group.Status), toMillis(group.ExpiryDate),
			nullString(group.Image), toMillis(updatedAt),
			group.ID, group.Version,
		)
		if err != nil {
			return fmt.Errorf("failed to update group: %w", err)
		}

		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check affected rows: %w", err)
		}
		if n == 0 {
			return versionMismatch(ctx, tx, group.ID)
		}

		return replaceChildren(ctx, tx, group)
	})
	if err != nil {
		return err
	}

	group.Version++
	group.UpdatedAt = updatedAt
	return nil
}

// DeleteGroup removes a group by ID if its version matches. Members, rules
// and contributions are removed by cascade.
func (s *SQLiteStore) DeleteGroup(ctx context.Context, id string, version int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, "DELETE FROM groups WHERE id = ? AND version = ?", id, version)
		if err != nil {
			return fmt.Errorf("failed to delete group: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check affected rows: %w", err)
		}
		if n == 0 {
			return versionMismatch(ctx, tx, id)
		}
		return nil
	})
}

// versionMismatch tells a missing group apart from a stale version.
func versionMismatch(ctx context.Context, tx *sql.Tx, id string) error {
	var exists int
	err := tx.QueryRowContext(ctx, "SELECT 1 FROM groups WHERE id = ?", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check group existence: %w", err)
	}
	return storage.ErrVersionConflict
}

// replaceChildren rewrites the member and rule rows of a group.
func replaceChildren(ctx context.Context, tx *sql.Tx, group *models.Group) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM group_members WHERE group_id = ?", group.ID); err != nil {
		return fmt.Errorf("failed to clear group members: %w", err)
	}
	for i, userID := range group.Members {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO group_members (group_id, user_id, position) VALUES (?, ?, ?)",
			group.ID, userID, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group member: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM group_rules WHERE group_id = ?", group.ID); err != nil {
		return fmt.Errorf("failed to clear group rules: %w", err)
	}
	for i, rule := range group.Rules {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO group_rules (group_id, position, rule) VALUES (?, ?, ?)",
			group.ID, i, rule,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group rule: %w", err)
		}
	}
	return nil
}

func getGroup(ctx context.Context, q querier, id string) (*models.Group, error) {
	row := q.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM groups WHERE id = ?`, id)
	group, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	if err := loadChildren(ctx, q, group); err != nil {
		return nil, err
	}
	return group, nil
}

func listGroups(ctx context.Context, q querier, query string, args ...any) ([]*models.Group, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}
	rows.Close()

	for _, group := range groups {
		if err := loadChildren(ctx, q, group); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGroup(row scanner) (*models.Group, error) {
	group := &models.Group{}
	var status string
	var image sql.NullString
	var expiry, createdAt, updatedAt int64

	err := row.Scan(
		&group.ID, &group.Name, &group.Description, &group.CreatorID, &group.MaxMembers,
		&group.Category, &group.TargetAmount, &group.CurrentAmount, &status, &expiry,
		&image, &group.Version, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	group.Status = models.GroupStatus(status)
	group.ExpiryDate = fromMillis(expiry)
	group.CreatedAt = fromMillis(createdAt)
	group.UpdatedAt = fromMillis(updatedAt)
	if image.Valid {
		group.Image = image.String
	}
	return group, nil
}

func loadChildren(ctx context.Context, q querier, group *models.Group) error {
	rows, err := q.QueryContext(ctx,
		"SELECT user_id FROM group_members WHERE group_id = ? ORDER BY position",
		group.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get group members: %w", err)
	}
	group.Members = []string{}
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan group member: %w", err)
		}
		group.Members = append(group.Members, userID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate group members: %w", err)
	}

	ruleRows, err := q.QueryContext(ctx,
		"SELECT rule FROM group_rules WHERE group_id = ? ORDER BY position",
		group.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get group rules: %w", err)
	}
	defer ruleRows.Close()

	group.Rules = []string{}
	for ruleRows.Next() {
		var rule string
		if err := ruleRows.Scan(&rule); err != nil {
			return fmt.Errorf("failed to scan group rule: %w", err)
		}
		group.Rules = append(group.Rules, rule)
	}
	if err := ruleRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate group rules: %w", err)
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
