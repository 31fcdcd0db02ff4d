package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/reparte/backend/internal/errs"
	"github.com/reparte/backend/internal/models"
)

// CreateGroup persists the group and its creator member in one transaction.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group, creator *models.Member) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.InviteCode == "" {
		group.InviteCode = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}
	creator.ID = uuid.New().String()
	creator.GroupID = group.ID
	creator.IsCreator = true
	creator.CreatedAt = group.CreatedAt

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO groups (id, name, creator_user_id, invite_code, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		group.ID, group.Name, group.CreatorUserID, group.InviteCode, group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO members (id, group_id, name, user_id, is_creator, created_at)
		 VALUES (?, ?, ?, ?, 1, ?)`,
		creator.ID, group.ID, creator.Name, nullString(creator.UserID), creator.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert creator member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetGroup retrieves a non-deleted group by ID.
func (s *SQLiteStore) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	return s.getGroup(ctx, "id", id)
}

// GetGroupByInviteCode retrieves a non-deleted group by invite code.
func (s *SQLiteStore) GetGroupByInviteCode(ctx context.Context, code string) (*models.Group, error) {
	return s.getGroup(ctx, "invite_code", code)
}

func (s *SQLiteStore) getGroup(ctx context.Context, column, value string) (*models.Group, error) {
	group := &models.Group{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, creator_user_id, invite_code, created_at
		 FROM groups WHERE `+column+` = ? AND deleted_at IS NULL`,
		value,
	).Scan(&group.ID, &group.Name, &group.CreatorUserID, &group.InviteCode, &group.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: group", errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group by %s: %w", column, err)
	}

	return group, nil
}

// ListGroupsByUser retrieves every group where the user holds a live member row.
func (s *SQLiteStore) ListGroupsByUser(ctx context.Context, userID string) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT g.id, g.name, g.creator_user_id, g.invite_code, g.created_at
		 FROM groups g
		 JOIN members m ON g.id = m.group_id
		 WHERE m.user_id = ? AND g.deleted_at IS NULL AND m.deleted_at IS NULL
		 ORDER BY g.created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups by user: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		group := &models.Group{}
		if err := rows.Scan(&group.ID, &group.Name, &group.CreatorUserID, &group.InviteCode, &group.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	return groups, nil
}

// UpdateGroupName renames a group. The name is the only updatable field.
func (s *SQLiteStore) UpdateGroupName(ctx context.Context, id, name string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE groups SET name = ? WHERE id = ? AND deleted_at IS NULL",
		name, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	return requireRow(res, "group")
}

// DeleteGroup soft-deletes the group together with its members,
// transactions and splits.
func (s *SQLiteStore) DeleteGroup(ctx context.Context, id string) error {
	now := time.Now().Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE splits SET deleted_at = ?
		 WHERE deleted_at IS NULL
		   AND transaction_id IN (SELECT id FROM transactions WHERE group_id = ?)`,
		now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete splits: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE transactions SET deleted_at = ? WHERE group_id = ? AND deleted_at IS NULL",
		now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete transactions: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE members SET deleted_at = ? WHERE group_id = ? AND deleted_at IS NULL",
		now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete members: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE groups SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL",
		now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	if err := requireRow(res, "group"); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// AddMember inserts a new member into a group.
func (s *SQLiteStore) AddMember(ctx context.Context, member *models.Member) error {
	if member.ID == "" {
		member.ID = uuid.New().String()
	}
	if member.CreatedAt == 0 {
		member.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO members (id, group_id, name, user_id, is_creator, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		member.ID, member.GroupID, member.Name, nullString(member.UserID),
		member.IsCreator, member.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}

	return nil
}

// GetMember retrieves a live member by group and member ID.
func (s *SQLiteStore) GetMember(ctx context.Context, groupID, memberID string) (*models.Member, error) {
	member, err := s.scanMember(s.db.QueryRowContext(ctx,
		`SELECT id, group_id, name, user_id, is_creator, created_at
		 FROM members WHERE id = ? AND group_id = ? AND deleted_at IS NULL`,
		memberID, groupID,
	))
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, fmt.Errorf("%w: member", errs.ErrNotFound)
	}
	return member, nil
}

// GetMemberByUser retrieves the member row linked to a user within a group.
func (s *SQLiteStore) GetMemberByUser(ctx context.Context, groupID, userID string) (*models.Member, error) {
	return s.scanMember(s.db.QueryRowContext(ctx,
		`SELECT id, group_id, name, user_id, is_creator, created_at
		 FROM members WHERE group_id = ? AND user_id = ? AND deleted_at IS NULL`,
		groupID, userID,
	))
}

// ListMembers retrieves all live members of a group in creation order.
func (s *SQLiteStore) ListMembers(ctx context.Context, groupID string) ([]*models.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, name, user_id, is_creator, created_at
		 FROM members WHERE group_id = ? AND deleted_at IS NULL
		 ORDER BY created_at, id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		member := &models.Member{}
		var userID sql.NullString
		if err := rows.Scan(&member.ID, &member.GroupID, &member.Name, &userID,
			&member.IsCreator, &member.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		member.UserID = userID.String
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	return members, nil
}

// RenameMember updates a member's display name.
func (s *SQLiteStore) RenameMember(ctx context.Context, groupID, memberID, name string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE members SET name = ? WHERE id = ? AND group_id = ? AND deleted_at IS NULL",
		name, memberID, groupID,
	)
	if err != nil {
		return fmt.Errorf("failed to rename member: %w", err)
	}
	return requireRow(res, "member")
}

// DeleteMember soft-deletes a member and their splits. A member who still
// pays any live transaction cannot be removed; their transactions must be
// reassigned or deleted first.
func (s *SQLiteStore) DeleteMember(ctx context.Context, groupID, memberID string) error {
	var paying int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions
		 WHERE group_id = ? AND payer_id = ? AND deleted_at IS NULL`,
		groupID, memberID,
	).Scan(&paying)
	if err != nil {
		return fmt.Errorf("failed to check member transactions: %w", err)
	}
	if paying > 0 {
		return fmt.Errorf("%w: member still pays %d transaction(s)", errs.ErrConflict, paying)
	}

	now := time.Now().Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE splits SET deleted_at = ?
		 WHERE member_id = ? AND deleted_at IS NULL
		   AND transaction_id IN (SELECT id FROM transactions WHERE group_id = ?)`,
		now, memberID, groupID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete member splits: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE members SET deleted_at = ? WHERE id = ? AND group_id = ? AND deleted_at IS NULL",
		now, memberID, groupID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	if err := requireRow(res, "member"); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// LinkMemberUser claims a member row for a user. At most one member per
// (group, user) pair may be linked; a second claim fails.
func (s *SQLiteStore) LinkMemberUser(ctx context.Context, groupID, memberID, userID string) error {
	existing, err := s.GetMemberByUser(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: user already linked to member %s", errs.ErrConflict, existing.ID)
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE members SET user_id = ? WHERE id = ? AND group_id = ? AND deleted_at IS NULL",
		userID, memberID, groupID,
	)
	if err != nil {
		return fmt.Errorf("failed to link member: %w", err)
	}
	return requireRow(res, "member")
}

func (s *SQLiteStore) scanMember(row *sql.Row) (*models.Member, error) {
	member := &models.Member{}
	var userID sql.NullString

	err := row.Scan(&member.ID, &member.GroupID, &member.Name, &userID,
		&member.IsCreator, &member.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil // Member not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan member: %w", err)
	}

	member.UserID = userID.String
	return member, nil
}

// nullString maps the empty string to SQL NULL so the partial unique index
// on (group_id, user_id) only sees real links.
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// requireRow converts a zero-rows-affected update into ErrNotFound.
func requireRow(res sql.Result, entity string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", errs.ErrNotFound, entity)
	}
	return nil
}
