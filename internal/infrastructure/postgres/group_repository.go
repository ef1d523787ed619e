package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"hishab/internal/domain/group"
)

type GroupRepository struct {
	db *DB
}

func NewGroupRepository(db *DB) *GroupRepository {
	return &GroupRepository{db: db}
}

const groupColumns = `id, name, description, category, avatar, currency, owner_id, invite_code, allow_member_invite, auto_split, require_approval, total_expenses, total_transactions, last_activity_at, created_at, updated_at`

func scanGroup(row interface{ Scan(...any) error }) (*group.Group, error) {
	var g group.Group
	var lastActivity sql.NullTime
	err := row.Scan(
		&g.ID, &g.Name, &g.Description, &g.Category, &g.Avatar, &g.Currency,
		&g.OwnerID, &g.InviteCode, &g.AllowMemberInvite, &g.AutoSplit, &g.RequireApproval,
		&g.TotalExpenses, &g.TotalTransactions, &lastActivity, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastActivity.Valid {
		g.LastActivityAt = &lastActivity.Time
	}
	return &g, nil
}

func (r *GroupRepository) Create(ctx context.Context, params group.CreateGroupParams, inviteCode string) (*group.Group, error) {
	query := `
		INSERT INTO groups (name, description, category, avatar, currency, owner_id, invite_code,
			allow_member_invite, auto_split, require_approval)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + groupColumns

	g, err := scanGroup(r.db.QueryRowContext(ctx, query,
		params.Name, params.Description, params.Category, params.Avatar, params.Currency,
		params.OwnerID, inviteCode,
		*params.AllowMemberInvite, *params.AutoSplit, *params.RequireApproval,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}
	return g, nil
}

func (r *GroupRepository) GetByID(ctx context.Context, id string) (*group.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups WHERE id = $1`

	g, err := scanGroup(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, group.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	if g.MemberIDs, err = r.memberIDs(ctx, g.ID); err != nil {
		return nil, err
	}
	return g, nil
}

func (r *GroupRepository) GetByInviteCode(ctx context.Context, code string) (*group.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups WHERE invite_code = $1`

	g, err := scanGroup(r.db.QueryRowContext(ctx, query, code))
	if err == sql.ErrNoRows {
		return nil, group.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group by invite code: %w", err)
	}

	if g.MemberIDs, err = r.memberIDs(ctx, g.ID); err != nil {
		return nil, err
	}
	return g, nil
}

func (r *GroupRepository) ListByUser(ctx context.Context, userID string) ([]*group.Group, error) {
	query := `
		SELECT ` + groupColumns + `
		FROM groups
		WHERE owner_id = $1
		   OR id IN (SELECT group_id FROM group_members WHERE user_id = $1)
		ORDER BY last_activity_at DESC NULLS LAST, created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*group.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, g := range groups {
		if g.MemberIDs, err = r.memberIDs(ctx, g.ID); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

func (r *GroupRepository) Update(ctx context.Context, id string, params group.UpdateGroupParams) (*group.Group, error) {
	var name, description, category, avatar, currency any
	if params.Name != nil {
		name = *params.Name
	}
	if params.Description != nil {
		description = *params.Description
	}
	if params.Category != nil {
		category = *params.Category
	}
	if params.Avatar != nil {
		avatar = *params.Avatar
	}
	if params.Currency != nil {
		currency = *params.Currency
	}
	var allowInvite, autoSplit, requireApproval any
	if params.AllowMemberInvite != nil {
		allowInvite = *params.AllowMemberInvite
	}
	if params.AutoSplit != nil {
		autoSplit = *params.AutoSplit
	}
	if params.RequireApproval != nil {
		requireApproval = *params.RequireApproval
	}

	query := `
		UPDATE groups
		SET name = COALESCE($2::text, name),
		    description = COALESCE($3::text, description),
		    category = COALESCE($4::text, category),
		    avatar = COALESCE($5::text, avatar),
		    currency = COALESCE($6::text, currency),
		    allow_member_invite = COALESCE($7::boolean, allow_member_invite),
		    auto_split = COALESCE($8::boolean, auto_split),
		    require_approval = COALESCE($9::boolean, require_approval),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + groupColumns

	g, err := scanGroup(r.db.QueryRowContext(ctx, query, id, name, description, category, avatar, currency,
		allowInvite, autoSplit, requireApproval))
	if err == sql.ErrNoRows {
		return nil, group.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update group: %w", err)
	}

	if g.MemberIDs, err = r.memberIDs(ctx, g.ID); err != nil {
		return nil, err
	}
	return g, nil
}

func (r *GroupRepository) AddMember(ctx context.Context, groupID, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO group_members (group_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		groupID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to add group member: %w", err)
	}
	return nil
}

func (r *GroupRepository) RemoveMember(ctx context.Context, groupID, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`,
		groupID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove group member: %w", err)
	}
	return nil
}

// RecordExpense folds a new group expense into the running totals and
// marks the group active. Satisfies the transaction domain's GroupRecorder.
func (r *GroupRepository) RecordExpense(ctx context.Context, groupID string, amount float64, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE groups
		 SET total_expenses = total_expenses + $2,
		     total_transactions = total_transactions + 1,
		     last_activity_at = $3,
		     updated_at = NOW()
		 WHERE id = $1`,
		groupID, amount, at,
	)
	if err != nil {
		return fmt.Errorf("failed to record group expense: %w", err)
	}
	return nil
}

func (r *GroupRepository) TouchActivity(ctx context.Context, groupID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE groups SET last_activity_at = $2, updated_at = NOW() WHERE id = $1`,
		groupID, at,
	)
	if err != nil {
		return fmt.Errorf("failed to touch group activity: %w", err)
	}
	return nil
}

func (r *GroupRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return group.ErrNotFound
	}
	return nil
}

// memberIDs loads the member list for a group, joined-first order. The
// owner is not stored in group_members.
func (r *GroupRepository) memberIDs(ctx context.Context, groupID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM group_members WHERE group_id = $1 ORDER BY joined_at`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list group members: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
