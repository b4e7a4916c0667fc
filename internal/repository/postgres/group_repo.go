package postgres

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/mbastos/filegate/internal/errs"
	"github.com/mbastos/filegate/internal/model"
	"github.com/mbastos/filegate/internal/repository"
)

// GroupRepo implements GroupRepository using PostgreSQL.
type GroupRepo struct{ db *DB }

// NewGroupRepo constructs a group repository.
func NewGroupRepo(db *DB) *GroupRepo { return &GroupRepo{db: db} }

// Create inserts a new group.
func (r *GroupRepo) Create(ctx context.Context, g *model.Group) error {
	const q = `INSERT INTO groups (id, name, description, created_by) VALUES ($1,$2,$3,$4)`
	_, err := r.db.Pool.Exec(ctx, q, g.ID, g.Name, g.Description, g.CreatedBy)
	return err
}

// GetByID selects a group by ID.
func (r *GroupRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Group, error) {
	const q = `SELECT id, name, description, created_by, created_at FROM groups WHERE id=$1`
	var g model.Group
	if err := r.db.Pool.QueryRow(ctx, q, id).Scan(&g.ID, &g.Name, &g.Description, &g.CreatedBy, &g.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

// List returns all groups by name.
func (r *GroupRepo) List(ctx context.Context) ([]model.Group, error) {
	const q = `SELECT id, name, description, created_by, created_at FROM groups ORDER BY name`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Group
	for rows.Next() {
		var g model.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedBy, &g.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Update rewrites name and description.
func (r *GroupRepo) Update(ctx context.Context, g *model.Group) error {
	const q = `UPDATE groups SET name=$2, description=$3 WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, g.ID, g.Name, g.Description)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Delete removes a group; memberships cascade.
func (r *GroupRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM groups WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Members returns the active accounts belonging to a group.
func (r *GroupRepo) Members(ctx context.Context, groupID uuid.UUID) ([]repository.UserAccount, error) {
	const q = `
SELECT u.id, u.email, p.full_name, p.role
FROM user_groups ug
JOIN users u ON u.id = ug.user_id
JOIN profiles p ON p.user_id = u.id
WHERE ug.group_id=$1 AND p.active
ORDER BY p.full_name`
	rows, err := r.db.Pool.Query(ctx, q, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.UserAccount
	for rows.Next() {
		var a repository.UserAccount
		if err := rows.Scan(&a.User.ID, &a.User.Email, &a.Profile.FullName, &a.Profile.Role); err != nil {
			return nil, err
		}
		a.Profile.UserID = a.User.ID
		a.Profile.Active = true
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateMembers applies a set/add/remove action in one transaction.
// A set replaces the whole membership; partial application is never visible.
func (r *GroupRepo) UpdateMembers(ctx context.Context, groupID uuid.UUID, userIDs []uuid.UUID, addedBy uuid.UUID, action repository.MemberAction) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	switch action {
	case repository.MemberSet:
		if _, err = tx.Exec(ctx, `DELETE FROM user_groups WHERE group_id=$1`, groupID); err != nil {
			return err
		}
		fallthrough
	case repository.MemberAdd:
		const ins = `
INSERT INTO user_groups (group_id, user_id, added_by)
VALUES ($1,$2,$3)
ON CONFLICT (group_id, user_id) DO NOTHING`
		for _, uid := range userIDs {
			if _, err = tx.Exec(ctx, ins, groupID, uid, addedBy); err != nil {
				return err
			}
		}
	case repository.MemberRemove:
		for _, uid := range userIDs {
			if _, err = tx.Exec(ctx, `DELETE FROM user_groups WHERE group_id=$1 AND user_id=$2`, groupID, uid); err != nil {
				return err
			}
		}
	default:
		return errs.ErrValidation
	}
	return nil
}

// GroupsOfUser returns the group ids a user belongs to.
func (r *GroupRepo) GroupsOfUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	const q = `SELECT group_id FROM user_groups WHERE user_id=$1`
	return scanIDs(r.db.Pool.Query(ctx, q, userID))
}

func scanIDs(rows pgx.Rows, err error) ([]uuid.UUID, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
