package postgres

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/mbastos/filegate/internal/errs"
	"github.com/mbastos/filegate/internal/model"
)

// CategoryRepo implements CategoryRepository using PostgreSQL.
type CategoryRepo struct{ db *DB }

// NewCategoryRepo constructs a category repository.
func NewCategoryRepo(db *DB) *CategoryRepo { return &CategoryRepo{db: db} }

// Create inserts a new category.
func (r *CategoryRepo) Create(ctx context.Context, c *model.Category) error {
	const q = `INSERT INTO categories (id, name, description, created_by) VALUES ($1,$2,$3,$4)`
	_, err := r.db.Pool.Exec(ctx, q, c.ID, c.Name, c.Description, c.CreatedBy)
	return err
}

// List returns all categories by name.
func (r *CategoryRepo) List(ctx context.Context) ([]model.Category, error) {
	const q = `SELECT id, name, description, created_by, created_at FROM categories ORDER BY name`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedBy, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Delete removes a category; subscriptions and grants cascade.
func (r *CategoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM categories WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Subscribe adds a user to a category, keeping an existing subscription.
func (r *CategoryRepo) Subscribe(ctx context.Context, categoryID, userID uuid.UUID) error {
	const q = `
INSERT INTO user_categories (category_id, user_id)
VALUES ($1,$2)
ON CONFLICT (category_id, user_id) DO NOTHING`
	_, err := r.db.Pool.Exec(ctx, q, categoryID, userID)
	return err
}

// Unsubscribe removes a user from a category.
func (r *CategoryRepo) Unsubscribe(ctx context.Context, categoryID, userID uuid.UUID) error {
	const q = `DELETE FROM user_categories WHERE category_id=$1 AND user_id=$2`
	_, err := r.db.Pool.Exec(ctx, q, categoryID, userID)
	return err
}

// CategoriesOfUser returns the category ids a user subscribes to.
func (r *CategoryRepo) CategoriesOfUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	const q = `SELECT category_id FROM user_categories WHERE user_id=$1`
	return scanIDs(r.db.Pool.Query(ctx, q, userID))
}
