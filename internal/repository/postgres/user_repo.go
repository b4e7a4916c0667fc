package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/mbastos/filegate/internal/errs"
	"github.com/mbastos/filegate/internal/model"
	"github.com/mbastos/filegate/internal/repository"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts the user and its profile in one transaction.
func (r *UserRepo) Create(ctx context.Context, u *model.User, p *model.Profile) (err error) {
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

	const insUser = `INSERT INTO users (id, email, pwd_hash, salt_auth) VALUES ($1,$2,$3,$4)`
	if _, err = tx.Exec(ctx, insUser, u.ID, u.Email, u.PwdHash, u.SaltAuth); err != nil {
		if isUniqueViolation(err) {
			return errs.ErrAlreadyExists
		}
		return err
	}
	const insProfile = `
INSERT INTO profiles (user_id, full_name, role, active, receive_notifications)
VALUES ($1,$2,$3,$4,$5)`
	_, err = tx.Exec(ctx, insProfile, p.UserID, p.FullName, p.Role, p.Active, p.ReceiveNotifications)
	return err
}

const userCols = `id, email, pwd_hash, salt_auth, reset_token, reset_token_expires, created_at`

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	q := `SELECT ` + userCols + ` FROM users WHERE id=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, id))
}

// GetByEmail selects a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	q := `SELECT ` + userCols + ` FROM users WHERE email=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, email))
}

// GetProfile selects the profile for a user.
func (r *UserRepo) GetProfile(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	const q = `
SELECT user_id, full_name, role, active, receive_notifications, updated_at
FROM profiles WHERE user_id=$1`
	var p model.Profile
	if err := r.db.Pool.QueryRow(ctx, q, userID).Scan(
		&p.UserID, &p.FullName, &p.Role, &p.Active, &p.ReceiveNotifications, &p.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// List returns all accounts with profiles ordered by full name.
func (r *UserRepo) List(ctx context.Context) ([]repository.UserAccount, error) {
	const q = `
SELECT u.id, u.email, u.created_at, p.full_name, p.role, p.active, p.receive_notifications, p.updated_at
FROM users u
JOIN profiles p ON p.user_id = u.id
ORDER BY p.full_name`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.UserAccount
	for rows.Next() {
		var a repository.UserAccount
		if err := rows.Scan(
			&a.User.ID, &a.User.Email, &a.User.CreatedAt,
			&a.Profile.FullName, &a.Profile.Role, &a.Profile.Active,
			&a.Profile.ReceiveNotifications, &a.Profile.UpdatedAt,
		); err != nil {
			return nil, err
		}
		a.Profile.UserID = a.User.ID
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateProfile rewrites the mutable profile columns.
func (r *UserRepo) UpdateProfile(ctx context.Context, p *model.Profile) error {
	const q = `
UPDATE profiles SET full_name=$2, role=$3, active=$4, receive_notifications=$5, updated_at=now()
WHERE user_id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, p.UserID, p.FullName, p.Role, p.Active, p.ReceiveNotifications)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// SetResetToken stores a password-reset token with its expiry.
// No error distinguishes an unknown email; callers must not reveal existence.
func (r *UserRepo) SetResetToken(ctx context.Context, email, token string, expires time.Time) error {
	const q = `UPDATE users SET reset_token=$2, reset_token_expires=$3 WHERE email=$1`
	tag, err := r.db.Pool.Exec(ctx, q, email, token, expires)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// GetByResetToken selects a user by a non-expired reset token.
func (r *UserRepo) GetByResetToken(ctx context.Context, token string, now time.Time) (*model.User, error) {
	q := `SELECT ` + userCols + ` FROM users WHERE reset_token=$1 AND reset_token<>'' AND reset_token_expires > $2`
	return scanUser(r.db.Pool.QueryRow(ctx, q, token, now))
}

// ResetPassword sets new credentials and invalidates the reset token.
func (r *UserRepo) ResetPassword(ctx context.Context, userID uuid.UUID, pwdHash, saltAuth []byte) error {
	const q = `
UPDATE users SET pwd_hash=$2, salt_auth=$3, reset_token='', reset_token_expires=NULL
WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, userID, pwdHash, saltAuth)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// CountActive returns the number of active profiles.
func (r *UserRepo) CountActive(ctx context.Context) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM profiles WHERE active`).Scan(&n)
	return n, err
}

// NotificationTargets resolves the grant set to opted-in recipients.
// A category grant fans out to every opted-in active user; this mirrors the
// breadth of the category rule on the read side.
func (r *UserRepo) NotificationTargets(ctx context.Context, grants []model.Grant) (map[string]string, error) {
	out := make(map[string]string)
	const byUser = `
SELECT u.email, p.full_name FROM users u
JOIN profiles p ON p.user_id = u.id
WHERE u.id=$1 AND p.active AND p.receive_notifications`
	const byGroup = `
SELECT DISTINCT u.email, p.full_name FROM users u
JOIN profiles p ON p.user_id = u.id
JOIN user_groups ug ON ug.user_id = u.id
WHERE ug.group_id=$1 AND p.active AND p.receive_notifications`
	const all = `
SELECT u.email, p.full_name FROM users u
JOIN profiles p ON p.user_id = u.id
WHERE p.active AND p.receive_notifications`

	collect := func(sql string, args ...any) error {
		rows, err := r.db.Pool.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var email, name string
			if err := rows.Scan(&email, &name); err != nil {
				return err
			}
			out[email] = name
		}
		return rows.Err()
	}

	for _, g := range grants {
		switch g.Kind {
		case model.GrantUser:
			if err := collect(byUser, g.TargetID); err != nil {
				return nil, err
			}
		case model.GrantGroup:
			if err := collect(byGroup, g.TargetID); err != nil {
				return nil, err
			}
		case model.GrantCategory:
			if err := collect(all); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(
		&u.ID, &u.Email, &u.PwdHash, &u.SaltAuth,
		&u.ResetToken, &u.ResetTokenExpires, &u.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
