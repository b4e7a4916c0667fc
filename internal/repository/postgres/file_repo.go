package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/mbastos/filegate/internal/errs"
	"github.com/mbastos/filegate/internal/model"
)

// FileRepo implements FileRepository using PostgreSQL.
type FileRepo struct{ db *DB }

// NewFileRepo constructs a file repository.
func NewFileRepo(db *DB) *FileRepo { return &FileRepo{db: db} }

const fileCols = `id, title, description, file_url, file_type, file_size, uploaded_by,
start_date, end_date, is_permanent, status, created_at, updated_at, deleted_at`

// Create inserts the file row and its grant rows in one transaction.
func (r *FileRepo) Create(ctx context.Context, f *model.File, grants []model.Grant) (err error) {
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

	const ins = `
INSERT INTO files (id, title, description, file_url, file_type, file_size, uploaded_by, start_date, end_date, is_permanent, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	if _, err = tx.Exec(ctx, ins,
		f.ID, f.Title, f.Description, f.FileURL, f.FileType, f.FileSize,
		f.UploadedBy, f.StartDate, f.EndDate, f.IsPermanent, f.Status,
	); err != nil {
		return err
	}
	return insertGrants(ctx, tx, f.ID, grants)
}

// Update rewrites the mutable file columns; with replaceGrants it swaps the
// grant rows in the same transaction.
func (r *FileRepo) Update(ctx context.Context, f *model.File, grants []model.Grant, replaceGrants bool) (err error) {
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

	const upd = `
UPDATE files SET title=$2, description=$3, start_date=$4, end_date=$5, is_permanent=$6, status=$7, updated_at=now()
WHERE id=$1 AND deleted_at IS NULL`
	tag, err := tx.Exec(ctx, upd,
		f.ID, f.Title, f.Description, f.StartDate, f.EndDate, f.IsPermanent, f.Status,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	if !replaceGrants {
		return nil
	}
	if _, err = tx.Exec(ctx, `DELETE FROM file_permissions WHERE file_id=$1`, f.ID); err != nil {
		return err
	}
	return insertGrants(ctx, tx, f.ID, grants)
}

// ReplaceGrants atomically swaps the file's grant rows for the given set.
// The delete takes row locks, so concurrent replaces serialize and a mixed
// result is never observable.
func (r *FileRepo) ReplaceGrants(ctx context.Context, fileID uuid.UUID, grants []model.Grant) (err error) {
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

	if _, err = tx.Exec(ctx, `DELETE FROM file_permissions WHERE file_id=$1`, fileID); err != nil {
		return err
	}
	return insertGrants(ctx, tx, fileID, grants)
}

// insertGrants writes the permission rows within the caller's transaction.
func insertGrants(ctx context.Context, tx pgx.Tx, fileID uuid.UUID, grants []model.Grant) error {
	const ins = `
INSERT INTO file_permissions (id, file_id, user_id, group_id, category_id)
VALUES ($1,$2,$3,$4,$5)`
	for _, g := range grants {
		id := g.ID
		if id == uuid.Nil {
			var err error
			if id, err = uuid.NewV4(); err != nil {
				return err
			}
		}
		var userID, groupID, categoryID *uuid.UUID
		switch g.Kind {
		case model.GrantUser:
			t := g.TargetID
			userID = &t
		case model.GrantGroup:
			t := g.TargetID
			groupID = &t
		case model.GrantCategory:
			t := g.TargetID
			categoryID = &t
		default:
			return errs.ErrValidation
		}
		if _, err := tx.Exec(ctx, ins, id, fileID, userID, groupID, categoryID); err != nil {
			return err
		}
	}
	return nil
}

// GetByID returns a file with its grants; soft-deleted rows are not found.
func (r *FileRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.File, error) {
	q := `SELECT ` + fileCols + ` FROM files WHERE id=$1 AND deleted_at IS NULL`
	row := r.db.Pool.QueryRow(ctx, q, id)
	f, err := scanFile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	if f.Grants, err = r.Grants(ctx, f.ID); err != nil {
		return nil, err
	}
	return f, nil
}

// ListAll returns all non-soft-deleted files with grants, newest first.
func (r *FileRepo) ListAll(ctx context.Context) ([]*model.File, error) {
	q := `SELECT ` + fileCols + ` FROM files WHERE deleted_at IS NULL ORDER BY created_at DESC`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.File
	byID := make(map[uuid.UUID]*model.File)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
		byID[f.ID] = f
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	const gq = `
SELECT p.id, p.file_id, p.user_id, p.group_id, p.category_id
FROM file_permissions p
JOIN files f ON f.id = p.file_id
WHERE f.deleted_at IS NULL
ORDER BY p.created_at`
	grows, err := r.db.Pool.Query(ctx, gq)
	if err != nil {
		return nil, err
	}
	defer grows.Close()
	for grows.Next() {
		var fileID uuid.UUID
		g, err := scanGrant(grows, &fileID)
		if err != nil {
			return nil, err
		}
		if f, ok := byID[fileID]; ok {
			f.Grants = append(f.Grants, g)
		}
	}
	return out, grows.Err()
}

// Grants returns the raw permission rows for a file.
func (r *FileRepo) Grants(ctx context.Context, fileID uuid.UUID) ([]model.Grant, error) {
	const q = `
SELECT id, file_id, user_id, group_id, category_id
FROM file_permissions WHERE file_id=$1 ORDER BY created_at`
	rows, err := r.db.Pool.Query(ctx, q, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	grants := []model.Grant{}
	for rows.Next() {
		var fid uuid.UUID
		g, err := scanGrant(rows, &fid)
		if err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

// SoftDelete marks the file deleted.
func (r *FileRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE files SET deleted_at=now(), updated_at=now() WHERE id=$1 AND deleted_at IS NULL`
	tag, err := r.db.Pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func scanFile(row pgx.Row) (*model.File, error) {
	var f model.File
	if err := row.Scan(
		&f.ID, &f.Title, &f.Description, &f.FileURL, &f.FileType, &f.FileSize,
		&f.UploadedBy, &f.StartDate, &f.EndDate, &f.IsPermanent, &f.Status,
		&f.CreatedAt, &f.UpdatedAt, &f.DeletedAt,
	); err != nil {
		return nil, err
	}
	return &f, nil
}

// scanGrant reads one file_permissions row; the DB CHECK guarantees exactly
// one target column is set.
func scanGrant(row pgx.Row, fileID *uuid.UUID) (model.Grant, error) {
	var (
		id                          uuid.UUID
		userID, groupID, categoryID *uuid.UUID
	)
	if err := row.Scan(&id, fileID, &userID, &groupID, &categoryID); err != nil {
		return model.Grant{}, err
	}
	var g model.Grant
	switch {
	case userID != nil:
		g = model.NewUserGrant(*userID)
	case groupID != nil:
		g = model.NewGroupGrant(*groupID)
	case categoryID != nil:
		g = model.NewCategoryGrant(*categoryID)
	default:
		return model.Grant{}, errs.ErrValidation
	}
	g.ID = id
	return g, nil
}
