// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/mbastos/filegate/internal/model"
)

// FileRepository provides access to files and their permission rows.
// Implementations must load each file together with its grants.
type FileRepository interface {
	// Create inserts the file row and its grant rows in one transaction.
	// A failure on any grant insert rolls back the file row as well.
	Create(ctx context.Context, f *model.File, grants []model.Grant) error

	// Update rewrites the mutable file columns. When replaceGrants is true
	// the file's grant rows are replaced with the given set in the same
	// transaction (delete all, insert new, all-or-nothing).
	Update(ctx context.Context, f *model.File, grants []model.Grant, replaceGrants bool) error

	// ReplaceGrants atomically swaps the file's grant rows for the given set.
	ReplaceGrants(ctx context.Context, fileID uuid.UUID, grants []model.Grant) error

	// GetByID returns a file with its grants. Soft-deleted files are
	// reported as ErrNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*model.File, error)

	// ListAll returns all non-soft-deleted files with their grants,
	// newest first. Visibility filtering happens above this layer.
	ListAll(ctx context.Context) ([]*model.File, error)

	// Grants returns the raw permission rows for a file.
	Grants(ctx context.Context, fileID uuid.UUID) ([]model.Grant, error)

	// SoftDelete marks the file deleted, preserving download history.
	SoftDelete(ctx context.Context, id uuid.UUID) error
}
