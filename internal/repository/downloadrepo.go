package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/mbastos/filegate/internal/model"
)

// DownloadRepository records and aggregates the append-only download audit.
// Rows are never updated or deleted.
type DownloadRepository interface {
	// Record appends one download audit row.
	Record(ctx context.Context, d *model.Download) error
	// CountByUser returns the user's lifetime download count.
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
	// CountAll returns the system-wide download count.
	CountAll(ctx context.Context) (int, error)
	// CountOnDay returns downloads on the given calendar day.
	CountOnDay(ctx context.Context, day time.Time) (int, error)
	// UniqueUsersInMonth returns distinct downloading users in the month of t.
	UniqueUsersInMonth(ctx context.Context, t time.Time) (int, error)
	// SeriesSince returns per-day download counts from the given day, ascending.
	SeriesSince(ctx context.Context, from time.Time) ([]model.DownloadsByDay, error)
}
