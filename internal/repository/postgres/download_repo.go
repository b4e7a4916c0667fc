package postgres

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/mbastos/filegate/internal/model"
)

// DownloadRepo implements DownloadRepository using PostgreSQL.
// The downloads table is append-only; nothing here updates or deletes.
type DownloadRepo struct{ db *DB }

// NewDownloadRepo constructs a download repository.
func NewDownloadRepo(db *DB) *DownloadRepo { return &DownloadRepo{db: db} }

// Record appends one download audit row.
func (r *DownloadRepo) Record(ctx context.Context, d *model.Download) error {
	const q = `INSERT INTO downloads (id, user_id, file_id, downloaded_at) VALUES ($1,$2,$3,$4)`
	_, err := r.db.Pool.Exec(ctx, q, d.ID, d.UserID, d.FileID, d.DownloadedAt)
	return err
}

// CountByUser returns the user's lifetime download count.
func (r *DownloadRepo) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM downloads WHERE user_id=$1`, userID).Scan(&n)
	return n, err
}

// CountAll returns the system-wide download count.
func (r *DownloadRepo) CountAll(ctx context.Context) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM downloads`).Scan(&n)
	return n, err
}

// CountOnDay returns downloads on the given calendar day.
func (r *DownloadRepo) CountOnDay(ctx context.Context, day time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM downloads WHERE downloaded_at >= $1 AND downloaded_at < $2`
	start := day.Truncate(24 * time.Hour)
	var n int
	err := r.db.Pool.QueryRow(ctx, q, start, start.Add(24*time.Hour)).Scan(&n)
	return n, err
}

// UniqueUsersInMonth returns distinct downloading users in the month of t.
func (r *DownloadRepo) UniqueUsersInMonth(ctx context.Context, t time.Time) (int, error) {
	const q = `
SELECT COUNT(DISTINCT user_id) FROM downloads
WHERE downloaded_at >= $1 AND downloaded_at < $2`
	y, m, _ := t.UTC().Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	var n int
	err := r.db.Pool.QueryRow(ctx, q, start, start.AddDate(0, 1, 0)).Scan(&n)
	return n, err
}

// SeriesSince returns per-day download counts from the given day, ascending.
func (r *DownloadRepo) SeriesSince(ctx context.Context, from time.Time) ([]model.DownloadsByDay, error) {
	const q = `
SELECT date_trunc('day', downloaded_at)::date AS day, COUNT(*)
FROM downloads
WHERE downloaded_at >= $1
GROUP BY day
ORDER BY day ASC`
	rows, err := r.db.Pool.Query(ctx, q, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DownloadsByDay
	for rows.Next() {
		var p model.DownloadsByDay
		if err := rows.Scan(&p.Date, &p.Count); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
