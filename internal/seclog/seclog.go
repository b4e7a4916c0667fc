// Package seclog records security-relevant events in the security_logs table.
package seclog

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// Event types recorded across the handlers.
const (
	EventInvalidToken       = "invalid_token"
	EventLoginBlocked       = "login_blocked"
	EventInvalidFileUpload  = "invalid_file_upload"
	EventFileUploaded       = "file_uploaded"
	EventFileDeleted        = "file_deleted"
	EventPermissionsChanged = "permissions_changed"
	EventGroupMembersSet    = "group_members_updated"
	EventPasswordReset      = "password_reset"
	EventLogout             = "logout"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Logger writes security events to the database and mirrors them to zap.
// Writes are best effort: an insert failure is logged, never fatal.
type Logger struct {
	db  execer
	log *zap.Logger
}

// New constructs a security logger.
func New(db execer, log *zap.Logger) *Logger {
	return &Logger{db: db, log: log}
}

// Event records one security event. userID may be nil for anonymous events.
func (l *Logger) Event(ctx context.Context, eventType, ip string, userID *uuid.UUID, details string) {
	id, err := uuid.NewV4()
	if err != nil {
		l.log.Error("seclog: id", zap.Error(err))
		return
	}
	const q = `
INSERT INTO security_logs (id, event_type, ip, user_id, details)
VALUES ($1,$2,$3,$4,$5)`
	if _, err := l.db.Exec(ctx, q, id, eventType, ip, userID, details); err != nil {
		l.log.Error("seclog: insert", zap.String("event", eventType), zap.Error(err))
		return
	}
	l.log.Info("security event",
		zap.String("event", eventType),
		zap.String("ip", ip),
		zap.String("details", details),
	)
}
