package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/mbastos/filegate/internal/model"
)

// UserAccount pairs the identity row with its profile for listings.
type UserAccount struct {
	User    model.User
	Profile model.Profile
}

// UserRepository provides access to users and profiles.
type UserRepository interface {
	// Create inserts the user and its profile in one transaction.
	Create(ctx context.Context, u *model.User, p *model.Profile) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByEmail loads a user by email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// GetProfile loads the profile for a user.
	GetProfile(ctx context.Context, userID uuid.UUID) (*model.Profile, error)
	// List returns all accounts with profiles, ordered by full name.
	List(ctx context.Context) ([]UserAccount, error)
	// UpdateProfile rewrites the mutable profile columns.
	UpdateProfile(ctx context.Context, p *model.Profile) error
	// SetResetToken stores a password-reset token with its expiry.
	SetResetToken(ctx context.Context, email, token string, expires time.Time) error
	// GetByResetToken loads a user by a non-expired reset token.
	GetByResetToken(ctx context.Context, token string, now time.Time) (*model.User, error)
	// ResetPassword sets new credentials and clears the reset token.
	ResetPassword(ctx context.Context, userID uuid.UUID, pwdHash, saltAuth []byte) error
	// CountActive returns the number of active profiles.
	CountActive(ctx context.Context) (int, error)
	// NotificationTargets returns (email, full name) pairs of active users
	// who opted into notifications and can see the given grants: direct
	// user grants resolve to that user, group grants to group members, and
	// a category grant fans out to every opted-in active user.
	NotificationTargets(ctx context.Context, grants []model.Grant) (map[string]string, error)
}
