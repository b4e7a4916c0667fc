package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/mbastos/filegate/internal/errs"
	"github.com/mbastos/filegate/internal/model"
	"github.com/mbastos/filegate/internal/repository"
)

// ProfileUpdate carries a profile change. Role and Active are applied only
// on admin-driven updates; self-service updates ignore them.
type ProfileUpdate struct {
	FullName             string
	Role                 model.Role
	Active               bool
	ReceiveNotifications bool
}

// UserService exposes account administration and profile self-service.
type UserService interface {
	// List returns every account with its profile; admin only.
	List(ctx context.Context, actor Actor) ([]repository.UserAccount, error)
	// Update rewrites another user's profile; admin only.
	Update(ctx context.Context, actor Actor, userID uuid.UUID, upd ProfileUpdate) error
	// UpdateSelf lets the actor change their own display fields. Role and
	// active state are kept as stored, never taken from the request.
	UpdateSelf(ctx context.Context, actor Actor, upd ProfileUpdate) error
	// Profile loads the actor's own profile.
	Profile(ctx context.Context, actor Actor) (*model.Profile, error)
}

type UserServiceImpl struct {
	users repository.UserRepository
	now   func() time.Time
}

// NewUserService constructs UserService.
func NewUserService(users repository.UserRepository) *UserServiceImpl {
	return &UserServiceImpl{users: users, now: time.Now}
}

func (s *UserServiceImpl) List(ctx context.Context, actor Actor) ([]repository.UserAccount, error) {
	if actor.Role != model.RoleAdmin {
		return nil, errs.ErrForbidden
	}
	return s.users.List(ctx)
}

func (s *UserServiceImpl) Update(ctx context.Context, actor Actor, userID uuid.UUID, upd ProfileUpdate) error {
	if actor.Role != model.RoleAdmin {
		return errs.ErrForbidden
	}
	switch upd.Role {
	case model.RoleAdmin, model.RoleOperator, model.RoleUser:
	default:
		return fmt.Errorf("%w: unknown role %q", errs.ErrValidation, upd.Role)
	}
	if strings.TrimSpace(upd.FullName) == "" {
		return fmt.Errorf("%w: full_name is required", errs.ErrValidation)
	}
	// An admin cannot lock themselves out through this path.
	if userID == actor.ID && (upd.Role != model.RoleAdmin || !upd.Active) {
		return fmt.Errorf("%w: cannot demote or deactivate own account", errs.ErrValidation)
	}
	if _, err := s.users.GetProfile(ctx, userID); err != nil {
		return err
	}
	p := &model.Profile{
		UserID:               userID,
		FullName:             strings.TrimSpace(upd.FullName),
		Role:                 upd.Role,
		Active:               upd.Active,
		ReceiveNotifications: upd.ReceiveNotifications,
		UpdatedAt:            s.now(),
	}
	return s.users.UpdateProfile(ctx, p)
}

func (s *UserServiceImpl) UpdateSelf(ctx context.Context, actor Actor, upd ProfileUpdate) error {
	if strings.TrimSpace(upd.FullName) == "" {
		return fmt.Errorf("%w: full_name is required", errs.ErrValidation)
	}
	stored, err := s.users.GetProfile(ctx, actor.ID)
	if err != nil {
		return err
	}
	p := &model.Profile{
		UserID:               actor.ID,
		FullName:             strings.TrimSpace(upd.FullName),
		Role:                 stored.Role,
		Active:               stored.Active,
		ReceiveNotifications: upd.ReceiveNotifications,
		UpdatedAt:            s.now(),
	}
	return s.users.UpdateProfile(ctx, p)
}

func (s *UserServiceImpl) Profile(ctx context.Context, actor Actor) (*model.Profile, error) {
	return s.users.GetProfile(ctx, actor.ID)
}
