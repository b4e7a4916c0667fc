package service

import (
	"context"
	"errors"
	"testing"

	"github.com/gofrs/uuid/v5"

	"github.com/mbastos/filegate/internal/errs"
	"github.com/mbastos/filegate/internal/model"
)

func TestUsers_List_AdminOnly(t *testing.T) {
	t.Parallel()

	users := newFakeUsers()
	u, p := newTestUser("a@example.com", "x")
	users.add(u, p)
	s := NewUserService(users)
	ctx := context.Background()

	if _, err := s.List(ctx, Actor{Role: model.RoleOperator}); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("want ErrForbidden for operator, got %v", err)
	}
	got, err := s.List(ctx, Actor{Role: model.RoleAdmin})
	if err != nil || len(got) != 1 {
		t.Fatalf("admin list: %v (%d)", err, len(got))
	}
}

func TestUsers_Update_AdminGuards(t *testing.T) {
	t.Parallel()

	users := newFakeUsers()
	u, p := newTestUser("a@example.com", "x")
	users.add(u, p)
	adminU, adminP := newTestUser("admin@example.com", "x")
	adminP.Role = model.RoleAdmin
	users.add(adminU, adminP)
	admin := Actor{ID: adminU.ID, Role: model.RoleAdmin}
	s := NewUserService(users)
	ctx := context.Background()

	upd := ProfileUpdate{FullName: "New Name", Role: model.RoleOperator, Active: true, ReceiveNotifications: false}

	if err := s.Update(ctx, Actor{Role: model.RoleOperator}, u.ID, upd); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("want ErrForbidden for non-admin, got %v", err)
	}
	if err := s.Update(ctx, admin, u.ID, ProfileUpdate{FullName: "x", Role: "boss"}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want ErrValidation for unknown role, got %v", err)
	}
	if err := s.Update(ctx, admin, u.ID, ProfileUpdate{FullName: " ", Role: model.RoleUser}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want ErrValidation for blank name, got %v", err)
	}
	if err := s.Update(ctx, admin, uuid.Must(uuid.NewV4()), upd); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound for unknown user, got %v", err)
	}

	// Self-demotion and self-deactivation are blocked.
	if err := s.Update(ctx, admin, admin.ID, ProfileUpdate{FullName: "Admin", Role: model.RoleUser, Active: true}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want ErrValidation on self-demotion, got %v", err)
	}
	if err := s.Update(ctx, admin, admin.ID, ProfileUpdate{FullName: "Admin", Role: model.RoleAdmin, Active: false}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want ErrValidation on self-deactivation, got %v", err)
	}

	if err := s.Update(ctx, admin, u.ID, upd); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got := users.profiles[u.ID]
	if got.FullName != "New Name" || got.Role != model.RoleOperator || got.ReceiveNotifications {
		t.Fatalf("profile not applied: %+v", got)
	}
}

func TestUsers_UpdateSelf_KeepsRoleAndActive(t *testing.T) {
	t.Parallel()

	users := newFakeUsers()
	u, p := newTestUser("a@example.com", "x")
	users.add(u, p)
	actor := Actor{ID: u.ID, Role: model.RoleUser}
	s := NewUserService(users)
	ctx := context.Background()

	// A crafted payload cannot escalate the stored role.
	if err := s.UpdateSelf(ctx, actor, ProfileUpdate{FullName: "Me", Role: model.RoleAdmin, Active: false, ReceiveNotifications: false}); err != nil {
		t.Fatalf("UpdateSelf: %v", err)
	}
	got := users.profiles[u.ID]
	if got.Role != model.RoleUser || !got.Active {
		t.Fatalf("self update changed role/active: %+v", got)
	}
	if got.FullName != "Me" || got.ReceiveNotifications {
		t.Fatalf("display fields not applied: %+v", got)
	}
}
