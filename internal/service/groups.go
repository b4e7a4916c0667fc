package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"

	"github.com/mbastos/filegate/internal/errs"
	"github.com/mbastos/filegate/internal/model"
	"github.com/mbastos/filegate/internal/repository"
)

// GroupService manages groups and their memberships.
type GroupService interface {
	Create(ctx context.Context, actor Actor, name, description string) (*model.Group, error)
	List(ctx context.Context, actor Actor) ([]model.Group, error)
	// Update renames a group; admin or the group's creator only.
	Update(ctx context.Context, actor Actor, groupID uuid.UUID, name, description string) error
	Delete(ctx context.Context, actor Actor, groupID uuid.UUID) error
	Members(ctx context.Context, actor Actor, groupID uuid.UUID) ([]repository.UserAccount, error)
	// UpdateMembers applies a set/add/remove action in one transaction;
	// admin or the group's creator only.
	UpdateMembers(ctx context.Context, actor Actor, groupID uuid.UUID, userIDs []uuid.UUID, action repository.MemberAction) error
}

type GroupServiceImpl struct {
	groups repository.GroupRepository
}

// NewGroupService constructs GroupService.
func NewGroupService(groups repository.GroupRepository) *GroupServiceImpl {
	return &GroupServiceImpl{groups: groups}
}

func (s *GroupServiceImpl) Create(ctx context.Context, actor Actor, name, description string) (*model.Group, error) {
	if !actor.Role.Privileged() {
		return nil, errs.ErrForbidden
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: group name is required", errs.ErrValidation)
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	g := &model.Group{ID: id, Name: name, Description: strings.TrimSpace(description), CreatedBy: actor.ID}
	if err := s.groups.Create(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *GroupServiceImpl) List(ctx context.Context, actor Actor) ([]model.Group, error) {
	if !actor.Role.Privileged() {
		return nil, errs.ErrForbidden
	}
	return s.groups.List(ctx)
}

// canManage allows an admin or the group's creator to change it.
func (s *GroupServiceImpl) canManage(ctx context.Context, actor Actor, groupID uuid.UUID) (*model.Group, error) {
	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if actor.Role != model.RoleAdmin && g.CreatedBy != actor.ID {
		return nil, errs.ErrForbidden
	}
	return g, nil
}

func (s *GroupServiceImpl) Update(ctx context.Context, actor Actor, groupID uuid.UUID, name, description string) error {
	if !actor.Role.Privileged() {
		return errs.ErrForbidden
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: group name is required", errs.ErrValidation)
	}
	g, err := s.canManage(ctx, actor, groupID)
	if err != nil {
		return err
	}
	g.Name = name
	g.Description = strings.TrimSpace(description)
	return s.groups.Update(ctx, g)
}

func (s *GroupServiceImpl) Delete(ctx context.Context, actor Actor, groupID uuid.UUID) error {
	if !actor.Role.Privileged() {
		return errs.ErrForbidden
	}
	if _, err := s.canManage(ctx, actor, groupID); err != nil {
		return err
	}
	return s.groups.Delete(ctx, groupID)
}

func (s *GroupServiceImpl) Members(ctx context.Context, actor Actor, groupID uuid.UUID) ([]repository.UserAccount, error) {
	if !actor.Role.Privileged() {
		return nil, errs.ErrForbidden
	}
	if _, err := s.groups.GetByID(ctx, groupID); err != nil {
		return nil, err
	}
	return s.groups.Members(ctx, groupID)
}

func (s *GroupServiceImpl) UpdateMembers(ctx context.Context, actor Actor, groupID uuid.UUID, userIDs []uuid.UUID, action repository.MemberAction) error {
	if !actor.Role.Privileged() {
		return errs.ErrForbidden
	}
	switch action {
	case repository.MemberSet, repository.MemberAdd, repository.MemberRemove:
	default:
		return fmt.Errorf("%w: unknown member action %q", errs.ErrValidation, action)
	}
	if _, err := s.canManage(ctx, actor, groupID); err != nil {
		return err
	}
	return s.groups.UpdateMembers(ctx, groupID, userIDs, actor.ID, action)
}

// CategoryService manages categories and user subscriptions.
type CategoryService interface {
	Create(ctx context.Context, actor Actor, name, description string) (*model.Category, error)
	// List is open to every authenticated user so subscription pages work.
	List(ctx context.Context) ([]model.Category, error)
	Delete(ctx context.Context, actor Actor, categoryID uuid.UUID) error
	// Subscribe and Unsubscribe act on the actor's own subscriptions.
	Subscribe(ctx context.Context, actor Actor, categoryID uuid.UUID) error
	Unsubscribe(ctx context.Context, actor Actor, categoryID uuid.UUID) error
	Subscriptions(ctx context.Context, actor Actor) ([]uuid.UUID, error)
}

type CategoryServiceImpl struct {
	cats repository.CategoryRepository
}

// NewCategoryService constructs CategoryService.
func NewCategoryService(cats repository.CategoryRepository) *CategoryServiceImpl {
	return &CategoryServiceImpl{cats: cats}
}

func (s *CategoryServiceImpl) Create(ctx context.Context, actor Actor, name, description string) (*model.Category, error) {
	if !actor.Role.Privileged() {
		return nil, errs.ErrForbidden
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: category name is required", errs.ErrValidation)
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	c := &model.Category{ID: id, Name: name, Description: strings.TrimSpace(description), CreatedBy: actor.ID}
	if err := s.cats.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CategoryServiceImpl) List(ctx context.Context) ([]model.Category, error) {
	return s.cats.List(ctx)
}

func (s *CategoryServiceImpl) Delete(ctx context.Context, actor Actor, categoryID uuid.UUID) error {
	if actor.Role != model.RoleAdmin {
		return errs.ErrForbidden
	}
	return s.cats.Delete(ctx, categoryID)
}

func (s *CategoryServiceImpl) Subscribe(ctx context.Context, actor Actor, categoryID uuid.UUID) error {
	return s.cats.Subscribe(ctx, categoryID, actor.ID)
}

func (s *CategoryServiceImpl) Unsubscribe(ctx context.Context, actor Actor, categoryID uuid.UUID) error {
	return s.cats.Unsubscribe(ctx, categoryID, actor.ID)
}

func (s *CategoryServiceImpl) Subscriptions(ctx context.Context, actor Actor) ([]uuid.UUID, error) {
	return s.cats.CategoriesOfUser(ctx, actor.ID)
}
