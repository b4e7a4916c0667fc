package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/mbastos/filegate/internal/model"
)

// MemberAction selects how SetMembers applies a member list.
type MemberAction string

const (
	// MemberSet replaces the whole membership with the given users.
	MemberSet MemberAction = "set"
	// MemberAdd adds the given users, skipping existing members.
	MemberAdd MemberAction = "add"
	// MemberRemove removes the given users.
	MemberRemove MemberAction = "remove"
)

// GroupRepository provides access to groups and their memberships.
type GroupRepository interface {
	Create(ctx context.Context, g *model.Group) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Group, error)
	List(ctx context.Context) ([]model.Group, error)
	// Update rewrites name and description.
	Update(ctx context.Context, g *model.Group) error
	Delete(ctx context.Context, id uuid.UUID) error
	// Members returns the accounts belonging to a group, active only.
	Members(ctx context.Context, groupID uuid.UUID) ([]UserAccount, error)
	// UpdateMembers applies a set/add/remove action in one transaction.
	UpdateMembers(ctx context.Context, groupID uuid.UUID, userIDs []uuid.UUID, addedBy uuid.UUID, action MemberAction) error
	// GroupsOfUser returns the group ids a user belongs to.
	GroupsOfUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// CategoryRepository provides access to categories and subscriptions.
type CategoryRepository interface {
	Create(ctx context.Context, c *model.Category) error
	List(ctx context.Context) ([]model.Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// Subscribe adds a user to a category; existing subscriptions are kept.
	Subscribe(ctx context.Context, categoryID, userID uuid.UUID) error
	// Unsubscribe removes a user from a category.
	Unsubscribe(ctx context.Context, categoryID, userID uuid.UUID) error
	// CategoriesOfUser returns the category ids a user subscribes to.
	CategoriesOfUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}
