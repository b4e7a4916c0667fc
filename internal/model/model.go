// Package model defines domain entities used by services and repositories.
package model

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/mbastos/filegate/internal/errs"
)

// Role is the access level recorded on a user's profile.
type Role string

// Recognized roles, from most to least privileged.
const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleUser     Role = "user"
)

// Privileged reports whether the role may upload and edit files.
func (r Role) Privileged() bool { return r == RoleAdmin || r == RoleOperator }

// FileStatus is the lifecycle state of a distributable file.
type FileStatus string

const (
	FileActive   FileStatus = "active"
	FileInactive FileStatus = "inactive"
	FileArchived FileStatus = "archived"
)

// User is an authentication identity. Profile data lives separately.
type User struct {
	ID                uuid.UUID
	Email             string
	PwdHash           []byte
	SaltAuth          []byte
	ResetToken        string
	ResetTokenExpires *time.Time
	CreatedAt         time.Time
}

// Profile carries display and authorization attributes for a user.
type Profile struct {
	UserID               uuid.UUID
	FullName             string
	Role                 Role
	Active               bool
	ReceiveNotifications bool
	UpdatedAt            time.Time
}

// Group is a named collection of users.
type Group struct {
	ID          uuid.UUID
	Name        string
	Description string
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
}

// GroupMember is one user_groups row, with its audit field.
type GroupMember struct {
	GroupID uuid.UUID
	UserID  uuid.UUID
	AddedBy uuid.UUID
	AddedAt time.Time
}

// Category is a tag users subscribe to and files can be scoped by.
type Category struct {
	ID          uuid.UUID
	Name        string
	Description string
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
}

// File is the distributable artifact with its validity window.
type File struct {
	ID          uuid.UUID
	Title       string
	Description string
	FileURL     string
	FileType    string
	FileSize    int64
	UploadedBy  uuid.UUID
	StartDate   *time.Time // date granularity; nil means open-ended
	EndDate     *time.Time
	IsPermanent bool // overrides the window, even if dates are set
	Status      FileStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time // soft delete

	Grants []Grant // permission rows loaded with the file
}

// GrantKind discriminates the three permission targets.
type GrantKind int

const (
	GrantUser GrantKind = iota + 1
	GrantGroup
	GrantCategory
)

func (k GrantKind) String() string {
	switch k {
	case GrantUser:
		return "user"
	case GrantGroup:
		return "group"
	case GrantCategory:
		return "category"
	default:
		return "unknown"
	}
}

// Grant binds a file to exactly one of a user, a group, or a category.
// Construct via the New*Grant helpers or ParseGrantInput so the single-target
// invariant holds from the start instead of being a nullable-column convention.
type Grant struct {
	ID       uuid.UUID
	Kind     GrantKind
	TargetID uuid.UUID
}

// NewUserGrant grants direct access to one user.
func NewUserGrant(userID uuid.UUID) Grant {
	return Grant{Kind: GrantUser, TargetID: userID}
}

// NewGroupGrant grants access to members of one group.
func NewGroupGrant(groupID uuid.UUID) Grant {
	return Grant{Kind: GrantGroup, TargetID: groupID}
}

// NewCategoryGrant grants access through one category.
func NewCategoryGrant(categoryID uuid.UUID) Grant {
	return Grant{Kind: GrantCategory, TargetID: categoryID}
}

// GrantInput is the wire shape of one requested permission:
// exactly one of the three fields must be set.
type GrantInput struct {
	UserID     *uuid.UUID `json:"user_id"`
	GroupID    *uuid.UUID `json:"group_id"`
	CategoryID *uuid.UUID `json:"category_id"`
}

// ParseGrantInput validates a requested permission object and converts it to
// a Grant. Objects with zero or multiple non-null targets are rejected.
func ParseGrantInput(in GrantInput) (Grant, error) {
	var targets int
	var g Grant
	if in.UserID != nil {
		targets++
		g = NewUserGrant(*in.UserID)
	}
	if in.GroupID != nil {
		targets++
		g = NewGroupGrant(*in.GroupID)
	}
	if in.CategoryID != nil {
		targets++
		g = NewCategoryGrant(*in.CategoryID)
	}
	if targets != 1 {
		return Grant{}, fmt.Errorf("%w: permission must target exactly one of user_id, group_id, category_id (got %d)", errs.ErrValidation, targets)
	}
	if g.TargetID == uuid.Nil {
		return Grant{}, fmt.Errorf("%w: permission target id is empty", errs.ErrValidation)
	}
	return g, nil
}

// ParseGrantInputs converts a requested permission list, failing on the first
// malformed object before any database work happens.
func ParseGrantInputs(ins []GrantInput) ([]Grant, error) {
	out := make([]Grant, 0, len(ins))
	for i, in := range ins {
		g, err := ParseGrantInput(in)
		if err != nil {
			return nil, fmt.Errorf("permission[%d]: %w", i, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// Download is one append-only audit record of a successful download.
type Download struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	FileID       uuid.UUID
	DownloadedAt time.Time
}

// DownloadsByDay is one point of the 30-day download series on the dashboard.
type DownloadsByDay struct {
	Date  time.Time
	Count int
}

// RecentFile is the compact listing shown on a user's dashboard.
type RecentFile struct {
	ID        uuid.UUID
	Title     string
	CreatedAt time.Time
}

// UserStats is the dashboard payload for the plain user role.
type UserStats struct {
	TotalFiles     int
	TotalDownloads int
	RecentFiles    []RecentFile
}

// AdminStats is the dashboard payload for privileged roles.
type AdminStats struct {
	TotalFiles       int
	TotalDownloads   int
	DownloadsToday   int
	UniqueUsersMonth int
	ActiveUsers      int
	RecentDownloads  []DownloadsByDay
}

// SecurityEvent is one security_logs row.
type SecurityEvent struct {
	ID        uuid.UUID
	EventType string
	IP        string
	UserID    *uuid.UUID
	Details   string
	CreatedAt time.Time
}
