package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/mbastos/filegate/internal/errs"
	"github.com/mbastos/filegate/internal/mailer"
	"github.com/mbastos/filegate/internal/model"
	"github.com/mbastos/filegate/internal/repository"
	"github.com/mbastos/filegate/internal/storage"
	"github.com/mbastos/filegate/internal/visibility"
)

// UploadInput carries one multipart upload.
type UploadInput struct {
	Title       string
	Description string
	StartDate   *time.Time
	EndDate     *time.Time
	IsPermanent bool
	Permissions []model.GrantInput

	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// UpdateInput carries a file metadata update. Permissions == nil leaves the
// grant rows untouched; a non-nil (possibly empty) list replaces them.
type UpdateInput struct {
	Title       string
	Description string
	StartDate   *time.Time
	EndDate     *time.Time
	IsPermanent bool
	Status      model.FileStatus
	Permissions []model.GrantInput
}

// FileService defines file distribution operations. Every read goes through
// the visibility resolver; role checks for writes happen here, not in
// handlers.
type FileService interface {
	// List returns the files visible to the actor, newest first.
	List(ctx context.Context, actor Actor) ([]*model.File, error)
	// Upload stores the binary and creates the file with its grants.
	Upload(ctx context.Context, actor Actor, in UploadInput) (*model.File, error)
	// Update rewrites metadata and optionally replaces grants.
	Update(ctx context.Context, actor Actor, fileID uuid.UUID, in UpdateInput) error
	// Delete soft-deletes the file and removes the stored binary.
	Delete(ctx context.Context, actor Actor, fileID uuid.UUID) error
	// Download checks visibility, opens the binary, and records the audit row.
	Download(ctx context.Context, actor Actor, fileID uuid.UUID) (*model.File, io.ReadCloser, error)
	// Permissions returns the raw grant rows; uploader or admin only.
	Permissions(ctx context.Context, actor Actor, fileID uuid.UUID) ([]model.Grant, error)
}

type FileServiceImpl struct {
	files     repository.FileRepository
	users     repository.UserRepository
	groups    repository.GroupRepository
	cats      repository.CategoryRepository
	downloads repository.DownloadRepository
	store     storage.Storage
	mail      mailer.Mailer
	log       *zap.Logger
	now       func() time.Time
}

// NewFileService constructs FileService.
func NewFileService(
	files repository.FileRepository,
	users repository.UserRepository,
	groups repository.GroupRepository,
	cats repository.CategoryRepository,
	downloads repository.DownloadRepository,
	store storage.Storage,
	mail mailer.Mailer,
	log *zap.Logger,
) *FileServiceImpl {
	return &FileServiceImpl{
		files:     files,
		users:     users,
		groups:    groups,
		cats:      cats,
		downloads: downloads,
		store:     store,
		mail:      mail,
		log:       log,
		now:       time.Now,
	}
}

// requester assembles the resolver input for an actor. Membership lookup
// failures degrade to empty sets (logged, not fatal) so a broken membership
// row can never widen or crash visibility.
func (s *FileServiceImpl) requester(ctx context.Context, actor Actor) visibility.Requester {
	groups, err := s.groups.GroupsOfUser(ctx, actor.ID)
	if err != nil {
		s.log.Warn("group membership lookup", zap.String("user", actor.ID.String()), zap.Error(err))
		groups = nil
	}
	cats, err := s.cats.CategoriesOfUser(ctx, actor.ID)
	if err != nil {
		s.log.Warn("category subscription lookup", zap.String("user", actor.ID.String()), zap.Error(err))
		cats = nil
	}
	return visibility.NewRequester(actor.ID, actor.Role, groups, cats)
}

// List returns the resolver-filtered file set in repository order.
func (s *FileServiceImpl) List(ctx context.Context, actor Actor) ([]*model.File, error) {
	all, err := s.files.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return visibility.Filter(s.requester(ctx, actor), all, s.now()), nil
}

// validateWindow enforces the write-time window invariants: permanence
// clears the dates, and start may not follow end.
func validateWindow(isPermanent bool, start, end **time.Time) error {
	if isPermanent {
		*start = nil
		*end = nil
		return nil
	}
	if *start != nil && *end != nil && (*start).After(**end) {
		return fmt.Errorf("%w: start_date must not be after end_date", errs.ErrValidation)
	}
	return nil
}

// Upload stores the binary first, then writes the file and grant rows in one
// transaction; on a storage or database failure nothing survives, neither
// an orphaned row nor an orphaned binary.
func (s *FileServiceImpl) Upload(ctx context.Context, actor Actor, in UploadInput) (*model.File, error) {
	if !actor.Role.Privileged() {
		return nil, errs.ErrForbidden
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", errs.ErrValidation)
	}
	if err := validateWindow(in.IsPermanent, &in.StartDate, &in.EndDate); err != nil {
		return nil, err
	}
	grants, err := model.ParseGrantInputs(in.Permissions)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	key := "uploads/" + id.String() + strings.ToLower(path.Ext(in.Filename))
	if err := s.store.Save(ctx, key, in.Content, in.Size, in.ContentType); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	f := &model.File{
		ID:          id,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		FileURL:     key,
		FileType:    in.ContentType,
		FileSize:    in.Size,
		UploadedBy:  actor.ID,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		IsPermanent: in.IsPermanent,
		Status:      model.FileActive,
	}
	if err := s.files.Create(ctx, f, grants); err != nil {
		if rerr := s.store.Remove(ctx, key); rerr != nil {
			s.log.Error("remove orphaned upload", zap.String("key", key), zap.Error(rerr))
		}
		return nil, err
	}
	f.Grants = grants

	s.notifyUpload(ctx, actor, f, grants)
	return f, nil
}

// notifyUpload mails opted-in recipients of the new file, best effort.
// The uploader never receives their own notification.
func (s *FileServiceImpl) notifyUpload(ctx context.Context, actor Actor, f *model.File, grants []model.Grant) {
	if len(grants) == 0 {
		return
	}
	targets, err := s.users.NotificationTargets(ctx, grants)
	if err != nil {
		s.log.Error("notification targets", zap.Error(err))
		return
	}
	uploaderName := "System"
	if p, err := s.users.GetProfile(ctx, actor.ID); err == nil && p.FullName != "" {
		uploaderName = p.FullName
	}
	uploaderEmail := ""
	if u, err := s.users.GetByID(ctx, actor.ID); err == nil {
		uploaderEmail = u.Email
	}

	var categories []string
	if cats, err := s.cats.List(ctx); err == nil {
		byID := make(map[uuid.UUID]string, len(cats))
		for _, c := range cats {
			byID[c.ID] = c.Name
		}
		for _, g := range grants {
			if g.Kind == model.GrantCategory {
				if name, ok := byID[g.TargetID]; ok {
					categories = append(categories, name)
				}
			}
		}
	}

	for email, name := range targets {
		if email == uploaderEmail {
			continue
		}
		if err := s.mail.SendFileNotification(email, name, f.Title, uploaderName, categories); err != nil {
			s.log.Error("file notification", zap.String("email", email), zap.Error(err))
		}
	}
}

// Update rewrites metadata; a non-nil permission list replaces the grant
// rows in the same transaction.
func (s *FileServiceImpl) Update(ctx context.Context, actor Actor, fileID uuid.UUID, in UpdateInput) error {
	if !actor.Role.Privileged() {
		return errs.ErrForbidden
	}
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", errs.ErrValidation)
	}
	if err := validateWindow(in.IsPermanent, &in.StartDate, &in.EndDate); err != nil {
		return err
	}
	status := in.Status
	if status == "" {
		status = model.FileActive
	}
	switch status {
	case model.FileActive, model.FileInactive, model.FileArchived:
	default:
		return fmt.Errorf("%w: unknown status %q", errs.ErrValidation, status)
	}

	replace := in.Permissions != nil
	var grants []model.Grant
	if replace {
		var err error
		if grants, err = model.ParseGrantInputs(in.Permissions); err != nil {
			return err
		}
	}

	f := &model.File{
		ID:          fileID,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		IsPermanent: in.IsPermanent,
		Status:      status,
	}
	return s.files.Update(ctx, f, grants, replace)
}

// Delete soft-deletes the row, then removes the binary. The audit trail in
// downloads stays intact.
func (s *FileServiceImpl) Delete(ctx context.Context, actor Actor, fileID uuid.UUID) error {
	if !actor.Role.Privileged() {
		return errs.ErrForbidden
	}
	f, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return err
	}
	if actor.Role != model.RoleAdmin && f.UploadedBy != actor.ID {
		return errs.ErrForbidden
	}
	if err := s.files.SoftDelete(ctx, fileID); err != nil {
		return err
	}
	if err := s.store.Remove(ctx, f.FileURL); err != nil {
		s.log.Error("remove deleted binary", zap.String("key", f.FileURL), zap.Error(err))
	}
	return nil
}

// Download resolves visibility, opens the binary, and appends the audit row
// once the stream is in hand, so a storage failure leaves no download record.
// A file the actor cannot see is reported as not found, not as forbidden.
func (s *FileServiceImpl) Download(ctx context.Context, actor Actor, fileID uuid.UUID) (*model.File, io.ReadCloser, error) {
	f, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}
	if !visibility.Visible(s.requester(ctx, actor), f, s.now()) {
		return nil, nil, errs.ErrNotFound
	}

	rc, err := s.store.Open(ctx, f.FileURL)
	if err != nil {
		return nil, nil, err
	}

	did, err := uuid.NewV4()
	if err != nil {
		rc.Close()
		return nil, nil, err
	}
	d := &model.Download{ID: did, UserID: actor.ID, FileID: fileID, DownloadedAt: s.now()}
	if err := s.downloads.Record(ctx, d); err != nil {
		rc.Close()
		return nil, nil, err
	}
	return f, rc, nil
}

// Permissions returns raw grant rows to the uploader or an admin.
func (s *FileServiceImpl) Permissions(ctx context.Context, actor Actor, fileID uuid.UUID) ([]model.Grant, error) {
	f, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if actor.Role != model.RoleAdmin && f.UploadedBy != actor.ID {
		return nil, errs.ErrForbidden
	}
	return f.Grants, nil
}
