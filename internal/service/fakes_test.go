package service

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/mbastos/filegate/internal/errs"
	"github.com/mbastos/filegate/internal/limiter"
	"github.com/mbastos/filegate/internal/mailer"
	"github.com/mbastos/filegate/internal/model"
	"github.com/mbastos/filegate/internal/repository"
	"github.com/mbastos/filegate/internal/storage"
)

type fakeUsers struct {
	byEmail  map[string]*model.User
	profiles map[uuid.UUID]*model.Profile
	targets  map[string]string

	createErr  error
	getErr     error
	profileErr error
	targetsErr error
	updateErr  error
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		byEmail:  map[string]*model.User{},
		profiles: map[uuid.UUID]*model.Profile{},
	}
}

func (f *fakeUsers) add(u *model.User, p *model.Profile) {
	f.byEmail[u.Email] = u
	f.profiles[u.ID] = p
}

func (f *fakeUsers) Create(_ context.Context, u *model.User, p *model.Profile) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, exists := f.byEmail[u.Email]; exists {
		return errs.ErrAlreadyExists
	}
	cu, cp := *u, *p
	f.add(&cu, &cp)
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byEmail[email]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) GetProfile(_ context.Context, userID uuid.UUID) (*model.Profile, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	p, ok := f.profiles[userID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (f *fakeUsers) List(_ context.Context) ([]repository.UserAccount, error) {
	out := make([]repository.UserAccount, 0, len(f.byEmail))
	for _, u := range f.byEmail {
		out = append(out, repository.UserAccount{User: *u, Profile: *f.profiles[u.ID]})
	}
	return out, nil
}

func (f *fakeUsers) UpdateProfile(_ context.Context, p *model.Profile) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.profiles[p.UserID]; !ok {
		return errs.ErrNotFound
	}
	c := *p
	f.profiles[p.UserID] = &c
	return nil
}

func (f *fakeUsers) SetResetToken(_ context.Context, email, token string, expires time.Time) error {
	u, ok := f.byEmail[email]
	if !ok {
		return errs.ErrNotFound
	}
	u.ResetToken = token
	u.ResetTokenExpires = &expires
	return nil
}

func (f *fakeUsers) GetByResetToken(_ context.Context, token string, now time.Time) (*model.User, error) {
	for _, u := range f.byEmail {
		if u.ResetToken != "" && u.ResetToken == token && u.ResetTokenExpires != nil && u.ResetTokenExpires.After(now) {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeUsers) ResetPassword(_ context.Context, userID uuid.UUID, pwdHash, saltAuth []byte) error {
	for _, u := range f.byEmail {
		if u.ID == userID {
			u.PwdHash = append([]byte(nil), pwdHash...)
			u.SaltAuth = append([]byte(nil), saltAuth...)
			u.ResetToken = ""
			u.ResetTokenExpires = nil
			return nil
		}
	}
	return errs.ErrNotFound
}

func (f *fakeUsers) CountActive(context.Context) (int, error) {
	n := 0
	for _, p := range f.profiles {
		if p.Active {
			n++
		}
	}
	return n, nil
}

func (f *fakeUsers) NotificationTargets(context.Context, []model.Grant) (map[string]string, error) {
	if f.targetsErr != nil {
		return nil, f.targetsErr
	}
	return f.targets, nil
}

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	successCalls int
	failureCalls int
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	return l.allowOK, 0, l.allowErr
}
func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return nil
}
func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, l.failErr
}

type sentMail struct {
	to      string
	subject string // "file" or "reset"
	token   string
}

type fakeMailer struct {
	sent    []sentMail
	sendErr error
}

var _ mailer.Mailer = (*fakeMailer)(nil)

func (m *fakeMailer) SendFileNotification(toEmail, _, _, _ string, _ []string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, sentMail{to: toEmail, subject: "file"})
	return nil
}

func (m *fakeMailer) SendPasswordReset(toEmail, _, token string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, sentMail{to: toEmail, subject: "reset", token: token})
	return nil
}

type fakeFiles struct {
	byID  map[uuid.UUID]*model.File
	order []uuid.UUID

	createErr  error
	updateErr  error
	replaceErr error
	listErr    error

	replaced map[uuid.UUID][]model.Grant
}

var _ repository.FileRepository = (*fakeFiles)(nil)

func newFakeFiles() *fakeFiles {
	return &fakeFiles{byID: map[uuid.UUID]*model.File{}, replaced: map[uuid.UUID][]model.Grant{}}
}

func (f *fakeFiles) Create(_ context.Context, file *model.File, grants []model.Grant) error {
	if f.createErr != nil {
		return f.createErr
	}
	c := *file
	c.Grants = append([]model.Grant(nil), grants...)
	f.byID[c.ID] = &c
	f.order = append([]uuid.UUID{c.ID}, f.order...)
	return nil
}

func (f *fakeFiles) Update(_ context.Context, file *model.File, grants []model.Grant, replaceGrants bool) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	stored, ok := f.byID[file.ID]
	if !ok {
		return errs.ErrNotFound
	}
	stored.Title = file.Title
	stored.Description = file.Description
	stored.StartDate = file.StartDate
	stored.EndDate = file.EndDate
	stored.IsPermanent = file.IsPermanent
	stored.Status = file.Status
	if replaceGrants {
		stored.Grants = append([]model.Grant(nil), grants...)
		f.replaced[file.ID] = stored.Grants
	}
	return nil
}

func (f *fakeFiles) ReplaceGrants(_ context.Context, fileID uuid.UUID, grants []model.Grant) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	stored, ok := f.byID[fileID]
	if !ok {
		return errs.ErrNotFound
	}
	stored.Grants = append([]model.Grant(nil), grants...)
	f.replaced[fileID] = stored.Grants
	return nil
}

func (f *fakeFiles) GetByID(_ context.Context, id uuid.UUID) (*model.File, error) {
	stored, ok := f.byID[id]
	if !ok || stored.DeletedAt != nil {
		return nil, errs.ErrNotFound
	}
	c := *stored
	return &c, nil
}

func (f *fakeFiles) ListAll(context.Context) ([]*model.File, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*model.File, 0, len(f.order))
	for _, id := range f.order {
		if f.byID[id].DeletedAt != nil {
			continue
		}
		c := *f.byID[id]
		out = append(out, &c)
	}
	return out, nil
}

func (f *fakeFiles) Grants(_ context.Context, fileID uuid.UUID) ([]model.Grant, error) {
	stored, ok := f.byID[fileID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return append([]model.Grant(nil), stored.Grants...), nil
}

func (f *fakeFiles) SoftDelete(_ context.Context, id uuid.UUID) error {
	stored, ok := f.byID[id]
	if !ok || stored.DeletedAt != nil {
		return errs.ErrNotFound
	}
	now := time.Now()
	stored.DeletedAt = &now
	return nil
}

type fakeGroups struct {
	byID    map[uuid.UUID]*model.Group
	members map[uuid.UUID][]uuid.UUID

	ofUserErr error
	updateErr error

	lastAction repository.MemberAction
}

var _ repository.GroupRepository = (*fakeGroups)(nil)

func newFakeGroups() *fakeGroups {
	return &fakeGroups{byID: map[uuid.UUID]*model.Group{}, members: map[uuid.UUID][]uuid.UUID{}}
}

func (g *fakeGroups) Create(_ context.Context, grp *model.Group) error {
	c := *grp
	g.byID[c.ID] = &c
	return nil
}

func (g *fakeGroups) GetByID(_ context.Context, id uuid.UUID) (*model.Group, error) {
	grp, ok := g.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *grp
	return &c, nil
}

func (g *fakeGroups) List(context.Context) ([]model.Group, error) {
	out := make([]model.Group, 0, len(g.byID))
	for _, grp := range g.byID {
		out = append(out, *grp)
	}
	return out, nil
}

func (g *fakeGroups) Update(_ context.Context, grp *model.Group) error {
	stored, ok := g.byID[grp.ID]
	if !ok {
		return errs.ErrNotFound
	}
	stored.Name = grp.Name
	stored.Description = grp.Description
	return nil
}

func (g *fakeGroups) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := g.byID[id]; !ok {
		return errs.ErrNotFound
	}
	delete(g.byID, id)
	delete(g.members, id)
	return nil
}

func (g *fakeGroups) Members(_ context.Context, groupID uuid.UUID) ([]repository.UserAccount, error) {
	out := make([]repository.UserAccount, 0, len(g.members[groupID]))
	for _, id := range g.members[groupID] {
		out = append(out, repository.UserAccount{User: model.User{ID: id}})
	}
	return out, nil
}

func (g *fakeGroups) UpdateMembers(_ context.Context, groupID uuid.UUID, userIDs []uuid.UUID, _ uuid.UUID, action repository.MemberAction) error {
	if g.updateErr != nil {
		return g.updateErr
	}
	g.lastAction = action
	switch action {
	case repository.MemberSet:
		g.members[groupID] = append([]uuid.UUID(nil), userIDs...)
	case repository.MemberAdd:
		g.members[groupID] = append(g.members[groupID], userIDs...)
	case repository.MemberRemove:
		kept := g.members[groupID][:0]
		for _, m := range g.members[groupID] {
			drop := false
			for _, r := range userIDs {
				if m == r {
					drop = true
					break
				}
			}
			if !drop {
				kept = append(kept, m)
			}
		}
		g.members[groupID] = kept
	}
	return nil
}

func (g *fakeGroups) GroupsOfUser(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	if g.ofUserErr != nil {
		return nil, g.ofUserErr
	}
	var out []uuid.UUID
	for gid, ids := range g.members {
		for _, id := range ids {
			if id == userID {
				out = append(out, gid)
			}
		}
	}
	return out, nil
}

type fakeCats struct {
	byID map[uuid.UUID]*model.Category
	subs map[uuid.UUID][]uuid.UUID // categoryID -> userIDs

	ofUserErr error
}

var _ repository.CategoryRepository = (*fakeCats)(nil)

func newFakeCats() *fakeCats {
	return &fakeCats{byID: map[uuid.UUID]*model.Category{}, subs: map[uuid.UUID][]uuid.UUID{}}
}

func (c *fakeCats) Create(_ context.Context, cat *model.Category) error {
	cp := *cat
	c.byID[cp.ID] = &cp
	return nil
}

func (c *fakeCats) List(context.Context) ([]model.Category, error) {
	out := make([]model.Category, 0, len(c.byID))
	for _, cat := range c.byID {
		out = append(out, *cat)
	}
	return out, nil
}

func (c *fakeCats) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := c.byID[id]; !ok {
		return errs.ErrNotFound
	}
	delete(c.byID, id)
	delete(c.subs, id)
	return nil
}

func (c *fakeCats) Subscribe(_ context.Context, categoryID, userID uuid.UUID) error {
	for _, id := range c.subs[categoryID] {
		if id == userID {
			return nil
		}
	}
	c.subs[categoryID] = append(c.subs[categoryID], userID)
	return nil
}

func (c *fakeCats) Unsubscribe(_ context.Context, categoryID, userID uuid.UUID) error {
	kept := c.subs[categoryID][:0]
	for _, id := range c.subs[categoryID] {
		if id != userID {
			kept = append(kept, id)
		}
	}
	c.subs[categoryID] = kept
	return nil
}

func (c *fakeCats) CategoriesOfUser(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	if c.ofUserErr != nil {
		return nil, c.ofUserErr
	}
	var out []uuid.UUID
	for cid, ids := range c.subs {
		for _, id := range ids {
			if id == userID {
				out = append(out, cid)
			}
		}
	}
	return out, nil
}

type fakeDownloads struct {
	rows []model.Download

	recordErr error
}

var _ repository.DownloadRepository = (*fakeDownloads)(nil)

func (d *fakeDownloads) Record(_ context.Context, row *model.Download) error {
	if d.recordErr != nil {
		return d.recordErr
	}
	d.rows = append(d.rows, *row)
	return nil
}

func (d *fakeDownloads) CountByUser(_ context.Context, userID uuid.UUID) (int, error) {
	n := 0
	for _, r := range d.rows {
		if r.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (d *fakeDownloads) CountAll(context.Context) (int, error) { return len(d.rows), nil }

func (d *fakeDownloads) CountOnDay(_ context.Context, day time.Time) (int, error) {
	n := 0
	y, m, dd := day.Date()
	for _, r := range d.rows {
		ry, rm, rd := r.DownloadedAt.Date()
		if ry == y && rm == m && rd == dd {
			n++
		}
	}
	return n, nil
}

func (d *fakeDownloads) UniqueUsersInMonth(context.Context, time.Time) (int, error) {
	seen := map[uuid.UUID]struct{}{}
	for _, r := range d.rows {
		seen[r.UserID] = struct{}{}
	}
	return len(seen), nil
}

func (d *fakeDownloads) SeriesSince(context.Context, time.Time) ([]model.DownloadsByDay, error) {
	return nil, nil
}

type fakeStorage struct {
	objects map[string][]byte

	saveErr error
	openErr error

	removed []string
}

var _ storage.Storage = (*fakeStorage)(nil)

func newFakeStorage() *fakeStorage { return &fakeStorage{objects: map[string][]byte{}} }

func (s *fakeStorage) Save(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.objects[key] = b
	return nil
}

func (s *fakeStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	b, ok := s.objects[key]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *fakeStorage) Remove(_ context.Context, key string) error {
	s.removed = append(s.removed, key)
	delete(s.objects, key)
	return nil
}
