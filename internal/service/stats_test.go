package service

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/mbastos/filegate/internal/model"
)

func TestStats_UserStats_CountsOnlyVisible(t *testing.T) {
	t.Parallel()

	files := newFakeFiles()
	downloads := &fakeDownloads{}
	actor := Actor{ID: uuid.Must(uuid.NewV4()), Role: model.RoleUser}
	other := uuid.Must(uuid.NewV4())
	ctx := context.Background()

	for i, title := range []string{"one", "two", "three", "four"} {
		f := &model.File{
			ID:          uuid.Must(uuid.NewV4()),
			Title:       title,
			UploadedBy:  other,
			IsPermanent: true,
			Status:      model.FileActive,
			CreatedAt:   time.Date(2026, 8, 1+i, 0, 0, 0, 0, time.UTC),
		}
		if err := files.Create(ctx, f, []model.Grant{model.NewUserGrant(actor.ID)}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	hidden := &model.File{ID: uuid.Must(uuid.NewV4()), Title: "hidden", UploadedBy: other, IsPermanent: true, Status: model.FileActive}
	if err := files.Create(ctx, hidden, []model.Grant{model.NewUserGrant(other)}); err != nil {
		t.Fatalf("seed hidden: %v", err)
	}

	downloads.rows = []model.Download{
		{UserID: actor.ID, FileID: hidden.ID, DownloadedAt: time.Now()},
		{UserID: actor.ID, FileID: hidden.ID, DownloadedAt: time.Now()},
		{UserID: other, FileID: hidden.ID, DownloadedAt: time.Now()},
	}

	s := NewStatsService(files, newFakeUsers(), newFakeGroups(), newFakeCats(), downloads, zap.NewNop())

	got, err := s.UserStats(ctx, actor)
	if err != nil {
		t.Fatalf("UserStats: %v", err)
	}
	if got.TotalFiles != 4 {
		t.Fatalf("TotalFiles = %d, want 4", got.TotalFiles)
	}
	if got.TotalDownloads != 2 {
		t.Fatalf("TotalDownloads = %d, want 2 (own only)", got.TotalDownloads)
	}
	if len(got.RecentFiles) != 3 {
		t.Fatalf("RecentFiles = %d, want 3", len(got.RecentFiles))
	}
	// Newest first, matching the listing order.
	if got.RecentFiles[0].Title != "four" {
		t.Fatalf("recent[0] = %q, want newest", got.RecentFiles[0].Title)
	}
}

func TestStats_AdminStats_SystemWide(t *testing.T) {
	t.Parallel()

	files := newFakeFiles()
	users := newFakeUsers()
	downloads := &fakeDownloads{}
	ctx := context.Background()

	uploader := uuid.Must(uuid.NewV4())
	f := &model.File{ID: uuid.Must(uuid.NewV4()), Title: "a", UploadedBy: uploader, IsPermanent: true, Status: model.FileActive}
	if err := files.Create(ctx, f, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}
	deleted := &model.File{ID: uuid.Must(uuid.NewV4()), Title: "gone", UploadedBy: uploader, IsPermanent: true, Status: model.FileActive}
	if err := files.Create(ctx, deleted, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := files.SoftDelete(ctx, deleted.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	u1, p1 := newTestUser("a@example.com", "x")
	u2, p2 := newTestUser("b@example.com", "x")
	p2.Active = false
	users.add(u1, p1)
	users.add(u2, p2)

	now := time.Now()
	downloads.rows = []model.Download{
		{UserID: u1.ID, FileID: f.ID, DownloadedAt: now},
		{UserID: u1.ID, FileID: f.ID, DownloadedAt: now.AddDate(0, 0, -3)},
		{UserID: u2.ID, FileID: f.ID, DownloadedAt: now},
	}

	s := NewStatsService(files, users, newFakeGroups(), newFakeCats(), downloads, zap.NewNop())

	got, err := s.AdminStats(ctx)
	if err != nil {
		t.Fatalf("AdminStats: %v", err)
	}
	if got.TotalFiles != 1 {
		t.Fatalf("TotalFiles = %d, want 1 (soft-deleted excluded)", got.TotalFiles)
	}
	if got.TotalDownloads != 3 {
		t.Fatalf("TotalDownloads = %d, want 3", got.TotalDownloads)
	}
	if got.DownloadsToday != 2 {
		t.Fatalf("DownloadsToday = %d, want 2", got.DownloadsToday)
	}
	if got.UniqueUsersMonth != 2 {
		t.Fatalf("UniqueUsersMonth = %d, want 2", got.UniqueUsersMonth)
	}
	if got.ActiveUsers != 1 {
		t.Fatalf("ActiveUsers = %d, want 1", got.ActiveUsers)
	}
}
