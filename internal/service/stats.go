package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mbastos/filegate/internal/model"
	"github.com/mbastos/filegate/internal/repository"
	"github.com/mbastos/filegate/internal/visibility"
)

const (
	recentFilesLimit = 3
	seriesDays       = 30
)

// StatsService builds the role-dependent dashboard payloads.
type StatsService interface {
	// UserStats counts only what the actor can actually see.
	UserStats(ctx context.Context, actor Actor) (*model.UserStats, error)
	// AdminStats aggregates system-wide numbers for privileged roles.
	AdminStats(ctx context.Context) (*model.AdminStats, error)
}

type StatsServiceImpl struct {
	files     repository.FileRepository
	users     repository.UserRepository
	groups    repository.GroupRepository
	cats      repository.CategoryRepository
	downloads repository.DownloadRepository
	log       *zap.Logger
	now       func() time.Time
}

// NewStatsService constructs StatsService.
func NewStatsService(
	files repository.FileRepository,
	users repository.UserRepository,
	groups repository.GroupRepository,
	cats repository.CategoryRepository,
	downloads repository.DownloadRepository,
	log *zap.Logger,
) *StatsServiceImpl {
	return &StatsServiceImpl{
		files:     files,
		users:     users,
		groups:    groups,
		cats:      cats,
		downloads: downloads,
		log:       log,
		now:       time.Now,
	}
}

func (s *StatsServiceImpl) requester(ctx context.Context, actor Actor) visibility.Requester {
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

// UserStats runs the same resolver the file list uses, so the dashboard
// number always matches the list the user lands on.
func (s *StatsServiceImpl) UserStats(ctx context.Context, actor Actor) (*model.UserStats, error) {
	all, err := s.files.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	visible := visibility.Filter(s.requester(ctx, actor), all, s.now())

	downloads, err := s.downloads.CountByUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	recent := make([]model.RecentFile, 0, recentFilesLimit)
	for _, f := range visible {
		if len(recent) == recentFilesLimit {
			break
		}
		recent = append(recent, model.RecentFile{ID: f.ID, Title: f.Title, CreatedAt: f.CreatedAt})
	}

	return &model.UserStats{
		TotalFiles:     len(visible),
		TotalDownloads: downloads,
		RecentFiles:    recent,
	}, nil
}

// AdminStats aggregates the whole system without visibility filtering.
func (s *StatsServiceImpl) AdminStats(ctx context.Context) (*model.AdminStats, error) {
	now := s.now()

	all, err := s.files.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	total, err := s.downloads.CountAll(ctx)
	if err != nil {
		return nil, err
	}
	today, err := s.downloads.CountOnDay(ctx, now)
	if err != nil {
		return nil, err
	}
	uniqueMonth, err := s.downloads.UniqueUsersInMonth(ctx, now)
	if err != nil {
		return nil, err
	}
	activeUsers, err := s.users.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	series, err := s.downloads.SeriesSince(ctx, now.AddDate(0, 0, -seriesDays+1))
	if err != nil {
		return nil, err
	}

	return &model.AdminStats{
		TotalFiles:       len(all),
		TotalDownloads:   total,
		DownloadsToday:   today,
		UniqueUsersMonth: uniqueMonth,
		ActiveUsers:      activeUsers,
		RecentDownloads:  series,
	}, nil
}
