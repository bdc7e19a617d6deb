package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/enginow/enginow-api/internal/dto"
	appErrors "github.com/enginow/enginow-api/pkg/errors"
)

const dashboardCachePattern = "dashboard:*"

type enrollmentAggregator interface {
	CountAll(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context) ([]dto.StatusCount, error)
	CountByProgram(ctx context.Context) ([]dto.ProgramCount, error)
	CountByReferralCode(ctx context.Context) ([]dto.ReferralCount, error)
	DailyCounts(ctx context.Context, since time.Time) ([]dto.DailyCount, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL          time.Duration
	DefaultWindowDays int
}

// DashboardService composes the admin dashboard payload. Counts are
// recomputed in full from the current record set; results are only reused
// through the optional cache.
type DashboardService struct {
	aggregates enrollmentAggregator
	cache      *CacheService
	logger     *zap.Logger
	now        func() time.Time
	cfg        DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(aggregates enrollmentAggregator, cache *CacheService, logger *zap.Logger, cfg DashboardServiceConfig) *DashboardService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.DefaultWindowDays <= 0 {
		cfg.DefaultWindowDays = 30
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		aggregates: aggregates,
		cache:      cache,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		cfg:        cfg,
	}
}

// Summary returns the dashboard aggregation and whether it came from cache.
func (s *DashboardService) Summary(ctx context.Context, windowDays int) (*dto.DashboardResponse, bool, error) {
	if windowDays <= 0 {
		windowDays = s.cfg.DefaultWindowDays
	}

	cacheKey := fmt.Sprintf("dashboard:summary:%d", windowDays)
	var cached dto.DashboardResponse
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, true, nil
	}

	total, err := s.aggregates.CountAll(ctx)
	if err != nil {
		return nil, false, persistenceErr(err)
	}
	byStatus, err := s.aggregates.CountByStatus(ctx)
	if err != nil {
		return nil, false, persistenceErr(err)
	}
	byProgram, err := s.aggregates.CountByProgram(ctx)
	if err != nil {
		return nil, false, persistenceErr(err)
	}
	byReferral, err := s.aggregates.CountByReferralCode(ctx)
	if err != nil {
		return nil, false, persistenceErr(err)
	}
	since := s.now().AddDate(0, 0, -windowDays).Truncate(24 * time.Hour)
	daily, err := s.aggregates.DailyCounts(ctx, since)
	if err != nil {
		return nil, false, persistenceErr(err)
	}

	resp := &dto.DashboardResponse{
		TotalEnrollments: total,
		ByStatus:         emptyWhenNil(byStatus),
		ByProgram:        emptyWhenNil(byProgram),
		ByReferralCode:   emptyWhenNil(byReferral),
		Daily:            emptyWhenNil(daily),
		WindowDays:       windowDays,
		GeneratedAt:      s.now(),
	}

	if err := s.cache.Set(ctx, cacheKey, resp, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache store failed", zap.Error(err))
	}
	return resp, false, nil
}

func persistenceErr(err error) error {
	return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, appErrors.ErrPersistence.Message)
}

func emptyWhenNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
