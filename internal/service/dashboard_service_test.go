package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enginow/enginow-api/internal/dto"
	appErrors "github.com/enginow/enginow-api/pkg/errors"
)

type fakeAggregator struct {
	total      int
	byStatus   []dto.StatusCount
	byProgram  []dto.ProgramCount
	byReferral []dto.ReferralCount
	daily      []dto.DailyCount
	err        error
	calls      int
	lastSince  time.Time
}

func (f *fakeAggregator) CountAll(_ context.Context) (int, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.total, nil
}

func (f *fakeAggregator) CountByStatus(_ context.Context) ([]dto.StatusCount, error) {
	return f.byStatus, f.err
}

func (f *fakeAggregator) CountByProgram(_ context.Context) ([]dto.ProgramCount, error) {
	return f.byProgram, f.err
}

func (f *fakeAggregator) CountByReferralCode(_ context.Context) ([]dto.ReferralCount, error) {
	return f.byReferral, f.err
}

func (f *fakeAggregator) DailyCounts(_ context.Context, since time.Time) ([]dto.DailyCount, error) {
	f.lastSince = since
	return f.daily, f.err
}

type memoryCacheRepo struct {
	entries map[string][]byte
	deletes []string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: make(map[string][]byte)}
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	m.deletes = append(m.deletes, pattern)
	for key := range m.entries {
		delete(m.entries, key)
	}
	return nil
}

func TestDashboardSummaryComposesAggregates(t *testing.T) {
	agg := &fakeAggregator{
		total:      12,
		byStatus:   []dto.StatusCount{{Status: "pending", Count: 8}, {Status: "confirmed", Count: 4}},
		byProgram:  []dto.ProgramCount{{ProgramID: "fullstack-web", Title: "Full-Stack Web Development", Count: 12}},
		byReferral: []dto.ReferralCount{{ReferralCode: "STUDENT50", Count: 3}},
		daily:      []dto.DailyCount{{Day: time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), Count: 2}},
	}
	svc := NewDashboardService(agg, nil, nil, DashboardServiceConfig{})

	resp, cacheHit, err := svc.Summary(context.Background(), 0)
	require.NoError(t, err)
	assert.False(t, cacheHit)
	assert.Equal(t, 12, resp.TotalEnrollments)
	assert.Equal(t, 30, resp.WindowDays)
	assert.Len(t, resp.ByStatus, 2)
	assert.Len(t, resp.ByProgram, 1)
	assert.Len(t, resp.ByReferralCode, 1)
	assert.Len(t, resp.Daily, 1)
	assert.False(t, resp.GeneratedAt.IsZero())
}

func TestDashboardSummaryWindowOverride(t *testing.T) {
	agg := &fakeAggregator{}
	svc := NewDashboardService(agg, nil, nil, DashboardServiceConfig{})

	resp, _, err := svc.Summary(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 7, resp.WindowDays)

	expected := time.Now().UTC().AddDate(0, 0, -7)
	assert.WithinDuration(t, expected, agg.lastSince, 25*time.Hour)
}

func TestDashboardSummaryEmptyStoreIsZeroes(t *testing.T) {
	svc := NewDashboardService(&fakeAggregator{}, nil, nil, DashboardServiceConfig{})

	resp, _, err := svc.Summary(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.TotalEnrollments)
	assert.NotNil(t, resp.ByStatus)
	assert.Empty(t, resp.ByStatus)
	assert.NotNil(t, resp.Daily)
	assert.Empty(t, resp.Daily)
}

func TestDashboardSummaryUsesCache(t *testing.T) {
	agg := &fakeAggregator{total: 5}
	cacheSvc := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, nil, true)
	svc := NewDashboardService(agg, cacheSvc, nil, DashboardServiceConfig{})

	_, cacheHit, err := svc.Summary(context.Background(), 30)
	require.NoError(t, err)
	assert.False(t, cacheHit)
	firstCalls := agg.calls

	resp, cacheHit, err := svc.Summary(context.Background(), 30)
	require.NoError(t, err)
	assert.True(t, cacheHit)
	assert.Equal(t, 5, resp.TotalEnrollments)
	assert.Equal(t, firstCalls, agg.calls)
}

func TestDashboardSummaryWindowsCachedSeparately(t *testing.T) {
	agg := &fakeAggregator{}
	repo := newMemoryCacheRepo()
	cacheSvc := NewCacheService(repo, nil, time.Minute, nil, true)
	svc := NewDashboardService(agg, cacheSvc, nil, DashboardServiceConfig{})

	_, _, err := svc.Summary(context.Background(), 30)
	require.NoError(t, err)
	_, cacheHit, err := svc.Summary(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, cacheHit)
	assert.Len(t, repo.entries, 2)
}

func TestDashboardSummaryAggregateFailure(t *testing.T) {
	agg := &fakeAggregator{err: errors.New("relation does not exist")}
	svc := NewDashboardService(agg, nil, nil, DashboardServiceConfig{})

	_, _, err := svc.Summary(context.Background(), 0)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrPersistence))
}
