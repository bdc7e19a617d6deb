package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/enginow/enginow-api/pkg/errors"
)

func newCacheRepo(t *testing.T) (*CacheRepository, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCacheRepository(client, nil), srv
}

func TestCacheRepositoryRoundTrip(t *testing.T) {
	repo, _ := newCacheRepo(t)
	ctx := context.Background()

	payload := map[string]int{"totalEnrollments": 42}
	require.NoError(t, repo.Set(ctx, "dashboard:summary:30", payload, time.Minute))

	var out map[string]int
	require.NoError(t, repo.Get(ctx, "dashboard:summary:30", &out))
	assert.Equal(t, 42, out["totalEnrollments"])
}

func TestCacheRepositoryMiss(t *testing.T) {
	repo, _ := newCacheRepo(t)

	var out map[string]int
	err := repo.Get(context.Background(), "dashboard:summary:7", &out)
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)
}

func TestCacheRepositoryExpiry(t *testing.T) {
	repo, srv := newCacheRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "dashboard:summary:30", 1, time.Second))
	srv.FastForward(2 * time.Second)

	var out int
	err := repo.Get(ctx, "dashboard:summary:30", &out)
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)
}

func TestCacheRepositoryDeleteByPattern(t *testing.T) {
	repo, _ := newCacheRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "dashboard:summary:30", 1, time.Minute))
	require.NoError(t, repo.Set(ctx, "dashboard:summary:7", 1, time.Minute))
	require.NoError(t, repo.Set(ctx, "other:key", 1, time.Minute))

	require.NoError(t, repo.DeleteByPattern(ctx, "dashboard:*"))

	var out int
	assert.ErrorIs(t, repo.Get(ctx, "dashboard:summary:30", &out), appErrors.ErrCacheMiss)
	assert.ErrorIs(t, repo.Get(ctx, "dashboard:summary:7", &out), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Get(ctx, "other:key", &out))
}

func TestCacheRepositoryNilClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var out int
	assert.ErrorIs(t, repo.Get(ctx, "any", &out), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "any", 1, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(ctx, "any:*"))
}
