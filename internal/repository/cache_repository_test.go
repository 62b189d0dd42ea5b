package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
)

func newCacheRepo(t *testing.T) (*CacheRepository, *miniredis.Miniredis) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheRepository(client, nil), srv
}

func TestCacheRepositorySetGet(t *testing.T) {
	repo, srv := newCacheRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "bulletin:preview:c1:p1", map[string]int{"ready": 3}, time.Minute))
	var out map[string]int
	require.NoError(t, repo.Get(ctx, "bulletin:preview:c1:p1", &out))
	assert.Equal(t, 3, out["ready"])

	srv.FastForward(2 * time.Minute)
	err := repo.Get(ctx, "bulletin:preview:c1:p1", &out)
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
}

func TestCacheRepositoryDropsUndecodableEntries(t *testing.T) {
	repo, srv := newCacheRepo(t)
	require.NoError(t, srv.Set("k", "not-json"))

	var out map[string]int
	err := repo.Get(context.Background(), "k", &out)
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
	assert.False(t, srv.Exists("k"))
}

func TestCacheRepositoryDeleteByPattern(t *testing.T) {
	repo, srv := newCacheRepo(t)
	ctx := context.Background()
	for _, key := range []string{"bulletin:preview:c1:p1", "bulletin:preview:c1:p2", "bulletin:preview:c2:p1"} {
		require.NoError(t, repo.Set(ctx, key, 1, time.Minute))
	}

	require.NoError(t, repo.DeleteByPattern(ctx, "bulletin:preview:c1:*"))
	assert.False(t, srv.Exists("bulletin:preview:c1:p1"))
	assert.False(t, srv.Exists("bulletin:preview:c1:p2"))
	assert.True(t, srv.Exists("bulletin:preview:c2:p1"))
}

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	var out int
	assert.True(t, errors.Is(repo.Get(context.Background(), "k", &out), appErrors.ErrCacheMiss))
	assert.NoError(t, repo.Set(context.Background(), "k", 1, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(context.Background(), "*"))
}
