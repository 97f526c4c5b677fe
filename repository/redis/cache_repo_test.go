package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/auction/repository"
)

func newTestCache(t *testing.T, prefix string) (repository.CacheStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheRepository(client, prefix, time.Hour), mr
}

func TestGetSetDelete(t *testing.T) {
	cache, mr := newTestCache(t, "auction:")
	ctx := context.Background()

	_, err := cache.Get(ctx, "seller:1")
	assert.True(t, errors.Is(err, repository.ErrCacheMiss))

	require.NoError(t, cache.Set(ctx, "seller:1", []byte(`{"id":"1"}`), 0))
	assert.True(t, mr.Exists("auction:seller:1"))
	assert.Equal(t, time.Hour, mr.TTL("auction:seller:1"))

	got, err := cache.Get(ctx, "seller:1")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"1"}`, string(got))

	require.NoError(t, cache.Delete(ctx, "seller:1", "user:2"))
	assert.False(t, mr.Exists("auction:seller:1"))
}

func TestEntriesExpire(t *testing.T) {
	cache, mr := newTestCache(t, "auction:")
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "listing:open", []byte(`[]`), time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := cache.Get(ctx, "listing:open")
	assert.True(t, errors.Is(err, repository.ErrCacheMiss))
}

func TestFlushOnlyTouchesPrefix(t *testing.T) {
	cache, mr := newTestCache(t, "auction:")
	ctx := context.Background()

	require.NoError(t, mr.Set("other:key", "keep"))
	require.NoError(t, cache.Set(ctx, "seller:1", []byte("a"), 0))
	require.NoError(t, cache.Set(ctx, "user:1", []byte("b"), 0))

	require.NoError(t, cache.Flush(ctx))
	assert.False(t, mr.Exists("auction:seller:1"))
	assert.False(t, mr.Exists("auction:user:1"))
	assert.True(t, mr.Exists("other:key"))
}

func TestFlushWithoutPrefix(t *testing.T) {
	cache, mr := newTestCache(t, "")
	ctx := context.Background()

	require.NoError(t, mr.Set("other:key", "gone"))
	require.NoError(t, cache.Flush(ctx))
	assert.False(t, mr.Exists("other:key"))
}

func TestUnavailableRedisSurfacesError(t *testing.T) {
	cache, mr := newTestCache(t, "auction:")
	mr.Close()

	_, err := cache.Get(context.Background(), "seller:1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, repository.ErrCacheMiss))
}
