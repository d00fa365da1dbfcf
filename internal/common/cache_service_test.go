package common

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisCache(t *testing.T) (*RedisCacheService, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	cache, err := NewRedisCacheService(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache, mr
}

func exerciseCache(t *testing.T, cache CacheInterface) {
	t.Helper()

	_, found := cache.Get("catalog:show:dune")
	require.False(t, found)

	cache.Set("catalog:show:dune", []byte(`{"slug":"dune"}`), time.Minute)
	cache.Set("catalog:cinemas:ams", []byte(`[]`), time.Minute)
	cache.Set("other:key", []byte(`1`), time.Minute)

	val, found := cache.Get("catalog:show:dune")
	require.True(t, found)
	require.JSONEq(t, `{"slug":"dune"}`, string(val))

	cache.Delete("catalog:show:dune")
	_, found = cache.Get("catalog:show:dune")
	require.False(t, found)

	cache.DeletePrefix("catalog:")
	_, found = cache.Get("catalog:cinemas:ams")
	require.False(t, found)
	_, found = cache.Get("other:key")
	require.True(t, found)
}

func TestCacheService(t *testing.T) {
	exerciseCache(t, NewCacheService(time.Minute, time.Minute))
}

func TestRedisCacheService(t *testing.T) {
	cache, _ := newRedisCache(t)
	exerciseCache(t, cache)
}

func TestRedisCacheService_Expiry(t *testing.T) {
	cache, mr := newRedisCache(t)

	cache.Set("catalog:show:dune", []byte(`{}`), time.Minute)
	ttl, err := cache.TTL("catalog:show:dune")
	require.NoError(t, err)
	require.Equal(t, time.Minute, ttl)

	mr.FastForward(2 * time.Minute)
	_, found := cache.Get("catalog:show:dune")
	require.False(t, found)
}

func TestNewRedisCacheService_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisCacheService(redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1}))
	require.Error(t, err)
}
