package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foldbank/foldbank/internal/infrastructure/monitoring/logging"
)

func newTestCache(t *testing.T) (Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	client := NewClientFromRedis(rdb, logging.NewNopLogger())
	return NewCache(client, logging.NewNopLogger()), mr
}

func TestCacheSetGet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	want := []float64{3.8, 5.37, 3.8}
	require.NoError(t, c.Set(ctx, "distances:abc", want, time.Minute))

	var got []float64
	require.NoError(t, c.Get(ctx, "distances:abc", &got))
	assert.Equal(t, want, got)
}

func TestCacheGetMiss(t *testing.T) {
	c, _ := newTestCache(t)

	var got []float64
	err := c.Get(context.Background(), "absent", &got)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestCacheKeyPrefix(t *testing.T) {
	c, mr := newTestCache(t)

	require.NoError(t, c.Set(context.Background(), "k", 1, time.Minute))
	assert.True(t, mr.Exists("foldbank:k"))
}

func TestCacheDeleteExists(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))

	ok, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.Delete(ctx, "k"))

	ok, err = c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheTTLApplied(t *testing.T) {
	c, mr := newTestCache(t)

	require.NoError(t, c.Set(context.Background(), "k", "v", time.Minute))

	ttl := mr.TTL("foldbank:k")
	assert.Greater(t, ttl, 50*time.Second)
	assert.Less(t, ttl, 70*time.Second)
}

func TestCacheGetOrSetLoadsOnce(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	var loads atomic.Int32
	loader := func(ctx context.Context) (interface{}, error) {
		loads.Add(1)
		return []float64{1, 2, 3}, nil
	}

	var got []float64
	require.NoError(t, c.GetOrSet(ctx, "descr", &got, time.Minute, loader))
	assert.Equal(t, []float64{1, 2, 3}, got)
	assert.Equal(t, int32(1), loads.Load())

	// second call is served from the cache
	var again []float64
	require.NoError(t, c.GetOrSet(ctx, "descr", &again, time.Minute, loader))
	assert.Equal(t, []float64{1, 2, 3}, again)
	assert.Equal(t, int32(1), loads.Load())
}

func TestCacheGetOrSetLoaderError(t *testing.T) {
	c, _ := newTestCache(t)

	var got []float64
	err := c.GetOrSet(context.Background(), "bad", &got, time.Minute,
		func(ctx context.Context) (interface{}, error) {
			return nil, assert.AnError
		})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestCacheGetOrSetConcurrent(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	var loads atomic.Int32
	loader := func(ctx context.Context) (interface{}, error) {
		loads.Add(1)
		time.Sleep(20 * time.Millisecond)
		return "value", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var got string
			assert.NoError(t, c.GetOrSet(ctx, "shared", &got, time.Minute, loader))
			assert.Equal(t, "value", got)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load(), "concurrent callers must share one load")
}

func TestCacheOptions(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	client := NewClientFromRedis(rdb, logging.NewNopLogger())

	c := NewCache(client, logging.NewNopLogger(),
		WithPrefix("other:"), WithDefaultTTL(time.Hour))

	require.NoError(t, c.Set(context.Background(), "k", "v", 0))
	assert.True(t, mr.Exists("other:k"))
	assert.Greater(t, mr.TTL("other:k"), 50*time.Minute)
}
