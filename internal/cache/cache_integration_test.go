package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fixture struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Requires a running Redis; skipped otherwise.
func newTestCache(t *testing.T) *Cache {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping cache integration test")
	}
	c := New(addr, os.Getenv("REDIS_PASSWORD"), 0)
	if !c.Enabled() {
		t.Skipf("redis at %s not reachable", addr)
	}
	t.Cleanup(c.Close)
	return c
}

func TestGetOneReadThrough(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	key := "user:cache-test-1"
	c.Invalidate(ctx, key)

	loads := 0
	loader := func(ctx context.Context) (*fixture, error) {
		loads++
		return &fixture{ID: 1, Name: "alice"}, nil
	}

	v, err := GetOne(ctx, c, key, time.Minute, loader)
	require.NoError(t, err)
	require.Equal(t, "alice", v.Name)
	require.Equal(t, 1, loads)

	// second read must come from Redis
	v, err = GetOne(ctx, c, key, time.Minute, loader)
	require.NoError(t, err)
	require.Equal(t, "alice", v.Name)
	require.Equal(t, 1, loads)

	c.Invalidate(ctx, key)
	_, err = GetOne(ctx, c, key, time.Minute, loader)
	require.NoError(t, err)
	require.Equal(t, 2, loads)
}

func TestGetOneNeverCachesAbsent(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	key := "user:cache-test-absent"
	c.Invalidate(ctx, key)

	loads := 0
	loader := func(ctx context.Context) (*fixture, error) {
		loads++
		return nil, nil
	}

	v, err := GetOne(ctx, c, key, time.Minute, loader)
	require.NoError(t, err)
	require.Nil(t, v)

	// absence is not cached: the loader runs again
	_, err = GetOne(ctx, c, key, time.Minute, loader)
	require.NoError(t, err)
	require.Equal(t, 2, loads)
}

func TestGetOneDropsCorruptEntry(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	key := "user:cache-test-corrupt"
	require.NoError(t, c.rdb.Set(ctx, key, "{not json", time.Minute).Err())

	v, err := GetOne(ctx, c, key, time.Minute, func(ctx context.Context) (*fixture, error) {
		return &fixture{ID: 2, Name: "bob"}, nil
	})
	require.NoError(t, err)
	require.Equal(t, "bob", v.Name)

	// the corrupt entry was replaced with the reloaded value
	raw, err := c.rdb.Get(ctx, key).Result()
	require.NoError(t, err)
	require.JSONEq(t, `{"id":2,"name":"bob"}`, raw)
}

func TestGetOneTTLBoundsEntryLifetime(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	key := VoucherKey("cache-test-ttl")
	c.Invalidate(ctx, key)

	expireAt := time.Now().Add(time.Minute)
	v, err := GetOneTTL(ctx, c, key,
		func(ctx context.Context) (*fixture, error) {
			return &fixture{ID: 3, Name: "carol"}, nil
		},
		func(*fixture) time.Duration {
			return ExpiryTTL(&expireAt, time.Now())
		})
	require.NoError(t, err)
	require.Equal(t, "carol", v.Name)

	// the key must not outlive the entity's own expiry
	ttl, err := c.rdb.TTL(ctx, key).Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))
	require.LessOrEqual(t, ttl, time.Minute)
	c.Invalidate(ctx, key)
}

func TestInvalidatePrefix(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	Refresh(ctx, c, SoldAccountsByOwnerKey(99, "en"), []fixture{{ID: 1}}, time.Minute)
	Refresh(ctx, c, SoldAccountsByOwnerKey(99, "ru"), []fixture{{ID: 1}}, time.Minute)
	Refresh(ctx, c, SoldAccountsByOwnerKey(100, "en"), []fixture{{ID: 2}}, time.Minute)

	c.InvalidatePrefix(ctx, SoldAccountsByOwnerPrefix(99))

	for _, key := range []string{SoldAccountsByOwnerKey(99, "en"), SoldAccountsByOwnerKey(99, "ru")} {
		n, err := c.rdb.Exists(ctx, key).Result()
		require.NoError(t, err)
		require.Zero(t, n, "key %s should be gone", key)
	}
	n, err := c.rdb.Exists(ctx, SoldAccountsByOwnerKey(100, "en")).Result()
	require.NoError(t, err)
	require.EqualValues(t, 1, n, "other owner's key must survive")
	c.Invalidate(ctx, SoldAccountsByOwnerKey(100, "en"))
}
