package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"shop_backoffice/internal/logger"

	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"
)

var (
	cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Cache reads served from Redis",
		},
		[]string{"kind"},
	)
	cacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Cache reads that fell through to the database",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(cacheHits)
	prometheus.MustRegister(cacheMisses)
}

// keyKind extracts the namespace part of a key for metrics labels.
func keyKind(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}

// GetOne is the single-object read-through. On a Redis hit the cached JSON is
// decoded (time fields come back as time.Time via RFC3339). On a miss the
// loader is called; a found entity is written back with the given TTL.
// A loader returning (nil, nil) means "absent" and is never cached.
// Redis errors never surface: the loader result wins.
func GetOne[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, loader func(context.Context) (*T, error)) (*T, error) {
	return GetOneTTL(ctx, c, key, loader, func(*T) time.Duration { return ttl })
}

// GetOneTTL is GetOne with the write-back TTL computed from the loaded
// entity. Time-bound entities (vouchers, promo codes) use it so the cached
// copy expires no later than the row itself.
func GetOneTTL[T any](ctx context.Context, c *Cache, key string, loader func(context.Context) (*T, error), ttlFor func(*T) time.Duration) (*T, error) {
	if c.Enabled() {
		raw, err := c.rdb.Get(ctx, key).Bytes()
		if err == nil {
			var v T
			if err := json.Unmarshal(raw, &v); err == nil {
				cacheHits.WithLabelValues(keyKind(key)).Inc()
				return &v, nil
			}
			// corrupt entry, drop it and reload
			c.rdb.Del(ctx, key)
		} else if err != redis.Nil {
			logger.Warn("cache read failed", "key", key, "error", err)
		}
	}

	cacheMisses.WithLabelValues(keyKind(key)).Inc()
	v, err := loader(ctx)
	if err != nil || v == nil {
		return v, err
	}

	Refresh(ctx, c, key, *v, ttlFor(v))
	return v, nil
}

// GetList is the grouped-read counterpart of GetOne. Pagination over a fully
// cached list is the caller's concern; the whole list is stored as one value.
func GetList[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, loader func(context.Context) ([]T, error)) ([]T, error) {
	if c.Enabled() {
		raw, err := c.rdb.Get(ctx, key).Bytes()
		if err == nil {
			var vs []T
			if err := json.Unmarshal(raw, &vs); err == nil {
				cacheHits.WithLabelValues(keyKind(key)).Inc()
				return vs, nil
			}
			c.rdb.Del(ctx, key)
		} else if err != redis.Nil {
			logger.Warn("cache read failed", "key", key, "error", err)
		}
	}

	cacheMisses.WithLabelValues(keyKind(key)).Inc()
	vs, err := loader(ctx)
	if err != nil || len(vs) == 0 {
		return vs, err
	}

	Refresh(ctx, c, key, vs, ttl)
	return vs, nil
}

// Refresh writes v under key, best effort. ttl <= 0 stores without expiry.
// It must only be called with freshly committed data; stale SETs break the
// RDB-first contract.
func Refresh[T any](ctx context.Context, c *Cache, key string, v T, ttl time.Duration) {
	if !c.Enabled() {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		logger.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := c.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		logger.Warn("cache write failed", "key", key, "error", err)
	}
}

// Invalidate deletes the given keys, best effort.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if !c.Enabled() || len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		logger.Warn("cache invalidate failed", "keys", keys, "error", err)
	}
}

// InvalidatePrefix deletes every key under prefix (trailing wildcard).
// Used for language-scoped entities: dropping one language must drop every
// materialized language of that entity.
func (c *Cache) InvalidatePrefix(ctx context.Context, prefix string) {
	if !c.Enabled() {
		return
	}
	iter := c.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		logger.Warn("cache scan failed", "prefix", prefix, "error", err)
	}
	if len(keys) > 0 {
		c.Invalidate(ctx, keys...)
	}
}
