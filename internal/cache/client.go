package cache

import (
	"context"
	"time"

	"shop_backoffice/internal/logger"

	redis "github.com/redis/go-redis/v9"
)

// Cache wraps the shared Redis client. A nil client means Redis is not
// configured or unreachable; every read then falls through to its loader and
// write-backs become no-ops, so the process stays available without KV.
type Cache struct {
	rdb *redis.Client
}

// New connects to Redis. Provide addr (host:port), password and db index.
// If addr is empty or the ping fails, the cache acts as fail-open.
func New(addr, password string, db int) *Cache {
	if addr == "" {
		return &Cache{}
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, cache disabled", "addr", addr, "error", err)
		return &Cache{}
	}

	logger.Info("redis connected", "addr", addr)
	return &Cache{rdb: rdb}
}

// Enabled reports whether a live Redis client is attached.
func (c *Cache) Enabled() bool {
	return c != nil && c.rdb != nil
}

// Close releases the underlying client.
func (c *Cache) Close() {
	if c.Enabled() {
		_ = c.rdb.Close()
	}
}
