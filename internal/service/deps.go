package service

import (
	"context"

	"shop_backoffice/internal/cache"
	"shop_backoffice/internal/events"
	"shop_backoffice/internal/logger"
	"shop_backoffice/internal/repository"
)

// EventPublisher is the slice of the publisher the services need; handlers
// and tests swap in fakes.
type EventPublisher interface {
	Publish(ctx context.Context, e events.Event) error
}

// sendLog emits a message.send_log envelope, best effort. Operational reports
// never block or fail a domain transition.
func sendLog(ctx context.Context, pub EventPublisher, text, lvl string) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, events.SendLog{Text: text, LogLvl: lvl}); err != nil {
		logger.Error("send_log publish failed", "error", err, "text", text)
	}
}

// publishAll publishes drained outbox events in insertion order, best effort.
func publishAll(ctx context.Context, pub EventPublisher, evs []events.Event) {
	for _, e := range evs {
		if err := pub.Publish(ctx, e); err != nil {
			logger.Error("deferred publish failed", "event", e.Key(), "error", err)
		}
	}
}

// refreshUserCache re-materializes the user's KV entry from the committed
// row. Called after every authoritative mutation of a user.
func refreshUserCache(ctx context.Context, c *cache.Cache, users *repository.UserRepository, id int64) {
	u, err := users.GetByID(ctx, id)
	if err != nil || u == nil {
		logger.Warn("user cache refresh skipped", "user_id", id, "error", err)
		return
	}
	cache.Refresh(ctx, c, cache.UserKey(id), u, cache.TTLUser)
}
