package events

import (
	"context"
	"strings"

	"shop_backoffice/internal/logger"
)

// HandlerFunc processes one decoded envelope. A nil return acknowledges the
// message; an error nacks it without requeue (handlers are idempotent, the
// broker is not a retry queue).
type HandlerFunc func(ctx context.Context, env Envelope) error

// Router is the static dispatch table filled at process startup.
type Router struct {
	handlers map[string]HandlerFunc
	families map[string]struct{}
}

func NewRouter() *Router {
	return &Router{
		handlers: make(map[string]HandlerFunc),
		families: make(map[string]struct{}),
	}
}

// Register binds a routing key to a handler. Last registration wins.
func (r *Router) Register(key string, h HandlerFunc) {
	r.handlers[key] = h
	if i := strings.IndexByte(key, '.'); i > 0 {
		r.families[key[:i]] = struct{}{}
	}
}

// Dispatch routes an envelope to its handler. Unknown events are logged and
// dropped (nil return acks them) so they never pile up broker-side.
func (r *Router) Dispatch(ctx context.Context, env Envelope) error {
	h, ok := r.handlers[env.Event]
	if ok {
		return h(ctx, env)
	}

	family := env.Event
	if i := strings.IndexByte(env.Event, '.'); i > 0 {
		family = env.Event[:i]
	}
	if _, known := r.families[family]; known {
		logger.Warn("no handler for event in known family", "event", env.Event)
	} else {
		logger.Warn("unknown event kind, dropping", "event", env.Event)
	}
	eventsDropped.Inc()
	return nil
}

// Typed adapts a payload-typed handler to a HandlerFunc, decoding the
// envelope's payload first.
func Typed[T Event](h func(ctx context.Context, p T) error) HandlerFunc {
	return func(ctx context.Context, env Envelope) error {
		var p T
		decoded, err := unmarshalPayload[T](env.Payload)
		if err != nil {
			return err
		}
		p = decoded.(T)
		return h(ctx, p)
	}
}
