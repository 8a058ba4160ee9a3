package events

import (
	"context"
	"fmt"
	"time"

	"shop_backoffice/internal/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "events"
	QueueName    = "events_db"
)

// Publisher publishes envelopes to the topic exchange with persistent
// delivery. It dials a fresh connection per publish; callers that need
// transactional publish collect events in an Outbox and drain it after
// commit.
type Publisher struct {
	url string
}

func NewPublisher(url string) *Publisher {
	return &Publisher{url: url}
}

func declareExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		ExchangeName,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
}

// Publish wraps e in an envelope and sends it under its routing key.
func (p *Publisher) Publish(ctx context.Context, e Event) error {
	env, err := Wrap(e, time.Now())
	if err != nil {
		return err
	}
	body, err := env.Encode()
	if err != nil {
		return fmt.Errorf("encode envelope %s: %w", e.Key(), err)
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := declareExchange(ch); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	err = ch.PublishWithContext(ctx,
		ExchangeName,
		e.Key(),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    env.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", e.Key(), err)
	}

	eventsPublished.WithLabelValues(e.Key()).Inc()
	return nil
}

// PublishAll publishes drained outbox events in insertion order. Failures are
// logged and do not stop the remaining events; ordering across an error gap
// is still preserved for the events that do go out.
func (p *Publisher) PublishAll(ctx context.Context, evs []Event) {
	for _, e := range evs {
		if err := p.Publish(ctx, e); err != nil {
			logger.Error("deferred publish failed", "event", e.Key(), "error", err)
		}
	}
}
