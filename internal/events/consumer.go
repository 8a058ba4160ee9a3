package events

import (
	"context"
	"time"

	"shop_backoffice/internal/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Queue bindings: every domain the pipeline listens to.
var queueBindings = []string{
	"promo_code.*",
	"voucher.*",
	"referral.*",
	"replenishment.*",
	"account.*",
	"purchase.*",
	"filesystem.*",
	"message.*",
}

const (
	consumerTag    = "events_db_worker"
	reconnectDelay = time.Second
	bufferSize     = 64
)

// Consumer holds one long-lived recovering connection to the broker. A
// network goroutine feeds deliveries into a bounded hand-off buffer; a single
// worker drains it sequentially, so handler execution is serialized and
// memory stays bounded.
type Consumer struct {
	url    string
	router *Router
}

func NewConsumer(url string, router *Router) *Consumer {
	return &Consumer{url: url, router: router}
}

// Run drives the connect/consume/reconnect loop until ctx is cancelled.
// Reconnect uses a fixed small delay; the caller bounds total shutdown time.
func (c *Consumer) Run(ctx context.Context) {
	for {
		if err := c.runOnce(ctx); err != nil {
			logger.Error("consumer session ended", "error", err)
		}
		select {
		case <-ctx.Done():
			logger.Info("consumer stopped")
			return
		case <-time.After(reconnectDelay):
			consumerReconnects.Inc()
		}
	}
}

func (c *Consumer) runOnce(ctx context.Context) error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return err
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := declareExchange(ch); err != nil {
		return err
	}

	q, err := ch.QueueDeclare(
		QueueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return err
	}

	for _, binding := range queueBindings {
		if err := ch.QueueBind(q.Name, binding, ExchangeName, false, nil); err != nil {
			return err
		}
	}

	if err := ch.Qos(bufferSize, 0, false); err != nil {
		return err
	}

	deliveries, err := ch.Consume(
		q.Name,
		consumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return err
	}

	logger.Info("consumer running", "queue", q.Name)

	// Hand-off buffer between the network goroutine and the worker.
	buf := make(chan amqp.Delivery, bufferSize)
	go func() {
		defer close(buf)
		for d := range deliveries {
			select {
			case buf <- d:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			// Stop accepting new messages, then tear the session down.
			_ = ch.Cancel(consumerTag, false)
			return nil
		case d, ok := <-buf:
			if !ok {
				// Broker side closed the stream; reconnect.
				return amqp.ErrClosed
			}
			c.handle(ctx, d)
		}
	}
}

// handle dispatches one delivery. Ack on success and on unknown/malformed
// messages (drop), nack without requeue on handler error: redelivery storms
// are avoided because idempotency lives in the handlers.
func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	env, err := DecodeEnvelope(d.Body)
	if err != nil {
		logger.Error("malformed message, dropping", "error", err)
		eventsDropped.Inc()
		_ = d.Ack(false)
		return
	}

	if err := c.router.Dispatch(ctx, env); err != nil {
		logger.Error("handler failed", "event", env.Event, "error", err)
		eventsFailed.WithLabelValues(env.Event).Inc()
		_ = d.Nack(false, false)
		return
	}

	eventsConsumed.WithLabelValues(env.Event).Inc()
	_ = d.Ack(false)
}
