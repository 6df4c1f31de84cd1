package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/pesaflow/remit/internal/core/logger"
	"github.com/pesaflow/remit/internal/core/queue"
)

// Handler processes one reconciliation job. A returned error means the job
// could not be handled right now and should be redelivered.
type Handler interface {
	Process(ctx context.Context, job queue.ReconcileJob) error
}

// Consumer reads reconciliation jobs one at a time and feeds them to the
// handler, acking only after the handler returns.
type Consumer struct {
	ch        *amqp.Channel
	queueName string
	handler   Handler
	log       logger.Logger
}

func NewConsumer(ch *amqp.Channel, exchange, queueName, routingKey string, handler Handler, log logger.Logger) (*Consumer, error) {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", queueName, err)
	}
	if err := ch.QueueBind(queueName, routingKey, exchange, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue %s: %w", queueName, err)
	}
	// One unacked message at a time keeps redeliveries ordered and bounded.
	if err := ch.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}
	return &Consumer{ch: ch, queueName: queueName, handler: handler, log: log}, nil
}

// Run consumes until the context is cancelled or the channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.ch.Consume(c.queueName, "reconciler", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queueName, err)
	}

	c.log.Info("reconcile consumer started", logger.StringField("queue", c.queueName))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed for %s", c.queueName)
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg amqp.Delivery) {
	var job queue.ReconcileJob
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		c.log.Error("dropping malformed reconcile job", logger.ErrorField("error", err))
		if err := msg.Nack(false, false); err != nil {
			c.log.Error("nack failed", logger.ErrorField("error", err))
		}
		return
	}

	if err := c.handler.Process(ctx, job); err != nil {
		c.log.Error("reconcile job failed, requeueing",
			logger.StringField("transaction_id", job.TransactionID.String()),
			logger.IntField("attempt", job.Attempt),
			logger.ErrorField("error", err))
		if err := msg.Nack(false, true); err != nil {
			c.log.Error("nack failed", logger.ErrorField("error", err))
		}
		return
	}

	if err := msg.Ack(false); err != nil {
		c.log.Error("ack failed", logger.ErrorField("error", err))
	}
}
