package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/pesaflow/remit/internal/core/queue"
)

// Publisher pushes reconciliation jobs onto a durable topic exchange.
type Publisher struct {
	ch       *amqp.Channel
	exchange string
	key      string
}

func NewPublisher(ch *amqp.Channel, exchange, routingKey string) (*Publisher, error) {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &Publisher{ch: ch, exchange: exchange, key: routingKey}, nil
}

func (p *Publisher) EnqueueReconcile(ctx context.Context, job queue.ReconcileJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal reconcile job: %w", err)
	}
	err = p.ch.PublishWithContext(ctx, p.exchange, p.key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish reconcile job: %w", err)
	}
	return nil
}
