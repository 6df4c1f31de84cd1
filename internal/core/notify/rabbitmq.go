package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	routingKeyProcessing = "remittance.processing"
	routingKeyFailed     = "remittance.failed"
)

type remittanceEvent struct {
	RemittanceID string    `json:"remittance_id"`
	Status       string    `json:"status"`
	Reason       string    `json:"reason,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// AMQPNotifier publishes remittance lifecycle events to a topic exchange so
// downstream consumers (payout desk, alerting) can react.
type AMQPNotifier struct {
	ch       *amqp.Channel
	exchange string
}

func NewAMQPNotifier(ch *amqp.Channel, exchange string) (*AMQPNotifier, error) {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQPNotifier{ch: ch, exchange: exchange}, nil
}

func (n *AMQPNotifier) RemittanceProcessing(ctx context.Context, remittanceID uuid.UUID) error {
	return n.publish(ctx, routingKeyProcessing, remittanceEvent{
		RemittanceID: remittanceID.String(),
		Status:       "processing",
		OccurredAt:   time.Now().UTC(),
	})
}

func (n *AMQPNotifier) RemittanceFailed(ctx context.Context, remittanceID uuid.UUID, reason string) error {
	return n.publish(ctx, routingKeyFailed, remittanceEvent{
		RemittanceID: remittanceID.String(),
		Status:       "failed",
		Reason:       reason,
		OccurredAt:   time.Now().UTC(),
	})
}

func (n *AMQPNotifier) publish(ctx context.Context, key string, event remittanceEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	err = n.ch.PublishWithContext(ctx, n.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	return nil
}
