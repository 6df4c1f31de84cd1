package queue

import (
	"context"

	"github.com/google/uuid"
)

// ReconcileJob asks for one reconciliation attempt on a transaction. Attempt
// is the explicit retry counter: it travels with the job so the consumer can
// enforce the transport-failure budget without hidden state.
type ReconcileJob struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	Attempt       int       `json:"attempt"`
}

// Enqueuer schedules reconciliation jobs with at-least-once delivery.
type Enqueuer interface {
	EnqueueReconcile(ctx context.Context, job ReconcileJob) error
}
