package reconciler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pesaflow/remit/internal/core/ledger"
	"github.com/pesaflow/remit/internal/core/logger"
	"github.com/pesaflow/remit/internal/core/metrics"
	"github.com/pesaflow/remit/internal/core/models"
	"github.com/pesaflow/remit/internal/core/queue"
	"github.com/pesaflow/remit/internal/core/repository"
)

// Reconciler resolves a submitted transaction's pending status by asking the
// settlement network what became of it. Network trouble is retried under an
// explicit attempt budget carried in the job; everything else resolves the
// transaction one way or the other.
type Reconciler struct {
	transactions repository.TransactionRepository
	network      ledger.Network
	enqueuer     queue.Enqueuer
	cascade      *Cascader
	maxAttempts  int
	log          logger.Logger
}

func New(
	transactions repository.TransactionRepository,
	network ledger.Network,
	enqueuer queue.Enqueuer,
	cascade *Cascader,
	maxAttempts int,
	log logger.Logger,
) *Reconciler {
	return &Reconciler{
		transactions: transactions,
		network:      network,
		enqueuer:     enqueuer,
		cascade:      cascade,
		maxAttempts:  maxAttempts,
		log:          log,
	}
}

// Process handles one reconciliation job. A non-nil return means a store
// failure the broker should redeliver; domain outcomes never return an error.
func (r *Reconciler) Process(ctx context.Context, job queue.ReconcileJob) error {
	tx, err := r.transactions.GetByID(ctx, job.TransactionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warn("reconcile job for unknown transaction",
				logger.StringField("transaction_id", job.TransactionID.String()))
			return nil
		}
		return fmt.Errorf("load transaction: %w", err)
	}

	if tx.Status.Terminal() {
		return nil
	}

	if tx.TransactionHash == nil {
		r.fail(ctx, tx, "no hash available")
		return nil
	}

	record, err := r.network.TransactionByHash(ctx, *tx.TransactionHash)
	if err != nil {
		var transport *ledger.TransportError
		switch {
		case errors.As(err, &transport):
			r.retryOrFail(ctx, tx, job, transport.Error())
			return nil
		case errors.Is(err, ledger.ErrTransactionNotFound):
			r.retryOrFail(ctx, tx, job, "transaction not found on settlement network")
			return nil
		default:
			return fmt.Errorf("query transaction %s: %w", *tx.TransactionHash, err)
		}
	}

	if record.Status == ledger.TransactionSucceeded {
		r.complete(ctx, tx)
		return nil
	}

	reason := "transaction failed on ledger"
	if record.ResultCode != "" {
		reason = fmt.Sprintf("transaction failed on ledger: %s", record.ResultCode)
	}
	r.fail(ctx, tx, reason)
	return nil
}

// retryOrFail re-enqueues the job with the attempt counter bumped, or gives
// up and records the failure once the budget is spent.
func (r *Reconciler) retryOrFail(ctx context.Context, tx *models.Transaction, job queue.ReconcileJob, cause string) {
	next := job.Attempt + 1
	if next < r.maxAttempts {
		r.log.Warn("reconciliation attempt failed, retrying",
			logger.StringField("transaction_id", tx.ID.String()),
			logger.IntField("attempt", job.Attempt),
			logger.StringField("cause", cause))
		if err := r.enqueuer.EnqueueReconcile(ctx, queue.ReconcileJob{TransactionID: tx.ID, Attempt: next}); err != nil {
			r.log.Error("failed to re-enqueue reconcile job",
				logger.StringField("transaction_id", tx.ID.String()),
				logger.ErrorField("error", err))
		}
		return
	}

	r.fail(ctx, tx, fmt.Sprintf("reconciliation attempts exhausted: %s", cause))
}

func (r *Reconciler) complete(ctx context.Context, tx *models.Transaction) {
	swapped, err := r.transactions.MarkCompleted(ctx, tx.ID)
	if err != nil {
		r.log.Error("failed to mark transaction completed",
			logger.StringField("transaction_id", tx.ID.String()),
			logger.ErrorField("error", err))
		return
	}
	if !swapped {
		// Lost the race; the winner runs the cascade.
		return
	}

	metrics.TransactionsReconciled.WithLabelValues("completed").Inc()
	r.log.Info("transaction completed",
		logger.StringField("transaction_id", tx.ID.String()),
		logger.StringField("reference", tx.Reference))

	r.cascade.TransactionCompleted(ctx, tx)
}

func (r *Reconciler) fail(ctx context.Context, tx *models.Transaction, reason string) {
	swapped, err := r.transactions.MarkFailed(ctx, tx.ID, reason)
	if err != nil {
		r.log.Error("failed to mark transaction failed",
			logger.StringField("transaction_id", tx.ID.String()),
			logger.ErrorField("error", err))
		return
	}
	if !swapped {
		return
	}

	metrics.TransactionsReconciled.WithLabelValues("failed").Inc()
	r.log.Warn("transaction failed",
		logger.StringField("transaction_id", tx.ID.String()),
		logger.StringField("reference", tx.Reference),
		logger.StringField("reason", reason))

	r.cascade.TransactionFailed(ctx, tx, reason)
}
