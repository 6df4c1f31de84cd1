package sweeper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pesaflow/remit/internal/core/logger"
	"github.com/pesaflow/remit/internal/core/metrics"
	"github.com/pesaflow/remit/internal/core/models"
	"github.com/pesaflow/remit/internal/core/queue"
	"github.com/pesaflow/remit/internal/core/reconciler"
	"github.com/pesaflow/remit/internal/core/repository"
)

// Sweeper runs due scheduled batches and acts as the backstop finalizer for
// transactions whose reconcile jobs were lost. Batch members that already
// carry a ledger hash are settled; members that never got one are failed.
// Pending rows outside any batch that sit past staleAge get their
// reconciliation re-driven through the queue.
type Sweeper struct {
	schedules    repository.ScheduleRepository
	transactions repository.TransactionRepository
	cascade      *reconciler.Cascader
	enqueuer     queue.Enqueuer
	interval     time.Duration
	staleAge     time.Duration
	log          logger.Logger
}

func New(
	schedules repository.ScheduleRepository,
	transactions repository.TransactionRepository,
	cascade *reconciler.Cascader,
	enqueuer queue.Enqueuer,
	interval time.Duration,
	staleAge time.Duration,
	log logger.Logger,
) *Sweeper {
	return &Sweeper{
		schedules:    schedules,
		transactions: transactions,
		cascade:      cascade,
		enqueuer:     enqueuer,
		interval:     interval,
		staleAge:     staleAge,
		log:          log,
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("sweeper started", logger.StringField("interval", s.interval.String()))

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.log.Error("sweep failed", logger.ErrorField("error", err))
			}
		}
	}
}

// RunOnce processes every batch that is due right now, then re-drives stale
// pending transactions. Each batch advances or deactivates regardless of
// member outcomes so a bad member cannot wedge the schedule.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	now := time.Now().UTC()

	if err := s.sweepBatches(ctx, now); err != nil {
		return err
	}
	return s.sweepStale(ctx, now)
}

func (s *Sweeper) sweepBatches(ctx context.Context, now time.Time) error {
	due, err := s.schedules.Due(ctx, now)
	if err != nil {
		return fmt.Errorf("load due schedules: %w", err)
	}

	for i := range due {
		batch := &due[i]
		completed, failed := s.processBatch(ctx, batch)

		outcome := "ok"
		if failed > 0 {
			outcome = "partial"
		}
		metrics.BatchesProcessed.WithLabelValues(outcome).Inc()

		s.log.Info("batch processed",
			logger.StringField("schedule_id", batch.ID.String()),
			logger.StringField("name", batch.Name),
			logger.IntField("completed", completed),
			logger.IntField("failed", failed))

		if err := s.finishBatch(ctx, batch, now); err != nil {
			s.log.Error("failed to advance schedule",
				logger.StringField("schedule_id", batch.ID.String()),
				logger.ErrorField("error", err))
		}
	}

	return nil
}

// sweepStale finds pending transactions old enough that their reconcile job
// must have been lost. Rows with a ledger hash go back through the queue so
// the reconciler settles them against the network; rows without one can never
// complete and are failed on the spot.
func (s *Sweeper) sweepStale(ctx context.Context, now time.Time) error {
	stale, err := s.transactions.StalePending(ctx, now.Add(-s.staleAge))
	if err != nil {
		return fmt.Errorf("load stale pending transactions: %w", err)
	}

	for i := range stale {
		tx := &stale[i]

		if tx.TransactionHash == nil {
			reason := "no hash available"
			swapped, err := s.transactions.MarkFailed(ctx, tx.ID, reason)
			if err != nil {
				s.log.Error("failed to mark stale transaction failed",
					logger.StringField("transaction_id", tx.ID.String()),
					logger.ErrorField("error", err))
				continue
			}
			if swapped {
				metrics.TransactionsReconciled.WithLabelValues("failed").Inc()
				s.cascade.TransactionFailed(ctx, tx, reason)
			}
			continue
		}

		// A failed enqueue just leaves the row for the next sweep.
		if err := s.enqueuer.EnqueueReconcile(ctx, queue.ReconcileJob{TransactionID: tx.ID}); err != nil {
			s.log.Error("failed to re-enqueue stale transaction",
				logger.StringField("transaction_id", tx.ID.String()),
				logger.ErrorField("error", err))
			continue
		}

		s.log.Warn("re-enqueued stale pending transaction",
			logger.StringField("transaction_id", tx.ID.String()),
			logger.StringField("created_at", tx.CreatedAt.Format(time.RFC3339)))
	}

	return nil
}

func (s *Sweeper) processBatch(ctx context.Context, batch *models.ScheduledTransaction) (completed, failed int) {
	if len(batch.TransactionIDs) == 0 {
		s.log.Warn("batch has no members", logger.StringField("schedule_id", batch.ID.String()))
		return 0, 0
	}

	for _, raw := range batch.TransactionIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			s.log.Error("batch member is not a transaction id",
				logger.StringField("schedule_id", batch.ID.String()),
				logger.StringField("member", raw))
			failed++
			continue
		}
		if s.settleMember(ctx, id) {
			completed++
		} else {
			failed++
		}
	}
	return completed, failed
}

// settleMember drives one batch member to a terminal state and reports
// whether it ended completed.
func (s *Sweeper) settleMember(ctx context.Context, id uuid.UUID) bool {
	tx, err := s.transactions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.log.Error("batch references unknown transaction",
				logger.StringField("transaction_id", id.String()))
		} else {
			s.log.Error("failed to load batch member",
				logger.StringField("transaction_id", id.String()),
				logger.ErrorField("error", err))
		}
		return false
	}

	switch tx.Status {
	case models.TransactionStatusCompleted:
		return true
	case models.TransactionStatusFailed:
		return false
	}

	if tx.TransactionHash == nil {
		reason := "no hash available"
		swapped, err := s.transactions.MarkFailed(ctx, tx.ID, reason)
		if err != nil {
			s.log.Error("failed to mark batch member failed",
				logger.StringField("transaction_id", tx.ID.String()),
				logger.ErrorField("error", err))
			return false
		}
		if swapped {
			metrics.TransactionsReconciled.WithLabelValues("failed").Inc()
			s.cascade.TransactionFailed(ctx, tx, reason)
		}
		return false
	}

	swapped, err := s.transactions.MarkCompleted(ctx, tx.ID)
	if err != nil {
		s.log.Error("failed to mark batch member completed",
			logger.StringField("transaction_id", tx.ID.String()),
			logger.ErrorField("error", err))
		return false
	}
	if swapped {
		metrics.TransactionsReconciled.WithLabelValues("completed").Inc()
		s.cascade.TransactionCompleted(ctx, tx)
		return true
	}

	// Raced with the reconciler; read back which way it went.
	current, err := s.transactions.GetByID(ctx, tx.ID)
	if err != nil {
		return false
	}
	return current.Status == models.TransactionStatusCompleted
}

func (s *Sweeper) finishBatch(ctx context.Context, batch *models.ScheduledTransaction, now time.Time) error {
	if !batch.IsRecurring {
		return s.schedules.Deactivate(ctx, batch.ID)
	}
	next, err := batch.ScheduleType.Next(now)
	if err != nil {
		return err
	}
	return s.schedules.Advance(ctx, batch.ID, next)
}
