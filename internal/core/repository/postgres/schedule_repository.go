package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pesaflow/remit/internal/core/logger"
	"github.com/pesaflow/remit/internal/core/models"
	"github.com/pesaflow/remit/internal/core/repository"
)

type postgresScheduleRepo struct {
	db  *sqlx.DB
	log logger.Logger
}

func NewPostgresScheduleRepo(db *sqlx.DB, log logger.Logger) repository.ScheduleRepository {
	return &postgresScheduleRepo{db: db, log: log}
}

func (r *postgresScheduleRepo) Create(ctx context.Context, schedule *models.ScheduledTransaction) error {
	query := `INSERT INTO scheduled_transactions
		(id, name, transaction_ids, schedule_type, next_execution, is_active, is_recurring, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())`

	_, err := r.db.ExecContext(ctx, query,
		schedule.ID,
		schedule.Name,
		schedule.TransactionIDs,
		schedule.ScheduleType,
		schedule.NextExecution,
		schedule.IsActive,
		schedule.IsRecurring,
	)
	if err != nil {
		return fmt.Errorf("create scheduled transaction: %w", err)
	}

	return nil
}

func (r *postgresScheduleRepo) Due(ctx context.Context, now time.Time) ([]models.ScheduledTransaction, error) {
	var schedules []models.ScheduledTransaction
	query := `SELECT id, name, transaction_ids, schedule_type, next_execution, is_active, is_recurring, created_at, updated_at
		FROM scheduled_transactions
		WHERE is_active = TRUE AND next_execution <= $1
		ORDER BY next_execution`
	if err := r.db.SelectContext(ctx, &schedules, query, now); err != nil {
		return nil, fmt.Errorf("select due batches: %w", err)
	}

	return schedules, nil
}

func (r *postgresScheduleRepo) Advance(ctx context.Context, id uuid.UUID, next time.Time) error {
	query := `UPDATE scheduled_transactions SET next_execution = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, next, id)
	if err != nil {
		return fmt.Errorf("advance batch schedule: %w", err)
	}
	return nil
}

func (r *postgresScheduleRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE scheduled_transactions SET is_active = FALSE, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deactivate batch: %w", err)
	}
	return nil
}
