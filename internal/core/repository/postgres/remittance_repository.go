package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pesaflow/remit/internal/core/logger"
	"github.com/pesaflow/remit/internal/core/models"
	"github.com/pesaflow/remit/internal/core/repository"
)

type postgresRemittanceRepo struct {
	db  *sqlx.DB
	log logger.Logger
}

func NewPostgresRemittanceRepo(db *sqlx.DB, log logger.Logger) repository.RemittanceRepository {
	return &postgresRemittanceRepo{db: db, log: log}
}

func (r *postgresRemittanceRepo) Create(ctx context.Context, remittance *models.Remittance) error {
	query := `INSERT INTO remittances
		(id, account_id, amount, currency, fee_amount, total_amount, bank_name, bank_account_number,
		 bank_account_name, status, failure_reason, provider_response, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())`

	_, err := r.db.ExecContext(ctx, query,
		remittance.ID,
		remittance.AccountID,
		remittance.Amount,
		remittance.Currency,
		remittance.FeeAmount,
		remittance.TotalAmount,
		remittance.BankName,
		remittance.BankAccountNumber,
		remittance.BankAccountName,
		remittance.Status,
		remittance.FailureReason,
		remittance.ProviderResponse,
	)
	if err != nil {
		return fmt.Errorf("create remittance: %w", err)
	}

	return nil
}

func (r *postgresRemittanceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Remittance, error) {
	var remittance models.Remittance
	query := `SELECT id, account_id, amount, currency, fee_amount, total_amount, bank_name, bank_account_number,
		bank_account_name, status, failure_reason, provider_response, created_at, updated_at
		FROM remittances WHERE id = $1`
	err := r.db.GetContext(ctx, &remittance, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: remittance %s not found", sql.ErrNoRows, id)
		}
		return nil, fmt.Errorf("error getting remittance: %w", err)
	}

	return &remittance, nil
}

// MarkProcessing advances pending -> processing. A remittance that already
// left pending is never moved again by transaction outcomes.
func (r *postgresRemittanceRepo) MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `UPDATE remittances SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`
	result, err := r.db.ExecContext(ctx, query, models.RemittanceStatusProcessing, id, models.RemittanceStatusPending)
	if err != nil {
		return false, fmt.Errorf("mark remittance processing: %w", err)
	}

	return oneRowAffected(result)
}

func (r *postgresRemittanceRepo) MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	query := `UPDATE remittances SET status = $1, failure_reason = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, models.RemittanceStatusFailed, reason, id, models.RemittanceStatusPending)
	if err != nil {
		return false, fmt.Errorf("mark remittance failed: %w", err)
	}

	return oneRowAffected(result)
}

// MarkCompleted is the operator-driven processing -> completed transition.
func (r *postgresRemittanceRepo) MarkCompleted(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `UPDATE remittances SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`
	result, err := r.db.ExecContext(ctx, query, models.RemittanceStatusCompleted, id, models.RemittanceStatusProcessing)
	if err != nil {
		return false, fmt.Errorf("mark remittance completed: %w", err)
	}

	return oneRowAffected(result)
}
