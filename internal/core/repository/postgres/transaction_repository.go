package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pesaflow/remit/internal/core/logger"
	"github.com/pesaflow/remit/internal/core/models"
	"github.com/pesaflow/remit/internal/core/repository"
)

type postgresTransactionRepo struct {
	db  *sqlx.DB
	log logger.Logger
}

func NewPostgresTransactionRepo(db *sqlx.DB, log logger.Logger) repository.TransactionRepository {
	return &postgresTransactionRepo{db: db, log: log}
}

func (r *postgresTransactionRepo) Create(ctx context.Context, tx *models.Transaction) error {
	query := `INSERT INTO transactions
		(id, account_id, sender_wallet_id, recipient_wallet_id, recipient_address, amount, asset_code,
		 transaction_hash, type, status, reference, failure_reason, remittance_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())`

	_, err := r.db.ExecContext(ctx, query,
		tx.ID,
		tx.AccountID,
		tx.SenderWalletID,
		tx.RecipientWalletID,
		tx.RecipientAddress,
		tx.Amount,
		tx.AssetCode,
		tx.TransactionHash,
		tx.Type,
		tx.Status,
		tx.Reference,
		tx.FailureReason,
		tx.RemittanceID,
	)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}

	return nil
}

func (r *postgresTransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var tx models.Transaction
	query := `SELECT id, account_id, sender_wallet_id, recipient_wallet_id, recipient_address, amount, asset_code,
		transaction_hash, type, status, reference, failure_reason, remittance_id, created_at, updated_at
		FROM transactions WHERE id = $1`
	err := r.db.GetContext(ctx, &tx, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: transaction %s not found", sql.ErrNoRows, id)
		}
		return nil, fmt.Errorf("error getting transaction: %w", err)
	}

	return &tx, nil
}

// MarkCompleted is the compare-and-set transition pending -> completed. The
// WHERE clause on status is the lock: whoever sees one affected row owns the
// transition, everyone else must perform no side effects.
func (r *postgresTransactionRepo) MarkCompleted(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `UPDATE transactions SET status = $1, failure_reason = NULL, updated_at = NOW()
		WHERE id = $2 AND status = $3`
	result, err := r.db.ExecContext(ctx, query, models.TransactionStatusCompleted, id, models.TransactionStatusPending)
	if err != nil {
		return false, fmt.Errorf("mark transaction completed: %w", err)
	}

	return oneRowAffected(result)
}

func (r *postgresTransactionRepo) MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	query := `UPDATE transactions SET status = $1, failure_reason = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, models.TransactionStatusFailed, reason, id, models.TransactionStatusPending)
	if err != nil {
		return false, fmt.Errorf("mark transaction failed: %w", err)
	}

	return oneRowAffected(result)
}

func (r *postgresTransactionRepo) StalePending(ctx context.Context, cutoff time.Time) ([]models.Transaction, error) {
	var txs []models.Transaction
	query := `SELECT id, account_id, sender_wallet_id, recipient_wallet_id, recipient_address, amount, asset_code,
		transaction_hash, type, status, reference, failure_reason, remittance_id, created_at, updated_at
		FROM transactions
		WHERE status = $1 AND created_at <= $2
		ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &txs, query, models.TransactionStatusPending, cutoff); err != nil {
		return nil, fmt.Errorf("select stale pending transactions: %w", err)
	}

	return txs, nil
}

func oneRowAffected(result sql.Result) (bool, error) {
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected == 1, nil
}
