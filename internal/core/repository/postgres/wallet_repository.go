package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/pesaflow/remit/internal/core/logger"
	"github.com/pesaflow/remit/internal/core/models"
	"github.com/pesaflow/remit/internal/core/repository"
)

type postgresWalletRepo struct {
	db  *sqlx.DB
	log logger.Logger
}

func NewPostgresWalletRepo(db *sqlx.DB, log logger.Logger) repository.WalletRepository {
	return &postgresWalletRepo{db: db, log: log}
}

func (r *postgresWalletRepo) Create(ctx context.Context, wallet *models.Wallet) error {
	query := `INSERT INTO wallets
		(id, account_id, public_key, encrypted_secret_key, balance, status, is_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())`

	_, err := r.db.ExecContext(ctx, query,
		wallet.ID,
		wallet.AccountID,
		wallet.PublicKey,
		wallet.EncryptedSecretKey,
		wallet.Balance,
		wallet.Status,
		wallet.IsVerified,
	)
	if err != nil {
		return fmt.Errorf("create wallet: %w", err)
	}

	return nil
}

func (r *postgresWalletRepo) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	query := `SELECT id, account_id, public_key, encrypted_secret_key, balance, status, is_verified, created_at, updated_at
		FROM wallets WHERE account_id = $1`
	err := r.db.GetContext(ctx, &wallet, query, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: wallet for account %s not found", sql.ErrNoRows, accountID)
		}
		return nil, fmt.Errorf("error getting wallet: %w", err)
	}

	return &wallet, nil
}

func (r *postgresWalletRepo) GetByPublicKey(ctx context.Context, publicKey string) (*models.Wallet, error) {
	var wallet models.Wallet
	query := `SELECT id, account_id, public_key, encrypted_secret_key, balance, status, is_verified, created_at, updated_at
		FROM wallets WHERE public_key = $1`
	err := r.db.GetContext(ctx, &wallet, query, publicKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: wallet with public key %s not found", sql.ErrNoRows, publicKey)
		}
		return nil, fmt.Errorf("error getting wallet: %w", err)
	}

	return &wallet, nil
}

func (r *postgresWalletRepo) Activate(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE wallets SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`
	_, err := r.db.ExecContext(ctx, query, models.WalletStatusActive, id, models.WalletStatusPending)
	if err != nil {
		return fmt.Errorf("activate wallet: %w", err)
	}
	return nil
}

func (r *postgresWalletRepo) UpdateCachedBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	query := `UPDATE wallets SET balance = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, balance, id)
	if err != nil {
		return fmt.Errorf("update cached balance: %w", err)
	}
	return nil
}
