package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pesaflow/remit/internal/core/models"
)

type WalletRepository interface {
	Create(ctx context.Context, wallet *models.Wallet) error
	GetByAccountID(ctx context.Context, accountID uuid.UUID) (*models.Wallet, error)
	GetByPublicKey(ctx context.Context, publicKey string) (*models.Wallet, error)
	// Activate moves a pending wallet to active; a no-op for active wallets.
	Activate(ctx context.Context, id uuid.UUID) error
	// UpdateCachedBalance refreshes the display-hint balance column.
	UpdateCachedBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error
}

// TransactionRepository persists value movements. MarkCompleted and
// MarkFailed are compare-and-set writes guarded on status = 'pending'; the
// boolean result reports whether this caller performed the transition.
type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	MarkCompleted(ctx context.Context, id uuid.UUID) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error)
	// StalePending returns pending transactions created at or before cutoff,
	// oldest first. These are rows whose reconcile job may have been lost.
	StalePending(ctx context.Context, cutoff time.Time) ([]models.Transaction, error)
}

// RemittanceRepository enforces the monotone remittance state machine: every
// transition is conditional on the expected prior status.
type RemittanceRepository interface {
	Create(ctx context.Context, remittance *models.Remittance) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Remittance, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error)
	MarkCompleted(ctx context.Context, id uuid.UUID) (bool, error)
}

type ScheduleRepository interface {
	Create(ctx context.Context, schedule *models.ScheduledTransaction) error
	Due(ctx context.Context, now time.Time) ([]models.ScheduledTransaction, error)
	Advance(ctx context.Context, id uuid.UUID, next time.Time) error
	Deactivate(ctx context.Context, id uuid.UUID) error
}
