package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeTransfer   TransactionType = "transfer"
	TransactionTypeRemittance TransactionType = "remittance"
	TransactionTypeTest       TransactionType = "test"
)

const referenceProvider = "STELLAR"

// Transaction is the canonical record of one attempted value movement.
// completed and failed are terminal; a row only ever leaves pending once.
type Transaction struct {
	ID                uuid.UUID         `json:"id" db:"id"`
	AccountID         uuid.UUID         `json:"account_id" db:"account_id"`
	SenderWalletID    *uuid.UUID        `json:"sender_wallet_id,omitempty" db:"sender_wallet_id"`
	RecipientWalletID *uuid.UUID        `json:"recipient_wallet_id,omitempty" db:"recipient_wallet_id"`
	RecipientAddress  string            `json:"recipient_address" db:"recipient_address"`
	Amount            decimal.Decimal   `json:"amount" db:"amount"`
	AssetCode         string            `json:"asset_code" db:"asset_code"`
	TransactionHash   *string           `json:"transaction_hash,omitempty" db:"transaction_hash"`
	Type              TransactionType   `json:"type" db:"type"`
	Status            TransactionStatus `json:"status" db:"status"`
	Reference         string            `json:"reference" db:"reference"`
	FailureReason     *string           `json:"failure_reason,omitempty" db:"failure_reason"`
	RemittanceID      *uuid.UUID        `json:"remittance_id,omitempty" db:"remittance_id"`
	CreatedAt         time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at" db:"updated_at"`
}

func (s TransactionStatus) Terminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusFailed
}

// NewReference generates a unique transaction reference of the form
// {PROVIDER}_{RANDOM12}_{EPOCH}.
func NewReference() string {
	random := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:12]
	return fmt.Sprintf("%s_%s_%d", referenceProvider, random, time.Now().Unix())
}
