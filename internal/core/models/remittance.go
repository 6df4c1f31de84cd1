package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RemittanceStatus string

const (
	RemittanceStatusPending    RemittanceStatus = "pending"
	RemittanceStatusProcessing RemittanceStatus = "processing"
	RemittanceStatusCompleted  RemittanceStatus = "completed"
	RemittanceStatusFailed     RemittanceStatus = "failed"
)

// Remittance is a cross-border payout intent. Its status only ever advances
// pending -> processing -> completed, or jumps once to failed.
type Remittance struct {
	ID                uuid.UUID        `json:"id" db:"id"`
	AccountID         uuid.UUID        `json:"account_id" db:"account_id"`
	Amount            decimal.Decimal  `json:"amount" db:"amount"`
	Currency          string           `json:"currency" db:"currency"`
	FeeAmount         decimal.Decimal  `json:"fee_amount" db:"fee_amount"`
	TotalAmount       decimal.Decimal  `json:"total_amount" db:"total_amount"`
	BankName          string           `json:"bank_name" db:"bank_name"`
	BankAccountNumber string           `json:"bank_account_number" db:"bank_account_number"`
	BankAccountName   string           `json:"bank_account_name" db:"bank_account_name"`
	Status            RemittanceStatus `json:"status" db:"status"`
	FailureReason     *string          `json:"failure_reason,omitempty" db:"failure_reason"`
	ProviderResponse  *string          `json:"provider_response,omitempty" db:"provider_response"`
	CreatedAt         time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at" db:"updated_at"`
}
