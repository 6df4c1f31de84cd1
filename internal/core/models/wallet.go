package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type WalletStatus string

const (
	WalletStatusPending WalletStatus = "pending"
	WalletStatusActive  WalletStatus = "active"
)

// Wallet is a keypair-backed account on the settlement network. The secret
// key is stored encrypted and is only decrypted transiently at signing time.
// Balance is a cached display hint; the network is authoritative.
type Wallet struct {
	ID                 uuid.UUID       `json:"id" db:"id"`
	AccountID          uuid.UUID       `json:"account_id" db:"account_id"`
	PublicKey          string          `json:"public_key" db:"public_key"`
	EncryptedSecretKey string          `json:"-" db:"encrypted_secret_key"`
	Balance            decimal.Decimal `json:"balance" db:"balance"`
	Status             WalletStatus    `json:"status" db:"status"`
	IsVerified         bool            `json:"is_verified" db:"is_verified"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`
}
