package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrAccountNotFound is returned when the settlement network has no record of
// the requested account.
var ErrAccountNotFound = errors.New("account not found on settlement network")

// ErrTransactionNotFound is returned when a transaction hash is unknown to
// the settlement network.
var ErrTransactionNotFound = errors.New("transaction not found on settlement network")

// RejectionError is an explicit negative result from the settlement network.
// Retrying the same signed envelope cannot succeed, so callers treat it as
// terminal. ResultCodes carries the network's structured codes verbatim.
type RejectionError struct {
	ResultCodes string
	Detail      string
}

func (e *RejectionError) Error() string {
	if e.ResultCodes != "" {
		return fmt.Sprintf("settlement network rejected transaction: %s (%s)", e.ResultCodes, e.Detail)
	}
	return fmt.Sprintf("settlement network rejected transaction: %s", e.Detail)
}

// TransportError is a timeout or server-side failure reaching the settlement
// network. Callers may retry within their budget.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("settlement network unavailable: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// PaymentRequest describes a single native-asset payment to submit.
type PaymentRequest struct {
	SourceSeed  string
	Destination string
	Amount      decimal.Decimal
	Memo        string
}

// PaymentResult is the accepted submission of a payment.
type PaymentResult struct {
	Hash string
}

type TransactionStatus string

const (
	TransactionSucceeded TransactionStatus = "succeeded"
	TransactionFailed    TransactionStatus = "failed"
)

// TransactionRecord is the ledger-confirmed outcome of a transaction.
type TransactionRecord struct {
	Hash       string
	Status     TransactionStatus
	ResultCode string
}

// Network is the settlement network consumed by custody, the transaction
// builder and the reconciler. Implementations carry their own endpoint,
// passphrase and timeout configuration.
type Network interface {
	// GenerateKeypair creates a fresh asymmetric keypair. The seed is
	// returned exactly once and is never retained by the implementation.
	GenerateKeypair() (address, seed string, err error)

	// NativeBalance queries the live native-asset balance of an account.
	NativeBalance(ctx context.Context, address string) (decimal.Decimal, error)

	// SendPayment fetches the source sequence number, builds a
	// single-operation payment with memo and time bounds, signs it under the
	// network passphrase and submits it.
	SendPayment(ctx context.Context, req PaymentRequest) (*PaymentResult, error)

	// TransactionByHash looks up the confirmed outcome of a transaction.
	TransactionByHash(ctx context.Context, hash string) (*TransactionRecord, error)
}
