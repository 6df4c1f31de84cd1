package usecase

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount           = errors.New("amount must be positive")
	ErrWalletNotFound          = errors.New("wallet not found")
	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrRemittanceNotFound      = errors.New("remittance not found")
	ErrRemittanceNotCompletable = errors.New("remittance is not in processing state")
	ErrInvalidScheduleType     = errors.New("invalid schedule type")
)

// Kind is the fixed error taxonomy surfaced to callers so they can branch
// without parsing provider text.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindTransport         Kind = "transport"
	KindLedgerRejected    Kind = "ledger_rejected"
	KindIntegrity         Kind = "integrity"
)

// Fault tags an error with its kind and an opaque provider detail string.
type Fault struct {
	Kind   Kind
	Detail string
	Err    error
}

func (f *Fault) Error() string {
	if f.Detail != "" {
		return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
	}
	if f.Err != nil {
		return fmt.Sprintf("%s: %v", f.Kind, f.Err)
	}
	return string(f.Kind)
}

func (f *Fault) Unwrap() error { return f.Err }

// FaultKind extracts the kind from an error chain, or "" if untagged.
func FaultKind(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}
