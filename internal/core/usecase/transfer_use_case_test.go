package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesaflow/remit/internal/core/ledger"
	"github.com/pesaflow/remit/internal/core/logger"
	"github.com/pesaflow/remit/internal/core/models"
	"github.com/pesaflow/remit/internal/core/security"
	"github.com/pesaflow/remit/internal/core/usecase"
)

type transferFixture struct {
	wallets      *fakeWalletRepo
	transactions *fakeTransactionRepo
	network      *fakeNetwork
	enqueuer     *fakeEnqueuer
	crypt        *security.Encryption
	uc           usecase.TransferUsecase
	wallet       *models.Wallet
}

func newTransferFixture(t *testing.T) *transferFixture {
	t.Helper()
	log, cleanup := logger.NewLogger()
	t.Cleanup(cleanup)

	f := &transferFixture{
		wallets:      newFakeWalletRepo(),
		transactions: newFakeTransactionRepo(),
		network:      newFakeNetwork(),
		enqueuer:     &fakeEnqueuer{},
		crypt:        newTestEncryption(t),
	}

	encrypted, err := f.crypt.Encrypt("STESTSEED")
	require.NoError(t, err)

	f.wallet = &models.Wallet{
		ID:                 uuid.New(),
		AccountID:          uuid.New(),
		PublicKey:          "GSENDER",
		EncryptedSecretKey: encrypted,
		Status:             models.WalletStatusActive,
	}
	require.NoError(t, f.wallets.Create(context.Background(), f.wallet))

	reserve := decimal.RequireFromString("2")
	f.uc = usecase.NewTransferUsecase(f.wallets, f.transactions, f.network, f.crypt, f.enqueuer, reserve, log)
	return f
}

func (f *transferFixture) input(amount string) usecase.TransferInput {
	return usecase.TransferInput{
		SenderPublicKey:  "GSENDER",
		RecipientAddress: "GRECIPIENT",
		Amount:           decimal.RequireFromString(amount),
		AssetCode:        "XLM",
		Type:             models.TransactionTypeTransfer,
	}
}

func TestTransferSuccessPersistsPendingAndEnqueues(t *testing.T) {
	f := newTransferFixture(t)
	f.network.balance = decimal.RequireFromString("100")
	f.network.sendResult = &ledger.PaymentResult{Hash: "H1"}

	tx, err := f.uc.Transfer(context.Background(), f.input("30"))
	require.NoError(t, err)

	assert.Equal(t, models.TransactionStatusPending, tx.Status)
	require.NotNil(t, tx.TransactionHash)
	assert.Equal(t, "H1", *tx.TransactionHash)
	assert.Equal(t, f.wallet.AccountID, tx.AccountID)

	stored, err := f.transactions.GetByID(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusPending, stored.Status)

	require.Len(t, f.enqueuer.jobs, 1)
	assert.Equal(t, tx.ID, f.enqueuer.jobs[0].TransactionID)
	assert.Equal(t, 0, f.enqueuer.jobs[0].Attempt)

	// Without an explicit memo the reference rides along as one.
	require.Len(t, f.network.sent, 1)
	assert.Equal(t, tx.Reference, f.network.sent[0].Memo)
}

func TestTransferInsufficientFundsAfterReserve(t *testing.T) {
	f := newTransferFixture(t)
	// 10 on the ledger minus the 2 reserve leaves 8 spendable.
	f.network.balance = decimal.RequireFromString("10")

	_, err := f.uc.Transfer(context.Background(), f.input("9"))
	require.Error(t, err)
	assert.Equal(t, usecase.KindInsufficientFunds, usecase.FaultKind(err))
	assert.ErrorIs(t, err, usecase.ErrInsufficientFunds)
	assert.Contains(t, err.Error(), "available 8")

	assert.Empty(t, f.network.sent)
	assert.Empty(t, f.transactions.transactions)
}

func TestTransferSpendableBoundaryIsInclusive(t *testing.T) {
	f := newTransferFixture(t)
	f.network.balance = decimal.RequireFromString("10")
	f.network.sendResult = &ledger.PaymentResult{Hash: "H2"}

	_, err := f.uc.Transfer(context.Background(), f.input("8"))
	require.NoError(t, err)
}

func TestTransferUnknownSender(t *testing.T) {
	f := newTransferFixture(t)

	in := f.input("5")
	in.SenderPublicKey = "GSTRANGER"

	_, err := f.uc.Transfer(context.Background(), in)
	require.Error(t, err)
	assert.ErrorIs(t, err, usecase.ErrWalletNotFound)
}

func TestTransferRejectsNonNativeAsset(t *testing.T) {
	f := newTransferFixture(t)
	f.network.balance = decimal.RequireFromString("100")
	f.network.sendResult = &ledger.PaymentResult{Hash: "H9"}

	in := f.input("5")
	in.AssetCode = "USDC"

	_, err := f.uc.Transfer(context.Background(), in)
	require.Error(t, err)
	assert.Equal(t, usecase.KindValidation, usecase.FaultKind(err))
	assert.Contains(t, err.Error(), "USDC")

	// Nothing moved and nothing was recorded as having moved.
	assert.Empty(t, f.network.sent)
	assert.Empty(t, f.transactions.transactions)
}

func TestTransferRejectsNonPositiveAmount(t *testing.T) {
	f := newTransferFixture(t)

	in := f.input("5")
	in.Amount = decimal.Zero

	_, err := f.uc.Transfer(context.Background(), in)
	require.Error(t, err)
	assert.ErrorIs(t, err, usecase.ErrInvalidAmount)
}

func TestTransferLedgerRejectionLeavesNoRow(t *testing.T) {
	f := newTransferFixture(t)
	f.network.balance = decimal.RequireFromString("100")
	f.network.sendErr = &ledger.RejectionError{ResultCodes: "tx_failed,op_underfunded"}

	_, err := f.uc.Transfer(context.Background(), f.input("30"))
	require.Error(t, err)
	assert.Equal(t, usecase.KindLedgerRejected, usecase.FaultKind(err))
	assert.Contains(t, err.Error(), "op_underfunded")

	// A rejected submission never reaches the store.
	assert.Empty(t, f.transactions.transactions)
	assert.Empty(t, f.enqueuer.jobs)
}

func TestTransferTransportFailureLeavesNoRow(t *testing.T) {
	f := newTransferFixture(t)
	f.network.balance = decimal.RequireFromString("100")
	f.network.sendErr = &ledger.TransportError{Err: errors.New("connection reset")}

	_, err := f.uc.Transfer(context.Background(), f.input("30"))
	require.Error(t, err)
	assert.Equal(t, usecase.KindTransport, usecase.FaultKind(err))

	assert.Empty(t, f.transactions.transactions)
	assert.Empty(t, f.enqueuer.jobs)
}

func TestTransferSucceedsWhenEnqueueFails(t *testing.T) {
	f := newTransferFixture(t)
	f.network.balance = decimal.RequireFromString("100")
	f.network.sendResult = &ledger.PaymentResult{Hash: "H3"}
	f.enqueuer.err = errors.New("broker down")

	tx, err := f.uc.Transfer(context.Background(), f.input("30"))
	require.NoError(t, err)

	// The sweeper picks these up later; the transfer itself already settled.
	stored, err := f.transactions.GetByID(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusPending, stored.Status)
}

func TestTransferLinksRemittance(t *testing.T) {
	f := newTransferFixture(t)
	f.network.balance = decimal.RequireFromString("100")
	f.network.sendResult = &ledger.PaymentResult{Hash: "H4"}

	remittanceID := uuid.New()
	in := f.input("30")
	in.Type = models.TransactionTypeRemittance
	in.RemittanceID = &remittanceID

	tx, err := f.uc.Transfer(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, tx.RemittanceID)
	assert.Equal(t, remittanceID, *tx.RemittanceID)
}
