package usecase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pesaflow/remit/internal/core/ledger"
	"github.com/pesaflow/remit/internal/core/logger"
	"github.com/pesaflow/remit/internal/core/models"
	"github.com/pesaflow/remit/internal/core/queue"
	"github.com/pesaflow/remit/internal/core/repository"
	"github.com/pesaflow/remit/internal/core/security"
)

// TransferInput describes one logical transfer. Retries of the same logical
// transfer must come in as fresh calls: every call performs exactly one
// submission under a new reference.
type TransferInput struct {
	SenderPublicKey  string
	RecipientAddress string
	Amount           decimal.Decimal
	AssetCode        string
	Memo             string
	Type             models.TransactionType
	RemittanceID     *uuid.UUID
}

type TransferUsecase interface {
	Transfer(ctx context.Context, in TransferInput) (*models.Transaction, error)
}

type transferUsecase struct {
	wallets      repository.WalletRepository
	transactions repository.TransactionRepository
	network      ledger.Network
	crypt        *security.Encryption
	enqueuer     queue.Enqueuer
	reserve      decimal.Decimal
	log          logger.Logger
}

func NewTransferUsecase(
	wallets repository.WalletRepository,
	transactions repository.TransactionRepository,
	network ledger.Network,
	crypt *security.Encryption,
	enqueuer queue.Enqueuer,
	reserve decimal.Decimal,
	log logger.Logger,
) TransferUsecase {
	return &transferUsecase{
		wallets:      wallets,
		transactions: transactions,
		network:      network,
		crypt:        crypt,
		enqueuer:     enqueuer,
		reserve:      reserve,
		log:          log,
	}
}

func (uc *transferUsecase) Transfer(ctx context.Context, in TransferInput) (*models.Transaction, error) {
	if err := uc.validate(in); err != nil {
		return nil, err
	}

	wallet, err := uc.wallets.GetByPublicKey(ctx, in.SenderPublicKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &Fault{Kind: KindValidation, Detail: "unknown sender wallet", Err: ErrWalletNotFound}
		}
		return nil, fmt.Errorf("lookup sender wallet: %w", err)
	}

	if err := uc.checkAvailable(ctx, wallet.PublicKey, in.Amount); err != nil {
		return nil, err
	}

	seed, err := uc.crypt.Decrypt(wallet.EncryptedSecretKey)
	if err != nil {
		return nil, &Fault{Kind: KindIntegrity, Detail: "cannot decrypt wallet secret", Err: err}
	}

	reference := models.NewReference()
	memo := in.Memo
	if memo == "" {
		memo = reference
	}

	result, err := uc.network.SendPayment(ctx, ledger.PaymentRequest{
		SourceSeed:  seed,
		Destination: in.RecipientAddress,
		Amount:      in.Amount,
		Memo:        memo,
	})
	if err != nil {
		return nil, uc.classifySubmitFailure(err)
	}

	tx := &models.Transaction{
		ID:               uuid.New(),
		AccountID:        wallet.AccountID,
		SenderWalletID:   &wallet.ID,
		RecipientAddress: in.RecipientAddress,
		Amount:           in.Amount,
		AssetCode:        in.AssetCode,
		TransactionHash:  &result.Hash,
		Type:             in.Type,
		Status:           models.TransactionStatusPending,
		Reference:        reference,
		RemittanceID:     in.RemittanceID,
	}

	if err := uc.transactions.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("persist transaction: %w", err)
	}

	uc.log.Info("transfer submitted",
		logger.StringField("reference", reference),
		logger.StringField("hash", result.Hash),
		logger.StringField("amount", in.Amount.String()),
		logger.StringField("recipient", in.RecipientAddress))

	// The sweeper finalizes any transaction whose job is lost here, so a
	// failed enqueue must not fail the transfer.
	if err := uc.enqueuer.EnqueueReconcile(ctx, queue.ReconcileJob{TransactionID: tx.ID}); err != nil {
		uc.log.Error("transaction created but reconcile job not enqueued",
			logger.StringField("transaction_id", tx.ID.String()),
			logger.ErrorField("error", err))
	}

	return tx, nil
}

func (uc *transferUsecase) validate(in TransferInput) error {
	if in.Amount.LessThanOrEqual(decimal.Zero) {
		return &Fault{Kind: KindValidation, Detail: "amount must be positive", Err: ErrInvalidAmount}
	}
	if in.RecipientAddress == "" {
		return &Fault{Kind: KindValidation, Detail: "recipient address is required"}
	}
	if in.SenderPublicKey == "" {
		return &Fault{Kind: KindValidation, Detail: "sender public key is required"}
	}
	// Only the native asset moves on the wire; the persisted row must never
	// claim otherwise.
	if in.AssetCode != "" && in.AssetCode != "XLM" {
		return &Fault{Kind: KindValidation, Detail: fmt.Sprintf("unsupported asset %q, only native transfers are supported", in.AssetCode)}
	}
	return nil
}

// checkAvailable enforces the network's minimum reserve: the spendable
// balance is the live balance minus the reserve the account must keep.
func (uc *transferUsecase) checkAvailable(ctx context.Context, publicKey string, amount decimal.Decimal) error {
	balance, err := uc.network.NativeBalance(ctx, publicKey)
	if err != nil {
		var transport *ledger.TransportError
		if errors.As(err, &transport) {
			return &Fault{Kind: KindTransport, Detail: transport.Error(), Err: err}
		}
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return &Fault{Kind: KindValidation, Detail: "sender account not funded on network", Err: ErrWalletNotFound}
		}
		return fmt.Errorf("query balance: %w", err)
	}

	available := balance.Sub(uc.reserve)
	if amount.GreaterThan(available) {
		uc.log.Warn("insufficient funds",
			logger.StringField("balance", balance.String()),
			logger.StringField("available", available.String()),
			logger.StringField("requested", amount.String()))
		return &Fault{
			Kind:   KindInsufficientFunds,
			Detail: fmt.Sprintf("available %s, requested %s", available.String(), amount.String()),
			Err:    ErrInsufficientFunds,
		}
	}

	return nil
}

func (uc *transferUsecase) classifySubmitFailure(err error) error {
	var rejection *ledger.RejectionError
	if errors.As(err, &rejection) {
		return &Fault{Kind: KindLedgerRejected, Detail: rejection.Error(), Err: err}
	}
	var transport *ledger.TransportError
	if errors.As(err, &transport) {
		return &Fault{Kind: KindTransport, Detail: transport.Error(), Err: err}
	}
	return fmt.Errorf("submit payment: %w", err)
}
