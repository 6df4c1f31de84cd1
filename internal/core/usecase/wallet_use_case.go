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
	"github.com/pesaflow/remit/internal/core/repository"
	"github.com/pesaflow/remit/internal/core/security"
)

type WalletUsecase interface {
	// CreateWallet provisions a keypair-backed wallet for the account. A
	// second call for the same account returns the existing wallet.
	CreateWallet(ctx context.Context, accountID uuid.UUID) (*models.Wallet, error)
	// GetBalance returns the authoritative live balance from the settlement
	// network; the cached balance column is only refreshed as a side effect.
	GetBalance(ctx context.Context, publicKey string) (decimal.Decimal, error)
}

type walletUsecase struct {
	repo    repository.WalletRepository
	network ledger.Network
	crypt   *security.Encryption
	log     logger.Logger
}

func NewWalletUsecase(repo repository.WalletRepository, network ledger.Network, crypt *security.Encryption, log logger.Logger) WalletUsecase {
	return &walletUsecase{repo: repo, network: network, crypt: crypt, log: log}
}

func (uc *walletUsecase) CreateWallet(ctx context.Context, accountID uuid.UUID) (*models.Wallet, error) {
	existing, err := uc.repo.GetByAccountID(ctx, accountID)
	if err == nil {
		uc.log.Info("wallet already exists for account",
			logger.StringField("account_id", accountID.String()),
			logger.StringField("public_key", existing.PublicKey))
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lookup wallet: %w", err)
	}

	address, seed, err := uc.network.GenerateKeypair()
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}

	encryptedSeed, err := uc.crypt.Encrypt(seed)
	if err != nil {
		return nil, fmt.Errorf("encrypt secret key: %w", err)
	}

	wallet := &models.Wallet{
		ID:                 uuid.New(),
		AccountID:          accountID,
		PublicKey:          address,
		EncryptedSecretKey: encryptedSeed,
		Balance:            decimal.Zero,
		Status:             models.WalletStatusPending,
	}

	if err := uc.repo.Create(ctx, wallet); err != nil {
		return nil, fmt.Errorf("persist wallet: %w", err)
	}

	uc.log.Info("wallet created",
		logger.StringField("account_id", accountID.String()),
		logger.StringField("public_key", address))

	return wallet, nil
}

func (uc *walletUsecase) GetBalance(ctx context.Context, publicKey string) (decimal.Decimal, error) {
	wallet, err := uc.repo.GetByPublicKey(ctx, publicKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, &Fault{Kind: KindValidation, Detail: "unknown wallet", Err: ErrWalletNotFound}
		}
		return decimal.Zero, fmt.Errorf("lookup wallet: %w", err)
	}

	balance, err := uc.network.NativeBalance(ctx, publicKey)
	if err != nil {
		var transport *ledger.TransportError
		if errors.As(err, &transport) {
			return decimal.Zero, &Fault{Kind: KindTransport, Detail: transport.Error(), Err: err}
		}
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return decimal.Zero, &Fault{Kind: KindValidation, Detail: "account not funded on network", Err: err}
		}
		return decimal.Zero, fmt.Errorf("query balance: %w", err)
	}

	// Cache refresh and activation are best effort; the live value is
	// already in hand.
	if err := uc.repo.UpdateCachedBalance(ctx, wallet.ID, balance); err != nil {
		uc.log.Warn("failed to refresh cached balance",
			logger.StringField("wallet_id", wallet.ID.String()),
			logger.ErrorField("error", err))
	}
	if wallet.Status == models.WalletStatusPending {
		if err := uc.repo.Activate(ctx, wallet.ID); err != nil {
			uc.log.Warn("failed to activate wallet",
				logger.StringField("wallet_id", wallet.ID.String()),
				logger.ErrorField("error", err))
		}
	}

	return balance, nil
}
