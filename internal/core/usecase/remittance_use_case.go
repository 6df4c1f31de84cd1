package usecase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pesaflow/remit/internal/core/logger"
	"github.com/pesaflow/remit/internal/core/models"
	"github.com/pesaflow/remit/internal/core/repository"
)

type RemittanceInput struct {
	AccountID         uuid.UUID
	Amount            decimal.Decimal
	Currency          string
	BankName          string
	BankAccountNumber string
	BankAccountName   string
}

type RemittanceUsecase interface {
	// CreateRemittance records a payout intent with the configured fee
	// applied; settlement is driven later by linked transactions.
	CreateRemittance(ctx context.Context, in RemittanceInput) (*models.Remittance, error)
	// CompleteRemittance is the operator acknowledgement that the payout
	// left the building: processing -> completed, exactly once.
	CompleteRemittance(ctx context.Context, id uuid.UUID) error
	GetRemittance(ctx context.Context, id uuid.UUID) (*models.Remittance, error)
}

type remittanceUsecase struct {
	repo       repository.RemittanceRepository
	feePercent decimal.Decimal
	log        logger.Logger
}

func NewRemittanceUsecase(repo repository.RemittanceRepository, feePercent decimal.Decimal, log logger.Logger) RemittanceUsecase {
	return &remittanceUsecase{repo: repo, feePercent: feePercent, log: log}
}

func (uc *remittanceUsecase) CreateRemittance(ctx context.Context, in RemittanceInput) (*models.Remittance, error) {
	if in.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, &Fault{Kind: KindValidation, Detail: "amount must be positive", Err: ErrInvalidAmount}
	}
	if in.Currency == "" {
		return nil, &Fault{Kind: KindValidation, Detail: "currency is required"}
	}
	if in.BankAccountNumber == "" {
		return nil, &Fault{Kind: KindValidation, Detail: "bank account number is required"}
	}

	fee := in.Amount.Mul(uc.feePercent).Div(decimal.NewFromInt(100)).Round(8)

	remittance := &models.Remittance{
		ID:                uuid.New(),
		AccountID:         in.AccountID,
		Amount:            in.Amount,
		Currency:          in.Currency,
		FeeAmount:         fee,
		TotalAmount:       in.Amount.Add(fee),
		BankName:          in.BankName,
		BankAccountNumber: in.BankAccountNumber,
		BankAccountName:   in.BankAccountName,
		Status:            models.RemittanceStatusPending,
	}

	if err := uc.repo.Create(ctx, remittance); err != nil {
		return nil, fmt.Errorf("persist remittance: %w", err)
	}

	uc.log.Info("remittance created",
		logger.StringField("remittance_id", remittance.ID.String()),
		logger.StringField("total", remittance.TotalAmount.String()),
		logger.StringField("currency", remittance.Currency))

	return remittance, nil
}

func (uc *remittanceUsecase) CompleteRemittance(ctx context.Context, id uuid.UUID) error {
	swapped, err := uc.repo.MarkCompleted(ctx, id)
	if err != nil {
		return fmt.Errorf("complete remittance: %w", err)
	}
	if !swapped {
		if _, err := uc.repo.GetByID(ctx, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return &Fault{Kind: KindValidation, Detail: "unknown remittance", Err: ErrRemittanceNotFound}
			}
			return fmt.Errorf("lookup remittance: %w", err)
		}
		return &Fault{Kind: KindValidation, Detail: "remittance is not in processing state", Err: ErrRemittanceNotCompletable}
	}

	uc.log.Info("remittance completed", logger.StringField("remittance_id", id.String()))
	return nil
}

func (uc *remittanceUsecase) GetRemittance(ctx context.Context, id uuid.UUID) (*models.Remittance, error) {
	remittance, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &Fault{Kind: KindValidation, Detail: "unknown remittance", Err: ErrRemittanceNotFound}
		}
		return nil, err
	}
	return remittance, nil
}
