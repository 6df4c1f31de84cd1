package reconciler

import (
	"context"

	"github.com/pesaflow/remit/internal/core/logger"
	"github.com/pesaflow/remit/internal/core/models"
	"github.com/pesaflow/remit/internal/core/notify"
	"github.com/pesaflow/remit/internal/core/repository"
)

// Cascader propagates a transaction's terminal outcome onto the remittance it
// settles. Every write is conditional on the remittance still being pending,
// so a remittance never regresses and later sibling transactions cannot
// disturb an already-decided one.
type Cascader struct {
	remittances repository.RemittanceRepository
	notifier    notify.Notifier
	log         logger.Logger
}

func NewCascader(remittances repository.RemittanceRepository, notifier notify.Notifier, log logger.Logger) *Cascader {
	return &Cascader{remittances: remittances, notifier: notifier, log: log}
}

// TransactionCompleted moves the linked remittance to processing, signalling
// that funds settled and the payout can be executed.
func (c *Cascader) TransactionCompleted(ctx context.Context, tx *models.Transaction) {
	if tx.RemittanceID == nil {
		return
	}
	id := *tx.RemittanceID

	swapped, err := c.remittances.MarkProcessing(ctx, id)
	if err != nil {
		c.log.Error("failed to advance remittance to processing",
			logger.StringField("remittance_id", id.String()),
			logger.ErrorField("error", err))
		return
	}
	if !swapped {
		// Another settlement already decided this remittance.
		return
	}

	c.log.Info("remittance moved to processing",
		logger.StringField("remittance_id", id.String()),
		logger.StringField("transaction_id", tx.ID.String()))

	if err := c.notifier.RemittanceProcessing(ctx, id); err != nil {
		c.log.Error("failed to notify remittance processing",
			logger.StringField("remittance_id", id.String()),
			logger.ErrorField("error", err))
	}
}

// TransactionFailed marks the linked remittance failed with the settlement
// failure as the reason.
func (c *Cascader) TransactionFailed(ctx context.Context, tx *models.Transaction, reason string) {
	if tx.RemittanceID == nil {
		return
	}
	id := *tx.RemittanceID

	swapped, err := c.remittances.MarkFailed(ctx, id, reason)
	if err != nil {
		c.log.Error("failed to mark remittance failed",
			logger.StringField("remittance_id", id.String()),
			logger.ErrorField("error", err))
		return
	}
	if !swapped {
		return
	}

	c.log.Warn("remittance failed",
		logger.StringField("remittance_id", id.String()),
		logger.StringField("reason", reason))

	if err := c.notifier.RemittanceFailed(ctx, id, reason); err != nil {
		c.log.Error("failed to notify remittance failure",
			logger.StringField("remittance_id", id.String()),
			logger.ErrorField("error", err))
	}
}
