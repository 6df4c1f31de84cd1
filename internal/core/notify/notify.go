package notify

import (
	"context"

	"github.com/google/uuid"
)

// Notifier alerts operators when a remittance needs attention: it entered
// processing (a payout must be executed) or it failed.
type Notifier interface {
	RemittanceProcessing(ctx context.Context, remittanceID uuid.UUID) error
	RemittanceFailed(ctx context.Context, remittanceID uuid.UUID, reason string) error
}

// Noop discards notifications; used in tests and one-off tooling.
type Noop struct{}

func (Noop) RemittanceProcessing(context.Context, uuid.UUID) error { return nil }

func (Noop) RemittanceFailed(context.Context, uuid.UUID, string) error { return nil }
