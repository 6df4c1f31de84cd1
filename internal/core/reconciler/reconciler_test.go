package reconciler_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesaflow/remit/internal/core/ledger"
	"github.com/pesaflow/remit/internal/core/logger"
	"github.com/pesaflow/remit/internal/core/models"
	"github.com/pesaflow/remit/internal/core/queue"
	"github.com/pesaflow/remit/internal/core/reconciler"
)

type fakeTransactionRepo struct {
	transactions map[uuid.UUID]*models.Transaction
}

func (r *fakeTransactionRepo) Create(_ context.Context, tx *models.Transaction) error {
	r.transactions[tx.ID] = tx
	return nil
}

func (r *fakeTransactionRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Transaction, error) {
	tx, ok := r.transactions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *tx
	return &copied, nil
}

func (r *fakeTransactionRepo) MarkCompleted(_ context.Context, id uuid.UUID) (bool, error) {
	tx, ok := r.transactions[id]
	if !ok || tx.Status != models.TransactionStatusPending {
		return false, nil
	}
	tx.Status = models.TransactionStatusCompleted
	return true, nil
}

func (r *fakeTransactionRepo) MarkFailed(_ context.Context, id uuid.UUID, reason string) (bool, error) {
	tx, ok := r.transactions[id]
	if !ok || tx.Status != models.TransactionStatusPending {
		return false, nil
	}
	tx.Status = models.TransactionStatusFailed
	tx.FailureReason = &reason
	return true, nil
}

func (r *fakeTransactionRepo) StalePending(_ context.Context, cutoff time.Time) ([]models.Transaction, error) {
	var stale []models.Transaction
	for _, tx := range r.transactions {
		if tx.Status == models.TransactionStatusPending && !tx.CreatedAt.After(cutoff) {
			stale = append(stale, *tx)
		}
	}
	return stale, nil
}

type fakeRemittanceRepo struct {
	remittances map[uuid.UUID]*models.Remittance
}

func (r *fakeRemittanceRepo) Create(_ context.Context, remittance *models.Remittance) error {
	r.remittances[remittance.ID] = remittance
	return nil
}

func (r *fakeRemittanceRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Remittance, error) {
	remittance, ok := r.remittances[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return remittance, nil
}

func (r *fakeRemittanceRepo) MarkProcessing(_ context.Context, id uuid.UUID) (bool, error) {
	remittance, ok := r.remittances[id]
	if !ok || remittance.Status != models.RemittanceStatusPending {
		return false, nil
	}
	remittance.Status = models.RemittanceStatusProcessing
	return true, nil
}

func (r *fakeRemittanceRepo) MarkFailed(_ context.Context, id uuid.UUID, reason string) (bool, error) {
	remittance, ok := r.remittances[id]
	if !ok || remittance.Status != models.RemittanceStatusPending {
		return false, nil
	}
	remittance.Status = models.RemittanceStatusFailed
	remittance.FailureReason = &reason
	return true, nil
}

func (r *fakeRemittanceRepo) MarkCompleted(_ context.Context, id uuid.UUID) (bool, error) {
	remittance, ok := r.remittances[id]
	if !ok || remittance.Status != models.RemittanceStatusProcessing {
		return false, nil
	}
	remittance.Status = models.RemittanceStatusCompleted
	return true, nil
}

type fakeNetwork struct {
	records map[string]*ledger.TransactionRecord
	err     error
}

func (n *fakeNetwork) GenerateKeypair() (string, string, error) { return "", "", nil }

func (n *fakeNetwork) NativeBalance(context.Context, string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (n *fakeNetwork) SendPayment(context.Context, ledger.PaymentRequest) (*ledger.PaymentResult, error) {
	return nil, errors.New("not used")
}

func (n *fakeNetwork) TransactionByHash(_ context.Context, hash string) (*ledger.TransactionRecord, error) {
	if n.err != nil {
		return nil, n.err
	}
	record, ok := n.records[hash]
	if !ok {
		return nil, ledger.ErrTransactionNotFound
	}
	return record, nil
}

type fakeEnqueuer struct {
	jobs []queue.ReconcileJob
}

func (e *fakeEnqueuer) EnqueueReconcile(_ context.Context, job queue.ReconcileJob) error {
	e.jobs = append(e.jobs, job)
	return nil
}

type fakeNotifier struct {
	processing []uuid.UUID
	failed     []uuid.UUID
}

func (n *fakeNotifier) RemittanceProcessing(_ context.Context, id uuid.UUID) error {
	n.processing = append(n.processing, id)
	return nil
}

func (n *fakeNotifier) RemittanceFailed(_ context.Context, id uuid.UUID, _ string) error {
	n.failed = append(n.failed, id)
	return nil
}

type fixture struct {
	transactions *fakeTransactionRepo
	remittances  *fakeRemittanceRepo
	network      *fakeNetwork
	enqueuer     *fakeEnqueuer
	notifier     *fakeNotifier
	rec          *reconciler.Reconciler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log, cleanup := logger.NewLogger()
	t.Cleanup(cleanup)

	f := &fixture{
		transactions: &fakeTransactionRepo{transactions: make(map[uuid.UUID]*models.Transaction)},
		remittances:  &fakeRemittanceRepo{remittances: make(map[uuid.UUID]*models.Remittance)},
		network:      &fakeNetwork{records: make(map[string]*ledger.TransactionRecord)},
		enqueuer:     &fakeEnqueuer{},
		notifier:     &fakeNotifier{},
	}
	cascade := reconciler.NewCascader(f.remittances, f.notifier, log)
	f.rec = reconciler.New(f.transactions, f.network, f.enqueuer, cascade, 3, log)
	return f
}

func (f *fixture) pendingTransaction(hash *string, remittanceID *uuid.UUID) *models.Transaction {
	tx := &models.Transaction{
		ID:              uuid.New(),
		AccountID:       uuid.New(),
		Amount:          decimal.New(1, 0),
		Status:          models.TransactionStatusPending,
		Type:            models.TransactionTypeTransfer,
		Reference:       models.NewReference(),
		TransactionHash: hash,
		RemittanceID:    remittanceID,
	}
	f.transactions.transactions[tx.ID] = tx
	return tx
}

func (f *fixture) pendingRemittance() *models.Remittance {
	remittance := &models.Remittance{
		ID:     uuid.New(),
		Status: models.RemittanceStatusPending,
	}
	f.remittances.remittances[remittance.ID] = remittance
	return remittance
}

func strPtr(s string) *string { return &s }

func TestProcessTerminalTransactionIsNoOp(t *testing.T) {
	f := newFixture(t)
	tx := f.pendingTransaction(strPtr("H1"), nil)
	tx.Status = models.TransactionStatusCompleted

	err := f.rec.Process(context.Background(), queue.ReconcileJob{TransactionID: tx.ID})
	require.NoError(t, err)
	assert.Empty(t, f.enqueuer.jobs)
	assert.Equal(t, models.TransactionStatusCompleted, tx.Status)
}

func TestProcessUnknownTransactionIsNoOp(t *testing.T) {
	f := newFixture(t)
	err := f.rec.Process(context.Background(), queue.ReconcileJob{TransactionID: uuid.New()})
	require.NoError(t, err)
}

func TestProcessMissingHashFailsTransaction(t *testing.T) {
	f := newFixture(t)
	remittance := f.pendingRemittance()
	tx := f.pendingTransaction(nil, &remittance.ID)

	err := f.rec.Process(context.Background(), queue.ReconcileJob{TransactionID: tx.ID})
	require.NoError(t, err)

	assert.Equal(t, models.TransactionStatusFailed, tx.Status)
	require.NotNil(t, tx.FailureReason)
	assert.Equal(t, "no hash available", *tx.FailureReason)

	assert.Equal(t, models.RemittanceStatusFailed, remittance.Status)
	assert.Equal(t, []uuid.UUID{remittance.ID}, f.notifier.failed)
}

func TestProcessSucceededLedgerRecordCompletes(t *testing.T) {
	f := newFixture(t)
	remittance := f.pendingRemittance()
	tx := f.pendingTransaction(strPtr("H1"), &remittance.ID)
	f.network.records["H1"] = &ledger.TransactionRecord{Hash: "H1", Status: ledger.TransactionSucceeded}

	err := f.rec.Process(context.Background(), queue.ReconcileJob{TransactionID: tx.ID})
	require.NoError(t, err)

	assert.Equal(t, models.TransactionStatusCompleted, tx.Status)
	assert.Equal(t, models.RemittanceStatusProcessing, remittance.Status)
	assert.Equal(t, []uuid.UUID{remittance.ID}, f.notifier.processing)
}

func TestProcessFailedLedgerRecordFails(t *testing.T) {
	f := newFixture(t)
	tx := f.pendingTransaction(strPtr("H1"), nil)
	f.network.records["H1"] = &ledger.TransactionRecord{
		Hash:       "H1",
		Status:     ledger.TransactionFailed,
		ResultCode: "tx_bad_seq",
	}

	err := f.rec.Process(context.Background(), queue.ReconcileJob{TransactionID: tx.ID})
	require.NoError(t, err)

	assert.Equal(t, models.TransactionStatusFailed, tx.Status)
	require.NotNil(t, tx.FailureReason)
	assert.Contains(t, *tx.FailureReason, "tx_bad_seq")
}

func TestProcessTransportFailureRetriesWithinBudget(t *testing.T) {
	f := newFixture(t)
	tx := f.pendingTransaction(strPtr("H1"), nil)
	f.network.err = &ledger.TransportError{Err: errors.New("gateway timeout")}

	// Attempts 0 and 1 re-enqueue with a bumped counter.
	require.NoError(t, f.rec.Process(context.Background(), queue.ReconcileJob{TransactionID: tx.ID, Attempt: 0}))
	require.Len(t, f.enqueuer.jobs, 1)
	assert.Equal(t, 1, f.enqueuer.jobs[0].Attempt)
	assert.Equal(t, models.TransactionStatusPending, tx.Status)

	require.NoError(t, f.rec.Process(context.Background(), queue.ReconcileJob{TransactionID: tx.ID, Attempt: 1}))
	require.Len(t, f.enqueuer.jobs, 2)
	assert.Equal(t, 2, f.enqueuer.jobs[1].Attempt)

	// The third attempt exhausts the budget.
	require.NoError(t, f.rec.Process(context.Background(), queue.ReconcileJob{TransactionID: tx.ID, Attempt: 2}))
	assert.Len(t, f.enqueuer.jobs, 2)
	assert.Equal(t, models.TransactionStatusFailed, tx.Status)
	require.NotNil(t, tx.FailureReason)
	assert.Contains(t, *tx.FailureReason, "reconciliation attempts exhausted")
	assert.Contains(t, *tx.FailureReason, "gateway timeout")
}

func TestProcessDecidedRemittanceIsNeverMoved(t *testing.T) {
	f := newFixture(t)
	remittance := f.pendingRemittance()
	remittance.Status = models.RemittanceStatusFailed

	tx := f.pendingTransaction(strPtr("H2"), &remittance.ID)
	f.network.records["H2"] = &ledger.TransactionRecord{Hash: "H2", Status: ledger.TransactionSucceeded}

	err := f.rec.Process(context.Background(), queue.ReconcileJob{TransactionID: tx.ID})
	require.NoError(t, err)

	// The transaction settles but the remittance stays failed, silently.
	assert.Equal(t, models.TransactionStatusCompleted, tx.Status)
	assert.Equal(t, models.RemittanceStatusFailed, remittance.Status)
	assert.Empty(t, f.notifier.processing)
	assert.Empty(t, f.notifier.failed)
}
