package usecase_test

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pesaflow/remit/internal/core/ledger"
	"github.com/pesaflow/remit/internal/core/models"
	"github.com/pesaflow/remit/internal/core/queue"
)

type fakeWalletRepo struct {
	wallets   map[uuid.UUID]*models.Wallet
	activated []uuid.UUID
	cached    map[uuid.UUID]decimal.Decimal
}

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{
		wallets: make(map[uuid.UUID]*models.Wallet),
		cached:  make(map[uuid.UUID]decimal.Decimal),
	}
}

func (r *fakeWalletRepo) Create(_ context.Context, wallet *models.Wallet) error {
	r.wallets[wallet.ID] = wallet
	return nil
}

func (r *fakeWalletRepo) GetByAccountID(_ context.Context, accountID uuid.UUID) (*models.Wallet, error) {
	for _, w := range r.wallets {
		if w.AccountID == accountID {
			return w, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakeWalletRepo) GetByPublicKey(_ context.Context, publicKey string) (*models.Wallet, error) {
	for _, w := range r.wallets {
		if w.PublicKey == publicKey {
			return w, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakeWalletRepo) Activate(_ context.Context, id uuid.UUID) error {
	r.activated = append(r.activated, id)
	if w, ok := r.wallets[id]; ok && w.Status == models.WalletStatusPending {
		w.Status = models.WalletStatusActive
	}
	return nil
}

func (r *fakeWalletRepo) UpdateCachedBalance(_ context.Context, id uuid.UUID, balance decimal.Decimal) error {
	r.cached[id] = balance
	return nil
}

type fakeTransactionRepo struct {
	transactions map[uuid.UUID]*models.Transaction
}

func newFakeTransactionRepo() *fakeTransactionRepo {
	return &fakeTransactionRepo{transactions: make(map[uuid.UUID]*models.Transaction)}
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
	return tx, nil
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

func newFakeRemittanceRepo() *fakeRemittanceRepo {
	return &fakeRemittanceRepo{remittances: make(map[uuid.UUID]*models.Remittance)}
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

type fakeScheduleRepo struct {
	schedules map[uuid.UUID]*models.ScheduledTransaction
}

func newFakeScheduleRepo() *fakeScheduleRepo {
	return &fakeScheduleRepo{schedules: make(map[uuid.UUID]*models.ScheduledTransaction)}
}

func (r *fakeScheduleRepo) Create(_ context.Context, schedule *models.ScheduledTransaction) error {
	r.schedules[schedule.ID] = schedule
	return nil
}

func (r *fakeScheduleRepo) Due(_ context.Context, now time.Time) ([]models.ScheduledTransaction, error) {
	var due []models.ScheduledTransaction
	for _, s := range r.schedules {
		if s.IsActive && !s.NextExecution.After(now) {
			due = append(due, *s)
		}
	}
	return due, nil
}

func (r *fakeScheduleRepo) Advance(_ context.Context, id uuid.UUID, next time.Time) error {
	if s, ok := r.schedules[id]; ok {
		s.NextExecution = next
	}
	return nil
}

func (r *fakeScheduleRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	if s, ok := r.schedules[id]; ok {
		s.IsActive = false
	}
	return nil
}

// fakeNetwork scripts ledger behavior per test.
type fakeNetwork struct {
	balance    decimal.Decimal
	balanceErr error
	sendResult *ledger.PaymentResult
	sendErr    error
	sent       []ledger.PaymentRequest
	records    map[string]*ledger.TransactionRecord
	recordErr  error
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{records: make(map[string]*ledger.TransactionRecord)}
}

func (n *fakeNetwork) GenerateKeypair() (string, string, error) {
	id := uuid.New().String()
	return "GTEST" + id[:8], "STEST" + id[:8], nil
}

func (n *fakeNetwork) NativeBalance(_ context.Context, _ string) (decimal.Decimal, error) {
	if n.balanceErr != nil {
		return decimal.Zero, n.balanceErr
	}
	return n.balance, nil
}

func (n *fakeNetwork) SendPayment(_ context.Context, req ledger.PaymentRequest) (*ledger.PaymentResult, error) {
	n.sent = append(n.sent, req)
	if n.sendErr != nil {
		return nil, n.sendErr
	}
	return n.sendResult, nil
}

func (n *fakeNetwork) TransactionByHash(_ context.Context, hash string) (*ledger.TransactionRecord, error) {
	if n.recordErr != nil {
		return nil, n.recordErr
	}
	record, ok := n.records[hash]
	if !ok {
		return nil, ledger.ErrTransactionNotFound
	}
	return record, nil
}

type fakeEnqueuer struct {
	jobs []queue.ReconcileJob
	err  error
}

func (e *fakeEnqueuer) EnqueueReconcile(_ context.Context, job queue.ReconcileJob) error {
	if e.err != nil {
		return e.err
	}
	e.jobs = append(e.jobs, job)
	return nil
}
