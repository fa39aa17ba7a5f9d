package integration

import (
	"context"
	"fmt"
	"sync"

	"deposit-ledger/internal/core/domain"
	"deposit-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Deposit Repo ---

type inMemoryDepositRepo struct {
	mu       sync.RWMutex
	deposits map[uuid.UUID]*domain.Deposit
}

func newInMemoryDepositRepo() *inMemoryDepositRepo {
	return &inMemoryDepositRepo{deposits: make(map[uuid.UUID]*domain.Deposit)}
}

func (r *inMemoryDepositRepo) put(d *domain.Deposit) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.deposits[d.ID] = &cp
}

func (r *inMemoryDepositRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Deposit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.deposits[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

// UpdateStatusCAS mirrors the SQL conditional update: the write only
// lands when the stored row still carries the expected version.
func (r *inMemoryDepositRepo) UpdateStatusCAS(ctx context.Context, tx pgx.Tx, params ports.UpdateDepositStatusParams) (*domain.Deposit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.deposits[params.ID]
	if !ok || d.Version != params.ExpectedVersion {
		return nil, nil
	}
	d.Status = params.NewStatus
	d.Version++
	key := params.IdempotencyKey
	d.IdempotencyKey = &key
	if params.ApprovedBy != nil {
		d.ApprovedBy = params.ApprovedBy
		d.ApprovedAt = params.ApprovedAt
	}
	if params.ReversalReason != nil {
		d.ReversalReason = params.ReversalReason
	}
	cp := *d
	return &cp, nil
}

func (r *inMemoryDepositRepo) SumAmountByStatus(ctx context.Context, walletID uuid.UUID, statuses []domain.DepositStatus) (float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	want := make(map[domain.DepositStatus]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	var sum float64
	for _, d := range r.deposits {
		if d.WalletID == walletID && want[d.Status] {
			sum += d.Amount
		}
	}
	return sum, nil
}

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*domain.Wallet
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (r *inMemoryWalletRepo) put(w *domain.Wallet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *w
	r.wallets[w.ID] = &cp
}

func (r *inMemoryWalletRepo) balance(id uuid.UUID) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if w, ok := r.wallets[id]; ok {
		return w.Balance
	}
	return 0
}

func (r *inMemoryWalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *inMemoryWalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryWalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[walletID]
	if !ok {
		return fmt.Errorf("wallet not found: %s", walletID)
	}
	w.Balance = balance
	return nil
}

// --- In-Memory Wallet Transaction Repo ---

type inMemoryWalletTxRepo struct {
	mu      sync.RWMutex
	entries []domain.WalletTransaction
}

func newInMemoryWalletTxRepo() *inMemoryWalletTxRepo {
	return &inMemoryWalletTxRepo{}
}

func (r *inMemoryWalletTxRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.WalletTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *t)
	return nil
}

func (r *inMemoryWalletTxRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.WalletTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.WalletTransaction
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if r.entries[i].WalletID == walletID {
			out = append(out, r.entries[i])
		}
	}
	return out, nil
}

// --- In-Memory Status History Repo ---

type inMemoryStatusHistoryRepo struct {
	mu      sync.RWMutex
	records []domain.StatusHistoryRecord
}

func newInMemoryStatusHistoryRepo() *inMemoryStatusHistoryRepo {
	return &inMemoryStatusHistoryRepo{}
}

func (r *inMemoryStatusHistoryRepo) Create(ctx context.Context, rec *domain.StatusHistoryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *rec)
	return nil
}

func (r *inMemoryStatusHistoryRepo) ListByDeposit(ctx context.Context, depositID uuid.UUID, limit int) ([]domain.StatusHistoryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.StatusHistoryRecord
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		if r.records[i].DepositID == depositID {
			out = append(out, r.records[i])
		}
	}
	return out, nil
}

// --- In-Memory Audit Log Repo ---

type inMemoryAuditLogRepo struct {
	mu      sync.RWMutex
	byKey   map[string]*domain.AuditLogEntry
	entries []domain.AuditLogEntry
}

func newInMemoryAuditLogRepo() *inMemoryAuditLogRepo {
	return &inMemoryAuditLogRepo{byKey: make(map[string]*domain.AuditLogEntry)}
}

// Create enforces the idempotency key uniqueness the real table carries.
func (r *inMemoryAuditLogRepo) Create(ctx context.Context, entry *domain.AuditLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byKey[entry.IdempotencyKey]; exists {
		return fmt.Errorf("duplicate idempotency key: %s", entry.IdempotencyKey)
	}
	cp := *entry
	r.byKey[entry.IdempotencyKey] = &cp
	r.entries = append(r.entries, cp)
	return nil
}

func (r *inMemoryAuditLogRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.AuditLogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.byKey[key]
	if !ok {
		return nil, nil
	}
	cp := *entry
	return &cp, nil
}

func (r *inMemoryAuditLogRepo) ListByDeposit(ctx context.Context, depositID uuid.UUID, limit int) ([]domain.AuditLogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.AuditLogEntry
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if r.entries[i].DepositID == depositID {
			out = append(out, r.entries[i])
		}
	}
	return out, nil
}

// --- In-Memory Reversal Repo ---

type inMemoryReversalRepo struct {
	mu      sync.RWMutex
	records []domain.ReversalRecord
}

func newInMemoryReversalRepo() *inMemoryReversalRepo {
	return &inMemoryReversalRepo{}
}

func (r *inMemoryReversalRepo) Create(ctx context.Context, rec *domain.ReversalRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *rec)
	return nil
}

// --- In-Memory Reconciliation Repo ---

type inMemoryReconciliationRepo struct {
	mu      sync.RWMutex
	entries []domain.ReconciliationEntry
}

func newInMemoryReconciliationRepo() *inMemoryReconciliationRepo {
	return &inMemoryReconciliationRepo{}
}

func (r *inMemoryReconciliationRepo) Create(ctx context.Context, entry *domain.ReconciliationEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

// --- In-Memory Rate Source ---

type inMemoryRateSource struct {
	mu    sync.RWMutex
	rates map[string]*domain.ExchangeRate
}

func newInMemoryRateSource() *inMemoryRateSource {
	return &inMemoryRateSource{rates: make(map[string]*domain.ExchangeRate)}
}

func (r *inMemoryRateSource) put(rate *domain.ExchangeRate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rates[rate.FromCurrency+":"+rate.ToCurrency] = rate
}

func (r *inMemoryRateSource) GetLatestRate(ctx context.Context, fromCurrency, toCurrency string) (*domain.ExchangeRate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rate, ok := r.rates[fromCurrency+":"+toCurrency]
	if !ok {
		return nil, nil
	}
	cp := *rate
	return &cp, nil
}

// --- In-Memory Transactor (no-op tx) ---

type inMemoryTransactor struct{}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }
