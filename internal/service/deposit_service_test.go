package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"deposit-ledger/internal/core/domain"
	"deposit-ledger/internal/core/ports"
	"deposit-ledger/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// fakeTx satisfies pgx.Tx for orchestrator tests; only Commit and
// Rollback matter here, the repositories are mocked.
type fakeTx struct {
	commits   int
	rollbacks int
	commitErr error
}

func (t *fakeTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *fakeTx) Commit(ctx context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.commits++
	return nil
}
func (t *fakeTx) Rollback(ctx context.Context) error { t.rollbacks++; return nil }
func (t *fakeTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *fakeTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *fakeTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *fakeTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *fakeTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *fakeTx) Conn() *pgx.Conn                                               { return nil }

type orchestratorFixture struct {
	deposits   *mocks.MockDepositRepository
	wallets    *mocks.MockWalletRepository
	entries    *mocks.MockWalletTransactionRepository
	history    *mocks.MockStatusHistoryRepository
	audit      *mocks.MockAuditLogRepository
	reversals  *mocks.MockReversalRepository
	registry   *mocks.MockReconciliationRepository
	rates      *mocks.MockRateSource
	cache      *mocks.MockResultCache
	transactor *mocks.MockDBTransactor
	tx         *fakeTx
	svc        *DepositServiceImpl
}

func newOrchestratorFixture(t *testing.T) *orchestratorFixture {
	ctrl := gomock.NewController(t)
	f := &orchestratorFixture{
		deposits:   mocks.NewMockDepositRepository(ctrl),
		wallets:    mocks.NewMockWalletRepository(ctrl),
		entries:    mocks.NewMockWalletTransactionRepository(ctrl),
		history:    mocks.NewMockStatusHistoryRepository(ctrl),
		audit:      mocks.NewMockAuditLogRepository(ctrl),
		reversals:  mocks.NewMockReversalRepository(ctrl),
		registry:   mocks.NewMockReconciliationRepository(ctrl),
		rates:      mocks.NewMockRateSource(ctrl),
		cache:      mocks.NewMockResultCache(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		tx:         &fakeTx{},
	}
	log := zerolog.Nop()
	converter := NewConverter(f.rates, time.Hour, log)
	ledger := NewLedger(f.wallets, f.entries, converter, log)
	recorder := NewRecorder(f.history, f.audit, f.reversals, log)
	reconciler := NewReconciler(f.deposits, f.wallets, f.registry, 0.01, log)
	f.svc = NewDepositService(
		f.deposits, ledger, recorder, reconciler,
		f.history, f.audit, f.cache, f.transactor,
		24*time.Hour, 50, log,
	)
	return f
}

func pendingDeposit(walletID uuid.UUID) *domain.Deposit {
	return &domain.Deposit{
		ID:           uuid.New(),
		UserID:       uuid.New(),
		WalletID:     walletID,
		Amount:       100,
		CurrencyCode: "USD",
		Status:       domain.DepositStatusPending,
		Version:      3,
	}
}

func (f *orchestratorFixture) expectNewIdempotencyKey() {
	f.cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, nil)
	f.audit.EXPECT().GetByIdempotencyKey(gomock.Any(), gomock.Any()).Return(nil, nil)
}

func TestChangeStatus_ApproveSameCurrency(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	walletID := uuid.New()
	dep := pendingDeposit(walletID)
	wallet := &domain.Wallet{ID: walletID, CurrencyCode: "USD", Balance: 250}
	adminID := uuid.New()

	f.deposits.EXPECT().GetByID(ctx, dep.ID).Return(dep, nil)
	f.expectNewIdempotencyKey()
	f.transactor.EXPECT().Begin(ctx).Return(f.tx, nil)
	f.wallets.EXPECT().GetByIDForUpdate(ctx, f.tx, walletID).Return(wallet, nil)

	var casParams ports.UpdateDepositStatusParams
	f.deposits.EXPECT().UpdateStatusCAS(ctx, f.tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, p ports.UpdateDepositStatusParams) (*domain.Deposit, error) {
			casParams = p
			updated := *dep
			updated.Status = p.NewStatus
			updated.Version = dep.Version + 1
			return &updated, nil
		})

	f.wallets.EXPECT().UpdateBalance(ctx, f.tx, walletID, 350.0).Return(nil)

	var ledgerEntry *domain.WalletTransaction
	f.entries.EXPECT().Create(ctx, f.tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, e *domain.WalletTransaction) error {
			ledgerEntry = e
			return nil
		})

	f.history.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	var auditEntry *domain.AuditLogEntry
	f.audit.EXPECT().Create(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, e *domain.AuditLogEntry) error {
			auditEntry = e
			return nil
		})
	f.cache.EXPECT().Set(ctx, "key-1", gomock.Any(), 24*time.Hour).Return(nil)

	result := f.svc.ChangeStatus(ctx, dep.ID, domain.DepositStatusApproved, ports.ChangeStatusOptions{
		AdminID:        adminID,
		AdminEmail:     "ops@example.com",
		IdempotencyKey: "key-1",
	})

	require.True(t, result.Success)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, 1, f.tx.commits)

	require.NotNil(t, result.Deposit)
	assert.Equal(t, domain.DepositStatusApproved, result.Deposit.Status)
	assert.Equal(t, dep.Version+1, result.Deposit.Version)

	assert.Equal(t, dep.Version, casParams.ExpectedVersion)
	assert.Equal(t, "key-1", casParams.IdempotencyKey)
	require.NotNil(t, casParams.ApprovedBy)
	assert.Equal(t, adminID, *casParams.ApprovedBy)
	assert.NotNil(t, casParams.ApprovedAt)
	assert.Nil(t, casParams.ReversalReason)

	require.NotNil(t, result.WalletImpact)
	assert.Equal(t, domain.WalletEffectCredit, result.WalletImpact.Operation)
	assert.Equal(t, 250.0, result.WalletImpact.BalanceBefore)
	assert.Equal(t, 350.0, result.WalletImpact.BalanceAfter)
	assert.Nil(t, result.WalletImpact.Conversion)

	require.NotNil(t, ledgerEntry)
	assert.Equal(t, domain.WalletTransactionDeposit, ledgerEntry.Type)
	assert.Equal(t, 100.0, ledgerEntry.Amount)
	assert.Equal(t, dep.ID, ledgerEntry.ReferenceID)

	require.NotNil(t, auditEntry)
	assert.Equal(t, domain.AuditStatusSuccess, auditEntry.Status)
	assert.Equal(t, "approved", auditEntry.Action)
	assert.NotEmpty(t, auditEntry.Result)
	assert.Nil(t, result.Reversal)
}

func TestChangeStatus_ApproveWithConversion(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	walletID := uuid.New()
	dep := pendingDeposit(walletID)
	dep.CurrencyCode = "EUR"
	wallet := &domain.Wallet{ID: walletID, CurrencyCode: "PHP", Balance: 0}

	f.deposits.EXPECT().GetByID(ctx, dep.ID).Return(dep, nil)
	f.expectNewIdempotencyKey()
	f.transactor.EXPECT().Begin(ctx).Return(f.tx, nil)
	f.wallets.EXPECT().GetByIDForUpdate(ctx, f.tx, walletID).Return(wallet, nil)
	f.rates.EXPECT().GetLatestRate(ctx, "EUR", "PHP").Return(&domain.ExchangeRate{
		FromCurrency: "EUR", ToCurrency: "PHP", Rate: 62.5,
		Source: "ecb", UpdatedAt: time.Now().Add(-10 * time.Minute),
	}, nil)
	f.deposits.EXPECT().UpdateStatusCAS(ctx, f.tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, p ports.UpdateDepositStatusParams) (*domain.Deposit, error) {
			updated := *dep
			updated.Status = p.NewStatus
			updated.Version = dep.Version + 1
			return &updated, nil
		})
	f.wallets.EXPECT().UpdateBalance(ctx, f.tx, walletID, 6250.0).Return(nil)
	f.entries.EXPECT().Create(ctx, f.tx, gomock.Any()).Return(nil)
	f.history.EXPECT().Create(ctx, gomock.Any()).Return(nil)
	f.audit.EXPECT().Create(ctx, gomock.Any()).Return(nil)
	f.cache.EXPECT().Set(ctx, gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	result := f.svc.ChangeStatus(ctx, dep.ID, domain.DepositStatusApproved, ports.ChangeStatusOptions{
		AdminID: uuid.New(), IdempotencyKey: "key-conv",
	})

	require.True(t, result.Success)
	require.NotNil(t, result.WalletImpact)
	require.NotNil(t, result.WalletImpact.Conversion)
	conv := result.WalletImpact.Conversion
	assert.Equal(t, 62.5, conv.ExchangeRate)
	assert.Equal(t, 6250.0, conv.ConvertedAmount)
	assert.True(t, conv.Fresh)
	require.NotNil(t, conv.Confirmation)
	assert.Equal(t, "1 EUR = 62.500000 PHP", conv.Confirmation.RateFormatted)
	assert.Equal(t, 6250.0, result.WalletImpact.BalanceAfter)
}

func TestChangeStatus_ReverseApprovedDeposit(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	walletID := uuid.New()
	dep := pendingDeposit(walletID)
	dep.Status = domain.DepositStatusApproved
	wallet := &domain.Wallet{ID: walletID, CurrencyCode: "USD", Balance: 180}
	adminID := uuid.New()

	f.deposits.EXPECT().GetByID(ctx, dep.ID).Return(dep, nil)
	f.expectNewIdempotencyKey()
	f.transactor.EXPECT().Begin(ctx).Return(f.tx, nil)
	f.wallets.EXPECT().GetByIDForUpdate(ctx, f.tx, walletID).Return(wallet, nil)

	var casParams ports.UpdateDepositStatusParams
	f.deposits.EXPECT().UpdateStatusCAS(ctx, f.tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, p ports.UpdateDepositStatusParams) (*domain.Deposit, error) {
			casParams = p
			updated := *dep
			updated.Status = p.NewStatus
			updated.Version = dep.Version + 1
			return &updated, nil
		})
	f.wallets.EXPECT().UpdateBalance(ctx, f.tx, walletID, 80.0).Return(nil)

	var ledgerEntry *domain.WalletTransaction
	f.entries.EXPECT().Create(ctx, f.tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, e *domain.WalletTransaction) error {
			ledgerEntry = e
			return nil
		})
	f.history.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	var reversal *domain.ReversalRecord
	f.reversals.EXPECT().Create(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, r *domain.ReversalRecord) error {
			reversal = r
			return nil
		})
	f.audit.EXPECT().Create(ctx, gomock.Any()).Return(nil)
	f.cache.EXPECT().Set(ctx, gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	result := f.svc.ChangeStatus(ctx, dep.ID, domain.DepositStatusPending, ports.ChangeStatusOptions{
		AdminID: adminID, IdempotencyKey: "key-rev",
	})

	require.True(t, result.Success)
	require.NotNil(t, casParams.ReversalReason)
	assert.Equal(t, "manual_revert", *casParams.ReversalReason)
	assert.Nil(t, casParams.ApprovedBy)

	require.NotNil(t, ledgerEntry)
	assert.Equal(t, domain.WalletTransactionDepositReversal, ledgerEntry.Type)
	assert.Equal(t, -100.0, ledgerEntry.Amount)

	require.NotNil(t, reversal)
	assert.Equal(t, dep.ID, reversal.OriginalDepositID)
	assert.Equal(t, "manual_revert", reversal.Reason)
	assert.Equal(t, 180.0, reversal.OriginalBalance)
	assert.Equal(t, 80.0, reversal.ReversalBalance)
	assert.Equal(t, reversal, result.Reversal)
}

func TestChangeStatus_InvalidTransition(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	dep := pendingDeposit(uuid.New())
	dep.Status = domain.DepositStatusRejected

	f.deposits.EXPECT().GetByID(ctx, dep.ID).Return(dep, nil)
	f.expectNewIdempotencyKey()

	var auditEntry *domain.AuditLogEntry
	f.audit.EXPECT().Create(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, e *domain.AuditLogEntry) error {
			auditEntry = e
			return nil
		})

	result := f.svc.ChangeStatus(ctx, dep.ID, domain.DepositStatusCompleted, ports.ChangeStatusOptions{
		AdminID: uuid.New(), IdempotencyKey: "key-bad",
	})

	assert.False(t, result.Success)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "Operation failed")
	assert.Equal(t, 0, f.tx.commits)

	require.NotNil(t, auditEntry)
	assert.Equal(t, domain.AuditStatusFailed, auditEntry.Status)
	require.NotNil(t, auditEntry.ErrorMessage)
	assert.NotEmpty(t, auditEntry.Result)
}

func TestChangeStatus_ConcurrentModification(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	walletID := uuid.New()
	dep := pendingDeposit(walletID)
	wallet := &domain.Wallet{ID: walletID, CurrencyCode: "USD", Balance: 0}

	f.deposits.EXPECT().GetByID(ctx, dep.ID).Return(dep, nil)
	f.expectNewIdempotencyKey()
	f.transactor.EXPECT().Begin(ctx).Return(f.tx, nil)
	f.wallets.EXPECT().GetByIDForUpdate(ctx, f.tx, walletID).Return(wallet, nil)
	f.deposits.EXPECT().UpdateStatusCAS(ctx, f.tx, gomock.Any()).Return(nil, nil)
	f.audit.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	result := f.svc.ChangeStatus(ctx, dep.ID, domain.DepositStatusApproved, ports.ChangeStatusOptions{
		AdminID: uuid.New(), IdempotencyKey: "key-race",
	})

	assert.False(t, result.Success)
	assert.Equal(t, 0, f.tx.commits)
	assert.GreaterOrEqual(t, f.tx.rollbacks, 1)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "modified concurrently")
}

func TestChangeStatus_InsufficientBalance(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	walletID := uuid.New()
	dep := pendingDeposit(walletID)
	dep.Status = domain.DepositStatusApproved
	wallet := &domain.Wallet{ID: walletID, CurrencyCode: "USD", Balance: 40}

	f.deposits.EXPECT().GetByID(ctx, dep.ID).Return(dep, nil)
	f.expectNewIdempotencyKey()
	f.transactor.EXPECT().Begin(ctx).Return(f.tx, nil)
	f.wallets.EXPECT().GetByIDForUpdate(ctx, f.tx, walletID).Return(wallet, nil)
	// CAS never reached: the impact computation aborts first.
	f.audit.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	result := f.svc.ChangeStatus(ctx, dep.ID, domain.DepositStatusPending, ports.ChangeStatusOptions{
		AdminID: uuid.New(), IdempotencyKey: "key-poor",
	})

	assert.False(t, result.Success)
	assert.Equal(t, 0, f.tx.commits)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "Insufficient balance")
}

func TestChangeStatus_ConversionUnavailable(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	walletID := uuid.New()
	dep := pendingDeposit(walletID)
	dep.CurrencyCode = "EUR"
	wallet := &domain.Wallet{ID: walletID, CurrencyCode: "PHP", Balance: 0}

	f.deposits.EXPECT().GetByID(ctx, dep.ID).Return(dep, nil)
	f.expectNewIdempotencyKey()
	f.transactor.EXPECT().Begin(ctx).Return(f.tx, nil)
	f.wallets.EXPECT().GetByIDForUpdate(ctx, f.tx, walletID).Return(wallet, nil)
	f.rates.EXPECT().GetLatestRate(ctx, "EUR", "PHP").Return(nil, nil)
	f.audit.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	result := f.svc.ChangeStatus(ctx, dep.ID, domain.DepositStatusApproved, ports.ChangeStatusOptions{
		AdminID: uuid.New(), IdempotencyKey: "key-norate",
	})

	assert.False(t, result.Success)
	assert.Equal(t, 0, f.tx.commits)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "exchange rate")
}

func TestChangeStatus_DepositNotFound(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()
	depositID := uuid.New()

	f.deposits.EXPECT().GetByID(ctx, depositID).Return(nil, nil)
	f.audit.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	result := f.svc.ChangeStatus(ctx, depositID, domain.DepositStatusApproved, ports.ChangeStatusOptions{
		AdminID: uuid.New(), IdempotencyKey: "key-missing",
	})

	assert.False(t, result.Success)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "not found")
}

func TestChangeStatus_IdempotentReplayFromCache(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	dep := pendingDeposit(uuid.New())
	prior := &domain.ChangeStatusResult{
		Success: true,
		Deposit: &domain.Deposit{ID: dep.ID, Status: domain.DepositStatusApproved, Version: 4},
	}
	envelope, err := json.Marshal(prior)
	require.NoError(t, err)

	f.deposits.EXPECT().GetByID(ctx, dep.ID).Return(dep, nil)
	f.cache.EXPECT().Get(ctx, "key-dup").Return(envelope, nil)

	result := f.svc.ChangeStatus(ctx, dep.ID, domain.DepositStatusApproved, ports.ChangeStatusOptions{
		AdminID: uuid.New(), IdempotencyKey: "key-dup",
	})

	assert.True(t, result.Success)
	require.NotNil(t, result.Deposit)
	assert.Equal(t, int64(4), result.Deposit.Version)
	assert.Contains(t, result.Warnings, "Operation was already completed (idempotent)")
	assert.Equal(t, 0, f.tx.commits)
}

func TestChangeStatus_IdempotentReplayFromAuditLog(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	dep := pendingDeposit(uuid.New())
	prior := &domain.ChangeStatusResult{Success: false, Warnings: []string{"Operation failed: Insufficient balance"}}
	envelope, err := json.Marshal(prior)
	require.NoError(t, err)

	f.deposits.EXPECT().GetByID(ctx, dep.ID).Return(dep, nil)
	f.cache.EXPECT().Get(ctx, "key-dup-db").Return(nil, nil)
	f.audit.EXPECT().GetByIdempotencyKey(ctx, "key-dup-db").Return(&domain.AuditLogEntry{
		IdempotencyKey: "key-dup-db",
		Status:         domain.AuditStatusFailed,
		Result:         envelope,
	}, nil)

	result := f.svc.ChangeStatus(ctx, dep.ID, domain.DepositStatusApproved, ports.ChangeStatusOptions{
		AdminID: uuid.New(), IdempotencyKey: "key-dup-db",
	})

	// Failed outcomes replay too: the key pins the first result.
	assert.False(t, result.Success)
	assert.Contains(t, result.Warnings, "Operation was already completed (idempotent)")
	assert.Equal(t, 0, f.tx.commits)
}

func TestChangeStatus_CacheErrorFallsThroughToDB(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	dep := pendingDeposit(uuid.New())
	dep.Status = domain.DepositStatusApproved

	f.deposits.EXPECT().GetByID(ctx, dep.ID).Return(dep, nil)
	f.cache.EXPECT().Get(ctx, "key-redis-down").Return(nil, errors.New("connection refused"))
	f.audit.EXPECT().GetByIdempotencyKey(ctx, "key-redis-down").Return(nil, nil)
	f.transactor.EXPECT().Begin(ctx).Return(f.tx, nil)

	f.deposits.EXPECT().UpdateStatusCAS(ctx, f.tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, p ports.UpdateDepositStatusParams) (*domain.Deposit, error) {
			updated := *dep
			updated.Status = p.NewStatus
			updated.Version = dep.Version + 1
			return &updated, nil
		})
	f.history.EXPECT().Create(ctx, gomock.Any()).Return(nil)
	f.audit.EXPECT().Create(ctx, gomock.Any()).Return(nil)
	f.cache.EXPECT().Set(ctx, gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	// approved -> completed has no wallet effect, so no wallet calls.
	result := f.svc.ChangeStatus(ctx, dep.ID, domain.DepositStatusCompleted, ports.ChangeStatusOptions{
		AdminID: uuid.New(), IdempotencyKey: "key-redis-down",
	})

	assert.True(t, result.Success)
	assert.Nil(t, result.WalletImpact)
	assert.Equal(t, 1, f.tx.commits)
}

func TestChangeStatus_HistoryFailureIsWarning(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	dep := pendingDeposit(uuid.New())
	dep.Status = domain.DepositStatusApproved

	f.deposits.EXPECT().GetByID(ctx, dep.ID).Return(dep, nil)
	f.expectNewIdempotencyKey()
	f.transactor.EXPECT().Begin(ctx).Return(f.tx, nil)
	f.deposits.EXPECT().UpdateStatusCAS(ctx, f.tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, p ports.UpdateDepositStatusParams) (*domain.Deposit, error) {
			updated := *dep
			updated.Status = p.NewStatus
			updated.Version = dep.Version + 1
			return &updated, nil
		})
	f.history.EXPECT().Create(ctx, gomock.Any()).Return(errors.New("history table locked"))
	f.audit.EXPECT().Create(ctx, gomock.Any()).Return(nil)
	f.cache.EXPECT().Set(ctx, gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	result := f.svc.ChangeStatus(ctx, dep.ID, domain.DepositStatusCompleted, ports.ChangeStatusOptions{
		AdminID: uuid.New(), IdempotencyKey: "key-hist",
	})

	// Primary state committed: the secondary failure degrades to a warning.
	assert.True(t, result.Success)
	assert.Equal(t, 1, f.tx.commits)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "status history")
}

func TestGetAuditHistory(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()
	depositID := uuid.New()

	f.history.EXPECT().ListByDeposit(ctx, depositID, 50).
		Return([]domain.StatusHistoryRecord{{DepositID: depositID}}, nil)
	f.audit.EXPECT().ListByDeposit(ctx, depositID, 50).
		Return([]domain.AuditLogEntry{{DepositID: depositID}, {DepositID: depositID}}, nil)

	history, err := f.svc.GetAuditHistory(ctx, depositID)
	require.NoError(t, err)
	assert.Len(t, history.StatusHistory, 1)
	assert.Len(t, history.AuditLogs, 2)
}
