package ports

import (
	"context"
	"time"

	"deposit-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UpdateDepositStatusParams drives the conditional status write.
// The update only commits when the row still carries ExpectedVersion.
type UpdateDepositStatusParams struct {
	ID              uuid.UUID
	ExpectedVersion int64
	NewStatus       domain.DepositStatus
	IdempotencyKey  string
	ApprovedBy      *uuid.UUID
	ApprovedAt      *time.Time
	ReversalReason  *string
}

// DepositRepository defines persistence operations for deposits.
// Methods accepting pgx.Tx run inside the orchestrator's transaction.
type DepositRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Deposit, error)
	// UpdateStatusCAS performs the compare-and-swap status write and
	// returns the updated row. Returns (nil, nil) when zero rows matched,
	// i.e. another writer won the version race or the deposit is gone.
	UpdateStatusCAS(ctx context.Context, tx pgx.Tx, params UpdateDepositStatusParams) (*domain.Deposit, error)
	// SumAmountByStatus aggregates deposit amounts for a wallet across
	// the given statuses (reconciliation input).
	SumAmountByStatus(ctx context.Context, walletID uuid.UUID, statuses []domain.DepositStatus) (float64, error)
}

// WalletRepository defines persistence operations for wallets.
type WalletRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	// GetByIDForUpdate locks the wallet row for the life of tx.
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance float64) error
}

// WalletTransactionRepository appends immutable ledger entries.
type WalletTransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, t *domain.WalletTransaction) error
	ListByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.WalletTransaction, error)
}

// StatusHistoryRepository persists per-transition history rows.
type StatusHistoryRepository interface {
	Create(ctx context.Context, rec *domain.StatusHistoryRecord) error
	ListByDeposit(ctx context.Context, depositID uuid.UUID, limit int) ([]domain.StatusHistoryRecord, error)
}

// AuditLogRepository persists operation-outcome audit entries.
// The idempotency key is unique: a duplicate insert fails, and lookups
// by key power idempotent replay.
type AuditLogRepository interface {
	Create(ctx context.Context, entry *domain.AuditLogEntry) error
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.AuditLogEntry, error)
	ListByDeposit(ctx context.Context, depositID uuid.UUID, limit int) ([]domain.AuditLogEntry, error)
}

// ReversalRepository persists the reversed-deposits registry.
type ReversalRepository interface {
	Create(ctx context.Context, rec *domain.ReversalRecord) error
}

// ReconciliationRepository persists balance-discrepancy entries for
// manual review.
type ReconciliationRepository interface {
	Create(ctx context.Context, entry *domain.ReconciliationEntry) error
}

// RateSource resolves the latest valid exchange rate for an ordered
// currency pair. Returns (nil, nil) when no rate exists.
type RateSource interface {
	GetLatestRate(ctx context.Context, fromCurrency, toCurrency string) (*domain.ExchangeRate, error)
}

// ResultCache is the Redis fast path for idempotent replay of result
// envelopes.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // nil, nil on miss
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
