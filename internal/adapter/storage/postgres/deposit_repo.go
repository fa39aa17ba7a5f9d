package postgres

import (
	"context"
	"errors"
	"fmt"

	"deposit-ledger/internal/core/domain"
	"deposit-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DepositRepo implements ports.DepositRepository.
type DepositRepo struct {
	pool Pool
}

// NewDepositRepo creates a new DepositRepo.
func NewDepositRepo(pool Pool) *DepositRepo {
	return &DepositRepo{pool: pool}
}

const depositColumns = `id, user_id, wallet_id, amount, currency_code, deposit_method,
	status, version, idempotency_key, approved_by, approved_at, reversal_reason,
	created_at, updated_at`

func scanDeposit(row pgx.Row) (*domain.Deposit, error) {
	d := &domain.Deposit{}
	err := row.Scan(
		&d.ID, &d.UserID, &d.WalletID, &d.Amount, &d.CurrencyCode, &d.DepositMethod,
		&d.Status, &d.Version, &d.IdempotencyKey, &d.ApprovedBy, &d.ApprovedAt, &d.ReversalReason,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// GetByID fetches a deposit by its UUID (non-locking read).
func (r *DepositRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Deposit, error) {
	query := `SELECT ` + depositColumns + ` FROM deposits WHERE id = $1`

	d, err := scanDeposit(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get deposit by id: %w", err)
	}
	return d, nil
}

// UpdateStatusCAS performs the compare-and-swap status write: the row is
// only updated when it still carries the expected version, and the version
// increments in the same statement. Zero rows matched means another writer
// won the race (or the deposit vanished); reported as (nil, nil).
// This MUST be called within a transaction.
func (r *DepositRepo) UpdateStatusCAS(ctx context.Context, tx pgx.Tx, params ports.UpdateDepositStatusParams) (*domain.Deposit, error) {
	query := `UPDATE deposits
		SET status = $1,
			version = version + 1,
			idempotency_key = $2,
			approved_by = COALESCE($3, approved_by),
			approved_at = COALESCE($4, approved_at),
			reversal_reason = COALESCE($5, reversal_reason),
			updated_at = NOW()
		WHERE id = $6 AND version = $7
		RETURNING ` + depositColumns

	d, err := scanDeposit(tx.QueryRow(ctx, query,
		params.NewStatus, params.IdempotencyKey,
		params.ApprovedBy, params.ApprovedAt, params.ReversalReason,
		params.ID, params.ExpectedVersion,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update deposit status: %w", err)
	}
	return d, nil
}

// SumAmountByStatus aggregates deposit amounts for a wallet across the
// given statuses. Used as the reconciliation input.
func (r *DepositRepo) SumAmountByStatus(ctx context.Context, walletID uuid.UUID, statuses []domain.DepositStatus) (float64, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM deposits WHERE wallet_id = $1 AND status = ANY($2)`

	ss := make([]string, len(statuses))
	for i, s := range statuses {
		ss[i] = string(s)
	}

	var sum float64
	if err := r.pool.QueryRow(ctx, query, walletID, ss).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum deposit amounts: %w", err)
	}
	return sum, nil
}
