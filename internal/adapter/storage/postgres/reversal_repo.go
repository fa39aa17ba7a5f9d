package postgres

import (
	"context"
	"fmt"

	"deposit-ledger/internal/core/domain"
)

// ReversalRepo implements ports.ReversalRepository.
type ReversalRepo struct {
	pool Pool
}

// NewReversalRepo creates a new ReversalRepo.
func NewReversalRepo(pool Pool) *ReversalRepo {
	return &ReversalRepo{pool: pool}
}

// Create inserts one reversed-deposit registry row.
func (r *ReversalRepo) Create(ctx context.Context, rec *domain.ReversalRecord) error {
	query := `INSERT INTO deposit_reversals
		(id, original_deposit_id, reason, reversed_by, original_balance, reversal_balance, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		rec.ID, rec.OriginalDepositID, rec.Reason, rec.ReversedBy,
		rec.OriginalBalance, rec.ReversalBalance, rec.Status, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reversal record: %w", err)
	}
	return nil
}
