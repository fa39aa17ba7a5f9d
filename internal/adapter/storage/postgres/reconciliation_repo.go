package postgres

import (
	"context"
	"fmt"

	"deposit-ledger/internal/core/domain"
)

// ReconciliationRepo implements ports.ReconciliationRepository.
type ReconciliationRepo struct {
	pool Pool
}

// NewReconciliationRepo creates a new ReconciliationRepo.
func NewReconciliationRepo(pool Pool) *ReconciliationRepo {
	return &ReconciliationRepo{pool: pool}
}

// Create inserts one balance-discrepancy row for manual review.
func (r *ReconciliationRepo) Create(ctx context.Context, entry *domain.ReconciliationEntry) error {
	query := `INSERT INTO reconciliation_ledger
		(id, wallet_id, balance_before, balance_after, discrepancy, reconciliation_type, admin_id, reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		entry.ID, entry.WalletID, entry.BalanceBefore, entry.BalanceAfter,
		entry.Discrepancy, entry.ReconciliationType, entry.AdminID,
		entry.Reason, entry.Status, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reconciliation entry: %w", err)
	}
	return nil
}
