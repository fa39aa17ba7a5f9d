package postgres

import (
	"context"
	"fmt"

	"deposit-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// StatusHistoryRepo implements ports.StatusHistoryRepository.
type StatusHistoryRepo struct {
	pool Pool
}

// NewStatusHistoryRepo creates a new StatusHistoryRepo.
func NewStatusHistoryRepo(pool Pool) *StatusHistoryRepo {
	return &StatusHistoryRepo{pool: pool}
}

// Create inserts one status transition row.
func (r *StatusHistoryRepo) Create(ctx context.Context, rec *domain.StatusHistoryRecord) error {
	query := `INSERT INTO deposit_status_history
		(id, deposit_id, user_id, old_status, new_status, changed_by, reason, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		rec.ID, rec.DepositID, rec.UserID, rec.OldStatus, rec.NewStatus,
		rec.ChangedBy, rec.Reason, rec.Notes, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert status history: %w", err)
	}
	return nil
}

// ListByDeposit returns transition rows for a deposit, newest first.
func (r *StatusHistoryRepo) ListByDeposit(ctx context.Context, depositID uuid.UUID, limit int) ([]domain.StatusHistoryRecord, error) {
	query := `SELECT id, deposit_id, user_id, old_status, new_status, changed_by, reason, notes, created_at
		FROM deposit_status_history WHERE deposit_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, depositID, limit)
	if err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	defer rows.Close()

	var records []domain.StatusHistoryRecord
	for rows.Next() {
		var rec domain.StatusHistoryRecord
		if err := rows.Scan(
			&rec.ID, &rec.DepositID, &rec.UserID, &rec.OldStatus, &rec.NewStatus,
			&rec.ChangedBy, &rec.Reason, &rec.Notes, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan status history: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
