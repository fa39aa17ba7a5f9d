package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"deposit-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AuditLogRepo implements ports.AuditLogRepository. The snapshot and
// impact columns are JSONB; the idempotency key column carries a unique
// constraint that backs durable replay.
type AuditLogRepo struct {
	pool Pool
}

// NewAuditLogRepo creates a new AuditLogRepo.
func NewAuditLogRepo(pool Pool) *AuditLogRepo {
	return &AuditLogRepo{pool: pool}
}

const auditColumns = `id, deposit_id, user_id, wallet_id, action, old_state, new_state,
	wallet_impact, admin_id, admin_email, idempotency_key, status, error_message,
	result, completed_at, created_at`

// Create inserts one audit log entry.
func (r *AuditLogRepo) Create(ctx context.Context, entry *domain.AuditLogEntry) error {
	oldState, err := marshalNullable(entry.OldState)
	if err != nil {
		return fmt.Errorf("marshal old state: %w", err)
	}
	newState, err := marshalNullable(entry.NewState)
	if err != nil {
		return fmt.Errorf("marshal new state: %w", err)
	}
	impact, err := marshalNullable(entry.WalletImpact)
	if err != nil {
		return fmt.Errorf("marshal wallet impact: %w", err)
	}

	query := `INSERT INTO deposit_audit_logs (` + auditColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err = r.pool.Exec(ctx, query,
		entry.ID, entry.DepositID, entry.UserID, entry.WalletID, entry.Action,
		oldState, newState, impact,
		entry.AdminID, entry.AdminEmail, entry.IdempotencyKey, entry.Status,
		entry.ErrorMessage, []byte(entry.Result), entry.CompletedAt, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// GetByIdempotencyKey fetches the audit entry recorded under a key.
// Returns (nil, nil) when the key has never been used.
func (r *AuditLogRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.AuditLogEntry, error) {
	query := `SELECT ` + auditColumns + ` FROM deposit_audit_logs WHERE idempotency_key = $1`

	entry, err := scanAuditEntry(r.pool.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get audit log by idempotency key: %w", err)
	}
	return entry, nil
}

// ListByDeposit returns audit entries for a deposit, newest first.
func (r *AuditLogRepo) ListByDeposit(ctx context.Context, depositID uuid.UUID, limit int) ([]domain.AuditLogEntry, error) {
	query := `SELECT ` + auditColumns + ` FROM deposit_audit_logs
		WHERE deposit_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, depositID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditLogEntry
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func scanAuditEntry(row pgx.Row) (*domain.AuditLogEntry, error) {
	entry := &domain.AuditLogEntry{}
	var oldState, newState, impact, result []byte
	err := row.Scan(
		&entry.ID, &entry.DepositID, &entry.UserID, &entry.WalletID, &entry.Action,
		&oldState, &newState, &impact,
		&entry.AdminID, &entry.AdminEmail, &entry.IdempotencyKey, &entry.Status,
		&entry.ErrorMessage, &result, &entry.CompletedAt, &entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalNullable(oldState, &entry.OldState); err != nil {
		return nil, fmt.Errorf("unmarshal old state: %w", err)
	}
	if err := unmarshalNullable(newState, &entry.NewState); err != nil {
		return nil, fmt.Errorf("unmarshal new state: %w", err)
	}
	if err := unmarshalNullable(impact, &entry.WalletImpact); err != nil {
		return nil, fmt.Errorf("unmarshal wallet impact: %w", err)
	}
	entry.Result = result
	return entry, nil
}

// marshalNullable keeps nil pointers as SQL NULL instead of the JSON
// literal "null".
func marshalNullable(v any) ([]byte, error) {
	switch t := v.(type) {
	case *domain.StateSnapshot:
		if t == nil {
			return nil, nil
		}
	case *domain.WalletImpact:
		if t == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}

func unmarshalNullable[T any](data []byte, dst **T) error {
	if len(data) == 0 {
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*dst = &v
	return nil
}
