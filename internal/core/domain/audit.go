package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditStatus marks whether the audited operation succeeded.
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailed  AuditStatus = "failed"
)

// StateSnapshot is the before/after deposit state recorded in the audit log.
type StateSnapshot struct {
	Status  DepositStatus `json:"status"`
	Amount  float64       `json:"amount"`
	Version int64         `json:"version"`
}

// AuditLogEntry records the full outcome of one orchestrated operation,
// success or failure. The idempotency key carries a uniqueness constraint:
// a second attempt with the same key short-circuits to the first result.
type AuditLogEntry struct {
	ID             uuid.UUID       `json:"id"`
	DepositID      uuid.UUID       `json:"deposit_id"`
	UserID         *uuid.UUID      `json:"user_id,omitempty"`
	WalletID       *uuid.UUID      `json:"wallet_id,omitempty"`
	Action         string          `json:"action"`
	OldState       *StateSnapshot  `json:"old_state,omitempty"`
	NewState       *StateSnapshot  `json:"new_state,omitempty"`
	WalletImpact   *WalletImpact   `json:"wallet_impact,omitempty"`
	AdminID        uuid.UUID       `json:"admin_id"`
	AdminEmail     string          `json:"admin_email"`
	IdempotencyKey string          `json:"idempotency_key"`
	Status         AuditStatus     `json:"status"`
	ErrorMessage   *string         `json:"error_message,omitempty"`
	Result         json.RawMessage `json:"-"` // serialized result envelope for idempotent replay
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// StatusHistoryRecord is one row per status transition attempt that
// reached the write stage.
type StatusHistoryRecord struct {
	ID        uuid.UUID     `json:"id"`
	DepositID uuid.UUID     `json:"deposit_id"`
	UserID    uuid.UUID     `json:"user_id"`
	OldStatus DepositStatus `json:"old_status"`
	NewStatus DepositStatus `json:"new_status"`
	ChangedBy uuid.UUID     `json:"changed_by"`
	Reason    string        `json:"reason"`
	Notes     string        `json:"notes"`
	CreatedAt time.Time     `json:"created_at"`
}

// ReversalRecord is created when an approved deposit is reverted to
// pending, capturing balances around the reversal debit.
type ReversalRecord struct {
	ID                uuid.UUID `json:"id"`
	OriginalDepositID uuid.UUID `json:"original_deposit_id"`
	Reason            string    `json:"reason"`
	ReversedBy        uuid.UUID `json:"reversed_by"`
	OriginalBalance   float64   `json:"original_balance"`
	ReversalBalance   float64   `json:"reversal_balance"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
}
