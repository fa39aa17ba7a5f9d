package ports

import (
	"context"

	"deposit-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// ChangeStatusOptions carries caller-supplied attribution and the
// optional idempotency key (generated when empty).
type ChangeStatusOptions struct {
	AdminID        uuid.UUID
	AdminEmail     string // defaults to "system"
	Reason         string
	Notes          string
	IdempotencyKey string
}

// DepositStatusService is the engine's operation surface.
type DepositStatusService interface {
	// ChangeStatus moves a deposit through its lifecycle, applying the
	// paired wallet credit/debit. It never returns an error: every
	// outcome, including failure, arrives inside the envelope.
	ChangeStatus(ctx context.Context, depositID uuid.UUID, newStatus domain.DepositStatus, opts ChangeStatusOptions) *domain.ChangeStatusResult
	// GetAuditHistory returns the status history and audit log for a
	// deposit, newest first.
	GetAuditHistory(ctx context.Context, depositID uuid.UUID) (*domain.AuditHistory, error)
	// ReconcileWallet recomputes the expected balance from approved and
	// completed deposits and flags discrepancies. Diagnostic only.
	ReconcileWallet(ctx context.Context, walletID, adminID uuid.UUID) (*domain.ReconciliationResult, error)
}
