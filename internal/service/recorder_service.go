package service

import (
	"context"

	"deposit-ledger/internal/core/domain"
	"deposit-ledger/internal/core/ports"

	"github.com/rs/zerolog"
)

// Recorder writes the secondary evidence trail: status history, audit
// log entries, and the reversal registry. These writes are best-effort
// relative to the primary state transition — callers convert failures
// into result warnings instead of rolling back committed state.
type Recorder struct {
	history   ports.StatusHistoryRepository
	audit     ports.AuditLogRepository
	reversals ports.ReversalRepository
	log       zerolog.Logger
}

// NewRecorder creates a Recorder.
func NewRecorder(
	history ports.StatusHistoryRepository,
	audit ports.AuditLogRepository,
	reversals ports.ReversalRepository,
	log zerolog.Logger,
) *Recorder {
	return &Recorder{history: history, audit: audit, reversals: reversals, log: log}
}

// History records one status transition row.
func (r *Recorder) History(ctx context.Context, rec *domain.StatusHistoryRecord) error {
	if err := r.history.Create(ctx, rec); err != nil {
		r.log.Warn().Err(err).
			Str("deposit_id", rec.DepositID.String()).
			Msg("failed to record status history")
		return err
	}
	return nil
}

// Audit records one operation-outcome entry keyed by idempotency key.
func (r *Recorder) Audit(ctx context.Context, entry *domain.AuditLogEntry) error {
	if err := r.audit.Create(ctx, entry); err != nil {
		r.log.Warn().Err(err).
			Str("deposit_id", entry.DepositID.String()).
			Str("idempotency_key", entry.IdempotencyKey).
			Msg("failed to create audit log")
		return err
	}
	return nil
}

// Reversal records one reversed-deposit registry row.
func (r *Recorder) Reversal(ctx context.Context, rec *domain.ReversalRecord) error {
	if err := r.reversals.Create(ctx, rec); err != nil {
		r.log.Warn().Err(err).
			Str("deposit_id", rec.OriginalDepositID.String()).
			Msg("failed to record reversal")
		return err
	}
	return nil
}
