package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"deposit-ledger/internal/core/domain"
	"deposit-ledger/internal/core/ports"
	"deposit-ledger/internal/metrics"
	"deposit-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DepositServiceImpl implements ports.DepositStatusService. It sequences
// the transition validator, version guard, ledger updater, and recorder
// into one all-or-partial-fail status change.
type DepositServiceImpl struct {
	deposits     ports.DepositRepository
	ledger       *Ledger
	recorder     *Recorder
	reconciler   *Reconciler
	history      ports.StatusHistoryRepository
	audit        ports.AuditLogRepository
	cache        ports.ResultCache
	transactor   ports.DBTransactor
	cacheTTL     time.Duration
	historyLimit int
	log          zerolog.Logger
}

// NewDepositService creates a DepositServiceImpl.
func NewDepositService(
	deposits ports.DepositRepository,
	ledger *Ledger,
	recorder *Recorder,
	reconciler *Reconciler,
	history ports.StatusHistoryRepository,
	audit ports.AuditLogRepository,
	cache ports.ResultCache,
	transactor ports.DBTransactor,
	cacheTTL time.Duration,
	historyLimit int,
	log zerolog.Logger,
) *DepositServiceImpl {
	return &DepositServiceImpl{
		deposits:     deposits,
		ledger:       ledger,
		recorder:     recorder,
		reconciler:   reconciler,
		history:      history,
		audit:        audit,
		cache:        cache,
		transactor:   transactor,
		cacheTTL:     cacheTTL,
		historyLimit: historyLimit,
		log:          log,
	}
}

// ChangeStatus moves a deposit through its lifecycle with a full audit
// trail, idempotent replay, optimistic version locking, and the paired
// wallet credit/debit. It never returns an error; every outcome arrives
// inside the result envelope.
func (s *DepositServiceImpl) ChangeStatus(
	ctx context.Context,
	depositID uuid.UUID,
	newStatus domain.DepositStatus,
	opts ports.ChangeStatusOptions,
) *domain.ChangeStatusResult {
	start := time.Now()
	if opts.AdminEmail == "" {
		opts.AdminEmail = "system"
	}
	if opts.IdempotencyKey == "" {
		opts.IdempotencyKey = uuid.NewString()
	}

	result := &domain.ChangeStatusResult{Warnings: []string{}}
	defer func() { result.TimeTakenMS = time.Since(start).Milliseconds() }()

	// Step 1: fetch current deposit state.
	deposit, err := s.deposits.GetByID(ctx, depositID)
	if err != nil {
		return s.fail(ctx, result, depositID, nil, newStatus, opts,
			apperror.ErrPersistence(fmt.Errorf("fetch deposit: %w", err)), true)
	}
	if deposit == nil {
		return s.fail(ctx, result, depositID, nil, newStatus, opts,
			apperror.ErrNotFound("deposit"), true)
	}

	// Step 2: idempotency — a repeated key short-circuits to the first
	// outcome without re-executing side effects.
	if replay := s.replayIfSeen(ctx, deposit, opts.IdempotencyKey); replay != nil {
		replay.TimeTakenMS = time.Since(start).Milliseconds()
		return replay
	}

	// Step 3: validate the transition. Illegal edges perform no state write.
	if !newStatus.IsValid() {
		return s.fail(ctx, result, depositID, deposit, newStatus, opts,
			apperror.Validation(fmt.Sprintf("unknown deposit status: %s", newStatus)), true)
	}
	if !domain.CanTransition(deposit.Status, newStatus) {
		allowed := make([]string, 0, 3)
		for _, a := range domain.AllowedTransitions(deposit.Status) {
			allowed = append(allowed, string(a))
		}
		return s.fail(ctx, result, depositID, deposit, newStatus, opts,
			apperror.ErrInvalidTransition(string(deposit.Status), string(newStatus), allowed), true)
	}

	effect := domain.EffectOf(deposit.Status, newStatus)

	// Steps 4-7 run inside one storage transaction: wallet impact is
	// computed before the status write so a conversion or balance failure
	// aborts with no status change persisted, and the balance write plus
	// ledger entry commit atomically with the version bump.
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return s.fail(ctx, result, depositID, deposit, newStatus, opts,
			apperror.ErrPersistence(fmt.Errorf("begin tx: %w", err)), true)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	var impact *domain.WalletImpact
	if effect != domain.WalletEffectNone {
		impact, err = s.ledger.ComputeImpact(ctx, dbTx, deposit.WalletID, deposit.Amount, effect, deposit.CurrencyCode)
		if err != nil {
			return s.fail(ctx, result, depositID, deposit, newStatus, opts, asAppError(err), true)
		}
	}

	// Conditional write: only commits against the version we read.
	params := ports.UpdateDepositStatusParams{
		ID:              deposit.ID,
		ExpectedVersion: deposit.Version,
		NewStatus:       newStatus,
		IdempotencyKey:  opts.IdempotencyKey,
	}
	now := time.Now().UTC()
	if newStatus == domain.DepositStatusApproved {
		params.ApprovedBy = &opts.AdminID
		params.ApprovedAt = &now
	}
	if domain.IsReversal(deposit.Status, newStatus) {
		reason := opts.Reason
		if reason == "" {
			reason = "manual_revert"
		}
		params.ReversalReason = &reason
	}

	updated, err := s.deposits.UpdateStatusCAS(ctx, dbTx, params)
	if err != nil {
		return s.fail(ctx, result, depositID, deposit, newStatus, opts,
			apperror.ErrPersistence(fmt.Errorf("update deposit status: %w", err)), true)
	}
	if updated == nil {
		return s.fail(ctx, result, depositID, deposit, newStatus, opts,
			apperror.ErrConcurrentModification(deposit.ID.String()), true)
	}

	if impact != nil {
		if err := s.ledger.Apply(ctx, dbTx, impact, deposit.ID); err != nil {
			return s.fail(ctx, result, depositID, deposit, newStatus, opts, asAppError(err), true)
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return s.fail(ctx, result, depositID, deposit, newStatus, opts,
			apperror.ErrPersistence(fmt.Errorf("commit tx: %w", err)), true)
	}

	// Primary state is committed. Everything below is secondary evidence:
	// failures degrade to warnings, never rollbacks.
	result.Success = true
	result.Deposit = updated
	result.WalletImpact = impact

	histRec := &domain.StatusHistoryRecord{
		ID:        uuid.New(),
		DepositID: deposit.ID,
		UserID:    deposit.UserID,
		OldStatus: deposit.Status,
		NewStatus: newStatus,
		ChangedBy: opts.AdminID,
		Reason:    opts.Reason,
		Notes:     opts.Notes,
		CreatedAt: now,
	}
	if err := s.recorder.History(ctx, histRec); err != nil {
		result.Warn(fmt.Sprintf("Failed to record status history: %v", err))
	}

	if domain.IsReversal(deposit.Status, newStatus) && impact != nil {
		reason := opts.Reason
		if reason == "" {
			reason = "manual_revert"
		}
		rev := &domain.ReversalRecord{
			ID:                uuid.New(),
			OriginalDepositID: deposit.ID,
			Reason:            reason,
			ReversedBy:        opts.AdminID,
			OriginalBalance:   impact.BalanceBefore,
			ReversalBalance:   impact.BalanceAfter,
			Status:            "active",
			CreatedAt:         now,
		}
		if err := s.recorder.Reversal(ctx, rev); err != nil {
			result.Warn(fmt.Sprintf("Failed to record reversal: %v", err))
		} else {
			result.Reversal = rev
		}
	}

	action := actionFor(deposit.Status, newStatus)
	entry := &domain.AuditLogEntry{
		ID:        uuid.New(),
		DepositID: deposit.ID,
		UserID:    &deposit.UserID,
		WalletID:  &deposit.WalletID,
		Action:    action,
		OldState: &domain.StateSnapshot{
			Status:  deposit.Status,
			Amount:  deposit.Amount,
			Version: deposit.Version,
		},
		NewState: &domain.StateSnapshot{
			Status:  newStatus,
			Amount:  deposit.Amount,
			Version: updated.Version,
		},
		WalletImpact:   impact,
		AdminID:        opts.AdminID,
		AdminEmail:     opts.AdminEmail,
		IdempotencyKey: opts.IdempotencyKey,
		Status:         domain.AuditStatusSuccess,
		CompletedAt:    &now,
		CreatedAt:      now,
	}
	// The stored envelope (without the audit entry itself) powers
	// idempotent replay of this exact outcome.
	if envelope, mErr := json.Marshal(result); mErr == nil {
		entry.Result = envelope
	}
	if err := s.recorder.Audit(ctx, entry); err != nil {
		result.Warn(fmt.Sprintf("Failed to create audit log: %v", err))
	} else {
		result.AuditLog = entry
	}

	s.cacheResult(ctx, opts.IdempotencyKey, result)
	metrics.StatusChangesTotal.WithLabelValues(action, "success").Inc()

	s.log.Info().
		Str("deposit_id", deposit.ID.String()).
		Str("old_status", string(deposit.Status)).
		Str("new_status", string(newStatus)).
		Int64("version", updated.Version).
		Str("admin_id", opts.AdminID.String()).
		Msg("deposit status changed")

	return result
}

// GetAuditHistory returns the status history and audit log for a
// deposit, newest first.
func (s *DepositServiceImpl) GetAuditHistory(ctx context.Context, depositID uuid.UUID) (*domain.AuditHistory, error) {
	statusHistory, err := s.history.ListByDeposit(ctx, depositID, s.historyLimit)
	if err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("list status history: %w", err))
	}
	auditLogs, err := s.audit.ListByDeposit(ctx, depositID, s.historyLimit)
	if err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("list audit logs: %w", err))
	}
	return &domain.AuditHistory{
		StatusHistory: statusHistory,
		AuditLogs:     auditLogs,
	}, nil
}

// ReconcileWallet recomputes the expected balance from approved and
// completed deposits and flags discrepancies for manual review.
func (s *DepositServiceImpl) ReconcileWallet(ctx context.Context, walletID, adminID uuid.UUID) (*domain.ReconciliationResult, error) {
	return s.reconciler.ReconcileWallet(ctx, walletID, adminID)
}

// replayIfSeen returns the recorded outcome for an idempotency key that
// has already completed, or nil when the key is new. Cache problems fall
// through to the durable audit-log check.
func (s *DepositServiceImpl) replayIfSeen(ctx context.Context, deposit *domain.Deposit, key string) *domain.ChangeStatusResult {
	cached, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("redis idempotency check failed, falling through to DB")
	}
	if cached != nil {
		if prior := decodeEnvelope(cached); prior != nil {
			prior.Warn("Operation was already completed (idempotent)")
			return prior
		}
	}

	existing, err := s.audit.GetByIdempotencyKey(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("db idempotency check failed")
		return nil
	}
	if existing == nil {
		return nil
	}

	if prior := decodeEnvelope(existing.Result); prior != nil {
		prior.Warn("Operation was already completed (idempotent)")
		return prior
	}

	// Older audit rows without a stored envelope: reconstruct the shape.
	prior := &domain.ChangeStatusResult{
		Success:  existing.Status == domain.AuditStatusSuccess,
		Deposit:  deposit,
		AuditLog: existing,
		Warnings: []string{"Operation was already completed (idempotent)"},
	}
	return prior
}

// fail finalizes a failed operation: the envelope reports the error as a
// warning and a failed audit entry is written under the same idempotency
// key so retried failures deduplicate too.
func (s *DepositServiceImpl) fail(
	ctx context.Context,
	result *domain.ChangeStatusResult,
	depositID uuid.UUID,
	deposit *domain.Deposit,
	newStatus domain.DepositStatus,
	opts ports.ChangeStatusOptions,
	appErr *apperror.AppError,
	recordAudit bool,
) *domain.ChangeStatusResult {
	result.Success = false
	result.Warn("Operation failed: " + appErr.Message)

	action := string(newStatus)
	if deposit != nil {
		action = actionFor(deposit.Status, newStatus)
	}
	metrics.StatusChangesTotal.WithLabelValues(action, "failed").Inc()

	s.log.Error().
		Str("deposit_id", depositID.String()).
		Str("new_status", string(newStatus)).
		Str("error_code", appErr.Code).
		Msg(appErr.Message)

	if !recordAudit {
		return result
	}

	now := time.Now().UTC()
	msg := appErr.Message
	entry := &domain.AuditLogEntry{
		ID:             uuid.New(),
		DepositID:      depositID,
		Action:         action,
		AdminID:        opts.AdminID,
		AdminEmail:     opts.AdminEmail,
		IdempotencyKey: opts.IdempotencyKey,
		Status:         domain.AuditStatusFailed,
		ErrorMessage:   &msg,
		CreatedAt:      now,
	}
	if deposit != nil {
		entry.UserID = &deposit.UserID
		entry.WalletID = &deposit.WalletID
		entry.OldState = &domain.StateSnapshot{
			Status:  deposit.Status,
			Amount:  deposit.Amount,
			Version: deposit.Version,
		}
	}
	if envelope, mErr := json.Marshal(result); mErr == nil {
		entry.Result = envelope
	}
	if err := s.recorder.Audit(ctx, entry); err == nil {
		result.AuditLog = entry
	}
	return result
}

// cacheResult stores the envelope for the Redis replay fast path.
func (s *DepositServiceImpl) cacheResult(ctx context.Context, key string, result *domain.ChangeStatusResult) {
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to cache operation result")
	}
}

// actionFor names the operation for audit and metrics purposes.
// A transition back to pending from approved is a reversal.
func actionFor(from, to domain.DepositStatus) string {
	if domain.IsReversal(from, to) {
		return "reverse"
	}
	return string(to)
}

func decodeEnvelope(data []byte) *domain.ChangeStatusResult {
	if len(data) == 0 {
		return nil
	}
	var prior domain.ChangeStatusResult
	if err := json.Unmarshal(data, &prior); err != nil {
		return nil
	}
	return &prior
}

// asAppError normalizes arbitrary errors into AppErrors.
func asAppError(err error) *apperror.AppError {
	if appErr, ok := err.(*apperror.AppError); ok {
		return appErr
	}
	return apperror.InternalError(err)
}
