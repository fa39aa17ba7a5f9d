package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"deposit-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuditEntry() *domain.AuditLogEntry {
	now := time.Now().UTC().Truncate(time.Microsecond)
	userID := uuid.New()
	walletID := uuid.New()
	return &domain.AuditLogEntry{
		ID:             uuid.New(),
		DepositID:      uuid.New(),
		UserID:         &userID,
		WalletID:       &walletID,
		Action:         "approved",
		OldState:       &domain.StateSnapshot{Status: domain.DepositStatusPending, Amount: 100, Version: 1},
		NewState:       &domain.StateSnapshot{Status: domain.DepositStatusApproved, Amount: 100, Version: 2},
		AdminID:        uuid.New(),
		AdminEmail:     "ops@example.com",
		IdempotencyKey: uuid.NewString(),
		Status:         domain.AuditStatusSuccess,
		Result:         json.RawMessage(`{"success":true}`),
		CompletedAt:    &now,
		CreatedAt:      now,
	}
}

func TestAuditLogRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditLogRepo(mock)
	entry := newTestAuditEntry()

	mock.ExpectExec("INSERT INTO deposit_audit_logs").
		WithArgs(entry.ID, entry.DepositID, entry.UserID, entry.WalletID, entry.Action,
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			entry.AdminID, entry.AdminEmail, entry.IdempotencyKey, entry.Status,
			entry.ErrorMessage, []byte(entry.Result), entry.CompletedAt, entry.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), entry)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func auditRow(e *domain.AuditLogEntry) *pgxmock.Rows {
	oldState, _ := json.Marshal(e.OldState)
	newState, _ := json.Marshal(e.NewState)
	var impact []byte
	if e.WalletImpact != nil {
		impact, _ = json.Marshal(e.WalletImpact)
	}
	return pgxmock.NewRows([]string{
		"id", "deposit_id", "user_id", "wallet_id", "action", "old_state", "new_state",
		"wallet_impact", "admin_id", "admin_email", "idempotency_key", "status",
		"error_message", "result", "completed_at", "created_at",
	}).AddRow(
		e.ID, e.DepositID, e.UserID, e.WalletID, e.Action, oldState, newState,
		impact, e.AdminID, e.AdminEmail, e.IdempotencyKey, e.Status,
		e.ErrorMessage, []byte(e.Result), e.CompletedAt, e.CreatedAt,
	)
}

func TestAuditLogRepo_GetByIdempotencyKey(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditLogRepo(mock)
	entry := newTestAuditEntry()

	mock.ExpectQuery("SELECT .+ FROM deposit_audit_logs WHERE idempotency_key").
		WithArgs(entry.IdempotencyKey).
		WillReturnRows(auditRow(entry))

	result, err := repo.GetByIdempotencyKey(context.Background(), entry.IdempotencyKey)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, entry.ID, result.ID)
	require.NotNil(t, result.OldState)
	assert.Equal(t, domain.DepositStatusPending, result.OldState.Status)
	require.NotNil(t, result.NewState)
	assert.Equal(t, int64(2), result.NewState.Version)
	assert.Nil(t, result.WalletImpact)
	assert.JSONEq(t, `{"success":true}`, string(result.Result))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditLogRepo_GetByIdempotencyKey_Unseen(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditLogRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM deposit_audit_logs WHERE idempotency_key").
		WithArgs("fresh-key").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	result, err := repo.GetByIdempotencyKey(context.Background(), "fresh-key")
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditLogRepo_ListByDeposit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditLogRepo(mock)
	entry := newTestAuditEntry()

	mock.ExpectQuery("SELECT .+ FROM deposit_audit_logs").
		WithArgs(entry.DepositID, 50).
		WillReturnRows(auditRow(entry))

	entries, err := repo.ListByDeposit(context.Background(), entry.DepositID, 50)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entry.Action, entries[0].Action)
	assert.NoError(t, mock.ExpectationsWereMet())
}
