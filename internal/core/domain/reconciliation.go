package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReconciliationEntry records a detected balance discrepancy for manual
// admin review. Reconciliation is diagnostic: it never mutates balances.
type ReconciliationEntry struct {
	ID                 uuid.UUID  `json:"id"`
	WalletID           uuid.UUID  `json:"wallet_id"`
	BalanceBefore      float64    `json:"balance_before"` // expected
	BalanceAfter       float64    `json:"balance_after"`  // actual stored
	Discrepancy        float64    `json:"discrepancy"`
	ReconciliationType string     `json:"reconciliation_type"`
	AdminID            uuid.UUID  `json:"admin_id"`
	Reason             string     `json:"reason"`
	Status             string     `json:"status"` // pending | completed
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// ReconciliationResult is returned to the caller of ReconcileWallet.
type ReconciliationResult struct {
	IsBalanced      bool                 `json:"is_balanced"`
	Discrepancy     float64              `json:"discrepancy"` // stored - expected
	ExpectedBalance float64              `json:"expected_balance"`
	ActualBalance   float64              `json:"actual_balance"`
	Entry           *ReconciliationEntry `json:"reconciliation,omitempty"`
}
