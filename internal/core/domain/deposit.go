package domain

import (
	"time"

	"github.com/google/uuid"
)

// DepositStatus represents the lifecycle state of a deposit.
type DepositStatus string

const (
	DepositStatusPending   DepositStatus = "pending"
	DepositStatusApproved  DepositStatus = "approved"
	DepositStatusRejected  DepositStatus = "rejected"
	DepositStatusCompleted DepositStatus = "completed"
	DepositStatusCancelled DepositStatus = "cancelled"
)

// IsValid reports whether s is a known deposit status.
func (s DepositStatus) IsValid() bool {
	switch s {
	case DepositStatusPending, DepositStatusApproved, DepositStatusRejected,
		DepositStatusCompleted, DepositStatusCancelled:
		return true
	}
	return false
}

// Deposit represents a claim that a user transferred funds into the platform.
// Rows are never deleted; terminal states remain queryable for audit.
type Deposit struct {
	ID             uuid.UUID     `json:"id"`
	UserID         uuid.UUID     `json:"user_id"`
	WalletID       uuid.UUID     `json:"wallet_id"`
	Amount         float64       `json:"amount"`
	CurrencyCode   string        `json:"currency_code"`
	DepositMethod  string        `json:"deposit_method"`
	Status         DepositStatus `json:"status"`
	Version        int64         `json:"version"` // increments by 1 on every successful status change
	IdempotencyKey *string       `json:"idempotency_key,omitempty"`
	ApprovedBy     *uuid.UUID    `json:"approved_by,omitempty"`
	ApprovedAt     *time.Time    `json:"approved_at,omitempty"`
	ReversalReason *string       `json:"reversal_reason,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// WalletEffect is the wallet side effect implied by a transition edge.
type WalletEffect string

const (
	WalletEffectNone   WalletEffect = "none"
	WalletEffectCredit WalletEffect = "credit"
	WalletEffectDebit  WalletEffect = "debit"
)

// validTransitions is the single source of truth for legal status changes.
// Side effects derive from which edge is taken, not the destination alone.
var validTransitions = map[DepositStatus][]DepositStatus{
	DepositStatusPending:   {DepositStatusApproved, DepositStatusRejected, DepositStatusCancelled},
	DepositStatusApproved:  {DepositStatusPending, DepositStatusCompleted, DepositStatusRejected},
	DepositStatusCompleted: {DepositStatusPending}, // reversal only
	DepositStatusRejected:  {DepositStatusPending},
	DepositStatusCancelled: {DepositStatusPending},
}

// AllowedTransitions returns the legal destination set for a status.
func AllowedTransitions(from DepositStatus) []DepositStatus {
	return validTransitions[from]
}

// CanTransition reports whether from -> to is a legal edge.
// Self-transitions are never legal.
func CanTransition(from, to DepositStatus) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// EffectOf returns the wallet effect for a transition edge.
// pending -> approved credits; approved -> pending debits; all other
// edges leave the wallet untouched.
func EffectOf(from, to DepositStatus) WalletEffect {
	switch {
	case from == DepositStatusPending && to == DepositStatusApproved:
		return WalletEffectCredit
	case from == DepositStatusApproved && to == DepositStatusPending:
		return WalletEffectDebit
	default:
		return WalletEffectNone
	}
}

// IsReversal reports whether the edge undoes an approval.
func IsReversal(from, to DepositStatus) bool {
	return from == DepositStatusApproved && to == DepositStatusPending
}
