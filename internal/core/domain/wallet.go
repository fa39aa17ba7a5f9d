package domain

import (
	"time"

	"github.com/google/uuid"
)

// Wallet represents a per-user, per-currency balance.
// Mutated only by the ledger updater, always paired with a
// WalletTransaction in the same logical operation.
type Wallet struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	CurrencyCode string    `json:"currency_code"`
	Balance      float64   `json:"balance"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// WalletTransactionType represents the kind of ledger movement.
type WalletTransactionType string

const (
	WalletTransactionDeposit         WalletTransactionType = "deposit"
	WalletTransactionDepositReversal WalletTransactionType = "deposit_reversal"
)

// WalletTransaction is an immutable, append-only ledger entry.
type WalletTransaction struct {
	ID            uuid.UUID             `json:"id"`
	WalletID      uuid.UUID             `json:"wallet_id"`
	Type          WalletTransactionType `json:"type"`
	Amount        float64               `json:"amount"` // signed: credits positive, debits negative
	BalanceBefore float64               `json:"balance_before"`
	BalanceAfter  float64               `json:"balance_after"`
	Description   string                `json:"description"`
	ReferenceID   uuid.UUID             `json:"reference_id"` // originating deposit
	CreatedAt     time.Time             `json:"created_at"`
}

// WalletImpact captures the computed effect of a status change on a wallet.
// Produced even for same-currency credits so downstream consumers get a
// uniform shape (Conversion is nil when no conversion happened).
type WalletImpact struct {
	WalletID        uuid.UUID         `json:"wallet_id"`
	Operation       WalletEffect      `json:"operation"`
	AmountChanged   float64           `json:"amount_changed"` // signed
	BalanceBefore   float64           `json:"balance_before"`
	BalanceAfter    float64           `json:"balance_after"`
	WalletCurrency  string            `json:"wallet_currency"`
	DepositCurrency string            `json:"deposit_currency"`
	Conversion      *ConversionRecord `json:"conversion"`
}
