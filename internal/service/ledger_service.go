package service

import (
	"context"
	"fmt"
	"time"

	"deposit-ledger/internal/core/domain"
	"deposit-ledger/internal/core/ports"
	"deposit-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Ledger applies one signed balance change to exactly one wallet and
// produces one WalletTransaction, as a unit inside the caller's
// database transaction.
type Ledger struct {
	wallets   ports.WalletRepository
	entries   ports.WalletTransactionRepository
	converter *Converter
	log       zerolog.Logger
}

// NewLedger creates a Ledger.
func NewLedger(
	wallets ports.WalletRepository,
	entries ports.WalletTransactionRepository,
	converter *Converter,
	log zerolog.Logger,
) *Ledger {
	return &Ledger{wallets: wallets, entries: entries, converter: converter, log: log}
}

// ComputeImpact locks the wallet row and computes the effect of crediting
// or debiting the deposit amount, converting currencies when they differ.
// A debit that would take the balance negative fails with
// InsufficientBalance; no partial debit is ever applied.
func (l *Ledger) ComputeImpact(
	ctx context.Context,
	tx pgx.Tx,
	walletID uuid.UUID,
	amount float64,
	effect domain.WalletEffect,
	depositCurrency string,
) (*domain.WalletImpact, error) {
	wallet, err := l.wallets.GetByIDForUpdate(ctx, tx, walletID)
	if err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	conversion, err := l.converter.Convert(ctx, amount, depositCurrency, wallet.CurrencyCode)
	if err != nil {
		return nil, err
	}

	finalAmount := amount
	if conversion != nil {
		finalAmount = conversion.ConvertedAmount
	}

	var balanceAfter, amountChanged float64
	switch effect {
	case domain.WalletEffectCredit:
		balanceAfter = wallet.Balance + finalAmount
		amountChanged = finalAmount
	case domain.WalletEffectDebit:
		balanceAfter = wallet.Balance - finalAmount
		amountChanged = -finalAmount
		if balanceAfter < 0 {
			return nil, apperror.ErrInsufficientBalance(wallet.Balance, finalAmount)
		}
	default:
		return nil, apperror.InternalError(fmt.Errorf("unsupported wallet effect: %s", effect))
	}

	return &domain.WalletImpact{
		WalletID:        wallet.ID,
		Operation:       effect,
		AmountChanged:   amountChanged,
		BalanceBefore:   wallet.Balance,
		BalanceAfter:    balanceAfter,
		WalletCurrency:  wallet.CurrencyCode,
		DepositCurrency: depositCurrency,
		Conversion:      conversion,
	}, nil
}

// Apply persists the computed impact: the balance write and the ledger
// entry commit or roll back together with the surrounding transaction.
func (l *Ledger) Apply(ctx context.Context, tx pgx.Tx, impact *domain.WalletImpact, depositID uuid.UUID) error {
	if err := l.wallets.UpdateBalance(ctx, tx, impact.WalletID, impact.BalanceAfter); err != nil {
		return apperror.ErrPersistence(fmt.Errorf("update wallet balance: %w", err))
	}

	entryType := domain.WalletTransactionDeposit
	description := fmt.Sprintf("Deposit approved: %.2f", impact.AmountChanged)
	if impact.Operation == domain.WalletEffectDebit {
		entryType = domain.WalletTransactionDepositReversal
		description = fmt.Sprintf("Deposit reversed: %.2f", -impact.AmountChanged)
	}

	entry := &domain.WalletTransaction{
		ID:            uuid.New(),
		WalletID:      impact.WalletID,
		Type:          entryType,
		Amount:        impact.AmountChanged,
		BalanceBefore: impact.BalanceBefore,
		BalanceAfter:  impact.BalanceAfter,
		Description:   description,
		ReferenceID:   depositID,
		CreatedAt:     time.Now().UTC(),
	}
	if err := l.entries.Create(ctx, tx, entry); err != nil {
		return apperror.ErrPersistence(fmt.Errorf("create wallet transaction: %w", err))
	}
	return nil
}
