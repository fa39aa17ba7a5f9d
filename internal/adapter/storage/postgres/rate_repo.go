package postgres

import (
	"context"
	"errors"
	"fmt"

	"deposit-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// RateRepo implements ports.RateSource against the read-only
// exchange_rates table maintained by an external rate feed.
type RateRepo struct {
	pool Pool
}

// NewRateRepo creates a new RateRepo.
func NewRateRepo(pool Pool) *RateRepo {
	return &RateRepo{pool: pool}
}

// GetLatestRate returns the newest rate for an ordered currency pair, or
// (nil, nil) when the pair has no rate at all.
func (r *RateRepo) GetLatestRate(ctx context.Context, fromCurrency, toCurrency string) (*domain.ExchangeRate, error) {
	query := `SELECT from_currency, to_currency, rate, source, updated_at
		FROM exchange_rates
		WHERE from_currency = $1 AND to_currency = $2
		ORDER BY updated_at DESC LIMIT 1`

	rate := &domain.ExchangeRate{}
	err := r.pool.QueryRow(ctx, query, fromCurrency, toCurrency).Scan(
		&rate.FromCurrency, &rate.ToCurrency, &rate.Rate, &rate.Source, &rate.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest exchange rate: %w", err)
	}
	return rate, nil
}
