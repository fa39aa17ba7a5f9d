package service

import (
	"context"
	"math"
	"strings"
	"time"

	"deposit-ledger/internal/core/domain"
	"deposit-ledger/internal/core/ports"
	"deposit-ledger/internal/metrics"
	"deposit-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// Converter turns a deposit-currency amount into a wallet-currency amount
// using the latest valid exchange rate.
type Converter struct {
	rates       ports.RateSource
	freshWithin time.Duration
	log         zerolog.Logger
}

// NewConverter creates a Converter. freshWithin controls the advisory
// freshness flag on conversion records.
func NewConverter(rates ports.RateSource, freshWithin time.Duration, log zerolog.Logger) *Converter {
	return &Converter{rates: rates, freshWithin: freshWithin, log: log}
}

// Convert converts amount from one currency to another.
// Same-currency pairs bypass conversion entirely: (nil, nil).
// A missing or unusable rate is a typed ConversionUnavailable error; the
// caller must abort the whole operation before any balance mutation.
func (c *Converter) Convert(ctx context.Context, amount float64, fromCurrency, toCurrency string) (*domain.ConversionRecord, error) {
	from := strings.ToUpper(fromCurrency)
	to := strings.ToUpper(toCurrency)

	if from == to {
		return nil, nil
	}

	rate, err := c.rates.GetLatestRate(ctx, from, to)
	if err != nil {
		return nil, apperror.ErrPersistence(err)
	}
	if rate == nil || rate.Rate <= 0 || math.IsInf(rate.Rate, 0) || math.IsNaN(rate.Rate) {
		c.log.Warn().
			Str("from", from).
			Str("to", to).
			Msg("no exchange rate available")
		metrics.ConversionsTotal.WithLabelValues("unavailable").Inc()
		return nil, apperror.ErrConversionUnavailable(from, to)
	}

	now := time.Now().UTC()
	rec := &domain.ConversionRecord{
		FromCurrency:    from,
		ToCurrency:      to,
		OriginalAmount:  amount,
		ExchangeRate:    rate.Rate,
		ConvertedAmount: amount * rate.Rate,
		RateSource:      rate.Source,
		RateUpdatedAt:   rate.UpdatedAt,
		Timestamp:       now,
		Fresh:           now.Sub(rate.UpdatedAt) <= c.freshWithin,
	}
	rec.Confirmation = domain.BuildRateConfirmation(rec)

	metrics.ConversionsTotal.WithLabelValues("success").Inc()
	return rec, nil
}
