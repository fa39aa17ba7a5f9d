package domain

import (
	"fmt"
	"time"
)

// ExchangeRate is a read-only rate snapshot for an ordered currency pair.
// The engine never writes these; absence is a recoverable condition.
type ExchangeRate struct {
	FromCurrency string    `json:"from_currency"`
	ToCurrency   string    `json:"to_currency"`
	Rate         float64   `json:"rate"`
	Source       string    `json:"source"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ConversionRecord captures everything needed to reconstruct what a user
// was credited and why, for dispute resolution.
type ConversionRecord struct {
	FromCurrency    string            `json:"from_currency"`
	ToCurrency      string            `json:"to_currency"`
	OriginalAmount  float64           `json:"original_amount"`
	ExchangeRate    float64           `json:"exchange_rate"`
	ConvertedAmount float64           `json:"converted_amount"`
	RateSource      string            `json:"rate_source"`
	RateUpdatedAt   time.Time         `json:"rate_updated_at"`
	Timestamp       time.Time         `json:"timestamp"`
	Fresh           bool              `json:"fresh"` // advisory: rate retrieved within the freshness window
	Confirmation    *RateConfirmation `json:"confirmation,omitempty"`
}

// RateConfirmation is the operator-facing confirmation payload.
type RateConfirmation struct {
	RateFormatted            string `json:"rate_formatted"`
	ConvertedAmountFormatted string `json:"converted_amount_formatted"`
	MinutesAgo               int    `json:"minutes_ago"`
	Message                  string `json:"confirmation_message"`
}

// BuildRateConfirmation formats a conversion for operator display.
func BuildRateConfirmation(c *ConversionRecord) *RateConfirmation {
	minutes := int(c.Timestamp.Sub(c.RateUpdatedAt).Minutes())
	if minutes < 0 {
		minutes = 0
	}
	return &RateConfirmation{
		RateFormatted:            fmt.Sprintf("1 %s = %.6f %s", c.FromCurrency, c.ExchangeRate, c.ToCurrency),
		ConvertedAmountFormatted: fmt.Sprintf("%.2f %s", c.ConvertedAmount, c.ToCurrency),
		MinutesAgo:               minutes,
		Message: fmt.Sprintf("Converted %.2f %s to %.2f %s at rate %.6f (source: %s, %dm ago)",
			c.OriginalAmount, c.FromCurrency, c.ConvertedAmount, c.ToCurrency,
			c.ExchangeRate, c.RateSource, minutes),
	}
}
