package redis

import (
	"context"
	"encoding/json"
	"time"

	"deposit-ledger/internal/core/domain"
	"deposit-ledger/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RateCache decorates a ports.RateSource with a short-lived Redis cache.
// Cache failures never fail a conversion: every error path falls through
// to the underlying source.
type RateCache struct {
	source ports.RateSource
	client *goredis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// NewRateCache wraps source with a Redis read-through cache.
func NewRateCache(source ports.RateSource, client *goredis.Client, ttl time.Duration, log zerolog.Logger) *RateCache {
	return &RateCache{source: source, client: client, ttl: ttl, log: log}
}

func rateKey(from, to string) string {
	return "deposit:rate:" + from + ":" + to
}

// GetLatestRate returns the cached rate when present, otherwise reads
// through to the source. Absent pairs are not cached: a rate appearing
// in the source must become usable immediately.
func (c *RateCache) GetLatestRate(ctx context.Context, fromCurrency, toCurrency string) (*domain.ExchangeRate, error) {
	key := rateKey(fromCurrency, toCurrency)

	val, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var rate domain.ExchangeRate
		if jerr := json.Unmarshal(val, &rate); jerr == nil {
			return &rate, nil
		}
		// Corrupt cache entry: drop it and fall through.
		c.client.Del(ctx, key)
	} else if err != goredis.Nil {
		c.log.Warn().Err(err).Str("key", key).Msg("rate cache read failed")
	}

	rate, err := c.source.GetLatestRate(ctx, fromCurrency, toCurrency)
	if err != nil || rate == nil {
		return rate, err
	}

	if data, jerr := json.Marshal(rate); jerr == nil {
		if serr := c.client.Set(ctx, key, data, c.ttl).Err(); serr != nil {
			c.log.Warn().Err(serr).Str("key", key).Msg("rate cache write failed")
		}
	}
	return rate, nil
}
