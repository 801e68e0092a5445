package usecase

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/txpipeline/internal/domain"
)

// RatePair identifies one rate lookup.
type RatePair struct {
	Currency string
	Date     sql.NullString
}

// CacheKey returns the persisted cache key for the pair.
func (p RatePair) CacheKey() string {
	date := LatestRateKey
	if p.Date.Valid && p.Date.String != "" {
		date = p.Date.String
	}
	return fmt.Sprintf("%s:%s", strings.ToUpper(p.Currency), date)
}

// ConverterConfig holds Converter dependencies.
type ConverterConfig struct {
	Rates     RateService
	Cache     RateCache
	Reference string
	Metrics   MetricsRecorder
	Logger    zerolog.Logger
}

// Converter computes reference-currency amounts.
type Converter struct {
	rates     RateService
	cache     RateCache
	reference string
	metrics   MetricsRecorder
	logger    zerolog.Logger
}

// NewConverter creates a new Converter.
func NewConverter(cfg ConverterConfig) *Converter {
	if cfg.Reference == "" {
		cfg.Reference = DefaultReferenceCurrency
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NopMetrics{}
	}

	return &Converter{
		rates:     cfg.Rates,
		cache:     cfg.Cache,
		reference: strings.ToUpper(cfg.Reference),
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}
}

// Reference returns the reference currency code.
func (c *Converter) Reference() string {
	return c.reference
}

// ResolveRate returns the rate for one pair: 1 for the reference currency,
// then the cache, then the rate service. A rate the service does not have
// resolves to null. Service transport failures are returned.
func (c *Converter) ResolveRate(ctx context.Context, pair RatePair) (decimal.NullDecimal, error) {
	currency := strings.ToUpper(pair.Currency)
	if currency == "" || currency == c.reference {
		c.metrics.RecordRateLookup(RateLookupReference)
		return decimal.NewNullDecimal(decimal.NewFromInt(1)), nil
	}

	key := pair.CacheKey()
	if c.cache != nil {
		rate, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("rate cache read failed")
		}
		if ok {
			c.metrics.RecordRateLookup(RateLookupCacheHit)
			return decimal.NewNullDecimal(rate), nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultRateLookupTimeout)
	defer cancel()

	rate, err := c.rates.Rate(ctx, currency, c.reference, pair.Date)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("resolve rate %s: %w", key, err)
	}
	if !rate.Valid {
		c.metrics.RecordRateLookup(RateLookupUnavailable)
		c.logger.Info().Str("key", key).Msg("rate unavailable")
		return decimal.NullDecimal{}, nil
	}

	c.metrics.RecordRateLookup(RateLookupService)
	if c.cache != nil {
		if err := c.cache.Put(ctx, key, rate.Decimal); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("rate cache write failed")
		}
	}

	return rate, nil
}

// ResolveRates resolves every distinct (currency, timestamp) pair of records
// exactly once, in first-seen order.
func (c *Converter) ResolveRates(ctx context.Context, records []domain.Transaction) (map[RatePair]decimal.NullDecimal, error) {
	rates := make(map[RatePair]decimal.NullDecimal)
	for _, rec := range records {
		pair := pairOf(rec)
		if _, done := rates[pair]; done {
			continue
		}
		rate, err := c.ResolveRate(ctx, pair)
		if err != nil {
			return nil, err
		}
		rates[pair] = rate
	}
	return rates, nil
}

// Convert returns copies of records with AmountUSD set where both the rate
// and the original amount are available and the rate is non-zero.
func (c *Converter) Convert(ctx context.Context, records []domain.Transaction) ([]domain.Transaction, error) {
	rates, err := c.ResolveRates(ctx, records)
	if err != nil {
		return nil, err
	}

	out := ApplyRates(records, rates)

	c.logger.Info().
		Int("records", len(out)).
		Int("rate_pairs", len(rates)).
		Str("reference", c.reference).
		Msg("amounts converted")

	return out, nil
}

// ApplyRates is the per-record step of Convert. It never fails: any record
// that cannot be converted gets a null AmountUSD.
func ApplyRates(records []domain.Transaction, rates map[RatePair]decimal.NullDecimal) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(records))
	for _, rec := range records {
		converted := rec.Clone()
		converted.Converted = true
		converted.AmountUSD = decimal.NullDecimal{}

		rate := rates[pairOf(rec)]
		if rate.Valid && !rate.Decimal.IsZero() && rec.AmountOriginal.Valid {
			converted.AmountUSD = decimal.NewNullDecimal(rec.AmountOriginal.Decimal.Mul(rate.Decimal))
		}
		out = append(out, converted)
	}
	return out
}

// CountRatePairs returns the number of distinct rate pairs in records.
func CountRatePairs(records []domain.Transaction) int {
	pairs := make(map[RatePair]struct{})
	for _, rec := range records {
		pairs[pairOf(rec)] = struct{}{}
	}
	return len(pairs)
}

func pairOf(rec domain.Transaction) RatePair {
	return RatePair{Currency: rec.Currency.String, Date: rec.Timestamp}
}
