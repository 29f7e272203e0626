package rates

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/goalpath/goalpath-engine/internal/domain"
)

// Conversion is the result of converting an amount between currencies.
type Conversion struct {
	Amount      decimal.Decimal
	Rate        decimal.Decimal
	Stale       bool // true when the rate came from an older cached day
	LastUpdated time.Time
}

type cachedRate struct {
	rate      decimal.Decimal
	day       string
	fetchedAt time.Time
}

// Converter converts amounts between currencies through a RateProvider,
// caching rates by currency pair + day. A failed fetch falls back to the
// most recently cached rate for the pair; only when no rate was ever
// resolved does the conversion fail with RateUnavailableError.
type Converter struct {
	provider domain.RateProvider
	log      zerolog.Logger

	mu    sync.RWMutex
	cache map[string]cachedRate // keyed by "FROM|TO"
	group singleflight.Group

	// retry bounds for provider fetches
	retryInitial time.Duration
	retryElapsed time.Duration
}

// NewConverter creates a new Converter instance
func NewConverter(provider domain.RateProvider, log zerolog.Logger) *Converter {
	return &Converter{
		provider:     provider,
		log:          log.With().Str("component", "rate_converter").Logger(),
		cache:        make(map[string]cachedRate),
		retryInitial: 200 * time.Millisecond,
		retryElapsed: 10 * time.Second,
	}
}

// Convert converts amount from one currency to another as of the given time.
// Same-currency conversions are the identity and never touch the provider.
func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, from, to string, asOf time.Time, forceRefresh bool) (Conversion, error) {
	if from == to {
		return Conversion{
			Amount:      amount,
			Rate:        decimal.NewFromInt(1),
			LastUpdated: asOf,
		}, nil
	}

	pair := fmt.Sprintf("%s|%s", from, to)
	day := asOf.UTC().Format("2006-01-02")

	if !forceRefresh {
		if entry, ok := c.lookup(pair); ok && entry.day == day {
			return Conversion{
				Amount:      amount.Mul(entry.rate),
				Rate:        entry.rate,
				LastUpdated: entry.fetchedAt,
			}, nil
		}
	}

	rate, err := c.fetch(ctx, pair, day, from, to, asOf)
	if err == nil {
		return Conversion{
			Amount:      amount.Mul(rate),
			Rate:        rate,
			LastUpdated: time.Now(),
		}, nil
	}

	c.log.Warn().
		Err(err).
		Str("from", from).
		Str("to", to).
		Msg("Rate fetch failed, falling back to cached rate")

	// Any previously resolved rate for the pair beats failing outright,
	// even one from an earlier day
	if entry, ok := c.lookup(pair); ok {
		return Conversion{
			Amount:      amount.Mul(entry.rate),
			Rate:        entry.rate,
			Stale:       true,
			LastUpdated: entry.fetchedAt,
		}, nil
	}

	return Conversion{}, err
}

// fetch resolves the pair's rate for one day under singleflight, retrying
// transient provider failures. The rate is derived by converting 1 unit.
func (c *Converter) fetch(ctx context.Context, pair, day, from, to string, asOf time.Time) (decimal.Decimal, error) {
	key := pair + "|" + day
	v, err, _ := c.group.Do(key, func() (any, error) {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = c.retryInitial
		b.MaxInterval = 2 * time.Second
		b.MaxElapsedTime = c.retryElapsed

		one := decimal.NewFromInt(1)
		var rate decimal.Decimal
		operation := func() error {
			converted, fetchErr := c.provider.Convert(ctx, one, from, to, asOf)
			if fetchErr != nil {
				return fetchErr
			}
			rate = converted
			return nil
		}

		if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
			return decimal.Zero, &domain.RateUnavailableError{From: from, To: to, Err: err}
		}

		c.store(pair, day, rate)
		return rate, nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return v.(decimal.Decimal), nil
}

func (c *Converter) lookup(pair string) (cachedRate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[pair]
	return entry, ok
}

func (c *Converter) store(pair, day string, rate decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[pair] = cachedRate{rate: rate, day: day, fetchedAt: time.Now()}
}
