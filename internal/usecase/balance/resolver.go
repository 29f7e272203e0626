package balance

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

// Source identifies where a balance snapshot came from
type Source string

const (
	SourceLive   Source = "LIVE"
	SourceCached Source = "CACHED"
	SourceManual Source = "MANUAL"
)

// Snapshot is a best-effort view of an asset's current balance.
// Staleness is surfaced through Stale and LastUpdated rather than by
// invalidating cache entries.
type Snapshot struct {
	Amount      decimal.Decimal
	Source      Source
	Stale       bool
	LastUpdated time.Time
}

type cacheEntry struct {
	amount    decimal.Decimal
	fetchedAt time.Time
}

// Resolver resolves an asset's best-known current balance. Live balances go
// through a short-lived cache keyed by chain id + address + symbol; failed
// fetches fall back to the last cached value, then to the manual ledger.
// Resolution never returns an error to the caller.
type Resolver struct {
	provider domain.BalanceProvider
	log      zerolog.Logger

	mu    sync.RWMutex
	cache map[string]cacheEntry
	group singleflight.Group

	// retry bounds for provider fetches
	retryInitial time.Duration
	retryElapsed time.Duration
}

// NewResolver creates a new Resolver instance
func NewResolver(provider domain.BalanceProvider, log zerolog.Logger) *Resolver {
	return &Resolver{
		provider:     provider,
		log:          log.With().Str("component", "balance_resolver").Logger(),
		cache:        make(map[string]cacheEntry),
		retryInitial: 200 * time.Millisecond,
		retryElapsed: 10 * time.Second,
	}
}

// Resolve returns the asset's best-known current balance.
// Logic:
//  1. Assets without a live-balance source always use the manual ledger
//  2. Cached live balance is served unless forceRefresh is set
//  3. Cache miss (or refresh) fetches from the provider, with retries;
//     concurrent callers for the same asset share one in-flight fetch
//  4. On fetch failure: last cached value (marked stale), else manual ledger
func (r *Resolver) Resolve(ctx context.Context, asset *domain.Asset, forceRefresh bool) Snapshot {
	if !asset.HasLiveBalance() {
		return Snapshot{
			Amount:      asset.ManualBalance(),
			Source:      SourceManual,
			LastUpdated: time.Now(),
		}
	}

	key := cacheKey(asset.ChainID, asset.Address, asset.Currency)

	if !forceRefresh {
		if entry, ok := r.lookup(key); ok {
			return Snapshot{
				Amount:      entry.amount,
				Source:      SourceCached,
				LastUpdated: entry.fetchedAt,
			}
		}
	}

	amount, err := r.fetch(ctx, key, asset, forceRefresh)
	if err == nil {
		return Snapshot{
			Amount:      amount,
			Source:      SourceLive,
			LastUpdated: time.Now(),
		}
	}

	r.log.Warn().
		Err(err).
		Str("chain_id", asset.ChainID).
		Str("address", asset.Address).
		Str("symbol", asset.Currency).
		Msg("Live balance fetch failed, falling back")

	// A forced refresh that failed may still have an older cached value
	if entry, ok := r.lookup(key); ok {
		return Snapshot{
			Amount:      entry.amount,
			Source:      SourceCached,
			Stale:       true,
			LastUpdated: entry.fetchedAt,
		}
	}

	return Snapshot{
		Amount:      asset.ManualBalance(),
		Source:      SourceManual,
		Stale:       true,
		LastUpdated: time.Now(),
	}
}

// fetch calls the provider under singleflight so concurrent resolutions of
// the same asset share one network call. The cache is written only on
// success; a cancelled fetch never corrupts it.
func (r *Resolver) fetch(ctx context.Context, key string, asset *domain.Asset, forceRefresh bool) (decimal.Decimal, error) {
	v, err, _ := r.group.Do(key, func() (any, error) {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = r.retryInitial
		b.MaxInterval = 2 * time.Second
		b.MaxElapsedTime = r.retryElapsed

		var amount decimal.Decimal
		operation := func() error {
			var fetchErr error
			amount, fetchErr = r.provider.FetchBalance(ctx, asset.ChainID, asset.Address, asset.Currency, forceRefresh)
			return fetchErr
		}

		if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
			return decimal.Zero, &domain.BalanceUnavailableError{
				ChainID: asset.ChainID,
				Address: asset.Address,
				Symbol:  asset.Currency,
				Err:     err,
			}
		}

		r.store(key, amount)
		return amount, nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return v.(decimal.Decimal), nil
}

func (r *Resolver) lookup(key string) (cacheEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[key]
	return entry, ok
}

func (r *Resolver) store(key string, amount decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[key] = cacheEntry{amount: amount, fetchedAt: time.Now()}
}

func cacheKey(chainID, address, symbol string) string {
	return fmt.Sprintf("%s|%s|%s", chainID, address, symbol)
}
