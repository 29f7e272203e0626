package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// BalanceProvider fetches a live asset balance from an external source
// (e.g. an on-chain RPC endpoint). Fetches are read-only, idempotent, and
// safely retryable; forceRefresh bypasses any provider-side cache.
type BalanceProvider interface {
	FetchBalance(ctx context.Context, chainID, address, symbol string, forceRefresh bool) (decimal.Decimal, error)
}

// RateProvider converts an amount between currencies at a point in time.
type RateProvider interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string, asOf time.Time) (decimal.Decimal, error)
}
