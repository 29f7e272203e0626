package progress

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/goalpath/goalpath-engine/internal/domain"
	"github.com/goalpath/goalpath-engine/internal/usecase/allocation"
	"github.com/goalpath/goalpath-engine/internal/usecase/balance"
	"github.com/goalpath/goalpath-engine/internal/usecase/rates"
)

// BalanceSource resolves an asset's best-known current balance
type BalanceSource interface {
	Resolve(ctx context.Context, asset *domain.Asset, forceRefresh bool) balance.Snapshot
}

// CurrencyConverter converts amounts between currencies with cache fallback
type CurrencyConverter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string, asOf time.Time, forceRefresh bool) (rates.Conversion, error)
}

// Total is a goal's currency-converted current total. Stale is set when any
// contributing balance or rate was served from cache or fell back to zero.
type Total struct {
	Amount decimal.Decimal
	Stale  bool
}

// Service aggregates a goal's current total and progress ratio from its
// allocated assets
type Service struct {
	AllocationRepo domain.AllocationRepository
	AssetRepo      domain.AssetRepository
	Balances       BalanceSource
	Converter      CurrencyConverter
	log            zerolog.Logger
}

// NewService creates a new progress Service instance
func NewService(
	allocationRepo domain.AllocationRepository,
	assetRepo domain.AssetRepository,
	balances BalanceSource,
	converter CurrencyConverter,
	log zerolog.Logger,
) *Service {
	return &Service{
		AllocationRepo: allocationRepo,
		AssetRepo:      assetRepo,
		Balances:       balances,
		Converter:      converter,
		log:            log.With().Str("component", "progress_service").Logger(),
	}
}

// CurrentTotal aggregates the goal's current total in the goal's currency.
// Logic:
//  1. Collect every allocation funding the goal
//  2. For each, resolve the allocated amount in the asset's currency
//  3. Convert to the goal's currency at now
//  4. Sum
//
// A failed lookup or conversion for one asset never aborts the whole
// aggregation: that asset contributes its cached conversion or zero, and the
// total is marked stale. Only the initial allocation read can fail.
func (s *Service) CurrentTotal(ctx context.Context, goal *domain.Goal) (Total, error) {
	allocations, err := s.AllocationRepo.ListByGoal(ctx, goal.ID)
	if err != nil {
		return Total{}, err
	}

	now := time.Now()
	total := Total{Amount: decimal.Zero}

	for _, alloc := range allocations {
		asset, err := s.AssetRepo.GetByID(ctx, alloc.AssetID)
		if err != nil {
			s.log.Warn().
				Err(err).
				Str("asset_id", alloc.AssetID.String()).
				Str("goal_id", goal.ID.String()).
				Msg("Asset lookup failed, skipping its contribution")
			total.Stale = true
			continue
		}

		// The single-allocation rule needs the asset's full allocation set,
		// not just the one pointing at this goal
		assetAllocations, err := s.AllocationRepo.ListByAsset(ctx, asset.ID)
		if err != nil {
			s.log.Warn().
				Err(err).
				Str("asset_id", asset.ID.String()).
				Msg("Allocation lookup failed, skipping asset contribution")
			total.Stale = true
			continue
		}

		snapshot := s.Balances.Resolve(ctx, asset, false)
		if snapshot.Stale {
			total.Stale = true
		}

		amount := allocation.ResolveAllocatedAmount(assetAllocations, goal.ID, snapshot.Amount)
		if amount.IsZero() {
			continue
		}

		conv, err := s.Converter.Convert(ctx, amount, asset.Currency, goal.Currency, now, false)
		if err != nil {
			// Never resolved a rate for this pair: the contribution
			// degrades to zero rather than failing the aggregation
			s.log.Warn().
				Err(err).
				Str("from", asset.Currency).
				Str("to", goal.Currency).
				Msg("Conversion failed with no cached rate, contribution counts as zero")
			total.Stale = true
			continue
		}
		if conv.Stale {
			total.Stale = true
		}

		total.Amount = total.Amount.Add(conv.Amount)
	}

	return total, nil
}

// Progress returns currentTotal / targetAmount, unclamped: an over-funded
// goal reports progress above 1. A zero target reports zero progress.
func (s *Service) Progress(ctx context.Context, goal *domain.Goal) (decimal.Decimal, error) {
	total, err := s.CurrentTotal(ctx, goal)
	if err != nil {
		return decimal.Zero, err
	}
	return Ratio(total.Amount, goal.TargetAmount), nil
}

// Ratio divides current by target, treating a zero target as zero progress.
func Ratio(current, target decimal.Decimal) decimal.Decimal {
	if target.IsZero() {
		return decimal.Zero
	}
	return current.Div(target)
}
