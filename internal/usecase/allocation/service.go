package allocation

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/goalpath/goalpath-engine/internal/domain"
	"github.com/goalpath/goalpath-engine/internal/usecase/balance"
)

// BalanceSource resolves an asset's best-known current balance
type BalanceSource interface {
	Resolve(ctx context.Context, asset *domain.Asset, forceRefresh bool) balance.Snapshot
}

// Request is one requested allocation entry: a goal's claim on the asset.
// Amounts are in the asset's currency (amount mode) or fractions 0-1
// (percent mode).
type Request struct {
	GoalID uuid.UUID
	Amount decimal.Decimal
}

// Service maintains the many-to-many Asset-Goal allocation graph
type Service struct {
	AllocationRepo domain.AllocationRepository
	Balances       BalanceSource
	log            zerolog.Logger

	// OnChange, when set, is invoked after every successful allocation save
	// so the caller can recompute dependent totals. There is no implicit
	// observer graph: recomputation is always on demand.
	OnChange func(assetID uuid.UUID)
}

// NewService creates a new allocation Service instance
func NewService(allocationRepo domain.AllocationRepository, balances BalanceSource, log zerolog.Logger) *Service {
	return &Service{
		AllocationRepo: allocationRepo,
		Balances:       balances,
		log:            log.With().Str("component", "allocation_service").Logger(),
	}
}

// UpdateAllocations atomically replaces the asset's entire allocation set.
// Logic:
//  1. Drop requests with amount <= 0 (clearing a goal's share)
//  2. Validate the requested sum against the asset's best-known balance
//     (amount mode) or against 1.0 (percent mode), with epsilon tolerance
//  3. Replace all existing allocations for the asset in one store
//     transaction; nothing is written when validation fails
//
// Calling it twice with the same input yields the same stored set.
func (s *Service) UpdateAllocations(ctx context.Context, asset *domain.Asset, requests []Request) error {
	if asset == nil {
		return domain.NewValidationError("asset is required")
	}

	kept := make([]Request, 0, len(requests))
	for _, req := range requests {
		if req.GoalID == uuid.Nil {
			return domain.NewValidationError("allocation request is missing a goal")
		}
		if req.Amount.LessThanOrEqual(decimal.Zero) {
			continue
		}
		kept = append(kept, req)
	}

	snapshot := s.Balances.Resolve(ctx, asset, false)

	ceiling := snapshot.Amount
	if asset.Mode == domain.AllocationModePercent {
		ceiling = decimal.NewFromInt(1)
	}

	sum := decimal.Zero
	for _, req := range kept {
		sum = sum.Add(req.Amount)
	}

	// Exactly-equal sums are accepted; epsilon only absorbs drift
	if sum.GreaterThan(ceiling.Add(domain.SumEpsilon)) {
		return domain.NewValidationError(
			"requested allocations (%s) exceed the asset's available balance (%s)",
			sum.String(), ceiling.String(),
		)
	}

	allocations := make([]domain.Allocation, 0, len(kept))
	for _, req := range kept {
		alloc := domain.Allocation{
			ID:      uuid.New(),
			AssetID: asset.ID,
			GoalID:  req.GoalID,
		}
		if asset.Mode == domain.AllocationModePercent {
			percent := req.Amount
			alloc.Percent = &percent
		} else {
			amount := req.Amount
			alloc.Amount = &amount
		}
		allocations = append(allocations, alloc)
	}

	if err := s.AllocationRepo.ReplaceForAsset(ctx, asset.ID, allocations); err != nil {
		return err
	}

	s.log.Debug().
		Str("asset_id", asset.ID.String()).
		Int("allocation_count", len(allocations)).
		Msg("Replaced asset allocations")

	if s.OnChange != nil {
		s.OnChange(asset.ID)
	}

	return nil
}

// AllocatedAmount returns the amount of the asset's balance claimed by the
// given goal, in the asset's currency.
func (s *Service) AllocatedAmount(ctx context.Context, asset *domain.Asset, goalID uuid.UUID) (decimal.Decimal, error) {
	allocations, err := s.AllocationRepo.ListByAsset(ctx, asset.ID)
	if err != nil {
		return decimal.Zero, err
	}

	snapshot := s.Balances.Resolve(ctx, asset, false)
	return ResolveAllocatedAmount(allocations, goalID, snapshot.Amount), nil
}

// ResolveAllocatedAmount resolves one goal's claimed amount from an asset's
// allocation set against the asset's balance.
// Resolution order for the matching allocation:
//  1. Stored fixed amount, when present
//  2. Percent x balance
//  3. Full balance, when the allocation is the asset's only one
//     (the single-allocation full-ownership rule)
//  4. Zero: an unallocated share among multiple goals is ambiguous and is
//     never split evenly
func ResolveAllocatedAmount(allocations []domain.Allocation, goalID uuid.UUID, assetBalance decimal.Decimal) decimal.Decimal {
	var match *domain.Allocation
	for i := range allocations {
		if allocations[i].GoalID == goalID {
			match = &allocations[i]
			break
		}
	}
	if match == nil {
		return decimal.Zero
	}

	if match.Amount != nil {
		return *match.Amount
	}
	if match.Percent != nil {
		return assetBalance.Mul(*match.Percent)
	}
	if len(allocations) == 1 {
		return assetBalance
	}
	return decimal.Zero
}
