package domain

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SumEpsilon is the tolerance applied when comparing an asset's allocation
// sum against its balance (amount mode) or against 1.0 (percent mode).
// The tolerance exists to absorb floating-point drift in values that
// originated outside decimal arithmetic.
var SumEpsilon = decimal.RequireFromString("0.0000001")

// Allocation is the join entity between one Asset and one Goal: a claim by
// the goal on a fixed amount or a fraction of the asset's balance.
// When both Amount and Percent are set, Amount is authoritative.
//
// Allocations are replaced wholesale on every save (delete-then-insert for
// the asset), never partially patched.
type Allocation struct {
	ID      uuid.UUID
	AssetID uuid.UUID
	GoalID  uuid.UUID
	Amount  *decimal.Decimal // fixed amount in the asset's currency
	Percent *decimal.Decimal // fraction of the asset's balance, 0-1
}

// Validate ensures the allocation adheres to domain rules
// Returns an error if validation fails
func (a *Allocation) Validate() error {
	if a.AssetID == uuid.Nil {
		return errors.New("allocation must reference an asset")
	}

	if a.GoalID == uuid.Nil {
		return errors.New("allocation must reference a goal")
	}

	if a.Amount == nil && a.Percent == nil {
		return errors.New("allocation must carry an amount or a percent")
	}

	if a.Amount != nil && a.Amount.LessThan(decimal.Zero) {
		return errors.New("allocation amount cannot be negative")
	}

	if a.Percent != nil {
		if a.Percent.LessThan(decimal.Zero) || a.Percent.GreaterThan(decimal.NewFromInt(1)) {
			return errors.New("allocation percent must be between 0 and 1")
		}
	}

	return nil
}

// ValueAgainst resolves the concrete amount this allocation claims from a
// balance. Amount wins over Percent when both are present.
func (a *Allocation) ValueAgainst(balance decimal.Decimal) decimal.Decimal {
	if a.Amount != nil {
		return *a.Amount
	}
	if a.Percent != nil {
		return balance.Mul(*a.Percent)
	}
	return decimal.Zero
}

// NormalizeToAmount converts a legacy percent-only allocation to the
// canonical amount form against the given balance. Amount-carrying
// allocations are returned unchanged; percent is a one-time input, not a
// live claim that tracks balance changes.
func (a Allocation) NormalizeToAmount(balance decimal.Decimal) Allocation {
	if a.Amount != nil || a.Percent == nil {
		return a
	}
	amount := balance.Mul(*a.Percent)
	a.Amount = &amount
	a.Percent = nil
	return a
}

// ValidateAllocationSet checks the partition invariant for one asset's
// allocations: the sum of claimed shares must not exceed the whole.
// In amount mode the ceiling is the asset balance; in percent mode it is 1.0.
// Exactly-equal sums are accepted; the epsilon only tolerates drift.
func ValidateAllocationSet(mode AllocationMode, balance decimal.Decimal, allocations []Allocation) error {
	if len(allocations) == 0 {
		return nil
	}

	ceiling := balance
	if mode == AllocationModePercent {
		ceiling = decimal.NewFromInt(1)
	}

	sum := decimal.Zero
	for i := range allocations {
		if err := allocations[i].Validate(); err != nil {
			return err
		}

		if mode == AllocationModePercent && allocations[i].Amount == nil {
			sum = sum.Add(*allocations[i].Percent)
			continue
		}
		sum = sum.Add(allocations[i].ValueAgainst(balance))
	}

	if sum.GreaterThan(ceiling.Add(SumEpsilon)) {
		return errors.New("allocation sum exceeds the asset's available balance")
	}

	return nil
}
