package domain

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllocationMode represents how an asset's allocations express their share
type AllocationMode string

const (
	// AllocationModeAmount allocations carry a fixed amount in the asset's currency
	AllocationModeAmount AllocationMode = "AMOUNT"
	// AllocationModePercent allocations carry a fraction (0-1) of the asset's balance
	AllocationModePercent AllocationMode = "PERCENT"
)

// Asset represents a funding source for savings goals.
// An asset either tracks a live on-chain balance (ChainID + Address set)
// or a manual ledger of signed transactions.
type Asset struct {
	ID       uuid.UUID
	Name     string
	Currency string // currency or token symbol, e.g. "USDC", "EUR"
	ChainID  string // empty if the asset has no live-balance source
	Address  string // empty if the asset has no live-balance source
	Mode     AllocationMode
	Ledger   []Transaction
}

// Validate ensures the asset adheres to domain rules
// Returns an error if validation fails
func (a *Asset) Validate() error {
	if a.Name == "" {
		return errors.New("asset name cannot be empty")
	}

	if a.Currency == "" {
		return errors.New("asset currency cannot be empty")
	}

	// Chain ID and address come as a pair: one without the other is a
	// misconfigured live-balance source
	if (a.ChainID == "") != (a.Address == "") {
		return errors.New("asset chain ID and address must both be set or both be empty")
	}

	if a.Mode != AllocationModeAmount && a.Mode != AllocationModePercent {
		return errors.New("asset allocation mode must be AMOUNT or PERCENT")
	}

	return nil
}

// HasLiveBalance reports whether the asset's balance is fetched from an
// external balance provider rather than its manual ledger.
func (a *Asset) HasLiveBalance() bool {
	return a.ChainID != "" && a.Address != ""
}

// ManualBalance computes the asset's balance from its manual ledger by
// summing signed transaction amounts.
func (a *Asset) ManualBalance() decimal.Decimal {
	balance := decimal.Zero
	for _, tx := range a.Ledger {
		balance = balance.Add(tx.Amount)
	}
	return balance
}
