package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction represents a signed manual ledger entry against exactly one asset.
// Deposits are positive, withdrawals negative. Transactions exist only to
// compute an asset's manual balance and balance history.
type Transaction struct {
	ID      uuid.UUID
	AssetID uuid.UUID
	Amount  decimal.Decimal // signed: positive = deposit, negative = withdrawal
	Date    time.Time
	Note    string
}

// Validate ensures the transaction adheres to domain rules
// Returns an error if validation fails
func (t *Transaction) Validate() error {
	if t.AssetID == uuid.Nil {
		return errors.New("transaction must reference an asset")
	}

	if t.Amount.IsZero() {
		return errors.New("transaction amount cannot be zero")
	}

	if t.Date.IsZero() {
		return errors.New("transaction date cannot be empty")
	}

	return nil
}
