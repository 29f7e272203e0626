package domain

import "fmt"

// ValidationError rejects an operation before any persistence write is
// attempted: allocation sum exceeding the balance, negative amounts, a
// missing goal. It is always surfaced synchronously to the caller.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// NewValidationError builds a ValidationError with a formatted reason.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// BalanceUnavailableError reports a failed live-balance fetch. It is
// recovered locally via the cache or the manual ledger and never reaches
// the UI layer.
type BalanceUnavailableError struct {
	ChainID string
	Address string
	Symbol  string
	Err     error
}

func (e *BalanceUnavailableError) Error() string {
	return fmt.Sprintf("balance unavailable for %s/%s (%s): %v", e.ChainID, e.Address, e.Symbol, e.Err)
}

func (e *BalanceUnavailableError) Unwrap() error {
	return e.Err
}

// RateUnavailableError reports a failed currency conversion. Callers degrade
// to a cached rate or a zero contribution; the error never aborts an
// aggregation.
type RateUnavailableError struct {
	From string
	To   string
	Err  error
}

func (e *RateUnavailableError) Error() string {
	return fmt.Sprintf("rate unavailable for %s->%s: %v", e.From, e.To, e.Err)
}

func (e *RateUnavailableError) Unwrap() error {
	return e.Err
}

// PersistenceError reports a failed store operation. Saves report failure to
// their caller with no partial state committed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
