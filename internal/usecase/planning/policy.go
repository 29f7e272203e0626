package planning

import "github.com/shopspring/decimal"

// Policy holds the planning constants: the day-to-month conversion and the
// classification thresholds. The values are policy choices, not calendar
// math, and goal behavior is defined relative to them; override only when
// the product definition changes.
type Policy struct {
	// DaysPerMonth converts day distances to planning months
	DaysPerMonth int

	// A goal below this progress with at most CriticalMonthsAtOrBelow
	// planning months left is CRITICAL
	CriticalProgressBelow   decimal.Decimal
	CriticalMonthsAtOrBelow int

	// A goal below this progress with at most AttentionMonthsAtOrBelow
	// months left needs ATTENTION; so does any goal below the critical
	// progress threshold regardless of time left
	AttentionProgressBelow   decimal.Decimal
	AttentionMonthsAtOrBelow int

	// Risk ladder: HIGH below this progress within the attention window,
	// MEDIUM below MediumRiskProgressBelow, LOW otherwise
	HighRiskProgressBelow   decimal.Decimal
	MediumRiskProgressBelow decimal.Decimal
}

// DefaultPolicy returns the thresholds the product was defined against.
func DefaultPolicy() Policy {
	return Policy{
		DaysPerMonth:             30,
		CriticalProgressBelow:    decimal.RequireFromString("0.25"),
		CriticalMonthsAtOrBelow:  3,
		AttentionProgressBelow:   decimal.RequireFromString("0.5"),
		AttentionMonthsAtOrBelow: 6,
		HighRiskProgressBelow:    decimal.RequireFromString("0.5"),
		MediumRiskProgressBelow:  decimal.RequireFromString("0.75"),
	}
}
