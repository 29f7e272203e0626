package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GoalTrack is the coarse on-track classification of a goal's funding pace
type GoalTrack string

const (
	TrackOnTrack   GoalTrack = "ON_TRACK"
	TrackAttention GoalTrack = "ATTENTION"
	TrackCritical  GoalTrack = "CRITICAL"
)

// RiskLevel classifies how likely a goal is to miss its deadline under
// current funding
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// MonthlyRequirement is a derived value object: the periodic contribution a
// goal needs to hit its deadline at the current pace. It is recomputed on
// demand and never persisted.
type MonthlyRequirement struct {
	GoalID            uuid.UUID
	GoalName          string
	Currency          string
	MonthsRemaining   int
	RequiredMonthly   decimal.Decimal // contribution needed per 30-day month
	AdjustedMonthly   decimal.Decimal // after a flex adjustment; equals RequiredMonthly otherwise
	RequiredPerPeriod decimal.Decimal // RequiredMonthly scaled to the goal's payment period
	CurrentTotal      decimal.Decimal // goal-currency total at computation time
	TargetAmount      decimal.Decimal
	Progress          decimal.Decimal // unclamped: over-funded goals exceed 1
	Track             GoalTrack
	Risk              RiskLevel
	Stale             bool // true when any underlying balance or rate was served from cache
	ComputedAt        time.Time
}

// ClampedProgress returns the progress ratio clamped to [0, 1] for display.
// Internal calculations always use the unclamped Progress.
func (r *MonthlyRequirement) ClampedProgress() decimal.Decimal {
	one := decimal.NewFromInt(1)
	if r.Progress.GreaterThan(one) {
		return one
	}
	if r.Progress.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	return r.Progress
}

// RemainingAmount returns how much is still missing toward the target,
// floored at zero for over-funded goals.
func (r *MonthlyRequirement) RemainingAmount() decimal.Decimal {
	remaining := r.TargetAmount.Sub(r.CurrentTotal)
	if remaining.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	return remaining
}
