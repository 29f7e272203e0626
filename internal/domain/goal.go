package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentFrequency represents how often the saver contributes to a goal
type PaymentFrequency string

const (
	FrequencyWeekly   PaymentFrequency = "WEEKLY"
	FrequencyBiweekly PaymentFrequency = "BIWEEKLY"
	FrequencyMonthly  PaymentFrequency = "MONTHLY"
)

// GoalStatus represents the lifecycle status of a goal
type GoalStatus string

const (
	GoalStatusActive   GoalStatus = "ACTIVE"
	GoalStatusArchived GoalStatus = "ARCHIVED"
)

// Goal represents a savings goal with a target amount and a deadline.
// A goal owns no assets directly; it relates to assets only through
// Allocations.
type Goal struct {
	ID           uuid.UUID
	Name         string
	TargetAmount decimal.Decimal
	Currency     string
	StartDate    time.Time
	Deadline     time.Time
	Frequency    PaymentFrequency
	Status       GoalStatus
}

// Validate ensures the goal adheres to domain rules
// Returns an error if validation fails
func (g *Goal) Validate() error {
	if g.Name == "" {
		return errors.New("goal name cannot be empty")
	}

	if g.Currency == "" {
		return errors.New("goal currency cannot be empty")
	}

	if g.TargetAmount.LessThan(decimal.Zero) {
		return errors.New("goal target amount cannot be negative")
	}

	if g.Deadline.IsZero() {
		return errors.New("goal deadline cannot be empty")
	}

	if !g.StartDate.IsZero() && g.Deadline.Before(g.StartDate) {
		return errors.New("goal deadline cannot be before its start date")
	}

	switch g.Frequency {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
	default:
		return errors.New("goal frequency must be WEEKLY, BIWEEKLY, or MONTHLY")
	}

	if g.Status != GoalStatusActive && g.Status != GoalStatusArchived {
		return errors.New("goal status must be ACTIVE or ARCHIVED")
	}

	return nil
}

// IsActive reports whether the goal participates in planning calculations.
func (g *Goal) IsActive() bool {
	return g.Status == GoalStatusActive
}

// PeriodDays returns the length of the goal's contribution period in days.
func (g *Goal) PeriodDays() int {
	switch g.Frequency {
	case FrequencyWeekly:
		return 7
	case FrequencyBiweekly:
		return 14
	default:
		return 30
	}
}
