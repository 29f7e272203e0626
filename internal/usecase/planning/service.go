package planning

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/goalpath/goalpath-engine/internal/domain"
	"github.com/goalpath/goalpath-engine/internal/usecase/progress"
)

// TotalSource aggregates a goal's currency-converted current total
type TotalSource interface {
	CurrentTotal(ctx context.Context, goal *domain.Goal) (progress.Total, error)
}

// Service derives per-goal monthly contribution requirements
type Service struct {
	Totals TotalSource
	Policy Policy
	log    zerolog.Logger

	// Now is the clock used for deadline distances; overridable in tests
	Now func() time.Time
}

// NewService creates a new planning Service instance
func NewService(totals TotalSource, policy Policy, log zerolog.Logger) *Service {
	return &Service{
		Totals: totals,
		Policy: policy,
		log:    log.With().Str("component", "planning_service").Logger(),
		Now:    time.Now,
	}
}

// Requirement computes the goal's MonthlyRequirement.
// Logic:
//  1. monthsRemaining = max(1, ceil(days(today -> deadline) / DaysPerMonth)),
//     so a goal past its deadline still produces a finite maximal requirement
//  2. requiredMonthly = max(0, (target - current) / monthsRemaining)
//  3. progress = current / target (zero target -> zero progress, unclamped)
//  4. track and risk are step functions of progress and monthsRemaining
func (s *Service) Requirement(ctx context.Context, goal *domain.Goal) (domain.MonthlyRequirement, error) {
	total, err := s.Totals.CurrentTotal(ctx, goal)
	if err != nil {
		return domain.MonthlyRequirement{}, err
	}

	now := s.Now()
	months := s.monthsRemaining(now, goal.Deadline)
	monthsDec := decimal.NewFromInt(int64(months))

	required := goal.TargetAmount.Sub(total.Amount).Div(monthsDec)
	if required.LessThan(decimal.Zero) {
		required = decimal.Zero
	}

	ratio := progress.Ratio(total.Amount, goal.TargetAmount)

	perPeriod := required.
		Mul(decimal.NewFromInt(int64(goal.PeriodDays()))).
		Div(decimal.NewFromInt(int64(s.Policy.DaysPerMonth)))

	return domain.MonthlyRequirement{
		GoalID:            goal.ID,
		GoalName:          goal.Name,
		Currency:          goal.Currency,
		MonthsRemaining:   months,
		RequiredMonthly:   required,
		AdjustedMonthly:   required,
		RequiredPerPeriod: perPeriod,
		CurrentTotal:      total.Amount,
		TargetAmount:      goal.TargetAmount,
		Progress:          ratio,
		Track:             s.classifyTrack(ratio, months),
		Risk:              s.classifyRisk(ratio, months),
		Stale:             total.Stale,
		ComputedAt:        now,
	}, nil
}

// Requirements computes requirements for a batch of goals, independently per
// goal. One goal's failure is logged and skips that goal; the rest are
// returned.
func (s *Service) Requirements(ctx context.Context, goals []*domain.Goal) ([]domain.MonthlyRequirement, error) {
	requirements := make([]domain.MonthlyRequirement, 0, len(goals))
	for _, goal := range goals {
		req, err := s.Requirement(ctx, goal)
		if err != nil {
			s.log.Warn().
				Err(err).
				Str("goal_id", goal.ID.String()).
				Str("goal_name", goal.Name).
				Msg("Requirement calculation failed, skipping goal")
			continue
		}
		requirements = append(requirements, req)
	}
	return requirements, nil
}

// monthsRemaining converts the deadline distance to planning months,
// floored at 1
func (s *Service) monthsRemaining(now, deadline time.Time) int {
	days := deadline.Sub(now).Hours() / 24
	months := int(math.Ceil(days / float64(s.Policy.DaysPerMonth)))
	if months < 1 {
		return 1
	}
	return months
}

func (s *Service) classifyTrack(ratio decimal.Decimal, months int) domain.GoalTrack {
	if ratio.LessThan(s.Policy.CriticalProgressBelow) && months <= s.Policy.CriticalMonthsAtOrBelow {
		return domain.TrackCritical
	}
	if ratio.LessThan(s.Policy.CriticalProgressBelow) {
		return domain.TrackAttention
	}
	if ratio.LessThan(s.Policy.AttentionProgressBelow) && months <= s.Policy.AttentionMonthsAtOrBelow {
		return domain.TrackAttention
	}
	return domain.TrackOnTrack
}

func (s *Service) classifyRisk(ratio decimal.Decimal, months int) domain.RiskLevel {
	if ratio.LessThan(s.Policy.CriticalProgressBelow) && months <= s.Policy.CriticalMonthsAtOrBelow {
		return domain.RiskCritical
	}
	if ratio.LessThan(s.Policy.HighRiskProgressBelow) && months <= s.Policy.AttentionMonthsAtOrBelow {
		return domain.RiskHigh
	}
	if ratio.LessThan(s.Policy.MediumRiskProgressBelow) {
		return domain.RiskMedium
	}
	return domain.RiskLow
}
