package flex

import (
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/goalpath/goalpath-engine/internal/domain"
)

// Strategy selects how a flex adjustment redistributes contributions.
// Strategies only change distribution, never the portfolio total.
type Strategy string

const (
	// StrategyBalanced scales every non-protected goal proportionally to
	// its original requirement
	StrategyBalanced Strategy = "BALANCED"
	// StrategyUrgent funds the most time-constrained goals first
	StrategyUrgent Strategy = "URGENT"
	// StrategyLargest funds the largest requirements first
	StrategyLargest Strategy = "LARGEST"
	// StrategyRiskMinimizing funds the goals closest to their target first,
	// minimizing the number of goals slipping past their deadline
	StrategyRiskMinimizing Strategy = "RISK_MINIMIZING"
)

// Impact estimates the schedule effect of an adjustment on one goal
type Impact struct {
	GoalID               uuid.UUID
	GoalName             string
	EstimatedDelayMonths int
	AtRisk               bool // true when the adjusted rate slips the schedule
	Paused               bool // true when contributions stop with an open gap
}

// Scenario is the result of one flex adjustment calculation. It is a value
// object owned by the caller; nothing is published until the caller accepts
// it, so a failed calculation leaves prior state untouched.
type Scenario struct {
	Strategy      Strategy
	FlexPercent   decimal.Decimal
	OriginalTotal decimal.Decimal
	AdjustedTotal decimal.Decimal
	Requirements  []domain.MonthlyRequirement
	Impacts       []Impact
}

// Service redistributes required contributions across goals when the
// saver's available budget changes
type Service struct {
	log zerolog.Logger
}

// NewService creates a new flex Service instance
func NewService(log zerolog.Logger) *Service {
	return &Service{
		log: log.With().Str("component", "flex_service").Logger(),
	}
}

var hundred = decimal.NewFromInt(100)

// CalculateScenario applies a global percentage adjustment to the
// requirement set and redistributes it by the chosen strategy.
//
// flexPercent is 0-200+: 100 leaves contributions unchanged, 0 pauses them,
// 200 doubles them. Protected goals are funded at their original
// requirement, consuming budget first. The adjusted total is always
// originalTotal x flexPercent/100, independent of strategy.
func (s *Service) CalculateScenario(
	requirements []domain.MonthlyRequirement,
	flexPercent decimal.Decimal,
	strategy Strategy,
	protectedGoalIDs []uuid.UUID,
) (Scenario, error) {
	if flexPercent.LessThan(decimal.Zero) {
		err := domain.NewValidationError("flex percentage cannot be negative: %s", flexPercent.String())
		s.log.Error().Err(err).Msg("Flex scenario rejected")
		return Scenario{}, err
	}

	switch strategy {
	case StrategyBalanced, StrategyUrgent, StrategyLargest, StrategyRiskMinimizing:
	default:
		err := domain.NewValidationError("unknown flex strategy: %s", string(strategy))
		s.log.Error().Err(err).Msg("Flex scenario rejected")
		return Scenario{}, err
	}

	protected := make(map[uuid.UUID]bool, len(protectedGoalIDs))
	for _, id := range protectedGoalIDs {
		protected[id] = true
	}

	adjusted := make([]domain.MonthlyRequirement, len(requirements))
	copy(adjusted, requirements)

	originalTotal := decimal.Zero
	protectedTotal := decimal.Zero
	var open []int // indexes of non-protected requirements
	for i := range adjusted {
		originalTotal = originalTotal.Add(adjusted[i].RequiredMonthly)
		if protected[adjusted[i].GoalID] {
			adjusted[i].AdjustedMonthly = adjusted[i].RequiredMonthly
			protectedTotal = protectedTotal.Add(adjusted[i].RequiredMonthly)
		} else {
			open = append(open, i)
		}
	}

	adjustedTotal := originalTotal.Mul(flexPercent).Div(hundred)

	// Protected goals consume budget first. When they alone exceed the
	// adjusted total, protection wins: non-protected goals get nothing and
	// the portfolio overshoots the requested total.
	budget := adjustedTotal.Sub(protectedTotal)
	if budget.LessThan(decimal.Zero) {
		s.log.Warn().
			Str("adjusted_total", adjustedTotal.String()).
			Str("protected_total", protectedTotal.String()).
			Msg("Protected requirements exceed the adjusted budget")
		budget = decimal.Zero
	}

	switch strategy {
	case StrategyBalanced:
		distributeProportionally(adjusted, open, budget)
	case StrategyUrgent:
		sort.SliceStable(open, func(a, b int) bool {
			return adjusted[open[a]].MonthsRemaining < adjusted[open[b]].MonthsRemaining
		})
		distributeGreedily(adjusted, open, budget)
	case StrategyLargest:
		sort.SliceStable(open, func(a, b int) bool {
			return adjusted[open[a]].RequiredMonthly.GreaterThan(adjusted[open[b]].RequiredMonthly)
		})
		distributeGreedily(adjusted, open, budget)
	case StrategyRiskMinimizing:
		sort.SliceStable(open, func(a, b int) bool {
			ra := adjusted[open[a]].RemainingAmount()
			rb := adjusted[open[b]].RemainingAmount()
			if !ra.Equal(rb) {
				return ra.LessThan(rb)
			}
			return adjusted[open[a]].MonthsRemaining < adjusted[open[b]].MonthsRemaining
		})
		distributeGreedily(adjusted, open, budget)
	}

	return Scenario{
		Strategy:      strategy,
		FlexPercent:   flexPercent,
		OriginalTotal: originalTotal,
		AdjustedTotal: adjustedTotal,
		Requirements:  adjusted,
		Impacts:       estimateImpacts(adjusted),
	}, nil
}

// distributeProportionally spreads the budget across the open requirements
// in proportion to their original values. With no protected goals this is
// exactly uniform scaling by flexPercent/100.
func distributeProportionally(reqs []domain.MonthlyRequirement, open []int, budget decimal.Decimal) {
	openTotal := decimal.Zero
	for _, i := range open {
		openTotal = openTotal.Add(reqs[i].RequiredMonthly)
	}

	if openTotal.IsZero() {
		for _, i := range open {
			reqs[i].AdjustedMonthly = decimal.Zero
		}
		return
	}

	for _, i := range open {
		reqs[i].AdjustedMonthly = budget.Mul(reqs[i].RequiredMonthly).Div(openTotal)
	}
}

// distributeGreedily fills each open requirement up to its original value in
// ranked order, then spreads any surplus proportionally across all open
// requirements.
func distributeGreedily(reqs []domain.MonthlyRequirement, open []int, budget decimal.Decimal) {
	remaining := budget
	for _, i := range open {
		grant := decimal.Min(reqs[i].RequiredMonthly, remaining)
		if grant.LessThan(decimal.Zero) {
			grant = decimal.Zero
		}
		reqs[i].AdjustedMonthly = grant
		remaining = remaining.Sub(grant)
	}

	if remaining.LessThanOrEqual(decimal.Zero) {
		return
	}

	// Surplus beyond every original requirement (flex above 100)
	openTotal := decimal.Zero
	for _, i := range open {
		openTotal = openTotal.Add(reqs[i].RequiredMonthly)
	}
	if openTotal.IsZero() {
		return
	}
	for _, i := range open {
		extra := remaining.Mul(reqs[i].RequiredMonthly).Div(openTotal)
		reqs[i].AdjustedMonthly = reqs[i].AdjustedMonthly.Add(extra)
	}
}

// estimateImpacts compares months-to-target at the adjusted contribution
// rate against the original rate. A goal is at risk when the adjustment
// delays its estimated completion.
func estimateImpacts(reqs []domain.MonthlyRequirement) []Impact {
	impacts := make([]Impact, 0, len(reqs))
	for i := range reqs {
		impacts = append(impacts, estimateImpact(&reqs[i]))
	}
	return impacts
}

func estimateImpact(req *domain.MonthlyRequirement) Impact {
	impact := Impact{GoalID: req.GoalID, GoalName: req.GoalName}

	gap := req.RemainingAmount()
	if gap.IsZero() || req.RequiredMonthly.IsZero() {
		return impact
	}

	if req.AdjustedMonthly.IsZero() {
		// Contributions paused with an open gap: no completion estimate
		impact.Paused = true
		impact.AtRisk = true
		return impact
	}

	monthsAtOriginal := gap.Div(req.RequiredMonthly)
	monthsAtAdjusted := gap.Div(req.AdjustedMonthly)

	delay := monthsAtAdjusted.Sub(monthsAtOriginal).Ceil().IntPart()
	if delay < 0 {
		delay = 0
	}

	impact.EstimatedDelayMonths = int(delay)
	impact.AtRisk = delay > 0
	return impact
}
