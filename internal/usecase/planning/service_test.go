package planning

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goalpath/goalpath-engine/internal/domain"
	"github.com/goalpath/goalpath-engine/internal/usecase/progress"
)

// stubTotals serves fixed per-goal current totals
type stubTotals struct {
	totals map[uuid.UUID]progress.Total
	fail   map[uuid.UUID]error
}

func (s stubTotals) CurrentTotal(ctx context.Context, goal *domain.Goal) (progress.Total, error) {
	if err := s.fail[goal.ID]; err != nil {
		return progress.Total{}, err
	}
	return s.totals[goal.ID], nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(totals stubTotals) *Service {
	service := NewService(totals, DefaultPolicy(), zerolog.Nop())
	service.Now = func() time.Time { return testNow }
	return service
}

func monthlyGoal(target string, deadline time.Time) *domain.Goal {
	return &domain.Goal{
		ID:           uuid.New(),
		Name:         "House Deposit",
		TargetAmount: dec(target),
		Currency:     "EUR",
		StartDate:    testNow.AddDate(-1, 0, 0),
		Deadline:     deadline,
		Frequency:    domain.FrequencyMonthly,
		Status:       domain.GoalStatusActive,
	}
}

func TestRequirement_TwelveMonthsOut(t *testing.T) {
	// Target 12000, current 0, deadline exactly 12 planning months away
	ctx := context.Background()
	goal := monthlyGoal("12000", testNow.Add(360*24*time.Hour))
	totals := stubTotals{totals: map[uuid.UUID]progress.Total{
		goal.ID: {Amount: decimal.Zero},
	}}

	req, err := newTestService(totals).Requirement(ctx, goal)

	require.NoError(t, err)
	assert.Equal(t, 12, req.MonthsRemaining)
	assert.True(t, req.RequiredMonthly.Equal(dec("1000")))
	assert.True(t, req.Progress.IsZero())
}

func TestRequirement_PastDeadlineFloorsAtOneMonth(t *testing.T) {
	// A goal past its deadline still produces a finite, maximal requirement
	ctx := context.Background()
	goal := monthlyGoal("6000", testNow.Add(-90*24*time.Hour))
	totals := stubTotals{totals: map[uuid.UUID]progress.Total{
		goal.ID: {Amount: dec("1000")},
	}}

	req, err := newTestService(totals).Requirement(ctx, goal)

	require.NoError(t, err)
	assert.Equal(t, 1, req.MonthsRemaining)
	assert.True(t, req.RequiredMonthly.Equal(dec("5000")))
}

func TestRequirement_OverFundedRequiresNothing(t *testing.T) {
	ctx := context.Background()
	goal := monthlyGoal("1000", testNow.Add(180*24*time.Hour))
	totals := stubTotals{totals: map[uuid.UUID]progress.Total{
		goal.ID: {Amount: dec("1500")},
	}}

	req, err := newTestService(totals).Requirement(ctx, goal)

	require.NoError(t, err)
	assert.True(t, req.RequiredMonthly.IsZero())
	assert.True(t, req.Progress.Equal(dec("1.5")))
	assert.True(t, req.ClampedProgress().Equal(dec("1")))
	assert.Equal(t, domain.TrackOnTrack, req.Track)
	assert.Equal(t, domain.RiskLow, req.Risk)
}

func TestRequirement_PartialDaysRoundUpToAMonth(t *testing.T) {
	ctx := context.Background()
	goal := monthlyGoal("1000", testNow.Add(31*24*time.Hour))
	totals := stubTotals{totals: map[uuid.UUID]progress.Total{
		goal.ID: {Amount: decimal.Zero},
	}}

	req, err := newTestService(totals).Requirement(ctx, goal)

	require.NoError(t, err)
	assert.Equal(t, 2, req.MonthsRemaining)
}

func TestRequirement_LowProgressLittleTimeIsCritical(t *testing.T) {
	ctx := context.Background()
	goal := monthlyGoal("10000", testNow.Add(60*24*time.Hour))
	totals := stubTotals{totals: map[uuid.UUID]progress.Total{
		goal.ID: {Amount: dec("1000")}, // 10% with 2 months left
	}}

	req, err := newTestService(totals).Requirement(ctx, goal)

	require.NoError(t, err)
	assert.Equal(t, domain.TrackCritical, req.Track)
	assert.Equal(t, domain.RiskCritical, req.Risk)
}

func TestRequirement_ModerateShortfallNeedsAttention(t *testing.T) {
	ctx := context.Background()
	goal := monthlyGoal("10000", testNow.Add(150*24*time.Hour))
	totals := stubTotals{totals: map[uuid.UUID]progress.Total{
		goal.ID: {Amount: dec("4000")}, // 40% with 5 months left
	}}

	req, err := newTestService(totals).Requirement(ctx, goal)

	require.NoError(t, err)
	assert.Equal(t, domain.TrackAttention, req.Track)
	assert.Equal(t, domain.RiskHigh, req.Risk)
}

func TestRequirement_HealthyGoalIsOnTrack(t *testing.T) {
	ctx := context.Background()
	goal := monthlyGoal("10000", testNow.Add(300*24*time.Hour))
	totals := stubTotals{totals: map[uuid.UUID]progress.Total{
		goal.ID: {Amount: dec("8000")}, // 80% with 10 months left
	}}

	req, err := newTestService(totals).Requirement(ctx, goal)

	require.NoError(t, err)
	assert.Equal(t, domain.TrackOnTrack, req.Track)
	assert.Equal(t, domain.RiskLow, req.Risk)
}

func TestRequirement_WeeklyPeriodScaling(t *testing.T) {
	ctx := context.Background()
	goal := monthlyGoal("3000", testNow.Add(90*24*time.Hour))
	goal.Frequency = domain.FrequencyWeekly
	totals := stubTotals{totals: map[uuid.UUID]progress.Total{
		goal.ID: {Amount: decimal.Zero},
	}}

	req, err := newTestService(totals).Requirement(ctx, goal)

	require.NoError(t, err)
	// 1000/month scaled to a 7-day period: 1000 * 7 / 30
	expected := dec("1000").Mul(dec("7")).Div(dec("30"))
	assert.True(t, req.RequiredPerPeriod.Equal(expected))
}

func TestRequirement_StaleTotalPropagates(t *testing.T) {
	ctx := context.Background()
	goal := monthlyGoal("1000", testNow.Add(90*24*time.Hour))
	totals := stubTotals{totals: map[uuid.UUID]progress.Total{
		goal.ID: {Amount: dec("500"), Stale: true},
	}}

	req, err := newTestService(totals).Requirement(ctx, goal)

	require.NoError(t, err)
	assert.True(t, req.Stale)
}

func TestRequirements_SkipsFailingGoal(t *testing.T) {
	ctx := context.Background()
	good := monthlyGoal("1000", testNow.Add(90*24*time.Hour))
	bad := monthlyGoal("2000", testNow.Add(90*24*time.Hour))
	totals := stubTotals{
		totals: map[uuid.UUID]progress.Total{good.ID: {Amount: dec("500")}},
		fail:   map[uuid.UUID]error{bad.ID: &domain.PersistenceError{Op: "list allocations", Err: assert.AnError}},
	}

	reqs, err := newTestService(totals).Requirements(ctx, []*domain.Goal{good, bad})

	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, good.ID, reqs[0].GoalID)
}
