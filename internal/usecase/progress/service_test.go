package progress

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/goalpath/goalpath-engine/internal/domain"
	"github.com/goalpath/goalpath-engine/internal/usecase/balance"
	"github.com/goalpath/goalpath-engine/internal/usecase/rates"
)

// MockAllocationRepository is a mock implementation of AllocationRepository for testing
type MockAllocationRepository struct {
	mock.Mock
}

func (m *MockAllocationRepository) ReplaceForAsset(ctx context.Context, assetID uuid.UUID, allocations []domain.Allocation) error {
	args := m.Called(ctx, assetID, allocations)
	return args.Error(0)
}

func (m *MockAllocationRepository) ListByAsset(ctx context.Context, assetID uuid.UUID) ([]domain.Allocation, error) {
	args := m.Called(ctx, assetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Allocation), args.Error(1)
}

func (m *MockAllocationRepository) ListByGoal(ctx context.Context, goalID uuid.UUID) ([]domain.Allocation, error) {
	args := m.Called(ctx, goalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Allocation), args.Error(1)
}

// MockAssetRepository is a mock implementation of AssetRepository for testing
type MockAssetRepository struct {
	mock.Mock
}

func (m *MockAssetRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Asset, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Asset), args.Error(1)
}

func (m *MockAssetRepository) Create(ctx context.Context, asset *domain.Asset) error {
	args := m.Called(ctx, asset)
	return args.Error(0)
}

func (m *MockAssetRepository) List(ctx context.Context) ([]*domain.Asset, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Asset), args.Error(1)
}

// stubBalances resolves fixed per-asset balances
type stubBalances struct {
	amounts map[uuid.UUID]decimal.Decimal
	stale   bool
}

func (s stubBalances) Resolve(ctx context.Context, asset *domain.Asset, forceRefresh bool) balance.Snapshot {
	return balance.Snapshot{
		Amount: s.amounts[asset.ID],
		Source: balance.SourceManual,
		Stale:  s.stale,
	}
}

// stubConverter converts with fixed pair rates; pairs in fail error out
type stubConverter struct {
	rate map[string]decimal.Decimal
	fail map[string]bool
}

func pairKey(from, to string) string {
	return fmt.Sprintf("%s|%s", from, to)
}

func (s stubConverter) Convert(ctx context.Context, amount decimal.Decimal, from, to string, asOf time.Time, forceRefresh bool) (rates.Conversion, error) {
	if from == to {
		return rates.Conversion{Amount: amount, Rate: decimal.NewFromInt(1)}, nil
	}
	key := pairKey(from, to)
	if s.fail[key] {
		return rates.Conversion{}, &domain.RateUnavailableError{From: from, To: to, Err: assert.AnError}
	}
	rate := s.rate[key]
	return rates.Conversion{Amount: amount.Mul(rate), Rate: rate}, nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func eurGoal(target string) *domain.Goal {
	return &domain.Goal{
		ID:           uuid.New(),
		Name:         "House Deposit",
		TargetAmount: dec(target),
		Currency:     "EUR",
		Deadline:     time.Now().AddDate(1, 0, 0),
		Frequency:    domain.FrequencyMonthly,
		Status:       domain.GoalStatusActive,
	}
}

func TestCurrentTotal_SumsConvertedAllocations(t *testing.T) {
	ctx := context.Background()
	mockAllocRepo := new(MockAllocationRepository)
	mockAssetRepo := new(MockAssetRepository)

	goal := eurGoal("10000")

	usdcAsset := &domain.Asset{ID: uuid.New(), Name: "USDC Wallet", Currency: "USDC", Mode: domain.AllocationModeAmount}
	eurAsset := &domain.Asset{ID: uuid.New(), Name: "Bank", Currency: "EUR", Mode: domain.AllocationModeAmount}

	usdcAlloc := domain.Allocation{ID: uuid.New(), AssetID: usdcAsset.ID, GoalID: goal.ID, Amount: decPtr("1000")}
	eurAlloc := domain.Allocation{ID: uuid.New(), AssetID: eurAsset.ID, GoalID: goal.ID, Amount: decPtr("500")}

	mockAllocRepo.On("ListByGoal", ctx, goal.ID).Return([]domain.Allocation{usdcAlloc, eurAlloc}, nil)
	mockAllocRepo.On("ListByAsset", ctx, usdcAsset.ID).Return([]domain.Allocation{usdcAlloc}, nil)
	mockAllocRepo.On("ListByAsset", ctx, eurAsset.ID).Return([]domain.Allocation{eurAlloc}, nil)
	mockAssetRepo.On("GetByID", ctx, usdcAsset.ID).Return(usdcAsset, nil)
	mockAssetRepo.On("GetByID", ctx, eurAsset.ID).Return(eurAsset, nil)

	balances := stubBalances{amounts: map[uuid.UUID]decimal.Decimal{
		usdcAsset.ID: dec("5000"),
		eurAsset.ID:  dec("2000"),
	}}
	converter := stubConverter{rate: map[string]decimal.Decimal{
		pairKey("USDC", "EUR"): dec("0.9"),
	}}

	service := NewService(mockAllocRepo, mockAssetRepo, balances, converter, zerolog.Nop())

	total, err := service.CurrentTotal(ctx, goal)

	require.NoError(t, err)
	// 1000 USDC * 0.9 + 500 EUR = 1400 EUR
	assert.True(t, total.Amount.Equal(dec("1400")))
	assert.False(t, total.Stale)
	mockAllocRepo.AssertExpectations(t)
}

func TestCurrentTotal_ConversionFailureDegradesToZeroContribution(t *testing.T) {
	ctx := context.Background()
	mockAllocRepo := new(MockAllocationRepository)
	mockAssetRepo := new(MockAssetRepository)

	goal := eurGoal("10000")

	btcAsset := &domain.Asset{ID: uuid.New(), Name: "BTC Wallet", Currency: "BTC", Mode: domain.AllocationModeAmount}
	eurAsset := &domain.Asset{ID: uuid.New(), Name: "Bank", Currency: "EUR", Mode: domain.AllocationModeAmount}

	btcAlloc := domain.Allocation{ID: uuid.New(), AssetID: btcAsset.ID, GoalID: goal.ID, Amount: decPtr("0.1")}
	eurAlloc := domain.Allocation{ID: uuid.New(), AssetID: eurAsset.ID, GoalID: goal.ID, Amount: decPtr("500")}

	mockAllocRepo.On("ListByGoal", ctx, goal.ID).Return([]domain.Allocation{btcAlloc, eurAlloc}, nil)
	mockAllocRepo.On("ListByAsset", ctx, btcAsset.ID).Return([]domain.Allocation{btcAlloc}, nil)
	mockAllocRepo.On("ListByAsset", ctx, eurAsset.ID).Return([]domain.Allocation{eurAlloc}, nil)
	mockAssetRepo.On("GetByID", ctx, btcAsset.ID).Return(btcAsset, nil)
	mockAssetRepo.On("GetByID", ctx, eurAsset.ID).Return(eurAsset, nil)

	balances := stubBalances{amounts: map[uuid.UUID]decimal.Decimal{
		btcAsset.ID: dec("1"),
		eurAsset.ID: dec("2000"),
	}}
	converter := stubConverter{fail: map[string]bool{
		pairKey("BTC", "EUR"): true,
	}}

	service := NewService(mockAllocRepo, mockAssetRepo, balances, converter, zerolog.Nop())

	total, err := service.CurrentTotal(ctx, goal)

	// The failed BTC conversion never aborts the aggregation
	require.NoError(t, err)
	assert.True(t, total.Amount.Equal(dec("500")))
	assert.True(t, total.Stale)
}

func TestCurrentTotal_SingleAllocationOwnsFullBalance(t *testing.T) {
	ctx := context.Background()
	mockAllocRepo := new(MockAllocationRepository)
	mockAssetRepo := new(MockAssetRepository)

	goal := eurGoal("10000")

	asset := &domain.Asset{ID: uuid.New(), Name: "Bank", Currency: "EUR", Mode: domain.AllocationModeAmount}
	// Share-less allocation: the asset's only one, so the goal owns it all
	alloc := domain.Allocation{ID: uuid.New(), AssetID: asset.ID, GoalID: goal.ID}

	mockAllocRepo.On("ListByGoal", ctx, goal.ID).Return([]domain.Allocation{alloc}, nil)
	mockAllocRepo.On("ListByAsset", ctx, asset.ID).Return([]domain.Allocation{alloc}, nil)
	mockAssetRepo.On("GetByID", ctx, asset.ID).Return(asset, nil)

	balances := stubBalances{amounts: map[uuid.UUID]decimal.Decimal{asset.ID: dec("3000")}}
	service := NewService(mockAllocRepo, mockAssetRepo, balances, stubConverter{}, zerolog.Nop())

	total, err := service.CurrentTotal(ctx, goal)

	require.NoError(t, err)
	assert.True(t, total.Amount.Equal(dec("3000")))
}

func TestProgress_ZeroTargetIsZero(t *testing.T) {
	ctx := context.Background()
	mockAllocRepo := new(MockAllocationRepository)
	mockAssetRepo := new(MockAssetRepository)

	goal := eurGoal("0")
	mockAllocRepo.On("ListByGoal", ctx, goal.ID).Return([]domain.Allocation{}, nil)

	service := NewService(mockAllocRepo, mockAssetRepo, stubBalances{}, stubConverter{}, zerolog.Nop())

	ratio, err := service.Progress(ctx, goal)

	require.NoError(t, err)
	assert.True(t, ratio.IsZero())
}

func TestProgress_OverFundedExceedsOne(t *testing.T) {
	ctx := context.Background()
	mockAllocRepo := new(MockAllocationRepository)
	mockAssetRepo := new(MockAssetRepository)

	goal := eurGoal("1000")
	asset := &domain.Asset{ID: uuid.New(), Name: "Bank", Currency: "EUR", Mode: domain.AllocationModeAmount}
	alloc := domain.Allocation{ID: uuid.New(), AssetID: asset.ID, GoalID: goal.ID, Amount: decPtr("1500")}

	mockAllocRepo.On("ListByGoal", ctx, goal.ID).Return([]domain.Allocation{alloc}, nil)
	mockAllocRepo.On("ListByAsset", ctx, asset.ID).Return([]domain.Allocation{alloc}, nil)
	mockAssetRepo.On("GetByID", ctx, asset.ID).Return(asset, nil)

	service := NewService(mockAllocRepo, mockAssetRepo, stubBalances{amounts: map[uuid.UUID]decimal.Decimal{asset.ID: dec("1500")}}, stubConverter{}, zerolog.Nop())

	ratio, err := service.Progress(ctx, goal)

	require.NoError(t, err)
	assert.True(t, ratio.Equal(dec("1.5")))
}

func TestCurrentTotal_UnrelatedGoalUnaffected(t *testing.T) {
	// Changing one asset's allocation to goal A must not change goal B's
	// total: B only reads allocations pointing at B
	ctx := context.Background()
	mockAllocRepo := new(MockAllocationRepository)
	mockAssetRepo := new(MockAssetRepository)

	goalB := eurGoal("10000")
	assetShared := &domain.Asset{ID: uuid.New(), Name: "Shared", Currency: "EUR", Mode: domain.AllocationModeAmount}
	goalAID := uuid.New()

	allocA := domain.Allocation{ID: uuid.New(), AssetID: assetShared.ID, GoalID: goalAID, Amount: decPtr("700")}
	allocB := domain.Allocation{ID: uuid.New(), AssetID: assetShared.ID, GoalID: goalB.ID, Amount: decPtr("300")}

	mockAllocRepo.On("ListByGoal", ctx, goalB.ID).Return([]domain.Allocation{allocB}, nil)
	mockAllocRepo.On("ListByAsset", ctx, assetShared.ID).Return([]domain.Allocation{allocA, allocB}, nil)
	mockAssetRepo.On("GetByID", ctx, assetShared.ID).Return(assetShared, nil)

	service := NewService(mockAllocRepo, mockAssetRepo, stubBalances{amounts: map[uuid.UUID]decimal.Decimal{assetShared.ID: dec("1000")}}, stubConverter{}, zerolog.Nop())

	total, err := service.CurrentTotal(ctx, goalB)

	require.NoError(t, err)
	assert.True(t, total.Amount.Equal(dec("300")))
}
