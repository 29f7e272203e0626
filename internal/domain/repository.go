package domain

import (
	"context"

	"github.com/google/uuid"
)

// AssetRepository defines the interface for asset persistence operations
type AssetRepository interface {
	// GetByID retrieves an asset by its ID, including its manual ledger
	GetByID(ctx context.Context, id uuid.UUID) (*Asset, error)

	// Create creates a new asset
	Create(ctx context.Context, asset *Asset) error

	// List retrieves all assets
	List(ctx context.Context) ([]*Asset, error)
}

// GoalRepository defines the interface for goal persistence operations
type GoalRepository interface {
	// GetByID retrieves a goal by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*Goal, error)

	// Create creates a new goal
	Create(ctx context.Context, goal *Goal) error

	// ListActive retrieves all goals with ACTIVE status
	ListActive(ctx context.Context) ([]*Goal, error)
}

// AllocationRepository defines the interface for allocation persistence
// operations. The allocation graph is a flat join table keyed by
// (asset_id, goal_id) with lookups by either key.
type AllocationRepository interface {
	// ReplaceForAsset atomically replaces the asset's entire allocation set:
	// delete all existing allocations for the asset, then insert the given
	// ones, within a single transaction boundary. No reader observes the
	// asset mid-update.
	ReplaceForAsset(ctx context.Context, assetID uuid.UUID, allocations []Allocation) error

	// ListByAsset retrieves all allocations claiming the given asset
	ListByAsset(ctx context.Context, assetID uuid.UUID) ([]Allocation, error)

	// ListByGoal retrieves all allocations funding the given goal
	ListByGoal(ctx context.Context, goalID uuid.UUID) ([]Allocation, error)
}
