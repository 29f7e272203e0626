package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goalpath/goalpath-engine/internal/domain"
)

// allocationRepository implements domain.AllocationRepository
type allocationRepository struct {
	db *DB
}

// NewAllocationRepository creates a new allocation repository
func NewAllocationRepository(db *DB) domain.AllocationRepository {
	return &allocationRepository{db: db}
}

// ReplaceForAsset atomically replaces the asset's entire allocation set:
// delete all rows for the asset, then insert the given ones, in one database
// transaction. Nothing is committed on any failure.
func (r *allocationRepository) ReplaceForAsset(ctx context.Context, assetID uuid.UUID, allocations []domain.Allocation) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.PersistenceError{Op: "replace allocations", Err: err}
	}
	defer dbTx.Rollback()

	deleteQuery := `DELETE FROM allocations WHERE asset_id = $1`
	if _, err := dbTx.ExecContext(ctx, deleteQuery, assetID); err != nil {
		return &domain.PersistenceError{Op: "replace allocations", Err: fmt.Errorf("delete existing: %w", err)}
	}

	insertQuery := `
		INSERT INTO allocations (id, asset_id, goal_id, amount, percent)
		VALUES ($1, $2, $3, $4, $5)
	`

	for _, alloc := range allocations {
		var amount, percent sql.NullString
		if alloc.Amount != nil {
			amount = sql.NullString{String: alloc.Amount.String(), Valid: true}
		}
		if alloc.Percent != nil {
			percent = sql.NullString{String: alloc.Percent.String(), Valid: true}
		}

		_, err := dbTx.ExecContext(ctx, insertQuery,
			alloc.ID,
			alloc.AssetID,
			alloc.GoalID,
			amount,
			percent,
		)
		if err != nil {
			return &domain.PersistenceError{Op: "replace allocations", Err: fmt.Errorf("insert allocation: %w", err)}
		}
	}

	if err := dbTx.Commit(); err != nil {
		return &domain.PersistenceError{Op: "replace allocations", Err: fmt.Errorf("commit: %w", err)}
	}

	return nil
}

// ListByAsset retrieves all allocations claiming the given asset
func (r *allocationRepository) ListByAsset(ctx context.Context, assetID uuid.UUID) ([]domain.Allocation, error) {
	query := `
		SELECT id, asset_id, goal_id, amount, percent
		FROM allocations
		WHERE asset_id = $1
	`
	return r.list(ctx, query, assetID)
}

// ListByGoal retrieves all allocations funding the given goal
func (r *allocationRepository) ListByGoal(ctx context.Context, goalID uuid.UUID) ([]domain.Allocation, error) {
	query := `
		SELECT id, asset_id, goal_id, amount, percent
		FROM allocations
		WHERE goal_id = $1
	`
	return r.list(ctx, query, goalID)
}

func (r *allocationRepository) list(ctx context.Context, query string, key uuid.UUID) ([]domain.Allocation, error) {
	rows, err := r.db.QueryContext(ctx, query, key)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list allocations", Err: err}
	}
	defer rows.Close()

	var allocations []domain.Allocation
	for rows.Next() {
		var alloc domain.Allocation
		var amount, percent sql.NullString

		err := rows.Scan(
			&alloc.ID,
			&alloc.AssetID,
			&alloc.GoalID,
			&amount,
			&percent,
		)
		if err != nil {
			return nil, &domain.PersistenceError{Op: "list allocations", Err: fmt.Errorf("scan: %w", err)}
		}

		if amount.Valid {
			value, err := decimal.NewFromString(amount.String)
			if err != nil {
				return nil, &domain.PersistenceError{Op: "list allocations", Err: fmt.Errorf("parse amount: %w", err)}
			}
			alloc.Amount = &value
		}
		if percent.Valid {
			value, err := decimal.NewFromString(percent.String)
			if err != nil {
				return nil, &domain.PersistenceError{Op: "list allocations", Err: fmt.Errorf("parse percent: %w", err)}
			}
			alloc.Percent = &value
		}

		allocations = append(allocations, alloc)
	}

	if err := rows.Err(); err != nil {
		return nil, &domain.PersistenceError{Op: "list allocations", Err: err}
	}

	return allocations, nil
}
