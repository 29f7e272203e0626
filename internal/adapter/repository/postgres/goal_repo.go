package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goalpath/goalpath-engine/internal/domain"
)

// goalRepository implements domain.GoalRepository
type goalRepository struct {
	db *DB
}

// NewGoalRepository creates a new goal repository
func NewGoalRepository(db *DB) domain.GoalRepository {
	return &goalRepository{db: db}
}

const goalColumns = `id, name, target_amount, currency, start_date, deadline, frequency, status`

// GetByID retrieves a goal by its ID
func (r *goalRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals WHERE id = $1`

	goal, err := scanGoal(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.PersistenceError{Op: "get goal", Err: fmt.Errorf("goal %s not found: %w", id, err)}
		}
		return nil, &domain.PersistenceError{Op: "get goal", Err: err}
	}
	return goal, nil
}

// Create creates a new goal
func (r *goalRepository) Create(ctx context.Context, goal *domain.Goal) error {
	query := `
		INSERT INTO goals (` + goalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		goal.ID,
		goal.Name,
		goal.TargetAmount.String(),
		goal.Currency,
		goal.StartDate,
		goal.Deadline,
		string(goal.Frequency),
		string(goal.Status),
	)
	if err != nil {
		return &domain.PersistenceError{Op: "create goal", Err: err}
	}
	return nil
}

// ListActive retrieves all goals with ACTIVE status, soonest deadline first
func (r *goalRepository) ListActive(ctx context.Context) ([]*domain.Goal, error) {
	query := `
		SELECT ` + goalColumns + `
		FROM goals
		WHERE status = $1
		ORDER BY deadline ASC
	`

	rows, err := r.db.QueryContext(ctx, query, string(domain.GoalStatusActive))
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list goals", Err: err}
	}
	defer rows.Close()

	var goals []*domain.Goal
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, &domain.PersistenceError{Op: "list goals", Err: fmt.Errorf("scan: %w", err)}
		}
		goals = append(goals, goal)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.PersistenceError{Op: "list goals", Err: err}
	}

	return goals, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGoal(row rowScanner) (*domain.Goal, error) {
	var goal domain.Goal
	var targetStr string

	err := row.Scan(
		&goal.ID,
		&goal.Name,
		&targetStr,
		&goal.Currency,
		&goal.StartDate,
		&goal.Deadline,
		&goal.Frequency,
		&goal.Status,
	)
	if err != nil {
		return nil, err
	}

	target, err := decimal.NewFromString(targetStr)
	if err != nil {
		return nil, fmt.Errorf("parse target amount: %w", err)
	}
	goal.TargetAmount = target

	return &goal, nil
}
