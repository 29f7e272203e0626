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

// assetRepository implements domain.AssetRepository
type assetRepository struct {
	db *DB
}

// NewAssetRepository creates a new asset repository
func NewAssetRepository(db *DB) domain.AssetRepository {
	return &assetRepository{db: db}
}

// GetByID retrieves an asset by its ID, including its manual ledger
func (r *assetRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Asset, error) {
	query := `
		SELECT id, name, currency, chain_id, address, mode
		FROM assets
		WHERE id = $1
	`

	var asset domain.Asset
	var chainID, address sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&asset.ID,
		&asset.Name,
		&asset.Currency,
		&chainID,
		&address,
		&asset.Mode,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.PersistenceError{Op: "get asset", Err: fmt.Errorf("asset %s not found: %w", id, err)}
		}
		return nil, &domain.PersistenceError{Op: "get asset", Err: err}
	}
	asset.ChainID = chainID.String
	asset.Address = address.String

	ledger, err := r.loadLedger(ctx, asset.ID)
	if err != nil {
		return nil, err
	}
	asset.Ledger = ledger

	return &asset, nil
}

// Create creates a new asset along with its ledger entries
func (r *assetRepository) Create(ctx context.Context, asset *domain.Asset) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.PersistenceError{Op: "create asset", Err: err}
	}
	defer dbTx.Rollback()

	insertAsset := `
		INSERT INTO assets (id, name, currency, chain_id, address, mode)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = dbTx.ExecContext(ctx, insertAsset,
		asset.ID,
		asset.Name,
		asset.Currency,
		nullable(asset.ChainID),
		nullable(asset.Address),
		string(asset.Mode),
	)
	if err != nil {
		return &domain.PersistenceError{Op: "create asset", Err: err}
	}

	insertTx := `
		INSERT INTO asset_transactions (id, asset_id, amount, date, note)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, tx := range asset.Ledger {
		_, err := dbTx.ExecContext(ctx, insertTx,
			tx.ID,
			tx.AssetID,
			tx.Amount.String(),
			tx.Date,
			tx.Note,
		)
		if err != nil {
			return &domain.PersistenceError{Op: "create asset", Err: fmt.Errorf("insert ledger entry: %w", err)}
		}
	}

	if err := dbTx.Commit(); err != nil {
		return &domain.PersistenceError{Op: "create asset", Err: fmt.Errorf("commit: %w", err)}
	}

	return nil
}

// List retrieves all assets with their ledgers
func (r *assetRepository) List(ctx context.Context) ([]*domain.Asset, error) {
	query := `
		SELECT id, name, currency, chain_id, address, mode
		FROM assets
		ORDER BY name ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list assets", Err: err}
	}
	defer rows.Close()

	var assets []*domain.Asset
	for rows.Next() {
		var asset domain.Asset
		var chainID, address sql.NullString
		err := rows.Scan(
			&asset.ID,
			&asset.Name,
			&asset.Currency,
			&chainID,
			&address,
			&asset.Mode,
		)
		if err != nil {
			return nil, &domain.PersistenceError{Op: "list assets", Err: fmt.Errorf("scan: %w", err)}
		}
		asset.ChainID = chainID.String
		asset.Address = address.String
		assets = append(assets, &asset)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.PersistenceError{Op: "list assets", Err: err}
	}

	for _, asset := range assets {
		ledger, err := r.loadLedger(ctx, asset.ID)
		if err != nil {
			return nil, err
		}
		asset.Ledger = ledger
	}

	return assets, nil
}

func (r *assetRepository) loadLedger(ctx context.Context, assetID uuid.UUID) ([]domain.Transaction, error) {
	query := `
		SELECT id, asset_id, amount, date, note
		FROM asset_transactions
		WHERE asset_id = $1
		ORDER BY date ASC
	`

	rows, err := r.db.QueryContext(ctx, query, assetID)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "load ledger", Err: err}
	}
	defer rows.Close()

	var ledger []domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		var amountStr string
		var note sql.NullString

		err := rows.Scan(&tx.ID, &tx.AssetID, &amountStr, &tx.Date, &note)
		if err != nil {
			return nil, &domain.PersistenceError{Op: "load ledger", Err: fmt.Errorf("scan: %w", err)}
		}

		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, &domain.PersistenceError{Op: "load ledger", Err: fmt.Errorf("parse amount: %w", err)}
		}
		tx.Amount = amount
		tx.Note = note.String

		ledger = append(ledger, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.PersistenceError{Op: "load ledger", Err: err}
	}

	return ledger, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
