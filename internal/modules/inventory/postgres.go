package inventory

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

// Receive books the batch and bumps the aggregate stock in one transaction.
// A zero UnitCost on the way in is replaced by the product's clean cost,
// falling back to its purchase price.
func (r *postgresRepo) Receive(ctx context.Context, b *Batch) (*Batch, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var cleanCost sql.NullFloat64
	var purchasePrice float64
	err = tx.QueryRowContext(ctx, `
		SELECT clean_cost, purchase_price FROM products
		WHERE id=$1 AND store_id=$2 AND deleted_at IS NULL
		FOR UPDATE`, b.ProductID, b.StoreID).Scan(&cleanCost, &purchasePrice)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}

	if b.UnitCost == 0 {
		if cleanCost.Valid && cleanCost.Float64 > 0 {
			b.UnitCost = cleanCost.Float64
		} else {
			b.UnitCost = purchasePrice
		}
	}

	if err := ReceiveTx(ctx, tx, b); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return r.getBatch(ctx, b.ID)
}

func (r *postgresRepo) Deduct(ctx context.Context, storeID, productID uuid.UUID, quantity int, preloadedStock *int) ([]Allocation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	allocations, err := DeductTx(ctx, tx, storeID, productID, quantity, preloadedStock)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return allocations, nil
}

func (r *postgresRepo) ListBatches(ctx context.Context, storeID, productID uuid.UUID, includeDrained bool) ([]*Batch, error) {
	query := `
		SELECT id, store_id, product_id, quantity, expiry_date, label, unit_cost, created_at
		FROM batches WHERE store_id=$1 AND product_id=$2`
	if !includeDrained {
		query += ` AND quantity > 0`
	}
	query += ` ORDER BY expiry_date ASC NULLS LAST, created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, storeID, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []*Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

func (r *postgresRepo) getBatch(ctx context.Context, id uuid.UUID) (*Batch, error) {
	return scanBatch(r.db.QueryRowContext(ctx, `
		SELECT id, store_id, product_id, quantity, expiry_date, label, unit_cost, created_at
		FROM batches WHERE id=$1`, id))
}

type rowScanner interface{ Scan(dest ...interface{}) error }

func scanBatch(row rowScanner) (*Batch, error) {
	b := &Batch{}
	var expiry sql.NullTime
	var label sql.NullString
	err := row.Scan(&b.ID, &b.StoreID, &b.ProductID, &b.Quantity, &expiry, &label,
		&b.UnitCost, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	if expiry.Valid {
		b.ExpiryDate = &expiry.Time
	}
	if label.Valid {
		b.Label = label.String
	}
	return b, nil
}
