package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// The helpers in this file operate on an open *sql.Tx so that a caller can
// fold batch mutations into a larger atomic unit. The sales module runs
// DeductTx inside the same transaction that inserts the sale rows; the
// inventory repository wraps them in a transaction of its own for the
// standalone endpoints. All stock writes in the system go through here.

// LockProductStock reads a product's aggregate stock under a row lock,
// serializing concurrent deductions against the same product.
func LockProductStock(ctx context.Context, tx *sql.Tx, storeID, productID uuid.UUID) (int, error) {
	var stock int
	err := tx.QueryRowContext(ctx, `
		SELECT stock FROM products
		WHERE id=$1 AND store_id=$2 AND deleted_at IS NULL
		FOR UPDATE`, productID, storeID).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrProductNotFound
	}
	if err != nil {
		return 0, err
	}
	return stock, nil
}

// DeductTx removes quantity from the product's batches in expiry order and
// keeps the aggregate stock in step, all within the caller's transaction.
// When the caller has already read the aggregate stock under lock it passes
// the value through preloadedStock to skip the redundant read.
func DeductTx(ctx context.Context, tx *sql.Tx, storeID, productID uuid.UUID, quantity int, preloadedStock *int) ([]Allocation, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	var stock int
	if preloadedStock != nil {
		stock = *preloadedStock
	} else {
		var err error
		stock, err = LockProductStock(ctx, tx, storeID, productID)
		if err != nil {
			return nil, err
		}
	}
	if stock < quantity {
		return nil, ErrInsufficientStock
	}

	// Undated batches sort last: dated stock always leaves the shelf first.
	rows, err := tx.QueryContext(ctx, `
		SELECT id, quantity, unit_cost FROM batches
		WHERE product_id=$1 AND store_id=$2 AND quantity > 0
		ORDER BY expiry_date ASC NULLS LAST, created_at ASC
		FOR UPDATE`, productID, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []*Batch
	for rows.Next() {
		b := &Batch{}
		if err := rows.Scan(&b.ID, &b.Quantity, &b.UnitCost); err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	allocations, err := planAllocation(batches, quantity)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", productID, err)
	}

	for _, a := range allocations {
		if _, err := tx.ExecContext(ctx, `
			UPDATE batches SET quantity = quantity - $1 WHERE id=$2`,
			a.Quantity, a.BatchID); err != nil {
			return nil, err
		}
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE products SET stock = stock - $1, updated_at = NOW()
		WHERE id=$2 AND store_id=$3`,
		quantity, productID, storeID); err != nil {
		return nil, err
	}

	return allocations, nil
}

// ReceiveTx inserts a new batch and increments the product's aggregate stock
// within the caller's transaction. The product row must already be locked.
func ReceiveTx(ctx context.Context, tx *sql.Tx, b *Batch) error {
	if b.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO batches (id, store_id, product_id, quantity, expiry_date, label, unit_cost)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		b.ID, b.StoreID, b.ProductID, b.Quantity, b.ExpiryDate, b.Label, b.UnitCost); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE products SET stock = stock + $1, updated_at = NOW()
		WHERE id=$2 AND store_id=$3`,
		b.Quantity, b.ProductID, b.StoreID); err != nil {
		return err
	}
	return nil
}
