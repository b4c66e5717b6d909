package sales

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tokotrack/tokotrack-backend/internal/modules/inventory"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

// CreateSale runs the whole sale as one transaction: the daily invoice
// counter, a locked product lookup per line, the FEFO batch deduction, the
// per-line weighted cost, and the sale/item/payment inserts. Any failure
// rolls back everything, stock included.
func (r *postgresRepo) CreateSale(ctx context.Context, sale *Sale) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	number, err := nextInvoiceNumber(ctx, tx, sale.StoreID, now)
	if err != nil {
		return fmt.Errorf("invoice number: %w", err)
	}
	sale.InvoiceNumber = number

	for _, item := range sale.Items {
		var catalogPrice, purchasePrice float64
		var cleanCost sql.NullFloat64
		var stock int
		err := tx.QueryRowContext(ctx, `
			SELECT price, clean_cost, purchase_price, stock FROM products
			WHERE id=$1 AND store_id=$2 AND deleted_at IS NULL
			FOR UPDATE`, item.ProductID, sale.StoreID).
			Scan(&catalogPrice, &cleanCost, &purchasePrice, &stock)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("product %s: %w", item.ProductID, inventory.ErrProductNotFound)
		}
		if err != nil {
			return err
		}
		item.CatalogPrice = catalogPrice

		allocations, err := inventory.DeductTx(ctx, tx, sale.StoreID, item.ProductID, item.Quantity, &stock)
		if err != nil {
			return err
		}
		if cost, ok := inventory.WeightedUnitCost(allocations); ok {
			item.UnitCost = cost
		} else if cleanCost.Valid && cleanCost.Float64 > 0 {
			item.UnitCost = cleanCost.Float64
		} else {
			item.UnitCost = purchasePrice
		}
	}

	detailsJSON, err := nullableSplits(sale.PaymentDetails)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales
		  (id, store_id, invoice_number, total, discount, payment_method,
		   payment_details, customer_id, amount_paid, remaining, status, due_date, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		sale.ID, sale.StoreID, sale.InvoiceNumber, sale.Total, sale.Discount,
		sale.PaymentMethod, detailsJSON, sale.CustomerID, sale.AmountPaid,
		sale.Remaining, sale.Status, sale.DueDate, now)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}

	for _, item := range sale.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sale_items
			  (id, sale_id, product_id, quantity, price, catalog_price, unit_cost)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			item.ID, sale.ID, item.ProductID, item.Quantity, item.Price,
			item.CatalogPrice, item.UnitCost)
		if err != nil {
			return fmt.Errorf("insert sale_item: %w", err)
		}
		item.SaleID = sale.ID
	}

	if sale.AmountPaid > 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sale_payments (id, sale_id, amount, method, created_at)
			VALUES ($1,$2,$3,$4,$5)`,
			uuid.New(), sale.ID, sale.AmountPaid, sale.PaymentMethod, now)
		if err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
	}

	return tx.Commit()
}

// nextInvoiceNumber counts the store's sales for the calendar day, so
// invoice numbers are gapless within a day and restart the next. A unique
// index on (store_id, invoice_number) backstops two sales racing on the
// same counter value.
func nextInvoiceNumber(ctx context.Context, tx *sql.Tx, storeID uuid.UUID, now time.Time) (string, error) {
	start, end := dayWindow(now)

	var count int
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sales
		WHERE store_id=$1 AND created_at >= $2 AND created_at < $3`,
		storeID, start, end).Scan(&count)
	if err != nil {
		return "", err
	}
	return formatInvoiceNumber(now, count+1), nil
}

// dayWindow returns the half-open [midnight, next midnight) interval around
// now, in now's location. The invoice counter resets at the boundary.
func dayWindow(now time.Time) (start, end time.Time) {
	start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 0, 1)
}

// formatInvoiceNumber renders INV-YYYYMMDD-NNNN. The sequence is padded to
// four digits and grows past them rather than wrapping.
func formatInvoiceNumber(now time.Time, seq int) string {
	return fmt.Sprintf("INV-%s-%04d", now.Format("20060102"), seq)
}

func (r *postgresRepo) GetByID(ctx context.Context, storeID, id string) (*Sale, error) {
	sale, err := r.scanSale(r.db.QueryRowContext(ctx, `
		SELECT id, store_id, invoice_number, total, discount, payment_method,
		       payment_details, customer_id, amount_paid, remaining, status, due_date,
		       written_off_amount, written_off_at, write_off_reason, created_at, updated_at
		FROM sales WHERE id=$1 AND store_id=$2`, id, storeID))
	if err != nil {
		return nil, err
	}
	sale.Items, err = r.listItems(ctx, sale.ID)
	return sale, err
}

func (r *postgresRepo) GetByInvoiceNumber(ctx context.Context, storeID, number string) (*Sale, error) {
	sale, err := r.scanSale(r.db.QueryRowContext(ctx, `
		SELECT id, store_id, invoice_number, total, discount, payment_method,
		       payment_details, customer_id, amount_paid, remaining, status, due_date,
		       written_off_amount, written_off_at, write_off_reason, created_at, updated_at
		FROM sales WHERE invoice_number=$1 AND store_id=$2`, number, storeID))
	if err != nil {
		return nil, err
	}
	sale.Items, err = r.listItems(ctx, sale.ID)
	return sale, err
}

func (r *postgresRepo) ListByStore(ctx context.Context, storeID string, status PaymentStatus) ([]*Sale, error) {
	query := `
		SELECT id, store_id, invoice_number, total, discount, payment_method,
		       payment_details, customer_id, amount_paid, remaining, status, due_date,
		       written_off_amount, written_off_at, write_off_reason, created_at, updated_at
		FROM sales WHERE store_id=$1`
	args := []interface{}{storeID}
	if status != "" {
		query += ` AND status=$2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	return r.querySales(ctx, query, args...)
}

func (r *postgresRepo) ListOverdue(ctx context.Context, asOf time.Time) ([]*Sale, error) {
	return r.querySales(ctx, `
		SELECT id, store_id, invoice_number, total, discount, payment_method,
		       payment_details, customer_id, amount_paid, remaining, status, due_date,
		       written_off_amount, written_off_at, write_off_reason, created_at, updated_at
		FROM sales
		WHERE status IN ('UNPAID','PARTIAL') AND due_date IS NOT NULL AND due_date < $1
		ORDER BY due_date ASC`, asOf)
}

// RecordPayment applies one installment under a row lock: the balance check,
// the payment row and the new sale state commit together, so two installments
// racing on the same sale serialize on the FOR UPDATE read.
func (r *postgresRepo) RecordPayment(ctx context.Context, storeID, saleID string, p *Payment) (*Sale, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	sale, err := r.lockSale(ctx, tx, storeID, saleID)
	if err != nil {
		return nil, err
	}
	if p.Amount > sale.Remaining {
		return nil, fmt.Errorf("%w: remaining %.2f, got %.2f", ErrOverpayment, sale.Remaining, p.Amount)
	}
	remaining := round2(sale.Remaining - p.Amount)
	status, err := nextPaymentStatus(sale.Status, remaining)
	if err != nil {
		return nil, err
	}

	p.SaleID = sale.ID
	now := time.Now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sale_payments (id, sale_id, amount, method, created_at)
		VALUES ($1,$2,$3,$4,$5)`,
		p.ID, p.SaleID, p.Amount, p.Method, now)
	if err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE sales SET amount_paid=$1, remaining=$2, status=$3, updated_at=$4
		WHERE id=$5`,
		round2(sale.AmountPaid+p.Amount), remaining, status, now, sale.ID)
	if err != nil {
		return nil, fmt.Errorf("update sale: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, storeID, saleID)
}

// WriteOff closes the balance captured under the same row lock that verifies
// the sale still carries one, so the written-off amount can never go stale
// against a payment landing in between.
func (r *postgresRepo) WriteOff(ctx context.Context, storeID, saleID, reason string, at time.Time) (*Sale, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	sale, err := r.lockSale(ctx, tx, storeID, saleID)
	if err != nil {
		return nil, err
	}
	if sale.Status == StatusWrittenOff {
		return nil, ErrAlreadyWrittenOff
	}
	if sale.Remaining == 0 {
		return nil, ErrNoRemainingDebt
	}
	if !CanTransition(sale.Status, StatusWrittenOff) {
		return nil, fmt.Errorf("sales: cannot write off a %s sale", sale.Status)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE sales
		SET remaining=0, status=$1, written_off_amount=$2, written_off_at=$3,
		    write_off_reason=$4, updated_at=$3
		WHERE id=$5`,
		StatusWrittenOff, sale.Remaining, at, reason, sale.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, storeID, saleID)
}

// lockSale reads the sale row FOR UPDATE so the check that follows and the
// write it guards see the same committed state.
func (r *postgresRepo) lockSale(ctx context.Context, tx *sql.Tx, storeID, saleID string) (*Sale, error) {
	sale, err := r.scanSale(tx.QueryRowContext(ctx, `
		SELECT id, store_id, invoice_number, total, discount, payment_method,
		       payment_details, customer_id, amount_paid, remaining, status, due_date,
		       written_off_amount, written_off_at, write_off_reason, created_at, updated_at
		FROM sales WHERE id=$1 AND store_id=$2 FOR UPDATE`, saleID, storeID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSaleNotFound
	}
	return sale, err
}

// ── Scanners ──────────────────────────────────────────────────────────────────

type rowScanner interface{ Scan(dest ...interface{}) error }

func (r *postgresRepo) scanSale(row rowScanner) (*Sale, error) {
	sale := &Sale{}
	var detailsJSON []byte
	var customerID sql.NullString
	var dueDate, writtenOffAt sql.NullTime
	var writtenOffAmount sql.NullFloat64
	var writeOffReason sql.NullString
	err := row.Scan(&sale.ID, &sale.StoreID, &sale.InvoiceNumber, &sale.Total,
		&sale.Discount, &sale.PaymentMethod, &detailsJSON, &customerID,
		&sale.AmountPaid, &sale.Remaining, &sale.Status, &dueDate,
		&writtenOffAmount, &writtenOffAt, &writeOffReason,
		&sale.CreatedAt, &sale.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(detailsJSON) > 0 {
		if err := json.Unmarshal(detailsJSON, &sale.PaymentDetails); err != nil {
			return nil, fmt.Errorf("payment_details for sale %s: %w", sale.ID, err)
		}
	}
	if customerID.Valid {
		if cid, err := uuid.Parse(customerID.String); err == nil {
			sale.CustomerID = &cid
		}
	}
	if dueDate.Valid {
		sale.DueDate = &dueDate.Time
	}
	if writtenOffAmount.Valid {
		sale.WrittenOffAmount = &writtenOffAmount.Float64
	}
	if writtenOffAt.Valid {
		sale.WrittenOffAt = &writtenOffAt.Time
	}
	if writeOffReason.Valid {
		sale.WriteOffReason = writeOffReason.String
	}
	return sale, nil
}

func (r *postgresRepo) querySales(ctx context.Context, query string, args ...interface{}) ([]*Sale, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sales []*Sale
	for rows.Next() {
		sale, err := r.scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

func (r *postgresRepo) listItems(ctx context.Context, saleID uuid.UUID) ([]*SaleItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sale_id, product_id, quantity, price, catalog_price, unit_cost
		FROM sale_items WHERE sale_id=$1`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*SaleItem
	for rows.Next() {
		item := &SaleItem{}
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.Quantity,
			&item.Price, &item.CatalogPrice, &item.UnitCost); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func nullableSplits(splits []PaymentSplit) (interface{}, error) {
	if len(splits) == 0 {
		return nil, nil
	}
	return json.Marshal(splits)
}
