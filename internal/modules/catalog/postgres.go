package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) Create(ctx context.Context, p *Product) error {
	detailsJSON, err := nullableDetails(p.CostDetails)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO products
		  (id, store_id, name, category, unit, price, purchase_price, min_price,
		   low_stock_threshold, stock, clean_cost, cost_details, supplier_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,0,$10,$11,$12)`,
		p.ID, p.StoreID, p.Name, p.Category, p.Unit, p.Price, p.PurchasePrice,
		p.MinPrice, p.LowStockThreshold, p.CleanCost, detailsJSON, p.SupplierID)
	return err
}

func (r *postgresRepo) GetByID(ctx context.Context, storeID, id string) (*Product, error) {
	return r.scanProduct(r.db.QueryRowContext(ctx, `
		SELECT id, store_id, name, category, unit, price, purchase_price, min_price,
		       low_stock_threshold, stock, clean_cost, cost_details, supplier_id,
		       created_at, updated_at
		FROM products WHERE id=$1 AND store_id=$2 AND deleted_at IS NULL`, id, storeID))
}

func (r *postgresRepo) List(ctx context.Context, storeID string, category string) ([]*Product, error) {
	query := `
		SELECT id, store_id, name, category, unit, price, purchase_price, min_price,
		       low_stock_threshold, stock, clean_cost, cost_details, supplier_id,
		       created_at, updated_at
		FROM products WHERE store_id=$1 AND deleted_at IS NULL`
	args := []interface{}{storeID}
	if category != "" {
		query += ` AND category=$2`
		args = append(args, category)
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		p, err := r.scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// Update persists catalog fields only. The stock column is owned by the
// inventory module and is never written here.
func (r *postgresRepo) Update(ctx context.Context, p *Product) error {
	detailsJSON, err := nullableDetails(p.CostDetails)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE products
		SET name=$1, category=$2, unit=$3, price=$4, purchase_price=$5, min_price=$6,
		    low_stock_threshold=$7, clean_cost=$8, cost_details=$9, updated_at=$10
		WHERE id=$11 AND store_id=$12 AND deleted_at IS NULL`,
		p.Name, p.Category, p.Unit, p.Price, p.PurchasePrice, p.MinPrice,
		p.LowStockThreshold, p.CleanCost, detailsJSON, time.Now(), p.ID, p.StoreID)
	return err
}

func (r *postgresRepo) SoftDelete(ctx context.Context, storeID, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE products SET deleted_at=$1 WHERE id=$2 AND store_id=$3 AND deleted_at IS NULL`,
		time.Now(), id, storeID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ── Scanners ──────────────────────────────────────────────────────────────────

type rowScanner interface{ Scan(dest ...interface{}) error }

func (r *postgresRepo) scanProduct(row rowScanner) (*Product, error) {
	p := &Product{}
	var category, unit sql.NullString
	var minPrice, cleanCost sql.NullFloat64
	var threshold sql.NullInt64
	var detailsJSON []byte
	var supplierID sql.NullString
	err := row.Scan(&p.ID, &p.StoreID, &p.Name, &category, &unit, &p.Price,
		&p.PurchasePrice, &minPrice, &threshold, &p.Stock, &cleanCost,
		&detailsJSON, &supplierID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Category = category.String
	p.Unit = unit.String
	if minPrice.Valid {
		p.MinPrice = &minPrice.Float64
	}
	if cleanCost.Valid {
		p.CleanCost = &cleanCost.Float64
	}
	if threshold.Valid {
		v := int(threshold.Int64)
		p.LowStockThreshold = &v
	}
	if len(detailsJSON) > 0 {
		var details CostDetails
		if err := json.Unmarshal(detailsJSON, &details); err == nil {
			p.CostDetails = &details
		}
	}
	if supplierID.Valid {
		if sid, err := uuid.Parse(supplierID.String); err == nil {
			p.SupplierID = &sid
		}
	}
	return p, nil
}

func nullableDetails(details *CostDetails) (interface{}, error) {
	if details == nil {
		return nil, nil
	}
	return json.Marshal(details)
}
