package catalog

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Product is a sellable item belonging to one store. Stock is an aggregate
// cache over the product's batches; only the inventory module mutates it.
type Product struct {
	ID                uuid.UUID    `json:"id"`
	StoreID           uuid.UUID    `json:"store_id"`
	Name              string       `json:"name"`
	Category          string       `json:"category,omitempty"`
	Unit              string       `json:"unit"`
	Price             float64      `json:"price"`
	PurchasePrice     float64      `json:"purchase_price"`
	MinPrice          *float64     `json:"min_price,omitempty"`
	LowStockThreshold *int         `json:"low_stock_threshold,omitempty"`
	Stock             int          `json:"stock"`
	CleanCost         *float64     `json:"clean_cost,omitempty"`
	CostDetails       *CostDetails `json:"cost_details,omitempty"`
	SupplierID        *uuid.UUID   `json:"supplier_id,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
	DeletedAt         *time.Time   `json:"-"`
}

// CostDetails is the itemized breakdown behind a product's acquisition cost.
// The safety margin is profit, not cost; CleanCost never includes it.
type CostDetails struct {
	Items        []CostItem `json:"costs,omitempty"`
	SafetyMargin CostAmount `json:"safety_margin,omitempty"`
}

// CostItem is one direct cost addition (freight, packaging, ...).
type CostItem struct {
	Label  string     `json:"label,omitempty"`
	Amount CostAmount `json:"amount"`
}

// CostAmount is a tolerant money amount. Detail rows arrive from dashboard
// imports as numbers or free-form strings; anything unparseable counts as
// zero rather than rejecting the whole product.
type CostAmount float64

func (a *CostAmount) UnmarshalJSON(b []byte) error {
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*a = CostAmount(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*a = CostAmount(v)
			return nil
		}
	}
	*a = 0
	return nil
}

// CreateProductRequest is the payload for adding a product to a store.
type CreateProductRequest struct {
	Name              string       `json:"name"`
	Category          string       `json:"category,omitempty"`
	Unit              string       `json:"unit,omitempty"`
	Price             float64      `json:"price"`
	PurchasePrice     float64      `json:"purchase_price,omitempty"`
	MinPrice          *float64     `json:"min_price,omitempty"`
	LowStockThreshold *int         `json:"low_stock_threshold,omitempty"`
	CostDetails       *CostDetails `json:"cost_details,omitempty"`
	SupplierID        string       `json:"supplier_id,omitempty"`
}

// UpdateProductRequest is the payload for editing catalog fields. Stock is
// absent on purpose: it moves only through batch receipts and deductions.
type UpdateProductRequest struct {
	Name              *string      `json:"name,omitempty"`
	Category          *string      `json:"category,omitempty"`
	Unit              *string      `json:"unit,omitempty"`
	Price             *float64     `json:"price,omitempty"`
	PurchasePrice     *float64     `json:"purchase_price,omitempty"`
	MinPrice          *float64     `json:"min_price,omitempty"`
	LowStockThreshold *int         `json:"low_stock_threshold,omitempty"`
	CostDetails       *CostDetails `json:"cost_details,omitempty"`
}
