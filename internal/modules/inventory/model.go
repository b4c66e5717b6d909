package inventory

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Batch is a discrete lot of physical stock belonging to one product.
// Quantity is what remains; a batch drained to zero is kept as history.
type Batch struct {
	ID         uuid.UUID  `json:"id"`
	StoreID    uuid.UUID  `json:"store_id"`
	ProductID  uuid.UUID  `json:"product_id"`
	Quantity   int        `json:"quantity"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
	Label      string     `json:"label,omitempty"`
	UnitCost   float64    `json:"unit_cost"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Allocation records how much of a deduction one batch satisfied, and at
// what acquisition cost.
type Allocation struct {
	BatchID  uuid.UUID `json:"batch_id"`
	Quantity int       `json:"quantity"`
	UnitCost float64   `json:"unit_cost"`
}

var (
	// ErrProductNotFound covers unknown, cross-store and soft-deleted ids alike.
	ErrProductNotFound = errors.New("inventory: product not found")

	// ErrInvalidQuantity rejects zero or negative receive/deduct amounts.
	ErrInvalidQuantity = errors.New("inventory: quantity must be positive")

	// ErrInsufficientStock means the aggregate stock cannot cover the request.
	// Nothing is allocated partially in this case.
	ErrInsufficientStock = errors.New("inventory: insufficient stock")

	// ErrStockMismatch means the aggregate counter and the batch sum disagree.
	// This indicates prior corruption and is never clamped silently.
	ErrStockMismatch = errors.New("inventory: aggregate stock disagrees with batch sum")
)

// ReceiveRequest is the payload for booking a new stock batch.
type ReceiveRequest struct {
	ProductID  string   `json:"product_id"`
	Quantity   int      `json:"quantity"`
	ExpiryDate string   `json:"expiry_date,omitempty"` // YYYY-MM-DD
	Label      string   `json:"label,omitempty"`
	UnitCost   *float64 `json:"unit_cost,omitempty"`
}

// DeductRequest is the payload for a direct stock deduction (spoilage,
// corrections). Sales deduct through their own transaction instead.
type DeductRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}
