package inventory

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines store-scoped batch data access. Receive and Deduct are
// each one atomic unit: the batch mutation and the aggregate stock update
// commit together or not at all.
type Repository interface {
	Receive(ctx context.Context, b *Batch) (*Batch, error)
	Deduct(ctx context.Context, storeID, productID uuid.UUID, quantity int, preloadedStock *int) ([]Allocation, error)
	ListBatches(ctx context.Context, storeID, productID uuid.UUID, includeDrained bool) ([]*Batch, error)
}
