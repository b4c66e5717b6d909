package catalog

import "context"

// Repository defines store-scoped product data access.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, storeID, id string) (*Product, error)
	List(ctx context.Context, storeID string, category string) ([]*Product, error)
	Update(ctx context.Context, p *Product) error
	SoftDelete(ctx context.Context, storeID, id string) error
}
