package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrProductNotFound is returned for a product id that does not exist in the
// requesting store. Cross-store ids and soft-deleted products look identical
// to a genuinely unknown id.
var ErrProductNotFound = errors.New("catalog: product not found")

// Service defines catalog business logic.
type Service interface {
	CreateProduct(ctx context.Context, storeID uuid.UUID, req CreateProductRequest) (*Product, error)
	GetProduct(ctx context.Context, storeID uuid.UUID, id string) (*Product, error)
	ListProducts(ctx context.Context, storeID uuid.UUID, category string) ([]*Product, error)
	UpdateProduct(ctx context.Context, storeID uuid.UUID, id string, req UpdateProductRequest) (*Product, error)
	DeleteProduct(ctx context.Context, storeID uuid.UUID, id string) error
}

type service struct{ repo Repository }

// NewService creates a new catalog service.
func NewService(repo Repository) Service { return &service{repo: repo} }

func (s *service) CreateProduct(ctx context.Context, storeID uuid.UUID, req CreateProductRequest) (*Product, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if req.Price < 0 || req.PurchasePrice < 0 {
		return nil, fmt.Errorf("prices cannot be negative")
	}

	unit := req.Unit
	if unit == "" {
		unit = "pcs"
	}

	p := &Product{
		ID:                uuid.New(),
		StoreID:           storeID,
		Name:              req.Name,
		Category:          req.Category,
		Unit:              unit,
		Price:             req.Price,
		PurchasePrice:     req.PurchasePrice,
		MinPrice:          req.MinPrice,
		LowStockThreshold: req.LowStockThreshold,
		CostDetails:       req.CostDetails,
	}

	if req.SupplierID != "" {
		sid, err := uuid.Parse(req.SupplierID)
		if err != nil {
			return nil, fmt.Errorf("invalid supplier_id: %w", err)
		}
		p.SupplierID = &sid
	}

	cost := CleanCost(p.PurchasePrice, p.CostDetails)
	p.CleanCost = &cost

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, storeID.String(), p.ID.String())
}

func (s *service) GetProduct(ctx context.Context, storeID uuid.UUID, id string) (*Product, error) {
	p, err := s.repo.GetByID(ctx, storeID.String(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *service) ListProducts(ctx context.Context, storeID uuid.UUID, category string) ([]*Product, error) {
	return s.repo.List(ctx, storeID.String(), category)
}

func (s *service) UpdateProduct(ctx context.Context, storeID uuid.UUID, id string, req UpdateProductRequest) (*Product, error) {
	p, err := s.GetProduct(ctx, storeID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Category != nil {
		p.Category = *req.Category
	}
	if req.Unit != nil {
		p.Unit = *req.Unit
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.PurchasePrice != nil {
		p.PurchasePrice = *req.PurchasePrice
	}
	if req.MinPrice != nil {
		p.MinPrice = req.MinPrice
	}
	if req.LowStockThreshold != nil {
		p.LowStockThreshold = req.LowStockThreshold
	}
	if req.CostDetails != nil {
		p.CostDetails = req.CostDetails
	}

	// Cost basis follows the purchase price and the itemized details.
	cost := CleanCost(p.PurchasePrice, p.CostDetails)
	p.CleanCost = &cost

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, storeID.String(), id)
}

func (s *service) DeleteProduct(ctx context.Context, storeID uuid.UUID, id string) error {
	if err := s.repo.SoftDelete(ctx, storeID.String(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProductNotFound
		}
		return err
	}
	return nil
}
