package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service defines batch allocator business logic.
type Service interface {
	Receive(ctx context.Context, storeID uuid.UUID, req ReceiveRequest) (*Batch, error)
	Deduct(ctx context.Context, storeID uuid.UUID, req DeductRequest) ([]Allocation, error)
	ListBatches(ctx context.Context, storeID uuid.UUID, productID string, includeDrained bool) ([]*Batch, error)
}

type service struct{ repo Repository }

// NewService creates a new inventory service.
func NewService(repo Repository) Service { return &service{repo: repo} }

func (s *service) Receive(ctx context.Context, storeID uuid.UUID, req ReceiveRequest) (*Batch, error) {
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("invalid product_id: %w", err)
	}
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	b := &Batch{
		ID:        uuid.New(),
		StoreID:   storeID,
		ProductID: productID,
		Quantity:  req.Quantity,
		Label:     req.Label,
	}
	if req.UnitCost != nil {
		if *req.UnitCost < 0 {
			return nil, fmt.Errorf("unit_cost cannot be negative")
		}
		b.UnitCost = *req.UnitCost
	}
	if req.ExpiryDate != "" {
		parsed, err := time.Parse("2006-01-02", req.ExpiryDate)
		if err != nil {
			return nil, fmt.Errorf("invalid expiry_date (want YYYY-MM-DD): %w", err)
		}
		b.ExpiryDate = &parsed
	}

	return s.repo.Receive(ctx, b)
}

func (s *service) Deduct(ctx context.Context, storeID uuid.UUID, req DeductRequest) ([]Allocation, error) {
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("invalid product_id: %w", err)
	}
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	return s.repo.Deduct(ctx, storeID, productID, req.Quantity, nil)
}

func (s *service) ListBatches(ctx context.Context, storeID uuid.UUID, productID string, includeDrained bool) ([]*Batch, error) {
	pid, err := uuid.Parse(productID)
	if err != nil {
		return nil, fmt.Errorf("invalid product_id: %w", err)
	}
	return s.repo.ListBatches(ctx, storeID, pid, includeDrained)
}
