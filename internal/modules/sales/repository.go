package sales

import (
	"context"
	"time"
)

// Repository defines store-scoped sale data access. CreateSale is one atomic
// unit covering the invoice number, the sale header, its items, every batch
// deduction and the initial payment row. RecordPayment and WriteOff are each
// one atomic unit including the balance read: the check and the write see the
// same locked sale row, so concurrent mutations of one sale serialize.
type Repository interface {
	CreateSale(ctx context.Context, sale *Sale) error
	GetByID(ctx context.Context, storeID, id string) (*Sale, error)
	GetByInvoiceNumber(ctx context.Context, storeID, number string) (*Sale, error)
	ListByStore(ctx context.Context, storeID string, status PaymentStatus) ([]*Sale, error)
	ListOverdue(ctx context.Context, asOf time.Time) ([]*Sale, error)
	RecordPayment(ctx context.Context, storeID, saleID string, p *Payment) (*Sale, error)
	WriteOff(ctx context.Context, storeID, saleID, reason string, at time.Time) (*Sale, error)
}
