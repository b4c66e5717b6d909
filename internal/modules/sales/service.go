package sales

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AlertSink receives fire-and-forget stock-changed events after a committed
// sale. Satisfied by alert.Dispatcher.
type AlertSink interface {
	StockChanged(storeID uuid.UUID)
}

// Service defines the sale ledger and debt ledger business logic.
type Service interface {
	CreateSale(ctx context.Context, storeID uuid.UUID, req CreateSaleRequest) (*Sale, error)
	GetSale(ctx context.Context, storeID uuid.UUID, id string) (*Sale, error)
	GetSaleByInvoice(ctx context.Context, storeID uuid.UUID, number string) (*Sale, error)
	ListSales(ctx context.Context, storeID uuid.UUID, status string) ([]*Sale, error)
	PayDebt(ctx context.Context, storeID uuid.UUID, saleID string, req PayDebtRequest) (*Sale, error)
	WriteOff(ctx context.Context, storeID uuid.UUID, saleID string, req WriteOffRequest) (*Sale, error)
}

type service struct {
	repo   Repository
	alerts AlertSink
	logger *zap.Logger
}

// NewService creates a new sales service.
func NewService(repo Repository, alerts AlertSink, logger *zap.Logger) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{repo: repo, alerts: alerts, logger: logger}
}

// CreateSale validates payment coverage before any inventory is touched,
// then hands the repository one atomic unit: invoice numbering, per-line
// batch deduction with cost capture, and the initial payment state.
func (s *service) CreateSale(ctx context.Context, storeID uuid.UUID, req CreateSaleRequest) (*Sale, error) {
	if len(req.Lines) == 0 {
		return nil, fmt.Errorf("at least one line is required")
	}
	method, err := parseMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	var subtotal float64
	items := make([]*SaleItem, 0, len(req.Lines))
	for i, line := range req.Lines {
		productID, err := uuid.Parse(line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid product_id: %w", i+1, err)
		}
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("line %d: quantity must be positive", i+1)
		}
		if line.Price < 0 {
			return nil, fmt.Errorf("line %d: price cannot be negative", i+1)
		}
		subtotal += line.Price * float64(line.Quantity)
		items = append(items, &SaleItem{
			ID:        uuid.New(),
			ProductID: productID,
			Quantity:  line.Quantity,
			Price:     line.Price,
		})
	}

	discount := req.Discount
	if discount < 0 {
		discount = 0
	}
	total := round2(subtotal - discount)
	if total < 0 {
		return nil, fmt.Errorf("discount exceeds subtotal")
	}

	// A split breakdown, when supplied, is the authoritative paid amount.
	amountPaid := req.AmountPaid
	if len(req.PaymentDetails) > 0 {
		amountPaid = 0
		for _, split := range req.PaymentDetails {
			amountPaid += split.Amount
		}
		if amountPaid < total {
			return nil, fmt.Errorf("%w: split payments sum %.2f, total %.2f", ErrInsufficientPayment, amountPaid, total)
		}
	}
	amountPaid = round2(amountPaid)

	// Payment state is settled before the repository touches a single batch.
	var customerID *uuid.UUID
	if req.CustomerID != "" {
		cid, err := uuid.Parse(req.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("invalid customer_id: %w", err)
		}
		customerID = &cid
	}

	sale := &Sale{
		ID:             uuid.New(),
		StoreID:        storeID,
		Items:          items,
		Total:          total,
		Discount:       round2(discount),
		PaymentMethod:  method,
		PaymentDetails: req.PaymentDetails,
		CustomerID:     customerID,
		AmountPaid:     amountPaid,
	}

	switch {
	case amountPaid >= total:
		sale.Status = StatusPaid
		sale.Remaining = 0
	case customerID == nil:
		// A walk-in sale must be settled in full. A partial amount signals
		// the cashier meant to extend debt, which needs a customer on file.
		if amountPaid > 0 {
			return nil, ErrMissingCustomer
		}
		return nil, ErrInsufficientPayment
	case amountPaid > 0:
		sale.Status = StatusPartial
		sale.Remaining = round2(total - amountPaid)
	default:
		sale.Status = StatusUnpaid
		sale.Remaining = total
	}

	if req.DueDate != "" {
		parsed, err := time.Parse("2006-01-02", req.DueDate)
		if err != nil {
			return nil, fmt.Errorf("invalid due_date (want YYYY-MM-DD): %w", err)
		}
		sale.DueDate = &parsed
	}

	if err := s.repo.CreateSale(ctx, sale); err != nil {
		return nil, err
	}

	// Fire-and-forget: a failing alert pipeline never fails the sale.
	s.alerts.StockChanged(storeID)

	return s.repo.GetByID(ctx, storeID.String(), sale.ID.String())
}

func (s *service) GetSale(ctx context.Context, storeID uuid.UUID, id string) (*Sale, error) {
	return s.loadSale(ctx, storeID, id)
}

func (s *service) GetSaleByInvoice(ctx context.Context, storeID uuid.UUID, number string) (*Sale, error) {
	sale, err := s.repo.GetByInvoiceNumber(ctx, storeID.String(), number)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSaleNotFound
		}
		return nil, err
	}
	return sale, nil
}

func (s *service) ListSales(ctx context.Context, storeID uuid.UUID, status string) ([]*Sale, error) {
	return s.repo.ListByStore(ctx, storeID.String(), PaymentStatus(strings.ToUpper(status)))
}

// PayDebt records one installment against an outstanding sale. The balance
// check and the write happen inside one repository transaction on a locked
// sale row, so concurrent installments serialize rather than overwrite each
// other. Reaching a zero balance promotes the sale to PAID; paying past the
// balance is rejected whole, never partially applied.
func (s *service) PayDebt(ctx context.Context, storeID uuid.UUID, saleID string, req PayDebtRequest) (*Sale, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	method, err := parseMethod(req.Method)
	if err != nil {
		return nil, err
	}

	payment := &Payment{
		ID:     uuid.New(),
		Amount: req.Amount,
		Method: method,
	}
	return s.repo.RecordPayment(ctx, storeID.String(), saleID, payment)
}

// WriteOff closes the remaining balance to zero with an audit trail. The
// amount is captured under the repository's row lock; the resulting state is
// terminal.
func (s *service) WriteOff(ctx context.Context, storeID uuid.UUID, saleID string, req WriteOffRequest) (*Sale, error) {
	sale, err := s.repo.WriteOff(ctx, storeID.String(), saleID, req.Reason, time.Now())
	if err != nil {
		return nil, err
	}
	s.logger.Info("debt written off",
		zap.String("sale_id", sale.ID.String()),
		zap.String("invoice_number", sale.InvoiceNumber),
		zap.Float64p("amount", sale.WrittenOffAmount),
		zap.String("reason", req.Reason))

	return sale, nil
}

func (s *service) loadSale(ctx context.Context, storeID uuid.UUID, id string) (*Sale, error) {
	sale, err := s.repo.GetByID(ctx, storeID.String(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSaleNotFound
		}
		return nil, err
	}
	return sale, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func parseMethod(raw string) (PaymentMethod, error) {
	method := PaymentMethod(strings.ToUpper(raw))
	switch method {
	case PaymentCash, PaymentCard, PaymentMobileMoney, PaymentVoucher:
		return method, nil
	default:
		return "", fmt.Errorf("invalid payment_method: %s (allowed: CASH, CARD, MOBILE_MONEY, VOUCHER)", raw)
	}
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
