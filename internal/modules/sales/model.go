package sales

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PaymentStatus represents the lifecycle state of a sale's payment.
type PaymentStatus string

const (
	StatusUnpaid     PaymentStatus = "UNPAID"
	StatusPartial    PaymentStatus = "PARTIAL"
	StatusPaid       PaymentStatus = "PAID"
	StatusWrittenOff PaymentStatus = "WRITTEN_OFF"
)

// validTransitions defines the payment state machine. PAID and WRITTEN_OFF
// are terminal.
var validTransitions = map[PaymentStatus][]PaymentStatus{
	StatusUnpaid:     {StatusPartial, StatusPaid, StatusWrittenOff},
	StatusPartial:    {StatusPaid, StatusWrittenOff},
	StatusPaid:       {},
	StatusWrittenOff: {},
}

// CanTransition returns true if the payment status transition is valid.
func CanTransition(current, next PaymentStatus) bool {
	for _, s := range validTransitions[current] {
		if s == next {
			return true
		}
	}
	return false
}

// nextPaymentStatus derives the status an installment leaves behind and
// verifies the move against the transition map. Staying in the same status
// (a second partial installment) is not a transition.
func nextPaymentStatus(current PaymentStatus, remaining float64) (PaymentStatus, error) {
	next := StatusPartial
	if remaining == 0 {
		next = StatusPaid
	}
	if next != current && !CanTransition(current, next) {
		return "", fmt.Errorf("sales: invalid status change %s -> %s", current, next)
	}
	return next, nil
}

// PaymentMethod represents how a sale (or debt installment) was paid.
type PaymentMethod string

const (
	PaymentCash        PaymentMethod = "CASH"
	PaymentCard        PaymentMethod = "CARD"
	PaymentMobileMoney PaymentMethod = "MOBILE_MONEY"
	PaymentVoucher     PaymentMethod = "VOUCHER"
)

// Sale is one completed point-of-sale event. Items and money totals are
// immutable after creation; only the payment state moves afterwards.
type Sale struct {
	ID               uuid.UUID      `json:"id"`
	StoreID          uuid.UUID      `json:"store_id"`
	InvoiceNumber    string         `json:"invoice_number"`
	Items            []*SaleItem    `json:"items,omitempty"`
	Total            float64        `json:"total"`
	Discount         float64        `json:"discount"`
	PaymentMethod    PaymentMethod  `json:"payment_method"`
	PaymentDetails   []PaymentSplit `json:"payment_details,omitempty"`
	CustomerID       *uuid.UUID     `json:"customer_id,omitempty"`
	AmountPaid       float64        `json:"amount_paid"`
	Remaining        float64        `json:"remaining"`
	Status           PaymentStatus  `json:"status"`
	DueDate          *time.Time     `json:"due_date,omitempty"`
	WrittenOffAmount *float64       `json:"written_off_amount,omitempty"`
	WrittenOffAt     *time.Time     `json:"written_off_at,omitempty"`
	WriteOffReason   string         `json:"write_off_reason,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// SaleItem is one product line within a sale. Price is what was charged;
// CatalogPrice is the product's listed price at sale time; UnitCost is the
// quantity-weighted acquisition cost of the batches this line consumed.
type SaleItem struct {
	ID           uuid.UUID `json:"id"`
	SaleID       uuid.UUID `json:"sale_id"`
	ProductID    uuid.UUID `json:"product_id"`
	Quantity     int       `json:"quantity"`
	Price        float64   `json:"price"`
	CatalogPrice float64   `json:"catalog_price"`
	UnitCost     float64   `json:"unit_cost"`
}

// PaymentSplit is one entry of an itemized split-payment breakdown.
type PaymentSplit struct {
	Method string  `json:"method"`
	Amount float64 `json:"amount"`
}

// Payment is one recorded payment against a sale: the amount taken at
// creation, or a later debt installment.
type Payment struct {
	ID        uuid.UUID     `json:"id"`
	SaleID    uuid.UUID     `json:"sale_id"`
	Amount    float64       `json:"amount"`
	Method    PaymentMethod `json:"method"`
	CreatedAt time.Time     `json:"created_at"`
}

var (
	// ErrSaleNotFound covers unknown and cross-store sale ids alike.
	ErrSaleNotFound = errors.New("sales: sale not found")

	// ErrInsufficientPayment means the payment (single or split sum) does not
	// cover the total for a sale that must be settled at the counter.
	ErrInsufficientPayment = errors.New("sales: payment does not cover total")

	// ErrMissingCustomer rejects extending debt to an unidentified buyer.
	ErrMissingCustomer = errors.New("sales: debt requires an identified customer")

	// ErrOverpayment rejects a debt payment exceeding the remaining balance.
	ErrOverpayment = errors.New("sales: payment exceeds remaining balance")

	// ErrNoRemainingDebt rejects writing off a sale with nothing outstanding.
	ErrNoRemainingDebt = errors.New("sales: no remaining debt to write off")

	// ErrAlreadyWrittenOff rejects a second write-off.
	ErrAlreadyWrittenOff = errors.New("sales: sale is already written off")
)

// SaleLine is one requested line at checkout. Price is per unit; the
// product's catalog price is snapshotted separately during creation.
type SaleLine struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// CreateSaleRequest is the checkout payload.
type CreateSaleRequest struct {
	Lines          []SaleLine     `json:"lines"`
	PaymentMethod  string         `json:"payment_method"`
	PaymentDetails []PaymentSplit `json:"payment_details,omitempty"`
	CustomerID     string         `json:"customer_id,omitempty"`
	Discount       float64        `json:"discount,omitempty"`
	AmountPaid     float64        `json:"amount_paid,omitempty"`
	DueDate        string         `json:"due_date,omitempty"` // YYYY-MM-DD
}

// PayDebtRequest is the payload for recording a debt installment.
type PayDebtRequest struct {
	Amount float64 `json:"amount"`
	Method string  `json:"method"`
}

// WriteOffRequest is the payload for closing out a debt without payment.
type WriteOffRequest struct {
	Reason string `json:"reason,omitempty"`
}
