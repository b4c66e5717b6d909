package sales

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// --- Fakes ---

// fakeRepo stands in for the postgres repository. CreateSale is where every
// inventory mutation happens in the real implementation, so createCalls
// doubles as a "was stock touched" check. The mutex plays the part of the
// sale row lock: RecordPayment and WriteOff read and write under it, the way
// the real repository does under FOR UPDATE.
type fakeRepo struct {
	mu          sync.Mutex
	sales       map[string]*Sale
	payments    []*Payment
	createCalls int
	createErr   error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{sales: make(map[string]*Sale)}
}

func (f *fakeRepo) CreateSale(_ context.Context, sale *Sale) error {
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}
	sale.InvoiceNumber = fmt.Sprintf("INV-20260830-%04d", f.createCalls)
	sale.CreatedAt = time.Now()
	for _, item := range sale.Items {
		item.SaleID = sale.ID
		item.CatalogPrice = item.Price
		item.UnitCost = 9000
	}
	f.sales[sale.ID.String()] = sale
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, storeID, id string) (*Sale, error) {
	sale, ok := f.sales[id]
	if !ok || sale.StoreID.String() != storeID {
		return nil, sql.ErrNoRows
	}
	return sale, nil
}

func (f *fakeRepo) GetByInvoiceNumber(_ context.Context, storeID, number string) (*Sale, error) {
	for _, sale := range f.sales {
		if sale.InvoiceNumber == number && sale.StoreID.String() == storeID {
			return sale, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRepo) ListByStore(_ context.Context, storeID string, status PaymentStatus) ([]*Sale, error) {
	var out []*Sale
	for _, sale := range f.sales {
		if sale.StoreID.String() != storeID {
			continue
		}
		if status != "" && sale.Status != status {
			continue
		}
		out = append(out, sale)
	}
	return out, nil
}

func (f *fakeRepo) ListOverdue(_ context.Context, asOf time.Time) ([]*Sale, error) {
	var out []*Sale
	for _, sale := range f.sales {
		if (sale.Status == StatusUnpaid || sale.Status == StatusPartial) &&
			sale.DueDate != nil && sale.DueDate.Before(asOf) {
			out = append(out, sale)
		}
	}
	return out, nil
}

func (f *fakeRepo) RecordPayment(_ context.Context, storeID, saleID string, p *Payment) (*Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sale, ok := f.sales[saleID]
	if !ok || sale.StoreID.String() != storeID {
		return nil, ErrSaleNotFound
	}
	if p.Amount > sale.Remaining {
		return nil, fmt.Errorf("%w: remaining %.2f, got %.2f", ErrOverpayment, sale.Remaining, p.Amount)
	}
	remaining := round2(sale.Remaining - p.Amount)
	status, err := nextPaymentStatus(sale.Status, remaining)
	if err != nil {
		return nil, err
	}

	p.SaleID = sale.ID
	f.payments = append(f.payments, p)
	sale.AmountPaid = round2(sale.AmountPaid + p.Amount)
	sale.Remaining = remaining
	sale.Status = status
	return sale, nil
}

func (f *fakeRepo) WriteOff(_ context.Context, storeID, saleID, reason string, at time.Time) (*Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sale, ok := f.sales[saleID]
	if !ok || sale.StoreID.String() != storeID {
		return nil, ErrSaleNotFound
	}
	if sale.Status == StatusWrittenOff {
		return nil, ErrAlreadyWrittenOff
	}
	if sale.Remaining == 0 {
		return nil, ErrNoRemainingDebt
	}

	amount := sale.Remaining
	sale.Remaining = 0
	sale.Status = StatusWrittenOff
	sale.WrittenOffAmount = &amount
	sale.WrittenOffAt = &at
	sale.WriteOffReason = reason
	return sale, nil
}

type fakeAlerts struct{ stores []uuid.UUID }

func (f *fakeAlerts) StockChanged(storeID uuid.UUID) { f.stores = append(f.stores, storeID) }

func newTestService() (Service, *fakeRepo, *fakeAlerts) {
	repo := newFakeRepo()
	alerts := &fakeAlerts{}
	return NewService(repo, alerts, nil), repo, alerts
}

func line(price float64, qty int) SaleLine {
	return SaleLine{ProductID: uuid.NewString(), Quantity: qty, Price: price}
}

// --- CreateSale ---

func TestCreateSaleFullyPaidWalkIn(t *testing.T) {
	svc, repo, alerts := newTestService()
	storeID := uuid.New()

	sale, err := svc.CreateSale(context.Background(), storeID, CreateSaleRequest{
		Lines:         []SaleLine{line(15000, 2), line(5000, 1)},
		PaymentMethod: "cash",
		AmountPaid:    35000,
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	if sale.Status != StatusPaid {
		t.Errorf("status = %s, want PAID", sale.Status)
	}
	if sale.Total != 35000 || sale.Remaining != 0 {
		t.Errorf("total=%v remaining=%v, want 35000/0", sale.Total, sale.Remaining)
	}
	if sale.InvoiceNumber == "" {
		t.Error("invoice number was not assigned")
	}
	if repo.createCalls != 1 {
		t.Errorf("createCalls = %d, want 1", repo.createCalls)
	}
	if len(alerts.stores) != 1 || alerts.stores[0] != storeID {
		t.Errorf("expected one stock-changed event for %s, got %v", storeID, alerts.stores)
	}
}

func TestCreateSaleRejectsUnderpaidWalkIn(t *testing.T) {
	svc, repo, alerts := newTestService()

	_, err := svc.CreateSale(context.Background(), uuid.New(), CreateSaleRequest{
		Lines:         []SaleLine{line(10000, 3)},
		PaymentMethod: "CASH",
		AmountPaid:    0,
	})
	if !errors.Is(err, ErrInsufficientPayment) {
		t.Fatalf("expected ErrInsufficientPayment, got %v", err)
	}
	// Rejected before the repository runs, so no stock was deducted.
	if repo.createCalls != 0 {
		t.Errorf("inventory was touched for a rejected sale (createCalls=%d)", repo.createCalls)
	}
	if len(alerts.stores) != 0 {
		t.Error("no alert should fire for a rejected sale")
	}
}

func TestCreateSalePartialWithoutCustomerIsMissingCustomer(t *testing.T) {
	svc, repo, _ := newTestService()

	_, err := svc.CreateSale(context.Background(), uuid.New(), CreateSaleRequest{
		Lines:         []SaleLine{line(10000, 3)},
		PaymentMethod: "CASH",
		AmountPaid:    10000,
	})
	if !errors.Is(err, ErrMissingCustomer) {
		t.Fatalf("expected ErrMissingCustomer, got %v", err)
	}
	if repo.createCalls != 0 {
		t.Error("inventory was touched for a rejected sale")
	}
}

func TestCreateSaleSplitPaymentShortfall(t *testing.T) {
	svc, repo, _ := newTestService()

	_, err := svc.CreateSale(context.Background(), uuid.New(), CreateSaleRequest{
		Lines:         []SaleLine{line(20000, 1)},
		PaymentMethod: "CASH",
		PaymentDetails: []PaymentSplit{
			{Method: "CASH", Amount: 10000},
			{Method: "CARD", Amount: 5000},
		},
	})
	if !errors.Is(err, ErrInsufficientPayment) {
		t.Fatalf("expected ErrInsufficientPayment, got %v", err)
	}
	if repo.createCalls != 0 {
		t.Error("inventory was touched for a rejected sale")
	}
}

func TestCreateSaleSplitPaymentCoversTotal(t *testing.T) {
	svc, _, _ := newTestService()

	sale, err := svc.CreateSale(context.Background(), uuid.New(), CreateSaleRequest{
		Lines:         []SaleLine{line(20000, 1)},
		PaymentMethod: "CASH",
		PaymentDetails: []PaymentSplit{
			{Method: "CASH", Amount: 12000},
			{Method: "CARD", Amount: 8000},
		},
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	if sale.Status != StatusPaid || sale.AmountPaid != 20000 {
		t.Errorf("status=%s paid=%v, want PAID/20000", sale.Status, sale.AmountPaid)
	}
}

func TestCreateSaleDebtWithCustomer(t *testing.T) {
	svc, _, _ := newTestService()
	customer := uuid.NewString()

	tests := []struct {
		name          string
		amountPaid    float64
		wantStatus    PaymentStatus
		wantRemaining float64
	}{
		{"nothing paid", 0, StatusUnpaid, 30000},
		{"partially paid", 12000, StatusPartial, 18000},
		{"fully paid", 30000, StatusPaid, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sale, err := svc.CreateSale(context.Background(), uuid.New(), CreateSaleRequest{
				Lines:         []SaleLine{line(10000, 3)},
				PaymentMethod: "CASH",
				CustomerID:    customer,
				AmountPaid:    tt.amountPaid,
				DueDate:       "2026-09-30",
			})
			if err != nil {
				t.Fatalf("CreateSale: %v", err)
			}
			if sale.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", sale.Status, tt.wantStatus)
			}
			if sale.Remaining != tt.wantRemaining {
				t.Errorf("remaining = %v, want %v", sale.Remaining, tt.wantRemaining)
			}
			if sale.DueDate == nil {
				t.Error("due date was not recorded")
			}
		})
	}
}

func TestCreateSaleAppliesDiscount(t *testing.T) {
	svc, _, _ := newTestService()

	sale, err := svc.CreateSale(context.Background(), uuid.New(), CreateSaleRequest{
		Lines:         []SaleLine{line(10000, 2)},
		PaymentMethod: "CASH",
		Discount:      2500,
		AmountPaid:    17500,
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	if sale.Total != 17500 {
		t.Errorf("total = %v, want 17500", sale.Total)
	}
	if sale.Status != StatusPaid {
		t.Errorf("status = %s, want PAID", sale.Status)
	}
}

func TestCreateSaleNoAlertOnRepositoryFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.createErr = errors.New("deadlock detected")
	alerts := &fakeAlerts{}
	svc := NewService(repo, alerts, nil)

	_, err := svc.CreateSale(context.Background(), uuid.New(), CreateSaleRequest{
		Lines:         []SaleLine{line(10000, 1)},
		PaymentMethod: "CASH",
		AmountPaid:    10000,
	})
	if err == nil {
		t.Fatal("expected repository error to propagate")
	}
	if len(alerts.stores) != 0 {
		t.Error("alert fired for a failed sale")
	}
}

func TestCreateSaleRejectsUnknownPaymentMethod(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.CreateSale(context.Background(), uuid.New(), CreateSaleRequest{
		Lines:         []SaleLine{line(10000, 1)},
		PaymentMethod: "IOU",
		AmountPaid:    10000,
	})
	if err == nil {
		t.Fatal("expected invalid payment method to be rejected")
	}
}

// --- Debt ledger ---

func debtSale(t *testing.T, svc Service, storeID uuid.UUID, total, paid float64) *Sale {
	t.Helper()
	sale, err := svc.CreateSale(context.Background(), storeID, CreateSaleRequest{
		Lines:         []SaleLine{line(total, 1)},
		PaymentMethod: "CASH",
		CustomerID:    uuid.NewString(),
		AmountPaid:    paid,
	})
	if err != nil {
		t.Fatalf("creating debt sale: %v", err)
	}
	return sale
}

func TestPayDebtLifecycle(t *testing.T) {
	svc, repo, _ := newTestService()
	storeID := uuid.New()
	sale := debtSale(t, svc, storeID, 30000, 0)

	sale, err := svc.PayDebt(context.Background(), storeID, sale.ID.String(), PayDebtRequest{Amount: 10000, Method: "CASH"})
	if err != nil {
		t.Fatalf("first installment: %v", err)
	}
	if sale.Status != StatusPartial || sale.Remaining != 20000 {
		t.Errorf("after first installment: status=%s remaining=%v", sale.Status, sale.Remaining)
	}

	sale, err = svc.PayDebt(context.Background(), storeID, sale.ID.String(), PayDebtRequest{Amount: 20000, Method: "MOBILE_MONEY"})
	if err != nil {
		t.Fatalf("settling installment: %v", err)
	}
	if sale.Status != StatusPaid || sale.Remaining != 0 {
		t.Errorf("after settling: status=%s remaining=%v", sale.Status, sale.Remaining)
	}

	// Both installments left audit rows.
	if len(repo.payments) != 2 {
		t.Errorf("payment rows = %d, want 2", len(repo.payments))
	}

	// The sale is settled: any further payment exceeds the zero remaining.
	_, err = svc.PayDebt(context.Background(), storeID, sale.ID.String(), PayDebtRequest{Amount: 1, Method: "CASH"})
	if !errors.Is(err, ErrOverpayment) {
		t.Fatalf("expected ErrOverpayment on settled sale, got %v", err)
	}
}

func TestPayDebtRejectsOverpayment(t *testing.T) {
	svc, repo, _ := newTestService()
	storeID := uuid.New()
	sale := debtSale(t, svc, storeID, 30000, 25000)

	_, err := svc.PayDebt(context.Background(), storeID, sale.ID.String(), PayDebtRequest{Amount: 6000, Method: "CASH"})
	if !errors.Is(err, ErrOverpayment) {
		t.Fatalf("expected ErrOverpayment, got %v", err)
	}
	// Rejected whole: nothing partially applied.
	if sale.Remaining != 5000 || len(repo.payments) != 0 {
		t.Errorf("overpayment partially applied: remaining=%v payments=%d", sale.Remaining, len(repo.payments))
	}
}

func TestPayDebtConcurrentInstallmentsSerialize(t *testing.T) {
	svc, repo, _ := newTestService()
	storeID := uuid.New()
	sale := debtSale(t, svc, storeID, 10000, 0)

	// Two cashiers settle the same 10000 balance at once. The balance check
	// runs against the locked row, so the loser must see the winner's write
	// and fail the overpayment check instead of silently overwriting it.
	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.PayDebt(context.Background(), storeID, sale.ID.String(),
				PayDebtRequest{Amount: 10000, Method: "CASH"})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var rejected int
	for err := range results {
		if err != nil {
			if !errors.Is(err, ErrOverpayment) {
				t.Fatalf("losing installment: expected ErrOverpayment, got %v", err)
			}
			rejected++
		}
	}
	if rejected != 1 {
		t.Fatalf("exactly one of two racing installments must lose, got %d rejections", rejected)
	}

	settled, err := svc.GetSale(context.Background(), storeID, sale.ID.String())
	if err != nil {
		t.Fatalf("GetSale: %v", err)
	}
	if settled.Status != StatusPaid || settled.AmountPaid != 10000 || settled.Remaining != 0 {
		t.Errorf("status=%s paid=%v remaining=%v, want PAID/10000/0",
			settled.Status, settled.AmountPaid, settled.Remaining)
	}
	if len(repo.payments) != 1 {
		t.Errorf("payment rows = %d, want 1 (audit must agree with the sale)", len(repo.payments))
	}
}

func TestWriteOffAmountReflectsPaymentsAlreadyApplied(t *testing.T) {
	svc, _, _ := newTestService()
	storeID := uuid.New()
	sale := debtSale(t, svc, storeID, 30000, 0)

	// An installment lands before the write-off; the written-off amount must
	// be the balance at write time, not the one loaded earlier.
	if _, err := svc.PayDebt(context.Background(), storeID, sale.ID.String(),
		PayDebtRequest{Amount: 12000, Method: "CASH"}); err != nil {
		t.Fatalf("PayDebt: %v", err)
	}

	written, err := svc.WriteOff(context.Background(), storeID, sale.ID.String(),
		WriteOffRequest{Reason: "uncollectable"})
	if err != nil {
		t.Fatalf("WriteOff: %v", err)
	}
	if written.WrittenOffAmount == nil || *written.WrittenOffAmount != 18000 {
		t.Errorf("written-off amount = %v, want 18000", written.WrittenOffAmount)
	}
}

func TestPayDebtSaleNotFound(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.PayDebt(context.Background(), uuid.New(), uuid.NewString(), PayDebtRequest{Amount: 100, Method: "CASH"})
	if !errors.Is(err, ErrSaleNotFound) {
		t.Fatalf("expected ErrSaleNotFound, got %v", err)
	}
}

func TestPayDebtIsStoreScoped(t *testing.T) {
	svc, _, _ := newTestService()
	sale := debtSale(t, svc, uuid.New(), 30000, 0)

	// Same sale id, different store: a tenant-scoped miss, not a leak.
	_, err := svc.PayDebt(context.Background(), uuid.New(), sale.ID.String(), PayDebtRequest{Amount: 100, Method: "CASH"})
	if !errors.Is(err, ErrSaleNotFound) {
		t.Fatalf("expected ErrSaleNotFound for foreign store, got %v", err)
	}
}

// --- Write-off ---

func TestWriteOffClosesRemainingBalance(t *testing.T) {
	svc, _, _ := newTestService()
	storeID := uuid.New()
	sale := debtSale(t, svc, storeID, 30000, 10000)

	sale, err := svc.WriteOff(context.Background(), storeID, sale.ID.String(), WriteOffRequest{Reason: "customer moved away"})
	if err != nil {
		t.Fatalf("WriteOff: %v", err)
	}
	if sale.Status != StatusWrittenOff || sale.Remaining != 0 {
		t.Errorf("status=%s remaining=%v, want WRITTEN_OFF/0", sale.Status, sale.Remaining)
	}
	if sale.WrittenOffAmount == nil || *sale.WrittenOffAmount != 20000 {
		t.Errorf("written-off amount should equal the prior remaining balance, got %v", sale.WrittenOffAmount)
	}
	if sale.WrittenOffAt == nil || sale.WriteOffReason != "customer moved away" {
		t.Error("write-off audit trail incomplete")
	}
}

func TestWriteOffIsTerminal(t *testing.T) {
	svc, _, _ := newTestService()
	storeID := uuid.New()
	sale := debtSale(t, svc, storeID, 30000, 0)

	if _, err := svc.WriteOff(context.Background(), storeID, sale.ID.String(), WriteOffRequest{}); err != nil {
		t.Fatalf("WriteOff: %v", err)
	}

	_, err := svc.WriteOff(context.Background(), storeID, sale.ID.String(), WriteOffRequest{})
	if !errors.Is(err, ErrAlreadyWrittenOff) {
		t.Fatalf("expected ErrAlreadyWrittenOff, got %v", err)
	}

	_, err = svc.PayDebt(context.Background(), storeID, sale.ID.String(), PayDebtRequest{Amount: 1000, Method: "CASH"})
	if !errors.Is(err, ErrOverpayment) {
		t.Fatalf("expected ErrOverpayment against zero remaining, got %v", err)
	}

	got, err := svc.GetSale(context.Background(), storeID, sale.ID.String())
	if err != nil {
		t.Fatalf("GetSale: %v", err)
	}
	if got.Remaining != 0 {
		t.Errorf("remaining must stay 0 after write-off, got %v", got.Remaining)
	}
}

func TestWriteOffRequiresRemainingDebt(t *testing.T) {
	svc, _, _ := newTestService()
	storeID := uuid.New()
	sale := debtSale(t, svc, storeID, 30000, 30000)

	_, err := svc.WriteOff(context.Background(), storeID, sale.ID.String(), WriteOffRequest{})
	if !errors.Is(err, ErrNoRemainingDebt) {
		t.Fatalf("expected ErrNoRemainingDebt on a settled sale, got %v", err)
	}
}
