package alert

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
)

type captureNotifier struct {
	mu     sync.Mutex
	stores []uuid.UUID
	err    error
}

func (c *captureNotifier) NotifyStockChanged(_ context.Context, storeID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stores = append(c.stores, storeID)
	return c.err
}

func (c *captureNotifier) seen() []uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]uuid.UUID, len(c.stores))
	copy(out, c.stores)
	return out
}

func TestDispatcherDeliversQueuedEvents(t *testing.T) {
	notifier := &captureNotifier{}
	d := NewDispatcher(notifier, nil, 8)

	a, b := uuid.New(), uuid.New()
	d.StockChanged(a)
	d.StockChanged(b)
	d.Close()

	got := notifier.seen()
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Errorf("expected [%s %s], got %v", a, b, got)
	}
}

func TestDispatcherSwallowsNotifierErrors(t *testing.T) {
	notifier := &captureNotifier{err: errors.New("endpoint down")}
	d := NewDispatcher(notifier, nil, 8)

	// Must not panic or block; errors are logged and dropped.
	d.StockChanged(uuid.New())
	d.Close()

	if len(notifier.seen()) != 1 {
		t.Error("event should still have been attempted")
	}
}
