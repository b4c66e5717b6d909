package alert

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Dispatcher decouples alert delivery from the sale commit path. Events are
// queued on a buffered channel and delivered by a background worker, so a
// slow or failing alert endpoint can never fail or delay a sale. Delivery
// errors are logged and dropped.
type Dispatcher struct {
	notifier Notifier
	logger   *zap.Logger
	events   chan uuid.UUID
	wg       sync.WaitGroup
	once     sync.Once
}

// NewDispatcher creates a dispatcher with the given queue capacity and
// starts its delivery worker.
func NewDispatcher(notifier Notifier, logger *zap.Logger, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		notifier: notifier,
		logger:   logger,
		events:   make(chan uuid.UUID, queueSize),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// StockChanged enqueues a stock-changed event for the store. It never
// blocks: when the queue is full the event is dropped with a warning.
// Alerts are best-effort.
func (d *Dispatcher) StockChanged(storeID uuid.UUID) {
	select {
	case d.events <- storeID:
	default:
		d.logger.Warn("alert queue full, dropping stock-changed event",
			zap.String("store_id", storeID.String()))
	}
}

// Close stops accepting events and waits for queued deliveries to finish.
func (d *Dispatcher) Close() {
	d.once.Do(func() { close(d.events) })
	d.wg.Wait()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for storeID := range d.events {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := d.notifier.NotifyStockChanged(ctx, storeID); err != nil {
			d.logger.Warn("stock alert delivery failed",
				zap.String("store_id", storeID.String()),
				zap.Error(err))
		}
		cancel()
	}
}
