package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/tokotrack/tokotrack-backend/internal/modules/sales"
)

// Scheduler runs the periodic overdue-debt scan. It only reads and logs;
// chasing the debt stays a human decision.
type Scheduler struct {
	cron     *cron.Cron
	repo     sales.Repository
	schedule string
	logger   *zap.Logger
}

// New creates a scheduler with the given cron expression (standard 5-field).
func New(repo sales.Repository, schedule string, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:     cron.New(),
		repo:     repo,
		schedule: schedule,
		logger:   logger,
	}
}

// Start schedules the scan and starts the cron loop.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc(s.schedule, s.scanOverdueDebts); err != nil {
		s.logger.Error("failed to schedule overdue-debt scan", zap.Error(err))
		return
	}
	s.logger.Info("scheduler started", zap.String("debt_scan_schedule", s.schedule))
	s.cron.Start()
}

// Stop stops the cron loop.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cron.Stop()
}

func (s *Scheduler) scanOverdueDebts() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	overdue, err := s.repo.ListOverdue(ctx, time.Now())
	if err != nil {
		s.logger.Error("overdue-debt scan failed", zap.Error(err))
		return
	}

	var total float64
	for _, sale := range overdue {
		total += sale.Remaining
		s.logger.Info("overdue debt",
			zap.String("store_id", sale.StoreID.String()),
			zap.String("invoice_number", sale.InvoiceNumber),
			zap.Float64("remaining", sale.Remaining),
			zap.Timep("due_date", sale.DueDate))
	}
	s.logger.Info("overdue-debt scan finished",
		zap.Int("count", len(overdue)),
		zap.Float64("total_remaining", total))
}
