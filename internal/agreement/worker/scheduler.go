package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type CycleRunner interface {
	RunSweep(ctx context.Context) error
	RunReminders(ctx context.Context) error
}

// Scheduler drives the pull side of the agreement lifecycle: each tick runs
// the reconciliation sweep, then the escalation pass. The sweep runs first so
// reminders see freshly reconciled state and never nag a customer who just
// signed.
type Scheduler struct {
	runner   CycleRunner
	interval time.Duration
	logger   *zap.Logger
}

func NewScheduler(runner CycleRunner, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   logger,
	}
}

func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("agreement scheduler stopped")
			return
		case <-ticker.C:
			if err := s.runner.RunSweep(ctx); err != nil {
				s.logger.Error("agreement sweep failed", zap.Error(err))
			}
			if err := s.runner.RunReminders(ctx); err != nil {
				s.logger.Error("reminder pass failed", zap.Error(err))
			}
		}
	}
}
