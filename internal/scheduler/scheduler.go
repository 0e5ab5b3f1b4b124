package scheduler

import (
	"context"
	"log/slog"
	"time"

	"ugc_producer/internal/domain"
)

// TickRunner defines the interface for one evaluation pass.
type TickRunner interface {
	RunTick(ctx context.Context) (*domain.TickStats, error)
}

// Scheduler fires the evaluation loop on a fixed wall-clock interval. Ticks
// never overlap: each run finishes (or hits its timeout) before the next
// ticker fire is serviced. Productions outlasting their tick are fenced off
// by the per-channel lease, not by the scheduler.
type Scheduler struct {
	runner      TickRunner
	interval    time.Duration
	tickTimeout time.Duration
	logger      *slog.Logger
}

func NewScheduler(runner TickRunner, interval, tickTimeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:      runner,
		interval:    interval,
		tickTimeout: tickTimeout,
		logger:      logger,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval, "tick_timeout", s.tickTimeout)

	s.runTick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runTick(ctx)
		}
	}
}

func (s *Scheduler) runTick(ctx context.Context) {
	tickCtx, cancel := context.WithTimeout(ctx, s.tickTimeout)
	defer cancel()

	if _, err := s.runner.RunTick(tickCtx); err != nil {
		s.logger.Error("tick failed", "error", err)
	}
}
