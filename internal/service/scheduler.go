package service

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultSweepInterval is how often pending reviews are checked for deleted posts
const DefaultSweepInterval = time.Hour

// StaleSweeper drops review cases whose post was deleted
type StaleSweeper interface {
	SweepStale(ctx context.Context) (int, error)
}

// ReviewScheduler periodically sweeps stale review cases
type ReviewScheduler struct {
	reviews  StaleSweeper
	interval time.Duration
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReviewScheduler creates a new review scheduler
func NewReviewScheduler(reviews StaleSweeper, interval time.Duration, logger *slog.Logger) *ReviewScheduler {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewScheduler{
		reviews:  reviews,
		interval: interval,
		logger:   logger.With("component", "scheduler"),
	}
}

// Start starts the scheduler
func (s *ReviewScheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.sweepLoop()

	s.logger.Info("started", "interval", s.interval)
}

// Stop stops the scheduler and waits for a running sweep
func (s *ReviewScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info("stopped")
}

func (s *ReviewScheduler) sweepLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(s.ctx)
		}
	}
}

// Sweep runs one pass
func (s *ReviewScheduler) Sweep(ctx context.Context) int {
	n, err := s.reviews.SweepStale(ctx)
	if err != nil {
		s.logger.Warn("review sweep failed", "swept", n, "err", err)
		return n
	}
	if n > 0 {
		s.logger.Info("stale reviews dropped", "count", n)
	}
	return n
}
