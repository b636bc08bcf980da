// Package scheduler periodically recomputes risk snapshots for every entity
// with price history.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/marketmoves/marketmoves/internal/common"
	"github.com/marketmoves/marketmoves/internal/interfaces"
	"github.com/marketmoves/marketmoves/internal/services/risk"
)

// Service runs the scheduled batch recomputation
type Service struct {
	aggregator *risk.Aggregator
	prices     interfaces.PriceStorage
	cron       *cron.Cron
	schedule   string
	logger     arbor.ILogger

	mu      sync.Mutex
	running bool
	lastRun *time.Time
}

// NewService creates the recompute scheduler
func NewService(aggregator *risk.Aggregator, prices interfaces.PriceStorage, cfg common.SchedulerConfig, logger arbor.ILogger) *Service {
	schedule := cfg.Schedule
	if schedule == "" {
		schedule = "0 6 * * *" // Daily at 06:00
	}
	return &Service{
		aggregator: aggregator,
		prices:     prices,
		cron:       cron.New(),
		schedule:   schedule,
		logger:     logger,
	}
}

// Start registers the cron entry and begins scheduling
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	_, err := s.cron.AddFunc(s.schedule, func() {
		if err := s.RecomputeAll(context.Background()); err != nil {
			s.logger.Error().Err(err).Msg("Scheduled recompute failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule '%s': %w", s.schedule, err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info().Str("schedule", s.schedule).Msg("Recompute scheduler started")
	return nil
}

// Stop halts scheduling and waits for a running recompute to finish
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Recompute scheduler stopped")
}

// RecomputeAll computes a fresh snapshot for every ticker with price history.
// Entity failures are logged, not propagated; the run only errors when the
// ticker list itself cannot be read.
func (s *Service) RecomputeAll(ctx context.Context) error {
	tickers, err := s.prices.ListTickers()
	if err != nil {
		return fmt.Errorf("failed to list tickers: %w", err)
	}
	if len(tickers) == 0 {
		s.logger.Debug().Msg("No tickers to recompute")
		return nil
	}

	start := time.Now()
	results := s.aggregator.ComputeBatch(ctx, tickers, start.UTC())

	failed := 0
	for ticker, result := range results {
		if result.Error != "" {
			failed++
			s.logger.Warn().
				Str("ticker", ticker).
				Str("error", result.Error).
				Msg("Entity recompute failed")
		}
	}

	now := time.Now()
	s.mu.Lock()
	s.lastRun = &now
	s.mu.Unlock()

	s.logger.Info().
		Int("tickers", len(tickers)).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("Scheduled recompute completed")
	return nil
}

// LastRun returns the completion time of the most recent run, or nil
func (s *Service) LastRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}
