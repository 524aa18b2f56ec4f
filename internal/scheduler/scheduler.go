// Package scheduler runs the daily batch and the position sweep on cron specs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"signal-engine/internal/engine"
	"signal-engine/internal/logging"
	"signal-engine/internal/models"
	"signal-engine/internal/trading"
)

// BatchRunner runs one batch over the given symbols; nil means all stored symbols.
type BatchRunner interface {
	RunBatch(ctx context.Context, symbols []string) (*engine.BatchReport, error)
}

// Sweeper evaluates every open position.
type Sweeper interface {
	Sweep(ctx context.Context) ([]trading.PositionAlerts, error)
}

// Scheduler manages the cron jobs.
type Scheduler struct {
	Cron    *cron.Cron
	Batch   BatchRunner
	Sweeper Sweeper
	Symbols []string
	Ctx     context.Context

	logger zerolog.Logger
}

// NewScheduler creates a scheduler. Jobs are skipped while a previous run of
// the same job is still in progress.
func NewScheduler(ctx context.Context, batch BatchRunner, sweeper Sweeper, symbols []string) *Scheduler {
	return &Scheduler{
		Cron:    cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		Batch:   batch,
		Sweeper: sweeper,
		Symbols: symbols,
		Ctx:     ctx,
		logger:  logging.WithOperation(logging.FromContext(ctx), "scheduler"),
	}
}

// RegisterAll registers the batch and sweep jobs. An empty spec disables a job.
func (s *Scheduler) RegisterAll(batchCron, sweepCron string) error {
	if batchCron != "" {
		if _, err := s.Cron.AddFunc(batchCron, s.batchTask); err != nil {
			return fmt.Errorf("register batch task: %w", err)
		}
	}
	if sweepCron != "" {
		if _, err := s.Cron.AddFunc(sweepCron, s.sweepTask); err != nil {
			return fmt.Errorf("register sweep task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info().Int("jobs", len(s.Cron.Entries())).Msg("Scheduler started")
}

// Stop stops the scheduler and waits up to timeout for running jobs.
func (s *Scheduler) Stop(timeout time.Duration) {
	done := s.Cron.Stop()
	select {
	case <-done.Done():
	case <-time.After(timeout):
		s.logger.Warn().Dur("timeout", timeout).Msg("Jobs still running at shutdown")
	}
	s.logger.Info().Msg("Scheduler stopped")
}

// RunBatchNow executes the batch job immediately.
func (s *Scheduler) RunBatchNow() {
	s.batchTask()
}

// RunSweepNow executes the sweep job immediately.
func (s *Scheduler) RunSweepNow() {
	s.sweepTask()
}

func (s *Scheduler) batchTask() {
	if s.Batch == nil {
		return
	}
	report, err := s.Batch.RunBatch(s.Ctx, s.Symbols)
	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduled batch failed")
		return
	}
	s.logger.Info().
		Int("processed", report.Processed).
		Int("failed", report.Failed).
		Msg("Scheduled batch finished")
}

func (s *Scheduler) sweepTask() {
	if s.Sweeper == nil {
		return
	}
	results, err := s.Sweeper.Sweep(s.Ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduled sweep failed")
		return
	}
	for _, pa := range results {
		for _, alert := range pa.Alerts {
			if alert.Severity != models.SeverityInfo {
				logging.LogExitAlert(s.logger, alert)
			}
		}
	}
}
