// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

package services

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/filmledger/internal/ingest"
	"github.com/tomtom215/filmledger/internal/logging"
)

// Runner is the orchestrator surface the scheduler needs.
type Runner interface {
	Run(ctx context.Context) (*ingest.RunStats, error)
	IsRunning() bool
	Stop() error
}

// IngestSchedulerService runs ingestion on a fixed interval.
type IngestSchedulerService struct {
	runner       Runner
	interval     time.Duration
	runOnStartup bool
	name         string
}

// NewIngestSchedulerService creates the scheduler. A non-positive interval
// becomes 24h.
func NewIngestSchedulerService(runner Runner, interval time.Duration, runOnStartup bool) *IngestSchedulerService {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &IngestSchedulerService{
		runner:       runner,
		interval:     interval,
		runOnStartup: runOnStartup,
		name:         "ingest-scheduler",
	}
}

// Serve implements suture.Service. It only returns on shutdown.
func (s *IngestSchedulerService) Serve(ctx context.Context) error {
	logging.Info().Dur("interval", s.interval).Bool("run_on_startup", s.runOnStartup).Msg("Ingest scheduler started")

	if s.runOnStartup {
		s.runOnce(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if s.runner.IsRunning() {
				logging.Info().Msg("Stopping running ingestion due to shutdown")
				if err := s.runner.Stop(); err != nil && !errors.Is(err, ingest.ErrNoRun) {
					logging.Warn().Err(err).Msg("Failed to stop ingestion")
				}
			}
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *IngestSchedulerService) runOnce(ctx context.Context) {
	stats, err := s.runner.Run(ctx)
	switch {
	case errors.Is(err, ingest.ErrRunInProgress):
		logging.Info().Msg("Scheduled run skipped, a run is already in progress")
	case err != nil && ctx.Err() != nil:
		// Shutdown; Serve returns on its next select.
	case err != nil:
		logging.Error().Err(err).Msg("Scheduled run failed")
	default:
		logging.Info().Str("run_id", stats.RunID).Int("inserted", stats.Inserted()).Msg("Scheduled run completed")
	}
}

func (s *IngestSchedulerService) String() string {
	return s.name
}
