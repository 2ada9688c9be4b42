// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/filmledger/internal/ingest"
)

type mockRunner struct {
	runs    atomic.Int32
	err     error
	block   bool
	running atomic.Bool
	stops   atomic.Int32

	mu     sync.Mutex
	cancel context.CancelFunc
}

func (m *mockRunner) Run(ctx context.Context) (*ingest.RunStats, error) {
	m.runs.Add(1)
	if m.block {
		ctx, cancel := context.WithCancel(ctx)
		m.mu.Lock()
		m.cancel = cancel
		m.mu.Unlock()
		m.running.Store(true)
		<-ctx.Done()
		m.running.Store(false)
		return &ingest.RunStats{}, ctx.Err()
	}
	if m.err != nil {
		return &ingest.RunStats{}, m.err
	}
	return &ingest.RunStats{RunID: "r", Phase: ingest.PhaseDone}, nil
}

func (m *mockRunner) IsRunning() bool { return m.running.Load() }

func (m *mockRunner) Stop() error {
	m.stops.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
	}
	return nil
}

var _ suture.Service = (*IngestSchedulerService)(nil)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestIngestScheduler_Defaults(t *testing.T) {
	svc := NewIngestSchedulerService(&mockRunner{}, 0, false)
	if svc.interval != 24*time.Hour {
		t.Errorf("interval = %v, want 24h", svc.interval)
	}
	if svc.String() != "ingest-scheduler" {
		t.Errorf("String() = %q", svc.String())
	}
}

func TestIngestScheduler_RunsOnStartupAndEveryInterval(t *testing.T) {
	runner := &mockRunner{}
	svc := NewIngestSchedulerService(runner, 20*time.Millisecond, true)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	waitFor(t, func() bool { return runner.runs.Load() >= 3 })
	cancel()

	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
}

func TestIngestScheduler_NoStartupRun(t *testing.T) {
	runner := &mockRunner{}
	svc := NewIngestSchedulerService(runner, time.Hour, false)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_ = svc.Serve(ctx)

	if got := runner.runs.Load(); got != 0 {
		t.Errorf("runs = %d, want 0 before the first tick", got)
	}
}

func TestIngestScheduler_FailedRunKeepsSchedule(t *testing.T) {
	for _, runErr := range []error{errors.New("store unavailable"), ingest.ErrRunInProgress} {
		t.Run(runErr.Error(), func(t *testing.T) {
			runner := &mockRunner{err: runErr}
			svc := NewIngestSchedulerService(runner, 10*time.Millisecond, true)

			ctx, cancel := context.WithCancel(context.Background())
			errCh := make(chan error, 1)
			go func() { errCh <- svc.Serve(ctx) }()

			waitFor(t, func() bool { return runner.runs.Load() >= 2 })
			cancel()
			if err := <-errCh; !errors.Is(err, context.Canceled) {
				t.Errorf("Serve() = %v, want context.Canceled", err)
			}
		})
	}
}

func TestIngestScheduler_ShutdownCancelsRun(t *testing.T) {
	runner := &mockRunner{block: true}
	svc := NewIngestSchedulerService(runner, time.Hour, true)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	waitFor(t, runner.IsRunning)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after shutdown")
	}
}
