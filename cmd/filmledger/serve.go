// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

package main

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/filmledger/internal/api"
	"github.com/tomtom215/filmledger/internal/config"
	"github.com/tomtom215/filmledger/internal/logging"
	"github.com/tomtom215/filmledger/internal/supervisor"
	"github.com/tomtom215/filmledger/internal/supervisor/services"
)

func serve(ctx context.Context, cfg *config.Config, p *pipeline) error {
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return err
	}

	tree.AddIngestService(services.NewIngestSchedulerService(
		p.orchestrator, cfg.Schedule.Interval, cfg.Schedule.RunOnStartup))

	mw := api.DefaultMiddlewareConfig()
	mw.CORSAllowedOrigins = cfg.Server.CORSOrigins
	mw.TriggerRequests = cfg.Server.TriggerRateLimit

	addr := cfg.ListenAddr()
	handler := api.NewHandler(ctx, p.orchestrator, p.db, p.tables())
	tree.AddAPIService(services.NewStatusAPIService(api.NewRouter(handler, mw), services.StatusAPIConfig{
		Addr:            addr,
		RequestTimeout:  cfg.Server.Timeout,
		ShutdownTimeout: 10 * time.Second,
	}))

	logging.Info().Str("addr", addr).Dur("interval", cfg.Schedule.Interval).Msg("Starting filmledger service")

	err = tree.Serve(ctx)
	// Triggered runs share ctx, so they are already stopping; the caller
	// closes the stores they write to once serve returns.
	handler.Wait()
	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		logging.Warn().Int("count", len(report)).Msg("Services did not stop within the shutdown timeout")
	}
	if errors.Is(err, context.Canceled) {
		logging.Info().Msg("Shutdown complete")
		return nil
	}
	return err
}
