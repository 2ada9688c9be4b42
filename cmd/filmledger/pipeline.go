// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/filmledger/internal/catalog"
	"github.com/tomtom215/filmledger/internal/config"
	"github.com/tomtom215/filmledger/internal/database"
	"github.com/tomtom215/filmledger/internal/ingest"
	"github.com/tomtom215/filmledger/internal/ledger"
	"github.com/tomtom215/filmledger/internal/logging"
	"github.com/tomtom215/filmledger/internal/omdb"
	"github.com/tomtom215/filmledger/internal/rawcache"
	"github.com/tomtom215/filmledger/internal/schema"
)

// pipeline owns every long-lived resource the commands share.
type pipeline struct {
	db           *database.DB
	progress     *ingest.BadgerProgress
	descriptor   *schema.Descriptor
	orchestrator *ingest.Orchestrator
}

func newPipeline(ctx context.Context, cfg *config.Config) (_ *pipeline, err error) {
	p := &pipeline{}
	defer func() {
		if err != nil {
			p.Close()
		}
	}()

	if p.descriptor, err = schema.Load(cfg.Schema.Path); err != nil {
		return nil, err
	}
	mapper, err := schema.NewMapper(p.descriptor)
	if err != nil {
		return nil, err
	}

	if p.db, err = database.New(&cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	if err = p.db.CreateTables(ctx, p.descriptor); err != nil {
		return nil, err
	}
	logging.Info().Str("driver", p.db.Driver()).Str("path", cfg.Database.Path).Msg("Store ready")

	cache := rawcache.New(cfg.Cache.Dir)
	led := ledger.New(p.db, cache, p.descriptor.EntityTable, p.descriptor.IDColumn)

	crawler := catalog.New(catalog.Config{
		Timeout:           cfg.Catalog.Timeout,
		UserAgent:         cfg.Catalog.UserAgent,
		RequestsPerSecond: cfg.Catalog.RequestsPerSecond,
	}, led)

	client := omdb.NewClient(omdb.ClientConfig{
		BaseURL:           cfg.API.BaseURL,
		APIKey:            cfg.API.Key,
		Plot:              cfg.API.Plot,
		Timeout:           cfg.API.Timeout,
		MaxRetries:        cfg.API.MaxRetries,
		RetryBaseDelay:    cfg.API.RetryBaseDelay,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
	})
	fetcher := omdb.NewFetcher(client, cache, omdb.FetcherConfig{
		Cooldown:          cfg.API.ThrottleCooldown,
		MaxThrottleEvents: cfg.API.MaxThrottleEvents,
	})

	deps := ingest.Deps{
		Crawler: crawler,
		Fetcher: fetcher,
		Ledger:  led,
		Cache:   cache,
		Store:   p.db,
		Mapper:  mapper,
	}
	if cfg.Ledger.Path != "" {
		if p.progress, err = ingest.OpenBadgerProgress(cfg.Ledger.Path); err != nil {
			return nil, fmt.Errorf("failed to open run ledger: %w", err)
		}
		deps.Progress = p.progress
	}

	p.orchestrator, err = ingest.New(ingest.Config{
		ListingURLs:   catalog.ListingURLs(cfg.Catalog.URLs, cfg.Catalog.PageTemplate, cfg.Catalog.FirstPage, cfg.Catalog.LastPage),
		EnrichmentDir: cfg.Cache.EnrichmentDir,
	}, deps)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// tables lists the store tables in declaration order.
func (p *pipeline) tables() []string {
	names := make([]string, 0, len(p.descriptor.Tables))
	for _, t := range p.descriptor.Tables {
		names = append(names, t.Name)
	}
	return names
}

// Close releases the store and the run ledger. Safe on a partly built pipeline.
func (p *pipeline) Close() {
	var errs []error
	if p.progress != nil {
		errs = append(errs, p.progress.Close())
	}
	if p.db != nil {
		errs = append(errs, p.db.Close())
	}
	if err := errors.Join(errs...); err != nil {
		logging.Error().Err(err).Msg("Error closing resources")
	}
}
