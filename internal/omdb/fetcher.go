// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

package omdb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/filmledger/internal/logging"
	"github.com/tomtom215/filmledger/internal/metrics"
)

// RecordSource performs single lookups; *Client implements it.
type RecordSource interface {
	Get(ctx context.Context, id string) (*Result, error)
}

// RecordSink persists a successful body; *rawcache.Cache implements it.
type RecordSink interface {
	Write(id string, body []byte) error
}

// FetcherConfig controls throttle handling.
type FetcherConfig struct {
	// Cooldown is the wait after a sentinel before the single retry.
	Cooldown time.Duration

	// MaxThrottleEvents opens the breaker. Values below 2 leave no room for
	// the retry and are raised to 2.
	MaxThrottleEvents uint32
}

// FetchStats summarises one batch.
type FetchStats struct {
	Requested      int
	Fetched        int
	NotFound       int
	Throttled      int // identifiers still throttled after their retry
	ThrottleEvents int // sentinel responses received
	Failed         int // network errors
	FetchedIDs     []string
	Abandoned      bool // breaker opened before the batch finished
}

// Fetcher runs batches of lookups.
type Fetcher struct {
	src    RecordSource
	sink   RecordSink
	cfg    FetcherConfig
	wait   func(ctx context.Context, d time.Duration) error
	logger zerolog.Logger
}

// NewFetcher wires a source to a sink.
func NewFetcher(src RecordSource, sink RecordSink, cfg FetcherConfig) *Fetcher {
	if cfg.MaxThrottleEvents < 2 {
		cfg.MaxThrottleEvents = 2
	}
	return &Fetcher{
		src:    src,
		sink:   sink,
		cfg:    cfg,
		wait:   sleepCtx,
		logger: logging.WithComponent("omdb"),
	}
}

// Fetch looks up ids in sorted order and caches every successful body.
//
// Not-found and network failures skip the identifier. A sentinel triggers a
// cooldown and one retry of the same identifier. The batch stops early on
// context cancellation, on a cache write failure, or with
// ErrThrottleBudgetExhausted when the throttle breaker opens. Stats are valid
// in every case.
func (f *Fetcher) Fetch(ctx context.Context, ids []string) (FetchStats, error) {
	ordered := append([]string(nil), ids...)
	sort.Strings(ordered)

	stats := FetchStats{Requested: len(ordered)}
	breaker := newThrottleBreaker(f.cfg.MaxThrottleEvents)
	log := logging.Ctx(ctx).With().Str("component", "omdb").Logger()

	for i, id := range ordered {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		res, err := f.attempt(ctx, breaker, id)
		if errors.Is(err, ErrThrottled) {
			stats.ThrottleEvents++
			metrics.ThrottleEvents.Inc()
			if breaker.State() == gobreaker.StateOpen {
				// No retry could pass the open breaker, so the cooldown is skipped.
				err = ErrThrottleBudgetExhausted
			} else {
				log.Warn().Str("id", id).Dur("cooldown", f.cfg.Cooldown).Msg("Request limit reached, cooling down before retry")
				if werr := f.wait(ctx, f.cfg.Cooldown); werr != nil {
					return stats, werr
				}
				res, err = f.attempt(ctx, breaker, id)
				if errors.Is(err, ErrThrottled) {
					stats.ThrottleEvents++
					metrics.ThrottleEvents.Inc()
				}
			}
		}

		switch {
		case errors.Is(err, ErrThrottleBudgetExhausted),
			errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			stats.Abandoned = true
			log.Error().Int("remaining", len(ordered)-i).Int("throttle_events", stats.ThrottleEvents).
				Msg("Throttle budget exhausted, abandoning batch")
			return stats, ErrThrottleBudgetExhausted
		case errors.Is(err, ErrThrottled):
			stats.Throttled++
			log.Warn().Str("id", id).Msg("Still throttled after retry, skipping")
		case err != nil:
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			stats.Failed++
			log.Warn().Err(err).Str("id", id).Msg("Lookup failed, skipping")
		case res.Outcome == OutcomeNotFound:
			stats.NotFound++
			log.Info().Str("id", id).Str("reason", res.Message).Msg("Record not available, skipping")
		default:
			if werr := f.sink.Write(id, res.Body); werr != nil {
				return stats, fmt.Errorf("cache write for %s: %w", id, werr)
			}
			stats.Fetched++
			stats.FetchedIDs = append(stats.FetchedIDs, id)
		}

		log.Info().Str("id", id).Float64("progress_pct", progress(i+1, len(ordered))).Msg("Fetch progress")
	}
	return stats, nil
}

// attempt runs one lookup through the breaker. A sentinel comes back as
// ErrThrottled so the breaker counts it.
func (f *Fetcher) attempt(ctx context.Context, cb *gobreaker.CircuitBreaker[*Result], id string) (*Result, error) {
	return cb.Execute(func() (*Result, error) {
		res, err := f.src.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if res.Outcome == OutcomeThrottled {
			return res, ErrThrottled
		}
		return res, nil
	})
}

func progress(done, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(done) / float64(total) * 100
}
