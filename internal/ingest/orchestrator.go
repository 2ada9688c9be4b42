// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/filmledger/internal/database"
	"github.com/tomtom215/filmledger/internal/logging"
	"github.com/tomtom215/filmledger/internal/metrics"
	"github.com/tomtom215/filmledger/internal/omdb"
	"github.com/tomtom215/filmledger/internal/rawcache"
	"github.com/tomtom215/filmledger/internal/schema"
)

var (
	// ErrRunInProgress is returned when a run is already active.
	ErrRunInProgress = errors.New("ingest: run already in progress")

	// ErrNoRun is returned by Stop when nothing is running.
	ErrNoRun = errors.New("ingest: no run in progress")
)

// Discoverer finds identifiers on one listing page.
type Discoverer interface {
	DiscoverIDs(ctx context.Context, pageURL string) (map[string]struct{}, error)
}

// Fetcher fetches and caches a batch of records.
type Fetcher interface {
	Fetch(ctx context.Context, ids []string) (omdb.FetchStats, error)
}

// Ledger reports ingestion state.
type Ledger interface {
	AlreadyIngestedIDs(ctx context.Context) (map[string]struct{}, error)
	PendingIDs(ctx context.Context) (map[string]struct{}, error)
}

// RecordLoader reads a cached record.
type RecordLoader interface {
	Load(id string) (schema.Record, error)
}

// Store is the relational store.
type Store interface {
	InsertEntities(ctx context.Context, b database.EntityBatch) (entity, child database.InsertResult, err error)
	InsertRows(ctx context.Context, t schema.Table, rows [][]any) (database.InsertResult, error)
	IDsIn(ctx context.Context, table, column string) (map[string]struct{}, error)
}

// Config holds orchestrator settings.
type Config struct {
	// ListingURLs are the fully expanded listing pages crawled by DISCOVER.
	ListingURLs []string

	// EnrichmentDir is optional. When set and the descriptor declares an
	// enrichment table, its *.json documents are inserted during MAP/INSERT.
	EnrichmentDir string
}

// Deps are the collaborators of an Orchestrator. Progress may be nil.
type Deps struct {
	Crawler  Discoverer
	Fetcher  Fetcher
	Ledger   Ledger
	Cache    RecordLoader
	Store    Store
	Mapper   *schema.Mapper
	Progress ProgressTracker
}

// Orchestrator runs the ingestion state machine.
type Orchestrator struct {
	cfg  Config
	deps Deps

	mu      sync.RWMutex
	running bool
	current *RunStats
	cancel  context.CancelFunc
}

// New checks deps and returns an Orchestrator.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Crawler == nil, deps.Fetcher == nil:
		return nil, fmt.Errorf("ingest: crawler and fetcher are required")
	case deps.Ledger == nil, deps.Cache == nil, deps.Store == nil:
		return nil, fmt.Errorf("ingest: ledger, cache and store are required")
	case deps.Mapper == nil:
		return nil, fmt.Errorf("ingest: mapper is required")
	}
	if deps.Progress == nil {
		deps.Progress = NewInMemoryProgress()
	}
	return &Orchestrator{cfg: cfg, deps: deps}, nil
}

// Run executes DISCOVER, FETCH, MAP and INSERT. The returned stats are valid
// even when err is non-nil.
func (o *Orchestrator) Run(ctx context.Context) (*RunStats, error) {
	return o.execute(ctx, KindRun)
}

// Reconcile executes MAP and INSERT only, inserting records that were cached
// by an earlier run but never reached the store.
func (o *Orchestrator) Reconcile(ctx context.Context) (*RunStats, error) {
	return o.execute(ctx, KindReconcile)
}

func (o *Orchestrator) execute(ctx context.Context, kind string) (*RunStats, error) {
	ctx, err := o.begin(ctx, kind)
	if err != nil {
		return nil, err
	}

	log := logging.Ctx(ctx).With().Str("component", "ingest").Str("kind", kind).Logger()
	log.Info().Msg("Run started")

	if prev, perr := o.deps.Progress.Load(ctx); perr == nil && prev != nil && prev.Phase != PhaseDone {
		log.Warn().Str("previous_run", prev.RunID).Str("phase", string(prev.Phase)).
			Msg("Previous run did not finish, cached records will be picked up by MAP")
	}

	proceed := true
	if kind == KindRun {
		proceed, err = o.acquire(ctx, log)
	}
	if err == nil && proceed {
		err = o.load(ctx, log)
	}
	if err == nil {
		o.setPhase(ctx, PhaseDone)
	}

	stats := o.end(ctx, err)
	metrics.RecordRun(kind, stats.Duration(), err)

	ev := log.Info()
	if err != nil {
		ev = log.Error().Err(err)
	}
	ev.Str("phase", string(stats.Phase)).
		Int("discovered", stats.Discovered).
		Int("fetched", stats.Fetched).
		Int("not_found", stats.NotFound).
		Int("throttled", stats.Throttled).
		Int("mapped", stats.Mapped).
		Int("inserted", stats.Inserted()).
		Dur("duration", stats.Duration()).
		Msg("Run finished")
	return stats, err
}

// acquire runs DISCOVER and FETCH. proceed is false when nothing new was
// discovered.
func (o *Orchestrator) acquire(ctx context.Context, log zerolog.Logger) (proceed bool, err error) {
	o.setPhase(ctx, PhaseDiscover)
	discovered := make(map[string]struct{})
	for i, page := range o.cfg.ListingURLs {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		ids, err := o.deps.Crawler.DiscoverIDs(ctx, page)
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			o.update(func(s *RunStats) { s.PageErrors++ })
			log.Warn().Err(err).Str("url", page).Msg("Listing page failed, skipping")
			continue
		}
		for id := range ids {
			discovered[id] = struct{}{}
		}
		o.update(func(s *RunStats) {
			s.PagesCrawled++
			s.Discovered = len(discovered)
		})
		log.Info().Str("url", page).Int("new_ids", len(ids)).
			Float64("progress_pct", percent(i+1, len(o.cfg.ListingURLs))).Msg("Listing page crawled")
	}

	if len(discovered) == 0 {
		log.Info().Msg("No new identifiers discovered")
		return false, nil
	}

	o.setPhase(ctx, PhaseFetch)
	ingested, err := o.deps.Ledger.AlreadyIngestedIDs(ctx)
	if err != nil {
		return false, err
	}
	candidates := make([]string, 0, len(discovered))
	for id := range discovered {
		if _, ok := ingested[id]; !ok {
			candidates = append(candidates, id)
		}
	}
	o.update(func(s *RunStats) { s.Candidates = len(candidates) })
	log.Info().Int("candidates", len(candidates)).Int("already_ingested", len(discovered)-len(candidates)).
		Msg("Fetching records")

	fs, err := o.deps.Fetcher.Fetch(ctx, candidates)
	o.update(func(s *RunStats) {
		s.Fetched = fs.Fetched
		s.NotFound = fs.NotFound
		s.Throttled = fs.Throttled
		s.ThrottleEvents = fs.ThrottleEvents
		s.FetchFailed = fs.Failed
		s.Abandoned = fs.Abandoned
	})
	if errors.Is(err, omdb.ErrThrottleBudgetExhausted) {
		// Whatever was cached before the breaker opened is still loaded.
		log.Warn().Err(err).Int("fetched", fs.Fetched).Msg("Fetch abandoned, continuing with cached records")
		return true, nil
	}
	return err == nil, err
}

// load runs MAP and INSERT.
func (o *Orchestrator) load(ctx context.Context, log zerolog.Logger) error {
	o.setPhase(ctx, PhaseMap)
	desc := o.deps.Mapper.Descriptor()

	pending, err := o.deps.Ledger.PendingIDs(ctx)
	if err != nil {
		return err
	}
	ids := sortedIDs(pending)

	records := make([]schema.Record, 0, len(ids))
	unreadable := 0
	for _, id := range ids {
		rec, err := o.deps.Cache.Load(id)
		if err != nil {
			unreadable++
			log.Warn().Err(err).Str("id", id).Msg("Cached record unreadable, skipping")
			continue
		}
		records = append(records, rec)
	}
	proj := o.deps.Mapper.MapRecords(records)
	if proj.Skipped > 0 {
		log.Warn().Int("records", proj.Skipped).Str("field", desc.IDColumn).Msg("Cached records without identifier skipped")
	}

	wikiRows, err := o.mapEnrichment(ctx, log)
	if err != nil {
		return err
	}
	o.update(func(s *RunStats) {
		s.Pending = len(ids)
		s.Mapped = len(proj.Entities)
		s.Unreadable = unreadable + proj.Skipped
		s.Enrichment = len(wikiRows)
	})

	o.setPhase(ctx, PhaseInsert)
	entity, _ := desc.Table(desc.EntityTable)
	ratings, _ := desc.Table(desc.RatingsTable)
	// A movie and its ratings commit together, so a movie in the store always
	// has its ratings and an interrupted insert leaves the movie pending.
	movieRes, ratingRes, err := o.deps.Store.InsertEntities(ctx, database.EntityBatch{
		Entity:    entity,
		Rows:      proj.Entities,
		Child:     ratings,
		ChildRows: proj.Ratings,
		Owners:    proj.RatingOwners,
	})
	o.record(entity.Name, movieRes)
	o.record(ratings.Name, ratingRes)
	if err != nil {
		return fmt.Errorf("insert into %s: %w", entity.Name, err)
	}
	logInsert(log, len(proj.Entities), movieRes)
	logInsert(log, len(proj.Ratings), ratingRes)

	if len(wikiRows) > 0 {
		wiki, _ := desc.Table(desc.EnrichmentTable)
		if _, err := o.insert(ctx, log, wiki, wikiRows); err != nil {
			return err
		}
	}
	return nil
}

// mapEnrichment returns enrichment rows whose identifier is not in the store
// yet. A missing or unreadable directory only disables enrichment.
func (o *Orchestrator) mapEnrichment(ctx context.Context, log zerolog.Logger) ([][]any, error) {
	desc := o.deps.Mapper.Descriptor()
	if o.cfg.EnrichmentDir == "" || !desc.HasEnrichment() {
		return nil, nil
	}

	docs, err := rawcache.LoadDir(o.cfg.EnrichmentDir, func(path string, err error) {
		log.Warn().Err(err).Str("path", path).Msg("Enrichment document unreadable, skipping")
	})
	if err != nil {
		log.Warn().Err(err).Msg("Enrichment directory unavailable")
		return nil, nil
	}
	if len(docs) == 0 {
		return nil, nil
	}

	rows, ids, skipped, err := o.deps.Mapper.MapEnrichment(docs)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		log.Warn().Int("documents", skipped).Msg("Enrichment documents without identifier skipped")
	}

	existing, err := o.deps.Store.IDsIn(ctx, desc.EnrichmentTable, desc.EnrichmentIDColumn)
	if err != nil {
		return nil, err
	}
	out := make([][]any, 0, len(rows))
	for i, row := range rows {
		if _, ok := existing[ids[i]]; !ok {
			out = append(out, row)
		}
	}
	return out, nil
}

// insert writes rows to t and records the result. Rejected rows are logged by
// the store and never fail the run.
func (o *Orchestrator) insert(ctx context.Context, log zerolog.Logger, t schema.Table, rows [][]any) (database.InsertResult, error) {
	res, err := o.deps.Store.InsertRows(ctx, t, rows)
	o.record(t.Name, res)
	if err != nil {
		return res, fmt.Errorf("insert into %s: %w", t.Name, err)
	}
	logInsert(log, len(rows), res)
	return res, nil
}

func (o *Orchestrator) record(table string, res database.InsertResult) {
	o.update(func(s *RunStats) {
		s.Tables[table] = TableStats{
			Attempted:  res.Attempted,
			Inserted:   res.Inserted,
			Duplicates: res.Duplicates,
			Failed:     res.Failed,
		}
	})
}

func logInsert(log zerolog.Logger, rows int, res database.InsertResult) {
	if v := res.Violation(); v != nil {
		log.Warn().Err(v).Str("table", res.Table).Int("rows", rows).Msg("Schema violations during insert")
	}
	log.Info().Str("table", res.Table).Int("attempted", res.Attempted).Int("inserted", res.Inserted).
		Float64("progress_pct", percent(res.Inserted, res.Attempted)).Msg("Rows inserted")
}

// Stop cancels the active run.
func (o *Orchestrator) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.running {
		return ErrNoRun
	}
	o.cancel()
	return nil
}

// IsRunning reports whether a run is active.
func (o *Orchestrator) IsRunning() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.running
}

// LastRun returns the active run, or the last persisted run, or nil.
func (o *Orchestrator) LastRun(ctx context.Context) (*RunStats, bool, error) {
	o.mu.RLock()
	if o.current != nil {
		defer o.mu.RUnlock()
		return o.current.Clone(), o.running, nil
	}
	o.mu.RUnlock()

	stats, err := o.deps.Progress.Load(ctx)
	return stats, false, err
}

func (o *Orchestrator) begin(ctx context.Context, kind string) (context.Context, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return nil, ErrRunInProgress
	}

	runID := uuid.NewString()
	ctx, cancel := context.WithCancel(ctx)
	ctx = logging.ContextWithRunID(ctx, runID)
	if logging.CorrelationIDFromContext(ctx) == "" {
		ctx = logging.ContextWithNewCorrelationID(ctx)
	}

	o.running = true
	o.cancel = cancel
	o.current = &RunStats{
		RunID:     runID,
		Kind:      kind,
		Tables:    make(map[string]TableStats),
		StartTime: time.Now(),
	}
	return ctx, nil
}

func (o *Orchestrator) end(ctx context.Context, err error) *RunStats {
	o.mu.Lock()
	o.current.EndTime = time.Now()
	if err != nil {
		o.current.Error = err.Error()
	}
	final := o.current.Clone()
	o.running = false
	o.cancel()
	o.mu.Unlock()

	// The run context may already be cancelled; the final save must still land.
	if serr := o.deps.Progress.Save(context.WithoutCancel(ctx), final); serr != nil {
		logging.Ctx(ctx).Warn().Err(serr).Msg("Failed to save run stats")
	}
	return final
}

func (o *Orchestrator) setPhase(ctx context.Context, p Phase) {
	o.update(func(s *RunStats) { s.Phase = p })
	if err := o.deps.Progress.Save(ctx, o.snapshot()); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to save run stats")
	}
}

func (o *Orchestrator) update(fn func(s *RunStats)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fn(o.current)
}

func (o *Orchestrator) snapshot() *RunStats {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.current.Clone()
}

func sortedIDs(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func percent(done, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(done) / float64(total) * 100
}
