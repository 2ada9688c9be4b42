// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

package ingest

import (
	"maps"
	"time"
)

// Phase is a step of the run state machine.
type Phase string

const (
	PhaseDiscover Phase = "DISCOVER"
	PhaseFetch    Phase = "FETCH"
	PhaseMap      Phase = "MAP"
	PhaseInsert   Phase = "INSERT"
	PhaseDone     Phase = "DONE"
)

// Run kinds.
const (
	KindRun       = "run"
	KindReconcile = "reconcile"
)

// TableStats holds insert counts for one table.
type TableStats struct {
	Attempted  int `json:"attempted"`
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
}

// RunStats holds statistics about one run.
type RunStats struct {
	RunID string `json:"run_id"`
	Kind  string `json:"kind"`

	// Phase is the last phase entered. A finished run is always DONE unless
	// it was cancelled or hit a fatal error.
	Phase Phase `json:"phase"`

	// PagesCrawled and PageErrors count listing pages.
	PagesCrawled int `json:"pages_crawled"`
	PageErrors   int `json:"page_errors"`

	// Discovered is the number of uncached identifiers found on the listings.
	Discovered int `json:"discovered"`

	// Candidates is Discovered minus identifiers already in the store.
	Candidates int `json:"candidates"`

	Fetched        int  `json:"fetched"`
	NotFound       int  `json:"not_found"`
	Throttled      int  `json:"throttled"`
	ThrottleEvents int  `json:"throttle_events"`
	FetchFailed    int  `json:"fetch_failed"`
	Abandoned      bool `json:"abandoned"`

	// Pending is the number of cached records that were not in the store
	// when MAP started.
	Pending    int `json:"pending"`
	Mapped     int `json:"mapped"`
	Unreadable int `json:"unreadable"`
	Enrichment int `json:"enrichment"`

	Tables map[string]TableStats `json:"tables"`

	Error     string    `json:"error,omitempty"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// Duration returns how long the run took, or has taken so far.
func (s *RunStats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Inserted returns the number of rows inserted across all tables.
func (s *RunStats) Inserted() int {
	n := 0
	for _, t := range s.Tables {
		n += t.Inserted
	}
	return n
}

// Clone returns a copy that shares no maps with s.
func (s *RunStats) Clone() *RunStats {
	c := *s
	c.Tables = maps.Clone(s.Tables)
	return &c
}

// RunSummary is the status API view of a run.
type RunSummary struct {
	Status         string                `json:"status"`
	RunID          string                `json:"run_id"`
	Kind           string                `json:"kind"`
	Phase          Phase                 `json:"phase"`
	Discovered     int                   `json:"discovered"`
	Fetched        int                   `json:"fetched"`
	NotFound       int                   `json:"not_found"`
	Throttled      int                   `json:"throttled"`
	Abandoned      bool                  `json:"abandoned"`
	Mapped         int                   `json:"mapped"`
	Inserted       int                   `json:"inserted"`
	Tables         map[string]TableStats `json:"tables"`
	Error          string                `json:"error,omitempty"`
	StartTime      time.Time             `json:"start_time"`
	ElapsedSeconds float64               `json:"elapsed_seconds"`
}

// ToSummary converts RunStats to a RunSummary.
func (s *RunStats) ToSummary(running bool) *RunSummary {
	summary := &RunSummary{
		RunID:          s.RunID,
		Kind:           s.Kind,
		Phase:          s.Phase,
		Discovered:     s.Discovered,
		Fetched:        s.Fetched,
		NotFound:       s.NotFound,
		Throttled:      s.Throttled,
		Abandoned:      s.Abandoned,
		Mapped:         s.Mapped,
		Inserted:       s.Inserted(),
		Tables:         maps.Clone(s.Tables),
		Error:          s.Error,
		StartTime:      s.StartTime,
		ElapsedSeconds: s.Duration().Seconds(),
	}

	switch {
	case running:
		summary.Status = "running"
	case s.Error != "":
		summary.Status = "failed"
	default:
		summary.Status = "completed"
	}
	return summary
}
