// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/tomtom215/filmledger/internal/ingest"
	"github.com/tomtom215/filmledger/internal/logging"
)

// RunController starts runs and reports on them; *ingest.Orchestrator
// implements it.
type RunController interface {
	Run(ctx context.Context) (*ingest.RunStats, error)
	IsRunning() bool
	LastRun(ctx context.Context) (*ingest.RunStats, bool, error)
}

// StoreReader is the read side of the relational store.
type StoreReader interface {
	Ping(ctx context.Context) error
	TableCounts(ctx context.Context, tables []string) (map[string]int64, error)
}

// Handler serves the status endpoints.
type Handler struct {
	runs   RunController
	store  StoreReader
	tables []string

	// runCtx parents triggered runs so they outlive the request but stop
	// with the server.
	runCtx context.Context
	active sync.WaitGroup
}

// NewHandler creates a Handler. tables are the names reported by
// /api/v1/store/counts.
func NewHandler(runCtx context.Context, runs RunController, store StoreReader, tables []string) *Handler {
	return &Handler{runs: runs, store: store, tables: tables, runCtx: runCtx}
}

// HealthResponse is the body of /healthz.
type HealthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	RunActive bool   `json:"run_active"`
	CheckedAt string `json:"checked_at"`
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:    "ok",
		Database:  "ok",
		RunActive: h.runs.IsRunning(),
		CheckedAt: time.Now().UTC().Format(time.RFC3339),
	}
	rw := NewResponseWriter(w, r)
	if err := h.store.Ping(ctx); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Health check failed")
		resp.Status, resp.Database = "degraded", "unreachable"
		rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "database unreachable", resp)
		return
	}
	rw.Success(resp)
}

// LastRun handles GET /api/v1/runs/last.
func (h *Handler) LastRun(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	stats, running, err := h.runs.LastRun(r.Context())
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to load last run")
		rw.Error(http.StatusInternalServerError, ErrCodeInternalError, "run ledger unavailable", nil)
		return
	}
	if stats == nil {
		rw.Error(http.StatusNotFound, ErrCodeNotFound, "no run recorded yet", nil)
		return
	}
	rw.Success(stats.ToSummary(running))
}

// StoreCounts handles GET /api/v1/store/counts.
func (h *Handler) StoreCounts(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	counts, err := h.store.TableCounts(r.Context(), h.tables)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(counts)
}

// TriggerRun handles POST /api/v1/runs. The run continues after the response
// is written.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.runs.IsRunning() {
		var summary *ingest.RunSummary
		if stats, _, err := h.runs.LastRun(r.Context()); err == nil && stats != nil {
			summary = stats.ToSummary(true)
		}
		rw.Error(http.StatusConflict, ErrCodeConflict, "run already in progress", summary)
		return
	}

	ctx := logging.ContextWithCorrelationID(h.runCtx, logging.CorrelationIDFromContext(r.Context()))
	h.active.Add(1)
	go func() {
		defer h.active.Done()
		if _, err := h.runs.Run(ctx); err != nil && !errors.Is(err, ingest.ErrRunInProgress) {
			logging.Ctx(ctx).Error().Err(err).Msg("Triggered run failed")
		}
	}()

	rw.Accepted(map[string]string{"message": "run started"})
}

// Wait blocks until every run started by TriggerRun has returned. Call it
// after the HTTP server has stopped accepting requests and before the
// pipeline's stores are closed.
func (h *Handler) Wait() {
	h.active.Wait()
}
