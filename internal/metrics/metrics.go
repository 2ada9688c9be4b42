// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Store
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filmledger_db_query_duration_seconds",
			Help:    "Duration of relational store queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmledger_db_query_errors_total",
			Help: "Total number of relational store query errors",
		},
		[]string{"operation", "table"},
	)

	RowsInserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmledger_rows_inserted_total",
			Help: "Rows written to the store",
		},
		[]string{"table"},
	)

	RowsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmledger_rows_rejected_total",
			Help: "Rows not written, by reason (duplicate, failed)",
		},
		[]string{"table", "reason"},
	)

	// Catalog
	CatalogPages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmledger_catalog_pages_total",
			Help: "Listing pages requested, by outcome",
		},
		[]string{"outcome"}, // "ok", "error"
	)

	CatalogIDsDiscovered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filmledger_catalog_ids_discovered_total",
			Help: "New identifiers found on listing pages",
		},
	)

	// Record API
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmledger_api_requests_total",
			Help: "Record API requests, by outcome",
		},
		[]string{"outcome"}, // "success", "not_found", "throttled", "error"
	)

	APIRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "filmledger_api_request_duration_seconds",
			Help:    "Record API request latency in seconds, retries included",
			Buckets: prometheus.DefBuckets,
		},
	)

	ThrottleEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filmledger_throttle_events_total",
			Help: "Rate-limit sentinel responses received",
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "filmledger_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmledger_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Runs
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "filmledger_run_duration_seconds",
			Help:    "Wall time of ingestion runs",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 3600, 21600, 86400},
		},
	)

	Runs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmledger_runs_total",
			Help: "Completed ingestion runs, by kind and result",
		},
		[]string{"kind", "result"}, // kind: "run", "reconcile"; result: "done", "error"
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmledger_http_requests_total",
			Help: "Status API requests, by route pattern and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filmledger_http_request_duration_seconds",
			Help:    "Status API latency in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"route"},
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "filmledger_http_active_requests",
			Help: "Status API requests in flight",
		},
	)

	LastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "filmledger_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		},
	)
)

// RecordDBQuery observes a store query.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordInsert adds the outcome of one batch insert.
func RecordInsert(table string, inserted, duplicates, failed int) {
	RowsInserted.WithLabelValues(table).Add(float64(inserted))
	if duplicates > 0 {
		RowsRejected.WithLabelValues(table, "duplicate").Add(float64(duplicates))
	}
	if failed > 0 {
		RowsRejected.WithLabelValues(table, "failed").Add(float64(failed))
	}
}

// RecordAPIRequest counts one record API call.
func RecordAPIRequest(outcome string, duration time.Duration) {
	APIRequests.WithLabelValues(outcome).Inc()
	APIRequestDuration.Observe(duration.Seconds())
}

// RecordHTTPRequest records one served status API request. route is the
// matched pattern, never the raw path.
func RecordHTTPRequest(method, route, status string, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func TrackActiveRequest(start bool) {
	if start {
		HTTPActiveRequests.Inc()
		return
	}
	HTTPActiveRequests.Dec()
}

// RecordRun records a finished run.
func RecordRun(kind string, duration time.Duration, err error) {
	result := "done"
	if err != nil {
		result = "error"
	}
	Runs.WithLabelValues(kind, result).Inc()
	RunDuration.Observe(duration.Seconds())
	LastRunTimestamp.Set(float64(time.Now().Unix()))
}
