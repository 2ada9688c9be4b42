// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

/*
Package api serves the status endpoints of serve mode.

Routes:

	GET  /healthz                store ping
	GET  /metrics                Prometheus exposition
	GET  /api/v1/runs/last       active or last persisted run
	GET  /api/v1/store/counts    row count per descriptor table
	POST /api/v1/runs            start a run in the background

POST /api/v1/runs is rate limited per client IP with go-chi/httprate. CORS is
handled globally by go-chi/cors so preflight requests never reach a handler.
JSON bodies use the APIResponse envelope and are encoded with goccy/go-json.
*/
package api
