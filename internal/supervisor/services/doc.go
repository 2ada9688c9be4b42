// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

/*
Package services adapts serve-mode components to suture.Service.

Each wrapper implements:

	type Service interface {
	    Serve(ctx context.Context) error
	}

StatusAPIService binds the status API listener and serves the router on a
new http.Server for every Serve call, so a restarted service gets a usable
server. Cancelling the context drains connections for at most the configured
timeout.

IngestSchedulerService runs the orchestrator every interval, optionally once
at startup. A failed run is logged and the schedule continues; only shutdown
ends Serve. A run that is still going at shutdown is stopped.

Both implement fmt.Stringer so suture events name them.
*/
package services
