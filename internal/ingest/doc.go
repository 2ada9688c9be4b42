// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

/*
Package ingest drives one ingestion run through its phases:

	DISCOVER -> FETCH -> MAP -> INSERT -> DONE

DISCOVER crawls every configured listing page and unions the identifiers that
are not cached yet. FETCH sends the candidates that are not already in the
store to the record API, caching each successful body. MAP loads every cached
record that is not ingested (not only the ones fetched by this run) and
projects it into rows. INSERT writes movies first, then the ratings of the
movies that were actually inserted, then enrichment rows.

Because MAP reads from the cache rather than from FETCH's results, a run that
dies between fetching and inserting is completed by the next run or by
Reconcile, which runs MAP and INSERT only.

Runs are serialised: a second Run or Reconcile while one is active returns
ErrRunInProgress. Every run gets a UUID run id that is attached to its log
lines, and its RunStats are saved through a ProgressTracker (BadgerDB or
memory) so the status API can report the last run.

Usage:

	orch := ingest.New(ingest.Config{ListingURLs: urls}, deps)
	stats, err := orch.Run(ctx)
*/
package ingest
