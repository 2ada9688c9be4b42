// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

// Package omdb fetches movie records from an OMDb-compatible API.
//
// Client.Get performs one lookup and classifies the body:
//
//   - the exact body {"Error":"Request limit reached!","Response":"False"} is
//     the throttle sentinel (OutcomeThrottled)
//   - any other body with "Response":"False" is OutcomeNotFound
//   - everything else is OutcomeSuccess and the body is kept verbatim
//
// HTTP 429 and 5xx are retried with exponential backoff inside Get. That is
// transport-level and separate from the throttle sentinel, which arrives with
// HTTP 200.
//
// Fetcher runs a batch of identifiers. On the sentinel it waits out the
// cooldown and retries the same identifier once. Every sentinel counts against
// a gobreaker circuit breaker; once it opens, the rest of the batch is
// abandoned with ErrThrottleBudgetExhausted.
package omdb
