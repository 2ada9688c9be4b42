// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

package omdb

import (
	"errors"
	"fmt"
)

var (
	// ErrThrottled is returned through the circuit breaker for a sentinel
	// response so the breaker can count it.
	ErrThrottled = errors.New("omdb: request limit reached")

	// ErrThrottleBudgetExhausted means the throttle breaker opened and the
	// remaining identifiers of the batch were not attempted.
	ErrThrottleBudgetExhausted = errors.New("omdb: throttle budget exhausted")

	// ErrMalformedResponse is a 2xx body that is not a JSON object.
	ErrMalformedResponse = errors.New("omdb: malformed response body")
)

// NetworkError is a lookup that failed below the API protocol: transport
// failure, non-2xx status after retries, or an undecodable body.
type NetworkError struct {
	ID         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("omdb: lookup %s: HTTP %d", e.ID, e.StatusCode)
	}
	return fmt.Sprintf("omdb: lookup %s: %v", e.ID, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the status is worth another attempt.
func (e *NetworkError) Retryable() bool {
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}
