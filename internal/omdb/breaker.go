// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

package omdb

import (
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/filmledger/internal/logging"
	"github.com/tomtom215/filmledger/internal/metrics"
)

const throttleBreakerName = "omdb-throttle"

// newThrottleBreaker counts sentinel responses only. Interval 0 keeps counts
// for the whole batch, and the open timeout is far longer than any batch
// since a breaker lives for exactly one Fetch call.
func newThrottleBreaker(maxEvents uint32) *gobreaker.CircuitBreaker[*Result] {
	metrics.CircuitBreakerState.WithLabelValues(throttleBreakerName).Set(0)

	return gobreaker.NewCircuitBreaker[*Result](gobreaker.Settings{
		Name:        throttleBreakerName,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     365 * 24 * time.Hour,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.TotalFailures >= maxEvents
		},
		IsSuccessful: func(err error) bool {
			return !errors.Is(err, ErrThrottled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("Throttle breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
