// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

package omdb

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

const (
	notFoundBody = `{"Response":"False","Error":"Incorrect IMDb ID."}`
	sentinelBody = `{"Response":"False","Error":"Request limit reached!"}`
)

// scriptedSource answers each id from a queue of outcomes; the last entry
// repeats once the queue is drained.
type scriptedSource struct {
	mu     sync.Mutex
	script map[string][]Outcome
	errs   map[string]error
	calls  map[string]int
}

func newScriptedSource() *scriptedSource {
	return &scriptedSource{script: map[string][]Outcome{}, errs: map[string]error{}, calls: map[string]int{}}
}

func (s *scriptedSource) Get(_ context.Context, id string) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[id]++
	if err := s.errs[id]; err != nil {
		return nil, err
	}

	outcome := OutcomeSuccess
	if q := s.script[id]; len(q) > 0 {
		outcome = q[0]
		if len(q) > 1 {
			s.script[id] = q[1:]
		}
	}
	switch outcome {
	case OutcomeThrottled:
		return &Result{ID: id, Outcome: outcome, Body: []byte(sentinelBody)}, nil
	case OutcomeNotFound:
		return &Result{ID: id, Outcome: outcome, Body: []byte(notFoundBody), Message: "Incorrect IMDb ID."}, nil
	default:
		return &Result{ID: id, Outcome: outcome, Body: []byte(`{"imdbID":"` + id + `","Response":"True"}`)}, nil
	}
}

type memorySink struct {
	files map[string][]byte
	err   error
}

func (m *memorySink) Write(id string, body []byte) error {
	if m.err != nil {
		return m.err
	}
	if m.files == nil {
		m.files = map[string][]byte{}
	}
	m.files[id] = body
	return nil
}

func newTestFetcher(src RecordSource, sink RecordSink, maxEvents uint32) (*Fetcher, *[]time.Duration) {
	f := NewFetcher(src, sink, FetcherConfig{Cooldown: 24 * time.Hour, MaxThrottleEvents: maxEvents})
	var waits []time.Duration
	f.wait = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return f, &waits
}

func TestFetch_AllSucceed(t *testing.T) {
	src := newScriptedSource()
	sink := &memorySink{}
	f, waits := newTestFetcher(src, sink, 4)

	stats, err := f.Fetch(context.Background(), []string{"tt3", "tt1", "tt2"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if stats.Fetched != 3 || len(sink.files) != 3 {
		t.Errorf("stats = %+v, files = %d", stats, len(sink.files))
	}
	if !reflect.DeepEqual(stats.FetchedIDs, []string{"tt1", "tt2", "tt3"}) {
		t.Errorf("FetchedIDs = %v, want sorted order", stats.FetchedIDs)
	}
	if len(*waits) != 0 {
		t.Errorf("waited %v, want no cooldown", *waits)
	}
}

func TestFetch_ThrottledOnceRetriesAfterCooldown(t *testing.T) {
	src := newScriptedSource()
	src.script["tt9999999"] = []Outcome{OutcomeThrottled, OutcomeSuccess}
	sink := &memorySink{}
	f, waits := newTestFetcher(src, sink, 4)

	stats, err := f.Fetch(context.Background(), []string{"tt0000001", "tt9999999", "tt0000002"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if got := src.calls["tt9999999"]; got != 2 {
		t.Errorf("tt9999999 calls = %d, want exactly 2", got)
	}
	for _, sibling := range []string{"tt0000001", "tt0000002"} {
		if got := src.calls[sibling]; got != 1 {
			t.Errorf("%s calls = %d, want 1", sibling, got)
		}
		if _, ok := sink.files[sibling]; !ok {
			t.Errorf("%s not cached", sibling)
		}
	}
	if !reflect.DeepEqual(*waits, []time.Duration{24 * time.Hour}) {
		t.Errorf("waits = %v, want one 24h cooldown", *waits)
	}
	if stats.Fetched != 3 || stats.ThrottleEvents != 1 || stats.Throttled != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestFetch_NotFoundIsSkipped(t *testing.T) {
	src := newScriptedSource()
	src.script["tt0000000"] = []Outcome{OutcomeNotFound}
	sink := &memorySink{}
	f, _ := newTestFetcher(src, sink, 4)

	stats, err := f.Fetch(context.Background(), []string{"tt0000000", "tt0111161"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if _, ok := sink.files["tt0000000"]; ok {
		t.Error("not-found record was cached")
	}
	if _, ok := sink.files["tt0111161"]; !ok {
		t.Error("sibling not cached")
	}
	if stats.NotFound != 1 || stats.Fetched != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestFetch_NetworkErrorIsSkipped(t *testing.T) {
	src := newScriptedSource()
	src.errs["tt2"] = &NetworkError{ID: "tt2", StatusCode: 503}
	sink := &memorySink{}
	f, _ := newTestFetcher(src, sink, 4)

	stats, err := f.Fetch(context.Background(), []string{"tt1", "tt2", "tt3"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if stats.Failed != 1 || stats.Fetched != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestFetch_StillThrottledAfterRetry(t *testing.T) {
	src := newScriptedSource()
	src.script["tt1"] = []Outcome{OutcomeThrottled, OutcomeThrottled, OutcomeSuccess}
	sink := &memorySink{}
	f, waits := newTestFetcher(src, sink, 10)

	stats, err := f.Fetch(context.Background(), []string{"tt1", "tt2"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if src.calls["tt1"] != 2 {
		t.Errorf("tt1 calls = %d, want 2", src.calls["tt1"])
	}
	if stats.Throttled != 1 || stats.ThrottleEvents != 2 || stats.Fetched != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if len(*waits) != 1 {
		t.Errorf("waits = %d, want 1", len(*waits))
	}
}

func TestFetch_BudgetExhausted(t *testing.T) {
	src := newScriptedSource()
	for _, id := range []string{"tt1", "tt2", "tt3"} {
		src.script[id] = []Outcome{OutcomeThrottled}
	}
	sink := &memorySink{}
	f, _ := newTestFetcher(src, sink, 2)

	stats, err := f.Fetch(context.Background(), []string{"tt1", "tt2", "tt3"})
	if !errors.Is(err, ErrThrottleBudgetExhausted) {
		t.Fatalf("Fetch() error = %v, want ErrThrottleBudgetExhausted", err)
	}
	if !stats.Abandoned {
		t.Error("Abandoned = false")
	}
	if src.calls["tt3"] != 0 {
		t.Errorf("tt3 was attempted %d times after the breaker opened", src.calls["tt3"])
	}
	if len(sink.files) != 0 {
		t.Errorf("cached %d files, want 0", len(sink.files))
	}
}

func TestFetch_BreakerOpensOnFirstAttemptSkipsCooldown(t *testing.T) {
	src := newScriptedSource()
	src.script["tt1"] = []Outcome{OutcomeThrottled, OutcomeSuccess}
	src.script["tt2"] = []Outcome{OutcomeThrottled, OutcomeSuccess}
	sink := &memorySink{}
	f, waits := newTestFetcher(src, sink, 2)

	stats, err := f.Fetch(context.Background(), []string{"tt1", "tt2", "tt3"})
	if !errors.Is(err, ErrThrottleBudgetExhausted) {
		t.Fatalf("Fetch() error = %v, want ErrThrottleBudgetExhausted", err)
	}
	if len(*waits) != 1 {
		t.Errorf("waits = %v, want exactly one cooldown", *waits)
	}
	if got := src.calls["tt1"]; got != 2 {
		t.Errorf("tt1 calls = %d, want 2", got)
	}
	if got := src.calls["tt2"]; got != 1 {
		t.Errorf("tt2 calls = %d, want 1", got)
	}
	if src.calls["tt3"] != 0 {
		t.Errorf("tt3 attempted after the breaker opened")
	}
	if stats.Fetched != 1 || stats.ThrottleEvents != 2 || !stats.Abandoned {
		t.Errorf("stats = %+v", stats)
	}
	if _, ok := sink.files["tt1"]; !ok {
		t.Error("tt1 not cached")
	}
}

func TestFetch_SinkFailureStopsBatch(t *testing.T) {
	src := newScriptedSource()
	sink := &memorySink{err: errors.New("disk full")}
	f, _ := newTestFetcher(src, sink, 4)

	_, err := f.Fetch(context.Background(), []string{"tt1", "tt2"})
	if err == nil {
		t.Fatal("Fetch() should fail when the cache cannot be written")
	}
	if src.calls["tt2"] != 0 {
		t.Error("batch continued after a cache write failure")
	}
}

func TestFetch_Cancellation(t *testing.T) {
	t.Run("before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		f, _ := newTestFetcher(newScriptedSource(), &memorySink{}, 4)
		if _, err := f.Fetch(ctx, []string{"tt1"}); !errors.Is(err, context.Canceled) {
			t.Errorf("Fetch() error = %v, want context.Canceled", err)
		}
	})

	t.Run("during cooldown", func(t *testing.T) {
		src := newScriptedSource()
		src.script["tt1"] = []Outcome{OutcomeThrottled, OutcomeSuccess}
		f := NewFetcher(src, &memorySink{}, FetcherConfig{Cooldown: time.Hour, MaxThrottleEvents: 4})

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := f.Fetch(ctx, []string{"tt1"})
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Fetch() error = %v, want deadline exceeded", err)
		}
		if time.Since(start) > 5*time.Second {
			t.Error("cooldown was not interrupted by the context")
		}
		if src.calls["tt1"] != 1 {
			t.Errorf("tt1 calls = %d, want 1", src.calls["tt1"])
		}
	})
}

func TestProgress(t *testing.T) {
	if got := progress(1, 4); got != 25 {
		t.Errorf("progress(1,4) = %v", got)
	}
	if got := progress(0, 0); got != 100 {
		t.Errorf("progress(0,0) = %v", got)
	}
}
