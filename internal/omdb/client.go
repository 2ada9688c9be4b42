// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

package omdb

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/filmledger/internal/logging"
	"github.com/tomtom215/filmledger/internal/metrics"
)

const (
	maxBodySize     = 4 << 20
	maxRetryAfter   = 5 * time.Minute
	throttleMessage = "Request limit reached!"
)

// Outcome classifies a decoded API body.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeNotFound
	OutcomeThrottled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeThrottled:
		return "throttled"
	default:
		return "unknown"
	}
}

// Result is one classified lookup.
type Result struct {
	ID      string
	Outcome Outcome
	Body    []byte // verbatim response body
	Message string // the API's Error field, if any
}

// ClientConfig holds API client settings.
type ClientConfig struct {
	BaseURL           string
	APIKey            string
	Plot              string
	Timeout           time.Duration
	MaxRetries        int
	RetryBaseDelay    time.Duration
	RequestsPerSecond float64
	Transport         http.RoundTripper
}

// Client performs single lookups.
type Client struct {
	cfg     ClientConfig
	http    *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewClient applies defaults to zero fields and returns a Client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		logger:  logging.WithComponent("omdb"),
	}
}

// Get looks up id. A non-nil error is always a *NetworkError or a context
// error; API-level outcomes are reported in Result.Outcome.
func (c *Client) Get(ctx context.Context, id string) (*Result, error) {
	start := time.Now()
	res, err := c.get(ctx, id)
	outcome := "error"
	if err == nil {
		outcome = res.Outcome.String()
	}
	metrics.RecordAPIRequest(outcome, time.Since(start))
	return res, err
}

func (c *Client) get(ctx context.Context, id string) (*Result, error) {
	reqURL, err := c.lookupURL(id)
	if err != nil {
		return nil, &NetworkError{ID: id, Err: err}
	}

	var lastErr *NetworkError
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, retryAfter, nerr := c.do(ctx, id, reqURL)
		if nerr == nil {
			return classify(id, body)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = nerr
		if !nerr.Retryable() || attempt == c.cfg.MaxRetries {
			break
		}

		wait := retryAfter
		if wait <= 0 {
			wait = backoff(c.cfg.RetryBaseDelay, attempt)
		}
		c.logger.Debug().Str("id", id).Int("attempt", attempt+1).Dur("wait", wait).
			Int("status", nerr.StatusCode).Msg("Retrying lookup")
		if err := sleepCtx(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) lookupURL(id string) (string, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	q := u.Query()
	q.Set("i", id)
	q.Set("apikey", c.cfg.APIKey)
	if c.cfg.Plot != "" {
		q.Set("plot", c.cfg.Plot)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// do performs one HTTP exchange and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, id, reqURL string) ([]byte, time.Duration, *NetworkError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, 0, &NetworkError{ID: id, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, &NetworkError{ID: id, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return nil, parseRetryAfter(resp.Header.Get("Retry-After")), &NetworkError{ID: id, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, 0, &NetworkError{ID: id, Err: err}
	}
	return body, 0, nil
}

// classify decodes body and decides its outcome.
func classify(id string, body []byte) (*Result, error) {
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil || doc == nil {
		return nil, &NetworkError{ID: id, Err: ErrMalformedResponse}
	}

	res := &Result{ID: id, Body: body}
	res.Message, _ = doc["Error"].(string)

	switch {
	case isThrottleSentinel(doc):
		res.Outcome = OutcomeThrottled
	case doc["Response"] == "False":
		res.Outcome = OutcomeNotFound
	default:
		res.Outcome = OutcomeSuccess
	}
	return res, nil
}

// isThrottleSentinel matches the rate-limit body by structure, not by text.
func isThrottleSentinel(doc map[string]any) bool {
	return len(doc) == 2 && doc["Error"] == throttleMessage && doc["Response"] == "False"
}

func backoff(base time.Duration, attempt int) time.Duration {
	return time.Duration(float64(base) * math.Pow(2, float64(attempt)))
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	d := time.Duration(secs) * time.Second
	if d > maxRetryAfter {
		d = maxRetryAfter
	}
	return d
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
