// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

package catalog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/time/rate"

	"github.com/tomtom215/filmledger/internal/logging"
	"github.com/tomtom215/filmledger/internal/metrics"
)

// maxPageSize bounds how much of a listing page is read.
const maxPageSize = 16 << 20

var idPattern = regexp.MustCompile(`tt\d+`)

// Config holds crawler settings.
type Config struct {
	Timeout           time.Duration
	UserAgent         string
	RequestsPerSecond float64

	// Transport is optional; tests inject httptest transports here.
	Transport http.RoundTripper
}

// FetchedSource lists identifiers that already have a cached record.
type FetchedSource interface {
	AlreadyFetchedIDs() (map[string]struct{}, error)
}

// Crawler fetches listing pages.
type Crawler struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	fetched   FetchedSource
	logger    zerolog.Logger
}

// New creates a Crawler. Zero config values fall back to a 30s timeout and
// one request per second.
func New(cfg Config, fetched FetchedSource) *Crawler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 1
	}
	return &Crawler{
		client:    &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		userAgent: cfg.UserAgent,
		fetched:   fetched,
		logger:    logging.WithComponent("catalog"),
	}
}

// DiscoverIDs returns the identifiers linked from pageURL that are not cached
// yet. A page without identifiers yields an empty set and no error.
func (c *Crawler) DiscoverIDs(ctx context.Context, pageURL string) (map[string]struct{}, error) {
	body, err := c.fetch(ctx, pageURL)
	if err != nil {
		metrics.CatalogPages.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.CatalogPages.WithLabelValues("ok").Inc()

	found, err := ExtractIDs(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", pageURL, err)
	}

	cached, err := c.fetched.AlreadyFetchedIDs()
	if err != nil {
		return nil, err
	}
	for id := range cached {
		delete(found, id)
	}

	metrics.CatalogIDsDiscovered.Add(float64(len(found)))
	c.logger.Debug().Str("url", pageURL).Int("new_ids", len(found)).Msg("Listing page scanned")
	return found, nil
}

func (c *Crawler) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("catalog: build request for %s: %w", pageURL, err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: pageURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return nil, &NetworkError{URL: pageURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, &NetworkError{URL: pageURL, Err: err}
	}
	return body, nil
}

// ExtractIDs collects every identifier inside the rendered <a> elements of an
// HTML document.
func ExtractIDs(r io.Reader) (map[string]struct{}, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]struct{})
	var buf bytes.Buffer
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			buf.Reset()
			if err := html.Render(&buf, n); err == nil {
				for _, id := range idPattern.FindAllString(buf.String(), -1) {
					ids[id] = struct{}{}
				}
			}
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return ids, nil
}
