// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tomtom215/filmledger/internal/logging"
	"github.com/tomtom215/filmledger/internal/validation"
)

// ErrNoListingSource is returned when neither catalog.urls nor
// catalog.page_template is configured.
var ErrNoListingSource = errors.New("at least one of CATALOG_URLS or CATALOG_PAGE_TEMPLATE is required")

// Validate checks tag constraints first, then cross-field rules.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateDurations(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateCatalog() error {
	if len(c.Catalog.URLs) == 0 && c.Catalog.PageTemplate == "" {
		return ErrNoListingSource
	}
	for _, raw := range c.Catalog.URLs {
		if err := validateHTTPURL(raw); err != nil {
			return fmt.Errorf("CATALOG_URLS: %w", err)
		}
	}
	if c.Catalog.PageTemplate != "" {
		if !strings.Contains(c.Catalog.PageTemplate, "{page}") {
			return fmt.Errorf("CATALOG_PAGE_TEMPLATE must contain {page}")
		}
		if err := validateHTTPURL(strings.ReplaceAll(c.Catalog.PageTemplate, "{page}", "1")); err != nil {
			return fmt.Errorf("CATALOG_PAGE_TEMPLATE: %w", err)
		}
		if c.Catalog.FirstPage > c.Catalog.LastPage {
			return fmt.Errorf("CATALOG_FIRST_PAGE (%d) must not exceed CATALOG_LAST_PAGE (%d)",
				c.Catalog.FirstPage, c.Catalog.LastPage)
		}
	}
	return nil
}

func (c *Config) validateAPI() error {
	if strings.TrimSpace(c.API.Key) == "" {
		return fmt.Errorf("OMDB_API_KEY is required")
	}
	return validateHTTPURL(c.API.BaseURL)
}

func (c *Config) validateDurations() error {
	checks := []struct {
		name string
		d    time.Duration
		min  time.Duration
	}{
		{"CATALOG_TIMEOUT", c.Catalog.Timeout, time.Second},
		{"OMDB_TIMEOUT", c.API.Timeout, time.Second},
		{"OMDB_RETRY_BASE_DELAY", c.API.RetryBaseDelay, time.Millisecond},
		{"OMDB_THROTTLE_COOLDOWN", c.API.ThrottleCooldown, time.Millisecond},
		{"INGEST_INTERVAL", c.Schedule.Interval, time.Minute},
		{"HTTP_TIMEOUT", c.Server.Timeout, time.Second},
	}
	for _, chk := range checks {
		if chk.d < chk.min {
			return fmt.Errorf("%s must be at least %s, got %s", chk.name, chk.min, chk.d)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL %q is not a known level", c.Logging.Level)
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL %q has no host", raw)
	}
	return nil
}

// ListenAddr returns host:port for the status API.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
