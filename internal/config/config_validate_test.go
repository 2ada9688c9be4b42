// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.API.Key = "k"
	cfg.Catalog.URLs = []string{"https://catalog.example.com/top"}
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "no listing source",
			mutate:  func(c *Config) { c.Catalog.URLs = nil },
			wantErr: "CATALOG_URLS",
		},
		{
			name:    "template without placeholder",
			mutate:  func(c *Config) { c.Catalog.PageTemplate = "https://catalog.example.com/p" },
			wantErr: "{page}",
		},
		{
			name: "inverted page range",
			mutate: func(c *Config) {
				c.Catalog.PageTemplate = "https://catalog.example.com/?page={page}"
				c.Catalog.FirstPage, c.Catalog.LastPage = 5, 2
			},
			wantErr: "must not exceed",
		},
		{
			name:    "listing URL without scheme",
			mutate:  func(c *Config) { c.Catalog.URLs = []string{"catalog.example.com"} },
			wantErr: "http or https",
		},
		{
			name:    "missing api key",
			mutate:  func(c *Config) { c.API.Key = " " },
			wantErr: "OMDB_API_KEY",
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Database.Driver = "postgres" },
			wantErr: "must be one of",
		},
		{
			name:    "throttle budget too small",
			mutate:  func(c *Config) { c.API.MaxThrottleEvents = 1 },
			wantErr: "MaxThrottleEvents",
		},
		{
			name:    "interval too short",
			mutate:  func(c *Config) { c.Schedule.Interval = 10 * time.Second },
			wantErr: "INGEST_INTERVAL",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "loud" },
			wantErr: "LOG_LEVEL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_NoListingSourceSentinel(t *testing.T) {
	cfg := validConfig()
	cfg.Catalog.URLs = nil
	if err := cfg.Validate(); !errors.Is(err, ErrNoListingSource) {
		t.Errorf("Validate() = %v, want ErrNoListingSource", err)
	}
}

func TestListenAddr(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Host, cfg.Server.Port = "127.0.0.1", 9000
	if got := cfg.ListenAddr(); got != "127.0.0.1:9000" {
		t.Errorf("ListenAddr() = %s", got)
	}
}
