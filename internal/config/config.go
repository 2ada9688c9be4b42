// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

package config

import "time"

// Config is the complete runtime configuration.
type Config struct {
	Catalog  CatalogConfig  `koanf:"catalog"`
	API      APIConfig      `koanf:"api"`
	Cache    CacheConfig    `koanf:"cache"`
	Database DatabaseConfig `koanf:"database"`
	Schema   SchemaConfig   `koanf:"schema"`
	Ledger   LedgerConfig   `koanf:"ledger"`
	Schedule ScheduleConfig `koanf:"schedule"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// CatalogConfig configures listing page discovery.
//
// URLs are fetched as-is. PageTemplate, when set, must contain "{page}" and is
// expanded for every page number in [FirstPage, LastPage].
type CatalogConfig struct {
	URLs              []string      `koanf:"urls"`
	PageTemplate      string        `koanf:"page_template"`
	FirstPage         int           `koanf:"first_page" validate:"gte=1"`
	LastPage          int           `koanf:"last_page" validate:"gte=1"`
	Timeout           time.Duration `koanf:"timeout"`
	UserAgent         string        `koanf:"user_agent" validate:"required"`
	RequestsPerSecond float64       `koanf:"requests_per_second" validate:"gt=0"`
}

// APIConfig configures the movie record API client.
type APIConfig struct {
	BaseURL           string        `koanf:"base_url" validate:"required,url"`
	Key               string        `koanf:"key"`
	Plot              string        `koanf:"plot" validate:"oneof=short full"`
	Timeout           time.Duration `koanf:"timeout"`
	MaxRetries        int           `koanf:"max_retries" validate:"gte=0,lte=10"`
	RetryBaseDelay    time.Duration `koanf:"retry_base_delay"`
	RequestsPerSecond float64       `koanf:"requests_per_second" validate:"gt=0"`

	// ThrottleCooldown is how long to wait after the rate-limit sentinel
	// before retrying the same identifier.
	ThrottleCooldown time.Duration `koanf:"throttle_cooldown"`

	// MaxThrottleEvents opens the throttle breaker and abandons the batch.
	// It must leave room for the single retry, hence the minimum of 2.
	MaxThrottleEvents uint32 `koanf:"max_throttle_events" validate:"gte=2"`
}

// CacheConfig locates the raw record cache and optional enrichment documents.
type CacheConfig struct {
	Dir           string `koanf:"dir" validate:"required"`
	EnrichmentDir string `koanf:"enrichment_dir"`
}

// DatabaseConfig selects and tunes the relational store.
type DatabaseConfig struct {
	Driver    string `koanf:"driver" validate:"oneof=duckdb sqlite"`
	Path      string `koanf:"path" validate:"required"`
	MaxMemory string `koanf:"max_memory"`               // DuckDB only
	Threads   int    `koanf:"threads" validate:"gte=0"` // DuckDB only, 0 = NumCPU
}

// SchemaConfig points at an optional YAML table descriptor. Empty means the
// built-in movies/ratings/wiki layout.
type SchemaConfig struct {
	Path string `koanf:"path"`
}

// LedgerConfig locates the BadgerDB directory holding the last run summary.
// Empty keeps the summary in memory only.
type LedgerConfig struct {
	Path string `koanf:"path"`
}

// ScheduleConfig controls periodic runs in serve mode.
type ScheduleConfig struct {
	Interval     time.Duration `koanf:"interval"`
	RunOnStartup bool          `koanf:"run_on_startup"`
}

// ServerConfig holds the status API settings.
type ServerConfig struct {
	Host             string        `koanf:"host"`
	Port             int           `koanf:"port" validate:"gte=1,lte=65535"`
	Timeout          time.Duration `koanf:"timeout"`
	CORSOrigins      []string      `koanf:"cors_origins"`
	TriggerRateLimit int           `koanf:"trigger_rate_limit" validate:"gte=1"` // POST /api/v1/runs per minute
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}
