// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when no explicit path is given.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/filmledger/config.yaml",
	"/etc/filmledger/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			FirstPage:         1,
			LastPage:          1,
			Timeout:           30 * time.Second,
			UserAgent:         "filmledger/1.0 (+https://github.com/tomtom215/filmledger)",
			RequestsPerSecond: 1,
		},
		API: APIConfig{
			BaseURL:           "http://www.omdbapi.com/",
			Plot:              "full",
			Timeout:           15 * time.Second,
			MaxRetries:        3,
			RetryBaseDelay:    time.Second,
			RequestsPerSecond: 5,
			ThrottleCooldown:  24 * time.Hour, // the free tier resets daily
			MaxThrottleEvents: 4,
		},
		Cache: CacheConfig{
			Dir: "/data/raw_data",
		},
		Database: DatabaseConfig{
			Driver:    "duckdb",
			Path:      "/data/filmledger.duckdb",
			MaxMemory: "1GB",
		},
		Schedule: ScheduleConfig{
			Interval: 24 * time.Hour,
		},
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8787,
			Timeout:          30 * time.Second,
			TriggerRateLimit: 6,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// sliceConfigPaths accept comma-separated strings from the environment.
var sliceConfigPaths = []string{
	"catalog.urls",
	"server.cors_origins",
}

// envMappings maps lower-cased environment variable names to koanf paths.
// Variables not listed here are ignored.
var envMappings = map[string]string{
	"catalog_urls":                "catalog.urls",
	"catalog_page_template":       "catalog.page_template",
	"catalog_first_page":          "catalog.first_page",
	"catalog_last_page":           "catalog.last_page",
	"catalog_timeout":             "catalog.timeout",
	"catalog_user_agent":          "catalog.user_agent",
	"catalog_requests_per_second": "catalog.requests_per_second",

	"omdb_api_url":             "api.base_url",
	"omdb_api_key":             "api.key",
	"omdb_plot":                "api.plot",
	"omdb_timeout":             "api.timeout",
	"omdb_max_retries":         "api.max_retries",
	"omdb_retry_base_delay":    "api.retry_base_delay",
	"omdb_requests_per_second": "api.requests_per_second",
	"omdb_throttle_cooldown":   "api.throttle_cooldown",
	"omdb_max_throttle_events": "api.max_throttle_events",

	"raw_data_dir":   "cache.dir",
	"enrichment_dir": "cache.enrichment_dir",

	"database_driver":   "database.driver",
	"database_path":     "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	"schema_path": "schema.path",
	"ledger_path": "ledger.path",

	"ingest_interval":   "schedule.interval",
	"ingest_on_startup": "schedule.run_on_startup",

	"http_host":          "server.host",
	"http_port":          "server.port",
	"http_timeout":       "server.timeout",
	"cors_origins":       "server.cors_origins",
	"trigger_rate_limit": "server.trigger_rate_limit",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// Load builds the configuration from defaults, the config file and the
// environment, then validates it. An empty path searches CONFIG_PATH and
// DefaultConfigPaths; a non-empty path must exist.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		parts := splitList(s)
		if len(parts) == 0 {
			continue
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

func splitList(s string) []string {
	raw := strings.Split(s, ",")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
