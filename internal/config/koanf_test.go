// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// setRequiredEnv sets the minimum environment for a valid configuration and
// keeps the default search paths from picking up a stray config.yaml.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv(ConfigPathEnvVar, "")
	t.Setenv("OMDB_API_KEY", "test-key")
	t.Setenv("CATALOG_URLS", "https://catalog.example.com/top")
	t.Chdir(t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.BaseURL != "http://www.omdbapi.com/" {
		t.Errorf("API.BaseURL = %s, want http://www.omdbapi.com/", cfg.API.BaseURL)
	}
	if cfg.API.ThrottleCooldown != 24*time.Hour {
		t.Errorf("API.ThrottleCooldown = %s, want 24h", cfg.API.ThrottleCooldown)
	}
	if cfg.API.Plot != "full" {
		t.Errorf("API.Plot = %s, want full", cfg.API.Plot)
	}
	if cfg.Database.Driver != "duckdb" {
		t.Errorf("Database.Driver = %s, want duckdb", cfg.Database.Driver)
	}
	if cfg.API.MaxThrottleEvents != 4 {
		t.Errorf("API.MaxThrottleEvents = %d, want 4", cfg.API.MaxThrottleEvents)
	}
	if len(cfg.Catalog.URLs) != 1 || cfg.Catalog.URLs[0] != "https://catalog.example.com/top" {
		t.Errorf("Catalog.URLs = %v", cfg.Catalog.URLs)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CATALOG_URLS", "https://a.example.com/1, https://b.example.com/2 ,")
	t.Setenv("OMDB_THROTTLE_COOLDOWN", "90m")
	t.Setenv("OMDB_MAX_RETRIES", "5")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_PATH", "/tmp/films.db")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.Catalog.URLs) != 2 || cfg.Catalog.URLs[1] != "https://b.example.com/2" {
		t.Errorf("Catalog.URLs = %v, want two trimmed URLs", cfg.Catalog.URLs)
	}
	if cfg.API.ThrottleCooldown != 90*time.Minute {
		t.Errorf("API.ThrottleCooldown = %s, want 1h30m", cfg.API.ThrottleCooldown)
	}
	if cfg.API.MaxRetries != 5 {
		t.Errorf("API.MaxRetries = %d, want 5", cfg.API.MaxRetries)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.Path != "/tmp/films.db" {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if len(cfg.Server.CORSOrigins) != 2 {
		t.Errorf("Server.CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %s, want debug", cfg.Logging.Level)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	setRequiredEnv(t)
	if err := os.Unsetenv("CATALOG_URLS"); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
catalog:
  page_template: "https://catalog.example.com/search?page={page}"
  first_page: 1
  last_page: 6
api:
  key: from-file
  max_throttle_events: 3
cache:
  dir: /srv/raw
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Catalog.LastPage != 6 {
		t.Errorf("Catalog.LastPage = %d, want 6", cfg.Catalog.LastPage)
	}
	if cfg.Cache.Dir != "/srv/raw" {
		t.Errorf("Cache.Dir = %s, want /srv/raw", cfg.Cache.Dir)
	}
	// Environment wins over the file.
	if cfg.API.Key != "test-key" {
		t.Errorf("API.Key = %s, want test-key", cfg.API.Key)
	}
	if cfg.API.MaxThrottleEvents != 3 {
		t.Errorf("API.MaxThrottleEvents = %d, want 3", cfg.API.MaxThrottleEvents)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	setRequiredEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load() with a missing explicit file should fail")
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := map[string]string{
		"OMDB_API_KEY":  "api.key",
		"RAW_DATA_DIR":  "cache.dir",
		"HTTP_PORT":     "server.port",
		"HOME":          "",
		"UNRELATED_VAR": "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%s) = %q, want %q", in, got, want)
		}
	}
}
