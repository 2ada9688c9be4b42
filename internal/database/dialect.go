// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

package database

import (
	"fmt"
	"net/url"
	"runtime"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tomtom215/filmledger/internal/config"
)

// Driver names accepted in database.driver.
const (
	DriverDuckDB = "duckdb"
	DriverSQLite = "sqlite"
)

// dialect captures the few places the two engines differ.
type dialect struct {
	name         string // database.driver value
	sqlDriver    string // name registered with database/sql
	tableExists  string // one ? placeholder for the table name
	maxOpenConns int
	dsn          func(cfg *config.DatabaseConfig) string
}

var dialects = map[string]dialect{
	DriverDuckDB: {
		name:        DriverDuckDB,
		sqlDriver:   "duckdb",
		tableExists: "SELECT COUNT(*) FROM information_schema.tables WHERE table_name = ?",
		// DuckDB serialises writers internally; readers run in parallel.
		maxOpenConns: runtime.NumCPU(),
		dsn: func(cfg *config.DatabaseConfig) string {
			threads := cfg.Threads
			if threads <= 0 {
				threads = runtime.NumCPU()
			}
			q := url.Values{}
			q.Set("access_mode", "read_write")
			q.Set("threads", fmt.Sprint(threads))
			if cfg.MaxMemory != "" {
				q.Set("max_memory", cfg.MaxMemory)
			}
			return cfg.Path + "?" + q.Encode()
		},
	},
	DriverSQLite: {
		name:        DriverSQLite,
		sqlDriver:   "sqlite3",
		tableExists: "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?",
		// A single connection avoids SQLITE_BUSY between pool members.
		maxOpenConns: 1,
		dsn: func(cfg *config.DatabaseConfig) string {
			return "file:" + cfg.Path + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"
		},
	},
}

func lookupDialect(driver string) (dialect, error) {
	if driver == "" {
		driver = DriverDuckDB
	}
	d, ok := dialects[driver]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
	return d, nil
}
