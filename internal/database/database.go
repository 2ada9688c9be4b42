// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tomtom215/filmledger/internal/config"
	"github.com/tomtom215/filmledger/internal/logging"
	"github.com/tomtom215/filmledger/internal/schema"
)

const schemaTimeout = 60 * time.Second

// DB wraps the store connection.
type DB struct {
	conn    *sql.DB
	cfg     *config.DatabaseConfig
	dialect dialect
}

// New opens (creating if needed) the store file described by cfg.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	d, err := lookupDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}

	// 0750 per gosec G301
	if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	conn, err := sql.Open(d.sqlDriver, d.dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(d.maxOpenConns)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to connect to %s store at %s: %w", d.name, cfg.Path, err)
	}

	logging.Info().Str("driver", d.name).Str("path", cfg.Path).Msg("Relational store opened")
	return &DB{conn: conn, cfg: cfg, dialect: d}, nil
}

// Close releases the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn exposes the pool for callers that need raw SQL.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Driver returns "duckdb" or "sqlite".
func (db *DB) Driver() string {
	return db.dialect.name
}

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// CreateTables creates every table in d that does not exist yet.
func (db *DB) CreateTables(ctx context.Context, d *schema.Descriptor) error {
	ctx, cancel := context.WithTimeout(ctx, schemaTimeout)
	defer cancel()

	start := time.Now()
	err := schema.EnsureSchema(ctx, db.conn, d)
	metricsDBQuery("create", "*", start, err)
	return err
}
