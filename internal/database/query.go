// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/filmledger/internal/schema"
	"github.com/tomtom215/filmledger/internal/validation"
)

// TableExists reports whether table is present in the store.
func (db *DB) TableExists(ctx context.Context, table string) (bool, error) {
	var n int64
	if err := db.conn.QueryRowContext(ctx, db.dialect.tableExists, table).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", table, err)
	}
	return n > 0, nil
}

// CountRows returns the row count of table. The table must exist.
func (db *DB) CountRows(ctx context.Context, table string) (int64, error) {
	if !validation.IsSQLIdentifier(table) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidIdentifier, table)
	}
	start := time.Now()
	var n int64
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+schema.QuoteIdent(table)).Scan(&n)
	metricsDBQuery("count", table, start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

// IDsIn returns the distinct non-null values of column in table. A table that
// does not exist or has no rows yields an empty set, not an error.
func (db *DB) IDsIn(ctx context.Context, table, column string) (map[string]struct{}, error) {
	if !validation.IsSQLIdentifier(table) || !validation.IsSQLIdentifier(column) {
		return nil, fmt.Errorf("%w: %q.%q", ErrInvalidIdentifier, table, column)
	}

	ids := make(map[string]struct{})
	exists, err := db.TableExists(ctx, table)
	if err != nil || !exists {
		return ids, err
	}
	n, err := db.CountRows(ctx, table)
	if err != nil || n == 0 {
		return ids, err
	}

	start := time.Now()
	q := fmt.Sprintf("SELECT DISTINCT %s FROM %s", schema.QuoteIdent(column), schema.QuoteIdent(table))
	rows, err := db.conn.QueryContext(ctx, q)
	if err != nil {
		metricsDBQuery("select_ids", table, start, err)
		return nil, fmt.Errorf("failed to read %s.%s: %w", table, column, err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			metricsDBQuery("select_ids", table, start, err)
			return nil, fmt.Errorf("failed to scan %s.%s: %w", table, column, err)
		}
		if v.Valid {
			ids[v.String] = struct{}{}
		}
	}
	err = rows.Err()
	metricsDBQuery("select_ids", table, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate %s.%s: %w", table, column, err)
	}
	return ids, nil
}

// TableCounts returns the row count of each table, 0 for absent tables.
func (db *DB) TableCounts(ctx context.Context, tables []string) (map[string]int64, error) {
	out := make(map[string]int64, len(tables))
	for _, t := range tables {
		exists, err := db.TableExists(ctx, t)
		if err != nil {
			return nil, err
		}
		if !exists {
			out[t] = 0
			continue
		}
		n, err := db.CountRows(ctx, t)
		if err != nil {
			return nil, err
		}
		out[t] = n
	}
	return out, nil
}
