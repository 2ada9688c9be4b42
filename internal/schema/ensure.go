// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tomtom215/filmledger/internal/logging"
)

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// EnsureSchema creates every table in d. Statements are create-if-absent, and
// an "already exists" failure is treated as success so a store created by an
// older run is left alone. Existing tables are never altered.
func EnsureSchema(ctx context.Context, db Execer, d *Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	for i, stmt := range d.CreateStatements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			if isAlreadyExists(err) {
				logging.Debug().Str("table", d.Tables[i].Name).Msg("Table already exists")
				continue
			}
			return fmt.Errorf("failed to create table %s: %w", d.Tables[i].Name, err)
		}
	}
	return nil
}

func isAlreadyExists(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "already exists")
}
