// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

package database

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tomtom215/filmledger/internal/metrics"
)

var (
	// ErrDuplicate matches a *SchemaViolation that rejected at least one
	// duplicate key.
	ErrDuplicate = errors.New("duplicate key")

	// ErrInvalidIdentifier is returned for table or column names that are not
	// plain word characters.
	ErrInvalidIdentifier = errors.New("invalid SQL identifier")
)

// SchemaViolation summarises the rows of one batch the store refused.
type SchemaViolation struct {
	Table      string
	Duplicates int
	Failed     int
}

func (e *SchemaViolation) Error() string {
	return fmt.Sprintf("table %s: %d duplicate and %d rejected rows", e.Table, e.Duplicates, e.Failed)
}

// Is lets errors.Is(err, ErrDuplicate) match violations that include duplicates.
func (e *SchemaViolation) Is(target error) bool {
	return target == ErrDuplicate && e.Duplicates > 0
}

// isDuplicateKey recognises unique/primary key failures from either engine.
func isDuplicateKey(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "primary key constraint")
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}

func metricsDBQuery(op, table string, start time.Time, err error) {
	metrics.RecordDBQuery(op, table, time.Since(start), err)
}

func recordInsert(r InsertResult) {
	metrics.RecordInsert(r.Table, r.Inserted, r.Duplicates, r.Failed)
}
