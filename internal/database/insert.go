// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/filmledger/internal/logging"
	"github.com/tomtom215/filmledger/internal/schema"
)

// InsertResult reports what happened to each row of a batch.
type InsertResult struct {
	Table      string
	Attempted  int
	Inserted   int
	Duplicates int
	Failed     int

	// InsertedKeys holds the key column value of every inserted row when the
	// table declares a key column.
	InsertedKeys []string

	// Fallback is true when the batch transaction failed and rows were
	// retried one at a time.
	Fallback bool
}

// Violation returns a *SchemaViolation when any row was refused, else nil.
func (r InsertResult) Violation() error {
	if r.Duplicates == 0 && r.Failed == 0 {
		return nil
	}
	return &SchemaViolation{Table: r.Table, Duplicates: r.Duplicates, Failed: r.Failed}
}

type insertPlan struct {
	table  schema.Table
	query  string
	keyIdx int
}

func newInsertPlan(t schema.Table) insertPlan {
	cols := make([]string, len(t.Columns))
	marks := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = schema.QuoteIdent(c.Name)
		marks[i] = "?"
	}

	verb := "INSERT INTO"
	keyIdx := -1
	// DuckDB rejects OR IGNORE on tables without a unique index.
	if key, ok := t.KeyColumn(); ok {
		verb = "INSERT OR IGNORE INTO"
		keyIdx = t.ColumnIndex(key)
	}

	return insertPlan{
		table:  t,
		query:  fmt.Sprintf("%s %s (%s) VALUES (%s)", verb, schema.QuoteIdent(t.Name), strings.Join(cols, ", "), strings.Join(marks, ", ")),
		keyIdx: keyIdx,
	}
}

func (p insertPlan) key(row []any) string {
	if p.keyIdx < 0 {
		return ""
	}
	if s, ok := row[p.keyIdx].(string); ok {
		return s
	}
	return fmt.Sprint(row[p.keyIdx])
}

// InsertRows appends rows to table t. Each row must have one value per
// declared column, in declaration order.
//
// Duplicate keys are skipped and counted. Other row-level failures are
// counted in Failed. The returned error is reserved for problems that stop
// the whole batch, such as a cancelled context or an unusable connection.
func (db *DB) InsertRows(ctx context.Context, t schema.Table, rows [][]any) (InsertResult, error) {
	res := InsertResult{Table: t.Name, Attempted: len(rows)}
	if len(rows) == 0 {
		return res, nil
	}
	if err := checkShape(t, rows); err != nil {
		return res, err
	}

	plan := newInsertPlan(t)
	start := time.Now()

	batch, err := db.insertBatch(ctx, plan, rows)
	if err == nil {
		batch.Attempted = len(rows)
		res = batch
	} else {
		if ctx.Err() != nil {
			metricsDBQuery("insert", t.Name, start, err)
			return res, ctx.Err()
		}
		logging.Warn().Err(err).Str("table", t.Name).Int("rows", len(rows)).
			Msg("Batch insert failed, retrying rows individually")
		res, err = db.insertEach(ctx, plan, rows)
		res.Fallback = true
		if err != nil {
			metricsDBQuery("insert", t.Name, start, err)
			return res, err
		}
	}
	metricsDBQuery("insert", t.Name, start, nil)
	recordInsert(res)

	if v := res.Violation(); v != nil {
		logging.Warn().Str("table", t.Name).Int("rows", len(rows)).
			Int("duplicates", res.Duplicates).Int("failed", res.Failed).
			Msg("Rows rejected by store")
	}
	return res, nil
}

// insertBatch runs every row in one transaction and commits only if all
// statements succeed.
func (db *DB) insertBatch(ctx context.Context, plan insertPlan, rows [][]any) (res InsertResult, err error) {
	res.Table = plan.table.Name

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, plan.query)
	if err != nil {
		return res, fmt.Errorf("prepare: %w", err)
	}
	defer closeQuietly(stmt)

	for _, row := range rows {
		r, execErr := stmt.ExecContext(ctx, row...)
		if execErr != nil {
			return res, execErr
		}
		res.count(plan, row, r)
	}

	if err = tx.Commit(); err != nil {
		return res, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}

// insertEach inserts rows one statement at a time in autocommit mode.
func (db *DB) insertEach(ctx context.Context, plan insertPlan, rows [][]any) (InsertResult, error) {
	res := InsertResult{Table: plan.table.Name, Attempted: len(rows)}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		r, err := db.conn.ExecContext(ctx, plan.query, row...)
		switch {
		case err == nil:
			res.count(plan, row, r)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return res, err
		case isDuplicateKey(err):
			res.Duplicates++
		default:
			res.Failed++
			logging.Warn().Err(err).Str("table", plan.table.Name).Str("key", plan.key(row)).Msg("Row rejected")
		}
	}
	return res, nil
}

// count records one executed statement and reports whether it wrote the row.
func (r *InsertResult) count(plan insertPlan, row []any, result sql.Result) bool {
	n, err := result.RowsAffected()
	if err != nil {
		// Without a count, assume the statement wrote the row.
		n = 1
	}
	if n == 0 {
		r.Duplicates++
		return false
	}
	r.Inserted++
	if plan.keyIdx >= 0 {
		r.InsertedKeys = append(r.InsertedKeys, plan.key(row))
	}
	return true
}

func (r *InsertResult) add(o InsertResult) {
	r.Attempted += o.Attempted
	r.Inserted += o.Inserted
	r.Duplicates += o.Duplicates
	r.Failed += o.Failed
	r.InsertedKeys = append(r.InsertedKeys, o.InsertedKeys...)
}

func checkShape(t schema.Table, rows [][]any) error {
	for i, row := range rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("table %s row %d: got %d values for %d columns", t.Name, i, len(row), len(t.Columns))
		}
	}
	return nil
}
