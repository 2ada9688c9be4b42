// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/filmledger/internal/logging"
	"github.com/tomtom215/filmledger/internal/schema"
)

// EntityBatch is a set of entity rows plus the dependent rows that belong to
// them, such as movies and their ratings.
type EntityBatch struct {
	Entity schema.Table
	Rows   [][]any

	Child     schema.Table
	ChildRows [][]any
	// Owners[i] is the entity key ChildRows[i] belongs to.
	Owners []string
}

// InsertEntities writes each entity row together with its child rows so that
// an entity is never stored without them. Child rows are written only for
// entities this call inserted; children of a duplicate entity are dropped.
//
// The whole batch runs in one transaction. If that fails, every entity is
// retried in its own transaction, and an entity whose rows are refused is
// left out entirely so a later run can load it again.
func (db *DB) InsertEntities(ctx context.Context, b EntityBatch) (entity, child InsertResult, err error) {
	entity = InsertResult{Table: b.Entity.Name, Attempted: len(b.Rows)}
	child = InsertResult{Table: b.Child.Name}
	if len(b.Rows) == 0 {
		return entity, child, nil
	}
	if len(b.Owners) != len(b.ChildRows) {
		return entity, child, fmt.Errorf("table %s: %d owners for %d rows", b.Child.Name, len(b.Owners), len(b.ChildRows))
	}
	if err := checkShape(b.Entity, b.Rows); err != nil {
		return entity, child, err
	}
	if err := checkShape(b.Child, b.ChildRows); err != nil {
		return entity, child, err
	}

	ep := newInsertPlan(b.Entity)
	if ep.keyIdx < 0 {
		return entity, child, fmt.Errorf("table %s: entity table needs a key column", b.Entity.Name)
	}
	cp := newInsertPlan(b.Child)

	groups := make(map[string][][]any)
	for i, row := range b.ChildRows {
		groups[b.Owners[i]] = append(groups[b.Owners[i]], row)
	}

	start := time.Now()
	e, c, err := db.entityTx(ctx, ep, cp, b.Rows, groups)
	if err == nil {
		entity, child = e, c
		entity.Attempted = len(b.Rows)
	} else {
		if ctx.Err() != nil {
			metricsDBQuery("insert", b.Entity.Name, start, err)
			return entity, child, ctx.Err()
		}
		logging.Warn().Err(err).Str("table", b.Entity.Name).Int("rows", len(b.Rows)).
			Msg("Batch insert failed, retrying entities individually")
		entity, child, err = db.entityEach(ctx, ep, cp, b.Rows, groups)
		entity.Fallback, child.Fallback = true, true
		if err != nil {
			metricsDBQuery("insert", b.Entity.Name, start, err)
			return entity, child, err
		}
	}
	metricsDBQuery("insert", b.Entity.Name, start, nil)
	recordInsert(entity)
	recordInsert(child)

	for _, r := range []InsertResult{entity, child} {
		if r.Violation() != nil {
			logging.Warn().Str("table", r.Table).Int("rows", r.Attempted).
				Int("duplicates", r.Duplicates).Int("failed", r.Failed).
				Msg("Rows rejected by store")
		}
	}
	return entity, child, nil
}

// entityTx inserts rows and their children in one transaction.
func (db *DB) entityTx(ctx context.Context, ep, cp insertPlan, rows [][]any, groups map[string][][]any) (entity, child InsertResult, err error) {
	entity.Table, child.Table = ep.table.Name, cp.table.Name

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return entity, child, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	estmt, err := tx.PrepareContext(ctx, ep.query)
	if err != nil {
		return entity, child, fmt.Errorf("prepare: %w", err)
	}
	defer closeQuietly(estmt)
	cstmt, err := tx.PrepareContext(ctx, cp.query)
	if err != nil {
		return entity, child, fmt.Errorf("prepare: %w", err)
	}
	defer closeQuietly(cstmt)

	for _, row := range rows {
		r, execErr := estmt.ExecContext(ctx, row...)
		if execErr != nil {
			return entity, child, execErr
		}
		if !entity.count(ep, row, r) {
			continue
		}
		key := ep.key(row)
		for _, crow := range groups[key] {
			child.Attempted++
			cr, execErr := cstmt.ExecContext(ctx, crow...)
			if execErr != nil {
				return entity, child, execErr
			}
			child.count(cp, crow, cr)
		}
		delete(groups, key)
	}

	if err = tx.Commit(); err != nil {
		return entity, child, fmt.Errorf("commit: %w", err)
	}
	return entity, child, nil
}

// entityEach gives every entity its own transaction.
func (db *DB) entityEach(ctx context.Context, ep, cp insertPlan, rows [][]any, groups map[string][][]any) (entity, child InsertResult, err error) {
	entity = InsertResult{Table: ep.table.Name, Attempted: len(rows)}
	child = InsertResult{Table: cp.table.Name}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return entity, child, err
		}
		key := ep.key(row)
		one := map[string][][]any{key: groups[key]}
		e, c, err := db.entityTx(ctx, ep, cp, [][]any{row}, one)
		switch {
		case err == nil:
			e.Attempted = 0
			entity.add(e)
			child.add(c)
			delete(groups, key)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return entity, child, err
		case isDuplicateKey(err):
			entity.Duplicates++
		default:
			entity.Failed++
			child.Attempted += len(groups[key])
			child.Failed += len(groups[key])
			logging.Warn().Err(err).Str("table", ep.table.Name).Str("key", key).
				Msg("Entity rejected with its dependent rows")
		}
	}
	return entity, child, nil
}
