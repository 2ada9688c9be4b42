// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

// Package ledger answers which identifiers the pipeline has already handled.
//
// Two facts are tracked, each derived from storage rather than kept in a
// separate index:
//
//   - ingested: the identifier is present in the entity table
//   - fetched:  a raw record file exists in the cache
//
// Because both are derived, a crash between fetch and insert leaves an
// identifier fetched but not ingested, and PendingIDs picks it up again.
package ledger

import (
	"context"
	"fmt"
)

// IDSource reads identifiers from the relational store.
type IDSource interface {
	IDsIn(ctx context.Context, table, column string) (map[string]struct{}, error)
}

// FetchedSource lists identifiers with a cached raw record.
type FetchedSource interface {
	IDs() (map[string]struct{}, error)
}

// Store combines the relational store and the raw cache.
type Store struct {
	ids     IDSource
	cache   FetchedSource
	table   string
	idField string
}

// New returns a Store reading ingested ids from table.idField.
func New(ids IDSource, cache FetchedSource, table, idField string) *Store {
	return &Store{ids: ids, cache: cache, table: table, idField: idField}
}

// AlreadyIngestedIDs returns every identifier in the entity table. An absent
// or empty table yields an empty set.
func (s *Store) AlreadyIngestedIDs(ctx context.Context) (map[string]struct{}, error) {
	ids, err := s.ids.IDsIn(ctx, s.table, s.idField)
	if err != nil {
		return nil, fmt.Errorf("ledger: ingested ids: %w", err)
	}
	return ids, nil
}

// AlreadyFetchedIDs returns every identifier with a cached raw record.
func (s *Store) AlreadyFetchedIDs() (map[string]struct{}, error) {
	ids, err := s.cache.IDs()
	if err != nil {
		return nil, fmt.Errorf("ledger: fetched ids: %w", err)
	}
	return ids, nil
}

// PendingIDs returns identifiers that are fetched but not yet ingested.
func (s *Store) PendingIDs(ctx context.Context) (map[string]struct{}, error) {
	fetched, err := s.AlreadyFetchedIDs()
	if err != nil {
		return nil, err
	}
	ingested, err := s.AlreadyIngestedIDs(ctx)
	if err != nil {
		return nil, err
	}
	return Difference(fetched, ingested), nil
}

// Difference returns the members of a that are not in b.
func Difference(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(a))
	for id := range a {
		if _, ok := b[id]; !ok {
			out[id] = struct{}{}
		}
	}
	return out
}
