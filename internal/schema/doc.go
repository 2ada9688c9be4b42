// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

// Package schema is the single declarative source for table layout.
//
// A Descriptor lists tables and their ordered columns. The same descriptor
// drives DDL generation (CreateStatements, EnsureSchema) and the projection of
// loosely shaped JSON records into positional rows (ProjectRecords, Mapper),
// so the insert column order can never drift from the created table.
//
// Records arrive with a variable set of keys. Projection never fails on a
// missing key: the NotProvided sentinel takes its place, and every row has
// exactly as many values as the table has columns. The embedded Ratings list
// is split out into its own table with the parent identifier stamped onto
// each entry.
package schema
