// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

// Package database is the relational store behind the ingestion pipeline.
//
// Two embedded engines are supported, selected by database.driver:
//
//   - duckdb (default): github.com/duckdb/duckdb-go/v2, one file on disk
//   - sqlite:           github.com/mattn/go-sqlite3, one file on disk
//
// The store is append-only. Tables are created from a schema.Descriptor with
// create-if-absent DDL, rows are added with InsertRows, and IDsIn answers
// which identifiers are already present. Nothing is ever updated or deleted.
//
// InsertRows tries a batch in one transaction first. If anything in that
// transaction fails, it rolls back and inserts row by row so one bad row only
// costs itself. Duplicate keys are reported in InsertResult, never returned as
// an error.
package database
