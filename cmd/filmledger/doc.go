// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

// Package main is the filmledger command.
//
// It wires the catalog crawler, the lookup API client, the raw record cache
// and the relational store into one ingestion orchestrator and exposes it
// through three subcommands:
//
//	filmledger run        # DISCOVER, FETCH, MAP and INSERT once, then exit
//	filmledger reconcile  # MAP and INSERT cached records only, no network
//	filmledger serve      # scheduled runs plus the status API
//
// # Configuration
//
// Settings come from built-in defaults, an optional YAML file (-config, or
// CONFIG_PATH) and environment variables, highest priority last. The most
// common overrides:
//
//	OMDB_API_KEY=...          lookup API key
//	CATALOG_URLS=...          comma-separated listing URLs
//	DATABASE_PATH=...         store file
//	RAW_DATA_DIR=...          raw record directory
//	LEDGER_PATH=...           run progress (BadgerDB) directory
//
// # Exit Codes
//
// run and reconcile exit 1 when the run fails. A run that stops early because
// the throttle budget ran out still counts as a success.
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the active run. serve additionally drains the
// status API before exiting.
package main
