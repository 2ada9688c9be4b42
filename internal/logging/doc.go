// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

// Package logging owns the process-wide zerolog logger.
//
// Every package logs through this one instead of creating its own logger so
// that level, format and correlation fields stay consistent between the CLI
// and the supervised daemon.
//
//	logging.Init(logging.Config{Level: "debug", Format: "console"})
//	logging.Info().Str("id", "tt0111161").Msg("Record cached")
//
//	ctx = logging.ContextWithRunID(ctx, runID)
//	logging.Ctx(ctx).Warn().Err(err).Msg("Listing page skipped")
//
// Log chains must end with Msg or Send, otherwise nothing is written.
package logging
