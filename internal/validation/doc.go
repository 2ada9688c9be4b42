// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

// Package validation wraps go-playground/validator v10 behind a process-wide
// singleton and registers the tags the ingestion pipeline relies on.
//
// Custom tags:
//   - imdbid:   value must look like a catalog identifier ("tt" followed by digits)
//   - sqlident: value must be a bare SQL identifier made of word characters only
//
// Example:
//
//	type apiSection struct {
//	    BaseURL string `validate:"required,url"`
//	    Table   string `validate:"required,sqlident"`
//	}
//
//	if err := validation.ValidateStruct(&section); err != nil {
//	    return fmt.Errorf("invalid api section: %w", err)
//	}
package validation
