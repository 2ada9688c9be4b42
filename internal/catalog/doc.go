// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

// Package catalog discovers movie identifiers on paginated HTML listings.
//
// A listing page is fetched once, parsed with golang.org/x/net/html, and every
// identifier (tt followed by digits) that appears anywhere inside an <a>
// element, in its attributes or its text, is collected. Identifiers that
// already have a cached raw record are removed before the set is returned.
//
// The crawler does not retry. A failed page is a *NetworkError for the caller
// to log and skip.
package catalog
