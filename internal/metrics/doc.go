// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

// Package metrics registers the Prometheus collectors for the ingestion
// pipeline. Collectors live in the default registry and are exposed by the
// status API at /metrics.
package metrics
