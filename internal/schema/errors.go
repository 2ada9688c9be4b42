// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

package schema

import "fmt"

// ConfigurationError reports a descriptor that cannot be used. It is raised
// before any DDL or network I/O and is fatal at startup.
type ConfigurationError struct {
	Table  string
	Column string
	Reason string
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.Table != "" && e.Column != "":
		return fmt.Sprintf("schema: table %q column %q: %s", e.Table, e.Column, e.Reason)
	case e.Table != "":
		return fmt.Sprintf("schema: table %q: %s", e.Table, e.Reason)
	default:
		return "schema: " + e.Reason
	}
}
