// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

package schema

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/filmledger/internal/validation"
)

// Column is one (name, declared type) pair. Type carries constraints too,
// e.g. "TEXT PRIMARY KEY".
type Column struct {
	Name string `koanf:"name"`
	Type string `koanf:"type"`
}

// Table is an ordered list of columns.
type Table struct {
	Name    string   `koanf:"name"`
	Columns []Column `koanf:"columns"`
}

// ColumnNames returns the declared column order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex returns the position of name, or -1.
func (t Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// KeyColumn returns the first column declared PRIMARY KEY or UNIQUE. ok is
// false when the table has no such column and duplicates cannot be detected
// by the store.
func (t Table) KeyColumn() (name string, ok bool) {
	for _, c := range t.Columns {
		typ := strings.ToUpper(c.Type)
		if strings.Contains(typ, "PRIMARY KEY") || strings.Contains(typ, "UNIQUE") {
			return c.Name, true
		}
	}
	return "", false
}

// CreateStatement renders CREATE TABLE IF NOT EXISTS for t.
func (t Table) CreateStatement() string {
	defs := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		defs[i] = QuoteIdent(c.Name) + " " + c.Type
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", QuoteIdent(t.Name), strings.Join(defs, ", "))
}

// Descriptor is the full table layout plus the roles the pipeline needs.
type Descriptor struct {
	// EntityTable holds one row per identifier; IDColumn is its key and also
	// the foreign key column stamped onto rating entries.
	EntityTable string `koanf:"entity_table"`
	IDColumn    string `koanf:"id_column"`

	// RatingsTable receives the entries split out of each record.
	RatingsTable string `koanf:"ratings_table"`

	// EnrichmentTable and EnrichmentIDColumn are optional.
	EnrichmentTable    string `koanf:"enrichment_table"`
	EnrichmentIDColumn string `koanf:"enrichment_id_column"`

	Tables []Table `koanf:"tables"`
}

// Table looks up a table by name.
func (d *Descriptor) Table(name string) (Table, bool) {
	for _, t := range d.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// HasEnrichment reports whether the descriptor declares an enrichment table.
func (d *Descriptor) HasEnrichment() bool {
	return d.EnrichmentTable != ""
}

// CreateStatements returns one idempotent CREATE statement per table, in
// declaration order.
func (d *Descriptor) CreateStatements() []string {
	out := make([]string, len(d.Tables))
	for i, t := range d.Tables {
		out[i] = t.CreateStatement()
	}
	return out
}

// Validate checks names and roles. Every failure is a *ConfigurationError.
func (d *Descriptor) Validate() error {
	if len(d.Tables) == 0 {
		return &ConfigurationError{Reason: "no tables declared"}
	}

	seen := make(map[string]bool, len(d.Tables))
	for _, t := range d.Tables {
		if err := validateTable(t); err != nil {
			return err
		}
		key := strings.ToLower(t.Name)
		if seen[key] {
			return &ConfigurationError{Table: t.Name, Reason: "declared more than once"}
		}
		seen[key] = true
	}

	if err := d.requireColumn("entity_table", d.EntityTable, d.IDColumn); err != nil {
		return err
	}
	entity, _ := d.Table(d.EntityTable)
	if key, ok := entity.KeyColumn(); !ok || key != d.IDColumn {
		return &ConfigurationError{Table: d.EntityTable, Column: d.IDColumn, Reason: "identifier column must be declared PRIMARY KEY or UNIQUE"}
	}
	if err := d.requireColumn("ratings_table", d.RatingsTable, d.IDColumn); err != nil {
		return err
	}
	if d.HasEnrichment() {
		if err := d.requireColumn("enrichment_table", d.EnrichmentTable, d.EnrichmentIDColumn); err != nil {
			return err
		}
	}
	return nil
}

func validateTable(t Table) error {
	if !validation.IsSQLIdentifier(t.Name) {
		return &ConfigurationError{Table: t.Name, Reason: "table name must match ^\\w+$"}
	}
	if len(t.Columns) == 0 {
		return &ConfigurationError{Table: t.Name, Reason: "no columns declared"}
	}
	cols := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if !validation.IsSQLIdentifier(c.Name) {
			return &ConfigurationError{Table: t.Name, Column: c.Name, Reason: "column name must match ^\\w+$"}
		}
		if strings.TrimSpace(c.Type) == "" {
			return &ConfigurationError{Table: t.Name, Column: c.Name, Reason: "missing declared type"}
		}
		key := strings.ToLower(c.Name)
		if cols[key] {
			return &ConfigurationError{Table: t.Name, Column: c.Name, Reason: "declared more than once"}
		}
		cols[key] = true
	}
	return nil
}

func (d *Descriptor) requireColumn(role, table, column string) error {
	if table == "" {
		return &ConfigurationError{Reason: role + " is required"}
	}
	t, ok := d.Table(table)
	if !ok {
		return &ConfigurationError{Table: table, Reason: role + " is not declared"}
	}
	if column == "" || t.ColumnIndex(column) < 0 {
		return &ConfigurationError{Table: table, Column: column, Reason: "identifier column is not declared"}
	}
	return nil
}

// QuoteIdent double-quotes a validated identifier. Both supported dialects
// accept double-quoted names, which keeps columns such as Year and Type clear
// of keyword parsing.
func QuoteIdent(name string) string {
	return `"` + name + `"`
}

// Default returns the built-in movies/ratings/wiki layout.
func Default() *Descriptor {
	text := func(names ...string) []Column {
		cols := make([]Column, len(names))
		for i, n := range names {
			cols[i] = Column{Name: n, Type: "TEXT"}
		}
		return cols
	}

	movies := text("Title", "Year", "Rated", "Released", "Runtime", "Genre", "Director",
		"Writer", "Actors", "Plot", "Language", "Country", "Awards", "Poster",
		"Metascore", "imdbRating", "imdbVotes")
	movies = append(movies, Column{Name: "imdbID", Type: "TEXT PRIMARY KEY"})
	movies = append(movies, text("Type", "DVD", "BoxOffice", "Production", "Website",
		"totalSeasons", "Response")...)

	return &Descriptor{
		EntityTable:        "movies",
		IDColumn:           "imdbID",
		RatingsTable:       "ratings",
		EnrichmentTable:    "wiki",
		EnrichmentIDColumn: "imdb_id",
		Tables: []Table{
			{Name: "movies", Columns: movies},
			{Name: "ratings", Columns: []Column{
				{Name: "imdbID", Type: "TEXT NOT NULL"},
				{Name: "Value", Type: "TEXT"},
				{Name: "Source", Type: "TEXT"},
			}},
			{Name: "wiki", Columns: []Column{
				{Name: "imdb_id", Type: "TEXT PRIMARY KEY"},
				{Name: "text", Type: "TEXT"},
			}},
		},
	}
}

// Load returns Default when path is empty, otherwise the YAML descriptor at
// path. The result is validated either way.
func Load(path string) (*Descriptor, error) {
	d := Default()
	if path != "" {
		k := koanf.New(".")
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load schema descriptor %s: %w", path, err)
		}
		d = &Descriptor{}
		if err := k.Unmarshal("", d); err != nil {
			return nil, fmt.Errorf("failed to decode schema descriptor %s: %w", path, err)
		}
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}
