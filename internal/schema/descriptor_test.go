// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

package schema

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault_Valid(t *testing.T) {
	d := Default()
	if err := d.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}

	movies, ok := d.Table("movies")
	if !ok {
		t.Fatal("movies table missing")
	}
	if key, ok := movies.KeyColumn(); !ok || key != "imdbID" {
		t.Errorf("movies.KeyColumn() = %q, %v, want imdbID, true", key, ok)
	}

	ratings, _ := d.Table("ratings")
	if _, ok := ratings.KeyColumn(); ok {
		t.Error("ratings should have no key column")
	}
	if got := strings.Join(ratings.ColumnNames(), ","); got != "imdbID,Value,Source" {
		t.Errorf("ratings columns = %s", got)
	}
}

func TestValidate_ColumnNames(t *testing.T) {
	tests := []struct {
		name    string
		column  string
		wantErr bool
	}{
		{"word characters", "BoxOffice", false},
		{"underscore and digits", "box_office_2", false},
		{"space", "Box Office", true},
		{"hyphen", "box-office", true},
		{"quote", `Box"Office`, true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Default()
			d.Tables = append(d.Tables, Table{Name: "grosses", Columns: []Column{{Name: tt.column, Type: "TEXT"}}})

			err := d.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var ce *ConfigurationError
				if !errors.As(err, &ce) {
					t.Errorf("error %T is not *ConfigurationError", err)
				}
			}
		})
	}
}

func TestValidate_Roles(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *Descriptor)
		want   string
	}{
		{"no tables", func(d *Descriptor) { d.Tables = nil }, "no tables"},
		{"missing entity role", func(d *Descriptor) { d.EntityTable = "" }, "entity_table is required"},
		{"entity table undeclared", func(d *Descriptor) { d.EntityTable = "films" }, "not declared"},
		{"id column missing", func(d *Descriptor) { d.IDColumn = "id" }, "identifier column"},
		{"id column not a key", func(d *Descriptor) {
			d.Tables[0].Columns[d.Tables[0].ColumnIndex("imdbID")].Type = "TEXT"
		}, "PRIMARY KEY or UNIQUE"},
		{"duplicate table", func(d *Descriptor) { d.Tables = append(d.Tables, d.Tables[1]) }, "more than once"},
		{"duplicate column", func(d *Descriptor) {
			d.Tables[2].Columns = append(d.Tables[2].Columns, Column{Name: "TEXT", Type: "TEXT"})
		}, "more than once"},
		{"missing type", func(d *Descriptor) { d.Tables[1].Columns[1].Type = " " }, "missing declared type"},
		{"enrichment without id", func(d *Descriptor) { d.EnrichmentIDColumn = "" }, "identifier column"},
		{"enrichment disabled", func(d *Descriptor) {
			d.EnrichmentTable, d.EnrichmentIDColumn = "", ""
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Default()
			tt.mutate(d)
			err := d.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestCreateStatements(t *testing.T) {
	stmts := Default().CreateStatements()
	if len(stmts) != 3 {
		t.Fatalf("len(stmts) = %d, want 3", len(stmts))
	}
	want := `CREATE TABLE IF NOT EXISTS "ratings" ("imdbID" TEXT NOT NULL, "Value" TEXT, "Source" TEXT)`
	if stmts[1] != want {
		t.Errorf("stmts[1] = %s\nwant %s", stmts[1], want)
	}
	if !strings.Contains(stmts[0], `"imdbID" TEXT PRIMARY KEY`) {
		t.Errorf("movies DDL missing primary key: %s", stmts[0])
	}
}

func TestLoad(t *testing.T) {
	t.Run("empty path uses default", func(t *testing.T) {
		d, err := Load("")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if d.EntityTable != "movies" {
			t.Errorf("EntityTable = %s, want movies", d.EntityTable)
		}
	})

	t.Run("yaml descriptor", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "schema.yaml")
		yaml := `
entity_table: films
id_column: imdbID
ratings_table: film_ratings
tables:
  - name: films
    columns:
      - {name: imdbID, type: TEXT PRIMARY KEY}
      - {name: Title, type: TEXT}
  - name: film_ratings
    columns:
      - {name: imdbID, type: TEXT}
      - {name: Source, type: TEXT}
      - {name: Value, type: TEXT}
`
		if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
			t.Fatal(err)
		}
		d, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if d.HasEnrichment() {
			t.Error("HasEnrichment() = true, want false")
		}
		films, ok := d.Table("films")
		if !ok || len(films.Columns) != 2 {
			t.Fatalf("films = %+v", films)
		}
	})

	t.Run("invalid yaml descriptor", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "schema.yaml")
		yaml := `
entity_table: films
id_column: imdbID
ratings_table: films
tables:
  - name: films
    columns:
      - {name: imdbID, type: TEXT}
      - {name: Box Office, type: TEXT}
`
		if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
			t.Fatal(err)
		}
		_, err := Load(path)
		var ce *ConfigurationError
		if !errors.As(err, &ce) || ce.Column != "Box Office" {
			t.Errorf("Load() error = %v, want ConfigurationError for Box Office", err)
		}
	})
}
