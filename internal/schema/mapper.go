// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

package schema

import (
	"strconv"

	"github.com/goccy/go-json"
)

// NotProvided fills columns whose key is absent from a record.
const NotProvided = "Not_provided"

// RatingsKey is the record key holding the embedded rating entries.
const RatingsKey = "Ratings"

// Record is one decoded JSON document.
type Record map[string]any

// SplitRatings returns a copy of rec without RatingsKey and the rating entries
// with idKey set to the parent's identifier. rec itself is not modified.
//
// A missing or non-list Ratings value yields zero entries. Entries that are
// not JSON objects are dropped.
func SplitRatings(rec Record, idKey string) (Record, []Record) {
	parent := make(Record, len(rec))
	for k, v := range rec {
		if k != RatingsKey {
			parent[k] = v
		}
	}

	list, ok := rec[RatingsKey].([]any)
	if !ok {
		return parent, nil
	}

	id := rec[idKey]
	ratings := make([]Record, 0, len(list))
	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		r := make(Record, len(entry)+1)
		for k, v := range entry {
			r[k] = v
		}
		r[idKey] = id
		ratings = append(ratings, r)
	}
	return parent, ratings
}

// ProjectRecords turns records into positional rows following t's column
// order. Absent keys become NotProvided. Every row has len(t.Columns) values.
func ProjectRecords(records []Record, t Table) [][]any {
	rows := make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, len(t.Columns))
		for j, c := range t.Columns {
			v, ok := rec[c.Name]
			if !ok {
				row[j] = NotProvided
				continue
			}
			row[j] = columnValue(v)
		}
		rows[i] = row
	}
	return rows
}

// Project is ProjectRecords by table name.
func (d *Descriptor) Project(records []Record, table string) ([][]any, error) {
	t, ok := d.Table(table)
	if !ok {
		return nil, &ConfigurationError{Table: table, Reason: "not declared"}
	}
	return ProjectRecords(records, t), nil
}

// columnValue renders a decoded JSON value for a TEXT column. JSON null stays
// nil so the store writes SQL NULL.
func columnValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return NotProvided
		}
		return string(b)
	}
}
