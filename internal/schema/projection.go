// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

package schema

import "fmt"

// Projection holds the rows produced from one batch of records.
type Projection struct {
	// IDs lists the identifier of every projected entity row, in row order.
	IDs []string

	Entities [][]any
	Ratings  [][]any

	// RatingOwners[i] is the identifier the i-th rating row belongs to.
	RatingOwners []string

	// Skipped counts records without a usable identifier.
	Skipped int
}

// Mapper projects records against a validated descriptor.
type Mapper struct {
	desc    *Descriptor
	entity  Table
	ratings Table
	enrich  Table
	hasWiki bool
}

// NewMapper validates d and prepares the role tables.
func NewMapper(d *Descriptor) (*Mapper, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	m := &Mapper{desc: d}
	m.entity, _ = d.Table(d.EntityTable)
	m.ratings, _ = d.Table(d.RatingsTable)
	if d.HasEnrichment() {
		m.enrich, _ = d.Table(d.EnrichmentTable)
		m.hasWiki = true
	}
	return m, nil
}

// Descriptor returns the descriptor the mapper was built from.
func (m *Mapper) Descriptor() *Descriptor {
	return m.desc
}

// MapRecords splits ratings out of every record and projects both tables.
// Records whose identifier is missing or not a string are skipped.
func (m *Mapper) MapRecords(records []Record) Projection {
	var p Projection
	parents := make([]Record, 0, len(records))
	var ratings []Record

	for _, rec := range records {
		id, ok := rec[m.desc.IDColumn].(string)
		if !ok || id == "" {
			p.Skipped++
			continue
		}
		parent, entries := SplitRatings(rec, m.desc.IDColumn)
		parents = append(parents, parent)
		p.IDs = append(p.IDs, id)
		for range entries {
			p.RatingOwners = append(p.RatingOwners, id)
		}
		ratings = append(ratings, entries...)
	}

	p.Entities = ProjectRecords(parents, m.entity)
	p.Ratings = ProjectRecords(ratings, m.ratings)
	return p
}

// MapEnrichment projects enrichment documents. Documents without an
// identifier are counted in skipped.
func (m *Mapper) MapEnrichment(docs []Record) (rows [][]any, ids []string, skipped int, err error) {
	if !m.hasWiki {
		return nil, nil, 0, fmt.Errorf("schema: no enrichment table declared")
	}
	kept := make([]Record, 0, len(docs))
	for _, doc := range docs {
		id, ok := doc[m.desc.EnrichmentIDColumn].(string)
		if !ok || id == "" {
			skipped++
			continue
		}
		kept = append(kept, doc)
		ids = append(ids, id)
	}
	return ProjectRecords(kept, m.enrich), ids, skipped, nil
}
