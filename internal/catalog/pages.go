// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

package catalog

import (
	"strconv"
	"strings"
)

// PagePlaceholder marks where the page number goes in a listing template.
const PagePlaceholder = "{page}"

// ExpandPages substitutes every page number in [first, last] into template.
// A template without the placeholder is returned as the only URL.
func ExpandPages(template string, first, last int) []string {
	if !strings.Contains(template, PagePlaceholder) {
		return []string{template}
	}
	if last < first {
		return nil
	}
	urls := make([]string, 0, last-first+1)
	for p := first; p <= last; p++ {
		urls = append(urls, strings.ReplaceAll(template, PagePlaceholder, strconv.Itoa(p)))
	}
	return urls
}

// ListingURLs merges explicit URLs with the expanded template, dropping
// duplicates while keeping first-seen order.
func ListingURLs(urls []string, template string, first, last int) []string {
	all := append([]string{}, urls...)
	if template != "" {
		all = append(all, ExpandPages(template, first, last)...)
	}
	seen := make(map[string]bool, len(all))
	out := all[:0]
	for _, u := range all {
		if !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	return out
}
