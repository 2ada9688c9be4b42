// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

// Package rawcache stores API responses verbatim, one <id>.json file per
// identifier. The cache doubles as the "already fetched" ledger: a file on
// disk means the record was fetched successfully at least once.
package rawcache

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/filmledger/internal/schema"
	"github.com/tomtom215/filmledger/internal/validation"
)

var fileNamePattern = regexp.MustCompile(`^(tt\d+)\.json$`)

// Cache is a directory of raw record files.
type Cache struct {
	dir string
}

// New returns a cache rooted at dir. The directory is created on first write.
func New(dir string) *Cache {
	return &Cache{dir: dir}
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Path returns the file path for id.
func (c *Cache) Path(id string) string {
	return filepath.Join(c.dir, id+".json")
}

// Write stores body as <id>.json. The body goes to a temp file in the same
// directory first and is renamed into place, so readers never see a partial
// file.
func (c *Cache) Write(id string, body []byte) error {
	if !validation.IsIdentifier(id) {
		return fmt.Errorf("rawcache: refusing to write invalid identifier %q", id)
	}
	if err := os.MkdirAll(c.dir, 0o750); err != nil {
		return fmt.Errorf("rawcache: create %s: %w", c.dir, err)
	}

	tmp, err := os.CreateTemp(c.dir, "."+id+".*.tmp")
	if err != nil {
		return fmt.Errorf("rawcache: temp file for %s: %w", id, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("rawcache: write %s: %w", id, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("rawcache: sync %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("rawcache: close %s: %w", id, err)
	}
	if err := os.Rename(tmpName, c.Path(id)); err != nil {
		cleanup()
		return fmt.Errorf("rawcache: rename %s: %w", id, err)
	}
	return nil
}

// Has reports whether id is cached.
func (c *Cache) Has(id string) bool {
	_, err := os.Stat(c.Path(id))
	return err == nil
}

// IDs returns the identifier of every cached <id>.json file, so each
// returned id can be read back with Load. Other names, temp files and
// directories are skipped. A missing directory is an empty cache.
func (c *Cache) IDs() (map[string]struct{}, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]struct{}{}, nil
		}
		return nil, fmt.Errorf("rawcache: list %s: %w", c.dir, err)
	}

	ids := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if m := fileNamePattern.FindStringSubmatch(name); m != nil {
			ids[m[1]] = struct{}{}
		}
	}
	return ids, nil
}

// Load decodes the cached record for id. Numbers are kept as json.Number so
// their text survives projection unchanged.
func (c *Cache) Load(id string) (schema.Record, error) {
	return decodeFile(c.Path(id))
}

// LoadDir decodes every *.json document in dir. Unreadable or malformed files
// are reported through onError and skipped. A missing directory yields nil.
func LoadDir(dir string, onError func(path string, err error)) ([]schema.Record, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("rawcache: glob %s: %w", dir, err)
	}
	docs := make([]schema.Record, 0, len(paths))
	for _, p := range paths {
		rec, err := decodeFile(p)
		if err != nil {
			if onError != nil {
				onError(p, err)
			}
			continue
		}
		docs = append(docs, rec)
	}
	return docs, nil
}

func decodeFile(path string) (schema.Record, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is built from a validated identifier or a configured directory
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rec schema.Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	if rec == nil {
		return nil, fmt.Errorf("decode %s: not a JSON object", filepath.Base(path))
	}
	return rec, nil
}
