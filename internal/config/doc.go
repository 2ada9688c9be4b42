// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

// Package config loads Filmledger configuration with Koanf.
//
// Sources are layered, later layers winning:
//
//  1. Built-in defaults (defaultConfig)
//  2. An optional YAML file: $CONFIG_PATH, ./config.yaml or /etc/filmledger/config.yaml
//  3. Environment variables listed in envMappings (OMDB_API_KEY, DATABASE_PATH, ...)
//
// Comma-separated environment values are split for list settings such as
// CATALOG_URLS. The merged result is validated before it is returned, so a
// caller that gets a *Config back can start I/O without further checks.
//
// Example config.yaml:
//
//	catalog:
//	  page_template: "https://www.imdb.com/search/title?genres=animation&title_type=feature&page={page}"
//	  first_page: 1
//	  last_page: 6
//	api:
//	  key: "abcd1234"
//	  throttle_cooldown: 24h
//	database:
//	  driver: duckdb
//	  path: /data/filmledger.duckdb
package config
