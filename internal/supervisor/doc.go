// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

/*
Package supervisor runs serve mode under a suture v4 supervisor tree.

The tree has two layers so a crash in one never takes down the other:

	RootSupervisor ("filmledger")
	├── IngestSupervisor ("ingest-layer")
	│   └── IngestSchedulerService
	└── APISupervisor ("api-layer")
	    └── StatusAPIService

A status API that keeps answering while ingestion is restarting is the reason
for the split.

Suture events are written through sutureslog into a slog.Logger, which
logging.NewSlogLogger backs with zerolog so supervisor events land in the same
structured stream as everything else.

Restart behaviour is controlled by TreeConfig. Defaults match suture's own:
five failures, thirty second decay, fifteen second backoff. Services return
nil to stop for good, an error to be restarted, and ctx.Err() on shutdown.

The relational store is not supervised. It is an embedded library owned by
the database package and a crash there needs a process restart anyway.
*/
package supervisor
