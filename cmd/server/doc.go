// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

/*
Package main is the entry point for the Folio server.

Folio recommends books from a personal library. Items live in a DuckDB
catalog, their embeddings in BadgerDB, and the typed edges between them
(content, author, series) are fused into an in-memory similarity graph that
multi-hop traversal and personalized PageRank rank over.

# Application Architecture

Services run under a Suture v4 supervisor tree:

	RootSupervisor ("folio")
	├── DataSupervisor ("data-layer")
	│   └── Graph service (startup, scheduled and debounced rebuilds)
	├── WorkerSupervisor ("worker-layer")
	│   └── Index service (Watermill router over the index queue, backfill)
	└── APISupervisor ("api-layer")
	    └── HTTP server (Chi, /api/v1)

Component initialization order:

 1. Configuration: Koanf v2 with defaults, optional YAML file and environment
 2. Logging: zerolog, also bridged to slog for Suture and Watermill
 3. Catalog: DuckDB items and edges
 4. Vector store: BadgerDB with in-memory cache, preloaded at startup
 5. Graph manager and rebuild service
 6. Recommendation engine, cleared on every graph rebuild
 7. Embedding provider (Ollama), index queue and indexer
 8. HTTP API and supervisor tree

# Configuration

Defaults are overridden by a YAML file and then by environment variables.
The file is CONFIG_PATH when set, otherwise the first of config.yaml,
config.yml, /etc/folio/config.yaml and /etc/folio/config.yml that exists.

Environment variables name a config section followed by the key, for
example GRAPH_MIN_WEIGHT=0.6 or RANKING_MMR_LAMBDA=0.5. A few short aliases
are also accepted: HTTP_PORT, LOG_LEVEL, DUCKDB_PATH, BADGER_PATH and
OLLAMA_URL among them.

# Signals

SIGINT and SIGTERM stop the tree; each service gets the configured
shutdown timeout and services that do not stop in time are reported.
*/
package main
