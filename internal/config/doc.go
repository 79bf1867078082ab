// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

/*
Package config provides centralized configuration management for Folio.

# Configuration Sources

Configuration is layered with koanf, highest priority last:

 1. Defaults from defaultConfig()
 2. An optional YAML file: CONFIG_PATH, then config.yaml, config.yml,
    /etc/folio/config.yaml
 3. Environment variables

# Environment Variables

Variables named SECTION_KEY map to section.key, for example:

  - GRAPH_MIN_WEIGHT -> graph.min_weight
  - VECTOR_DIMENSION -> vector.dimension
  - TRAVERSAL_HOP_THRESHOLDS=0.5,0.4,0.3 -> traversal.hop_thresholds

A few short aliases are accepted as well: HTTP_PORT, HTTP_HOST, LOG_LEVEL,
LOG_FORMAT, DUCKDB_PATH, BADGER_PATH, OLLAMA_URL and EMBEDDING_MODEL.
Variables outside the known sections are ignored.

# Sections

  - server: HTTP listener, timeouts, CORS, rate limiting, compression and
    latency tracking
  - logging: zerolog level and format
  - catalog: DuckDB path and tuning
  - vector: Badger path, in-memory mode and embedding dimension
  - embedding: Ollama endpoint, model, rate limit and circuit breaker
  - graph: minimum edge weight, symmetry and periodic rebuild interval
  - traversal: multi-hop traversal parameters
  - pagerank: personalized PageRank parameters
  - ranking: score weights, MMR lambda, limits and response cache
  - indexer: neighbor search and edge thresholds for new embeddings

# Validation

Load returns an error when any value is out of range. See Validate.
*/
package config
