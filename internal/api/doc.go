// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

/*
Package api exposes the recommendation engine over HTTP using the Chi router.

Every response uses the same envelope:

	{"success": true, "data": ..., "meta": {"request_id": "...", "timestamp": "...", "duration_ms": 3}}
	{"success": false, "error": {"code": "NOT_FOUND", "message": "...", "request_id": "..."}}

# Routes

All routes live under /api/v1:

	GET    /health                         component health and catalog counts
	GET    /items/{id}                     catalog item
	PUT    /items/{id}                     upsert item and queue indexing
	DELETE /items/{id}                     delete item, its vector and its edges
	POST   /items/{id}/index               queue (or with wait=true run) indexing
	GET    /items/{id}/similar             nearest neighbors by embedding
	GET    /items/{id}/recommendations     graph recommendations seeded at the item
	GET    /recommendations/personalized   recommendations seeded from rated items
	POST   /edges/weights                  fusion weights for two items
	GET    /graph/stats                    current graph snapshot stats
	POST   /graph/rebuild                  rebuild the graph from persisted edges
	POST   /graph/edges/rebuild            recompute every complete item's edges, then rebuild
	GET    /graph/{id}                     bounded neighborhood around an item
	GET    /stats/latency                  per-route latency percentiles
	GET    /vectors/stats                  vector cache stats
	DELETE /vectors                        drop every stored embedding
	DELETE /cache                          drop cached recommendation lists

Prometheus metrics are served at /metrics outside the versioned prefix.

Versioned responses are gzipped once they reach the configured minimum size
and the client accepts gzip. Vary: Accept-Encoding is set whenever
compression is enabled, whichever encoding is chosen. When a latency monitor is configured every
versioned request is recorded under its route pattern.

# Errors

Handlers translate domain errors with errors.Is:

	catalog.ErrNotFound        404 NOT_FOUND (explicit item lookups only)
	catalog/vector ErrStorage  500 STORAGE_ERROR
	embedding.ErrProvider      502 PROVIDER_ERROR
	embedding.ErrUnavailable   503 SERVICE_UNAVAILABLE
	events.ErrClosed           503 SERVICE_UNAVAILABLE

An unknown seed item on the recommendation routes is not an error: the
response is an empty list.
*/
package api
