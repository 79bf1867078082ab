// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

/*
Package catalog stores library items and the persisted similarity edges
between them in DuckDB.

# Tables

  - items: one row per library item with its metadata, optional rating and
    embedding status (pending, complete, failed).
  - item_edges: typed, weighted edges keyed by (source_id, target_id,
    edge_type). Weights are constrained to [0, 1] and self-loops are
    rejected by a CHECK constraint.

The schema is created idempotently on Open. There is no migration system.

# Edge Persistence

Edges are written per source item. ReplaceEdgesFor deletes an item's
outgoing edges and inserts the freshly fused set in the same transaction:
either the whole batch lands or the old edges stay. Edges whose signal
disappeared (an author edit, a dropped series) therefore do not linger.

# Errors

Every failure of the underlying database is wrapped in ErrStorage. Lookups
of a single missing item return ErrNotFound; bulk lookups simply omit
missing ids.

# Thread Safety

DB is safe for concurrent use; database/sql pools the DuckDB connections.
*/
package catalog
