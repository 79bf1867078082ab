// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package indexer turns catalog items into embeddings and graph edges.
//
// For one item the pipeline is:
//
//  1. Build the embedding text from title, author, series and description.
//  2. Skip the item when the stored embedding was made by the current model
//     from identical text, unless the job forces a refresh.
//  3. Embed the text with the provider and store the vector.
//  4. Fuse typed edges against the item's nearest neighbors and replace the
//     item's outgoing edges with them in one transaction.
//  5. Mark the item complete and ask for a graph rebuild.
//
// A failure at steps 3 or 4 marks the item failed with the error text. The
// job bus decides whether to retry; the indexer never retries the provider.
//
// Reindexing an item replaces all of its outgoing edges, so an edge whose
// signal disappeared (a changed author, a neighbor that drifted below the
// similarity floor) is dropped. RebuildEdges repeats step 4 for every
// complete item, which picks up fusion or threshold changes without
// re-embedding anything.
package indexer
