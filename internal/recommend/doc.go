// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package recommend produces book recommendations from the similarity graph.
//
// # Pipeline
//
// A recommendation request for a source item runs:
//
//  1. Multi-hop traversal from the source over the current graph snapshot
//  2. Personalized PageRank seeded with the source and any preference items
//  3. Score fusion: TraversalWeight*traversal + PageRankWeight*pagerank
//     (0.7 and 0.3 by default, a missing score counts as 0)
//  4. MMR reranking for diversity, returning at most limit items
//  5. Enrichment with catalog titles and human-readable reasons
//
// An item with no graph neighbors yields an empty list, never an error.
//
// # Cold Start
//
// With Config.ColdStart set, an empty result for a catalog item with no
// graph neighbors falls back to catalog metadata: other books in the same
// series first (score 0.9), then other books by the same author (0.8).
// Personalized requests with no ratings return the most recent additions
// (0.5). Fallback results carry Fallback=true and their own reasons.
//
// # Diversity
//
// MMR needs a pairwise similarity between candidates. The engine uses the
// cosine similarity of cached embeddings when both are in memory and falls
// back to the proximity of the fused scores, 1 - |a - b|, otherwise.
//
// # Reasons
//
// Each recommendation explains its final hop: similar_content with the
// similarity, same_author, or same_series with the position of the
// recommended book relative to the one before it on the path (next,
// previous or "in series"). Personalized recommendations also name the
// rated book they started from.
//
// # Caching
//
// Results are cached in an LRU keyed by request shape. Register ClearCache
// with the graph manager so a rebuilt graph never serves stale results.
//
// # Usage
//
//	engine, err := recommend.NewEngine(recommend.DefaultConfig(), graphManager, logger)
//	engine.SetVectorSource(vectors)
//	engine.SetItemSource(catalogDB)
//	graphManager.OnRebuild(func(*graph.Graph) { engine.ClearCache() })
//
//	recs, err := engine.GenerateRecommendations(ctx, bookID, nil, 20)
//
// # Thread Safety
//
// The engine is safe for concurrent use. Each request reads one graph
// snapshot for its whole duration.
package recommend
