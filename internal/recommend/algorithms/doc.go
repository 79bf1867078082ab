// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package algorithms implements the graph algorithms behind Folio's
// recommendations.
//
// Every function here is pure: it reads an immutable *graph.Graph or plain
// values, allocates its own working state, and never returns an error.
// Degenerate input (no seeds, empty graph, no shared signals) yields an
// empty result. Functions are safe to call from many goroutines at once.
//
// # Edge-Weight Fusion
//
// ComputeAllEdgeWeights turns the signals between two items into typed
// edges:
//
//	content  embedding similarity, when above 0.3
//	author   0.85 when both items share a non-empty author
//	series   0.95 adjacent entries, 0.75 non-adjacent, 0.7 position unknown
//
// # Multi-Hop Traversal
//
// MultiHopTraversal expands candidates breadth-first from seed items.
// Deeper hops need weaker edges to pass but are discounted harder:
//
//	score(next) = score(current) * edge_weight * decay^hop
//
// Only the best path to each candidate is kept.
//
// # Personalized PageRank
//
// PersonalizedPageRank runs power iteration with a restart distribution
// split between the seed items and a preference set (typically the user's
// highly rated items).
package algorithms
