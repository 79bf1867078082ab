// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package reranking reorders scored candidates for diversity.
//
// MMR (Maximal Marginal Relevance) greedily picks the candidate maximizing
//
//	lambda * relevance - (1 - lambda) * max similarity to the items already picked
//
// Lambda 1 is pure relevance ordering; lambda 0 is pure novelty. The caller
// supplies the pairwise similarity, so the same reranker works with
// embedding cosine similarity or any cheaper proxy.
package reranking
