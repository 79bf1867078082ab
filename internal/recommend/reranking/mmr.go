// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package reranking

import "math"

// DefaultLambda weights relevance at 70% and diversity at 30%.
const DefaultLambda = 0.7

// maxRerankSize bounds allocations; k is also bounded by len(items).
const maxRerankSize = 10000

// Item is a candidate with its relevance score.
type Item struct {
	ID    int64
	Score float64
}

// SimilarityFunc returns the similarity of two candidates, typically in
// [0, 1].
type SimilarityFunc func(a, b int64) float64

// MMR implements Maximal Marginal Relevance reranking.
//
// Reference:
// Carbonell, J., & Goldstein, J. (1998). "The Use of MMR, Diversity-Based
// Reranking for Reordering Documents and Producing Summaries." SIGIR 1998.
type MMR struct {
	lambda float64
}

// NewMMR creates a reranker. Lambda is clamped to [0, 1].
func NewMMR(lambda float64) *MMR {
	return &MMR{lambda: math.Max(0, math.Min(1, lambda))}
}

// Name returns the reranker identifier.
func (m *MMR) Name() string {
	return "mmr"
}

// Lambda returns the relevance weight.
func (m *MMR) Lambda() float64 {
	return m.lambda
}

// Rerank selects up to k items. The first pick has no similarity penalty.
// Equal MMR scores go to the more relevant item, then to the earlier one,
// so k == 1 always returns the most relevant item. A nil sim is treated as
// zero similarity.
func (m *MMR) Rerank(items []Item, sim SimilarityFunc, k int) []Item {
	if len(items) == 0 || k <= 0 {
		return []Item{}
	}
	k = min(k, len(items), maxRerankSize)

	// maxSim[i] tracks item i's highest similarity to anything selected;
	// only the newest pick needs comparing each round.
	maxSim := make([]float64, len(items))
	taken := make([]bool, len(items))
	selected := make([]Item, 0, k)
	last := -1

	for len(selected) < k {
		best := -1
		bestMMR := math.Inf(-1)

		for i := range items {
			if taken[i] {
				continue
			}
			if last >= 0 && sim != nil {
				if s := sim(items[i].ID, items[last].ID); s > maxSim[i] {
					maxSim[i] = s
				}
			}

			score := m.lambda*items[i].Score - (1-m.lambda)*maxSim[i]
			if best < 0 || score > bestMMR || (score == bestMMR && items[i].Score > items[best].Score) {
				best = i
				bestMMR = score
			}
		}

		taken[best] = true
		selected = append(selected, items[best])
		last = best
	}

	return selected
}
