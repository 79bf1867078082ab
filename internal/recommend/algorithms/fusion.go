// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package algorithms

import (
	"math"

	"github.com/tomtom215/folio/internal/graph"
)

// Fusion weights.
const (
	// ContentThreshold is the similarity a content edge must exceed.
	ContentThreshold = 0.3

	AuthorWeight          = 0.85
	SeriesAdjacentWeight  = 0.95
	SeriesDistantWeight   = 0.75
	SeriesUnorderedWeight = 0.7
)

// ItemMetadata is the catalog data fusion needs for one item.
type ItemMetadata struct {
	Author      string
	Series      string
	SeriesIndex *float64
}

// WeightedEdge is one typed edge candidate between two items.
type WeightedEdge struct {
	Weight float64        `json:"weight"`
	Type   graph.EdgeType `json:"type"`
}

// ComputeAllEdgeWeights evaluates every fusion rule independently and
// returns the edges that qualify, in rule order: content, author, series.
// similarity is nil when no embedding comparison is available.
//
//nolint:gocritic // ItemMetadata is small and read-only
func ComputeAllEdgeWeights(a, b ItemMetadata, similarity *float64) []WeightedEdge {
	edges := make([]WeightedEdge, 0, 3)

	if similarity != nil && *similarity > ContentThreshold {
		edges = append(edges, WeightedEdge{Weight: math.Min(*similarity, 1), Type: graph.EdgeContent})
	}

	if a.Author != "" && a.Author == b.Author {
		edges = append(edges, WeightedEdge{Weight: AuthorWeight, Type: graph.EdgeAuthor})
	}

	if a.Series != "" && a.Series == b.Series {
		edges = append(edges, WeightedEdge{Weight: seriesWeight(a.SeriesIndex, b.SeriesIndex), Type: graph.EdgeSeries})
	}

	return edges
}

func seriesWeight(a, b *float64) float64 {
	if a == nil || b == nil {
		return SeriesUnorderedWeight
	}
	if math.Abs(*a-*b) <= 1.0 {
		return SeriesAdjacentWeight
	}
	return SeriesDistantWeight
}

// ComputeEdgeWeight returns the strongest qualifying edge, or (0, EdgeNone)
// when no rule fires. Ties keep the earlier rule.
//
//nolint:gocritic // ItemMetadata is small and read-only
func ComputeEdgeWeight(a, b ItemMetadata, similarity *float64) (float64, graph.EdgeType) {
	best := WeightedEdge{Type: graph.EdgeNone}
	for _, e := range ComputeAllEdgeWeights(a, b, similarity) {
		if best.Type == graph.EdgeNone || e.Weight > best.Weight {
			best = e
		}
	}
	return best.Weight, best.Type
}
