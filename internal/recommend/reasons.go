// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package recommend

import (
	"github.com/tomtom215/folio/internal/catalog"
	"github.com/tomtom215/folio/internal/graph"
	"github.com/tomtom215/folio/internal/recommend/algorithms"
)

// edgeReason explains an edge of type t with the given weight from item
// from to item to. Either item may be nil when the catalog no longer has
// it; the reason then carries what it can.
func edgeReason(from, to *catalog.Item, t graph.EdgeType, weight float64) (Reason, bool) {
	switch t {
	case graph.EdgeContent:
		return Reason{Type: ReasonSimilarContent, Similarity: weight}, true
	case graph.EdgeAuthor:
		r := Reason{Type: ReasonSameAuthor}
		if to != nil {
			r.Author = to.Author
		}
		return r, true
	case graph.EdgeSeries:
		r := Reason{Type: ReasonSameSeries, Position: PositionInSeries}
		if to != nil {
			r.Series = to.Series
		}
		if from != nil && to != nil {
			r.Position = seriesPosition(from.SeriesIndex, to.SeriesIndex)
		}
		return r, true
	default:
		return Reason{}, false
	}
}

// seriesPosition places target relative to source.
func seriesPosition(source, target *float64) SeriesPosition {
	switch {
	case source == nil || target == nil:
		return PositionInSeries
	case *target > *source:
		return PositionNext
	case *target < *source:
		return PositionPrevious
	default:
		return PositionInSeries
	}
}

// fusionReasons explains every edge fusion produced between from and to.
func fusionReasons(from, to *catalog.Item, edges []algorithms.WeightedEdge) []Reason {
	reasons := make([]Reason, 0, len(edges))
	for _, e := range edges {
		if r, ok := edgeReason(from, to, e.Type, e.Weight); ok {
			reasons = append(reasons, r)
		}
	}
	return reasons
}

// edgeWeight returns the weight of the t-typed edge source->target in g,
// or 0 when there is none.
func edgeWeight(g *graph.Graph, source, target int64, t graph.EdgeType) float64 {
	for _, n := range g.Neighbors(source) {
		if n.ID == target && n.Type == t {
			return n.Weight
		}
	}
	return 0
}

func fusionMetadata(item *catalog.Item) algorithms.ItemMetadata {
	if item == nil {
		return algorithms.ItemMetadata{}
	}
	return algorithms.ItemMetadata{
		Author:      item.Author,
		Series:      item.Series,
		SeriesIndex: item.SeriesIndex,
	}
}
