// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package recommend

import (
	"github.com/tomtom215/folio/internal/cache"
	"github.com/tomtom215/folio/internal/graph"
	"github.com/tomtom215/folio/internal/recommend/algorithms"
)

// ReasonType tags a Reason.
type ReasonType string

const (
	ReasonSimilarContent ReasonType = "similar_content"
	ReasonSameAuthor     ReasonType = "same_author"
	ReasonSameSeries     ReasonType = "same_series"
	ReasonBasedOn        ReasonType = "based_on"
	ReasonRecentlyAdded  ReasonType = "recently_added"
)

// Cold-start scores. They are fixed rather than derived from the graph, so
// they only order fallback results among themselves.
const (
	FallbackSeriesScore = 0.9
	FallbackAuthorScore = 0.8
	FallbackRecentScore = 0.5
)

// SeriesPosition places a book relative to another in the same series.
type SeriesPosition string

const (
	PositionNext     SeriesPosition = "next"
	PositionPrevious SeriesPosition = "previous"
	PositionInSeries SeriesPosition = "in series"
)

// Reason explains why an item was recommended. Only the fields relevant
// to Type are set.
type Reason struct {
	Type       ReasonType     `json:"type"`
	Similarity float64        `json:"similarity,omitempty"`
	Author     string         `json:"author,omitempty"`
	Series     string         `json:"series,omitempty"`
	Position   SeriesPosition `json:"position,omitempty"`
	BasedOn    string         `json:"based_on,omitempty"`
}

// Recommendation is one ranked result.
type Recommendation struct {
	ItemID int64  `json:"item_id"`
	Title  string `json:"title,omitempty"`
	Author string `json:"author,omitempty"`

	// Score is the fused score MMR ranked on.
	Score          float64 `json:"score"`
	TraversalScore float64 `json:"traversal_score"`
	PageRankScore  float64 `json:"pagerank_score"`

	// Path runs from the seed to this item; EdgeTypes[i] labels the edge
	// from Path[i] to Path[i+1].
	Path      []int64          `json:"path"`
	EdgeTypes []graph.EdgeType `json:"edge_types"`

	Reasons []Reason `json:"reasons"`

	// Fallback marks results produced without the graph: catalog
	// author and series matches, or recent additions.
	Fallback bool `json:"fallback,omitempty"`
}

// SimilarItem is a nearest neighbor by embedding with the edges fusion
// would create to it.
type SimilarItem struct {
	ItemID     int64                     `json:"item_id"`
	Title      string                    `json:"title,omitempty"`
	Author     string                    `json:"author,omitempty"`
	Similarity float64                   `json:"similarity"`
	Edges      []algorithms.WeightedEdge `json:"edges"`
	Reasons    []Reason                  `json:"reasons"`
}

// Stats reports engine counters.
type Stats struct {
	Requests    int64       `json:"requests"`
	CacheHits   int64       `json:"cache_hits"`
	CacheMisses int64       `json:"cache_misses"`
	Errors      int64       `json:"errors"`
	Cache       cache.Stats `json:"cache"`
}
