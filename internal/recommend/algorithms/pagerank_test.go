// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package algorithms

import (
	"math"
	"testing"

	"github.com/tomtom215/folio/internal/graph"
)

func ringGraph(n int64) *graph.Graph {
	var edges []graph.Edge
	for i := int64(0); i < n; i++ {
		edges = append(edges, graph.Edge{Source: i, Target: (i + 1) % n, Type: graph.EdgeContent, Weight: 1})
	}
	return graph.Build(edges, graph.BuildOptions{Symmetric: true})
}

func TestPageRankSymmetricRingIsUniform(t *testing.T) {
	scores := PersonalizedPageRank(ringGraph(6), nil, nil, DefaultPageRankConfig())
	if len(scores) != 6 {
		t.Fatalf("got %d scores, want 6", len(scores))
	}
	for id, s := range scores {
		if math.Abs(s-1.0/6) > 1e-6 {
			t.Errorf("score(%d) = %f, want %f", id, s, 1.0/6)
		}
	}
}

func TestPageRankBoundedAndComplete(t *testing.T) {
	g := graph.New()
	g.AddEdge(1, 2, 0.9, graph.EdgeContent)
	g.AddEdge(2, 3, 0.8, graph.EdgeContent)
	g.AddEdge(3, 1, 0.7, graph.EdgeContent)
	g.AddEdge(4, 1, 0.5, graph.EdgeAuthor) // 4 has no in-edges
	g.AddEdge(2, 5, 0.5, graph.EdgeAuthor) // 5 is dangling

	scores := PersonalizedPageRank(g, []int64{1}, []int64{3, 99}, DefaultPageRankConfig())
	for _, id := range g.Nodes() {
		s, ok := scores[id]
		if !ok {
			t.Errorf("missing score for %d", id)
			continue
		}
		if s < 0 || s > 1 || math.IsNaN(s) {
			t.Errorf("score(%d) = %f out of [0,1]", id, s)
		}
	}
	if _, ok := scores[99]; ok {
		t.Error("preference outside the graph must not appear")
	}
	if scores[4] != 0 {
		t.Errorf("unreachable node score = %f, want 0", scores[4])
	}
}

func TestPageRankFavorsSeed(t *testing.T) {
	g := ringGraph(5)
	scores := PersonalizedPageRank(g, []int64{0}, nil, DefaultPageRankConfig())
	for id, s := range scores {
		if id != 0 && s >= scores[0] {
			t.Errorf("score(%d) = %f not below seed %f", id, s, scores[0])
		}
	}
	// Neighbors of the seed outrank the far side of the ring.
	if scores[1] <= scores[2] {
		t.Errorf("score(1) = %f, want > score(2) = %f", scores[1], scores[2])
	}
}

func TestPageRankPreferenceWeight(t *testing.T) {
	g := ringGraph(8)
	cfg := DefaultPageRankConfig()
	cfg.PreferenceWeight = 0.9

	scores := PersonalizedPageRank(g, []int64{0}, []int64{4}, cfg)
	if scores[4] <= scores[0] {
		t.Errorf("preference %f should outrank seed %f at weight 0.9", scores[4], scores[0])
	}
}

func TestPageRankEmptyGraph(t *testing.T) {
	if got := PersonalizedPageRank(graph.New(), []int64{1}, nil, DefaultPageRankConfig()); len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
}

func TestPageRankConfigNormalize(t *testing.T) {
	cfg := PageRankConfig{Damping: 1.5, PreferenceWeight: -0.2}.Normalize()
	want := DefaultPageRankConfig()
	if cfg != want {
		t.Errorf("Normalize() = %+v, want %+v", cfg, want)
	}
}
