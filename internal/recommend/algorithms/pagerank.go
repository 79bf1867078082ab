// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package algorithms

import (
	"math"

	"github.com/tomtom215/folio/internal/graph"
)

// PageRankConfig contains configuration for personalized PageRank.
type PageRankConfig struct {
	// Damping is the probability of following an edge rather than
	// restarting. Default: 0.85.
	Damping float64 `json:"damping" koanf:"damping"`

	// PreferenceWeight is the share of restart mass given to the preference
	// set; seeds receive the rest. Default: 0.3.
	PreferenceWeight float64 `json:"preference_weight" koanf:"preference_weight"`

	// Iterations is the maximum number of power iterations. Default: 20.
	Iterations int `json:"iterations" koanf:"iterations"`

	// Epsilon stops iteration once no score moves by this much.
	// Default: 1e-6.
	Epsilon float64 `json:"epsilon" koanf:"epsilon"`
}

// DefaultPageRankConfig returns the default PageRank configuration.
func DefaultPageRankConfig() PageRankConfig {
	return PageRankConfig{
		Damping:          0.85,
		PreferenceWeight: 0.3,
		Iterations:       20,
		Epsilon:          1e-6,
	}
}

// Normalize replaces invalid fields with defaults.
func (c PageRankConfig) Normalize() PageRankConfig {
	def := DefaultPageRankConfig()
	if c.Damping <= 0 || c.Damping >= 1 {
		c.Damping = def.Damping
	}
	if c.PreferenceWeight < 0 || c.PreferenceWeight > 1 {
		c.PreferenceWeight = def.PreferenceWeight
	}
	if c.Iterations <= 0 {
		c.Iterations = def.Iterations
	}
	if c.Epsilon <= 0 {
		c.Epsilon = def.Epsilon
	}
	return c
}

type inEdge struct {
	from   int
	weight float64
}

// PersonalizedPageRank scores every node of g by power iteration with a
// restart distribution biased toward seeds and preferences.
//
// Seeds share (1 - PreferenceWeight) of the restart mass and preferences
// share PreferenceWeight, each split evenly. With neither set the restart is
// uniform. Each iteration computes
//
//	score(i) = Damping * sum_j(score(j) * w(j,i) / max(1, outdeg(j))) + (1 - Damping) * restart(i)
//
// The result holds an entry for every node. Ids absent from g are ignored.
func PersonalizedPageRank(g *graph.Graph, seeds, preferences []int64, cfg PageRankConfig) map[int64]float64 {
	if g == nil || g.NodeCount() == 0 {
		return map[int64]float64{}
	}
	cfg = cfg.Normalize()

	nodes := g.Nodes()
	n := len(nodes)
	index := make(map[int64]int, n)
	for i, id := range nodes {
		index[id] = i
	}

	// Reverse adjacency, built once per call.
	incoming := make([][]inEdge, n)
	outDegree := make([]float64, n)
	for j, id := range nodes {
		neighbors := g.Neighbors(id)
		outDegree[j] = float64(max(1, len(neighbors)))
		for _, nb := range neighbors {
			i := index[nb.ID]
			incoming[i] = append(incoming[i], inEdge{from: j, weight: nb.Weight})
		}
	}

	restart := personalization(nodes, index, seeds, preferences, cfg.PreferenceWeight)

	scores := make([]float64, n)
	initial := 1 / float64(n)
	for i := range scores {
		scores[i] = initial
	}
	next := make([]float64, n)

	for iter := 0; iter < cfg.Iterations; iter++ {
		maxDiff := 0.0
		for i := range next {
			sum := 0.0
			for _, e := range incoming[i] {
				sum += scores[e.from] * e.weight / outDegree[e.from]
			}
			next[i] = cfg.Damping*sum + (1-cfg.Damping)*restart[i]
			maxDiff = math.Max(maxDiff, math.Abs(next[i]-scores[i]))
		}
		scores, next = next, scores
		if maxDiff < cfg.Epsilon {
			break
		}
	}

	result := make(map[int64]float64, n)
	for i, id := range nodes {
		result[id] = scores[i]
	}
	return result
}

func personalization(nodes []int64, index map[int64]int, seeds, preferences []int64, prefWeight float64) []float64 {
	restart := make([]float64, len(nodes))
	if len(seeds) == 0 && len(preferences) == 0 {
		uniform := 1 / float64(len(nodes))
		for i := range restart {
			restart[i] = uniform
		}
		return restart
	}

	spread := func(ids []int64, mass float64) {
		if len(ids) == 0 {
			return
		}
		share := mass / float64(len(ids))
		for _, id := range ids {
			if i, ok := index[id]; ok {
				restart[i] += share
			}
		}
	}
	spread(seeds, 1-prefWeight)
	spread(preferences, prefWeight)
	return restart
}
