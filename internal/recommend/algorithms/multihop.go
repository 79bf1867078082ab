// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package algorithms

import (
	"math"
	"sort"

	"github.com/tomtom215/folio/internal/graph"
)

// TraversalConfig contains configuration for multi-hop traversal.
type TraversalConfig struct {
	// MaxHops bounds how far from a seed expansion goes.
	// Default: 3.
	MaxHops int `json:"max_hops" koanf:"max_hops"`

	// HopThresholds is the minimum edge weight followed at each hop,
	// indexed from 0. Hops past the end reuse the last value rather than a
	// fixed floor, so [0.5, 0.6] with MaxHops 4 applies 0.6 at hops 2 and
	// 3. An empty list applies 0.3 at every hop.
	// Default: [0.5, 0.4, 0.3].
	HopThresholds []float64 `json:"hop_thresholds" koanf:"hop_thresholds"`

	// DecayFactor discounts an edge taken at hop h by DecayFactor^h.
	// Default: 0.75.
	DecayFactor float64 `json:"decay_factor" koanf:"decay_factor"`

	// MaxCandidates caps the number of distinct candidates materialized.
	// Default: 500.
	MaxCandidates int `json:"max_candidates" koanf:"max_candidates"`
}

// fallbackThreshold applies when no per-hop threshold is configured.
const fallbackThreshold = 0.3

// DefaultTraversalConfig returns the default traversal configuration.
func DefaultTraversalConfig() TraversalConfig {
	return TraversalConfig{
		MaxHops:       3,
		HopThresholds: []float64{0.5, 0.4, 0.3},
		DecayFactor:   0.75,
		MaxCandidates: 500,
	}
}

// Normalize replaces invalid fields with defaults.
func (c TraversalConfig) Normalize() TraversalConfig {
	def := DefaultTraversalConfig()
	if c.MaxHops <= 0 {
		c.MaxHops = def.MaxHops
	}
	if c.DecayFactor <= 0 || c.DecayFactor > 1 {
		c.DecayFactor = def.DecayFactor
	}
	if c.MaxCandidates <= 0 {
		c.MaxCandidates = def.MaxCandidates
	}
	thresholds := make([]float64, 0, len(c.HopThresholds))
	for _, t := range c.HopThresholds {
		thresholds = append(thresholds, math.Max(0, math.Min(1, t)))
	}
	c.HopThresholds = thresholds
	return c
}

// threshold returns the minimum weight for an edge taken at hop. Past the
// end of HopThresholds the last entry applies; with the default list that
// is 0.3, matching fallbackThreshold.
func (c *TraversalConfig) threshold(hop int) float64 {
	switch {
	case len(c.HopThresholds) == 0:
		return fallbackThreshold
	case hop < len(c.HopThresholds):
		return c.HopThresholds[hop]
	default:
		return c.HopThresholds[len(c.HopThresholds)-1]
	}
}

// Candidate is an item reached by traversal along its best path.
type Candidate struct {
	ID        int64            `json:"id"`
	Score     float64          `json:"score"`
	Path      []int64          `json:"path"`
	EdgeTypes []graph.EdgeType `json:"edge_types"`
}

type frontierEntry struct {
	id    int64
	score float64
	path  []int64
	types []graph.EdgeType
	hop   int
}

// MultiHopTraversal expands candidates breadth-first from seeds.
//
// Every seed starts at score 1. A node is expanded once, with the state it
// had when first discovered, and only while its hop is below MaxHops and the
// candidate cap has not been reached. An edge taken at hop h must weigh at
// least HopThresholds[h], or the last threshold when h is past the end of
// the list, and yields
//
//	score * weight * DecayFactor^h
//
// A candidate keeps its best path; later paths replace it only when strictly
// better. Seeds are never candidates. Results are sorted by descending
// score, then ascending id.
func MultiHopTraversal(g *graph.Graph, seeds []int64, cfg TraversalConfig) []Candidate {
	if g == nil || len(seeds) == 0 {
		return []Candidate{}
	}
	cfg = cfg.Normalize()

	isSeed := make(map[int64]struct{}, len(seeds))
	visited := make(map[int64]struct{})
	queue := make([]frontierEntry, 0, len(seeds))
	for _, s := range seeds {
		if _, dup := isSeed[s]; dup {
			continue
		}
		isSeed[s] = struct{}{}
		visited[s] = struct{}{}
		queue = append(queue, frontierEntry{id: s, score: 1, path: []int64{s}})
	}

	candidates := make(map[int64]*Candidate)

	for head := 0; head < len(queue); head++ {
		cur := queue[head]
		if cur.hop >= cfg.MaxHops || len(candidates) >= cfg.MaxCandidates {
			continue
		}

		minWeight := cfg.threshold(cur.hop)
		decay := math.Pow(cfg.DecayFactor, float64(cur.hop))

		for _, n := range g.Neighbors(cur.id) {
			if n.Weight < minWeight {
				continue
			}
			if _, seed := isSeed[n.ID]; seed {
				continue
			}

			score := cur.score * n.Weight * decay

			c, known := candidates[n.ID]
			switch {
			case known && score > c.Score:
				c.Score = score
				c.Path = extend(cur.path, n.ID)
				c.EdgeTypes = extend(cur.types, n.Type)
			case !known && len(candidates) < cfg.MaxCandidates:
				c = &Candidate{ID: n.ID, Score: score, Path: extend(cur.path, n.ID), EdgeTypes: extend(cur.types, n.Type)}
				candidates[n.ID] = c
			case !known:
				continue
			}

			if _, seen := visited[n.ID]; !seen {
				visited[n.ID] = struct{}{}
				queue = append(queue, frontierEntry{id: n.ID, score: c.Score, path: c.Path, types: c.EdgeTypes, hop: cur.hop + 1})
			}
		}
	}

	result := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		result = append(result, *c)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// extend returns a copy of s with v appended, leaving s untouched.
func extend[T any](s []T, v T) []T {
	out := make([]T, len(s), len(s)+1)
	copy(out, s)
	return append(out, v)
}
