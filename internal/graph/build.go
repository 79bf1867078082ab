// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package graph

// BuildOptions controls how stored edges become graph adjacency.
type BuildOptions struct {
	// Symmetric mirrors every edge s->t of type T as t->s, unless an explicit
	// t->s edge of type T is among the input. Neighbor lookups then see a
	// relationship from both of its endpoints.
	Symmetric bool
}

type edgeKey struct {
	source, target int64
	t              EdgeType
}

// Build creates a graph from edges. Invalid edges (self loops, weights
// outside [0, 1], EdgeNone) are dropped.
func Build(edges []Edge, opts BuildOptions) *Graph {
	g := New()

	var stored map[edgeKey]struct{}
	if opts.Symmetric {
		stored = make(map[edgeKey]struct{}, len(edges))
		for _, e := range edges {
			if e.Valid() {
				stored[edgeKey{e.Source, e.Target, e.Type}] = struct{}{}
			}
		}
	}

	for _, e := range edges {
		if !e.Valid() {
			continue
		}
		g.AddEdge(e.Source, e.Target, e.Weight, e.Type)
		if !opts.Symmetric {
			continue
		}
		if _, explicit := stored[edgeKey{e.Target, e.Source, e.Type}]; !explicit {
			g.AddEdge(e.Target, e.Source, e.Weight, e.Type)
		}
	}
	return g
}
