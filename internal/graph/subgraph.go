// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package graph

import "sort"

// Subgraph limits.
const (
	DefaultSubgraphDepth    = 2
	MaxSubgraphDepth        = 3
	DefaultSubgraphMaxNodes = 50
	MaxSubgraphMaxNodes     = 200
)

// View is a bounded neighborhood of the graph, used for visualization.
type View struct {
	Center int64   `json:"center"`
	Nodes  []int64 `json:"nodes"`
	Edges  []Edge  `json:"edges"`
}

// Subgraph collects the neighborhood of center breadth-first, up to depth
// hops and maxNodes nodes. Non-positive limits take defaults and large ones
// are capped. Each unordered pair appears once, as its strongest edge, and
// only edges between collected nodes are returned.
func (g *Graph) Subgraph(center int64, depth, maxNodes int) View {
	if depth <= 0 {
		depth = DefaultSubgraphDepth
	}
	depth = min(depth, MaxSubgraphDepth)
	if maxNodes <= 0 {
		maxNodes = DefaultSubgraphMaxNodes
	}
	maxNodes = min(maxNodes, MaxSubgraphMaxNodes)

	view := View{Center: center, Nodes: []int64{}, Edges: []Edge{}}
	if !g.HasNode(center) {
		return view
	}

	included := map[int64]struct{}{center: {}}
	view.Nodes = append(view.Nodes, center)
	frontier := []int64{center}

	for d := 0; d < depth && len(frontier) > 0 && len(view.Nodes) < maxNodes; d++ {
		var next []int64
		for _, id := range frontier {
			for _, n := range g.Neighbors(id) {
				if _, ok := included[n.ID]; ok {
					continue
				}
				if len(view.Nodes) >= maxNodes {
					break
				}
				included[n.ID] = struct{}{}
				view.Nodes = append(view.Nodes, n.ID)
				next = append(next, n.ID)
			}
		}
		frontier = next
	}

	type pair struct{ a, b int64 }
	best := make(map[pair]Edge)
	for id := range included {
		for _, n := range g.Neighbors(id) {
			if _, ok := included[n.ID]; !ok {
				continue
			}
			p := pair{min(id, n.ID), max(id, n.ID)}
			if cur, seen := best[p]; !seen || strongerEdge(id, n, cur) {
				best[p] = Edge{Source: id, Target: n.ID, Type: n.Type, Weight: n.Weight}
			}
		}
	}
	for _, e := range best {
		view.Edges = append(view.Edges, e)
	}
	sort.Slice(view.Edges, func(i, j int) bool {
		if view.Edges[i].Source != view.Edges[j].Source {
			return view.Edges[i].Source < view.Edges[j].Source
		}
		return view.Edges[i].Target < view.Edges[j].Target
	})
	return view
}

// strongerEdge orders candidate edges for one pair: higher weight first,
// then lower source id, then lower type, so the choice is deterministic.
func strongerEdge(source int64, n Neighbor, cur Edge) bool {
	if n.Weight != cur.Weight {
		return n.Weight > cur.Weight
	}
	if source != cur.Source {
		return source < cur.Source
	}
	return n.Type < cur.Type
}
