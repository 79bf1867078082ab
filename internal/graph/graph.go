// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package graph holds the in-memory item similarity graph.
//
// A Graph is a directed, weighted multigraph keyed by item id. It is built
// in bulk and then treated as immutable: Manager publishes finished graphs
// through an atomic pointer, so traversals never see a graph under
// construction and need no locks.
package graph

import "sort"

// Graph is a directed weighted multigraph over item ids.
//
// AddEdge is not safe for concurrent use. Once a Graph has been handed to
// readers (for example through Manager) it must not be modified.
type Graph struct {
	index map[int64]int // item id -> dense node index
	ids   []int64       // dense node index -> item id
	out   [][]Neighbor
	edges int
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{index: make(map[int64]int)}
}

func (g *Graph) node(id int64) int {
	if i, ok := g.index[id]; ok {
		return i
	}
	i := len(g.ids)
	g.index[id] = i
	g.ids = append(g.ids, id)
	g.out = append(g.out, nil)
	return i
}

// AddEdge adds a directed edge, creating both endpoints if needed. Adding
// the same (source, target, type) twice yields parallel edges.
func (g *Graph) AddEdge(source, target int64, weight float64, t EdgeType) {
	s := g.node(source)
	g.node(target)
	g.out[s] = append(g.out[s], Neighbor{ID: target, Weight: weight, Type: t})
	g.edges++
}

// Neighbors returns the outgoing edges of id, or nil for an unknown id. The
// returned slice is shared and must not be modified.
func (g *Graph) Neighbors(id int64) []Neighbor {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.out[i]
}

// HasNode reports whether id appears in any edge.
func (g *Graph) HasNode(id int64) bool {
	_, ok := g.index[id]
	return ok
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.ids)
}

// EdgeCount returns the number of directed edges, parallel edges included.
func (g *Graph) EdgeCount() int {
	return g.edges
}

// Nodes returns all node ids in ascending order.
func (g *Graph) Nodes() []int64 {
	out := make([]int64, len(g.ids))
	copy(out, g.ids)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
