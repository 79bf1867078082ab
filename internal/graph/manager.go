// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/folio/internal/metrics"
)

// EdgeSource streams persisted edges with weight >= minWeight.
type EdgeSource interface {
	LoadEdges(ctx context.Context, minWeight float64, fn func(Edge) error) error
}

// ManagerConfig configures graph rebuilds.
type ManagerConfig struct {
	// MinWeight drops weaker edges at load time. Default: 0.3.
	MinWeight float64

	// Symmetric mirrors stored edges, see BuildOptions.
	Symmetric bool
}

// Stats describes the current snapshot.
type Stats struct {
	Nodes      int           `json:"nodes"`
	Edges      int           `json:"edges"`
	Generation uint64        `json:"generation"`
	BuiltAt    time.Time     `json:"built_at"`
	Duration   time.Duration `json:"duration_ns"`
	MinWeight  float64       `json:"min_weight"`
	Symmetric  bool          `json:"symmetric"`
}

// Manager owns the current graph snapshot. Readers call Current and keep
// using the returned graph for the length of one request; Rebuild publishes
// a new graph without disturbing them.
type Manager struct {
	source EdgeSource
	cfg    ManagerConfig
	logger zerolog.Logger

	current atomic.Pointer[Graph]
	stats   atomic.Pointer[Stats]

	rebuildMu sync.Mutex
	listeners []func(*Graph)
}

// NewManager creates a manager holding an empty graph.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewManager(source EdgeSource, cfg ManagerConfig, logger zerolog.Logger) *Manager {
	m := &Manager{
		source: source,
		cfg:    cfg,
		logger: logger.With().Str("component", "graph").Logger(),
	}
	m.current.Store(New())
	m.stats.Store(&Stats{MinWeight: cfg.MinWeight, Symmetric: cfg.Symmetric})
	return m
}

// Current returns the published graph. Never nil.
func (m *Manager) Current() *Graph {
	return m.current.Load()
}

// Stats returns statistics for the published graph.
func (m *Manager) Stats() Stats {
	return *m.stats.Load()
}

// OnRebuild registers fn to run after each successful publish. Register
// listeners before the first Rebuild.
func (m *Manager) OnRebuild(fn func(*Graph)) {
	m.rebuildMu.Lock()
	defer m.rebuildMu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Rebuild loads all edges from the source, builds a new graph and publishes
// it. Concurrent calls are serialized. On error the previous graph stays.
func (m *Manager) Rebuild(ctx context.Context) (Stats, error) {
	if m.source == nil {
		return Stats{}, errors.New("graph manager has no edge source")
	}

	m.rebuildMu.Lock()
	defer m.rebuildMu.Unlock()

	start := time.Now()
	var edges []Edge
	err := m.source.LoadEdges(ctx, m.cfg.MinWeight, func(e Edge) error {
		edges = append(edges, e)
		return nil
	})
	if err != nil {
		metrics.RecordGraphRebuild(0, 0, time.Since(start), err)
		return Stats{}, fmt.Errorf("load edges: %w", err)
	}

	g := Build(edges, BuildOptions{Symmetric: m.cfg.Symmetric})
	stats := m.publish(g, start)

	m.logger.Info().
		Int("nodes", stats.Nodes).
		Int("edges", stats.Edges).
		Int("stored_edges", len(edges)).
		Dur("duration", stats.Duration).
		Uint64("generation", stats.Generation).
		Msg("Similarity graph rebuilt")
	return stats, nil
}

// Replace publishes g directly. Used by tests and by callers that build a
// graph themselves.
func (m *Manager) Replace(g *Graph) Stats {
	if g == nil {
		g = New()
	}
	m.rebuildMu.Lock()
	defer m.rebuildMu.Unlock()
	return m.publish(g, time.Now())
}

// publish must be called with rebuildMu held.
func (m *Manager) publish(g *Graph, start time.Time) Stats {
	prev := m.stats.Load()
	stats := &Stats{
		Nodes:      g.NodeCount(),
		Edges:      g.EdgeCount(),
		Generation: prev.Generation + 1,
		BuiltAt:    time.Now().UTC(),
		Duration:   time.Since(start),
		MinWeight:  m.cfg.MinWeight,
		Symmetric:  m.cfg.Symmetric,
	}

	m.current.Store(g)
	m.stats.Store(stats)
	metrics.RecordGraphRebuild(stats.Nodes, stats.Edges, stats.Duration, nil)

	for _, fn := range m.listeners {
		fn(g)
	}
	return *stats
}
