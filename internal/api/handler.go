// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/folio/internal/catalog"
	"github.com/tomtom215/folio/internal/embedding"
	"github.com/tomtom215/folio/internal/events"
	"github.com/tomtom215/folio/internal/graph"
	"github.com/tomtom215/folio/internal/indexer"
	"github.com/tomtom215/folio/internal/middleware"
	"github.com/tomtom215/folio/internal/recommend"
	"github.com/tomtom215/folio/internal/vector"
)

// Recommender is the recommendation engine surface used by the handlers.
type Recommender interface {
	GenerateRecommendations(ctx context.Context, source int64, preferences []int64, limit int) ([]recommend.Recommendation, error)
	PersonalizedRecommendations(ctx context.Context, limit int) ([]recommend.Recommendation, error)
	SimilarItems(ctx context.Context, id int64, k int) ([]recommend.SimilarItem, error)
	ClearCache() int
	Stats() recommend.Stats
}

// Catalog reads and writes library items.
type Catalog interface {
	GetItem(ctx context.Context, id int64) (*catalog.Item, error)
	UpsertItem(ctx context.Context, item *catalog.Item) (*catalog.Item, error)
	Ping(ctx context.Context) error
	CountItems(ctx context.Context) (int, error)
	CountEdges(ctx context.Context) (int, error)
}

// Indexer embeds items, recomputes their edges and removes them from
// every store.
type Indexer interface {
	IndexItem(ctx context.Context, id int64, force bool) (indexer.Result, error)
	RebuildEdges(ctx context.Context) (indexer.RebuildResult, error)
	Forget(ctx context.Context, id int64) error
}

// Graphs exposes the live similarity graph.
type Graphs interface {
	Current() *graph.Graph
	Stats() graph.Stats
	Rebuild(ctx context.Context) (graph.Stats, error)
}

// Vectors exposes the embedding store.
type Vectors interface {
	Stats() vector.Stats
	ClearAll(ctx context.Context) (int, error)
}

// EmbeddingHealth checks the embedding provider.
type EmbeddingHealth interface {
	HealthCheck(ctx context.Context) embedding.Health
}

// QueueStats reports index queue counters.
type QueueStats interface {
	Stats() (published, dropped int64)
}

// LatencyMonitor tracks per-route request latency.
type LatencyMonitor interface {
	Middleware(next http.Handler) http.Handler
	Stats() []middleware.EndpointStats
}

// Deps are the collaborators a Handler serves from. Catalog, Recommender
// and Graphs are required; without the others their routes answer 503.
type Deps struct {
	Catalog     Catalog
	Recommender Recommender
	Graphs      Graphs
	Vectors     Vectors
	Indexer     Indexer
	Publisher   indexer.Publisher
	Queue       QueueStats
	Embedding   EmbeddingHealth
	Latency     LatencyMonitor
	Version     string
}

// Handler serves the HTTP API.
type Handler struct {
	catalog     Catalog
	recommender Recommender
	graphs      Graphs
	vectors     Vectors
	indexer     Indexer
	publisher   indexer.Publisher
	queue       QueueStats
	embedding   EmbeddingHealth
	latency     LatencyMonitor

	version   string
	startTime time.Time

	// healthTimeout bounds each health check.
	healthTimeout time.Duration
}

// NewHandler validates deps and creates a Handler.
func NewHandler(deps Deps) (*Handler, error) {
	switch {
	case deps.Catalog == nil:
		return nil, errors.New("catalog is required")
	case deps.Recommender == nil:
		return nil, errors.New("recommender is required")
	case deps.Graphs == nil:
		return nil, errors.New("graphs is required")
	}

	version := deps.Version
	if version == "" {
		version = "dev"
	}

	return &Handler{
		catalog:       deps.Catalog,
		recommender:   deps.Recommender,
		graphs:        deps.Graphs,
		vectors:       deps.Vectors,
		indexer:       deps.Indexer,
		publisher:     deps.Publisher,
		queue:         deps.Queue,
		embedding:     deps.Embedding,
		latency:       deps.Latency,
		version:       version,
		startTime:     time.Now(),
		healthTimeout: 3 * time.Second,
	}, nil
}

// queueIndex publishes an index job tagged with the request's correlation ID.
func (h *Handler) queueIndex(ctx context.Context, id int64, reason events.Reason, force bool) error {
	if h.publisher == nil {
		return events.ErrClosed
	}
	job := events.NewIndexJob(id, reason)
	job.Force = force
	return h.publisher.Publish(ctx, job)
}
