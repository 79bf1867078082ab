// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/folio/internal/embedding"
	"github.com/tomtom215/folio/internal/graph"
	"github.com/tomtom215/folio/internal/logging"
	"github.com/tomtom215/folio/internal/recommend"
	"github.com/tomtom215/folio/internal/vector"
)

// Health states.
const (
	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"
)

// CatalogHealth is the catalog's reachability and size. Counts are only
// filled in when the catalog answered the ping.
type CatalogHealth struct {
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
	Items   int    `json:"items"`
	Edges   int    `json:"edges"`
}

// QueueHealth reports index queue counters.
type QueueHealth struct {
	Published int64 `json:"published"`
	Dropped   int64 `json:"dropped"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	UptimeSeconds float64 `json:"uptime_seconds"`

	Catalog     CatalogHealth     `json:"catalog"`
	Graph       graph.Stats       `json:"graph"`
	Vectors     *vector.Stats     `json:"vectors,omitempty"`
	Embedding   *embedding.Health `json:"embedding,omitempty"`
	Queue       *QueueHealth      `json:"queue,omitempty"`
	Recommender recommend.Stats   `json:"recommender"`
}

// Health handles GET /health. The catalog being unreachable is unhealthy
// (503); an unreachable embedding provider only degrades the service since
// recommendations still work from stored edges.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.healthTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:        HealthHealthy,
		Version:       h.version,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		Catalog:       CatalogHealth{Healthy: true},
		Graph:         h.graphs.Stats(),
		Recommender:   h.recommender.Stats(),
	}

	if err := h.catalog.Ping(ctx); err != nil {
		resp.Catalog = CatalogHealth{Healthy: false, Error: err.Error()}
		resp.Status = HealthUnhealthy
	} else {
		h.countCatalog(ctx, &resp.Catalog)
	}

	if h.vectors != nil {
		vs := h.vectors.Stats()
		resp.Vectors = &vs
	}

	if h.embedding != nil {
		eh := h.embedding.HealthCheck(ctx)
		resp.Embedding = &eh
		if (!eh.Connected || !eh.ModelAvailable) && resp.Status == HealthHealthy {
			resp.Status = HealthDegraded
		}
	}

	if h.queue != nil {
		published, dropped := h.queue.Stats()
		resp.Queue = &QueueHealth{Published: published, Dropped: dropped}
	}

	if resp.Status == HealthUnhealthy {
		writeJSON(w, http.StatusServiceUnavailable, &APIResponse{
			Success: false,
			Data:    resp,
			Error: &APIError{
				Code:    ErrCodeServiceUnavailable,
				Message: "Catalog unreachable",
			},
			Meta: newMeta(r),
		})
		return
	}
	respondJSON(w, r, http.StatusOK, resp)
}

// countCatalog fills in item and edge counts. A failed count is logged and
// leaves the zero value; reachability was already established by the ping.
func (h *Handler) countCatalog(ctx context.Context, c *CatalogHealth) {
	log := logging.Ctx(ctx)
	if n, err := h.catalog.CountItems(ctx); err != nil {
		log.Warn().Err(err).Msg("Health check could not count items")
	} else {
		c.Items = n
	}
	if n, err := h.catalog.CountEdges(ctx); err != nil {
		log.Warn().Err(err).Msg("Health check could not count edges")
	} else {
		c.Edges = n
	}
}
