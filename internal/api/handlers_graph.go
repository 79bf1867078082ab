// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package api

import (
	"net/http"

	"github.com/tomtom215/folio/internal/graph"
	"github.com/tomtom215/folio/internal/indexer"
	"github.com/tomtom215/folio/internal/logging"
	"github.com/tomtom215/folio/internal/recommend"
	"github.com/tomtom215/folio/internal/vector"
)

// ClearVectorsResponse is returned by DELETE /vectors.
type ClearVectorsResponse struct {
	Removed int `json:"removed"`
}

// ClearCacheResponse is returned by DELETE /cache.
type ClearCacheResponse struct {
	Cleared int `json:"cleared"`
}

// EdgeRebuildResponse is returned by POST /graph/edges/rebuild.
type EdgeRebuildResponse struct {
	indexer.RebuildResult
	Graph graph.Stats `json:"graph"`
}

// VectorStatsResponse pairs vector store and engine counters.
type VectorStatsResponse struct {
	Vectors     vector.Stats    `json:"vectors"`
	Recommender recommend.Stats `json:"recommender"`
}

// GraphStats handles GET /graph/stats.
func (h *Handler) GraphStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, h.graphs.Stats())
}

// RebuildGraph handles POST /graph/rebuild. The rebuild runs in the
// request; cached recommendations are dropped by the manager's rebuild hook.
func (h *Handler) RebuildGraph(w http.ResponseWriter, r *http.Request) {
	stats, err := h.graphs.Rebuild(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	logging.Ctx(r.Context()).Info().
		Int("nodes", stats.Nodes).
		Int("edges", stats.Edges).
		Uint64("generation", stats.Generation).
		Msg("Graph rebuilt on request")
	respondJSON(w, r, http.StatusOK, stats)
}

// RebuildEdges handles POST /graph/edges/rebuild. Every indexed item gets
// its edges recomputed from the stored embeddings, then the graph is
// rebuilt so the response reflects the new edges.
func (h *Handler) RebuildEdges(w http.ResponseWriter, r *http.Request) {
	if h.indexer == nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Indexer not configured", nil)
		return
	}
	res, err := h.indexer.RebuildEdges(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	stats, err := h.graphs.Rebuild(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	logging.Ctx(r.Context()).Info().
		Int("items", res.Items).
		Int("edges", res.Edges).
		Int("failed", res.Failed).
		Uint64("generation", stats.Generation).
		Msg("Edges rebuilt on request")
	respondJSON(w, r, http.StatusOK, EdgeRebuildResponse{RebuildResult: res, Graph: stats})
}

// Subgraph handles GET /graph/{id}. An item outside the graph yields a
// view holding no nodes.
func (h *Handler) Subgraph(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondBadParam(w, r, err)
		return
	}
	depth, err := intQuery(r, "depth", 0)
	if err != nil {
		respondBadParam(w, r, err)
		return
	}
	maxNodes, err := intQuery(r, "max_nodes", 0)
	if err != nil {
		respondBadParam(w, r, err)
		return
	}
	q := SubgraphQuery{Depth: depth, MaxNodes: maxNodes}
	if !validateRequest(w, r, &q) {
		return
	}

	respondJSON(w, r, http.StatusOK, h.graphs.Current().Subgraph(id, q.Depth, q.MaxNodes))
}

// VectorStats handles GET /vectors/stats.
func (h *Handler) VectorStats(w http.ResponseWriter, r *http.Request) {
	if h.vectors == nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Vector store not configured", nil)
		return
	}
	respondJSON(w, r, http.StatusOK, VectorStatsResponse{
		Vectors:     h.vectors.Stats(),
		Recommender: h.recommender.Stats(),
	})
}

// ClearVectors handles DELETE /vectors. Items keep their catalog status;
// forced reindexing regenerates the embeddings.
func (h *Handler) ClearVectors(w http.ResponseWriter, r *http.Request) {
	if h.vectors == nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Vector store not configured", nil)
		return
	}
	n, err := h.vectors.ClearAll(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	h.recommender.ClearCache()
	logging.Ctx(r.Context()).Warn().Int("removed", n).Msg("All embeddings cleared")
	respondJSON(w, r, http.StatusOK, ClearVectorsResponse{Removed: n})
}

// ClearCache handles DELETE /cache.
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, ClearCacheResponse{Cleared: h.recommender.ClearCache()})
}

// LatencyStats handles GET /stats/latency.
func (h *Handler) LatencyStats(w http.ResponseWriter, r *http.Request) {
	if h.latency == nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Latency tracking not enabled", nil)
		return
	}
	respondList(w, r, h.latency.Stats())
}
