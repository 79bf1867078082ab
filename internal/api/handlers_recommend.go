// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package api

import (
	"net/http"

	"github.com/tomtom215/folio/internal/graph"
	"github.com/tomtom215/folio/internal/recommend/algorithms"
)

// defaultSimilarK is the neighbor count when k is omitted.
const defaultSimilarK = 10

// EdgeWeightsResponse lists every edge fusion would create between two
// items and the single strongest one.
type EdgeWeightsResponse struct {
	Edges []algorithms.WeightedEdge `json:"edges"`

	// Best is nil when no edge qualifies.
	Best *algorithms.WeightedEdge `json:"best"`
}

// Recommendations handles GET /items/{id}/recommendations.
// An unknown or unconnected item yields an empty list.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondBadParam(w, r, err)
		return
	}
	limit, err := intQuery(r, "limit", 0)
	if err != nil {
		respondBadParam(w, r, err)
		return
	}
	prefs, err := idListQuery(r, "prefs")
	if err != nil {
		respondBadParam(w, r, err)
		return
	}

	q := RecommendationsQuery{Limit: limit, Preferences: prefs}
	if !validateRequest(w, r, &q) {
		return
	}

	recs, err := h.recommender.GenerateRecommendations(r.Context(), id, q.Preferences, q.Limit)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondList(w, r, recs)
}

// PersonalizedRecommendations handles GET /recommendations/personalized.
func (h *Handler) PersonalizedRecommendations(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", 0)
	if err != nil {
		respondBadParam(w, r, err)
		return
	}
	q := RecommendationsQuery{Limit: limit}
	if !validateRequest(w, r, &q) {
		return
	}

	recs, err := h.recommender.PersonalizedRecommendations(r.Context(), q.Limit)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondList(w, r, recs)
}

// SimilarItems handles GET /items/{id}/similar.
func (h *Handler) SimilarItems(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondBadParam(w, r, err)
		return
	}
	k, err := intQuery(r, "k", defaultSimilarK)
	if err != nil {
		respondBadParam(w, r, err)
		return
	}
	q := SimilarQuery{K: k}
	if !validateRequest(w, r, &q) {
		return
	}

	items, err := h.recommender.SimilarItems(r.Context(), id, q.K)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondList(w, r, items)
}

// EdgeWeights handles POST /edges/weights.
func (h *Handler) EdgeWeights(w http.ResponseWriter, r *http.Request) {
	var req EdgeWeightsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondBadParam(w, r, err)
		return
	}
	if !validateRequest(w, r, &req) {
		return
	}

	a, b := req.A.metadata(), req.B.metadata()
	resp := EdgeWeightsResponse{
		Edges: algorithms.ComputeAllEdgeWeights(a, b, req.Similarity),
	}
	if weight, t := algorithms.ComputeEdgeWeight(a, b, req.Similarity); t != graph.EdgeNone {
		resp.Best = &algorithms.WeightedEdge{Weight: weight, Type: t}
	}

	respondJSON(w, r, http.StatusOK, resp)
}
