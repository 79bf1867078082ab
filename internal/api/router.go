// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router wires handlers and middleware into a Chi mux.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. A nil middleware set uses the defaults.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, chiMiddleware: mw}
}

// SetupChi builds the route tree.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied in order
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(RequestMetrics())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed", nil)
	})

	r.Handle("/metrics", promhttp.Handler())

	h := router.handler
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(router.chiMiddleware.Compression())
		if h.latency != nil {
			r.Use(h.latency.Middleware)
		}

		// Health stays outside the rate limit for monitoring.
		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit())

			r.Route("/items/{id}", func(r chi.Router) {
				r.Get("/", h.GetItem)
				r.Put("/", h.UpsertItem)
				r.Delete("/", h.DeleteItem)
				r.Post("/index", h.IndexItem)
				r.Get("/similar", h.SimilarItems)
				r.Get("/recommendations", h.Recommendations)
			})

			r.Get("/recommendations/personalized", h.PersonalizedRecommendations)
			r.Post("/edges/weights", h.EdgeWeights)

			r.Route("/graph", func(r chi.Router) {
				r.Get("/stats", h.GraphStats)
				r.Post("/rebuild", h.RebuildGraph)
				r.Post("/edges/rebuild", h.RebuildEdges)
				r.Get("/{id}", h.Subgraph)
			})

			r.Get("/stats/latency", h.LatencyStats)
			r.Get("/vectors/stats", h.VectorStats)
			r.Delete("/vectors", h.ClearVectors)
			r.Delete("/cache", h.ClearCache)
		})
	})

	return r
}
