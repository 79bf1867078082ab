// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package metrics defines the Prometheus instruments exported on /metrics.
//
// Instruments are package-level and registered with the default registry via
// promauto, so any package can record without plumbing a registry around.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Vector store
	VectorOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_vector_operations_total",
			Help: "Vector store operations by type and outcome",
		},
		[]string{"operation", "status"}, // status: success, error, rejected
	)

	VectorOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "folio_vector_operation_duration_seconds",
			Help:    "Duration of vector store operations",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"operation"},
	)

	VectorCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "folio_vector_cache_hits_total",
			Help: "Embedding lookups served from the in-memory cache",
		},
	)

	VectorCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "folio_vector_cache_misses_total",
			Help: "Embedding lookups that read through to durable storage",
		},
	)

	VectorCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "folio_vector_cache_entries",
			Help: "Embeddings currently held in memory",
		},
	)

	// Similarity graph
	GraphNodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "folio_graph_nodes",
			Help: "Nodes in the current similarity graph snapshot",
		},
	)

	GraphEdges = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "folio_graph_edges",
			Help: "Directed edges in the current similarity graph snapshot",
		},
	)

	GraphRebuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_graph_rebuilds_total",
			Help: "Similarity graph rebuilds by outcome",
		},
		[]string{"status"},
	)

	GraphRebuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "folio_graph_rebuild_duration_seconds",
			Help:    "Time to load edges and build a graph snapshot",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Recommendations
	RecommendationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_recommendation_requests_total",
			Help: "Recommendation requests by kind and outcome",
		},
		[]string{"kind", "status"}, // kind: item, personalized, similar; status: success, fallback, empty, error, cache_hit
	)

	RecommendationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "folio_recommendation_duration_seconds",
			Help:    "End-to-end recommendation latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"kind"},
	)

	TraversalCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "folio_traversal_candidates",
			Help:    "Candidates produced by multi-hop traversal",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	// Embedding provider
	EmbeddingRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_embedding_requests_total",
			Help: "Calls to the embedding provider by outcome",
		},
		[]string{"status"}, // success, error, rejected
	)

	EmbeddingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "folio_embedding_duration_seconds",
			Help:    "Embedding provider latency",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	EmbeddingBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "folio_embedding_circuit_breaker_state",
			Help: "Embedding provider circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// Indexing pipeline
	IndexJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_index_jobs_total",
			Help: "Index jobs processed by outcome",
		},
		[]string{"status"}, // indexed, unchanged, failed, skipped, dropped
	)

	EdgesPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "folio_edges_persisted_total",
			Help: "Typed edges written to the catalog",
		},
	)

	// HTTP API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_api_requests_total",
			Help: "HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "folio_api_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "folio_api_active_requests",
			Help: "HTTP requests currently being served",
		},
	)
)

// TrackActiveRequest moves the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		APIActiveRequests.Inc()
		return
	}
	APIActiveRequests.Dec()
}

// RecordAPIRequest records one HTTP request.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordRecommendation records one recommendation request.
func RecordRecommendation(kind, status string, duration time.Duration) {
	RecommendationRequests.WithLabelValues(kind, status).Inc()
	RecommendationDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordGraphRebuild records a rebuild and, on success, the new graph size.
func RecordGraphRebuild(nodes, edges int, duration time.Duration, err error) {
	if err != nil {
		GraphRebuilds.WithLabelValues("error").Inc()
		return
	}
	GraphRebuilds.WithLabelValues("success").Inc()
	GraphRebuildDuration.Observe(duration.Seconds())
	GraphNodes.Set(float64(nodes))
	GraphEdges.Set(float64(edges))
}
