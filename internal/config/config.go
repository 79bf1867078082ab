// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package config

import (
	"time"

	"github.com/tomtom215/folio/internal/recommend/algorithms"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig               `koanf:"server"`
	Logging   LoggingConfig              `koanf:"logging"`
	Catalog   CatalogConfig              `koanf:"catalog"`
	Vector    VectorConfig               `koanf:"vector"`
	Embedding EmbeddingConfig            `koanf:"embedding"`
	Graph     GraphConfig                `koanf:"graph"`
	Traversal algorithms.TraversalConfig `koanf:"traversal"`
	PageRank  algorithms.PageRankConfig  `koanf:"pagerank"`
	Ranking   RankingConfig              `koanf:"ranking"`
	Indexer   IndexerConfig              `koanf:"indexer"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// CORSOrigins lists allowed origins. "*" allows any origin.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitReqs requests are allowed per RateLimitWindow per client IP.
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	// CompressionMinSize is the smallest response body that is gzipped.
	// 0 turns compression off.
	CompressionMinSize int `koanf:"compression_min_size"`

	// LatencyWindow is how many recent requests feed the latency report.
	LatencyWindow int `koanf:"latency_window"`

	// SlowRequestThreshold logs requests slower than this. 0 disables it.
	SlowRequestThreshold time.Duration `koanf:"slow_request_threshold"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// CatalogConfig holds DuckDB settings.
type CatalogConfig struct {
	// Path is the database file. Empty or ":memory:" keeps it in memory.
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = use NumCPU
}

// VectorConfig holds embedding store settings.
type VectorConfig struct {
	Path      string `koanf:"path"`
	InMemory  bool   `koanf:"in_memory"`
	Dimension int    `koanf:"dimension"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	// Enabled turns the background indexer on. With it off, stored vectors
	// and edges are still served.
	Enabled bool          `koanf:"enabled"`
	URL     string        `koanf:"url"`
	Model   string        `koanf:"model"`
	Timeout time.Duration `koanf:"timeout"`

	// RequestsPerSecond and Burst throttle provider calls.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`

	// BreakerFailures consecutive failures open the circuit for
	// BreakerTimeout.
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`
}

// GraphConfig holds similarity graph settings.
type GraphConfig struct {
	MinWeight float64 `koanf:"min_weight"`
	Symmetric bool    `koanf:"symmetric"`

	// RebuildInterval triggers periodic rebuilds. 0 disables them; the
	// indexer still triggers a rebuild after each batch of new edges.
	RebuildInterval time.Duration `koanf:"rebuild_interval"`
}

// RankingConfig holds recommendation scoring settings.
type RankingConfig struct {
	TraversalWeight float64 `koanf:"traversal_weight"`
	PageRankWeight  float64 `koanf:"pagerank_weight"`
	MMRLambda       float64 `koanf:"mmr_lambda"`
	DefaultLimit    int     `koanf:"default_limit"`
	MaxLimit        int     `koanf:"max_limit"`

	// PreferenceMinRating and PreferenceLimit select the highly rated items
	// used for personalized recommendations.
	PreferenceMinRating int `koanf:"preference_min_rating"`
	PreferenceLimit     int `koanf:"preference_limit"`

	CacheSize int           `koanf:"cache_size"`
	CacheTTL  time.Duration `koanf:"cache_ttl"`

	// ColdStart falls back to author, series and recently added matches
	// when the graph has nothing for a request.
	ColdStart bool `koanf:"cold_start"`
}

// IndexerConfig holds settings for turning new embeddings into edges.
type IndexerConfig struct {
	NeighborK     int     `koanf:"neighbor_k"`
	MinSimilarity float64 `koanf:"min_similarity"`
	MinEdgeWeight float64 `koanf:"min_edge_weight"`

	// MaxRetries bounds redelivery of a failed index job.
	MaxRetries int `koanf:"max_retries"`

	// BackfillOnStart queues every item still pending an embedding.
	BackfillOnStart bool `koanf:"backfill_on_start"`
	BackfillLimit   int  `koanf:"backfill_limit"`

	// BufferSize is the in-process job channel capacity.
	BufferSize int64 `koanf:"buffer_size"`

	// RebuildDebounce coalesces graph rebuilds after bursts of indexing.
	RebuildDebounce time.Duration `koanf:"rebuild_debounce"`
}

// Addr returns host:port for the HTTP listener.
func (s ServerConfig) Addr() string {
	return joinHostPort(s.Host, s.Port)
}
