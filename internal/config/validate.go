// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
)

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateLogging,
		c.validateVector,
		c.validateEmbedding,
		c.validateGraph,
		c.validateTraversal,
		c.validatePageRank,
		c.validateRanking,
		c.validateIndexer,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return errors.New("server read and write timeouts must be positive")
	}
	if !c.Server.RateLimitDisabled {
		if c.Server.RateLimitReqs <= 0 {
			return fmt.Errorf("server.rate_limit_reqs must be positive, got %d", c.Server.RateLimitReqs)
		}
		if c.Server.RateLimitWindow <= 0 {
			return errors.New("server.rate_limit_window must be positive")
		}
	}
	if c.Server.CompressionMinSize < 0 {
		return fmt.Errorf("server.compression_min_size must not be negative, got %d", c.Server.CompressionMinSize)
	}
	if c.Server.LatencyWindow < 0 {
		return fmt.Errorf("server.latency_window must not be negative, got %d", c.Server.LatencyWindow)
	}
	if c.Server.SlowRequestThreshold < 0 {
		return errors.New("server.slow_request_threshold must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("logging.level %q is not a valid level", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateVector() error {
	if c.Vector.Dimension <= 0 {
		return fmt.Errorf("vector.dimension must be positive, got %d", c.Vector.Dimension)
	}
	if !c.Vector.InMemory && c.Vector.Path == "" {
		return errors.New("vector.path is required unless vector.in_memory is set")
	}
	return nil
}

func (c *Config) validateEmbedding() error {
	if !c.Embedding.Enabled {
		return nil
	}
	if err := validateHTTPURL(c.Embedding.URL, "embedding.url"); err != nil {
		return err
	}
	if c.Embedding.Model == "" {
		return errors.New("embedding.model is required when embedding is enabled")
	}
	if c.Embedding.Timeout <= 0 {
		return errors.New("embedding.timeout must be positive")
	}
	if c.Embedding.RequestsPerSecond < 0 || c.Embedding.Burst < 0 {
		return errors.New("embedding rate limit values must not be negative")
	}
	return nil
}

func (c *Config) validateGraph() error {
	if err := unitInterval("graph.min_weight", c.Graph.MinWeight); err != nil {
		return err
	}
	if c.Graph.RebuildInterval < 0 {
		return errors.New("graph.rebuild_interval must not be negative")
	}
	return nil
}

func (c *Config) validateTraversal() error {
	t := c.Traversal
	if t.MaxHops <= 0 {
		return fmt.Errorf("traversal.max_hops must be positive, got %d", t.MaxHops)
	}
	if t.DecayFactor <= 0 || t.DecayFactor > 1 {
		return fmt.Errorf("traversal.decay_factor must be in (0, 1], got %v", t.DecayFactor)
	}
	if t.MaxCandidates <= 0 {
		return fmt.Errorf("traversal.max_candidates must be positive, got %d", t.MaxCandidates)
	}
	for i, th := range t.HopThresholds {
		if err := unitInterval(fmt.Sprintf("traversal.hop_thresholds[%d]", i), th); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validatePageRank() error {
	p := c.PageRank
	if p.Damping <= 0 || p.Damping >= 1 {
		return fmt.Errorf("pagerank.damping must be in (0, 1), got %v", p.Damping)
	}
	if err := unitInterval("pagerank.preference_weight", p.PreferenceWeight); err != nil {
		return err
	}
	if p.Iterations <= 0 {
		return fmt.Errorf("pagerank.iterations must be positive, got %d", p.Iterations)
	}
	if p.Epsilon <= 0 {
		return fmt.Errorf("pagerank.epsilon must be positive, got %v", p.Epsilon)
	}
	return nil
}

func (c *Config) validateRanking() error {
	r := c.Ranking
	if r.TraversalWeight < 0 || r.PageRankWeight < 0 {
		return errors.New("ranking weights must not be negative")
	}
	if r.TraversalWeight+r.PageRankWeight == 0 {
		return errors.New("ranking weights must not both be zero")
	}
	if err := unitInterval("ranking.mmr_lambda", r.MMRLambda); err != nil {
		return err
	}
	if r.DefaultLimit <= 0 || r.MaxLimit <= 0 || r.DefaultLimit > r.MaxLimit {
		return fmt.Errorf("ranking limits invalid: default=%d max=%d", r.DefaultLimit, r.MaxLimit)
	}
	if r.PreferenceMinRating < 1 || r.PreferenceMinRating > 5 {
		return fmt.Errorf("ranking.preference_min_rating must be between 1 and 5, got %d", r.PreferenceMinRating)
	}
	if r.PreferenceLimit <= 0 {
		return fmt.Errorf("ranking.preference_limit must be positive, got %d", r.PreferenceLimit)
	}
	if r.CacheSize < 0 || r.CacheTTL < 0 {
		return errors.New("ranking cache settings must not be negative")
	}
	return nil
}

func (c *Config) validateIndexer() error {
	ix := c.Indexer
	if ix.NeighborK <= 0 {
		return fmt.Errorf("indexer.neighbor_k must be positive, got %d", ix.NeighborK)
	}
	if err := unitInterval("indexer.min_similarity", ix.MinSimilarity); err != nil {
		return err
	}
	if err := unitInterval("indexer.min_edge_weight", ix.MinEdgeWeight); err != nil {
		return err
	}
	if ix.MaxRetries < 0 {
		return errors.New("indexer.max_retries must not be negative")
	}
	if ix.BufferSize < 0 {
		return errors.New("indexer.buffer_size must not be negative")
	}
	return nil
}

func unitInterval(name string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return fmt.Errorf("%s must be in [0, 1], got %v", name, v)
	}
	return nil
}

// validateHTTPURL checks that rawURL is an absolute http(s) base URL.
func validateHTTPURL(rawURL, fieldName string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		return fmt.Errorf("%s should be base URL only, remove path: %s", fieldName, parsedURL.Path)
	}
	return nil
}
