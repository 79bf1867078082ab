// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package recommend

import (
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/folio/internal/recommend/algorithms"
	"github.com/tomtom215/folio/internal/recommend/reranking"
)

// Config contains all configuration for the recommendation engine.
type Config struct {
	// Traversal contains multi-hop traversal parameters.
	Traversal algorithms.TraversalConfig `json:"traversal"`

	// PageRank contains personalized PageRank parameters.
	PageRank algorithms.PageRankConfig `json:"pagerank"`

	// TraversalWeight and PageRankWeight combine the two scores. They are
	// applied as given, not normalized.
	TraversalWeight float64 `json:"traversal_weight"`
	PageRankWeight  float64 `json:"pagerank_weight"`

	// MMRLambda trades relevance (1) against diversity (0).
	MMRLambda float64 `json:"mmr_lambda"`

	// Limits contains operational limits.
	Limits LimitsConfig `json:"limits"`

	// Personalized selects the rated items behind personalized results.
	Personalized PersonalizedConfig `json:"personalized"`

	// Cache contains caching parameters.
	Cache CacheConfig `json:"cache"`

	// ColdStart answers from catalog metadata when the graph has nothing:
	// author and series matches for an item without edges, and recent
	// additions when nothing is rated. It needs an item source.
	ColdStart bool `json:"cold_start"`
}

// LimitsConfig bounds result sizes.
type LimitsConfig struct {
	// DefaultLimit applies when a request asks for zero or fewer items.
	DefaultLimit int `json:"default_limit"`

	// MaxLimit caps any request.
	MaxLimit int `json:"max_limit"`
}

// PersonalizedConfig selects preference items.
type PersonalizedConfig struct {
	MinRating int `json:"min_rating"`
	MaxItems  int `json:"max_items"`
}

// CacheConfig configures the response cache.
type CacheConfig struct {
	Enabled bool          `json:"enabled"`
	Size    int           `json:"size"`
	TTL     time.Duration `json:"ttl"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		Traversal:       algorithms.DefaultTraversalConfig(),
		PageRank:        algorithms.DefaultPageRankConfig(),
		TraversalWeight: 0.7,
		PageRankWeight:  0.3,
		MMRLambda:       reranking.DefaultLambda,
		Limits: LimitsConfig{
			DefaultLimit: 20,
			MaxLimit:     100,
		},
		Personalized: PersonalizedConfig{
			MinRating: 4,
			MaxItems:  10,
		},
		Cache: CacheConfig{
			Enabled: true,
			Size:    1000,
			TTL:     5 * time.Minute,
		},
		ColdStart: true,
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.TraversalWeight < 0 || c.PageRankWeight < 0 {
		return errors.New("score weights must not be negative")
	}
	if c.TraversalWeight+c.PageRankWeight == 0 {
		return errors.New("score weights must not both be zero")
	}
	if c.MMRLambda < 0 || c.MMRLambda > 1 {
		return fmt.Errorf("mmr lambda must be in [0, 1], got %v", c.MMRLambda)
	}
	if c.Limits.DefaultLimit <= 0 || c.Limits.MaxLimit <= 0 {
		return errors.New("limits must be positive")
	}
	if c.Limits.DefaultLimit > c.Limits.MaxLimit {
		return fmt.Errorf("default limit %d exceeds max limit %d", c.Limits.DefaultLimit, c.Limits.MaxLimit)
	}
	if c.Personalized.MinRating < 1 || c.Personalized.MinRating > 5 {
		return fmt.Errorf("personalized min rating must be between 1 and 5, got %d", c.Personalized.MinRating)
	}
	if c.Personalized.MaxItems <= 0 {
		return errors.New("personalized max items must be positive")
	}
	if c.Cache.Enabled && (c.Cache.Size <= 0 || c.Cache.TTL <= 0) {
		return errors.New("cache size and ttl must be positive when the cache is enabled")
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Traversal.HopThresholds = append([]float64(nil), c.Traversal.HopThresholds...)
	return &clone
}
