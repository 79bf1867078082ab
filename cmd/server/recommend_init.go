// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/graph"
	"github.com/tomtom215/folio/internal/recommend"
)

// initRecommend creates the recommendation engine over the graph manager
// and hooks cache invalidation to graph rebuilds.
//
//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func initRecommend(cfg *config.Config, graphs *graph.Manager, vectors recommend.VectorSource, items recommend.ItemSource, logger zerolog.Logger) (*recommend.Engine, error) {
	engineCfg := buildEngineConfig(cfg)

	engine, err := recommend.NewEngine(engineCfg, graphs, logger)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}
	engine.SetVectorSource(vectors)
	engine.SetItemSource(items)

	graphs.OnRebuild(func(*graph.Graph) {
		if n := engine.ClearCache(); n > 0 {
			logger.Debug().Int("entries", n).Msg("Recommendation cache cleared after graph rebuild")
		}
	})

	logger.Info().
		Float64("traversal_weight", engineCfg.TraversalWeight).
		Float64("pagerank_weight", engineCfg.PageRankWeight).
		Float64("mmr_lambda", engineCfg.MMRLambda).
		Int("max_hops", engineCfg.Traversal.MaxHops).
		Bool("cache", engineCfg.Cache.Enabled).
		Bool("cold_start", engineCfg.ColdStart).
		Msg("Recommendation engine initialized")

	return engine, nil
}

// buildEngineConfig creates the engine configuration from app config.
// A zero cache size or TTL disables the response cache.
func buildEngineConfig(cfg *config.Config) *recommend.Config {
	ranking := cfg.Ranking
	return &recommend.Config{
		Traversal:       cfg.Traversal,
		PageRank:        cfg.PageRank,
		TraversalWeight: ranking.TraversalWeight,
		PageRankWeight:  ranking.PageRankWeight,
		MMRLambda:       ranking.MMRLambda,
		Limits: recommend.LimitsConfig{
			DefaultLimit: ranking.DefaultLimit,
			MaxLimit:     ranking.MaxLimit,
		},
		Personalized: recommend.PersonalizedConfig{
			MinRating: ranking.PreferenceMinRating,
			MaxItems:  ranking.PreferenceLimit,
		},
		Cache: recommend.CacheConfig{
			Enabled: ranking.CacheSize > 0 && ranking.CacheTTL > 0,
			Size:    ranking.CacheSize,
			TTL:     ranking.CacheTTL,
		},
		ColdStart: ranking.ColdStart,
	}
}
