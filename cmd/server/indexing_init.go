// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/folio/internal/catalog"
	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/embedding"
	"github.com/tomtom215/folio/internal/events"
	"github.com/tomtom215/folio/internal/indexer"
	"github.com/tomtom215/folio/internal/supervisor/services"
	"github.com/tomtom215/folio/internal/vector"
)

// IndexingComponents holds the embedding pipeline. With embedding
// disabled only Indexer is set, backed by embedding.Disabled, so deletes
// still work.
type IndexingComponents struct {
	Indexer *indexer.Indexer
	Ollama  *embedding.Ollama
	Bus     *events.Bus
	Service *services.IndexService
}

// initIndexing builds the provider, index queue, indexer and its worker
// service.
//
//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func initIndexing(cfg *config.Config, db *catalog.DB, store *vector.Store, rebuild indexer.RebuildRequester, logger zerolog.Logger) (*IndexingComponents, error) {
	if !cfg.Embedding.Enabled {
		logger.Warn().Msg("Embedding disabled: items will not be indexed and only stored edges are used")
		return &IndexingComponents{
			Indexer: indexer.New(db, store, embedding.Disabled{}, rebuild, &cfg.Indexer, logger),
		}, nil
	}

	ollama, err := embedding.NewOllama(&cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("create embedding provider: %w", err)
	}

	checkCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	health := ollama.HealthCheck(checkCtx)
	cancel()
	switch {
	case !health.Connected:
		logger.Warn().Str("endpoint", health.Endpoint).Str("error", health.Error).
			Msg("Embedding provider unreachable (will retry per job)")
	case !health.ModelAvailable:
		logger.Warn().Str("model", health.Model).Strs("available", health.ModelsAvailable).
			Msg("Embedding model not installed on provider")
	default:
		logger.Info().Str("endpoint", health.Endpoint).Str("model", health.Model).
			Msg("Connected to embedding provider")
	}

	busCfg := events.DefaultBusConfig()
	if cfg.Indexer.BufferSize > 0 {
		busCfg.BufferSize = cfg.Indexer.BufferSize
	}
	if cfg.Indexer.MaxRetries > 0 {
		busCfg.MaxRetries = cfg.Indexer.MaxRetries
	}
	bus, err := events.NewBus(busCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create index queue: %w", err)
	}

	idx := indexer.New(db, store, ollama, rebuild, &cfg.Indexer, logger)
	bus.Handle("indexer", idx.HandleJob)

	service := services.NewIndexService(bus, idx, services.IndexServiceConfig{
		BackfillOnStart: cfg.Indexer.BackfillOnStart,
		BackfillLimit:   cfg.Indexer.BackfillLimit,
	}, logger)

	return &IndexingComponents{
		Indexer: idx,
		Ollama:  ollama,
		Bus:     bus,
		Service: service,
	}, nil
}
