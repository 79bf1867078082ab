// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/folio/internal/api"
	"github.com/tomtom215/folio/internal/catalog"
	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/graph"
	"github.com/tomtom215/folio/internal/logging"
	"github.com/tomtom215/folio/internal/middleware"
	"github.com/tomtom215/folio/internal/supervisor"
	"github.com/tomtom215/folio/internal/supervisor/services"
	"github.com/tomtom215/folio/internal/vector"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logger := logging.Logger()

	logging.Info().
		Str("version", version).
		Str("catalog_path", cfg.Catalog.Path).
		Str("vector_path", cfg.Vector.Path).
		Bool("embedding_enabled", cfg.Embedding.Enabled).
		Msg("Starting Folio with supervisor tree")

	// Catalog (DuckDB)
	db, err := catalog.Open(&cfg.Catalog, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open catalog")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing catalog")
		}
	}()

	// Vector store (BadgerDB)
	backend, err := vector.OpenBadgerBackend(cfg.Vector.Path, cfg.Vector.InMemory)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open vector store")
	}
	store, err := vector.NewStore(backend, cfg.Vector.Dimension, logger)
	if err != nil {
		_ = backend.Close() //nolint:errcheck // already failing
		logging.Fatal().Err(err).Msg("Failed to create vector store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing vector store")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loadCtx, loadCancel := context.WithTimeout(ctx, 2*time.Minute)
	if err := store.EnsureLoaded(loadCtx); err != nil {
		logging.Warn().Err(err).Msg("Failed to preload vectors; they will be read through on demand")
	}
	loadCancel()
	logging.Info().Int("vectors", store.Stats().Cached).Msg("Vector store ready")

	// Similarity graph
	graphs := graph.NewManager(db, graph.ManagerConfig{
		MinWeight: cfg.Graph.MinWeight,
		Symmetric: cfg.Graph.Symmetric,
	}, logger)
	graphService := services.NewGraphService(graphs, services.GraphServiceConfig{
		Interval: cfg.Graph.RebuildInterval,
		Debounce: cfg.Indexer.RebuildDebounce,
	}, logger)

	// Recommendation engine
	engine, err := initRecommend(cfg, graphs, store, db, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create recommendation engine")
	}

	// Embedding, index queue and indexer
	indexing, err := initIndexing(cfg, db, store, graphService, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize indexing")
	}

	// Supervisor tree
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddDataService(graphService)
	logging.Info().Msg("Graph service added to supervisor tree")

	if indexing.Service != nil {
		tree.AddWorkerService(indexing.Service)
		logging.Info().Msg("Index service added to supervisor tree")
	}

	// HTTP API
	deps := api.Deps{
		Catalog:     db,
		Recommender: engine,
		Graphs:      graphs,
		Vectors:     store,
		Indexer:     indexing.Indexer,
		Latency:     middleware.NewLatencyMonitor(cfg.Server.LatencyWindow, cfg.Server.SlowRequestThreshold, logger),
		Version:     version,
	}
	if indexing.Bus != nil {
		deps.Publisher = indexing.Bus
		deps.Queue = indexing.Bus
	}
	if indexing.Ollama != nil {
		deps.Embedding = indexing.Ollama
	}
	handler, err := api.NewHandler(deps)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create API handler")
	}
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFromServer(&cfg.Server)))

	if cfg.Server.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED")
	}

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// Signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
		err = <-errCh
	case err = <-errCh:
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport() //nolint:errcheck // report is best effort
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	if indexing.Bus != nil {
		if err := indexing.Bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing index queue")
		}
	}

	logging.Info().Msg("Folio stopped gracefully")
}
