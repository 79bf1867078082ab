// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/folio/internal/indexer"
)

// JobRouter runs the index job consumer. Implemented by *events.Bus.
type JobRouter interface {
	indexer.Publisher
	Run(ctx context.Context) error
	Running() <-chan struct{}
}

// Backfiller queues items still pending an embedding. Implemented by
// *indexer.Indexer.
type Backfiller interface {
	Backfill(ctx context.Context, pub indexer.Publisher, limit int) (int, error)
}

// IndexServiceConfig holds configuration for the index worker.
type IndexServiceConfig struct {
	BackfillOnStart bool
	BackfillLimit   int
}

// IndexService runs the index job router under supervision.
//
// A Watermill router cannot be restarted once it stops, so an unexpected
// stop ends the service with suture.ErrDoNotRestart.
type IndexService struct {
	router     JobRouter
	backfiller Backfiller
	config     IndexServiceConfig
	logger     zerolog.Logger
	name       string
}

// NewIndexService creates the index worker. Handlers must already be
// registered on router.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewIndexService(router JobRouter, backfiller Backfiller, cfg IndexServiceConfig, logger zerolog.Logger) *IndexService {
	if cfg.BackfillLimit <= 0 {
		cfg.BackfillLimit = 10000
	}
	return &IndexService{
		router:     router,
		backfiller: backfiller,
		config:     cfg,
		logger:     logger.With().Str("service", "indexer").Logger(),
		name:       "index-service",
	}
}

// Serve implements suture.Service.
func (s *IndexService) Serve(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		done <- s.router.Run(ctx)
	}()

	select {
	case <-s.router.Running():
		s.logger.Info().Msg("index worker running")
	case err := <-done:
		return s.stopped(ctx, err)
	case <-ctx.Done():
		return s.stopped(ctx, <-done)
	}

	if s.config.BackfillOnStart && s.backfiller != nil {
		if n, err := s.backfiller.Backfill(ctx, s.router, s.config.BackfillLimit); err != nil {
			s.logger.Warn().Err(err).Int("queued", n).Msg("backfill incomplete")
		}
	}

	return s.stopped(ctx, <-done)
}

func (s *IndexService) stopped(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		s.logger.Info().Msg("index worker shutting down")
		return ctx.Err()
	}
	if err == nil {
		return fmt.Errorf("index router stopped: %w", suture.ErrDoNotRestart)
	}
	return fmt.Errorf("index router failed: %w: %w", err, suture.ErrDoNotRestart)
}

// String implements fmt.Stringer.
func (s *IndexService) String() string {
	return s.name
}
