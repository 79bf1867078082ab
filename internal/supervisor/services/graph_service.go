// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/folio/internal/graph"
)

// GraphRebuilder rebuilds the similarity graph. Implemented by
// *graph.Manager.
type GraphRebuilder interface {
	Rebuild(ctx context.Context) (graph.Stats, error)
}

// GraphServiceConfig holds configuration for the graph rebuild service.
type GraphServiceConfig struct {
	// Interval between scheduled rebuilds. Zero disables the schedule.
	Interval time.Duration

	// Debounce delays a requested rebuild so a burst of requests results
	// in one rebuild. Default: 2s.
	Debounce time.Duration

	// Timeout bounds a single rebuild. Default: 5m.
	Timeout time.Duration
}

// GraphService keeps the similarity graph current.
type GraphService struct {
	rebuilder GraphRebuilder
	config    GraphServiceConfig
	trigger   chan struct{}
	logger    zerolog.Logger
	name      string
}

// NewGraphService creates the rebuild service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewGraphService(rebuilder GraphRebuilder, cfg GraphServiceConfig, logger zerolog.Logger) *GraphService {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 2 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	return &GraphService{
		rebuilder: rebuilder,
		config:    cfg,
		trigger:   make(chan struct{}, 1),
		logger:    logger.With().Str("service", "graph").Logger(),
		name:      "graph-service",
	}
}

// RequestRebuild schedules a rebuild without blocking. Requests made while
// one is already pending are merged into it.
func (s *GraphService) RequestRebuild() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Serve implements suture.Service.
func (s *GraphService) Serve(ctx context.Context) error {
	s.logger.Info().
		Dur("interval", s.config.Interval).
		Dur("debounce", s.config.Debounce).
		Msg("graph service starting")

	s.rebuild(ctx, "startup")

	var tick <-chan time.Time
	if s.config.Interval > 0 {
		ticker := time.NewTicker(s.config.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("graph service shutting down")
			return ctx.Err()

		case <-tick:
			s.rebuild(ctx, "scheduled")

		case <-s.trigger:
			if !pending {
				pending = true
				debounce.Reset(s.config.Debounce)
			}

		case <-debounce.C:
			pending = false
			s.rebuild(ctx, "requested")
		}
	}
}

// rebuild logs failures; the previous graph keeps serving.
func (s *GraphService) rebuild(ctx context.Context, reason string) {
	rctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	if _, err := s.rebuilder.Rebuild(rctx); err != nil {
		s.logger.Warn().Err(err).Str("reason", reason).Msg("graph rebuild failed")
		return
	}
	s.logger.Debug().Str("reason", reason).Msg("graph rebuilt")
}

// String implements fmt.Stringer.
func (s *GraphService) String() string {
	return s.name
}
