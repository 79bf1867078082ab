// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/metrics"
)

const breakerName = "ollama-embed"

// Ollama is a Provider backed by an Ollama server.
type Ollama struct {
	client   *ollama.Client
	endpoint string
	model    string
	timeout  time.Duration
	limiter  *rate.Limiter
	cb       *gobreaker.CircuitBreaker[[]float32]
	logger   zerolog.Logger
}

// NewOllama creates an Ollama provider from cfg.
//
// Circuit breaker configuration:
//   - Opens after cfg.BreakerFailures consecutive failures
//   - Stays open for cfg.BreakerTimeout, then lets one trial request through
//   - Caller cancellations do not count as failures
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewOllama(cfg *config.EmbeddingConfig, logger zerolog.Logger) (*Ollama, error) {
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url: %w", err)
	}

	log := logger.With().Str("component", "embedding").Str("provider", "ollama").Logger()

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := max(cfg.Burst, 1)

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	metrics.EmbeddingBreakerState.Set(0)

	cb := gobreaker.NewCircuitBreaker[[]float32](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", stateToString(from)).Str("to", stateToString(to)).
				Msg("Embedding circuit breaker state transition")
			metrics.EmbeddingBreakerState.Set(stateToFloat(to))
		},
	})

	return &Ollama{
		client:   ollama.NewClient(base, &http.Client{Timeout: cfg.Timeout + 5*time.Second}),
		endpoint: cfg.URL,
		model:    cfg.Model,
		timeout:  cfg.Timeout,
		limiter:  rate.NewLimiter(limit, burst),
		cb:       cb,
		logger:   log,
	}, nil
}

// Model returns the configured model name.
func (o *Ollama) Model() string {
	return o.model
}

// Embed generates an embedding for text.
func (o *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embedding rate limit wait: %w", err)
	}

	start := time.Now()
	vec, err := o.cb.Execute(func() ([]float32, error) {
		return o.embed(ctx, text)
	})
	metrics.EmbeddingDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.EmbeddingRequests.WithLabelValues("success").Inc()
		return vec, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.EmbeddingRequests.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	default:
		metrics.EmbeddingRequests.WithLabelValues("error").Inc()
		return nil, err
	}
}

func (o *Ollama) embed(ctx context.Context, text string) ([]float32, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	resp, err := o.client.Embed(ctx, &ollama.EmbedRequest{
		Model: o.model,
		Input: text,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrProvider, err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("%w: empty embedding for model %s", ErrProvider, o.model)
	}
	return resp.Embeddings[0], nil
}

// HealthCheck lists installed models and reports whether the configured
// model is among them. Connection failures are reported in Health, not as
// an error.
func (o *Ollama) HealthCheck(ctx context.Context) Health {
	h := Health{
		Endpoint:     o.endpoint,
		Model:        o.model,
		BreakerState: stateToString(o.cb.State()),
	}

	list, err := o.client.List(ctx)
	if err != nil {
		h.Error = fmt.Sprintf("connection failed: %v", err)
		return h
	}
	h.Connected = true

	h.ModelsAvailable = make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		h.ModelsAvailable = append(h.ModelsAvailable, m.Name)
		if modelMatches(m.Name, o.model) {
			h.ModelAvailable = true
		}
	}
	if !h.ModelAvailable {
		h.Error = fmt.Sprintf("model %s not found", o.model)
	}
	return h
}

// modelMatches treats "name" and "name:latest" as the same model.
func modelMatches(installed, want string) bool {
	if installed == want {
		return true
	}
	base, _, _ := strings.Cut(installed, ":")
	wantBase, wantTag, _ := strings.Cut(want, ":")
	return base == wantBase && (wantTag == "" || wantTag == "latest")
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
