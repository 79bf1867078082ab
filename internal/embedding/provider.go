// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package embedding

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrProvider wraps any failure reported by the embedding provider.
	ErrProvider = errors.New("embedding provider failure")

	// ErrUnavailable means the provider is not being called because its
	// circuit breaker is open.
	ErrUnavailable = errors.New("embedding provider unavailable")
)

// Provider generates embeddings for text.
type Provider interface {
	// Embed returns the embedding for text. Errors wrap ErrProvider or
	// ErrUnavailable.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Model names the model producing the vectors.
	Model() string
}

// Health reports provider reachability.
type Health struct {
	Connected       bool     `json:"connected"`
	Endpoint        string   `json:"endpoint"`
	Model           string   `json:"model"`
	ModelAvailable  bool     `json:"model_available"`
	ModelsAvailable []string `json:"models_available"`
	BreakerState    string   `json:"breaker_state"`
	Error           string   `json:"error,omitempty"`
}

// Disabled is the provider used when embedding is switched off. Every
// call fails with ErrUnavailable.
type Disabled struct{}

// Embed always fails with ErrUnavailable.
func (Disabled) Embed(context.Context, string) ([]float32, error) {
	return nil, fmt.Errorf("%w: embedding disabled", ErrUnavailable)
}

// Model returns "disabled".
func (Disabled) Model() string { return "disabled" }
