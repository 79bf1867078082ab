// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package embedding turns item metadata into embedding vectors.
//
// ItemText builds the text sent to the provider and ContentHash fingerprints
// it so unchanged items are not re-embedded. Ollama is the production
// Provider; it throttles calls with a token bucket and stops calling a
// failing server through a circuit breaker. When the breaker is open Embed
// fails fast with ErrUnavailable.
package embedding
