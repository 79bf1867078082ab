// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package vector stores item embeddings and answers nearest-neighbor queries.
//
// A Store keeps every embedding in an in-memory cache in front of a durable
// Backend (BadgerDB in production). The cache is filled lazily: the first
// similarity query performs a one-time full load from the backend, see
// Store.EnsureLoaded. After that the cache is authoritative for existence
// checks.
//
// Similarity is cosine similarity computed in float64 over float32 vectors.
// Queries are brute force, which is fine for personal libraries of tens of
// thousands of items.
//
// # Wire Format
//
// An embedding is serialized as consecutive little-endian IEEE-754 float32
// values with no header. The length is implied by the configured dimension.
//
// # Errors
//
//   - ErrDimensionMismatch: a vector does not have the configured length
//   - ErrStorage: the durable backend failed
//
// A missing embedding is not an error: Get returns ok=false and similarity
// queries return an empty slice.
package vector
