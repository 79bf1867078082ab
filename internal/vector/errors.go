// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package vector

import "errors"

var (
	// ErrDimensionMismatch is returned when a vector length differs from the
	// store's configured dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrStorage wraps failures of the durable backend.
	ErrStorage = errors.New("embedding storage failure")

	// ErrInvalidEncoding is returned when a serialized embedding is not a
	// whole number of float32 values.
	ErrInvalidEncoding = errors.New("invalid embedding encoding")
)
