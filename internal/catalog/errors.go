// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package catalog

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrNotFound is returned when a single requested item does not exist.
	ErrNotFound = errors.New("item not found")

	// ErrStorage wraps failures of the catalog database.
	ErrStorage = errors.New("catalog storage failure")

	// ErrInvalidEdge is returned when a batch contains an edge that the
	// schema would reject.
	ErrInvalidEdge = errors.New("invalid edge")
)

func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

// closeQuietly closes resources where the close error cannot be acted on.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
