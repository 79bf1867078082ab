// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/folio/internal/catalog"
	"github.com/tomtom215/folio/internal/embedding"
	"github.com/tomtom215/folio/internal/events"
	"github.com/tomtom215/folio/internal/vector"
)

// classifyError maps a domain error to its HTTP status, error code and
// client message. Unavailable is checked before ErrProvider since the
// breaker error may wrap both.
func classifyError(err error) (status int, code, message string) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound, ErrCodeNotFound, "Item not found"
	case errors.Is(err, embedding.ErrUnavailable):
		return http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Embedding provider unavailable"
	case errors.Is(err, embedding.ErrProvider):
		return http.StatusBadGateway, ErrCodeProvider, "Embedding provider failed"
	case errors.Is(err, events.ErrClosed):
		return http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Index queue is shut down"
	case errors.Is(err, catalog.ErrStorage), errors.Is(err, vector.ErrStorage):
		return http.StatusInternalServerError, ErrCodeStorage, "Storage failure"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrCodeTimeout, "Request timed out"
	default:
		return http.StatusInternalServerError, ErrCodeInternalError, "Internal server error"
	}
}
