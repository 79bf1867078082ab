// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/folio/internal/catalog"
	"github.com/tomtom215/folio/internal/recommend/algorithms"
	"github.com/tomtom215/folio/internal/validation"
)

// maxBodyBytes caps request bodies; descriptions are the largest field.
const maxBodyBytes = 1 << 20

// UpsertItemRequest is the body of PUT /items/{id}.
type UpsertItemRequest struct {
	Title       string   `json:"title" validate:"notblank,max=1000"`
	Author      string   `json:"author" validate:"max=500"`
	Series      string   `json:"series" validate:"max=500"`
	SeriesIndex *float64 `json:"series_index,omitempty" validate:"omitempty,finite,gte=0"`
	Description string   `json:"description" validate:"max=50000"`
	Rating      *int     `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
}

// Item converts the request to a catalog item with the given ID.
func (req *UpsertItemRequest) Item(id int64) *catalog.Item {
	return &catalog.Item{
		ID:          id,
		Title:       strings.TrimSpace(req.Title),
		Author:      strings.TrimSpace(req.Author),
		Series:      strings.TrimSpace(req.Series),
		SeriesIndex: req.SeriesIndex,
		Description: req.Description,
		Rating:      req.Rating,
	}
}

// EdgeItem is the metadata of one side of an edge weight query.
type EdgeItem struct {
	Author      string   `json:"author" validate:"max=500"`
	Series      string   `json:"series" validate:"max=500"`
	SeriesIndex *float64 `json:"series_index,omitempty" validate:"omitempty,finite,gte=0"`
}

func (e EdgeItem) metadata() algorithms.ItemMetadata {
	return algorithms.ItemMetadata{
		Author:      strings.TrimSpace(e.Author),
		Series:      strings.TrimSpace(e.Series),
		SeriesIndex: e.SeriesIndex,
	}
}

// EdgeWeightsRequest is the body of POST /edges/weights.
type EdgeWeightsRequest struct {
	A          EdgeItem `json:"a"`
	B          EdgeItem `json:"b"`
	Similarity *float64 `json:"similarity,omitempty" validate:"omitempty,finite,gte=-1,lte=1"`
}

// RecommendationsQuery holds the query of GET /items/{id}/recommendations.
type RecommendationsQuery struct {
	Limit       int     `json:"limit" validate:"gte=0,lte=1000"`
	Preferences []int64 `json:"prefs" validate:"max=100,dive,gt=0"`
}

// SimilarQuery holds the query of GET /items/{id}/similar.
type SimilarQuery struct {
	K int `json:"k" validate:"gte=1,lte=200"`
}

// SubgraphQuery holds the query of GET /graph/{id}.
type SubgraphQuery struct {
	Depth    int `json:"depth" validate:"gte=0,lte=3"`
	MaxNodes int `json:"max_nodes" validate:"gte=0,lte=200"`
}

// errBadParam marks malformed path or query parameters.
var errBadParam = errors.New("bad parameter")

// pathID parses the {id} URL parameter as a positive item ID.
func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id must be a positive integer, got %q", errBadParam, raw)
	}
	return id, nil
}

// intQuery parses an integer query parameter, returning def when absent.
func intQuery(r *http.Request, key string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", errBadParam, key, raw)
	}
	return v, nil
}

// boolQuery parses a boolean query parameter, returning false when absent.
func boolQuery(r *http.Request, key string) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean, got %q", errBadParam, key, raw)
	}
	return v, nil
}

// idListQuery parses a comma-separated list of item IDs. Empty elements
// are skipped.
func idListQuery(r *http.Request, key string) ([]int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}

	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must list integer ids, got %q", errBadParam, key, part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// decodeJSON reads a single JSON object from the body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("%w: body exceeds %d bytes", errBadParam, maxErr.Limit)
		}
		return fmt.Errorf("%w: read body: %v", errBadParam, err)
	}
	if len(body) == 0 {
		return fmt.Errorf("%w: request body is required", errBadParam)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", errBadParam, err)
	}
	return nil
}

// validateRequest validates req and writes a 400 VALIDATION_ERROR response
// on failure. It reports whether the request is valid.
func validateRequest(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	verr := validation.ValidateStruct(req)
	if verr == nil {
		return true
	}
	apiErr := verr.ToAPIError()
	respondErrorDetails(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
	return false
}

// respondBadParam writes a 400 for errors from the parameter parsers.
func respondBadParam(w http.ResponseWriter, r *http.Request, err error) {
	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, errBadParam.Error()+": "); ok {
		msg = rest
	}
	respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, msg, nil)
}
