// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package api

import (
	"net/http"

	"github.com/tomtom215/folio/internal/catalog"
	"github.com/tomtom215/folio/internal/events"
	"github.com/tomtom215/folio/internal/indexer"
	"github.com/tomtom215/folio/internal/logging"
)

// UpsertItemResponse is returned by PUT /items/{id}.
type UpsertItemResponse struct {
	Item *catalog.Item `json:"item"`

	// Queued is false when the index job could not be published; the item
	// is still stored and will be picked up by the next backfill.
	Queued bool `json:"queued"`
}

// IndexQueuedResponse is returned by POST /items/{id}/index without wait.
type IndexQueuedResponse struct {
	ItemID int64 `json:"item_id"`
	Force  bool  `json:"force"`
	Queued bool  `json:"queued"`
}

// DeleteItemResponse is returned by DELETE /items/{id}.
type DeleteItemResponse struct {
	ItemID  int64 `json:"item_id"`
	Deleted bool  `json:"deleted"`
}

// GetItem handles GET /items/{id}.
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondBadParam(w, r, err)
		return
	}

	item, err := h.catalog.GetItem(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, item)
}

// UpsertItem handles PUT /items/{id}: store the item, queue it for
// indexing and drop cached recommendations that may show stale metadata.
func (h *Handler) UpsertItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondBadParam(w, r, err)
		return
	}

	var req UpsertItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondBadParam(w, r, err)
		return
	}
	if !validateRequest(w, r, &req) {
		return
	}

	item, err := h.catalog.UpsertItem(r.Context(), req.Item(id))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	h.recommender.ClearCache()

	queued := true
	if err := h.queueIndex(r.Context(), id, events.ReasonUpsert, false); err != nil {
		queued = false
		logging.Ctx(r.Context()).Warn().Err(err).Int64("item_id", id).Msg("Failed to queue index job")
	}

	respondJSON(w, r, http.StatusOK, UpsertItemResponse{Item: item, Queued: queued})
}

// DeleteItem handles DELETE /items/{id}.
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if h.indexer == nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Indexer not configured", nil)
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondBadParam(w, r, err)
		return
	}

	if err := h.indexer.Forget(r.Context(), id); err != nil {
		respondDomainError(w, r, err)
		return
	}
	h.recommender.ClearCache()

	respondJSON(w, r, http.StatusOK, DeleteItemResponse{ItemID: id, Deleted: true})
}

// IndexItem handles POST /items/{id}/index. By default the job is queued
// and 202 returned; wait=true runs indexing in the request and reports
// the outcome, surfacing provider failures as 502/503.
func (h *Handler) IndexItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondBadParam(w, r, err)
		return
	}
	force, err := boolQuery(r, "force")
	if err != nil {
		respondBadParam(w, r, err)
		return
	}
	wait, err := boolQuery(r, "wait")
	if err != nil {
		respondBadParam(w, r, err)
		return
	}

	if _, err := h.catalog.GetItem(r.Context(), id); err != nil {
		respondDomainError(w, r, err)
		return
	}

	if wait {
		h.indexNow(w, r, id, force)
		return
	}

	if err := h.queueIndex(r.Context(), id, events.ReasonManual, force); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusAccepted, IndexQueuedResponse{ItemID: id, Force: force, Queued: true})
}

func (h *Handler) indexNow(w http.ResponseWriter, r *http.Request, id int64, force bool) {
	if h.indexer == nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Indexer not configured", nil)
		return
	}

	res, err := h.indexer.IndexItem(r.Context(), id, force)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if res.Status == indexer.StatusIndexed {
		h.recommender.ClearCache()
	}
	respondJSON(w, r, http.StatusOK, res)
}
