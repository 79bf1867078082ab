// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package validation validates API request structs using go-playground/validator v10.
//
// A single validator instance is built once and reused so struct metadata is
// cached across requests. Error field names come from json tags, which keeps
// messages aligned with the request bodies clients actually send.
//
// Custom tags:
//   - notblank: string must contain something other than whitespace
//   - finite: number must not be NaN or infinite
//
// Example:
//
//	type UpsertItemRequest struct {
//	    Title  string `json:"title" validate:"notblank,max=500"`
//	    Rating *int   `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, verr)
//	    return
//	}
package validation
