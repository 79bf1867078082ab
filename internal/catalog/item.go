// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package catalog

import "time"

// EmbeddingStatus tracks whether an item's embedding has been generated.
type EmbeddingStatus string

const (
	StatusPending  EmbeddingStatus = "pending"
	StatusComplete EmbeddingStatus = "complete"
	StatusFailed   EmbeddingStatus = "failed"
)

// Valid reports whether s is a known status.
func (s EmbeddingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusComplete, StatusFailed:
		return true
	}
	return false
}

// Item is one library entry.
type Item struct {
	ID              int64           `json:"id"`
	Title           string          `json:"title"`
	Author          string          `json:"author,omitempty"`
	Series          string          `json:"series,omitempty"`
	SeriesIndex     *float64        `json:"series_index,omitempty"`
	Description     string          `json:"description,omitempty"`
	Rating          *int            `json:"rating,omitempty"`
	EmbeddingStatus EmbeddingStatus `json:"embedding_status"`
	EmbeddingError  string          `json:"embedding_error,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Metadata is the subset of an item used for edge fusion.
type Metadata struct {
	ID          int64    `json:"id"`
	Author      string   `json:"author,omitempty"`
	Series      string   `json:"series,omitempty"`
	SeriesIndex *float64 `json:"series_index,omitempty"`
}

// Metadata returns the fusion view of the item.
func (i *Item) Metadata() Metadata {
	return Metadata{
		ID:          i.ID,
		Author:      i.Author,
		Series:      i.Series,
		SeriesIndex: i.SeriesIndex,
	}
}
