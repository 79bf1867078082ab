// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// TopicIndex is the topic index jobs are published on.
const TopicIndex = "folio.index"

// Reason records why an item was queued.
type Reason string

const (
	ReasonUpsert   Reason = "upsert"
	ReasonManual   Reason = "manual"
	ReasonBackfill Reason = "backfill"
)

// IndexJob asks the indexer to (re)embed one item and refresh its edges.
type IndexJob struct {
	ItemID int64  `json:"item_id"`
	Reason Reason `json:"reason"`

	// Force re-embeds even when the item text is unchanged.
	Force bool `json:"force,omitempty"`

	RequestedAt   time.Time `json:"requested_at"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// NewIndexJob creates a job for id stamped with the current time.
func NewIndexJob(id int64, reason Reason) IndexJob {
	return IndexJob{ItemID: id, Reason: reason, RequestedAt: time.Now().UTC()}
}

// Validate checks the job can be processed.
func (j *IndexJob) Validate() error {
	if j.ItemID <= 0 {
		return fmt.Errorf("invalid item id %d", j.ItemID)
	}
	switch j.Reason {
	case ReasonUpsert, ReasonManual, ReasonBackfill:
		return nil
	case "":
		return errors.New("reason is required")
	default:
		return fmt.Errorf("unknown reason %q", j.Reason)
	}
}

// MarshalJob validates and encodes a job payload.
func MarshalJob(j *IndexJob) ([]byte, error) {
	if err := j.Validate(); err != nil {
		return nil, fmt.Errorf("validate job: %w", err)
	}
	data, err := json.Marshal(j)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}
	return data, nil
}

// UnmarshalJob decodes and validates a job payload.
func UnmarshalJob(data []byte) (IndexJob, error) {
	var j IndexJob
	if err := json.Unmarshal(data, &j); err != nil {
		return IndexJob{}, fmt.Errorf("unmarshal job: %w", err)
	}
	if err := j.Validate(); err != nil {
		return IndexJob{}, fmt.Errorf("validate job: %w", err)
	}
	return j, nil
}
