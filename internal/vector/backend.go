// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package vector

import (
	"context"
	"time"
)

// Record is the durable form of one embedding.
type Record struct {
	ID          int64
	Vector      Embedding
	Model       string
	ContentHash string
	CreatedAt   time.Time
}

// Backend is the durable tier behind a Store.
//
// Implementations must make PutBatch all-or-nothing.
type Backend interface {
	Put(ctx context.Context, rec Record) error
	PutBatch(ctx context.Context, recs []Record) error
	// Get returns ok=false without error when id has no record.
	Get(ctx context.Context, id int64) (rec Record, ok bool, err error)
	Delete(ctx context.Context, id int64) error
	// Iterate calls fn for every record. A non-nil error from fn stops
	// iteration and is returned.
	Iterate(ctx context.Context, fn func(Record) error) error
	// Clear removes every record and returns how many were removed.
	Clear(ctx context.Context) (int, error)
	Close() error
}
