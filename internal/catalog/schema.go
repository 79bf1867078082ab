// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package catalog

import (
	"context"
	"fmt"
	"time"
)

// Timestamps are always bound from Go so no column default depends on the
// ICU extension.
var schemaQueries = []string{
	`CREATE TABLE IF NOT EXISTS items (
		id BIGINT PRIMARY KEY,
		title TEXT NOT NULL,
		author TEXT NOT NULL DEFAULT '',
		series TEXT NOT NULL DEFAULT '',
		series_index DOUBLE,
		description TEXT NOT NULL DEFAULT '',
		rating INTEGER CHECK (rating IS NULL OR (rating >= 1 AND rating <= 5)),
		embedding_status TEXT NOT NULL DEFAULT 'pending',
		embedding_error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS item_edges (
		source_id BIGINT NOT NULL,
		target_id BIGINT NOT NULL,
		edge_type TEXT NOT NULL,
		weight DOUBLE NOT NULL,
		model_version TEXT NOT NULL DEFAULT '',
		computed_at TIMESTAMP NOT NULL,
		PRIMARY KEY (source_id, target_id, edge_type),
		CHECK (source_id <> target_id),
		CHECK (weight >= 0 AND weight <= 1)
	)`,
}

func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range schemaQueries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}
	return nil
}
