// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/rs/zerolog"

	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/graph"
)

// maxInParams bounds the placeholders in one IN (...) lookup.
const maxInParams = 500

const itemColumns = `id, title, author, series, series_index, description, rating,
	embedding_status, embedding_error, created_at, updated_at`

// DB is the DuckDB-backed catalog.
type DB struct {
	conn   *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

// Open opens (or creates) the catalog database and ensures the schema.
// An empty path or ":memory:" opens a private in-memory database.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func Open(cfg *config.CatalogConfig, logger zerolog.Logger) (*DB, error) {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create catalog directory %s: %w", dir, err)
			}
		}
	}

	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "1GB"
	}

	// Auto-install and auto-load stay disabled so opening never reaches the
	// network for extensions.
	connStr := fmt.Sprintf("%s?threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		path, threads, maxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	db := &DB{
		conn:   conn,
		logger: logger.With().Str("component", "catalog").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}

	if err := db.createTables(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize catalog: %w", err)
	}

	db.logger.Info().Str("path", path).Int("threads", threads).Msg("Catalog opened")
	return db, nil
}

// Close closes the database.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return storageError("ping", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (Item, error) {
	var (
		item        Item
		seriesIndex sql.NullFloat64
		rating      sql.NullInt64
		status      string
	)
	err := row.Scan(&item.ID, &item.Title, &item.Author, &item.Series, &seriesIndex,
		&item.Description, &rating, &status, &item.EmbeddingError, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Item{}, err
	}
	if seriesIndex.Valid {
		v := seriesIndex.Float64
		item.SeriesIndex = &v
	}
	if rating.Valid {
		v := int(rating.Int64)
		item.Rating = &v
	}
	item.EmbeddingStatus = EmbeddingStatus(status)
	return item, nil
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return int32(*v)
}

// GetItem returns one item or ErrNotFound.
func (db *DB) GetItem(ctx context.Context, id int64) (*Item, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, storageError("get item", err)
	}
	return &item, nil
}

// GetItems returns the items that exist among ids, keyed by id.
func (db *DB) GetItems(ctx context.Context, ids []int64) (map[int64]Item, error) {
	out := make(map[int64]Item, len(ids))
	err := forEachChunk(dedupeIDs(ids), func(chunk []int64) error {
		query, args := inQuery(`SELECT `+itemColumns+` FROM items WHERE id IN (%s)`, chunk)
		rows, err := db.conn.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer closeQuietly(rows)

		for rows.Next() {
			item, err := scanItem(rows)
			if err != nil {
				return err
			}
			out[item.ID] = item
		}
		return rows.Err()
	})
	if err != nil {
		return nil, storageError("get items", err)
	}
	return out, nil
}

// GetItemMetadata returns fusion metadata for the items that exist among ids.
func (db *DB) GetItemMetadata(ctx context.Context, ids []int64) (map[int64]Metadata, error) {
	out := make(map[int64]Metadata, len(ids))
	err := forEachChunk(dedupeIDs(ids), func(chunk []int64) error {
		query, args := inQuery(`SELECT id, author, series, series_index FROM items WHERE id IN (%s)`, chunk)
		rows, err := db.conn.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer closeQuietly(rows)

		for rows.Next() {
			var (
				m           Metadata
				seriesIndex sql.NullFloat64
			)
			if err := rows.Scan(&m.ID, &m.Author, &m.Series, &seriesIndex); err != nil {
				return err
			}
			if seriesIndex.Valid {
				v := seriesIndex.Float64
				m.SeriesIndex = &v
			}
			out[m.ID] = m
		}
		return rows.Err()
	})
	if err != nil {
		return nil, storageError("get item metadata", err)
	}
	return out, nil
}

// UpsertItem inserts item or updates its metadata. New items start with
// StatusPending; an update leaves the embedding status alone. The stored
// row is returned.
func (db *DB) UpsertItem(ctx context.Context, item *Item) (*Item, error) {
	now := db.now()
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO items (id, title, author, series, series_index, description, rating,
			embedding_status, embedding_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, '', ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			author = excluded.author,
			series = excluded.series,
			series_index = excluded.series_index,
			description = excluded.description,
			rating = excluded.rating,
			updated_at = excluded.updated_at`,
		item.ID, item.Title, item.Author, item.Series, nullableFloat(item.SeriesIndex),
		item.Description, nullableInt(item.Rating), string(StatusPending), now, now)
	if err != nil {
		return nil, storageError("upsert item", err)
	}
	return db.GetItem(ctx, item.ID)
}

// DeleteItem removes the item and every edge touching it in one
// transaction.
func (db *DB) DeleteItem(ctx context.Context, id int64) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return storageError("delete item", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM item_edges WHERE source_id = ? OR target_id = ?`, id, id); err != nil {
		return storageError("delete item edges", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return storageError("delete item", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return storageError("delete item", err)
	}
	return nil
}

// HighlyRated returns items rated at least minRating, best first.
func (db *DB) HighlyRated(ctx context.Context, minRating, limit int) ([]Item, error) {
	if limit <= 0 {
		return []Item{}, nil
	}
	return db.queryItems(ctx, "highly rated", `SELECT `+itemColumns+` FROM items
		WHERE rating IS NOT NULL AND rating >= ?
		ORDER BY rating DESC, updated_at DESC, id ASC
		LIMIT ?`, minRating, limit)
}

// SetEmbeddingStatus records the outcome of embedding generation. reason is
// kept for failures and cleared otherwise.
func (db *DB) SetEmbeddingStatus(ctx context.Context, id int64, status EmbeddingStatus, reason string) error {
	if !status.Valid() {
		return fmt.Errorf("unknown embedding status %q", status)
	}
	if status != StatusFailed {
		reason = ""
	}
	res, err := db.conn.ExecContext(ctx,
		`UPDATE items SET embedding_status = ?, embedding_error = ?, updated_at = ? WHERE id = ?`,
		string(status), reason, db.now(), id)
	if err != nil {
		return storageError("set embedding status", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	return nil
}

// PendingEmbeddings returns up to limit item ids still awaiting an
// embedding, oldest id first.
func (db *DB) PendingEmbeddings(ctx context.Context, limit int) ([]int64, error) {
	if limit <= 0 {
		return []int64{}, nil
	}
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id FROM items WHERE embedding_status = ? ORDER BY id LIMIT ?`,
		string(StatusPending), limit)
	if err != nil {
		return nil, storageError("pending embeddings", err)
	}
	defer closeQuietly(rows)

	ids := make([]int64, 0, limit)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, storageError("pending embeddings", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("pending embeddings", err)
	}
	return ids, nil
}

// ItemIDsByStatus returns the ids of every item with the given embedding
// status in id order.
func (db *DB) ItemIDsByStatus(ctx context.Context, status EmbeddingStatus) ([]int64, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown embedding status %q", status)
	}
	rows, err := db.conn.QueryContext(ctx, `SELECT id FROM items WHERE embedding_status = ? ORDER BY id`, string(status))
	if err != nil {
		return nil, storageError("items by status", err)
	}
	defer closeQuietly(rows)

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, storageError("items by status", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("items by status", err)
	}
	return ids, nil
}

// ItemsByAuthor returns up to limit items by author other than exclude.
// An empty author matches nothing.
func (db *DB) ItemsByAuthor(ctx context.Context, author string, exclude int64, limit int) ([]Item, error) {
	if author == "" || limit <= 0 {
		return []Item{}, nil
	}
	return db.queryItems(ctx, "items by author", `SELECT `+itemColumns+` FROM items
		WHERE author = ? AND id <> ?
		ORDER BY id
		LIMIT ?`, author, exclude, limit)
}

// ItemsBySeries returns up to limit items in series other than exclude,
// in reading order. An empty series matches nothing.
func (db *DB) ItemsBySeries(ctx context.Context, series string, exclude int64, limit int) ([]Item, error) {
	if series == "" || limit <= 0 {
		return []Item{}, nil
	}
	return db.queryItems(ctx, "items by series", `SELECT `+itemColumns+` FROM items
		WHERE series = ? AND id <> ?
		ORDER BY series_index NULLS LAST, id
		LIMIT ?`, series, exclude, limit)
}

// RecentItems returns up to limit items, newest first.
func (db *DB) RecentItems(ctx context.Context, limit int) ([]Item, error) {
	if limit <= 0 {
		return []Item{}, nil
	}
	return db.queryItems(ctx, "recent items", `SELECT `+itemColumns+` FROM items
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
}

func (db *DB) queryItems(ctx context.Context, op, query string, args ...any) ([]Item, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageError(op, err)
	}
	defer closeQuietly(rows)

	items := []Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, storageError(op, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(op, err)
	}
	return items, nil
}

// ReplaceEdgesFor swaps the outgoing edges of id for edges in one
// transaction. Every edge must start at id and be valid, or the batch is
// rejected before anything is written; a failure part way leaves the table
// unchanged. Duplicate keys within the batch keep the last edge. An empty
// set leaves id with no outgoing edges. Edges pointing at id from other
// items are kept.
func (db *DB) ReplaceEdgesFor(ctx context.Context, id int64, edges []graph.Edge, modelVersion string) error {
	batch, err := edgeBatch(edges)
	if err != nil {
		return err
	}
	for _, e := range batch {
		if e.Source != id {
			return fmt.Errorf("%w: edge %d->%d does not start at %d", ErrInvalidEdge, e.Source, e.Target, id)
		}
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return storageError("replace edges", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM item_edges WHERE source_id = ?`, id)
	if err != nil {
		return storageError("replace edges", err)
	}
	if err := db.insertEdges(ctx, tx, batch, modelVersion); err != nil {
		return storageError("replace edges", err)
	}
	if err := tx.Commit(); err != nil {
		return storageError("replace edges", err)
	}

	removed, _ := res.RowsAffected()
	db.logger.Debug().Int64("item_id", id).Int64("removed", removed).Int("edges", len(batch)).Msg("Edges replaced")
	return nil
}

// edgeBatch validates edges and drops duplicate keys, keeping the last.
func edgeBatch(edges []graph.Edge) ([]graph.Edge, error) {
	type edgeKey struct {
		source, target int64
		t              graph.EdgeType
	}
	index := make(map[edgeKey]int, len(edges))
	batch := make([]graph.Edge, 0, len(edges))
	for _, e := range edges {
		if !e.Valid() {
			return nil, fmt.Errorf("%w: %d->%d %s weight=%v", ErrInvalidEdge, e.Source, e.Target, e.Type, e.Weight)
		}
		k := edgeKey{e.Source, e.Target, e.Type}
		if i, ok := index[k]; ok {
			batch[i] = e
			continue
		}
		index[k] = len(batch)
		batch = append(batch, e)
	}
	return batch, nil
}

func (db *DB) insertEdges(ctx context.Context, tx *sql.Tx, batch []graph.Edge, modelVersion string) error {
	if len(batch) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO item_edges (source_id, target_id, edge_type, weight, model_version, computed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_id, target_id, edge_type) DO UPDATE SET
			weight = excluded.weight,
			model_version = excluded.model_version,
			computed_at = excluded.computed_at`)
	if err != nil {
		return err
	}
	defer closeQuietly(stmt)

	now := db.now()
	for _, e := range batch {
		if _, err := stmt.ExecContext(ctx, e.Source, e.Target, e.Type.String(), e.Weight, modelVersion, now); err != nil {
			return err
		}
	}
	return nil
}

// LoadEdges streams every stored edge with weight >= minWeight to fn in
// (source, target, type) order. Rows with an unknown type are skipped.
func (db *DB) LoadEdges(ctx context.Context, minWeight float64, fn func(graph.Edge) error) error {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT source_id, target_id, edge_type, weight FROM item_edges
		WHERE weight >= ?
		ORDER BY source_id, target_id, edge_type`, minWeight)
	if err != nil {
		return storageError("load edges", err)
	}
	defer closeQuietly(rows)

	skipped := 0
	for rows.Next() {
		var (
			e        graph.Edge
			edgeType string
		)
		if err := rows.Scan(&e.Source, &e.Target, &edgeType, &e.Weight); err != nil {
			return storageError("load edges", err)
		}
		t, err := graph.ParseEdgeType(edgeType)
		if err != nil || t == graph.EdgeNone {
			skipped++
			continue
		}
		e.Type = t
		if err := fn(e); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return storageError("load edges", err)
	}
	if skipped > 0 {
		db.logger.Warn().Int("skipped", skipped).Msg("Skipped edges with unknown type")
	}
	return nil
}

// CountEdges returns the number of stored edges.
func (db *DB) CountEdges(ctx context.Context) (int, error) {
	var n int64
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM item_edges`).Scan(&n); err != nil {
		return 0, storageError("count edges", err)
	}
	return int(n), nil
}

// CountItems returns the number of stored items.
func (db *DB) CountItems(ctx context.Context) (int, error) {
	var n int64
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return 0, storageError("count items", err)
	}
	return int(n), nil
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func forEachChunk(ids []int64, fn func([]int64) error) error {
	for start := 0; start < len(ids); start += maxInParams {
		end := min(start+maxInParams, len(ids))
		if err := fn(ids[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func inQuery(format string, ids []int64) (string, []any) {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return fmt.Sprintf(format, placeholders), args
}
