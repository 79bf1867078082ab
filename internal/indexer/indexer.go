// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/folio/internal/catalog"
	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/embedding"
	"github.com/tomtom215/folio/internal/events"
	"github.com/tomtom215/folio/internal/graph"
	"github.com/tomtom215/folio/internal/logging"
	"github.com/tomtom215/folio/internal/metrics"
	"github.com/tomtom215/folio/internal/recommend/algorithms"
	"github.com/tomtom215/folio/internal/vector"
)

// ItemStore is the catalog subset the indexer uses.
type ItemStore interface {
	GetItem(ctx context.Context, id int64) (*catalog.Item, error)
	GetItemMetadata(ctx context.Context, ids []int64) (map[int64]catalog.Metadata, error)
	DeleteItem(ctx context.Context, id int64) error
	SetEmbeddingStatus(ctx context.Context, id int64, status catalog.EmbeddingStatus, reason string) error
	PendingEmbeddings(ctx context.Context, limit int) ([]int64, error)
	ItemIDsByStatus(ctx context.Context, status catalog.EmbeddingStatus) ([]int64, error)
	ReplaceEdgesFor(ctx context.Context, id int64, edges []graph.Edge, modelVersion string) error
}

// VectorStore is the vector store subset the indexer uses.
type VectorStore interface {
	Lookup(ctx context.Context, id int64) (vector.Record, bool, error)
	Store(ctx context.Context, id int64, e vector.Embedding, model, contentHash string) error
	FindSimilarToItem(ctx context.Context, id int64, k int) ([]vector.Match, error)
	Delete(ctx context.Context, id int64) error
}

// RebuildRequester schedules a graph rebuild. Requests may be coalesced.
type RebuildRequester interface {
	RequestRebuild()
}

// Publisher queues index jobs.
type Publisher interface {
	Publish(ctx context.Context, job events.IndexJob) error
}

// Status is the outcome of indexing one item.
type Status string

const (
	StatusIndexed   Status = "indexed"
	StatusUnchanged Status = "unchanged"
)

// Result describes one indexing run.
type Result struct {
	ItemID   int64         `json:"item_id"`
	Status   Status        `json:"status"`
	Edges    int           `json:"edges"`
	Duration time.Duration `json:"duration"`
}

// RebuildResult describes one full edge rebuild.
type RebuildResult struct {
	Items    int           `json:"items"`
	Edges    int           `json:"edges"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// Indexer embeds items and maintains their edges.
type Indexer struct {
	items    ItemStore
	vectors  VectorStore
	provider embedding.Provider
	rebuild  RebuildRequester
	cfg      config.IndexerConfig
	logger   zerolog.Logger
}

// New creates an indexer. rebuild may be nil when the caller rebuilds the
// graph itself.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(items ItemStore, vectors VectorStore, provider embedding.Provider, rebuild RebuildRequester, cfg *config.IndexerConfig, logger zerolog.Logger) *Indexer {
	c := config.IndexerConfig{}
	if cfg != nil {
		c = *cfg
	}
	if c.NeighborK <= 0 {
		c.NeighborK = 50
	}
	return &Indexer{
		items:    items,
		vectors:  vectors,
		provider: provider,
		rebuild:  rebuild,
		cfg:      c,
		logger:   logger.With().Str("component", "indexer").Logger(),
	}
}

// IndexItem runs the pipeline for id. With force the embedding is
// regenerated even when the item text has not changed.
func (ix *Indexer) IndexItem(ctx context.Context, id int64, force bool) (Result, error) {
	start := time.Now()
	log := logging.Ctx(ctx).With().Str("component", "indexer").Int64("item_id", id).Logger()

	item, err := ix.items.GetItem(ctx, id)
	if err != nil {
		metrics.IndexJobs.WithLabelValues("skipped").Inc()
		return Result{}, fmt.Errorf("load item %d: %w", id, err)
	}

	text := embedding.ItemText(item.Title, item.Author, item.Series, item.Description)
	hash := embedding.ContentHash(text)
	model := ix.provider.Model()

	if !force && item.EmbeddingStatus == catalog.StatusComplete {
		rec, ok, err := ix.vectors.Lookup(ctx, id)
		if err != nil {
			return Result{}, ix.fail(ctx, id, fmt.Errorf("lookup embedding: %w", err))
		}
		if ok && rec.ContentHash == hash && rec.Model == model {
			metrics.IndexJobs.WithLabelValues(string(StatusUnchanged)).Inc()
			log.Debug().Msg("embedding up to date")
			return Result{ItemID: id, Status: StatusUnchanged, Duration: time.Since(start)}, nil
		}
	}

	vec, err := ix.provider.Embed(ctx, text)
	if err != nil {
		return Result{}, ix.fail(ctx, id, fmt.Errorf("embed: %w", err))
	}
	if err := ix.vectors.Store(ctx, id, vec, model, hash); err != nil {
		return Result{}, ix.fail(ctx, id, fmt.Errorf("store embedding: %w", err))
	}

	n, err := ix.UpdateEdges(ctx, id)
	if err != nil {
		return Result{}, ix.fail(ctx, id, err)
	}

	if err := ix.items.SetEmbeddingStatus(ctx, id, catalog.StatusComplete, ""); err != nil {
		return Result{}, fmt.Errorf("mark complete: %w", err)
	}
	if ix.rebuild != nil {
		ix.rebuild.RequestRebuild()
	}

	res := Result{ItemID: id, Status: StatusIndexed, Edges: n, Duration: time.Since(start)}
	metrics.IndexJobs.WithLabelValues(string(StatusIndexed)).Inc()
	log.Info().Int("edges", n).Dur("duration", res.Duration).Msg("item indexed")
	return res, nil
}

// UpdateEdges fuses typed edges between id and its nearest neighbors and
// replaces id's outgoing edges with them in one transaction. Edges whose
// signal is gone, such as an author edge after the author changed, are
// removed. It returns the number of edges written.
func (ix *Indexer) UpdateEdges(ctx context.Context, id int64) (int, error) {
	edges, err := ix.fuseEdges(ctx, id)
	if err != nil {
		return 0, err
	}
	if err := ix.items.ReplaceEdgesFor(ctx, id, edges, ix.provider.Model()); err != nil {
		return 0, fmt.Errorf("persist edges: %w", err)
	}
	metrics.EdgesPersisted.Add(float64(len(edges)))
	return len(edges), nil
}

// fuseEdges returns the edges from id to every neighbor that clears the
// similarity and weight floors.
func (ix *Indexer) fuseEdges(ctx context.Context, id int64) ([]graph.Edge, error) {
	matches, err := ix.vectors.FindSimilarToItem(ctx, id, ix.cfg.NeighborK)
	if err != nil {
		return nil, fmt.Errorf("find neighbors: %w", err)
	}

	neighbors := matches[:0:0]
	for _, m := range matches {
		if m.Similarity >= ix.cfg.MinSimilarity {
			neighbors = append(neighbors, m)
		}
	}
	if len(neighbors) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(neighbors)+1)
	ids = append(ids, id)
	for _, m := range neighbors {
		ids = append(ids, m.ID)
	}
	meta, err := ix.items.GetItemMetadata(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load metadata: %w", err)
	}
	source, ok := meta[id]
	if !ok {
		return nil, fmt.Errorf("item %d: %w", id, catalog.ErrNotFound)
	}

	var edges []graph.Edge
	for _, m := range neighbors {
		target, ok := meta[m.ID]
		if !ok {
			// Embedded but no longer in the catalog.
			continue
		}
		similarity := m.Similarity
		for _, we := range algorithms.ComputeAllEdgeWeights(fusionMetadata(source), fusionMetadata(target), &similarity) {
			if we.Weight < ix.cfg.MinEdgeWeight {
				continue
			}
			edges = append(edges, graph.Edge{Source: id, Target: m.ID, Type: we.Type, Weight: we.Weight})
		}
	}
	return edges, nil
}

// RebuildEdges recomputes the edges of every item with a complete
// embedding. A failure on one item is logged and counted and the rebuild
// moves on; only listing the items or a canceled context aborts it. A
// graph rebuild is requested when at least one item was processed.
func (ix *Indexer) RebuildEdges(ctx context.Context) (RebuildResult, error) {
	start := time.Now()
	log := logging.Ctx(ctx).With().Str("component", "indexer").Logger()

	ids, err := ix.items.ItemIDsByStatus(ctx, catalog.StatusComplete)
	if err != nil {
		return RebuildResult{}, fmt.Errorf("list indexed items: %w", err)
	}
	log.Info().Int("items", len(ids)).Msg("edge rebuild started")

	var res RebuildResult
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			res.Duration = time.Since(start)
			return res, err
		}
		n, err := ix.UpdateEdges(ctx, id)
		if err != nil {
			res.Failed++
			log.Warn().Err(err).Int64("item_id", id).Msg("edge rebuild failed for item")
			continue
		}
		res.Items++
		res.Edges += n
	}

	if res.Items > 0 && ix.rebuild != nil {
		ix.rebuild.RequestRebuild()
	}
	res.Duration = time.Since(start)
	log.Info().
		Int("items", res.Items).
		Int("edges", res.Edges).
		Int("failed", res.Failed).
		Dur("duration", res.Duration).
		Msg("edge rebuild finished")
	return res, nil
}

// HandleJob is the events.JobHandler for index jobs. Jobs for items that
// no longer exist are acknowledged.
func (ix *Indexer) HandleJob(ctx context.Context, job events.IndexJob) error {
	_, err := ix.IndexItem(ctx, job.ItemID, job.Force)
	if errors.Is(err, catalog.ErrNotFound) {
		ix.logger.Debug().Int64("item_id", job.ItemID).Msg("index job for missing item ignored")
		return nil
	}
	return err
}

// Backfill queues a job for every item still pending an embedding and
// returns how many were queued.
func (ix *Indexer) Backfill(ctx context.Context, pub Publisher, limit int) (int, error) {
	ids, err := ix.items.PendingEmbeddings(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list pending: %w", err)
	}
	for i, id := range ids {
		if err := pub.Publish(ctx, events.NewIndexJob(id, events.ReasonBackfill)); err != nil {
			return i, fmt.Errorf("queue item %d: %w", id, err)
		}
	}
	if len(ids) > 0 {
		ix.logger.Info().Int("items", len(ids)).Msg("pending items queued for indexing")
	}
	return len(ids), nil
}

// Forget removes an item, its edges and its embedding.
func (ix *Indexer) Forget(ctx context.Context, id int64) error {
	if err := ix.items.DeleteItem(ctx, id); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if err := ix.vectors.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete embedding: %w", err)
	}
	if ix.rebuild != nil {
		ix.rebuild.RequestRebuild()
	}
	return nil
}

// fail marks id failed and returns cause. A failure to record the status
// is logged, not returned.
func (ix *Indexer) fail(ctx context.Context, id int64, cause error) error {
	metrics.IndexJobs.WithLabelValues("failed").Inc()
	if err := ix.items.SetEmbeddingStatus(ctx, id, catalog.StatusFailed, cause.Error()); err != nil {
		ix.logger.Error().Err(err).Int64("item_id", id).Msg("failed to record embedding failure")
	}
	logging.Ctx(ctx).Warn().Err(cause).Int64("item_id", id).Msg("indexing failed")
	return cause
}

func fusionMetadata(m catalog.Metadata) algorithms.ItemMetadata {
	return algorithms.ItemMetadata{Author: m.Author, Series: m.Series, SeriesIndex: m.SeriesIndex}
}
