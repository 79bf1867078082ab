// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package vector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/folio/internal/metrics"
)

// DefaultDimension is the embedding length produced by nomic-embed-text.
const DefaultDimension = 768

// Match is one nearest-neighbor result.
type Match struct {
	ID         int64   `json:"id"`
	Similarity float64 `json:"similarity"`
}

// Stats describes the cache state.
type Stats struct {
	Cached    int   `json:"cached"`
	Dimension int   `json:"dimension"`
	Loaded    bool  `json:"loaded"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
}

// Store caches embeddings in memory in front of a durable Backend.
//
// Cached vectors are never mutated in place; writers replace the slice under
// the lock, so readers holding a reference always see a complete vector.
// Backend I/O is never performed while mu is held.
type Store struct {
	backend Backend
	dim     int
	logger  zerolog.Logger

	mu    sync.RWMutex
	cache map[int64]Embedding

	// loading is set while EnsureLoaded scans the backend. Deletes that
	// happen meanwhile are recorded in tombstones so the scan cannot bring
	// them back.
	loading    bool
	tombstones map[int64]struct{}
	clearedMid bool

	loadMu sync.Mutex
	loaded atomic.Bool

	hits   atomic.Int64
	misses atomic.Int64
}

// NewStore creates a Store for vectors of length dim.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewStore(backend Backend, dim int, logger zerolog.Logger) (*Store, error) {
	if backend == nil {
		return nil, errors.New("vector backend is required")
	}
	if dim <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive, got %d", dim)
	}
	return &Store{
		backend: backend,
		dim:     dim,
		logger:  logger.With().Str("component", "vector").Logger(),
		cache:   make(map[int64]Embedding),
	}, nil
}

// Dimension returns the configured vector length.
func (s *Store) Dimension() int {
	return s.dim
}

// Store persists e for id, replacing any prior value, then updates the cache.
// A vector of the wrong length is rejected and leaves existing state alone.
func (s *Store) Store(ctx context.Context, id int64, e Embedding, model, contentHash string) error {
	return s.StoreBatch(ctx, []Record{{ID: id, Vector: e, Model: model, ContentHash: contentHash}})
}

// StoreBatch persists all records atomically. Nothing is written if any
// vector has the wrong length or the backend write fails.
func (s *Store) StoreBatch(ctx context.Context, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}

	start := time.Now()
	now := start.UTC()
	owned := make([]Record, len(recs))
	for i, rec := range recs {
		if len(rec.Vector) != s.dim {
			metrics.VectorOperations.WithLabelValues("store", "rejected").Inc()
			return fmt.Errorf("%w: item %d has %d values, want %d", ErrDimensionMismatch, rec.ID, len(rec.Vector), s.dim)
		}
		rec.Vector = rec.Vector.Clone()
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		owned[i] = rec
	}

	if err := s.backend.PutBatch(ctx, owned); err != nil {
		metrics.VectorOperations.WithLabelValues("store", "error").Inc()
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}

	s.mu.Lock()
	for _, rec := range owned {
		s.cache[rec.ID] = rec.Vector
	}
	size := len(s.cache)
	s.mu.Unlock()

	metrics.VectorCacheSize.Set(float64(size))
	metrics.VectorOperations.WithLabelValues("store", "success").Add(float64(len(owned)))
	metrics.VectorOperationDuration.WithLabelValues("store").Observe(time.Since(start).Seconds())
	return nil
}

// Peek returns a copy of the cached vector for id without touching the
// backend.
func (s *Store) Peek(id int64) (Embedding, bool) {
	s.mu.RLock()
	e, ok := s.cache[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// Get returns the vector for id, reading through to the backend on a cache
// miss. A missing embedding returns ok=false and a nil error.
func (s *Store) Get(ctx context.Context, id int64) (Embedding, bool, error) {
	if e, ok := s.Peek(id); ok {
		s.hits.Add(1)
		metrics.VectorCacheHits.Inc()
		return e, true, nil
	}
	s.misses.Add(1)
	metrics.VectorCacheMisses.Inc()

	rec, ok, err := s.backend.Get(ctx, id)
	if err != nil {
		metrics.VectorOperations.WithLabelValues("get", "error").Inc()
		return nil, false, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if !ok {
		return nil, false, nil
	}
	if len(rec.Vector) != s.dim {
		s.logger.Warn().Int64("item_id", id).Int("length", len(rec.Vector)).
			Msg("Ignoring stored embedding with stale dimension")
		return nil, false, nil
	}

	s.insertIfAbsent(id, rec.Vector)
	return rec.Vector.Clone(), true, nil
}

// Lookup returns the durable record for id, including its model tag and
// content hash.
func (s *Store) Lookup(ctx context.Context, id int64) (Record, bool, error) {
	rec, ok, err := s.backend.Get(ctx, id)
	if err != nil {
		return Record{}, false, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return rec, ok, nil
}

// Has reports whether id has an embedding. Once the cache is warm it is
// authoritative and the backend is not consulted.
func (s *Store) Has(ctx context.Context, id int64) (bool, error) {
	s.mu.RLock()
	_, ok := s.cache[id]
	s.mu.RUnlock()
	if ok || s.loaded.Load() {
		return ok, nil
	}

	_, ok, err := s.Get(ctx, id)
	return ok, err
}

func (s *Store) insertIfAbsent(id int64, e Embedding) {
	s.mu.Lock()
	if _, exists := s.cache[id]; !exists {
		s.cache[id] = e
	}
	s.mu.Unlock()
}

// EnsureLoaded fills the cache from the backend once. Concurrent callers
// wait for the same load. A failed load is retried by the next caller.
// Entries written or deleted while the load runs take precedence over what
// the scan read.
func (s *Store) EnsureLoaded(ctx context.Context) error {
	if s.loaded.Load() {
		return nil
	}

	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if s.loaded.Load() {
		return nil
	}

	start := time.Now()
	s.mu.Lock()
	s.loading = true
	s.tombstones = make(map[int64]struct{})
	s.clearedMid = false
	s.mu.Unlock()

	loaded := make(map[int64]Embedding)
	skipped := 0
	err := s.backend.Iterate(ctx, func(rec Record) error {
		if len(rec.Vector) != s.dim {
			skipped++
			return nil
		}
		loaded[rec.ID] = rec.Vector
		return nil
	})

	s.mu.Lock()
	if err == nil && !s.clearedMid {
		for id, e := range loaded {
			if _, deleted := s.tombstones[id]; deleted {
				continue
			}
			if _, exists := s.cache[id]; !exists {
				s.cache[id] = e
			}
		}
	}
	s.loading = false
	s.tombstones = nil
	size := len(s.cache)
	s.mu.Unlock()

	if err != nil {
		metrics.VectorOperations.WithLabelValues("load", "error").Inc()
		return fmt.Errorf("%w: load embeddings: %w", ErrStorage, err)
	}

	s.loaded.Store(true)
	metrics.VectorCacheSize.Set(float64(size))
	metrics.VectorOperationDuration.WithLabelValues("load").Observe(time.Since(start).Seconds())

	event := s.logger.Info().Int("cached", size).Dur("duration", time.Since(start))
	if skipped > 0 {
		event = event.Int("skipped_stale_dimension", skipped)
	}
	event.Msg("Embedding cache warmed")
	return nil
}

// FindSimilar returns up to k cached items most similar to query, best
// first. Items in exclude are skipped. Equal similarities are ordered by
// ascending id.
func (s *Store) FindSimilar(ctx context.Context, query Embedding, k int, exclude []int64) ([]Match, error) {
	if k <= 0 || len(query) == 0 {
		return []Match{}, nil
	}
	if err := s.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	start := time.Now()

	skip := make(map[int64]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}

	// Snapshot references under the read lock; cached slices are immutable.
	type entry struct {
		id  int64
		vec Embedding
	}
	s.mu.RLock()
	entries := make([]entry, 0, len(s.cache))
	for id, vec := range s.cache {
		if _, excluded := skip[id]; excluded {
			continue
		}
		entries = append(entries, entry{id: id, vec: vec})
	}
	s.mu.RUnlock()

	matches := make([]Match, len(entries))
	for i, e := range entries {
		matches[i] = Match{ID: e.id, Similarity: CosineSimilarity(query, e.vec)}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].ID < matches[j].ID
	})
	if len(matches) > k {
		matches = matches[:k]
	}

	metrics.VectorOperations.WithLabelValues("find_similar", "success").Inc()
	metrics.VectorOperationDuration.WithLabelValues("find_similar").Observe(time.Since(start).Seconds())
	return matches, nil
}

// FindSimilarToItem is FindSimilar seeded with id's own embedding, excluding
// id itself. An item without an embedding yields an empty result.
func (s *Store) FindSimilarToItem(ctx context.Context, id int64, k int) ([]Match, error) {
	e, ok, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []Match{}, nil
	}
	return s.FindSimilar(ctx, e, k, []int64{id})
}

// Delete removes id from the backend and the cache.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if err := s.backend.Delete(ctx, id); err != nil {
		metrics.VectorOperations.WithLabelValues("delete", "error").Inc()
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}

	s.mu.Lock()
	delete(s.cache, id)
	if s.loading {
		s.tombstones[id] = struct{}{}
	}
	size := len(s.cache)
	s.mu.Unlock()

	metrics.VectorCacheSize.Set(float64(size))
	metrics.VectorOperations.WithLabelValues("delete", "success").Inc()
	return nil
}

// ClearAll removes every embedding and returns how many were removed from
// the backend.
func (s *Store) ClearAll(ctx context.Context) (int, error) {
	n, err := s.backend.Clear(ctx)
	if err != nil {
		metrics.VectorOperations.WithLabelValues("clear", "error").Inc()
		return 0, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	s.mu.Lock()
	s.cache = make(map[int64]Embedding)
	if s.loading {
		s.clearedMid = true
	}
	s.mu.Unlock()

	metrics.VectorCacheSize.Set(0)
	metrics.VectorOperations.WithLabelValues("clear", "success").Inc()
	s.logger.Info().Int("removed", n).Msg("Cleared all embeddings")
	return n, nil
}

// ComputeAverage returns the L2-normalized mean of the embeddings of ids.
// Ids without an embedding are skipped; ok is false when none had one.
func (s *Store) ComputeAverage(ctx context.Context, ids []int64) (Embedding, bool, error) {
	sum := make([]float64, s.dim)
	found := 0
	for _, id := range ids {
		e, ok, err := s.Get(ctx, id)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			continue
		}
		for i, v := range e {
			sum[i] += float64(v)
		}
		found++
	}
	if found == 0 {
		return nil, false, nil
	}

	for i := range sum {
		sum[i] /= float64(found)
	}
	return normalize(sum), true, nil
}

// Stats returns a snapshot of cache statistics.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	cached := len(s.cache)
	s.mu.RUnlock()

	return Stats{
		Cached:    cached,
		Dimension: s.dim,
		Loaded:    s.loaded.Load(),
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
	}
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
