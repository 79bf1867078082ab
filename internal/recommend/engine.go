// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package recommend

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/folio/internal/cache"
	"github.com/tomtom215/folio/internal/catalog"
	"github.com/tomtom215/folio/internal/graph"
	"github.com/tomtom215/folio/internal/metrics"
	"github.com/tomtom215/folio/internal/recommend/algorithms"
	"github.com/tomtom215/folio/internal/recommend/reranking"
	"github.com/tomtom215/folio/internal/vector"
)

const (
	kindItem         = "item"
	kindPersonalized = "personalized"
	kindSimilar      = "similar"
)

// GraphSource provides the current similarity graph snapshot.
type GraphSource interface {
	Current() *graph.Graph
}

// VectorSource provides embeddings. Implemented by *vector.Store.
type VectorSource interface {
	Peek(id int64) (vector.Embedding, bool)
	FindSimilarToItem(ctx context.Context, id int64, k int) ([]vector.Match, error)
}

// ItemSource provides catalog metadata. Implemented by *catalog.DB.
type ItemSource interface {
	GetItems(ctx context.Context, ids []int64) (map[int64]catalog.Item, error)
	HighlyRated(ctx context.Context, minRating, limit int) ([]catalog.Item, error)
	ItemsByAuthor(ctx context.Context, author string, exclude int64, limit int) ([]catalog.Item, error)
	ItemsBySeries(ctx context.Context, series string, exclude int64, limit int) ([]catalog.Item, error)
	RecentItems(ctx context.Context, limit int) ([]catalog.Item, error)
}

// Engine ranks recommendations over the similarity graph.
// It is safe for concurrent use.
type Engine struct {
	config *Config
	logger zerolog.Logger

	graphs  GraphSource
	vectors VectorSource
	items   ItemSource

	mmr   *reranking.MMR
	cache *cache.LRU[string, []Recommendation]

	requestCount atomic.Int64
	cacheHits    atomic.Int64
	cacheMisses  atomic.Int64
	errorCount   atomic.Int64
}

// NewEngine creates a recommendation engine reading graphs from graphs.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, graphs GraphSource, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if graphs == nil {
		return nil, fmt.Errorf("invalid config: graph source is required")
	}

	cfg = cfg.Clone()
	cfg.Traversal = cfg.Traversal.Normalize()
	cfg.PageRank = cfg.PageRank.Normalize()

	e := &Engine{
		config: cfg,
		logger: logger.With().Str("component", "recommend").Logger(),
		graphs: graphs,
		mmr:    reranking.NewMMR(cfg.MMRLambda),
	}
	if cfg.Cache.Enabled {
		e.cache = cache.NewLRU[string, []Recommendation](cfg.Cache.Size, cfg.Cache.TTL)
	}
	return e, nil
}

// SetVectorSource enables embedding-based similarity for MMR and
// SimilarItems.
func (e *Engine) SetVectorSource(vs VectorSource) {
	e.vectors = vs
}

// SetItemSource enables titles, reasons and personalized recommendations.
func (e *Engine) SetItemSource(is ItemSource) {
	e.items = is
}

// Config returns a copy of the active configuration.
func (e *Engine) Config() *Config {
	return e.config.Clone()
}

// GenerateRecommendations ranks items related to source. preferences are
// additional items the reader likes; they bias PageRank but are not
// excluded from the results. limit is clamped to the configured bounds.
//
// When source has no edges at all in the current graph, typically because
// it has not been indexed yet, and cold start is enabled, the result is
// built from catalog items sharing its series or author instead. Those
// results carry Fallback. A source that has edges but whose traversal
// finds nothing still yields an empty result.
func (e *Engine) GenerateRecommendations(ctx context.Context, source int64, preferences []int64, limit int) ([]Recommendation, error) {
	start := time.Now()
	e.requestCount.Add(1)
	limit = e.clampLimit(limit)

	key := cacheKey(kindItem, source, preferences, limit)
	if recs, ok := e.cached(key); ok {
		metrics.RecordRecommendation(kindItem, "cache_hit", time.Since(start))
		return recs, nil
	}

	g := e.graphs.Current()
	recs, err := e.rank(ctx, g, source, preferences, limit, nil)
	if err != nil {
		return nil, e.fail(kindItem, start, err)
	}
	if len(recs) == 0 && e.coldStart() && len(g.Neighbors(source)) == 0 {
		recs, err = e.metadataMatches(ctx, source, limit)
	} else {
		err = e.enrich(ctx, g, recs, nil)
	}
	if err != nil {
		return nil, e.fail(kindItem, start, err)
	}

	e.store(key, recs)
	e.finish(kindItem, start, recs)
	e.logger.Debug().
		Int64("source", source).
		Int("preferences", len(preferences)).
		Int("returned", len(recs)).
		Bool("fallback", isFallback(recs)).
		Dur("latency", time.Since(start)).
		Msg("recommendations generated")
	return recs, nil
}

// PersonalizedRecommendations ranks items for the reader's taste. The
// highest rated item is the traversal source and every highly rated item
// is a preference; rated items themselves are never recommended. With no
// ratings the result is the most recent additions to the catalog when
// cold start is enabled, and empty otherwise.
func (e *Engine) PersonalizedRecommendations(ctx context.Context, limit int) ([]Recommendation, error) {
	start := time.Now()
	e.requestCount.Add(1)
	limit = e.clampLimit(limit)

	if e.items == nil {
		e.finish(kindPersonalized, start, nil)
		return []Recommendation{}, nil
	}

	key := cacheKey(kindPersonalized, 0, nil, limit)
	if recs, ok := e.cached(key); ok {
		metrics.RecordRecommendation(kindPersonalized, "cache_hit", time.Since(start))
		return recs, nil
	}

	rated, err := e.items.HighlyRated(ctx, e.config.Personalized.MinRating, e.config.Personalized.MaxItems)
	if err != nil {
		return nil, e.fail(kindPersonalized, start, fmt.Errorf("load rated items: %w", err))
	}
	if len(rated) == 0 {
		recs := []Recommendation{}
		if e.coldStart() {
			if recs, err = e.recentAdditions(ctx, limit); err != nil {
				return nil, e.fail(kindPersonalized, start, err)
			}
		}
		e.store(key, recs)
		e.finish(kindPersonalized, start, recs)
		return recs, nil
	}

	source := rated[0]
	preferences := make([]int64, len(rated))
	exclude := make(map[int64]struct{}, len(rated))
	for i := range rated {
		preferences[i] = rated[i].ID
		exclude[rated[i].ID] = struct{}{}
	}

	g := e.graphs.Current()
	recs, err := e.rank(ctx, g, source.ID, preferences, limit, exclude)
	if err != nil {
		return nil, e.fail(kindPersonalized, start, err)
	}
	if err := e.enrich(ctx, g, recs, &source); err != nil {
		return nil, e.fail(kindPersonalized, start, err)
	}

	e.store(key, recs)
	e.finish(kindPersonalized, start, recs)
	return recs, nil
}

// SimilarItems returns the k nearest items to id by embedding, each with
// the edges fusion would create and their reasons. An item without an
// embedding has no similar items.
func (e *Engine) SimilarItems(ctx context.Context, id int64, k int) ([]SimilarItem, error) {
	start := time.Now()
	e.requestCount.Add(1)
	k = e.clampLimit(k)

	if e.vectors == nil {
		metrics.RecordRecommendation(kindSimilar, "empty", time.Since(start))
		return []SimilarItem{}, nil
	}

	matches, err := e.vectors.FindSimilarToItem(ctx, id, k)
	if err != nil {
		return nil, e.fail(kindSimilar, start, fmt.Errorf("find similar: %w", err))
	}

	var items map[int64]catalog.Item
	if e.items != nil && len(matches) > 0 {
		ids := make([]int64, 0, len(matches)+1)
		ids = append(ids, id)
		for _, m := range matches {
			ids = append(ids, m.ID)
		}
		if items, err = e.items.GetItems(ctx, ids); err != nil {
			return nil, e.fail(kindSimilar, start, fmt.Errorf("load items: %w", err))
		}
	}

	source := lookup(items, id)
	out := make([]SimilarItem, 0, len(matches))
	for _, m := range matches {
		target := lookup(items, m.ID)
		similarity := m.Similarity
		edges := algorithms.ComputeAllEdgeWeights(fusionMetadata(source), fusionMetadata(target), &similarity)

		si := SimilarItem{
			ItemID:     m.ID,
			Similarity: m.Similarity,
			Edges:      edges,
			Reasons:    fusionReasons(source, target, edges),
		}
		if target != nil {
			si.Title = target.Title
			si.Author = target.Author
		}
		out = append(out, si)
	}

	status := "success"
	if len(out) == 0 {
		status = "empty"
	}
	metrics.RecordRecommendation(kindSimilar, status, time.Since(start))
	return out, nil
}

// rank runs traversal, PageRank, score fusion and MMR. Items in exclude
// are dropped before reranking.
func (e *Engine) rank(ctx context.Context, g *graph.Graph, source int64, preferences []int64, limit int, exclude map[int64]struct{}) ([]Recommendation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seeds := []int64{source}
	candidates := algorithms.MultiHopTraversal(g, seeds, e.config.Traversal)
	metrics.TraversalCandidates.Observe(float64(len(candidates)))
	if len(candidates) == 0 {
		return []Recommendation{}, nil
	}

	pagerank := algorithms.PersonalizedPageRank(g, seeds, preferences, e.config.PageRank)

	byID := make(map[int64]*algorithms.Candidate, len(candidates))
	scored := make([]reranking.Item, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		if _, skip := exclude[c.ID]; skip {
			continue
		}
		byID[c.ID] = c
		score := e.config.TraversalWeight*c.Score + e.config.PageRankWeight*pagerank[c.ID]
		scored = append(scored, reranking.Item{ID: c.ID, Score: score})
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	selected := e.mmr.Rerank(scored, e.similarity(scored), limit)

	recs := make([]Recommendation, 0, len(selected))
	for _, s := range selected {
		c := byID[s.ID]
		recs = append(recs, Recommendation{
			ItemID:         s.ID,
			Score:          s.Score,
			TraversalScore: c.Score,
			PageRankScore:  pagerank[s.ID],
			Path:           c.Path,
			EdgeTypes:      c.EdgeTypes,
		})
	}
	return recs, nil
}

// similarity returns the MMR similarity for items: embedding cosine when
// both vectors are cached, fused-score proximity otherwise.
func (e *Engine) similarity(items []reranking.Item) reranking.SimilarityFunc {
	scores := make(map[int64]float64, len(items))
	var vectors map[int64]vector.Embedding
	if e.vectors != nil {
		vectors = make(map[int64]vector.Embedding, len(items))
	}
	for _, it := range items {
		scores[it.ID] = it.Score
		if e.vectors == nil {
			continue
		}
		if v, ok := e.vectors.Peek(it.ID); ok {
			vectors[it.ID] = v
		}
	}

	return func(a, b int64) float64 {
		if va, ok := vectors[a]; ok {
			if vb, ok := vectors[b]; ok {
				return vector.CosineSimilarity(va, vb)
			}
		}
		return 1 - math.Abs(scores[a]-scores[b])
	}
}

// enrich fills titles and reasons from the catalog. Reasons describe the
// last hop of each path. basedOn, when set, adds the rated item the
// personalized ranking started from.
func (e *Engine) enrich(ctx context.Context, g *graph.Graph, recs []Recommendation, basedOn *catalog.Item) error {
	if len(recs) == 0 {
		return nil
	}

	var items map[int64]catalog.Item
	if e.items != nil {
		ids := make([]int64, 0, 2*len(recs))
		for i := range recs {
			ids = append(ids, recs[i].ItemID)
			if n := len(recs[i].Path); n >= 2 {
				ids = append(ids, recs[i].Path[n-2])
			}
		}
		var err error
		if items, err = e.items.GetItems(ctx, ids); err != nil {
			return fmt.Errorf("load items: %w", err)
		}
	}

	for i := range recs {
		rec := &recs[i]
		target := lookup(items, rec.ItemID)
		if target != nil {
			rec.Title = target.Title
			rec.Author = target.Author
		}

		rec.Reasons = make([]Reason, 0, 2)
		if n := len(rec.Path); n >= 2 && len(rec.EdgeTypes) == n-1 {
			pred := rec.Path[n-2]
			t := rec.EdgeTypes[n-2]
			if r, ok := edgeReason(lookup(items, pred), target, t, edgeWeight(g, pred, rec.ItemID, t)); ok {
				rec.Reasons = append(rec.Reasons, r)
			}
		}
		if basedOn != nil {
			rec.Reasons = append(rec.Reasons, Reason{Type: ReasonBasedOn, BasedOn: basedOn.Title})
		}
	}
	return nil
}

// metadataMatches recommends catalog items in the same series as source,
// then items by the same author. Series matches take at most half the
// limit and author matches fill the rest. An item matching both appears
// once, as a series match. An unknown source yields no matches.
func (e *Engine) metadataMatches(ctx context.Context, source int64, limit int) ([]Recommendation, error) {
	found, err := e.items.GetItems(ctx, []int64{source})
	if err != nil {
		return nil, fmt.Errorf("load source item: %w", err)
	}
	src, ok := found[source]
	if !ok {
		return []Recommendation{}, nil
	}

	bySeries, err := e.items.ItemsBySeries(ctx, src.Series, source, max(1, limit/2))
	if err != nil {
		return nil, fmt.Errorf("load series matches: %w", err)
	}
	byAuthor, err := e.items.ItemsByAuthor(ctx, src.Author, source, limit)
	if err != nil {
		return nil, fmt.Errorf("load author matches: %w", err)
	}

	recs := make([]Recommendation, 0, min(limit, len(bySeries)+len(byAuthor)))
	seen := make(map[int64]struct{}, len(bySeries))
	for i := range bySeries {
		it := &bySeries[i]
		seen[it.ID] = struct{}{}
		recs = append(recs, fallbackRecommendation(source, it, FallbackSeriesScore, graph.EdgeSeries, Reason{
			Type:     ReasonSameSeries,
			Series:   src.Series,
			Position: seriesPosition(src.SeriesIndex, it.SeriesIndex),
		}))
	}
	for i := range byAuthor {
		if len(recs) >= limit {
			break
		}
		it := &byAuthor[i]
		if _, dup := seen[it.ID]; dup {
			continue
		}
		recs = append(recs, fallbackRecommendation(source, it, FallbackAuthorScore, graph.EdgeAuthor, Reason{
			Type:   ReasonSameAuthor,
			Author: src.Author,
		}))
	}
	return recs, nil
}

// recentAdditions recommends the newest catalog items.
func (e *Engine) recentAdditions(ctx context.Context, limit int) ([]Recommendation, error) {
	items, err := e.items.RecentItems(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load recent items: %w", err)
	}
	recs := make([]Recommendation, 0, len(items))
	for i := range items {
		recs = append(recs, Recommendation{
			ItemID:    items[i].ID,
			Title:     items[i].Title,
			Author:    items[i].Author,
			Score:     FallbackRecentScore,
			Path:      []int64{items[i].ID},
			EdgeTypes: []graph.EdgeType{},
			Reasons:   []Reason{{Type: ReasonRecentlyAdded}},
			Fallback:  true,
		})
	}
	return recs, nil
}

func fallbackRecommendation(source int64, item *catalog.Item, score float64, t graph.EdgeType, reason Reason) Recommendation {
	return Recommendation{
		ItemID:    item.ID,
		Title:     item.Title,
		Author:    item.Author,
		Score:     score,
		Path:      []int64{source, item.ID},
		EdgeTypes: []graph.EdgeType{t},
		Reasons:   []Reason{reason},
		Fallback:  true,
	}
}

func (e *Engine) coldStart() bool {
	return e.items != nil && e.config.ColdStart
}

// ClearCache drops every cached result and returns how many there were.
func (e *Engine) ClearCache() int {
	if e.cache == nil {
		return 0
	}
	n := e.cache.Clear()
	if n > 0 {
		e.logger.Debug().Int("entries", n).Msg("recommendation cache cleared")
	}
	return n
}

// Stats returns engine counters.
func (e *Engine) Stats() Stats {
	s := Stats{
		Requests:    e.requestCount.Load(),
		CacheHits:   e.cacheHits.Load(),
		CacheMisses: e.cacheMisses.Load(),
		Errors:      e.errorCount.Load(),
	}
	if e.cache != nil {
		s.Cache = e.cache.Stats()
	}
	return s
}

func (e *Engine) clampLimit(limit int) int {
	if limit <= 0 {
		return e.config.Limits.DefaultLimit
	}
	return min(limit, e.config.Limits.MaxLimit)
}

func (e *Engine) cached(key string) ([]Recommendation, bool) {
	if e.cache == nil {
		return nil, false
	}
	recs, ok := e.cache.Get(key)
	if !ok {
		e.cacheMisses.Add(1)
		return nil, false
	}
	e.cacheHits.Add(1)
	return cloneRecommendations(recs), true
}

func (e *Engine) store(key string, recs []Recommendation) {
	if e.cache != nil {
		e.cache.Add(key, cloneRecommendations(recs))
	}
}

// cloneRecommendations copies recs including their slices, so callers can
// never reach the cached backing arrays.
func cloneRecommendations(recs []Recommendation) []Recommendation {
	out := make([]Recommendation, len(recs))
	for i := range recs {
		out[i] = recs[i]
		out[i].Path = slices.Clone(recs[i].Path)
		out[i].EdgeTypes = slices.Clone(recs[i].EdgeTypes)
		out[i].Reasons = slices.Clone(recs[i].Reasons)
	}
	return out
}

func (e *Engine) fail(kind string, start time.Time, err error) error {
	e.errorCount.Add(1)
	metrics.RecordRecommendation(kind, "error", time.Since(start))
	e.logger.Warn().Err(err).Str("kind", kind).Msg("recommendation failed")
	return err
}

func (e *Engine) finish(kind string, start time.Time, recs []Recommendation) {
	status := "success"
	switch {
	case len(recs) == 0:
		status = "empty"
	case isFallback(recs):
		status = "fallback"
	}
	metrics.RecordRecommendation(kind, status, time.Since(start))
}

func isFallback(recs []Recommendation) bool {
	return len(recs) > 0 && recs[0].Fallback
}

func lookup(items map[int64]catalog.Item, id int64) *catalog.Item {
	item, ok := items[id]
	if !ok {
		return nil
	}
	return &item
}

// cacheKey identifies a request shape; preference order does not matter.
func cacheKey(kind string, source int64, preferences []int64, limit int) string {
	var b strings.Builder
	b.WriteString(kind)
	b.WriteByte(':')
	b.WriteString(strconv.FormatInt(source, 10))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(limit))
	if len(preferences) > 0 {
		prefs := slices.Clone(preferences)
		slices.Sort(prefs)
		prefs = slices.Compact(prefs)
		b.WriteByte(':')
		for i, p := range prefs {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.FormatInt(p, 10))
		}
	}
	return b.String()
}
