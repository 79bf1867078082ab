// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/tomtom215/folio/internal/catalog"
	"github.com/tomtom215/folio/internal/embedding"
	"github.com/tomtom215/folio/internal/events"
	"github.com/tomtom215/folio/internal/graph"
	"github.com/tomtom215/folio/internal/indexer"
	"github.com/tomtom215/folio/internal/recommend"
	"github.com/tomtom215/folio/internal/vector"
)

// ===================================================================================================
// Fakes
// ===================================================================================================

type fakeCatalog struct {
	mu       sync.Mutex
	items    map[int64]*catalog.Item
	upserted []*catalog.Item
	getErr   error
	upErr    error
	pingErr  error
	countErr error
	edges    int
}

func newFakeCatalog(items ...*catalog.Item) *fakeCatalog {
	c := &fakeCatalog{items: map[int64]*catalog.Item{}}
	for _, it := range items {
		c.items[it.ID] = it
	}
	return c
}

func (c *fakeCatalog) GetItem(_ context.Context, id int64) (*catalog.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	it, ok := c.items[id]
	if !ok {
		return nil, fmt.Errorf("item %d: %w", id, catalog.ErrNotFound)
	}
	return it, nil
}

func (c *fakeCatalog) UpsertItem(_ context.Context, item *catalog.Item) (*catalog.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.upErr != nil {
		return nil, c.upErr
	}
	stored := *item
	if prev, ok := c.items[item.ID]; ok {
		stored.EmbeddingStatus = prev.EmbeddingStatus
	} else {
		stored.EmbeddingStatus = catalog.StatusPending
	}
	c.items[item.ID] = &stored
	c.upserted = append(c.upserted, item)
	return &stored, nil
}

func (c *fakeCatalog) Ping(context.Context) error { return c.pingErr }

func (c *fakeCatalog) CountItems(context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.countErr != nil {
		return 0, c.countErr
	}
	return len(c.items), nil
}

func (c *fakeCatalog) CountEdges(context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.countErr != nil {
		return 0, c.countErr
	}
	return c.edges, nil
}

type recCall struct {
	source int64
	prefs  []int64
	limit  int
}

type fakeRecommender struct {
	mu        sync.Mutex
	recs      []recommend.Recommendation
	similar   []recommend.SimilarItem
	err       error
	calls     []recCall
	similarK  []int
	clears    int
	cacheSize int
}

func (f *fakeRecommender) GenerateRecommendations(_ context.Context, source int64, prefs []int64, limit int) ([]recommend.Recommendation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recCall{source: source, prefs: prefs, limit: limit})
	return f.recs, f.err
}

func (f *fakeRecommender) PersonalizedRecommendations(_ context.Context, limit int) ([]recommend.Recommendation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recCall{limit: limit})
	return f.recs, f.err
}

func (f *fakeRecommender) SimilarItems(_ context.Context, _ int64, k int) ([]recommend.SimilarItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.similarK = append(f.similarK, k)
	return f.similar, f.err
}

func (f *fakeRecommender) ClearCache() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	n := f.cacheSize
	f.cacheSize = 0
	return n
}

func (f *fakeRecommender) Stats() recommend.Stats {
	return recommend.Stats{Requests: int64(len(f.calls))}
}

type fakeGraphs struct {
	g          *graph.Graph
	stats      graph.Stats
	rebuildErr error
	rebuilds   int
}

func (f *fakeGraphs) Current() *graph.Graph {
	if f.g == nil {
		return graph.New()
	}
	return f.g
}

func (f *fakeGraphs) Stats() graph.Stats { return f.stats }

func (f *fakeGraphs) Rebuild(context.Context) (graph.Stats, error) {
	f.rebuilds++
	if f.rebuildErr != nil {
		return graph.Stats{}, f.rebuildErr
	}
	f.stats.Generation++
	return f.stats, nil
}

type fakeVectors struct {
	stats    vector.Stats
	count    int
	clearErr error
}

func (f *fakeVectors) Stats() vector.Stats { return f.stats }

func (f *fakeVectors) ClearAll(context.Context) (int, error) {
	if f.clearErr != nil {
		return 0, f.clearErr
	}
	n := f.count
	f.count = 0
	return n, nil
}

type fakeIndexer struct {
	result    indexer.Result
	rebuild   indexer.RebuildResult
	err       error
	rebuilds  int
	forgetErr error
	indexed   []int64
	forced    []bool
	forgotten []int64
}

func (f *fakeIndexer) IndexItem(_ context.Context, id int64, force bool) (indexer.Result, error) {
	f.indexed = append(f.indexed, id)
	f.forced = append(f.forced, force)
	if f.err != nil {
		return indexer.Result{}, f.err
	}
	res := f.result
	res.ItemID = id
	return res, nil
}

func (f *fakeIndexer) RebuildEdges(context.Context) (indexer.RebuildResult, error) {
	f.rebuilds++
	if f.err != nil {
		return indexer.RebuildResult{}, f.err
	}
	return f.rebuild, nil
}

func (f *fakeIndexer) Forget(_ context.Context, id int64) error {
	if f.forgetErr != nil {
		return f.forgetErr
	}
	f.forgotten = append(f.forgotten, id)
	return nil
}

type fakePublisher struct {
	mu   sync.Mutex
	jobs []events.IndexJob
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, job events.IndexJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.jobs = append(p.jobs, job)
	return nil
}

type fakeEmbeddingHealth struct {
	health embedding.Health
}

func (f *fakeEmbeddingHealth) HealthCheck(context.Context) embedding.Health { return f.health }

type fakeQueue struct{ published, dropped int64 }

func (f *fakeQueue) Stats() (int64, int64) { return f.published, f.dropped }

// ===================================================================================================
// Test harness
// ===================================================================================================

type testEnv struct {
	catalog     *fakeCatalog
	recommender *fakeRecommender
	graphs      *fakeGraphs
	vectors     *fakeVectors
	indexer     *fakeIndexer
	publisher   *fakePublisher
	embedding   *fakeEmbeddingHealth
	queue       *fakeQueue
}

func newTestEnv() *testEnv {
	return &testEnv{
		catalog:     newFakeCatalog(&catalog.Item{ID: 1, Title: "Dune", Author: "Frank Herbert", EmbeddingStatus: catalog.StatusComplete}),
		recommender: &fakeRecommender{},
		graphs:      &fakeGraphs{},
		vectors:     &fakeVectors{},
		indexer:     &fakeIndexer{result: indexer.Result{Status: indexer.StatusIndexed, Edges: 3}},
		publisher:   &fakePublisher{},
		embedding:   &fakeEmbeddingHealth{health: embedding.Health{Connected: true, ModelAvailable: true, Model: "nomic-embed-text"}},
		queue:       &fakeQueue{},
	}
}

func (e *testEnv) deps() Deps {
	return Deps{
		Catalog:     e.catalog,
		Recommender: e.recommender,
		Graphs:      e.graphs,
		Vectors:     e.vectors,
		Indexer:     e.indexer,
		Publisher:   e.publisher,
		Queue:       e.queue,
		Embedding:   e.embedding,
		Version:     "test",
	}
}

func (e *testEnv) server(t *testing.T) http.Handler {
	t.Helper()
	return newTestServer(t, e.deps())
}

func newTestServer(t *testing.T, deps Deps) http.Handler {
	t.Helper()
	h, err := NewHandler(deps)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	mw := NewChiMiddleware(&ChiMiddlewareConfig{RateLimitDisabled: true})
	return NewRouter(h, mw).SetupChi()
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

func do(t *testing.T, srv http.Handler, method, target string, body io.Reader) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec, env
}

func decodeData(t *testing.T, env envelope, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, env envelope, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Errorf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	if env.Success {
		t.Error("success = true, want false")
	}
	if env.Error == nil {
		t.Fatal("error body missing")
	}
	if env.Error.Code != code {
		t.Errorf("error code = %s, want %s", env.Error.Code, code)
	}
}
