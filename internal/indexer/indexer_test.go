// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package indexer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/folio/internal/catalog"
	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/embedding"
	"github.com/tomtom215/folio/internal/events"
	"github.com/tomtom215/folio/internal/graph"
	"github.com/tomtom215/folio/internal/vector"
)

type fakeCatalog struct {
	mu       sync.Mutex
	items    map[int64]*catalog.Item
	edges    []graph.Edge
	models   []string
	persist  error
	list     error
	statuses map[int64][]catalog.EmbeddingStatus
	reasons  map[int64]string

	persistErr map[int64]error
}

func newFakeCatalog(items ...catalog.Item) *fakeCatalog {
	f := &fakeCatalog{
		items:    make(map[int64]*catalog.Item),
		statuses: make(map[int64][]catalog.EmbeddingStatus),
		reasons:  make(map[int64]string),

		persistErr: make(map[int64]error),
	}
	for i := range items {
		it := items[i]
		if it.EmbeddingStatus == "" {
			it.EmbeddingStatus = catalog.StatusPending
		}
		f.items[it.ID] = &it
	}
	return f
}

func (f *fakeCatalog) GetItem(_ context.Context, id int64) (*catalog.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[id]
	if !ok {
		return nil, fmt.Errorf("item %d: %w", id, catalog.ErrNotFound)
	}
	cp := *it
	return &cp, nil
}

func (f *fakeCatalog) GetItemMetadata(_ context.Context, ids []int64) (map[int64]catalog.Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int64]catalog.Metadata)
	for _, id := range ids {
		if it, ok := f.items[id]; ok {
			out[id] = it.Metadata()
		}
	}
	return out, nil
}

func (f *fakeCatalog) DeleteItem(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return fmt.Errorf("item %d: %w", id, catalog.ErrNotFound)
	}
	delete(f.items, id)
	return nil
}

func (f *fakeCatalog) SetEmbeddingStatus(_ context.Context, id int64, status catalog.EmbeddingStatus, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[id]
	if !ok {
		return catalog.ErrNotFound
	}
	it.EmbeddingStatus = status
	f.statuses[id] = append(f.statuses[id], status)
	f.reasons[id] = reason
	return nil
}

func (f *fakeCatalog) PendingEmbeddings(_ context.Context, limit int) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []int64
	for id, it := range f.items {
		if it.EmbeddingStatus == catalog.StatusPending {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (f *fakeCatalog) ItemIDsByStatus(_ context.Context, status catalog.EmbeddingStatus) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.list != nil {
		return nil, f.list
	}
	ids := []int64{}
	for id, it := range f.items {
		if it.EmbeddingStatus == status {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (f *fakeCatalog) ReplaceEdgesFor(_ context.Context, id int64, edges []graph.Edge, model string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.persistErr[id]; err != nil {
		return err
	}
	if f.persist != nil {
		return f.persist
	}
	kept := f.edges[:0]
	for _, e := range f.edges {
		if e.Source != id {
			kept = append(kept, e)
		}
	}
	f.edges = append(kept, edges...)
	f.models = append(f.models, model)
	return nil
}

func (f *fakeCatalog) edgesFrom(id int64) []graph.Edge {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []graph.Edge
	for _, e := range f.edges {
		if e.Source == id {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeCatalog) status(id int64) catalog.EmbeddingStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id].EmbeddingStatus
}

type fakeVectors struct {
	mu      sync.Mutex
	records map[int64]vector.Record
	matches []vector.Match
	deleted []int64
}

func newFakeVectors() *fakeVectors {
	return &fakeVectors{records: make(map[int64]vector.Record)}
}

func (f *fakeVectors) Lookup(_ context.Context, id int64) (vector.Record, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	return r, ok, nil
}

func (f *fakeVectors) Store(_ context.Context, id int64, e vector.Embedding, model, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[id] = vector.Record{ID: id, Vector: e, Model: model, ContentHash: hash}
	return nil
}

func (f *fakeVectors) FindSimilarToItem(_ context.Context, id int64, k int) ([]vector.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []vector.Match
	for _, m := range f.matches {
		if m.ID != id {
			out = append(out, m)
		}
	}
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (f *fakeVectors) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeProvider struct {
	mu    sync.Mutex
	calls int
	texts []string
	err   error
}

func (p *fakeProvider) Embed(_ context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.texts = append(p.texts, text)
	if p.err != nil {
		return nil, p.err
	}
	return []float32{1, 0, 0}, nil
}

func (p *fakeProvider) Model() string { return "test-model" }

type countingRebuilder struct {
	mu    sync.Mutex
	count int
}

func (r *countingRebuilder) RequestRebuild() {
	r.mu.Lock()
	r.count++
	r.mu.Unlock()
}

type recordingPublisher struct {
	jobs []events.IndexJob
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, job events.IndexJob) error {
	if p.err != nil {
		return p.err
	}
	p.jobs = append(p.jobs, job)
	return nil
}

func ptr[T any](v T) *T { return &v }

func testConfig() *config.IndexerConfig {
	return &config.IndexerConfig{NeighborK: 10, MinSimilarity: 0.3, MinEdgeWeight: 0.3}
}

type fixture struct {
	catalog  *fakeCatalog
	vectors  *fakeVectors
	provider *fakeProvider
	rebuild  *countingRebuilder
	indexer  *Indexer
}

func newFixture(items ...catalog.Item) *fixture {
	f := &fixture{
		catalog:  newFakeCatalog(items...),
		vectors:  newFakeVectors(),
		provider: &fakeProvider{},
		rebuild:  &countingRebuilder{},
	}
	f.indexer = New(f.catalog, f.vectors, f.provider, f.rebuild, testConfig(), zerolog.Nop())
	return f
}

func library() []catalog.Item {
	return []catalog.Item{
		{ID: 1, Title: "A Wizard of Earthsea", Author: "Le Guin", Series: "Earthsea", SeriesIndex: ptr(1.0)},
		{ID: 2, Title: "The Tombs of Atuan", Author: "Le Guin", Series: "Earthsea", SeriesIndex: ptr(2.0)},
		{ID: 3, Title: "Dune", Author: "Herbert"},
		{ID: 4, Title: "Unrelated", Author: "Someone"},
	}
}

func TestIndexItemPipeline(t *testing.T) {
	f := newFixture(library()...)
	f.vectors.matches = []vector.Match{
		{ID: 2, Similarity: 0.8},
		{ID: 3, Similarity: 0.5},
		{ID: 4, Similarity: 0.1}, // below min similarity
	}

	res, err := f.indexer.IndexItem(context.Background(), 1, false)
	if err != nil {
		t.Fatalf("IndexItem: %v", err)
	}
	if res.Status != StatusIndexed {
		t.Errorf("status = %q, want indexed", res.Status)
	}

	// 1->2: content, author, series. 1->3: content.
	if res.Edges != 4 || len(f.catalog.edges) != 4 {
		t.Fatalf("edges = %d (%+v), want 4", res.Edges, f.catalog.edges)
	}
	types := make(map[int64][]graph.EdgeType)
	for _, e := range f.catalog.edges {
		if e.Source != 1 {
			t.Errorf("edge source = %d, want 1", e.Source)
		}
		if !e.Valid() {
			t.Errorf("invalid edge %+v", e)
		}
		types[e.Target] = append(types[e.Target], e.Type)
	}
	if len(types[2]) != 3 || len(types[3]) != 1 || types[3][0] != graph.EdgeContent {
		t.Errorf("edge types = %v", types)
	}
	if _, ok := types[4]; ok {
		t.Error("edge created below min similarity")
	}
	if f.catalog.models[0] != "test-model" {
		t.Errorf("model version = %q", f.catalog.models[0])
	}

	rec, ok := f.vectors.records[1]
	if !ok || rec.Model != "test-model" || rec.ContentHash == "" {
		t.Errorf("stored record = %+v", rec)
	}
	if got := f.catalog.status(1); got != catalog.StatusComplete {
		t.Errorf("status = %q, want complete", got)
	}
	if f.rebuild.count != 1 {
		t.Errorf("rebuild requests = %d, want 1", f.rebuild.count)
	}
	want := embedding.ItemText("A Wizard of Earthsea", "Le Guin", "Earthsea", "")
	if f.provider.texts[0] != want {
		t.Errorf("embedded text = %q, want %q", f.provider.texts[0], want)
	}
}

func TestIndexItemUnchanged(t *testing.T) {
	f := newFixture(library()...)
	ctx := context.Background()

	if _, err := f.indexer.IndexItem(ctx, 3, false); err != nil {
		t.Fatal(err)
	}
	res, err := f.indexer.IndexItem(ctx, 3, false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusUnchanged {
		t.Errorf("status = %q, want unchanged", res.Status)
	}
	if f.provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1", f.provider.calls)
	}

	if _, err := f.indexer.IndexItem(ctx, 3, true); err != nil {
		t.Fatal(err)
	}
	if f.provider.calls != 2 {
		t.Errorf("forced reindex did not call the provider: %d calls", f.provider.calls)
	}
}

func TestIndexItemTextChanged(t *testing.T) {
	f := newFixture(library()...)
	ctx := context.Background()

	if _, err := f.indexer.IndexItem(ctx, 3, false); err != nil {
		t.Fatal(err)
	}
	f.catalog.mu.Lock()
	f.catalog.items[3].Description = "Spice and sandworms."
	f.catalog.mu.Unlock()

	res, err := f.indexer.IndexItem(ctx, 3, false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusIndexed || f.provider.calls != 2 {
		t.Errorf("status = %q, calls = %d; want re-embedding", res.Status, f.provider.calls)
	}
}

func TestIndexItemProviderFailure(t *testing.T) {
	f := newFixture(library()...)
	f.provider.err = fmt.Errorf("%w: connection refused", embedding.ErrProvider)

	_, err := f.indexer.IndexItem(context.Background(), 1, false)
	if !errors.Is(err, embedding.ErrProvider) {
		t.Fatalf("err = %v, want ErrProvider", err)
	}
	if got := f.catalog.status(1); got != catalog.StatusFailed {
		t.Errorf("status = %q, want failed", got)
	}
	if f.catalog.reasons[1] == "" {
		t.Error("failure reason not recorded")
	}
	if _, ok := f.vectors.records[1]; ok {
		t.Error("embedding stored despite provider failure")
	}
	if f.rebuild.count != 0 {
		t.Errorf("rebuild requested after failure")
	}
}

func TestIndexItemPersistFailure(t *testing.T) {
	f := newFixture(library()...)
	f.vectors.matches = []vector.Match{{ID: 2, Similarity: 0.9}}
	f.catalog.persist = catalog.ErrStorage

	if _, err := f.indexer.IndexItem(context.Background(), 1, false); !errors.Is(err, catalog.ErrStorage) {
		t.Fatalf("err = %v, want ErrStorage", err)
	}
	if got := f.catalog.status(1); got != catalog.StatusFailed {
		t.Errorf("status = %q, want failed", got)
	}
}

func TestIndexItemNotFound(t *testing.T) {
	f := newFixture()

	if _, err := f.indexer.IndexItem(context.Background(), 99, false); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if f.provider.calls != 0 {
		t.Error("provider called for a missing item")
	}
}

func TestUpdateEdgesMinEdgeWeight(t *testing.T) {
	f := newFixture(library()...)
	f.indexer.cfg.MinEdgeWeight = 0.9
	f.vectors.matches = []vector.Match{{ID: 2, Similarity: 0.5}}

	n, err := f.indexer.UpdateEdges(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	// content 0.5 and author 0.85 are dropped; series 0.95 survives.
	if n != 1 || f.catalog.edges[0].Type != graph.EdgeSeries {
		t.Errorf("edges = %+v, want only series", f.catalog.edges)
	}
}

func TestUpdateEdgesNoNeighbors(t *testing.T) {
	f := newFixture(library()...)
	f.catalog.edges = []graph.Edge{
		{Source: 1, Target: 3, Type: graph.EdgeContent, Weight: 0.6},
		{Source: 3, Target: 1, Type: graph.EdgeContent, Weight: 0.6},
	}

	n, err := f.indexer.UpdateEdges(context.Background(), 1)
	if err != nil || n != 0 {
		t.Errorf("UpdateEdges = %d, %v; want 0, nil", n, err)
	}
	if got := f.catalog.edgesFrom(1); len(got) != 0 {
		t.Errorf("stale outgoing edges kept: %+v", got)
	}
	if got := f.catalog.edgesFrom(3); len(got) != 1 {
		t.Errorf("incoming edge from 3 removed: %+v", f.catalog.edges)
	}
}

func TestUpdateEdgesDropsStaleAuthorEdge(t *testing.T) {
	f := newFixture(library()...)
	f.vectors.matches = []vector.Match{{ID: 3, Similarity: 0.6}}
	ctx := context.Background()

	f.catalog.mu.Lock()
	f.catalog.items[1].Author = "Herbert"
	f.catalog.items[1].Series = ""
	f.catalog.mu.Unlock()
	if n, err := f.indexer.UpdateEdges(ctx, 1); err != nil || n != 2 {
		t.Fatalf("UpdateEdges = %d, %v; want content and author", n, err)
	}

	f.catalog.mu.Lock()
	f.catalog.items[1].Author = "Le Guin"
	f.catalog.mu.Unlock()
	n, err := f.indexer.UpdateEdges(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}

	edges := f.catalog.edgesFrom(1)
	if n != 1 || len(edges) != 1 || edges[0].Type != graph.EdgeContent {
		t.Errorf("edges after author change = %+v, want only content", edges)
	}
}

func TestUpdateEdgesSkipsUncataloguedNeighbors(t *testing.T) {
	f := newFixture(library()...)
	f.vectors.matches = []vector.Match{{ID: 3, Similarity: 0.7}, {ID: 500, Similarity: 0.9}}

	n, err := f.indexer.UpdateEdges(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 || f.catalog.edges[0].Target != 3 {
		t.Errorf("edges = %+v", f.catalog.edges)
	}
}

func TestHandleJob(t *testing.T) {
	f := newFixture(library()...)
	ctx := context.Background()

	if err := f.indexer.HandleJob(ctx, events.NewIndexJob(1, events.ReasonUpsert)); err != nil {
		t.Errorf("HandleJob: %v", err)
	}
	if err := f.indexer.HandleJob(ctx, events.NewIndexJob(404, events.ReasonUpsert)); err != nil {
		t.Errorf("missing item should be acknowledged, got %v", err)
	}

	f.provider.err = embedding.ErrUnavailable
	job := events.NewIndexJob(2, events.ReasonManual)
	if err := f.indexer.HandleJob(ctx, job); !errors.Is(err, embedding.ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable for retry", err)
	}
}

func TestBackfill(t *testing.T) {
	items := library()
	items[0].EmbeddingStatus = catalog.StatusComplete
	f := newFixture(items...)
	pub := &recordingPublisher{}

	n, err := f.indexer.Backfill(context.Background(), pub, 10)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 || len(pub.jobs) != 3 {
		t.Fatalf("queued %d (%d jobs), want 3", n, len(pub.jobs))
	}
	for i, want := range []int64{2, 3, 4} {
		if pub.jobs[i].ItemID != want || pub.jobs[i].Reason != events.ReasonBackfill {
			t.Errorf("job[%d] = %+v", i, pub.jobs[i])
		}
	}

	pub.err = events.ErrClosed
	if _, err := f.indexer.Backfill(context.Background(), pub, 10); !errors.Is(err, events.ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
}

func TestForget(t *testing.T) {
	f := newFixture(library()...)
	ctx := context.Background()
	if _, err := f.indexer.IndexItem(ctx, 3, false); err != nil {
		t.Fatal(err)
	}

	if err := f.indexer.Forget(ctx, 3); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if _, err := f.catalog.GetItem(ctx, 3); !errors.Is(err, catalog.ErrNotFound) {
		t.Error("item still in catalog")
	}
	if len(f.vectors.deleted) != 1 || f.vectors.deleted[0] != 3 {
		t.Errorf("deleted embeddings = %v", f.vectors.deleted)
	}
	if f.rebuild.count != 2 {
		t.Errorf("rebuild requests = %d, want 2", f.rebuild.count)
	}

	if err := f.indexer.Forget(ctx, 3); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("second Forget err = %v, want ErrNotFound", err)
	}
}

func TestRebuildEdges(t *testing.T) {
	items := library()
	for i := range items {
		items[i].EmbeddingStatus = catalog.StatusComplete
	}
	items[3].EmbeddingStatus = catalog.StatusPending
	f := newFixture(items...)
	f.vectors.matches = []vector.Match{{ID: 1, Similarity: 0.9}, {ID: 2, Similarity: 0.9}}
	f.catalog.edges = []graph.Edge{{Source: 3, Target: 4, Type: graph.EdgeContent, Weight: 0.5}}
	f.catalog.persistErr[2] = catalog.ErrStorage

	res, err := f.indexer.RebuildEdges(context.Background())
	if err != nil {
		t.Fatalf("RebuildEdges: %v", err)
	}
	// 1->2: content, author, series. 3->1 and 3->2: content each.
	if res.Items != 2 || res.Failed != 1 || res.Edges != 5 {
		t.Errorf("result = %+v, want 2 items, 1 failed, 5 edges", res)
	}
	for _, e := range f.catalog.edgesFrom(3) {
		if e.Target == 4 {
			t.Error("stale edge 3->4 survived the rebuild")
		}
	}
	if f.rebuild.count != 1 {
		t.Errorf("rebuild requests = %d, want 1", f.rebuild.count)
	}
	if f.provider.calls != 0 {
		t.Errorf("provider called %d times during edge rebuild", f.provider.calls)
	}
}

func TestRebuildEdgesErrors(t *testing.T) {
	f := newFixture(library()...)
	f.catalog.list = catalog.ErrStorage
	if _, err := f.indexer.RebuildEdges(context.Background()); !errors.Is(err, catalog.ErrStorage) {
		t.Errorf("err = %v, want ErrStorage", err)
	}

	items := library()
	items[0].EmbeddingStatus = catalog.StatusComplete
	f = newFixture(items...)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.indexer.RebuildEdges(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if f.rebuild.count != 0 {
		t.Errorf("rebuild requested after cancellation")
	}
}

func TestRebuildEdgesEmpty(t *testing.T) {
	f := newFixture(library()...)

	res, err := f.indexer.RebuildEdges(context.Background())
	if err != nil || res.Items != 0 || res.Edges != 0 {
		t.Errorf("RebuildEdges = %+v, %v; want nothing processed", res, err)
	}
	if f.rebuild.count != 0 {
		t.Errorf("rebuild requested with nothing processed")
	}
}
