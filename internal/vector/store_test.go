// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package vector

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func newTestStore(t *testing.T, dim int) (*Store, *BadgerBackend) {
	t.Helper()

	backend, err := OpenBadgerBackend("", true)
	if err != nil {
		t.Fatalf("OpenBadgerBackend() error = %v", err)
	}
	t.Cleanup(func() { _ = backend.Close() })

	store, err := NewStore(backend, dim, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store, backend
}

// failingBackend fails every write and read.
type failingBackend struct{ err error }

func (f failingBackend) Put(context.Context, Record) error        { return f.err }
func (f failingBackend) PutBatch(context.Context, []Record) error { return f.err }
func (f failingBackend) Get(context.Context, int64) (Record, bool, error) {
	return Record{}, false, f.err
}
func (f failingBackend) Delete(context.Context, int64) error               { return f.err }
func (f failingBackend) Iterate(context.Context, func(Record) error) error { return f.err }
func (f failingBackend) Clear(context.Context) (int, error)                { return 0, f.err }
func (f failingBackend) Close() error                                      { return nil }

func TestNewStoreValidation(t *testing.T) {
	if _, err := NewStore(nil, 3, zerolog.Nop()); err == nil {
		t.Error("expected error for nil backend")
	}
	if _, err := NewStore(failingBackend{}, 0, zerolog.Nop()); err == nil {
		t.Error("expected error for zero dimension")
	}
}

func TestStoreThenGet(t *testing.T) {
	store, _ := newTestStore(t, 3)
	ctx := context.Background()

	want := Embedding{0.1, 0.2, 0.3}
	if err := store.Store(ctx, 7, want, "nomic-embed-text", "abc"); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	got, ok, err := store.Get(ctx, 7)
	if err != nil || !ok {
		t.Fatalf("Get() = ok %v, err %v", ok, err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("value[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	// Mutating the returned slice must not affect the cache.
	got[0] = 99
	again, _, _ := store.Get(ctx, 7)
	if again[0] != want[0] {
		t.Error("cache was mutated through returned slice")
	}

	rec, ok, err := store.Lookup(ctx, 7)
	if err != nil || !ok {
		t.Fatalf("Lookup() = ok %v, err %v", ok, err)
	}
	if rec.Model != "nomic-embed-text" || rec.ContentHash != "abc" {
		t.Errorf("Lookup() = %+v", rec)
	}
}

func TestStoreRejectsWrongDimension(t *testing.T) {
	store, _ := newTestStore(t, 3)
	ctx := context.Background()

	original := Embedding{1, 2, 3}
	if err := store.Store(ctx, 1, original, "m", ""); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	err := store.Store(ctx, 1, Embedding{1, 2}, "m", "")
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("error = %v, want ErrDimensionMismatch", err)
	}

	got, _, _ := store.Get(ctx, 1)
	if len(got) != 3 || got[2] != 3 {
		t.Errorf("existing vector changed to %v", got)
	}
}

func TestStoreBatchIsAllOrNothing(t *testing.T) {
	store, _ := newTestStore(t, 2)
	ctx := context.Background()

	err := store.StoreBatch(ctx, []Record{
		{ID: 1, Vector: Embedding{1, 0}},
		{ID: 2, Vector: Embedding{1}},
	})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("error = %v, want ErrDimensionMismatch", err)
	}
	if ok, _ := store.Has(ctx, 1); ok {
		t.Error("item 1 should not have been stored")
	}
}

func TestGetMissing(t *testing.T) {
	store, _ := newTestStore(t, 2)

	e, ok, err := store.Get(context.Background(), 42)
	if err != nil || ok || e != nil {
		t.Errorf("Get() = %v, %v, %v; want nil, false, nil", e, ok, err)
	}
}

func TestGetReadsThroughBackend(t *testing.T) {
	store, backend := newTestStore(t, 2)
	ctx := context.Background()

	if err := backend.Put(ctx, Record{ID: 5, Vector: Embedding{0.5, 0.5}, Model: "m"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if ok, err := store.Has(ctx, 5); err != nil || !ok {
		t.Fatalf("Has() = %v, %v; want true", ok, err)
	}
	if _, ok := store.Peek(5); !ok {
		t.Error("read-through should populate the cache")
	}
	if stats := store.Stats(); stats.Misses != 1 {
		t.Errorf("misses = %d, want 1", stats.Misses)
	}
}

func TestStorageFailureIsWrapped(t *testing.T) {
	boom := errors.New("disk on fire")
	store, err := NewStore(failingBackend{err: boom}, 2, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := store.Store(ctx, 1, Embedding{1, 1}, "m", ""); !errors.Is(err, ErrStorage) || !errors.Is(err, boom) {
		t.Errorf("Store() error = %v, want ErrStorage wrapping cause", err)
	}
	if _, _, err := store.Get(ctx, 1); !errors.Is(err, ErrStorage) {
		t.Errorf("Get() error = %v, want ErrStorage", err)
	}
	if _, err := store.FindSimilar(ctx, Embedding{1, 1}, 3, nil); !errors.Is(err, ErrStorage) {
		t.Errorf("FindSimilar() error = %v, want ErrStorage", err)
	}
	if store.Stats().Loaded {
		t.Error("failed load must not mark the store loaded")
	}
}

func TestFindSimilar(t *testing.T) {
	store, _ := newTestStore(t, 2)
	ctx := context.Background()

	vectors := map[int64]Embedding{
		1: {1, 0},
		2: {0.9, 0.1},
		3: {0, 1},
		4: {0.7, 0.7},
		5: {-1, 0},
	}
	for id, v := range vectors {
		if err := store.Store(ctx, id, v, "m", ""); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name    string
		k       int
		exclude []int64
		want    []int64
	}{
		{"top 3", 3, nil, []int64{1, 2, 4}},
		{"exclude best", 2, []int64{1}, []int64{2, 4}},
		{"k larger than set", 10, []int64{1, 2}, []int64{4, 3, 5}},
		{"k zero", 0, nil, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.FindSimilar(ctx, Embedding{1, 0}, tt.k, tt.exclude)
			if err != nil {
				t.Fatalf("FindSimilar() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d results %v, want %v", len(got), got, tt.want)
			}
			for i := range got {
				if got[i].ID != tt.want[i] {
					t.Errorf("result[%d] = %d, want %d", i, got[i].ID, tt.want[i])
				}
				if i > 0 && got[i].Similarity > got[i-1].Similarity {
					t.Errorf("results not sorted descending at %d", i)
				}
			}
		})
	}
}

func TestFindSimilarTiesOrderedByID(t *testing.T) {
	store, _ := newTestStore(t, 2)
	ctx := context.Background()
	for _, id := range []int64{9, 3, 6} {
		if err := store.Store(ctx, id, Embedding{1, 1}, "m", ""); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.FindSimilar(ctx, Embedding{1, 1}, 3, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].ID != 3 || got[1].ID != 6 || got[2].ID != 9 {
		t.Errorf("tie order = %v, want 3, 6, 9", got)
	}
}

func TestFindSimilarToItem(t *testing.T) {
	store, _ := newTestStore(t, 2)
	ctx := context.Background()
	_ = store.Store(ctx, 1, Embedding{1, 0}, "m", "")
	_ = store.Store(ctx, 2, Embedding{1, 0.1}, "m", "")

	got, err := store.FindSimilarToItem(ctx, 1, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != 2 {
		t.Errorf("FindSimilarToItem() = %v, want [2]", got)
	}

	none, err := store.FindSimilarToItem(ctx, 99, 5)
	if err != nil || len(none) != 0 {
		t.Errorf("missing item = %v, %v; want empty", none, err)
	}
}

func TestEnsureLoadedWarmsFromBackend(t *testing.T) {
	store, backend := newTestStore(t, 2)
	ctx := context.Background()

	for id := int64(1); id <= 20; id++ {
		if err := backend.Put(ctx, Record{ID: id, Vector: Embedding{float32(id), 1}}); err != nil {
			t.Fatal(err)
		}
	}
	// Stale dimension from an older model is skipped.
	_ = backend.Put(ctx, Record{ID: 100, Vector: Embedding{1, 2, 3}})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.EnsureLoaded(ctx); err != nil {
				t.Errorf("EnsureLoaded() error = %v", err)
			}
		}()
	}
	wg.Wait()

	stats := store.Stats()
	if !stats.Loaded || stats.Cached != 20 {
		t.Errorf("stats = %+v, want loaded with 20 cached", stats)
	}

	// Warm cache is authoritative.
	if ok, _ := store.Has(ctx, 100); ok {
		t.Error("stale-dimension record should be absent")
	}
}

func TestDeleteAndClearAll(t *testing.T) {
	store, _ := newTestStore(t, 2)
	ctx := context.Background()
	for id := int64(1); id <= 3; id++ {
		_ = store.Store(ctx, id, Embedding{1, float32(id)}, "m", "")
	}

	if err := store.Delete(ctx, 2); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok, _ := store.Get(ctx, 2); ok {
		t.Error("deleted item still present")
	}

	n, err := store.ClearAll(ctx)
	if err != nil {
		t.Fatalf("ClearAll() error = %v", err)
	}
	if n != 2 {
		t.Errorf("ClearAll() = %d, want 2", n)
	}
	if store.Stats().Cached != 0 {
		t.Error("cache not empty after ClearAll")
	}
	if _, ok, _ := store.Get(ctx, 1); ok {
		t.Error("item survived ClearAll in backend")
	}
}

func TestComputeAverage(t *testing.T) {
	store, _ := newTestStore(t, 2)
	ctx := context.Background()
	_ = store.Store(ctx, 1, Embedding{1, 0}, "m", "")
	_ = store.Store(ctx, 2, Embedding{0, 1}, "m", "")

	avg, ok, err := store.ComputeAverage(ctx, []int64{1, 2, 404})
	if err != nil || !ok {
		t.Fatalf("ComputeAverage() = ok %v, err %v", ok, err)
	}
	want := float32(1 / math.Sqrt2)
	for i, v := range avg {
		if math.Abs(float64(v-want)) > 1e-6 {
			t.Errorf("avg[%d] = %f, want %f", i, v, want)
		}
	}

	_, ok, err = store.ComputeAverage(ctx, []int64{404, 405})
	if err != nil || ok {
		t.Errorf("no embeddings: ok = %v, err = %v; want false, nil", ok, err)
	}
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	store, _ := newTestStore(t, 4)
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				id := int64(w*100 + i)
				v := float32(i)
				if err := store.Store(ctx, id, Embedding{v, v, v, v}, "m", ""); err != nil {
					t.Errorf("Store() error = %v", err)
					return
				}
			}
		}(w)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				matches, err := store.FindSimilar(ctx, Embedding{1, 1, 1, 1}, 5, nil)
				if err != nil {
					t.Errorf("FindSimilar() error = %v", err)
					return
				}
				for _, m := range matches {
					if math.IsNaN(m.Similarity) {
						t.Error("observed corrupted vector")
					}
				}
			}
		}()
	}
	wg.Wait()

	if got := store.Stats().Cached; got != 200 {
		t.Errorf("cached = %d, want 200", got)
	}
}
