// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

func sample(method, route string, status int, d time.Duration) RequestSample {
	return RequestSample{Method: method, Route: route, Status: status, Duration: d, Timestamp: time.Now()}
}

func TestNewLatencyMonitor_DefaultWindow(t *testing.T) {
	t.Parallel()

	m := NewLatencyMonitor(0, 0, zerolog.Nop())
	if len(m.samples) != DefaultLatencyWindow {
		t.Errorf("window = %d, want %d", len(m.samples), DefaultLatencyWindow)
	}
}

func TestLatencyMonitor_SlidingWindow(t *testing.T) {
	t.Parallel()

	m := NewLatencyMonitor(3, 0, zerolog.Nop())
	for i := 1; i <= 5; i++ {
		m.Record(sample(http.MethodGet, "/r", http.StatusOK, time.Duration(i)*time.Millisecond))
	}

	recent := m.Recent(10)
	if len(recent) != 3 {
		t.Fatalf("Recent() returned %d samples, want 3", len(recent))
	}
	for i, want := range []time.Duration{3 * time.Millisecond, 4 * time.Millisecond, 5 * time.Millisecond} {
		if recent[i].Duration != want {
			t.Errorf("recent[%d] = %v, want %v", i, recent[i].Duration, want)
		}
	}

	last := m.Recent(1)
	if len(last) != 1 || last[0].Duration != 5*time.Millisecond {
		t.Errorf("Recent(1) = %+v", last)
	}
}

func TestLatencyMonitor_Stats(t *testing.T) {
	t.Parallel()

	m := NewLatencyMonitor(100, 0, zerolog.Nop())
	for i := 1; i <= 10; i++ {
		m.Record(sample(http.MethodGet, "/api/v1/items/{id}/recommendations", http.StatusOK, time.Duration(i)*time.Millisecond))
	}
	m.Record(sample(http.MethodPost, "/api/v1/graph/rebuild", http.StatusInternalServerError, 50*time.Millisecond))
	m.Record(sample(http.MethodPost, "/api/v1/graph/rebuild", http.StatusOK, 30*time.Millisecond))

	stats := m.Stats()
	if len(stats) != 2 {
		t.Fatalf("Stats() returned %d endpoints, want 2", len(stats))
	}

	rec := stats[0]
	if rec.Endpoint != "GET /api/v1/items/{id}/recommendations" {
		t.Fatalf("busiest endpoint = %q", rec.Endpoint)
	}
	if rec.Requests != 10 || rec.Errors != 0 {
		t.Errorf("requests/errors = %d/%d, want 10/0", rec.Requests, rec.Errors)
	}
	if rec.MinMs != 1 || rec.MaxMs != 10 {
		t.Errorf("min/max = %v/%v, want 1/10", rec.MinMs, rec.MaxMs)
	}
	if rec.AvgMs != 5.5 {
		t.Errorf("avg = %v, want 5.5", rec.AvgMs)
	}
	if rec.P50Ms != 5 || rec.P95Ms != 9 || rec.P99Ms != 9 {
		t.Errorf("p50/p95/p99 = %v/%v/%v, want 5/9/9", rec.P50Ms, rec.P95Ms, rec.P99Ms)
	}

	rebuild := stats[1]
	if rebuild.Requests != 2 || rebuild.Errors != 1 {
		t.Errorf("rebuild requests/errors = %d/%d, want 2/1", rebuild.Requests, rebuild.Errors)
	}
}

func TestLatencyMonitor_Middleware(t *testing.T) {
	t.Parallel()

	m := NewLatencyMonitor(10, 0, zerolog.Nop())
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Get("/plain", func(http.ResponseWriter, *http.Request) {})

	for _, path := range []string{"/items/1", "/items/2", "/plain", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	recent := m.Recent(-1)
	if len(recent) != 4 {
		t.Fatalf("recorded %d samples, want 4", len(recent))
	}

	tests := []struct {
		route  string
		status int
	}{
		{"/items/{id}", http.StatusTeapot},
		{"/items/{id}", http.StatusTeapot},
		{"/plain", http.StatusOK},
		{unmatchedRoute, http.StatusNotFound},
	}
	for i, tt := range tests {
		if recent[i].Route != tt.route || recent[i].Status != tt.status {
			t.Errorf("sample %d = %s %d, want %s %d", i, recent[i].Route, recent[i].Status, tt.route, tt.status)
		}
	}
}

func TestLatencyMonitor_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	m := NewLatencyMonitor(50, time.Nanosecond, zerolog.Nop())
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				m.Record(sample(http.MethodGet, "/r", http.StatusOK, time.Millisecond))
				_ = m.Stats()
			}
		}()
	}
	wg.Wait()

	if got := len(m.Recent(-1)); got != 50 {
		t.Errorf("window holds %d samples, want 50", got)
	}
}

func TestPercentile(t *testing.T) {
	t.Parallel()

	if percentile(nil, 0.5) != 0 {
		t.Error("percentile(nil) != 0")
	}
	sorted := []time.Duration{1, 2, 3, 4}
	if got := percentile(sorted, 0.5); got != 2 {
		t.Errorf("p50 = %v, want 2", got)
	}
	if got := percentile(sorted, 1); got != 4 {
		t.Errorf("p100 = %v, want 4", got)
	}
}
