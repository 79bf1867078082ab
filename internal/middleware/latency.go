// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package middleware

import (
	"cmp"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// DefaultLatencyWindow is the sample window used when none is given.
const DefaultLatencyWindow = 1000

// unmatchedRoute groups requests that matched no route so raw paths never
// become endpoint keys.
const unmatchedRoute = "unmatched"

// RequestSample is one observed request.
type RequestSample struct {
	Method    string        `json:"method"`
	Route     string        `json:"route"`
	Status    int           `json:"status"`
	Duration  time.Duration `json:"duration_ns"`
	Timestamp time.Time     `json:"timestamp"`
}

// EndpointStats aggregates the samples of one method and route.
type EndpointStats struct {
	Endpoint string  `json:"endpoint"`
	Requests int     `json:"requests"`
	Errors   int     `json:"errors"`
	AvgMs    float64 `json:"avg_ms"`
	P50Ms    float64 `json:"p50_ms"`
	P95Ms    float64 `json:"p95_ms"`
	P99Ms    float64 `json:"p99_ms"`
	MinMs    float64 `json:"min_ms"`
	MaxMs    float64 `json:"max_ms"`
}

// LatencyMonitor keeps a sliding window of request latencies per route.
type LatencyMonitor struct {
	mu      sync.RWMutex
	samples []RequestSample
	next    int
	full    bool

	slow   time.Duration
	logger zerolog.Logger
}

// NewLatencyMonitor creates a monitor over the last window requests.
// Requests slower than slow are logged; 0 disables that.
//
//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func NewLatencyMonitor(window int, slow time.Duration, logger zerolog.Logger) *LatencyMonitor {
	if window <= 0 {
		window = DefaultLatencyWindow
	}
	return &LatencyMonitor{
		samples: make([]RequestSample, window),
		slow:    slow,
		logger:  logger.With().Str("component", "latency").Logger(),
	}
}

// Record adds a sample, evicting the oldest once the window is full.
func (m *LatencyMonitor) Record(s RequestSample) {
	m.mu.Lock()
	m.samples[m.next] = s
	m.next++
	if m.next == len(m.samples) {
		m.next = 0
		m.full = true
	}
	m.mu.Unlock()

	if m.slow > 0 && s.Duration > m.slow {
		m.logger.Warn().
			Str("method", s.Method).
			Str("route", s.Route).
			Int("status", s.Status).
			Dur("duration", s.Duration).
			Dur("threshold", m.slow).
			Msg("Slow request detected")
	}
}

// Recent returns up to n samples, oldest first.
func (m *LatencyMonitor) Recent(n int) []RequestSample {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.ordered()
	if n < 0 || n > len(all) {
		n = len(all)
	}
	return slices.Clone(all[len(all)-n:])
}

// ordered returns the window oldest first. Callers hold mu.
func (m *LatencyMonitor) ordered() []RequestSample {
	if !m.full {
		return m.samples[:m.next]
	}
	out := make([]RequestSample, 0, len(m.samples))
	out = append(out, m.samples[m.next:]...)
	return append(out, m.samples[:m.next]...)
}

// Stats returns per-endpoint statistics for the current window, busiest
// endpoint first.
func (m *LatencyMonitor) Stats() []EndpointStats {
	m.mu.RLock()
	byEndpoint := make(map[string][]RequestSample)
	for _, s := range m.ordered() {
		key := s.Method + " " + s.Route
		byEndpoint[key] = append(byEndpoint[key], s)
	}
	m.mu.RUnlock()

	stats := make([]EndpointStats, 0, len(byEndpoint))
	for endpoint, samples := range byEndpoint {
		durations := make([]time.Duration, len(samples))
		var sum time.Duration
		errs := 0
		for i, s := range samples {
			durations[i] = s.Duration
			sum += s.Duration
			if s.Status >= http.StatusInternalServerError {
				errs++
			}
		}
		slices.Sort(durations)

		stats = append(stats, EndpointStats{
			Endpoint: endpoint,
			Requests: len(samples),
			Errors:   errs,
			AvgMs:    millis(sum / time.Duration(len(samples))),
			P50Ms:    millis(percentile(durations, 0.50)),
			P95Ms:    millis(percentile(durations, 0.95)),
			P99Ms:    millis(percentile(durations, 0.99)),
			MinMs:    millis(durations[0]),
			MaxMs:    millis(durations[len(durations)-1]),
		})
	}

	slices.SortFunc(stats, func(a, b EndpointStats) int {
		if c := cmp.Compare(b.Requests, a.Requests); c != 0 {
			return c
		}
		return cmp.Compare(a.Endpoint, b.Endpoint)
	})
	return stats
}

// Middleware records each request under its chi route pattern. It must run
// inside a chi router so the pattern is known once the handler returns.
func (m *LatencyMonitor) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.Record(RequestSample{
			Method:    r.Method,
			Route:     route,
			Status:    status,
			Duration:  time.Since(start),
			Timestamp: start,
		})
	})
}

// percentile returns the nearest-rank value from a sorted slice.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[int(float64(len(sorted)-1)*p)]
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
