// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package api

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/logging"
)

func TestRequestIDWithLogging(t *testing.T) {
	t.Parallel()

	var seenRequestID, seenCorrelationID string
	handler := RequestIDWithLogging()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenRequestID = logging.RequestIDFromContext(r.Context())
		seenCorrelationID = logging.CorrelationIDFromContext(r.Context())
	}))

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		got := rec.Header().Get(RequestIDHeader)
		if got == "" {
			t.Fatal("X-Request-ID not set on response")
		}
		if seenRequestID != got {
			t.Errorf("context request id = %q, header = %q", seenRequestID, got)
		}
		if seenCorrelationID == "" {
			t.Error("correlation id not set")
		}
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
			t.Errorf("X-Request-ID = %q, want abc-123", got)
		}
		if seenRequestID != "abc-123" {
			t.Errorf("context request id = %q, want abc-123", seenRequestID)
		}
	})

	t.Run("oversized replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, strings.Repeat("x", 200))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get(RequestIDHeader); len(got) > 128 {
			t.Errorf("oversized request id echoed back (%d bytes)", len(got))
		}
	})
}

func TestAPISecurityHeaders(t *testing.T) {
	t.Parallel()

	handler := APISecurityHeaders()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("X-Content-Type-Options not set")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("X-Frame-Options not set")
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS set on plain HTTP")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("Strict-Transport-Security") == "" {
		t.Error("HSTS missing behind TLS proxy")
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	h, err := NewHandler(env.deps())
	if err != nil {
		t.Fatal(err)
	}
	mw := NewChiMiddleware(&ChiMiddlewareConfig{RateLimitRequests: 2, RateLimitWindow: time.Minute})
	srv := NewRouter(h, mw).SetupChi()

	for i := 0; i < 2; i++ {
		rec, _ := do(t, srv, http.MethodGet, "/api/v1/graph/stats", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, rec.Code)
		}
	}

	rec, body := do(t, srv, http.MethodGet, "/api/v1/graph/stats", nil)
	expectError(t, rec, body, http.StatusTooManyRequests, ErrCodeTooManyRequests)

	// Health is outside the limiter.
	rec, _ = do(t, srv, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", rec.Code)
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	t.Parallel()

	mw := NewChiMiddleware(&ChiMiddlewareConfig{RateLimitRequests: 1, RateLimitWindow: time.Minute, RateLimitDisabled: true})
	handler := mw.RateLimit()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("request %d: status = %d, want 204", i, rec.Code)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	h, err := NewHandler(env.deps())
	if err != nil {
		t.Fatal(err)
	}
	cfg := ChiMiddlewareConfigFromServer(&config.ServerConfig{
		CORSOrigins:       []string{"https://books.example.com"},
		RateLimitDisabled: true,
	})
	srv := NewRouter(h, NewChiMiddleware(cfg)).SetupChi()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/items/1", nil)
	req.Header.Set("Origin", "https://books.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://books.example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/items/1", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("disallowed origin got Access-Control-Allow-Origin = %q", got)
	}
}

func TestChiMiddlewareConfigFromServer(t *testing.T) {
	t.Parallel()

	c := ChiMiddlewareConfigFromServer(nil)
	if c.RateLimitRequests != 100 || c.RateLimitWindow != time.Minute {
		t.Errorf("defaults = %+v", c)
	}

	c = ChiMiddlewareConfigFromServer(&config.ServerConfig{RateLimitReqs: 10, RateLimitWindow: time.Second})
	if c.RateLimitRequests != 10 || c.RateLimitWindow != time.Second {
		t.Errorf("overrides = %+v", c)
	}
}

func TestRouter_NotFoundAndMetrics(t *testing.T) {
	t.Parallel()

	srv := newTestEnv().server(t)

	rec, body := do(t, srv, http.MethodGet, "/api/v1/nope", nil)
	expectError(t, rec, body, http.StatusNotFound, ErrCodeNotFound)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	mrec := httptest.NewRecorder()
	srv.ServeHTTP(mrec, req)
	if mrec.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", mrec.Code)
	}
	if !strings.Contains(mrec.Body.String(), "folio_api_requests_total") {
		t.Error("/metrics does not expose folio_api_requests_total")
	}
}

func TestRouter_Compression(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	h, err := NewHandler(env.deps())
	if err != nil {
		t.Fatal(err)
	}
	srv := NewRouter(h, NewChiMiddleware(&ChiMiddlewareConfig{RateLimitDisabled: true, CompressionMinSize: 16})).SetupChi()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/items/1", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("Content-Encoding = %q, want gzip", rec.Header().Get("Content-Encoding"))
	}
	reader, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatalf("gzip.NewReader() error = %v", err)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), `"Dune"`) {
		t.Errorf("decompressed body missing item: %s", body)
	}
}
