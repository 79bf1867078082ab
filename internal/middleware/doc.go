// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

/*
Package middleware provides HTTP middleware that is independent of the API
handlers: response compression and per-route latency tracking.

Request IDs, CORS, rate limiting and Prometheus instrumentation live in the
api package next to the envelope they write.

# Compression

Compression buffers the first minSize bytes of a response. Bodies that
reach that size are gzipped for clients that send Accept-Encoding: gzip;
smaller bodies, HEAD requests and responses that already carry a
Content-Encoding are written as is.

	r.Use(middleware.Compression(1024))

# Latency

LatencyMonitor keeps a fixed window of recent requests and reports
average, p50, p95, p99, min and max per method and chi route pattern.
Requests slower than the configured threshold are logged at warn level.

	monitor := middleware.NewLatencyMonitor(1000, time.Second, logger)
	r.Use(monitor.Middleware)
	stats := monitor.Stats()

Both types are safe for concurrent use.
*/
package middleware
