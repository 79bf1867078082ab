// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

/*
Package services provides suture.Service wrappers for Folio components.

Each wrapper translates a component's lifecycle into suture's
context-aware Serve pattern and names itself through fmt.Stringer so the
supervisor's event log says which service failed.

# Available Services

HTTP Server (HTTPServerService):
  - Runs an *http.Server and shuts it down gracefully on cancellation
  - A failed listen is returned so the supervisor can back off and retry

Graph Rebuild (GraphService):
  - Builds the similarity graph once at startup
  - Rebuilds on a fixed interval and on request, coalescing bursts of
    requests with a debounce window

Index Worker (IndexService):
  - Runs the index job router
  - Queues pending items once the router is consuming
*/
package services
