// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package supervisor runs Folio's long-lived services under a suture tree.
//
// The tree has three layers, each its own supervisor so a crash loop in one
// does not stall the others:
//
//	folio (root)
//	├── data-layer    graph rebuild service
//	├── worker-layer  index job consumer
//	└── api-layer     HTTP server
//
// Supervisor events are logged through sutureslog on top of the zerolog
// slog adapter in internal/logging.
//
// Usage:
//
//	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
//	tree.AddDataService(graphSvc)
//	tree.AddWorkerService(indexSvc)
//	tree.AddAPIService(httpSvc)
//	err = tree.Serve(ctx)
//
// The services themselves live in the services subpackage.
package supervisor
