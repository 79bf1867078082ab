// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package events carries index jobs between the API and the indexing worker.
//
// Jobs travel over an in-process Watermill GoChannel. A Watermill router
// consumes them with panic recovery and bounded retry; a job that still
// fails after its retries is logged, counted and acknowledged so it is not
// redelivered forever. The catalog keeps the item's embedding status, so a
// dropped job can always be requeued with POST /items/{id}/index or the
// startup backfill.
//
// Usage:
//
//	bus, err := events.NewBus(events.DefaultBusConfig(), logger)
//	bus.Handle("indexer", idx.HandleJob)
//	go bus.Run(ctx)
//	<-bus.Running()
//	bus.Publish(ctx, events.NewIndexJob(42, events.ReasonUpsert))
package events
