// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

/*
Package cache provides a thread-safe, generic LRU cache with TTL expiration.

The recommendation engine uses it to memoize ranked results per request
shape. Entries expire lazily on access and are evicted least-recently-used
first once the capacity is reached.

# Usage Example

	c := cache.NewLRU[string, []Recommendation](1000, 5*time.Minute)
	c.Add("rec:42:20", recs)
	if v, ok := c.Get("rec:42:20"); ok {
	    return v
	}

# Invalidation

Results derived from the similarity graph become stale whenever the graph
is rebuilt. Callers register Clear with the graph manager so a new
generation always starts from an empty cache.

# Thread Safety

All methods are safe for concurrent use. Get takes the write lock because
it reorders the recency list.
*/
package cache
