// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package graph

import (
	"fmt"
	"strings"
)

// EdgeType classifies the evidence behind an edge.
//
// To add a type, extend this enum, its String and ParseEdgeType cases, and
// the fusion rule that emits it. Types are never created from ad hoc
// strings.
type EdgeType uint8

const (
	// EdgeNone means no relationship qualified.
	EdgeNone EdgeType = iota
	// EdgeContent is embedding similarity between the two items.
	EdgeContent
	// EdgeAuthor links items by the same author.
	EdgeAuthor
	// EdgeSeries links items in the same series.
	EdgeSeries
)

// String returns the storage name of t.
func (t EdgeType) String() string {
	switch t {
	case EdgeContent:
		return "content"
	case EdgeAuthor:
		return "author"
	case EdgeSeries:
		return "series"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t EdgeType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *EdgeType) UnmarshalText(text []byte) error {
	parsed, err := ParseEdgeType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseEdgeType is the inverse of String.
func ParseEdgeType(s string) (EdgeType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "content":
		return EdgeContent, nil
	case "author":
		return EdgeAuthor, nil
	case "series":
		return EdgeSeries, nil
	case "none", "":
		return EdgeNone, nil
	default:
		return EdgeNone, fmt.Errorf("unknown edge type %q", s)
	}
}

// Edge is a stored, directed, typed relationship.
type Edge struct {
	Source int64    `json:"source"`
	Target int64    `json:"target"`
	Type   EdgeType `json:"type"`
	Weight float64  `json:"weight"`
}

// Valid reports whether e can be inserted: distinct endpoints, a real type
// and a weight in [0, 1].
func (e Edge) Valid() bool {
	return e.Source != e.Target && e.Type != EdgeNone && e.Weight >= 0 && e.Weight <= 1
}

// Neighbor is one adjacency entry as seen from the queried node.
type Neighbor struct {
	ID     int64
	Weight float64
	Type   EdgeType
}
