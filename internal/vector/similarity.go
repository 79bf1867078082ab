// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package vector

import "math"

// CosineSimilarity returns dot(a,b) / (|a||b|), accumulated in float64.
// Mismatched lengths, empty vectors and zero norms yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// normalize scales sum in place to unit length and converts to float32.
// A zero vector is returned unchanged.
func normalize(sum []float64) Embedding {
	var norm float64
	for _, v := range sum {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make(Embedding, len(sum))
	for i, v := range sum {
		if norm > 0 {
			v /= norm
		}
		out[i] = float32(v)
	}
	return out
}
