// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package align

import (
	"fmt"
	"math"
)

// CosineSimilarity returns the len(rows) x len(cols) matrix whose entry
// (i, j) is the cosine similarity of rows[i] and cols[j]. Each vector is
// L2-normalized first; a zero vector has similarity 0 with everything.
// All vectors must have the same dimension.
func CosineSimilarity(rows, cols [][]float64) ([][]float64, error) {
	dim := -1
	for _, set := range [][][]float64{rows, cols} {
		for _, v := range set {
			if dim == -1 {
				dim = len(v)
			} else if len(v) != dim {
				return nil, fmt.Errorf("embedding dimension mismatch: %d vs %d", len(v), dim)
			}
		}
	}

	nr := normalizeAll(rows)
	nc := normalizeAll(cols)

	out := make([][]float64, len(nr))
	for i, r := range nr {
		out[i] = make([]float64, len(nc))
		for j, c := range nc {
			out[i][j] = clamp(dot(r, c), -1, 1)
		}
	}
	return out, nil
}

func normalizeAll(vs [][]float64) [][]float64 {
	out := make([][]float64, len(vs))
	for i, v := range vs {
		out[i] = normalize(v)
	}
	return out
}

// normalize returns v scaled to unit length, or a zero vector when v has no length.
func normalize(v []float64) []float64 {
	norm := math.Sqrt(dot(v, v))
	out := make([]float64, len(v))
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return out
	}
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

// rowMax returns the largest value in each row of m over columns [from, to).
// Rows with an empty range get -1.
func rowMax(m [][]float64, from, to int) []float64 {
	out := make([]float64, len(m))
	for i, row := range m {
		best := -1.0
		for j := from; j < to; j++ {
			if row[j] > best {
				best = row[j]
			}
		}
		out[i] = best
	}
	return out
}
