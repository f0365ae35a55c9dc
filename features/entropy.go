// Package features derives the structural descriptors of a generated HMM
// configuration: average row entropy of the transition and emission
// matrices, the entropy bucket used as a filter key, the kind of initial
// distribution, and the second eigenvalue of the transition matrix.
package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// RowEntropy is the Shannon entropy in bits of one probability row. Terms with
// p <= 0 (and NaN entries) contribute nothing.
func RowEntropy(p []float64) float64 {
	positive := make([]float64, 0, len(p))
	for _, v := range p {
		if v > 0 && !math.IsInf(v, 0) {
			positive = append(positive, v)
		}
	}

	// stat.Entropy uses the natural logarithm.
	return stat.Entropy(positive) / math.Ln2
}

// MatrixEntropy is the arithmetic mean of the row entropies of m, or 0 for an
// empty matrix.
func MatrixEntropy(m [][]float64) float64 {
	if len(m) == 0 {
		return 0
	}

	rowEntropies := make([]float64, 0, len(m))
	for _, row := range m {
		rowEntropies = append(rowEntropies, RowEntropy(row))
	}

	return stat.Mean(rowEntropies, nil)
}

// MaxEntropy is log2 of the widest row of m: the entropy of a uniform row.
func MaxEntropy(m [][]float64) float64 {
	width := 0
	for _, row := range m {
		if len(row) > width {
			width = len(row)
		}
	}
	if width <= 1 {
		return 0
	}

	return math.Log2(float64(width))
}

// NormalizedEntropy scales MatrixEntropy into [0, 1] by the maximum entropy a
// row of that width can carry. Matrices with rows of width <= 1 yield 0.
func NormalizedEntropy(m [][]float64) float64 {
	max := MaxEntropy(m)
	if max == 0 {
		return 0
	}

	return MatrixEntropy(m) / max
}

// IsStochastic reports whether every row of m is non-empty and sums to 1
// within tol.
func IsStochastic(m [][]float64, tol float64) bool {
	if len(m) == 0 {
		return false
	}

	for _, row := range m {
		if len(row) == 0 || !IsDistribution(row, tol) {
			return false
		}
	}

	return true
}

// IsDistribution reports whether p has no negative or NaN entries and sums to
// 1 within tol.
func IsDistribution(p []float64, tol float64) bool {
	for _, v := range p {
		if v < 0 || math.IsNaN(v) {
			return false
		}
	}

	return math.Abs(floats.Sum(p)-1) <= tol
}
