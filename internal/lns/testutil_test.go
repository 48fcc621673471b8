package lns

import (
	"io"
	"log/slog"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

const costTolerance = 1e-6

// fourCity has the optimal cycle 0-1-2-3 with cost 4; both diagonals cost 9.
var fourCity = Matrix{
	{0, 1, 9, 1},
	{1, 0, 1, 9},
	{9, 1, 0, 1},
	{1, 9, 1, 0},
}

// euclidean builds a symmetric matrix over n random points in a 1000x1000 box.
func euclidean(n int, seed int64) Matrix {
	rng := rand.New(rand.NewSource(seed))
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := range xs {
		xs[i] = rng.Float64() * 1000
		ys[i] = rng.Float64() * 1000
	}
	m := make(Matrix, n)
	for i := range m {
		m[i] = make([]float64, n)
		for j := range m[i] {
			m[i][j] = math.Hypot(xs[i]-xs[j], ys[i]-ys[j])
		}
	}
	return m
}

// line builds the matrix of points on the x axis.
func line(xs ...float64) Matrix {
	m := make(Matrix, len(xs))
	for i := range m {
		m[i] = make([]float64, len(xs))
		for j := range m[i] {
			m[i][j] = math.Abs(xs[i] - xs[j])
		}
	}
	return m
}

func randomSolution(n int, m Matrix, seed int64) *Solution {
	tour := rand.New(rand.NewSource(seed)).Perm(n)
	return NewSolution(tour, m)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// requireConsistent asserts the permutation invariant and that the running
// cost agrees with a from-scratch recomputation.
func requireConsistent(t *testing.T, sol *Solution, n int, m Matrix) {
	t.Helper()
	require.NoError(t, ValidatePermutation(sol.Tour, n))
	require.InDelta(t, FullCost(sol.Tour, m), sol.Cost, costTolerance*math.Max(1, sol.Cost))
}
