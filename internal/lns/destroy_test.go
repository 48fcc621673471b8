package lns

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoveRandom_GreedyRoundTrip(t *testing.T) {
	const n = 20
	m := euclidean(n, 21)
	rng := rand.New(rand.NewSource(22))

	for k := 1; k <= n; k++ {
		sol := randomSolution(n, m, int64(k))

		removed := RemoveRandom(sol, k, m, rng)
		require.Len(t, removed, k)
		require.Equal(t, n-k, sol.Len())
		require.InDelta(t, FullCost(sol.Tour, m), sol.Cost, costTolerance*1e4, "k=%d", k)

		InsertGreedy(sol, removed, m)
		requireConsistent(t, sol, n, m)
	}
}

func TestRemoveRandom_AllButOneCity(t *testing.T) {
	const n = 12
	m := euclidean(n, 23)
	sol := randomSolution(n, m, 24)

	removed := RemoveRandom(sol, n-1, m, rand.New(rand.NewSource(25)))
	require.Len(t, removed, n-1)
	require.Equal(t, 1, sol.Len())
	assert.InDelta(t, 0, sol.Cost, costTolerance)

	InsertGreedy(sol, removed, m)
	requireConsistent(t, sol, n, m)
}

func TestRemoveRandom_ClampsCount(t *testing.T) {
	sol := NewSolution([]int{0, 1, 2, 3}, fourCity)
	rng := rand.New(rand.NewSource(1))

	assert.Empty(t, RemoveRandom(sol, 0, fourCity, rng))
	assert.Equal(t, 4, sol.Len())

	removed := RemoveRandom(sol, 10, fourCity, rng)
	assert.Len(t, removed, 4)
	assert.Zero(t, sol.Len())
}

func TestRemoveWorst_RemovesLongestEdgesFirst(t *testing.T) {
	// Cities 0..2 are close together, city 3 is far away.
	m := line(0, 1, 2, 100)
	sol := NewSolution([]int{0, 1, 2, 3}, m)

	removed := RemoveWorst(sol, 2, m)

	assert.Equal(t, []int{3, 0}, removed)
	assert.Equal(t, []int{1, 2}, sol.Tour)
	assert.InDelta(t, FullCost(sol.Tour, m), sol.Cost, costTolerance)
}

func TestRemoveWorst_EqualCostsKeepTourOrder(t *testing.T) {
	// Every city of this crossed tour has neighbor cost 10.
	sol := NewSolution([]int{0, 2, 1, 3}, fourCity)

	removed := RemoveWorst(sol, 1, fourCity)

	assert.Equal(t, []int{0}, removed)
}

func TestRemoveShaw_StopsAtAlpha(t *testing.T) {
	const n = 25
	m := euclidean(n, 31)
	sol := randomSolution(n, m, 32)

	removed := RemoveShaw(sol, 10, 1e-12, m, rand.New(rand.NewSource(33)))

	assert.Len(t, removed, 1, "only the seed is closer than alpha to itself")
	assert.Equal(t, n-1, sol.Len())
}

func TestRemoveShaw_RemovesSeedPlusK(t *testing.T) {
	const n = 25
	m := euclidean(n, 34)
	sol := randomSolution(n, m, 35)
	before := slices.Clone(sol.Tour)

	removed := RemoveShaw(sol, 5, 1e9, m, rand.New(rand.NewSource(36)))

	require.Len(t, removed, 6)
	require.Equal(t, n-6, sol.Len())
	for _, c := range removed {
		assert.NotContains(t, sol.Tour, c)
		assert.Contains(t, before, c)
	}
	assert.InDelta(t, FullCost(sol.Tour, m), sol.Cost, costTolerance*1e4)
}

func TestRemoveShaw_PrefersSimilarCities(t *testing.T) {
	// Tour 0-1-2-3-4-5 on a line: inner cities have neighbor cost 2, the two
	// ends have 6. With alpha 1 any seed only drags along its own class.
	m := line(0, 1, 2, 3, 4, 5)
	sol := NewSolution([]int{0, 1, 2, 3, 4, 5}, m)

	removed := RemoveShaw(sol, 10, 1, m, rand.New(rand.NewSource(3)))
	slices.Sort(removed)

	ends := []int{0, 5}
	inner := []int{1, 2, 3, 4}
	if !slices.Equal(removed, ends) {
		assert.Equal(t, inner, removed)
	}
}

func TestRemoveShaw_EmptyTour(t *testing.T) {
	sol := &Solution{}
	assert.Nil(t, RemoveShaw(sol, 3, 10, nil, rand.New(rand.NewSource(1))))
}

func TestRemoveShaw_WholeTourThenRepair(t *testing.T) {
	const n = 9
	m := euclidean(n, 37)
	sol := randomSolution(n, m, 38)

	removed := RemoveShaw(sol, n, 1e9, m, rand.New(rand.NewSource(39)))
	require.Len(t, removed, n)
	require.Zero(t, sol.Len())

	InsertGreedy(sol, removed, m)
	requireConsistent(t, sol, n, m)
}
