package lns

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertGreedy_PicksCheapestPosition(t *testing.T) {
	sol := &Solution{Tour: []int{0, 1, 3}, Cost: 11}

	InsertGreedy(sol, []int{2}, fourCity)

	assert.Equal(t, []int{0, 1, 2, 3}, sol.Tour)
	assert.Equal(t, 4.0, sol.Cost)
}

func TestInsertGreedy_TiesGoToLowestCityThenPosition(t *testing.T) {
	m := Matrix{
		{0, 1, 1, 1},
		{1, 0, 1, 1},
		{1, 1, 0, 1},
		{1, 1, 1, 0},
	}
	sol := &Solution{Tour: []int{3}, Cost: 0}

	InsertGreedy(sol, []int{2, 0, 1}, m)

	// Every slot costs the same, so each city in ascending order lands at
	// position 0.
	assert.Equal(t, []int{2, 1, 0, 3}, sol.Tour)
	requireConsistent(t, sol, 4, m)
}

func TestInsertGreedy_NothingRemoved(t *testing.T) {
	sol := NewSolution([]int{0, 1, 2, 3}, fourCity)
	InsertGreedy(sol, nil, fourCity)
	assert.Equal(t, []int{0, 1, 2, 3}, sol.Tour)
	assert.Equal(t, 4.0, sol.Cost)
}

func TestInsertRandom_KeepsCostConsistent(t *testing.T) {
	const n = 30
	m := euclidean(n, 41)
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 20; round++ {
		sol := randomSolution(n, m, int64(round))
		removed := RemoveRandom(sol, 1+rng.Intn(n), m, rng)
		InsertRandom(sol, removed, m, rng)
		requireConsistent(t, sol, n, m)
	}
}

func TestTwoOpt_NeverWorsens(t *testing.T) {
	const n = 40
	m := euclidean(n, 51)

	for seed := int64(0); seed < 5; seed++ {
		sol := randomSolution(n, m, seed)
		for moves := 0; moves < n*n; moves++ {
			before := sol.Cost
			moved := TwoOpt(sol, m)
			require.LessOrEqual(t, sol.Cost, before)
			requireConsistent(t, sol, n, m)
			if !moved {
				require.Equal(t, before, sol.Cost)
				break
			}
		}
	}
}

func TestTwoOpt_UncrossesFourCity(t *testing.T) {
	sol := NewSolution([]int{0, 2, 1, 3}, fourCity)
	require.Equal(t, 20.0, sol.Cost)

	require.True(t, TwoOpt(sol, fourCity))

	assert.Equal(t, 4.0, sol.Cost)
	assert.Equal(t, 4.0, FullCost(sol.Tour, fourCity))
	assert.False(t, TwoOpt(sol, fourCity))
}

func TestTwoOpt_TooFewCities(t *testing.T) {
	m := line(0, 5, 1)
	sol := NewSolution([]int{0, 1, 2}, m)
	assert.False(t, TwoOpt(sol, m))
}
