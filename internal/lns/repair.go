package lns

import (
	"math"
	"math/rand"
	"slices"
)

// improvementEpsilon is the smallest cost decrease a 2-opt move must achieve.
// Smaller deltas are floating point noise on tours that are already optimal
// with respect to the move.
const improvementEpsilon = 1e-9

// InsertGreedy reinserts every removed city, each time committing the single
// globally cheapest (city, position) pair over all pending cities and all
// insertion positions.
//
// Ties go to the first pair found in scan order: city index ascending, then
// position ascending.
//
// Complexity: O(k²·n) for k removed cities.
func InsertGreedy(sol *Solution, removed []int, m Matrix) {
	pending := sortedCities(removed)

	for len(pending) > 0 {
		var (
			bestCost  = math.Inf(1)
			bestCity  = 0
			bestPos   = 0
			positions = max(sol.Len(), 1)
		)
		for ci, city := range pending {
			for pos := 0; pos < positions; pos++ {
				cost := CostAfterInsertion(sol.Tour, pos, city, sol.Cost, m)
				if cost < bestCost {
					bestCost, bestCity, bestPos = cost, ci, pos
				}
			}
		}

		sol.Tour = insertAt(sol.Tour, bestPos, pending[bestCity])
		sol.Cost = bestCost
		pending = slices.Delete(pending, bestCity, bestCity+1)
	}
}

// InsertRandom reinserts the removed cities in removal order, each at a
// uniformly drawn position. It is cheap and exploratory; the tours it
// produces are usually worse than greedy insertion.
func InsertRandom(sol *Solution, removed []int, m Matrix, rng *rand.Rand) {
	for _, city := range removed {
		pos := rng.Intn(sol.Len() + 1)
		sol.Cost = CostAfterInsertion(sol.Tour, pos, city, sol.Cost, m)
		sol.Tour = insertAt(sol.Tour, pos, city)
	}
}

// TwoOpt scans every position pair i < j, prices the reversal of (i, j] and
// applies only the best improving one. It reports whether a move was made;
// callers that want a 2-opt local optimum call it until it returns false.
//
// Complexity: O(n²) per call, O(n) for the applied reversal.
func TwoOpt(sol *Solution, m Matrix) bool {
	n := sol.Len()
	if n < 4 {
		return false
	}

	var (
		bestCost = sol.Cost - improvementEpsilon
		bestI    = -1
		bestJ    = -1
	)
	for i := 0; i < n-1; i++ {
		for j := i + 1; j < n; j++ {
			if cost := CostAfterReversal(sol.Tour, sol.Cost, i, j, m); cost < bestCost {
				bestCost, bestI, bestJ = cost, i, j
			}
		}
	}
	if bestI < 0 {
		return false
	}

	reverseSegment(sol.Tour, bestI, bestJ)
	sol.Cost = bestCost
	return true
}
