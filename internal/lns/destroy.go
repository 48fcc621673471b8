package lns

import (
	"math"
	"math/rand"
	"slices"
	"sort"
)

// RemoveRandom removes k positions chosen uniformly without replacement and
// returns the removed cities. k is clamped to [0, len(tour)].
//
// Positions are drawn first and only then deleted, highest position first, so
// no deletion invalidates a pending index.
func RemoveRandom(sol *Solution, k int, m Matrix, rng *rand.Rand) []int {
	k = clampCount(k, sol.Len())
	if k == 0 {
		return nil
	}
	positions := rng.Perm(sol.Len())[:k]
	return removePositions(sol, positions, m)
}

// RemoveWorst removes the k positions whose two incident edges are longest.
// Equal neighbor costs keep their tour order, so the first one seen wins.
func RemoveWorst(sol *Solution, k int, m Matrix) []int {
	k = clampCount(k, sol.Len())
	if k == 0 {
		return nil
	}

	positions := make([]int, sol.Len())
	costs := make([]float64, sol.Len())
	for i := range positions {
		positions[i] = i
		costs[i] = neighborCost(sol.Tour, i, m)
	}
	sort.SliceStable(positions, func(a, b int) bool {
		return costs[positions[a]] > costs[positions[b]]
	})

	return removePositions(sol, positions[:k], m)
}

// relatedCity is a Shaw removal candidate.
type relatedCity struct {
	pos        int
	similarity float64
}

// RemoveShaw removes a cluster of mutually similar cities.
//
// A seed position is drawn uniformly. Every other position is ranked by how
// close its neighbor cost is to the seed's, most similar first (stable on tour
// order). The seed and then up to k candidates are removed, stopping at the
// first candidate whose similarity difference is not below alpha.
func RemoveShaw(sol *Solution, k int, alpha float64, m Matrix, rng *rand.Rand) []int {
	n := sol.Len()
	if n == 0 {
		return nil
	}

	seed := rng.Intn(n)
	seedCost := neighborCost(sol.Tour, seed, m)

	related := make([]relatedCity, 0, n-1)
	for i := 0; i < n; i++ {
		if i == seed {
			continue
		}
		related = append(related, relatedCity{
			pos:        i,
			similarity: math.Abs(neighborCost(sol.Tour, i, m) - seedCost),
		})
	}
	sort.SliceStable(related, func(a, b int) bool {
		return related[a].similarity < related[b].similarity
	})

	positions := make([]int, 0, min(k, n-1)+1)
	positions = append(positions, seed)
	for _, r := range related {
		if len(positions) > k || r.similarity >= alpha {
			break
		}
		positions = append(positions, r.pos)
	}

	return removePositions(sol, positions, m)
}

// removePositions records the cities at positions, then deletes them through
// the incremental cost path.
func removePositions(sol *Solution, positions []int, m Matrix) []int {
	removed := make([]int, len(positions))
	for i, p := range positions {
		removed[i] = sol.Tour[p]
	}
	sol.Tour, sol.Cost = CostAfterRemoval(sol.Tour, positions, sol.Cost, m)
	return removed
}

func clampCount(k, n int) int {
	return max(0, min(k, n))
}

// sortedCities returns the removed cities in ascending index order, the scan
// order greedy insertion uses to break ties.
func sortedCities(removed []int) []int {
	out := slices.Clone(removed)
	slices.Sort(out)
	return out
}
