package lns

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/yourbasic/bit"
)

// InitialKind selects how the starting tour is built.
type InitialKind int

const (
	// InitialGreedy builds a nearest-neighbor tour.
	InitialGreedy InitialKind = iota
	// InitialRandom uses a uniformly shuffled permutation.
	InitialRandom
)

func (k InitialKind) String() string {
	switch k {
	case InitialGreedy:
		return "greedy"
	case InitialRandom:
		return "random"
	default:
		return "unknown"
	}
}

// ParseInitialKind maps a flag value onto an InitialKind.
func ParseInitialKind(s string) (InitialKind, bool) {
	switch s {
	case "greedy", "":
		return InitialGreedy, true
	case "random":
		return InitialRandom, true
	default:
		return 0, false
	}
}

func (k InitialKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *InitialKind) UnmarshalText(b []byte) error {
	v, ok := ParseInitialKind(string(b))
	if !ok {
		return fmt.Errorf("%w: unknown initial tour builder %q", ErrInvalidConfig, b)
	}
	*k = v
	return nil
}

// GreedyNearestNeighbor starts at city start and repeatedly appends the nearest
// unvisited city, closing the cycle back to start. Ties go to the lowest city
// index because the unvisited set is scanned in ascending order.
//
// The result is a valid permutation by construction; its cost is accumulated
// edge by edge while building.
//
// Complexity: O(n²).
func GreedyNearestNeighbor(n int, m Matrix, start int) ([]int, float64) {
	if n <= 0 {
		return nil, 0
	}
	if start < 0 || start >= n {
		start = 0
	}

	unvisited := new(bit.Set).AddRange(0, n)
	unvisited.Delete(start)

	tour := make([]int, 0, n)
	tour = append(tour, start)

	var (
		cost    float64
		current = start
	)
	for !unvisited.Empty() {
		next, best := -1, math.Inf(1)
		unvisited.Visit(func(c int) (skip bool) {
			if d := m[current][c]; d < best || next < 0 {
				next, best = c, d
			}
			return false
		})
		unvisited.Delete(next)
		tour = append(tour, next)
		cost += best
		current = next
	}
	cost += m[current][start]

	return tour, cost
}

// RandomTour returns a uniformly shuffled permutation of the n cities and its
// cost.
func RandomTour(n int, m Matrix, rng *rand.Rand) ([]int, float64) {
	if n <= 0 {
		return nil, 0
	}
	tour := rng.Perm(n)
	return tour, FullCost(tour, m)
}
