// Package lns implements a time-budgeted Large Neighborhood Search for the
// symmetric TSP with simulated-annealing acceptance.
//
// Tours are cyclic permutations of city indices. Every operator keeps the tour
// cost up to date incrementally; FullCost exists for verification only and is
// never called from the search loop.
package lns

import "slices"

// Matrix is a square, symmetric distance matrix with a zero diagonal.
// It is shared read-only by every component for the lifetime of a solve.
type Matrix [][]float64

// Size returns the number of cities described by the matrix.
func (m Matrix) Size() int { return len(m) }

// FullCost recomputes the cost of the closed tour from scratch.
//
// Complexity: O(n).
func FullCost(tour []int, m Matrix) float64 {
	var (
		n   = len(tour)
		sum float64
	)
	for i := 0; i < n; i++ {
		sum += m[tour[i]][tour[(i+1)%n]]
	}
	return sum
}

// neighborCost is the summed length of the two edges touching position i.
func neighborCost(tour []int, i int, m Matrix) float64 {
	n := len(tour)
	city := tour[i]
	return m[city][tour[(i-1+n)%n]] + m[city][tour[(i+1)%n]]
}

// CostAfterRemoval deletes the cities at the given positions and returns the
// shortened tour together with its cost.
//
// Positions are processed from the highest to the lowest so that earlier
// deletions never shift a position that is still pending. For every removal the
// two edges adjacent to the city are subtracted and the edge closing the gap is
// added, always against the current (already shortened) tour. Duplicate
// positions are ignored and the caller's slice is left untouched.
//
// Complexity: O(k log k + k·n) for k positions.
func CostAfterRemoval(tour []int, positions []int, cost float64, m Matrix) ([]int, float64) {
	order := slices.Clone(positions)
	slices.Sort(order)
	order = slices.Compact(order)

	for idx := len(order) - 1; idx >= 0; idx-- {
		var (
			i    = order[idx]
			n    = len(tour)
			curr = tour[i]
			pred = tour[(i-1+n)%n]
			succ = tour[(i+1)%n]
		)
		cost -= m[curr][pred]
		cost -= m[curr][succ]
		cost += m[pred][succ]

		tour = slices.Delete(tour, i, i+1)
	}
	return tour, cost
}

// CostAfterInsertion returns the tour cost after placing city immediately
// before position pos. The tour itself is not modified.
//
// pos may equal len(tour), which is the same cyclic slot as position 0.
// Inserting into an empty tour leaves the cost unchanged.
//
// Complexity: O(1).
func CostAfterInsertion(tour []int, pos, city int, cost float64, m Matrix) float64 {
	n := len(tour)
	if n == 0 {
		return cost
	}
	pred := tour[(pos-1+n)%n]
	succ := tour[pos%n]
	return cost + m[pred][city] + m[city][succ] - m[pred][succ]
}

// CostAfterReversal returns the tour cost after reversing the segment of
// positions (i, j], i.e. tour[i+1..j]. Only the four boundary edges are
// inspected, which keeps an exhaustive 2-opt scan at O(n²).
//
// Requires 0 <= i < j < len(tour).
func CostAfterReversal(tour []int, cost float64, i, j int, m Matrix) float64 {
	var (
		n     = len(tour)
		a     = tour[i]
		b     = tour[i+1]
		c     = tour[j]
		d     = tour[(j+1)%n]
		after = cost
	)
	after -= m[a][b]
	after -= m[c][d]
	after += m[a][c]
	after += m[b][d]
	return after
}

// insertAt places city before position pos (pos == len(tour) appends).
func insertAt(tour []int, pos, city int) []int {
	if pos >= len(tour) {
		return append(tour, city)
	}
	return slices.Insert(tour, pos, city)
}

// reverseSegment reverses tour[i+1..j] in place, the move priced by
// CostAfterReversal.
func reverseSegment(tour []int, i, j int) {
	slices.Reverse(tour[i+1 : j+1])
}
