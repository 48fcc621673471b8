package lns

import (
	"errors"
	"fmt"
	"slices"

	"github.com/yourbasic/bit"
)

var (
	// ErrInvalidTour is returned when a tour is not a permutation of [0, n).
	ErrInvalidTour = errors.New("lns: tour is not a permutation of the cities")

	// ErrInvariantViolation signals an index-bookkeeping defect detected after
	// a destroy/repair cycle. It is never retried.
	ErrInvariantViolation = errors.New("lns: invariant violation")
)

// Solution is an owned tour together with its running cost.
//
// Solutions are never shared between the current, explored and best roles of
// the search; use Clone whenever a second independently mutable copy is needed.
type Solution struct {
	Tour []int
	Cost float64
}

// NewSolution wraps tour and computes its cost from scratch.
func NewSolution(tour []int, m Matrix) *Solution {
	return &Solution{Tour: tour, Cost: FullCost(tour, m)}
}

// Clone returns a deep copy of s.
func (s *Solution) Clone() *Solution {
	return &Solution{Tour: slices.Clone(s.Tour), Cost: s.Cost}
}

// Len returns the number of cities currently in the tour.
func (s *Solution) Len() int { return len(s.Tour) }

// ValidatePermutation reports whether tour visits every city in [0, n) exactly
// once. The returned error wraps ErrInvalidTour and names the first offence.
//
// Complexity: O(n).
func ValidatePermutation(tour []int, n int) error {
	if len(tour) != n {
		return fmt.Errorf("%w: length %d, want %d", ErrInvalidTour, len(tour), n)
	}
	seen := new(bit.Set)
	for i, city := range tour {
		if city < 0 || city >= n {
			return fmt.Errorf("%w: city %d at position %d out of range", ErrInvalidTour, city, i)
		}
		if seen.Contains(city) {
			return fmt.Errorf("%w: city %d visited twice", ErrInvalidTour, city)
		}
		seen.Add(city)
	}
	return nil
}

// RotateToStart returns a copy of tour shifted so that it begins at start.
// The cyclic order and therefore the cost are unchanged. If start is not part
// of the tour a plain copy is returned.
func RotateToStart(tour []int, start int) []int {
	pivot := slices.Index(tour, start)
	if pivot <= 0 {
		return slices.Clone(tour)
	}
	out := make([]int, 0, len(tour))
	out = append(out, tour[pivot:]...)
	return append(out, tour[:pivot]...)
}
