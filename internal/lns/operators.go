package lns

import (
	"fmt"
	"math"
)

// DestroyKind is the closed set of destroy operators.
type DestroyKind int

const (
	RandomRemoval DestroyKind = iota
	WorstRemoval
	ShawRemoval

	numDestroyKinds = 3
)

func (k DestroyKind) String() string {
	switch k {
	case RandomRemoval:
		return "random_removal"
	case WorstRemoval:
		return "worst_removal"
	case ShawRemoval:
		return "shaw_removal"
	default:
		return fmt.Sprintf("destroy(%d)", int(k))
	}
}

// ParseDestroyKind maps a name as printed by String back onto a DestroyKind.
func ParseDestroyKind(s string) (DestroyKind, error) {
	for k := DestroyKind(0); k < numDestroyKinds; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown destroy operator %q", ErrInvalidConfig, s)
}

func (k DestroyKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *DestroyKind) UnmarshalText(b []byte) error {
	v, err := ParseDestroyKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// RepairKind is the closed set of repair operators.
type RepairKind int

const (
	GreedyInsertion RepairKind = iota
	RandomInsertion

	numRepairKinds = 2
)

func (k RepairKind) String() string {
	switch k {
	case GreedyInsertion:
		return "greedy_insertion"
	case RandomInsertion:
		return "random_insertion"
	default:
		return fmt.Sprintf("repair(%d)", int(k))
	}
}

// ParseRepairKind maps a name as printed by String back onto a RepairKind.
func ParseRepairKind(s string) (RepairKind, error) {
	for k := RepairKind(0); k < numRepairKinds; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown repair operator %q", ErrInvalidConfig, s)
}

func (k RepairKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *RepairKind) UnmarshalText(b []byte) error {
	v, err := ParseRepairKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// DestroyParams holds the tunable parameters of the destroy operators.
type DestroyParams struct {
	// RandomFraction is the share of the tour removed by random removal.
	RandomFraction float64 `json:"randomFraction"`

	// WorstCount is the number of cities removed by worst removal.
	WorstCount int `json:"worstCount"`

	// ShawCount bounds the cities removed by Shaw removal besides the seed.
	ShawCount int `json:"shawCount"`

	// ShawAlpha is the largest neighbor-cost difference still considered related.
	ShawAlpha float64 `json:"shawAlpha"`
}

// DefaultDestroyParams returns the parameters the operators start from.
func DefaultDestroyParams() DestroyParams {
	return DestroyParams{
		RandomFraction: 0.5,
		WorstCount:     10,
		ShawCount:      30,
		ShawAlpha:      200,
	}
}

// Validate checks that the parameters describe a usable operator set.
func (p DestroyParams) Validate() error {
	if p.RandomFraction <= 0 || p.RandomFraction > 1 {
		return fmt.Errorf("%w: random fraction %v outside (0, 1]", ErrInvalidConfig, p.RandomFraction)
	}
	if p.WorstCount <= 0 {
		return fmt.Errorf("%w: worst count must be positive, got %d", ErrInvalidConfig, p.WorstCount)
	}
	if p.ShawCount < 0 {
		return fmt.Errorf("%w: shaw count must not be negative, got %d", ErrInvalidConfig, p.ShawCount)
	}
	if p.ShawAlpha <= 0 || math.IsNaN(p.ShawAlpha) {
		return fmt.Errorf("%w: shaw alpha must be positive, got %v", ErrInvalidConfig, p.ShawAlpha)
	}
	return nil
}

// randomCount is the number of cities random removal takes from a tour of n.
func (p DestroyParams) randomCount(n int) int {
	return int(float64(n) * p.RandomFraction)
}

// widen loosens the parameters of kind after the search stagnated.
func (p DestroyParams) widen(kind DestroyKind) DestroyParams {
	switch kind {
	case RandomRemoval:
		if p.RandomFraction < maxRandomFraction {
			p.RandomFraction = math.Min(p.RandomFraction+0.1, maxRandomFraction)
		}
	case WorstRemoval:
		p.WorstCount += max(1, p.WorstCount/2)
	case ShawRemoval:
		p.ShawCount += max(1, p.ShawCount/2)
		p.ShawAlpha *= 1.5
	}
	return p
}

// reset restores the parameters of kind from base and leaves the others alone.
func (p DestroyParams) reset(kind DestroyKind, base DestroyParams) DestroyParams {
	switch kind {
	case RandomRemoval:
		p.RandomFraction = base.RandomFraction
	case WorstRemoval:
		p.WorstCount = base.WorstCount
	case ShawRemoval:
		p.ShawCount = base.ShawCount
		p.ShawAlpha = base.ShawAlpha
	}
	return p
}

const maxRandomFraction = 0.9
