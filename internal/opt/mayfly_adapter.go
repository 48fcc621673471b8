package opt

import (
	"fmt"
	"math/rand"

	"github.com/cwbudde/mayfly"
)

// minPopulation is the smallest population mayfly v0.1.0 accepts.
const minPopulation = 20

// MayflyAdapter runs the mayfly algorithm behind the Optimizer interface.
type MayflyAdapter struct {
	maxIters int
	popSize  int
	seed     int64
}

// NewMayfly creates a new Mayfly optimizer adapter. Population sizes below
// the library minimum are raised to it.
func NewMayfly(maxIters, popSize int, seed int64) *MayflyAdapter {
	return &MayflyAdapter{
		maxIters: maxIters,
		popSize:  max(popSize, minPopulation),
		seed:     seed,
	}
}

// Run searches the unit hypercube. Points handed to eval are clamped to it.
func (m *MayflyAdapter) Run(eval func([]float64) float64, dim int) ([]float64, float64, error) {
	if dim <= 0 {
		return nil, 0, fmt.Errorf("dimension must be positive, got %d", dim)
	}

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = func(x []float64) float64 { return eval(clampUnit(x)) }
	config.ProblemSize = dim
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize
	config.LowerBound = 0
	config.UpperBound = 1
	config.Rand = rand.New(rand.NewSource(m.seed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		return nil, 0, fmt.Errorf("mayfly optimization failed: %w", err)
	}

	return clampUnit(result.GlobalBest.Position), result.GlobalBest.Cost, nil
}

// clampUnit returns a copy of x with every coordinate in [0, 1].
func clampUnit(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = min(max(v, 0), 1)
	}
	return out
}
