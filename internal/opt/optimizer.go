package opt

// Optimizer minimizes a function over the unit hypercube [0, 1]^dim.
type Optimizer interface {
	// Run executes the optimization and returns the best point and its cost.
	Run(eval func([]float64) float64, dim int) ([]float64, float64, error)
}
