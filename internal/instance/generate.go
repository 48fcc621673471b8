package instance

import (
	"fmt"
	"math/rand"
)

// Generate creates an instance of n cities placed uniformly in a
// size×size square. The matrix is derived from the coordinates, so the
// instance is valid by construction.
func Generate(n int, size float64, seed int64) (*Instance, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: city count must be positive, got %d", ErrInvalidInstance, n)
	}
	if size <= 0 {
		size = 1000
	}

	rng := rand.New(rand.NewSource(seed))
	coords := make([][]float64, n)
	for i := range coords {
		coords[i] = []float64{rng.Float64() * size, rng.Float64() * size}
	}

	m, err := EuclideanMatrix(coords)
	if err != nil {
		return nil, err
	}
	return &Instance{
		Name:        fmt.Sprintf("random-%d-%d", n, seed),
		Coordinates: coords,
		Matrix:      m,
	}, nil
}
