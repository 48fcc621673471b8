// Package instance loads TSP benchmark instances and checks them before a
// solve is attempted.
//
// The on-disk format is a JSON object with the keys Coordinates, Matrix,
// GlobalBest, GlobalBestVal and Timeout. Only one of Coordinates and Matrix is
// required; a missing matrix is derived from the coordinates.
package instance

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cwbudde/lnstsp/internal/lns"
)

// ErrInvalidInstance is returned for instances that cannot be solved.
var ErrInvalidInstance = errors.New("invalid instance")

// symmetryTolerance is the relative difference allowed between m[i][j] and m[j][i].
const symmetryTolerance = 1e-9

// Instance is a benchmark TSP instance.
type Instance struct {
	// Name is taken from the file name and is not part of the JSON document.
	Name string `json:"-"`

	Coordinates   [][]float64 `json:"Coordinates,omitempty"`
	Matrix        lns.Matrix  `json:"Matrix,omitempty"`
	GlobalBest    []int       `json:"GlobalBest,omitempty"`
	GlobalBestVal float64     `json:"GlobalBestVal,omitempty"`

	// Timeout is the solve budget in seconds.
	Timeout float64 `json:"Timeout,omitempty"`
}

// Load reads, completes and validates the instance stored at path.
func Load(path string) (*Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open instance: %w", err)
	}
	defer f.Close()

	inst, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	inst.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	slog.Debug("Instance loaded", "path", path, "cities", inst.CityCount(), "timeout", inst.Timeout)
	return inst, nil
}

// LoadDir loads every *.json file in dir, sorted by file name.
func LoadDir(dir string) ([]*Instance, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}
	sort.Strings(paths)

	instances := make([]*Instance, 0, len(paths))
	for _, p := range paths {
		inst, err := Load(p)
		if err != nil {
			return nil, err
		}
		instances = append(instances, inst)
	}
	return instances, nil
}

// Decode parses an instance from r, derives a missing matrix from the
// coordinates and validates the result.
func Decode(r io.Reader) (*Instance, error) {
	var inst Instance
	if err := json.NewDecoder(r).Decode(&inst); err != nil {
		return nil, fmt.Errorf("%w: failed to decode: %w", ErrInvalidInstance, err)
	}

	if len(inst.Matrix) == 0 && len(inst.Coordinates) > 0 {
		m, err := EuclideanMatrix(inst.Coordinates)
		if err != nil {
			return nil, err
		}
		inst.Matrix = m
	}

	if err := inst.Validate(); err != nil {
		return nil, err
	}
	return &inst, nil
}

// EuclideanMatrix returns the pairwise Euclidean distances of 2-D points.
func EuclideanMatrix(coords [][]float64) (lns.Matrix, error) {
	for i, c := range coords {
		if len(c) != 2 {
			return nil, fmt.Errorf("%w: coordinate %d has %d components, want 2", ErrInvalidInstance, i, len(c))
		}
	}

	n := len(coords)
	m := make(lns.Matrix, n)
	for i := range m {
		m[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := math.Hypot(coords[i][0]-coords[j][0], coords[i][1]-coords[j][1])
			m[i][j] = d
			m[j][i] = d
		}
	}
	return m, nil
}

// Validate checks that the matrix is a square, symmetric, non-negative
// distance matrix with a zero diagonal, and that the optional parts agree
// with it.
func (inst *Instance) Validate() error {
	n := len(inst.Matrix)
	if n == 0 {
		return fmt.Errorf("%w: no cities", ErrInvalidInstance)
	}
	for i, row := range inst.Matrix {
		if len(row) != n {
			return fmt.Errorf("%w: matrix row %d has %d entries, want %d", ErrInvalidInstance, i, len(row), n)
		}
	}

	for i := 0; i < n; i++ {
		if d := inst.Matrix[i][i]; d != 0 {
			return fmt.Errorf("%w: distance from city %d to itself is %v", ErrInvalidInstance, i, d)
		}
		for j := 0; j < n; j++ {
			d := inst.Matrix[i][j]
			if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
				return fmt.Errorf("%w: distance %d->%d is %v", ErrInvalidInstance, i, j, d)
			}
			if j > i {
				back := inst.Matrix[j][i]
				if math.Abs(d-back) > symmetryTolerance*math.Max(1, math.Max(d, back)) {
					return fmt.Errorf("%w: asymmetric distance %d<->%d (%v vs %v)", ErrInvalidInstance, i, j, d, back)
				}
			}
		}
	}

	if len(inst.Coordinates) > 0 && len(inst.Coordinates) != n {
		return fmt.Errorf("%w: %d coordinates for %d cities", ErrInvalidInstance, len(inst.Coordinates), n)
	}
	if inst.GlobalBest != nil {
		if err := lns.ValidatePermutation(inst.GlobalBest, n); err != nil {
			return fmt.Errorf("%w: global best: %w", ErrInvalidInstance, err)
		}
	}
	if inst.Timeout < 0 || math.IsNaN(inst.Timeout) {
		return fmt.Errorf("%w: timeout must not be negative, got %v", ErrInvalidInstance, inst.Timeout)
	}
	return nil
}

// CityCount returns the number of cities.
func (inst *Instance) CityCount() int { return len(inst.Matrix) }

// TimeLimit returns the instance's own budget, or fallback when the instance
// does not carry one.
func (inst *Instance) TimeLimit(fallback time.Duration) time.Duration {
	if inst.Timeout <= 0 {
		return fallback
	}
	return time.Duration(inst.Timeout * float64(time.Second))
}

// HasGlobalBest reports whether the best known cost is part of the instance.
func (inst *Instance) HasGlobalBest() bool { return inst.GlobalBestVal > 0 }

// Gap returns how far cost is above the best known cost, absolute and relative
// to it. ok is false when the instance carries no best known cost.
func (inst *Instance) Gap(cost float64) (abs, rel float64, ok bool) {
	if !inst.HasGlobalBest() {
		return 0, 0, false
	}
	abs = cost - inst.GlobalBestVal
	return abs, abs / inst.GlobalBestVal, true
}

// Save writes the instance as JSON to path.
func (inst *Instance) Save(path string) error {
	data, err := json.MarshalIndent(inst, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal instance: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write instance: %w", err)
	}
	return nil
}
