package lns

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidConfig is returned by Validate for unusable solver settings.
var ErrInvalidConfig = errors.New("lns: invalid configuration")

// Config holds every setting of a single solve. It is passed to NewSolver by
// value; nothing in the package reads process-wide configuration.
type Config struct {
	// TimeLimit is the wall-clock budget. It may be zero only when
	// MaxIterations bounds the run instead.
	TimeLimit time.Duration `json:"timeLimit"`

	// MaxIterations stops the search after that many destroy/repair cycles.
	// Zero means unbounded.
	MaxIterations int `json:"maxIterations"`

	// InitialTemperature and CoolingRate drive the annealing schedule. The
	// temperature is multiplied by CoolingRate after every iteration.
	InitialTemperature float64 `json:"initialTemperature"`
	CoolingRate        float64 `json:"coolingRate"`

	// Seed makes runs reproducible. Runs stopped by MaxIterations are fully
	// deterministic for a given seed.
	Seed int64 `json:"seed"`

	// Initial selects the start tour builder; StartCity is the first city of
	// the nearest-neighbor tour.
	Initial   InitialKind `json:"initial"`
	StartCity int         `json:"startCity"`

	// CheckpointInterval is the minimum time between two sink writes of an
	// improved tour. Zero writes on every improvement. The final tour is
	// always written.
	CheckpointInterval time.Duration `json:"checkpointInterval"`

	// ProgressInterval is the minimum time between progress reports and
	// "running" log lines.
	ProgressInterval time.Duration `json:"progressInterval"`

	// VerifyEachIteration checks the permutation invariant of the explored
	// tour after every iteration rather than only at the end.
	VerifyEachIteration bool `json:"verifyEachIteration"`

	Controller ControllerConfig `json:"controller"`
}

// DefaultConfig returns the settings used when nothing else is specified.
func DefaultConfig() Config {
	return Config{
		TimeLimit:          60 * time.Second,
		InitialTemperature: 6000,
		CoolingRate:        0.997,
		Seed:               1,
		Initial:            InitialGreedy,
		CheckpointInterval: time.Second,
		ProgressInterval:   10 * time.Second,
		Controller:         DefaultControllerConfig(),
	}
}

// Validate reports the first invalid field, wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	if c.TimeLimit < 0 {
		return fmt.Errorf("%w: time limit must not be negative, got %s", ErrInvalidConfig, c.TimeLimit)
	}
	if c.MaxIterations < 0 {
		return fmt.Errorf("%w: max iterations must not be negative, got %d", ErrInvalidConfig, c.MaxIterations)
	}
	if c.TimeLimit == 0 && c.MaxIterations == 0 {
		return fmt.Errorf("%w: either a time limit or max iterations is required", ErrInvalidConfig)
	}
	if c.InitialTemperature < 0 || math.IsNaN(c.InitialTemperature) || math.IsInf(c.InitialTemperature, 0) {
		return fmt.Errorf("%w: initial temperature must be finite and non-negative, got %v", ErrInvalidConfig, c.InitialTemperature)
	}
	if c.CoolingRate <= 0 || c.CoolingRate >= 1 {
		return fmt.Errorf("%w: cooling rate %v outside (0, 1)", ErrInvalidConfig, c.CoolingRate)
	}
	if c.Initial != InitialGreedy && c.Initial != InitialRandom {
		return fmt.Errorf("%w: unknown initial tour builder %d", ErrInvalidConfig, c.Initial)
	}
	if c.StartCity < 0 {
		return fmt.Errorf("%w: start city must not be negative, got %d", ErrInvalidConfig, c.StartCity)
	}
	if c.CheckpointInterval < 0 || c.ProgressInterval < 0 {
		return fmt.Errorf("%w: intervals must not be negative", ErrInvalidConfig)
	}
	return c.Controller.Validate()
}
