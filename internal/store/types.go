package store

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cwbudde/lnstsp/internal/lns"
)

// JobConfig holds the configuration of a solve job. It is persisted with
// every checkpoint and shared by the CLI and the server.
type JobConfig struct {
	InstancePath string `json:"instancePath"`
	Cities       int    `json:"cities"`

	// TimeLimit is the budget in seconds; 0 uses the instance timeout.
	TimeLimit     float64 `json:"timeLimit,omitempty"`
	MaxIterations int     `json:"maxIterations,omitempty"`

	Seed               int64   `json:"seed"`
	Initial            string  `json:"initial,omitempty"` // greedy, random
	InitialTemperature float64 `json:"initialTemperature,omitempty"`
	CoolingRate        float64 `json:"coolingRate,omitempty"`

	// Operators overrides the base destroy parameters when set.
	Operators *lns.DestroyParams `json:"operators,omitempty"`

	CheckpointInterval int `json:"checkpointInterval,omitempty"` // Checkpoint at most every N seconds (0 = every improvement)
}

// SolverConfig maps the job configuration onto solver settings. Zero fields
// keep the solver defaults; fallback is the time limit used when the job
// does not set one.
func (c JobConfig) SolverConfig(fallback time.Duration) (lns.Config, error) {
	cfg := lns.DefaultConfig()
	cfg.TimeLimit = fallback
	if c.TimeLimit > 0 {
		cfg.TimeLimit = time.Duration(c.TimeLimit * float64(time.Second))
	}
	cfg.MaxIterations = c.MaxIterations
	cfg.Seed = c.Seed
	cfg.CheckpointInterval = time.Duration(c.CheckpointInterval) * time.Second

	kind, ok := lns.ParseInitialKind(c.Initial)
	if !ok {
		return cfg, fmt.Errorf("%w: unknown initial tour builder %q", lns.ErrInvalidConfig, c.Initial)
	}
	cfg.Initial = kind

	if c.InitialTemperature > 0 {
		cfg.InitialTemperature = c.InitialTemperature
	}
	if c.CoolingRate > 0 {
		cfg.CoolingRate = c.CoolingRate
	}
	if c.Operators != nil {
		cfg.Controller.Params = *c.Operators
	}

	return cfg, cfg.Validate()
}

// Checkpoint represents a saved solve that can be resumed later.
//
// Only the best tour is saved. A resumed solve starts from that tour with a
// fresh annealing schedule and fresh operator state, so the best cost never
// gets worse but the run is not a bit-exact continuation.
type Checkpoint struct {
	// JobID is the unique identifier for this job
	JobID string `json:"jobId"`

	// BestTour is the best permutation of the cities found so far
	BestTour []int `json:"bestTour"`

	// BestCost is the length of BestTour
	BestCost float64 `json:"bestCost"`

	// InitialCost is the cost of the start tour, for tracking improvement
	InitialCost float64 `json:"initialCost"`

	// Iteration is the iteration count when this checkpoint was created
	Iteration int `json:"iteration"`

	// Timestamp records when this checkpoint was created
	Timestamp time.Time `json:"timestamp"`

	// Config holds the job configuration, needed for validation during resume.
	Config JobConfig `json:"config"`
}

// CheckpointInfo contains metadata about a checkpoint without the tour.
type CheckpointInfo struct {
	JobID        string    `json:"jobId"`
	BestCost     float64   `json:"bestCost"`
	InitialCost  float64   `json:"initialCost"`
	Iteration    int       `json:"iteration"`
	Timestamp    time.Time `json:"timestamp"`
	InstancePath string    `json:"instancePath"`
	Cities       int       `json:"cities"`
}

// NewCheckpoint creates a checkpoint from job state.
func NewCheckpoint(jobID string, bestTour []int, bestCost, initialCost float64, iteration int, config JobConfig) *Checkpoint {
	return &Checkpoint{
		JobID:       jobID,
		BestTour:    bestTour,
		BestCost:    bestCost,
		InitialCost: initialCost,
		Iteration:   iteration,
		Timestamp:   time.Now(),
		Config:      config,
	}
}

// ToInfo converts a full Checkpoint to CheckpointInfo (metadata only).
func (c *Checkpoint) ToInfo() CheckpointInfo {
	return CheckpointInfo{
		JobID:        c.JobID,
		BestCost:     c.BestCost,
		InitialCost:  c.InitialCost,
		Iteration:    c.Iteration,
		Timestamp:    c.Timestamp,
		InstancePath: c.Config.InstancePath,
		Cities:       c.Config.Cities,
	}
}

// Validate checks if the checkpoint has valid data.
func (c *Checkpoint) Validate() error {
	if c.JobID == "" {
		return &ValidationError{Field: "JobID", Reason: "cannot be empty"}
	}
	if len(c.BestTour) == 0 {
		return &ValidationError{Field: "BestTour", Reason: "cannot be empty"}
	}
	if err := lns.ValidatePermutation(c.BestTour, len(c.BestTour)); err != nil {
		return &ValidationError{Field: "BestTour", Reason: err.Error()}
	}
	if c.BestCost < 0 {
		return &ValidationError{Field: "BestCost", Reason: "cannot be negative"}
	}
	if c.InitialCost < 0 {
		return &ValidationError{Field: "InitialCost", Reason: "cannot be negative"}
	}
	if c.Iteration < 0 {
		return &ValidationError{Field: "Iteration", Reason: "cannot be negative"}
	}
	if c.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	if c.Config.InstancePath == "" {
		return &ValidationError{Field: "Config.InstancePath", Reason: "cannot be empty"}
	}
	if c.Config.Cities != len(c.BestTour) {
		return &ValidationError{
			Field:  "BestTour",
			Reason: fmt.Sprintf("length mismatch: expected %d cities, got %d", c.Config.Cities, len(c.BestTour)),
		}
	}
	return nil
}

// ValidationError represents a checkpoint validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

// IsCompatible checks if this checkpoint can be resumed with the given config.
// Schedule and operator settings may differ; the instance may not.
func (c *Checkpoint) IsCompatible(config JobConfig) error {
	if c.Config.InstancePath != config.InstancePath {
		return &CompatibilityError{
			Field:    "InstancePath",
			Expected: c.Config.InstancePath,
			Actual:   config.InstancePath,
		}
	}
	if c.Config.Cities != config.Cities {
		return &CompatibilityError{
			Field:    "Cities",
			Expected: strconv.Itoa(c.Config.Cities),
			Actual:   strconv.Itoa(config.Cities),
		}
	}
	return nil
}

// CompatibilityError represents a checkpoint compatibility error.
type CompatibilityError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *CompatibilityError) Error() string {
	return "compatibility error: " + e.Field + " mismatch (expected " + e.Expected + ", got " + e.Actual + ")"
}
