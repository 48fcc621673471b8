package lns

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"slices"
	"sync/atomic"
	"time"
)

// ErrInvalidMatrix is returned by NewSolver for an empty or non-square matrix.
var ErrInvalidMatrix = errors.New("lns: invalid distance matrix")

// Phase is the lifecycle state of a Solver.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseInitializing
	PhaseSearching
	PhaseTerminated
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseInitializing:
		return "initializing"
	case PhaseSearching:
		return "searching"
	case PhaseTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// StopReason tells why the search loop ended.
type StopReason string

const (
	StopTimeLimit     StopReason = "time_limit"
	StopMaxIterations StopReason = "max_iterations"
	StopCancelled     StopReason = "cancelled"
)

// Stats counts what happened during a solve.
type Stats struct {
	Iterations    int `json:"iterations"`
	Accepted      int `json:"accepted"`
	AcceptedWorse int `json:"acceptedWorse"`
	Improvements  int `json:"improvements"`
	Tunings       int `json:"tunings"`
	Rotations     int `json:"rotations"`
	TwoOptMoves   int `json:"twoOptMoves"`

	DestroyUses [numDestroyKinds]int `json:"destroyUses"`
	RepairUses  [numRepairKinds]int  `json:"repairUses"`
}

// Result is the outcome of Solve.
type Result struct {
	Tour        []int         `json:"tour"`
	Cost        float64       `json:"cost"`
	InitialCost float64       `json:"initialCost"`
	Elapsed     time.Duration `json:"elapsed"`
	Temperature float64       `json:"temperature"`
	StopReason  StopReason    `json:"stopReason"`
	Stats       Stats         `json:"stats"`
}

// Option customizes a Solver.
type Option func(*Solver)

// WithLogger sets the logger used for search events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Solver) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSink registers the destination of improved and final tours.
func WithSink(sink Sink) Option {
	return func(s *Solver) { s.sink = sink }
}

// WithProgress registers a callback invoked at most once per
// Config.ProgressInterval and once when the search ends.
func WithProgress(fn func(Progress)) Option {
	return func(s *Solver) { s.progress = fn }
}

// WithInitialTour starts the search from tour instead of building one.
// The tour is validated by Solve.
func WithInitialTour(tour []int) Option {
	return func(s *Solver) { s.initial = slices.Clone(tour) }
}

// Solver runs one LNS search over a fixed matrix.
//
// A Solver is single use per Solve call and owns no goroutines. Phase may be
// read concurrently while Solve is running.
type Solver struct {
	m      Matrix
	cfg    Config
	logger *slog.Logger

	sink     Sink
	progress func(Progress)
	initial  []int

	phase atomic.Int32
}

// NewSolver validates the matrix and configuration and returns a Solver.
func NewSolver(m Matrix, cfg Config, opts ...Option) (*Solver, error) {
	n := m.Size()
	if n == 0 {
		return nil, fmt.Errorf("%w: no cities", ErrInvalidMatrix)
	}
	for i, row := range m {
		if len(row) != n {
			return nil, fmt.Errorf("%w: row %d has %d entries, want %d", ErrInvalidMatrix, i, len(row), n)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.StartCity >= n {
		return nil, fmt.Errorf("%w: start city %d out of range for %d cities", ErrInvalidConfig, cfg.StartCity, n)
	}

	s := &Solver{
		m:      m,
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Phase returns the current lifecycle state.
func (s *Solver) Phase() Phase { return Phase(s.phase.Load()) }

func (s *Solver) setPhase(p Phase) { s.phase.Store(int32(p)) }

// AcceptanceProbability is the Metropolis criterion: 1 for any improvement,
// exp(-delta/temperature) otherwise, and 0 for a worse candidate once the
// temperature has reached zero.
func AcceptanceProbability(delta, temperature float64) float64 {
	if delta < 0 {
		return 1
	}
	if temperature <= 0 {
		if delta == 0 {
			return 1
		}
		return 0
	}
	return math.Exp(-delta / temperature)
}

// Solve runs the search until the time limit, MaxIterations or ctx ends it
// and returns the best tour found. Cancellation is a normal stop, reported
// through Result.StopReason.
//
// The sink, when set, receives the final tour exactly once. If that last save
// fails the Result is still returned together with the error.
func (s *Solver) Solve(ctx context.Context) (*Result, error) {
	s.setPhase(PhaseInitializing)
	defer s.setPhase(PhaseTerminated)

	start := time.Now()
	rng := rand.New(rand.NewSource(s.cfg.Seed))

	current, err := s.initialSolution(rng)
	if err != nil {
		return nil, err
	}
	best := current.Clone()
	initialCost := current.Cost

	var (
		stats       Stats
		ctrl        = NewController(s.cfg.Controller, rng, s.logger, &stats)
		temperature = s.cfg.InitialTemperature
		lastSave    time.Time
		unsaved     bool
		lastReport  = start
		stop        StopReason
	)

	s.logger.Info("Starting search",
		"cities", s.m.Size(),
		"initial", s.cfg.Initial.String(),
		"initial_cost", initialCost,
		"time_limit", s.cfg.TimeLimit,
		"max_iterations", s.cfg.MaxIterations,
		"seed", s.cfg.Seed,
	)

	s.setPhase(PhaseSearching)
	for {
		if stop = s.stopReason(ctx, start, stats.Iterations); stop != "" {
			break
		}

		explored := current.Clone()
		removed := ctrl.Destroy(explored, s.m)
		ctrl.Repair(explored, removed, s.m)
		stats.Iterations++

		if s.cfg.VerifyEachIteration {
			if err := ValidatePermutation(explored.Tour, s.m.Size()); err != nil {
				return nil, fmt.Errorf("%w: iteration %d: %w", ErrInvariantViolation, stats.Iterations, err)
			}
		}

		if explored.Cost < best.Cost {
			best = explored.Clone()
			stats.Improvements++
			ctrl.Improved()
			unsaved = true
			s.logger.Debug("New best tour",
				"iteration", stats.Iterations,
				"best_cost", best.Cost,
				"temperature", temperature,
			)
		} else {
			ctrl.Stagnated()
		}

		delta := explored.Cost - current.Cost
		if delta < 0 || rng.Float64() < AcceptanceProbability(delta, temperature) {
			current = explored
			stats.Accepted++
			if delta > 0 {
				stats.AcceptedWorse++
			}
		}
		temperature *= s.cfg.CoolingRate

		now := time.Now()
		if unsaved && s.sink != nil && now.Sub(lastSave) >= s.cfg.CheckpointInterval {
			s.save(best, initialCost, stats.Iterations, now.Sub(start), temperature, false)
			lastSave = now
			unsaved = false
		}
		if s.cfg.ProgressInterval > 0 && now.Sub(lastReport) >= s.cfg.ProgressInterval {
			lastReport = now
			s.logger.Info("Search running",
				"elapsed_seconds", int(now.Sub(start).Seconds()),
				"iteration", stats.Iterations,
				"best_cost", best.Cost,
				"current_cost", current.Cost,
				"temperature", temperature,
			)
			s.report(ctrl, stats.Iterations, best, current, temperature, now.Sub(start))
		}
	}

	elapsed := time.Since(start)
	if err := ValidatePermutation(best.Tour, s.m.Size()); err != nil {
		return nil, fmt.Errorf("%w: best tour: %w", ErrInvariantViolation, err)
	}
	best.Tour = RotateToStart(best.Tour, s.cfg.StartCity)

	s.report(ctrl, stats.Iterations, best, current, temperature, elapsed)
	s.logger.Info("Search finished",
		"stop_reason", string(stop),
		"iterations", stats.Iterations,
		"initial_cost", initialCost,
		"best_cost", best.Cost,
		"elapsed", elapsed,
		"improvements", stats.Improvements,
		"rotations", stats.Rotations,
	)

	result := &Result{
		Tour:        best.Tour,
		Cost:        best.Cost,
		InitialCost: initialCost,
		Elapsed:     elapsed,
		Temperature: temperature,
		StopReason:  stop,
		Stats:       stats,
	}

	if s.sink != nil {
		if err := s.sink.Save(snapshot(best, initialCost, stats.Iterations, elapsed, temperature, true)); err != nil {
			return result, fmt.Errorf("save final tour: %w", err)
		}
	}
	return result, nil
}

// initialSolution builds or validates the tour the search starts from.
func (s *Solver) initialSolution(rng *rand.Rand) (*Solution, error) {
	n := s.m.Size()
	if s.initial != nil {
		if err := ValidatePermutation(s.initial, n); err != nil {
			return nil, err
		}
		return NewSolution(slices.Clone(s.initial), s.m), nil
	}

	var (
		tour []int
		cost float64
	)
	switch s.cfg.Initial {
	case InitialRandom:
		tour, cost = RandomTour(n, s.m, rng)
	default:
		tour, cost = GreedyNearestNeighbor(n, s.m, s.cfg.StartCity)
	}
	return &Solution{Tour: tour, Cost: cost}, nil
}

// stopReason is checked once per iteration, before the next one starts.
func (s *Solver) stopReason(ctx context.Context, start time.Time, iterations int) StopReason {
	if ctx.Err() != nil {
		return StopCancelled
	}
	if s.cfg.MaxIterations > 0 && iterations >= s.cfg.MaxIterations {
		return StopMaxIterations
	}
	if s.cfg.TimeLimit > 0 && time.Since(start) >= s.cfg.TimeLimit {
		return StopTimeLimit
	}
	return ""
}

// save writes an intermediate checkpoint. Failures are logged and the search
// continues.
func (s *Solver) save(best *Solution, initialCost float64, iteration int, elapsed time.Duration, temperature float64, final bool) {
	if err := s.sink.Save(snapshot(best, initialCost, iteration, elapsed, temperature, final)); err != nil {
		s.logger.Warn("Failed to save tour", "iteration", iteration, "error", err)
	}
}

func (s *Solver) report(ctrl *Controller, iteration int, best, current *Solution, temperature float64, elapsed time.Duration) {
	if s.progress == nil {
		return
	}
	destroy, repair := ctrl.Operators()
	s.progress(Progress{
		Iteration:   iteration,
		BestCost:    best.Cost,
		CurrentCost: current.Cost,
		Temperature: temperature,
		Elapsed:     elapsed,
		Destroy:     destroy,
		Repair:      repair,
	})
}

func snapshot(sol *Solution, initialCost float64, iteration int, elapsed time.Duration, temperature float64, final bool) Snapshot {
	return Snapshot{
		Tour:        slices.Clone(sol.Tour),
		Cost:        sol.Cost,
		InitialCost: initialCost,
		Iteration:   iteration,
		Elapsed:     elapsed,
		Temperature: temperature,
		Final:       final,
	}
}
