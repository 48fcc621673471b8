package opt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/cwbudde/lnstsp/internal/lns"
	"gonum.org/v1/gonum/stat"
)

// ErrNoInstances is returned when a tuner has nothing to evaluate on.
var ErrNoInstances = errors.New("opt: no instances to tune on")

// TunerConfig controls a schedule search.
type TunerConfig struct {
	// Iterations is the fixed LNS iteration budget of every trial solve.
	// Trials are bounded by iterations rather than time so that scores are
	// reproducible.
	Iterations int

	// Seeds is the number of solver seeds averaged per instance.
	Seeds int

	// MaxIters, PopSize and Seed configure mayfly.
	MaxIters int
	PopSize  int
	Seed     int64

	// Base provides every solver setting the schedule does not cover.
	Base lns.Config
}

// DefaultTunerConfig returns a small search suitable for instances of a few
// hundred cities.
func DefaultTunerConfig() TunerConfig {
	return TunerConfig{
		Iterations: 2000,
		Seeds:      2,
		MaxIters:   20,
		PopSize:    20,
		Seed:       1,
		Base:       lns.DefaultConfig(),
	}
}

// TuneResult is the outcome of a schedule search.
type TuneResult struct {
	Best        Schedule `json:"best"`
	Score       float64  `json:"score"`
	Baseline    Schedule `json:"baseline"`
	BaseScore   float64  `json:"baselineScore"`
	Evaluations int      `json:"evaluations"`
}

// Tuner scores schedules on a fixed set of instances.
//
// The score of a schedule is the mean, over instances and seeds, of the
// final cost divided by the nearest-neighbor cost of the instance. Lower is
// better; a greedy-started solve never scores above 1.
type Tuner struct {
	cfg       TunerConfig
	matrices  []lns.Matrix
	reference []float64
	logger    *slog.Logger
	quiet     *slog.Logger

	evaluations int
}

// NewTuner validates the configuration and precomputes the reference cost of
// every instance.
func NewTuner(cfg TunerConfig, matrices []lns.Matrix, logger *slog.Logger) (*Tuner, error) {
	if len(matrices) == 0 {
		return nil, ErrNoInstances
	}
	if cfg.Iterations <= 0 {
		return nil, fmt.Errorf("%w: trial iterations must be positive, got %d", lns.ErrInvalidConfig, cfg.Iterations)
	}
	if cfg.Seeds <= 0 {
		cfg.Seeds = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	reference := make([]float64, len(matrices))
	for i, m := range matrices {
		_, cost := lns.GreedyNearestNeighbor(m.Size(), m, 0)
		if cost <= 0 {
			cost = 1
		}
		reference[i] = cost
	}

	return &Tuner{
		cfg:       cfg,
		matrices:  matrices,
		reference: reference,
		logger:    logger,
		quiet:     slog.New(slog.DiscardHandler),
	}, nil
}

// Evaluate scores one schedule. It returns +Inf once ctx is done.
func (t *Tuner) Evaluate(ctx context.Context, s Schedule) (float64, error) {
	t.evaluations++

	ratios := make([]float64, 0, len(t.matrices)*t.cfg.Seeds)
	for i, m := range t.matrices {
		for seed := 0; seed < t.cfg.Seeds; seed++ {
			if err := ctx.Err(); err != nil {
				return math.Inf(1), err
			}

			cfg := s.Apply(t.cfg.Base)
			cfg.TimeLimit = 0
			cfg.MaxIterations = t.cfg.Iterations
			cfg.Seed = t.cfg.Base.Seed + int64(seed)
			cfg.ProgressInterval = 0

			solver, err := lns.NewSolver(m, cfg, lns.WithLogger(t.quiet))
			if err != nil {
				return math.Inf(1), err
			}
			res, err := solver.Solve(ctx)
			if err != nil {
				return math.Inf(1), err
			}
			ratios = append(ratios, res.Cost/t.reference[i])
		}
	}
	return stat.Mean(ratios, nil), nil
}

// Tune runs opt over the schedule space and reports the best schedule next to
// the default one.
func (t *Tuner) Tune(ctx context.Context, optimizer Optimizer) (*TuneResult, error) {
	baseline := DefaultSchedule()
	baseScore, err := t.Evaluate(ctx, baseline)
	if err != nil {
		return nil, fmt.Errorf("evaluate default schedule: %w", err)
	}
	t.logger.Info("Evaluated default schedule", "score", baseScore)

	var evalErr error
	best, bestScore := baseline, baseScore
	eval := func(x []float64) float64 {
		if evalErr != nil {
			return math.Inf(1)
		}
		s := DecodeSchedule(x)
		score, err := t.Evaluate(ctx, s)
		if err != nil {
			evalErr = err
			return math.Inf(1)
		}
		if score < bestScore {
			best, bestScore = s, score
			t.logger.Info("New best schedule",
				"evaluation", t.evaluations,
				"score", score,
				"initial_temperature", s.InitialTemperature,
				"cooling_rate", s.CoolingRate,
				"random_fraction", s.RandomFraction,
				"shaw_alpha", s.ShawAlpha,
			)
		}
		return score
	}

	if _, _, err := optimizer.Run(eval, scheduleDims); err != nil {
		return nil, err
	}
	if evalErr != nil {
		return nil, evalErr
	}

	return &TuneResult{
		Best:        best,
		Score:       bestScore,
		Baseline:    baseline,
		BaseScore:   baseScore,
		Evaluations: t.evaluations,
	}, nil
}
