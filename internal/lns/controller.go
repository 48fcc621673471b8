package lns

import (
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
)

// ControllerConfig defines the stagnation policy of the adaptive controller.
type ControllerConfig struct {
	// TuneAt lists the stagnation counts at which the active destroy operator
	// has its parameters widened.
	TuneAt []int `json:"tuneAt"`

	// RotateAt is the stagnation count past which the controller switches to
	// the next destroy operator.
	RotateAt int `json:"rotateAt"`

	// StartDestroy and StartRepair select the operators used first.
	StartDestroy DestroyKind `json:"startDestroy"`
	StartRepair  RepairKind  `json:"startRepair"`

	// TwoOptPasses bounds the 2-opt passes run after every repair. At least
	// one pass always runs; a pass that makes no move ends the sequence.
	TwoOptPasses int `json:"twoOptPasses"`

	// Params are the base operator parameters; tuning starts from here and
	// rotation restores them.
	Params DestroyParams `json:"params"`
}

// DefaultControllerConfig returns the stagnation policy used by DefaultConfig.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		TuneAt:       []int{20, 38},
		RotateAt:     60,
		StartDestroy: RandomRemoval,
		StartRepair:  GreedyInsertion,
		TwoOptPasses: 1,
		Params:       DefaultDestroyParams(),
	}
}

// Validate checks thresholds, operator selection and parameters.
func (c ControllerConfig) Validate() error {
	if c.RotateAt <= 0 {
		return fmt.Errorf("%w: rotate threshold must be positive, got %d", ErrInvalidConfig, c.RotateAt)
	}
	for _, t := range c.TuneAt {
		if t <= 0 || t > c.RotateAt {
			return fmt.Errorf("%w: tune threshold %d outside (0, %d]", ErrInvalidConfig, t, c.RotateAt)
		}
	}
	if c.StartDestroy < 0 || c.StartDestroy >= numDestroyKinds {
		return fmt.Errorf("%w: unknown destroy operator %d", ErrInvalidConfig, c.StartDestroy)
	}
	if c.StartRepair < 0 || c.StartRepair >= numRepairKinds {
		return fmt.Errorf("%w: unknown repair operator %d", ErrInvalidConfig, c.StartRepair)
	}
	return c.Params.Validate()
}

// Controller owns operator selection, parameter tuning and stagnation
// detection. Destroy and Repair are its only mutation entry points.
//
// A Controller is not safe for concurrent use; every solve owns one.
type Controller struct {
	cfg    ControllerConfig
	params DestroyParams
	rng    *rand.Rand
	logger *slog.Logger

	destroy DestroyKind
	repair  RepairKind

	stepsNotImproved int
	stats            *Stats
}

// NewController creates a controller positioned on the configured start
// operators. stats may be nil.
func NewController(cfg ControllerConfig, rng *rand.Rand, logger *slog.Logger, stats *Stats) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if stats == nil {
		stats = &Stats{}
	}
	return &Controller{
		cfg:     cfg,
		params:  cfg.Params,
		rng:     rng,
		logger:  logger,
		destroy: cfg.StartDestroy,
		repair:  cfg.StartRepair,
		stats:   stats,
	}
}

// Operators returns the currently selected destroy and repair operators.
func (c *Controller) Operators() (DestroyKind, RepairKind) {
	return c.destroy, c.repair
}

// Params returns the current, possibly tuned, operator parameters.
func (c *Controller) Params() DestroyParams { return c.params }

// StepsNotImproved returns the current stagnation counter.
func (c *Controller) StepsNotImproved() int { return c.stepsNotImproved }

// Destroy removes cities from sol with the active destroy operator and
// returns them.
func (c *Controller) Destroy(sol *Solution, m Matrix) []int {
	c.stats.DestroyUses[c.destroy]++

	switch c.destroy {
	case WorstRemoval:
		return RemoveWorst(sol, c.params.WorstCount, m)
	case ShawRemoval:
		return RemoveShaw(sol, c.params.ShawCount, c.params.ShawAlpha, m, c.rng)
	default:
		return RemoveRandom(sol, c.params.randomCount(sol.Len()), m, c.rng)
	}
}

// Repair reinserts removed with the active repair operator and then runs
// 2-opt on the completed tour.
func (c *Controller) Repair(sol *Solution, removed []int, m Matrix) {
	c.stats.RepairUses[c.repair]++

	switch c.repair {
	case RandomInsertion:
		InsertRandom(sol, removed, m, c.rng)
	default:
		InsertGreedy(sol, removed, m)
	}

	for pass := 0; pass < max(1, c.cfg.TwoOptPasses); pass++ {
		if !TwoOpt(sol, m) {
			break
		}
		c.stats.TwoOptMoves++
	}
}

// Improved resets the stagnation counter after a new best tour.
func (c *Controller) Improved() {
	c.stepsNotImproved = 0
}

// Stagnated records a non-improving iteration and applies the tuning and
// rotation thresholds.
func (c *Controller) Stagnated() {
	c.stepsNotImproved++

	if slices.Contains(c.cfg.TuneAt, c.stepsNotImproved) {
		c.params = c.params.widen(c.destroy)
		c.stats.Tunings++
		c.logger.Debug("Widening destroy operator",
			"operator", c.destroy.String(),
			"steps_not_improved", c.stepsNotImproved,
			"params", c.params,
		)
	}

	if c.stepsNotImproved > c.cfg.RotateAt {
		c.rotate()
	}
}

// rotate advances the destroy operator; wrapping around the destroy cycle
// also advances the repair operator, so over a long run every
// (destroy, repair) pair gets its turn.
func (c *Controller) rotate() {
	c.stepsNotImproved = 0
	c.stats.Rotations++

	prevDestroy, prevRepair := c.destroy, c.repair
	c.params = c.params.reset(prevDestroy, c.cfg.Params)
	c.destroy = (c.destroy + 1) % numDestroyKinds

	if c.destroy < prevDestroy {
		c.repair = (c.repair + 1) % numRepairKinds
		c.logger.Info("Search stagnated, switching destroy and repair operators",
			"destroy_from", prevDestroy.String(),
			"destroy_to", c.destroy.String(),
			"repair_from", prevRepair.String(),
			"repair_to", c.repair.String(),
		)
		return
	}

	c.logger.Info("Search stagnated, switching destroy operator",
		"destroy_from", prevDestroy.String(),
		"destroy_to", c.destroy.String(),
	)
}
