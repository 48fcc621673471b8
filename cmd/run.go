package main

import (
	"fmt"
	"log/slog"

	"github.com/cwbudde/lnstsp/internal/instance"
	"github.com/cwbudde/lnstsp/internal/lns"
	"github.com/cwbudde/lnstsp/internal/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	instancePath       string
	outPath            string
	timeLimit          float64
	maxIterations      int
	seed               int64
	initialBuilder     string
	initialTemperature float64
	coolingRate        float64
	randomFraction     float64
	shawAlpha          float64
	checkpointInterval int
	runDataDir         string
	runJobID           string
	traceEnabled       bool
	traceTours         bool
	verifyTours        bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Solve one instance",
	Long: `Solves one instance and writes the best tour as a JSON array of city
indices. The output file is overwritten whenever the best tour improves
(at most once per checkpoint interval) and always when the search ends,
including on Ctrl-C.`,
	RunE: runSolve,
}

func init() {
	runCmd.Flags().StringVar(&instancePath, "instance", "", "Instance JSON path (required)")
	runCmd.Flags().StringVar(&outPath, "out", "solution.json", "Solution output path")
	runCmd.Flags().Float64Var(&timeLimit, "time-limit", 0, "Time limit in seconds (0 = instance timeout, else 60)")
	runCmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "Stop after N iterations (0 = unbounded)")
	runCmd.Flags().Int64Var(&seed, "seed", 1, "Random seed")
	runCmd.Flags().StringVar(&initialBuilder, "initial", "greedy", "Initial tour: greedy, random")
	runCmd.Flags().Float64Var(&initialTemperature, "t0", 0, "Initial temperature (0 = default)")
	runCmd.Flags().Float64Var(&coolingRate, "cooling", 0, "Cooling rate per iteration (0 = default)")
	runCmd.Flags().Float64Var(&randomFraction, "random-fraction", 0, "Share of cities removed by random removal (0 = default)")
	runCmd.Flags().Float64Var(&shawAlpha, "shaw-alpha", 0, "Shaw removal relatedness threshold (0 = default)")
	runCmd.Flags().IntVar(&checkpointInterval, "checkpoint-interval", 1, "Write improved tours at most every N seconds (0 = every improvement)")
	runCmd.Flags().StringVar(&runDataDir, "data-dir", "", "Checkpoint store directory (empty = no checkpoints)")
	runCmd.Flags().StringVar(&runJobID, "job-id", "", "Job ID for checkpoints (default: random UUID)")
	runCmd.Flags().BoolVar(&traceEnabled, "trace", false, "Record a JSONL cost trace in the checkpoint store")
	runCmd.Flags().BoolVar(&traceTours, "trace-tours", false, "Include full tours in the trace")
	runCmd.Flags().BoolVar(&verifyTours, "verify", false, "Check the tour invariant after every iteration")

	runCmd.MarkFlagRequired("instance")
	rootCmd.AddCommand(runCmd)
}

func runSolve(cmd *cobra.Command, args []string) error {
	inst, err := instance.Load(instancePath)
	if err != nil {
		return err
	}

	st, err := openStore(runDataDir)
	if err != nil {
		return err
	}
	if traceEnabled && st == nil {
		return fmt.Errorf("--trace requires --data-dir")
	}

	jobID := runJobID
	if jobID == "" {
		jobID = uuid.New().String()
	}

	config := store.JobConfig{
		InstancePath:       instancePath,
		Cities:             inst.CityCount(),
		TimeLimit:          timeLimit,
		MaxIterations:      maxIterations,
		Seed:               seed,
		Initial:            initialBuilder,
		InitialTemperature: initialTemperature,
		CoolingRate:        coolingRate,
		CheckpointInterval: checkpointInterval,
		Operators:          operatorOverrides(randomFraction, shawAlpha),
	}

	slog.Info("Starting solve", "job_id", jobID, "instance", inst.Name, "cities", inst.CityCount())

	ctx, stop := signalContext()
	defer stop()

	result, err := solve(ctx, solveRequest{
		jobID:      jobID,
		config:     config,
		inst:       inst,
		outPath:    outPath,
		store:      st,
		trace:      traceEnabled,
		traceTours: traceTours,
		verify:     verifyTours,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Wrote %s (cost: %.2f -> %.2f, %d iterations, %s)\n",
		outPath, result.InitialCost, result.Cost, result.Stats.Iterations, result.StopReason)
	if st != nil {
		fmt.Printf("Checkpoint: %s\n", jobID)
	}
	return nil
}

// operatorOverrides returns nil when no operator flag is set, so jobs keep
// the solver defaults.
func operatorOverrides(fraction, alpha float64) *lns.DestroyParams {
	if fraction == 0 && alpha == 0 {
		return nil
	}
	params := lns.DefaultDestroyParams()
	if fraction != 0 {
		params.RandomFraction = fraction
	}
	if alpha != 0 {
		params.ShawAlpha = alpha
	}
	return &params
}
