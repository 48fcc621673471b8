package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cwbudde/lnstsp/internal/lns"
	"github.com/cwbudde/lnstsp/internal/opt"
	"github.com/spf13/cobra"
)

var (
	tuneIterations int
	tuneSeeds      int
	tuneMayflyIter int
	tunePopSize    int
	tuneSeed       int64
	tuneOut        string
)

var tuneCmd = &cobra.Command{
	Use:   "tune [instance or directory]...",
	Short: "Search annealing and operator parameters with mayfly",
	Long: `Searches the initial temperature, cooling rate, random-removal fraction
and Shaw relatedness threshold with the mayfly algorithm. Every trial runs a
fixed number of LNS iterations per instance and seed, so scores are
reproducible. The score is the mean cost relative to the nearest-neighbor
tour; lower is better.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTune,
}

func init() {
	defaults := opt.DefaultTunerConfig()
	tuneCmd.Flags().IntVar(&tuneIterations, "iterations", defaults.Iterations, "LNS iterations per trial solve")
	tuneCmd.Flags().IntVar(&tuneSeeds, "seeds", defaults.Seeds, "Solver seeds per instance")
	tuneCmd.Flags().IntVar(&tuneMayflyIter, "iters", defaults.MaxIters, "Mayfly iterations")
	tuneCmd.Flags().IntVar(&tunePopSize, "pop", defaults.PopSize, "Mayfly population size (min 20)")
	tuneCmd.Flags().Int64Var(&tuneSeed, "seed", defaults.Seed, "Mayfly random seed")
	tuneCmd.Flags().StringVar(&tuneOut, "out", "", "Write the result as JSON to this path")
	rootCmd.AddCommand(tuneCmd)
}

func runTune(cmd *cobra.Command, args []string) error {
	insts, err := loadInstances(args)
	if err != nil {
		return err
	}
	matrices := make([]lns.Matrix, len(insts))
	for i, inst := range insts {
		matrices[i] = inst.Matrix
	}

	cfg := opt.DefaultTunerConfig()
	cfg.Iterations = tuneIterations
	cfg.Seeds = tuneSeeds
	cfg.MaxIters = tuneMayflyIter
	cfg.PopSize = tunePopSize
	cfg.Seed = tuneSeed

	tuner, err := opt.NewTuner(cfg, matrices, logger)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	result, err := tuner.Tune(ctx, opt.NewMayfly(cfg.MaxIters, cfg.PopSize, cfg.Seed))
	if err != nil {
		return err
	}

	best := result.Best
	fmt.Printf("Evaluations: %d\n", result.Evaluations)
	fmt.Printf("Default score: %.6f\n", result.BaseScore)
	fmt.Printf("Best score:    %.6f\n\n", result.Score)
	fmt.Printf("  --t0 %.4g --cooling %.6f --random-fraction %.3f --shaw-alpha %.4g\n",
		best.InitialTemperature, best.CoolingRate, best.RandomFraction, best.ShawAlpha)

	if tuneOut != "" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		if err := os.WriteFile(tuneOut, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", tuneOut, err)
		}
	}
	return nil
}
