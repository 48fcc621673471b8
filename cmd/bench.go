package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/cwbudde/lnstsp/internal/instance"
	"github.com/cwbudde/lnstsp/internal/lns"
	"github.com/cwbudde/lnstsp/internal/report"
	"github.com/cwbudde/lnstsp/internal/store"
	"github.com/spf13/cobra"
)

var (
	benchRuns          int
	benchSeed          int64
	benchTimeLimit     float64
	benchMaxIterations int
	benchInitial       string
	benchCSV           string
)

var benchCmd = &cobra.Command{
	Use:   "bench [instance or directory]...",
	Short: "Benchmark the solver over seeded runs",
	Long: `Solves every instance several times with consecutive seeds and prints
cost statistics and the gap to the best known tour where the instance
carries one. Per-run results can be written as CSV.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBench,
}

func init() {
	benchCmd.Flags().IntVar(&benchRuns, "runs", 5, "Runs per instance")
	benchCmd.Flags().Int64Var(&benchSeed, "seed", 1, "Seed of the first run")
	benchCmd.Flags().Float64Var(&benchTimeLimit, "time-limit", 0, "Time limit per run in seconds (0 = instance timeout, else 60)")
	benchCmd.Flags().IntVar(&benchMaxIterations, "max-iterations", 0, "Iterations per run (0 = unbounded)")
	benchCmd.Flags().StringVar(&benchInitial, "initial", "greedy", "Initial tour: greedy, random")
	benchCmd.Flags().StringVar(&benchCSV, "csv", "", "Write per-run results to this CSV file")
	rootCmd.AddCommand(benchCmd)
}

func runBench(cmd *cobra.Command, args []string) error {
	if benchRuns <= 0 {
		return fmt.Errorf("--runs must be positive")
	}

	insts, err := loadInstances(args)
	if err != nil {
		return err
	}

	host := report.DescribeHost()
	slog.Info("Starting benchmark", "instances", len(insts), "runs", benchRuns, "host", host.String())

	ctx, stop := signalContext()
	defer stop()

	var (
		all       []report.Run
		summaries []report.Summary
	)
	for _, inst := range insts {
		runs, err := benchInstance(ctx, inst)
		if err != nil {
			return err
		}
		all = append(all, runs...)
		summaries = append(summaries, report.Summarize(inst.Name, runs))
		if ctx.Err() != nil {
			break
		}
	}

	fmt.Printf("Host: %s\n\n", host)
	if err := report.WriteTable(os.Stdout, summaries); err != nil {
		return err
	}

	if benchCSV != "" {
		f, err := os.Create(benchCSV)
		if err != nil {
			return fmt.Errorf("failed to create CSV: %w", err)
		}
		defer f.Close()
		if err := report.WriteCSV(f, all); err != nil {
			return err
		}
		fmt.Printf("\nWrote %s\n", benchCSV)
	}
	return nil
}

// benchInstance solves inst benchRuns times. A cancelled run is kept and
// ends the series.
func benchInstance(ctx context.Context, inst *instance.Instance) ([]report.Run, error) {
	var runs []report.Run
	for i := 0; i < benchRuns; i++ {
		config := store.JobConfig{
			InstancePath:  inst.Name,
			Cities:        inst.CityCount(),
			TimeLimit:     benchTimeLimit,
			MaxIterations: benchMaxIterations,
			Seed:          benchSeed + int64(i),
			Initial:       benchInitial,
		}
		cfg, err := config.SolverConfig(inst.TimeLimit(defaultTimeLimit))
		if err != nil {
			return nil, err
		}

		log := slog.Default().With("instance", inst.Name, "seed", config.Seed)
		solver, err := lns.NewSolver(inst.Matrix, cfg, lns.WithLogger(log))
		if err != nil {
			return nil, err
		}
		res, err := solver.Solve(ctx)
		if err != nil {
			return nil, err
		}

		run := report.Run{
			Instance:    inst.Name,
			Seed:        config.Seed,
			Cost:        res.Cost,
			InitialCost: res.InitialCost,
			Iterations:  res.Stats.Iterations,
			Elapsed:     res.Elapsed,
			StopReason:  string(res.StopReason),
		}
		if _, rel, ok := inst.Gap(res.Cost); ok {
			run.Gap, run.HasGap = rel, true
		}
		runs = append(runs, run)

		if res.StopReason == lns.StopCancelled {
			break
		}
	}
	return runs, nil
}
