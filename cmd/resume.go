package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/cwbudde/lnstsp/internal/instance"
	"github.com/cwbudde/lnstsp/internal/store"
	"github.com/spf13/cobra"
)

var (
	resumeDataDir       string
	resumeInstancePath  string
	resumeOutPath       string
	resumeTimeLimit     float64
	resumeMaxIterations int
)

var resumeCmd = &cobra.Command{
	Use:   "resume [job-id]",
	Short: "Resume a solve from its checkpoint",
	Long: `Continues a checkpointed solve from its best tour. The annealing schedule
and operator state start fresh; iteration counts continue from the
checkpoint and the checkpoint is updated in place.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().StringVar(&resumeDataDir, "data-dir", "./data", "Checkpoint store directory")
	resumeCmd.Flags().StringVar(&resumeInstancePath, "instance", "", "Instance path (default: path recorded in the checkpoint)")
	resumeCmd.Flags().StringVar(&resumeOutPath, "out", "solution.json", "Solution output path")
	resumeCmd.Flags().Float64Var(&resumeTimeLimit, "time-limit", 0, "Time limit in seconds (0 = as recorded)")
	resumeCmd.Flags().IntVar(&resumeMaxIterations, "max-iterations", -1, "Iterations for this run (-1 = as recorded)")
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	jobID := args[0]

	st, err := store.NewFSStore(resumeDataDir)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint store: %w", err)
	}

	cp, err := st.LoadCheckpoint(jobID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no checkpoint for job %s in %s", jobID, resumeDataDir)
	}
	if err != nil {
		return err
	}

	config := cp.Config
	if resumeInstancePath != "" {
		config.InstancePath = resumeInstancePath
	}
	if resumeTimeLimit > 0 {
		config.TimeLimit = resumeTimeLimit
	}
	if resumeMaxIterations >= 0 {
		config.MaxIterations = resumeMaxIterations
	}

	inst, err := instance.Load(config.InstancePath)
	if err != nil {
		return err
	}
	if err := cp.IsCompatible(store.JobConfig{InstancePath: cp.Config.InstancePath, Cities: inst.CityCount()}); err != nil {
		return err
	}

	slog.Info("Resuming solve",
		"job_id", jobID,
		"instance", inst.Name,
		"iteration", cp.Iteration,
		"best_cost", cp.BestCost,
	)

	ctx, stop := signalContext()
	defer stop()

	result, err := solve(ctx, solveRequest{
		jobID:   jobID,
		config:  config,
		inst:    inst,
		outPath: resumeOutPath,
		store:   st,
		trace:   true,
		resume:  cp,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Wrote %s (cost: %.2f -> %.2f, %d iterations total)\n",
		resumeOutPath, cp.BestCost, result.Cost, cp.Iteration+result.Stats.Iterations)
	return nil
}
