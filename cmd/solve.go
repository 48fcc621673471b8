package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwbudde/lnstsp/internal/instance"
	"github.com/cwbudde/lnstsp/internal/lns"
	"github.com/cwbudde/lnstsp/internal/store"
)

// defaultTimeLimit applies when neither flags nor the instance set one.
const defaultTimeLimit = 60 * time.Second

// solveRequest describes one CLI solve, fresh or resumed.
type solveRequest struct {
	jobID   string
	config  store.JobConfig
	inst    *instance.Instance
	outPath string

	// store is nil when no checkpoints are kept.
	store      *store.FSStore
	trace      bool
	traceTours bool
	verify     bool

	// resume is the checkpoint a resumed solve starts from.
	resume *store.Checkpoint
}

// signalContext is cancelled on SIGINT or SIGTERM; the solve then stops
// after its current iteration and still writes its final tour.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// solve runs the search described by req and wires its sinks.
func solve(ctx context.Context, req solveRequest) (*lns.Result, error) {
	cfg, err := req.config.SolverConfig(req.inst.TimeLimit(defaultTimeLimit))
	if err != nil {
		return nil, err
	}
	cfg.VerifyEachIteration = req.verify

	log := slog.Default().With("job_id", req.jobID)
	offset := 0
	if req.resume != nil {
		offset = req.resume.Iteration
	}

	var sinks lns.MultiSink
	if req.outPath != "" {
		sinks = append(sinks, store.SolutionFile{Path: req.outPath})
	}
	if req.store != nil {
		cs := &store.CheckpointSink{
			Store:           req.store,
			JobID:           req.jobID,
			Config:          req.config,
			IterationOffset: offset,
		}
		if req.resume != nil {
			cs.InitialCost = req.resume.InitialCost
		}
		sinks = append(sinks, cs)

		if req.trace {
			tw, err := store.NewTraceWriter(store.TracePath(req.store.BaseDir(), req.jobID), req.resume != nil)
			if err != nil {
				return nil, err
			}
			defer tw.Close()
			sinks = append(sinks, &store.TraceSink{Writer: tw, Tours: req.traceTours, IterationOffset: offset})
		}
	}

	opts := []lns.Option{lns.WithLogger(log), lns.WithSink(sinks)}
	if req.resume != nil {
		opts = append(opts, lns.WithInitialTour(req.resume.BestTour))
	}

	solver, err := lns.NewSolver(req.inst.Matrix, cfg, opts...)
	if err != nil {
		return nil, err
	}

	result, err := solver.Solve(ctx)
	if err != nil {
		return result, fmt.Errorf("solve %s: %w", req.inst.Name, err)
	}

	if abs, rel, ok := req.inst.Gap(result.Cost); ok {
		log.Info("Gap to best known tour",
			"best_known", req.inst.GlobalBestVal,
			"gap", abs,
			"gap_percent", 100*rel,
		)
	}
	return result, nil
}

// openStore returns the checkpoint store in dir, or nil for an empty dir.
func openStore(dir string) (*store.FSStore, error) {
	if dir == "" {
		return nil, nil
	}
	st, err := store.NewFSStore(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkpoint store: %w", err)
	}
	return st, nil
}
