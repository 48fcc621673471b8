package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/cwbudde/lnstsp/internal/instance"
	"github.com/cwbudde/lnstsp/internal/lns"
	"github.com/cwbudde/lnstsp/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// progressInterval throttles SSE updates to two per second.
	progressInterval = 500 * time.Millisecond

	// defaultTimeLimit applies when neither the job nor the instance sets one.
	defaultTimeLimit = 60 * time.Second
)

// resumeState carries what a resumed job starts from.
type resumeState struct {
	tour        []int
	iteration   int
	initialCost float64
}

// traceDirStore is implemented by stores that keep per-job files on disk.
type traceDirStore interface {
	BaseDir() string
}

// runJob solves the job's instance in the background. When checkpointStore is
// set and the job has a checkpoint interval, improved tours are checkpointed
// at most that often and the final tour is always checkpointed.
func runJob(ctx context.Context, jm *JobManager, checkpointStore store.Store, jobID string, resume *resumeState) (err error) {
	ctx, span := otel.Tracer("lnstsp/server").Start(ctx, "server.runJob",
		trace.WithAttributes(attribute.String("job_id", jobID)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	defer jm.releaseCancel(jobID)

	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	if err := jm.UpdateJob(jobID, func(j *Job) { j.State = StateRunning }); err != nil {
		return err
	}

	slog.Info("Starting job", "job_id", jobID, "instance", job.Config.InstancePath)

	inst, err := instance.Load(job.Config.InstancePath)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}
	if job.Config.Cities != 0 && job.Config.Cities != inst.CityCount() {
		err := fmt.Errorf("instance has %d cities, job expects %d", inst.CityCount(), job.Config.Cities)
		markJobFailed(jm, jobID, err)
		return err
	}
	if err := jm.UpdateJob(jobID, func(j *Job) { j.Config.Cities = inst.CityCount() }); err != nil {
		return err
	}
	job.Config.Cities = inst.CityCount()
	span.SetAttributes(attribute.Int("cities", inst.CityCount()))

	cfg, err := job.Config.SolverConfig(inst.TimeLimit(defaultTimeLimit))
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}
	cfg.ProgressInterval = progressInterval

	logger := slog.Default().With("job_id", jobID)
	opts := []lns.Option{
		lns.WithLogger(logger),
		lns.WithProgress(func(p lns.Progress) {
			_ = jm.UpdateJob(jobID, func(j *Job) {
				j.Iterations = offset(resume) + p.Iteration
				j.Temperature = p.Temperature
				j.Destroy = p.Destroy.String()
				j.Repair = p.Repair.String()
			})
			if snap, ok := jm.GetJob(jobID); ok {
				event := eventFromJob(snap)
				event.CurrentCost = p.CurrentCost
				if secs := p.Elapsed.Seconds(); secs > 0 {
					event.IterationsPerSecond = float64(p.Iteration) / secs
				}
				jm.broadcaster.Broadcast(event)
			}
		}),
	}
	if resume != nil {
		opts = append(opts, lns.WithInitialTour(resume.tour))
	}

	sinks := lns.MultiSink{lns.SinkFunc(func(snap lns.Snapshot) error {
		return jm.UpdateJob(jobID, func(j *Job) {
			j.BestTour = snap.Tour
			j.BestCost = snap.Cost
			j.InitialCost = snap.InitialCost
			if resume != nil {
				j.InitialCost = resume.initialCost
			}
		})
	})}

	if checkpointStore != nil && job.Config.CheckpointInterval > 0 {
		checkpoints := &store.CheckpointSink{
			Store:           checkpointStore,
			JobID:           jobID,
			Config:          job.Config,
			IterationOffset: offset(resume),
		}
		if resume != nil {
			checkpoints.InitialCost = resume.initialCost
		}
		sinks = append(sinks, checkpoints)

		if ds, ok := checkpointStore.(traceDirStore); ok {
			tw, err := store.NewTraceWriter(store.TracePath(ds.BaseDir(), jobID), resume != nil)
			if err != nil {
				slog.Warn("Failed to open trace", "job_id", jobID, "error", err)
			} else {
				defer tw.Close()
				sinks = append(sinks, &store.TraceSink{Writer: tw, IterationOffset: offset(resume)})
			}
		}
	}
	opts = append(opts, lns.WithSink(sinks))

	solver, err := lns.NewSolver(inst.Matrix, cfg, opts...)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	result, err := solver.Solve(ctx)
	if result == nil {
		markJobFailed(jm, jobID, err)
		return err
	}
	if err != nil {
		slog.Warn("Final save failed", "job_id", jobID, "error", err)
	}

	endTime := time.Now()
	err = jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		if result.StopReason == lns.StopCancelled {
			j.State = StateCancelled
		}
		j.BestTour = slices.Clone(result.Tour)
		j.BestCost = result.Cost
		j.InitialCost = result.InitialCost
		if resume != nil {
			j.InitialCost = resume.initialCost
		}
		j.Iterations = offset(resume) + result.Stats.Iterations
		j.Temperature = result.Temperature
		j.StopReason = string(result.StopReason)
		if _, rel, ok := inst.Gap(result.Cost); ok {
			j.Gap = &rel
		}
		j.EndTime = &endTime
	})
	if err != nil {
		return err
	}

	span.SetAttributes(
		attribute.Int("iterations", result.Stats.Iterations),
		attribute.Float64("best_cost", result.Cost),
		attribute.String("stop_reason", string(result.StopReason)),
	)

	final, _ := jm.GetJob(jobID)
	if final.State == StateCancelled {
		slog.Info("Job cancelled", "job_id", jobID, "best_cost", result.Cost)
	} else {
		slog.Info("Job completed",
			"job_id", jobID,
			"elapsed", result.Elapsed,
			"initial_cost", result.InitialCost,
			"best_cost", result.Cost,
			"iterations", result.Stats.Iterations,
			"stop_reason", string(result.StopReason),
		)
	}
	jm.broadcaster.Broadcast(eventFromJob(final))

	return nil
}

func offset(resume *resumeState) int {
	if resume == nil {
		return 0
	}
	return resume.iteration
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	endTime := time.Now()
	_ = jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	slog.Error("Job failed", "job_id", jobID, "error", err)

	if job, ok := jm.GetJob(jobID); ok {
		jm.broadcaster.Broadcast(eventFromJob(job))
	}
}
