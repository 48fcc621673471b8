package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/lnstsp/internal/lns"
)

func TestSolutionFile_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "solution.json")
	sink := SolutionFile{Path: path}

	if err := sink.Save(lns.Snapshot{Tour: []int{3, 2, 1, 0}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := sink.Save(lns.Snapshot{Tour: []int{0, 1, 2, 3}, Final: true}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[0,1,2,3]" {
		t.Errorf("File = %s, want [0,1,2,3]", data)
	}

	tour, err := ReadSolution(path)
	if err != nil {
		t.Fatalf("ReadSolution failed: %v", err)
	}
	if len(tour) != 4 || tour[3] != 3 {
		t.Errorf("ReadSolution = %v", tour)
	}
}

func TestCheckpointSink_SavesValidCheckpoint(t *testing.T) {
	store, _ := setupTestStore(t)
	sink := &CheckpointSink{
		Store:           store,
		JobID:           "sink-job",
		Config:          JobConfig{InstancePath: "four.json", Cities: 4},
		InitialCost:     20,
		IterationOffset: 100,
	}

	if err := sink.Save(lns.Snapshot{Tour: []int{0, 1, 2, 3}, Cost: 4, Iteration: 7}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	cp, err := store.LoadCheckpoint("sink-job")
	if err != nil {
		t.Fatalf("LoadCheckpoint failed: %v", err)
	}
	if cp.BestCost != 4 || cp.InitialCost != 20 || cp.Iteration != 107 {
		t.Errorf("Unexpected checkpoint: %+v", cp)
	}
}

func TestCheckpointSink_RejectsWrongSize(t *testing.T) {
	store, _ := setupTestStore(t)
	sink := &CheckpointSink{Store: store, JobID: "j", Config: JobConfig{InstancePath: "x", Cities: 5}}

	err := sink.Save(lns.Snapshot{Tour: []int{0, 1, 2}})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
}

func TestSinks_WithSolver(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFSStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	tw, err := NewTraceWriter(TracePath(dir, "solve"), false)
	if err != nil {
		t.Fatal(err)
	}
	defer tw.Close()

	m := lns.Matrix{
		{0, 1, 9, 1},
		{1, 0, 1, 9},
		{9, 1, 0, 1},
		{1, 9, 1, 0},
	}
	job := JobConfig{InstancePath: "four.json", Cities: 4, MaxIterations: 10, Initial: "random", Seed: 3}
	cfg, err := job.SolverConfig(0)
	if err != nil {
		t.Fatal(err)
	}
	cfg.CheckpointInterval = 0

	solutionPath := filepath.Join(dir, "solution.json")
	sink := lns.MultiSink{
		SolutionFile{Path: solutionPath},
		&CheckpointSink{Store: store, JobID: "solve", Config: job},
		&TraceSink{Writer: tw, Tours: true},
	}
	solver, err := lns.NewSolver(m, cfg, lns.WithSink(sink))
	if err != nil {
		t.Fatal(err)
	}
	res, err := solver.Solve(context.Background())
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}

	tour, err := ReadSolution(solutionPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := lns.ValidatePermutation(tour, 4); err != nil {
		t.Errorf("Solution file holds an invalid tour: %v", err)
	}
	if lns.FullCost(tour, m) != res.Cost {
		t.Errorf("Solution file cost %v, result cost %v", lns.FullCost(tour, m), res.Cost)
	}

	cp, err := store.LoadCheckpoint("solve")
	if err != nil {
		t.Fatal(err)
	}
	if cp.BestCost != res.Cost || cp.Iteration != 10 {
		t.Errorf("Checkpoint %+v does not match result %+v", cp, res)
	}

	entries, err := ReadTrace(TracePath(dir, "solve"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != res.Stats.Improvements+1 {
		t.Errorf("Trace has %d entries, want %d", len(entries), res.Stats.Improvements+1)
	}
	last := entries[len(entries)-1]
	if last.Cost != res.Cost || len(last.Tour) != 4 {
		t.Errorf("Last trace entry %+v does not match result", last)
	}
}
