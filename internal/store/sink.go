package store

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/cwbudde/lnstsp/internal/lns"
)

// SolutionFile writes the best tour as a plain JSON array of city indices,
// the format benchmark graders read. Every save replaces the file.
type SolutionFile struct {
	Path string
}

// Save atomically overwrites the file with snap.Tour.
func (f SolutionFile) Save(snap lns.Snapshot) error {
	data, err := json.Marshal(snap.Tour)
	if err != nil {
		return fmt.Errorf("failed to marshal tour: %w", err)
	}
	if err := writeFileAtomic(f.Path, data); err != nil {
		return fmt.Errorf("failed to write solution %s: %w", f.Path, err)
	}
	return nil
}

// ReadSolution loads a tour written by SolutionFile.
func ReadSolution(path string) ([]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read solution: %w", err)
	}
	var tour []int
	if err := json.Unmarshal(data, &tour); err != nil {
		return nil, fmt.Errorf("failed to decode solution %s: %w", path, err)
	}
	return tour, nil
}

// CheckpointSink turns snapshots into checkpoints of one job.
type CheckpointSink struct {
	Store  Store
	JobID  string
	Config JobConfig

	// InitialCost, when set, replaces the snapshot's initial cost. Resumed
	// jobs use it to keep the cost of the original start tour.
	InitialCost float64

	// IterationOffset is added to snapshot iterations, so a resumed job keeps
	// counting from its checkpoint.
	IterationOffset int
}

// Save stores snap as the job's checkpoint.
func (s *CheckpointSink) Save(snap lns.Snapshot) error {
	initialCost := snap.InitialCost
	if s.InitialCost > 0 {
		initialCost = s.InitialCost
	}
	cp := NewCheckpoint(s.JobID, snap.Tour, snap.Cost, initialCost, s.IterationOffset+snap.Iteration, s.Config)
	return s.Store.SaveCheckpoint(s.JobID, cp)
}

// TraceSink records every snapshot as a trace entry. The trace is flushed
// on the final snapshot.
type TraceSink struct {
	Writer *TraceWriter

	// Tours includes the full tour in each entry.
	Tours bool

	IterationOffset int
}

// Save appends snap to the trace.
func (s *TraceSink) Save(snap lns.Snapshot) error {
	entry := TraceEntry{
		Iteration:   s.IterationOffset + snap.Iteration,
		Cost:        snap.Cost,
		Temperature: snap.Temperature,
		Timestamp:   time.Now(),
	}
	if s.Tours {
		entry.Tour = snap.Tour
	}
	if err := s.Writer.Write(entry); err != nil {
		return err
	}
	if snap.Final {
		return s.Writer.Flush()
	}
	return nil
}
