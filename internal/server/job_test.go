package server

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestJobManager_CreateJob(t *testing.T) {
	jm := NewJobManager()

	config := JobConfig{
		InstancePath:  "data/six.json",
		MaxIterations: 100,
		Seed:          42,
	}

	job := jm.CreateJob(config)

	if job.ID == "" {
		t.Error("Job ID should not be empty")
	}

	if job.State != StatePending {
		t.Errorf("Initial state should be pending, got %s", job.State)
	}

	if job.Config.InstancePath != "data/six.json" {
		t.Errorf("Config not set correctly")
	}
}

func TestJobManager_GetJob(t *testing.T) {
	jm := NewJobManager()

	job := jm.CreateJob(JobConfig{InstancePath: "a.json"})

	retrieved, exists := jm.GetJob(job.ID)
	if !exists {
		t.Fatal("Job should exist")
	}

	if retrieved.ID != job.ID {
		t.Error("Retrieved wrong job")
	}

	_, exists = jm.GetJob("nonexistent")
	if exists {
		t.Error("Should not find nonexistent job")
	}
}

func TestJobManager_GetJobReturnsCopy(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(JobConfig{InstancePath: "a.json"})

	jm.UpdateJob(job.ID, func(j *Job) { j.BestTour = []int{0, 1, 2} })

	snap, _ := jm.GetJob(job.ID)
	snap.BestTour[0] = 99
	snap.State = StateFailed

	again, _ := jm.GetJob(job.ID)
	if again.BestTour[0] != 0 {
		t.Error("Mutating a snapshot must not change the stored tour")
	}
	if again.State != StatePending {
		t.Errorf("Mutating a snapshot must not change the state, got %s", again.State)
	}
}

func TestJobManager_ListJobs(t *testing.T) {
	jm := NewJobManager()

	if len(jm.ListJobs()) != 0 {
		t.Error("Should start with no jobs")
	}

	first := jm.CreateJob(JobConfig{InstancePath: "one.json"})
	jm.CreateJob(JobConfig{InstancePath: "two.json"})

	jobs := jm.ListJobs()
	if len(jobs) != 2 {
		t.Fatalf("Expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].ID != first.ID {
		t.Error("Jobs should be listed oldest first")
	}
}

func TestJobManager_UpdateJob(t *testing.T) {
	jm := NewJobManager()

	job := jm.CreateJob(JobConfig{InstancePath: "a.json"})

	err := jm.UpdateJob(job.ID, func(j *Job) {
		j.State = StateRunning
		j.Iterations = 10
		j.BestCost = 123.45
	})

	if err != nil {
		t.Errorf("Update should succeed: %v", err)
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateRunning {
		t.Error("State should be updated")
	}
	if updated.Iterations != 10 {
		t.Error("Iterations should be updated")
	}
	if updated.BestCost != 123.45 {
		t.Error("BestCost should be updated")
	}

	err = jm.UpdateJob("nonexistent", func(j *Job) {})
	if !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Expected ErrJobNotFound, got %v", err)
	}
}

func TestJobManager_GetRunningJobs(t *testing.T) {
	jm := NewJobManager()

	a := jm.CreateJob(JobConfig{InstancePath: "a.json"})
	jm.CreateJob(JobConfig{InstancePath: "b.json"})
	jm.UpdateJob(a.ID, func(j *Job) { j.State = StateRunning })

	running := jm.GetRunningJobs()
	if len(running) != 1 || running[0].ID != a.ID {
		t.Errorf("Expected only job %s running, got %v", a.ID, running)
	}
}

func TestJobManager_CancelJob(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(JobConfig{InstancePath: "a.json"})

	ctx, cancel := context.WithCancel(context.Background())
	jm.setCancel(job.ID, cancel)

	if err := jm.CancelJob(job.ID); err != nil {
		t.Fatalf("CancelJob failed: %v", err)
	}
	if ctx.Err() == nil {
		t.Error("Job context should be cancelled")
	}

	if err := jm.CancelJob("nonexistent"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Expected ErrJobNotFound, got %v", err)
	}

	jm.UpdateJob(job.ID, func(j *Job) { j.State = StateCompleted })
	jm.releaseCancel(job.ID)
	if err := jm.CancelJob(job.ID); !errors.Is(err, ErrJobFinished) {
		t.Errorf("Expected ErrJobFinished, got %v", err)
	}
}

func TestJobState_Terminal(t *testing.T) {
	tests := []struct {
		state    JobState
		terminal bool
	}{
		{StatePending, false},
		{StateRunning, false},
		{StateCompleted, true},
		{StateFailed, true},
		{StateCancelled, true},
	}

	for _, tt := range tests {
		if got := tt.state.Terminal(); got != tt.terminal {
			t.Errorf("%s.Terminal() = %v, want %v", tt.state, got, tt.terminal)
		}
	}
}

func TestJobManager_ThreadSafety(t *testing.T) {
	jm := NewJobManager()

	job := jm.CreateJob(JobConfig{InstancePath: "a.json"})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(iteration int) {
			defer wg.Done()
			jm.UpdateJob(job.ID, func(j *Job) {
				j.Iterations = iteration
				j.BestTour = append(j.BestTour, iteration)
			})
		}(i)
		go func() {
			defer wg.Done()
			jm.GetJob(job.ID)
			jm.ListJobs()
		}()
	}
	wg.Wait()

	updated, exists := jm.GetJob(job.ID)
	if !exists {
		t.Fatal("Job should still exist after concurrent updates")
	}
	if len(updated.BestTour) != 10 {
		t.Errorf("Expected 10 appended entries, got %d", len(updated.BestTour))
	}
}
