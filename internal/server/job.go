package server

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/cwbudde/lnstsp/internal/store"
	"github.com/google/uuid"
)

// JobState represents the current state of a job
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
)

// Terminal reports whether no further updates will happen in this state.
func (s JobState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

var (
	// ErrJobNotFound is returned for unknown job IDs.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobFinished is returned when cancelling a job that already ended.
	ErrJobFinished = errors.New("job already finished")
)

// JobConfig is an alias to avoid duplication with store.JobConfig
type JobConfig = store.JobConfig

// Job is a solve running or finished on the server.
type Job struct {
	ID          string    `json:"id"`
	State       JobState  `json:"state"`
	Config      JobConfig `json:"config"`
	BestTour    []int     `json:"bestTour,omitempty"`
	BestCost    float64   `json:"bestCost"`
	InitialCost float64   `json:"initialCost"`
	Iterations  int       `json:"iterations"`
	Temperature float64   `json:"temperature"`
	Destroy     string    `json:"destroy,omitempty"`
	Repair      string    `json:"repair,omitempty"`
	StopReason  string    `json:"stopReason,omitempty"`

	// Gap is the relative distance to the instance's best known cost.
	Gap *float64 `json:"gap,omitempty"`

	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// Elapsed returns the run time so far, or the total run time once ended.
func (j *Job) Elapsed() time.Duration {
	if j.EndTime != nil {
		return j.EndTime.Sub(j.StartTime)
	}
	return time.Since(j.StartTime)
}

// clone returns a copy that shares no mutable state with j.
func (j *Job) clone() *Job {
	cp := *j
	cp.BestTour = slices.Clone(j.BestTour)
	if j.EndTime != nil {
		end := *j.EndTime
		cp.EndTime = &end
	}
	if j.Gap != nil {
		gap := *j.Gap
		cp.Gap = &gap
	}
	return &cp
}

// JobManager manages the lifecycle of jobs. Jobs handed out are copies, so
// callers may read them without holding any lock.
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	cancels     map[string]context.CancelFunc
	broadcaster *EventBroadcaster
}

// NewJobManager creates a new JobManager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:        make(map[string]*Job),
		cancels:     make(map[string]context.CancelFunc),
		broadcaster: NewEventBroadcaster(),
	}
}

// CreateJob registers a pending job with the given configuration.
func (jm *JobManager) CreateJob(config JobConfig) *Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job := &Job{
		ID:        uuid.New().String(),
		State:     StatePending,
		Config:    config,
		StartTime: time.Now(),
	}

	jm.jobs[job.ID] = job
	return job.clone()
}

// GetJob returns a snapshot of the job.
func (jm *JobManager) GetJob(id string) (*Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, exists := jm.jobs[id]
	if !exists {
		return nil, false
	}
	return job.clone(), true
}

// ListJobs returns snapshots of all jobs, oldest first.
func (jm *JobManager) ListJobs() []*Job {
	jm.mu.RLock()
	jobs := make([]*Job, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		jobs = append(jobs, job.clone())
	}
	jm.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].StartTime.Before(jobs[j].StartTime)
	})
	return jobs
}

// UpdateJob atomically updates a job using the provided function
func (jm *JobManager) UpdateJob(id string, updateFn func(*Job)) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, exists := jm.jobs[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	updateFn(job)
	return nil
}

// GetRunningJobs returns all jobs currently in the running state
func (jm *JobManager) GetRunningJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	running := make([]*Job, 0)
	for _, job := range jm.jobs {
		if job.State == StateRunning {
			running = append(running, job.clone())
		}
	}
	return running
}

// setCancel registers the function that stops a job's solve.
func (jm *JobManager) setCancel(id string, cancel context.CancelFunc) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	jm.cancels[id] = cancel
}

// releaseCancel drops the cancel function of a finished job.
func (jm *JobManager) releaseCancel(id string) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	delete(jm.cancels, id)
}

// CancelJob asks a pending or running job to stop. The solve ends after its
// current iteration and the job moves to the cancelled state.
func (jm *JobManager) CancelJob(id string) error {
	jm.mu.RLock()
	job, exists := jm.jobs[id]
	var (
		state  JobState
		cancel context.CancelFunc
	)
	if exists {
		state = job.State
		cancel = jm.cancels[id]
	}
	jm.mu.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if state.Terminal() || cancel == nil {
		return fmt.Errorf("%w: %s is %s", ErrJobFinished, id, state)
	}

	cancel()
	return nil
}

// CancelAll stops every job that is still running.
func (jm *JobManager) CancelAll() {
	jm.mu.RLock()
	defer jm.mu.RUnlock()
	for _, cancel := range jm.cancels {
		cancel()
	}
}
