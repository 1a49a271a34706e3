package server

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobState represents the current state of a fit job
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
)

// Bound presets accepted in FitRequest.Preset.
const (
	PresetDefault = "default"
	PresetMACSIS  = "macsis"
)

// FitRequest describes one density profile submitted for fitting.
type FitRequest struct {
	Radii       []float64 `json:"radii"`
	Density     []float64 `json:"density"`
	RadiusUnit  string    `json:"radiusUnit"`
	DensityUnit string    `json:"densityUnit"`

	// Preset selects the bound set: "" or "default" for the standard
	// open box, "macsis" for the MACSIS box.
	Preset string `json:"preset,omitempty"`

	// Start overrides the default initial guess (six entries).
	Start []float64 `json:"start,omitempty"`

	// Bounds overrides the preset box with six [lower, upper] pairs.
	// JSON cannot carry +Inf; use a large finite upper instead.
	Bounds [][2]float64 `json:"bounds,omitempty"`
}

// Job tracks one fit request through its lifecycle.
type Job struct {
	ID      string     `json:"id"`
	State   JobState   `json:"state"`
	Request FitRequest `json:"request"`

	// ResultID names the stored result once the job completes. For a
	// cached job it points at the earlier result that matched the
	// request fingerprint.
	ResultID string `json:"resultId,omitempty"`
	Cached   bool   `json:"cached"`

	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// JobManager manages the lifecycle of fit jobs
type JobManager struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewJobManager creates a new JobManager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs: make(map[string]*Job),
	}
}

// CreateJob registers a new pending job for the given request.
func (jm *JobManager) CreateJob(req FitRequest) Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job := &Job{
		ID:        uuid.New().String(),
		State:     StatePending,
		Request:   req,
		StartTime: time.Now(),
	}

	jm.jobs[job.ID] = job
	return *job
}

// GetJob returns a snapshot of the job with the given ID.
func (jm *JobManager) GetJob(id string) (Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, exists := jm.jobs[id]
	if !exists {
		return Job{}, false
	}
	return *job, true
}

// ListJobs returns snapshots of all jobs, newest first.
func (jm *JobManager) ListJobs() []Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	jobs := make([]Job, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		jobs = append(jobs, *job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].StartTime.After(jobs[j].StartTime)
	})
	return jobs
}

// UpdateJob atomically updates a job using the provided function
func (jm *JobManager) UpdateJob(id string, updateFn func(*Job)) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, exists := jm.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	updateFn(job)
	return nil
}

// DeleteJob removes a job. It reports whether the job existed.
func (jm *JobManager) DeleteJob(id string) bool {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	_, exists := jm.jobs[id]
	delete(jm.jobs, id)
	return exists
}
