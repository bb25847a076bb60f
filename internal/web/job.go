package web

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the status of a background job
type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusCancelled JobStatus = "cancelled"
	JobStatusError     JobStatus = "error" // Stopped due to connection/config error
)

// Job represents a background inbox scan
type Job struct {
	ID          string    `json:"id"`
	Status      JobStatus `json:"status"`
	Progress    int       `json:"progress"`
	Processed   int       `json:"processed"`
	Flagged     int       `json:"flagged"`
	AlertFailed int       `json:"alert_failed"`
	Total       int       `json:"total"`
	Current     string    `json:"current"` // Subject of the last processed email
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
	Error       string    `json:"error,omitempty"`

	ctx        context.Context
	cancelFunc context.CancelFunc
	mu         sync.Mutex
}

// SetTotal records how many emails the scan will process
func (j *Job) SetTotal(total int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Total = total
}

// SetAlertFailed replaces the failed alert count once all alerts, including
// a digest sent after the last update, are known.
func (j *Job) SetAlertFailed(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.AlertFailed = n
}

// Update updates the job progress
func (j *Job) Update(processed int, flagged, alertFailed bool, current string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.Processed = processed
	if flagged {
		j.Flagged++
	}
	if alertFailed {
		j.AlertFailed++
	}
	j.Current = current
	if j.Total > 0 {
		j.Progress = (processed * 100) / j.Total
	}
}

// Complete marks the job as completed
func (j *Job) Complete() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.Status != JobStatusRunning {
		return
	}
	j.Status = JobStatusCompleted
	j.CompletedAt = time.Now()
	j.Progress = 100
	j.Current = ""
}

// StopWithError stops the job due to an error
func (j *Job) StopWithError(errorMsg string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.Status != JobStatusRunning {
		return
	}
	j.Status = JobStatusError
	j.CompletedAt = time.Now()
	j.Error = errorMsg
	j.Current = ""
	if j.cancelFunc != nil {
		j.cancelFunc()
	}
}

// Cancel cancels the job
func (j *Job) Cancel() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.Status == JobStatusRunning {
		j.Status = JobStatusCancelled
		j.CompletedAt = time.Now()
		if j.cancelFunc != nil {
			j.cancelFunc()
		}
	}
}

// IsCancelled returns true if the job was cancelled
func (j *Job) IsCancelled() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Status == JobStatusCancelled
}

// Context returns the job's context
func (j *Job) Context() context.Context {
	return j.ctx
}

// ToJSON returns the job data for JSON serialization
func (j *Job) ToJSON() map[string]interface{} {
	j.mu.Lock()
	defer j.mu.Unlock()

	data := map[string]interface{}{
		"id":           j.ID,
		"status":       j.Status,
		"progress":     j.Progress,
		"processed":    j.Processed,
		"flagged":      j.Flagged,
		"alert_failed": j.AlertFailed,
		"total":        j.Total,
		"current":      j.Current,
		"started_at":   j.StartedAt,
		"error":        j.Error,
	}
	if !j.CompletedAt.IsZero() {
		data["completed_at"] = j.CompletedAt
	}
	return data
}

func (j *Job) running() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Status == JobStatusRunning
}

// JobManager manages background jobs
type JobManager struct {
	jobs map[string]*Job
	mu   sync.RWMutex
}

// NewJobManager creates a new job manager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs: make(map[string]*Job),
	}
}

// Create creates a new running job
func (jm *JobManager) Create() *Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())

	job := &Job{
		ID:         uuid.New().String(),
		Status:     JobStatusRunning,
		StartedAt:  time.Now(),
		ctx:        ctx,
		cancelFunc: cancel,
	}

	jm.jobs[job.ID] = job
	return job
}

// Get returns a job by ID, or nil if not found
func (jm *JobManager) Get(id string) *Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	return jm.jobs[id]
}

// GetActive returns the currently running job, or nil if none
func (jm *JobManager) GetActive() *Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	for _, job := range jm.jobs {
		if job.running() {
			return job
		}
	}
	return nil
}

// Cleanup removes finished jobs older than the specified duration
func (jm *JobManager) Cleanup(maxAge time.Duration) {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for id, job := range jm.jobs {
		job.mu.Lock()
		done := job.Status != JobStatusRunning && job.CompletedAt.Before(cutoff)
		job.mu.Unlock()
		if done {
			delete(jm.jobs, id)
		}
	}
}
