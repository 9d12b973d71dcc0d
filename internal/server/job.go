package server

import (
	"context"
	"sync"
	"time"

	"github.com/simplexkit/simplexd/internal/optimization"
)

// Job statuses.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// job tracks one optimization run from submission to its terminal state.
// All fields behind mu; the run goroutine and the HTTP handlers both touch it.
type job struct {
	mu sync.Mutex

	id        string
	objective string
	goal      optimization.Goal
	guess     []float64

	status    string
	err       string
	result    *optimization.Result
	startTime time.Time
	endTime   *time.Time

	cancel context.CancelFunc
}

func newJob(id, objective string, goal optimization.Goal, guess []float64, cancel context.CancelFunc) *job {
	return &job{
		id:        id,
		objective: objective,
		goal:      goal,
		guess:     append([]float64(nil), guess...),
		status:    StatusPending,
		startTime: time.Now(),
		cancel:    cancel,
	}
}

func (j *job) setRunning() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = StatusRunning
}

func (j *job) finish(result *optimization.Result, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := time.Now()
	j.endTime = &now
	switch {
	case err == context.Canceled && j.status == StatusCancelled:
		// Cancellation already recorded.
	case err != nil:
		j.status = StatusFailed
		j.err = err.Error()
	default:
		j.status = StatusCompleted
		j.result = result
	}
}

// requestCancel marks the job cancelled and stops its run. It reports
// whether the job was still cancellable.
func (j *job) requestCancel() bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	switch j.status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return false
	}
	j.status = StatusCancelled
	now := time.Now()
	j.endTime = &now
	if j.cancel != nil {
		j.cancel()
	}
	return true
}

// jobStatus is the wire representation of a job.
type jobStatus struct {
	ID          string     `json:"id"`
	Objective   string     `json:"objective"`
	Goal        string     `json:"goal"`
	Status      string     `json:"status"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	Error       string     `json:"error,omitempty"`
	BestPoint   []float64  `json:"best_point,omitempty"`
	BestValue   *float64   `json:"best_value,omitempty"`
	Evaluations int        `json:"evaluations,omitempty"`
	Iterations  int        `json:"iterations,omitempty"`
	Converged   bool       `json:"converged,omitempty"`
}

func (j *job) snapshot() jobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()

	status := jobStatus{
		ID:        j.id,
		Objective: j.objective,
		Goal:      j.goal.String(),
		Status:    j.status,
		StartTime: j.startTime,
		EndTime:   j.endTime,
		Error:     j.err,
	}
	if j.result != nil && j.result.Best != nil {
		status.BestPoint = append([]float64(nil), j.result.Best.Point...)
		value := j.result.Best.Value
		status.BestValue = &value
		status.Evaluations = j.result.Evaluations
		status.Iterations = j.result.Iterations
		status.Converged = j.result.Converged
	}
	return status
}
