// Package session owns the conversion sessions started through the API:
// one uuid-keyed pipeline job per request, plus its persisted history.
package session

import (
	"time"

	"github.com/mantonx/streamin/internal/database"
	"github.com/mantonx/streamin/internal/modules/transcodingmodule/core/pipeline"
)

// Session is a running or finished conversion
type Session struct {
	ID        string
	MediaPath string
	OutputDir string
	CreatedAt time.Time

	job *pipeline.Job
}

// Info returns the job's progress snapshot.
func (s *Session) Info() pipeline.Info {
	return s.job.Info()
}

// PID is the process id of the running stage, or 0.
func (s *Session) PID() int {
	return s.job.PID()
}

// Done is closed once the job has finished.
func (s *Session) Done() <-chan struct{} {
	return s.job.Done()
}

// jobStatus maps a pipeline state to its persisted form.
func jobStatus(state pipeline.State) database.JobStatus {
	switch state {
	case pipeline.StateRunning:
		return database.JobStatusRunning
	case pipeline.StateCompleted:
		return database.JobStatusCompleted
	case pipeline.StateFailed:
		return database.JobStatusFailed
	case pipeline.StateCancelled:
		return database.JobStatusCancelled
	default:
		return database.JobStatusPending
	}
}
