package database

import (
	"encoding/json"
	"time"
)

// JobStatus is the persisted state of a conversion job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
	// JobStatusInterrupted marks a job that was running when the process exited.
	JobStatusInterrupted JobStatus = "interrupted"
)

// ConversionJob is the history record of one DASH conversion session
type ConversionJob struct {
	ID        string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	MediaPath string     `gorm:"type:varchar(1024);not null" json:"media_path"`
	OutputDir string     `gorm:"type:varchar(1024)" json:"output_dir"`
	Status    JobStatus  `gorm:"type:varchar(32);not null;index" json:"status"`
	Stages    int        `json:"stages"`
	Plan      string     `gorm:"type:text" json:"-"` // JSON string
	Error     string     `gorm:"type:text" json:"error,omitempty"`
	StartTime time.Time  `gorm:"not null;index" json:"start_time"`
	EndTime   *time.Time `gorm:"index" json:"end_time,omitempty"`
}

// TableName returns the table name for GORM
func (ConversionJob) TableName() string {
	return "conversion_jobs"
}

// GetPlan deserializes the Plan JSON string
func (j *ConversionJob) GetPlan() ([]string, error) {
	if j.Plan == "" {
		return nil, nil
	}
	var plan []string
	if err := json.Unmarshal([]byte(j.Plan), &plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// SetPlan serializes the stage kinds into Plan
func (j *ConversionJob) SetPlan(plan []string) error {
	data, err := json.Marshal(plan)
	if err != nil {
		return err
	}
	j.Plan = string(data)
	return nil
}

// IsTerminal reports whether the job can no longer change state
func (s JobStatus) IsTerminal() bool {
	return s != JobStatusPending && s != JobStatusRunning
}
