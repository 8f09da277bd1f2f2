package session

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/streamin/internal/database"
	errs "github.com/mantonx/streamin/internal/modules/transcodingmodule/errors"
	"gorm.io/gorm"
)

// Store persists conversion job history
type Store struct {
	db     *gorm.DB
	logger hclog.Logger
}

// NewStore creates a new job history store
func NewStore(db *gorm.DB, logger hclog.Logger) *Store {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Store{
		db:     db,
		logger: logger.Named("session-store"),
	}
}

// Create records a newly started job.
func (s *Store) Create(ctx context.Context, job *database.ConversionJob) error {
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return errs.StorageError("create_job", fmt.Errorf("failed to create job record: %w", err)).WithSession(job.ID)
	}

	s.logger.Debug("recorded job", "session_id", job.ID, "media", job.MediaPath, "stages", job.Stages)
	return nil
}

// Finish stores the terminal status of a job.
func (s *Store) Finish(ctx context.Context, id string, status database.JobStatus, jobErr error, end time.Time) error {
	updates := map[string]interface{}{
		"status":   status,
		"end_time": &end,
		"error":    "",
	}
	if jobErr != nil {
		updates["error"] = jobErr.Error()
	}

	if err := s.db.WithContext(ctx).Model(&database.ConversionJob{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return errs.StorageError("finish_job", fmt.Errorf("failed to update job record: %w", err)).WithSession(id)
	}
	return nil
}

// Get retrieves a job record by ID
func (s *Store) Get(ctx context.Context, id string) (*database.ConversionJob, error) {
	var job database.ConversionJob
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		return nil, errs.StorageError("get_job", fmt.Errorf("job not found: %w", err)).WithSession(id)
	}
	return &job, nil
}

// List returns the most recent job records first. A non-positive limit
// returns every record.
func (s *Store) List(ctx context.Context, limit int) ([]database.ConversionJob, error) {
	query := s.db.WithContext(ctx).Order("start_time DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var jobs []database.ConversionJob
	if err := query.Find(&jobs).Error; err != nil {
		return nil, errs.StorageError("list_jobs", fmt.Errorf("failed to list jobs: %w", err))
	}
	return jobs, nil
}

// MarkInterrupted closes out jobs left pending or running by a previous
// process. Jobs are never resumed.
func (s *Store) MarkInterrupted(ctx context.Context) (int64, error) {
	now := time.Now()
	result := s.db.WithContext(ctx).Model(&database.ConversionJob{}).
		Where("status IN ?", []database.JobStatus{database.JobStatusPending, database.JobStatusRunning}).
		Updates(map[string]interface{}{
			"status":   database.JobStatusInterrupted,
			"end_time": &now,
			"error":    "interrupted by server restart",
		})
	if result.Error != nil {
		return 0, errs.StorageError("recover_jobs", fmt.Errorf("failed to mark interrupted jobs: %w", result.Error))
	}

	if result.RowsAffected > 0 {
		s.logger.Warn("marked interrupted jobs", "count", result.RowsAffected)
	}
	return result.RowsAffected, nil
}
