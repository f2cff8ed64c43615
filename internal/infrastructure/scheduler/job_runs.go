package scheduler

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// JobRunModel is one execution of a scheduled job
type JobRunModel struct {
	ID          int64      `gorm:"column:id;primaryKey;autoIncrement"`
	Job         string     `gorm:"column:job;size:64;not null;index"`
	Status      string     `gorm:"column:status;size:20;not null"`
	Processed   int        `gorm:"column:processed;not null;default:0"`
	Error       string     `gorm:"column:error;type:text"`
	StartedAt   time.Time  `gorm:"column:started_at;not null"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
}

// TableName returns the table name for GORM
func (JobRunModel) TableName() string {
	return "scheduler_job_runs"
}

// JobRunRepository records job runs with GORM
type JobRunRepository struct {
	db *gorm.DB
}

// NewJobRunRepository creates a new JobRunRepository
func NewJobRunRepository(db *gorm.DB) *JobRunRepository {
	return &JobRunRepository{db: db}
}

// RecordStart inserts a running record and returns its ID
func (r *JobRunRepository) RecordStart(ctx context.Context, job string, startedAt time.Time) (int64, error) {
	record := &JobRunModel{
		Job:       job,
		Status:    string(JobStatusRunning),
		StartedAt: startedAt,
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return 0, err
	}
	return record.ID, nil
}

// RecordFinish stores the outcome of a run
func (r *JobRunRepository) RecordFinish(ctx context.Context, runID int64, status JobStatus, processed int, errMsg string) error {
	return r.db.WithContext(ctx).
		Model(&JobRunModel{}).
		Where("id = ?", runID).
		Updates(map[string]any{
			"status":       string(status),
			"processed":    processed,
			"error":        errMsg,
			"completed_at": time.Now(),
		}).Error
}

// LastRun returns the latest run of a job
func (r *JobRunRepository) LastRun(ctx context.Context, job string) (*JobRunModel, error) {
	var record JobRunModel
	if err := r.db.WithContext(ctx).
		Where("job = ?", job).
		Order("started_at DESC, id DESC").
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}
