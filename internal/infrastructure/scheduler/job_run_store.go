package scheduler

import (
	"context"
	"time"

	"github.com/erp/analytics/internal/domain/shared"
	"github.com/erp/analytics/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Job run statuses
const (
	RunStatusRunning = "RUNNING"
	RunStatusSuccess = "SUCCESS"
	RunStatusFailed  = "FAILED"
)

// JobRunRecord identifies one persisted job execution
type JobRunRecord struct {
	ID      uuid.UUID
	JobName string
}

// JobRunStore persists batch job executions
type JobRunStore struct {
	db *gorm.DB
}

// NewJobRunStore creates a new JobRunStore
func NewJobRunStore(db *gorm.DB) *JobRunStore {
	return &JobRunStore{db: db}
}

// RecordStart inserts a running row for the job
func (s *JobRunStore) RecordStart(ctx context.Context, jobName string, started time.Time) (*JobRunRecord, error) {
	model := models.AnalyticsJobRunModel{
		ID:        uuid.New(),
		JobName:   jobName,
		StartedAt: started,
		Status:    RunStatusRunning,
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return nil, err
	}
	return &JobRunRecord{ID: model.ID, JobName: jobName}, nil
}

// RecordComplete finalizes the row with the run outcome
func (s *JobRunStore) RecordComplete(ctx context.Context, runID uuid.UUID, summary *shared.BatchSummary, runErr error) error {
	now := time.Now()
	updates := map[string]any{
		"completed_at": now,
		"status":       RunStatusSuccess,
	}
	if runErr != nil {
		updates["status"] = RunStatusFailed
		updates["error"] = runErr.Error()
	}
	if summary != nil {
		updates["succeeded"] = summary.Processed
		updates["failed"] = summary.Failed
	}

	return s.db.WithContext(ctx).
		Model(&models.AnalyticsJobRunModel{}).
		Where("id = ?", runID).
		Updates(updates).Error
}

// RecentRuns returns the latest runs for a job, newest first
func (s *JobRunStore) RecentRuns(ctx context.Context, jobName string, limit int) ([]models.AnalyticsJobRunModel, error) {
	var runs []models.AnalyticsJobRunModel
	if err := s.db.WithContext(ctx).
		Where("job_name = ?", jobName).
		Order("started_at desc").
		Limit(limit).
		Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
