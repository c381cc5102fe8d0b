package models

import (
	"time"

	"github.com/google/uuid"
)

// AnalyticsJobRunModel records one execution of a scheduled batch job.
type AnalyticsJobRunModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	JobName     string    `gorm:"type:varchar(100);not null;index:idx_job_runs_name_started,priority:1"`
	StartedAt   time.Time `gorm:"not null;index:idx_job_runs_name_started,priority:2"`
	CompletedAt *time.Time
	Status      string `gorm:"type:varchar(20);not null"`
	Succeeded   int    `gorm:"not null;default:0"`
	Failed      int    `gorm:"not null;default:0"`
	Error       string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (AnalyticsJobRunModel) TableName() string {
	return "analytics_job_runs"
}
