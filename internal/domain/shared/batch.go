package shared

import (
	"time"

	"github.com/google/uuid"
)

// ItemFailure records a single failed item inside a batch run.
type ItemFailure struct {
	CustomerID uuid.UUID `json:"customer_id"`
	Reason     string    `json:"reason"`
}

// BatchSummary accumulates per-item results of a batch recomputation.
// Batch runners never abort on a single item: each failure is recorded
// here and the run continues with the next customer.
type BatchSummary struct {
	Job        string        `json:"job"`
	Processed  int           `json:"processed"`
	Failed     int           `json:"failed"`
	Failures   []ItemFailure `json:"failures,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// NewBatchSummary starts a summary for the named batch job.
func NewBatchSummary(job string) *BatchSummary {
	return &BatchSummary{
		Job:       job,
		StartedAt: time.Now(),
	}
}

// RecordSuccess counts one successfully processed item.
func (s *BatchSummary) RecordSuccess() {
	s.Processed++
}

// RecordFailure counts one failed item and keeps the reason.
func (s *BatchSummary) RecordFailure(customerID uuid.UUID, err error) {
	s.Failed++
	s.Failures = append(s.Failures, ItemFailure{
		CustomerID: customerID,
		Reason:     err.Error(),
	})
}

// Finish stamps the completion time and returns the summary.
func (s *BatchSummary) Finish() *BatchSummary {
	s.FinishedAt = time.Now()
	return s
}

// Total returns the number of items attempted.
func (s *BatchSummary) Total() int {
	return s.Processed + s.Failed
}
