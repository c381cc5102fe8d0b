package analytics

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists the derived analytics record. Each Upsert writes
// only the calling scorer's field group; the record as a whole is
// never replaced (last-write-wins per field group, per customer).
type Repository interface {
	FindByCustomer(ctx context.Context, customerID uuid.UUID) (*CustomerAnalytics, error)

	UpsertRFM(ctx context.Context, customerID uuid.UUID, result RFMResult) error
	UpsertCLV(ctx context.Context, customerID uuid.UUID, result CLVResult) error
	UpsertChurn(ctx context.Context, customerID uuid.UUID, result ChurnResult) error

	// FindHighChurnRisk returns records with churn level critical or
	// high, ranked by churn score descending.
	FindHighChurnRisk(ctx context.Context, limit int) ([]CustomerAnalytics, error)

	// FindTopByCLV returns records ranked by predicted CLV descending.
	FindTopByCLV(ctx context.Context, limit int) ([]CustomerAnalytics, error)

	// FindCustomerIDsBySegment returns customers currently assigned to
	// the segment, up to limit (0 means no limit).
	FindCustomerIDsBySegment(ctx context.Context, segment Segment, limit int) ([]uuid.UUID, error)

	// SegmentAggregates groups records by RFM segment with count, total
	// monetary value and average RFM score per segment.
	SegmentAggregates(ctx context.Context) ([]SegmentStat, error)
}
