package recommendation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists derived recommendation rows
type Repository interface {
	// FindFreshByCustomer returns unexpired rows generated after the
	// cutoff, ranked by score descending.
	FindFreshByCustomer(ctx context.Context, customerID uuid.UUID, generatedAfter time.Time) ([]ProductRecommendation, error)

	// ReplaceForCustomer atomically deletes all prior rows for the
	// customer and inserts the new set.
	ReplaceForCustomer(ctx context.Context, customerID uuid.UUID, recommendations []ProductRecommendation) error

	DeleteByCustomer(ctx context.Context, customerID uuid.UUID) error

	// DeleteExpired removes rows past their expiry, returning the count.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
