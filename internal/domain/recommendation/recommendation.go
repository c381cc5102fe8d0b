package recommendation

import (
	"time"

	"github.com/erp/analytics/internal/domain/shared"
	"github.com/google/uuid"
)

// RecommendationType tags which sub-algorithm produced a candidate
type RecommendationType string

// Recommendation sources
const (
	TypeAffinity      RecommendationType = "affinity"
	TypeCollaborative RecommendationType = "collaborative"
	TypeSegment       RecommendationType = "segment"
)

// DefaultExpiry is the validity window of a generated recommendation
const DefaultExpiry = 12 * time.Hour

// DefaultLimit is the list size used when a caller gives no limit
const DefaultLimit = 10

// ProductRecommendation is one derived (customer, product) suggestion
type ProductRecommendation struct {
	shared.BaseEntity
	CustomerID  uuid.UUID
	ProductID   uuid.UUID
	Score       float64
	Types       []RecommendationType
	Reasons     []string
	GeneratedAt time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the recommendation is past its window
func (r *ProductRecommendation) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
