package recommendation

import (
	"time"

	"github.com/erp/analytics/internal/domain/recommendation"
	"github.com/erp/analytics/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecommendedProduct is one entry in a personalized recommendation list
type RecommendedProduct struct {
	ProductID uuid.UUID                           `json:"product_id"`
	SKU       string                              `json:"sku"`
	Name      string                              `json:"name"`
	Category  string                              `json:"category"`
	Price     decimal.Decimal                     `json:"price"`
	Score     float64                             `json:"score"`
	Types     []recommendation.RecommendationType `json:"types"`
	Reasons   []string                            `json:"reasons"`
}

// RecommendationListResponse is the personalized recommendation payload
type RecommendationListResponse struct {
	CustomerID      uuid.UUID            `json:"customer_id"`
	Recommendations []RecommendedProduct `json:"recommendations"`
	GeneratedAt     time.Time            `json:"generated_at"`
}

// CrossSellProduct is one entry in a product's cross-sell listing
type CrossSellProduct struct {
	ProductID     uuid.UUID       `json:"product_id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	AffinityScore float64         `json:"affinity_score"`
}

// CrossSellResponse is the cross-sell payload for one product
type CrossSellResponse struct {
	ProductID uuid.UUID          `json:"product_id"`
	Products  []CrossSellProduct `json:"products"`
}

// BatchResponse summarizes one full recommendation regeneration run
type BatchResponse struct {
	Summary        *shared.BatchSummary `json:"summary"`
	ExpiredRemoved int64                `json:"expired_removed"`
}
