package analytics

import (
	"time"

	"github.com/erp/analytics/internal/domain/analytics"
	"github.com/erp/analytics/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// RFM DTOs
// =============================================================================

// RFMAnalysisResponse represents one customer's RFM scoring in API responses
type RFMAnalysisResponse struct {
	CustomerID     uuid.UUID         `json:"customer_id"`
	RecencyDays    int               `json:"recency_days"`
	RecencyScore   int               `json:"recency_score"`
	Frequency      int               `json:"frequency"`
	FrequencyScore int               `json:"frequency_score"`
	Monetary       decimal.Decimal   `json:"monetary"`
	MonetaryScore  int               `json:"monetary_score"`
	RFMScore       int               `json:"rfm_score"`
	Segment        analytics.Segment `json:"segment"`
	CalculatedAt   time.Time         `json:"calculated_at"`
}

func newRFMResponse(customerID uuid.UUID, result analytics.RFMResult) *RFMAnalysisResponse {
	return &RFMAnalysisResponse{
		CustomerID:     customerID,
		RecencyDays:    result.RecencyDays,
		RecencyScore:   result.RecencyScore,
		Frequency:      result.Frequency,
		FrequencyScore: result.FrequencyScore,
		Monetary:       result.Monetary,
		MonetaryScore:  result.MonetaryScore,
		RFMScore:       result.Score,
		Segment:        result.Segment,
		CalculatedAt:   result.CalculatedAt,
	}
}

func newRFMResponseFromRecord(record *analytics.CustomerAnalytics) *RFMAnalysisResponse {
	resp := &RFMAnalysisResponse{
		CustomerID:     record.CustomerID,
		RecencyDays:    record.RecencyDays,
		RecencyScore:   record.RecencyScore,
		Frequency:      record.Frequency,
		FrequencyScore: record.FrequencyScore,
		Monetary:       record.Monetary,
		MonetaryScore:  record.MonetaryScore,
		RFMScore:       record.RFMScore,
		Segment:        record.Segment,
	}
	if record.RFMCalculatedAt != nil {
		resp.CalculatedAt = *record.RFMCalculatedAt
	}
	return resp
}

// SegmentDetail aggregates one RFM segment inside the overview
type SegmentDetail struct {
	Count       int64           `json:"count"`
	TotalValue  decimal.Decimal `json:"total_value"`
	AvgRFMScore float64         `json:"avg_rfm_score"`
	Percentage  float64         `json:"percentage"`
}

// SegmentOverviewResponse is the segment distribution across all scored
// customers. Percentages are over the scored population and sum to 100.
type SegmentOverviewResponse struct {
	TotalCustomers int64                    `json:"total_customers"`
	Segments       map[string]SegmentDetail `json:"segments"`
}

// RFMBatchResponse summarizes one full RFM recomputation run
type RFMBatchResponse struct {
	Summary       *shared.BatchSummary      `json:"summary"`
	SegmentCounts map[analytics.Segment]int `json:"segment_counts"`
}

// =============================================================================
// CLV DTOs
// =============================================================================

// CLVAnalysisResponse represents one customer's CLV prediction in API responses
type CLVAnalysisResponse struct {
	CustomerID   uuid.UUID       `json:"customer_id"`
	Predicted    decimal.Decimal `json:"predicted_clv"`
	Confidence   int             `json:"confidence"`
	CalculatedAt time.Time       `json:"calculated_at"`
}

func newCLVResponse(customerID uuid.UUID, result analytics.CLVResult) *CLVAnalysisResponse {
	return &CLVAnalysisResponse{
		CustomerID:   customerID,
		Predicted:    result.Predicted,
		Confidence:   result.Confidence,
		CalculatedAt: result.CalculatedAt,
	}
}

func newCLVResponseFromRecord(record *analytics.CustomerAnalytics) *CLVAnalysisResponse {
	resp := &CLVAnalysisResponse{
		CustomerID: record.CustomerID,
		Predicted:  record.CLVPredicted,
		Confidence: record.CLVConfidence,
	}
	if record.CLVCalculatedAt != nil {
		resp.CalculatedAt = *record.CLVCalculatedAt
	}
	return resp
}

// TopCustomerResponse is one entry in the top-customers-by-CLV ranking
type TopCustomerResponse struct {
	CustomerID uuid.UUID         `json:"customer_id"`
	Predicted  decimal.Decimal   `json:"predicted_clv"`
	Confidence int               `json:"confidence"`
	Segment    analytics.Segment `json:"segment,omitempty"`
}

// CLVBatchResponse summarizes one full CLV recomputation run
type CLVBatchResponse struct {
	Summary          *shared.BatchSummary `json:"summary"`
	TotalPredicted   decimal.Decimal      `json:"total_predicted"`
	AveragePredicted decimal.Decimal      `json:"average_predicted"`
}

// =============================================================================
// Churn DTOs
// =============================================================================

// ChurnAnalysisResponse represents one customer's churn risk in API responses
type ChurnAnalysisResponse struct {
	CustomerID           uuid.UUID                  `json:"customer_id"`
	ChurnScore           int                        `json:"churn_score"`
	ChurnLevel           analytics.ChurnLevel       `json:"churn_level"`
	Indicators           []analytics.ChurnIndicator `json:"indicators"`
	PreventionStrategies []string                   `json:"prevention_strategies"`
	CalculatedAt         time.Time                  `json:"calculated_at"`
}

func newChurnResponse(customerID uuid.UUID, result analytics.ChurnResult) *ChurnAnalysisResponse {
	return &ChurnAnalysisResponse{
		CustomerID:           customerID,
		ChurnScore:           result.Score,
		ChurnLevel:           result.Level,
		Indicators:           result.Indicators,
		PreventionStrategies: result.PreventionStrategies,
		CalculatedAt:         result.CalculatedAt,
	}
}

// HighRiskCustomerResponse is one entry in the high-churn-risk listing
type HighRiskCustomerResponse struct {
	CustomerID           uuid.UUID            `json:"customer_id"`
	ChurnScore           int                  `json:"churn_score"`
	ChurnLevel           analytics.ChurnLevel `json:"churn_level"`
	Segment              analytics.Segment    `json:"segment,omitempty"`
	PreventionStrategies []string             `json:"prevention_strategies"`
}

// ChurnBatchResponse summarizes one full churn recomputation run
type ChurnBatchResponse struct {
	Summary     *shared.BatchSummary         `json:"summary"`
	LevelCounts map[analytics.ChurnLevel]int `json:"level_counts"`
}
