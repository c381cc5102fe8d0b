package analytics

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Segment is the named RFM bucket a customer falls into
type Segment string

// RFM segments
const (
	SegmentChampions Segment = "Champions"
	SegmentLoyal     Segment = "Loyal"
	SegmentPotential Segment = "Potential"
	SegmentAtRisk    Segment = "At Risk"
	SegmentLost      Segment = "Lost"
)

// AllSegments lists every segment in display order
func AllSegments() []Segment {
	return []Segment{SegmentChampions, SegmentLoyal, SegmentPotential, SegmentAtRisk, SegmentLost}
}

// ChurnLevel is the coarse churn risk classification
type ChurnLevel string

// Churn levels
const (
	ChurnLow      ChurnLevel = "low"
	ChurnMedium   ChurnLevel = "medium"
	ChurnHigh     ChurnLevel = "high"
	ChurnCritical ChurnLevel = "critical"
)

// ChurnIndicator is one triggered churn rule. Indicators are stored as
// a typed list rather than an untyped map so cache and persistence
// round-trips stay statically checkable.
type ChurnIndicator struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
	Weight int    `json:"weight"`
}

// SentinelRecencyDays marks a customer with no purchase history
const SentinelRecencyDays = 9999

// CustomerAnalytics is the derived analytics record, one row per
// customer, entirely rebuildable from the ledger. Each scorer upserts
// only its own field group; the row is never written as a whole.
type CustomerAnalytics struct {
	CustomerID uuid.UUID

	// RFM fields
	RecencyDays     int
	RecencyScore    int
	Frequency       int
	FrequencyScore  int
	Monetary        decimal.Decimal
	MonetaryScore   int
	RFMScore        int
	Segment         Segment
	RFMCalculatedAt *time.Time

	// CLV fields
	CLVPredicted    decimal.Decimal
	CLVConfidence   int
	CLVCalculatedAt *time.Time

	// Churn fields
	ChurnScore           int
	ChurnLevel           ChurnLevel
	ChurnIndicators      []ChurnIndicator
	PreventionStrategies []string
	ChurnCalculatedAt    *time.Time

	UpdatedAt time.Time
}

// RFMStale reports whether the RFM fields are older than the window
func (a *CustomerAnalytics) RFMStale(window time.Duration) bool {
	return a.RFMCalculatedAt == nil || time.Since(*a.RFMCalculatedAt) > window
}

// CLVStale reports whether the CLV fields are older than the window
func (a *CustomerAnalytics) CLVStale(window time.Duration) bool {
	return a.CLVCalculatedAt == nil || time.Since(*a.CLVCalculatedAt) > window
}

// SegmentStat aggregates one segment for the overview
type SegmentStat struct {
	Segment     Segment         `json:"segment"`
	Count       int64           `json:"count"`
	TotalValue  decimal.Decimal `json:"total_value"`
	AvgRFMScore float64         `json:"avg_rfm_score"`
	Percentage  float64         `json:"percentage"`
}
