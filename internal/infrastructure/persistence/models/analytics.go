package models

import (
	"encoding/json"
	"time"

	"github.com/erp/analytics/internal/domain/analytics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CustomerAnalyticsModel is the persistence model for the derived
// analytics record. One row per customer; each scorer updates only its
// own column group.
type CustomerAnalyticsModel struct {
	CustomerID uuid.UUID `gorm:"type:uuid;primary_key"`

	RecencyDays     int               `gorm:"not null;default:0"`
	RecencyScore    int               `gorm:"not null;default:0"`
	Frequency       int               `gorm:"not null;default:0"`
	FrequencyScore  int               `gorm:"not null;default:0"`
	Monetary        decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	MonetaryScore   int               `gorm:"not null;default:0"`
	RFMScore        int               `gorm:"not null;default:0"`
	Segment         analytics.Segment `gorm:"type:varchar(20);index"`
	RFMCalculatedAt *time.Time

	CLVPredicted    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0;index"`
	CLVConfidence   int             `gorm:"not null;default:0"`
	CLVCalculatedAt *time.Time

	ChurnScore           int                  `gorm:"not null;default:0;index"`
	ChurnLevel           analytics.ChurnLevel `gorm:"type:varchar(20);index"`
	ChurnIndicators      string               `gorm:"type:jsonb"`
	PreventionStrategies string               `gorm:"type:jsonb"`
	ChurnCalculatedAt    *time.Time

	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CustomerAnalyticsModel) TableName() string {
	return "customer_analytics"
}

// ToDomain converts the persistence model to the domain record.
// Malformed JSON columns decode to empty lists rather than failing the
// read; the row is rebuildable from the ledger.
func (m *CustomerAnalyticsModel) ToDomain() *analytics.CustomerAnalytics {
	var indicators []analytics.ChurnIndicator
	if m.ChurnIndicators != "" {
		_ = json.Unmarshal([]byte(m.ChurnIndicators), &indicators)
	}
	var strategies []string
	if m.PreventionStrategies != "" {
		_ = json.Unmarshal([]byte(m.PreventionStrategies), &strategies)
	}

	return &analytics.CustomerAnalytics{
		CustomerID:           m.CustomerID,
		RecencyDays:          m.RecencyDays,
		RecencyScore:         m.RecencyScore,
		Frequency:            m.Frequency,
		FrequencyScore:       m.FrequencyScore,
		Monetary:             m.Monetary,
		MonetaryScore:        m.MonetaryScore,
		RFMScore:             m.RFMScore,
		Segment:              m.Segment,
		RFMCalculatedAt:      m.RFMCalculatedAt,
		CLVPredicted:         m.CLVPredicted,
		CLVConfidence:        m.CLVConfidence,
		CLVCalculatedAt:      m.CLVCalculatedAt,
		ChurnScore:           m.ChurnScore,
		ChurnLevel:           m.ChurnLevel,
		ChurnIndicators:      indicators,
		PreventionStrategies: strategies,
		ChurnCalculatedAt:    m.ChurnCalculatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

// MarshalChurnPayload encodes the churn JSON columns
func MarshalChurnPayload(indicators []analytics.ChurnIndicator, strategies []string) (string, string, error) {
	if indicators == nil {
		indicators = []analytics.ChurnIndicator{}
	}
	if strategies == nil {
		strategies = []string{}
	}
	indicatorsJSON, err := json.Marshal(indicators)
	if err != nil {
		return "", "", err
	}
	strategiesJSON, err := json.Marshal(strategies)
	if err != nil {
		return "", "", err
	}
	return string(indicatorsJSON), string(strategiesJSON), nil
}
