package models

import (
	"encoding/json"
	"time"

	"github.com/erp/analytics/internal/domain/recommendation"
	"github.com/google/uuid"
)

// ProductRecommendationModel is the persistence model for a derived
// recommendation row.
type ProductRecommendationModel struct {
	BaseModel
	CustomerID  uuid.UUID `gorm:"type:uuid;not null;index:idx_rec_customer_generated,priority:1"`
	ProductID   uuid.UUID `gorm:"type:uuid;not null"`
	Score       float64   `gorm:"not null"`
	Types       string    `gorm:"type:jsonb"`
	Reasons     string    `gorm:"type:jsonb"`
	GeneratedAt time.Time `gorm:"not null;index:idx_rec_customer_generated,priority:2"`
	ExpiresAt   time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (ProductRecommendationModel) TableName() string {
	return "product_recommendations"
}

// ToDomain converts the persistence model to a domain recommendation.
func (m *ProductRecommendationModel) ToDomain() *recommendation.ProductRecommendation {
	var types []recommendation.RecommendationType
	if m.Types != "" {
		_ = json.Unmarshal([]byte(m.Types), &types)
	}
	var reasons []string
	if m.Reasons != "" {
		_ = json.Unmarshal([]byte(m.Reasons), &reasons)
	}

	return &recommendation.ProductRecommendation{
		BaseEntity:  m.BaseModel.ToDomain(),
		CustomerID:  m.CustomerID,
		ProductID:   m.ProductID,
		Score:       m.Score,
		Types:       types,
		Reasons:     reasons,
		GeneratedAt: m.GeneratedAt,
		ExpiresAt:   m.ExpiresAt,
	}
}

// FromDomain populates the persistence model from a domain recommendation.
func (m *ProductRecommendationModel) FromDomain(r *recommendation.ProductRecommendation) error {
	typesJSON, err := json.Marshal(r.Types)
	if err != nil {
		return err
	}
	reasonsJSON, err := json.Marshal(r.Reasons)
	if err != nil {
		return err
	}

	m.FromDomainBaseEntity(r.BaseEntity)
	m.CustomerID = r.CustomerID
	m.ProductID = r.ProductID
	m.Score = r.Score
	m.Types = string(typesJSON)
	m.Reasons = string(reasonsJSON)
	m.GeneratedAt = r.GeneratedAt
	m.ExpiresAt = r.ExpiresAt
	return nil
}
