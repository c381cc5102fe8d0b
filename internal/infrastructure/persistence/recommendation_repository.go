package persistence

import (
	"context"
	"time"

	"github.com/erp/analytics/internal/domain/recommendation"
	"github.com/erp/analytics/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormRecommendationRepository implements recommendation.Repository using GORM
type GormRecommendationRepository struct {
	db *gorm.DB
}

// NewGormRecommendationRepository creates a new GormRecommendationRepository
func NewGormRecommendationRepository(db *gorm.DB) *GormRecommendationRepository {
	return &GormRecommendationRepository{db: db}
}

// FindFreshByCustomer returns unexpired rows generated after the
// cutoff, ranked by score descending
func (r *GormRecommendationRepository) FindFreshByCustomer(ctx context.Context, customerID uuid.UUID, generatedAfter time.Time) ([]recommendation.ProductRecommendation, error) {
	var recModels []models.ProductRecommendationModel
	if err := r.db.WithContext(ctx).
		Where("customer_id = ? AND generated_at > ? AND expires_at > ?", customerID, generatedAfter, time.Now()).
		Order("score desc").
		Find(&recModels).Error; err != nil {
		return nil, err
	}

	recommendations := make([]recommendation.ProductRecommendation, len(recModels))
	for i, model := range recModels {
		recommendations[i] = *model.ToDomain()
	}
	return recommendations, nil
}

// ReplaceForCustomer atomically deletes all prior rows for the
// customer and inserts the new set
func (r *GormRecommendationRepository) ReplaceForCustomer(ctx context.Context, customerID uuid.UUID, recommendations []recommendation.ProductRecommendation) error {
	recModels := make([]models.ProductRecommendationModel, len(recommendations))
	for i := range recommendations {
		if err := recModels[i].FromDomain(&recommendations[i]); err != nil {
			return err
		}
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("customer_id = ?", customerID).
			Delete(&models.ProductRecommendationModel{}).Error; err != nil {
			return err
		}
		if len(recModels) == 0 {
			return nil
		}
		return tx.Create(&recModels).Error
	})
}

// DeleteByCustomer removes all rows for the customer
func (r *GormRecommendationRepository) DeleteByCustomer(ctx context.Context, customerID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Delete(&models.ProductRecommendationModel{}).Error
}

// DeleteExpired removes rows past their expiry, returning the count
func (r *GormRecommendationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&models.ProductRecommendationModel{})
	return result.RowsAffected, result.Error
}
