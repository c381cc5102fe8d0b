package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/analytics/internal/domain/analytics"
	"github.com/erp/analytics/internal/domain/shared"
	"github.com/erp/analytics/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAnalyticsRepository implements analytics.Repository using GORM.
// Each Upsert writes only its scorer's column group so concurrent
// scorers never clobber each other's fields.
type GormAnalyticsRepository struct {
	db *gorm.DB
}

// NewGormAnalyticsRepository creates a new GormAnalyticsRepository
func NewGormAnalyticsRepository(db *gorm.DB) *GormAnalyticsRepository {
	return &GormAnalyticsRepository{db: db}
}

// FindByCustomer returns the analytics record for the customer
func (r *GormAnalyticsRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID) (*analytics.CustomerAnalytics, error) {
	var model models.CustomerAnalyticsModel
	if err := r.db.WithContext(ctx).First(&model, "customer_id = ?", customerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// UpsertRFM writes the RFM column group for the customer
func (r *GormAnalyticsRepository) UpsertRFM(ctx context.Context, customerID uuid.UUID, result analytics.RFMResult) error {
	calculatedAt := result.CalculatedAt
	model := models.CustomerAnalyticsModel{
		CustomerID:      customerID,
		RecencyDays:     result.RecencyDays,
		RecencyScore:    result.RecencyScore,
		Frequency:       result.Frequency,
		FrequencyScore:  result.FrequencyScore,
		Monetary:        result.Monetary,
		MonetaryScore:   result.MonetaryScore,
		RFMScore:        result.Score,
		Segment:         result.Segment,
		RFMCalculatedAt: &calculatedAt,
		UpdatedAt:       time.Now(),
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "customer_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"recency_days", "recency_score",
				"frequency", "frequency_score",
				"monetary", "monetary_score",
				"rfm_score", "segment", "rfm_calculated_at",
				"updated_at",
			}),
		}).
		Create(&model).Error
}

// UpsertCLV writes the CLV column group for the customer
func (r *GormAnalyticsRepository) UpsertCLV(ctx context.Context, customerID uuid.UUID, result analytics.CLVResult) error {
	calculatedAt := result.CalculatedAt
	model := models.CustomerAnalyticsModel{
		CustomerID:      customerID,
		CLVPredicted:    result.Predicted,
		CLVConfidence:   result.Confidence,
		CLVCalculatedAt: &calculatedAt,
		UpdatedAt:       time.Now(),
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "customer_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"clv_predicted", "clv_confidence", "clv_calculated_at",
				"updated_at",
			}),
		}).
		Create(&model).Error
}

// UpsertChurn writes the churn column group for the customer
func (r *GormAnalyticsRepository) UpsertChurn(ctx context.Context, customerID uuid.UUID, result analytics.ChurnResult) error {
	indicatorsJSON, strategiesJSON, err := models.MarshalChurnPayload(result.Indicators, result.PreventionStrategies)
	if err != nil {
		return err
	}

	calculatedAt := result.CalculatedAt
	model := models.CustomerAnalyticsModel{
		CustomerID:           customerID,
		ChurnScore:           result.Score,
		ChurnLevel:           result.Level,
		ChurnIndicators:      indicatorsJSON,
		PreventionStrategies: strategiesJSON,
		ChurnCalculatedAt:    &calculatedAt,
		UpdatedAt:            time.Now(),
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "customer_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"churn_score", "churn_level",
				"churn_indicators", "prevention_strategies",
				"churn_calculated_at", "updated_at",
			}),
		}).
		Create(&model).Error
}

// FindHighChurnRisk returns records at critical or high churn level,
// ranked by churn score descending
func (r *GormAnalyticsRepository) FindHighChurnRisk(ctx context.Context, limit int) ([]analytics.CustomerAnalytics, error) {
	var analyticsModels []models.CustomerAnalyticsModel
	if err := r.db.WithContext(ctx).
		Where("churn_level IN ?", []analytics.ChurnLevel{analytics.ChurnCritical, analytics.ChurnHigh}).
		Order("churn_score desc").
		Limit(limit).
		Find(&analyticsModels).Error; err != nil {
		return nil, err
	}
	return toDomainAnalytics(analyticsModels), nil
}

// FindTopByCLV returns records ranked by predicted CLV descending
func (r *GormAnalyticsRepository) FindTopByCLV(ctx context.Context, limit int) ([]analytics.CustomerAnalytics, error) {
	var analyticsModels []models.CustomerAnalyticsModel
	if err := r.db.WithContext(ctx).
		Where("clv_calculated_at IS NOT NULL").
		Order("clv_predicted desc").
		Limit(limit).
		Find(&analyticsModels).Error; err != nil {
		return nil, err
	}
	return toDomainAnalytics(analyticsModels), nil
}

// FindCustomerIDsBySegment returns customers currently assigned to the
// segment, up to limit (0 means no limit)
func (r *GormAnalyticsRepository) FindCustomerIDsBySegment(ctx context.Context, segment analytics.Segment, limit int) ([]uuid.UUID, error) {
	query := r.db.WithContext(ctx).
		Model(&models.CustomerAnalyticsModel{}).
		Where("segment = ?", segment)
	if limit > 0 {
		query = query.Limit(limit)
	}

	var ids []uuid.UUID
	if err := query.Pluck("customer_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

type segmentAggregateRow struct {
	Segment     analytics.Segment
	Count       int64
	TotalValue  decimal.Decimal
	AvgRFMScore float64
}

// SegmentAggregates groups scored records by RFM segment
func (r *GormAnalyticsRepository) SegmentAggregates(ctx context.Context) ([]analytics.SegmentStat, error) {
	var rows []segmentAggregateRow
	if err := r.db.WithContext(ctx).
		Model(&models.CustomerAnalyticsModel{}).
		Select("segment, COUNT(*) as count, COALESCE(SUM(monetary), 0) as total_value, COALESCE(AVG(rfm_score), 0) as avg_rfm_score").
		Where("rfm_calculated_at IS NOT NULL").
		Group("segment").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	stats := make([]analytics.SegmentStat, len(rows))
	for i, row := range rows {
		stats[i] = analytics.SegmentStat{
			Segment:     row.Segment,
			Count:       row.Count,
			TotalValue:  row.TotalValue,
			AvgRFMScore: row.AvgRFMScore,
		}
	}
	return stats, nil
}

func toDomainAnalytics(analyticsModels []models.CustomerAnalyticsModel) []analytics.CustomerAnalytics {
	records := make([]analytics.CustomerAnalytics, len(analyticsModels))
	for i, model := range analyticsModels {
		records[i] = *model.ToDomain()
	}
	return records
}
