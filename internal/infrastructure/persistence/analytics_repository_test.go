package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/analytics/internal/domain/analytics"
	"github.com/erp/analytics/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func TestGormAnalyticsRepository_FindByCustomer(t *testing.T) {
	t.Run("finds existing record", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormAnalyticsRepository(gormDB)

		customerID := uuid.New()
		now := time.Now()

		rows := sqlmock.NewRows([]string{
			"customer_id", "recency_days", "recency_score", "frequency", "frequency_score",
			"monetary", "monetary_score", "rfm_score", "segment", "rfm_calculated_at",
			"churn_indicators", "prevention_strategies", "updated_at",
		}).AddRow(
			customerID, 12, 5, 8, 4,
			decimal.NewFromInt(3400), 3, 12, "Loyal", now,
			`[{"code":"spend_drop","detail":"spend fell","weight":20}]`, `["personalized_discount"]`, now,
		)

		mock.ExpectQuery(`SELECT \* FROM "customer_analytics" WHERE customer_id = \$1 .* LIMIT .*`).
			WithArgs(customerID, 1).
			WillReturnRows(rows)

		record, err := repo.FindByCustomer(context.Background(), customerID)

		require.NoError(t, err)
		assert.Equal(t, analytics.SegmentLoyal, record.Segment)
		assert.Equal(t, 12, record.RFMScore)
		require.Len(t, record.ChurnIndicators, 1)
		assert.Equal(t, "spend_drop", record.ChurnIndicators[0].Code)
		assert.Equal(t, []string{"personalized_discount"}, record.PreventionStrategies)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps missing record to not found", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormAnalyticsRepository(gormDB)

		customerID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "customer_analytics"`).
			WithArgs(customerID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		record, err := repo.FindByCustomer(context.Background(), customerID)

		assert.Nil(t, record)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAnalyticsRepository_UpsertRFM(t *testing.T) {
	gormDB, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	repo := NewGormAnalyticsRepository(gormDB)

	customerID := uuid.New()
	result := analytics.RFMResult{
		RecencyDays:    5,
		RecencyScore:   5,
		Frequency:      20,
		FrequencyScore: 5,
		Monetary:       decimal.NewFromInt(12000),
		MonetaryScore:  5,
		Score:          15,
		Segment:        analytics.SegmentChampions,
		CalculatedAt:   time.Now(),
	}

	mock.ExpectExec(`INSERT INTO "customer_analytics" .* ON CONFLICT \("customer_id"\) DO UPDATE SET .*"rfm_score"=.*`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpsertRFM(context.Background(), customerID, result)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormAnalyticsRepository_UpsertChurn(t *testing.T) {
	gormDB, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	repo := NewGormAnalyticsRepository(gormDB)

	result := analytics.ChurnResult{
		Score: 45,
		Level: analytics.ChurnMedium,
		Indicators: []analytics.ChurnIndicator{
			{Code: "re_engagement_offer", Detail: "no purchase in 120 days", Weight: 30},
		},
		PreventionStrategies: []string{"re_engagement_offer"},
		CalculatedAt:         time.Now(),
	}

	mock.ExpectExec(`INSERT INTO "customer_analytics" .* ON CONFLICT \("customer_id"\) DO UPDATE SET .*"churn_score"=.*`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpsertChurn(context.Background(), uuid.New(), result)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormAnalyticsRepository_SegmentAggregates(t *testing.T) {
	gormDB, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	repo := NewGormAnalyticsRepository(gormDB)

	rows := sqlmock.NewRows([]string{"segment", "count", "total_value", "avg_rfm_score"}).
		AddRow("Champions", 3, decimal.NewFromInt(45000), 14.2).
		AddRow("Lost", 7, decimal.NewFromInt(2100), 4.1)

	mock.ExpectQuery(`SELECT segment, COUNT\(\*\) as count, .* FROM "customer_analytics" WHERE rfm_calculated_at IS NOT NULL GROUP BY .*segment.*`).
		WillReturnRows(rows)

	stats, err := repo.SegmentAggregates(context.Background())

	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, analytics.SegmentChampions, stats[0].Segment)
	assert.Equal(t, int64(3), stats[0].Count)
	assert.InDelta(t, 14.2, stats[0].AvgRFMScore, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormAnalyticsRepository_FindHighChurnRisk(t *testing.T) {
	gormDB, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	repo := NewGormAnalyticsRepository(gormDB)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"customer_id", "churn_score", "churn_level", "updated_at"}).
		AddRow(uuid.New(), 90, "critical", now).
		AddRow(uuid.New(), 65, "high", now)

	mock.ExpectQuery(`SELECT \* FROM "customer_analytics" WHERE churn_level IN \(\$1,\$2\) ORDER BY churn_score desc LIMIT .*`).
		WithArgs("critical", "high", 20).
		WillReturnRows(rows)

	records, err := repo.FindHighChurnRisk(context.Background(), 20)

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.GreaterOrEqual(t, records[0].ChurnScore, records[1].ChurnScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}
