package analytics

import (
	"context"
	"errors"
	"time"

	"github.com/erp/analytics/internal/domain/analytics"
	"github.com/erp/analytics/internal/domain/ledger"
	"github.com/erp/analytics/internal/domain/partner"
	"github.com/erp/analytics/internal/domain/shared"
	"github.com/erp/analytics/internal/infrastructure/cache"
	"github.com/erp/analytics/internal/infrastructure/config"
	"github.com/erp/analytics/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// defaultTopCLVLimit bounds the ranking when the caller gives no limit
const defaultTopCLVLimit = 10

// CLVService predicts forward customer lifetime value from the ledger
type CLVService struct {
	customers    partner.CustomerRepository
	transactions ledger.TransactionRepository
	records      analytics.Repository
	store        cache.Store
	cfg          config.AnalyticsConfig
	logger       *zap.Logger
	metrics      *telemetry.Metrics
}

// NewCLVService creates a new CLVService
func NewCLVService(
	customers partner.CustomerRepository,
	transactions ledger.TransactionRepository,
	records analytics.Repository,
	store cache.Store,
	cfg config.AnalyticsConfig,
	logger *zap.Logger,
	metrics *telemetry.Metrics,
) *CLVService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CLVService{
		customers:    customers,
		transactions: transactions,
		records:      records,
		store:        store,
		cfg:          cfg,
		logger:       logger,
		metrics:      metrics,
	}
}

func (s *CLVService) cacheTTL() time.Duration {
	return time.Duration(s.cfg.CLVCacheTTLHours) * time.Hour
}

// CalculateCustomerCLV recomputes CLV for one customer from the ledger,
// persists the result and refreshes the cache entry.
func (s *CLVService) CalculateCustomerCLV(ctx context.Context, customerID uuid.UUID) (*CLVAnalysisResponse, error) {
	exists, err := s.customers.Exists(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, shared.ErrNotFound
	}

	transactions, err := s.transactions.FindCompletedByCustomer(ctx, customerID, ledger.OldestFirst)
	if err != nil {
		return nil, err
	}

	result := analytics.CalculateCLV(transactions, time.Now())
	if err := s.records.UpsertCLV(ctx, customerID, result); err != nil {
		return nil, err
	}

	resp := newCLVResponse(customerID, result)
	if err := s.store.Set(ctx, cache.CustomerCLVKey(customerID), cache.TypeCLV, resp, s.cacheTTL()); err != nil {
		s.logger.Warn("clv cache write failed",
			zap.String("customer_id", customerID.String()),
			zap.Error(err))
	}
	return resp, nil
}

// GetCustomerCLVAnalysis returns the customer's CLV prediction, serving
// the cached entry when present, the persisted record while fresh, and
// recomputing otherwise.
func (s *CLVService) GetCustomerCLVAnalysis(ctx context.Context, customerID uuid.UUID) (*CLVAnalysisResponse, error) {
	key := cache.CustomerCLVKey(customerID)

	var cached CLVAnalysisResponse
	hit, err := s.store.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Warn("clv cache read failed",
			zap.String("customer_id", customerID.String()),
			zap.Error(err))
	}
	if hit {
		return &cached, nil
	}

	record, err := s.records.FindByCustomer(ctx, customerID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if err == nil && !record.CLVStale(s.cfg.CLVStaleness) {
		resp := newCLVResponseFromRecord(record)
		if err := s.store.Set(ctx, key, cache.TypeCLV, resp, s.cacheTTL()); err != nil {
			s.logger.Warn("clv cache write failed",
				zap.String("customer_id", customerID.String()),
				zap.Error(err))
		}
		return resp, nil
	}

	return s.CalculateCustomerCLV(ctx, customerID)
}

// CalculateAllCustomersCLV recomputes CLV for every customer, one at a
// time. A failed customer is recorded and the run continues.
func (s *CLVService) CalculateAllCustomersCLV(ctx context.Context) (*CLVBatchResponse, error) {
	ids, err := s.customers.FindAllIDs(ctx)
	if err != nil {
		return nil, err
	}

	summary := shared.NewBatchSummary("clv_batch")
	totalPredicted := decimal.Zero

	for _, id := range ids {
		resp, err := s.CalculateCustomerCLV(ctx, id)
		if err != nil {
			summary.RecordFailure(id, err)
			s.metrics.RecordScorerFailure("clv")
			s.logger.Warn("clv batch item failed",
				zap.String("customer_id", id.String()),
				zap.Error(err))
			continue
		}
		summary.RecordSuccess()
		totalPredicted = totalPredicted.Add(resp.Predicted)
	}
	summary.Finish()

	averagePredicted := decimal.Zero
	if summary.Processed > 0 {
		averagePredicted = totalPredicted.Div(decimal.NewFromInt(int64(summary.Processed))).Round(2)
	}

	s.metrics.RecordBatch(summary.Job, batchStatus(summary), summary.FinishedAt.Sub(summary.StartedAt).Seconds())
	s.logger.Info("clv batch finished",
		zap.Int("processed", summary.Processed),
		zap.Int("failed", summary.Failed))

	return &CLVBatchResponse{
		Summary:          summary,
		TotalPredicted:   totalPredicted,
		AveragePredicted: averagePredicted,
	}, nil
}

// GetTopCustomersByCLV returns customers ranked by predicted CLV
// descending, cached per limit for the configured window.
func (s *CLVService) GetTopCustomersByCLV(ctx context.Context, limit int) ([]TopCustomerResponse, error) {
	if limit <= 0 {
		limit = defaultTopCLVLimit
	}
	ttl := time.Duration(s.cfg.TopCLVTTLHours) * time.Hour

	ranking, _, err := cache.GetOrCompute(ctx, s.store, s.logger, cache.TopCLVKey(limit), cache.TypeTopCLV, ttl,
		func(ctx context.Context) ([]TopCustomerResponse, error) {
			records, err := s.records.FindTopByCLV(ctx, limit)
			if err != nil {
				return nil, err
			}

			responses := make([]TopCustomerResponse, len(records))
			for i, record := range records {
				responses[i] = TopCustomerResponse{
					CustomerID: record.CustomerID,
					Predicted:  record.CLVPredicted,
					Confidence: record.CLVConfidence,
					Segment:    record.Segment,
				}
			}
			return responses, nil
		})
	return ranking, err
}
