package analytics

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/erp/analytics/internal/domain/analytics"
	"github.com/erp/analytics/internal/domain/ledger"
	"github.com/erp/analytics/internal/domain/partner"
	"github.com/erp/analytics/internal/domain/shared"
	"github.com/erp/analytics/internal/infrastructure/cache"
	"github.com/erp/analytics/internal/infrastructure/config"
	"github.com/erp/analytics/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RFMService scores customers on recency, frequency and monetary value
// and maintains the segment overview. Reads resolve cache, then the
// persisted record within its staleness window, then recompute.
type RFMService struct {
	customers    partner.CustomerRepository
	transactions ledger.TransactionRepository
	records      analytics.Repository
	store        cache.Store
	cfg          config.AnalyticsConfig
	logger       *zap.Logger
	metrics      *telemetry.Metrics
}

// NewRFMService creates a new RFMService
func NewRFMService(
	customers partner.CustomerRepository,
	transactions ledger.TransactionRepository,
	records analytics.Repository,
	store cache.Store,
	cfg config.AnalyticsConfig,
	logger *zap.Logger,
	metrics *telemetry.Metrics,
) *RFMService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RFMService{
		customers:    customers,
		transactions: transactions,
		records:      records,
		store:        store,
		cfg:          cfg,
		logger:       logger,
		metrics:      metrics,
	}
}

func (s *RFMService) cacheTTL() time.Duration {
	return time.Duration(s.cfg.RFMCacheTTLHours) * time.Hour
}

// CalculateCustomerRFM recomputes RFM for one customer from the ledger,
// persists the result and refreshes the cache entry.
func (s *RFMService) CalculateCustomerRFM(ctx context.Context, customerID uuid.UUID) (*RFMAnalysisResponse, error) {
	exists, err := s.customers.Exists(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, shared.ErrNotFound
	}

	transactions, err := s.transactions.FindCompletedByCustomer(ctx, customerID, ledger.NewestFirst)
	if err != nil {
		return nil, err
	}

	result := analytics.CalculateRFM(transactions, time.Now())
	if err := s.records.UpsertRFM(ctx, customerID, result); err != nil {
		return nil, err
	}

	resp := newRFMResponse(customerID, result)
	if err := s.store.Set(ctx, cache.CustomerRFMKey(customerID), cache.TypeRFM, resp, s.cacheTTL()); err != nil {
		s.logger.Warn("rfm cache write failed",
			zap.String("customer_id", customerID.String()),
			zap.Error(err))
	}
	return resp, nil
}

// GetCustomerRFMAnalysis returns the customer's RFM scoring, serving the
// cached entry when present, the persisted record while fresh, and
// recomputing otherwise.
func (s *RFMService) GetCustomerRFMAnalysis(ctx context.Context, customerID uuid.UUID) (*RFMAnalysisResponse, error) {
	key := cache.CustomerRFMKey(customerID)

	var cached RFMAnalysisResponse
	hit, err := s.store.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Warn("rfm cache read failed",
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
	if err == nil && !record.RFMStale(s.cfg.RFMStaleness) {
		resp := newRFMResponseFromRecord(record)
		if err := s.store.Set(ctx, key, cache.TypeRFM, resp, s.cacheTTL()); err != nil {
			s.logger.Warn("rfm cache write failed",
				zap.String("customer_id", customerID.String()),
				zap.Error(err))
		}
		return resp, nil
	}

	return s.CalculateCustomerRFM(ctx, customerID)
}

// CalculateAllCustomersRFM recomputes RFM for every customer, one at a
// time. A failed customer is recorded and the run continues.
func (s *RFMService) CalculateAllCustomersRFM(ctx context.Context) (*RFMBatchResponse, error) {
	ids, err := s.customers.FindAllIDs(ctx)
	if err != nil {
		return nil, err
	}

	summary := shared.NewBatchSummary("rfm_batch")
	segmentCounts := make(map[analytics.Segment]int)

	for _, id := range ids {
		resp, err := s.CalculateCustomerRFM(ctx, id)
		if err != nil {
			summary.RecordFailure(id, err)
			s.metrics.RecordScorerFailure("rfm")
			s.logger.Warn("rfm batch item failed",
				zap.String("customer_id", id.String()),
				zap.Error(err))
			continue
		}
		summary.RecordSuccess()
		segmentCounts[resp.Segment]++
	}
	summary.Finish()

	s.metrics.RecordBatch(summary.Job, batchStatus(summary), summary.FinishedAt.Sub(summary.StartedAt).Seconds())
	s.logger.Info("rfm batch finished",
		zap.Int("processed", summary.Processed),
		zap.Int("failed", summary.Failed))

	return &RFMBatchResponse{Summary: summary, SegmentCounts: segmentCounts}, nil
}

// GetSegmentOverview returns the segment distribution across all scored
// customers, cached for the configured window.
func (s *RFMService) GetSegmentOverview(ctx context.Context) (*SegmentOverviewResponse, error) {
	ttl := time.Duration(s.cfg.SegmentOverviewTTLHours) * time.Hour

	overview, _, err := cache.GetOrCompute(ctx, s.store, s.logger, cache.SegmentOverviewKey(), cache.TypeSegmentOverview, ttl,
		func(ctx context.Context) (*SegmentOverviewResponse, error) {
			return s.buildSegmentOverview(ctx)
		})
	return overview, err
}

func (s *RFMService) buildSegmentOverview(ctx context.Context) (*SegmentOverviewResponse, error) {
	stats, err := s.records.SegmentAggregates(ctx)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, stat := range stats {
		total += stat.Count
	}

	segments := make(map[string]SegmentDetail, len(stats))
	for _, stat := range stats {
		percentage := 0.0
		if total > 0 {
			percentage = math.Round(float64(stat.Count)/float64(total)*100*100) / 100
		}
		segments[string(stat.Segment)] = SegmentDetail{
			Count:       stat.Count,
			TotalValue:  stat.TotalValue,
			AvgRFMScore: stat.AvgRFMScore,
			Percentage:  percentage,
		}
	}

	return &SegmentOverviewResponse{TotalCustomers: total, Segments: segments}, nil
}

// batchStatus classifies a finished batch for metrics labels
func batchStatus(summary *shared.BatchSummary) string {
	if summary.Failed > 0 {
		return "partial"
	}
	return "success"
}
