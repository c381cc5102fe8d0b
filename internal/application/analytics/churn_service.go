package analytics

import (
	"context"
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

// failedTransactionWindow is the lookback for the failed-payment rule
const failedTransactionWindow = 90 * 24 * time.Hour

// churnCacheTTL bounds the per-customer churn cache entry. Churn reads
// always recompute, so the entry only serves consumers of the combined
// per-customer key set.
const churnCacheTTL = 24 * time.Hour

// defaultHighRiskLimit bounds the high-risk listing when the caller
// gives no limit
const defaultHighRiskLimit = 20

// ChurnService scores disengagement risk from the ledger and the
// customer's loyalty tier. Unlike RFM and CLV there is no staleness
// window: churn reads always recompute.
type ChurnService struct {
	customers    partner.CustomerRepository
	transactions ledger.TransactionRepository
	records      analytics.Repository
	store        cache.Store
	cfg          config.AnalyticsConfig
	logger       *zap.Logger
	metrics      *telemetry.Metrics
}

// NewChurnService creates a new ChurnService
func NewChurnService(
	customers partner.CustomerRepository,
	transactions ledger.TransactionRepository,
	records analytics.Repository,
	store cache.Store,
	cfg config.AnalyticsConfig,
	logger *zap.Logger,
	metrics *telemetry.Metrics,
) *ChurnService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChurnService{
		customers:    customers,
		transactions: transactions,
		records:      records,
		store:        store,
		cfg:          cfg,
		logger:       logger,
		metrics:      metrics,
	}
}

// AnalyzeCustomerChurn recomputes churn risk for one customer from the
// ledger, persists the result and refreshes the cache entry.
func (s *ChurnService) AnalyzeCustomerChurn(ctx context.Context, customerID uuid.UUID) (*ChurnAnalysisResponse, error) {
	customer, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	transactions, err := s.transactions.FindCompletedByCustomer(ctx, customerID, ledger.NewestFirst)
	if err != nil {
		return nil, err
	}
	failedLast90, err := s.transactions.CountFailedByCustomerSince(ctx, customerID, now.Add(-failedTransactionWindow))
	if err != nil {
		return nil, err
	}

	result := analytics.CalculateChurn(analytics.ChurnInput{
		Transactions: transactions,
		FailedLast90: failedLast90,
		LoyaltyLevel: customer.Level,
	}, now)

	if err := s.records.UpsertChurn(ctx, customerID, result); err != nil {
		return nil, err
	}

	resp := newChurnResponse(customerID, result)
	if err := s.store.Set(ctx, cache.CustomerChurnKey(customerID), cache.TypeChurn, resp, churnCacheTTL); err != nil {
		s.logger.Warn("churn cache write failed",
			zap.String("customer_id", customerID.String()),
			zap.Error(err))
	}
	return resp, nil
}

// GetCustomerChurnAnalysis returns the customer's churn risk. Churn has
// no staleness window, so this always recomputes from the ledger.
func (s *ChurnService) GetCustomerChurnAnalysis(ctx context.Context, customerID uuid.UUID) (*ChurnAnalysisResponse, error) {
	return s.AnalyzeCustomerChurn(ctx, customerID)
}

// GetHighRiskCustomers lists customers at critical or high churn level,
// ranked by churn score descending, straight from the persisted records.
func (s *ChurnService) GetHighRiskCustomers(ctx context.Context, limit int) ([]HighRiskCustomerResponse, error) {
	if limit <= 0 {
		limit = defaultHighRiskLimit
	}

	records, err := s.records.FindHighChurnRisk(ctx, limit)
	if err != nil {
		return nil, err
	}

	responses := make([]HighRiskCustomerResponse, len(records))
	for i, record := range records {
		responses[i] = HighRiskCustomerResponse{
			CustomerID:           record.CustomerID,
			ChurnScore:           record.ChurnScore,
			ChurnLevel:           record.ChurnLevel,
			Segment:              record.Segment,
			PreventionStrategies: record.PreventionStrategies,
		}
	}
	return responses, nil
}

// CalculateAllCustomersChurn recomputes churn risk for every customer,
// one at a time. A failed customer is recorded and the run continues.
func (s *ChurnService) CalculateAllCustomersChurn(ctx context.Context) (*ChurnBatchResponse, error) {
	ids, err := s.customers.FindAllIDs(ctx)
	if err != nil {
		return nil, err
	}

	summary := shared.NewBatchSummary("churn_batch")
	levelCounts := make(map[analytics.ChurnLevel]int)

	for _, id := range ids {
		resp, err := s.AnalyzeCustomerChurn(ctx, id)
		if err != nil {
			summary.RecordFailure(id, err)
			s.metrics.RecordScorerFailure("churn")
			s.logger.Warn("churn batch item failed",
				zap.String("customer_id", id.String()),
				zap.Error(err))
			continue
		}
		summary.RecordSuccess()
		levelCounts[resp.ChurnLevel]++
	}
	summary.Finish()

	s.metrics.RecordBatch(summary.Job, batchStatus(summary), summary.FinishedAt.Sub(summary.StartedAt).Seconds())
	s.logger.Info("churn batch finished",
		zap.Int("processed", summary.Processed),
		zap.Int("failed", summary.Failed))

	return &ChurnBatchResponse{Summary: summary, LevelCounts: levelCounts}, nil
}
