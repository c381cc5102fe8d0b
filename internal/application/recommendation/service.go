package recommendation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/erp/analytics/internal/domain/analytics"
	"github.com/erp/analytics/internal/domain/catalog"
	"github.com/erp/analytics/internal/domain/ledger"
	"github.com/erp/analytics/internal/domain/partner"
	"github.com/erp/analytics/internal/domain/recommendation"
	"github.com/erp/analytics/internal/domain/shared"
	"github.com/erp/analytics/internal/infrastructure/cache"
	"github.com/erp/analytics/internal/infrastructure/config"
	"github.com/erp/analytics/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultLimit bounds a recommendation list when the caller gives no limit
const DefaultLimit = recommendation.DefaultLimit

// candidateMultiplier sizes each sub-algorithm's candidate list relative
// to the requested limit, so the combiner has enough overlap to rank
const candidateMultiplier = 2

// Service generates hybrid product recommendations. Three sources feed
// the combiner: product affinity over co-purchases, collaborative
// scoring over a same-segment sample, and segment-wide top sellers.
// Purchased and out-of-stock products are never recommended.
type Service struct {
	customers       partner.CustomerRepository
	products        catalog.ProductRepository
	transactions    ledger.TransactionRepository
	records         analytics.Repository
	recommendations recommendation.Repository
	store           cache.Store
	cfg             config.AnalyticsConfig
	logger          *zap.Logger
	metrics         *telemetry.Metrics
}

// NewService creates a new recommendation Service
func NewService(
	customers partner.CustomerRepository,
	products catalog.ProductRepository,
	transactions ledger.TransactionRepository,
	records analytics.Repository,
	recommendations recommendation.Repository,
	store cache.Store,
	cfg config.AnalyticsConfig,
	logger *zap.Logger,
	metrics *telemetry.Metrics,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		customers:       customers,
		products:        products,
		transactions:    transactions,
		records:         records,
		recommendations: recommendations,
		store:           store,
		cfg:             cfg,
		logger:          logger,
		metrics:         metrics,
	}
}

func (s *Service) ttl() time.Duration {
	return time.Duration(s.cfg.RecommendationTTLHours) * time.Hour
}

// GeneratePersonalizedRecommendations returns the customer's ranked
// recommendation list. Resolution order: cached entry, persisted rows
// still inside the validity window, full regeneration from the ledger.
func (s *Service) GeneratePersonalizedRecommendations(ctx context.Context, customerID uuid.UUID, limit int) (*RecommendationListResponse, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	exists, err := s.customers.Exists(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, shared.ErrNotFound
	}

	key := cache.CustomerRecommendationsKey(customerID, limit)
	var cached RecommendationListResponse
	hit, err := s.store.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Warn("recommendation cache read failed",
			zap.String("customer_id", customerID.String()),
			zap.Error(err))
	}
	if hit {
		return &cached, nil
	}

	now := time.Now()
	rows, err := s.recommendations.FindFreshByCustomer(ctx, customerID, now.Add(-s.ttl()))
	if err != nil {
		return nil, err
	}

	var resp *RecommendationListResponse
	if len(rows) > 0 {
		resp, err = s.responseFromRows(ctx, customerID, rows, limit)
	} else {
		resp, err = s.regenerate(ctx, customerID, limit, now)
	}
	if err != nil {
		return nil, err
	}

	if err := s.store.Set(ctx, key, cache.TypeRecommendations, resp, s.ttl()); err != nil {
		s.logger.Warn("recommendation cache write failed",
			zap.String("customer_id", customerID.String()),
			zap.Error(err))
	}
	return resp, nil
}

// responseFromRows rebuilds the response payload from persisted rows.
// Products that have since disappeared from the catalog are skipped.
func (s *Service) responseFromRows(ctx context.Context, customerID uuid.UUID, rows []recommendation.ProductRecommendation, limit int) (*RecommendationListResponse, error) {
	ids := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		ids[i] = row.ProductID
	}
	productsByID, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	entries := make([]RecommendedProduct, 0, limit)
	for _, row := range rows {
		product, ok := productsByID[row.ProductID]
		if !ok {
			continue
		}
		entries = append(entries, RecommendedProduct{
			ProductID: row.ProductID,
			SKU:       product.SKU,
			Name:      product.Name,
			Category:  product.Category,
			Price:     product.Price,
			Score:     row.Score,
			Types:     row.Types,
			Reasons:   row.Reasons,
		})
		if len(entries) == limit {
			break
		}
	}

	return &RecommendationListResponse{
		CustomerID:      customerID,
		Recommendations: entries,
		GeneratedAt:     rows[0].GeneratedAt,
	}, nil
}

// regenerate recomputes the three sources from the ledger, combines
// them, replaces the persisted rows and returns the fresh payload.
func (s *Service) regenerate(ctx context.Context, customerID uuid.UUID, limit int, now time.Time) (*RecommendationListResponse, error) {
	transactions, err := s.transactions.FindCompletedByCustomer(ctx, customerID, ledger.NewestFirst)
	if err != nil {
		return nil, err
	}
	purchased := make(map[uuid.UUID]struct{}, len(transactions))
	for _, tx := range transactions {
		purchased[tx.ProductID] = struct{}{}
	}

	segment, err := s.customerSegment(ctx, customerID)
	if err != nil {
		return nil, err
	}

	affinityScores, err := s.affinityScores(ctx, customerID, purchased)
	if err != nil {
		return nil, err
	}
	collaborativeScores, err := s.collaborativeScores(ctx, customerID, segment, purchased)
	if err != nil {
		return nil, err
	}
	segmentScores, segmentRevenue, err := s.segmentScores(ctx, customerID, segment, purchased)
	if err != nil {
		return nil, err
	}

	productsByID, err := s.resolveCandidates(ctx, affinityScores, collaborativeScores, segmentScores)
	if err != nil {
		return nil, err
	}

	candidateCap := limit * candidateMultiplier
	sources := []recommendation.SourceList{
		{
			Type:       recommendation.TypeAffinity,
			Weight:     recommendation.WeightAffinity,
			Candidates: topCandidates(affinityScores, nil, productsByID, candidateCap, "bought together with your purchases"),
		},
		{
			Type:       recommendation.TypeCollaborative,
			Weight:     recommendation.WeightCollaborative,
			Candidates: topCandidates(collaborativeScores, nil, productsByID, candidateCap, "popular with similar customers"),
		},
		{
			Type:       recommendation.TypeSegment,
			Weight:     recommendation.WeightSegment,
			Candidates: topCandidates(segmentScores, segmentRevenue, productsByID, candidateCap, fmt.Sprintf("top seller in the %s segment", segment)),
		},
	}

	combined := recommendation.Combine(sources, limit)

	rows := make([]recommendation.ProductRecommendation, len(combined))
	entries := make([]RecommendedProduct, len(combined))
	for i, c := range combined {
		product := productsByID[c.ProductID]
		rows[i] = recommendation.ProductRecommendation{
			BaseEntity:  shared.NewBaseEntity(),
			CustomerID:  customerID,
			ProductID:   c.ProductID,
			Score:       c.Score,
			Types:       c.Types,
			Reasons:     c.Reasons,
			GeneratedAt: now,
			ExpiresAt:   now.Add(s.ttl()),
		}
		entries[i] = RecommendedProduct{
			ProductID: c.ProductID,
			SKU:       product.SKU,
			Name:      product.Name,
			Category:  product.Category,
			Price:     product.Price,
			Score:     c.Score,
			Types:     c.Types,
			Reasons:   c.Reasons,
		}
	}

	if err := s.recommendations.ReplaceForCustomer(ctx, customerID, rows); err != nil {
		return nil, err
	}

	return &RecommendationListResponse{
		CustomerID:      customerID,
		Recommendations: entries,
		GeneratedAt:     now,
	}, nil
}

// customerSegment resolves the customer's current RFM segment. An
// unscored customer has no segment; collaborative and segment sources
// then contribute nothing.
func (s *Service) customerSegment(ctx context.Context, customerID uuid.UUID) (analytics.Segment, error) {
	record, err := s.records.FindByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return record.Segment, nil
}

// affinityScores scores candidates by how many co-purchasers bought
// them. A co-purchaser is any other customer sharing at least one
// completed product purchase with the target.
func (s *Service) affinityScores(ctx context.Context, customerID uuid.UUID, purchased map[uuid.UUID]struct{}) (map[uuid.UUID]float64, error) {
	if len(purchased) == 0 {
		return nil, nil
	}

	coBuyerSet := make(map[uuid.UUID]struct{})
	for productID := range purchased {
		buyers, err := s.transactions.FindCustomerIDsByProduct(ctx, productID)
		if err != nil {
			return nil, err
		}
		for _, id := range buyers {
			if id != customerID {
				coBuyerSet[id] = struct{}{}
			}
		}
	}
	if len(coBuyerSet) == 0 {
		return nil, nil
	}

	coBuyers := make([]uuid.UUID, 0, len(coBuyerSet))
	for id := range coBuyerSet {
		coBuyers = append(coBuyers, id)
	}

	coTransactions, err := s.transactions.FindCompletedByCustomers(ctx, coBuyers)
	if err != nil {
		return nil, err
	}

	buyersPerProduct := make(map[uuid.UUID]map[uuid.UUID]struct{})
	for _, tx := range coTransactions {
		if _, owned := purchased[tx.ProductID]; owned {
			continue
		}
		if buyersPerProduct[tx.ProductID] == nil {
			buyersPerProduct[tx.ProductID] = make(map[uuid.UUID]struct{})
		}
		buyersPerProduct[tx.ProductID][tx.CustomerID] = struct{}{}
	}

	scores := make(map[uuid.UUID]float64, len(buyersPerProduct))
	for productID, buyers := range buyersPerProduct {
		scores[productID] = float64(len(buyers))
	}
	return scores, nil
}

// collaborativeScores scores candidates by purchase count across a
// bounded sample of same-segment customers.
func (s *Service) collaborativeScores(ctx context.Context, customerID uuid.UUID, segment analytics.Segment, purchased map[uuid.UUID]struct{}) (map[uuid.UUID]float64, error) {
	if segment == "" {
		return nil, nil
	}

	// One extra slot absorbs the target customer appearing in the sample.
	peers, err := s.records.FindCustomerIDsBySegment(ctx, segment, s.cfg.CollaborativeSampleSize+1)
	if err != nil {
		return nil, err
	}
	peers = excludeCustomer(peers, customerID)
	if len(peers) > s.cfg.CollaborativeSampleSize {
		peers = peers[:s.cfg.CollaborativeSampleSize]
	}
	if len(peers) == 0 {
		return nil, nil
	}

	peerTransactions, err := s.transactions.FindCompletedByCustomers(ctx, peers)
	if err != nil {
		return nil, err
	}

	scores := make(map[uuid.UUID]float64)
	for _, tx := range peerTransactions {
		if _, owned := purchased[tx.ProductID]; owned {
			continue
		}
		scores[tx.ProductID]++
	}
	return scores, nil
}

// segmentScores ranks the whole segment cohort's purchases by count,
// keeping revenue as a tiebreaker.
func (s *Service) segmentScores(ctx context.Context, customerID uuid.UUID, segment analytics.Segment, purchased map[uuid.UUID]struct{}) (map[uuid.UUID]float64, map[uuid.UUID]decimal.Decimal, error) {
	if segment == "" {
		return nil, nil, nil
	}

	cohort, err := s.records.FindCustomerIDsBySegment(ctx, segment, 0)
	if err != nil {
		return nil, nil, err
	}
	cohort = excludeCustomer(cohort, customerID)
	if len(cohort) == 0 {
		return nil, nil, nil
	}

	cohortTransactions, err := s.transactions.FindCompletedByCustomers(ctx, cohort)
	if err != nil {
		return nil, nil, err
	}

	scores := make(map[uuid.UUID]float64)
	revenue := make(map[uuid.UUID]decimal.Decimal)
	for _, tx := range cohortTransactions {
		if _, owned := purchased[tx.ProductID]; owned {
			continue
		}
		scores[tx.ProductID]++
		revenue[tx.ProductID] = revenue[tx.ProductID].Add(tx.TotalAmount)
	}
	return scores, revenue, nil
}

// resolveCandidates fetches every candidate product in one read and
// drops candidates that are missing from the catalog or out of stock.
func (s *Service) resolveCandidates(ctx context.Context, scoreMaps ...map[uuid.UUID]float64) (map[uuid.UUID]*catalog.Product, error) {
	idSet := make(map[uuid.UUID]struct{})
	for _, scores := range scoreMaps {
		for id := range scores {
			idSet[id] = struct{}{}
		}
	}
	if len(idSet) == 0 {
		return map[uuid.UUID]*catalog.Product{}, nil
	}

	ids := make([]uuid.UUID, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	productsByID, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, scores := range scoreMaps {
		for productID := range scores {
			product, ok := productsByID[productID]
			if !ok || !product.InStock() {
				delete(scores, productID)
			}
		}
	}
	return productsByID, nil
}

// topCandidates orders a source's scores descending and keeps the best
// keep entries. Revenue breaks ties when provided; product ID keeps the
// ordering deterministic.
func topCandidates(scores map[uuid.UUID]float64, revenue map[uuid.UUID]decimal.Decimal, productsByID map[uuid.UUID]*catalog.Product, keep int, reason string) []recommendation.Candidate {
	candidates := make([]recommendation.Candidate, 0, len(scores))
	for productID, score := range scores {
		if _, ok := productsByID[productID]; !ok {
			continue
		}
		candidates = append(candidates, recommendation.Candidate{
			ProductID: productID,
			Score:     score,
			Reason:    reason,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if revenue != nil {
			ri, rj := revenue[candidates[i].ProductID], revenue[candidates[j].ProductID]
			if !ri.Equal(rj) {
				return ri.GreaterThan(rj)
			}
		}
		return candidates[i].ProductID.String() < candidates[j].ProductID.String()
	})

	if keep > 0 && len(candidates) > keep {
		candidates = candidates[:keep]
	}
	return candidates
}

func excludeCustomer(ids []uuid.UUID, customerID uuid.UUID) []uuid.UUID {
	out := ids[:0]
	for _, id := range ids {
		if id != customerID {
			out = append(out, id)
		}
	}
	return out
}

// GetProductCrossSell returns products frequently bought by customers
// of the given product. The affinity score is the share of the
// product's buyers who also bought the candidate, as a percentage.
func (s *Service) GetProductCrossSell(ctx context.Context, productID uuid.UUID, limit int) (*CrossSellResponse, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	exists, err := s.products.Exists(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, shared.ErrNotFound
	}

	resp, _, err := cache.GetOrCompute(ctx, s.store, s.logger, cache.CrossSellKey(productID, limit), cache.TypeCrossSell, s.ttl(),
		func(ctx context.Context) (*CrossSellResponse, error) {
			return s.buildCrossSell(ctx, productID, limit)
		})
	return resp, err
}

func (s *Service) buildCrossSell(ctx context.Context, productID uuid.UUID, limit int) (*CrossSellResponse, error) {
	buyers, err := s.transactions.FindCustomerIDsByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if len(buyers) == 0 {
		return &CrossSellResponse{ProductID: productID, Products: []CrossSellProduct{}}, nil
	}

	buyerTransactions, err := s.transactions.FindCompletedByCustomers(ctx, buyers)
	if err != nil {
		return nil, err
	}

	buyersPerProduct := make(map[uuid.UUID]map[uuid.UUID]struct{})
	for _, tx := range buyerTransactions {
		if tx.ProductID == productID {
			continue
		}
		if buyersPerProduct[tx.ProductID] == nil {
			buyersPerProduct[tx.ProductID] = make(map[uuid.UUID]struct{})
		}
		buyersPerProduct[tx.ProductID][tx.CustomerID] = struct{}{}
	}
	if len(buyersPerProduct) == 0 {
		return &CrossSellResponse{ProductID: productID, Products: []CrossSellProduct{}}, nil
	}

	candidateIDs := make([]uuid.UUID, 0, len(buyersPerProduct))
	for id := range buyersPerProduct {
		candidateIDs = append(candidateIDs, id)
	}
	productsByID, err := s.products.FindByIDs(ctx, candidateIDs)
	if err != nil {
		return nil, err
	}

	entries := make([]CrossSellProduct, 0, len(buyersPerProduct))
	for candidateID, coBuyers := range buyersPerProduct {
		product, ok := productsByID[candidateID]
		if !ok || !product.InStock() {
			continue
		}
		affinity := math.Round(float64(len(coBuyers))/float64(len(buyers))*100*100) / 100
		entries = append(entries, CrossSellProduct{
			ProductID:     candidateID,
			SKU:           product.SKU,
			Name:          product.Name,
			Price:         product.Price,
			AffinityScore: affinity,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].AffinityScore != entries[j].AffinityScore {
			return entries[i].AffinityScore > entries[j].AffinityScore
		}
		return entries[i].ProductID.String() < entries[j].ProductID.String()
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}

	return &CrossSellResponse{ProductID: productID, Products: entries}, nil
}

// GenerateAllRecommendations regenerates every customer's list from the
// ledger, removing expired rows first. A failed customer is recorded
// and the run continues.
func (s *Service) GenerateAllRecommendations(ctx context.Context) (*BatchResponse, error) {
	now := time.Now()
	removed, err := s.recommendations.DeleteExpired(ctx, now)
	if err != nil {
		s.logger.Warn("expired recommendation cleanup failed", zap.Error(err))
	}

	ids, err := s.customers.FindAllIDs(ctx)
	if err != nil {
		return nil, err
	}

	summary := shared.NewBatchSummary("recommendation_batch")
	for _, id := range ids {
		resp, err := s.regenerate(ctx, id, DefaultLimit, time.Now())
		if err != nil {
			summary.RecordFailure(id, err)
			s.metrics.RecordScorerFailure("recommendation")
			s.logger.Warn("recommendation batch item failed",
				zap.String("customer_id", id.String()),
				zap.Error(err))
			continue
		}
		summary.RecordSuccess()

		key := cache.CustomerRecommendationsKey(id, DefaultLimit)
		if err := s.store.Set(ctx, key, cache.TypeRecommendations, resp, s.ttl()); err != nil {
			s.logger.Warn("recommendation cache write failed",
				zap.String("customer_id", id.String()),
				zap.Error(err))
		}
	}
	summary.Finish()

	status := "success"
	if summary.Failed > 0 {
		status = "partial"
	}
	s.metrics.RecordBatch(summary.Job, status, summary.FinishedAt.Sub(summary.StartedAt).Seconds())
	s.logger.Info("recommendation batch finished",
		zap.Int("processed", summary.Processed),
		zap.Int("failed", summary.Failed),
		zap.Int64("expired_removed", removed))

	return &BatchResponse{Summary: summary, ExpiredRemoved: removed}, nil
}
