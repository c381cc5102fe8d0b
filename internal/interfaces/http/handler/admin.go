package handler

import (
	"context"

	analyticsapp "github.com/erp/analytics/internal/application/analytics"
	recommendationapp "github.com/erp/analytics/internal/application/recommendation"
	"github.com/erp/analytics/internal/infrastructure/cache"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RFMBatchRunner runs the full RFM recomputation
type RFMBatchRunner interface {
	CalculateAllCustomersRFM(ctx context.Context) (*analyticsapp.RFMBatchResponse, error)
}

// CLVBatchRunner runs the full CLV recomputation
type CLVBatchRunner interface {
	CalculateAllCustomersCLV(ctx context.Context) (*analyticsapp.CLVBatchResponse, error)
}

// ChurnBatchRunner runs the full churn recomputation
type ChurnBatchRunner interface {
	CalculateAllCustomersChurn(ctx context.Context) (*analyticsapp.ChurnBatchResponse, error)
}

// RecommendationBatchRunner regenerates every customer's recommendations
type RecommendationBatchRunner interface {
	GenerateAllRecommendations(ctx context.Context) (*recommendationapp.BatchResponse, error)
}

// SchedulerStatusProvider reports the batch scheduler's job states
type SchedulerStatusProvider interface {
	GetStatus() map[string]any
}

// AdminHandler handles operational endpoints: batch triggers, scheduler
// inspection and cache management
type AdminHandler struct {
	BaseHandler
	rfm       RFMBatchRunner
	clv       CLVBatchRunner
	churn     ChurnBatchRunner
	recs      RecommendationBatchRunner
	scheduler SchedulerStatusProvider
	store     cache.Store
	logger    *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(
	rfm RFMBatchRunner,
	clv CLVBatchRunner,
	churn ChurnBatchRunner,
	recs RecommendationBatchRunner,
	scheduler SchedulerStatusProvider,
	store cache.Store,
	logger *zap.Logger,
) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{
		rfm:       rfm,
		clv:       clv,
		churn:     churn,
		recs:      recs,
		scheduler: scheduler,
		store:     store,
		logger:    logger,
	}
}

// RegisterRoutes registers the admin routes
func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup) {
	admin := rg.Group("/admin")
	admin.POST("/analytics/run", h.RunAllBatches)
	admin.GET("/analytics/scheduler", h.GetSchedulerStatus)
	admin.GET("/cache/stats", h.GetCacheStats)
	admin.DELETE("/cache", h.ClearCache)
	admin.POST("/cache/clean-expired", h.CleanExpiredCache)
	admin.DELETE("/customers/:id/cache", h.InvalidateCustomerCache)
}

// RunAllBatches runs the four batch recomputations serially and returns
// their summaries. Individual customer failures are inside the
// summaries; only a wholesale failure aborts the run.
func (h *AdminHandler) RunAllBatches(c *gin.Context) {
	ctx := c.Request.Context()

	rfm, err := h.rfm.CalculateAllCustomersRFM(ctx)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	clv, err := h.clv.CalculateAllCustomersCLV(ctx)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	churn, err := h.churn.CalculateAllCustomersChurn(ctx)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	recommendations, err := h.recs.GenerateAllRecommendations(ctx)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{
		"rfm":             rfm,
		"clv":             clv,
		"churn":           churn,
		"recommendations": recommendations,
	})
}

// GetSchedulerStatus returns the scheduler's per-job state
func (h *AdminHandler) GetSchedulerStatus(c *gin.Context) {
	h.Success(c, h.scheduler.GetStatus())
}

// GetCacheStats returns hit/miss counters per cache tier
func (h *AdminHandler) GetCacheStats(c *gin.Context) {
	h.Success(c, h.store.Stats())
}

// ClearCache drops cache entries. The type query parameter restricts
// the clear to one cache type; omitted, everything goes.
func (h *AdminHandler) ClearCache(c *gin.Context) {
	cacheType := c.Query("type")
	if err := h.store.Clear(c.Request.Context(), cacheType); err != nil {
		h.HandleError(c, err)
		return
	}
	h.logger.Info("cache cleared", zap.String("cache_type", cacheType))
	h.Success(c, gin.H{"cleared": true, "cache_type": cacheType})
}

// CleanExpiredCache removes expired durable cache entries
func (h *AdminHandler) CleanExpiredCache(c *gin.Context) {
	removed, err := h.store.CleanExpired(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"removed": removed})
}

// InvalidateCustomerCache drops the customer's per-customer cache
// entries so the next read recomputes
func (h *AdminHandler) InvalidateCustomerCache(c *gin.Context) {
	customerID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	if err := cache.InvalidateCustomer(c.Request.Context(), h.store, customerID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"invalidated": true, "customer_id": customerID})
}
