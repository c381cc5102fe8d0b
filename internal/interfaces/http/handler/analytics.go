package handler

import (
	"context"

	analyticsapp "github.com/erp/analytics/internal/application/analytics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RFMAnalyzer is the RFM surface the analytics endpoints need
type RFMAnalyzer interface {
	GetCustomerRFMAnalysis(ctx context.Context, customerID uuid.UUID) (*analyticsapp.RFMAnalysisResponse, error)
	GetSegmentOverview(ctx context.Context) (*analyticsapp.SegmentOverviewResponse, error)
}

// CLVAnalyzer is the CLV surface the analytics endpoints need
type CLVAnalyzer interface {
	GetCustomerCLVAnalysis(ctx context.Context, customerID uuid.UUID) (*analyticsapp.CLVAnalysisResponse, error)
	GetTopCustomersByCLV(ctx context.Context, limit int) ([]analyticsapp.TopCustomerResponse, error)
}

// ChurnAnalyzer is the churn surface the analytics endpoints need
type ChurnAnalyzer interface {
	GetCustomerChurnAnalysis(ctx context.Context, customerID uuid.UUID) (*analyticsapp.ChurnAnalysisResponse, error)
	GetHighRiskCustomers(ctx context.Context, limit int) ([]analyticsapp.HighRiskCustomerResponse, error)
}

// AnalyticsHandler handles customer analytics API endpoints
type AnalyticsHandler struct {
	BaseHandler
	rfm   RFMAnalyzer
	clv   CLVAnalyzer
	churn ChurnAnalyzer
}

// NewAnalyticsHandler creates a new AnalyticsHandler
func NewAnalyticsHandler(rfm RFMAnalyzer, clv CLVAnalyzer, churn ChurnAnalyzer) *AnalyticsHandler {
	return &AnalyticsHandler{rfm: rfm, clv: clv, churn: churn}
}

// RegisterRoutes registers the analytics routes
func (h *AnalyticsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/customers/:id/rfm", h.GetCustomerRFM)
	rg.GET("/customers/:id/clv", h.GetCustomerCLV)
	rg.GET("/customers/:id/churn", h.GetCustomerChurn)
	rg.GET("/analytics/segments/overview", h.GetSegmentOverview)
	rg.GET("/analytics/customers/top-clv", h.GetTopCustomersByCLV)
	rg.GET("/analytics/customers/high-churn-risk", h.GetHighRiskCustomers)
}

// GetCustomerRFM returns the customer's RFM scoring
func (h *AnalyticsHandler) GetCustomerRFM(c *gin.Context) {
	customerID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.rfm.GetCustomerRFMAnalysis(c.Request.Context(), customerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetCustomerCLV returns the customer's CLV prediction
func (h *AnalyticsHandler) GetCustomerCLV(c *gin.Context) {
	customerID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.clv.GetCustomerCLVAnalysis(c.Request.Context(), customerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetCustomerChurn returns the customer's churn risk
func (h *AnalyticsHandler) GetCustomerChurn(c *gin.Context) {
	customerID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.churn.GetCustomerChurnAnalysis(c.Request.Context(), customerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetSegmentOverview returns the RFM segment distribution
func (h *AnalyticsHandler) GetSegmentOverview(c *gin.Context) {
	resp, err := h.rfm.GetSegmentOverview(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetTopCustomersByCLV returns customers ranked by predicted CLV
func (h *AnalyticsHandler) GetTopCustomersByCLV(c *gin.Context) {
	limit := limitQuery(c, 10)

	ranking, err := h.clv.GetTopCustomersByCLV(c.Request.Context(), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, ranking, int64(len(ranking)), limit)
}

// GetHighRiskCustomers returns customers at high churn risk
func (h *AnalyticsHandler) GetHighRiskCustomers(c *gin.Context) {
	limit := limitQuery(c, 20)

	listing, err := h.churn.GetHighRiskCustomers(c.Request.Context(), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, listing, int64(len(listing)), limit)
}
