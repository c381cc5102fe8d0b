package handler

import (
	"context"

	recommendationapp "github.com/erp/analytics/internal/application/recommendation"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Recommender is the recommendation surface the endpoints need
type Recommender interface {
	GeneratePersonalizedRecommendations(ctx context.Context, customerID uuid.UUID, limit int) (*recommendationapp.RecommendationListResponse, error)
	GetProductCrossSell(ctx context.Context, productID uuid.UUID, limit int) (*recommendationapp.CrossSellResponse, error)
}

// RecommendationHandler handles recommendation API endpoints
type RecommendationHandler struct {
	BaseHandler
	recommender Recommender
}

// NewRecommendationHandler creates a new RecommendationHandler
func NewRecommendationHandler(recommender Recommender) *RecommendationHandler {
	return &RecommendationHandler{recommender: recommender}
}

// RegisterRoutes registers the recommendation routes
func (h *RecommendationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/customers/:id/recommendations", h.GetCustomerRecommendations)
	rg.GET("/products/:id/cross-sell", h.GetProductCrossSell)
}

// GetCustomerRecommendations returns the customer's personalized list
func (h *RecommendationHandler) GetCustomerRecommendations(c *gin.Context) {
	customerID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	limit := limitQuery(c, recommendationapp.DefaultLimit)

	resp, err := h.recommender.GeneratePersonalizedRecommendations(c.Request.Context(), customerID, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetProductCrossSell returns cross-sell products for a product
func (h *RecommendationHandler) GetProductCrossSell(c *gin.Context) {
	productID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	limit := limitQuery(c, recommendationapp.DefaultLimit)

	resp, err := h.recommender.GetProductCrossSell(c.Request.Context(), productID, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
