package handler

import (
	"context"
	"net/http"
	"testing"

	recommendationapp "github.com/erp/analytics/internal/application/recommendation"
	"github.com/erp/analytics/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type stubRecommender struct {
	list      *recommendationapp.RecommendationListResponse
	crossSell *recommendationapp.CrossSellResponse
	err       error

	lastLimit int
}

func (s *stubRecommender) GeneratePersonalizedRecommendations(_ context.Context, _ uuid.UUID, limit int) (*recommendationapp.RecommendationListResponse, error) {
	s.lastLimit = limit
	return s.list, s.err
}

func (s *stubRecommender) GetProductCrossSell(_ context.Context, _ uuid.UUID, limit int) (*recommendationapp.CrossSellResponse, error) {
	s.lastLimit = limit
	return s.crossSell, s.err
}

func recommendationRouter(recommender Recommender) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	api := engine.Group("/api/v1")
	NewRecommendationHandler(recommender).RegisterRoutes(api)
	return engine
}

func TestGetCustomerRecommendations(t *testing.T) {
	customerID := uuid.New()
	recommender := &stubRecommender{list: &recommendationapp.RecommendationListResponse{
		CustomerID: customerID,
		Recommendations: []recommendationapp.RecommendedProduct{
			{ProductID: uuid.New(), Score: 87.5},
		},
	}}
	router := recommendationRouter(recommender)

	w := performRequest(router, http.MethodGet, "/api/v1/customers/"+customerID.String()+"/recommendations")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeResponse(t, w).Success)
	assert.Equal(t, recommendationapp.DefaultLimit, recommender.lastLimit)
}

func TestGetCustomerRecommendations_LimitQuery(t *testing.T) {
	recommender := &stubRecommender{list: &recommendationapp.RecommendationListResponse{}}
	router := recommendationRouter(recommender)

	w := performRequest(router, http.MethodGet, "/api/v1/customers/"+uuid.NewString()+"/recommendations?limit=5")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, recommender.lastLimit)
}

func TestGetCustomerRecommendations_InvalidID(t *testing.T) {
	router := recommendationRouter(&stubRecommender{})

	w := performRequest(router, http.MethodGet, "/api/v1/customers/nope/recommendations")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetProductCrossSell_NotFound(t *testing.T) {
	recommender := &stubRecommender{err: shared.ErrNotFound}
	router := recommendationRouter(recommender)

	w := performRequest(router, http.MethodGet, "/api/v1/products/"+uuid.NewString()+"/cross-sell")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetProductCrossSell(t *testing.T) {
	productID := uuid.New()
	recommender := &stubRecommender{crossSell: &recommendationapp.CrossSellResponse{
		ProductID: productID,
		Products: []recommendationapp.CrossSellProduct{
			{ProductID: uuid.New(), AffinityScore: 50},
		},
	}}
	router := recommendationRouter(recommender)

	w := performRequest(router, http.MethodGet, "/api/v1/products/"+productID.String()+"/cross-sell")
	assert.Equal(t, http.StatusOK, w.Code)
}
