package analytics

import (
	"testing"
	"time"

	"github.com/erp/analytics/internal/domain/ledger"
	"github.com/erp/analytics/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// makeOrders builds completed transactions oldest first with the given
// amounts, spaced evenly between oldestAgo and newestAgo.
func makeOrders(amounts []float64, oldestAgo, newestAgo time.Duration, now time.Time) []ledger.Transaction {
	count := len(amounts)
	txs := make([]ledger.Transaction, count)
	for i, amt := range amounts {
		age := oldestAgo
		if count > 1 {
			step := (oldestAgo - newestAgo) / time.Duration(count-1)
			age = oldestAgo - step*time.Duration(i)
		}
		txs[i] = ledger.Transaction{
			BaseEntity:  shared.NewBaseEntity(),
			CustomerID:  uuid.New(),
			ProductID:   uuid.New(),
			Quantity:    1,
			UnitPrice:   decimal.NewFromFloat(amt),
			TotalAmount: decimal.NewFromFloat(amt),
			Status:      ledger.StatusCompleted,
			OccurredAt:  now.Add(-age),
		}
	}
	return txs
}

func TestCalculateCLV_NoTransactions(t *testing.T) {
	result := CalculateCLV(nil, time.Now())

	assert.True(t, result.Predicted.IsZero())
	assert.Equal(t, 0, result.Confidence)
}

func TestCalculateCLV_SteadyBuyer(t *testing.T) {
	// Four $100 orders over 90 days, latest 10 days ago:
	// avg 100, lifespan 3 months, frequency 4/3/mo,
	// basic CLV 100 * 4/3 * 24 = 3200.
	// Multiplier 1.0 + 0.30 (recency<=30) + 0.15 (freq>=1/mo) = 1.45.
	now := time.Now()
	txs := makeOrders([]float64{100, 100, 100, 100}, 100*24*time.Hour, 10*24*time.Hour, now)

	result := CalculateCLV(txs, now)

	predicted, _ := result.Predicted.Float64()
	assert.InDelta(t, 4640, predicted, 1.0)
	// 50 base + 5 (orders>=3) + 5 (lifespan>=3mo) + 10 (recency<=30)
	assert.Equal(t, 70, result.Confidence)
}

func TestCalculateCLV_SpendDeclineLowersMultiplier(t *testing.T) {
	// Trailing three orders average far below the earlier orders.
	now := time.Now()
	declining := makeOrders([]float64{200, 200, 200, 20, 20, 20}, 200*24*time.Hour, 10*24*time.Hour, now)
	steady := makeOrders([]float64{110, 110, 110, 110, 110, 110}, 200*24*time.Hour, 10*24*time.Hour, now)

	decliningResult := CalculateCLV(declining, now)
	steadyResult := CalculateCLV(steady, now)

	// Same cadence and identical average order value; only the decline
	// penalty separates the two predictions.
	assert.True(t, decliningResult.Predicted.LessThan(steadyResult.Predicted))
}

func TestCalculateCLV_ConfidenceClamped(t *testing.T) {
	now := time.Now()

	t.Run("upper bound", func(t *testing.T) {
		amounts := make([]float64, 15)
		for i := range amounts {
			amounts[i] = 80
		}
		txs := makeOrders(amounts, 400*24*time.Hour, 5*24*time.Hour, now)

		result := CalculateCLV(txs, now)
		// 50 + 25 + 15 + 10 = 100 exactly; never above.
		assert.Equal(t, 100, result.Confidence)
	})

	t.Run("stale history penalty", func(t *testing.T) {
		txs := makeOrders([]float64{60}, 300*24*time.Hour, 300*24*time.Hour, now)

		result := CalculateCLV(txs, now)
		// 50 base - 15 stale recency, no bonuses.
		assert.Equal(t, 35, result.Confidence)
		assert.GreaterOrEqual(t, result.Confidence, 0)
		assert.LessOrEqual(t, result.Confidence, 100)
	})
}

func TestCalculateCLV_FewOrdersNeverDecline(t *testing.T) {
	now := time.Now()
	txs := makeOrders([]float64{500, 10, 10}, 60*24*time.Hour, 5*24*time.Hour, now)

	// Three orders: no preceding history beyond the trailing window,
	// so the decline penalty cannot apply.
	assert.False(t, hasSpendDecline(txs))
}
