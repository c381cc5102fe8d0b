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

// makeTransactions builds completed transactions newest first, evenly
// spread between newestAgo and oldestAgo, with the total split evenly.
func makeTransactions(count int, total float64, newestAgo, oldestAgo time.Duration, now time.Time) []ledger.Transaction {
	txs := make([]ledger.Transaction, count)
	amount := decimal.NewFromFloat(total / float64(count))
	for i := 0; i < count; i++ {
		age := newestAgo
		if count > 1 {
			step := (oldestAgo - newestAgo) / time.Duration(count-1)
			age = newestAgo + step*time.Duration(i)
		}
		txs[i] = ledger.Transaction{
			BaseEntity:  shared.NewBaseEntity(),
			CustomerID:  uuid.New(),
			ProductID:   uuid.New(),
			Quantity:    1,
			UnitPrice:   amount,
			TotalAmount: amount,
			Status:      ledger.StatusCompleted,
			OccurredAt:  now.Add(-age),
		}
	}
	return txs
}

func TestCalculateRFM_NoTransactions(t *testing.T) {
	result := CalculateRFM(nil, time.Now())

	assert.Equal(t, SentinelRecencyDays, result.RecencyDays)
	assert.Equal(t, 1, result.RecencyScore)
	assert.Equal(t, 1, result.FrequencyScore)
	assert.Equal(t, 1, result.MonetaryScore)
	assert.Equal(t, 3, result.Score)
	assert.Equal(t, SegmentLost, result.Segment)
}

func TestCalculateRFM_ChampionsScenario(t *testing.T) {
	// 25 completed transactions totaling $12,000 over 10 months,
	// latest 5 days ago.
	now := time.Now()
	txs := makeTransactions(25, 12000, 5*24*time.Hour, 300*24*time.Hour, now)

	result := CalculateRFM(txs, now)

	assert.Equal(t, 5, result.RecencyScore)
	assert.Equal(t, 5, result.FrequencyScore)
	assert.Equal(t, 5, result.MonetaryScore)
	assert.Equal(t, 15, result.Score)
	assert.Equal(t, SegmentChampions, result.Segment)
}

func TestCalculateRFM_SingleOldOrderIsLost(t *testing.T) {
	// Exactly one $50 transaction, 200 days ago.
	now := time.Now()
	txs := makeTransactions(1, 50, 200*24*time.Hour, 200*24*time.Hour, now)

	result := CalculateRFM(txs, now)

	assert.Equal(t, 1, result.RecencyScore)
	assert.Equal(t, 1, result.FrequencyScore)
	assert.Equal(t, 1, result.MonetaryScore)
	assert.Equal(t, 3, result.Score)
	assert.Equal(t, SegmentLost, result.Segment)
}

func TestCalculateRFM_ScoreBounds(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name string
		txs  []ledger.Transaction
	}{
		{"empty", nil},
		{"one recent", makeTransactions(1, 10, 24*time.Hour, 24*time.Hour, now)},
		{"heavy", makeTransactions(40, 50000, 24*time.Hour, 700*24*time.Hour, now)},
		{"stale mid", makeTransactions(6, 2500, 120*24*time.Hour, 400*24*time.Hour, now)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := CalculateRFM(tc.txs, now)
			assert.GreaterOrEqual(t, result.Score, 3)
			assert.LessOrEqual(t, result.Score, 15)
			for _, score := range []int{result.RecencyScore, result.FrequencyScore, result.MonetaryScore} {
				assert.GreaterOrEqual(t, score, 1)
				assert.LessOrEqual(t, score, 5)
			}
		})
	}
}

func TestCalculateRFM_Idempotent(t *testing.T) {
	now := time.Now()
	txs := makeTransactions(8, 3000, 10*24*time.Hour, 200*24*time.Hour, now)

	first := CalculateRFM(txs, now)
	second := CalculateRFM(txs, now)

	assert.Equal(t, first, second)
}

func TestClassifySegment_Rules(t *testing.T) {
	cases := []struct {
		name     string
		r, f, m  int
		expected Segment
	}{
		{"champions needs all high", 5, 4, 4, SegmentChampions},
		{"loyal on total 10 with f and m", 4, 3, 3, SegmentLoyal},
		{"at risk when recency slipped", 2, 3, 3, SegmentAtRisk},
		{"lost on low total", 2, 2, 2, SegmentLost},
		{"at risk wins over lost for lapsed big spender", 1, 4, 4, SegmentAtRisk},
		{"lost on recency one", 1, 2, 4, SegmentLost},
		{"potential otherwise", 3, 3, 2, SegmentPotential},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := RFMResult{
				RecencyScore:   tc.r,
				FrequencyScore: tc.f,
				MonetaryScore:  tc.m,
				Score:          tc.r + tc.f + tc.m,
			}
			assert.Equal(t, tc.expected, classifySegment(result))
		})
	}
}
