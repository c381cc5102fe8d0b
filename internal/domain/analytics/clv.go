package analytics

import (
	"time"

	"github.com/erp/analytics/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// clvHorizonMonths is the fixed prediction horizon
const clvHorizonMonths = 24

// CLVResult is the output of one CLV prediction. Confidence is clamped
// to [0,100].
type CLVResult struct {
	Predicted    decimal.Decimal
	Confidence   int
	CalculatedAt time.Time
}

// CalculateCLV predicts forward revenue from completed transactions
// ordered oldest first. A customer with no transactions predicts zero
// with zero confidence.
func CalculateCLV(transactions []ledger.Transaction, now time.Time) CLVResult {
	if len(transactions) == 0 {
		return CLVResult{
			Predicted:    decimal.Zero,
			Confidence:   0,
			CalculatedAt: now,
		}
	}

	orderCount := len(transactions)
	totalSpent := decimal.Zero
	for _, tx := range transactions {
		totalSpent = totalSpent.Add(tx.TotalAmount)
	}

	first := transactions[0].OccurredAt
	last := transactions[orderCount-1].OccurredAt
	lifespanMonths := last.Sub(first).Hours() / 24 / 30
	if lifespanMonths < 1 {
		lifespanMonths = 1
	}

	avgOrderValue, _ := totalSpent.Div(decimal.NewFromInt(int64(orderCount))).Float64()
	purchaseFrequency := float64(orderCount) / lifespanMonths
	basicCLV := avgOrderValue * purchaseFrequency * clvHorizonMonths

	recencyDays := now.Sub(last).Hours() / 24
	multiplier := clvMultiplier(transactions, recencyDays, purchaseFrequency)

	return CLVResult{
		Predicted:    decimal.NewFromFloat(basicCLV * multiplier).Round(2),
		Confidence:   clvConfidence(orderCount, lifespanMonths, recencyDays),
		CalculatedAt: now,
	}
}

// clvMultiplier adjusts the base projection for engagement signals.
// The result is clamped to [0.5, 2.0].
func clvMultiplier(transactions []ledger.Transaction, recencyDays, purchaseFrequency float64) float64 {
	multiplier := 1.0

	switch {
	case recencyDays <= 30:
		multiplier += 0.30
	case recencyDays <= 60:
		multiplier += 0.15
	}

	switch {
	case purchaseFrequency >= 2:
		multiplier += 0.25
	case purchaseFrequency >= 1:
		multiplier += 0.15
	}

	if hasSpendDecline(transactions) {
		multiplier -= 0.20
	}

	if multiplier < 0.5 {
		multiplier = 0.5
	}
	if multiplier > 2.0 {
		multiplier = 2.0
	}
	return multiplier
}

// hasSpendDecline reports whether the trailing three orders average
// less than 70% of the preceding orders. Requires history older than
// the trailing window, so fewer than four orders never declines.
func hasSpendDecline(transactions []ledger.Transaction) bool {
	n := len(transactions)
	if n < 4 {
		return false
	}

	trailing := transactions[n-3:]
	preceding := transactions[:n-3]

	trailingAvg := averageAmount(trailing)
	precedingAvg := averageAmount(preceding)
	if precedingAvg.IsZero() {
		return false
	}

	threshold := precedingAvg.Mul(decimal.NewFromFloat(0.7))
	return trailingAvg.LessThan(threshold)
}

func averageAmount(transactions []ledger.Transaction) decimal.Decimal {
	if len(transactions) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, tx := range transactions {
		sum = sum.Add(tx.TotalAmount)
	}
	return sum.Div(decimal.NewFromInt(int64(len(transactions))))
}

// clvConfidence scores how much history backs the prediction
func clvConfidence(orderCount int, lifespanMonths, recencyDays float64) int {
	confidence := 50

	switch {
	case orderCount >= 10:
		confidence += 25
	case orderCount >= 5:
		confidence += 15
	case orderCount >= 3:
		confidence += 5
	}

	switch {
	case lifespanMonths >= 12:
		confidence += 15
	case lifespanMonths >= 6:
		confidence += 10
	case lifespanMonths >= 3:
		confidence += 5
	}

	switch {
	case recencyDays <= 30:
		confidence += 10
	case recencyDays <= 60:
		confidence += 5
	case recencyDays > 180:
		confidence -= 15
	}

	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}
	return confidence
}
