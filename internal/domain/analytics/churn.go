package analytics

import (
	"fmt"
	"time"

	"github.com/erp/analytics/internal/domain/ledger"
	"github.com/erp/analytics/internal/domain/partner"
	"github.com/shopspring/decimal"
)

// ChurnInput carries everything the churn scorer reads: completed
// transactions newest first, the failed-transaction count in the last
// 90 days, and the customer's current loyalty tier.
type ChurnInput struct {
	Transactions []ledger.Transaction
	FailedLast90 int64
	LoyaltyLevel partner.CustomerLevel
}

// ChurnResult is the output of one churn risk calculation. The score
// is additive across independent rules and capped at 100.
type ChurnResult struct {
	Score                int
	Level                ChurnLevel
	Indicators           []ChurnIndicator
	PreventionStrategies []string
	CalculatedAt         time.Time
}

// CalculateChurn scores disengagement risk. A customer with no
// purchase history is maximally at risk: score 100, level critical.
func CalculateChurn(input ChurnInput, now time.Time) ChurnResult {
	if len(input.Transactions) == 0 {
		return ChurnResult{
			Score: 100,
			Level: ChurnCritical,
			Indicators: []ChurnIndicator{
				{Code: "no_purchase_history", Detail: "customer has never completed a purchase", Weight: 100},
			},
			PreventionStrategies: []string{"activation_campaign"},
			CalculatedAt:         now,
		}
	}

	score := 0
	var indicators []ChurnIndicator
	var strategies []string

	add := func(delta int, code, detail, strategy string) {
		score += delta
		indicators = append(indicators, ChurnIndicator{Code: code, Detail: detail, Weight: delta})
		strategies = append(strategies, strategy)
	}

	// Recency: only the highest matching bucket contributes.
	recencyDays := int(now.Sub(input.Transactions[0].OccurredAt).Hours() / 24)
	switch {
	case recencyDays > 180:
		add(40, "inactive_180_days", fmt.Sprintf("no purchase in %d days", recencyDays), "win_back_campaign")
	case recencyDays > 90:
		add(30, "inactive_90_days", fmt.Sprintf("no purchase in %d days", recencyDays), "re_engagement_offer")
	case recencyDays > 60:
		add(15, "inactive_60_days", fmt.Sprintf("no purchase in %d days", recencyDays), "gentle_reminder")
	}

	// Frequency and spend decline compare equal index-based halves of
	// the history (newer half vs older half), not calendar windows.
	if n := len(input.Transactions); n >= 4 {
		newer := input.Transactions[:n/2]
		older := input.Transactions[n/2:]

		newerFreq := ordersPerMonth(newer)
		olderFreq := ordersPerMonth(older)
		if olderFreq > 0 {
			switch {
			case newerFreq < 0.5*olderFreq:
				add(25, "order_frequency_drop", "purchase frequency fell below half of earlier rate", "loyalty_incentive")
			case newerFreq < 0.7*olderFreq:
				add(15, "order_frequency_drop", "purchase frequency fell below 70% of earlier rate", "loyalty_incentive")
			}
		}

		newerAvg := averageAmount(newer)
		olderAvg := averageAmount(older)
		if olderAvg.IsPositive() {
			switch {
			case newerAvg.LessThan(olderAvg.Mul(decimal.NewFromFloat(0.6))):
				add(20, "spend_drop", "average order value fell below 60% of earlier spend", "personalized_discount")
			case newerAvg.LessThan(olderAvg.Mul(decimal.NewFromFloat(0.8))):
				add(10, "spend_drop", "average order value fell below 80% of earlier spend", "personalized_discount")
			}
		}
	}

	switch {
	case input.FailedLast90 >= 3:
		add(15, "failed_transactions", fmt.Sprintf("%d failed transactions in last 90 days", input.FailedLast90), "payment_support")
	case input.FailedLast90 >= 1:
		add(5, "failed_transactions", fmt.Sprintf("%d failed transaction(s) in last 90 days", input.FailedLast90), "payment_support")
	}

	if len(input.Transactions) >= 3 {
		lastOrder := input.Transactions[0].TotalAmount
		allTimeAvg := averageAmount(input.Transactions)
		if lastOrder.LessThan(allTimeAvg.Mul(decimal.NewFromFloat(0.5))) {
			add(10, "low_last_order_value", "last order under half of the customer's average", "upsell_bundle")
		}
	}

	if input.LoyaltyLevel.IsLowest() {
		add(10, "low_loyalty_tier", "customer at lowest or no loyalty tier", "tier_upgrade_push")
	}

	if score > 100 {
		score = 100
	}

	return ChurnResult{
		Score:                score,
		Level:                classifyChurnLevel(score),
		Indicators:           indicators,
		PreventionStrategies: dedupe(strategies),
		CalculatedAt:         now,
	}
}

// ordersPerMonth measures purchase frequency within a slice of
// transactions as count over the slice's own time span.
func ordersPerMonth(transactions []ledger.Transaction) float64 {
	if len(transactions) == 0 {
		return 0
	}
	newest := transactions[0].OccurredAt
	oldest := transactions[len(transactions)-1].OccurredAt
	months := newest.Sub(oldest).Hours() / 24 / 30
	if months < 1 {
		months = 1
	}
	return float64(len(transactions)) / months
}

func classifyChurnLevel(score int) ChurnLevel {
	switch {
	case score >= 70:
		return ChurnCritical
	case score >= 50:
		return ChurnHigh
	case score >= 30:
		return ChurnMedium
	default:
		return ChurnLow
	}
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
