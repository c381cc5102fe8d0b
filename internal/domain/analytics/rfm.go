package analytics

import (
	"time"

	"github.com/erp/analytics/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// RFMResult is the output of one RFM calculation. Each sub-score is in
// [1,5], so the combined score is always in [3,15].
type RFMResult struct {
	RecencyDays    int
	RecencyScore   int
	Frequency      int
	FrequencyScore int
	Monetary       decimal.Decimal
	MonetaryScore  int
	Score          int
	Segment        Segment
	CalculatedAt   time.Time
}

// CalculateRFM scores a customer from their completed transactions,
// ordered newest first. A customer with no transactions gets the
// sentinel result: recency 9999 days, every sub-score 1, segment Lost.
func CalculateRFM(transactions []ledger.Transaction, now time.Time) RFMResult {
	if len(transactions) == 0 {
		return RFMResult{
			RecencyDays:    SentinelRecencyDays,
			RecencyScore:   1,
			Frequency:      0,
			FrequencyScore: 1,
			Monetary:       decimal.Zero,
			MonetaryScore:  1,
			Score:          3,
			Segment:        SegmentLost,
			CalculatedAt:   now,
		}
	}

	recencyDays := int(now.Sub(transactions[0].OccurredAt).Hours() / 24)
	if recencyDays < 0 {
		recencyDays = 0
	}

	monetary := decimal.Zero
	for _, tx := range transactions {
		monetary = monetary.Add(tx.TotalAmount)
	}

	result := RFMResult{
		RecencyDays:    recencyDays,
		RecencyScore:   scoreRecency(recencyDays),
		Frequency:      len(transactions),
		FrequencyScore: scoreFrequency(len(transactions)),
		Monetary:       monetary,
		MonetaryScore:  scoreMonetary(monetary),
		CalculatedAt:   now,
	}
	result.Score = result.RecencyScore + result.FrequencyScore + result.MonetaryScore
	result.Segment = classifySegment(result)
	return result
}

func scoreRecency(days int) int {
	switch {
	case days <= 30:
		return 5
	case days <= 60:
		return 4
	case days <= 90:
		return 3
	case days <= 180:
		return 2
	default:
		return 1
	}
}

func scoreFrequency(count int) int {
	switch {
	case count >= 20:
		return 5
	case count >= 10:
		return 4
	case count >= 5:
		return 3
	case count >= 2:
		return 2
	default:
		return 1
	}
}

func scoreMonetary(total decimal.Decimal) int {
	switch {
	case total.GreaterThanOrEqual(decimal.NewFromInt(10000)):
		return 5
	case total.GreaterThanOrEqual(decimal.NewFromInt(5000)):
		return 4
	case total.GreaterThanOrEqual(decimal.NewFromInt(2000)):
		return 3
	case total.GreaterThanOrEqual(decimal.NewFromInt(500)):
		return 2
	default:
		return 1
	}
}

// classifySegment applies the segment rules in priority order; the
// first matching rule wins.
func classifySegment(r RFMResult) Segment {
	switch {
	case r.Score >= 13 && r.RecencyScore >= 4 && r.FrequencyScore >= 4 && r.MonetaryScore >= 4:
		return SegmentChampions
	case r.Score >= 10 && r.FrequencyScore >= 3 && r.MonetaryScore >= 3:
		return SegmentLoyal
	case r.Score >= 8 && r.RecencyScore <= 2 && (r.FrequencyScore >= 3 || r.MonetaryScore >= 3):
		return SegmentAtRisk
	case r.Score <= 7 || r.RecencyScore == 1:
		return SegmentLost
	default:
		return SegmentPotential
	}
}
