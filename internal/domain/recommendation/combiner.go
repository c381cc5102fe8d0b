package recommendation

import (
	"math"
	"sort"

	"github.com/google/uuid"
)

// Source weights for the hybrid combiner
const (
	WeightAffinity      = 0.4
	WeightCollaborative = 0.3
	WeightSegment       = 0.3
)

// Candidate is one scored product from a single sub-algorithm
type Candidate struct {
	ProductID uuid.UUID
	Score     float64
	Reason    string
}

// SourceList is the ranked output of one sub-algorithm
type SourceList struct {
	Type       RecommendationType
	Weight     float64
	Candidates []Candidate
}

// Combined is one merged candidate after weighting
type Combined struct {
	ProductID uuid.UUID
	Score     float64
	Types     []RecommendationType
	Reasons   []string
}

// Combine merges the sub-algorithm lists into a single ranking.
// Within each source, raw scores are min-max normalized to [0,1]
// (1 when all scores are equal); a candidate's merged value is the
// sum of normalized×weight over the sources that proposed it. The
// displayed score is the merged value ×100, rounded to 2 decimals.
// Adding a source with positive weight can only raise a product's
// merged value, so products proposed by more sources never rank below
// the same product proposed by fewer.
func Combine(sources []SourceList, limit int) []Combined {
	merged := make(map[uuid.UUID]*Combined)
	var order []uuid.UUID

	for _, source := range sources {
		if len(source.Candidates) == 0 {
			continue
		}

		minScore, maxScore := source.Candidates[0].Score, source.Candidates[0].Score
		for _, c := range source.Candidates {
			if c.Score < minScore {
				minScore = c.Score
			}
			if c.Score > maxScore {
				maxScore = c.Score
			}
		}

		for _, c := range source.Candidates {
			normalized := 1.0
			if maxScore > minScore {
				normalized = (c.Score - minScore) / (maxScore - minScore)
			}

			entry, ok := merged[c.ProductID]
			if !ok {
				entry = &Combined{ProductID: c.ProductID}
				merged[c.ProductID] = entry
				order = append(order, c.ProductID)
			}
			entry.Score += normalized * source.Weight
			entry.Types = append(entry.Types, source.Type)
			if c.Reason != "" {
				entry.Reasons = appendUnique(entry.Reasons, c.Reason)
			}
		}
	}

	results := make([]Combined, 0, len(merged))
	for _, id := range order {
		entry := merged[id]
		entry.Score = math.Round(entry.Score*100*100) / 100
		results = append(results, *entry)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}
