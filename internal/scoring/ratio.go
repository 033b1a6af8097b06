// Package scoring implements the compliance scoring pipeline: ratio
// aggregation, bonus adjustment, grade classification, and the weighted
// composite score calculator.
package scoring

import (
	"go.uber.org/zap"

	"github.com/greenfact/esg-cli/internal/model"
)

// Normalize methods selectable via config. Pooled is the default and the
// verified behavior of every composite-score call site in the suite.
const (
	NormalizePooled     = "ratio_answered_to_total"
	NormalizePercentage = "percentage_based"
	NormalizeWeighted   = "weighted_average"
)

// Ratio returns answered/total clamped to [0,1]. It never fails: a
// non-positive total yields 0.0, and answered > total (data-entry
// inconsistency) clamps at 1.0.
func Ratio(answered, total int) float64 {
	if total <= 0 {
		return 0.0
	}
	r := float64(answered) / float64(total)
	if r < 0 {
		return 0.0
	}
	if r > 1 {
		return 1.0
	}
	return r
}

// PooledRatio sums answered and total across all sources before dividing,
// so a high-volume source weighs more than a small one. This is a pooled
// ratio, not an average of per-source ratios.
func PooledRatio(counts []model.IndicatorCount) float64 {
	var answered, total int
	for _, c := range counts {
		answered += c.Answered
		total += c.Total
	}
	return Ratio(answered, total)
}

// percentageRatio is the unweighted mean of per-source ratios. Sources with
// zero total are skipped rather than dragging the mean to zero.
func percentageRatio(counts []model.IndicatorCount) float64 {
	var sum float64
	var n int
	for _, c := range counts {
		if c.Total <= 0 {
			continue
		}
		sum += Ratio(c.Answered, c.Total)
		n++
	}
	if n == 0 {
		return 0.0
	}
	return sum / float64(n)
}

// weightedRatio averages per-source ratios by each source's declared
// weight. A source without a weight counts as 1.0.
func weightedRatio(counts []model.IndicatorCount) float64 {
	var weightSum, weighted float64
	for _, c := range counts {
		if c.Total <= 0 {
			continue
		}
		w := c.Weight
		if w <= 0 {
			w = 1.0
		}
		weighted += Ratio(c.Answered, c.Total) * w
		weightSum += w
	}
	if weightSum == 0 {
		return 0.0
	}
	return weighted / weightSum
}

// AggregateRatio combines multi-source counts for one category according to
// the configured normalize method. Unknown methods fall back to pooled with
// a warning rather than failing the computation.
func AggregateRatio(method string, counts []model.IndicatorCount) float64 {
	switch method {
	case NormalizePooled, "":
		return PooledRatio(counts)
	case NormalizePercentage:
		return percentageRatio(counts)
	case NormalizeWeighted:
		return weightedRatio(counts)
	default:
		zap.L().Warn("scoring: unknown normalize method, using pooled ratio",
			zap.String("method", method),
		)
		return PooledRatio(counts)
	}
}
