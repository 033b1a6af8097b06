// Package benchmark compares computed scores against sector references and
// produces gap-prioritized recommendations.
package benchmark

import (
	"fmt"
	"math"
	"sort"

	"github.com/greenfact/esg-cli/internal/model"
)

// fallbackCategoryBenchmark is used when the reference has no entry for a
// category the company scored.
const fallbackCategoryBenchmark = 60.0

// Performance levels by overall delta.
const (
	PerfIndustryLeader = "Industry Leader"
	PerfAboveAverage   = "Above Average"
	PerfAverage        = "Average"
	PerfBelowAverage   = "Below Average"
)

// Priority labels for recommendations.
const (
	PriorityHigh   = "High"
	PriorityMedium = "Medium"
	PriorityLow    = "Low"
)

// Compare measures a snapshot against a sector reference: overall and
// per-category deltas, a performance level, and recommendations for every
// category scoring below its benchmark.
func Compare(snapshot *model.ScoreSnapshot, ref *model.BenchmarkReference) *model.Comparison {
	cmp := &model.Comparison{
		CompanyID:        snapshot.CompanyID,
		Sector:           ref.Sector,
		Period:           snapshot.Period,
		CompanyOverall:   snapshot.OverallScore,
		BenchmarkOverall: ref.Overall,
		OverallDelta:     snapshot.OverallScore - ref.Overall,
		Categories:       make(map[string]model.CategoryComparison, len(snapshot.CategoryScores)),
	}
	cmp.PerformanceLevel = classifyPerformance(cmp.OverallDelta)

	for category, score := range snapshot.CategoryScores {
		benchScore, ok := ref.Categories[category]
		if !ok {
			benchScore = fallbackCategoryBenchmark
		}
		delta := score - benchScore
		cmp.Categories[category] = model.CategoryComparison{
			CompanyScore:   score,
			BenchmarkScore: benchScore,
			Delta:          delta,
			Position:       position(delta),
		}
	}

	cmp.Recommendations = Recommend(cmp.Categories)
	return cmp
}

func classifyPerformance(delta float64) string {
	switch {
	case delta > 10:
		return PerfIndustryLeader
	case delta > 0:
		return PerfAboveAverage
	case delta > -10:
		return PerfAverage
	default:
		return PerfBelowAverage
	}
}

func position(delta float64) string {
	switch {
	case delta > 0:
		return "Above"
	case delta < 0:
		return "Below"
	default:
		return "At"
	}
}

// Recommend produces one entry per category scoring below its benchmark,
// prioritized by gap size (High > 15, Medium > 5, else Low) and sorted by
// descending gap. Ties break on category name so output is deterministic.
func Recommend(categories map[string]model.CategoryComparison) []model.Recommendation {
	var recs []model.Recommendation
	for category, c := range categories {
		if c.Delta >= 0 {
			continue
		}
		gap := math.Abs(c.Delta)
		recs = append(recs, model.Recommendation{
			Category: category,
			Gap:      gap,
			Priority: priorityFor(gap),
			Advice:   fmt.Sprintf("Focus on improving %s practices. Current gap: %.1f%%", category, gap),
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Gap != recs[j].Gap {
			return recs[i].Gap > recs[j].Gap
		}
		return recs[i].Category < recs[j].Category
	})
	return recs
}

func priorityFor(gap float64) string {
	switch {
	case gap > 15:
		return PriorityHigh
	case gap > 5:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Progress positions a company's earliest and latest snapshots against a
// sector reference for trend reporting.
type Progress struct {
	Period           string  `json:"period"`
	StartScore       float64 `json:"start_score"`
	EndScore         float64 `json:"end_score"`
	Improvement      float64 `json:"improvement"`
	StartVsBenchmark float64 `json:"start_vs_benchmark"`
	EndVsBenchmark   float64 `json:"end_vs_benchmark"`
	Position         string  `json:"position"` // Above or Below the benchmark at the end
}

// TrackProgress reads history (most-recent first, as the store returns it)
// and compares the span endpoints against the reference. Returns nil when
// fewer than two snapshots exist.
func TrackProgress(history []model.ScoreSnapshot, ref *model.BenchmarkReference) *Progress {
	if len(history) < 2 {
		return nil
	}
	latest := history[0]
	earliest := history[len(history)-1]

	pos := "Below"
	if latest.OverallScore > ref.Overall {
		pos = "Above"
	}
	return &Progress{
		Period:           fmt.Sprintf("%s to %s", earliest.Period, latest.Period),
		StartScore:       earliest.OverallScore,
		EndScore:         latest.OverallScore,
		Improvement:      latest.OverallScore - earliest.OverallScore,
		StartVsBenchmark: earliest.OverallScore - ref.Overall,
		EndVsBenchmark:   latest.OverallScore - ref.Overall,
		Position:         pos,
	}
}
