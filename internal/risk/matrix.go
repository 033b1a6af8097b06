// Package risk implements the 4x4 impact/likelihood risk matrix used by the
// framework risk reports.
package risk

import (
	"sort"
	"time"

	"github.com/greenfact/esg-cli/internal/model"
)

// Score multiplies the impact and likelihood ordinals (Low=1 .. Critical=4).
// With four levels per axis the product ranges 1-16. The legacy report
// docstring advertised a 1-25 range, which the four-level table can never
// reach; the 1-16 behavior is the verified one and is kept as-is rather
// than inventing a fifth level.
func Score(impact, likelihood model.Level) int {
	return impact.Value() * likelihood.Value()
}

// Assess builds a RiskAssessment from the declared fields. The numeric
// score is computed from the ordinals, but the tier is the caller's
// declared severity, taken verbatim: tier and score are independent fields
// and may disagree, matching how assessments were recorded historically.
func Assess(subjectID int64, category, title string, impact, likelihood, declaredTier model.Level, notes string) model.RiskAssessment {
	return model.RiskAssessment{
		SubjectID:  subjectID,
		Category:   category,
		Title:      title,
		Impact:     impact,
		Likelihood: likelihood,
		Score:      Score(impact, likelihood),
		Tier:       declaredTier,
		Notes:      notes,
		AssessedAt: time.Now().UTC(),
	}
}

// SortAssessments orders assessments for display: Critical tier first, then
// High, Medium, Low, with unrecognized tiers last. Within a tier, higher
// numeric scores come first; remaining ties keep input order (stable).
func SortAssessments(assessments []model.RiskAssessment) {
	sort.SliceStable(assessments, func(i, j int) bool {
		ri, rj := assessments[i].Tier.SortRank(), assessments[j].Tier.SortRank()
		if ri != rj {
			return ri < rj
		}
		return assessments[i].Score > assessments[j].Score
	})
}

// Summary aggregates assessment counts per tier and per category.
type Summary struct {
	Total      int                      `json:"total"`
	ByTier     map[model.Level]int      `json:"by_tier"`
	ByCategory map[string]map[model.Level]int `json:"by_category"`
}

// Summarize counts assessments by tier and category for report headers.
func Summarize(assessments []model.RiskAssessment) Summary {
	s := Summary{
		Total:      len(assessments),
		ByTier:     make(map[model.Level]int),
		ByCategory: make(map[string]map[model.Level]int),
	}
	for _, a := range assessments {
		s.ByTier[a.Tier]++
		if a.Category != "" {
			if s.ByCategory[a.Category] == nil {
				s.ByCategory[a.Category] = make(map[model.Level]int)
			}
			s.ByCategory[a.Category][a.Tier]++
		}
	}
	return s
}
