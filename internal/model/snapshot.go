// Package model defines the domain types shared across the scoring engine:
// indicator counts, score snapshots, risk assessments, and benchmark data.
package model

import "time"

// IndicatorCount holds aggregate answered/total counts for one category from
// a single framework source (e.g. the GRI Environmental indicators). Counts
// are produced fresh per computation from the external response store and
// are never persisted here.
type IndicatorCount struct {
	Source   string  `json:"source" yaml:"source"`
	Category string  `json:"category" yaml:"category"`
	Total    int     `json:"total" yaml:"total"`
	Answered int     `json:"answered" yaml:"answered"`
	Weight   float64 `json:"weight,omitempty" yaml:"weight,omitempty"`
}

// CategoryDetail records how one category's score was derived.
type CategoryDetail struct {
	Answered          int     `json:"answered"`
	Total             int     `json:"total"`
	Ratio             float64 `json:"ratio"`
	Bonus             float64 `json:"bonus"`
	Weight            float64 `json:"weight"`
	BelowCompleteness bool    `json:"below_completeness,omitempty"`
}

// ScoreDetails carries the full derivation of a snapshot for transparency
// and later audit. Stored as JSON alongside the snapshot.
type ScoreDetails struct {
	Categories     map[string]CategoryDetail `json:"categories"`
	WeightSum      float64                   `json:"weight_sum"`
	AppliedSignals []string                  `json:"applied_signals,omitempty"`
	CompletionRate float64                   `json:"completion_rate"`
}

// ScoreSnapshot is one completed scoring run for a company and period.
// Snapshots are immutable: a recomputation replaces the row for the same
// (company_id, period) key, it never mutates in place.
type ScoreSnapshot struct {
	ID             string             `json:"id"`
	CompanyID      int64              `json:"company_id"`
	Period         string             `json:"period"`
	Year           int                `json:"year"`
	Quarter        int                `json:"quarter,omitempty"`
	CategoryScores map[string]float64 `json:"category_scores"`
	OverallScore   float64            `json:"overall_score"`
	Grade          string             `json:"grade"`
	Details        *ScoreDetails      `json:"details,omitempty"`
	ComputedAt     time.Time          `json:"computed_at"`
}
