package model

import "time"

// Level is an ordinal risk level used for both the impact and likelihood
// axes and for the declared severity tier.
type Level string

const (
	LevelLow      Level = "Low"
	LevelMedium   Level = "Medium"
	LevelHigh     Level = "High"
	LevelCritical Level = "Critical"
)

// Value maps a level to its ordinal 1-4. Unrecognized levels map to 1,
// matching the permissive lookup the legacy risk reports used.
func (l Level) Value() int {
	switch l {
	case LevelLow:
		return 1
	case LevelMedium:
		return 2
	case LevelHigh:
		return 3
	case LevelCritical:
		return 4
	default:
		return 1
	}
}

// SortRank orders levels for display: Critical first, unknown last.
func (l Level) SortRank() int {
	switch l {
	case LevelCritical:
		return 1
	case LevelHigh:
		return 2
	case LevelMedium:
		return 3
	case LevelLow:
		return 4
	default:
		return 5
	}
}

// Known reports whether l is one of the four defined levels.
func (l Level) Known() bool {
	switch l {
	case LevelLow, LevelMedium, LevelHigh, LevelCritical:
		return true
	}
	return false
}

// RiskAssessment is one scored risk-matrix evaluation. Score is computed
// from the impact/likelihood ordinals; Tier is the independently declared
// severity and is authoritative for reporting. The two can disagree and are
// stored separately on purpose.
type RiskAssessment struct {
	ID         string    `json:"id"`
	SubjectID  int64     `json:"subject_id"`
	Category   string    `json:"category,omitempty"`
	Title      string    `json:"title,omitempty"`
	Impact     Level     `json:"impact"`
	Likelihood Level     `json:"likelihood"`
	Score      int       `json:"score"`
	Tier       Level     `json:"tier"`
	Notes      string    `json:"notes,omitempty"`
	AssessedAt time.Time `json:"assessed_at"`
}
