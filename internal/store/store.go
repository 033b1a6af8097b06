// Package store persists score snapshots, risk assessments, weighting
// schemes, and sector benchmarks behind a driver-agnostic interface.
package store

import (
	"context"

	"github.com/greenfact/esg-cli/internal/model"
)

// StandardScheme is the template weighting scheme every company starts on.
const StandardScheme = "Standard"

// Store is the persistence interface for the scoring engine. Storage
// failures propagate as errors; absent data reads as empty values, never as
// an error.
type Store interface {
	// Snapshots. SaveSnapshot upserts by (company_id, period): recomputing
	// a period replaces its snapshot, it never duplicates the key.
	SaveSnapshot(ctx context.Context, snapshot *model.ScoreSnapshot) error
	// History returns all snapshots for a company, most recent period
	// first. Empty history is an empty slice, not an error.
	History(ctx context.Context, companyID int64) ([]model.ScoreSnapshot, error)
	// Latest returns the most recent snapshot, or nil when none exists.
	Latest(ctx context.Context, companyID int64) (*model.ScoreSnapshot, error)

	// Risk assessments.
	SaveRiskAssessment(ctx context.Context, assessment *model.RiskAssessment) error
	// ListRiskAssessments returns assessments for a subject (or all when
	// subjectID is 0), ordered Critical tier first, then by score.
	ListRiskAssessments(ctx context.Context, subjectID int64) ([]model.RiskAssessment, error)

	// Weighting schemes.
	TemplateWeights(ctx context.Context, scheme string) (map[string]float64, error)
	// SaveTemplateWeights upserts a scheme's template weight values,
	// overriding the seeded defaults.
	SaveTemplateWeights(ctx context.Context, scheme string, weights map[string]float64) error
	// CompanyWeights returns the company's override for a period, or nil
	// when the company has none and the template applies.
	CompanyWeights(ctx context.Context, companyID int64, period string) (map[string]float64, error)
	UpsertCompanyWeights(ctx context.Context, companyID int64, period string, weights map[string]float64) error
	Scheme(ctx context.Context, companyID int64, period string) (string, error)
	SetScheme(ctx context.Context, companyID int64, period, scheme string) error

	// Benchmarks. BenchmarkForSector falls back to the Default sector row
	// when the requested sector has no reference.
	BenchmarkForSector(ctx context.Context, sector string) (*model.BenchmarkReference, error)

	// Lifecycle.
	Migrate(ctx context.Context) error
	Close() error
}
