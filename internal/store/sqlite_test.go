package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenfact/esg-cli/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "esg_test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveSnapshotUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	snap := &model.ScoreSnapshot{
		CompanyID:      42,
		Period:         "2025-Q3",
		CategoryScores: map[string]float64{"Environmental": 72.5},
		OverallScore:   72.5,
		Grade:          "B",
	}
	require.NoError(t, s.SaveSnapshot(ctx, snap))
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, 2025, snap.Year)
	assert.Equal(t, 3, snap.Quarter)

	// Second save of the same (company, period) replaces the row.
	updated := &model.ScoreSnapshot{
		CompanyID:      42,
		Period:         "2025-Q3",
		CategoryScores: map[string]float64{"Environmental": 80.0},
		OverallScore:   80.0,
		Grade:          "B",
	}
	require.NoError(t, s.SaveSnapshot(ctx, updated))

	history, err := s.History(ctx, 42)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 80.0, history[0].OverallScore)
}

func TestWriteRetriesOnLockContention(t *testing.T) {
	s := newTestStore(t)
	s.retry.MaxAttempts = 3
	s.retry.InitialBackoff = time.Millisecond
	s.retry.MaxBackoff = 2 * time.Millisecond

	attempts := 0
	err := s.execRetry(context.Background(), "test_write", func(ctx context.Context) error {
		attempts++
		if attempts == 1 {
			return eris.New("database is locked")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)

	// Permanent errors surface immediately without retry.
	attempts = 0
	err = s.execRetry(context.Background(), "test_write", func(ctx context.Context) error {
		attempts++
		return eris.New("UNIQUE constraint failed")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestHistoryOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, period := range []string{"2024-Q4", "2025-Q2", "2025-Q1"} {
		require.NoError(t, s.SaveSnapshot(ctx, &model.ScoreSnapshot{
			CompanyID:    7,
			Period:       period,
			OverallScore: 50,
			Grade:        "C",
		}))
	}

	history, err := s.History(ctx, 7)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "2025-Q2", history[0].Period)
	assert.Equal(t, "2025-Q1", history[1].Period)
	assert.Equal(t, "2024-Q4", history[2].Period)
}

func TestHistoryEmpty(t *testing.T) {
	s := newTestStore(t)

	history, err := s.History(context.Background(), 999)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestLatest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	latest, err := s.Latest(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, latest)

	require.NoError(t, s.SaveSnapshot(ctx, &model.ScoreSnapshot{
		CompanyID: 5, Period: "2024-Q1", OverallScore: 40, Grade: "D",
	}))
	require.NoError(t, s.SaveSnapshot(ctx, &model.ScoreSnapshot{
		CompanyID: 5, Period: "2025-Q1", OverallScore: 60, Grade: "C",
	}))

	latest, err = s.Latest(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "2025-Q1", latest.Period)
}

func TestSnapshotDetailsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	snap := &model.ScoreSnapshot{
		CompanyID:      9,
		Period:         "2025-Q1",
		CategoryScores: map[string]float64{"Social": 65.0},
		OverallScore:   65.0,
		Grade:          "C",
		Details: &model.ScoreDetails{
			WeightSum:      1.0,
			AppliedSignals: []string{"evidence"},
			CompletionRate: 0.8,
		},
	}
	require.NoError(t, s.SaveSnapshot(ctx, snap))

	latest, err := s.Latest(ctx, 9)
	require.NoError(t, err)
	require.NotNil(t, latest.Details)
	assert.Equal(t, []string{"evidence"}, latest.Details.AppliedSignals)
	assert.Equal(t, 0.8, latest.Details.CompletionRate)
}

func TestSchemaDriftBackfill(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "legacy.db")

	// Simulate a database created before year/quarter columns existed.
	legacy, err := NewSQLite(path)
	require.NoError(t, err)
	_, err = legacy.db.Exec(`
		CREATE TABLE score_snapshots (
			id              TEXT PRIMARY KEY,
			company_id      INTEGER NOT NULL,
			period          TEXT NOT NULL,
			category_scores TEXT NOT NULL,
			overall_score   REAL NOT NULL,
			grade           TEXT NOT NULL,
			details         TEXT,
			computed_at     DATETIME NOT NULL,
			UNIQUE(company_id, period)
		)`)
	require.NoError(t, err)
	_, err = legacy.db.Exec(`
		INSERT INTO score_snapshots (id, company_id, period, category_scores, overall_score, grade, computed_at)
		VALUES ('old-1', 3, '2024-Q2', '{}', 55.0, 'C', ?)`, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, legacy.Close())

	s, err := NewSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Migrate(context.Background()))

	history, err := s.History(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 2024, history[0].Year)
	assert.Equal(t, 2, history[0].Quarter)
}

func TestRiskAssessmentOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inputs := []model.RiskAssessment{
		{SubjectID: 1, Title: "low", Impact: model.LevelLow, Likelihood: model.LevelLow, Score: 1, Tier: model.LevelLow},
		{SubjectID: 1, Title: "critical", Impact: model.LevelCritical, Likelihood: model.LevelCritical, Score: 16, Tier: model.LevelCritical},
		{SubjectID: 1, Title: "high", Impact: model.LevelHigh, Likelihood: model.LevelMedium, Score: 6, Tier: model.LevelHigh},
	}
	for i := range inputs {
		require.NoError(t, s.SaveRiskAssessment(ctx, &inputs[i]))
	}

	got, err := s.ListRiskAssessments(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "critical", got[0].Title)
	assert.Equal(t, "high", got[1].Title)
	assert.Equal(t, "low", got[2].Title)
}

func TestTemplateWeightsSeeded(t *testing.T) {
	s := newTestStore(t)

	weights, err := s.TemplateWeights(context.Background(), StandardScheme)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{
		"Environmental": 0.4,
		"Social":        0.3,
		"Governance":    0.3,
	}, weights)
}

func TestSaveTemplateWeightsOverridesSeed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTemplateWeights(ctx, StandardScheme, map[string]float64{
		"Environmental": 0.5,
		"Social":        0.25,
		"Governance":    0.25,
	}))

	weights, err := s.TemplateWeights(ctx, StandardScheme)
	require.NoError(t, err)
	assert.Equal(t, 0.5, weights["Environmental"])

	// New schemes can be created the same way.
	require.NoError(t, s.SaveTemplateWeights(ctx, "Aggressive", map[string]float64{
		"Environmental": 0.7,
		"Social":        0.15,
		"Governance":    0.15,
	}))
	weights, err = s.TemplateWeights(ctx, "Aggressive")
	require.NoError(t, err)
	assert.Len(t, weights, 3)
}

func TestCompanyWeightsOverride(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// No override yet.
	weights, err := s.CompanyWeights(ctx, 10, "2025-Q1")
	require.NoError(t, err)
	assert.Nil(t, weights)

	override := map[string]float64{"Environmental": 0.5, "Social": 0.25, "Governance": 0.25}
	require.NoError(t, s.UpsertCompanyWeights(ctx, 10, "2025-Q1", override))

	weights, err = s.CompanyWeights(ctx, 10, "2025-Q1")
	require.NoError(t, err)
	assert.Equal(t, override, weights)

	// Upsert replaces individual categories.
	require.NoError(t, s.UpsertCompanyWeights(ctx, 10, "2025-Q1", map[string]float64{"Environmental": 0.6}))
	weights, err = s.CompanyWeights(ctx, 10, "2025-Q1")
	require.NoError(t, err)
	assert.Equal(t, 0.6, weights["Environmental"])
	assert.Equal(t, 0.25, weights["Social"])
}

func TestSchemeDefault(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	scheme, err := s.Scheme(ctx, 11, "2025-Q1")
	require.NoError(t, err)
	assert.Equal(t, StandardScheme, scheme)

	require.NoError(t, s.SetScheme(ctx, 11, "2025-Q1", "Aggressive"))
	scheme, err = s.Scheme(ctx, 11, "2025-Q1")
	require.NoError(t, err)
	assert.Equal(t, "Aggressive", scheme)
}

func TestBenchmarkForSector(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ref, err := s.BenchmarkForSector(ctx, "Technology")
	require.NoError(t, err)
	assert.Equal(t, "Technology", ref.Sector)
	assert.Equal(t, 65.0, ref.Overall)

	// Unknown sectors fall back to the Default row.
	ref, err = s.BenchmarkForSector(ctx, "Mining")
	require.NoError(t, err)
	assert.Equal(t, "Default", ref.Sector)
}
