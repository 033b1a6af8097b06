package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/greenfact/esg-cli/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newMockPostgres(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresFromPool(mock), mock
}

func TestPostgresSaveSnapshot(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec("INSERT INTO score_snapshots").
		WithArgs(pgxmock.AnyArg(), int64(42), "2025-Q3", 2025, 3,
			[]byte(`{"Environmental":72.5}`), 72.5, "B", []byte(nil), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	snap := &model.ScoreSnapshot{
		CompanyID:      42,
		Period:         "2025-Q3",
		CategoryScores: map[string]float64{"Environmental": 72.5},
		OverallScore:   72.5,
		Grade:          "B",
	}
	err := s.SaveSnapshot(context.Background(), snap)
	require.NoError(t, err)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, 2025, snap.Year)
	assert.Equal(t, 3, snap.Quarter)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveSnapshotBadPeriod(t *testing.T) {
	s, _ := newMockPostgres(t)

	err := s.SaveSnapshot(context.Background(), &model.ScoreSnapshot{
		CompanyID: 1,
		Period:    "Q3-2025",
	})
	require.Error(t, err)
}

func TestPostgresLatestNoRows(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery("SELECT (.+) FROM score_snapshots").
		WithArgs(int64(7)).
		WillReturnError(pgx.ErrNoRows)

	snap, err := s.Latest(context.Background(), 7)
	require.NoError(t, err)
	assert.Nil(t, snap)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLatest(t *testing.T) {
	s, mock := newMockPostgres(t)

	computedAt := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM score_snapshots").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "company_id", "period", "year", "quarter",
			"category_scores", "overall_score", "grade", "details", "computed_at",
		}).AddRow(
			"snap-1", int64(7), "2025-Q2", 2025, 2,
			[]byte(`{"Environmental":70.0}`), 70.0, "B", []byte(nil), computedAt,
		))

	snap, err := s.Latest(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "2025-Q2", snap.Period)
	assert.Equal(t, 70.0, snap.CategoryScores["Environmental"])
	assert.Nil(t, snap.Details)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresHistoryOrderClause(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery("ORDER BY year DESC, quarter DESC, computed_at DESC").
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "company_id", "period", "year", "quarter",
			"category_scores", "overall_score", "grade", "details", "computed_at",
		}))

	history, err := s.History(context.Background(), 3)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSchemeDefault(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery("SELECT scheme FROM company_schemes").
		WithArgs(int64(5), "2025-Q1").
		WillReturnError(pgx.ErrNoRows)

	scheme, err := s.Scheme(context.Background(), 5, "2025-Q1")
	require.NoError(t, err)
	assert.Equal(t, StandardScheme, scheme)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBenchmarkFallback(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery("SELECT sector, overall, categories FROM sector_benchmarks").
		WithArgs("Mining").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT sector, overall, categories FROM sector_benchmarks").
		WithArgs("Default").
		WillReturnRows(pgxmock.NewRows([]string{"sector", "overall", "categories"}).
			AddRow("Default", 62.0, []byte(`{"Environmental":60.0}`)))

	ref, err := s.BenchmarkForSector(context.Background(), "Mining")
	require.NoError(t, err)
	assert.Equal(t, "Default", ref.Sector)
	assert.Equal(t, 62.0, ref.Overall)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertCompanyWeights(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO company_weights").
		WithArgs(int64(10), "2025-Q1", "Environmental", 0.5).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := s.UpsertCompanyWeights(context.Background(), 10, "2025-Q1",
		map[string]float64{"Environmental": 0.5})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
