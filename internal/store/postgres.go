package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/greenfact/esg-cli/internal/benchmark"
	"github.com/greenfact/esg-cli/internal/db"
	"github.com/greenfact/esg-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS score_snapshots (
	id              TEXT PRIMARY KEY,
	company_id      BIGINT NOT NULL,
	period          TEXT NOT NULL,
	year            INTEGER NOT NULL DEFAULT 0,
	quarter         INTEGER NOT NULL DEFAULT 0,
	category_scores JSONB NOT NULL,
	overall_score   DOUBLE PRECISION NOT NULL,
	grade           TEXT NOT NULL,
	details         JSONB,
	computed_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE(company_id, period)
);

CREATE TABLE IF NOT EXISTS risk_assessments (
	id          TEXT PRIMARY KEY,
	subject_id  BIGINT NOT NULL,
	category    TEXT NOT NULL DEFAULT '',
	title       TEXT NOT NULL DEFAULT '',
	impact      TEXT NOT NULL,
	likelihood  TEXT NOT NULL,
	score       INTEGER NOT NULL,
	tier        TEXT NOT NULL,
	notes       TEXT NOT NULL DEFAULT '',
	assessed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS weighting_schemes (
	scheme   TEXT NOT NULL,
	category TEXT NOT NULL,
	weight   DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (scheme, category)
);

CREATE TABLE IF NOT EXISTS company_weights (
	company_id BIGINT NOT NULL,
	period     TEXT NOT NULL,
	category   TEXT NOT NULL,
	weight     DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (company_id, period, category)
);

CREATE TABLE IF NOT EXISTS company_schemes (
	company_id BIGINT NOT NULL,
	period     TEXT NOT NULL,
	scheme     TEXT NOT NULL DEFAULT 'Standard',
	PRIMARY KEY (company_id, period)
);

CREATE TABLE IF NOT EXISTS sector_benchmarks (
	sector     TEXT PRIMARY KEY,
	overall    DOUBLE PRECISION NOT NULL,
	categories JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_company ON score_snapshots(company_id);
CREATE INDEX IF NOT EXISTS idx_risks_subject ON risk_assessments(subject_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	for category, weight := range defaultTemplateWeights {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO weighting_schemes (scheme, category, weight)
			VALUES ($1, $2, $3)
			ON CONFLICT (scheme, category) DO NOTHING`,
			StandardScheme, category, weight,
		)
		if err != nil {
			return eris.Wrap(err, "postgres: seed template weights")
		}
	}
	for _, ref := range benchmark.DefaultReferences() {
		categories, err := json.Marshal(ref.Categories)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal benchmark categories")
		}
		_, err = s.pool.Exec(ctx, `
			INSERT INTO sector_benchmarks (sector, overall, categories)
			VALUES ($1, $2, $3)
			ON CONFLICT (sector) DO NOTHING`,
			ref.Sector, ref.Overall, categories,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: seed benchmark %s", ref.Sector)
		}
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveSnapshot(ctx context.Context, snapshot *model.ScoreSnapshot) error {
	if snapshot.ID == "" {
		snapshot.ID = uuid.New().String()
	}
	if snapshot.Year == 0 {
		p, err := model.ParsePeriod(snapshot.Period)
		if err != nil {
			return eris.Wrap(err, "postgres: derive year/quarter")
		}
		snapshot.Year = p.Year
		snapshot.Quarter = p.Quarter
	}
	if snapshot.ComputedAt.IsZero() {
		snapshot.ComputedAt = time.Now().UTC()
	}

	scores, err := json.Marshal(snapshot.CategoryScores)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal category scores")
	}
	var details []byte
	if snapshot.Details != nil {
		details, err = json.Marshal(snapshot.Details)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal details")
		}
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO score_snapshots
			(id, company_id, period, year, quarter, category_scores, overall_score, grade, details, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (company_id, period) DO UPDATE SET
			id = excluded.id,
			year = excluded.year,
			quarter = excluded.quarter,
			category_scores = excluded.category_scores,
			overall_score = excluded.overall_score,
			grade = excluded.grade,
			details = excluded.details,
			computed_at = excluded.computed_at`,
		snapshot.ID, snapshot.CompanyID, snapshot.Period, snapshot.Year, snapshot.Quarter,
		scores, snapshot.OverallScore, snapshot.Grade, details, snapshot.ComputedAt,
	)
	return eris.Wrapf(err, "postgres: save snapshot company %d period %s", snapshot.CompanyID, snapshot.Period)
}

func (s *PostgresStore) History(ctx context.Context, companyID int64) ([]model.ScoreSnapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, company_id, period, year, quarter, category_scores, overall_score, grade, details, computed_at
		FROM score_snapshots
		WHERE company_id = $1
		ORDER BY year DESC, quarter DESC, computed_at DESC`,
		companyID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query history")
	}
	defer rows.Close()

	var history []model.ScoreSnapshot
	for rows.Next() {
		snap, err := scanPgSnapshot(rows)
		if err != nil {
			return nil, err
		}
		history = append(history, *snap)
	}
	return history, eris.Wrap(rows.Err(), "postgres: iterate history")
}

func (s *PostgresStore) Latest(ctx context.Context, companyID int64) (*model.ScoreSnapshot, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, company_id, period, year, quarter, category_scores, overall_score, grade, details, computed_at
		FROM score_snapshots
		WHERE company_id = $1
		ORDER BY year DESC, quarter DESC, computed_at DESC
		LIMIT 1`,
		companyID,
	)
	snap, err := scanPgSnapshot(row)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *PostgresStore) SaveRiskAssessment(ctx context.Context, a *model.RiskAssessment) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.AssessedAt.IsZero() {
		a.AssessedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO risk_assessments
			(id, subject_id, category, title, impact, likelihood, score, tier, notes, assessed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.SubjectID, a.Category, a.Title, string(a.Impact), string(a.Likelihood),
		a.Score, string(a.Tier), a.Notes, a.AssessedAt,
	)
	return eris.Wrapf(err, "postgres: save risk assessment for subject %d", a.SubjectID)
}

func (s *PostgresStore) ListRiskAssessments(ctx context.Context, subjectID int64) ([]model.RiskAssessment, error) {
	query := `
		SELECT id, subject_id, category, title, impact, likelihood, score, tier, notes, assessed_at
		FROM risk_assessments`
	var args []any
	if subjectID != 0 {
		query += ` WHERE subject_id = $1`
		args = append(args, subjectID)
	}
	query += `
		ORDER BY
			CASE tier
				WHEN 'Critical' THEN 1
				WHEN 'High' THEN 2
				WHEN 'Medium' THEN 3
				WHEN 'Low' THEN 4
				ELSE 5
			END,
			score DESC, assessed_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query risk assessments")
	}
	defer rows.Close()

	var assessments []model.RiskAssessment
	for rows.Next() {
		var a model.RiskAssessment
		var impact, likelihood, tier string
		err := rows.Scan(&a.ID, &a.SubjectID, &a.Category, &a.Title, &impact, &likelihood,
			&a.Score, &tier, &a.Notes, &a.AssessedAt)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan risk assessment")
		}
		a.Impact = model.Level(impact)
		a.Likelihood = model.Level(likelihood)
		a.Tier = model.Level(tier)
		assessments = append(assessments, a)
	}
	return assessments, eris.Wrap(rows.Err(), "postgres: iterate risk assessments")
}

func (s *PostgresStore) TemplateWeights(ctx context.Context, scheme string) (map[string]float64, error) {
	return s.queryWeights(ctx,
		`SELECT category, weight FROM weighting_schemes WHERE scheme = $1`, scheme)
}

func (s *PostgresStore) SaveTemplateWeights(ctx context.Context, scheme string, weights map[string]float64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin template tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for category, weight := range weights {
		_, err := tx.Exec(ctx, `
			INSERT INTO weighting_schemes (scheme, category, weight)
			VALUES ($1, $2, $3)
			ON CONFLICT (scheme, category) DO UPDATE SET weight = excluded.weight`,
			scheme, category, weight,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: upsert template weight %s", category)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit template weights")
}

func (s *PostgresStore) CompanyWeights(ctx context.Context, companyID int64, period string) (map[string]float64, error) {
	weights, err := s.queryWeights(ctx,
		`SELECT category, weight FROM company_weights WHERE company_id = $1 AND period = $2`,
		companyID, period)
	if err != nil {
		return nil, err
	}
	if len(weights) == 0 {
		return nil, nil
	}
	return weights, nil
}

func (s *PostgresStore) queryWeights(ctx context.Context, query string, args ...any) (map[string]float64, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query weights")
	}
	defer rows.Close()

	weights := make(map[string]float64)
	for rows.Next() {
		var category string
		var weight float64
		if err := rows.Scan(&category, &weight); err != nil {
			return nil, eris.Wrap(err, "postgres: scan weight")
		}
		weights[category] = weight
	}
	return weights, eris.Wrap(rows.Err(), "postgres: iterate weights")
}

func (s *PostgresStore) UpsertCompanyWeights(ctx context.Context, companyID int64, period string, weights map[string]float64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin weights tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for category, weight := range weights {
		_, err := tx.Exec(ctx, `
			INSERT INTO company_weights (company_id, period, category, weight)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (company_id, period, category) DO UPDATE SET weight = excluded.weight`,
			companyID, period, category, weight,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: upsert weight %s", category)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit weights")
}

func (s *PostgresStore) Scheme(ctx context.Context, companyID int64, period string) (string, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT scheme FROM company_schemes WHERE company_id = $1 AND period = $2`,
		companyID, period,
	)
	var scheme string
	err := row.Scan(&scheme)
	if eris.Is(err, pgx.ErrNoRows) {
		return StandardScheme, nil
	}
	if err != nil {
		return "", eris.Wrap(err, "postgres: query scheme")
	}
	return scheme, nil
}

func (s *PostgresStore) SetScheme(ctx context.Context, companyID int64, period, scheme string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO company_schemes (company_id, period, scheme)
		VALUES ($1, $2, $3)
		ON CONFLICT (company_id, period) DO UPDATE SET scheme = excluded.scheme`,
		companyID, period, scheme,
	)
	return eris.Wrapf(err, "postgres: set scheme for company %d", companyID)
}

func (s *PostgresStore) BenchmarkForSector(ctx context.Context, sector string) (*model.BenchmarkReference, error) {
	ref, err := s.queryBenchmark(ctx, sector)
	if err != nil {
		return nil, err
	}
	if ref == nil && sector != benchmark.DefaultSector {
		ref, err = s.queryBenchmark(ctx, benchmark.DefaultSector)
		if err != nil {
			return nil, err
		}
	}
	if ref == nil {
		return nil, eris.Errorf("postgres: no benchmark for sector %q", sector)
	}
	return ref, nil
}

func (s *PostgresStore) queryBenchmark(ctx context.Context, sector string) (*model.BenchmarkReference, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT sector, overall, categories FROM sector_benchmarks WHERE sector = $1`, sector)

	var ref model.BenchmarkReference
	var categories []byte
	err := row.Scan(&ref.Sector, &ref.Overall, &categories)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan benchmark")
	}
	if err := json.Unmarshal(categories, &ref.Categories); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal benchmark categories")
	}
	return &ref, nil
}

func scanPgSnapshot(row pgx.Row) (*model.ScoreSnapshot, error) {
	var snap model.ScoreSnapshot
	var scores, details []byte

	err := row.Scan(&snap.ID, &snap.CompanyID, &snap.Period, &snap.Year, &snap.Quarter,
		&scores, &snap.OverallScore, &snap.Grade, &details, &snap.ComputedAt)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrap(pgx.ErrNoRows, "postgres: snapshot not found")
		}
		return nil, eris.Wrap(err, "postgres: scan snapshot")
	}

	if err := json.Unmarshal(scores, &snap.CategoryScores); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal category scores")
	}
	if len(details) > 0 {
		snap.Details = &model.ScoreDetails{}
		if err := json.Unmarshal(details, snap.Details); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal details")
		}
	}
	return &snap, nil
}
