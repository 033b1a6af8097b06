package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/greenfact/esg-cli/internal/benchmark"
	"github.com/greenfact/esg-cli/internal/model"
	"github.com/greenfact/esg-cli/internal/resilience"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db    *sql.DB
	retry resilience.RetryConfig
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, retry: resilience.DefaultRetryConfig()}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS score_snapshots (
	id              TEXT PRIMARY KEY,
	company_id      INTEGER NOT NULL,
	period          TEXT NOT NULL,
	year            INTEGER NOT NULL DEFAULT 0,
	quarter         INTEGER NOT NULL DEFAULT 0,
	category_scores TEXT NOT NULL,
	overall_score   REAL NOT NULL,
	grade           TEXT NOT NULL,
	details         TEXT,
	computed_at     DATETIME NOT NULL,
	UNIQUE(company_id, period)
);

CREATE TABLE IF NOT EXISTS risk_assessments (
	id          TEXT PRIMARY KEY,
	subject_id  INTEGER NOT NULL,
	category    TEXT NOT NULL DEFAULT '',
	title       TEXT NOT NULL DEFAULT '',
	impact      TEXT NOT NULL,
	likelihood  TEXT NOT NULL,
	score       INTEGER NOT NULL,
	tier        TEXT NOT NULL,
	notes       TEXT NOT NULL DEFAULT '',
	assessed_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS weighting_schemes (
	scheme   TEXT NOT NULL,
	category TEXT NOT NULL,
	weight   REAL NOT NULL,
	PRIMARY KEY (scheme, category)
);

CREATE TABLE IF NOT EXISTS company_weights (
	company_id INTEGER NOT NULL,
	period     TEXT NOT NULL,
	category   TEXT NOT NULL,
	weight     REAL NOT NULL,
	PRIMARY KEY (company_id, period, category)
);

CREATE TABLE IF NOT EXISTS company_schemes (
	company_id INTEGER NOT NULL,
	period     TEXT NOT NULL,
	scheme     TEXT NOT NULL DEFAULT 'Standard',
	PRIMARY KEY (company_id, period)
);

CREATE TABLE IF NOT EXISTS sector_benchmarks (
	sector     TEXT PRIMARY KEY,
	overall    REAL NOT NULL,
	categories TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_company ON score_snapshots(company_id);
CREATE INDEX IF NOT EXISTS idx_risks_subject ON risk_assessments(subject_id);
`

// defaultTemplateWeights seeds the Standard scheme on first migrate.
var defaultTemplateWeights = map[string]float64{
	"Environmental": 0.4,
	"Social":        0.3,
	"Governance":    0.3,
}

// Migrate creates the schema, repairs drift on older databases, and seeds
// the Standard weighting template and the sector benchmark table.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	if err := s.repairSnapshotColumns(ctx); err != nil {
		return err
	}
	if err := s.seedTemplateWeights(ctx); err != nil {
		return err
	}
	return s.seedBenchmarks(ctx)
}

// repairSnapshotColumns handles databases created before year/quarter were
// split out of the period key: it adds the missing columns and backfills
// them from the period string instead of failing reads.
func (s *SQLiteStore) repairSnapshotColumns(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `PRAGMA table_info(score_snapshots)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: table_info")
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return eris.Wrap(err, "sqlite: scan table_info")
		}
		existing[name] = true
	}
	if err := rows.Err(); err != nil {
		return eris.Wrap(err, "sqlite: iterate table_info")
	}

	if !existing["year"] {
		if _, err := s.db.ExecContext(ctx,
			`ALTER TABLE score_snapshots ADD COLUMN year INTEGER NOT NULL DEFAULT 0`); err != nil {
			return eris.Wrap(err, "sqlite: add year column")
		}
		if _, err := s.db.ExecContext(ctx,
			`UPDATE score_snapshots SET year = CAST(substr(period, 1, 4) AS INTEGER) WHERE year = 0`); err != nil {
			return eris.Wrap(err, "sqlite: backfill year")
		}
	}
	if !existing["quarter"] {
		if _, err := s.db.ExecContext(ctx,
			`ALTER TABLE score_snapshots ADD COLUMN quarter INTEGER NOT NULL DEFAULT 0`); err != nil {
			return eris.Wrap(err, "sqlite: add quarter column")
		}
		if _, err := s.db.ExecContext(ctx,
			`UPDATE score_snapshots
			 SET quarter = CAST(substr(period, instr(period, '-Q') + 2, 1) AS INTEGER)
			 WHERE instr(period, '-Q') > 0`); err != nil {
			return eris.Wrap(err, "sqlite: backfill quarter")
		}
	}
	return nil
}

func (s *SQLiteStore) seedTemplateWeights(ctx context.Context) error {
	for category, weight := range defaultTemplateWeights {
		_, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO weighting_schemes (scheme, category, weight) VALUES (?, ?, ?)`,
			StandardScheme, category, weight,
		)
		if err != nil {
			return eris.Wrap(err, "sqlite: seed template weights")
		}
	}
	return nil
}

func (s *SQLiteStore) seedBenchmarks(ctx context.Context) error {
	for _, ref := range benchmark.DefaultReferences() {
		categories, err := json.Marshal(ref.Categories)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal benchmark categories")
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO sector_benchmarks (sector, overall, categories) VALUES (?, ?, ?)`,
			ref.Sector, ref.Overall, string(categories),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: seed benchmark %s", ref.Sector)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// execRetry runs a write through the busy-retry policy, logging each attempt.
func (s *SQLiteStore) execRetry(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	cfg := s.retry
	cfg.OnRetry = resilience.RetryLogger("sqlite", operation)
	return resilience.Do(ctx, cfg, fn)
}

// SaveSnapshot upserts by (company_id, period). The upsert gives
// last-writer-wins semantics for concurrent saves of the same key.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snapshot *model.ScoreSnapshot) error {
	if snapshot.ID == "" {
		snapshot.ID = uuid.New().String()
	}
	if snapshot.Year == 0 {
		p, err := model.ParsePeriod(snapshot.Period)
		if err != nil {
			return eris.Wrap(err, "sqlite: derive year/quarter")
		}
		snapshot.Year = p.Year
		snapshot.Quarter = p.Quarter
	}
	if snapshot.ComputedAt.IsZero() {
		snapshot.ComputedAt = time.Now().UTC()
	}

	scores, err := json.Marshal(snapshot.CategoryScores)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal category scores")
	}
	var details []byte
	if snapshot.Details != nil {
		details, err = json.Marshal(snapshot.Details)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal details")
		}
	}

	err = s.execRetry(ctx, "save_snapshot", func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO score_snapshots
				(id, company_id, period, year, quarter, category_scores, overall_score, grade, details, computed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(company_id, period) DO UPDATE SET
				id = excluded.id,
				year = excluded.year,
				quarter = excluded.quarter,
				category_scores = excluded.category_scores,
				overall_score = excluded.overall_score,
				grade = excluded.grade,
				details = excluded.details,
				computed_at = excluded.computed_at`,
			snapshot.ID, snapshot.CompanyID, snapshot.Period, snapshot.Year, snapshot.Quarter,
			string(scores), snapshot.OverallScore, snapshot.Grade, nullableString(details), snapshot.ComputedAt,
		)
		return err
	})
	return eris.Wrapf(err, "sqlite: save snapshot company %d period %s", snapshot.CompanyID, snapshot.Period)
}

const snapshotColumns = `id, company_id, period, year, quarter, category_scores, overall_score, grade, details, computed_at`

// History returns all snapshots for a company, most recent period first.
func (s *SQLiteStore) History(ctx context.Context, companyID int64) ([]model.ScoreSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+snapshotColumns+`
		FROM score_snapshots
		WHERE company_id = ?
		ORDER BY year DESC, quarter DESC, computed_at DESC`,
		companyID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query history")
	}
	defer rows.Close()

	var history []model.ScoreSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		history = append(history, *snap)
	}
	return history, eris.Wrap(rows.Err(), "sqlite: iterate history")
}

// Latest returns the most recent snapshot, or nil when the company has none.
func (s *SQLiteStore) Latest(ctx context.Context, companyID int64) (*model.ScoreSnapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+snapshotColumns+`
		FROM score_snapshots
		WHERE company_id = ?
		ORDER BY year DESC, quarter DESC, computed_at DESC
		LIMIT 1`,
		companyID,
	)
	snap, err := scanSnapshot(row)
	if eris.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *SQLiteStore) SaveRiskAssessment(ctx context.Context, a *model.RiskAssessment) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.AssessedAt.IsZero() {
		a.AssessedAt = time.Now().UTC()
	}
	err := s.execRetry(ctx, "save_risk_assessment", func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO risk_assessments
				(id, subject_id, category, title, impact, likelihood, score, tier, notes, assessed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.SubjectID, a.Category, a.Title, string(a.Impact), string(a.Likelihood),
			a.Score, string(a.Tier), a.Notes, a.AssessedAt,
		)
		return err
	})
	return eris.Wrapf(err, "sqlite: save risk assessment for subject %d", a.SubjectID)
}

// ListRiskAssessments orders by declared tier (Critical first, unknown
// last), then numeric score descending.
func (s *SQLiteStore) ListRiskAssessments(ctx context.Context, subjectID int64) ([]model.RiskAssessment, error) {
	query := `
		SELECT id, subject_id, category, title, impact, likelihood, score, tier, notes, assessed_at
		FROM risk_assessments`
	var args []any
	if subjectID != 0 {
		query += ` WHERE subject_id = ?`
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

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query risk assessments")
	}
	defer rows.Close()

	var assessments []model.RiskAssessment
	for rows.Next() {
		var a model.RiskAssessment
		var impact, likelihood, tier string
		err := rows.Scan(&a.ID, &a.SubjectID, &a.Category, &a.Title, &impact, &likelihood,
			&a.Score, &tier, &a.Notes, &a.AssessedAt)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan risk assessment")
		}
		a.Impact = model.Level(impact)
		a.Likelihood = model.Level(likelihood)
		a.Tier = model.Level(tier)
		assessments = append(assessments, a)
	}
	return assessments, eris.Wrap(rows.Err(), "sqlite: iterate risk assessments")
}

func (s *SQLiteStore) TemplateWeights(ctx context.Context, scheme string) (map[string]float64, error) {
	return s.queryWeights(ctx,
		`SELECT category, weight FROM weighting_schemes WHERE scheme = ?`, scheme)
}

func (s *SQLiteStore) SaveTemplateWeights(ctx context.Context, scheme string, weights map[string]float64) error {
	return s.execRetry(ctx, "save_template_weights", func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return eris.Wrap(err, "sqlite: begin template tx")
		}
		defer tx.Rollback() //nolint:errcheck

		for category, weight := range weights {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO weighting_schemes (scheme, category, weight)
				VALUES (?, ?, ?)
				ON CONFLICT(scheme, category) DO UPDATE SET weight = excluded.weight`,
				scheme, category, weight,
			)
			if err != nil {
				return eris.Wrapf(err, "sqlite: upsert template weight %s", category)
			}
		}
		return eris.Wrap(tx.Commit(), "sqlite: commit template weights")
	})
}

func (s *SQLiteStore) CompanyWeights(ctx context.Context, companyID int64, period string) (map[string]float64, error) {
	weights, err := s.queryWeights(ctx,
		`SELECT category, weight FROM company_weights WHERE company_id = ? AND period = ?`,
		companyID, period)
	if err != nil {
		return nil, err
	}
	if len(weights) == 0 {
		return nil, nil
	}
	return weights, nil
}

func (s *SQLiteStore) queryWeights(ctx context.Context, query string, args ...any) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query weights")
	}
	defer rows.Close()

	weights := make(map[string]float64)
	for rows.Next() {
		var category string
		var weight float64
		if err := rows.Scan(&category, &weight); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan weight")
		}
		weights[category] = weight
	}
	return weights, eris.Wrap(rows.Err(), "sqlite: iterate weights")
}

func (s *SQLiteStore) UpsertCompanyWeights(ctx context.Context, companyID int64, period string, weights map[string]float64) error {
	return s.execRetry(ctx, "upsert_company_weights", func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return eris.Wrap(err, "sqlite: begin weights tx")
		}
		defer tx.Rollback() //nolint:errcheck

		for category, weight := range weights {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO company_weights (company_id, period, category, weight)
				VALUES (?, ?, ?, ?)
				ON CONFLICT(company_id, period, category) DO UPDATE SET weight = excluded.weight`,
				companyID, period, category, weight,
			)
			if err != nil {
				return eris.Wrapf(err, "sqlite: upsert weight %s", category)
			}
		}
		return eris.Wrap(tx.Commit(), "sqlite: commit weights")
	})
}

// Scheme returns the company's weighting scheme for a period, defaulting to
// Standard when no row exists.
func (s *SQLiteStore) Scheme(ctx context.Context, companyID int64, period string) (string, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT scheme FROM company_schemes WHERE company_id = ? AND period = ?`,
		companyID, period,
	)
	var scheme string
	err := row.Scan(&scheme)
	if err == sql.ErrNoRows {
		return StandardScheme, nil
	}
	if err != nil {
		return "", eris.Wrap(err, "sqlite: query scheme")
	}
	return scheme, nil
}

func (s *SQLiteStore) SetScheme(ctx context.Context, companyID int64, period, scheme string) error {
	err := s.execRetry(ctx, "set_scheme", func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO company_schemes (company_id, period, scheme)
			VALUES (?, ?, ?)
			ON CONFLICT(company_id, period) DO UPDATE SET scheme = excluded.scheme`,
			companyID, period, scheme,
		)
		return err
	})
	return eris.Wrapf(err, "sqlite: set scheme for company %d", companyID)
}

// BenchmarkForSector falls back to the Default sector when the requested
// sector has no reference row.
func (s *SQLiteStore) BenchmarkForSector(ctx context.Context, sector string) (*model.BenchmarkReference, error) {
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
		return nil, eris.Errorf("sqlite: no benchmark for sector %q", sector)
	}
	return ref, nil
}

func (s *SQLiteStore) queryBenchmark(ctx context.Context, sector string) (*model.BenchmarkReference, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT sector, overall, categories FROM sector_benchmarks WHERE sector = ?`, sector)

	var ref model.BenchmarkReference
	var categories string
	err := row.Scan(&ref.Sector, &ref.Overall, &categories)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan benchmark")
	}
	if err := json.Unmarshal([]byte(categories), &ref.Categories); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal benchmark categories")
	}
	return &ref, nil
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scannable) (*model.ScoreSnapshot, error) {
	var snap model.ScoreSnapshot
	var scores string
	var details sql.NullString
	var year, quarter sql.NullInt64

	err := row.Scan(&snap.ID, &snap.CompanyID, &snap.Period, &year, &quarter,
		&scores, &snap.OverallScore, &snap.Grade, &details, &snap.ComputedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(sql.ErrNoRows, "sqlite: snapshot not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan snapshot")
	}

	snap.Year = int(year.Int64)
	snap.Quarter = int(quarter.Int64)
	if snap.Year == 0 {
		// Rows written before the year/quarter columns existed.
		if p, perr := model.ParsePeriod(snap.Period); perr == nil {
			snap.Year = p.Year
			snap.Quarter = p.Quarter
		}
	}

	if err := json.Unmarshal([]byte(scores), &snap.CategoryScores); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal category scores")
	}
	if details.Valid && details.String != "" {
		snap.Details = &model.ScoreDetails{}
		if err := json.Unmarshal([]byte(details.String), snap.Details); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal details")
		}
	}
	return &snap, nil
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
