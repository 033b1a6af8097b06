package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/greenfact/esg-cli/internal/model"
	"github.com/greenfact/esg-cli/internal/scoring"
	"github.com/greenfact/esg-cli/internal/store"
	"github.com/greenfact/esg-cli/internal/weights"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "serve_test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })

	calc := scoring.NewCalculator(weights.NewManager(st), st, nil, scoring.DefaultConfig())
	srv := httptest.NewServer(newRouter(st, calc, nil))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestServeHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]string](t, resp)
	assert.Equal(t, "ok", body["status"])
}

func TestServeScoreAndHistory(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/score", map[string]any{
		"company_id": 42,
		"period":     "2025-Q3",
		"signals":    []string{"evidence"},
		"counts": []model.IndicatorCount{
			{Source: "GRI", Category: "Environmental", Total: 80, Answered: 40},
			{Source: "GRI", Category: "Social", Total: 30, Answered: 30},
			{Source: "GRI", Category: "Governance", Total: 20, Answered: 10},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decodeBody[model.ScoreSnapshot](t, resp)
	assert.Equal(t, int64(42), snap.CompanyID)
	assert.NotEmpty(t, snap.Grade)
	assert.Greater(t, snap.OverallScore, 0.0)

	resp, err := http.Get(srv.URL + "/companies/42/history")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	history := decodeBody[[]model.ScoreSnapshot](t, resp)
	require.Len(t, history, 1)
	assert.Equal(t, "2025-Q3", history[0].Period)

	resp, err = http.Get(srv.URL + "/companies/42/latest")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	latest := decodeBody[model.ScoreSnapshot](t, resp)
	assert.Equal(t, snap.OverallScore, latest.OverallScore)
}

func TestServeScoreBadRequest(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/score", map[string]any{"company_id": 0})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServeScoreBadPeriod(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/score", map[string]any{
		"company_id": 1,
		"period":     "Q3-2025",
		"counts": []model.IndicatorCount{
			{Category: "Environmental", Total: 10, Answered: 5},
		},
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestServeLatestNotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/companies/999/latest")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServeInvalidCompanyParam(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/companies/abc/history")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServeBenchmark(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/score", map[string]any{
		"company_id": 7,
		"period":     "2025-Q1",
		"counts": []model.IndicatorCount{
			{Category: "Environmental", Total: 10, Answered: 9},
			{Category: "Social", Total: 10, Answered: 9},
			{Category: "Governance", Total: 10, Answered: 9},
		},
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err := http.Get(srv.URL + "/companies/7/benchmark?sector=Technology")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report := decodeBody[benchmarkReport](t, resp)
	require.NotNil(t, report.Comparison)
	assert.Equal(t, "Technology", report.Comparison.Sector)
}

func TestServeRisks(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/risks", map[string]any{
		"subject_id": 5,
		"category":   "Environmental",
		"title":      "Emissions disclosure gap",
		"impact":     "High",
		"likelihood": "Medium",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[model.RiskAssessment](t, resp)
	assert.Equal(t, 6, created.Score)
	assert.Equal(t, model.LevelHigh, created.Tier)

	resp, err := http.Get(srv.URL + "/risks?subject_id=5")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assessments := decodeBody[[]model.RiskAssessment](t, resp)
	require.Len(t, assessments, 1)
	assert.Equal(t, "Emissions disclosure gap", assessments[0].Title)
}

func TestServeRisksBadRequest(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/risks", map[string]any{
		"subject_id": 5,
		"title":      "Missing levels",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServeRateLimit(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "rl_test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })

	calc := scoring.NewCalculator(weights.NewManager(st), st, nil, scoring.DefaultConfig())
	limiter := rate.NewLimiter(rate.Limit(0.001), 1)
	srv := httptest.NewServer(newRouter(st, calc, limiter))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}
