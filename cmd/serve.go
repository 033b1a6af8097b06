package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/greenfact/esg-cli/internal/benchmark"
	"github.com/greenfact/esg-cli/internal/model"
	"github.com/greenfact/esg-cli/internal/risk"
	"github.com/greenfact/esg-cli/internal/scoring"
	"github.com/greenfact/esg-cli/internal/store"
	"github.com/greenfact/esg-cli/internal/weights"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the scoring JSON API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		classifier, err := cfg.Classifier()
		if err != nil {
			return err
		}
		calc := scoring.NewCalculator(weights.NewManager(st), st, classifier, cfg.ScoringOptions())

		limiter := rate.NewLimiter(rate.Limit(cfg.Server.RateLimitRPS), cfg.Server.RateLimitBurst)
		handler := newRouter(st, calc, limiter)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: handler,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newRouter(st store.Store, calc *scoring.Calculator, limiter *rate.Limiter) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	if limiter != nil {
		r.Use(rateLimitMiddleware(limiter))
	}

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/score", func(w http.ResponseWriter, req *http.Request) {
		var in struct {
			CompanyID int64                  `json:"company_id"`
			Period    string                 `json:"period"`
			Signals   []string               `json:"signals"`
			Counts    []model.IndicatorCount `json:"counts"`
		}
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if in.CompanyID <= 0 || in.Period == "" || len(in.Counts) == 0 {
			writeError(w, http.StatusBadRequest, "company_id, period, and counts are required")
			return
		}

		signals := make(map[string]bool, len(in.Signals))
		for _, s := range in.Signals {
			signals[s] = true
		}

		snapshot, err := calc.Compute(req.Context(), in.CompanyID, in.Period, in.Counts, signals)
		if err != nil {
			zap.L().Error("score request failed",
				zap.Int64("company_id", in.CompanyID),
				zap.Error(err),
			)
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, snapshot)
	})

	r.Get("/companies/{companyID}/history", func(w http.ResponseWriter, req *http.Request) {
		companyID, ok := companyParam(w, req)
		if !ok {
			return
		}
		history, err := st.History(req.Context(), companyID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "history query failed")
			return
		}
		if history == nil {
			history = []model.ScoreSnapshot{}
		}
		writeJSON(w, http.StatusOK, history)
	})

	r.Get("/companies/{companyID}/latest", func(w http.ResponseWriter, req *http.Request) {
		companyID, ok := companyParam(w, req)
		if !ok {
			return
		}
		latest, err := st.Latest(req.Context(), companyID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "latest query failed")
			return
		}
		if latest == nil {
			writeError(w, http.StatusNotFound, "no snapshots for company")
			return
		}
		writeJSON(w, http.StatusOK, latest)
	})

	r.Get("/companies/{companyID}/benchmark", func(w http.ResponseWriter, req *http.Request) {
		companyID, ok := companyParam(w, req)
		if !ok {
			return
		}
		sector := req.URL.Query().Get("sector")
		if sector == "" {
			sector = benchmark.DefaultSector
		}

		latest, err := st.Latest(req.Context(), companyID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "latest query failed")
			return
		}
		if latest == nil {
			writeError(w, http.StatusNotFound, "no snapshots for company")
			return
		}
		ref, err := st.BenchmarkForSector(req.Context(), sector)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "benchmark lookup failed")
			return
		}

		comparison := benchmark.Compare(latest, ref)
		writeJSON(w, http.StatusOK, benchmarkReport{
			Comparison:      comparison,
			Recommendations: benchmark.Recommend(comparison.Categories),
		})
	})

	r.Post("/risks", func(w http.ResponseWriter, req *http.Request) {
		var in struct {
			SubjectID  int64  `json:"subject_id"`
			Category   string `json:"category"`
			Title      string `json:"title"`
			Impact     string `json:"impact"`
			Likelihood string `json:"likelihood"`
			Tier       string `json:"tier"`
			Notes      string `json:"notes"`
		}
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		impact := model.Level(in.Impact)
		likelihood := model.Level(in.Likelihood)
		if in.SubjectID <= 0 || in.Title == "" || !impact.Known() || !likelihood.Known() {
			writeError(w, http.StatusBadRequest, "subject_id, title, impact, and likelihood are required")
			return
		}
		tier := model.Level(in.Tier)
		if in.Tier == "" {
			tier = impact
		}

		assessment := risk.Assess(in.SubjectID, in.Category, in.Title, impact, likelihood, tier, in.Notes)
		if err := st.SaveRiskAssessment(req.Context(), &assessment); err != nil {
			writeError(w, http.StatusInternalServerError, "save failed")
			return
		}
		writeJSON(w, http.StatusCreated, assessment)
	})

	r.Get("/risks", func(w http.ResponseWriter, req *http.Request) {
		var subjectID int64
		if raw := req.URL.Query().Get("subject_id"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "subject_id must be an integer")
				return
			}
			subjectID = id
		}
		assessments, err := st.ListRiskAssessments(req.Context(), subjectID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "risk query failed")
			return
		}
		if assessments == nil {
			assessments = []model.RiskAssessment{}
		}
		writeJSON(w, http.StatusOK, assessments)
	})

	return r
}

func rateLimitMiddleware(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !limiter.Allow() {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

func companyParam(w http.ResponseWriter, req *http.Request) (int64, bool) {
	companyID, err := strconv.ParseInt(chi.URLParam(req, "companyID"), 10, 64)
	if err != nil || companyID <= 0 {
		writeError(w, http.StatusBadRequest, "company ID must be a positive integer")
		return 0, false
	}
	return companyID, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
