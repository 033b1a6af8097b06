package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/greenfact/esg-cli/internal/scoring"
	"github.com/greenfact/esg-cli/internal/weights"
)

var (
	scoreInputPath string
	scoreCompanyID int64
	scorePeriod    string
	scoreNoSave    bool
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Compute a composite compliance score for one company",
	Long: `Reads per-framework indicator counts from a YAML file, aggregates them
per category, applies bonus signals and category weights, and writes a
graded score snapshot. With --no-save the snapshot is printed but not
persisted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		input, err := loadScoreInput(scoreInputPath, cfg.SourceCategories())
		if err != nil {
			return err
		}
		if scoreCompanyID != 0 {
			input.CompanyID = scoreCompanyID
		}
		if scorePeriod != "" {
			input.Period = scorePeriod
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

		var writer scoring.SnapshotWriter
		if !scoreNoSave {
			writer = st
		}
		calc := scoring.NewCalculator(weights.NewManager(st), writer, classifier, cfg.ScoringOptions())

		snapshot, err := calc.Compute(ctx, input.CompanyID, input.Period, input.Counts, input.signalMap())
		if err != nil {
			return err
		}

		zap.L().Info("score computed",
			zap.Int64("company_id", snapshot.CompanyID),
			zap.String("period", snapshot.Period),
			zap.Float64("overall", snapshot.OverallScore),
			zap.String("grade", snapshot.Grade),
			zap.String("maturity", scoring.GradeDescription(snapshot.Grade)),
			zap.Bool("saved", !scoreNoSave),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snapshot)
	},
}

func init() {
	scoreCmd.Flags().StringVar(&scoreInputPath, "input", "", "YAML file with indicator counts (required)")
	scoreCmd.Flags().Int64Var(&scoreCompanyID, "company", 0, "company ID (overrides input file)")
	scoreCmd.Flags().StringVar(&scorePeriod, "period", "", "reporting period, e.g. 2025-Q3 (overrides input file)")
	scoreCmd.Flags().BoolVar(&scoreNoSave, "no-save", false, "compute without persisting the snapshot")
	scoreCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(scoreCmd)
}
