package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/greenfact/esg-cli/internal/model"
	"github.com/greenfact/esg-cli/internal/risk"
)

var riskCmd = &cobra.Command{
	Use:   "risk",
	Short: "Record and list compliance risk assessments",
}

var (
	riskAddSubject    int64
	riskAddCategory   string
	riskAddTitle      string
	riskAddImpact     string
	riskAddLikelihood string
	riskAddTier       string
	riskAddNotes      string
)

var riskAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a risk assessment",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		impact := model.Level(riskAddImpact)
		likelihood := model.Level(riskAddLikelihood)
		if !impact.Known() {
			return eris.Errorf("unknown impact level %q, use Low|Medium|High|Critical", riskAddImpact)
		}
		if !likelihood.Known() {
			return eris.Errorf("unknown likelihood level %q, use Low|Medium|High|Critical", riskAddLikelihood)
		}
		tier := model.Level(riskAddTier)
		if riskAddTier == "" {
			tier = impact
		} else if !tier.Known() {
			return eris.Errorf("unknown tier %q, use Low|Medium|High|Critical", riskAddTier)
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		assessment := risk.Assess(riskAddSubject, riskAddCategory, riskAddTitle,
			impact, likelihood, tier, riskAddNotes)
		if err := st.SaveRiskAssessment(ctx, &assessment); err != nil {
			return err
		}

		zap.L().Info("risk assessment recorded",
			zap.Int64("subject_id", assessment.SubjectID),
			zap.Int("score", assessment.Score),
			zap.String("tier", string(assessment.Tier)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(assessment)
	},
}

var (
	riskListSubject int64
	riskListSummary bool
)

var riskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List risk assessments, highest tier first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		assessments, err := st.ListRiskAssessments(ctx, riskListSubject)
		if err != nil {
			return err
		}
		if assessments == nil {
			assessments = []model.RiskAssessment{}
		}
		risk.SortAssessments(assessments)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if riskListSummary {
			return enc.Encode(risk.Summarize(assessments))
		}
		return enc.Encode(assessments)
	},
}

func init() {
	riskAddCmd.Flags().Int64Var(&riskAddSubject, "subject", 0, "subject (company) ID (required)")
	riskAddCmd.Flags().StringVar(&riskAddCategory, "category", "", "risk category, e.g. Environmental")
	riskAddCmd.Flags().StringVar(&riskAddTitle, "title", "", "short risk title (required)")
	riskAddCmd.Flags().StringVar(&riskAddImpact, "impact", "", "impact level: Low|Medium|High|Critical (required)")
	riskAddCmd.Flags().StringVar(&riskAddLikelihood, "likelihood", "", "likelihood level: Low|Medium|High|Critical (required)")
	riskAddCmd.Flags().StringVar(&riskAddTier, "tier", "", "declared tier (defaults from impact when empty)")
	riskAddCmd.Flags().StringVar(&riskAddNotes, "notes", "", "free-form notes")
	riskAddCmd.MarkFlagRequired("subject")
	riskAddCmd.MarkFlagRequired("title")
	riskAddCmd.MarkFlagRequired("impact")
	riskAddCmd.MarkFlagRequired("likelihood")

	riskListCmd.Flags().Int64Var(&riskListSubject, "subject", 0, "subject ID (0 = all)")
	riskListCmd.Flags().BoolVar(&riskListSummary, "summary", false, "print tier and category totals instead of rows")

	riskCmd.AddCommand(riskAddCmd)
	riskCmd.AddCommand(riskListCmd)
	rootCmd.AddCommand(riskCmd)
}
