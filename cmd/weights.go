package main

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/greenfact/esg-cli/internal/weights"
)

var weightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Inspect and manage category weighting",
}

var (
	weightsCompanyID int64
	weightsPeriod    string
)

var weightsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective weights for a company and period",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		effective, err := weights.NewManager(st).EffectiveWeights(ctx, weightsCompanyID, weightsPeriod)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(effective)
	},
}

var weightsSetPairs []string

var weightsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Override category weights for a company and period",
	Long: `Sets per-company weight overrides, one Category=Weight pair per --weight
flag. Categories not named keep their previous value. Example:

  esg-cli weights set --company 42 --period 2025-Q3 \
    --weight Environmental=0.5 --weight Social=0.25 --weight Governance=0.25`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		override, err := parseWeightPairs(weightsSetPairs)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		mgr := weights.NewManager(st)
		if err := mgr.SetOverride(ctx, weightsCompanyID, weightsPeriod, override); err != nil {
			return err
		}

		zap.L().Info("weights overridden",
			zap.Int64("company_id", weightsCompanyID),
			zap.String("period", weightsPeriod),
			zap.Int("categories", len(override)),
		)

		effective, err := mgr.EffectiveWeights(ctx, weightsCompanyID, weightsPeriod)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(effective)
	},
}

var weightsSchemeName string

var weightsSchemeCmd = &cobra.Command{
	Use:   "scheme",
	Short: "Assign a weighting scheme template to a company",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := weights.NewManager(st).SetScheme(ctx, weightsCompanyID, weightsPeriod, weightsSchemeName); err != nil {
			return err
		}

		zap.L().Info("scheme assigned",
			zap.Int64("company_id", weightsCompanyID),
			zap.String("period", weightsPeriod),
			zap.String("scheme", weightsSchemeName),
		)
		return nil
	},
}

var weightsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset a company's weights to its scheme template",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		reset, err := weights.NewManager(st).ResetToTemplate(ctx, weightsCompanyID, weightsPeriod)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(reset)
	},
}

// parseWeightPairs parses repeated Category=Weight flag values.
func parseWeightPairs(pairs []string) (map[string]float64, error) {
	if len(pairs) == 0 {
		return nil, eris.New("at least one --weight Category=Weight pair is required")
	}
	out := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		category, value, ok := strings.Cut(pair, "=")
		category = strings.TrimSpace(category)
		if !ok || category == "" {
			return nil, eris.Errorf("malformed weight pair %q, expected Category=Weight", pair)
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, eris.Errorf("weight for %s is not a number: %q", category, value)
		}
		out[category] = w
	}
	return out, nil
}

func init() {
	for _, c := range []*cobra.Command{weightsShowCmd, weightsSetCmd, weightsSchemeCmd, weightsResetCmd} {
		c.Flags().Int64Var(&weightsCompanyID, "company", 0, "company ID (required)")
		c.Flags().StringVar(&weightsPeriod, "period", "", "reporting period, e.g. 2025-Q3 (required)")
		c.MarkFlagRequired("company")
		c.MarkFlagRequired("period")
	}
	weightsSetCmd.Flags().StringArrayVar(&weightsSetPairs, "weight", nil, "Category=Weight pair (repeatable)")
	weightsSchemeCmd.Flags().StringVar(&weightsSchemeName, "name", "", "scheme name (required)")
	weightsSchemeCmd.MarkFlagRequired("name")

	weightsCmd.AddCommand(weightsShowCmd)
	weightsCmd.AddCommand(weightsSetCmd)
	weightsCmd.AddCommand(weightsSchemeCmd)
	weightsCmd.AddCommand(weightsResetCmd)
	rootCmd.AddCommand(weightsCmd)
}
