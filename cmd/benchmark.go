package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/greenfact/esg-cli/internal/benchmark"
	"github.com/greenfact/esg-cli/internal/model"
)

var (
	benchmarkCompanyID int64
	benchmarkSector    string
	benchmarkProgress  bool
)

// benchmarkReport is the JSON document the benchmark command prints.
type benchmarkReport struct {
	Comparison      *model.Comparison      `json:"comparison"`
	Recommendations []model.Recommendation `json:"recommendations"`
	Progress        *benchmark.Progress    `json:"progress,omitempty"`
}

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Compare a company's latest score against its sector",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		latest, err := st.Latest(ctx, benchmarkCompanyID)
		if err != nil {
			return err
		}
		if latest == nil {
			return eris.Errorf("no score snapshots for company %d, run score first", benchmarkCompanyID)
		}

		ref, err := st.BenchmarkForSector(ctx, benchmarkSector)
		if err != nil {
			return err
		}

		comparison := benchmark.Compare(latest, ref)
		report := benchmarkReport{
			Comparison:      comparison,
			Recommendations: benchmark.Recommend(comparison.Categories),
		}

		if benchmarkProgress {
			history, err := st.History(ctx, benchmarkCompanyID)
			if err != nil {
				return err
			}
			report.Progress = benchmark.TrackProgress(history, ref)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	benchmarkCmd.Flags().Int64Var(&benchmarkCompanyID, "company", 0, "company ID (required)")
	benchmarkCmd.Flags().StringVar(&benchmarkSector, "sector", benchmark.DefaultSector, "industry sector for the reference table")
	benchmarkCmd.Flags().BoolVar(&benchmarkProgress, "progress", false, "include progress across stored history")
	benchmarkCmd.MarkFlagRequired("company")
	rootCmd.AddCommand(benchmarkCmd)
}
