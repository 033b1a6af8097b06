package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/greenfact/esg-cli/internal/model"
)

var (
	historyCompanyID int64
	historyLatest    bool
	historyLimit     int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show stored score snapshots for a company",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if historyLatest {
			latest, err := st.Latest(ctx, historyCompanyID)
			if err != nil {
				return err
			}
			return enc.Encode(latest)
		}

		history, err := st.History(ctx, historyCompanyID)
		if err != nil {
			return err
		}
		if historyLimit > 0 && len(history) > historyLimit {
			history = history[:historyLimit]
		}
		if history == nil {
			history = []model.ScoreSnapshot{}
		}
		return enc.Encode(history)
	},
}

func init() {
	historyCmd.Flags().Int64Var(&historyCompanyID, "company", 0, "company ID (required)")
	historyCmd.Flags().BoolVar(&historyLatest, "latest", false, "print only the most recent snapshot")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "max snapshots to print (0 = all)")
	historyCmd.MarkFlagRequired("company")
	rootCmd.AddCommand(historyCmd)
}
