package main

import (
	"context"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/greenfact/esg-cli/internal/model"
	"github.com/greenfact/esg-cli/internal/scoring"
	"github.com/greenfact/esg-cli/internal/weights"
)

var batchInputPath string

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Score many companies from one input file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		input, err := loadBatchInput(batchInputPath, cfg.SourceCategories())
		if err != nil {
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

		return processBatch(ctx, input.Companies, cfg.Batch.MaxConcurrentCompanies,
			func(ctx context.Context, in ScoreInput) (*model.ScoreSnapshot, error) {
				return calc.Compute(ctx, in.CompanyID, in.Period, in.Counts, in.signalMap())
			})
	},
}

type scoreFunc func(ctx context.Context, in ScoreInput) (*model.ScoreSnapshot, error)

func processBatch(ctx context.Context, companies []ScoreInput, concurrency int, score scoreFunc) error {
	if concurrency < 1 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("companies", len(companies)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64

	for _, in := range companies {
		g.Go(func() error {
			log := zap.L().With(
				zap.Int64("company_id", in.CompanyID),
				zap.String("period", in.Period),
			)

			snapshot, err := score(gctx, in)
			if err != nil {
				failed.Add(1)
				log.Error("scoring failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}

			succeeded.Add(1)
			log.Info("scoring complete",
				zap.Float64("overall", snapshot.OverallScore),
				zap.String("grade", snapshot.Grade),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "batch processing")
	}

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return nil
}

func init() {
	batchCmd.Flags().StringVar(&batchInputPath, "input", "", "YAML file with a companies list (required)")
	batchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(batchCmd)
}
