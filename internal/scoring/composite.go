package scoring

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/greenfact/esg-cli/internal/model"
)

// weightSumTolerance bounds the accepted deviation of the weight sum from
// 1.0. Violations are logged, never rejected.
const (
	weightSumLow  = 0.99
	weightSumHigh = 1.01
)

// WeightSource resolves the effective category weight map for a company and
// period. Implemented by weights.Manager.
type WeightSource interface {
	EffectiveWeights(ctx context.Context, companyID int64, period string) (map[string]float64, error)
}

// SnapshotWriter persists completed snapshots. Implemented by the store.
type SnapshotWriter interface {
	SaveSnapshot(ctx context.Context, snapshot *model.ScoreSnapshot) error
}

// Config tunes the composite calculation.
type Config struct {
	NormalizeMethod string
	MinCompleteness float64
	Bonus           BonusConfig
}

// DefaultConfig returns pooled normalization with the standard bonuses and
// a 0.5 completeness floor for reporting.
func DefaultConfig() Config {
	return Config{
		NormalizeMethod: NormalizePooled,
		MinCompleteness: 0.5,
		Bonus:           DefaultBonusConfig(),
	}
}

// Calculator combines category ratios with weights into an overall score,
// classifies it, and persists the resulting snapshot.
type Calculator struct {
	weights    WeightSource
	store      SnapshotWriter
	classifier *Classifier
	cfg        Config
}

// NewCalculator wires a calculator. A nil store makes Compute a pure
// preview: the snapshot is returned but not persisted.
func NewCalculator(weights WeightSource, store SnapshotWriter, classifier *Classifier, cfg Config) *Calculator {
	if classifier == nil {
		classifier = MustDefaultClassifier()
	}
	return &Calculator{weights: weights, store: store, classifier: classifier, cfg: cfg}
}

// Compute scores one company for one period from per-category indicator
// counts and pre-evaluated bonus signals.
//
// Per category: pooled ratio, bonus, clamp to [0,1], then multiply by the
// effective weight and sum into the overall ratio. Scores convert to the
// 0-100 scale rounded to one decimal; downstream grade banding and history
// comparison depend on that rounding, so it is part of the contract.
// Persisting the snapshot is the only side effect.
func (c *Calculator) Compute(ctx context.Context, companyID int64, period string, counts []model.IndicatorCount, signals map[string]bool) (*model.ScoreSnapshot, error) {
	p, err := model.ParsePeriod(period)
	if err != nil {
		return nil, err
	}

	weights, err := c.weights.EffectiveWeights(ctx, companyID, period)
	if err != nil {
		return nil, eris.Wrap(err, "scoring: resolve weights")
	}
	warnWeightSum(weights)

	byCategory := groupByCategory(counts)

	details := &model.ScoreDetails{
		Categories:     make(map[string]model.CategoryDetail, len(byCategory)),
		WeightSum:      sumWeights(weights),
		AppliedSignals: presentSignals(signals),
	}

	categoryScores := make(map[string]float64, len(byCategory))
	var overallRatio float64
	var pooledAnswered, pooledTotal int

	for category, catCounts := range byCategory {
		ratio := AggregateRatio(c.cfg.NormalizeMethod, catCounts)
		adjusted := ApplyBonus(ratio, signals, c.cfg.Bonus)

		weight, ok := weights[category]
		if !ok {
			zap.L().Warn("scoring: category has no weight, excluded from overall score",
				zap.String("category", category),
				zap.Int64("company_id", companyID),
			)
			weight = 0
		}
		overallRatio += adjusted * weight
		categoryScores[category] = round1(adjusted * 100)

		var answered, total int
		for _, cc := range catCounts {
			answered += cc.Answered
			total += cc.Total
		}
		pooledAnswered += answered
		pooledTotal += total

		details.Categories[category] = model.CategoryDetail{
			Answered:          answered,
			Total:             total,
			Ratio:             ratio,
			Bonus:             adjusted - ratio,
			Weight:            weight,
			BelowCompleteness: adjusted < c.cfg.MinCompleteness,
		}
	}
	details.CompletionRate = round1(Ratio(pooledAnswered, pooledTotal) * 100)

	overall := round1(overallRatio * 100)
	snapshot := &model.ScoreSnapshot{
		CompanyID:      companyID,
		Period:         p.String(),
		Year:           p.Year,
		Quarter:        p.Quarter,
		CategoryScores: categoryScores,
		OverallScore:   overall,
		Grade:          c.classifier.Classify(overall),
		Details:        details,
		ComputedAt:     time.Now().UTC(),
	}

	if c.store != nil {
		if err := c.store.SaveSnapshot(ctx, snapshot); err != nil {
			return nil, eris.Wrapf(err, "scoring: persist snapshot for company %d period %s", companyID, snapshot.Period)
		}
	}

	zap.L().Info("scoring: computed composite score",
		zap.Int64("company_id", companyID),
		zap.String("period", snapshot.Period),
		zap.Float64("overall", overall),
		zap.String("grade", snapshot.Grade),
	)
	return snapshot, nil
}

func groupByCategory(counts []model.IndicatorCount) map[string][]model.IndicatorCount {
	byCategory := make(map[string][]model.IndicatorCount)
	for _, c := range counts {
		byCategory[c.Category] = append(byCategory[c.Category], c)
	}
	return byCategory
}

func sumWeights(weights map[string]float64) float64 {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	return sum
}

func warnWeightSum(weights map[string]float64) {
	sum := sumWeights(weights)
	if sum < weightSumLow || sum > weightSumHigh {
		zap.L().Warn("scoring: weight sum outside tolerance, proceeding anyway",
			zap.Float64("sum", sum),
		)
	}
}

func presentSignals(signals map[string]bool) []string {
	var out []string
	for name, present := range signals {
		if present {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// round1 rounds to one decimal place, the suite-wide score precision.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
