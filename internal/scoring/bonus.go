package scoring

// Signal names with configured default bonuses. Additional signals (e.g.
// per-module data-availability flags) may be added through config.
const (
	SignalEvidence    = "evidence"
	SignalMateriality = "materiality"
)

// BonusConfig maps signal names to the additive bonus each contributes when
// present. Values are fractions of the 0-1 ratio scale.
type BonusConfig struct {
	Signals map[string]float64
}

// DefaultBonusConfig returns the standard evidence/materiality bonuses.
func DefaultBonusConfig() BonusConfig {
	return BonusConfig{
		Signals: map[string]float64{
			SignalEvidence:    0.05,
			SignalMateriality: 0.10,
		},
	}
}

// ApplyBonus adds the configured bonus for each present signal to ratio and
// clamps the result to [0,1]. Signals arrive as already-evaluated booleans;
// the engine never touches storage. A signal contributes at most once
// regardless of how many auxiliary rows produced it, and signals without a
// configured bonus contribute nothing.
func ApplyBonus(ratio float64, signals map[string]bool, cfg BonusConfig) float64 {
	adjusted := ratio
	for name, present := range signals {
		if !present {
			continue
		}
		adjusted += cfg.Signals[name]
	}
	if adjusted > 1.0 {
		return 1.0
	}
	if adjusted < 0.0 {
		return 0.0
	}
	return adjusted
}

// BonusTotal returns the total bonus the present signals would contribute,
// before clamping. Used for snapshot details.
func BonusTotal(signals map[string]bool, cfg BonusConfig) float64 {
	var total float64
	for name, present := range signals {
		if present {
			total += cfg.Signals[name]
		}
	}
	return total
}
