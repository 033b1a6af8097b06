package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyBonus(t *testing.T) {
	cfg := DefaultBonusConfig()

	tests := []struct {
		name    string
		ratio   float64
		signals map[string]bool
		want    float64
	}{
		{"no signals", 0.6, nil, 0.6},
		{"evidence only", 0.6, map[string]bool{SignalEvidence: true}, 0.65},
		{"materiality only", 0.6, map[string]bool{SignalMateriality: true}, 0.7},
		{"both signals", 0.6, map[string]bool{SignalEvidence: true, SignalMateriality: true}, 0.75},
		{"absent signal ignored", 0.6, map[string]bool{SignalEvidence: false}, 0.6},
		{"unconfigured signal ignored", 0.6, map[string]bool{"has_unicorns": true}, 0.6},
		{"clamped at one", 0.97, map[string]bool{SignalEvidence: true}, 1.0},
		{"already full", 1.0, map[string]bool{SignalMateriality: true}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ApplyBonus(tt.ratio, tt.signals, cfg), 1e-9)
		})
	}
}

func TestApplyBonusCustomValue(t *testing.T) {
	cfg := BonusConfig{Signals: map[string]float64{SignalEvidence: 0.1}}
	assert.InDelta(t, 1.0, ApplyBonus(0.97, map[string]bool{SignalEvidence: true}, cfg), 1e-9)
}

func TestApplyBonusNeverBelowZero(t *testing.T) {
	cfg := BonusConfig{Signals: map[string]float64{"penalty": -0.5}}
	assert.Equal(t, 0.0, ApplyBonus(0.2, map[string]bool{"penalty": true}, cfg))
}

func TestBonusTotal(t *testing.T) {
	cfg := DefaultBonusConfig()
	total := BonusTotal(map[string]bool{SignalEvidence: true, SignalMateriality: true}, cfg)
	assert.InDelta(t, 0.15, total, 1e-9)
	assert.Equal(t, 0.0, BonusTotal(nil, cfg))
}
