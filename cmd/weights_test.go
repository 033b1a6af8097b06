package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeightPairs(t *testing.T) {
	out, err := parseWeightPairs([]string{
		"Environmental=0.5",
		"Social=0.25",
		" Governance = 0.25 ",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{
		"Environmental": 0.5,
		"Social":        0.25,
		"Governance":    0.25,
	}, out)
}

func TestParseWeightPairsErrors(t *testing.T) {
	tests := []struct {
		name  string
		pairs []string
	}{
		{"empty", nil},
		{"no equals", []string{"Environmental"}},
		{"empty category", []string{"=0.5"}},
		{"bad number", []string{"Environmental=heavy"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseWeightPairs(tt.pairs)
			assert.Error(t, err)
		})
	}
}
