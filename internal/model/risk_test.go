package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelValue(t *testing.T) {
	tests := []struct {
		level Level
		want  int
	}{
		{LevelLow, 1},
		{LevelMedium, 2},
		{LevelHigh, 3},
		{LevelCritical, 4},
		{Level("Severe"), 1}, // unrecognized falls back to 1
		{Level(""), 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.level.Value(), "level %q", tt.level)
	}
}

func TestLevelSortRank(t *testing.T) {
	// Critical > High > Medium > Low, unrecognized last.
	assert.Less(t, LevelCritical.SortRank(), LevelHigh.SortRank())
	assert.Less(t, LevelHigh.SortRank(), LevelMedium.SortRank())
	assert.Less(t, LevelMedium.SortRank(), LevelLow.SortRank())
	assert.Less(t, LevelLow.SortRank(), Level("Unknown").SortRank())
}

func TestLevelKnown(t *testing.T) {
	assert.True(t, LevelCritical.Known())
	assert.False(t, Level("Severe").Known())
}
