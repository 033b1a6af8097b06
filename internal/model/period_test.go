package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		name        string
		in          string
		wantYear    int
		wantQuarter int
		wantErr     bool
	}{
		{"full year", "2025", 2025, 0, false},
		{"explicit quarter", "2025-Q3", 2025, 3, false},
		{"month january", "2025-01", 2025, 1, false},
		{"month march", "2025-03", 2025, 1, false},
		{"month april", "2025-04", 2025, 2, false},
		{"month december", "2025-12", 2025, 4, false},
		{"invalid month", "2025-13", 0, 0, true},
		{"garbage", "last year", 0, 0, true},
		{"quarter out of range", "2025-Q5", 0, 0, true},
		{"empty", "", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePeriod(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantYear, p.Year)
			assert.Equal(t, tt.wantQuarter, p.Quarter)
		})
	}
}

func TestPeriodString(t *testing.T) {
	assert.Equal(t, "2025", Period{Year: 2025}.String())
	assert.Equal(t, "2025-Q2", Period{Year: 2025, Quarter: 2}.String())
}

func TestPeriodBefore(t *testing.T) {
	assert.True(t, Period{Year: 2024, Quarter: 4}.Before(Period{Year: 2025, Quarter: 1}))
	assert.True(t, Period{Year: 2025}.Before(Period{Year: 2025, Quarter: 1}))
	assert.False(t, Period{Year: 2025, Quarter: 2}.Before(Period{Year: 2025, Quarter: 2}))
}
