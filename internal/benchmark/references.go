package benchmark

import "github.com/greenfact/esg-cli/internal/model"

// DefaultSector is the reference used when a sector has no benchmark row.
const DefaultSector = "Default"

// DefaultReferences returns the built-in industry benchmark table. These are
// seeded into the store on migration and can be overwritten with real
// sector data later.
func DefaultReferences() []model.BenchmarkReference {
	return []model.BenchmarkReference{
		{
			Sector:  "Technology",
			Overall: 65.0,
			Categories: map[string]float64{
				"Human Rights":    70.0,
				"Labour":          68.0,
				"Environment":     62.0,
				"Anti-Corruption": 75.0,
			},
		},
		{
			Sector:  "Manufacturing",
			Overall: 58.0,
			Categories: map[string]float64{
				"Human Rights":    55.0,
				"Labour":          62.0,
				"Environment":     56.0,
				"Anti-Corruption": 60.0,
			},
		},
		{
			Sector:  "Finance",
			Overall: 72.0,
			Categories: map[string]float64{
				"Human Rights":    75.0,
				"Labour":          78.0,
				"Environment":     60.0,
				"Anti-Corruption": 85.0,
			},
		},
		{
			Sector:  "Retail",
			Overall: 60.0,
			Categories: map[string]float64{
				"Human Rights":    58.0,
				"Labour":          65.0,
				"Environment":     55.0,
				"Anti-Corruption": 62.0,
			},
		},
		{
			Sector:  "Healthcare",
			Overall: 68.0,
			Categories: map[string]float64{
				"Human Rights":    72.0,
				"Labour":          70.0,
				"Environment":     60.0,
				"Anti-Corruption": 70.0,
			},
		},
		{
			Sector:  DefaultSector,
			Overall: 62.0,
			Categories: map[string]float64{
				"Human Rights":    63.0,
				"Labour":          65.0,
				"Environment":     58.0,
				"Anti-Corruption": 68.0,
			},
		},
	}
}
