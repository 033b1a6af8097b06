package model

// BenchmarkReference is an external sector baseline a snapshot is compared
// against. Read-only reference data.
type BenchmarkReference struct {
	Sector     string             `json:"sector"`
	Overall    float64            `json:"overall"`
	Categories map[string]float64 `json:"categories"`
}

// CategoryComparison holds the per-category delta against a benchmark.
type CategoryComparison struct {
	CompanyScore   float64 `json:"company_score"`
	BenchmarkScore float64 `json:"benchmark_score"`
	Delta          float64 `json:"delta"`
	Position       string  `json:"position"` // Above, Below, or At
}

// Recommendation is one gap-closing suggestion produced by a benchmark
// comparison for a category scoring below its reference.
type Recommendation struct {
	Category string  `json:"category"`
	Gap      float64 `json:"gap"`
	Priority string  `json:"priority"` // High, Medium, or Low
	Advice   string  `json:"advice"`
}

// Comparison is the result of comparing a score snapshot against a sector
// benchmark.
type Comparison struct {
	CompanyID        int64                         `json:"company_id"`
	Sector           string                        `json:"sector"`
	Period           string                        `json:"period"`
	CompanyOverall   float64                       `json:"company_overall"`
	BenchmarkOverall float64                       `json:"benchmark_overall"`
	OverallDelta     float64                       `json:"overall_delta"`
	PerformanceLevel string                        `json:"performance_level"`
	Categories       map[string]CategoryComparison `json:"categories"`
	Recommendations  []Recommendation              `json:"recommendations,omitempty"`
}
