package scoring

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Band is one grade band: scores at or above Threshold earn Label, unless a
// higher band already claimed them.
type Band struct {
	Threshold float64 `json:"threshold" yaml:"threshold" mapstructure:"threshold"`
	Label     string  `json:"label" yaml:"label" mapstructure:"label"`
}

// DefaultBands returns the A/B/C/D thresholds used by every grading call
// site in the suite (ESG composite, CDP questionnaires).
func DefaultBands() []Band {
	return []Band{
		{Threshold: 90, Label: "A"},
		{Threshold: 70, Label: "B"},
		{Threshold: 50, Label: "C"},
		{Threshold: 0, Label: "D"},
	}
}

// Classifier maps a 0-100 score to an ordinal grade using a monotonic
// top-down band table.
type Classifier struct {
	bands []Band
}

// NewClassifier validates the band table: at least one band, strictly
// decreasing thresholds (no gaps or overlaps), a final threshold of 0 so
// bands cover [0,100], and non-empty labels.
func NewClassifier(bands []Band) (*Classifier, error) {
	if len(bands) == 0 {
		return nil, eris.New("scoring: grade bands must not be empty")
	}
	var errs []string
	for i, b := range bands {
		if strings.TrimSpace(b.Label) == "" {
			errs = append(errs, "band label must not be empty")
		}
		if i > 0 && b.Threshold >= bands[i-1].Threshold {
			errs = append(errs, "band thresholds must strictly decrease")
		}
	}
	if bands[len(bands)-1].Threshold != 0 {
		errs = append(errs, "lowest band threshold must be 0 to cover the full score range")
	}
	if len(errs) > 0 {
		return nil, eris.Errorf("scoring: invalid grade bands: %s", strings.Join(errs, "; "))
	}
	out := make([]Band, len(bands))
	copy(out, bands)
	return &Classifier{bands: out}, nil
}

// MustDefaultClassifier returns a classifier over DefaultBands. The default
// table is statically valid, so no error path exists.
func MustDefaultClassifier() *Classifier {
	c, err := NewClassifier(DefaultBands())
	if err != nil {
		panic(err)
	}
	return c
}

// Classify evaluates bands top-down and returns the first label whose
// threshold the score meets. Scores below every threshold (negative input)
// fall into the lowest band.
func (c *Classifier) Classify(score float64) string {
	for _, b := range c.bands {
		if score >= b.Threshold {
			return b.Label
		}
	}
	return c.bands[len(c.bands)-1].Label
}

// Bands returns a copy of the band table.
func (c *Classifier) Bands() []Band {
	out := make([]Band, len(c.bands))
	copy(out, c.bands)
	return out
}

// gradeDescriptions follows the CDP maturity wording.
var gradeDescriptions = map[string]string{
	"A": "Leadership Level - Excellent disclosure and performance",
	"B": "Management Level - Good disclosure and performance",
	"C": "Awareness Level - Basic disclosure and performance",
	"D": "Disclosure Level - Limited disclosure and performance",
}

// GradeDescription returns the maturity description for a grade, or
// "Unknown grade" for labels outside the default table.
func GradeDescription(grade string) string {
	if d, ok := gradeDescriptions[grade]; ok {
		return d
	}
	return "Unknown grade"
}
