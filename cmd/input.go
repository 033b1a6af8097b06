package main

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/greenfact/esg-cli/internal/model"
)

// ScoreInput is the YAML document the score command reads: one company's
// indicator counts for one period, plus the bonus signals already evaluated
// by the reporting pipeline.
type ScoreInput struct {
	CompanyID int64                  `yaml:"company_id"`
	Period    string                 `yaml:"period"`
	Signals   []string               `yaml:"signals"`
	Counts    []model.IndicatorCount `yaml:"counts"`
}

// BatchInput holds multiple score inputs for batch processing.
type BatchInput struct {
	Companies []ScoreInput `yaml:"companies"`
}

// applyMappings fills missing categories from the configured source to
// category routing. Runs before validation so a count carrying only a
// mapped source name still passes.
func (in *ScoreInput) applyMappings(sourceCategories map[string]string) {
	if len(sourceCategories) == 0 {
		return
	}
	for i, c := range in.Counts {
		if c.Category == "" {
			if category, ok := sourceCategories[c.Source]; ok {
				in.Counts[i].Category = category
			}
		}
	}
}

func (in *ScoreInput) validate() error {
	if in.CompanyID <= 0 {
		return eris.New("input: company_id must be > 0")
	}
	if in.Period == "" {
		return eris.New("input: period is required")
	}
	if len(in.Counts) == 0 {
		return eris.New("input: at least one indicator count is required")
	}
	for i, c := range in.Counts {
		if c.Category == "" {
			return eris.Errorf("input: counts[%d] has no category", i)
		}
		if c.Answered < 0 || c.Total < 0 {
			return eris.Errorf("input: counts[%d] has negative counts", i)
		}
		if c.Answered > c.Total {
			return eris.Errorf("input: counts[%d] answered %d exceeds total %d", i, c.Answered, c.Total)
		}
	}
	return nil
}

// signalMap converts the signal name list into the form the calculator takes.
func (in *ScoreInput) signalMap() map[string]bool {
	if len(in.Signals) == 0 {
		return nil
	}
	m := make(map[string]bool, len(in.Signals))
	for _, s := range in.Signals {
		m[s] = true
	}
	return m
}

func loadScoreInput(path string, sourceCategories map[string]string) (*ScoreInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "input: read %s", path)
	}
	var in ScoreInput
	if err := yaml.Unmarshal(data, &in); err != nil {
		return nil, eris.Wrapf(err, "input: parse %s", path)
	}
	in.applyMappings(sourceCategories)
	if err := in.validate(); err != nil {
		return nil, err
	}
	return &in, nil
}

func loadBatchInput(path string, sourceCategories map[string]string) (*BatchInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "input: read %s", path)
	}
	var in BatchInput
	if err := yaml.Unmarshal(data, &in); err != nil {
		return nil, eris.Wrapf(err, "input: parse %s", path)
	}
	if len(in.Companies) == 0 {
		return nil, eris.New("input: batch file has no companies")
	}
	for i := range in.Companies {
		in.Companies[i].applyMappings(sourceCategories)
		if err := in.Companies[i].validate(); err != nil {
			return nil, eris.Wrapf(err, "input: companies[%d]", i)
		}
	}
	return &in, nil
}
