// Package weights resolves effective category weights from scheme templates
// and per-company overrides.
package weights

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/greenfact/esg-cli/internal/store"
)

// Manager layers per-company weight overrides over a named scheme template.
// It satisfies the scoring calculator's WeightSource.
type Manager struct {
	store store.Store
}

func NewManager(s store.Store) *Manager {
	return &Manager{store: s}
}

// EffectiveWeights returns the company's override for the period when one
// exists, otherwise the weights of the company's assigned scheme template.
func (m *Manager) EffectiveWeights(ctx context.Context, companyID int64, period string) (map[string]float64, error) {
	override, err := m.store.CompanyWeights(ctx, companyID, period)
	if err != nil {
		return nil, eris.Wrap(err, "weights: load company override")
	}
	if override != nil {
		return override, nil
	}

	scheme, err := m.store.Scheme(ctx, companyID, period)
	if err != nil {
		return nil, eris.Wrap(err, "weights: resolve scheme")
	}
	template, err := m.store.TemplateWeights(ctx, scheme)
	if err != nil {
		return nil, eris.Wrapf(err, "weights: load template %q", scheme)
	}
	if len(template) == 0 && scheme != store.StandardScheme {
		zap.L().Warn("weights: unknown scheme, falling back to Standard",
			zap.String("scheme", scheme),
			zap.Int64("company_id", companyID),
		)
		template, err = m.store.TemplateWeights(ctx, store.StandardScheme)
		if err != nil {
			return nil, eris.Wrap(err, "weights: load standard template")
		}
	}
	if len(template) == 0 {
		return nil, eris.Errorf("weights: no template weights for scheme %q", scheme)
	}
	return template, nil
}

// SetOverride replaces individual category weights for a company and period.
// Categories absent from the map keep their previous value: the override is
// seeded from the current effective weights before the named categories are
// applied, so a first-time partial override still carries the template's
// other categories.
func (m *Manager) SetOverride(ctx context.Context, companyID int64, period string, weights map[string]float64) error {
	if len(weights) == 0 {
		return eris.New("weights: override map is empty")
	}
	for category, w := range weights {
		if w < 0 {
			return eris.Errorf("weights: negative weight %.3f for category %s", w, category)
		}
	}
	current, err := m.EffectiveWeights(ctx, companyID, period)
	if err != nil {
		return eris.Wrap(err, "weights: load current weights")
	}
	merged := make(map[string]float64, len(current)+len(weights))
	for category, w := range current {
		merged[category] = w
	}
	for category, w := range weights {
		merged[category] = w
	}
	return m.store.UpsertCompanyWeights(ctx, companyID, period, merged)
}

// SetScheme assigns a named scheme template to the company for a period.
func (m *Manager) SetScheme(ctx context.Context, companyID int64, period, scheme string) error {
	template, err := m.store.TemplateWeights(ctx, scheme)
	if err != nil {
		return eris.Wrapf(err, "weights: load template %q", scheme)
	}
	if len(template) == 0 {
		return eris.Errorf("weights: unknown scheme %q", scheme)
	}
	return m.store.SetScheme(ctx, companyID, period, scheme)
}

// ResetToTemplate copies the company's scheme template values into its
// override rows, discarding custom weights. Calling it when no override
// exists is a no-op in effect: the override afterward equals the template.
func (m *Manager) ResetToTemplate(ctx context.Context, companyID int64, period string) (map[string]float64, error) {
	scheme, err := m.store.Scheme(ctx, companyID, period)
	if err != nil {
		return nil, eris.Wrap(err, "weights: resolve scheme")
	}
	template, err := m.store.TemplateWeights(ctx, scheme)
	if err != nil {
		return nil, eris.Wrapf(err, "weights: load template %q", scheme)
	}
	if len(template) == 0 {
		return nil, eris.Errorf("weights: no template weights for scheme %q", scheme)
	}
	if err := m.store.UpsertCompanyWeights(ctx, companyID, period, template); err != nil {
		return nil, eris.Wrap(err, "weights: reset override")
	}
	return template, nil
}
