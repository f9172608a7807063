// Package relevance decides which market factors are material to a portfolio.
package relevance

import (
	"fmt"
	"strings"

	"github.com/bobmcallan/vire-stress/internal/common"
	"github.com/bobmcallan/vire-stress/internal/models"
)

// Defaults for the materiality and scenario overlap thresholds.
const (
	DefaultThreshold        = 0.05
	DefaultOverlapThreshold = 0.5
)

// FactorsFor returns the factors an asset class responds to.
func FactorsFor(class models.AssetClass) []models.Factor {
	switch class {
	case models.AssetClassEquity:
		return []models.Factor{models.FactorEquity}
	case models.AssetClassBond:
		return []models.Factor{models.FactorRates, models.FactorCredit}
	case models.AssetClassCommodity:
		return []models.Factor{models.FactorCommodity, models.FactorFX}
	case models.AssetClassRealEstate:
		return []models.Factor{models.FactorEquity, models.FactorRates}
	case models.AssetClassCash:
		return []models.Factor{models.FactorRates}
	case models.AssetClassAlternative:
		return []models.Factor{models.FactorEquity, models.FactorCredit, models.FactorVolatility}
	}
	return nil
}

// Filter is advisory: it hides immaterial factors and flags scenarios that
// mostly shock factors the portfolio does not hold.
type Filter struct {
	Threshold        float64
	OverlapThreshold float64
}

// NewFilter creates a Filter, substituting defaults for out-of-range values.
func NewFilter(threshold, overlap float64) *Filter {
	if threshold <= 0 || threshold >= 1 {
		threshold = DefaultThreshold
	}
	if overlap <= 0 || overlap > 1 {
		overlap = DefaultOverlapThreshold
	}
	return &Filter{Threshold: threshold, OverlapThreshold: overlap}
}

// NewFilterFromConfig creates a Filter from the risk configuration.
func NewFilterFromConfig(cfg common.RiskConfig) *Filter {
	return NewFilter(cfg.MaterialityThreshold, cfg.ScenarioOverlapThreshold)
}

// Composition returns the value-weighted share of each asset class, using
// stored prices. Every class is present; weights sum to 1, or are all zero
// for a portfolio with no value. Undeclared classes count as equity.
func Composition(p *models.Portfolio) map[models.AssetClass]float64 {
	values := make(map[models.AssetClass]float64, len(models.AllAssetClasses))
	if p != nil {
		for _, a := range p.Assets {
			class := a.AssetClass
			if !class.Valid() {
				class = models.AssetClassEquity
			}
			if v := a.Value(); v > 0 {
				values[class] += v
			}
		}
	}
	return Normalize(values)
}

// Normalize turns per-class values into weights over all asset classes.
func Normalize(values map[models.AssetClass]float64) map[models.AssetClass]float64 {
	var total float64
	for _, v := range values {
		if v > 0 {
			total += v
		}
	}
	weights := make(map[models.AssetClass]float64, len(models.AllAssetClasses))
	for _, class := range models.AllAssetClasses {
		if total > 0 && values[class] > 0 {
			weights[class] = values[class] / total
		} else {
			weights[class] = 0
		}
	}
	return weights
}

// ExposuresOf maps class weights onto factor exposures. A class contributes
// its full weight to every factor it responds to, so exposures need not sum to 1.
func ExposuresOf(weights map[models.AssetClass]float64) map[models.Factor]float64 {
	exposures := make(map[models.Factor]float64, len(models.AllFactors))
	for _, f := range models.AllFactors {
		exposures[f] = 0
	}
	for _, class := range models.AllAssetClasses {
		w := weights[class]
		if w == 0 {
			continue
		}
		for _, f := range FactorsFor(class) {
			exposures[f] += w
		}
	}
	return exposures
}

// Exposures returns per-factor exposure for a portfolio.
func (f *Filter) Exposures(p *models.Portfolio) map[models.Factor]float64 {
	return ExposuresOf(Composition(p))
}

// Relevance reports every factor with its exposure, in models.AllFactors order.
func (f *Filter) Relevance(exposures map[models.Factor]float64) []models.FactorRelevance {
	out := make([]models.FactorRelevance, 0, len(models.AllFactors))
	for _, factor := range models.AllFactors {
		e := exposures[factor]
		out = append(out, models.FactorRelevance{
			Factor:   factor,
			Exposure: e,
			Relevant: e >= f.Threshold,
		})
	}
	return out
}

// RelevantFactors reports every factor with its exposure for a portfolio.
func (f *Filter) RelevantFactors(p *models.Portfolio) []models.FactorRelevance {
	return f.Relevance(f.Exposures(p))
}

// RelevantSet returns only the factors at or above the materiality threshold.
func (f *Filter) RelevantSet(p *models.Portfolio) map[models.Factor]bool {
	return f.relevantSet(f.Exposures(p))
}

func (f *Filter) relevantSet(exposures map[models.Factor]float64) map[models.Factor]bool {
	set := make(map[models.Factor]bool)
	for _, r := range f.Relevance(exposures) {
		if r.Relevant {
			set[r.Factor] = true
		}
	}
	return set
}

// ValidateScenario checks how many of the scenario's shocked factors the
// portfolio is exposed to. Low overlap produces a warning, never an error.
func (f *Filter) ValidateScenario(p *models.Portfolio, factors models.ScenarioFactors) models.ScenarioValidation {
	return f.ValidateAgainst(f.Exposures(p), factors)
}

// ValidateAgainst is ValidateScenario over precomputed exposures.
func (f *Filter) ValidateAgainst(exposures map[models.Factor]float64, factors models.ScenarioFactors) models.ScenarioValidation {
	active := factors.Active()
	v := models.ScenarioValidation{Active: active, Relevant: []models.Factor{}, Overlap: 1}
	if len(active) == 0 {
		return v
	}

	set := f.relevantSet(exposures)
	for _, factor := range active {
		if set[factor] {
			v.Relevant = append(v.Relevant, factor)
		}
	}
	v.Overlap = float64(len(v.Relevant)) / float64(len(active))

	if v.Overlap < f.OverlapThreshold {
		names := make([]string, 0, len(active))
		for _, factor := range active {
			if !set[factor] {
				names = append(names, string(factor))
			}
		}
		v.Warning = fmt.Sprintf("scenario shocks factors the portfolio has little exposure to (%s); only %.0f%% of shocked factors are relevant",
			strings.Join(names, ", "), v.Overlap*100)
	}
	return v
}
