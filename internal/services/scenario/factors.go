package scenario

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/bobmcallan/vire-stress/internal/models"
)

// factorAliases maps accepted factor-change keys onto factors.
var factorAliases = map[string]models.Factor{
	"equity":         models.FactorEquity,
	"equities":       models.FactorEquity,
	"rates":          models.FactorRates,
	"interest_rates": models.FactorRates,
	"credit":         models.FactorCredit,
	"credit_spreads": models.FactorCredit,
	"fx":             models.FactorFX,
	"currency":       models.FactorFX,
	"commodity":      models.FactorCommodity,
	"commodities":    models.FactorCommodity,
	"volatility":     models.FactorVolatility,
	"vix":            models.FactorVolatility,
}

// LookupFactor resolves a factor name or alias, case-insensitively.
func LookupFactor(key string) (models.Factor, bool) {
	f, ok := factorAliases[strings.ToLower(strings.TrimSpace(key))]
	return f, ok
}

// ToFactors converts a scenario's factor-change definition into shocks.
// Keys are case-insensitive; unknown keys, duplicate factors and non-finite
// values are rejected.
func ToFactors(changes map[string]float64) (models.ScenarioFactors, error) {
	var out models.ScenarioFactors

	keys := make([]string, 0, len(changes))
	for k := range changes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	seen := make(map[models.Factor]string, len(changes))
	for _, key := range keys {
		v := changes[key]
		f, ok := LookupFactor(key)
		if !ok {
			return out, fmt.Errorf("unknown factor %q", key)
		}
		if prev, dup := seen[f]; dup {
			return out, fmt.Errorf("factor %s given twice (%q and %q)", f, prev, key)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return out, fmt.Errorf("factor %s: shock must be finite, got %v", f, v)
		}
		seen[f] = key

		switch f {
		case models.FactorEquity:
			out.Equity = v
		case models.FactorRates:
			out.Rates = v
		case models.FactorCredit:
			out.Credit = v
		case models.FactorFX:
			out.FX = v
		case models.FactorCommodity:
			out.Commodity = v
		case models.FactorVolatility:
			vol := v
			out.Volatility = &vol
		}
	}
	return out, nil
}
