package models

import "math"

// Factor is one of the market risk factors a scenario can shock.
type Factor string

const (
	FactorEquity     Factor = "equity"
	FactorRates      Factor = "rates"
	FactorCredit     Factor = "credit"
	FactorFX         Factor = "fx"
	FactorCommodity  Factor = "commodity"
	FactorVolatility Factor = "volatility"
)

// AllFactors lists every factor in a stable order.
var AllFactors = []Factor{
	FactorEquity,
	FactorRates,
	FactorCredit,
	FactorFX,
	FactorCommodity,
	FactorVolatility,
}

// Valid reports whether f is a known factor.
func (f Factor) Valid() bool {
	switch f {
	case FactorEquity, FactorRates, FactorCredit, FactorFX, FactorCommodity, FactorVolatility:
		return true
	}
	return false
}

// ShockDivisor converts a shock in the factor's quoted unit into a fraction.
// Rates and credit are quoted in basis points, everything else in percentage points.
func (f Factor) ShockDivisor() float64 {
	switch f {
	case FactorRates, FactorCredit:
		return 10000
	default:
		return 100
	}
}

// FactorSensitivities are per-unit-shock response coefficients for one asset.
type FactorSensitivities struct {
	Equity     float64 `json:"equity"`
	Rates      float64 `json:"rates"`
	Credit     float64 `json:"credit"`
	FX         float64 `json:"fx"`
	Commodity  float64 `json:"commodity"`
	Volatility float64 `json:"volatility"`
}

// Get returns the sensitivity for a factor.
func (s FactorSensitivities) Get(f Factor) float64 {
	switch f {
	case FactorEquity:
		return s.Equity
	case FactorRates:
		return s.Rates
	case FactorCredit:
		return s.Credit
	case FactorFX:
		return s.FX
	case FactorCommodity:
		return s.Commodity
	case FactorVolatility:
		return s.Volatility
	}
	return 0
}

// ScenarioFactors holds the shocks of a scenario: equity/fx/commodity/volatility in %,
// rates/credit in basis points. Volatility is optional.
type ScenarioFactors struct {
	Equity     float64  `json:"equity"`
	Rates      float64  `json:"rates"`
	Credit     float64  `json:"credit"`
	FX         float64  `json:"fx"`
	Commodity  float64  `json:"commodity"`
	Volatility *float64 `json:"volatility,omitempty"`
}

// Shock returns the shock for a factor; an unset volatility shock is 0.
func (s ScenarioFactors) Shock(f Factor) float64 {
	switch f {
	case FactorEquity:
		return s.Equity
	case FactorRates:
		return s.Rates
	case FactorCredit:
		return s.Credit
	case FactorFX:
		return s.FX
	case FactorCommodity:
		return s.Commodity
	case FactorVolatility:
		if s.Volatility == nil {
			return 0
		}
		return *s.Volatility
	}
	return 0
}

// Active returns the factors with a nonzero shock, in AllFactors order.
func (s ScenarioFactors) Active() []Factor {
	var out []Factor
	for _, f := range AllFactors {
		if s.Shock(f) != 0 {
			out = append(out, f)
		}
	}
	return out
}

// Magnitude is the sum of absolute shocks expressed as fractions, so basis-point
// and percentage shocks are comparable.
func (s ScenarioFactors) Magnitude() float64 {
	var m float64
	for _, f := range AllFactors {
		m += math.Abs(s.Shock(f) / f.ShockDivisor())
	}
	return m
}
