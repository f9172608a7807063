package models

import (
	"fmt"
	"strings"
)

// VaRMethod names a Value-at-Risk methodology
type VaRMethod string

const (
	VaRParametric VaRMethod = "parametric"
	VaRHistorical VaRMethod = "historical"
	VaRMonteCarlo VaRMethod = "monte_carlo"
)

// AllVaRMethods lists methodologies from least to most conservative.
var AllVaRMethods = []VaRMethod{VaRParametric, VaRHistorical, VaRMonteCarlo}

// ParseVaRMethod accepts the canonical names plus common short forms.
func ParseVaRMethod(s string) (VaRMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "parametric", "variance_covariance", "normal":
		return VaRParametric, nil
	case "historical", "historical_simulation", "hist":
		return VaRHistorical, nil
	case "monte_carlo", "montecarlo", "monte-carlo", "mc":
		return VaRMonteCarlo, nil
	}
	return "", fmt.Errorf("unknown VaR method %q", s)
}

// VaRParams are the inputs shared by every methodology.
type VaRParams struct {
	ConfidenceLevel float64 `json:"confidence_level"` // e.g. 0.95
	TimeHorizon     int     `json:"time_horizon"`     // trading days
	NumSimulations  int     `json:"num_simulations"`
	LookbackYears   int     `json:"lookback_period"` // years of history, default 5
}

// VaRResult is the outcome of one VaR/CVaR computation.
// Invariant: CVaRPercentage ≥ VaRPercentage.
type VaRResult struct {
	PortfolioValue       float64   `json:"portfolio_value"`
	VaRValue             float64   `json:"var_value"`
	VaRPercentage        float64   `json:"var_percentage"` // fraction of portfolio value
	CVaRValue            float64   `json:"cvar_value"`
	CVaRPercentage       float64   `json:"cvar_percentage"`
	Method               VaRMethod `json:"method"`
	Parameters           VaRParams `json:"parameters"`
	AnnualizedVolatility float64   `json:"annualized_volatility"`
	PeriodVolatility     float64   `json:"period_volatility"`
	Estimator            string    `json:"estimator,omitempty"`
}

// ConfidenceVaR is one VaR/CVaR pair within a multi-confidence result.
type ConfidenceVaR struct {
	ConfidenceLevel float64 `json:"confidence_level"`
	ZScore          float64 `json:"z_score"`
	VaRValue        float64 `json:"var_value"`
	VaRPercentage   float64 `json:"var_percentage"`
	CVaRValue       float64 `json:"cvar_value"`
	CVaRPercentage  float64 `json:"cvar_percentage"`
}

// MultiConfidenceVaRResult runs the same methodology across several confidence levels.
type MultiConfidenceVaRResult struct {
	PortfolioValue   float64         `json:"portfolio_value"`
	Method           VaRMethod       `json:"method"`
	Parameters       VaRParams       `json:"parameters"`
	StressPeriod     string          `json:"stress_period,omitempty"`
	StressMultiplier float64         `json:"stress_multiplier"`
	Levels           []ConfidenceVaR `json:"levels"`
}
