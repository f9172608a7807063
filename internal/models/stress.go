package models

import "time"

// PositionStressResult is the stressed outcome of a single position.
// Invariants: sum(FactorContributions) == Impact and StressedValue == CurrentValue + Impact.
type PositionStressResult struct {
	Symbol              string               `json:"symbol"`
	AssetClass          AssetClass           `json:"asset_class"`
	CurrentValue        float64              `json:"current_value"`
	StressedValue       float64              `json:"stressed_value"`
	Impact              float64              `json:"impact"`
	ImpactPercent       float64              `json:"impact_percent"`
	FactorContributions map[Factor]float64   `json:"factor_contributions"`
	Sensitivities       FactorSensitivities  `json:"sensitivities"`
	Risk                AssetRiskProfile     `json:"risk_profile"`
	Classification      ClassificationSource `json:"classification_source,omitempty"`
	PriceSource         string               `json:"price_source,omitempty"` // "live", "cache" or "stored"
	Error               string               `json:"error,omitempty"`        // set when the position fell back to zero impact
}

// AssetRiskProfile holds the per-class risk characteristics of a position.
type AssetRiskProfile struct {
	Volatility  float64 `json:"volatility"`  // annual, as a fraction
	Correlation float64 `json:"correlation"` // with the broad equity market
	Liquidity   float64 `json:"liquidity"`   // 0 (illiquid) to 1 (cash)
}

// AssetClassImpact aggregates position results for one asset class.
type AssetClassImpact struct {
	CurrentValue  float64 `json:"current_value"`
	StressedValue float64 `json:"stressed_value"`
	Impact        float64 `json:"impact"`
	ImpactPercent float64 `json:"impact_percent"` // relative to the class's own current value
	Weight        float64 `json:"weight"`         // class share of portfolio value
}

// RiskMetrics summarises concentration and breadth of a stressed portfolio.
type RiskMetrics struct {
	Concentration    float64 `json:"concentration"`     // HHI over position weights, in [1/n, 1]
	Diversification  float64 `json:"diversification"`   // in [0, 1]
	LeverageEffect   float64 `json:"leverage_effect"`   // reserved for margin/derivative exposure, always 1.0
	Coverage         float64 `json:"coverage"`          // share of positions with |impact%| > 0.1
	TailRisk         float64 `json:"tail_risk"`         // 5th percentile of position impact %, linearly interpolated
	VolatilityImpact float64 `json:"volatility_impact"` // |volatility shock| as a fraction
}

// Greeks are first-order portfolio sensitivities derived from position factor
// betas. They describe the linear model, not option positions.
type Greeks struct {
	Delta float64 `json:"delta"` // value-weighted equity beta
	Gamma float64 `json:"gamma"` // convexity proxy, 0.1 × Delta
	Theta float64 `json:"theta"` // value-weighted impact %, scaled by 0.01
	Vega  float64 `json:"vega"`  // |volatility shock| as a fraction
	Rho   float64 `json:"rho"`   // value-weighted rates beta
}

// PortfolioStressResult is the aggregated outcome of a stress test.
// Invariants: PortfolioValue == Σ CurrentValue and TotalImpact == Σ Impact over PositionResults.
type PortfolioStressResult struct {
	PortfolioValue       float64                         `json:"portfolio_value"`
	StressedValue        float64                         `json:"stressed_value"`
	TotalImpact          float64                         `json:"total_impact"`
	TotalImpactPercent   float64                         `json:"total_impact_percent"`
	PositionResults      []PositionStressResult          `json:"position_results"`
	AssetClassImpacts    map[AssetClass]AssetClassImpact `json:"asset_class_impacts"`
	FactorAttribution    map[Factor]float64              `json:"factor_attribution"`
	RiskMetrics          RiskMetrics                     `json:"risk_metrics"`
	Greeks               Greeks                          `json:"greeks"`
	ScenarioFactors      ScenarioFactors                 `json:"scenario_factors"`
	SuspiciousZeroImpact bool                            `json:"suspicious_zero_impact"`
	Warnings             []string                        `json:"warnings,omitempty"`
	CalculatedAt         time.Time                       `json:"calculated_at"`
}
