package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/vire-stress/internal/models"
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

// money rounds a currency amount to cents for display.
func money(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// roundStressResult rounds the currency fields of a result in place.
// Percentages and attributions are left at full precision.
func roundStressResult(r *models.PortfolioStressResult) {
	if r == nil {
		return
	}
	r.PortfolioValue = money(r.PortfolioValue)
	r.StressedValue = money(r.StressedValue)
	r.TotalImpact = money(r.TotalImpact)
	for i := range r.PositionResults {
		p := &r.PositionResults[i]
		p.CurrentValue = money(p.CurrentValue)
		p.StressedValue = money(p.StressedValue)
		p.Impact = money(p.Impact)
		for f, v := range p.FactorContributions {
			p.FactorContributions[f] = money(v)
		}
	}
	for class, impact := range r.AssetClassImpacts {
		impact.CurrentValue = money(impact.CurrentValue)
		impact.StressedValue = money(impact.StressedValue)
		impact.Impact = money(impact.Impact)
		r.AssetClassImpacts[class] = impact
	}
	for f, v := range r.FactorAttribution {
		r.FactorAttribution[f] = money(v)
	}
}

func roundVaRResult(r *models.VaRResult) {
	r.PortfolioValue = money(r.PortfolioValue)
	r.VaRValue = money(r.VaRValue)
	r.CVaRValue = money(r.CVaRValue)
}

func roundMultiConfidence(r *models.MultiConfidenceVaRResult) {
	r.PortfolioValue = money(r.PortfolioValue)
	for i := range r.Levels {
		r.Levels[i].VaRValue = money(r.Levels[i].VaRValue)
		r.Levels[i].CVaRValue = money(r.Levels[i].CVaRValue)
	}
}

// roundPerformance rounds ratios and percentages to two places.
func roundPerformance(r *models.PerformanceMetrics) {
	r.AnnualReturn = money(r.AnnualReturn)
	r.Volatility = money(r.Volatility)
	r.SharpeRatio = money(r.SharpeRatio)
	r.Beta = money(r.Beta)
	r.MaxDrawdown = money(r.MaxDrawdown)
	r.DownsideDeviation = money(r.DownsideDeviation)
	if r.SortinoRatio != nil {
		v := money(*r.SortinoRatio)
		r.SortinoRatio = &v
	}
}
