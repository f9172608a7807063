// Package stress propagates scenario factor shocks through a portfolio.
package stress

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/bobmcallan/vire-stress/internal/common"
	"github.com/bobmcallan/vire-stress/internal/interfaces"
	"github.com/bobmcallan/vire-stress/internal/metrics"
	"github.com/bobmcallan/vire-stress/internal/models"
	"github.com/bobmcallan/vire-stress/internal/services/relevance"
	"github.com/bobmcallan/vire-stress/internal/services/sensitivity"
)

const (
	// MaterialShock is the smallest shock, as a fraction, that should move a
	// portfolio exposed to the shocked factor (0.5% or 50bp).
	MaterialShock = 0.005

	// ZeroImpactTolerance is the impact, in percent of portfolio value,
	// treated as no impact at all.
	ZeroImpactTolerance = 0.001

	// CoverageThreshold is the position impact percent above which a position
	// counts as affected by the scenario.
	CoverageThreshold = 0.1

	// TailQuantile selects the tail risk percentile of position impacts.
	TailQuantile = 0.05

	// DiversificationClassTarget is the number of asset classes that earns
	// full breadth credit.
	DiversificationClassTarget = 4
)

// Engine implements StressService. Positions are processed sequentially.
type Engine struct {
	classifier interfaces.Classifier
	prices     interfaces.PriceResolver
	filter     *relevance.Filter
	metrics    *metrics.Recorder
	logger     *common.Logger
	now        func() time.Time
}

// NewEngine creates a stress engine.
// prices may be nil, in which case stored prices are used. filter and rec may be nil.
func NewEngine(classifier interfaces.Classifier, prices interfaces.PriceResolver, filter *relevance.Filter, rec *metrics.Recorder, logger *common.Logger) *Engine {
	if filter == nil {
		filter = relevance.NewFilter(relevance.DefaultThreshold, relevance.DefaultOverlapThreshold)
	}
	return &Engine{
		classifier: classifier,
		prices:     prices,
		filter:     filter,
		metrics:    rec,
		logger:     logger,
		now:        time.Now,
	}
}

// RunStressTest applies factors to every position of portfolio and aggregates
// the results. A failing position contributes a zero-impact result instead of
// aborting the run.
func (e *Engine) RunStressTest(ctx context.Context, portfolio *models.Portfolio, factors models.ScenarioFactors) (*models.PortfolioStressResult, error) {
	if portfolio == nil || len(portfolio.Assets) == 0 {
		id := ""
		if portfolio != nil {
			id = portfolio.ID
		}
		return nil, &models.EmptyPortfolioError{PortfolioID: id}
	}

	if e.prices != nil {
		e.prices.Prefetch(ctx, portfolio.Assets)
	}
	metas, _ := e.classifier.ClassifyBatch(ctx, portfolio.Symbols())

	result := &models.PortfolioStressResult{
		PositionResults:   make([]models.PositionStressResult, 0, len(portfolio.Assets)),
		AssetClassImpacts: make(map[models.AssetClass]models.AssetClassImpact),
		FactorAttribution: zeroFactors(),
		ScenarioFactors:   factors,
		CalculatedAt:      e.now(),
	}

	for i, asset := range portfolio.Assets {
		pos, err := e.stressPosition(ctx, asset, metas[i], factors)
		if err != nil {
			e.logger.Warn().Err(err).Str("symbol", asset.Symbol).Msg("Position stress failed, using zero impact")
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", asset.Symbol, err))
		}
		result.PositionResults = append(result.PositionResults, pos)
	}

	aggregate(result)
	weights := positionWeights(result)
	result.RiskMetrics = riskMetrics(result, weights)
	result.Greeks = greeks(result, weights)
	e.diagnose(result, factors)

	e.logger.Info().
		Str("portfolio_id", portfolio.ID).
		Int("positions", len(result.PositionResults)).
		Float64("portfolio_value", result.PortfolioValue).
		Float64("total_impact", result.TotalImpact).
		Float64("total_impact_pct", result.TotalImpactPercent).
		Msg("Stress test complete")

	return result, nil
}

// stressPosition computes one position. On error it still returns a valid
// zero-impact result carrying the error text.
func (e *Engine) stressPosition(ctx context.Context, asset models.Asset, meta *models.AssetMetadata, factors models.ScenarioFactors) (pos models.PositionStressResult, err error) {
	pos = models.PositionStressResult{
		Symbol:              asset.Symbol,
		AssetClass:          asset.AssetClass,
		FactorContributions: zeroFactors(),
	}
	if !pos.AssetClass.Valid() {
		pos.AssetClass = models.AssetClassEquity
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("position processing panicked: %v", r)
		}
		pos.Risk = sensitivity.RiskProfile(pos.AssetClass)
		if err != nil {
			pos.Impact = 0
			pos.ImpactPercent = 0
			pos.StressedValue = pos.CurrentValue
			pos.FactorContributions = zeroFactors()
			pos.Error = err.Error()
		}
	}()

	if strings.TrimSpace(asset.Symbol) == "" {
		return pos, fmt.Errorf("asset symbol is required")
	}
	if !finite(asset.Quantity) || asset.Quantity < 0 {
		return pos, fmt.Errorf("invalid quantity %v", asset.Quantity)
	}

	price := asset.Price
	pos.PriceSource = "stored"
	if e.prices != nil {
		price, pos.PriceSource = e.prices.ResolvePrice(ctx, asset)
	}
	if !finite(price) || price <= 0 {
		return pos, fmt.Errorf("no usable price (got %v)", price)
	}
	pos.CurrentValue = price * asset.Quantity

	sens, class := sensitivity.ForAsset(meta, asset.AssetClass)
	pos.AssetClass = class
	pos.Sensitivities = sens
	if meta != nil {
		pos.Classification = meta.Source
	}

	for _, f := range models.AllFactors {
		shock := factors.Shock(f)
		beta := sens.Get(f)
		if shock == 0 || beta == 0 {
			continue // recorded as 0 by zeroFactors
		}
		contribution := pos.CurrentValue * (shock / f.ShockDivisor()) * beta
		if !finite(contribution) {
			return pos, fmt.Errorf("non-finite %s contribution", f)
		}
		pos.FactorContributions[f] = contribution
		pos.Impact += contribution
	}

	pos.StressedValue = pos.CurrentValue + pos.Impact
	pos.ImpactPercent = percentOf(pos.Impact, pos.CurrentValue)
	return pos, nil
}

// aggregate sums position results into portfolio, class and factor totals.
func aggregate(result *models.PortfolioStressResult) {
	classes := make(map[models.AssetClass]models.AssetClassImpact)
	for _, pos := range result.PositionResults {
		result.PortfolioValue += pos.CurrentValue
		result.TotalImpact += pos.Impact
		for f, v := range pos.FactorContributions {
			result.FactorAttribution[f] += v
		}
		c := classes[pos.AssetClass]
		c.CurrentValue += pos.CurrentValue
		c.Impact += pos.Impact
		classes[pos.AssetClass] = c
	}

	result.StressedValue = result.PortfolioValue + result.TotalImpact
	result.TotalImpactPercent = percentOf(result.TotalImpact, result.PortfolioValue)

	for class, c := range classes {
		c.StressedValue = c.CurrentValue + c.Impact
		c.ImpactPercent = percentOf(c.Impact, c.CurrentValue)
		if result.PortfolioValue > 0 {
			c.Weight = c.CurrentValue / result.PortfolioValue
		}
		result.AssetClassImpacts[class] = c
	}
}

// positionWeights returns each position's share of portfolio value. A
// portfolio with no value is treated as equally weighted.
func positionWeights(result *models.PortfolioStressResult) []float64 {
	n := len(result.PositionResults)
	weights := make([]float64, n)
	for i, pos := range result.PositionResults {
		if result.PortfolioValue > 0 {
			weights[i] = pos.CurrentValue / result.PortfolioValue
		} else {
			weights[i] = 1 / float64(n)
		}
	}
	return weights
}

// riskMetrics computes concentration, diversification, coverage and tail risk.
func riskMetrics(result *models.PortfolioStressResult, weights []float64) models.RiskMetrics {
	m := models.RiskMetrics{
		LeverageEffect:   1.0,
		VolatilityImpact: math.Abs(result.ScenarioFactors.Shock(models.FactorVolatility)) / 100,
	}
	n := len(result.PositionResults)
	if n == 0 {
		return m
	}

	var hhi float64
	for _, w := range weights {
		hhi += w * w
	}
	m.Concentration = hhi

	distinct := 0
	for _, c := range result.AssetClassImpacts {
		if c.CurrentValue > 0 {
			distinct++
		}
	}
	breadth := math.Min(1, float64(distinct)/DiversificationClassTarget)
	m.Diversification = math.Max(0, 1-hhi) * breadth

	impacts := make([]float64, n)
	affected := 0
	for i, pos := range result.PositionResults {
		impacts[i] = pos.ImpactPercent
		if math.Abs(pos.ImpactPercent) > CoverageThreshold {
			affected++
		}
	}
	m.Coverage = float64(affected) / float64(n)

	sort.Float64s(impacts)
	m.TailRisk = percentile(impacts, TailQuantile)
	return m
}

// greeks summarises the portfolio's first-order factor exposure.
func greeks(result *models.PortfolioStressResult, weights []float64) models.Greeks {
	g := models.Greeks{Vega: result.RiskMetrics.VolatilityImpact}
	n := len(result.PositionResults)
	if n == 0 {
		return g
	}

	equity := make([]float64, n)
	rates := make([]float64, n)
	impacts := make([]float64, n)
	for i, pos := range result.PositionResults {
		equity[i] = pos.Sensitivities.Equity
		rates[i] = pos.Sensitivities.Rates
		impacts[i] = pos.ImpactPercent
	}

	g.Delta = stat.Mean(equity, weights)
	g.Gamma = 0.1 * g.Delta
	g.Theta = 0.01 * stat.Mean(impacts, weights)
	g.Rho = stat.Mean(rates, weights)
	return g
}

// percentile returns the p-quantile of sorted values, interpolating linearly
// between the closest ranks at position p×(n-1).
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	return sorted[lo] + (pos-float64(lo))*(sorted[hi]-sorted[lo])
}

// diagnose flags a result whose material shocks on relevant factors produced
// no impact, and adds the scenario overlap warning.
func (e *Engine) diagnose(result *models.PortfolioStressResult, factors models.ScenarioFactors) {
	values := make(map[models.AssetClass]float64, len(result.AssetClassImpacts))
	for class, c := range result.AssetClassImpacts {
		values[class] = c.CurrentValue
	}
	exposures := relevance.ExposuresOf(relevance.Normalize(values))

	validation := e.filter.ValidateAgainst(exposures, factors)
	if validation.Warning != "" {
		result.Warnings = append(result.Warnings, validation.Warning)
	}

	if result.PortfolioValue <= 0 || math.Abs(result.TotalImpactPercent) > ZeroImpactTolerance {
		return
	}

	var shocked []string
	for _, f := range validation.Relevant {
		if math.Abs(factors.Shock(f)/f.ShockDivisor()) >= MaterialShock {
			shocked = append(shocked, string(f))
		}
	}
	if len(shocked) == 0 {
		return
	}

	result.SuspiciousZeroImpact = true
	msg := fmt.Sprintf("material shocks on relevant factors (%s) produced no portfolio impact; check sensitivities",
		strings.Join(shocked, ", "))
	result.Warnings = append(result.Warnings, msg)
	e.metrics.SuspiciousZeroImpact()
	e.logger.Warn().
		Strs("factors", shocked).
		Float64("portfolio_value", result.PortfolioValue).
		Float64("total_impact", result.TotalImpact).
		Msg("Suspicious zero impact")
}

func zeroFactors() map[models.Factor]float64 {
	m := make(map[models.Factor]float64, len(models.AllFactors))
	for _, f := range models.AllFactors {
		m[f] = 0
	}
	return m
}

func percentOf(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * 100
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Ensure Engine implements StressService
var _ interfaces.StressService = (*Engine)(nil)
