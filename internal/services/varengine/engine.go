// Package varengine computes Value-at-Risk and Conditional VaR under the
// parametric, historical-simulation and Monte-Carlo methodologies.
package varengine

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/bobmcallan/vire-stress/internal/common"
	"github.com/bobmcallan/vire-stress/internal/interfaces"
	"github.com/bobmcallan/vire-stress/internal/models"
)

// DefaultZScore applies to confidence levels without a table entry.
const DefaultZScore = 1.645

var zScores = map[float64]float64{
	0.90:  1.282,
	0.95:  1.645,
	0.99:  2.326,
	0.995: 2.58,
}

// DefaultLevels are used by ComputeMultiConfidence when no levels are given.
var DefaultLevels = []float64{0.90, 0.95, 0.99}

// methodMultiplier and cvarRatio are ordered parametric ≤ historical ≤ Monte-Carlo.
var (
	methodMultiplier = map[models.VaRMethod]float64{
		models.VaRParametric: 1.00,
		models.VaRHistorical: 1.05,
		models.VaRMonteCarlo: 1.10,
	}
	cvarRatio = map[models.VaRMethod]float64{
		models.VaRParametric: 1.30,
		models.VaRHistorical: 1.35,
		models.VaRMonteCarlo: 1.40,
	}
)

// stressPeriods scale volatility to a named historical crisis.
var stressPeriods = map[string]float64{
	"2008_gfc":    2.0,
	"2020_covid":  1.8,
	"2000_dotcom": 1.5,
	"2022_rates":  1.3,
}

// ZScore maps a confidence level to its one-sided normal z-score.
func ZScore(confidence float64) float64 {
	for level, z := range zScores {
		if math.Abs(confidence-level) < 1e-9 {
			return z
		}
	}
	return DefaultZScore
}

// StressMultiplier returns the volatility multiplier for a named stress
// period. An empty name means no stress (1.0).
func StressMultiplier(period string) (float64, error) {
	p := strings.ToLower(strings.TrimSpace(period))
	if p == "" {
		return 1.0, nil
	}
	m, ok := stressPeriods[p]
	if !ok {
		return 0, fmt.Errorf("unknown stress period %q", period)
	}
	return m, nil
}

// StressPeriods lists the known stress period names.
func StressPeriods() []string {
	return []string{"2000_dotcom", "2008_gfc", "2020_covid", "2022_rates"}
}

// Engine implements VaRService.
type Engine struct {
	estimator VolatilityEstimator
	prices    interfaces.PriceResolver
	defaults  common.RiskConfig
	logger    *common.Logger
}

// NewEngine creates a VaR engine. estimator defaults to ConstantEstimator;
// prices may be nil, in which case stored prices value the portfolio.
func NewEngine(estimator VolatilityEstimator, prices interfaces.PriceResolver, defaults common.RiskConfig, logger *common.Logger) *Engine {
	if estimator == nil {
		estimator = ConstantEstimator{}
	}
	return &Engine{
		estimator: estimator,
		prices:    prices,
		defaults:  defaults,
		logger:    logger,
	}
}

// ComputeVaR computes VaR and CVaR for one methodology.
func (e *Engine) ComputeVaR(ctx context.Context, portfolio *models.Portfolio, method models.VaRMethod, params models.VaRParams) (*models.VaRResult, error) {
	params, err := e.normalize(params)
	if err != nil {
		return nil, err
	}
	value, err := e.portfolioValue(ctx, portfolio)
	if err != nil {
		return nil, err
	}
	return e.compute(ctx, value, method, params)
}

// ComputeAll computes every methodology, least to most conservative.
func (e *Engine) ComputeAll(ctx context.Context, portfolio *models.Portfolio, params models.VaRParams) ([]*models.VaRResult, error) {
	params, err := e.normalize(params)
	if err != nil {
		return nil, err
	}
	value, err := e.portfolioValue(ctx, portfolio)
	if err != nil {
		return nil, err
	}

	results := make([]*models.VaRResult, 0, len(models.AllVaRMethods))
	for _, method := range models.AllVaRMethods {
		r, err := e.compute(ctx, value, method, params)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}

// ComputeMultiConfidence runs one methodology across several confidence
// levels, optionally scaled to a named stress period.
func (e *Engine) ComputeMultiConfidence(ctx context.Context, portfolio *models.Portfolio, method models.VaRMethod, params models.VaRParams, levels []float64, stressPeriod string) (*models.MultiConfidenceVaRResult, error) {
	params, err := e.normalize(params)
	if err != nil {
		return nil, err
	}
	multiplier, err := StressMultiplier(stressPeriod)
	if err != nil {
		return nil, err
	}
	if len(levels) == 0 {
		levels = DefaultLevels
	}
	for _, level := range levels {
		if err := validateConfidence(level); err != nil {
			return nil, err
		}
	}
	value, err := e.portfolioValue(ctx, portfolio)
	if err != nil {
		return nil, err
	}

	annual, err := e.volatility(ctx, method, params.LookbackYears)
	if err != nil {
		return nil, err
	}
	periodVol := periodVolatility(annual*multiplier, params.TimeHorizon)

	result := &models.MultiConfidenceVaRResult{
		PortfolioValue:   value,
		Method:           method,
		Parameters:       params,
		StressPeriod:     strings.ToLower(strings.TrimSpace(stressPeriod)),
		StressMultiplier: multiplier,
		Levels:           make([]models.ConfidenceVaR, 0, len(levels)),
	}
	for _, level := range levels {
		z := ZScore(level)
		varPct, cvarPct := varPercentages(periodVol, z, method)
		result.Levels = append(result.Levels, models.ConfidenceVaR{
			ConfidenceLevel: level,
			ZScore:          z,
			VaRValue:        value * varPct,
			VaRPercentage:   varPct,
			CVaRValue:       value * cvarPct,
			CVaRPercentage:  cvarPct,
		})
	}
	return result, nil
}

func (e *Engine) compute(ctx context.Context, value float64, method models.VaRMethod, params models.VaRParams) (*models.VaRResult, error) {
	annual, err := e.volatility(ctx, method, params.LookbackYears)
	if err != nil {
		return nil, err
	}
	periodVol := periodVolatility(annual, params.TimeHorizon)
	varPct, cvarPct := varPercentages(periodVol, ZScore(params.ConfidenceLevel), method)

	e.logger.Debug().
		Str("method", string(method)).
		Float64("confidence", params.ConfidenceLevel).
		Int("horizon", params.TimeHorizon).
		Float64("annual_vol", annual).
		Float64("var_pct", varPct).
		Msg("VaR computed")

	return &models.VaRResult{
		PortfolioValue:       value,
		VaRValue:             value * varPct,
		VaRPercentage:        varPct,
		CVaRValue:            value * cvarPct,
		CVaRPercentage:       cvarPct,
		Method:               method,
		Parameters:           params,
		AnnualizedVolatility: annual,
		PeriodVolatility:     periodVol,
		Estimator:            e.estimator.Name(),
	}, nil
}

func (e *Engine) volatility(ctx context.Context, method models.VaRMethod, lookback int) (float64, error) {
	if _, ok := methodMultiplier[method]; !ok {
		return 0, fmt.Errorf("unknown VaR method %q", method)
	}
	v, err := e.estimator.AnnualizedVolatility(ctx, method, lookback)
	if err != nil {
		return 0, fmt.Errorf("volatility estimate for %s: %w", method, err)
	}
	return v, nil
}

// varPercentages returns VaR and CVaR as fractions of portfolio value, capped
// at a total loss.
func varPercentages(periodVol, z float64, method models.VaRMethod) (float64, float64) {
	varPct := math.Min(1, periodVol*z*methodMultiplier[method])
	cvarPct := math.Min(1, varPct*cvarRatio[method])
	return varPct, cvarPct
}

func periodVolatility(annual float64, horizonDays int) float64 {
	return annual * math.Sqrt(float64(horizonDays)/TradingDaysPerYear)
}

// normalize fills zero-valued parameters from the configured defaults and
// rejects out-of-range values.
func (e *Engine) normalize(p models.VaRParams) (models.VaRParams, error) {
	if p.ConfidenceLevel == 0 {
		p.ConfidenceLevel = e.defaults.DefaultConfidence
		if p.ConfidenceLevel == 0 {
			p.ConfidenceLevel = 0.95
		}
	}
	if err := validateConfidence(p.ConfidenceLevel); err != nil {
		return p, err
	}
	if p.TimeHorizon == 0 {
		p.TimeHorizon = max(e.defaults.DefaultTimeHorizon, 1)
	}
	if p.TimeHorizon < 1 {
		return p, fmt.Errorf("time horizon must be at least 1 trading day, got %d", p.TimeHorizon)
	}
	if p.NumSimulations == 0 {
		p.NumSimulations = max(e.defaults.DefaultSimulations, 1)
	}
	if p.NumSimulations < 0 {
		return p, fmt.Errorf("number of simulations must be positive, got %d", p.NumSimulations)
	}
	if p.LookbackYears == 0 {
		p.LookbackYears = e.defaults.DefaultLookbackYears
		if p.LookbackYears == 0 {
			p.LookbackYears = 5
		}
	}
	if p.LookbackYears < 0 {
		return p, fmt.Errorf("lookback period must be positive, got %d years", p.LookbackYears)
	}
	return p, nil
}

func validateConfidence(c float64) error {
	if math.IsNaN(c) || c <= 0 || c >= 1 {
		return fmt.Errorf("confidence level must be between 0 and 1 exclusive, got %v", c)
	}
	return nil
}

// portfolioValue values the portfolio at resolved prices. Positions without a
// usable price or quantity are skipped.
func (e *Engine) portfolioValue(ctx context.Context, p *models.Portfolio) (float64, error) {
	if p == nil || len(p.Assets) == 0 {
		id := ""
		if p != nil {
			id = p.ID
		}
		return 0, &models.EmptyPortfolioError{PortfolioID: id}
	}

	if e.prices != nil {
		e.prices.Prefetch(ctx, p.Assets)
	}

	var total float64
	for _, a := range p.Assets {
		price := a.Price
		if e.prices != nil {
			price, _ = e.prices.ResolvePrice(ctx, a)
		}
		v := price * a.Quantity
		if math.IsNaN(v) || math.IsInf(v, 0) || price <= 0 || a.Quantity < 0 {
			e.logger.Warn().Str("symbol", a.Symbol).Msg("Skipping position without a usable value")
			continue
		}
		total += v
	}
	return total, nil
}

// Ensure Engine implements VaRService
var _ interfaces.VaRService = (*Engine)(nil)
