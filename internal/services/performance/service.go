// Package performance measures historical return and risk ratios of a
// portfolio held at its current weights.
package performance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/bobmcallan/vire-stress/internal/common"
	"github.com/bobmcallan/vire-stress/internal/interfaces"
	"github.com/bobmcallan/vire-stress/internal/models"
)

const (
	// TradingDaysPerYear annualises daily figures.
	TradingDaysPerYear = 252

	// MinObservations is the fewest aligned daily returns worth measuring.
	MinObservations = 20

	fetchConcurrency = 4
)

// ErrNoHistory is returned when no price history can be obtained.
var ErrNoHistory = errors.New("no price history available")

// Service computes PerformanceMetrics from end-of-day history.
type Service struct {
	history   interfaces.HistoryProvider
	prices    interfaces.PriceResolver
	benchmark string
	riskFree  float64
	lookback  int
	logger    *common.Logger
	now       func() time.Time
}

// NewService creates a performance service. prices may be nil, in which case
// stored prices set the weights.
func NewService(history interfaces.HistoryProvider, prices interfaces.PriceResolver, cfg common.RiskConfig, logger *common.Logger) *Service {
	return &Service{
		history:   history,
		prices:    prices,
		benchmark: cfg.Benchmark,
		riskFree:  cfg.RiskFreeRate,
		lookback:  cfg.DefaultLookbackYears,
		logger:    logger,
		now:       time.Now,
	}
}

// Analyze measures the portfolio over lookbackYears of daily history; zero or
// less uses the configured default. Holdings without usable history are
// priced with the benchmark's history and listed in ProxiedSymbols.
func (s *Service) Analyze(ctx context.Context, portfolio *models.Portfolio, lookbackYears int) (*models.PerformanceMetrics, error) {
	if portfolio == nil || len(portfolio.Assets) == 0 {
		id := ""
		if portfolio != nil {
			id = portfolio.ID
		}
		return nil, &models.EmptyPortfolioError{PortfolioID: id}
	}
	if s.history == nil {
		return nil, fmt.Errorf("%w: no history provider configured", ErrNoHistory)
	}
	if lookbackYears <= 0 {
		lookbackYears = s.lookback
	}

	weights, err := s.weights(ctx, portfolio)
	if err != nil {
		return nil, err
	}

	to := s.now()
	from := to.AddDate(-lookbackYears, 0, 0)

	market, err := s.closes(ctx, s.benchmark, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: benchmark %s: %v", ErrNoHistory, s.benchmark, err)
	}

	series := make([]map[time.Time]float64, len(portfolio.Assets))
	failed := make([]error, len(portfolio.Assets))
	var g errgroup.Group
	g.SetLimit(fetchConcurrency)
	for i, asset := range portfolio.Assets {
		g.Go(func() error {
			series[i], failed[i] = s.closes(ctx, asset.Symbol, from, to)
			return nil
		})
	}
	_ = g.Wait() // per-symbol failures fall back to the benchmark

	result := &models.PerformanceMetrics{
		PortfolioID:  portfolio.ID,
		Benchmark:    s.benchmark,
		RiskFreeRate: s.riskFree,
		CalculatedAt: to,
	}
	for i, asset := range portfolio.Assets {
		if failed[i] != nil {
			s.logger.Warn().Err(failed[i]).
				Str("symbol", asset.Symbol).
				Str("benchmark", s.benchmark).
				Msg("No usable history, using benchmark as proxy")
			series[i] = market
			result.ProxiedSymbols = append(result.ProxiedSymbols, asset.Symbol)
		}
	}

	dates := commonDates(market, series)
	if len(dates) < MinObservations+1 {
		return nil, fmt.Errorf("%w: %d aligned trading days, need %d", ErrNoHistory, len(dates), MinObservations+1)
	}

	portfolioReturns := make([]float64, len(dates)-1)
	marketReturns := make([]float64, len(dates)-1)
	for d := 1; d < len(dates); d++ {
		prev, cur := dates[d-1], dates[d]
		marketReturns[d-1] = market[cur]/market[prev] - 1
		for i, closes := range series {
			portfolioReturns[d-1] += weights[i] * (closes[cur]/closes[prev] - 1)
		}
	}

	result.DataPoints = len(portfolioReturns)
	result.StartDate = dates[1]
	result.EndDate = dates[len(dates)-1]
	measure(result, portfolioReturns, marketReturns, s.riskFree)

	s.logger.Info().
		Str("portfolio_id", portfolio.ID).
		Int("data_points", result.DataPoints).
		Int("proxied", len(result.ProxiedSymbols)).
		Float64("volatility", result.Volatility).
		Float64("max_drawdown", result.MaxDrawdown).
		Msg("Performance metrics complete")

	return result, nil
}

// weights returns each holding's share of portfolio value at resolved prices.
func (s *Service) weights(ctx context.Context, portfolio *models.Portfolio) ([]float64, error) {
	if s.prices != nil {
		s.prices.Prefetch(ctx, portfolio.Assets)
	}
	values := make([]float64, len(portfolio.Assets))
	var total float64
	for i, a := range portfolio.Assets {
		price := a.Price
		if s.prices != nil {
			price, _ = s.prices.ResolvePrice(ctx, a)
		}
		v := price * a.Quantity
		if math.IsNaN(v) || math.IsInf(v, 0) || price <= 0 || a.Quantity < 0 {
			s.logger.Warn().Str("symbol", a.Symbol).Msg("Skipping position without a usable value")
			continue
		}
		values[i] = v
		total += v
	}
	if total <= 0 {
		return nil, fmt.Errorf("portfolio '%s' has no value to weight by", portfolio.ID)
	}
	for i := range values {
		values[i] /= total
	}
	return values, nil
}

// closes fetches daily closes keyed by day. Adjusted closes are preferred.
func (s *Service) closes(ctx context.Context, symbol string, from, to time.Time) (map[time.Time]float64, error) {
	resp, err := s.history.GetEOD(ctx, symbol, interfaces.WithDateRange(from, to), interfaces.WithOrder("a"))
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Data) == 0 {
		return nil, fmt.Errorf("no bars returned for %s", symbol)
	}
	out := make(map[time.Time]float64, len(resp.Data))
	for _, b := range resp.Data {
		c := b.AdjClose
		if c <= 0 {
			c = b.Close
		}
		if c > 0 && !math.IsNaN(c) && !math.IsInf(c, 0) {
			out[day(b.Date)] = c
		}
	}
	if len(out) < MinObservations+1 {
		return nil, fmt.Errorf("insufficient history for %s: %d usable closes", symbol, len(out))
	}
	return out, nil
}

// commonDates returns the days present in every series, ascending.
func commonDates(market map[time.Time]float64, series []map[time.Time]float64) []time.Time {
	var dates []time.Time
	for d := range market {
		ok := true
		for _, closes := range series {
			if _, found := closes[d]; !found {
				ok = false
				break
			}
		}
		if ok {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// measure fills the ratios from aligned daily simple returns.
func measure(m *models.PerformanceMetrics, returns, market []float64, riskFree float64) {
	annualVol := stat.StdDev(returns, nil) * math.Sqrt(TradingDaysPerYear)
	annualReturn := math.Pow(1+stat.Mean(returns, nil), TradingDaysPerYear) - 1

	m.AnnualReturn = annualReturn * 100
	m.Volatility = annualVol * 100
	if annualVol > 0 {
		m.SharpeRatio = (annualReturn - riskFree) / annualVol
	}

	m.Beta = 1.0
	if v := stat.Variance(market, nil); v > 0 {
		m.Beta = stat.Covariance(returns, market, nil) / v
	}

	m.MaxDrawdown = MaxDrawdown(returns) * 100

	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) >= 2 {
		dd := stat.StdDev(downside, nil) * math.Sqrt(TradingDaysPerYear)
		m.DownsideDeviation = dd * 100
		if dd > 0 {
			sortino := (annualReturn - riskFree) / dd
			m.SortinoRatio = &sortino
		}
	}
}

// MaxDrawdown returns the largest peak-to-trough fall of the compounded
// return path, as a fraction.
func MaxDrawdown(returns []float64) float64 {
	wealth, peak, worst := 1.0, 1.0, 0.0
	for _, r := range returns {
		wealth *= 1 + r
		if wealth > peak {
			peak = wealth
		}
		if dd := (peak - wealth) / peak; dd > worst {
			worst = dd
		}
	}
	return worst
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
