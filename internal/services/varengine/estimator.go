package varengine

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/bobmcallan/vire-stress/internal/common"
	"github.com/bobmcallan/vire-stress/internal/interfaces"
	"github.com/bobmcallan/vire-stress/internal/models"
)

// TradingDaysPerYear annualises daily volatility.
const TradingDaysPerYear = 252

// VolatilityEstimator supplies the annualised volatility a VaR method uses.
// Implementations must return non-decreasing values across
// parametric, historical and Monte-Carlo for the same lookback.
type VolatilityEstimator interface {
	AnnualizedVolatility(ctx context.Context, method models.VaRMethod, lookbackYears int) (float64, error)
	Name() string
}

// constantVolatility holds illustrative annualised volatilities by lookback bucket.
var constantVolatility = map[int]map[models.VaRMethod]float64{
	1:  {models.VaRParametric: 0.18, models.VaRHistorical: 0.19, models.VaRMonteCarlo: 0.20},
	3:  {models.VaRParametric: 0.17, models.VaRHistorical: 0.18, models.VaRMonteCarlo: 0.19},
	5:  {models.VaRParametric: 0.16, models.VaRHistorical: 0.17, models.VaRMonteCarlo: 0.18},
	10: {models.VaRParametric: 0.17, models.VaRHistorical: 0.19, models.VaRMonteCarlo: 0.21},
}

// lookbackBucket maps a lookback in years onto a volatility table row.
func lookbackBucket(years int) int {
	switch {
	case years <= 1:
		return 1
	case years <= 3:
		return 3
	case years <= 5:
		return 5
	default:
		return 10
	}
}

// ConstantEstimator returns fixed volatilities per method and lookback.
type ConstantEstimator struct{}

// AnnualizedVolatility implements VolatilityEstimator.
func (ConstantEstimator) AnnualizedVolatility(_ context.Context, method models.VaRMethod, lookbackYears int) (float64, error) {
	row := constantVolatility[lookbackBucket(lookbackYears)]
	v, ok := row[method]
	if !ok {
		return 0, fmt.Errorf("unknown VaR method %q", method)
	}
	return v, nil
}

// Name implements VolatilityEstimator.
func (ConstantEstimator) Name() string { return "constant" }

// methodScale widens realised volatility for methods that assume fatter tails.
var methodScale = map[models.VaRMethod]float64{
	models.VaRParametric: 1.0,
	models.VaRHistorical: 1.0625,
	models.VaRMonteCarlo: 1.125,
}

// minHistoryBars is the fewest daily closes needed for a usable estimate.
const minHistoryBars = 20

// HistoricalEstimator derives volatility from benchmark daily closes. It falls
// back to ConstantEstimator when history is unavailable or too short.
type HistoricalEstimator struct {
	provider  interfaces.HistoryProvider
	benchmark string
	logger    *common.Logger
	fallback  ConstantEstimator
	now       func() time.Time

	mu    sync.Mutex
	cache map[int]float64 // base volatility by lookback years
}

// NewHistoricalEstimator creates an estimator over benchmark's EOD history.
func NewHistoricalEstimator(provider interfaces.HistoryProvider, benchmark string, logger *common.Logger) *HistoricalEstimator {
	return &HistoricalEstimator{
		provider:  provider,
		benchmark: benchmark,
		logger:    logger,
		now:       time.Now,
		cache:     make(map[int]float64),
	}
}

// Name implements VolatilityEstimator.
func (h *HistoricalEstimator) Name() string { return "historical" }

// AnnualizedVolatility implements VolatilityEstimator.
func (h *HistoricalEstimator) AnnualizedVolatility(ctx context.Context, method models.VaRMethod, lookbackYears int) (float64, error) {
	scale, ok := methodScale[method]
	if !ok {
		return 0, fmt.Errorf("unknown VaR method %q", method)
	}
	if lookbackYears < 1 {
		lookbackYears = 1
	}

	base, err := h.baseVolatility(ctx, lookbackYears)
	if err != nil {
		h.logger.Warn().Err(err).
			Str("benchmark", h.benchmark).
			Int("lookback_years", lookbackYears).
			Msg("Historical volatility unavailable, using constant table")
		return h.fallback.AnnualizedVolatility(ctx, method, lookbackYears)
	}
	return base * scale, nil
}

func (h *HistoricalEstimator) baseVolatility(ctx context.Context, years int) (float64, error) {
	h.mu.Lock()
	if v, ok := h.cache[years]; ok {
		h.mu.Unlock()
		return v, nil
	}
	h.mu.Unlock()

	if h.provider == nil {
		return 0, fmt.Errorf("no history provider configured")
	}

	to := h.now()
	from := to.AddDate(-years, 0, 0)
	resp, err := h.provider.GetEOD(ctx, h.benchmark, interfaces.WithDateRange(from, to), interfaces.WithOrder("a"))
	if err != nil {
		return 0, fmt.Errorf("failed to fetch %s history: %w", h.benchmark, err)
	}
	if resp == nil {
		return 0, fmt.Errorf("no history returned for %s", h.benchmark)
	}

	vol, err := RealisedVolatility(resp.Data)
	if err != nil {
		return 0, err
	}

	h.mu.Lock()
	h.cache[years] = vol
	h.mu.Unlock()
	return vol, nil
}

// RealisedVolatility returns the annualised standard deviation of daily log
// returns. Bars must be in date order; adjusted closes are preferred.
func RealisedVolatility(bars []models.EODBar) (float64, error) {
	closes := make([]float64, 0, len(bars))
	for _, b := range bars {
		c := b.AdjClose
		if c <= 0 {
			c = b.Close
		}
		if c > 0 && !math.IsNaN(c) && !math.IsInf(c, 0) {
			closes = append(closes, c)
		}
	}
	if len(closes) < minHistoryBars {
		return 0, fmt.Errorf("insufficient history: %d usable closes, need %d", len(closes), minHistoryBars)
	}

	returns := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		returns[i-1] = math.Log(closes[i] / closes[i-1])
	}
	daily := stat.StdDev(returns, nil)
	if daily <= 0 || math.IsNaN(daily) {
		return 0, fmt.Errorf("degenerate history: zero return variance")
	}
	return daily * math.Sqrt(TradingDaysPerYear), nil
}

// Ensure both estimators implement VolatilityEstimator
var (
	_ VolatilityEstimator = ConstantEstimator{}
	_ VolatilityEstimator = (*HistoricalEstimator)(nil)
)
