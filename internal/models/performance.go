package models

import "time"

// PerformanceMetrics are return and risk ratios measured over a portfolio's
// historical daily returns at its current weights. Percent fields are in
// percent; ratios are unitless.
type PerformanceMetrics struct {
	PortfolioID       string    `json:"portfolio_id"`
	Benchmark         string    `json:"benchmark"`
	AnnualReturn      float64   `json:"annual_return"` // percent, compounded from the mean daily return
	Volatility        float64   `json:"volatility"`    // annualised, percent
	SharpeRatio       float64   `json:"sharpe_ratio"`
	SortinoRatio      *float64  `json:"sortino_ratio"`      // nil when there were no down days
	Beta              float64   `json:"beta"`               // against the benchmark
	MaxDrawdown       float64   `json:"max_drawdown"`       // largest peak-to-trough decline, percent
	DownsideDeviation float64   `json:"downside_deviation"` // annualised, percent
	RiskFreeRate      float64   `json:"risk_free_rate"`
	DataPoints        int       `json:"data_points"`
	StartDate         time.Time `json:"start_date"`
	EndDate           time.Time `json:"end_date"`
	ProxiedSymbols    []string  `json:"proxied_symbols,omitempty"` // holdings priced with benchmark history
	CalculatedAt      time.Time `json:"calculated_at"`
}
