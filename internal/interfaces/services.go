// Package interfaces defines service contracts for Vire Stress
package interfaces

import (
	"context"

	"github.com/bobmcallan/vire-stress/internal/models"
)

// Classifier resolves ticker metadata
type Classifier interface {
	// Classify never fails: unknown symbols get fully populated fallback metadata
	Classify(ctx context.Context, symbol string) *models.AssetMetadata

	// ClassifyBatch classifies concurrently; the slice preserves input order
	ClassifyBatch(ctx context.Context, symbols []string) ([]*models.AssetMetadata, map[string]*models.AssetMetadata)
}

// PriceResolver resolves the current price of a position, falling back to the stored price
type PriceResolver interface {
	// ResolvePrice returns the price and where it came from ("live", "cache", "stored")
	ResolvePrice(ctx context.Context, asset models.Asset) (float64, string)

	// Prefetch warms the cache for a set of assets in rate-limited batches
	Prefetch(ctx context.Context, assets []models.Asset)
}

// StressService runs stress tests
type StressService interface {
	RunStressTest(ctx context.Context, portfolio *models.Portfolio, factors models.ScenarioFactors) (*models.PortfolioStressResult, error)
}

// VaRService computes Value-at-Risk figures
type VaRService interface {
	ComputeVaR(ctx context.Context, portfolio *models.Portfolio, method models.VaRMethod, params models.VaRParams) (*models.VaRResult, error)
	ComputeAll(ctx context.Context, portfolio *models.Portfolio, params models.VaRParams) ([]*models.VaRResult, error)
	ComputeMultiConfidence(ctx context.Context, portfolio *models.Portfolio, method models.VaRMethod, params models.VaRParams, levels []float64, stressPeriod string) (*models.MultiConfidenceVaRResult, error)
}

// ScenarioService coordinates scenario runs
type ScenarioService interface {
	RunScenario(ctx context.Context, scenarioID, portfolioID string) (*models.ScenarioRun, error)
	History(ctx context.Context, limit int) ([]*models.ScenarioRun, error)
	GetRun(ctx context.Context, id string) (*models.ScenarioRun, error)
}
