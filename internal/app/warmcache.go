package app

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/bobmcallan/vire-stress/internal/models"
)

// WarmCache classifies and prices every symbol held in the stored portfolios so the
// first stress run is served from cache. Returns the classifications keyed by symbol.
func (a *App) WarmCache(ctx context.Context) (map[string]*models.AssetMetadata, error) {
	if os.Getenv("VIRE_STRESS_WARM_CACHE") == "off" {
		a.Logger.Info().Msg("Warm cache: disabled via VIRE_STRESS_WARM_CACHE=off")
		return map[string]*models.AssetMetadata{}, nil
	}

	start := time.Now()

	ids, err := a.Storage.PortfolioStorage().ListPortfolios(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}

	seen := make(map[string]bool)
	var symbols []string
	var assets []models.Asset
	for _, id := range ids {
		p, err := a.Storage.PortfolioStorage().GetPortfolio(ctx, id)
		if err != nil {
			a.Logger.Warn().Err(err).Str("portfolio_id", id).Msg("Warm cache: portfolio unreadable, skipping")
			continue
		}
		for _, asset := range p.Assets {
			key := strings.ToUpper(strings.TrimSpace(asset.Symbol))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			symbols = append(symbols, asset.Symbol)
			assets = append(assets, asset)
		}
	}

	if len(symbols) == 0 {
		a.Logger.Info().Msg("Warm cache: no stored holdings, skipping")
		return map[string]*models.AssetMetadata{}, nil
	}
	sort.Strings(symbols)

	_, bySymbol := a.Classifier.ClassifyBatch(ctx, symbols)
	a.Prices.Prefetch(ctx, assets)

	a.Logger.Info().
		Int("portfolios", len(ids)).
		Int("symbols", len(symbols)).
		Dur("elapsed", time.Since(start)).
		Msg("Warm cache: complete")

	return bySymbol, nil
}
