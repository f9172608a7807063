package sensitivity

import "github.com/bobmcallan/vire-stress/internal/models"

var riskProfiles = map[models.AssetClass]models.AssetRiskProfile{
	models.AssetClassEquity:      {Volatility: 0.20, Correlation: 0.8, Liquidity: 0.9},
	models.AssetClassBond:        {Volatility: 0.08, Correlation: 0.1, Liquidity: 0.7},
	models.AssetClassCash:        {Volatility: 0.01, Correlation: 0.0, Liquidity: 1.0},
	models.AssetClassCommodity:   {Volatility: 0.25, Correlation: 0.3, Liquidity: 0.6},
	models.AssetClassRealEstate:  {Volatility: 0.18, Correlation: 0.6, Liquidity: 0.8},
	models.AssetClassAlternative: {Volatility: 0.30, Correlation: 0.4, Liquidity: 0.4},
}

// defaultRiskProfile covers a class outside the table.
var defaultRiskProfile = models.AssetRiskProfile{Volatility: 0.15, Correlation: 0.5, Liquidity: 0.7}

// RiskProfile returns the typical annual volatility, market correlation and
// liquidity of an asset class.
func RiskProfile(class models.AssetClass) models.AssetRiskProfile {
	if p, ok := riskProfiles[class]; ok {
		return p
	}
	return defaultRiskProfile
}
