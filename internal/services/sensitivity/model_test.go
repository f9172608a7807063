package sensitivity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bobmcallan/vire-stress/internal/models"
	"github.com/bobmcallan/vire-stress/internal/services/classifier"
)

func equityMeta(sector string, mc models.MarketCap, geo models.Geography) *models.AssetMetadata {
	return &models.AssetMetadata{
		Symbol:    "TEST",
		Sector:    sector,
		Industry:  "General",
		MarketCap: mc,
		Geography: geo,
		AssetType: models.AssetClassEquity,
		Source:    models.SourceHardcoded,
	}
}

func TestCompute_BroadMarketEquity(t *testing.T) {
	s := Compute(equityMeta(models.SectorDiversified, models.MarketCapLarge, models.GeographyUS))
	assert.Equal(t, 0.95, s.Equity)
	assert.Equal(t, -0.1, s.Rates)
	assert.Equal(t, 0.1, s.FX)
	assert.Equal(t, 0.8, s.Volatility)
	assert.Zero(t, s.Credit)
	assert.Zero(t, s.Commodity)
}

func TestCompute_EquityAdjustments(t *testing.T) {
	tests := []struct {
		name   string
		meta   *models.AssetMetadata
		equity float64
		rates  float64
		fx     float64
	}{
		{"small tech us", equityMeta(classifier.SectorTechnology, models.MarketCapSmall, models.GeographyUS), 1.56, -0.2, 0.1},
		{"mid energy intl", equityMeta(classifier.SectorEnergy, models.MarketCapMid, models.GeographyInternational), 1.1, -0.1, 0.6},
		{"large healthcare em", equityMeta(classifier.SectorHealthcare, models.MarketCapLarge, models.GeographyEmerging), 1.2, -0.1, 0.8},
		{"large utilities intl", equityMeta(classifier.SectorUtilities, models.MarketCapLarge, models.GeographyInternational), 0.53, -0.6, 0.6},
		{"micro staples us", equityMeta(classifier.SectorConsumerStaples, models.MarketCapMicro, models.GeographyUS), 0.8, -0.1, 0.1},
		{"large financials us", equityMeta(classifier.SectorFinancials, models.MarketCapLarge, models.GeographyUS), 1.09, 0.3, 0.1},
		{"large dividend us", equityMeta(classifier.SectorDividend, models.MarketCapLarge, models.GeographyUS), 0.81, -0.4, 0.1},
		{"small real estate sector equity", equityMeta(classifier.SectorRealEstate, models.MarketCapSmall, models.GeographyUS), 1.17, -0.5, 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Compute(tt.meta)
			assert.InDelta(t, tt.equity, s.Equity, 1e-9)
			assert.Equal(t, tt.rates, s.Rates)
			assert.Equal(t, tt.fx, s.FX)
		})
	}
}

func TestCompute_Bond(t *testing.T) {
	meta := &models.AssetMetadata{
		AssetType:    models.AssetClassBond,
		Duration:     models.Float64Ptr(17),
		CreditRating: "AAA",
		Geography:    models.GeographyUS,
	}
	s := Compute(meta)
	assert.Equal(t, -17.0, s.Rates)
	assert.Equal(t, 0.1, s.Credit)
	assert.Equal(t, 0.05, s.FX)
	assert.Zero(t, s.Equity)

	meta.Duration = nil
	meta.CreditRating = ""
	meta.Geography = models.GeographyEmerging
	s = Compute(meta)
	assert.Equal(t, -DefaultBondDuration, s.Rates)
	assert.Equal(t, UnratedCredit, s.Credit)
	assert.Equal(t, 0.7, s.FX)
}

func TestCreditSensitivity_MonotonicAndAliases(t *testing.T) {
	order := []string{"AAA", "AA", "A", "BBB", "BB", "B", "CCC"}
	for i := 1; i < len(order); i++ {
		assert.Greater(t, CreditSensitivity(order[i]), CreditSensitivity(order[i-1]), order[i])
	}
	assert.Equal(t, 0.2, CreditSensitivity("aa+"))
	assert.Equal(t, 0.4, CreditSensitivity("A-"))
	assert.Equal(t, 0.7, CreditSensitivity("Baa2"))
	assert.Equal(t, 1.2, CreditSensitivity("Ba1"))
	assert.Equal(t, 2.5, CreditSensitivity("Caa"))
	assert.Equal(t, UnratedCredit, CreditSensitivity("NR"))
	assert.Equal(t, UnratedCredit, CreditSensitivity(""))
}

func TestCompute_FixedClasses(t *testing.T) {
	assert.Equal(t, models.FactorSensitivities{Equity: 0.6, Rates: -0.8, Credit: 0.3},
		Compute(&models.AssetMetadata{AssetType: models.AssetClassRealEstate}))
	assert.Equal(t, models.FactorSensitivities{Commodity: 1.0, FX: -0.4, Rates: -0.2},
		Compute(&models.AssetMetadata{AssetType: models.AssetClassCommodity}))
	assert.Equal(t, models.FactorSensitivities{Equity: 0.5, Credit: 0.3, Volatility: 0.2},
		Compute(&models.AssetMetadata{AssetType: models.AssetClassAlternative}))
	assert.Equal(t, models.FactorSensitivities{Rates: 0.05},
		Compute(&models.AssetMetadata{AssetType: models.AssetClassCash}))
}

func TestCompute_UnknownOrNil(t *testing.T) {
	assert.Equal(t, models.FactorSensitivities{}, Compute(nil))
	assert.Equal(t, models.FactorSensitivities{}, Compute(&models.AssetMetadata{AssetType: "swap"}))
}

func TestCompute_Deterministic(t *testing.T) {
	meta := equityMeta(classifier.SectorTechnology, models.MarketCapMid, models.GeographyInternational)
	first := Compute(meta)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Compute(meta))
	}
}

func TestEffectiveAssetType(t *testing.T) {
	fallbackEquity := &models.AssetMetadata{AssetType: models.AssetClassEquity, Source: models.SourceFallback}
	hardcodedEquity := &models.AssetMetadata{AssetType: models.AssetClassEquity, Source: models.SourceHardcoded}

	assert.Equal(t, models.AssetClassCash, EffectiveAssetType(hardcodedEquity, models.AssetClassCash))
	assert.Equal(t, models.AssetClassBond, EffectiveAssetType(fallbackEquity, models.AssetClassBond))
	assert.Equal(t, models.AssetClassEquity, EffectiveAssetType(hardcodedEquity, models.AssetClassBond))
	assert.Equal(t, models.AssetClassEquity, EffectiveAssetType(fallbackEquity, ""))
	fallbackBond := &models.AssetMetadata{AssetType: models.AssetClassBond, Source: models.SourceFallback}
	assert.Equal(t, models.AssetClassEquity, EffectiveAssetType(fallbackBond, models.AssetClassEquity))
	assert.Equal(t, models.AssetClassBond, EffectiveAssetType(fallbackBond, ""))
	assert.Equal(t, models.AssetClassCommodity, EffectiveAssetType(nil, models.AssetClassCommodity))
	assert.Equal(t, models.AssetClassEquity, EffectiveAssetType(nil, ""))
}

func TestForAsset_DoesNotMutateMetadata(t *testing.T) {
	meta := &models.AssetMetadata{AssetType: models.AssetClassEquity, Source: models.SourceFallback, Geography: models.GeographyUS}
	s, class := ForAsset(meta, models.AssetClassBond)
	assert.Equal(t, models.AssetClassBond, class)
	assert.Equal(t, -DefaultBondDuration, s.Rates)
	assert.Equal(t, models.AssetClassEquity, meta.AssetType)

	s, class = ForAsset(meta, models.AssetClassCash)
	assert.Equal(t, models.AssetClassCash, class)
	assert.Equal(t, models.FactorSensitivities{Rates: 0.05}, s)
}

func TestRiskProfile(t *testing.T) {
	eq := RiskProfile(models.AssetClassEquity)
	assert.Equal(t, 0.20, eq.Volatility)
	assert.Equal(t, 0.8, eq.Correlation)
	assert.Equal(t, 0.9, eq.Liquidity)

	cash := RiskProfile(models.AssetClassCash)
	assert.Equal(t, 1.0, cash.Liquidity)
	assert.Zero(t, cash.Correlation)

	for _, class := range models.AllAssetClasses {
		p := RiskProfile(class)
		assert.Greater(t, p.Volatility, 0.0, class)
		assert.GreaterOrEqual(t, p.Liquidity, 0.0, class)
		assert.LessOrEqual(t, p.Liquidity, 1.0, class)
	}

	assert.Equal(t, models.AssetRiskProfile{Volatility: 0.15, Correlation: 0.5, Liquidity: 0.7}, RiskProfile("crypto"))
}
