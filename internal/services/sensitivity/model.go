// Package sensitivity converts classified asset metadata into per-factor
// sensitivities. Everything here is pure; no I/O.
package sensitivity

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/vire-stress/internal/models"
	"github.com/bobmcallan/vire-stress/internal/services/classifier"
)

// DefaultBondDuration is the rate sensitivity used for a bond with no recorded duration.
const DefaultBondDuration = 5.0

// UnratedCredit is the credit sensitivity of a bond without a recognised rating.
const UnratedCredit = 0.5

var marketCapAdjustment = map[models.MarketCap]float64{
	models.MarketCapSmall: 1.3,
	models.MarketCapMid:   1.1,
	models.MarketCapLarge: 0.95,
	models.MarketCapMicro: 1.0,
}

var sectorAdjustment = map[string]float64{
	classifier.SectorTechnology:            1.2,
	classifier.SectorFinancials:            1.15,
	classifier.SectorConsumerDiscretionary: 1.1,
	classifier.SectorEnergy:                1.25,
	classifier.SectorHealthcare:            0.9,
	classifier.SectorConsumerStaples:       0.8,
	classifier.SectorUtilities:             0.7,
	classifier.SectorRealEstate:            0.9,
	classifier.SectorDividend:              0.85,
}

var sectorRates = map[string]float64{
	classifier.SectorUtilities:  -0.6,
	classifier.SectorRealEstate: -0.5,
	classifier.SectorDividend:   -0.4,
	classifier.SectorFinancials: 0.3,
	classifier.SectorTechnology: -0.2,
}

const defaultSectorRates = -0.1

// creditRatings maps a whole-letter rating to credit spread sensitivity.
// Lower quality means a larger response to spread widening.
var creditRatings = map[string]float64{
	"AAA": 0.1,
	"AA":  0.2,
	"A":   0.4,
	"BBB": 0.7,
	"BB":  1.2,
	"B":   1.8,
	"CCC": 2.5,
}

// Compute returns the factor sensitivities for one asset. A nil meta yields zero sensitivities.
func Compute(meta *models.AssetMetadata) models.FactorSensitivities {
	if meta == nil {
		return models.FactorSensitivities{}
	}

	switch meta.AssetType {
	case models.AssetClassEquity:
		return equity(meta)
	case models.AssetClassBond:
		return bond(meta)
	case models.AssetClassRealEstate:
		return models.FactorSensitivities{Equity: 0.6, Rates: -0.8, Credit: 0.3}
	case models.AssetClassCommodity:
		return models.FactorSensitivities{Commodity: 1.0, FX: -0.4, Rates: -0.2}
	case models.AssetClassAlternative:
		return models.FactorSensitivities{Equity: 0.5, Credit: 0.3, Volatility: 0.2}
	case models.AssetClassCash:
		return models.FactorSensitivities{Rates: 0.05}
	}
	return models.FactorSensitivities{}
}

func equity(meta *models.AssetMetadata) models.FactorSensitivities {
	beta := 1.0 * lookupOr(marketCapAdjustment, meta.MarketCap, 1.0) *
		lookupOr(sectorAdjustment, meta.Sector, 1.0) *
		geographyAdjustment(meta.Geography)

	return models.FactorSensitivities{
		Equity:     round2(beta),
		Rates:      lookupOr(sectorRates, meta.Sector, defaultSectorRates),
		FX:         equityFX(meta.Geography),
		Volatility: 0.8,
	}
}

func bond(meta *models.AssetMetadata) models.FactorSensitivities {
	fx := 0.05
	if meta.Geography != models.GeographyUS {
		fx = 0.7
	}
	return models.FactorSensitivities{
		Rates:  -meta.DurationOr(DefaultBondDuration),
		Credit: CreditSensitivity(meta.CreditRating),
		FX:     fx,
	}
}

func geographyAdjustment(g models.Geography) float64 {
	switch g {
	case models.GeographyEmerging:
		return 1.4
	case models.GeographyInternational:
		return 0.8
	default:
		return 1.0
	}
}

func equityFX(g models.Geography) float64 {
	switch g {
	case models.GeographyEmerging:
		return 0.8
	case models.GeographyInternational:
		return 0.6
	default:
		return 0.1
	}
}

// CreditSensitivity maps an agency rating ("AA+", "Baa", "bb-") onto the
// credit table. Notch modifiers are ignored; unknown ratings are unrated.
func CreditSensitivity(rating string) float64 {
	r := strings.ToUpper(strings.TrimSpace(rating))
	r = strings.TrimRight(r, "+-123")
	if v, ok := creditRatings[r]; ok {
		return v
	}
	// Moody's style: Aaa, Aa, Baa, Ba, Caa
	switch r {
	case "BAA":
		return creditRatings["BBB"]
	case "BA":
		return creditRatings["BB"]
	case "CAA", "CA", "C", "CC":
		return creditRatings["CCC"]
	}
	return UnratedCredit
}

// EffectiveAssetType decides which asset type drives the sensitivities. A
// declared cash holding is always cash. Any declared class overrides a
// fallback classification, which only guesses from the symbol text.
func EffectiveAssetType(meta *models.AssetMetadata, declared models.AssetClass) models.AssetClass {
	if meta == nil || !meta.AssetType.Valid() {
		if declared.Valid() {
			return declared
		}
		return models.AssetClassEquity
	}
	if declared == models.AssetClassCash {
		return models.AssetClassCash
	}
	if meta.Source == models.SourceFallback && declared.Valid() {
		return declared
	}
	return meta.AssetType
}

// ForAsset returns the sensitivities for meta after applying the declared class override.
func ForAsset(meta *models.AssetMetadata, declared models.AssetClass) (models.FactorSensitivities, models.AssetClass) {
	class := EffectiveAssetType(meta, declared)
	if meta == nil {
		meta = &models.AssetMetadata{Geography: models.GeographyUS, MarketCap: models.MarketCapLarge, Sector: models.SectorDiversified}
	}
	m := meta.Clone()
	m.AssetType = class
	return Compute(m), class
}

func lookupOr[K comparable](table map[K]float64, key K, def float64) float64 {
	if v, ok := table[key]; ok {
		return v
	}
	return def
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
