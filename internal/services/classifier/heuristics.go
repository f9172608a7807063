package classifier

import (
	"strings"

	"github.com/bobmcallan/vire-stress/internal/models"
)

// Duration buckets, in years, for bonds identified by symbol pattern alone.
const (
	DurationShort        = 2.0
	DurationIntermediate = 6.5
	DurationLong         = 18.0
	DurationDefault      = 6.0
)

// normalizeSymbol trims and upper-cases a ticker.
func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// splitExchange separates a trailing exchange code ("SPY.US" → "SPY", "US").
// Class-share suffixes such as BRK.B are left intact.
func splitExchange(sym string) (base, exchange string) {
	i := strings.LastIndex(sym, ".")
	if i <= 0 || i == len(sym)-1 {
		return sym, ""
	}
	suffix := sym[i+1:]
	if len(suffix) == 1 {
		return sym, ""
	}
	return sym[:i], suffix
}

func hardcodedKey(sym string) string {
	base, exchange := splitExchange(sym)
	if exchange != "" && exchange != "US" {
		return sym
	}
	return strings.ReplaceAll(base, "-", ".")
}

// Exchange codes that place a listing outside the US.
var (
	emergingExchanges = map[string]bool{
		"SS": true, "SZ": true, "SHG": true, "SHE": true, "NS": true, "BO": true, "NSE": true,
		"SA": true, "MX": true, "JK": true, "KS": true, "KQ": true, "BK": true, "KLSE": true,
		"JSE": true, "IS": true, "TW": true,
	}
	emergingCountries = map[string]bool{
		"CN": true, "IN": true, "BR": true, "TW": true, "KR": true, "MX": true, "ZA": true,
		"ID": true, "TH": true, "MY": true, "PH": true, "TR": true, "CL": true, "PE": true,
		"CO": true, "SA": true, "AE": true, "QA": true, "EG": true, "PL": true, "HU": true,
		"CZ": true, "GR": true, "KW": true,
	}
)

// geographyFromCountry maps an ISO country code to a geography bucket.
func geographyFromCountry(iso string) (models.Geography, bool) {
	iso = strings.ToUpper(strings.TrimSpace(iso))
	switch {
	case iso == "":
		return "", false
	case iso == "US" || iso == "USA":
		return models.GeographyUS, true
	case emergingCountries[iso]:
		return models.GeographyEmerging, true
	default:
		return models.GeographyInternational, true
	}
}

// marketCapBucket buckets a USD market capitalisation.
func marketCapBucket(usd float64) (models.MarketCap, bool) {
	switch {
	case usd <= 0:
		return "", false
	case usd >= 10e9:
		return models.MarketCapLarge, true
	case usd >= 2e9:
		return models.MarketCapMid, true
	case usd >= 300e6:
		return models.MarketCapSmall, true
	default:
		return models.MarketCapMicro, true
	}
}

type sectorKeyword struct {
	keywords []string
	sector   string
}

// sectorKeywords is checked in order; the first matching group wins.
var sectorKeywords = []sectorKeyword{
	{[]string{"real estate", "reit", "realty"}, SectorRealEstate},
	{[]string{"health", "pharma", "medical", "biotech"}, SectorHealthcare},
	{[]string{"tech", "software", "semiconductor"}, SectorTechnology},
	{[]string{"financ", "bank", "insurance"}, SectorFinancials},
	{[]string{"energy", "oil", "gas", "petroleum"}, SectorEnergy},
	{[]string{"staples", "defensive"}, SectorConsumerStaples},
	{[]string{"consumer", "cyclical", "retail"}, SectorConsumerDiscretionary},
	{[]string{"industrial"}, SectorIndustrials},
	{[]string{"utilit"}, SectorUtilities},
	{[]string{"material", "chemical", "mining"}, SectorMaterials},
	{[]string{"communication", "telecom", "media"}, SectorCommunication},
}

// sectorFromKeywords derives a sector from free text such as a company name or
// a provider sector label. Returns SectorDiversified when nothing matches.
func sectorFromKeywords(text string) string {
	lower := strings.ToLower(text)
	if lower == "" {
		return models.SectorDiversified
	}
	for _, group := range sectorKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				return group.sector
			}
		}
	}
	return models.SectorDiversified
}

// xlSectors maps the Select Sector SPDR suffix after "XL" to its sector.
var xlSectors = map[string]string{
	"K":  SectorTechnology,
	"F":  SectorFinancials,
	"V":  SectorHealthcare,
	"E":  SectorEnergy,
	"Y":  SectorConsumerDiscretionary,
	"P":  SectorConsumerStaples,
	"I":  SectorIndustrials,
	"U":  SectorUtilities,
	"B":  SectorMaterials,
	"RE": SectorRealEstate,
	"C":  SectorCommunication,
}

var (
	cashPatterns      = []string{"CASH", "MONEY", "MMF"}
	bondPatterns      = []string{"BOND", "BND", "TLT", "TIP", "AGG", "LQD", "HYG", "JNK", "GOVT", "TREAS", "MUB", "SHY", "IEF", "BIL", "EDV", "ZROZ", "VGSH", "VGIT", "VGLT", "SCHO", "SCHR", "SCHZ", "FLOT", "MINT"}
	treasuryPatterns  = []string{"TLT", "IEF", "SHY", "GOVT", "TREAS", "BIL", "EDV", "ZROZ", "VGSH", "VGIT", "VGLT", "SCHO", "SCHR", "TIP"}
	highYieldPatterns = []string{"HY", "JNK", "HIGH", "JUNK"}
	longPatterns      = []string{"LONG", "TLT", "EDV", "ZROZ", "LT"}
	shortPatterns     = []string{"SHORT", "SHY", "BIL", "SH", "ST"}
	intermPatterns    = []string{"INT", "IEF", "IT", "MID"}
	reitPatterns      = []string{"REIT", "VNQ", "IYR", "SCHH", "RWR", "REM", "REET"}
	preciousPatterns  = []string{"GLD", "GOLD", "IAU", "SLV", "SILVER", "PPLT", "SIVR"}
	commodityPatterns = []string{"OIL", "USO", "UNG", "DBC", "GSG", "PDBC", "COMM", "CMDTY", "DBA", "CPER"}
	emergingPatterns  = []string{"EEM", "VWO", "IEMG", "EMXC", "SCHE", "EMERG"}
	intlPatterns      = []string{"EFA", "VEA", "IEFA", "VXUS", "ACWX", "INTL", "SCHF", "VEU", "IXUS"}
	dividendPatterns  = []string{"DIV", "DVY", "SCHD", "VYM"}
)

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// heuristicMetadata infers metadata from the symbol text alone. It never fails.
func heuristicMetadata(sym string) *models.AssetMetadata {
	base, exchange := splitExchange(sym)

	meta := &models.AssetMetadata{
		Symbol:    sym,
		Sector:    models.SectorDiversified,
		Industry:  "General",
		MarketCap: models.MarketCapLarge,
		Geography: models.GeographyUS,
		AssetType: models.AssetClassEquity,
		Source:    models.SourceFallback,
	}

	switch {
	case exchange == "" || exchange == "US":
	case emergingExchanges[exchange]:
		meta.Geography = models.GeographyEmerging
	default:
		meta.Geography = models.GeographyInternational
	}

	switch {
	case base == "USD" || containsAny(base, cashPatterns) || (len(base) == 5 && strings.HasSuffix(base, "XX")):
		// Money market funds conventionally end in XX (SPAXX, VMFXX)
		meta.AssetType = models.AssetClassCash
		meta.Sector = SectorCash
		meta.Industry = "Cash & Equivalents"

	case containsAny(base, bondPatterns):
		meta.AssetType = models.AssetClassBond
		meta.Sector = SectorFixedIncome
		meta.Duration = models.Float64Ptr(bondDuration(base))
		switch {
		case containsAny(base, highYieldPatterns):
			meta.Industry = "High Yield"
			meta.CreditRating = "BB"
		case containsAny(base, treasuryPatterns):
			meta.Industry = "Treasury"
			meta.CreditRating = "AAA"
		default:
			meta.Industry = "Bond"
		}

	case containsAny(base, reitPatterns):
		meta.AssetType = models.AssetClassRealEstate
		meta.Sector = SectorRealEstate
		meta.Industry = "REIT"

	case containsAny(base, preciousPatterns):
		meta.AssetType = models.AssetClassCommodity
		meta.Sector = SectorCommodities
		meta.Industry = "Precious Metals"

	case containsAny(base, commodityPatterns):
		meta.AssetType = models.AssetClassCommodity
		meta.Sector = SectorCommodities
		meta.Industry = "Broad Commodities"

	case strings.HasPrefix(base, "XL") && xlSectors[base[2:]] != "":
		meta.Sector = xlSectors[base[2:]]
		meta.Industry = "Exchange Traded Fund"

	case containsAny(base, emergingPatterns):
		meta.Geography = models.GeographyEmerging

	case containsAny(base, intlPatterns):
		meta.Geography = models.GeographyInternational

	case containsAny(base, dividendPatterns):
		meta.Sector = SectorDividend
	}

	return meta
}

// bondDuration picks a duration bucket from the symbol text.
func bondDuration(base string) float64 {
	switch {
	case containsAny(base, longPatterns):
		return DurationLong
	case containsAny(base, shortPatterns):
		return DurationShort
	case containsAny(base, intermPatterns):
		return DurationIntermediate
	default:
		return DurationDefault
	}
}

// assetTypeFromProvider interprets the provider's instrument type and name.
// Returns false when the provider data does not decide the asset type.
func assetTypeFromProvider(instrumentType, name string) (models.AssetClass, bool) {
	t := strings.ToLower(instrumentType)
	n := strings.ToLower(name)
	fund := strings.Contains(t, "etf") || strings.Contains(t, "fund")

	switch {
	case strings.Contains(t, "bond") || (fund && (strings.Contains(n, "bond") || strings.Contains(n, "treasury"))):
		return models.AssetClassBond, true
	case strings.Contains(t, "money market") || (fund && strings.Contains(n, "money market")):
		return models.AssetClassCash, true
	case strings.Contains(n, "reit") || strings.Contains(n, "real estate"):
		return models.AssetClassRealEstate, true
	case fund && (strings.Contains(n, "gold") || strings.Contains(n, "silver") || strings.Contains(n, "commodit") || strings.Contains(n, "oil fund")):
		return models.AssetClassCommodity, true
	case strings.Contains(t, "stock") || strings.Contains(t, "preferred"):
		return models.AssetClassEquity, true
	}
	return "", false
}
