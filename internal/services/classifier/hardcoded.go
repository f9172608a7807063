package classifier

import (
	"github.com/bobmcallan/vire-stress/internal/models"
)

// Sector names shared by the classifier tiers and the sensitivity tables.
const (
	SectorTechnology            = "Technology"
	SectorFinancials            = "Financials"
	SectorHealthcare            = "Healthcare"
	SectorEnergy                = "Energy"
	SectorConsumerDiscretionary = "Consumer Discretionary"
	SectorConsumerStaples       = "Consumer Staples"
	SectorIndustrials           = "Industrials"
	SectorUtilities             = "Utilities"
	SectorMaterials             = "Materials"
	SectorRealEstate            = "Real Estate"
	SectorCommunication         = "Communication Services"
	SectorDividend              = "Dividend"
	SectorFixedIncome           = "Fixed Income"
	SectorCommodities           = "Commodities"
	SectorCash                  = "Cash"
	SectorAlternatives          = "Alternatives"
)

func stock(name, sector, industry string, size models.MarketCap, geo models.Geography) models.AssetMetadata {
	return models.AssetMetadata{
		Name:      name,
		Sector:    sector,
		Industry:  industry,
		MarketCap: size,
		Geography: geo,
		AssetType: models.AssetClassEquity,
	}
}

func equityFund(name, sector string, size models.MarketCap, geo models.Geography) models.AssetMetadata {
	return stock(name, sector, "Exchange Traded Fund", size, geo)
}

func bondFund(name, industry string, duration float64, rating string, geo models.Geography) models.AssetMetadata {
	return models.AssetMetadata{
		Name:         name,
		Sector:       SectorFixedIncome,
		Industry:     industry,
		MarketCap:    models.MarketCapLarge,
		Geography:    geo,
		AssetType:    models.AssetClassBond,
		Duration:     models.Float64Ptr(duration),
		CreditRating: rating,
	}
}

func reit(name, industry string, size models.MarketCap) models.AssetMetadata {
	return models.AssetMetadata{
		Name:      name,
		Sector:    SectorRealEstate,
		Industry:  industry,
		MarketCap: size,
		Geography: models.GeographyUS,
		AssetType: models.AssetClassRealEstate,
	}
}

func commodityFund(name, industry string) models.AssetMetadata {
	return models.AssetMetadata{
		Name:      name,
		Sector:    SectorCommodities,
		Industry:  industry,
		MarketCap: models.MarketCapLarge,
		Geography: models.GeographyUS,
		AssetType: models.AssetClassCommodity,
	}
}

func alternativeFund(name, industry string) models.AssetMetadata {
	return models.AssetMetadata{
		Name:      name,
		Sector:    SectorAlternatives,
		Industry:  industry,
		MarketCap: models.MarketCapMid,
		Geography: models.GeographyUS,
		AssetType: models.AssetClassAlternative,
	}
}

func cashEquivalent(name string) models.AssetMetadata {
	return models.AssetMetadata{
		Name:      name,
		Sector:    SectorCash,
		Industry:  "Cash & Equivalents",
		MarketCap: models.MarketCapLarge,
		Geography: models.GeographyUS,
		AssetType: models.AssetClassCash,
	}
}

const (
	large = models.MarketCapLarge
	mid   = models.MarketCapMid
	small = models.MarketCapSmall
	us    = models.GeographyUS
	intl  = models.GeographyInternational
	em    = models.GeographyEmerging
)

// knownSymbols is the curated first tier. Keys are upper-case without exchange suffix.
var knownSymbols = map[string]models.AssetMetadata{
	// Broad market
	"SPY":  equityFund("SPDR S&P 500 ETF Trust", models.SectorDiversified, large, us),
	"VOO":  equityFund("Vanguard S&P 500 ETF", models.SectorDiversified, large, us),
	"IVV":  equityFund("iShares Core S&P 500 ETF", models.SectorDiversified, large, us),
	"VTI":  equityFund("Vanguard Total Stock Market ETF", models.SectorDiversified, large, us),
	"DIA":  equityFund("SPDR Dow Jones Industrial Average ETF", models.SectorDiversified, large, us),
	"QQQ":  equityFund("Invesco QQQ Trust", SectorTechnology, large, us),
	"IJH":  equityFund("iShares Core S&P Mid-Cap ETF", models.SectorDiversified, mid, us),
	"IWM":  equityFund("iShares Russell 2000 ETF", models.SectorDiversified, small, us),
	"VB":   equityFund("Vanguard Small-Cap ETF", models.SectorDiversified, small, us),
	"SCHD": equityFund("Schwab US Dividend Equity ETF", SectorDividend, large, us),
	"VYM":  equityFund("Vanguard High Dividend Yield ETF", SectorDividend, large, us),
	"DVY":  equityFund("iShares Select Dividend ETF", SectorDividend, large, us),

	// International / emerging
	"EFA":  equityFund("iShares MSCI EAFE ETF", models.SectorDiversified, large, intl),
	"VEA":  equityFund("Vanguard FTSE Developed Markets ETF", models.SectorDiversified, large, intl),
	"IEFA": equityFund("iShares Core MSCI EAFE ETF", models.SectorDiversified, large, intl),
	"VXUS": equityFund("Vanguard Total International Stock ETF", models.SectorDiversified, large, intl),
	"ACWX": equityFund("iShares MSCI ACWI ex US ETF", models.SectorDiversified, large, intl),
	"EEM":  equityFund("iShares MSCI Emerging Markets ETF", models.SectorDiversified, large, em),
	"VWO":  equityFund("Vanguard FTSE Emerging Markets ETF", models.SectorDiversified, large, em),
	"IEMG": equityFund("iShares Core MSCI Emerging Markets ETF", models.SectorDiversified, large, em),

	// Sector SPDRs and thematic
	"XLK":  equityFund("Technology Select Sector SPDR", SectorTechnology, large, us),
	"XLF":  equityFund("Financial Select Sector SPDR", SectorFinancials, large, us),
	"XLV":  equityFund("Health Care Select Sector SPDR", SectorHealthcare, large, us),
	"XLE":  equityFund("Energy Select Sector SPDR", SectorEnergy, large, us),
	"XLY":  equityFund("Consumer Discretionary Select Sector SPDR", SectorConsumerDiscretionary, large, us),
	"XLP":  equityFund("Consumer Staples Select Sector SPDR", SectorConsumerStaples, large, us),
	"XLI":  equityFund("Industrial Select Sector SPDR", SectorIndustrials, large, us),
	"XLU":  equityFund("Utilities Select Sector SPDR", SectorUtilities, large, us),
	"XLB":  equityFund("Materials Select Sector SPDR", SectorMaterials, large, us),
	"XLC":  equityFund("Communication Services Select Sector SPDR", SectorCommunication, large, us),
	"SMH":  equityFund("VanEck Semiconductor ETF", SectorTechnology, large, us),
	"SOXX": equityFund("iShares Semiconductor ETF", SectorTechnology, large, us),

	// Treasury, aggregate, corporate and high-yield bonds
	"TLT":  bondFund("iShares 20+ Year Treasury Bond ETF", "Treasury", 17, "AAA", us),
	"EDV":  bondFund("Vanguard Extended Duration Treasury ETF", "Treasury", 24, "AAA", us),
	"VGLT": bondFund("Vanguard Long-Term Treasury ETF", "Treasury", 16, "AAA", us),
	"IEF":  bondFund("iShares 7-10 Year Treasury Bond ETF", "Treasury", 7.5, "AAA", us),
	"VGIT": bondFund("Vanguard Intermediate-Term Treasury ETF", "Treasury", 5.2, "AAA", us),
	"SHY":  bondFund("iShares 1-3 Year Treasury Bond ETF", "Treasury", 1.9, "AAA", us),
	"VGSH": bondFund("Vanguard Short-Term Treasury ETF", "Treasury", 1.9, "AAA", us),
	"GOVT": bondFund("iShares U.S. Treasury Bond ETF", "Treasury", 6, "AAA", us),
	"TIP":  bondFund("iShares TIPS Bond ETF", "Inflation-Protected", 6.8, "AAA", us),
	"BIL":  bondFund("SPDR Bloomberg 1-3 Month T-Bill ETF", "Treasury Bills", 0.1, "AAA", us),
	"SGOV": bondFund("iShares 0-3 Month Treasury Bond ETF", "Treasury Bills", 0.1, "AAA", us),
	"AGG":  bondFund("iShares Core U.S. Aggregate Bond ETF", "Aggregate", 6.2, "AA", us),
	"BND":  bondFund("Vanguard Total Bond Market ETF", "Aggregate", 6.3, "AA", us),
	"MUB":  bondFund("iShares National Muni Bond ETF", "Municipal", 6, "AA", us),
	"LQD":  bondFund("iShares iBoxx Investment Grade Corporate Bond ETF", "Corporate", 8.4, "A", us),
	"VCIT": bondFund("Vanguard Intermediate-Term Corporate Bond ETF", "Corporate", 6.2, "A", us),
	"VCSH": bondFund("Vanguard Short-Term Corporate Bond ETF", "Corporate", 2.7, "A", us),
	"HYG":  bondFund("iShares iBoxx High Yield Corporate Bond ETF", "High Yield", 3.5, "BB", us),
	"JNK":  bondFund("SPDR Bloomberg High Yield Bond ETF", "High Yield", 3.4, "BB", us),
	"BNDX": bondFund("Vanguard Total International Bond ETF", "International Aggregate", 7, "AA", intl),
	"EMB":  bondFund("iShares J.P. Morgan USD Emerging Markets Bond ETF", "Emerging Markets Debt", 7, "BB", em),

	// Real estate
	"VNQ":  reit("Vanguard Real Estate ETF", "REIT ETF", large),
	"SCHH": reit("Schwab U.S. REIT ETF", "REIT ETF", large),
	"IYR":  reit("iShares U.S. Real Estate ETF", "REIT ETF", large),
	"XLRE": reit("Real Estate Select Sector SPDR", "REIT ETF", large),
	"O":    reit("Realty Income Corp", "Retail REIT", large),
	"PLD":  reit("Prologis Inc", "Industrial REIT", large),
	"AMT":  reit("American Tower Corp", "Specialty REIT", large),
	"EQIX": reit("Equinix Inc", "Specialty REIT", large),
	"SPG":  reit("Simon Property Group", "Retail REIT", large),

	// Commodities
	"GLD":  commodityFund("SPDR Gold Shares", "Precious Metals"),
	"IAU":  commodityFund("iShares Gold Trust", "Precious Metals"),
	"SLV":  commodityFund("iShares Silver Trust", "Precious Metals"),
	"USO":  commodityFund("United States Oil Fund", "Energy Commodities"),
	"UNG":  commodityFund("United States Natural Gas Fund", "Energy Commodities"),
	"DBC":  commodityFund("Invesco DB Commodity Index Tracking Fund", "Broad Commodities"),
	"PDBC": commodityFund("Invesco Optimum Yield Diversified Commodity Strategy", "Broad Commodities"),
	"GSG":  commodityFund("iShares S&P GSCI Commodity-Indexed Trust", "Broad Commodities"),
	"DBA":  commodityFund("Invesco DB Agriculture Fund", "Agriculture"),

	// Alternatives
	"DBMF": alternativeFund("iMGP DBi Managed Futures Strategy ETF", "Managed Futures"),
	"QAI":  alternativeFund("IQ Hedge Multi-Strategy Tracker ETF", "Hedge Fund Replication"),
	"BTAL": alternativeFund("AGF U.S. Market Neutral Anti-Beta Fund", "Market Neutral"),

	// Cash
	"CASH": cashEquivalent("Cash"),
	"USD":  cashEquivalent("US Dollar Cash"),

	// Technology
	"AAPL": stock("Apple Inc", SectorTechnology, "Consumer Electronics", large, us),
	"MSFT": stock("Microsoft Corp", SectorTechnology, "Software", large, us),
	"NVDA": stock("NVIDIA Corp", SectorTechnology, "Semiconductors", large, us),
	"AVGO": stock("Broadcom Inc", SectorTechnology, "Semiconductors", large, us),
	"AMD":  stock("Advanced Micro Devices", SectorTechnology, "Semiconductors", large, us),
	"INTC": stock("Intel Corp", SectorTechnology, "Semiconductors", large, us),
	"QCOM": stock("Qualcomm Inc", SectorTechnology, "Semiconductors", large, us),
	"TXN":  stock("Texas Instruments", SectorTechnology, "Semiconductors", large, us),
	"ORCL": stock("Oracle Corp", SectorTechnology, "Software", large, us),
	"CRM":  stock("Salesforce Inc", SectorTechnology, "Software", large, us),
	"ADBE": stock("Adobe Inc", SectorTechnology, "Software", large, us),
	"CSCO": stock("Cisco Systems", SectorTechnology, "Networking", large, us),
	"IBM":  stock("International Business Machines", SectorTechnology, "IT Services", large, us),
	"PLTR": stock("Palantir Technologies", SectorTechnology, "Software", large, us),
	"TSM":  stock("Taiwan Semiconductor Manufacturing", SectorTechnology, "Semiconductors", large, em),
	"ASML": stock("ASML Holding NV", SectorTechnology, "Semiconductor Equipment", large, intl),
	"SAP":  stock("SAP SE", SectorTechnology, "Software", large, intl),

	// Communication services
	"GOOGL": stock("Alphabet Inc Class A", SectorCommunication, "Interactive Media", large, us),
	"GOOG":  stock("Alphabet Inc Class C", SectorCommunication, "Interactive Media", large, us),
	"META":  stock("Meta Platforms", SectorCommunication, "Interactive Media", large, us),
	"NFLX":  stock("Netflix Inc", SectorCommunication, "Entertainment", large, us),
	"DIS":   stock("Walt Disney Co", SectorCommunication, "Entertainment", large, us),
	"CMCSA": stock("Comcast Corp", SectorCommunication, "Media", large, us),
	"T":     stock("AT&T Inc", SectorCommunication, "Telecom", large, us),
	"VZ":    stock("Verizon Communications", SectorCommunication, "Telecom", large, us),

	// Consumer discretionary
	"AMZN": stock("Amazon.com Inc", SectorConsumerDiscretionary, "Internet Retail", large, us),
	"TSLA": stock("Tesla Inc", SectorConsumerDiscretionary, "Automobiles", large, us),
	"HD":   stock("Home Depot", SectorConsumerDiscretionary, "Home Improvement Retail", large, us),
	"LOW":  stock("Lowe's Companies", SectorConsumerDiscretionary, "Home Improvement Retail", large, us),
	"MCD":  stock("McDonald's Corp", SectorConsumerDiscretionary, "Restaurants", large, us),
	"SBUX": stock("Starbucks Corp", SectorConsumerDiscretionary, "Restaurants", large, us),
	"NKE":  stock("Nike Inc", SectorConsumerDiscretionary, "Apparel", large, us),
	"TGT":  stock("Target Corp", SectorConsumerDiscretionary, "General Merchandise", large, us),
	"BKNG": stock("Booking Holdings", SectorConsumerDiscretionary, "Travel Services", large, us),
	"BABA": stock("Alibaba Group", SectorConsumerDiscretionary, "Internet Retail", large, em),
	"TM":   stock("Toyota Motor Corp", SectorConsumerDiscretionary, "Automobiles", large, intl),
	"ETSY": stock("Etsy Inc", SectorConsumerDiscretionary, "Internet Retail", mid, us),

	// Financials
	"BRK.B": stock("Berkshire Hathaway Class B", SectorFinancials, "Insurance", large, us),
	"JPM":   stock("JPMorgan Chase & Co", SectorFinancials, "Banks", large, us),
	"BAC":   stock("Bank of America", SectorFinancials, "Banks", large, us),
	"WFC":   stock("Wells Fargo", SectorFinancials, "Banks", large, us),
	"C":     stock("Citigroup Inc", SectorFinancials, "Banks", large, us),
	"GS":    stock("Goldman Sachs", SectorFinancials, "Capital Markets", large, us),
	"MS":    stock("Morgan Stanley", SectorFinancials, "Capital Markets", large, us),
	"SCHW":  stock("Charles Schwab", SectorFinancials, "Capital Markets", large, us),
	"BLK":   stock("BlackRock Inc", SectorFinancials, "Asset Management", large, us),
	"V":     stock("Visa Inc", SectorFinancials, "Payments", large, us),
	"MA":    stock("Mastercard Inc", SectorFinancials, "Payments", large, us),
	"AXP":   stock("American Express", SectorFinancials, "Consumer Finance", large, us),

	// Healthcare
	"UNH":  stock("UnitedHealth Group", SectorHealthcare, "Managed Care", large, us),
	"JNJ":  stock("Johnson & Johnson", SectorHealthcare, "Pharmaceuticals", large, us),
	"LLY":  stock("Eli Lilly", SectorHealthcare, "Pharmaceuticals", large, us),
	"PFE":  stock("Pfizer Inc", SectorHealthcare, "Pharmaceuticals", large, us),
	"MRK":  stock("Merck & Co", SectorHealthcare, "Pharmaceuticals", large, us),
	"ABBV": stock("AbbVie Inc", SectorHealthcare, "Pharmaceuticals", large, us),
	"TMO":  stock("Thermo Fisher Scientific", SectorHealthcare, "Life Sciences Tools", large, us),
	"ABT":  stock("Abbott Laboratories", SectorHealthcare, "Medical Devices", large, us),
	"MDT":  stock("Medtronic plc", SectorHealthcare, "Medical Devices", large, us),
	"AMGN": stock("Amgen Inc", SectorHealthcare, "Biotechnology", large, us),
	"CVS":  stock("CVS Health", SectorHealthcare, "Healthcare Services", large, us),
	"NVO":  stock("Novo Nordisk", SectorHealthcare, "Pharmaceuticals", large, intl),

	// Energy
	"XOM":  stock("Exxon Mobil", SectorEnergy, "Integrated Oil & Gas", large, us),
	"CVX":  stock("Chevron Corp", SectorEnergy, "Integrated Oil & Gas", large, us),
	"COP":  stock("ConocoPhillips", SectorEnergy, "Exploration & Production", large, us),
	"EOG":  stock("EOG Resources", SectorEnergy, "Exploration & Production", large, us),
	"OXY":  stock("Occidental Petroleum", SectorEnergy, "Exploration & Production", large, us),
	"SLB":  stock("Schlumberger", SectorEnergy, "Oilfield Services", large, us),
	"SHEL": stock("Shell plc", SectorEnergy, "Integrated Oil & Gas", large, intl),

	// Consumer staples
	"PG":   stock("Procter & Gamble", SectorConsumerStaples, "Household Products", large, us),
	"KO":   stock("Coca-Cola Co", SectorConsumerStaples, "Beverages", large, us),
	"PEP":  stock("PepsiCo Inc", SectorConsumerStaples, "Beverages", large, us),
	"WMT":  stock("Walmart Inc", SectorConsumerStaples, "Hypermarkets", large, us),
	"COST": stock("Costco Wholesale", SectorConsumerStaples, "Hypermarkets", large, us),
	"PM":   stock("Philip Morris International", SectorConsumerStaples, "Tobacco", large, us),
	"MO":   stock("Altria Group", SectorConsumerStaples, "Tobacco", large, us),
	"CL":   stock("Colgate-Palmolive", SectorConsumerStaples, "Household Products", large, us),
	"MDLZ": stock("Mondelez International", SectorConsumerStaples, "Packaged Foods", large, us),

	// Industrials
	"CAT": stock("Caterpillar Inc", SectorIndustrials, "Machinery", large, us),
	"DE":  stock("Deere & Co", SectorIndustrials, "Machinery", large, us),
	"BA":  stock("Boeing Co", SectorIndustrials, "Aerospace & Defense", large, us),
	"LMT": stock("Lockheed Martin", SectorIndustrials, "Aerospace & Defense", large, us),
	"RTX": stock("RTX Corp", SectorIndustrials, "Aerospace & Defense", large, us),
	"GE":  stock("GE Aerospace", SectorIndustrials, "Aerospace & Defense", large, us),
	"HON": stock("Honeywell International", SectorIndustrials, "Conglomerates", large, us),
	"MMM": stock("3M Co", SectorIndustrials, "Conglomerates", large, us),
	"UPS": stock("United Parcel Service", SectorIndustrials, "Logistics", large, us),

	// Utilities
	"NEE": stock("NextEra Energy", SectorUtilities, "Electric Utilities", large, us),
	"DUK": stock("Duke Energy", SectorUtilities, "Electric Utilities", large, us),
	"SO":  stock("Southern Co", SectorUtilities, "Electric Utilities", large, us),
	"D":   stock("Dominion Energy", SectorUtilities, "Electric Utilities", large, us),
	"AEP": stock("American Electric Power", SectorUtilities, "Electric Utilities", large, us),

	// Materials
	"LIN": stock("Linde plc", SectorMaterials, "Industrial Gases", large, us),
	"FCX": stock("Freeport-McMoRan", SectorMaterials, "Copper", large, us),
	"NEM": stock("Newmont Corp", SectorMaterials, "Gold Mining", large, us),
	"DOW": stock("Dow Inc", SectorMaterials, "Chemicals", large, us),
}

// lookupHardcoded returns a copy of the curated entry for sym, if any.
func lookupHardcoded(sym string) (*models.AssetMetadata, bool) {
	entry, ok := knownSymbols[hardcodedKey(sym)]
	if !ok {
		return nil, false
	}
	meta := entry
	meta.Symbol = sym
	meta.Source = models.SourceHardcoded
	if entry.Duration != nil {
		meta.Duration = models.Float64Ptr(*entry.Duration)
	}
	return &meta, true
}
