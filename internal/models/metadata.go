package models

// MarketCap buckets a company by size
type MarketCap string

const (
	MarketCapLarge MarketCap = "large"
	MarketCapMid   MarketCap = "mid"
	MarketCapSmall MarketCap = "small"
	MarketCapMicro MarketCap = "micro"
)

// Geography describes where an asset's risk is domiciled
type Geography string

const (
	GeographyUS            Geography = "us"
	GeographyInternational Geography = "international"
	GeographyEmerging      Geography = "emerging"
)

// ClassificationSource records which classifier tier produced the metadata.
type ClassificationSource string

const (
	SourceHardcoded ClassificationSource = "hardcoded"
	SourceAPI       ClassificationSource = "api"
	SourceFallback  ClassificationSource = "fallback"
)

// Default sector used when nothing more specific is known.
const SectorDiversified = "Diversified"

// AssetMetadata is the classified description of a ticker.
// Every field except Duration and CreditRating is always populated.
type AssetMetadata struct {
	Symbol       string               `json:"symbol"`
	Name         string               `json:"name,omitempty"`
	Sector       string               `json:"sector"`
	Industry     string               `json:"industry"`
	MarketCap    MarketCap            `json:"market_cap"`
	Geography    Geography            `json:"geography"`
	AssetType    AssetClass           `json:"asset_type"`
	Duration     *float64             `json:"duration,omitempty"`      // bonds only, years
	CreditRating string               `json:"credit_rating,omitempty"` // bonds only
	Source       ClassificationSource `json:"classification_source"`
}

// Clone returns a deep copy so cached metadata cannot be mutated by callers.
func (m *AssetMetadata) Clone() *AssetMetadata {
	if m == nil {
		return nil
	}
	c := *m
	if m.Duration != nil {
		d := *m.Duration
		c.Duration = &d
	}
	return &c
}

// DurationOr returns the bond duration, or def when none is recorded.
func (m *AssetMetadata) DurationOr(def float64) float64 {
	if m == nil || m.Duration == nil {
		return def
	}
	return *m.Duration
}

// Float64Ptr is a small helper for optional numeric fields.
func Float64Ptr(v float64) *float64 {
	return &v
}
