package models

import (
	"time"
)

// RealTimeQuote holds a live price snapshot from the price provider
type RealTimeQuote struct {
	Code          string    `json:"code"`
	Close         float64   `json:"close"`          // current/last price
	PreviousClose float64   `json:"previous_close"` // previous day's close
	Change        float64   `json:"change"`
	ChangePct     float64   `json:"change_p"`
	Volume        int64     `json:"volume"`
	Timestamp     time.Time `json:"timestamp"`
	Source        string    `json:"source,omitempty"`
}

// SymbolMetadata is the descriptive data a metadata provider returns for a ticker.
// Any field may be empty; the classifier back-fills what is missing.
type SymbolMetadata struct {
	Symbol     string  `json:"symbol"`
	Name       string  `json:"name"`
	Type       string  `json:"type,omitempty"` // provider instrument type, e.g. "Common Stock", "ETF"
	Sector     string  `json:"sector,omitempty"`
	Industry   string  `json:"industry,omitempty"`
	CountryISO string  `json:"country_iso,omitempty"`
	MarketCap  float64 `json:"market_cap,omitempty"` // USD
}

// EODBar represents a single day's price data
type EODBar struct {
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adjusted_close"`
	Volume   int64     `json:"volume"`
}

// EODResponse wraps EOD bar data from the provider
type EODResponse struct {
	Data []EODBar `json:"data"`
}
