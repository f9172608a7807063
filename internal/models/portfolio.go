// Package models defines data structures for Vire Stress
package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// AssetClass is the closed set of asset classes a position can belong to.
type AssetClass string

const (
	AssetClassEquity      AssetClass = "equity"
	AssetClassBond        AssetClass = "bond"
	AssetClassCommodity   AssetClass = "commodity"
	AssetClassRealEstate  AssetClass = "real_estate"
	AssetClassAlternative AssetClass = "alternative"
	AssetClassCash        AssetClass = "cash"
)

// AllAssetClasses lists every asset class in a stable order.
var AllAssetClasses = []AssetClass{
	AssetClassEquity,
	AssetClassBond,
	AssetClassCommodity,
	AssetClassRealEstate,
	AssetClassAlternative,
	AssetClassCash,
}

// Valid reports whether c is one of the known asset classes.
func (c AssetClass) Valid() bool {
	switch c {
	case AssetClassEquity, AssetClassBond, AssetClassCommodity,
		AssetClassRealEstate, AssetClassAlternative, AssetClassCash:
		return true
	}
	return false
}

// ParseAssetClass maps loose spellings ("reit", "fixed_income", "stock") onto an AssetClass.
func ParseAssetClass(s string) (AssetClass, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "equity", "stock", "equities", "etf":
		return AssetClassEquity, nil
	case "bond", "bonds", "fixed_income", "fixed income":
		return AssetClassBond, nil
	case "commodity", "commodities":
		return AssetClassCommodity, nil
	case "real_estate", "real estate", "reit", "reits":
		return AssetClassRealEstate, nil
	case "alternative", "alternatives", "alt":
		return AssetClassAlternative, nil
	case "cash", "money_market":
		return AssetClassCash, nil
	}
	return "", fmt.Errorf("unknown asset class %q", s)
}

// Asset is a single holding in a portfolio
type Asset struct {
	Symbol     string     `json:"symbol" toml:"symbol"`
	Name       string     `json:"name,omitempty" toml:"name"`
	Quantity   float64    `json:"quantity" toml:"quantity"`
	Price      float64    `json:"price" toml:"price"` // stored price, used when a live quote is unavailable
	AssetClass AssetClass `json:"asset_class" toml:"asset_class"`
}

// Value returns the stored market value (price × quantity).
func (a Asset) Value() float64 {
	return a.Price * a.Quantity
}

// Validate checks the per-asset invariants: symbol present, quantity ≥ 0, price > 0.
func (a Asset) Validate() error {
	if strings.TrimSpace(a.Symbol) == "" {
		return fmt.Errorf("asset symbol is required")
	}
	if math.IsNaN(a.Quantity) || math.IsInf(a.Quantity, 0) || a.Quantity < 0 {
		return fmt.Errorf("asset %s: quantity must be a non-negative number, got %v", a.Symbol, a.Quantity)
	}
	if math.IsNaN(a.Price) || math.IsInf(a.Price, 0) || a.Price <= 0 {
		return fmt.Errorf("asset %s: price must be positive, got %v", a.Symbol, a.Price)
	}
	if a.AssetClass != "" && !a.AssetClass.Valid() {
		return fmt.Errorf("asset %s: unknown asset class %q", a.Symbol, a.AssetClass)
	}
	return nil
}

// Portfolio is a named collection of assets
type Portfolio struct {
	ID        string    `json:"id" toml:"id" badgerhold:"key"`
	Name      string    `json:"name" toml:"name"`
	Assets    []Asset   `json:"assets" toml:"assets"`
	CreatedAt time.Time `json:"created_at" toml:"-"`
	UpdatedAt time.Time `json:"updated_at" toml:"-"`
}

// TotalValue sums stored asset values.
func (p *Portfolio) TotalValue() float64 {
	var total float64
	for _, a := range p.Assets {
		total += a.Value()
	}
	return total
}

// Symbols returns the asset symbols in portfolio order.
func (p *Portfolio) Symbols() []string {
	out := make([]string, len(p.Assets))
	for i, a := range p.Assets {
		out[i] = a.Symbol
	}
	return out
}

// Validate checks that symbols are unique within the portfolio and every asset is well-formed.
func (p *Portfolio) Validate() error {
	seen := make(map[string]bool, len(p.Assets))
	for _, a := range p.Assets {
		if err := a.Validate(); err != nil {
			return err
		}
		key := strings.ToUpper(strings.TrimSpace(a.Symbol))
		if seen[key] {
			return fmt.Errorf("portfolio %s: duplicate symbol %s", p.ID, a.Symbol)
		}
		seen[key] = true
	}
	return nil
}
