// Package interfaces defines service contracts for Vire Stress
package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/vire-stress/internal/models"
)

// PriceProvider returns live quotes. Implementations may fail or rate-limit;
// callers degrade to stored prices.
type PriceProvider interface {
	// GetRealTimeQuote retrieves a live quote for one symbol
	GetRealTimeQuote(ctx context.Context, symbol string) (*models.RealTimeQuote, error)

	// GetRealTimeQuotes retrieves quotes for several symbols in one request.
	// Symbols missing from the response are absent from the map.
	GetRealTimeQuotes(ctx context.Context, symbols []string) (map[string]*models.RealTimeQuote, error)
}

// MetadataProvider returns descriptive data for a symbol
type MetadataProvider interface {
	GetMetadata(ctx context.Context, symbol string) (*models.SymbolMetadata, error)
}

// HistoryProvider returns end-of-day price history
type HistoryProvider interface {
	GetEOD(ctx context.Context, ticker string, opts ...EODOption) (*models.EODResponse, error)
}

// MarketDataProvider is the full price/metadata collaborator
type MarketDataProvider interface {
	PriceProvider
	MetadataProvider
	HistoryProvider
}

// EODOption configures EOD data requests
type EODOption func(*EODParams)

// EODParams holds EOD query parameters
type EODParams struct {
	From   time.Time
	To     time.Time
	Period string // d=daily, w=weekly, m=monthly
	Order  string // a=ascending, d=descending
}

// WithDateRange sets the date range for EOD query
func WithDateRange(from, to time.Time) EODOption {
	return func(p *EODParams) {
		p.From = from
		p.To = to
	}
}

// WithOrder sets the sort order for EOD query
func WithOrder(order string) EODOption {
	return func(p *EODParams) {
		p.Order = order
	}
}
