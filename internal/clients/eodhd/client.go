// Package eodhd provides a client for the EODHD API
package eodhd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/vire-stress/internal/common"
	"github.com/bobmcallan/vire-stress/internal/interfaces"
	"github.com/bobmcallan/vire-stress/internal/models"
)

const providerName = "eodhd"

// flexFloat64 handles JSON values that may be either a number or a string.
type flexFloat64 float64

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" || s == "N/A" || s == "NA" {
			*f = 0
			return nil
		}
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat64(num)
		return nil
	}
	if string(data) == "null" {
		*f = 0
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

const (
	DefaultBaseURL   = "https://eodhd.com/api"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second

	// DefaultRetryAfter is the backoff hint attached to HTTP 429 responses
	// that carry no Retry-After header.
	DefaultRetryAfter = time.Minute
)

// Client is the EODHD market data provider
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new EODHD client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NewClientFromConfig builds a client from the [clients.eodhd] config section
func NewClientFromConfig(cfg common.EODHDConfig, apiKey string, logger *common.Logger) *Client {
	opts := []ClientOption{
		WithLogger(logger),
		WithTimeout(cfg.GetTimeout()),
		WithRateLimit(cfg.RateLimit),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, WithBaseURL(cfg.BaseURL))
	}
	return NewClient(apiKey, opts...)
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("EODHD API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.apiKey)
	params.Set("fmt", "json")

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("EODHD API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   path,
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return &rateLimited{APIError: apiErr, retryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// rateLimited marks a 429 so wrapError can surface a typed RateLimitError.
type rateLimited struct {
	*APIError
	retryAfter time.Duration
}

func (r *rateLimited) Unwrap() error { return r.APIError }

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return DefaultRetryAfter
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return DefaultRetryAfter
}

// wrapError converts transport and API failures into the models provider errors
func wrapError(op, symbol string, err error) error {
	if err == nil {
		return nil
	}
	if rl, ok := err.(*rateLimited); ok {
		return &models.RateLimitError{
			ProviderError: models.ProviderError{Provider: providerName, Op: op, Symbol: symbol, Err: rl.APIError},
			RetryAfter:    rl.retryAfter,
		}
	}
	return &models.ProviderError{Provider: providerName, Op: op, Symbol: symbol, Err: err}
}

// realTimeResponse is the /real-time payload. EODHD sometimes sends numbers as strings.
type realTimeResponse struct {
	Code          string      `json:"code"`
	Timestamp     flexFloat64 `json:"timestamp"`
	Open          flexFloat64 `json:"open"`
	High          flexFloat64 `json:"high"`
	Low           flexFloat64 `json:"low"`
	Close         flexFloat64 `json:"close"`
	Volume        flexFloat64 `json:"volume"`
	PreviousClose flexFloat64 `json:"previousClose"`
	Change        flexFloat64 `json:"change"`
	ChangeP       flexFloat64 `json:"change_p"`
}

func (r realTimeResponse) toQuote() *models.RealTimeQuote {
	q := &models.RealTimeQuote{
		Code:          r.Code,
		Close:         float64(r.Close),
		PreviousClose: float64(r.PreviousClose),
		Change:        float64(r.Change),
		ChangePct:     float64(r.ChangeP),
		Volume:        int64(r.Volume),
		Source:        providerName,
	}
	if ts := int64(r.Timestamp); ts > 0 {
		q.Timestamp = time.Unix(ts, 0)
	}
	return q
}

// GetRealTimeQuote retrieves a live quote for one symbol
func (c *Client) GetRealTimeQuote(ctx context.Context, symbol string) (*models.RealTimeQuote, error) {
	path := "/real-time/" + url.PathEscape(symbol)

	var resp realTimeResponse
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, wrapError("quote", symbol, err)
	}
	if resp.Code == "" {
		resp.Code = symbol
	}
	return resp.toQuote(), nil
}

// GetRealTimeQuotes retrieves quotes for a batch of symbols in one request.
// The first symbol goes in the path, the rest in the "s" parameter. A single-symbol
// request returns an object rather than an array, so both shapes are accepted.
func (c *Client) GetRealTimeQuotes(ctx context.Context, symbols []string) (map[string]*models.RealTimeQuote, error) {
	out := make(map[string]*models.RealTimeQuote, len(symbols))
	if len(symbols) == 0 {
		return out, nil
	}

	path := "/real-time/" + url.PathEscape(symbols[0])
	params := url.Values{}
	if len(symbols) > 1 {
		params.Set("s", strings.Join(symbols[1:], ","))
	}

	var raw json.RawMessage
	if err := c.get(ctx, path, params, &raw); err != nil {
		return nil, wrapError("quotes", strings.Join(symbols, ","), err)
	}

	var rows []realTimeResponse
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, wrapError("quotes", "", fmt.Errorf("failed to decode response: %w", err))
		}
	} else {
		var one realTimeResponse
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil, wrapError("quotes", "", fmt.Errorf("failed to decode response: %w", err))
		}
		if one.Code == "" {
			one.Code = symbols[0]
		}
		rows = []realTimeResponse{one}
	}

	// Map response codes back to the requested spelling
	for _, row := range rows {
		for _, s := range symbols {
			if _, done := out[s]; done {
				continue
			}
			if tickerMatches(s, row.Code) {
				out[s] = row.toQuote()
				break
			}
		}
	}

	c.logger.Debug().Int("requested", len(symbols)).Int("returned", len(out)).Msg("EODHD batch quotes")
	return out, nil
}

// tickerMatches reports whether a response code refers to the requested ticker.
// EODHD sometimes strips the exchange suffix ("SPY" for "SPY.US"), but a
// different explicit exchange never matches.
func tickerMatches(requested, returned string) bool {
	if strings.EqualFold(requested, returned) {
		return true
	}
	reqBase, reqExch := splitTicker(requested)
	retBase, retExch := splitTicker(returned)
	if !strings.EqualFold(reqBase, retBase) {
		return false
	}
	return reqExch == "" || retExch == "" || strings.EqualFold(reqExch, retExch)
}

func splitTicker(t string) (base, exchange string) {
	if i := strings.LastIndex(t, "."); i > 0 {
		return t[:i], t[i+1:]
	}
	return t, ""
}

// GetEOD retrieves end-of-day price data
func (c *Client) GetEOD(ctx context.Context, ticker string, opts ...interfaces.EODOption) (*models.EODResponse, error) {
	params := &interfaces.EODParams{
		Period: "d",
		Order:  "d", // descending (most recent first)
	}

	for _, opt := range opts {
		opt(params)
	}

	urlParams := url.Values{}
	urlParams.Set("period", params.Period)
	urlParams.Set("order", params.Order)

	if !params.From.IsZero() {
		urlParams.Set("from", params.From.Format("2006-01-02"))
	}
	if !params.To.IsZero() {
		urlParams.Set("to", params.To.Format("2006-01-02"))
	}

	path := "/eod/" + url.PathEscape(ticker)

	var bars []eodBarResponse
	if err := c.get(ctx, path, urlParams, &bars); err != nil {
		return nil, wrapError("eod", ticker, err)
	}

	result := &models.EODResponse{
		Data: make([]models.EODBar, len(bars)),
	}

	for i, bar := range bars {
		date, _ := time.Parse("2006-01-02", bar.Date)
		result.Data[i] = models.EODBar{
			Date:     date,
			Open:     float64(bar.Open),
			High:     float64(bar.High),
			Low:      float64(bar.Low),
			Close:    float64(bar.Close),
			AdjClose: float64(bar.AdjustedClose),
			Volume:   int64(bar.Volume),
		}
	}

	return result, nil
}

// eodBarResponse represents the API response for EOD data
type eodBarResponse struct {
	Date          string      `json:"date"`
	Open          flexFloat64 `json:"open"`
	High          flexFloat64 `json:"high"`
	Low           flexFloat64 `json:"low"`
	Close         flexFloat64 `json:"close"`
	AdjustedClose flexFloat64 `json:"adjusted_close"`
	Volume        flexFloat64 `json:"volume"`
}

// GetMetadata retrieves descriptive data from the fundamentals endpoint.
// Only the General and Highlights sections are requested.
func (c *Client) GetMetadata(ctx context.Context, symbol string) (*models.SymbolMetadata, error) {
	path := "/fundamentals/" + url.PathEscape(symbol)

	params := url.Values{}
	params.Set("filter", "General,Highlights")

	var resp fundamentalsResponse
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, wrapError("metadata", symbol, err)
	}

	return &models.SymbolMetadata{
		Symbol:     symbol,
		Name:       resp.General.Name,
		Type:       resp.General.Type,
		Sector:     resp.General.Sector,
		Industry:   resp.General.Industry,
		CountryISO: resp.General.CountryISO,
		MarketCap:  float64(resp.Highlights.MarketCapitalization),
	}, nil
}

// fundamentalsResponse represents the subset of the fundamentals payload we read
type fundamentalsResponse struct {
	General struct {
		Code       string `json:"Code"`
		Name       string `json:"Name"`
		Type       string `json:"Type"` // "Common Stock", "ETF", etc.
		Sector     string `json:"Sector"`
		Industry   string `json:"Industry"`
		CountryISO string `json:"CountryISO"`
	} `json:"General"`
	Highlights struct {
		MarketCapitalization flexFloat64 `json:"MarketCapitalization"`
	} `json:"Highlights"`
}

// Ensure Client implements MarketDataProvider
var _ interfaces.MarketDataProvider = (*Client)(nil)
