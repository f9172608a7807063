package pricing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/vire-stress/internal/common"
	"github.com/bobmcallan/vire-stress/internal/metrics"
	"github.com/bobmcallan/vire-stress/internal/models"
)

// --- Mocks ---

type mockPriceProvider struct {
	mu          sync.Mutex
	prices      map[string]float64
	singleErr   error
	batchErr    error
	batchOmit   map[string]bool // symbols the batch endpoint leaves out
	singleCalls []string
	batchCalls  [][]string
}

func (m *mockPriceProvider) GetRealTimeQuote(_ context.Context, symbol string) (*models.RealTimeQuote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.singleCalls = append(m.singleCalls, symbol)
	if m.singleErr != nil {
		return nil, m.singleErr
	}
	p, ok := m.prices[symbol]
	if !ok {
		return nil, &models.ProviderError{Provider: "mock", Op: "quote", Symbol: symbol, Err: errors.New("unknown symbol")}
	}
	return &models.RealTimeQuote{Code: symbol, Close: p}, nil
}

func (m *mockPriceProvider) GetRealTimeQuotes(_ context.Context, symbols []string) (map[string]*models.RealTimeQuote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls = append(m.batchCalls, append([]string(nil), symbols...))
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	out := make(map[string]*models.RealTimeQuote)
	for _, sym := range symbols {
		if p, ok := m.prices[sym]; ok && !m.batchOmit[sym] {
			out[sym] = &models.RealTimeQuote{Code: sym, Close: p}
		}
	}
	return out, nil
}

func (m *mockPriceProvider) singleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.singleCalls)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestService(provider *mockPriceProvider, rec *metrics.Recorder) (*Service, *fakeClock) {
	cfg := common.PricingConfig{BatchSize: 2, BatchDelay: "250ms", Timeout: "1s", CacheTTL: "10m"}
	var svc *Service
	if provider == nil {
		svc = NewService(nil, cfg, rec, common.NewSilentLogger())
	} else {
		svc = NewService(provider, cfg, rec, common.NewSilentLogger())
	}
	clock := &fakeClock{t: time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)}
	svc.now = clock.Now
	svc.sleep = func(ctx context.Context, d time.Duration) error {
		clock.Advance(d)
		return ctx.Err()
	}
	return svc, clock
}

func asset(symbol string, price float64) models.Asset {
	return models.Asset{Symbol: symbol, Quantity: 10, Price: price, AssetClass: models.AssetClassEquity}
}

// --- Tests ---

func TestResolvePrice_LiveThenCache(t *testing.T) {
	provider := &mockPriceProvider{prices: map[string]float64{"SPY": 512.5}}
	svc, clock := newTestService(provider, nil)
	ctx := context.Background()

	price, src := svc.ResolvePrice(ctx, asset("SPY", 400))
	assert.Equal(t, 512.5, price)
	assert.Equal(t, SourceLive, src)

	price, src = svc.ResolvePrice(ctx, asset("spy", 400))
	assert.Equal(t, 512.5, price)
	assert.Equal(t, SourceCache, src)
	assert.Equal(t, 1, provider.singleCount())

	clock.Advance(11 * time.Minute)
	_, src = svc.ResolvePrice(ctx, asset("SPY", 400))
	assert.Equal(t, SourceLive, src)
	assert.Equal(t, 2, provider.singleCount())
}

func TestResolvePrice_NoProviderUsesStored(t *testing.T) {
	svc, _ := newTestService(nil, nil)
	price, src := svc.ResolvePrice(context.Background(), asset("SPY", 400))
	assert.Equal(t, 400.0, price)
	assert.Equal(t, SourceStored, src)
}

func TestResolvePrice_ErrorFallsBackAndCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.NewRecorder(reg)
	provider := &mockPriceProvider{singleErr: errors.New("connection reset")}
	svc, _ := newTestService(provider, rec)

	price, src := svc.ResolvePrice(context.Background(), asset("SPY", 400))
	assert.Equal(t, 400.0, price)
	assert.Equal(t, SourceStored, src)

	families, err := reg.Gather()
	require.NoError(t, err)
	found := false
	for _, f := range families {
		if f.GetName() == "vire_stress_price_fallbacks_total" {
			found = true
			require.Len(t, f.GetMetric(), 1)
			assert.Equal(t, 1.0, f.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found)
}

func TestResolvePrice_InvalidQuote(t *testing.T) {
	provider := &mockPriceProvider{prices: map[string]float64{"BAD": 0}}
	svc, _ := newTestService(provider, nil)
	price, src := svc.ResolvePrice(context.Background(), asset("BAD", 12))
	assert.Equal(t, 12.0, price)
	assert.Equal(t, SourceStored, src)
}

func TestResolvePrice_RateLimitBacksOff(t *testing.T) {
	rl := &models.RateLimitError{
		ProviderError: models.ProviderError{Provider: "mock", Op: "quote", Err: errors.New("429")},
		RetryAfter:    time.Minute,
	}
	provider := &mockPriceProvider{singleErr: rl, prices: map[string]float64{"SPY": 500}}
	svc, clock := newTestService(provider, nil)
	ctx := context.Background()

	_, src := svc.ResolvePrice(ctx, asset("SPY", 400))
	assert.Equal(t, SourceStored, src)
	assert.Equal(t, 1, provider.singleCount())

	// Inside the backoff window the provider is not called at all
	_, src = svc.ResolvePrice(ctx, asset("SPY", 400))
	assert.Equal(t, SourceStored, src)
	assert.Equal(t, 1, provider.singleCount())

	provider.mu.Lock()
	provider.singleErr = nil
	provider.mu.Unlock()
	clock.Advance(61 * time.Second)

	price, src := svc.ResolvePrice(ctx, asset("SPY", 400))
	assert.Equal(t, SourceLive, src)
	assert.Equal(t, 500.0, price)
}

func TestPrefetch_BatchesAndDelays(t *testing.T) {
	provider := &mockPriceProvider{prices: map[string]float64{"A": 1, "B": 2, "C": 3, "D": 4, "E": 5}}
	svc, clock := newTestService(provider, nil)
	start := clock.Now()

	svc.Prefetch(context.Background(), []models.Asset{
		asset("A", 9), asset("B", 9), asset("C", 9), asset("a", 9), asset("D", 9), asset("E", 9),
	})

	require.Len(t, provider.batchCalls, 3)
	assert.Equal(t, []string{"A", "B"}, provider.batchCalls[0])
	assert.Equal(t, []string{"C", "D"}, provider.batchCalls[1])
	assert.Equal(t, []string{"E"}, provider.batchCalls[2])
	assert.Equal(t, 500*time.Millisecond, clock.Now().Sub(start))
	assert.Zero(t, provider.singleCount())

	price, src := svc.ResolvePrice(context.Background(), asset("D", 9))
	assert.Equal(t, 4.0, price)
	assert.Equal(t, SourceCache, src)
}

func TestPrefetch_SkipsCachedSymbols(t *testing.T) {
	provider := &mockPriceProvider{prices: map[string]float64{"A": 1, "B": 2}}
	svc, _ := newTestService(provider, nil)
	svc.ResolvePrice(context.Background(), asset("A", 9))

	svc.Prefetch(context.Background(), []models.Asset{asset("A", 9), asset("B", 9)})
	require.Len(t, provider.batchCalls, 1)
	assert.Equal(t, []string{"B"}, provider.batchCalls[0])
}

func TestPrefetch_FillsBatchGapsIndividually(t *testing.T) {
	provider := &mockPriceProvider{
		prices:    map[string]float64{"A": 1, "B": 2},
		batchOmit: map[string]bool{"B": true},
	}
	svc, _ := newTestService(provider, nil)

	svc.Prefetch(context.Background(), []models.Asset{asset("A", 9), asset("B", 9)})
	assert.Equal(t, []string{"B"}, provider.singleCalls)

	_, src := svc.ResolvePrice(context.Background(), asset("B", 9))
	assert.Equal(t, SourceCache, src)
}

func TestPrefetch_StopsOnRateLimit(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.NewRecorder(reg)
	provider := &mockPriceProvider{
		prices: map[string]float64{"A": 1, "B": 2, "C": 3},
		batchErr: &models.RateLimitError{
			ProviderError: models.ProviderError{Provider: "mock", Op: "quotes", Err: errors.New("429")},
			RetryAfter:    time.Minute,
		},
	}
	svc, _ := newTestService(provider, rec)

	svc.Prefetch(context.Background(), []models.Asset{asset("A", 9), asset("B", 9), asset("C", 9)})
	assert.Len(t, provider.batchCalls, 1)
	assert.Zero(t, provider.singleCount())

	_, src := svc.ResolvePrice(context.Background(), asset("C", 7))
	assert.Equal(t, SourceStored, src)
	count, err := testutil.GatherAndCount(reg, "vire_stress_price_fallbacks_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPrefetch_CancelledContextStops(t *testing.T) {
	provider := &mockPriceProvider{prices: map[string]float64{"A": 1, "B": 2, "C": 3}}
	svc, _ := newTestService(provider, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc.Prefetch(ctx, []models.Asset{asset("A", 9), asset("B", 9), asset("C", 9)})
	assert.LessOrEqual(t, len(provider.batchCalls), 1)
}

func TestClearCache(t *testing.T) {
	provider := &mockPriceProvider{prices: map[string]float64{"A": 1}}
	svc, _ := newTestService(provider, nil)
	svc.ResolvePrice(context.Background(), asset("A", 9))
	svc.ClearCache()
	_, src := svc.ResolvePrice(context.Background(), asset("A", 9))
	assert.Equal(t, SourceLive, src)
}
