// Package pricing resolves position prices from the live provider with
// automatic fallback to the stored price
package pricing

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/vire-stress/internal/common"
	"github.com/bobmcallan/vire-stress/internal/interfaces"
	"github.com/bobmcallan/vire-stress/internal/metrics"
	"github.com/bobmcallan/vire-stress/internal/models"
)

// Price sources reported by ResolvePrice.
const (
	SourceLive   = "live"
	SourceCache  = "cache"
	SourceStored = "stored"
)

type cachedPrice struct {
	price     float64
	fetchedAt time.Time
}

// Service implements PriceResolver with a TTL cache in front of the provider.
type Service struct {
	provider   interfaces.PriceProvider
	metrics    *metrics.Recorder
	logger     *common.Logger
	batchSize  int
	batchDelay time.Duration
	timeout    time.Duration
	ttl        time.Duration
	now        func() time.Time // injectable clock for testing
	sleep      func(ctx context.Context, d time.Duration) error

	mu           sync.RWMutex
	cache        map[string]cachedPrice
	backoffUntil time.Time
}

// NewService creates a pricing service.
// provider may be nil, in which case every position uses its stored price.
func NewService(provider interfaces.PriceProvider, cfg common.PricingConfig, rec *metrics.Recorder, logger *common.Logger) *Service {
	s := &Service{
		provider:   provider,
		metrics:    rec,
		logger:     logger,
		batchSize:  cfg.BatchSize,
		batchDelay: cfg.GetBatchDelay(),
		timeout:    cfg.GetTimeout(),
		ttl:        cfg.GetCacheTTL(),
		now:        time.Now,
		sleep:      sleepCtx,
		cache:      make(map[string]cachedPrice),
	}
	if s.batchSize <= 0 {
		s.batchSize = 10
	}
	return s
}

// ResolvePrice returns the best available price for asset and its source.
// Provider failures are logged and counted, never returned.
func (s *Service) ResolvePrice(ctx context.Context, asset models.Asset) (float64, string) {
	sym := cacheKey(asset.Symbol)

	if p, ok := s.cached(sym); ok {
		return p, SourceCache
	}
	if s.provider == nil || s.inBackoff() {
		return asset.Price, SourceStored
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	quote, err := s.provider.GetRealTimeQuote(fetchCtx, asset.Symbol)
	if err != nil {
		s.recordFailure(err, asset.Symbol)
		return asset.Price, SourceStored
	}
	if quote == nil {
		s.metrics.PriceFallback("missing")
		s.logger.Warn().Str("symbol", asset.Symbol).Msg("Provider returned no quote, using stored price")
		return asset.Price, SourceStored
	}
	if !usable(quote) {
		s.metrics.PriceFallback("invalid")
		s.logger.Warn().Str("symbol", asset.Symbol).Msg("Provider returned no usable price, using stored price")
		return asset.Price, SourceStored
	}

	s.store(sym, quote.Close)
	return quote.Close, SourceLive
}

// Prefetch warms the cache for assets. Symbols are fetched in batches of
// batchSize; each batch is one provider request, with per-symbol requests
// fired concurrently for anything the batch response missed. Batches are
// separated by batchDelay. A rate-limit response stops prefetching.
func (s *Service) Prefetch(ctx context.Context, assets []models.Asset) {
	if s.provider == nil {
		return
	}

	var pending []string
	seen := make(map[string]bool)
	for _, a := range assets {
		key := cacheKey(a.Symbol)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		if _, ok := s.cached(key); !ok {
			pending = append(pending, a.Symbol)
		}
	}

	for start := 0; start < len(pending); start += s.batchSize {
		if s.inBackoff() {
			return
		}
		if start > 0 {
			if err := s.sleep(ctx, s.batchDelay); err != nil {
				return
			}
		}
		end := min(start+s.batchSize, len(pending))
		s.fetchBatch(ctx, pending[start:end])
	}
}

func (s *Service) fetchBatch(ctx context.Context, symbols []string) {
	batchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	quotes, err := s.provider.GetRealTimeQuotes(batchCtx, symbols)
	if err != nil {
		s.recordFailure(err, strings.Join(symbols, ","))
		if isRateLimited(err) {
			return
		}
		quotes = nil
	}

	var missing []string
	for _, sym := range symbols {
		if q := quotes[sym]; usable(q) {
			s.store(cacheKey(sym), q.Close)
		} else {
			missing = append(missing, sym)
		}
	}
	if len(missing) == 0 {
		return
	}

	var g errgroup.Group
	g.SetLimit(s.batchSize)
	for _, sym := range missing {
		g.Go(func() error {
			q, err := s.provider.GetRealTimeQuote(batchCtx, sym)
			if err != nil {
				if isRateLimited(err) {
					s.recordFailure(err, sym)
				} else {
					s.logger.Debug().Err(err).Str("symbol", sym).Msg("Quote prefetch failed")
				}
				return nil
			}
			if usable(q) {
				s.store(cacheKey(sym), q.Close)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// ClearCache drops all cached prices.
func (s *Service) ClearCache() {
	s.mu.Lock()
	s.cache = make(map[string]cachedPrice)
	s.mu.Unlock()
}

func (s *Service) cached(key string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cache[key]
	if !ok || s.now().Sub(c.fetchedAt) > s.ttl {
		return 0, false
	}
	return c.price, true
}

func (s *Service) store(key string, price float64) {
	s.mu.Lock()
	s.cache[key] = cachedPrice{price: price, fetchedAt: s.now()}
	s.mu.Unlock()
}

func (s *Service) inBackoff() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now().Before(s.backoffUntil)
}

// recordFailure logs and counts a provider failure. A rate limit also pauses
// provider calls for the advertised backoff.
func (s *Service) recordFailure(err error, symbol string) {
	var rl *models.RateLimitError
	if errors.As(err, &rl) {
		s.metrics.PriceFallback("rate_limited")
		s.mu.Lock()
		if until := s.now().Add(rl.RetryAfter); until.After(s.backoffUntil) {
			s.backoffUntil = until
		}
		s.mu.Unlock()
		s.logger.Warn().Str("symbol", symbol).Dur("retry_after", rl.RetryAfter).Msg("Price provider rate limited, using stored prices")
		return
	}
	s.metrics.PriceFallback("error")
	s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Price fetch failed, using stored price")
}

func isRateLimited(err error) bool {
	var rl *models.RateLimitError
	return errors.As(err, &rl)
}

func usable(q *models.RealTimeQuote) bool {
	return q != nil && q.Close > 0 && !math.IsNaN(q.Close) && !math.IsInf(q.Close, 0)
}

func cacheKey(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Ensure Service implements PriceResolver
var _ interfaces.PriceResolver = (*Service)(nil)
