// Package classifier resolves tickers to asset metadata through a chain of
// hardcoded, provider and heuristic tiers.
package classifier

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/vire-stress/internal/common"
	"github.com/bobmcallan/vire-stress/internal/interfaces"
	"github.com/bobmcallan/vire-stress/internal/metrics"
	"github.com/bobmcallan/vire-stress/internal/models"
)

// DefaultConcurrency bounds concurrent provider lookups in ClassifyBatch.
const DefaultConcurrency = 5

// tier is one classification strategy. A miss returns (nil, false).
type tier struct {
	source  models.ClassificationSource
	resolve func(ctx context.Context, sym string) (*models.AssetMetadata, bool)
}

// Service implements interfaces.Classifier with an owned, symbol-keyed cache.
type Service struct {
	provider    interfaces.MetadataProvider
	metrics     *metrics.Recorder
	logger      *common.Logger
	timeout     time.Duration
	concurrency int
	tiers       []tier

	mu    sync.RWMutex
	cache map[string]*models.AssetMetadata
}

// NewService creates a classifier. provider may be nil, in which case the
// provider tier is skipped. rec may be nil.
func NewService(provider interfaces.MetadataProvider, cfg common.ClassifierConfig, rec *metrics.Recorder, logger *common.Logger) *Service {
	s := &Service{
		metrics:     rec,
		logger:      logger,
		timeout:     cfg.GetProviderTimeout(),
		concurrency: cfg.Concurrency,
		cache:       make(map[string]*models.AssetMetadata),
	}
	if cfg.UseProvider {
		s.provider = provider
	}
	if s.concurrency <= 0 {
		s.concurrency = DefaultConcurrency
	}

	s.tiers = []tier{
		{source: models.SourceHardcoded, resolve: func(_ context.Context, sym string) (*models.AssetMetadata, bool) {
			return lookupHardcoded(sym)
		}},
		{source: models.SourceAPI, resolve: s.fromProvider},
		{source: models.SourceFallback, resolve: func(_ context.Context, sym string) (*models.AssetMetadata, bool) {
			return heuristicMetadata(sym), true
		}},
	}
	return s
}

// Classify returns metadata for symbol. It never fails: unknown symbols get
// fully populated heuristic metadata. The result is a copy the caller may modify.
func (s *Service) Classify(ctx context.Context, symbol string) *models.AssetMetadata {
	sym := normalizeSymbol(symbol)

	s.mu.RLock()
	cached, ok := s.cache[sym]
	s.mu.RUnlock()
	if ok {
		return cached.Clone()
	}

	var meta *models.AssetMetadata
	for _, t := range s.tiers {
		if m, hit := t.resolve(ctx, sym); hit {
			meta = m
			break
		}
	}
	fillDefaults(meta, sym)

	s.mu.Lock()
	// Another goroutine may have classified the same symbol; keep the first result
	if existing, ok := s.cache[sym]; ok {
		meta = existing
	} else {
		s.cache[sym] = meta
		s.metrics.Classified(string(meta.Source))
	}
	s.mu.Unlock()

	s.logger.Debug().
		Str("symbol", sym).
		Str("tier", string(meta.Source)).
		Str("asset_type", string(meta.AssetType)).
		Str("sector", meta.Sector).
		Msg("Classified symbol")

	return meta.Clone()
}

// ClassifyBatch classifies symbols concurrently with bounded parallelism.
// The slice preserves input order; the map is keyed by the symbols as given.
func (s *Service) ClassifyBatch(ctx context.Context, symbols []string) ([]*models.AssetMetadata, map[string]*models.AssetMetadata) {
	ordered := make([]*models.AssetMetadata, len(symbols))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, sym := range symbols {
		g.Go(func() error {
			ordered[i] = s.Classify(ctx, sym)
			return nil
		})
	}
	_ = g.Wait() // Classify never returns an error

	byKey := make(map[string]*models.AssetMetadata, len(symbols))
	for i, sym := range symbols {
		byKey[sym] = ordered[i]
	}
	return ordered, byKey
}

// ClearCache drops all cached classifications so they are recomputed.
func (s *Service) ClearCache() {
	s.mu.Lock()
	s.cache = make(map[string]*models.AssetMetadata)
	s.mu.Unlock()
}

// CacheSize returns the number of cached symbols.
func (s *Service) CacheSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

// fromProvider is the second tier: provider lookup with keyword sector
// derivation, back-filled from the heuristic tier.
func (s *Service) fromProvider(ctx context.Context, sym string) (*models.AssetMetadata, bool) {
	if s.provider == nil {
		return nil, false
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	info, err := s.provider.GetMetadata(lookupCtx, sym)
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", sym).Msg("Metadata lookup failed, using heuristic classification")
		return nil, false
	}
	if info == nil || (strings.TrimSpace(info.Name) == "" && strings.TrimSpace(info.Sector) == "") {
		return nil, false
	}

	meta := heuristicMetadata(sym)
	meta.Source = models.SourceAPI
	meta.Name = strings.TrimSpace(info.Name)

	if assetType, ok := assetTypeFromProvider(info.Type, info.Name); ok && assetType != meta.AssetType {
		meta.AssetType = assetType
		applyTypeDefaults(meta)
	}

	sector := sectorFromKeywords(info.Sector)
	if sector == models.SectorDiversified {
		sector = sectorFromKeywords(info.Name)
	}
	if sector != models.SectorDiversified && meta.AssetType == models.AssetClassEquity {
		meta.Sector = sector
	}
	if industry := strings.TrimSpace(info.Industry); industry != "" {
		meta.Industry = industry
	}
	if mc, ok := marketCapBucket(info.MarketCap); ok {
		meta.MarketCap = mc
	}
	if geo, ok := geographyFromCountry(info.CountryISO); ok {
		meta.Geography = geo
	}

	return meta, true
}

// applyTypeDefaults resets type-specific fields after the provider overrides the heuristic type.
func applyTypeDefaults(meta *models.AssetMetadata) {
	meta.Duration = nil
	meta.CreditRating = ""
	switch meta.AssetType {
	case models.AssetClassBond:
		meta.Sector = SectorFixedIncome
		meta.Duration = models.Float64Ptr(DurationDefault)
	case models.AssetClassRealEstate:
		meta.Sector = SectorRealEstate
	case models.AssetClassCommodity:
		meta.Sector = SectorCommodities
	case models.AssetClassCash:
		meta.Sector = SectorCash
	case models.AssetClassAlternative:
		meta.Sector = SectorAlternatives
	default:
		meta.Sector = models.SectorDiversified
	}
}

// fillDefaults guarantees every required field is populated.
func fillDefaults(meta *models.AssetMetadata, sym string) {
	meta.Symbol = sym
	if meta.Sector == "" {
		meta.Sector = models.SectorDiversified
	}
	if meta.Industry == "" {
		meta.Industry = "General"
	}
	if meta.MarketCap == "" {
		meta.MarketCap = models.MarketCapLarge
	}
	if meta.Geography == "" {
		meta.Geography = models.GeographyUS
	}
	if !meta.AssetType.Valid() {
		meta.AssetType = models.AssetClassEquity
	}
	if meta.Source == "" {
		meta.Source = models.SourceFallback
	}
	if meta.AssetType == models.AssetClassBond && meta.Duration == nil {
		meta.Duration = models.Float64Ptr(DurationDefault)
	}
}

// Ensure Service implements Classifier
var _ interfaces.Classifier = (*Service)(nil)
