// Package app is the composition root shared by the vire-stress commands.
package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/bobmcallan/vire-stress/internal/clients/eodhd"
	"github.com/bobmcallan/vire-stress/internal/common"
	"github.com/bobmcallan/vire-stress/internal/interfaces"
	"github.com/bobmcallan/vire-stress/internal/metrics"
	"github.com/bobmcallan/vire-stress/internal/services/classifier"
	"github.com/bobmcallan/vire-stress/internal/services/performance"
	"github.com/bobmcallan/vire-stress/internal/services/pricing"
	"github.com/bobmcallan/vire-stress/internal/services/relevance"
	"github.com/bobmcallan/vire-stress/internal/services/scenario"
	"github.com/bobmcallan/vire-stress/internal/services/stress"
	"github.com/bobmcallan/vire-stress/internal/services/varengine"
	"github.com/bobmcallan/vire-stress/internal/storage"
)

// App holds all initialized services, clients and storage.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	Storage     interfaces.StorageManager
	Provider    interfaces.MarketDataProvider // nil when no EODHD key is configured
	Registry    *prometheus.Registry          // nil when metrics are disabled
	Metrics     *metrics.Recorder
	Classifier  *classifier.Service
	Prices      *pricing.Service
	Relevance   *relevance.Filter
	Stress      *stress.Engine
	VaR         *varengine.Engine
	Scenarios   *scenario.Service
	Performance *performance.Service

	StartupTime time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// resolveConfigPath checks the provided path, VIRE_STRESS_CONFIG, then the binary dir,
// then the development fallback under config/.
func resolveConfigPath(configPath, binDir string) string {
	if configPath == "" {
		configPath = os.Getenv("VIRE_STRESS_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "vire-stress.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/vire-stress.toml"
		}
	}
	return configPath
}

// LoadConfig resolves and loads the configuration file. Relative storage paths
// are anchored to the binary directory.
func LoadConfig(configPath string) (*common.Config, error) {
	binDir := getBinaryDir()

	config, err := common.LoadConfig(resolveConfigPath(configPath, binDir))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if config.Storage.Path != "" && !filepath.IsAbs(config.Storage.Path) {
		config.Storage.Path = filepath.Join(binDir, config.Storage.Path)
	}
	return config, nil
}

// NewApp loads configuration and wires storage, the market data provider and every service.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return NewAppWithConfig(config, common.NewLoggerFromConfig(config.Logging))
}

// NewAppWithConfig wires the application from an already loaded config.
func NewAppWithConfig(config *common.Config, logger *common.Logger) (*App, error) {
	startupStart := time.Now()

	storageManager, err := storage.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	a := &App{
		Config:      config,
		Logger:      logger,
		Storage:     storageManager,
		StartupTime: startupStart,
	}

	if config.Metrics.Enabled {
		a.Registry = prometheus.NewRegistry()
		a.Metrics = metrics.NewRecorder(a.Registry)
	}

	eodhdKey, err := common.ResolveAPIKey("eodhd_api_key", config.Clients.EODHD.APIKey)
	if err != nil {
		logger.Warn().Msg("EODHD API key not configured - classification and pricing use built-in data and stored prices")
	}

	// Interface fields stay nil without a key so services see "no provider"
	var (
		priceProvider    interfaces.PriceProvider
		metadataProvider interfaces.MetadataProvider
		historyProvider  interfaces.HistoryProvider
	)
	if eodhdKey != "" {
		client := eodhd.NewClientFromConfig(config.Clients.EODHD, eodhdKey, logger)
		a.Provider = client
		priceProvider, metadataProvider, historyProvider = client, client, client
	}

	a.Classifier = classifier.NewService(metadataProvider, config.Classifier, a.Metrics, logger)
	a.Prices = pricing.NewService(priceProvider, config.Pricing, a.Metrics, logger)
	a.Relevance = relevance.NewFilterFromConfig(config.Risk)
	a.Stress = stress.NewEngine(a.Classifier, a.Prices, a.Relevance, a.Metrics, logger)
	a.VaR = varengine.NewEngine(newEstimator(config.Risk, historyProvider, logger), a.Prices, config.Risk, logger)
	a.Scenarios = scenario.NewService(storageManager, a.Stress, a.Metrics, logger)
	a.Performance = performance.NewService(historyProvider, a.Prices, config.Risk, logger)

	logger.Info().
		Str("estimator", config.Risk.Estimator).
		Bool("provider", a.Provider != nil).
		Bool("metrics", a.Registry != nil).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")

	return a, nil
}

// newEstimator picks the volatility source. The historical estimator needs a provider;
// without one the constant table is used.
func newEstimator(cfg common.RiskConfig, provider interfaces.HistoryProvider, logger *common.Logger) varengine.VolatilityEstimator {
	if cfg.Estimator == "historical" {
		if provider == nil {
			logger.Warn().Msg("Historical estimator requested without a provider - using constant volatility table")
			return varengine.ConstantEstimator{}
		}
		return varengine.NewHistoricalEstimator(provider, cfg.Benchmark, logger)
	}
	return varengine.ConstantEstimator{}
}

// WriteMetrics dumps the collected metrics in Prometheus text format.
// It is a no-op when metrics are disabled.
func (a *App) WriteMetrics(w io.Writer) error {
	if a.Registry == nil {
		return nil
	}
	families, err := a.Registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to write metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// Close releases all resources held by the App.
func (a *App) Close() {
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
		a.Storage = nil
	}
}
