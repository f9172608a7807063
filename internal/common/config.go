// Package common provides shared utilities for Vire Stress
package common

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Vire Stress
type Config struct {
	Environment string           `toml:"environment"`
	Storage     StorageConfig    `toml:"storage"`
	Clients     ClientsConfig    `toml:"clients"`
	Pricing     PricingConfig    `toml:"pricing"`
	Classifier  ClassifierConfig `toml:"classifier"`
	Risk        RiskConfig       `toml:"risk"`
	Logging     LoggingConfig    `toml:"logging"`
	Metrics     MetricsConfig    `toml:"metrics"`
}

// StorageConfig holds the BadgerHold data directory
type StorageConfig struct {
	Path       string `toml:"path"`
	SyncWrites bool   `toml:"sync_writes"` // fsync every write
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	EODHD EODHDConfig `toml:"eodhd"`
}

// EODHDConfig holds EODHD API configuration
type EODHDConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *EODHDConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// PricingConfig controls live price resolution
type PricingConfig struct {
	BatchSize  int    `toml:"batch_size"`
	BatchDelay string `toml:"batch_delay"` // minimum gap between provider batches
	Timeout    string `toml:"timeout"`     // per-batch timeout before falling back to stored prices
	CacheTTL   string `toml:"cache_ttl"`
}

// GetBatchDelay parses and returns the inter-batch delay
func (c *PricingConfig) GetBatchDelay() time.Duration {
	return parseDuration(c.BatchDelay, 1*time.Second)
}

// GetTimeout parses and returns the price fetch timeout
func (c *PricingConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// GetCacheTTL parses and returns the price cache TTL
func (c *PricingConfig) GetCacheTTL() time.Duration {
	return parseDuration(c.CacheTTL, 15*time.Minute)
}

// ClassifierConfig controls the asset classifier
type ClassifierConfig struct {
	ProviderTimeout string `toml:"provider_timeout"`
	Concurrency     int    `toml:"concurrency"`
	UseProvider     bool   `toml:"use_provider"`
}

// GetProviderTimeout parses and returns the metadata lookup timeout
func (c *ClassifierConfig) GetProviderTimeout() time.Duration {
	return parseDuration(c.ProviderTimeout, 20*time.Second)
}

// RiskConfig holds engine thresholds and VaR defaults
type RiskConfig struct {
	MaterialityThreshold     float64 `toml:"materiality_threshold"`
	ScenarioOverlapThreshold float64 `toml:"scenario_overlap_threshold"`
	HistoryLimit             int     `toml:"history_limit"`
	DefaultConfidence        float64 `toml:"default_confidence"`
	DefaultTimeHorizon       int     `toml:"default_time_horizon"`
	DefaultSimulations       int     `toml:"default_simulations"`
	DefaultLookbackYears     int     `toml:"default_lookback_years"`
	Estimator                string  `toml:"estimator"` // "constant" or "historical"
	Benchmark                string  `toml:"benchmark"` // ticker used by the historical estimator
	RiskFreeRate             float64 `toml:"risk_free_rate"` // annual, used by performance ratios
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "console" or "json"
}

// MetricsConfig toggles Prometheus instrumentation
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Storage: StorageConfig{
			Path: "data/stress",
		},
		Clients: ClientsConfig{
			EODHD: EODHDConfig{
				BaseURL:   "https://eodhd.com/api",
				RateLimit: 10,
				Timeout:   "30s",
			},
		},
		Pricing: PricingConfig{
			BatchSize:  10,
			BatchDelay: "1s",
			Timeout:    "30s",
			CacheTTL:   "15m",
		},
		Classifier: ClassifierConfig{
			ProviderTimeout: "20s",
			Concurrency:     5,
			UseProvider:     true,
		},
		Risk: RiskConfig{
			MaterialityThreshold:     0.05,
			ScenarioOverlapThreshold: 0.5,
			HistoryLimit:             100,
			DefaultConfidence:        0.95,
			DefaultTimeHorizon:       1,
			DefaultSimulations:       10000,
			DefaultLookbackYears:     5,
			Estimator:                "constant",
			Benchmark:                "SPY.US",
			RiskFreeRate:             0.02,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Later files override earlier ones
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	validateRisk(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("VIRE_STRESS_ENV"); env != "" {
		config.Environment = env
	}

	if level := os.Getenv("VIRE_STRESS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if format := os.Getenv("VIRE_STRESS_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}

	if path := os.Getenv("VIRE_STRESS_DATA_PATH"); path != "" {
		config.Storage.Path = filepath.Clean(path)
	}

	if url := os.Getenv("VIRE_STRESS_EODHD_BASE_URL"); url != "" {
		config.Clients.EODHD.BaseURL = url
	}

	if v := os.Getenv("VIRE_STRESS_HISTORY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Risk.HistoryLimit = n
		}
	}

	if v := os.Getenv("VIRE_STRESS_ESTIMATOR"); v != "" {
		config.Risk.Estimator = strings.ToLower(v)
	}

	if v := os.Getenv("VIRE_STRESS_METRICS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Metrics.Enabled = b
		}
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ResolveAPIKey resolves an API key from environment or fallback
func ResolveAPIKey(name string, fallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"eodhd_api_key": {"EODHD_API_KEY", "VIRE_STRESS_EODHD_API_KEY"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if fallback != "" {
		return fallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment or config", name)
}

// validateRisk clamps risk settings back to defaults when they are out of range.
func validateRisk(config *Config) {
	def := NewDefaultConfig().Risk
	r := &config.Risk
	if r.MaterialityThreshold <= 0 || r.MaterialityThreshold >= 1 {
		r.MaterialityThreshold = def.MaterialityThreshold
	}
	if r.ScenarioOverlapThreshold <= 0 || r.ScenarioOverlapThreshold > 1 {
		r.ScenarioOverlapThreshold = def.ScenarioOverlapThreshold
	}
	if r.HistoryLimit <= 0 {
		r.HistoryLimit = def.HistoryLimit
	}
	if r.DefaultConfidence <= 0 || r.DefaultConfidence >= 1 {
		r.DefaultConfidence = def.DefaultConfidence
	}
	if r.DefaultTimeHorizon <= 0 {
		r.DefaultTimeHorizon = def.DefaultTimeHorizon
	}
	if r.DefaultSimulations <= 0 {
		r.DefaultSimulations = def.DefaultSimulations
	}
	if r.DefaultLookbackYears <= 0 {
		r.DefaultLookbackYears = def.DefaultLookbackYears
	}
	if r.RiskFreeRate < 0 || r.RiskFreeRate >= 1 || math.IsNaN(r.RiskFreeRate) {
		r.RiskFreeRate = def.RiskFreeRate
	}
	switch r.Estimator {
	case "constant", "historical":
	default:
		r.Estimator = def.Estimator
	}
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
