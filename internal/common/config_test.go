package common

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.Equal(t, 0.05, cfg.Risk.MaterialityThreshold)
	assert.Equal(t, 0.5, cfg.Risk.ScenarioOverlapThreshold)
	assert.Equal(t, 100, cfg.Risk.HistoryLimit)
	assert.Equal(t, 5, cfg.Risk.DefaultLookbackYears)
	assert.Equal(t, "constant", cfg.Risk.Estimator)
	assert.Equal(t, 0.02, cfg.Risk.RiskFreeRate)
	assert.Equal(t, 30*time.Second, cfg.Clients.EODHD.GetTimeout())
	assert.Equal(t, time.Second, cfg.Pricing.GetBatchDelay())
	assert.Equal(t, 15*time.Minute, cfg.Pricing.GetCacheTTL())
	assert.Equal(t, 20*time.Second, cfg.Classifier.GetProviderTimeout())
	assert.True(t, cfg.Classifier.UseProvider)
}

func TestConfig_DurationParseFallback(t *testing.T) {
	c := EODHDConfig{Timeout: "not-a-duration"}
	assert.Equal(t, 30*time.Second, c.GetTimeout())
	p := PricingConfig{BatchDelay: "250ms"}
	assert.Equal(t, 250*time.Millisecond, p.GetBatchDelay())
}

func TestLoadConfig_FileOverridesAndMissingFiles(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.toml")
	override := filepath.Join(dir, "override.toml")

	require.NoError(t, os.WriteFile(base, []byte(`
environment = "staging"

[risk]
history_limit = 50
estimator = "historical"

[pricing]
batch_size = 4
`), 0o644))
	require.NoError(t, os.WriteFile(override, []byte(`
[risk]
history_limit = 25
`), 0o644))

	cfg, err := LoadConfig(base, filepath.Join(dir, "missing.toml"), override)
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, 25, cfg.Risk.HistoryLimit)
	assert.Equal(t, "historical", cfg.Risk.Estimator)
	assert.Equal(t, 4, cfg.Pricing.BatchSize)
	// untouched defaults survive
	assert.Equal(t, 0.95, cfg.Risk.DefaultConfidence)
}

func TestLoadConfig_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[risk\nhistory_limit = "), 0o644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_ClampsOutOfRangeRisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "risk.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[risk]
materiality_threshold = 1.5
default_confidence = 95.0
history_limit = -3
estimator = "garch"
risk_free_rate = 4.5
`), 0o644))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 0.05, cfg.Risk.MaterialityThreshold)
	assert.Equal(t, 0.95, cfg.Risk.DefaultConfidence)
	assert.Equal(t, 100, cfg.Risk.HistoryLimit)
	assert.Equal(t, "constant", cfg.Risk.Estimator)
	assert.Equal(t, 0.02, cfg.Risk.RiskFreeRate)
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("VIRE_STRESS_ENV", "production")
	t.Setenv("VIRE_STRESS_HISTORY_LIMIT", "7")
	t.Setenv("VIRE_STRESS_ESTIMATOR", "HISTORICAL")
	t.Setenv("VIRE_STRESS_METRICS", "true")
	t.Setenv("VIRE_STRESS_DATA_PATH", "/tmp/stress/")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 7, cfg.Risk.HistoryLimit)
	assert.Equal(t, "historical", cfg.Risk.Estimator)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/tmp/stress", cfg.Storage.Path)
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("EODHD_API_KEY", "")
	t.Setenv("VIRE_STRESS_EODHD_API_KEY", "")

	_, err := ResolveAPIKey("eodhd_api_key", "")
	assert.Error(t, err)

	key, err := ResolveAPIKey("eodhd_api_key", "from-config")
	require.NoError(t, err)
	assert.Equal(t, "from-config", key)

	t.Setenv("VIRE_STRESS_EODHD_API_KEY", "from-env")
	key, err = ResolveAPIKey("eodhd_api_key", "from-config")
	require.NoError(t, err)
	assert.Equal(t, "from-env", key)
}

func TestLogger_WithOutputRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOutput("warn", &buf)
	logger.Info().Msg("hidden")
	logger.Component("classifier").Warn().Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, `"component":"classifier"`)
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, NewDefaultConfig(), "run", NewSilentLogger())
	assert.Contains(t, buf.String(), "VIRE STRESS")
	assert.Contains(t, buf.String(), "data/stress")
}
