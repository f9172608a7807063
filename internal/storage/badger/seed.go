package badger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/bobmcallan/vire-stress/internal/common"
	"github.com/bobmcallan/vire-stress/internal/interfaces"
	"github.com/bobmcallan/vire-stress/internal/models"
)

// SeedFile is the TOML layout accepted by the seed loader:
//
//	[[portfolios]]
//	id = "core"
//	[[portfolios.assets]]
//	symbol = "SPY"
//	...
//
//	[[scenarios]]
//	id = "gfc"
//	[scenarios.factor_changes]
//	equities = -40.0
type SeedFile struct {
	Portfolios []models.Portfolio `toml:"portfolios"`
	Scenarios  []models.Scenario  `toml:"scenarios"`
}

// SeedCounts reports how many records a seed run wrote.
type SeedCounts struct {
	Portfolios int
	Scenarios  int
	Skipped    int
}

// ParseSeed decodes a seed document.
func ParseSeed(data []byte) (*SeedFile, error) {
	var seed SeedFile
	if err := toml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}
	return &seed, nil
}

// SeedFromPath loads portfolios and scenarios from a TOML file, or from every
// *.toml file in a directory (sorted by name, later files win on id clashes).
// Invalid records are skipped and logged.
func SeedFromPath(ctx context.Context, logger *common.Logger, storage interfaces.StorageManager, path string) (SeedCounts, error) {
	var counts SeedCounts

	files, err := seedFiles(path)
	if err != nil {
		return counts, err
	}

	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return counts, fmt.Errorf("failed to read seed file %s: %w", file, err)
		}
		seed, err := ParseSeed(data)
		if err != nil {
			return counts, fmt.Errorf("%s: %w", file, err)
		}
		c := Apply(ctx, logger, storage, seed)
		counts.Portfolios += c.Portfolios
		counts.Scenarios += c.Scenarios
		counts.Skipped += c.Skipped
	}

	logger.Info().
		Int("files", len(files)).
		Int("portfolios", counts.Portfolios).
		Int("scenarios", counts.Scenarios).
		Int("skipped", counts.Skipped).
		Msg("Seed complete")

	return counts, nil
}

// Apply writes the records of a decoded seed into storage.
func Apply(ctx context.Context, logger *common.Logger, storage interfaces.StorageManager, seed *SeedFile) SeedCounts {
	var counts SeedCounts

	for i := range seed.Portfolios {
		p := &seed.Portfolios[i]
		if err := storage.PortfolioStorage().SavePortfolio(ctx, p); err != nil {
			logger.Warn().Err(err).Str("portfolio", p.ID).Msg("Skipping seed portfolio")
			counts.Skipped++
			continue
		}
		counts.Portfolios++
	}

	for i := range seed.Scenarios {
		s := &seed.Scenarios[i]
		if err := storage.ScenarioStorage().SaveScenario(ctx, s); err != nil {
			logger.Warn().Err(err).Str("scenario", s.ID).Msg("Skipping seed scenario")
			counts.Skipped++
			continue
		}
		counts.Scenarios++
	}

	return counts
}

func seedFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("seed path %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", path, err)
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".toml") || strings.HasPrefix(name, ".") {
			continue
		}
		files = append(files, filepath.Join(path, name))
	}
	sort.Strings(files)
	return files, nil
}
