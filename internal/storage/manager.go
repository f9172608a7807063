// Package storage provides the top-level StorageManager backed by a single BadgerHold store.
package storage

import (
	"context"
	"fmt"

	"github.com/bobmcallan/vire-stress/internal/common"
	"github.com/bobmcallan/vire-stress/internal/interfaces"
	"github.com/bobmcallan/vire-stress/internal/models"
	"github.com/bobmcallan/vire-stress/internal/storage/badger"
)

// Manager implements interfaces.StorageManager.
type Manager struct {
	store      *badger.Store
	portfolio  interfaces.PortfolioStorage
	scenario   interfaces.ScenarioStorage
	runHistory interfaces.RunHistoryStorage
	logger     *common.Logger
}

// NewManager opens the store at config.Storage.Path and wires the per-entity storages.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	store, err := badger.NewStore(logger, config.Storage.Path, badger.WithSyncWrites(config.Storage.SyncWrites))
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	counts, err := store.Counts()
	if err != nil {
		store.Close()
		return nil, err
	}
	logger.Info().
		Str("path", config.Storage.Path).
		Int("history_limit", config.Risk.HistoryLimit).
		Int("portfolios", counts.Portfolios).
		Int("scenarios", counts.Scenarios).
		Int("runs", counts.Runs).
		Msg("Storage manager initialized")

	return newManager(store, logger, config.Risk.HistoryLimit), nil
}

func newManager(store *badger.Store, logger *common.Logger, historyLimit int) *Manager {
	return &Manager{
		store:      store,
		portfolio:  badger.NewPortfolioStorage(store, logger),
		scenario:   badger.NewScenarioStorage(store, logger),
		runHistory: badger.NewRunHistoryStorage(store, logger, historyLimit),
		logger:     logger,
	}
}

func (m *Manager) PortfolioStorage() interfaces.PortfolioStorage {
	return m.portfolio
}

func (m *Manager) ScenarioStorage() interfaces.ScenarioStorage {
	return m.scenario
}

func (m *Manager) RunHistoryStorage() interfaces.RunHistoryStorage {
	return m.runHistory
}

func (m *Manager) DataPath() string {
	return m.store.Path()
}

// Counts returns the number of stored portfolios, scenarios and runs.
func (m *Manager) Counts() (badger.StoreCounts, error) {
	return m.store.Counts()
}

// PurgeRunHistory deletes every recorded scenario run and returns how many were removed.
// Portfolios and scenarios are preserved.
func (m *Manager) PurgeRunHistory(_ context.Context) (int, error) {
	before, err := m.store.Counts()
	if err != nil {
		return 0, err
	}
	if err := m.store.DB().DeleteMatching(&models.ScenarioRun{}, nil); err != nil {
		return 0, fmt.Errorf("failed to purge runs: %w", err)
	}
	m.logger.Info().Int("count", before.Runs).Msg("Run history purged")
	return before.Runs, nil
}

func (m *Manager) Close() error {
	return m.store.Close()
}

// Ensure Manager implements StorageManager
var _ interfaces.StorageManager = (*Manager)(nil)
