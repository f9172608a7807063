package badger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bobmcallan/vire-stress/internal/common"
	"github.com/bobmcallan/vire-stress/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

type scenarioStorage struct {
	store  *Store
	logger *common.Logger
	mu     sync.Mutex // serialises read-modify-write usage updates
}

// NewScenarioStorage creates a new ScenarioStorage backed by BadgerHold.
func NewScenarioStorage(store *Store, logger *common.Logger) *scenarioStorage {
	return &scenarioStorage{store: store, logger: logger}
}

func (s *scenarioStorage) GetScenario(_ context.Context, id string) (*models.Scenario, error) {
	var scenario models.Scenario
	err := s.store.db.Get(id, &scenario)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, &models.NotFoundError{Kind: "scenario", ID: id}
		}
		return nil, fmt.Errorf("failed to get scenario '%s': %w", id, err)
	}
	return &scenario, nil
}

func (s *scenarioStorage) SaveScenario(_ context.Context, scenario *models.Scenario) error {
	if scenario.ID == "" {
		return fmt.Errorf("scenario id is required")
	}
	if scenario.CreatedAt.IsZero() {
		scenario.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Preserve usage stats when a definition is re-seeded
	var existing models.Scenario
	if err := s.store.db.Get(scenario.ID, &existing); err == nil {
		if scenario.UsageCount < existing.UsageCount {
			scenario.UsageCount = existing.UsageCount
		}
		if scenario.LastRunAt.Before(existing.LastRunAt) {
			scenario.LastRunAt = existing.LastRunAt
		}
		scenario.CreatedAt = existing.CreatedAt
	}

	if err := s.store.db.Upsert(scenario.ID, scenario); err != nil {
		return fmt.Errorf("failed to save scenario: %w", err)
	}
	s.logger.Debug().Str("id", scenario.ID).Msg("Scenario saved")
	return nil
}

func (s *scenarioStorage) ListScenarios(_ context.Context) ([]*models.Scenario, error) {
	var scenarios []models.Scenario
	if err := s.store.db.Find(&scenarios, nil); err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}
	sort.Slice(scenarios, func(i, j int) bool { return scenarios[i].ID < scenarios[j].ID })
	out := make([]*models.Scenario, len(scenarios))
	for i := range scenarios {
		out[i] = &scenarios[i]
	}
	return out, nil
}

func (s *scenarioStorage) RecordUsage(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var scenario models.Scenario
	if err := s.store.db.Get(id, &scenario); err != nil {
		if err == badgerhold.ErrNotFound {
			return &models.NotFoundError{Kind: "scenario", ID: id}
		}
		return fmt.Errorf("failed to get scenario '%s': %w", id, err)
	}

	scenario.UsageCount++
	scenario.LastRunAt = time.Now()

	if err := s.store.db.Update(id, &scenario); err != nil {
		return fmt.Errorf("failed to record usage for scenario '%s': %w", id, err)
	}
	return nil
}
