// Package interfaces defines service contracts for Vire Stress
package interfaces

import (
	"context"

	"github.com/bobmcallan/vire-stress/internal/models"
)

// StorageManager coordinates the storage backends used by the engine
type StorageManager interface {
	PortfolioStorage() PortfolioStorage
	ScenarioStorage() ScenarioStorage
	RunHistoryStorage() RunHistoryStorage

	// DataPath returns the base data directory path
	DataPath() string

	// PurgeRunHistory deletes all recorded runs, returning the count removed
	PurgeRunHistory(ctx context.Context) (int, error)

	Close() error
}

// PortfolioStorage is the portfolio store. Read-only from the engine's perspective.
type PortfolioStorage interface {
	// GetPortfolio returns *models.NotFoundError when the id is unknown
	GetPortfolio(ctx context.Context, id string) (*models.Portfolio, error)
	SavePortfolio(ctx context.Context, portfolio *models.Portfolio) error
	ListPortfolios(ctx context.Context) ([]string, error)
	DeletePortfolio(ctx context.Context, id string) error
}

// ScenarioStorage is the scenario store
type ScenarioStorage interface {
	// GetScenario returns *models.NotFoundError when the id is unknown
	GetScenario(ctx context.Context, id string) (*models.Scenario, error)
	SaveScenario(ctx context.Context, scenario *models.Scenario) error
	ListScenarios(ctx context.Context) ([]*models.Scenario, error)

	// RecordUsage increments the scenario's usage counter and stamps LastRunAt
	RecordUsage(ctx context.Context, id string) error
}

// RunHistoryStorage is the append-only, capped scenario run log
type RunHistoryStorage interface {
	// Append stores a run and evicts the oldest entries beyond the retention cap.
	// Appends are serialised so concurrent runs never lose updates.
	Append(ctx context.Context, run *models.ScenarioRun) error

	// List returns up to limit runs, newest first. limit <= 0 returns all retained runs.
	List(ctx context.Context, limit int) ([]*models.ScenarioRun, error)

	GetRun(ctx context.Context, id string) (*models.ScenarioRun, error)
}
