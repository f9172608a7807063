package models

import "time"

// Scenario is a named set of factor shocks
type Scenario struct {
	ID            string             `json:"id" toml:"id" badgerhold:"key"`
	Name          string             `json:"name" toml:"name"`
	Description   string             `json:"description,omitempty" toml:"description"`
	FactorChanges map[string]float64 `json:"factor_changes" toml:"factor_changes"` // raw definition, see scenario.ToFactors
	Metadata      map[string]string  `json:"metadata,omitempty" toml:"metadata"`
	UsageCount    int                `json:"usage_count" toml:"-"`
	LastRunAt     time.Time          `json:"last_run_at,omitempty" toml:"-"`
	CreatedAt     time.Time          `json:"created_at" toml:"-"`
}

// RunStatus is the lifecycle state of a scenario run
type RunStatus string

const (
	RunStatusInProgress RunStatus = "in_progress"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
)

// ScenarioRun records a single scenario execution. Immutable once completed.
type ScenarioRun struct {
	ID          string                 `json:"id" badgerhold:"key"`
	Sequence    uint64                 `json:"sequence"` // monotonically increasing append order
	ScenarioID  string                 `json:"scenario_id"`
	PortfolioID string                 `json:"portfolio_id"`
	Timestamp   time.Time              `json:"timestamp"`
	Results     *PortfolioStressResult `json:"results,omitempty"`
	Duration    time.Duration          `json:"duration"`
	Status      RunStatus              `json:"status"`
	Error       string                 `json:"error,omitempty"`
}

// FactorRelevance reports a factor's exposure within a portfolio.
type FactorRelevance struct {
	Factor   Factor  `json:"factor"`
	Exposure float64 `json:"exposure"`
	Relevant bool    `json:"relevant"`
}

// ScenarioValidation reports how well a scenario's active factors match a portfolio.
type ScenarioValidation struct {
	Active   []Factor `json:"active"`
	Relevant []Factor `json:"relevant"`
	Overlap  float64  `json:"overlap"` // share of active factors that are relevant
	Warning  string   `json:"warning,omitempty"`
}
