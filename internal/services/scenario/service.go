// Package scenario runs stored scenarios against stored portfolios and keeps
// an auditable run history.
package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/vire-stress/internal/common"
	"github.com/bobmcallan/vire-stress/internal/interfaces"
	"github.com/bobmcallan/vire-stress/internal/metrics"
	"github.com/bobmcallan/vire-stress/internal/models"
)

// Service implements ScenarioService
type Service struct {
	storage interfaces.StorageManager
	stress  interfaces.StressService
	metrics *metrics.Recorder
	logger  *common.Logger
	now     func() time.Time
	newID   func() string
}

// NewService creates a scenario service. rec may be nil.
func NewService(storage interfaces.StorageManager, stress interfaces.StressService, rec *metrics.Recorder, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		stress:  stress,
		metrics: rec,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// RunScenario executes scenarioID against portfolioID. A run record is always
// appended to history: on failure it carries status failed and the error, and
// the error is also returned alongside the run.
func (s *Service) RunScenario(ctx context.Context, scenarioID, portfolioID string) (*models.ScenarioRun, error) {
	start := s.now()
	run := &models.ScenarioRun{
		ID:          s.newID(),
		ScenarioID:  scenarioID,
		PortfolioID: portfolioID,
		Timestamp:   start,
		Status:      models.RunStatusInProgress,
	}

	runErr := s.execute(ctx, run)

	run.Duration = s.now().Sub(start)
	if runErr != nil {
		run.Status = models.RunStatusFailed
		run.Error = runErr.Error()
		s.logger.Error().Err(runErr).
			Str("run_id", run.ID).
			Str("scenario_id", scenarioID).
			Str("portfolio_id", portfolioID).
			Msg("Scenario run failed")
	} else {
		run.Status = models.RunStatusCompleted
		s.logger.Info().
			Str("run_id", run.ID).
			Str("scenario_id", scenarioID).
			Str("portfolio_id", portfolioID).
			Dur("duration", run.Duration).
			Float64("total_impact", run.Results.TotalImpact).
			Msg("Scenario run completed")
	}

	// Recording must not depend on the caller's context surviving the run
	if err := s.storage.RunHistoryStorage().Append(context.WithoutCancel(ctx), run); err != nil {
		s.logger.Error().Err(err).Str("run_id", run.ID).Msg("Failed to record scenario run")
		if runErr == nil {
			runErr = fmt.Errorf("failed to record run %s: %w", run.ID, err)
		}
	}

	s.metrics.ObserveRun(string(run.Status), run.Duration)
	return run, runErr
}

func (s *Service) execute(ctx context.Context, run *models.ScenarioRun) error {
	scenario, err := s.storage.ScenarioStorage().GetScenario(ctx, run.ScenarioID)
	if err != nil {
		return err
	}
	portfolio, err := s.storage.PortfolioStorage().GetPortfolio(ctx, run.PortfolioID)
	if err != nil {
		return err
	}

	factors, err := ToFactors(scenario.FactorChanges)
	if err != nil {
		return fmt.Errorf("scenario %s: %w", scenario.ID, err)
	}

	result, err := s.stress.RunStressTest(ctx, portfolio, factors)
	if err != nil {
		return err
	}
	run.Results = result

	if err := s.storage.ScenarioStorage().RecordUsage(ctx, scenario.ID); err != nil {
		s.logger.Warn().Err(err).Str("scenario_id", scenario.ID).Msg("Failed to update scenario usage")
	}
	return nil
}

// History returns up to limit recorded runs, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]*models.ScenarioRun, error) {
	return s.storage.RunHistoryStorage().List(ctx, limit)
}

// GetRun returns a recorded run by id.
func (s *Service) GetRun(ctx context.Context, id string) (*models.ScenarioRun, error) {
	return s.storage.RunHistoryStorage().GetRun(ctx, id)
}

// Ensure Service implements ScenarioService
var _ interfaces.ScenarioService = (*Service)(nil)
