package badger

import (
	"context"
	"fmt"
	"sync"

	"github.com/bobmcallan/vire-stress/internal/common"
	"github.com/bobmcallan/vire-stress/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// DefaultHistoryLimit is the number of runs retained when no cap is configured.
const DefaultHistoryLimit = 100

type runHistoryStorage struct {
	store  *Store
	logger *common.Logger
	limit  int

	mu      sync.Mutex
	nextSeq uint64
	loaded  bool
}

// NewRunHistoryStorage creates a capped, append-only run log backed by BadgerHold.
func NewRunHistoryStorage(store *Store, logger *common.Logger, limit int) *runHistoryStorage {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &runHistoryStorage{store: store, logger: logger, limit: limit}
}

// loadSequence resumes numbering after the highest stored sequence. Caller holds mu.
func (s *runHistoryStorage) loadSequence() error {
	if s.loaded {
		return nil
	}
	var latest []models.ScenarioRun
	q := (&badgerhold.Query{}).SortBy("Sequence").Reverse().Limit(1)
	if err := s.store.db.Find(&latest, q); err != nil {
		return fmt.Errorf("failed to read run sequence: %w", err)
	}
	if len(latest) > 0 {
		s.nextSeq = latest[0].Sequence
	}
	s.loaded = true
	return nil
}

func (s *runHistoryStorage) Append(_ context.Context, run *models.ScenarioRun) error {
	if run.ID == "" {
		return fmt.Errorf("run id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadSequence(); err != nil {
		return err
	}

	s.nextSeq++
	run.Sequence = s.nextSeq

	if err := s.store.db.Insert(run.ID, run); err != nil {
		s.nextSeq--
		if err == badgerhold.ErrKeyExists {
			return fmt.Errorf("run '%s' already recorded", run.ID)
		}
		return fmt.Errorf("failed to append run: %w", err)
	}

	if run.Sequence > uint64(s.limit) {
		cutoff := run.Sequence - uint64(s.limit)
		if err := s.store.db.DeleteMatching(&models.ScenarioRun{}, badgerhold.Where("Sequence").Le(cutoff)); err != nil {
			s.logger.Warn().Err(err).Uint64("cutoff", cutoff).Msg("Failed to trim run history")
		}
	}

	s.logger.Debug().Str("id", run.ID).Uint64("sequence", run.Sequence).Str("status", string(run.Status)).Msg("Run appended")
	return nil
}

func (s *runHistoryStorage) List(_ context.Context, limit int) ([]*models.ScenarioRun, error) {
	q := (&badgerhold.Query{}).SortBy("Sequence").Reverse()
	if limit > 0 {
		q = q.Limit(limit)
	}

	var runs []models.ScenarioRun
	if err := s.store.db.Find(&runs, q); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	out := make([]*models.ScenarioRun, len(runs))
	for i := range runs {
		out[i] = &runs[i]
	}
	return out, nil
}

func (s *runHistoryStorage) GetRun(_ context.Context, id string) (*models.ScenarioRun, error) {
	var run models.ScenarioRun
	err := s.store.db.Get(id, &run)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, &models.NotFoundError{Kind: "run", ID: id}
		}
		return nil, fmt.Errorf("failed to get run '%s': %w", id, err)
	}
	return &run, nil
}
