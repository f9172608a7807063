// Package badger persists portfolios, scenario definitions and the capped
// scenario run history in a single BadgerHold database.
package badger

import (
	"fmt"
	"os"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/vire-stress/internal/common"
	"github.com/bobmcallan/vire-stress/internal/models"
)

// Store is the shared database handle behind the portfolio, scenario and run
// history storages.
type Store struct {
	db       *badgerhold.Store
	logger   *common.Logger
	path     string
	inMemory bool
}

// StoreOption configures how the database is opened.
type StoreOption func(*storeOptions)

type storeOptions struct {
	inMemory   bool
	syncWrites bool
}

// WithInMemory keeps all data in memory. The path is recorded but nothing is
// written to disk.
func WithInMemory() StoreOption {
	return func(o *storeOptions) { o.inMemory = true }
}

// WithSyncWrites fsyncs every write, so a recorded run survives a crash of
// the process that appended it.
func WithSyncWrites(sync bool) StoreOption {
	return func(o *storeOptions) { o.syncWrites = sync }
}

// StoreCounts is the number of stored records per entity.
type StoreCounts struct {
	Portfolios int `json:"portfolios"`
	Scenarios  int `json:"scenarios"`
	Runs       int `json:"runs"`
}

// NewStore opens, or creates, the database at path.
func NewStore(logger *common.Logger, path string, opts ...StoreOption) (*Store, error) {
	var o storeOptions
	for _, opt := range opts {
		opt(&o)
	}

	options := badgerhold.DefaultOptions
	options.Logger = nil // badger's own logger is noisy at info level
	options.SyncWrites = o.syncWrites
	if o.inMemory {
		options.InMemory = true
		options.Dir = ""
		options.ValueDir = ""
	} else {
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory %s: %w", path, err)
		}
		options.Dir = path
		options.ValueDir = path
	}

	db, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open stress database at %s: %w", path, err)
	}

	s := &Store{db: db, logger: logger, path: path, inMemory: o.inMemory}

	counts, err := s.Counts()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read stress database at %s: %w", path, err)
	}
	logger.Debug().
		Str("path", path).
		Bool("in_memory", o.inMemory).
		Bool("sync_writes", o.syncWrites).
		Int("portfolios", counts.Portfolios).
		Int("scenarios", counts.Scenarios).
		Int("runs", counts.Runs).
		Msg("Stress database opened")

	return s, nil
}

// Counts returns how many portfolios, scenarios and runs are stored.
func (s *Store) Counts() (StoreCounts, error) {
	var c StoreCounts
	n, err := s.db.Count(&models.Portfolio{}, nil)
	if err != nil {
		return c, fmt.Errorf("failed to count portfolios: %w", err)
	}
	c.Portfolios = int(n)
	if n, err = s.db.Count(&models.Scenario{}, nil); err != nil {
		return c, fmt.Errorf("failed to count scenarios: %w", err)
	}
	c.Scenarios = int(n)
	if n, err = s.db.Count(&models.ScenarioRun{}, nil); err != nil {
		return c, fmt.Errorf("failed to count runs: %w", err)
	}
	c.Runs = int(n)
	return c, nil
}

// DB returns the underlying badgerhold store.
func (s *Store) DB() *badgerhold.Store {
	return s.db
}

// Path returns the directory the store was opened at.
func (s *Store) Path() string {
	return s.path
}

// InMemory reports whether the store keeps nothing on disk.
func (s *Store) InMemory() bool {
	return s.inMemory
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
