package scenario

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/vire-stress/internal/common"
	"github.com/bobmcallan/vire-stress/internal/interfaces"
	"github.com/bobmcallan/vire-stress/internal/metrics"
	"github.com/bobmcallan/vire-stress/internal/models"
	"github.com/bobmcallan/vire-stress/internal/services/classifier"
	"github.com/bobmcallan/vire-stress/internal/services/stress"
)

// --- Mocks ---

type mockPortfolioStorage struct {
	portfolios map[string]*models.Portfolio
}

func (m *mockPortfolioStorage) GetPortfolio(_ context.Context, id string) (*models.Portfolio, error) {
	if p, ok := m.portfolios[id]; ok {
		return p, nil
	}
	return nil, &models.NotFoundError{Kind: "portfolio", ID: id}
}

func (m *mockPortfolioStorage) SavePortfolio(_ context.Context, p *models.Portfolio) error {
	m.portfolios[p.ID] = p
	return nil
}

func (m *mockPortfolioStorage) ListPortfolios(_ context.Context) ([]string, error) {
	var ids []string
	for id := range m.portfolios {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *mockPortfolioStorage) DeletePortfolio(_ context.Context, id string) error {
	delete(m.portfolios, id)
	return nil
}

type mockScenarioStorage struct {
	mu        sync.Mutex
	scenarios map[string]*models.Scenario
	usageErr  error
}

func (m *mockScenarioStorage) GetScenario(_ context.Context, id string) (*models.Scenario, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.scenarios[id]; ok {
		c := *s
		return &c, nil
	}
	return nil, &models.NotFoundError{Kind: "scenario", ID: id}
}

func (m *mockScenarioStorage) SaveScenario(_ context.Context, s *models.Scenario) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scenarios[s.ID] = s
	return nil
}

func (m *mockScenarioStorage) ListScenarios(_ context.Context) ([]*models.Scenario, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Scenario
	for _, s := range m.scenarios {
		out = append(out, s)
	}
	return out, nil
}

func (m *mockScenarioStorage) RecordUsage(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.usageErr != nil {
		return m.usageErr
	}
	s, ok := m.scenarios[id]
	if !ok {
		return &models.NotFoundError{Kind: "scenario", ID: id}
	}
	s.UsageCount++
	return nil
}

type mockRunHistory struct {
	mu        sync.Mutex
	runs      []*models.ScenarioRun
	appendErr error
}

func (m *mockRunHistory) Append(ctx context.Context, run *models.ScenarioRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.appendErr != nil {
		return m.appendErr
	}
	c := *run
	m.runs = append(m.runs, &c)
	return nil
}

func (m *mockRunHistory) List(_ context.Context, limit int) ([]*models.ScenarioRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ScenarioRun
	for i := len(m.runs) - 1; i >= 0; i-- {
		out = append(out, m.runs[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockRunHistory) GetRun(_ context.Context, id string) (*models.ScenarioRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.runs {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, &models.NotFoundError{Kind: "run", ID: id}
}

func (m *mockRunHistory) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runs)
}

type mockStorageManager struct {
	portfolios *mockPortfolioStorage
	scenarios  *mockScenarioStorage
	history    *mockRunHistory
}

func (m *mockStorageManager) PortfolioStorage() interfaces.PortfolioStorage { return m.portfolios }
func (m *mockStorageManager) ScenarioStorage() interfaces.ScenarioStorage { return m.scenarios }
func (m *mockStorageManager) RunHistoryStorage() interfaces.RunHistoryStorage { return m.history }
func (m *mockStorageManager) DataPath() string { return "" }
func (m *mockStorageManager) Close() error { return nil }
func (m *mockStorageManager) PurgeRunHistory(_ context.Context) (int, error) {
	m.history.mu.Lock()
	defer m.history.mu.Unlock()
	n := len(m.history.runs)
	m.history.runs = nil
	return n, nil
}

type mockStressService struct {
	result *models.PortfolioStressResult
	err    error
	got    models.ScenarioFactors
}

func (m *mockStressService) RunStressTest(_ context.Context, _ *models.Portfolio, factors models.ScenarioFactors) (*models.PortfolioStressResult, error) {
	m.got = factors
	return m.result, m.err
}

func newMockStorage() *mockStorageManager {
	return &mockStorageManager{
		portfolios: &mockPortfolioStorage{portfolios: map[string]*models.Portfolio{
			"balanced": {
				ID:   "balanced",
				Name: "Balanced",
				Assets: []models.Asset{
					{Symbol: "SPY", Quantity: 100, Price: 600, AssetClass: models.AssetClassEquity},
					{Symbol: "TLT", Quantity: 400, Price: 100, AssetClass: models.AssetClassBond},
				},
			},
			"empty": {ID: "empty", Name: "Empty"},
		}},
		scenarios: &mockScenarioStorage{scenarios: map[string]*models.Scenario{
			"crash": {ID: "crash", Name: "Equity crash", FactorChanges: map[string]float64{"equities": -20, "interest_rates": -100}},
			"bad":   {ID: "bad", Name: "Bad", FactorChanges: map[string]float64{"gold_price": 10}},
		}},
		history: &mockRunHistory{},
	}
}

func newTestService(storage *mockStorageManager, stressSvc interfaces.StressService, rec *metrics.Recorder) *Service {
	svc := NewService(storage, stressSvc, rec, common.NewSilentLogger())
	t0 := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	calls := 0
	svc.now = func() time.Time {
		calls++
		return t0.Add(time.Duration(calls) * 250 * time.Millisecond)
	}
	return svc
}

func realEngine() *stress.Engine {
	cls := classifier.NewService(nil, common.ClassifierConfig{}, nil, common.NewSilentLogger())
	return stress.NewEngine(cls, nil, nil, nil, common.NewSilentLogger())
}

// --- Tests ---

func TestRunScenario_Completed(t *testing.T) {
	storage := newMockStorage()
	reg := prometheus.NewRegistry()
	rec := metrics.NewRecorder(reg)
	svc := newTestService(storage, realEngine(), rec)

	run, err := svc.RunScenario(context.Background(), "crash", "balanced")
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.NotEmpty(t, run.ID)
	assert.Empty(t, run.Error)
	assert.Equal(t, 250*time.Millisecond, run.Duration)
	require.NotNil(t, run.Results)
	assert.InDelta(t, -4540, run.Results.TotalImpact, 1e-6)

	assert.Equal(t, 1, storage.history.count())
	assert.Equal(t, 1, storage.scenarios.scenarios["crash"].UsageCount)

	stored, err := svc.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, stored.Status)

	count, err := testutil.GatherAndCount(reg, "vire_stress_scenario_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRunScenario_ConvertsAliases(t *testing.T) {
	storage := newMockStorage()
	mock := &mockStressService{result: &models.PortfolioStressResult{}}
	svc := newTestService(storage, mock, nil)

	_, err := svc.RunScenario(context.Background(), "crash", "balanced")
	require.NoError(t, err)
	assert.Equal(t, -20.0, mock.got.Equity)
	assert.Equal(t, -100.0, mock.got.Rates)
	assert.Nil(t, mock.got.Volatility)
}

func TestRunScenario_FailuresAreRecorded(t *testing.T) {
	tests := []struct {
		name      string
		scenario  string
		portfolio string
		check     func(t *testing.T, err error)
	}{
		{"missing scenario", "nope", "balanced", func(t *testing.T, err error) {
			var nf *models.NotFoundError
			require.ErrorAs(t, err, &nf)
			assert.Equal(t, "scenario", nf.Kind)
		}},
		{"missing portfolio", "crash", "nope", func(t *testing.T, err error) {
			var nf *models.NotFoundError
			require.ErrorAs(t, err, &nf)
			assert.Equal(t, "portfolio", nf.Kind)
		}},
		{"empty portfolio", "crash", "empty", func(t *testing.T, err error) {
			assert.ErrorIs(t, err, models.ErrEmptyPortfolio)
		}},
		{"unknown factor", "bad", "balanced", func(t *testing.T, err error) {
			assert.Contains(t, err.Error(), "gold_price")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := newMockStorage()
			svc := newTestService(storage, realEngine(), nil)

			run, err := svc.RunScenario(context.Background(), tt.scenario, tt.portfolio)
			require.Error(t, err)
			tt.check(t, err)

			require.NotNil(t, run)
			assert.Equal(t, models.RunStatusFailed, run.Status)
			assert.Equal(t, err.Error(), run.Error)
			assert.Nil(t, run.Results)
			assert.Equal(t, 1, storage.history.count())
			if s, ok := storage.scenarios.scenarios["crash"]; ok {
				assert.Zero(t, s.UsageCount)
			}
		})
	}
}

func TestRunScenario_RecordsEvenWhenContextCancelled(t *testing.T) {
	storage := newMockStorage()
	mock := &mockStressService{err: context.Canceled}
	svc := newTestService(storage, mock, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	run, err := svc.RunScenario(ctx, "crash", "balanced")
	require.Error(t, err)
	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Equal(t, 1, storage.history.count())
}

func TestRunScenario_HistoryFailureSurfaces(t *testing.T) {
	storage := newMockStorage()
	storage.history.appendErr = errors.New("disk full")
	svc := newTestService(storage, realEngine(), nil)

	run, err := svc.RunScenario(context.Background(), "crash", "balanced")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, models.RunStatusCompleted, run.Status)
}

func TestRunScenario_UsageFailureDoesNotFailRun(t *testing.T) {
	storage := newMockStorage()
	storage.scenarios.usageErr = errors.New("write conflict")
	svc := newTestService(storage, realEngine(), nil)

	run, err := svc.RunScenario(context.Background(), "crash", "balanced")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, run.Status)
}

func TestRunScenario_ConcurrentRunsAllRecorded(t *testing.T) {
	storage := newMockStorage()
	svc := NewService(storage, realEngine(), nil, common.NewSilentLogger())

	var wg sync.WaitGroup
	ids := make([]string, 20)
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run, err := svc.RunScenario(context.Background(), "crash", "balanced")
			if assert.NoError(t, err) {
				ids[i] = run.ID
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, storage.history.count())
	seen := map[string]bool{}
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate run id %s", id)
		seen[id] = true
	}
	assert.Equal(t, 20, storage.scenarios.scenarios["crash"].UsageCount)
}

func TestHistory_NewestFirst(t *testing.T) {
	storage := newMockStorage()
	svc := newTestService(storage, &mockStressService{result: &models.PortfolioStressResult{}}, nil)
	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("run-%d", n)
	}

	for i := 0; i < 3; i++ {
		_, err := svc.RunScenario(context.Background(), "crash", "balanced")
		require.NoError(t, err)
	}
	runs, err := svc.History(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-3", runs[0].ID)
	assert.Equal(t, "run-2", runs[1].ID)

	_, err = svc.GetRun(context.Background(), "run-99")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestToFactors(t *testing.T) {
	f, err := ToFactors(map[string]float64{
		"Equity":         -20,
		"interest_rates": 150,
		"credit_spreads": 300,
		"currency":       -5,
		"commodities":    12,
		"vix":            80,
	})
	require.NoError(t, err)
	assert.Equal(t, -20.0, f.Equity)
	assert.Equal(t, 150.0, f.Rates)
	assert.Equal(t, 300.0, f.Credit)
	assert.Equal(t, -5.0, f.FX)
	assert.Equal(t, 12.0, f.Commodity)
	require.NotNil(t, f.Volatility)
	assert.Equal(t, 80.0, *f.Volatility)

	empty, err := ToFactors(nil)
	require.NoError(t, err)
	assert.Empty(t, empty.Active())

	_, err = ToFactors(map[string]float64{"equity": -10, "equities": -20})
	assert.Error(t, err)
	_, err = ToFactors(map[string]float64{"inflation": 3})
	assert.Error(t, err)
}

func TestLookupFactor(t *testing.T) {
	f, ok := LookupFactor("  Credit_Spreads ")
	require.True(t, ok)
	assert.Equal(t, models.FactorCredit, f)
	f, ok = LookupFactor("VIX")
	require.True(t, ok)
	assert.Equal(t, models.FactorVolatility, f)
	_, ok = LookupFactor("inflation")
	assert.False(t, ok)
}
