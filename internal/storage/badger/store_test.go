package badger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bobmcallan/vire-stress/internal/common"
	"github.com/bobmcallan/vire-stress/internal/models"
)

// --- Test helpers ---

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	store, err := NewStore(testLogger(), filepath.Join(dir, "badger"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testLogger() *common.Logger {
	return common.NewSilentLogger()
}

func testPortfolio(id string) *models.Portfolio {
	return &models.Portfolio{
		ID:   id,
		Name: id,
		Assets: []models.Asset{
			{Symbol: "SPY", Quantity: 10, Price: 500, AssetClass: models.AssetClassEquity},
			{Symbol: "TLT", Quantity: 20, Price: 100, AssetClass: models.AssetClassBond},
		},
	}
}

func testRun(id string) *models.ScenarioRun {
	return &models.ScenarioRun{
		ID:          id,
		ScenarioID:  "gfc",
		PortfolioID: "core",
		Timestamp:   time.Now(),
		Status:      models.RunStatusCompleted,
		Results: &models.PortfolioStressResult{
			PortfolioValue: 7000,
			TotalImpact:    -1000,
			FactorAttribution: map[models.Factor]float64{
				models.FactorEquity: -1000,
			},
		},
	}
}

// --- Store tests ---

func TestStore_OpenClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "badger")
	store, err := NewStore(testLogger(), path)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if store.DB() == nil {
		t.Fatal("expected non-nil DB")
	}
	if store.Path() != path {
		t.Errorf("expected path %s, got %s", path, store.Path())
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected directory to be created: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestStore_CloseNilDB(t *testing.T) {
	store := &Store{}
	if err := store.Close(); err != nil {
		t.Fatalf("Close on nil DB should not error: %v", err)
	}
}

func TestStore_InMemoryWritesNothingToDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unused")
	store, err := NewStore(testLogger(), path, WithInMemory())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer store.Close()

	if !store.InMemory() {
		t.Error("expected in-memory store")
	}
	if err := NewPortfolioStorage(store, testLogger()).SavePortfolio(context.Background(), testPortfolio("core")); err != nil {
		t.Fatalf("SavePortfolio failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected no directory at %s, stat err: %v", path, err)
	}
}

func TestStore_CountsAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "badger")
	store, err := NewStore(testLogger(), path, WithSyncWrites(true))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	ctx := context.Background()

	counts, err := store.Counts()
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	if counts != (StoreCounts{}) {
		t.Errorf("expected empty store, got %+v", counts)
	}

	portfolios := NewPortfolioStorage(store, testLogger())
	portfolios.SavePortfolio(ctx, testPortfolio("a"))
	portfolios.SavePortfolio(ctx, testPortfolio("b"))
	NewScenarioStorage(store, testLogger()).SaveScenario(ctx, &models.Scenario{ID: "gfc", Name: "GFC"})
	NewRunHistoryStorage(store, testLogger(), 10).Append(ctx, testRun("run-1"))
	store.Close()

	store, err = NewStore(testLogger(), path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer store.Close()
	counts, err = store.Counts()
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	want := StoreCounts{Portfolios: 2, Scenarios: 1, Runs: 1}
	if counts != want {
		t.Errorf("expected %+v after reopen, got %+v", want, counts)
	}
}

// --- Portfolio Storage tests ---

func TestPortfolioStorage_CRUD(t *testing.T) {
	store := newTestStore(t)
	ps := NewPortfolioStorage(store, testLogger())
	ctx := context.Background()

	_, err := ps.GetPortfolio(ctx, "core")
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := ps.SavePortfolio(ctx, testPortfolio("core")); err != nil {
		t.Fatalf("SavePortfolio failed: %v", err)
	}

	got, err := ps.GetPortfolio(ctx, "core")
	if err != nil {
		t.Fatalf("GetPortfolio failed: %v", err)
	}
	if len(got.Assets) != 2 || got.Assets[1].Symbol != "TLT" {
		t.Errorf("unexpected assets: %+v", got.Assets)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}

	if err := ps.SavePortfolio(ctx, testPortfolio("alpha")); err != nil {
		t.Fatalf("SavePortfolio failed: %v", err)
	}
	ids, err := ps.ListPortfolios(ctx)
	if err != nil {
		t.Fatalf("ListPortfolios failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "alpha" || ids[1] != "core" {
		t.Errorf("expected sorted [alpha core], got %v", ids)
	}

	if err := ps.DeletePortfolio(ctx, "core"); err != nil {
		t.Fatalf("DeletePortfolio failed: %v", err)
	}
	if err := ps.DeletePortfolio(ctx, "core"); err != nil {
		t.Fatalf("deleting a missing portfolio should not error: %v", err)
	}
	if _, err := ps.GetPortfolio(ctx, "core"); err == nil {
		t.Fatal("expected error after delete")
	}
}

func TestPortfolioStorage_IDDefaultsToName(t *testing.T) {
	store := newTestStore(t)
	ps := NewPortfolioStorage(store, testLogger())
	ctx := context.Background()

	p := testPortfolio("")
	p.Name = "growth"
	if err := ps.SavePortfolio(ctx, p); err != nil {
		t.Fatalf("SavePortfolio failed: %v", err)
	}
	if _, err := ps.GetPortfolio(ctx, "growth"); err != nil {
		t.Fatalf("expected portfolio keyed by name: %v", err)
	}
}

func TestPortfolioStorage_RejectsInvalid(t *testing.T) {
	store := newTestStore(t)
	ps := NewPortfolioStorage(store, testLogger())

	p := testPortfolio("bad")
	p.Assets[0].Price = 0
	if err := ps.SavePortfolio(context.Background(), p); err == nil {
		t.Fatal("expected validation error for zero price")
	}
}

// --- Scenario Storage tests ---

func TestScenarioStorage_SaveGetList(t *testing.T) {
	store := newTestStore(t)
	ss := NewScenarioStorage(store, testLogger())
	ctx := context.Background()

	_, err := ss.GetScenario(ctx, "gfc")
	var nf *models.NotFoundError
	if !errors.As(err, &nf) || nf.Kind != "scenario" {
		t.Fatalf("expected scenario NotFoundError, got %v", err)
	}

	for _, id := range []string{"rates_up", "gfc"} {
		if err := ss.SaveScenario(ctx, &models.Scenario{
			ID:            id,
			Name:          id,
			FactorChanges: map[string]float64{"equity": -20},
		}); err != nil {
			t.Fatalf("SaveScenario failed: %v", err)
		}
	}

	got, err := ss.GetScenario(ctx, "gfc")
	if err != nil {
		t.Fatalf("GetScenario failed: %v", err)
	}
	if got.FactorChanges["equity"] != -20 {
		t.Errorf("unexpected factor changes: %v", got.FactorChanges)
	}

	list, err := ss.ListScenarios(ctx)
	if err != nil {
		t.Fatalf("ListScenarios failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != "gfc" {
		t.Errorf("expected sorted scenarios, got %d", len(list))
	}

	if err := ss.SaveScenario(ctx, &models.Scenario{}); err == nil {
		t.Error("expected error for scenario without id")
	}
}

func TestScenarioStorage_RecordUsage(t *testing.T) {
	store := newTestStore(t)
	ss := NewScenarioStorage(store, testLogger())
	ctx := context.Background()

	if err := ss.RecordUsage(ctx, "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := ss.SaveScenario(ctx, &models.Scenario{ID: "gfc"}); err != nil {
		t.Fatalf("SaveScenario failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := ss.RecordUsage(ctx, "gfc"); err != nil {
			t.Fatalf("RecordUsage failed: %v", err)
		}
	}

	got, _ := ss.GetScenario(ctx, "gfc")
	if got.UsageCount != 3 {
		t.Errorf("expected usage count 3, got %d", got.UsageCount)
	}
	if got.LastRunAt.IsZero() {
		t.Error("expected LastRunAt to be set")
	}

	// Re-saving the definition keeps usage stats
	if err := ss.SaveScenario(ctx, &models.Scenario{ID: "gfc", Name: "renamed"}); err != nil {
		t.Fatalf("SaveScenario failed: %v", err)
	}
	got, _ = ss.GetScenario(ctx, "gfc")
	if got.UsageCount != 3 || got.Name != "renamed" {
		t.Errorf("expected usage preserved across re-save, got %+v", got)
	}
}

// --- Run History Storage tests ---

func TestRunHistory_AppendListGet(t *testing.T) {
	store := newTestStore(t)
	rh := NewRunHistoryStorage(store, testLogger(), 10)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		if err := rh.Append(ctx, testRun(fmt.Sprintf("run-%d", i))); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	runs, err := rh.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].ID != "run-3" || runs[2].ID != "run-1" {
		t.Errorf("expected newest first, got %s..%s", runs[0].ID, runs[2].ID)
	}

	limited, _ := rh.List(ctx, 2)
	if len(limited) != 2 || limited[0].ID != "run-3" {
		t.Errorf("expected 2 newest runs, got %d", len(limited))
	}

	got, err := rh.GetRun(ctx, "run-2")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Sequence != 2 {
		t.Errorf("expected sequence 2, got %d", got.Sequence)
	}
	if got.Results == nil || got.Results.FactorAttribution[models.FactorEquity] != -1000 {
		t.Errorf("results did not round-trip: %+v", got.Results)
	}

	if _, err := rh.GetRun(ctx, "nope"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRunHistory_CapEvictsOldest(t *testing.T) {
	store := newTestStore(t)
	rh := NewRunHistoryStorage(store, testLogger(), 5)
	ctx := context.Background()

	for i := 1; i <= 12; i++ {
		if err := rh.Append(ctx, testRun(fmt.Sprintf("run-%02d", i))); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	runs, err := rh.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(runs) != 5 {
		t.Fatalf("expected 5 retained runs, got %d", len(runs))
	}
	if runs[0].ID != "run-12" || runs[4].ID != "run-08" {
		t.Errorf("expected run-12..run-08, got %s..%s", runs[0].ID, runs[4].ID)
	}
	if _, err := rh.GetRun(ctx, "run-07"); err == nil {
		t.Error("expected run-07 to be evicted")
	}
}

func TestRunHistory_DuplicateIDRejected(t *testing.T) {
	store := newTestStore(t)
	rh := NewRunHistoryStorage(store, testLogger(), 5)
	ctx := context.Background()

	if err := rh.Append(ctx, testRun("dup")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := rh.Append(ctx, testRun("dup")); err == nil {
		t.Fatal("expected error on duplicate run id")
	}

	// The failed append must not consume a sequence number
	if err := rh.Append(ctx, testRun("next")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	got, _ := rh.GetRun(ctx, "next")
	if got.Sequence != 2 {
		t.Errorf("expected sequence 2, got %d", got.Sequence)
	}
}

func TestRunHistory_SequenceResumesAfterReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "badger")
	ctx := context.Background()

	store, err := NewStore(testLogger(), dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	rh := NewRunHistoryStorage(store, testLogger(), 10)
	rh.Append(ctx, testRun("a"))
	rh.Append(ctx, testRun("b"))
	store.Close()

	store, err = NewStore(testLogger(), dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer store.Close()
	rh = NewRunHistoryStorage(store, testLogger(), 10)
	if err := rh.Append(ctx, testRun("c")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	runs, _ := rh.List(ctx, 0)
	if len(runs) != 3 || runs[0].ID != "c" || runs[0].Sequence != 3 {
		t.Errorf("expected c with sequence 3 at head, got %+v", runs[0])
	}
}

func TestNewRunHistoryStorage_DefaultLimit(t *testing.T) {
	rh := NewRunHistoryStorage(nil, testLogger(), 0)
	if rh.limit != DefaultHistoryLimit {
		t.Errorf("expected default limit %d, got %d", DefaultHistoryLimit, rh.limit)
	}
}
