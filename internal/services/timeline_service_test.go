package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"finboard/internal/cache"
	"finboard/internal/core"
	"finboard/internal/sheets/memory"
	"finboard/internal/taxonomy"
	"finboard/internal/timeline"

	"github.com/shopspring/decimal"
)

func tx(id string, y, m, d int, amount string, typ core.TransactionType, category, owner string) core.Transaction {
	return core.Transaction{
		ID:           id,
		PostedAt:     core.NewDate(y, m, d),
		Amount:       decimal.RequireFromString(amount),
		Type:         typ,
		MainCategory: string(typ),
		Category:     category,
		Owner:        owner,
	}
}

func sampleTxs() []core.Transaction {
	return []core.Transaction{
		tx("1", 2024, 1, 5, "1000", core.Income, "Salary", "alice"),
		tx("2", 2024, 1, 7, "-80", core.Expense, "Food", "alice"),
		tx("3", 2024, 2, 3, "-120", core.Expense, "Food", "bob"),
		tx("4", 2024, 2, 28, "900", core.Income, "Salary", "bob"),
	}
}

type failingSource struct {
	err error
}

func (f failingSource) ListTransactions(context.Context) ([]core.Transaction, error) {
	return nil, f.err
}

func (f failingSource) CategoryTree(context.Context) (*taxonomy.Tree, error) {
	return taxonomy.Build(memory.DemoTree())
}

func loadedService(t *testing.T) (*TimelineService, *memory.Store) {
	t.Helper()
	store := memory.New(memory.DemoTree(), sampleTxs())
	svc := NewTimelineService(store, cache.NewBucketCache(16, 0), nil)
	if err := svc.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	return svc, store
}

func TestReloadStatus(t *testing.T) {
	svc := NewTimelineService(memory.New(memory.DemoTree(), nil), nil, nil)
	if svc.Ready() {
		t.Error("Ready() = true before first reload")
	}

	svc, _ = loadedService(t)
	st := svc.Status()
	if !st.Loaded || st.Transactions != 4 || st.Skipped != 0 || st.Nodes == 0 {
		t.Errorf("Status() = %+v", st)
	}
	if !svc.Ready() {
		t.Error("Ready() = false after reload")
	}
}

func TestReloadBumpsVersionAndKeepsVisibility(t *testing.T) {
	svc, store := loadedService(t)
	ctx := context.Background()
	before := svc.Status().Version

	if _, err := svc.ToggleCategory(ctx, 20); err != nil {
		t.Fatalf("ToggleCategory() error = %v", err)
	}
	if err := store.ReplaceDataset(ctx, memory.DemoTree(), sampleTxs()[:2]); err != nil {
		t.Fatalf("ReplaceDataset() error = %v", err)
	}
	if err := svc.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	if got := svc.Status().Version; got != before+1 {
		t.Errorf("Version = %d, want %d", got, before+1)
	}
	for _, id := range svc.Visibility().Categories {
		if id == 20 {
			t.Error("visibility reset although the tree did not change")
		}
	}

	// A different tree resets visibility.
	tree := memory.DemoTree()
	tree[0].Name = "Earnings"
	if err := store.ReplaceDataset(ctx, tree, sampleTxs()); err != nil {
		t.Fatalf("ReplaceDataset() error = %v", err)
	}
	if err := svc.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	found := false
	for _, id := range svc.Visibility().Categories {
		found = found || id == 20
	}
	if !found {
		t.Error("visibility not reset after tree change")
	}
}

func TestReloadFailureKeepsDataset(t *testing.T) {
	boom := errors.New("backend down")
	svc := NewTimelineService(failingSource{err: boom}, nil, nil)
	if err := svc.Reload(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Reload() error = %v, want %v", err, boom)
	}
	st := svc.Status()
	if st.Loaded || st.LastError == "" {
		t.Errorf("Status() = %+v, want not loaded with error", st)
	}
}

func TestChartAndMutations(t *testing.T) {
	svc, _ := loadedService(t)
	ctx := context.Background()

	chart := svc.Chart()
	if chart.Granularity != timeline.Quarter || len(chart.Buckets) != 1 {
		t.Errorf("Chart() granularity = %v, buckets = %d", chart.Granularity, len(chart.Buckets))
	}

	chart, changed := svc.ZoomIn(ctx)
	if !changed || chart.Granularity != timeline.Month || len(chart.Buckets) != 2 {
		t.Errorf("ZoomIn() = %v, %v, %d buckets", chart.Granularity, changed, len(chart.Buckets))
	}
	if _, changed := svc.ZoomIn(ctx); !changed {
		t.Error("ZoomIn() to day level reported no change")
	}
	if _, changed := svc.ZoomIn(ctx); changed {
		t.Error("ZoomIn() past day level reported a change")
	}
	if _, changed := svc.ResetZoom(ctx); !changed {
		t.Error("ResetZoom() reported no change")
	}
	if _, changed := svc.ZoomOut(ctx); changed {
		t.Error("ZoomOut() at quarter level reported a change")
	}

	if _, err := svc.ToggleType(ctx, 999); !errors.Is(err, taxonomy.ErrUnknownNode) {
		t.Errorf("ToggleType(999) error = %v, want ErrUnknownNode", err)
	}
	if _, err := svc.ToggleSubcategory(ctx, 200); err != nil {
		t.Errorf("ToggleSubcategory() error = %v", err)
	}
	if _, err := svc.ToggleCategoryExpanded(ctx, 20); err != nil {
		t.Errorf("ToggleCategoryExpanded() error = %v", err)
	}
}

func TestBreakdown(t *testing.T) {
	svc, _ := loadedService(t)
	ctx := context.Background()

	if _, err := svc.SetBreakdownMode(ctx, "colour"); err == nil {
		t.Error("SetBreakdownMode(colour) error = nil")
	}
	chart, err := svc.SetBreakdownMode(ctx, "owner")
	if err != nil {
		t.Fatalf("SetBreakdownMode() error = %v", err)
	}
	if len(chart.Keys) != 2 {
		t.Errorf("Keys = %v, want alice and bob", chart.Keys)
	}
	if _, err := svc.ToggleBreakdownKey(ctx, "alice"); err != nil {
		t.Errorf("ToggleBreakdownKey(alice) error = %v", err)
	}
	if _, err := svc.ToggleBreakdownKey(ctx, "bob"); !errors.Is(err, ErrKeyRejected) {
		t.Errorf("ToggleBreakdownKey(last) error = %v, want ErrKeyRejected", err)
	}
	if _, err := svc.ToggleBreakdownKey(ctx, "carol"); !errors.Is(err, ErrKeyRejected) {
		t.Errorf("ToggleBreakdownKey(unknown) error = %v, want ErrKeyRejected", err)
	}
}

func TestPointer(t *testing.T) {
	svc, _ := loadedService(t)

	in, err := svc.PointerMove(0)
	if err != nil || in == nil {
		t.Fatalf("PointerMove(0) = %v, %v", in, err)
	}
	if !in.Income.Equal(decimal.NewFromInt(1900)) {
		t.Errorf("Income = %s, want 1900", in.Income)
	}
	if _, err := svc.PointerMove(5); !errors.Is(err, timeline.ErrBucketOutOfRange) {
		t.Errorf("PointerMove(5) error = %v, want ErrBucketOutOfRange", err)
	}
	if in, _ := svc.PointerClick(0); in == nil {
		t.Error("PointerClick(0) returned no inspection")
	}
	if in := svc.PointerLeave(); in == nil {
		t.Error("PointerLeave() cleared a pinned highlight")
	}
	if in := svc.Unpin(); in != nil {
		t.Errorf("Unpin() = %+v, want nil", in)
	}
	if svc.Inspection() != nil {
		t.Error("Inspection() not nil after unpin")
	}
}

func TestConcurrentAccess(t *testing.T) {
	svc, _ := loadedService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			switch i % 4 {
			case 0:
				_ = svc.Reload(ctx)
			case 1:
				svc.ZoomIn(ctx)
			case 2:
				_ = svc.Chart()
			default:
				_, _ = svc.PointerMove(0)
			}
		}(i)
	}
	wg.Wait()
	if !svc.Ready() {
		t.Error("service not ready after concurrent use")
	}
}
