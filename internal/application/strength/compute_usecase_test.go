package strength

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"sector-flow/internal/domain/moneyflow"
	strengthDomain "sector-flow/internal/domain/strength"
	"sector-flow/internal/domain/taxonomy"
)

type fakeSource struct {
	tax       taxonomy.Taxonomy
	groupings []taxonomy.Grouping
	err       error
	calls     int
}

func (f *fakeSource) Taxonomy() taxonomy.Taxonomy { return f.tax }

func (f *fakeSource) Resolve(ctx context.Context, date time.Time) ([]taxonomy.Grouping, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.groupings, nil
}

type fakeProvider struct {
	mu      sync.Mutex
	calls   int
	fetched int
	snaps   map[string]moneyflow.Snapshot
	err     error
	block   bool
}

func (f *fakeProvider) FlowSnapshots(ctx context.Context, symbols []string, date time.Time) (map[string]moneyflow.Snapshot, error) {
	f.mu.Lock()
	f.calls++
	f.fetched += len(symbols)
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]moneyflow.Snapshot, len(symbols))
	for _, sym := range symbols {
		if snap, ok := f.snaps[sym]; ok {
			out[sym] = snap
		}
	}
	return out, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeStore struct {
	mu      sync.Mutex
	active  map[strengthDomain.Key]strengthDomain.Result
	history []strengthDomain.HistoryEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{active: make(map[strengthDomain.Key]strengthDomain.Result)}
}

func (s *fakeStore) FindActive(ctx context.Context, key strengthDomain.Key) (*strengthDomain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if res, ok := s.active[key]; ok {
		return &res, nil
	}
	return nil, nil
}

func (s *fakeStore) ListActiveByDate(ctx context.Context, date time.Time, tax taxonomy.Taxonomy) ([]strengthDomain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []strengthDomain.Result
	for _, res := range s.active {
		if res.CalcDate.Equal(date) && res.Taxonomy == tax {
			out = append(out, res)
		}
	}
	return out, nil
}

func (s *fakeStore) InsertActive(ctx context.Context, res strengthDomain.Result) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := res.Key()
	if _, ok := s.active[key]; ok {
		return false, nil
	}
	s.active[key] = res
	return true, nil
}

func (s *fakeStore) Deactivate(ctx context.Context, sectorID string, date time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.active {
		if key.SectorID == sectorID && key.CalcDate.Equal(date) {
			delete(s.active, key)
		}
	}
	return nil
}

func (s *fakeStore) AppendHistory(ctx context.Context, entry strengthDomain.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, entry)
	return nil
}

func (s *fakeStore) HistoryBySector(ctx context.Context, sectorID string, limit int) ([]strengthDomain.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []strengthDomain.HistoryEntry
	for i := len(s.history) - 1; i >= 0 && len(out) < limit; i-- {
		if s.history[i].SectorID == sectorID {
			out = append(out, s.history[i])
		}
	}
	return out, nil
}

func snapshotFor(symbol string, changePct, superNet float64) moneyflow.Snapshot {
	var s moneyflow.Snapshot
	s.Symbol = symbol
	s.Name = "股票" + symbol
	s.ChangePct = changePct
	s.VolumeRatio = 1.2
	s.TurnoverRate = 2.5
	s.Amount = 10_000_000
	if superNet >= 0 {
		s.Flows[moneyflow.TierSuperLarge].Buy = superNet
	} else {
		s.Flows[moneyflow.TierSuperLarge].Sell = -superNet
	}
	return s
}

func testDate() time.Time {
	return time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
}

func TestExecuteComputesAndCaches(t *testing.T) {
	provider := &fakeProvider{snaps: map[string]moneyflow.Snapshot{
		"600000.SH": snapshotFor("600000.SH", 2.0, 1_500_000),
		"000001.SZ": snapshotFor("000001.SZ", -1.0, -600_000),
	}}
	store := newFakeStore()
	resolver := NewResolver(&fakeSource{tax: taxonomy.Industry, groupings: []taxonomy.Grouping{
		{SectorID: "801080.SI", SectorName: "電子", Members: []string{"600000.SH", "000001.SZ"}},
	}})
	uc := NewComputeUseCase(resolver, provider, store, Options{})

	out, err := uc.Execute(context.Background(), ComputeInput{Date: testDate()})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.RunID == "" {
		t.Error("expected non-empty run id")
	}
	if out.Taxonomy != taxonomy.Industry {
		t.Errorf("taxonomy = %s, want industry", out.Taxonomy)
	}
	if len(out.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(out.Results))
	}
	r := out.Results[0]
	if r.TotalCount != 2 || r.UpCount != 1 {
		t.Errorf("counts = %d/%d, want 2/1", r.TotalCount, r.UpCount)
	}
	if r.TotalNetMainFlow != 900_000 {
		t.Errorf("total net = %v, want 900000", r.TotalNetMainFlow)
	}
	if r.Source != "tushare" {
		t.Errorf("source = %q, want tushare", r.Source)
	}
	if len(store.history) != 1 {
		t.Errorf("history rows = %d, want 1", len(store.history))
	}

	// 第二次執行應命中快取，不再呼叫行情來源
	before := provider.callCount()
	out2, err := uc.Execute(context.Background(), ComputeInput{Date: testDate()})
	if err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if provider.callCount() != before {
		t.Errorf("provider calls grew from %d to %d on cache hit", before, provider.callCount())
	}
	if len(out2.Results) != 1 || out2.Results[0].Score != r.Score {
		t.Errorf("cached result differs: %+v", out2.Results)
	}
	if len(store.history) != 1 {
		t.Errorf("history rows after cache hit = %d, want 1", len(store.history))
	}
}

func TestExecuteForceRecomputes(t *testing.T) {
	provider := &fakeProvider{snaps: map[string]moneyflow.Snapshot{
		"600000.SH": snapshotFor("600000.SH", 2.0, 1_000_000),
	}}
	store := newFakeStore()
	resolver := NewResolver(&fakeSource{tax: taxonomy.Industry, groupings: []taxonomy.Grouping{
		{SectorID: "801080.SI", SectorName: "電子", Members: []string{"600000.SH"}},
	}})
	uc := NewComputeUseCase(resolver, provider, store, Options{})

	if _, err := uc.Execute(context.Background(), ComputeInput{Date: testDate()}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	before := provider.callCount()
	if _, err := uc.Execute(context.Background(), ComputeInput{Date: testDate(), Force: true}); err != nil {
		t.Fatalf("forced Execute: %v", err)
	}
	if provider.callCount() != before+1 {
		t.Errorf("expected forced recompute to refetch, calls %d -> %d", before, provider.callCount())
	}
}

func TestExecuteSectorFailureDoesNotAbortBatch(t *testing.T) {
	provider := &fakeProvider{snaps: map[string]moneyflow.Snapshot{
		"600000.SH": snapshotFor("600000.SH", 1.0, 500_000),
	}}
	store := newFakeStore()
	resolver := NewResolver(&fakeSource{tax: taxonomy.Industry, groupings: []taxonomy.Grouping{
		{SectorID: "801080.SI", SectorName: "電子", Members: []string{"600000.SH"}},
		{SectorID: "801150.SI", SectorName: "醫藥", Members: []string{"600196.SH"}},
	}})
	uc := NewComputeUseCase(resolver, provider, store, Options{Workers: 1})

	out, err := uc.Execute(context.Background(), ComputeInput{Date: testDate()})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	// 醫藥板塊無行情資料：彙總為空結果而非失敗
	if len(out.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(out.Results))
	}
	var empty int
	for _, r := range out.Results {
		if r.Empty() {
			empty++
		}
	}
	if empty != 1 {
		t.Errorf("empty results = %d, want 1", empty)
	}
	// 空板塊不寫歷史
	if len(store.history) != 1 {
		t.Errorf("history rows = %d, want 1", len(store.history))
	}
}

func TestExecuteProviderErrorReported(t *testing.T) {
	provider := &fakeProvider{err: fmt.Errorf("upstream: %w", taxonomy.ErrDataUnavailable)}
	store := newFakeStore()
	resolver := NewResolver(&fakeSource{tax: taxonomy.Industry, groupings: []taxonomy.Grouping{
		{SectorID: "801080.SI", SectorName: "電子", Members: []string{"600000.SH"}},
	}})
	uc := NewComputeUseCase(resolver, provider, store, Options{})

	out, err := uc.Execute(context.Background(), ComputeInput{Date: testDate()})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(out.Results) != 0 || len(out.Failures) != 1 {
		t.Fatalf("results/failures = %d/%d, want 0/1", len(out.Results), len(out.Failures))
	}
	if out.Failures[0].SectorID != "801080.SI" {
		t.Errorf("failure sector = %s", out.Failures[0].SectorID)
	}
}

func TestExecuteBudgetReturnsPartial(t *testing.T) {
	provider := &fakeProvider{block: true}
	store := newFakeStore()
	resolver := NewResolver(&fakeSource{tax: taxonomy.Industry, groupings: []taxonomy.Grouping{
		{SectorID: "801080.SI", SectorName: "電子", Members: []string{"600000.SH"}},
	}})
	uc := NewComputeUseCase(resolver, provider, store, Options{Budget: 20 * time.Millisecond})

	out, err := uc.Execute(context.Background(), ComputeInput{Date: testDate()})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !out.Partial {
		t.Error("expected partial flag after budget exhaustion")
	}
	if len(out.Failures) != 1 {
		t.Errorf("failures = %d, want 1", len(out.Failures))
	}
}

func TestExecuteSortsByScoreDesc(t *testing.T) {
	provider := &fakeProvider{snaps: map[string]moneyflow.Snapshot{
		"600000.SH": snapshotFor("600000.SH", 5.0, 2_000_000),
		"000002.SZ": snapshotFor("000002.SZ", -2.0, -800_000),
	}}
	store := newFakeStore()
	resolver := NewResolver(&fakeSource{tax: taxonomy.Industry, groupings: []taxonomy.Grouping{
		{SectorID: "801150.SI", SectorName: "醫藥", Members: []string{"000002.SZ"}},
		{SectorID: "801080.SI", SectorName: "電子", Members: []string{"600000.SH"}},
	}})
	uc := NewComputeUseCase(resolver, provider, store, Options{})

	out, err := uc.Execute(context.Background(), ComputeInput{Date: testDate()})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(out.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(out.Results))
	}
	if out.Results[0].Score < out.Results[1].Score {
		t.Errorf("results not sorted by score desc: %v < %v", out.Results[0].Score, out.Results[1].Score)
	}
	if out.Results[0].SectorID != "801080.SI" {
		t.Errorf("top sector = %s, want 801080.SI", out.Results[0].SectorID)
	}
}

func TestExecuteRequiresDate(t *testing.T) {
	uc := NewComputeUseCase(NewResolver(), &fakeProvider{}, newFakeStore(), Options{})
	if _, err := uc.Execute(context.Background(), ComputeInput{}); err == nil {
		t.Error("expected error for zero date")
	}
}

func TestInvalidateRequiresSector(t *testing.T) {
	uc := NewComputeUseCase(NewResolver(), &fakeProvider{}, newFakeStore(), Options{})
	if err := uc.Invalidate(context.Background(), "", testDate()); err == nil {
		t.Error("expected error for empty sector id")
	}
}

func TestExecuteNoTaxonomyAvailable(t *testing.T) {
	resolver := NewResolver(
		&fakeSource{tax: taxonomy.Industry, err: taxonomy.ErrPermissionDenied},
		&fakeSource{tax: taxonomy.Concept, err: taxonomy.ErrDataUnavailable},
	)
	uc := NewComputeUseCase(resolver, &fakeProvider{}, newFakeStore(), Options{})

	_, err := uc.Execute(context.Background(), ComputeInput{Date: testDate()})
	if !errors.Is(err, taxonomy.ErrNoTaxonomyAvailable) {
		t.Errorf("err = %v, want ErrNoTaxonomyAvailable", err)
	}
}
