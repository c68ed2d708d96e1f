package strength

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"sector-flow/internal/domain/moneyflow"
	strengthDomain "sector-flow/internal/domain/strength"
	"sector-flow/internal/domain/taxonomy"
)

const (
	// DefaultWorkers 為板塊計算的預設併發數。
	DefaultWorkers = 8
	// DefaultBudget 為單次整批計算的時間預算，超時回傳部分結果。
	DefaultBudget = 45 * time.Second
)

// Options 彙整計算參數，零值欄位套用預設。
type Options struct {
	Weights    strengthDomain.ScoreWeights
	Workers    int
	Budget     time.Duration
	TopStocks  int
	MaxMembers int
	Source     string
}

// ComputeInput 為一次整批強度計算的請求。
type ComputeInput struct {
	Date  time.Time
	Mode  taxonomy.Taxonomy
	Force bool
}

// SectorFailure 紀錄單一板塊計算失敗的原因，供回應與日誌使用。
type SectorFailure struct {
	SectorID   string `json:"sector_id"`
	SectorName string `json:"sector_name"`
	Reason     string `json:"reason"`
}

// ComputeOutput 為整批計算結果，Results 依得分遞減排序。
type ComputeOutput struct {
	RunID     string
	TradeDate time.Time
	Taxonomy  taxonomy.Taxonomy
	Results   []strengthDomain.Result
	Partial   bool
	Failures  []SectorFailure
}

// ComputeUseCase 負責整批板塊強度計算：解析分類、併發計算各板塊、
// 寫入快取與歷史。快取命中的板塊不重新計算也不重取行情。
type ComputeUseCase struct {
	resolver *Resolver
	provider FlowProvider
	store    ResultStore

	weights    strengthDomain.ScoreWeights
	workers    int
	budget     time.Duration
	topStocks  int
	maxMembers int
	source     string
}

// NewComputeUseCase 建立強度計算用例。
func NewComputeUseCase(resolver *Resolver, provider FlowProvider, store ResultStore, opts Options) *ComputeUseCase {
	if !opts.Weights.Valid() || opts.Weights == (strengthDomain.ScoreWeights{}) {
		opts.Weights = strengthDomain.DefaultScoreWeights()
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Budget <= 0 {
		opts.Budget = DefaultBudget
	}
	if opts.TopStocks <= 0 {
		opts.TopStocks = strengthDomain.DefaultTopStocks
	}
	if opts.MaxMembers <= 0 {
		opts.MaxMembers = DefaultMaxMembers
	}
	if opts.Source == "" {
		opts.Source = "tushare"
	}
	return &ComputeUseCase{
		resolver:   resolver,
		provider:   provider,
		store:      store,
		weights:    opts.Weights,
		workers:    opts.Workers,
		budget:     opts.Budget,
		topStocks:  opts.TopStocks,
		maxMembers: opts.MaxMembers,
		source:     opts.Source,
	}
}

// Execute 執行整批計算。單一板塊失敗不中斷整批，列入 Failures；
// 超出時間預算時以 Partial 標記並回傳已完成的板塊。
func (u *ComputeUseCase) Execute(ctx context.Context, input ComputeInput) (ComputeOutput, error) {
	if input.Date.IsZero() {
		return ComputeOutput{}, errors.New("compute: trade date is required")
	}

	runID := uuid.NewString()
	tax, groupings, err := u.resolver.Resolve(ctx, input.Mode, input.Date)
	if err != nil {
		return ComputeOutput{}, err
	}
	log.Printf("[Compute] run=%s date=%s taxonomy=%s sectors=%d workers=%d",
		runID, input.Date.Format("2006-01-02"), tax, len(groupings), u.workers)

	runCtx, cancel := context.WithTimeout(ctx, u.budget)
	defer cancel()

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		results  []strengthDomain.Result
		failures []SectorFailure
	)
	sem := make(chan struct{}, u.workers)

	for _, g := range groupings {
		if runCtx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(g taxonomy.Grouping) {
			defer wg.Done()
			defer func() { <-sem }()

			res, err := u.computeSector(runCtx, tax, input.Date, g, input.Force)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, SectorFailure{SectorID: g.SectorID, SectorName: g.SectorName, Reason: err.Error()})
				return
			}
			results = append(results, res)
		}(g)
	}
	wg.Wait()

	partial := errors.Is(runCtx.Err(), context.DeadlineExceeded)
	if partial {
		log.Printf("[Compute] run=%s 超出時間預算，回傳部分結果 done=%d/%d", runID, len(results), len(groupings))
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score == results[j].Score {
			return results[i].SectorID < results[j].SectorID
		}
		return results[i].Score > results[j].Score
	})
	sort.Slice(failures, func(i, j int) bool { return failures[i].SectorID < failures[j].SectorID })

	return ComputeOutput{
		RunID:     runID,
		TradeDate: input.Date,
		Taxonomy:  tax,
		Results:   results,
		Partial:   partial,
		Failures:  failures,
	}, nil
}

// computeSector 計算單一板塊：先查快取，未命中才取行情、彙總、寫回。
// 寫回採先寫者勝：撞到既有 active 列時丟棄本次計算、改用既有結果。
func (u *ComputeUseCase) computeSector(ctx context.Context, tax taxonomy.Taxonomy, date time.Time, g taxonomy.Grouping, force bool) (strengthDomain.Result, error) {
	key := strengthDomain.Key{SectorID: g.SectorID, CalcDate: date, Taxonomy: tax, CategoryID: g.CategoryID}

	if force {
		if err := u.store.Deactivate(ctx, g.SectorID, date); err != nil {
			return strengthDomain.Result{}, fmt.Errorf("deactivate %s: %w", g.SectorID, err)
		}
	} else {
		cached, err := u.store.FindActive(ctx, key)
		if err != nil {
			return strengthDomain.Result{}, fmt.Errorf("find cached %s: %w", g.SectorID, err)
		}
		if cached != nil {
			return *cached, nil
		}
	}

	members := capMembers(g.Members, u.maxMembers)
	if len(members) < len(g.Members) {
		log.Printf("[Compute] 板塊 %s 成分 %d 檔，截取 %d 檔", g.SectorID, len(g.Members), len(members))
	}

	snaps, err := u.provider.FlowSnapshots(ctx, members, date)
	if err != nil {
		return strengthDomain.Result{}, fmt.Errorf("fetch flows for %s: %w", g.SectorID, err)
	}
	ordered := make([]moneyflow.Snapshot, 0, len(snaps))
	for _, sym := range members {
		snap, ok := snaps[sym]
		if !ok {
			continue
		}
		ordered = append(ordered, snap)
	}
	if gaps := len(members) - len(ordered); gaps > 0 {
		log.Printf("[Compute] 板塊 %s 有 %d 檔無資金流資料，已略過", g.SectorID, gaps)
	}

	capped := g
	capped.Members = members
	res := strengthDomain.Aggregate(capped, tax, date, ordered, u.weights, u.topStocks)
	res.Source = u.source

	inserted, err := u.store.InsertActive(ctx, res)
	if err != nil {
		return strengthDomain.Result{}, fmt.Errorf("cache result for %s: %w", g.SectorID, err)
	}
	if !inserted {
		existing, err := u.store.FindActive(ctx, key)
		if err != nil {
			return strengthDomain.Result{}, fmt.Errorf("reread cached %s: %w", g.SectorID, err)
		}
		if existing != nil {
			return *existing, nil
		}
		return res, nil
	}

	if !res.Empty() {
		if err := u.store.AppendHistory(ctx, res.History()); err != nil {
			log.Printf("[Compute] 寫入 %s 歷史失敗: %v", g.SectorID, err)
		}
	}
	return res, nil
}

// Invalidate 停用板塊當日 active 結果，下次查詢將重新計算。
func (u *ComputeUseCase) Invalidate(ctx context.Context, sectorID string, date time.Time) error {
	if sectorID == "" {
		return errors.New("invalidate: sector id is required")
	}
	return u.store.Deactivate(ctx, sectorID, date)
}

// History 回傳板塊的歷史強度序列，新到舊。
func (u *ComputeUseCase) History(ctx context.Context, sectorID string, limit int) ([]strengthDomain.HistoryEntry, error) {
	if limit <= 0 {
		limit = 30
	}
	return u.store.HistoryBySector(ctx, sectorID, limit)
}
