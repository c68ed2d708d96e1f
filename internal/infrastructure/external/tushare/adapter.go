package tushare

import (
	"context"
	"fmt"
	"log"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"sector-flow/internal/domain/moneyflow"
	"sector-flow/internal/domain/taxonomy"
)

// 金額單位換算：moneyflow 介面以萬元計、daily 成交額以千元計，內部一律用元。
const (
	wanToYuan  = 10_000.0
	qianToYuan = 1_000.0
)

const defaultConceptLimit = 20

// Provider 以 tushare 日線資料實作行情來源。單日全市場資料一次取回並
// 記憶體快取，之後依板塊成分切片，避免逐檔請求撞上頻率限制。
type Provider struct {
	client       *Client
	cache        *gocache.Cache
	conceptLimit int
}

// NewProvider 建立 tushare 行情來源，cacheTTL 為單日資料的快取存活時間。
func NewProvider(client *Client, cacheTTL time.Duration, conceptLimit int) *Provider {
	if cacheTTL <= 0 {
		cacheTTL = 24 * time.Hour
	}
	if conceptLimit <= 0 {
		conceptLimit = defaultConceptLimit
	}
	return &Provider{
		client:       client,
		cache:        gocache.New(cacheTTL, 2*cacheTTL),
		conceptLimit: conceptLimit,
	}
}

func ymd(date time.Time) string { return date.Format("20060102") }

// FlowSnapshots 回傳指定股票的當日資金流快照；無資料的股票略過不補零。
func (p *Provider) FlowSnapshots(ctx context.Context, symbols []string, date time.Time) (map[string]moneyflow.Snapshot, error) {
	market, err := p.marketFlows(ctx, date)
	if err != nil {
		return nil, err
	}
	out := make(map[string]moneyflow.Snapshot, len(symbols))
	for _, sym := range symbols {
		if snap, ok := market[sym]; ok {
			out[sym] = snap
		}
	}
	return out, nil
}

// marketFlows 取回全市場單日快照，三個介面各呼叫一次後合併。
func (p *Provider) marketFlows(ctx context.Context, date time.Time) (map[string]moneyflow.Snapshot, error) {
	key := "flows:" + ymd(date)
	if cached, ok := p.cache.Get(key); ok {
		return cached.(map[string]moneyflow.Snapshot), nil
	}

	flows, err := p.client.call(ctx, "moneyflow", map[string]string{"trade_date": ymd(date)})
	if err != nil {
		return nil, fmt.Errorf("fetch moneyflow: %w", err)
	}
	if flows.len() == 0 {
		return nil, fmt.Errorf("no money flow rows for %s: %w", ymd(date), moneyflow.ErrDataGap)
	}

	snapshots := make(map[string]moneyflow.Snapshot, flows.len())
	for i := 0; i < flows.len(); i++ {
		sym := flows.str(i, "ts_code")
		if sym == "" {
			continue
		}
		var s moneyflow.Snapshot
		s.Symbol = sym
		s.TradeDate = date
		s.Flows[moneyflow.TierSuperLarge] = moneyflow.TierFlow{
			Buy:  flows.num(i, "buy_elg_amount") * wanToYuan,
			Sell: flows.num(i, "sell_elg_amount") * wanToYuan,
		}
		s.Flows[moneyflow.TierLarge] = moneyflow.TierFlow{
			Buy:  flows.num(i, "buy_lg_amount") * wanToYuan,
			Sell: flows.num(i, "sell_lg_amount") * wanToYuan,
		}
		s.Flows[moneyflow.TierMedium] = moneyflow.TierFlow{
			Buy:  flows.num(i, "buy_md_amount") * wanToYuan,
			Sell: flows.num(i, "sell_md_amount") * wanToYuan,
		}
		s.Flows[moneyflow.TierSmall] = moneyflow.TierFlow{
			Buy:  flows.num(i, "buy_sm_amount") * wanToYuan,
			Sell: flows.num(i, "sell_sm_amount") * wanToYuan,
		}
		snapshots[sym] = s
	}

	daily, err := p.client.call(ctx, "daily", map[string]string{"trade_date": ymd(date)})
	if err != nil {
		return nil, fmt.Errorf("fetch daily: %w", err)
	}
	for i := 0; i < daily.len(); i++ {
		sym := daily.str(i, "ts_code")
		snap, ok := snapshots[sym]
		if !ok {
			continue
		}
		snap.Price = daily.num(i, "close")
		snap.ChangePct = daily.num(i, "pct_chg")
		snap.Amount = daily.num(i, "amount") * qianToYuan
		snapshots[sym] = snap
	}

	basics, err := p.client.call(ctx, "daily_basic", map[string]string{"trade_date": ymd(date)})
	if err != nil {
		// 量比、換手屬加分欄位，缺漏時照常計分
		log.Printf("[Tushare] daily_basic 取得失敗，量比換手以零計: %v", err)
	} else {
		for i := 0; i < basics.len(); i++ {
			sym := basics.str(i, "ts_code")
			snap, ok := snapshots[sym]
			if !ok {
				continue
			}
			snap.VolumeRatio = basics.num(i, "volume_ratio")
			snap.TurnoverRate = basics.num(i, "turnover_rate")
			snapshots[sym] = snap
		}
	}

	if names, err := p.stockNames(ctx); err == nil {
		for sym, snap := range snapshots {
			snap.Name = names[sym]
			snapshots[sym] = snap
		}
	} else {
		log.Printf("[Tushare] stock_basic 取得失敗，名稱留空: %v", err)
	}

	p.cache.SetDefault(key, snapshots)
	return snapshots, nil
}

// stockNames 取回代碼對名稱的對照表，跨日共用。
func (p *Provider) stockNames(ctx context.Context) (map[string]string, error) {
	const key = "names"
	if cached, ok := p.cache.Get(key); ok {
		return cached.(map[string]string), nil
	}
	rows, err := p.client.call(ctx, "stock_basic", map[string]string{"list_status": "L"})
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, rows.len())
	for i := 0; i < rows.len(); i++ {
		names[rows.str(i, "ts_code")] = rows.str(i, "name")
	}
	p.cache.SetDefault(key, names)
	return names, nil
}

// IndustrySource 以申萬 2021 一級行業作為板塊分類。
type IndustrySource struct {
	p *Provider
}

// NewIndustrySource 建立行業分類來源。
func NewIndustrySource(p *Provider) *IndustrySource { return &IndustrySource{p: p} }

func (s *IndustrySource) Taxonomy() taxonomy.Taxonomy { return taxonomy.Industry }

// Resolve 取回全部一級行業及其成分股。
func (s *IndustrySource) Resolve(ctx context.Context, date time.Time) ([]taxonomy.Grouping, error) {
	key := "industry:" + ymd(date)
	if cached, ok := s.p.cache.Get(key); ok {
		return cached.([]taxonomy.Grouping), nil
	}

	classes, err := s.p.client.call(ctx, "index_classify", map[string]string{"level": "L1", "src": "SW2021"})
	if err != nil {
		return nil, fmt.Errorf("fetch industry index list: %w", err)
	}

	groupings := make([]taxonomy.Grouping, 0, classes.len())
	for i := 0; i < classes.len(); i++ {
		indexCode := classes.str(i, "index_code")
		members, err := s.p.client.call(ctx, "index_member", map[string]string{"index_code": indexCode})
		if err != nil {
			return nil, fmt.Errorf("fetch members of %s: %w", indexCode, err)
		}
		g := taxonomy.Grouping{
			SectorID:   indexCode,
			SectorName: classes.str(i, "industry_name"),
		}
		for j := 0; j < members.len(); j++ {
			g.Members = append(g.Members, members.str(j, "con_code"))
		}
		groupings = append(groupings, g)
	}

	s.p.cache.SetDefault(key, groupings)
	return groupings, nil
}

// ConceptSource 以 tushare 概念分類作為板塊分類，僅取前 conceptLimit 個概念。
type ConceptSource struct {
	p *Provider
}

// NewConceptSource 建立概念分類來源。
func NewConceptSource(p *Provider) *ConceptSource { return &ConceptSource{p: p} }

func (s *ConceptSource) Taxonomy() taxonomy.Taxonomy { return taxonomy.Concept }

// Resolve 取回概念板塊及其成分股，概念數量受上限控制以節省額度。
func (s *ConceptSource) Resolve(ctx context.Context, date time.Time) ([]taxonomy.Grouping, error) {
	key := "concept:" + ymd(date)
	if cached, ok := s.p.cache.Get(key); ok {
		return cached.([]taxonomy.Grouping), nil
	}

	concepts, err := s.p.client.call(ctx, "concept", map[string]string{"src": "ts"})
	if err != nil {
		return nil, fmt.Errorf("fetch concept list: %w", err)
	}

	limit := concepts.len()
	if limit > s.p.conceptLimit {
		limit = s.p.conceptLimit
	}
	groupings := make([]taxonomy.Grouping, 0, limit)
	for i := 0; i < limit; i++ {
		conceptID := concepts.str(i, "code")
		members, err := s.p.client.call(ctx, "concept_detail", map[string]string{"id": conceptID})
		if err != nil {
			return nil, fmt.Errorf("fetch concept %s members: %w", conceptID, err)
		}
		g := taxonomy.Grouping{
			SectorID:   conceptID,
			SectorName: concepts.str(i, "name"),
			CategoryID: conceptID,
		}
		for j := 0; j < members.len(); j++ {
			g.Members = append(g.Members, members.str(j, "ts_code"))
		}
		groupings = append(groupings, g)
	}

	s.p.cache.SetDefault(key, groupings)
	return groupings, nil
}
