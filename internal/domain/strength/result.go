package strength

import (
	"time"

	"sector-flow/internal/domain/taxonomy"
)

// StockStrength 為板塊內單一成分股的強度資料。
type StockStrength struct {
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	ChangePct    float64 `json:"change_pct"`
	Price        float64 `json:"price"`
	VolumeRatio  float64 `json:"volume_ratio"`
	TurnoverRate float64 `json:"turnover_rate"`
	NetMainFlow  float64 `json:"net_main_flow"` // 主力淨流入（元）
	FlowRatio    float64 `json:"flow_ratio"`    // 主力淨流入佔成交額（%）
	Score        float64 `json:"score"`
}

// Result 為「板塊 × 日期 × 分類」的強度計算結果，即快取資料列。
// 同一組 (SectorID, CalcDate, Taxonomy, CategoryID) 最多只有一筆 Active 列；
// 重算時停用舊列而非刪除。
type Result struct {
	SectorID     string
	SectorName   string
	Taxonomy     taxonomy.Taxonomy
	CategoryID   string // 子分類；主板塊為空字串
	CategoryName string
	CalcDate     time.Time

	TotalCount int
	UpCount    int
	DownCount  int
	UpRatio    float64

	AvgChangePct    float64
	AvgVolumeRatio  float64
	AvgTurnoverRate float64

	TotalNetMainFlow float64    // 成分股主力淨流入合計（元）
	AvgFlowRatio     float64    // 成分股主力淨流入佔比平均（%）
	TierNets         [4]float64 // 各資金級別的板塊淨流入（元），供分層圖使用

	Score     float64
	TopStocks []StockStrength

	Source string // 資料來源標記，例如 "tushare"
	Active bool
}

// Empty 回傳是否為無有效資料的板塊（當日成分股全數缺資料）。
func (r Result) Empty() bool {
	return r.TotalCount == 0
}

// Key 回傳快取鍵。
func (r Result) Key() Key {
	return Key{
		SectorID:   r.SectorID,
		CalcDate:   r.CalcDate,
		Taxonomy:   r.Taxonomy,
		CategoryID: r.CategoryID,
	}
}

// Key 唯一識別一筆快取結果。
type Key struct {
	SectorID   string
	CalcDate   time.Time
	Taxonomy   taxonomy.Taxonomy
	CategoryID string
}

// HistoryEntry 為趨勢分析用的歷史紀錄，只增不改。
type HistoryEntry struct {
	SectorID         string
	CalcDate         time.Time
	Score            float64
	AvgChangePct     float64
	UpRatio          float64
	TotalNetMainFlow float64
}
