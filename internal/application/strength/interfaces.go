package strength

import (
	"context"
	"time"

	"sector-flow/internal/domain/moneyflow"
	strengthDomain "sector-flow/internal/domain/strength"
	"sector-flow/internal/domain/taxonomy"
)

// FlowProvider 取得多檔股票的當日分級資金流快照。
// 回傳的 map 只含成功取得資料的股票；缺資料的股票由實作記錄後略過，
// 不可以零值補入。整批層級的失敗（權限、全日無資料）以 error 回報。
type FlowProvider interface {
	FlowSnapshots(ctx context.Context, symbols []string, date time.Time) (map[string]moneyflow.Snapshot, error)
}

// GroupingSource 依單一分類方式解析板塊與成分股。
// 失敗時應以 taxonomy.ErrPermissionDenied 或 taxonomy.ErrDataUnavailable 包裝，
// 供降級鏈判斷。
type GroupingSource interface {
	Taxonomy() taxonomy.Taxonomy
	Resolve(ctx context.Context, date time.Time) ([]taxonomy.Grouping, error)
}

// ResultStore 為強度結果快取與歷史紀錄的儲存介面。
// InsertActive 須保證同鍵最多一筆 active 列：鍵已存在時回傳 false 且不覆寫。
type ResultStore interface {
	FindActive(ctx context.Context, key strengthDomain.Key) (*strengthDomain.Result, error)
	ListActiveByDate(ctx context.Context, date time.Time, tax taxonomy.Taxonomy) ([]strengthDomain.Result, error)
	InsertActive(ctx context.Context, res strengthDomain.Result) (bool, error)
	Deactivate(ctx context.Context, sectorID string, date time.Time) error
	AppendHistory(ctx context.Context, entry strengthDomain.HistoryEntry) error
	HistoryBySector(ctx context.Context, sectorID string, limit int) ([]strengthDomain.HistoryEntry, error)
}
