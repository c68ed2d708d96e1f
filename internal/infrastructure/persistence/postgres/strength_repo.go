package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sector-flow/internal/domain/moneyflow"
	strengthDomain "sector-flow/internal/domain/strength"
	"sector-flow/internal/domain/taxonomy"
)

// StrengthRepo 提供 Postgres 強度結果快取與歷史紀錄存取。
// active 列的唯一性由部分唯一索引保證（同鍵 WHERE is_active 最多一列），
// 寫入衝突時 DO NOTHING，由呼叫端改讀既有列。
type StrengthRepo struct {
	db *sql.DB
}

// NewStrengthRepo 建立 Postgres 強度結果存取實例。
func NewStrengthRepo(db *sql.DB) *StrengthRepo {
	return &StrengthRepo{db: db}
}

const strengthColumns = `
sector_id, sector_name, taxonomy, category_id, category_name, calc_date,
total_count, up_count, down_count, up_ratio,
avg_change_pct, avg_volume_ratio, avg_turnover_rate,
total_net_main_flow, avg_flow_ratio,
tier_super_net, tier_large_net, tier_medium_net, tier_small_net,
score, top_stocks, source, is_active`

// FindActive 取同鍵的 active 列；不存在時回傳 (nil, nil)。
func (r *StrengthRepo) FindActive(ctx context.Context, key strengthDomain.Key) (*strengthDomain.Result, error) {
	q := `
SELECT ` + strengthColumns + `
FROM sector_strength_results
WHERE sector_id = $1 AND calc_date = $2 AND taxonomy = $3 AND category_id = $4 AND is_active;
`
	row := r.db.QueryRowContext(ctx, q, key.SectorID, key.CalcDate, string(key.Taxonomy), key.CategoryID)
	res, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ListActiveByDate 取某日某分類的全部 active 列，依得分遞減。
func (r *StrengthRepo) ListActiveByDate(ctx context.Context, date time.Time, tax taxonomy.Taxonomy) ([]strengthDomain.Result, error) {
	q := `
SELECT ` + strengthColumns + `
FROM sector_strength_results
WHERE calc_date = $1 AND taxonomy = $2 AND is_active
ORDER BY score DESC, sector_id;
`
	rows, err := r.db.QueryContext(ctx, q, date, string(tax))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []strengthDomain.Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// InsertActive 寫入一筆 active 結果；同鍵已有 active 列時不覆寫並回傳 false。
func (r *StrengthRepo) InsertActive(ctx context.Context, res strengthDomain.Result) (bool, error) {
	topStocks, err := json.Marshal(res.TopStocks)
	if err != nil {
		return false, fmt.Errorf("marshal top stocks: %w", err)
	}

	const q = `
INSERT INTO sector_strength_results (
    sector_id, sector_name, taxonomy, category_id, category_name, calc_date,
    total_count, up_count, down_count, up_ratio,
    avg_change_pct, avg_volume_ratio, avg_turnover_rate,
    total_net_main_flow, avg_flow_ratio,
    tier_super_net, tier_large_net, tier_medium_net, tier_small_net,
    score, top_stocks, source, is_active
) VALUES (
    $1, $2, $3, $4, $5, $6,
    $7, $8, $9, $10,
    $11, $12, $13,
    $14, $15,
    $16, $17, $18, $19,
    $20, $21, $22, TRUE
)
ON CONFLICT (sector_id, calc_date, taxonomy, category_id) WHERE is_active
DO NOTHING;
`
	result, err := r.db.ExecContext(ctx, q,
		res.SectorID,
		res.SectorName,
		string(res.Taxonomy),
		res.CategoryID,
		nullableString(res.CategoryName),
		res.CalcDate,
		res.TotalCount,
		res.UpCount,
		res.DownCount,
		res.UpRatio,
		res.AvgChangePct,
		res.AvgVolumeRatio,
		res.AvgTurnoverRate,
		res.TotalNetMainFlow,
		res.AvgFlowRatio,
		res.TierNets[moneyflow.TierSuperLarge],
		res.TierNets[moneyflow.TierLarge],
		res.TierNets[moneyflow.TierMedium],
		res.TierNets[moneyflow.TierSmall],
		res.Score,
		topStocks,
		res.Source,
	)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Deactivate 停用板塊某日的 active 列；列本身保留供稽核。
func (r *StrengthRepo) Deactivate(ctx context.Context, sectorID string, date time.Time) error {
	const q = `
UPDATE sector_strength_results
SET is_active = FALSE
WHERE sector_id = $1 AND calc_date = $2 AND is_active;
`
	_, err := r.db.ExecContext(ctx, q, sectorID, date)
	return err
}

// AppendHistory 追加一筆歷史紀錄，只增不改。
func (r *StrengthRepo) AppendHistory(ctx context.Context, entry strengthDomain.HistoryEntry) error {
	const q = `
INSERT INTO sector_strength_history (sector_id, calc_date, score, avg_change_pct, up_ratio, total_net_main_flow)
VALUES ($1, $2, $3, $4, $5, $6);
`
	_, err := r.db.ExecContext(ctx, q,
		entry.SectorID,
		entry.CalcDate,
		entry.Score,
		entry.AvgChangePct,
		entry.UpRatio,
		entry.TotalNetMainFlow,
	)
	return err
}

// HistoryBySector 取板塊歷史強度，新到舊。
func (r *StrengthRepo) HistoryBySector(ctx context.Context, sectorID string, limit int) ([]strengthDomain.HistoryEntry, error) {
	const q = `
SELECT sector_id, calc_date, score, avg_change_pct, up_ratio, total_net_main_flow
FROM sector_strength_history
WHERE sector_id = $1
ORDER BY calc_date DESC
LIMIT $2;
`
	rows, err := r.db.QueryContext(ctx, q, sectorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []strengthDomain.HistoryEntry
	for rows.Next() {
		var e strengthDomain.HistoryEntry
		if err := rows.Scan(&e.SectorID, &e.CalcDate, &e.Score, &e.AvgChangePct, &e.UpRatio, &e.TotalNetMainFlow); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func nullableString(s string) interface{} {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func scanResult(row rowScanner) (strengthDomain.Result, error) {
	var res strengthDomain.Result
	var tax string
	var categoryName sql.NullString
	var topStocks []byte
	err := row.Scan(
		&res.SectorID,
		&res.SectorName,
		&tax,
		&res.CategoryID,
		&categoryName,
		&res.CalcDate,
		&res.TotalCount,
		&res.UpCount,
		&res.DownCount,
		&res.UpRatio,
		&res.AvgChangePct,
		&res.AvgVolumeRatio,
		&res.AvgTurnoverRate,
		&res.TotalNetMainFlow,
		&res.AvgFlowRatio,
		&res.TierNets[moneyflow.TierSuperLarge],
		&res.TierNets[moneyflow.TierLarge],
		&res.TierNets[moneyflow.TierMedium],
		&res.TierNets[moneyflow.TierSmall],
		&res.Score,
		&topStocks,
		&res.Source,
		&res.Active,
	)
	if err != nil {
		return strengthDomain.Result{}, err
	}
	res.Taxonomy = taxonomy.Taxonomy(tax)
	res.CategoryName = categoryName.String
	if len(topStocks) > 0 {
		if err := json.Unmarshal(topStocks, &res.TopStocks); err != nil {
			return strengthDomain.Result{}, fmt.Errorf("unmarshal top stocks: %w", err)
		}
	}
	return res, nil
}
