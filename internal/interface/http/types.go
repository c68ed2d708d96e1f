package httpapi

import (
	"time"

	appstrength "sector-flow/internal/application/strength"
	"sector-flow/internal/domain/moneyflow"
	strengthDomain "sector-flow/internal/domain/strength"
)

// sectorStrengthPayload 為強度查詢回應中的單一板塊。
type sectorStrengthPayload struct {
	SectorID         string                        `json:"sector_id"`
	SectorName       string                        `json:"sector_name"`
	Taxonomy         string                        `json:"taxonomy"`
	CategoryID       string                        `json:"category_id,omitempty"`
	CalcDate         string                        `json:"calc_date"`
	TotalCount       int                           `json:"total_count"`
	UpCount          int                           `json:"up_count"`
	DownCount        int                           `json:"down_count"`
	UpRatio          float64                       `json:"up_ratio"`
	AvgChangePct     float64                       `json:"avg_change_pct"`
	AvgVolumeRatio   float64                       `json:"avg_volume_ratio"`
	AvgTurnoverRate  float64                       `json:"avg_turnover_rate"`
	TotalNetMainFlow float64                       `json:"total_net_main_flow"`
	AvgFlowRatio     float64                       `json:"avg_flow_ratio"`
	TierNets         map[string]float64            `json:"tier_nets"`
	Score            float64                       `json:"score"`
	TopStocks        []strengthDomain.StockStrength `json:"top_stocks"`
	Empty            bool                          `json:"empty"`
}

func toStrengthPayload(r strengthDomain.Result) sectorStrengthPayload {
	tierNets := make(map[string]float64, len(moneyflow.Tiers))
	for _, t := range moneyflow.Tiers {
		tierNets[t.String()] = r.TierNets[t]
	}
	return sectorStrengthPayload{
		SectorID:         r.SectorID,
		SectorName:       r.SectorName,
		Taxonomy:         string(r.Taxonomy),
		CategoryID:       r.CategoryID,
		CalcDate:         r.CalcDate.Format("2006-01-02"),
		TotalCount:       r.TotalCount,
		UpCount:          r.UpCount,
		DownCount:        r.DownCount,
		UpRatio:          r.UpRatio,
		AvgChangePct:     r.AvgChangePct,
		AvgVolumeRatio:   r.AvgVolumeRatio,
		AvgTurnoverRate:  r.AvgTurnoverRate,
		TotalNetMainFlow: r.TotalNetMainFlow,
		AvgFlowRatio:     r.AvgFlowRatio,
		TierNets:         tierNets,
		Score:            r.Score,
		TopStocks:        r.TopStocks,
		Empty:            r.Empty(),
	}
}

// strengthResponse 為整批強度查詢的回應主體。
type strengthResponse struct {
	Success   bool                         `json:"success"`
	RunID     string                       `json:"run_id"`
	TradeDate string                       `json:"trade_date"`
	Taxonomy  string                       `json:"taxonomy"`
	Partial   bool                         `json:"partial"`
	Results   []sectorStrengthPayload      `json:"results"`
	Failures  []appstrength.SectorFailure  `json:"failures,omitempty"`
}

func toStrengthResponse(out appstrength.ComputeOutput) strengthResponse {
	results := make([]sectorStrengthPayload, 0, len(out.Results))
	for _, r := range out.Results {
		results = append(results, toStrengthPayload(r))
	}
	return strengthResponse{
		Success:   true,
		RunID:     out.RunID,
		TradeDate: out.TradeDate.Format("2006-01-02"),
		Taxonomy:  string(out.Taxonomy),
		Partial:   out.Partial,
		Results:   results,
		Failures:  out.Failures,
	}
}

// historyEntryPayload 為歷史強度序列中的一筆。
type historyEntryPayload struct {
	CalcDate         string  `json:"calc_date"`
	Score            float64 `json:"score"`
	AvgChangePct     float64 `json:"avg_change_pct"`
	UpRatio          float64 `json:"up_ratio"`
	TotalNetMainFlow float64 `json:"total_net_main_flow"`
}

func toHistoryPayload(entries []strengthDomain.HistoryEntry) []historyEntryPayload {
	out := make([]historyEntryPayload, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyEntryPayload{
			CalcDate:         e.CalcDate.Format("2006-01-02"),
			Score:            e.Score,
			AvgChangePct:     e.AvgChangePct,
			UpRatio:          e.UpRatio,
			TotalNetMainFlow: e.TotalNetMainFlow,
		})
	}
	return out
}

// parseDate 解析 date 參數；空值取當日。
func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Parse("2006-01-02", raw)
}
