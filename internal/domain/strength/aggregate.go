package strength

import (
	"math"
	"sort"
	"time"

	"sector-flow/internal/domain/moneyflow"
	"sector-flow/internal/domain/taxonomy"
)

// DefaultTopStocks 為 TopStocks 的預設截取數。
const DefaultTopStocks = 10

// Aggregate 將板塊成分股的資金流快照彙總成一筆強度結果。
// snapshots 只含成功取得資料的成分股；缺資料的股票由呼叫端先行排除，
// 因此 TotalCount 可能小於成分股總數，甚至為 0（此時結果標記為空而非錯誤）。
func Aggregate(g taxonomy.Grouping, tax taxonomy.Taxonomy, date time.Time, snapshots []moneyflow.Snapshot, weights ScoreWeights, topN int) Result {
	if topN <= 0 {
		topN = DefaultTopStocks
	}

	res := Result{
		SectorID:   g.SectorID,
		SectorName: g.SectorName,
		CategoryID: g.CategoryID,
		Taxonomy:   tax,
		CalcDate:   date,
		Active:     true,
	}

	if len(snapshots) == 0 {
		return res
	}

	stocks := make([]StockStrength, 0, len(snapshots))
	var sumChange, sumVolRatio, sumTurnover, sumFlowRatio float64

	for _, s := range snapshots {
		res.TotalCount++
		if s.ChangePct > 0 {
			res.UpCount++
		} else if s.ChangePct < 0 {
			res.DownCount++
		}
		sumChange += s.ChangePct
		sumVolRatio += s.VolumeRatio
		sumTurnover += s.TurnoverRate
		sumFlowRatio += s.FlowRatio()
		res.TotalNetMainFlow += s.MainForceNet()
		for _, t := range moneyflow.Tiers {
			res.TierNets[t] += s.Net(t)
		}

		stocks = append(stocks, stockStrength(s, weights))
	}

	n := float64(res.TotalCount)
	res.UpRatio = round2(float64(res.UpCount) / n)
	res.AvgChangePct = round2(sumChange / n)
	res.AvgVolumeRatio = round2(sumVolRatio / n)
	res.AvgTurnoverRate = round2(sumTurnover / n)
	res.AvgFlowRatio = round2(sumFlowRatio / n)
	res.TotalNetMainFlow = round2(res.TotalNetMainFlow)

	res.Score = weights.Score(res.AvgChangePct, res.UpRatio, res.AvgVolumeRatio, res.AvgTurnoverRate, res.AvgFlowRatio)
	res.TopStocks = rankTopStocks(stocks, topN)
	return res
}

// stockStrength 計算單一成分股的強度資料，得分沿用板塊公式，
// 上漲比例以該股漲跌方向取 1 或 0。
func stockStrength(s moneyflow.Snapshot, weights ScoreWeights) StockStrength {
	upRatio := 0.0
	if s.ChangePct > 0 {
		upRatio = 1.0
	}
	return StockStrength{
		Symbol:       s.Symbol,
		Name:         s.Name,
		ChangePct:    s.ChangePct,
		Price:        s.Price,
		VolumeRatio:  s.VolumeRatio,
		TurnoverRate: s.TurnoverRate,
		NetMainFlow:  round2(s.MainForceNet()),
		FlowRatio:    round2(s.FlowRatio()),
		Score:        weights.Score(s.ChangePct, upRatio, s.VolumeRatio, s.TurnoverRate, s.FlowRatio()),
	}
}

// rankTopStocks 依主力淨流入絕對值由大到小排序，同值時以代碼遞增，取前 n 檔。
func rankTopStocks(stocks []StockStrength, n int) []StockStrength {
	sort.Slice(stocks, func(i, j int) bool {
		ai := math.Abs(stocks[i].NetMainFlow)
		aj := math.Abs(stocks[j].NetMainFlow)
		if ai == aj {
			return stocks[i].Symbol < stocks[j].Symbol
		}
		return ai > aj
	})
	if len(stocks) > n {
		stocks = stocks[:n]
	}
	return stocks
}

// History 由結果導出一筆歷史紀錄。
func (r Result) History() HistoryEntry {
	return HistoryEntry{
		SectorID:         r.SectorID,
		CalcDate:         r.CalcDate,
		Score:            r.Score,
		AvgChangePct:     r.AvgChangePct,
		UpRatio:          r.UpRatio,
		TotalNetMainFlow: r.TotalNetMainFlow,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
