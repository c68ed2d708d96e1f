package flowgraph

import (
	"math"
	"sort"
	"time"

	"sector-flow/internal/domain/moneyflow"
	"sector-flow/internal/domain/strength"
)

// DefaultTopN 為每側（流入／流出）預設選取的板塊數。
const DefaultTopN = 10

// Build 由板塊強度結果組出資金流向圖。純函式：無 I/O、無快取，
// 相同輸入必得相同輸出。
//
// 選取規則：排除無有效資料的板塊後，依主力淨流入正負分成流入、流出兩組，
// 各依絕對值由大到小取前 topN，同值時以板塊代碼遞增決定先後。
func Build(results []strength.Result, mode Mode, topN int, date time.Time) Graph {
	if topN <= 0 {
		topN = DefaultTopN
	}

	var inflow, outflow []strength.Result
	for _, r := range results {
		if r.Empty() {
			continue
		}
		switch {
		case r.TotalNetMainFlow > 0:
			inflow = append(inflow, r)
		case r.TotalNetMainFlow < 0:
			outflow = append(outflow, r)
		}
	}
	sortByMagnitude(inflow)
	sortByMagnitude(outflow)
	if len(inflow) > topN {
		inflow = inflow[:topN]
	}
	if len(outflow) > topN {
		outflow = outflow[:topN]
	}

	g := Graph{TradeDate: date, Mode: mode}
	g.Nodes = append(g.Nodes, Node{ID: MarketNodeID, Label: "市場總資金", Kind: KindMarket})

	if mode == ModeDetailed {
		for _, t := range moneyflow.Tiers {
			g.Nodes = append(g.Nodes, Node{ID: TierNodeID(t), Label: t.Label(), Kind: KindTier})
		}
	}
	for _, r := range inflow {
		g.Nodes = append(g.Nodes, Node{ID: r.SectorID, Label: r.SectorName, Kind: KindSector})
	}
	for _, r := range outflow {
		g.Nodes = append(g.Nodes, Node{ID: r.SectorID, Label: r.SectorName, Kind: KindSector})
	}

	if mode == ModeDetailed {
		g.Edges = append(g.Edges, tierEdges(inflow, outflow)...)
	} else {
		for _, r := range inflow {
			g.Edges = append(g.Edges, Edge{Source: MarketNodeID, Target: r.SectorID, Value: r.TotalNetMainFlow, Direction: DirInflow})
		}
		for _, r := range outflow {
			g.Edges = append(g.Edges, Edge{Source: r.SectorID, Target: MarketNodeID, Value: r.TotalNetMainFlow, Direction: DirOutflow})
		}
	}
	return g
}

// tierEdges 組出分層模式的邊：市場 → 各級別（選取板塊的級別淨額合計），
// 再由級別連到板塊，權重為該板塊該級別自身的淨流入，恰為 0 的邊省略。
func tierEdges(inflow, outflow []strength.Result) []Edge {
	var edges []Edge

	var tierTotals [4]float64
	for _, r := range inflow {
		for _, t := range moneyflow.Tiers {
			tierTotals[t] += r.TierNets[t]
		}
	}
	for _, r := range outflow {
		for _, t := range moneyflow.Tiers {
			tierTotals[t] += r.TierNets[t]
		}
	}
	for _, t := range moneyflow.Tiers {
		if tierTotals[t] == 0 {
			continue
		}
		dir := DirInflow
		if tierTotals[t] < 0 {
			dir = DirOutflow
		}
		edges = append(edges, Edge{Source: MarketNodeID, Target: TierNodeID(t), Value: tierTotals[t], Direction: dir})
	}

	for _, r := range inflow {
		for _, t := range moneyflow.Tiers {
			if r.TierNets[t] == 0 {
				continue
			}
			edges = append(edges, Edge{Source: TierNodeID(t), Target: r.SectorID, Value: r.TierNets[t], Direction: DirInflow})
		}
	}
	for _, r := range outflow {
		for _, t := range moneyflow.Tiers {
			if r.TierNets[t] == 0 {
				continue
			}
			edges = append(edges, Edge{Source: r.SectorID, Target: TierNodeID(t), Value: r.TierNets[t], Direction: DirOutflow})
		}
	}
	return edges
}

func sortByMagnitude(results []strength.Result) {
	sort.Slice(results, func(i, j int) bool {
		ai := math.Abs(results[i].TotalNetMainFlow)
		aj := math.Abs(results[j].TotalNetMainFlow)
		if ai == aj {
			return results[i].SectorID < results[j].SectorID
		}
		return ai > aj
	})
}
