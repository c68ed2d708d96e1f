package strength

import (
	"testing"
	"time"

	"sector-flow/internal/domain/moneyflow"
	"sector-flow/internal/domain/taxonomy"
)

func snapshot(symbol string, changePct, superNet, largeNet float64) moneyflow.Snapshot {
	s := moneyflow.Snapshot{
		Symbol:      symbol,
		Name:        symbol,
		TradeDate:   time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC),
		ChangePct:   changePct,
		VolumeRatio: 1.0,
		Amount:      10_000_000,
	}
	if superNet >= 0 {
		s.Flows[moneyflow.TierSuperLarge].Buy = superNet
	} else {
		s.Flows[moneyflow.TierSuperLarge].Sell = -superNet
	}
	if largeNet >= 0 {
		s.Flows[moneyflow.TierLarge].Buy = largeNet
	} else {
		s.Flows[moneyflow.TierLarge].Sell = -largeNet
	}
	return s
}

func TestAggregateCounts(t *testing.T) {
	// 板塊三檔成分股，其中一檔缺資料被排除，其餘漲跌幅 +2% 與 -1%。
	g := taxonomy.Grouping{
		SectorID:   "801080.SI",
		SectorName: "電子",
		Members:    []string{"600519.SH", "000001.SZ", "300750.SZ"},
	}
	snaps := []moneyflow.Snapshot{
		snapshot("600519.SH", 2.0, 500_000, 0),
		snapshot("000001.SZ", -1.0, -200_000, 0),
	}

	res := Aggregate(g, taxonomy.Industry, snaps[0].TradeDate, snaps, DefaultScoreWeights(), 10)

	if res.TotalCount != 2 {
		t.Errorf("TotalCount = %d, want 2", res.TotalCount)
	}
	if res.UpCount != 1 || res.DownCount != 1 {
		t.Errorf("UpCount/DownCount = %d/%d, want 1/1", res.UpCount, res.DownCount)
	}
	if res.UpRatio != 0.5 {
		t.Errorf("UpRatio = %v, want 0.5", res.UpRatio)
	}
	if res.AvgChangePct != 0.5 {
		t.Errorf("AvgChangePct = %v, want 0.5", res.AvgChangePct)
	}
	if res.TotalNetMainFlow != 300_000 {
		t.Errorf("TotalNetMainFlow = %v, want 300000", res.TotalNetMainFlow)
	}
	if res.Empty() {
		t.Error("result should not be empty")
	}
}

func TestAggregateTotalFlowIsSumOfMemberMainForce(t *testing.T) {
	g := taxonomy.Grouping{SectorID: "BK001", SectorName: "測試板塊"}
	snaps := []moneyflow.Snapshot{
		snapshot("A", 1, 1_200_000, -300_000),
		snapshot("B", -2, -500_000, 100_000),
		snapshot("C", 0, 0, 0),
	}

	var want float64
	for _, s := range snaps {
		want += s.MainForceNet()
	}

	res := Aggregate(g, taxonomy.Concept, time.Now(), snaps, DefaultScoreWeights(), 10)
	if res.TotalNetMainFlow != want {
		t.Errorf("TotalNetMainFlow = %v, want %v", res.TotalNetMainFlow, want)
	}
}

func TestAggregateEmptySector(t *testing.T) {
	g := taxonomy.Grouping{SectorID: "BK002", SectorName: "空板塊", Members: []string{"X", "Y"}}

	res := Aggregate(g, taxonomy.Industry, time.Now(), nil, DefaultScoreWeights(), 10)

	if !res.Empty() {
		t.Fatal("expected empty result")
	}
	if res.UpRatio != 0 {
		t.Errorf("UpRatio = %v, want 0", res.UpRatio)
	}
	if res.TotalCount != 0 {
		t.Errorf("TotalCount = %d, want 0", res.TotalCount)
	}
}

func TestAggregateUpRatioRange(t *testing.T) {
	g := taxonomy.Grouping{SectorID: "BK003", SectorName: "區間"}
	cases := [][]moneyflow.Snapshot{
		{snapshot("A", 1, 0, 0)},
		{snapshot("A", -1, 0, 0), snapshot("B", -2, 0, 0)},
		{snapshot("A", 1, 0, 0), snapshot("B", -1, 0, 0), snapshot("C", 0, 0, 0)},
	}
	for _, snaps := range cases {
		res := Aggregate(g, taxonomy.Industry, time.Now(), snaps, DefaultScoreWeights(), 10)
		if res.UpRatio < 0 || res.UpRatio > 1 {
			t.Errorf("UpRatio %v out of [0,1]", res.UpRatio)
		}
	}
}

func TestRankTopStocks(t *testing.T) {
	g := taxonomy.Grouping{SectorID: "BK004", SectorName: "排序"}
	snaps := []moneyflow.Snapshot{
		snapshot("B", 1, 300_000, 0),
		snapshot("A", 1, -900_000, 0), // 絕對值最大，流出也要排前面
		snapshot("C", 1, 300_000, 0),  // 與 B 同值，代碼遞增決定先後
		snapshot("D", 1, 100_000, 0),
	}

	res := Aggregate(g, taxonomy.Industry, time.Now(), snaps, DefaultScoreWeights(), 3)

	if len(res.TopStocks) != 3 {
		t.Fatalf("len(TopStocks) = %d, want 3", len(res.TopStocks))
	}
	wantOrder := []string{"A", "B", "C"}
	for i, w := range wantOrder {
		if res.TopStocks[i].Symbol != w {
			t.Errorf("TopStocks[%d] = %s, want %s", i, res.TopStocks[i].Symbol, w)
		}
	}
}

func TestAggregateTierNets(t *testing.T) {
	g := taxonomy.Grouping{SectorID: "BK005", SectorName: "分層"}
	s1 := snapshot("A", 1, 500_000, 200_000)
	s1.Flows[moneyflow.TierMedium] = moneyflow.TierFlow{Buy: 50_000, Sell: 80_000}
	s2 := snapshot("B", -1, -100_000, 0)

	res := Aggregate(g, taxonomy.Industry, time.Now(), []moneyflow.Snapshot{s1, s2}, DefaultScoreWeights(), 10)

	if got := res.TierNets[moneyflow.TierSuperLarge]; got != 400_000 {
		t.Errorf("super large net = %v, want 400000", got)
	}
	if got := res.TierNets[moneyflow.TierLarge]; got != 200_000 {
		t.Errorf("large net = %v, want 200000", got)
	}
	if got := res.TierNets[moneyflow.TierMedium]; got != -30_000 {
		t.Errorf("medium net = %v, want -30000", got)
	}
}
