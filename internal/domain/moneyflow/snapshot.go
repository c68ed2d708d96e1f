package moneyflow

import (
	"errors"
	"fmt"
	"time"
)

// ErrDataGap 表示該股票當日沒有可用的資金流資料。
// 呼叫端應記錄並將該股票排除在當日統計之外，不可以 0 代入。
var ErrDataGap = errors.New("no money flow data for instrument")

// Side 表示成交方向。
type Side int

const (
	SideBuy Side = iota
	SideSell
)

// TradeRecord 為單筆成交，Notional 為成交金額（元）。
type TradeRecord struct {
	Notional float64
	Side     Side
}

// TierFlow 為單一級別的買賣總額（元）。
type TierFlow struct {
	Buy  float64
	Sell float64
}

// Net 回傳該級別淨流入（買 - 賣）。
func (f TierFlow) Net() float64 {
	return f.Buy - f.Sell
}

// Snapshot 為「股票 × 交易日」的分級資金流與行情統計。
// 每次計算時重新取得，不做持久化。
type Snapshot struct {
	Symbol    string
	Name      string
	TradeDate time.Time

	Flows [4]TierFlow // 以 Tier 為索引

	Price        float64
	ChangePct    float64 // 漲跌幅（%）
	VolumeRatio  float64 // 量比
	TurnoverRate float64 // 換手率（%）
	Amount       float64 // 當日成交額（元）
}

// Accumulate 將原始成交逐筆分級累計成 Snapshot 的資金流部分。
// 若來源已是分級彙總值，直接填入 Flows 即可，兩種輸入等價。
func Accumulate(symbol string, date time.Time, trades []TradeRecord) (Snapshot, error) {
	if len(trades) == 0 {
		return Snapshot{}, fmt.Errorf("%s on %s: %w", symbol, date.Format("2006-01-02"), ErrDataGap)
	}
	s := Snapshot{Symbol: symbol, TradeDate: date}
	for _, tr := range trades {
		s.Add(tr)
	}
	return s, nil
}

// Add 將單筆成交計入對應級別。
func (s *Snapshot) Add(tr TradeRecord) {
	tier := ClassifyTier(tr.Notional)
	if tr.Side == SideBuy {
		s.Flows[tier].Buy += tr.Notional
	} else {
		s.Flows[tier].Sell += tr.Notional
	}
}

// Net 回傳指定級別的淨流入。
func (s Snapshot) Net(t Tier) float64 {
	return s.Flows[t].Net()
}

// MainForceNet 回傳主力淨流入：超大單與大單淨額之和。
func (s Snapshot) MainForceNet() float64 {
	return s.Flows[TierSuperLarge].Net() + s.Flows[TierLarge].Net()
}

// TotalNet 回傳四個級別淨流入之和。
func (s Snapshot) TotalNet() float64 {
	var sum float64
	for _, t := range Tiers {
		sum += s.Flows[t].Net()
	}
	return sum
}

// FlowRatio 回傳主力淨流入佔成交額比例（%）。成交額為 0 時回傳 0。
func (s Snapshot) FlowRatio() float64 {
	if s.Amount <= 0 {
		return 0
	}
	return s.MainForceNet() / s.Amount * 100
}

// Validate 檢查欄位基本完整性。
func (s Snapshot) Validate() error {
	if s.Symbol == "" {
		return fmt.Errorf("snapshot symbol is required")
	}
	if s.TradeDate.IsZero() {
		return fmt.Errorf("snapshot trade_date is required")
	}
	for _, t := range Tiers {
		if s.Flows[t].Buy < 0 || s.Flows[t].Sell < 0 {
			return fmt.Errorf("tier %s has negative buy/sell amount", t)
		}
	}
	return nil
}
