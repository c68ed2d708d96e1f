package moneyflow

// Tier 依單筆成交金額將資金分級，用來近似投資人類型。
type Tier int

const (
	TierSuperLarge Tier = iota // 超大單（機構）
	TierLarge                  // 大單（大戶）
	TierMedium                 // 中單（中戶）
	TierSmall                  // 小單（散戶）
)

// 單筆成交金額門檻（元）。
const (
	SuperLargeMin = 1_000_000.0
	LargeMin      = 500_000.0
	MediumMin     = 100_000.0
)

// Tiers 依資金量由大到小列舉所有級別。
var Tiers = [4]Tier{TierSuperLarge, TierLarge, TierMedium, TierSmall}

func (t Tier) String() string {
	switch t {
	case TierSuperLarge:
		return "super_large"
	case TierLarge:
		return "large"
	case TierMedium:
		return "medium"
	case TierSmall:
		return "small"
	default:
		return "unknown"
	}
}

// Label 回傳中文顯示名稱，供圖表節點使用。
func (t Tier) Label() string {
	switch t {
	case TierSuperLarge:
		return "超大單資金"
	case TierLarge:
		return "大單資金"
	case TierMedium:
		return "中單資金"
	case TierSmall:
		return "小單資金"
	default:
		return "未知資金"
	}
}

// ClassifyTier 依單筆成交金額（元）判定資金級別。
func ClassifyTier(notional float64) Tier {
	if notional < 0 {
		notional = -notional
	}
	switch {
	case notional >= SuperLargeMin:
		return TierSuperLarge
	case notional >= LargeMin:
		return TierLarge
	case notional >= MediumMin:
		return TierMedium
	default:
		return TierSmall
	}
}
