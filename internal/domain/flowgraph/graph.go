package flowgraph

import (
	"fmt"
	"time"

	"sector-flow/internal/domain/moneyflow"
)

// Mode 決定圖的分層方式。
type Mode string

const (
	// ModeSimple 市場 → 板塊 單層結構。
	ModeSimple Mode = "simple"
	// ModeDetailed 市場 → 資金級別 → 板塊 雙層結構。
	ModeDetailed Mode = "detailed"
)

// ParseMode 將外部輸入轉成 Mode；空字串視為 simple。
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSimple, ModeDetailed:
		return Mode(s), nil
	case "":
		return ModeSimple, nil
	default:
		return "", fmt.Errorf("unknown flow graph mode %q", s)
	}
}

// NodeKind 列舉節點類型。
type NodeKind string

const (
	KindMarket NodeKind = "market"
	KindTier   NodeKind = "tier"
	KindSector NodeKind = "sector"
)

// Direction 標記邊屬於流入或流出側。
type Direction string

const (
	DirInflow  Direction = "inflow"
	DirOutflow Direction = "outflow"
)

// MarketNodeID 為根節點識別碼。
const MarketNodeID = "market"

// Node 為圖中一個節點。呈現屬性（顏色、座標）由渲染端決定。
type Node struct {
	ID    string   `json:"id"`
	Label string   `json:"label"`
	Kind  NodeKind `json:"kind"`
}

// Edge 為帶符號權重的有向邊：正值表示流入、負值表示流出。
type Edge struct {
	Source    string    `json:"source"`
	Target    string    `json:"target"`
	Value     float64   `json:"value"`
	Direction Direction `json:"direction"`
}

// Graph 為資金流向圖，每次請求重建、不做持久化。
type Graph struct {
	TradeDate time.Time `json:"trade_date"`
	Mode      Mode      `json:"mode"`
	Nodes     []Node    `json:"nodes"`
	Edges     []Edge    `json:"edges"`
}

// TierNodeID 回傳資金級別節點識別碼。
func TierNodeID(t moneyflow.Tier) string {
	return "tier:" + t.String()
}
