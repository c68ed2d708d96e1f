package strength

import (
	"sort"
	"strings"
)

// DefaultMaxMembers 為單一板塊參與計算的成分股上限。
const DefaultMaxMembers = 150

// boardPriority 依股票代碼前綴給出計算優先級，數字越大越優先。
// 滬市主板 60 > 深市主板 00 > 科創板 688/689 > 創業板 30 > 其他。
func boardPriority(symbol string) int {
	code := symbol
	if i := strings.IndexByte(code, '.'); i >= 0 {
		code = code[:i]
	}
	switch {
	case strings.HasPrefix(code, "60"):
		return 5
	case strings.HasPrefix(code, "00"):
		return 4
	case strings.HasPrefix(code, "688"), strings.HasPrefix(code, "689"):
		return 3
	case strings.HasPrefix(code, "30"):
		return 2
	default:
		return 1
	}
}

// capMembers 依板別優先級截取至多 max 檔成分股；同板別維持原順序。
func capMembers(members []string, max int) []string {
	if max <= 0 || len(members) <= max {
		return members
	}
	capped := make([]string, len(members))
	copy(capped, members)
	sort.SliceStable(capped, func(i, j int) bool {
		return boardPriority(capped[i]) > boardPriority(capped[j])
	})
	return capped[:max]
}
