package taxonomy

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Taxonomy 列舉板塊分類方式。
type Taxonomy string

const (
	// Industry 行業分類（申萬一級），需要較高的資料權限。
	Industry Taxonomy = "industry"
	// Concept 概念板塊，無特殊權限需求，為預設的降級選項。
	Concept Taxonomy = "concept"
	// Custom 使用者自訂板塊，只在明確指定時使用，不參與自動降級。
	Custom Taxonomy = "custom"
)

var (
	// ErrPermissionDenied 表示該分類來源的資料權限不足。
	ErrPermissionDenied = errors.New("taxonomy source permission denied")
	// ErrDataUnavailable 表示該分類來源當日沒有資料。
	ErrDataUnavailable = errors.New("taxonomy data unavailable")
	// ErrNoTaxonomyAvailable 表示所有候選分類均失敗，該日期無法計算。
	ErrNoTaxonomyAvailable = errors.New("no taxonomy available for date")
)

// Parse 將外部輸入轉成 Taxonomy；空字串視為 Industry（自動降級鏈起點）。
func Parse(s string) (Taxonomy, error) {
	switch Taxonomy(s) {
	case Industry, Concept, Custom:
		return Taxonomy(s), nil
	case "":
		return Industry, nil
	default:
		return "", fmt.Errorf("unknown taxonomy %q", s)
	}
}

// Grouping 為一個板塊與其成分股清單。
type Grouping struct {
	SectorID   string
	SectorName string
	CategoryID string // 子分類識別；主板塊為空字串
	Members    []string
}

// CustomSector 為使用者自訂板塊。
type CustomSector struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Members     []string  `json:"members"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate 檢查自訂板塊欄位，名稱與成分股為必填。
func (s CustomSector) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("custom sector name is required")
	}
	if len(s.Members) == 0 {
		return errors.New("custom sector needs at least one member")
	}
	seen := make(map[string]struct{}, len(s.Members))
	for _, sym := range s.Members {
		if strings.TrimSpace(sym) == "" {
			return errors.New("custom sector member symbol is empty")
		}
		if _, dup := seen[sym]; dup {
			return fmt.Errorf("duplicate member %s", sym)
		}
		seen[sym] = struct{}{}
	}
	return nil
}

// Grouping 轉成計算用的板塊成分。
func (s CustomSector) Grouping() Grouping {
	return Grouping{SectorID: s.ID, SectorName: s.Name, Members: s.Members}
}
