package strength

import (
	"context"
	"fmt"
	"log"
	"time"

	"sector-flow/internal/domain/taxonomy"
)

// Resolver 依固定順序嘗試各分類來源，取得板塊成分。
// 降級鏈固定為 行業 → 概念；自訂分類只在明確指定時使用，永不作為降級目標。
type Resolver struct {
	sources map[taxonomy.Taxonomy]GroupingSource
}

// NewResolver 建立分類解析器。同一分類方式重複註冊時，後者覆蓋前者。
func NewResolver(sources ...GroupingSource) *Resolver {
	m := make(map[taxonomy.Taxonomy]GroupingSource, len(sources))
	for _, s := range sources {
		m[s.Taxonomy()] = s
	}
	return &Resolver{sources: m}
}

// chain 回傳指定模式下的嘗試順序。
func chain(mode taxonomy.Taxonomy) []taxonomy.Taxonomy {
	switch mode {
	case taxonomy.Custom:
		return []taxonomy.Taxonomy{taxonomy.Custom}
	case taxonomy.Concept:
		return []taxonomy.Taxonomy{taxonomy.Concept}
	default:
		return []taxonomy.Taxonomy{taxonomy.Industry, taxonomy.Concept}
	}
}

// Resolve 依降級鏈逐一嘗試來源，回傳第一個成功的分類方式與成分。
// 單一來源失敗（權限不足、資料未更新）記錄後換下一個；
// 全部失敗時回傳 taxonomy.ErrNoTaxonomyAvailable。
func (r *Resolver) Resolve(ctx context.Context, mode taxonomy.Taxonomy, date time.Time) (taxonomy.Taxonomy, []taxonomy.Grouping, error) {
	for _, tax := range chain(mode) {
		src, ok := r.sources[tax]
		if !ok {
			log.Printf("[Resolver] 無 %s 分類來源，換下一個", tax)
			continue
		}
		groupings, err := src.Resolve(ctx, date)
		if err != nil {
			if ctx.Err() != nil {
				return "", nil, ctx.Err()
			}
			log.Printf("[Resolver] %s 分類解析失敗: %v", tax, err)
			continue
		}
		if len(groupings) == 0 {
			log.Printf("[Resolver] %s 分類無任何板塊: %v", tax, taxonomy.ErrDataUnavailable)
			continue
		}
		return tax, groupings, nil
	}
	return "", nil, fmt.Errorf("resolve groupings for %s (mode %s): %w",
		date.Format("2006-01-02"), mode, taxonomy.ErrNoTaxonomyAvailable)
}

// Has 回報是否註冊了指定分類方式的來源。
func (r *Resolver) Has(tax taxonomy.Taxonomy) bool {
	_, ok := r.sources[tax]
	return ok
}
