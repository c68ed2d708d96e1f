package flowgraph

import (
	"context"
	"time"

	appstrength "sector-flow/internal/application/strength"
	"sector-flow/internal/domain/flowgraph"
	"sector-flow/internal/domain/taxonomy"
)

// BuildInput 為一次資金流向圖請求。
type BuildInput struct {
	Date time.Time
	Mode flowgraph.Mode
	Tax  taxonomy.Taxonomy
	TopN int
}

// BuildOutput 附帶本次依據的計算批次資訊，Partial 表示底層結果不完整。
type BuildOutput struct {
	Graph    flowgraph.Graph
	RunID    string
	Taxonomy taxonomy.Taxonomy
	Partial  bool
}

// BuildUseCase 產生資金流向圖。圖本身不做快取，每次由當日強度結果重建；
// 強度結果未計算時先觸發計算（計算層自帶快取）。
type BuildUseCase struct {
	compute *appstrength.ComputeUseCase
	topN    int
}

// NewBuildUseCase 建立資金流向圖用例。
func NewBuildUseCase(compute *appstrength.ComputeUseCase, topN int) *BuildUseCase {
	if topN <= 0 {
		topN = flowgraph.DefaultTopN
	}
	return &BuildUseCase{compute: compute, topN: topN}
}

// Execute 取得（或計算）當日強度結果並組圖。
func (u *BuildUseCase) Execute(ctx context.Context, input BuildInput) (BuildOutput, error) {
	topN := input.TopN
	if topN <= 0 {
		topN = u.topN
	}

	out, err := u.compute.Execute(ctx, appstrength.ComputeInput{Date: input.Date, Mode: input.Tax})
	if err != nil {
		return BuildOutput{}, err
	}

	g := flowgraph.Build(out.Results, input.Mode, topN, input.Date)
	return BuildOutput{
		Graph:    g,
		RunID:    out.RunID,
		Taxonomy: out.Taxonomy,
		Partial:  out.Partial,
	}, nil
}
