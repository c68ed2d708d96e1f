package strength

import "math"

// ScoreWeights 為強度得分的權重設定。各權重皆不可為負，
// 如此得分對每個輸入都保持單調不減，排序結果才可重現。
type ScoreWeights struct {
	ChangePct    float64 `yaml:"change_pct"`
	UpRatio      float64 `yaml:"up_ratio"`
	VolumeRatio  float64 `yaml:"volume_ratio"`
	TurnoverRate float64 `yaml:"turnover_rate"`
	FlowRatio    float64 `yaml:"flow_ratio"`
}

// DefaultScoreWeights 回傳預設權重：
// 漲跌幅 40%、上漲比例 20%、量比 10%、換手率 10%、資金流佔比 20%。
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		ChangePct:    0.4,
		UpRatio:      0.2,
		VolumeRatio:  0.1,
		TurnoverRate: 0.1,
		FlowRatio:    0.2,
	}
}

// Valid 檢查權重是否全為非負。
func (w ScoreWeights) Valid() bool {
	return w.ChangePct >= 0 && w.UpRatio >= 0 && w.VolumeRatio >= 0 &&
		w.TurnoverRate >= 0 && w.FlowRatio >= 0
}

// Score 計算綜合強度得分，四捨五入至小數第二位。
// 上漲比例與資金流佔比先換算為分數尺度再加權，量比以 1 為基準。
func (w ScoreWeights) Score(avgChangePct, upRatio, avgVolumeRatio, avgTurnoverRate, avgFlowRatio float64) float64 {
	s := avgChangePct*w.ChangePct +
		upRatio*30*w.UpRatio +
		(avgVolumeRatio-1)*10*w.VolumeRatio +
		avgTurnoverRate*w.TurnoverRate +
		avgFlowRatio*10*w.FlowRatio
	return math.Round(s*100) / 100
}
