package schedule

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	appstrength "sector-flow/internal/application/strength"
	"sector-flow/internal/domain/taxonomy"
)

// Notifier 推送每日摘要，目前由 Telegram 實作。
type Notifier interface {
	SendMessage(ctx context.Context, text string) error
}

// DailyJob 在收盤後定時執行整批強度計算，並推送摘要。
type DailyJob struct {
	compute  *appstrength.ComputeUseCase
	notifier Notifier
	mode     taxonomy.Taxonomy
	topN     int
	cron     *cron.Cron
}

// NewDailyJob 建立每日排程；notifier 可為 nil（只算不推播）。
func NewDailyJob(compute *appstrength.ComputeUseCase, notifier Notifier, mode taxonomy.Taxonomy, topN int) *DailyJob {
	if mode == "" {
		mode = taxonomy.Industry
	}
	if topN <= 0 {
		topN = 5
	}
	return &DailyJob{
		compute:  compute,
		notifier: notifier,
		mode:     mode,
		topN:     topN,
	}
}

// Start 依 cron spec 啟動排程，例如 "30 17 * * 1-5" 表示週一到週五 17:30。
func (j *DailyJob) Start(spec, timezone string) error {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return fmt.Errorf("load timezone %s: %w", timezone, err)
	}

	c := cron.New(cron.WithLocation(loc))
	_, err = c.AddFunc(spec, func() {
		if err := j.Run(context.Background()); err != nil {
			log.Printf("[Job] daily run failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("register cron spec %q: %w", spec, err)
	}

	c.Start()
	j.cron = c
	log.Printf("[Job] daily schedule started: spec=%q tz=%s mode=%s", spec, timezone, j.mode)
	return nil
}

// Stop 停止排程，等待進行中的工作結束。
func (j *DailyJob) Stop() {
	if j.cron != nil {
		<-j.cron.Stop().Done()
	}
}

// Run 執行一次當日計算並推送摘要。排程與手動觸發共用。
func (j *DailyJob) Run(ctx context.Context) error {
	now := time.Now()
	date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	out, err := j.compute.Execute(ctx, appstrength.ComputeInput{Date: date, Mode: j.mode})
	if err != nil {
		return fmt.Errorf("daily compute: %w", err)
	}
	log.Printf("[Job] daily compute done: run=%s sectors=%d partial=%v failures=%d",
		out.RunID, len(out.Results), out.Partial, len(out.Failures))

	if j.notifier == nil {
		return nil
	}
	if err := j.notifier.SendMessage(ctx, j.summarize(out)); err != nil {
		// 推播失敗不影響計算結果
		log.Printf("[Job] notify failed: %v", err)
	}
	return nil
}

// summarize 將整批結果整理成前 N 強板塊的文字摘要。
func (j *DailyJob) summarize(out appstrength.ComputeOutput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s 板塊強度（%s）\n", out.TradeDate.Format("2006-01-02"), out.Taxonomy)
	if out.Partial {
		b.WriteString("（部分板塊未在時限內完成）\n")
	}

	n := 0
	for _, res := range out.Results {
		if res.Empty() {
			continue
		}
		n++
		fmt.Fprintf(&b, "%d. %s 強度 %.2f 漲跌 %+.2f%% 主力 %s\n",
			n, res.SectorName, res.Score, res.AvgChangePct, formatYuan(res.TotalNetMainFlow))
		if n >= j.topN {
			break
		}
	}
	if n == 0 {
		b.WriteString("當日無有效板塊資料\n")
	}
	if len(out.Failures) > 0 {
		fmt.Fprintf(&b, "計算失敗板塊：%d\n", len(out.Failures))
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatYuan 以億／萬為單位顯示金額。
func formatYuan(v float64) string {
	switch {
	case v >= 1e8 || v <= -1e8:
		return fmt.Sprintf("%.2f億", v/1e8)
	case v >= 1e4 || v <= -1e4:
		return fmt.Sprintf("%.1f萬", v/1e4)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}
