package schedule

import (
	"context"
	"strings"
	"testing"
	"time"

	appstrength "sector-flow/internal/application/strength"
	"sector-flow/internal/domain/moneyflow"
	"sector-flow/internal/domain/taxonomy"
	"sector-flow/internal/infra/memory"
)

type capturingNotifier struct {
	messages []string
}

func (n *capturingNotifier) SendMessage(ctx context.Context, text string) error {
	n.messages = append(n.messages, text)
	return nil
}

type fixedSource struct {
	groupings []taxonomy.Grouping
}

func (s *fixedSource) Taxonomy() taxonomy.Taxonomy { return taxonomy.Industry }

func (s *fixedSource) Resolve(ctx context.Context, date time.Time) ([]taxonomy.Grouping, error) {
	return s.groupings, nil
}

type fixedProvider struct {
	snaps map[string]moneyflow.Snapshot
}

func (p *fixedProvider) FlowSnapshots(ctx context.Context, symbols []string, date time.Time) (map[string]moneyflow.Snapshot, error) {
	out := make(map[string]moneyflow.Snapshot)
	for _, sym := range symbols {
		if snap, ok := p.snaps[sym]; ok {
			out[sym] = snap
		}
	}
	return out, nil
}

func newTestJob(notifier Notifier, topN int) *DailyJob {
	var up moneyflow.Snapshot
	up.Symbol = "600519.SH"
	up.ChangePct = 4.5
	up.Amount = 3_000_000
	up.Flows[moneyflow.TierSuperLarge].Buy = 250_000_000

	var down moneyflow.Snapshot
	down.Symbol = "000001.SZ"
	down.ChangePct = -2.0
	down.Amount = 2_000_000
	down.Flows[moneyflow.TierLarge].Sell = 60_000

	source := &fixedSource{groupings: []taxonomy.Grouping{
		{SectorID: "801120.SI", SectorName: "食品飲料", Members: []string{"600519.SH"}},
		{SectorID: "801780.SI", SectorName: "銀行", Members: []string{"000001.SZ"}},
	}}
	provider := &fixedProvider{snaps: map[string]moneyflow.Snapshot{
		"600519.SH": up,
		"000001.SZ": down,
	}}
	compute := appstrength.NewComputeUseCase(
		appstrength.NewResolver(source), provider, memory.NewStore(), appstrength.Options{})
	return NewDailyJob(compute, notifier, taxonomy.Industry, topN)
}

func TestRunComputesAndNotifies(t *testing.T) {
	notifier := &capturingNotifier{}
	job := newTestJob(notifier, 5)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(notifier.messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(notifier.messages))
	}
	msg := notifier.messages[0]
	if !strings.Contains(msg, "食品飲料") || !strings.Contains(msg, "銀行") {
		t.Errorf("summary missing sectors: %s", msg)
	}
	if !strings.Contains(msg, "億") {
		t.Errorf("summary should show amounts in 億: %s", msg)
	}
	// 最強板塊排最前
	if strings.Index(msg, "食品飲料") > strings.Index(msg, "銀行") {
		t.Errorf("summary order wrong: %s", msg)
	}
}

func TestRunWithoutNotifier(t *testing.T) {
	job := newTestJob(nil, 5)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run without notifier: %v", err)
	}
}

func TestSummarizeHonorsTopN(t *testing.T) {
	notifier := &capturingNotifier{}
	job := newTestJob(notifier, 1)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	msg := notifier.messages[0]
	if strings.Contains(msg, "銀行") {
		t.Errorf("topN=1 should drop second sector: %s", msg)
	}
}

func TestStartRejectsBadSpec(t *testing.T) {
	job := newTestJob(nil, 5)
	if err := job.Start("not a cron spec", "Asia/Shanghai"); err == nil {
		t.Error("expected error for invalid spec")
	}
	if err := job.Start("30 17 * * 1-5", "Mars/Olympus"); err == nil {
		t.Error("expected error for unknown timezone")
	}
}

func TestStartAndStop(t *testing.T) {
	job := newTestJob(nil, 5)
	if err := job.Start("30 17 * * 1-5", "Asia/Shanghai"); err != nil {
		t.Fatalf("start: %v", err)
	}
	job.Stop()
}

func TestFormatYuan(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{250_000_000, "2.50億"},
		{-120_000_000, "-1.20億"},
		{56_000, "5.6萬"},
		{-60_000, "-6.0萬"},
		{999, "999"},
	}
	for _, tc := range cases {
		if got := formatYuan(tc.in); got != tc.want {
			t.Errorf("formatYuan(%v) = %s, want %s", tc.in, got, tc.want)
		}
	}
}
