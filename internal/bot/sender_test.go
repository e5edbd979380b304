package bot

import (
	"context"
	"testing"
	"time"

	"github.com/joshwoo0/gsa-bot/internal/command"
	"github.com/joshwoo0/gsa-bot/internal/eventbus"
	"github.com/joshwoo0/gsa-bot/internal/storage"
	"github.com/joshwoo0/gsa-bot/internal/task/scheduler"
	logx "github.com/joshwoo0/gsa-bot/pkg/logx"
)

func TestRateLimitedPassthrough(t *testing.T) {
	t.Parallel()

	out := &fakeSender{}
	if RateLimited(out, 0) != out {
		t.Fatalf("zero rate should not wrap")
	}
	s := RateLimited(out, 100)
	for i := 0; i < 3; i++ {
		if err := s.SendText(context.Background(), "c", "x"); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	if len(out.all()) != 3 {
		t.Fatalf("sent=%d", len(out.all()))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	slow := RateLimited(&fakeSender{}, 1)
	_ = slow.SendText(context.Background(), "c", "burst")
	if err := slow.SendText(ctx, "c", "late"); err == nil {
		t.Fatalf("expected cancelled wait to fail")
	}
}

func TestReportersUseLogChannel(t *testing.T) {
	t.Parallel()

	out := &fakeSender{}
	mode := NewMode(false, nil, "")
	rep := &CronReporter{Sender: out, Mode: mode}
	sink := &LogSink{Sender: out, Mode: mode}
	ctx := context.Background()

	report := command.CronReport{Command: "급식", Icon: "🍚", Index: 0, At: time.Now()}
	_ = rep.ReportCron(ctx, report)
	_ = sink.SendLog(ctx, "warn line")
	if len(out.all()) != 0 {
		t.Fatalf("nothing should be sent without a log channel")
	}

	mode.SetLogChannel("log")
	_ = rep.ReportCron(ctx, report)
	_ = sink.SendLog(ctx, "warn line")
	got := out.all()
	if len(got) != 2 || got[0] != (sent{"log", report.Text()}) || got[1] != (sent{"log", "warn line"}) {
		t.Fatalf("sent=%+v", got)
	}
}

func TestAuditEntry(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	e, ok := auditEntry(eventbus.Event{Type: scheduler.EventFailed, Data: scheduler.RunEvent{
		Name: "급식#0", Started: start, Duration: 1500 * time.Millisecond, Error: "neis down",
	}})
	if !ok || e.Kind != KindCron || e.OK || e.Command != "급식#0" || e.TookMS != 1500 || !e.At.Equal(start) {
		t.Fatalf("entry=%+v ok=%v", e, ok)
	}

	in := storage.AuditEntry{Kind: KindMessage, Command: "도움말", OK: true}
	if e, ok := auditEntry(eventbus.Event{Type: EventCommand, Data: in}); !ok || e != in {
		t.Fatalf("entry=%+v ok=%v", e, ok)
	}
	if _, ok := auditEntry(eventbus.Event{Type: "other", Data: 42}); ok {
		t.Fatalf("unknown payload accepted")
	}
}

func TestRunAuditPersists(t *testing.T) {
	t.Parallel()

	st, err := storage.Open(storage.Config{Driver: "file", Path: t.TempDir() + "/bot.db"}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	bus := eventbus.New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunAudit(ctx, bus, st, logx.Nop()) }()

	deadline := time.After(3 * time.Second)
	for {
		bus.Publish(eventbus.Event{Type: EventCommand, Data: storage.AuditEntry{Kind: KindMessage, Command: "도움말", OK: true}})
		got, _ := st.RecentAudit(ctx, 1)
		if len(got) == 1 {
			if got[0].Command != "도움말" {
				t.Fatalf("audit=%+v", got)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatalf("audit entry never stored")
		case <-time.After(20 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run audit: %v", err)
	}
}
