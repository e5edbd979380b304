package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLoggerWithFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewWriter(&buf, LevelInfo).Component("registry").With(String("cmd", "급식"))
	l.Debug("hidden")
	l.Info("matched", Int("idx", 2))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines=%d, want 1: %q", len(lines), buf.String())
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["comp"] != "registry" || m["cmd"] != "급식" || m["idx"] != float64(2) || m["message"] != "matched" {
		t.Fatalf("unexpected fields: %v", m)
	}
	if c, _ := m["caller"].(string); !strings.HasPrefix(c, "logging_test.go:") {
		t.Fatalf("caller=%q", c)
	}
}

func TestZeroLoggerIsSafe(t *testing.T) {
	t.Parallel()

	var l Logger
	if !l.IsZero() {
		t.Fatalf("zero logger should report IsZero")
	}
	l.Error("nothing happens", Err(nil))
	if Nop().IsZero() {
		t.Fatalf("Nop should not be zero")
	}
}

func TestFormatLine(t *testing.T) {
	t.Parallel()

	got := FormatLine([]byte(`{"level":"warn","time":"x","message":"cron failed","schedule":"급식#0","comp":"scheduler"}` + "\n"))
	want := "[WARN] cron failed\n- comp=scheduler\n- schedule=급식#0"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if got := FormatLine([]byte("  plain text \n")); got != "plain text" {
		t.Fatalf("non-json line: %q", got)
	}
}

type recordSender struct {
	mu   sync.Mutex
	msgs []string
	got  chan struct{}
}

func (r *recordSender) SendLog(_ context.Context, text string) error {
	r.mu.Lock()
	r.msgs = append(r.msgs, text)
	r.mu.Unlock()
	r.got <- struct{}{}
	return nil
}

func TestChannelSinkForwardsAboveMinLevel(t *testing.T) {
	t.Parallel()

	svc, log := New(Config{Level: "debug", Channel: ChannelConfig{Enabled: true, MinLevel: "warn", RatePerSec: 100}})
	defer svc.Close()

	rec := &recordSender{got: make(chan struct{}, 4)}
	svc.SetSender(rec)

	w := &channelWriter{svc: svc}
	_, _ = w.WriteLevel(zerolog.InfoLevel, []byte(`{"level":"info","message":"quiet"}`))
	log.Warn("loud")

	select {
	case <-rec.got:
	case <-time.After(2 * time.Second):
		t.Fatalf("warn line was not forwarded")
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.msgs) != 1 || !strings.HasPrefix(rec.msgs[0], "[WARN] loud") {
		t.Fatalf("msgs=%q", rec.msgs)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{" WARN ", zerolog.WarnLevel},
		{"Warning", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in, zerolog.InfoLevel); got != tt.want {
			t.Fatalf("ParseLevel(%q)=%v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestStackTrace(t *testing.T) {
	t.Parallel()

	st := StackTrace(1, 4)
	if !strings.Contains(st, "TestStackTrace") || !strings.Contains(st, "logging_test.go:") {
		t.Fatalf("stack=%q", st)
	}
	if n := strings.Count(st, "\n  "); n > 4 {
		t.Fatalf("frames=%d, want <= 4", n)
	}
}
