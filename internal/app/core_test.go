package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/joshwoo0/gsa-bot/internal/config"
	"github.com/joshwoo0/gsa-bot/internal/eventbus"
	logx "github.com/joshwoo0/gsa-bot/pkg/logx"
)

type nopSender struct {
	mu   sync.Mutex
	sent []string
}

func (s *nopSender) SendText(_ context.Context, _, text string) error {
	s.mu.Lock()
	s.sent = append(s.sent, text)
	s.mu.Unlock()
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	events := filepath.Join(dir, "events.json")
	if err := os.WriteFile(events, []byte(`{"2024-03-04": "입학식, 개학식"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	return &config.Config{
		Bot:       config.BotConfig{Transport: "telegram", DebugChannels: []string{"dbg"}},
		Scheduler: config.SchedulerConfig{Enabled: true},
		Storage:   &config.StorageConfig{Driver: "file", Path: filepath.Join(dir, "bot.json")},
		School:    config.SchoolConfig{EventsFile: events, Rooms: map[string]string{"39": "-100"}},
	}
}

func TestBuildCoreRegistersAvailableCommands(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	core, err := BuildCore(t.Context(), cfg, &nopSender{}, eventbus.New(), logx.Nop())
	if err != nil {
		t.Fatalf("BuildCore: %v", err)
	}
	defer core.Close()

	if core.Location.String() != "Asia/Seoul" {
		t.Fatalf("location=%v", core.Location)
	}
	for _, name := range []string{"디버그", "도움말", "일정"} {
		if _, ok := core.Registry.Find(name); !ok {
			t.Fatalf("%s not registered", name)
		}
	}
	// No staff channel and no NEIS codes.
	for _, name := range []string{"공지", "급식"} {
		if _, ok := core.Registry.Find(name); ok {
			t.Fatalf("%s registered without its dependency", name)
		}
	}
	if n := len(core.Sched.Snapshot().Schedules); n != 2 {
		t.Fatalf("bound cron jobs=%d, want 2", n)
	}

	got, err := core.Store.EventsBetween(t.Context(), "2024-03-01", "2024-03-31")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(got) != 2 || got[0].Title != "입학식" {
		t.Fatalf("imported events=%v", got)
	}
}

func TestBuildCoreWithAllCommands(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Bot.StaffChannel = "staff"
	cfg.School.OfficeCode = "F10"
	cfg.School.SchoolCode = "7380031"
	core, err := BuildCore(t.Context(), cfg, &nopSender{}, eventbus.New(), logx.Nop())
	if err != nil {
		t.Fatalf("BuildCore: %v", err)
	}
	defer core.Close()
	if core.Registry.Len() != 5 {
		t.Fatalf("commands=%d, want 5", core.Registry.Len())
	}
}

func TestBuildCoreWithoutStorage(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Storage = nil
	core, err := BuildCore(t.Context(), cfg, &nopSender{}, eventbus.New(), logx.Nop())
	if err != nil {
		t.Fatalf("BuildCore: %v", err)
	}
	defer core.Close()
	if core.Store != nil {
		t.Fatalf("store opened without config")
	}
	if _, ok := core.Registry.Find("일정"); ok {
		t.Fatalf("calendar registered without storage")
	}
}

func TestBuildCoreRejectsBadInput(t *testing.T) {
	t.Parallel()

	tests := map[string]func(*config.Config){
		"timezone":    func(c *config.Config) { c.Bot.Timezone = "Mars/Base" },
		"rooms":       func(c *config.Config) { c.School.Rooms = map[string]string{"x": "1"} },
		"events file": func(c *config.Config) { c.School.EventsFile = filepath.Join(t.TempDir(), "missing.json") },
		"dictionary":  func(c *config.Config) { c.Dictionary.Dir = filepath.Join(t.TempDir(), "missing") },
		"command dictionary": func(c *config.Config) {
			c.Dictionary.Commands = map[string]string{"일정": "missing"}
		},
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig(t)
			mutate(cfg)
			if core, err := BuildCore(t.Context(), cfg, &nopSender{}, eventbus.New(), logx.Nop()); err == nil {
				core.Close()
				t.Fatalf("expected error")
			}
		})
	}
}

func TestBuildCorePerCommandDictionary(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "calendar.yaml"), []byte("학교행사: [캘린더]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg.Dictionary = config.DictionaryConfig{Dir: dir, Commands: map[string]string{"일정": "calendar"}}
	core, err := BuildCore(t.Context(), cfg, &nopSender{}, eventbus.New(), logx.Nop())
	if err != nil {
		t.Fatalf("BuildCore: %v", err)
	}
	defer core.Close()

	tests := []struct {
		text string
		want bool
	}{
		{"캘린더", true},
		{"다음 주까지 캘린더", true},
		{"학사일정", false},
	}
	for _, tt := range tests {
		m, ok := core.Registry.Resolve(tt.text, "c1", []string{"dbg"}, false)
		if ok != tt.want || (ok && m.Command.Name() != "일정") {
			t.Fatalf("Resolve(%q) = %v, %v; want calendar=%v", tt.text, m.Command, ok, tt.want)
		}
	}
}
