package app

import (
	"testing"
	"time"

	"github.com/joshwoo0/gsa-bot/internal/config"
)

func TestParseRooms(t *testing.T) {
	t.Parallel()

	got, err := parseRooms(map[string]string{"39": " -100 ", "40": "-200"})
	if err != nil {
		t.Fatalf("parseRooms: %v", err)
	}
	if got[39] != "-100" || got[40] != "-200" || len(got) != 2 {
		t.Fatalf("rooms=%v", got)
	}
	for _, bad := range []string{"abc", "0", "-3"} {
		if _, err := parseRooms(map[string]string{bad: "x"}); err == nil {
			t.Fatalf("key %q accepted", bad)
		}
	}
}

func TestMapStorageConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      *config.StorageConfig
		enabled bool
		wantErr bool
		busy    time.Duration
	}{
		{name: "absent"},
		{name: "none", in: &config.StorageConfig{Driver: "none"}},
		{name: "file", in: &config.StorageConfig{Driver: "file", Path: "./data/bot.json"}, enabled: true},
		{name: "sqlite default busy", in: &config.StorageConfig{Driver: "SQLite", Path: "bot.db"}, enabled: true, busy: 5 * time.Second},
		{name: "sqlite busy", in: &config.StorageConfig{Driver: "sqlite", Path: "bot.db", BusyTimeout: "2s"}, enabled: true, busy: 2 * time.Second},
		{name: "missing path", in: &config.StorageConfig{Driver: "file"}, wantErr: true},
		{name: "unknown", in: &config.StorageConfig{Driver: "redis", Path: "x"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, enabled, err := mapStorageConfig(&config.Config{Storage: tt.in})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err=%v wantErr=%v", err, tt.wantErr)
			}
			if enabled != tt.enabled {
				t.Fatalf("enabled=%v want %v", enabled, tt.enabled)
			}
			if sc.BusyTimeout != tt.busy {
				t.Fatalf("busy=%v want %v", sc.BusyTimeout, tt.busy)
			}
		})
	}
}

func TestMapSchedulerConfigTimezone(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Scheduler: config.SchedulerConfig{Enabled: true, Timeout: "45s", HistorySize: 10}}
	sc, err := mapSchedulerConfig(cfg)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if sc.Timezone != "Asia/Seoul" || sc.Timeout != 45*time.Second || sc.History != 10 || !sc.Enabled {
		t.Fatalf("scheduler=%+v", sc)
	}

	cfg.Bot.Timezone = "UTC"
	if sc, _ := mapSchedulerConfig(cfg); sc.Timezone != "UTC" {
		t.Fatalf("bot timezone not inherited: %q", sc.Timezone)
	}
	cfg.Scheduler.Timezone = "Asia/Tokyo"
	if sc, _ := mapSchedulerConfig(cfg); sc.Timezone != "Asia/Tokyo" {
		t.Fatalf("scheduler timezone ignored: %q", sc.Timezone)
	}

	cfg.Scheduler.Timeout = "-1s"
	if _, err := mapSchedulerConfig(cfg); err == nil {
		t.Fatalf("negative timeout accepted")
	}
}

func TestMapNeisConfig(t *testing.T) {
	t.Parallel()

	if _, ok, err := mapNeisConfig(&config.Config{}); ok || err != nil {
		t.Fatalf("no codes: ok=%v err=%v", ok, err)
	}
	nc, ok, err := mapNeisConfig(&config.Config{School: config.SchoolConfig{
		OfficeCode: "F10", SchoolCode: "7380031", NeisKey: "k",
	}})
	if !ok || err != nil {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if nc.Timeout != 10*time.Second || nc.Key != "k" || nc.SchoolCode != "7380031" {
		t.Fatalf("neis=%+v", nc)
	}
}

func TestMapBotDurations(t *testing.T) {
	t.Parallel()

	d, err := mapBotDurations(&config.Config{Bot: config.BotConfig{LazyTimeout: "1m"}})
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if d.lazy != time.Minute || d.command != 30*time.Second {
		t.Fatalf("durations=%+v", d)
	}
	if _, err := mapBotDurations(&config.Config{Bot: config.BotConfig{CommandTimeout: "later"}}); err == nil {
		t.Fatalf("bad duration accepted")
	}
}
