package config

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
)

const jsonCfg = `{
  "bot": {"transport": "telegram", "debug_channels": ["-100", "-200"], "lazy_timeout": "5m"},
  "telegram": {"token": "t0k"},
  "logging": {"level": "debug", "console": true, "file": {"enabled": false, "path": ""}, "channel": {"enabled": false}},
  "scheduler": {"enabled": true, "timezone": "Asia/Seoul"},
  "dictionary": {},
  "school": {"office_code": "F10", "school_code": "7380031", "rooms": {"54": "-300"}}
}`

const yamlCfg = `
bot:
  transport: telegram
  debug_channels: ["-100", "-200"]
  lazy_timeout: 5m
telegram:
  token: t0k
logging:
  level: debug
  console: true
  file: {enabled: false, path: ""}
  channel: {enabled: false}
scheduler:
  enabled: true
  timezone: Asia/Seoul
dictionary: {}
school:
  office_code: F10
  school_code: "7380031"
  rooms:
    54: "-300"
`

const tomlCfg = `
[bot]
transport = "telegram"
debug_channels = ["-100", "-200"]
lazy_timeout = "5m"

[telegram]
token = "t0k"

[logging]
level = "debug"
console = true
[logging.file]
enabled = false
path = ""
[logging.channel]
enabled = false

[scheduler]
enabled = true
timezone = "Asia/Seoul"

[dictionary]

[school]
office_code = "F10"
school_code = "7380031"
[school.rooms]
54 = "-300"
`

func TestDecodeFormatsAgree(t *testing.T) {
	t.Parallel()

	want, err := Decode("config.json", []byte(jsonCfg))
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	for _, tc := range []struct{ path, data string }{
		{"config.yaml", yamlCfg},
		{"config.toml", tomlCfg},
	} {
		got, err := Decode(tc.path, []byte(tc.data))
		if err != nil {
			t.Fatalf("%s: %v", tc.path, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("%s decoded differently:\n got %+v\nwant %+v", tc.path, got, want)
		}
	}
	if want.School.Rooms["54"] != "-300" || want.Telegram.Token != "t0k" {
		t.Fatalf("unexpected decode: %+v", want)
	}
}

func TestDecodeIsStrict(t *testing.T) {
	t.Parallel()

	tests := []struct{ name, data string }{
		{"unknown field", `{"bot": {"transport": "telegram", "color": "red"}}`},
		{"trailing data", `{"bot": {}} {"bot": {}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode("c.json", []byte(tt.data)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestApplyEnvOverlay(t *testing.T) {
	t.Parallel()

	cfg := &Config{Bot: BotConfig{Transport: "telegram"}}
	err := applyEnv(cfg, env.Options{Prefix: EnvPrefix, Environment: map[string]string{
		"BOT_TRANSPORT":      "discord",
		"BOT_DISCORD_TOKEN":  "d1",
		"BOT_DEBUG_MODE":     "true",
		"BOT_STORAGE_PATH":   "/var/lib/gsa-bot",
		"BOT_TELEGRAM_TOKEN": "",
	}})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if cfg.Bot.Transport != "discord" || cfg.Discord == nil || cfg.Discord.Token != "d1" || !cfg.Bot.DebugMode {
		t.Fatalf("overlay not applied: %+v", cfg)
	}
	if cfg.Telegram != nil {
		t.Fatalf("empty variable should not create a telegram section")
	}
	if cfg.Storage == nil || cfg.Storage.Path != "/var/lib/gsa-bot" {
		t.Fatalf("storage=%+v", cfg.Storage)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	ok := &Config{Bot: BotConfig{Transport: "discord"}, Discord: &DiscordConfig{Token: "x"}}
	if err := Validate(ok); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	bad := &Config{
		Bot:     BotConfig{Transport: "telegram", LazyTimeout: "soon", Timezone: "Mars/Base"},
		Storage: &StorageConfig{Driver: "redis"},
	}
	err := Validate(bad)
	if err == nil {
		t.Fatalf("expected errors")
	}
	for _, want := range []string{"telegram.token", "bot.lazy_timeout", "bot.timezone", "storage.driver"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %s", err, want)
		}
	}
}

func TestSummarizeChangeHidesSecrets(t *testing.T) {
	t.Parallel()

	oldCfg := &Config{Telegram: &TelegramConfig{Token: "a"}}
	newCfg := &Config{Telegram: &TelegramConfig{Token: "b"}, Bot: BotConfig{DebugMode: true}}
	sections, _ := SummarizeChange(oldCfg, newCfg)
	if !reflect.DeepEqual(sections, []string{"bot", "telegram"}) {
		t.Fatalf("sections=%v", sections)
	}
	if got := RestartRequired(oldCfg, newCfg); !reflect.DeepEqual(got, []string{"telegram"}) {
		t.Fatalf("restart required=%v", got)
	}
}

func TestWatchPublishesChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(jsonCfg), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewManager(path)
	m.debounce = 20 * time.Millisecond
	if _, err := m.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	sub := m.Subscribe(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Watch(ctx) }()

	updated := strings.Replace(jsonCfg, `"level": "debug"`, `"level": "warn"`, 1)
	deadline := time.After(5 * time.Second)
	for {
		// Rewrite until the watcher is up and picks the change.
		if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
			t.Fatal(err)
		}
		select {
		case cfg := <-sub:
			if cfg.Logging.Level != "warn" {
				t.Fatalf("published level=%q", cfg.Logging.Level)
			}
			if m.Get().Logging.Level != "warn" {
				t.Fatalf("manager did not commit the reload")
			}
			return
		case <-time.After(200 * time.Millisecond):
		case <-deadline:
			t.Fatalf("no reload published")
		}
	}
}
