package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joshwoo0/gsa-bot/internal/config"
	"github.com/joshwoo0/gsa-bot/internal/neis"
	"github.com/joshwoo0/gsa-bot/internal/storage"
	"github.com/joshwoo0/gsa-bot/internal/task/scheduler"
	logx "github.com/joshwoo0/gsa-bot/pkg/logx"
)

const defaultTimezone = "Asia/Seoul"

func timezoneOf(cfg *config.Config) string {
	if tz := strings.TrimSpace(cfg.Bot.Timezone); tz != "" {
		return tz
	}
	return defaultTimezone
}

func loadLocation(cfg *config.Config) (*time.Location, error) {
	loc, err := time.LoadLocation(timezoneOf(cfg))
	if err != nil {
		return nil, fmt.Errorf("bot.timezone: %w", err)
	}
	return loc, nil
}

func mapLogConfig(cfg *config.Config) logx.Config {
	l := cfg.Logging
	return logx.Config{
		Level:   l.Level,
		Console: l.Console,
		File: logx.FileConfig{
			Enabled:    l.File.Enabled,
			Path:       l.File.Path,
			MaxSizeMB:  l.File.MaxSizeMB,
			MaxBackups: l.File.MaxBackups,
			MaxAgeDays: l.File.MaxAgeDays,
			Compress:   l.File.Compress,
		},
		Channel: logx.ChannelConfig{
			Enabled:    l.Channel.Enabled,
			MinLevel:   l.Channel.MinLevel,
			RatePerSec: l.Channel.RatePerSec,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	path := strings.TrimSpace(sc.Path)
	if path == "" {
		return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=%s", driver)
	}
	switch driver {
	case "file":
		return storage.Config{Driver: "file", Path: path}, true, nil
	case "sqlite", "sqlite3":
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, 5*time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

func mapSchedulerConfig(cfg *config.Config) (scheduler.Config, error) {
	timeout, err := config.ParseDurationField("scheduler.timeout", cfg.Scheduler.Timeout)
	if err != nil {
		return scheduler.Config{}, err
	}
	tz := strings.TrimSpace(cfg.Scheduler.Timezone)
	if tz == "" {
		tz = timezoneOf(cfg)
	}
	return scheduler.Config{
		Enabled:  cfg.Scheduler.Enabled,
		Timezone: tz,
		Timeout:  timeout,
		History:  cfg.Scheduler.HistorySize,
	}, nil
}

// mapNeisConfig reports false when the school codes are not configured.
func mapNeisConfig(cfg *config.Config) (neis.Config, bool, error) {
	s := cfg.School
	if strings.TrimSpace(s.OfficeCode) == "" || strings.TrimSpace(s.SchoolCode) == "" {
		return neis.Config{}, false, nil
	}
	timeout, err := config.ParseDurationOrDefault("school.neis_timeout", s.NeisTimeout, 10*time.Second)
	if err != nil {
		return neis.Config{}, false, err
	}
	return neis.Config{
		BaseURL:    s.NeisURL,
		Key:        s.NeisKey,
		OfficeCode: s.OfficeCode,
		SchoolCode: s.SchoolCode,
		Timeout:    timeout,
	}, true, nil
}

// parseRooms converts school.rooms ("39": "-100123") to cohort numbers.
func parseRooms(raw map[string]string) (map[int]string, error) {
	out := make(map[int]string, len(raw))
	for k, id := range raw {
		n, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("school.rooms: %q is not a cohort number", k)
		}
		out[n] = strings.TrimSpace(id)
	}
	return out, nil
}

type botDurations struct {
	lazy, command time.Duration
}

func mapBotDurations(cfg *config.Config) (botDurations, error) {
	lazy, err := config.ParseDurationOrDefault("bot.lazy_timeout", cfg.Bot.LazyTimeout, 5*time.Minute)
	if err != nil {
		return botDurations{}, err
	}
	cmd, err := config.ParseDurationOrDefault("bot.command_timeout", cfg.Bot.CommandTimeout, 30*time.Second)
	if err != nil {
		return botDurations{}, err
	}
	return botDurations{lazy: lazy, command: cmd}, nil
}
