package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validate reports every problem in cfg at once.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Bot.Transport)) {
	case "telegram":
		if cfg.Telegram == nil || strings.TrimSpace(cfg.Telegram.Token) == "" {
			add(errors.New("telegram.token: required for transport telegram"))
		} else {
			_, err := ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout)
			add(err)
		}
	case "discord":
		if cfg.Discord == nil || strings.TrimSpace(cfg.Discord.Token) == "" {
			add(errors.New("discord.token: required for transport discord"))
		}
	default:
		add(fmt.Errorf("bot.transport: must be telegram or discord, got %q", cfg.Bot.Transport))
	}

	for _, tz := range []struct{ path, v string }{
		{"bot.timezone", cfg.Bot.Timezone},
		{"scheduler.timezone", cfg.Scheduler.Timezone},
	} {
		if strings.TrimSpace(tz.v) == "" {
			continue
		}
		if _, err := time.LoadLocation(strings.TrimSpace(tz.v)); err != nil {
			add(fmt.Errorf("%s: %w", tz.path, err))
		}
	}

	for _, d := range []struct{ path, v string }{
		{"bot.lazy_timeout", cfg.Bot.LazyTimeout},
		{"bot.command_timeout", cfg.Bot.CommandTimeout},
		{"scheduler.timeout", cfg.Scheduler.Timeout},
		{"school.neis_timeout", cfg.School.NeisTimeout},
	} {
		_, err := ParseDurationField(d.path, d.v)
		add(err)
	}
	if cfg.Bot.Workers < 0 {
		add(errors.New("bot.workers: must be >= 0"))
	}

	if st := cfg.Storage; st != nil {
		switch strings.ToLower(strings.TrimSpace(st.Driver)) {
		case "", "file", "sqlite":
		default:
			add(fmt.Errorf("storage.driver: unknown driver %q", st.Driver))
		}
		_, err := ParseDurationField("storage.busy_timeout", st.BusyTimeout)
		add(err)
	}
	return errors.Join(errs...)
}
