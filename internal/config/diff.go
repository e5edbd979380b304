package config

import (
	"reflect"
	"strings"

	logx "github.com/joshwoo0/gsa-bot/pkg/logx"
)

// SummarizeChange lists the changed top-level sections and a few safe fields
// for logging. Tokens and keys are never included.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	changed := make([]string, 0, 8)
	fields := make([]logx.Field, 0, 12)

	if !reflect.DeepEqual(oldCfg.Bot, newCfg.Bot) {
		changed = append(changed, "bot")
		fields = append(fields,
			logx.String("bot.transport", newCfg.Bot.Transport),
			logx.Bool("bot.debug_mode", newCfg.Bot.DebugMode),
			logx.Int("bot.debug_channels", len(newCfg.Bot.DebugChannels)),
			logx.Bool("bot.log_channel_set", strings.TrimSpace(newCfg.Bot.LogChannel) != ""),
		)
	}
	if !reflect.DeepEqual(oldCfg.Telegram, newCfg.Telegram) {
		changed = append(changed, "telegram")
		fields = append(fields, logx.Bool("telegram.token_set", newCfg.Telegram != nil && newCfg.Telegram.Token != ""))
	}
	if !reflect.DeepEqual(oldCfg.Discord, newCfg.Discord) {
		changed = append(changed, "discord")
		fields = append(fields, logx.Bool("discord.token_set", newCfg.Discord != nil && newCfg.Discord.Token != ""))
	}
	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		fields = append(fields,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.file", newCfg.Logging.File.Enabled),
			logx.Bool("logging.channel", newCfg.Logging.Channel.Enabled),
		)
	}
	if !reflect.DeepEqual(oldCfg.Scheduler, newCfg.Scheduler) {
		changed = append(changed, "scheduler")
		fields = append(fields,
			logx.Bool("scheduler.enabled", newCfg.Scheduler.Enabled),
			logx.String("scheduler.timezone", newCfg.Scheduler.Timezone),
		)
	}
	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		changed = append(changed, "storage")
	}
	if !reflect.DeepEqual(oldCfg.Dictionary, newCfg.Dictionary) {
		changed = append(changed, "dictionary")
	}
	if !reflect.DeepEqual(oldCfg.School, newCfg.School) {
		changed = append(changed, "school")
		fields = append(fields, logx.Int("school.rooms", len(newCfg.School.Rooms)))
	}
	return changed, fields
}

// RestartRequired lists changes that only take effect after a restart.
// Commands and the transport are built once at startup.
func RestartRequired(oldCfg, newCfg *Config) []string {
	if oldCfg == nil || newCfg == nil {
		return nil
	}
	sections, _ := SummarizeChange(oldCfg, newCfg)
	var out []string
	for _, s := range sections {
		switch s {
		case "telegram", "discord", "storage", "dictionary", "school":
			out = append(out, s)
		}
	}
	if oldCfg.Bot.Transport != newCfg.Bot.Transport {
		out = append(out, "bot.transport")
	}
	return out
}
