package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override, e.g. BOT_TELEGRAM_TOKEN.
const EnvPrefix = "BOT_"

type envOverlay struct {
	Transport     string `env:"TRANSPORT"`
	TelegramToken string `env:"TELEGRAM_TOKEN"`
	DiscordToken  string `env:"DISCORD_TOKEN"`
	LogLevel      string `env:"LOG_LEVEL"`
	LogChannel    string `env:"LOG_CHANNEL"`
	DebugMode     *bool  `env:"DEBUG_MODE"`
	NeisKey       string `env:"NEIS_KEY"`
	StorageDriver string `env:"STORAGE_DRIVER"`
	StoragePath   string `env:"STORAGE_PATH"`
}

// LoadDotEnv loads the given .env files into the process environment.
// Missing files are skipped and variables already set are not overridden.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// ApplyEnv overlays BOT_* environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	return applyEnv(cfg, env.Options{Prefix: EnvPrefix})
}

func applyEnv(cfg *Config, opts env.Options) error {
	var ov envOverlay
	if err := env.ParseWithOptions(&ov, opts); err != nil {
		return fmt.Errorf("env: %w", err)
	}
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}

	set(&cfg.Bot.Transport, ov.Transport)
	set(&cfg.Bot.LogChannel, ov.LogChannel)
	set(&cfg.Logging.Level, ov.LogLevel)
	set(&cfg.School.NeisKey, ov.NeisKey)
	if ov.DebugMode != nil {
		cfg.Bot.DebugMode = *ov.DebugMode
	}
	if strings.TrimSpace(ov.TelegramToken) != "" {
		if cfg.Telegram == nil {
			cfg.Telegram = &TelegramConfig{}
		}
		set(&cfg.Telegram.Token, ov.TelegramToken)
	}
	if strings.TrimSpace(ov.DiscordToken) != "" {
		if cfg.Discord == nil {
			cfg.Discord = &DiscordConfig{}
		}
		set(&cfg.Discord.Token, ov.DiscordToken)
	}
	if strings.TrimSpace(ov.StorageDriver+ov.StoragePath) != "" {
		if cfg.Storage == nil {
			cfg.Storage = &StorageConfig{}
		}
		set(&cfg.Storage.Driver, ov.StorageDriver)
		set(&cfg.Storage.Path, ov.StoragePath)
	}
	return nil
}
