package config

// Config is the on-disk bot configuration (JSON, YAML or TOML).
//
// Secrets can be left out of the file and supplied through the environment
// (see ApplyEnv).
type Config struct {
	Bot        BotConfig        `json:"bot" toml:"bot"`
	Telegram   *TelegramConfig  `json:"telegram,omitempty" toml:"telegram"`
	Discord    *DiscordConfig   `json:"discord,omitempty" toml:"discord"`
	Logging    LoggingConfig    `json:"logging" toml:"logging"`
	Scheduler  SchedulerConfig  `json:"scheduler" toml:"scheduler"`
	Storage    *StorageConfig   `json:"storage,omitempty" toml:"storage"`
	Dictionary DictionaryConfig `json:"dictionary" toml:"dictionary"`
	School     SchoolConfig     `json:"school" toml:"school"`
}

// BotConfig controls message dispatch.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "5m").
type BotConfig struct {
	// Transport selects the chat adapter: "telegram" or "discord".
	Transport string `json:"transport" toml:"transport"`
	// Timezone is used for date expressions and cron firing times. Default "Asia/Seoul".
	Timezone string `json:"timezone,omitempty" toml:"timezone"`

	// DebugMode is the initial debug switch. While on, only debug channels are served.
	DebugMode     bool     `json:"debug_mode" toml:"debug_mode"`
	DebugChannels []string `json:"debug_channels" toml:"debug_channels"`
	// LogChannel receives cron audit reports and forwarded warnings.
	LogChannel   string `json:"log_channel,omitempty" toml:"log_channel"`
	StaffChannel string `json:"staff_channel,omitempty" toml:"staff_channel"`

	LazyTimeout     string `json:"lazy_timeout,omitempty" toml:"lazy_timeout"`       // default 5m
	CommandTimeout  string `json:"command_timeout,omitempty" toml:"command_timeout"` // default 30s
	Workers         int    `json:"workers,omitempty" toml:"workers"`                 // default 4
	ReplyRatePerSec int    `json:"reply_rate_per_sec,omitempty" toml:"reply_rate_per_sec"`
}

type TelegramConfig struct {
	Token string `json:"token" toml:"token"`
	// PollTimeout is a Go duration string (e.g. "10s").
	PollTimeout string `json:"poll_timeout,omitempty" toml:"poll_timeout"`
}

type DiscordConfig struct {
	Token string `json:"token" toml:"token"`
}

type LoggingConfig struct {
	Level   string         `json:"level" toml:"level"`
	Console bool           `json:"console" toml:"console"`
	File    LoggingFile    `json:"file" toml:"file"`
	Channel LoggingChannel `json:"channel" toml:"channel"`
}

type LoggingFile struct {
	Enabled    bool   `json:"enabled" toml:"enabled"`
	Path       string `json:"path" toml:"path"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty" toml:"max_size_mb"`
	MaxBackups int    `json:"max_backups,omitempty" toml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days,omitempty" toml:"max_age_days"`
	Compress   bool   `json:"compress,omitempty" toml:"compress"`
}

// LoggingChannel forwards log lines to bot.log_channel.
type LoggingChannel struct {
	Enabled    bool   `json:"enabled" toml:"enabled"`
	MinLevel   string `json:"min_level,omitempty" toml:"min_level"`
	RatePerSec int    `json:"rate_per_sec,omitempty" toml:"rate_per_sec"`
}

type SchedulerConfig struct {
	Enabled bool `json:"enabled" toml:"enabled"`
	// Timezone defaults to bot.timezone.
	Timezone    string `json:"timezone,omitempty" toml:"timezone"`
	Timeout     string `json:"timeout,omitempty" toml:"timeout"`
	HistorySize int    `json:"history_size,omitempty" toml:"history_size"`
}

// StorageConfig controls persistence.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./gsa_bot.db" }
type StorageConfig struct {
	Driver      string `json:"driver" toml:"driver"`
	Path        string `json:"path" toml:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty" toml:"busy_timeout"` // sqlite only
}

// DictionaryConfig points at YAML files that extend the embedded token dictionary.
type DictionaryConfig struct {
	Dir string `json:"dir,omitempty" toml:"dir"`
	// Commands maps a command name to the dictionary id it reads. Unlisted
	// commands use "default".
	Commands map[string]string `json:"commands,omitempty" toml:"commands"`
}

type SchoolConfig struct {
	OfficeCode  string `json:"office_code" toml:"office_code"` // NEIS ATPT_OFCDC_SC_CODE
	SchoolCode  string `json:"school_code" toml:"school_code"` // NEIS SD_SCHUL_CODE
	NeisURL     string `json:"neis_url,omitempty" toml:"neis_url"`
	NeisKey     string `json:"neis_key,omitempty" toml:"neis_key"`
	NeisTimeout string `json:"neis_timeout,omitempty" toml:"neis_timeout"`

	// EventsFile is a JSON object of "YYYY-MM-DD" -> "event, event" imported at start.
	EventsFile string `json:"events_file,omitempty" toml:"events_file"`

	// Departments may post notices.
	Departments []string `json:"departments,omitempty" toml:"departments"`
	// CohortOffset: the senior cohort number is (year - 2000 + offset). Default 15.
	CohortOffset int `json:"cohort_offset,omitempty" toml:"cohort_offset"`
	// Rooms maps a cohort number to its channel id. Unlisted cohorts fall back
	// to a stored channel named after the number.
	Rooms map[string]string `json:"rooms,omitempty" toml:"rooms"`
}
