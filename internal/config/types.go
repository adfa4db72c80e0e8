package config

// Config is the root configuration for tickbot.
//
// The file may be JSON or YAML (YAML is coerced to JSON and decoded with
// the same strict decoder). All durations are Go duration strings
// (e.g. "500ms", "10s", "1m").
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`

	Reminders SchedulerConfig `json:"reminders,omitempty"`
	Parties   SchedulerConfig `json:"parties,omitempty"`

	Notifier NotifierConfig `json:"notifier,omitempty"`
	Janitor  JanitorConfig  `json:"janitor,omitempty"`
}

type TelegramConfig struct {
	Token       string `json:"token"`
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string     `json:"level,omitempty"`
	Console bool       `json:"console"`
	File    FileConfig `json:"file,omitempty"`
}

type FileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

type StorageConfig struct {
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// SchedulerConfig tunes one scheduler instance.
//
// MaxStaleness: events overdue by more than this when the loop reaches them
// are dropped without delivery ("0s" = always deliver, the default).
// FastPath: deadlines closer than this are never persisted; the notification
// is slept on in memory ("0s" disables the fast path; default "60s").
type SchedulerConfig struct {
	MaxStaleness string `json:"max_staleness,omitempty"`
	FastPath     string `json:"fast_path,omitempty"`
}

type NotifierConfig struct {
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

// JanitorConfig controls the periodic sweep that prunes events whose
// delivery target no longer resolves.
type JanitorConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule,omitempty"` // cron spec, default "@daily"
}
