package models

// StorageBackend selects where tasks are persisted.
type StorageBackend string

const (
	BackendYAML   StorageBackend = "yaml"
	BackendSQLite StorageBackend = "sqlite"
)

// StorageConfig holds task store settings.
type StorageConfig struct {
	Backend    StorageBackend `yaml:"backend" mapstructure:"backend"`
	SQLitePath string         `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// AlertConfig holds thresholds for the alert engine.
type AlertConfig struct {
	MaxInbox              int `yaml:"max_inbox" mapstructure:"max_inbox"`
	StaleInboxDays        int `yaml:"stale_inbox_days" mapstructure:"stale_inbox_days"`
	DelegatedFollowUpDays int `yaml:"delegated_follow_up_days" mapstructure:"delegated_follow_up_days"`
}

// SlackConfig holds Slack webhook settings.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// NotificationConfig controls outbound alert notifications.
type NotificationConfig struct {
	Enabled bool        `yaml:"enabled" mapstructure:"enabled"`
	Slack   SlackConfig `yaml:"slack" mapstructure:"slack"`
}

// MotivationConfig holds the message pools used by the motivation picker.
type MotivationConfig struct {
	Praise []string `yaml:"praise" mapstructure:"praise"`
	Nudge  []string `yaml:"nudge" mapstructure:"nudge"`
}

// GlobalConfig holds system-wide settings read from .gtdconfig via Viper.
type GlobalConfig struct {
	Storage        StorageConfig      `yaml:"storage" mapstructure:"storage"`
	// The next four live under nested keys in .gtdconfig (task_id.prefix,
	// task_id.pad_width, stats.timezone, server.addr) and are read by key.
	TaskIDPrefix   string             `yaml:"-" mapstructure:"-"`
	TaskIDPadWidth int                `yaml:"-" mapstructure:"-"`
	StatsTimezone  string             `yaml:"-" mapstructure:"-"`
	ServerAddr     string             `yaml:"-" mapstructure:"-"`
	Log            LogConfig          `yaml:"log" mapstructure:"log"`
	Alerts         AlertConfig        `yaml:"alerts" mapstructure:"alerts"`
	Notifications  NotificationConfig `yaml:"notifications" mapstructure:"notifications"`
	Motivation     MotivationConfig   `yaml:"motivation" mapstructure:"motivation"`
}
