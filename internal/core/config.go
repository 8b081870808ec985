// Package core contains the business logic of gtd-brain: the sort wizard,
// the disposition applier, task lifecycle, stats and configuration.
package core

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
	_ "time/tzdata" // stats.timezone must resolve on hosts without zoneinfo

	"github.com/spf13/viper"
	"github.com/valter-silva-au/gtd-brain/pkg/models"
)

// ConfigFileName is the name of the configuration file looked up in the base
// path, without its extension.
const ConfigFileName = ".gtdconfig"

var validPrefixPattern = regexp.MustCompile(`^[A-Z0-9]{1,10}$`)

var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json"}
)

// ConfigurationManager loads and validates .gtdconfig.
type ConfigurationManager interface {
	LoadGlobalConfig() (*models.GlobalConfig, error)
	ValidateConfig(cfg *models.GlobalConfig) error
}

type viperConfigManager struct {
	basePath string
}

// NewConfigurationManager creates a ConfigurationManager reading from basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// DefaultGlobalConfig returns the configuration used when no file is present.
func DefaultGlobalConfig() *models.GlobalConfig {
	return &models.GlobalConfig{
		Storage: models.StorageConfig{
			Backend:    models.BackendYAML,
			SQLitePath: "gtd.db",
		},
		TaskIDPrefix:   "GTD",
		TaskIDPadWidth: 5,
		StatsTimezone:  "UTC",
		ServerAddr:     "127.0.0.1:8080",
		Log:            models.LogConfig{Level: "info", Format: "text"},
		Alerts: models.AlertConfig{
			MaxInbox:              20,
			StaleInboxDays:        3,
			DelegatedFollowUpDays: 7,
		},
		Motivation: DefaultMotivation(),
	}
}

// LoadGlobalConfig reads .gtdconfig from the base path. A missing file
// yields the defaults.
func (cm *viperConfigManager) LoadGlobalConfig() (*models.GlobalConfig, error) {
	cfg := DefaultGlobalConfig()

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)

	v.SetDefault("storage.backend", string(cfg.Storage.Backend))
	v.SetDefault("storage.sqlite_path", cfg.Storage.SQLitePath)
	v.SetDefault("task_id.prefix", cfg.TaskIDPrefix)
	v.SetDefault("task_id.pad_width", cfg.TaskIDPadWidth)
	v.SetDefault("stats.timezone", cfg.StatsTimezone)
	v.SetDefault("server.addr", cfg.ServerAddr)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("alerts.max_inbox", cfg.Alerts.MaxInbox)
	v.SetDefault("alerts.stale_inbox_days", cfg.Alerts.StaleInboxDays)
	v.SetDefault("alerts.delegated_follow_up_days", cfg.Alerts.DelegatedFollowUpDays)
	v.SetDefault("notifications.enabled", false)
	v.SetDefault("notifications.slack.webhook_url", "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading %s: %w", ConfigFileName, err)
	}

	cfg.Storage.Backend = models.StorageBackend(v.GetString("storage.backend"))
	cfg.Storage.SQLitePath = v.GetString("storage.sqlite_path")
	cfg.TaskIDPrefix = v.GetString("task_id.prefix")
	cfg.TaskIDPadWidth = v.GetInt("task_id.pad_width")
	cfg.StatsTimezone = v.GetString("stats.timezone")
	cfg.ServerAddr = v.GetString("server.addr")
	cfg.Log.Level = strings.ToLower(v.GetString("log.level"))
	cfg.Log.Format = strings.ToLower(v.GetString("log.format"))
	cfg.Alerts.MaxInbox = v.GetInt("alerts.max_inbox")
	cfg.Alerts.StaleInboxDays = v.GetInt("alerts.stale_inbox_days")
	cfg.Alerts.DelegatedFollowUpDays = v.GetInt("alerts.delegated_follow_up_days")
	cfg.Notifications.Enabled = v.GetBool("notifications.enabled")
	cfg.Notifications.Slack.WebhookURL = v.GetString("notifications.slack.webhook_url")

	// Message pools replace the built-in ones only when given.
	if praise := v.GetStringSlice("motivation.praise"); len(praise) > 0 {
		cfg.Motivation.Praise = praise
	}
	if nudge := v.GetStringSlice("motivation.nudge"); len(nudge) > 0 {
		cfg.Motivation.Nudge = nudge
	}

	return cfg, nil
}

// ValidateConfig reports every invalid setting in cfg at once.
func (cm *viperConfigManager) ValidateConfig(cfg *models.GlobalConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	switch cfg.Storage.Backend {
	case models.BackendYAML:
	case models.BackendSQLite:
		if cfg.Storage.SQLitePath == "" {
			errs = append(errs, "storage.sqlite_path must not be empty for the sqlite backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("storage.backend %q is invalid, must be one of: yaml, sqlite", cfg.Storage.Backend))
	}

	if !validPrefixPattern.MatchString(cfg.TaskIDPrefix) {
		errs = append(errs, fmt.Sprintf("task_id.prefix %q is invalid, must match [A-Z0-9]{1,10}", cfg.TaskIDPrefix))
	}
	if cfg.TaskIDPadWidth < 0 || cfg.TaskIDPadWidth > 10 {
		errs = append(errs, fmt.Sprintf("task_id.pad_width %d is invalid, must be between 0 and 10", cfg.TaskIDPadWidth))
	}

	if _, err := time.LoadLocation(cfg.StatsTimezone); err != nil || cfg.StatsTimezone == "" {
		errs = append(errs, fmt.Sprintf("stats.timezone %q is not a known time zone", cfg.StatsTimezone))
	}

	if !slices.Contains(validLogLevels, cfg.Log.Level) {
		errs = append(errs, fmt.Sprintf("log.level %q is invalid, must be one of: %s", cfg.Log.Level, strings.Join(validLogLevels, ", ")))
	}
	if !slices.Contains(validLogFormats, cfg.Log.Format) {
		errs = append(errs, fmt.Sprintf("log.format %q is invalid, must be one of: %s", cfg.Log.Format, strings.Join(validLogFormats, ", ")))
	}

	if cfg.Alerts.MaxInbox < 0 {
		errs = append(errs, fmt.Sprintf("alerts.max_inbox must be non-negative, got %d", cfg.Alerts.MaxInbox))
	}
	if cfg.Alerts.StaleInboxDays < 0 {
		errs = append(errs, fmt.Sprintf("alerts.stale_inbox_days must be non-negative, got %d", cfg.Alerts.StaleInboxDays))
	}
	if cfg.Alerts.DelegatedFollowUpDays < 0 {
		errs = append(errs, fmt.Sprintf("alerts.delegated_follow_up_days must be non-negative, got %d", cfg.Alerts.DelegatedFollowUpDays))
	}

	if cfg.Notifications.Enabled && cfg.Notifications.Slack.WebhookURL == "" {
		errs = append(errs, "notifications.slack.webhook_url is required when notifications are enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// StatsLocation resolves the configured stats time zone, falling back to UTC.
func StatsLocation(cfg *models.GlobalConfig) *time.Location {
	if cfg == nil || cfg.StatsTimezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(cfg.StatsTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
