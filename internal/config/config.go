// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the Jasper daemon.
//
// Configuration is loaded from a single file specified by:
//   - JASPER_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures
// deterministic, auditable configuration with no hidden overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the master configuration for the Jasper daemon: a
// hierarchical document with sections for general timing, the AI
// provider, context-source toggles, insight thresholds, notification,
// and privacy.
type Config struct {
	General      GeneralConfig      `yaml:"general"`
	AI           AIConfig           `yaml:"ai"`
	Sources      SourcesConfig      `yaml:"sources"`
	Insights     InsightsConfig     `yaml:"insights"`
	Notification NotificationConfig `yaml:"notifications"`
	Privacy      PrivacyConfig      `yaml:"privacy"`
}

// GeneralConfig holds daemon-wide timing and locale settings.
type GeneralConfig struct {
	PlanningHorizonDays  int    `yaml:"planning_horizon_days"`
	AnalysisIntervalMins int    `yaml:"analysis_interval_minutes"`
	Timezone             string `yaml:"timezone"`
	IdleTimeoutSeconds   int    `yaml:"idle_timeout_seconds"`
	// MinAnalysisIntervalSeconds rate-limits how often a natural
	// (non-forced) tick may trigger the LLM; see significance.Config.
	MinAnalysisIntervalSeconds int `yaml:"min_analysis_interval_seconds"`
	// HeartbeatIntervalSeconds is the interval a well-behaved frontend
	// is expected to heartbeat at. HeartbeatTimeoutSeconds is the
	// registry's liveness window, conventionally 3x the interval.
	HeartbeatIntervalSeconds int `yaml:"heartbeat_interval_seconds"`
	HeartbeatTimeoutSeconds  int `yaml:"heartbeat_timeout_seconds"`
	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `yaml:"log_level"`
}

// AIConfig configures the LLM provider used by the analysis pipeline.
type AIConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	// APIKeyRef is a reference resolved by internal/secret.Resolver,
	// e.g. "env:ANTHROPIC_API_KEY" or "sealed:/etc/jasper/keystore#llm".
	APIKeyRef             string `yaml:"api_key_ref"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
	MaxRetries            int    `yaml:"max_retries"`
}

// SourcesConfig toggles and configures the context sources the
// aggregator queries. Each source is enabled independently; disabled
// sources are never constructed, let alone queried.
type SourcesConfig struct {
	Calendar CalendarSourceConfig `yaml:"calendar"`
	Tasks    TaskSourceConfig     `yaml:"tasks"`
	Notes    NoteSourceConfig     `yaml:"notes"`
	Weather  WeatherSourceConfig  `yaml:"weather"`
	// SourceTimeoutSeconds bounds how long any single source's Fetch
	// may run before the aggregator treats it as failed.
	SourceTimeoutSeconds int `yaml:"source_timeout_seconds"`
}

// CalendarSourceConfig configures the OAuth2 calendar HTTP source.
type CalendarSourceConfig struct {
	Enabled    bool   `yaml:"enabled"`
	BaseURL    string `yaml:"base_url"`
	CalendarID string `yaml:"calendar_id"`
	// TokenRef is resolved by internal/secret.Resolver, e.g.
	// "env:CALENDAR_ACCESS_TOKEN".
	TokenRef string `yaml:"token_ref"`
}

// TaskSourceConfig configures the task-management HTTP API source.
type TaskSourceConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BaseURL  string `yaml:"base_url"`
	TokenRef string `yaml:"token_ref"`
}

// NoteSourceConfig configures the Obsidian-vault note scan source.
type NoteSourceConfig struct {
	Enabled        bool     `yaml:"enabled"`
	VaultPath      string   `yaml:"vault_path"`
	IgnoredFolders []string `yaml:"ignored_folders"`
}

// WeatherSourceConfig configures the HTTP weather source.
type WeatherSourceConfig struct {
	Enabled   bool    `yaml:"enabled"`
	BaseURL   string  `yaml:"base_url"`
	APIKeyRef string  `yaml:"api_key_ref"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

// InsightsConfig configures significance thresholds and retention.
type InsightsConfig struct {
	MaxPerDay              int `yaml:"max_per_day"`
	HighUrgencyDays        int `yaml:"high_urgency_days"`
	SignificantChangeFloor int `yaml:"significant_change_floor"`
	RetainLastN            int `yaml:"retain_last_n"`
	// QuietHoursStart and QuietHoursEnd are "HH:MM" 24-hour clock times,
	// evaluated in general.timezone. A would-be Significant decision
	// inside the window is downgraded to Minor; a Forced one still goes
	// through. Leave both empty to disable the window entirely. Equal
	// start and end means quiet hours span the full day, not that the
	// feature is off.
	QuietHoursStart string `yaml:"quiet_hours_start"`
	QuietHoursEnd   string `yaml:"quiet_hours_end"`
}

// NotificationConfig configures desktop notification delivery. The
// transport itself is external (internal/notify only maps urgency and
// logs); this section is the policy handed to whatever transport is
// wired in front of it.
type NotificationConfig struct {
	Enabled bool `yaml:"enabled"`
	// Method is one of "auto", "bus", or "fallback".
	Method    string `yaml:"method"`
	TimeoutMs int    `yaml:"timeout_ms"`
	AppName   string `yaml:"app_name"`
}

// PrivacyConfig configures redaction applied during canonicalization.
type PrivacyConfig struct {
	RedactPII bool `yaml:"redact_pii"`
}

// Default returns the default configuration. These defaults are used
// as a base before loading the config file; they exist primarily to
// ensure all fields have sensible zero-values, not as a fallback — the
// config file is required.
func Default() *Config {
	return &Config{
		General: GeneralConfig{
			PlanningHorizonDays:        7,
			AnalysisIntervalMins:       30,
			Timezone:                   "UTC",
			IdleTimeoutSeconds:         300,
			MinAnalysisIntervalSeconds: 60,
			HeartbeatIntervalSeconds:   30,
			HeartbeatTimeoutSeconds:    90,
			LogLevel:                   "info",
		},
		AI: AIConfig{
			Provider:              "anthropic",
			Model:                 "claude-sonnet",
			Temperature:           0.3,
			RequestTimeoutSeconds: 30,
			MaxRetries:            3,
		},
		Sources: SourcesConfig{
			Calendar:             CalendarSourceConfig{Enabled: true},
			SourceTimeoutSeconds: 15,
		},
		Insights: InsightsConfig{
			MaxPerDay:              12,
			HighUrgencyDays:        2,
			SignificantChangeFloor: 1,
			RetainLastN:            500,
			QuietHoursStart:        "22:00",
			QuietHoursEnd:          "08:00",
		},
		Notification: NotificationConfig{
			Enabled:   true,
			Method:    "auto",
			TimeoutMs: 10000,
			AppName:   "jasper",
		},
		Privacy: PrivacyConfig{},
	}
}

// Load loads configuration from the JASPER_CONFIG environment variable.
// There are no fallbacks — if JASPER_CONFIG is not set, this fails.
func Load() (*Config, error) {
	path := os.Getenv("JASPER_CONFIG")
	if path == "" {
		return nil, fmt.Errorf("config: JASPER_CONFIG environment variable not set; " +
			"set it to the path of your jasper.yaml config file, or use --config")
	}
	return LoadFile(path)
}

// LoadFile loads and validates configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	var errs []error

	if c.General.PlanningHorizonDays <= 0 {
		errs = append(errs, fmt.Errorf("general.planning_horizon_days must be positive"))
	}
	if c.General.AnalysisIntervalMins <= 0 {
		errs = append(errs, fmt.Errorf("general.analysis_interval_minutes must be positive"))
	}
	if _, err := time.LoadLocation(c.General.Timezone); c.General.Timezone != "" && err != nil {
		errs = append(errs, fmt.Errorf("general.timezone %q: %w", c.General.Timezone, err))
	}
	if c.General.HeartbeatIntervalSeconds <= 0 {
		errs = append(errs, fmt.Errorf("general.heartbeat_interval_seconds must be positive"))
	}
	if c.General.HeartbeatTimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("general.heartbeat_timeout_seconds must be positive"))
	}
	if _, err := ParseLogLevel(c.General.LogLevel); err != nil {
		errs = append(errs, err)
	}

	if c.AI.Provider == "" {
		errs = append(errs, fmt.Errorf("ai.provider is required"))
	}
	if c.AI.Model == "" {
		errs = append(errs, fmt.Errorf("ai.model is required"))
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		errs = append(errs, fmt.Errorf("ai.temperature must be within [0, 2]"))
	}
	if c.AI.APIKeyRef == "" {
		errs = append(errs, fmt.Errorf("ai.api_key_ref is required"))
	}
	if c.AI.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("ai.max_retries must be at least 1"))
	}
	if c.AI.RequestTimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("ai.request_timeout_seconds must be positive"))
	}

	if c.Insights.HighUrgencyDays < 0 {
		errs = append(errs, fmt.Errorf("insights.high_urgency_days must not be negative"))
	}
	if c.Insights.SignificantChangeFloor < 1 {
		errs = append(errs, fmt.Errorf("insights.significant_change_floor must be at least 1"))
	}
	if (c.Insights.QuietHoursStart == "") != (c.Insights.QuietHoursEnd == "") {
		errs = append(errs, fmt.Errorf("insights.quiet_hours_start and insights.quiet_hours_end must both be set or both be empty"))
	} else if c.Insights.QuietHoursStart != "" {
		if _, err := ParseTimeOfDay(c.Insights.QuietHoursStart); err != nil {
			errs = append(errs, fmt.Errorf("insights.quiet_hours_start: %w", err))
		}
		if _, err := ParseTimeOfDay(c.Insights.QuietHoursEnd); err != nil {
			errs = append(errs, fmt.Errorf("insights.quiet_hours_end: %w", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// StateDir returns $XDG_DATA_HOME/jasper (or ~/.local/share/jasper),
// the directory holding the daemon's SQLite state file.
func StateDir() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, "jasper"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolving home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "jasper"), nil
}

// RuntimeDir returns $XDG_RUNTIME_DIR/jasper (or a fallback under
// $TMPDIR), the directory holding the daemon's Unix sockets and
// watchdog marker. Unlike StateDir this is expected to live on tmpfs
// and not survive a reboot.
func RuntimeDir() (string, error) {
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return filepath.Join(runtimeDir, "jasper"), nil
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("jasper-%d", os.Getuid())), nil
}

// ParseTimeOfDay parses a "HH:MM" 24-hour clock string into minutes
// since midnight.
func ParseTimeOfDay(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: want HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// ParseLogLevel maps a config string onto an slog.Level.
func ParseLogLevel(level string) (slog.Level, error) {
	switch level {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("general.log_level %q: must be one of debug, info, warn, error", level)
	}
}
