/*
config.go - Runtime configuration

PURPOSE:
  Collects every knob the server and CLI need into one Config value.

LOAD ORDER (later wins):
  1. DefaultConfig()
  2. TOML file, when a path is given and the file exists
  3. .env file in the working directory, when present
  4. Environment variables
  5. CLI flags (applied by cmd/timewizard after Load)

ENVIRONMENT:
  TIMEWIZARD_DB         SQLite database path
  TIMEWIZARD_PORT       HTTP port
  LOG_LEVEL             logrus level name
  LOG_FORMAT            "text" or "json"
  ONCALL_SCHEDULE_URL   published CSV of the on-call schedule
  ONCALL_SYNC_CRON      cron spec for the sync check
  HOLIDAYS              holiday calendar name ("us" or "none")
  TIMEWIZARD_TZ         IANA zone used for "today"

SEE ALSO:
  - logging/logging.go: consumes the Log section
  - cmd/timewizard/root.go: flag overrides
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/vrs/time-wizard/calendar"
)

const (
	AppName           = "timewizard"
	DefaultConfigFile = "timewizard.toml"
	DefaultSyncCron   = "0 6 * * *"
)

// Config is the full application configuration.
type Config struct {
	DatabasePath string       `toml:"database_path"`
	Port         int          `toml:"port"`
	Timezone     string       `toml:"timezone"`
	Holidays     string       `toml:"holidays"`
	CORSOrigins  []string     `toml:"cors_origins"`
	Log          LogConfig    `toml:"log"`
	OnCall       OnCallConfig `toml:"oncall"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type OnCallConfig struct {
	ScheduleURL string        `toml:"schedule_url"`
	SyncCron    string        `toml:"sync_cron"`
	SyncTimeout time.Duration `toml:"sync_timeout"`
}

// DefaultConfig returns the configuration used when nothing else is set.
func DefaultConfig() Config {
	return Config{
		DatabasePath: "timewizard.db",
		Port:         8080,
		Timezone:     "Local",
		Holidays:     "us",
		CORSOrigins:  []string{"*"},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		OnCall: OnCallConfig{
			SyncCron:    DefaultSyncCron,
			SyncTimeout: 2 * time.Minute,
		},
	}
}

// Load builds a Config from defaults, the optional TOML file at path, a
// .env file and the environment. A missing file at path is not an error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.DatabasePath = getEnv("TIMEWIZARD_DB", c.DatabasePath)
	if v, ok := os.LookupEnv("TIMEWIZARD_PORT"); ok && strings.TrimSpace(v) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("TIMEWIZARD_PORT: %w", err)
		}
		c.Port = port
	}
	c.Timezone = getEnv("TIMEWIZARD_TZ", c.Timezone)
	c.Holidays = getEnv("HOLIDAYS", c.Holidays)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
	c.OnCall.ScheduleURL = getEnv("ONCALL_SCHEDULE_URL", c.OnCall.ScheduleURL)
	c.OnCall.SyncCron = getEnv("ONCALL_SYNC_CRON", c.OnCall.SyncCron)
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabasePath) == "" {
		return errors.New("config: database_path is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("config: timezone: %w", err)
	}
	if _, err := calendar.HolidayCalendarByName(c.Holidays); err != nil {
		return fmt.Errorf("config: holidays: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	if _, err := cron.ParseStandard(c.OnCall.SyncCron); err != nil {
		return fmt.Errorf("config: oncall sync_cron: %w", err)
	}
	if c.OnCall.SyncTimeout < 0 {
		return errors.New("config: oncall sync_timeout must not be negative")
	}
	return nil
}

// Location resolves Timezone; "Local" and "" mean the process zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
