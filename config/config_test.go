package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vrs/time-wizard/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"TIMEWIZARD_DB", "TIMEWIZARD_PORT", "TIMEWIZARD_TZ", "HOLIDAYS",
		"LOG_LEVEL", "LOG_FORMAT", "ONCALL_SCHEDULE_URL", "ONCALL_SYNC_CRON",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, config.DefaultConfig(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)

	// GIVEN: a TOML file overriding a few fields
	path := filepath.Join(t.TempDir(), "timewizard.toml")
	content := `
database_path = "/var/lib/timewizard/hours.db"
port = 9090
holidays = "none"

[log]
level = "debug"
format = "json"

[oncall]
schedule_url = "https://example.test/schedule.csv"
sync_timeout = "45s"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// AND: an environment variable for the port
	t.Setenv("TIMEWIZARD_PORT", "7070")

	// WHEN
	cfg, err := config.Load(path)
	require.NoError(t, err)

	// THEN: env beats file, file beats defaults
	assert.Equal(t, "/var/lib/timewizard/hours.db", cfg.DatabasePath)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "none", cfg.Holidays)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "https://example.test/schedule.csv", cfg.OnCall.ScheduleURL)
	assert.Equal(t, 45*time.Second, cfg.OnCall.SyncTimeout)
	assert.Equal(t, config.DefaultSyncCron, cfg.OnCall.SyncCron)
}

func TestLoad_BadPortEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TIMEWIZARD_PORT", "eighty")

	_, err := config.Load("")
	assert.Error(t, err)
}

func TestLoad_BlankPortEnvKeepsFileValue(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "timewizard.toml")
	require.NoError(t, os.WriteFile(path, []byte("port = 9090\n"), 0o600))

	// GIVEN: TIMEWIZARD_PORT present but blank, as a bare "TIMEWIZARD_PORT=" line in .env
	t.Setenv("TIMEWIZARD_PORT", "  ")

	// WHEN
	cfg, err := config.Load(path)

	// THEN: the blank value is treated as unset
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
}

func TestLoad_MalformedFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("port = = 1"), 0o600))

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"empty db path", func(c *config.Config) { c.DatabasePath = " " }},
		{"zero port", func(c *config.Config) { c.Port = 0 }},
		{"bad cron", func(c *config.Config) { c.OnCall.SyncCron = "every morning" }},
		{"bad zone", func(c *config.Config) { c.Timezone = "Mars/Olympus" }},
		{"bad holidays", func(c *config.Config) { c.Holidays = "klingon" }},
		{"bad log format", func(c *config.Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLocation(t *testing.T) {
	cfg := config.DefaultConfig()
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	cfg.Timezone = "America/New_York"
	loc, err = cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", loc.String())
}
