package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-campaign-dashboard/components/dashboard"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, time.Sunday, cfg.WeekStart())

	wednesday := time.Date(2025, time.October, 15, 9, 0, 0, 0, time.UTC)
	week, err := dashboard.ResolveDatePreset(dashboard.PresetThisWeek, wednesday, cfg.WeekStart())
	require.NoError(t, err)
	assert.Equal(t, 12, week.Start.Day())
	assert.Equal(t, 18, week.End.Day())
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.yaml")
	yaml := []byte(`
server:
  addr: ":9000"
storage:
  driver: sqlite
  path: /tmp/prefs.db
refresh:
  interval: 10s
filters:
  week_start: monday
`)
	require.NoError(t, os.WriteFile(path, yaml, 0o600))
	t.Setenv("CAMPAIGN_DASHBOARD_SERVER_ADDR", ":9090")
	t.Setenv("CAMPAIGN_DASHBOARD_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr, "env wins over file")
	assert.Equal(t, "/campaigns", cfg.Server.BasePath)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, 10*time.Second, cfg.Refresh.Interval)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, time.Monday, cfg.WeekStart())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"driver":      func(c *Config) { c.Storage.Driver = "redis" },
		"file path":   func(c *Config) { c.Storage.Driver = DriverFile },
		"log level":   func(c *Config) { c.Log.Level = "verbose" },
		"base path":   func(c *Config) { c.Server.BasePath = "campaigns" },
		"week start":  func(c *Config) { c.Filters.WeekStart = "someday" },
		"interval":    func(c *Config) { c.Refresh.Interval = -time.Second },
		"addr":        func(c *Config) { c.Server.Addr = "" },
		"dataset url": func(c *Config) { c.Dataset.URL = "ftp://exports" },
		"cache size":  func(c *Config) { c.Cache.SizeMB = 1 },
		"dataset source": func(c *Config) {
			c.Dataset.Path = "campaigns.yaml"
			c.Dataset.URL = "https://bi.example.com"
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Defaults()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected %s to be rejected", name)
			}
		})
	}
	assert.NoError(t, Defaults().Validate())

	remote := Defaults()
	remote.Dataset.URL = "https://bi.example.com"
	remote.Dataset.APIKey = "secret"
	assert.NoError(t, remote.Validate())
	assert.Contains(t, remote.Keys(), [2]string{"dataset.api_key", "****"})
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("CAMPAIGN_DASHBOARD_CHARTS_THEME=dark\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CAMPAIGN_DASHBOARD_CHARTS_THEME") })

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "dark", cfg.Charts.Theme)
}

func TestKeysCoverConfiguration(t *testing.T) {
	keys := Defaults().Keys()
	require.Len(t, keys, 18)
	assert.Equal(t, [2]string{"server.addr", ":8080"}, keys[0])
	assert.Equal(t, [2]string{"filters.week_start", "sunday"}, keys[len(keys)-1])
}
