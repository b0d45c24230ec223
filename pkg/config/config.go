// Package config loads campaign dashboard settings from an optional YAML file
// and CAMPAIGN_DASHBOARD_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gookit/validate"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/goliatone/go-campaign-dashboard/components/dashboard"
)

// EnvPrefix namespaces environment overrides, e.g. CAMPAIGN_DASHBOARD_SERVER_ADDR.
const EnvPrefix = "CAMPAIGN_DASHBOARD"

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

type Config struct {
	Server  Server  `mapstructure:"server"`
	Storage Storage `mapstructure:"storage"`
	Dataset Dataset `mapstructure:"dataset"`
	Cache   Cache   `mapstructure:"cache"`
	Refresh Refresh `mapstructure:"refresh"`
	Log     Log     `mapstructure:"log"`
	Metrics Metrics `mapstructure:"metrics"`
	Charts  Charts  `mapstructure:"charts"`
	Filters Filters `mapstructure:"filters"`
}

type Server struct {
	Addr     string `mapstructure:"addr" validate:"required"`
	BasePath string `mapstructure:"base_path" validate:"required|startsWith:/"`
}

type Storage struct {
	Driver string `mapstructure:"driver" validate:"required|in:memory,file,sqlite"`
	// Path is a directory for the file driver and a database file for sqlite.
	Path string `mapstructure:"path"`
}

type Dataset struct {
	// Path points at a YAML fixture; empty uses the built-in dataset.
	Path string `mapstructure:"path"`
	// URL pulls the dataset from a remote campaign export instead.
	URL    string `mapstructure:"url" validate:"startsWith:http"`
	APIKey string `mapstructure:"api_key"`
}

type Cache struct {
	// SizeMB > 0 switches chart rendering to freecache and must be at least
	// dashboard.MinFreeCacheSizeMB.
	SizeMB int           `mapstructure:"size_mb" validate:"min:0"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type Refresh struct {
	// Interval 0 disables live ticks.
	Interval time.Duration `mapstructure:"interval"`
}

type Log struct {
	Level       string `mapstructure:"level" validate:"required|in:debug,info,warn,error"`
	Development bool   `mapstructure:"development"`
}

type Metrics struct {
	Enabled bool `mapstructure:"enabled"`
	// Addr is served separately from the dashboard listener.
	Addr string `mapstructure:"addr" validate:"required"`
	Path string `mapstructure:"path" validate:"required|startsWith:/"`
}

type Charts struct {
	AssetsHost string `mapstructure:"assets_host"`
	Theme      string `mapstructure:"theme" validate:"required"`
}

type Filters struct {
	WeekStart string `mapstructure:"week_start" validate:"required"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		Server:  Server{Addr: ":8080", BasePath: "/campaigns"},
		Storage: Storage{Driver: DriverMemory},
		Cache:   Cache{TTL: 5 * time.Minute},
		Refresh: Refresh{Interval: 30 * time.Second},
		Log:     Log{Level: "info"},
		Metrics: Metrics{Enabled: true, Addr: ":9090", Path: "/metrics"},
		Charts:  Charts{Theme: "westeros"},
		Filters: Filters{WeekStart: "sunday"},
	}
}

// LoadDotEnv reads .env style files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("config: load %s: %w", path, err)
		}
	}
	return nil
}

// Load reads path (optional) and the environment on top of Defaults.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Defaults())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field rules and cross-field constraints.
func (c Config) Validate() error {
	sections := []struct {
		name  string
		value any
	}{
		{"server", &c.Server},
		{"storage", &c.Storage},
		{"dataset", &c.Dataset},
		{"cache", &c.Cache},
		{"log", &c.Log},
		{"metrics", &c.Metrics},
		{"charts", &c.Charts},
		{"filters", &c.Filters},
	}
	for _, section := range sections {
		v := validate.Struct(section.value)
		if !v.Validate() {
			return fmt.Errorf("config: %s: %w", section.name, v.Errors)
		}
	}
	if c.Storage.Driver != DriverMemory && strings.TrimSpace(c.Storage.Path) == "" {
		return fmt.Errorf("config: storage: path is required for the %s driver", c.Storage.Driver)
	}
	if c.Dataset.Path != "" && c.Dataset.URL != "" {
		return errors.New("config: dataset: path and url are mutually exclusive")
	}
	if c.Cache.SizeMB > 0 && c.Cache.SizeMB < dashboard.MinFreeCacheSizeMB {
		return fmt.Errorf("config: cache: size_mb must be 0 or at least %d", dashboard.MinFreeCacheSizeMB)
	}
	if c.Refresh.Interval < 0 || c.Cache.TTL < 0 {
		return errors.New("config: durations must not be negative")
	}
	if _, err := dashboard.ParseWeekday(c.Filters.WeekStart); err != nil {
		return fmt.Errorf("config: filters: %w", err)
	}
	return nil
}

// WeekStart returns the configured first day of the week.
func (c Config) WeekStart() time.Weekday {
	day, _ := dashboard.ParseWeekday(c.Filters.WeekStart)
	return day
}

// Keys lists every configuration key with its effective value, in file order.
func (c Config) Keys() [][2]string {
	return [][2]string{
		{"server.addr", c.Server.Addr},
		{"server.base_path", c.Server.BasePath},
		{"storage.driver", c.Storage.Driver},
		{"storage.path", c.Storage.Path},
		{"dataset.path", c.Dataset.Path},
		{"dataset.url", c.Dataset.URL},
		{"dataset.api_key", mask(c.Dataset.APIKey)},
		{"cache.size_mb", fmt.Sprint(c.Cache.SizeMB)},
		{"cache.ttl", c.Cache.TTL.String()},
		{"refresh.interval", c.Refresh.Interval.String()},
		{"log.level", c.Log.Level},
		{"log.development", fmt.Sprint(c.Log.Development)},
		{"metrics.enabled", fmt.Sprint(c.Metrics.Enabled)},
		{"metrics.addr", c.Metrics.Addr},
		{"metrics.path", c.Metrics.Path},
		{"charts.assets_host", c.Charts.AssetsHost},
		{"charts.theme", c.Charts.Theme},
		{"filters.week_start", c.Filters.WeekStart},
	}
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.base_path", d.Server.BasePath)
	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("dataset.path", d.Dataset.Path)
	v.SetDefault("dataset.url", d.Dataset.URL)
	v.SetDefault("dataset.api_key", d.Dataset.APIKey)
	v.SetDefault("cache.size_mb", d.Cache.SizeMB)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("refresh.interval", d.Refresh.Interval)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", d.Log.Development)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
	v.SetDefault("metrics.path", d.Metrics.Path)
	v.SetDefault("charts.assets_host", d.Charts.AssetsHost)
	v.SetDefault("charts.theme", d.Charts.Theme)
	v.SetDefault("filters.week_start", d.Filters.WeekStart)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "****"
}
