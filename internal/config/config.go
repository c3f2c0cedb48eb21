package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log             LogConfig       `yaml:"log"`
	StoragePath     string          `yaml:"storage_path"`
	PowerSupplyPath string          `yaml:"power_supply_path"`
	Intervals       IntervalsConfig `yaml:"intervals"`
	StreamGrace     time.Duration   `yaml:"stream_grace"`
	Cache           CacheConfig     `yaml:"cache"`
	Usage           UsageConfig     `yaml:"usage"`
	Widget          WidgetConfig    `yaml:"widget"`
	Job             JobConfig       `yaml:"job"`
	Benchmark       BenchmarkConfig `yaml:"benchmark"`
	Metrics         MetricsConfig   `yaml:"metrics"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type IntervalsConfig struct {
	Network time.Duration `yaml:"network"`
	System  time.Duration `yaml:"system"`
	Battery time.Duration `yaml:"battery"`
	Widget  time.Duration `yaml:"widget"`
}

type CacheConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Driver  string `yaml:"driver"`
	DSN     string `yaml:"dsn"`
}

type UsageConfig struct {
	Source   string            `yaml:"source"`
	AppNames map[string]string `yaml:"app_names"`
	IconDir  string            `yaml:"icon_dir"`
}

type WidgetConfig struct {
	StateFile  string `yaml:"state_file"`
	OutputFile string `yaml:"output_file"`
}

type JobConfig struct {
	MaxRetries *int          `yaml:"max_retries"`
	Backoff    time.Duration `yaml:"backoff"`
}

type BenchmarkConfig struct {
	URL string `yaml:"url"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

const DefaultBenchmarkURL = "https://proof.ovh.net/files/100Mb.dat"

// Load reads a YAML config file, fills in defaults and validates the result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOrDefault behaves like Load but falls back to defaults when the file
// does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.File == "" {
		c.Log.File = "droidinsight.log"
	}
	if c.StoragePath == "" {
		c.StoragePath = defaultStoragePath()
	}
	if c.PowerSupplyPath == "" {
		c.PowerSupplyPath = "/sys/class/power_supply"
	}
	if c.Intervals.Network == 0 {
		c.Intervals.Network = time.Second
	}
	if c.Intervals.System == 0 {
		c.Intervals.System = 3 * time.Second
	}
	if c.Intervals.Battery == 0 {
		c.Intervals.Battery = 2 * time.Second
	}
	if c.Intervals.Widget == 0 {
		c.Intervals.Widget = 15 * time.Minute
	}
	if c.StreamGrace == 0 {
		c.StreamGrace = 5 * time.Second
	}
	if c.Cache.Enabled == nil {
		enabled := true
		c.Cache.Enabled = &enabled
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "sqlite"
	}
	if c.Cache.DSN == "" && c.Cache.Driver == "sqlite" {
		c.Cache.DSN = "droidinsight.db"
	}
	if c.Usage.Source == "" {
		c.Usage.Source = "auto"
	}
	if c.Widget.StateFile == "" {
		c.Widget.StateFile = "widget_state.yaml"
	}
	if c.Widget.OutputFile == "" {
		c.Widget.OutputFile = "widget.txt"
	}
	if c.Job.MaxRetries == nil {
		retries := 3
		c.Job.MaxRetries = &retries
	}
	if c.Job.Backoff == 0 {
		c.Job.Backoff = 30 * time.Second
	}
	if c.Benchmark.URL == "" {
		c.Benchmark.URL = DefaultBenchmarkURL
	}
}

func (c *Config) validate() error {
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	switch c.Cache.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("cache.driver must be sqlite or postgres, got %q", c.Cache.Driver)
	}
	if c.CacheEnabled() && c.Cache.DSN == "" {
		return fmt.Errorf("cache.dsn is required for driver %s", c.Cache.Driver)
	}
	switch c.Usage.Source {
	case "auto", "dumpsys", "process":
	default:
		return fmt.Errorf("usage.source must be auto, dumpsys or process, got %q", c.Usage.Source)
	}
	if c.Intervals.Network < 0 || c.Intervals.System < 0 || c.Intervals.Battery < 0 || c.Intervals.Widget < 0 {
		return fmt.Errorf("intervals must be positive")
	}
	if c.Retries() < 0 {
		return fmt.Errorf("job.max_retries must not be negative")
	}
	return nil
}

func (c *Config) CacheEnabled() bool {
	return c.Cache.Enabled != nil && *c.Cache.Enabled
}

// Retries is the number of retries after a failed job attempt.
func (c *Config) Retries() int {
	if c.Job.MaxRetries == nil {
		return 0
	}
	return *c.Job.MaxRetries
}

// LogLevel maps the configured level name to a slog level.
func (c *Config) LogLevel() (slog.Level, error) {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
}

// IsAndroid reports whether the process runs on an Android userland.
func IsAndroid() bool {
	if os.Getenv("ANDROID_ROOT") != "" {
		return true
	}
	_, err := os.Stat("/system/build.prop")
	return err == nil
}

func defaultStoragePath() string {
	if IsAndroid() {
		return "/data"
	}
	return "/"
}
