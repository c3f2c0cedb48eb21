package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
intervals:
  system: 10s
usage:
  app_names:
    com.kakao.talk: KakaoTalk
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Intervals.System != 10*time.Second {
		t.Fatalf("expected system interval 10s, got %s", cfg.Intervals.System)
	}
	if cfg.Intervals.Network != time.Second {
		t.Fatalf("expected network interval default 1s, got %s", cfg.Intervals.Network)
	}
	if cfg.Intervals.Widget != 15*time.Minute {
		t.Fatalf("expected widget interval default 15m, got %s", cfg.Intervals.Widget)
	}
	if cfg.StreamGrace != 5*time.Second {
		t.Fatalf("expected stream grace default 5s, got %s", cfg.StreamGrace)
	}
	if cfg.Retries() != 3 {
		t.Fatalf("expected max retries default 3, got %d", cfg.Retries())
	}
	if cfg.Cache.Driver != "sqlite" || cfg.Cache.DSN != "droidinsight.db" {
		t.Fatalf("unexpected cache defaults: %+v", cfg.Cache)
	}
	if !cfg.CacheEnabled() {
		t.Fatal("expected cache enabled by default")
	}
	if cfg.Usage.AppNames["com.kakao.talk"] != "KakaoTalk" {
		t.Fatalf("expected app name alias, got %v", cfg.Usage.AppNames)
	}
	if cfg.Benchmark.URL != DefaultBenchmarkURL {
		t.Fatalf("expected default benchmark url, got %s", cfg.Benchmark.URL)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "unknown driver", data: "cache:\n  driver: mysql\n"},
		{name: "postgres without dsn", data: "cache:\n  driver: postgres\n"},
		{name: "unknown usage source", data: "usage:\n  source: magic\n"},
		{name: "bad log level", data: "log:\n  level: loud\n"},
		{name: "negative interval", data: "intervals:\n  network: -1s\n"},
		{name: "negative retries", data: "job:\n  max_retries: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.data)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestCacheCanBeDisabled(t *testing.T) {
	cfg, err := Load(writeConfig(t, "cache:\n  enabled: false\n  driver: postgres\n"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.CacheEnabled() {
		t.Fatal("expected cache disabled")
	}
}

func TestRetriesCanBeDisabled(t *testing.T) {
	cfg, err := Load(writeConfig(t, "job:\n  max_retries: 0\n"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Retries() != 0 {
		t.Fatalf("expected max retries 0, got %d", cfg.Retries())
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("expected defaults, got error %v", err)
	}
	if cfg.Intervals.Battery != 2*time.Second {
		t.Fatalf("expected battery interval default 2s, got %s", cfg.Intervals.Battery)
	}
}

func TestLogLevel(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "DEBUG"
	level, err := cfg.LogLevel()
	if err != nil {
		t.Fatalf("log level: %v", err)
	}
	if level != slog.LevelDebug {
		t.Fatalf("expected debug, got %v", level)
	}
}
