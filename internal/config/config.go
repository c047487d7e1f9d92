// Package config loads langlearn settings from an optional YAML file, a
// .env file and LANGLEARN_* environment variables, in that order.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/langlearn/langlearn/internal/analysis"
	"github.com/langlearn/langlearn/internal/recommend"
	"github.com/langlearn/langlearn/internal/syncer"
)

// Config holds all langlearn configuration.
type Config struct {
	// DBPath is the local store file. Empty means the default XDG location.
	DBPath   string `yaml:"db_path"`
	LogLevel string `yaml:"log_level"`

	Remote    RemoteConfig    `yaml:"remote"`
	Sync      SyncConfig      `yaml:"sync"`
	Recommend RecommendConfig `yaml:"recommend"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Server    ServerConfig    `yaml:"server"`
}

// RemoteConfig locates the shared remote store.
type RemoteConfig struct {
	Driver string `yaml:"driver"` // "postgres" or "sqlite3"
	DSN    string `yaml:"dsn"`
}

// SyncConfig controls background synchronization.
type SyncConfig struct {
	// Interval triggers a sync pass periodically while online. 0 disables it.
	Interval      time.Duration `yaml:"interval"`
	ProbeInterval time.Duration `yaml:"probe_interval"`
	Retry         RetryConfig   `yaml:"retry"`
}

// RetryConfig spaces out retries of failed mutations. A zero InitialWait
// retries on every pass.
type RetryConfig struct {
	InitialWait time.Duration `yaml:"initial_wait"`
	MaxWait     time.Duration `yaml:"max_wait"`
	Multiplier  float64       `yaml:"multiplier"`
	Jitter      float64       `yaml:"jitter"`
}

// RecommendConfig controls recommendation output.
type RecommendConfig struct {
	Persist string `yaml:"persist"` // "append" or "upsert"
	Limit   int    `yaml:"limit"`
}

// AnalysisConfig locates the writing and pronunciation services.
type AnalysisConfig struct {
	WritingURL       string        `yaml:"writing_url"`
	PronunciationURL string        `yaml:"pronunciation_url"`
	APIKey           string        `yaml:"api_key"`
	Timeout          time.Duration `yaml:"timeout"`
	MaxAttempts      int           `yaml:"max_attempts"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	retry := syncer.DefaultRetryPolicy()
	analysisRetry := analysis.DefaultRetryConfig()
	return Config{
		LogLevel: "info",
		Sync: SyncConfig{
			Interval:      5 * time.Minute,
			ProbeInterval: 30 * time.Second,
			Retry: RetryConfig{
				InitialWait: retry.InitialWait,
				MaxWait:     retry.MaxWait,
				Multiplier:  retry.Multiplier,
				Jitter:      retry.Jitter,
			},
		},
		Recommend: RecommendConfig{
			Persist: string(recommend.PersistAppend),
			Limit:   recommend.DefaultLimit,
		},
		Analysis: AnalysisConfig{
			Timeout:     30 * time.Second,
			MaxAttempts: analysisRetry.MaxAttempts,
		},
		Server: ServerConfig{Addr: "127.0.0.1:8080"},
	}
}

// DefaultPath returns the config file location:
// $XDG_CONFIG_HOME/langlearn/config.yaml or ~/.config/langlearn/config.yaml.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "langlearn", "config.yaml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "langlearn", "config.yaml"), nil
}

// Load reads a YAML config file over the defaults. Unknown keys are
// rejected. When optional is true a missing file yields the defaults.
func Load(path string, optional bool) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Variables already set are kept; missing files are skipped.
func LoadDotEnv(paths ...string) error {
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// ApplyEnv overlays LANGLEARN_* environment variables onto c.
func (c *Config) ApplyEnv() error {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	str("LANGLEARN_DB", &c.DBPath)
	str("LANGLEARN_LOG_LEVEL", &c.LogLevel)
	str("LANGLEARN_REMOTE_DRIVER", &c.Remote.Driver)
	str("LANGLEARN_REMOTE_DSN", &c.Remote.DSN)
	str("LANGLEARN_RECOMMEND_PERSIST", &c.Recommend.Persist)
	str("LANGLEARN_WRITING_URL", &c.Analysis.WritingURL)
	str("LANGLEARN_PRONUNCIATION_URL", &c.Analysis.PronunciationURL)
	str("LANGLEARN_ANALYSIS_API_KEY", &c.Analysis.APIKey)
	str("LANGLEARN_SERVER_ADDR", &c.Server.Addr)

	var errs []error
	dur := func(key string, dst *time.Duration) {
		v := os.Getenv(key)
		if v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}
	dur("LANGLEARN_SYNC_INTERVAL", &c.Sync.Interval)
	dur("LANGLEARN_PROBE_INTERVAL", &c.Sync.ProbeInterval)
	dur("LANGLEARN_ANALYSIS_TIMEOUT", &c.Analysis.Timeout)

	if v := os.Getenv("LANGLEARN_RECOMMEND_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("LANGLEARN_RECOMMEND_LIMIT: %w", err))
		} else {
			c.Recommend.Limit = n
		}
	}
	return errors.Join(errs...)
}

// Validate checks that c is usable.
func (c Config) Validate() error {
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}

	switch c.Remote.Driver {
	case "":
		if c.Remote.DSN != "" {
			return fmt.Errorf("remote.driver is required when remote.dsn is set")
		}
	case "postgres", "sqlite3":
		if c.Remote.DSN == "" {
			return fmt.Errorf("remote.dsn is required for the %s driver", c.Remote.Driver)
		}
	default:
		return fmt.Errorf("unknown remote driver: %q", c.Remote.Driver)
	}

	if c.Sync.Interval < 0 {
		return fmt.Errorf("sync.interval must not be negative")
	}
	if c.Sync.ProbeInterval <= 0 {
		return fmt.Errorf("sync.probe_interval must be positive")
	}
	if r := c.Sync.Retry; r.InitialWait > 0 {
		if r.Multiplier < 1 {
			return fmt.Errorf("sync.retry.multiplier must be at least 1")
		}
		if r.Jitter < 0 || r.Jitter > 1 {
			return fmt.Errorf("sync.retry.jitter must be within [0, 1]")
		}
		if r.MaxWait > 0 && r.MaxWait < r.InitialWait {
			return fmt.Errorf("sync.retry.max_wait must not be below initial_wait")
		}
	}

	if _, err := recommend.ParsePersistPolicy(c.Recommend.Persist); err != nil {
		return err
	}
	if c.Recommend.Limit < 1 || c.Recommend.Limit > recommend.DefaultLimit {
		return fmt.Errorf("recommend.limit must be within [1, %d]", recommend.DefaultLimit)
	}

	if c.Analysis.MaxAttempts < 1 {
		return fmt.Errorf("analysis.max_attempts must be positive")
	}
	return nil
}

// RemoteEnabled reports whether a remote store is configured.
func (c Config) RemoteEnabled() bool {
	return c.Remote.Driver != ""
}

// RetryPolicy converts the sync retry settings.
func (c Config) RetryPolicy() syncer.RetryPolicy {
	r := c.Sync.Retry
	return syncer.RetryPolicy{
		InitialWait: r.InitialWait,
		MaxWait:     r.MaxWait,
		Multiplier:  r.Multiplier,
		Jitter:      r.Jitter,
	}
}

// PersistPolicy returns the parsed recommendation persistence policy,
// falling back to append.
func (c Config) PersistPolicy() recommend.PersistPolicy {
	p, err := recommend.ParsePersistPolicy(c.Recommend.Persist)
	if err != nil {
		return recommend.PersistAppend
	}
	return p
}

// AnalysisClientConfig converts the analysis settings.
func (c Config) AnalysisClientConfig() analysis.Config {
	retry := analysis.DefaultRetryConfig()
	retry.MaxAttempts = c.Analysis.MaxAttempts
	return analysis.Config{
		WritingURL:       c.Analysis.WritingURL,
		PronunciationURL: c.Analysis.PronunciationURL,
		APIKey:           c.Analysis.APIKey,
		Timeout:          c.Analysis.Timeout,
		Retry:            retry,
	}
}

// ParseLogLevel maps debug, info, warn or error to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level: %q", s)
}
