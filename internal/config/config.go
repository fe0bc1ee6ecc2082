// Package config loads engine settings from a YAML file, applies
// TERMCORE_* environment overrides, and normalizes out-of-range values to
// their defaults. A watcher reloads the file on change for the settings
// that can move at runtime.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultQueueSize      = 1024
	DefaultMaxCallbacks   = 64
	DefaultMaxTerminals   = 256
	DefaultFrameTimeoutMS = 16
	DefaultRows           = 24
	DefaultCols           = 80
)

type Config struct {
	LogLevel       string `yaml:"log_level"`
	Shell          string `yaml:"shell"`
	QueueSize      int    `yaml:"queue_size"`
	MaxCallbacks   int    `yaml:"max_callbacks"`
	MaxTerminals   int    `yaml:"max_terminals"`
	FrameTimeoutMS int    `yaml:"frame_timeout_ms"`
	Rows           uint16 `yaml:"rows"`
	Cols           uint16 `yaml:"cols"`
}

// Default returns the built-in settings. The shell comes from $SHELL when
// set.
func Default() Config {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	return Config{
		LogLevel:       "info",
		Shell:          shell,
		QueueSize:      DefaultQueueSize,
		MaxCallbacks:   DefaultMaxCallbacks,
		MaxTerminals:   DefaultMaxTerminals,
		FrameTimeoutMS: DefaultFrameTimeoutMS,
		Rows:           DefaultRows,
		Cols:           DefaultCols,
	}
}

// Load reads the file at path over the defaults, then applies environment
// overrides and normalization. A missing file is not an error; the
// defaults stand.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.applyEnv()
	cfg.normalize()
	return cfg, nil
}

// FrameTimeout returns the render handoff deadline as a duration.
func (c Config) FrameTimeout() time.Duration {
	return time.Duration(c.FrameTimeoutMS) * time.Millisecond
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TERMCORE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("TERMCORE_SHELL"); v != "" {
		c.Shell = v
	}
	overrideInt("TERMCORE_QUEUE_SIZE", &c.QueueSize)
	overrideInt("TERMCORE_MAX_CALLBACKS", &c.MaxCallbacks)
	overrideInt("TERMCORE_MAX_TERMINALS", &c.MaxTerminals)
	overrideInt("TERMCORE_FRAME_TIMEOUT_MS", &c.FrameTimeoutMS)
}

func overrideInt(name string, target *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return
	}
	*target = parsed
}

func (c *Config) normalize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	switch c.LogLevel {
	case "debug", "info", "warning", "warn", "error":
	default:
		c.LogLevel = "info"
	}
	if strings.TrimSpace(c.Shell) == "" {
		c.Shell = Default().Shell
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.MaxCallbacks <= 0 {
		c.MaxCallbacks = DefaultMaxCallbacks
	}
	if c.MaxTerminals <= 0 {
		c.MaxTerminals = DefaultMaxTerminals
	}
	if c.FrameTimeoutMS <= 0 {
		c.FrameTimeoutMS = DefaultFrameTimeoutMS
	}
	if c.Rows == 0 {
		c.Rows = DefaultRows
	}
	if c.Cols == 0 {
		c.Cols = DefaultCols
	}
}
