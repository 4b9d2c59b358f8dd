// Copyright 2026 The playerlog Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/pelletier/go-toml"
)

const (
	defaultPath             = "players.db"
	defaultLogLevel         = "info"
	defaultAutosaveInterval = 5 * time.Minute
)

// Config is the on-disk configuration for the playerlog binary.  Every
// field can be overridden by the matching command-line flag.
type Config struct {
	Path             string `toml:"path"`
	LogLevel         string `toml:"log_level"`
	AutosaveInterval string `toml:"autosave_interval"`
	// CompactInterval of zero disables periodic compaction.
	CompactInterval string `toml:"compact_interval"`
	// MetricsAddr is where serve exposes /metrics; empty disables it.
	MetricsAddr string `toml:"metrics_addr"`
}

func DefaultConfig() *Config {
	return &Config{
		Path:             defaultPath,
		LogLevel:         defaultLogLevel,
		AutosaveInterval: defaultAutosaveInterval.String(),
		CompactInterval:  "0s",
	}
}

// LoadConfig reads the TOML file at path over the defaults.  An empty
// path yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("toml.Unmarshal(%s): %w", path, err)
	}
	return cfg, nil
}

// settings is a validated Config.
type settings struct {
	path             string
	level            slog.Level
	autosaveInterval time.Duration
	compactInterval  time.Duration
	metricsAddr      string
}

func (c *Config) validate() (*settings, error) {
	if c.Path == "" {
		return nil, fmt.Errorf("path must be set")
	}
	s := &settings{
		path:        c.Path,
		metricsAddr: c.MetricsAddr,
	}
	if err := s.level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, fmt.Errorf("log_level: %w", err)
	}
	var err error
	if s.autosaveInterval, err = time.ParseDuration(c.AutosaveInterval); err != nil {
		return nil, fmt.Errorf("autosave_interval: %w", err)
	}
	if s.autosaveInterval <= 0 {
		return nil, fmt.Errorf("autosave_interval must be positive, not %s", c.AutosaveInterval)
	}
	if s.compactInterval, err = time.ParseDuration(c.CompactInterval); err != nil {
		return nil, fmt.Errorf("compact_interval: %w", err)
	}
	if s.compactInterval < 0 {
		return nil, fmt.Errorf("compact_interval can't be negative")
	}
	return s, nil
}

func (s *settings) logger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: s.level}))
}
