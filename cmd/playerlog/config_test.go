// Copyright 2026 The playerlog Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	s, err := cfg.validate()
	require.NoError(t, err)
	assert.Equal(t, defaultAutosaveInterval, s.autosaveInterval)
	assert.Equal(t, time.Duration(0), s.compactInterval)
	assert.Equal(t, slog.LevelInfo, s.level)

	path := filepath.Join(t.TempDir(), "playerlog.toml")
	contents := `
path = "/var/lib/game/players.db"
log_level = "debug"
autosave_interval = "30s"
compact_interval = "6h"
metrics_addr = ":9100"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/game/players.db", cfg.Path)
	assert.Equal(t, ":9100", cfg.MetricsAddr)

	s, err = cfg.validate()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, s.level)
	assert.Equal(t, 30*time.Second, s.autosaveInterval)
	assert.Equal(t, 6*time.Hour, s.compactInterval)

	// unset keys keep their defaults
	require.NoError(t, os.WriteFile(path, []byte(`log_level = "warn"`), 0644))
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, defaultPath, cfg.Path)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, os.WriteFile(path, []byte(`path = `), 0644))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	for name, mutate := range map[string]func(c *Config){
		"empty path":       func(c *Config) { c.Path = "" },
		"bad level":        func(c *Config) { c.LogLevel = "loud" },
		"bad autosave":     func(c *Config) { c.AutosaveInterval = "often" },
		"zero autosave":    func(c *Config) { c.AutosaveInterval = "0s" },
		"bad compact":      func(c *Config) { c.CompactInterval = "sometimes" },
		"negative compact": func(c *Config) { c.CompactInterval = "-1h" },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(cfg)
			_, err := cfg.validate()
			assert.Error(t, err)
		})
	}
}
