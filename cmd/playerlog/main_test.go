// Copyright 2026 The playerlog Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/bpowers/playerlog"
	"github.com/bpowers/playerlog/player"
)

const testID = "11111111-1111-1111-2222-222222222222"

func runApp(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Reader = strings.NewReader(stdin)
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(append([]string{"playerlog"}, args...))
	return out.String(), err
}

func TestApp_SetGetInspectCompact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "players.db")

	_, err := runApp(t, "", "--path", path, "set", "--name", "Notch", testID, "mining", "500")
	require.NoError(t, err)
	_, err = runApp(t, "", "--path", path, "set", "notch", "WOODCUTTING", "70")
	require.NoError(t, err)

	out, err := runApp(t, "", "--path", path, "get", "NOTCH")
	require.NoError(t, err)
	assert.Contains(t, out, testID+" (Notch) mining=500 woodcutting=70")

	out, err = runApp(t, "", "--path", path, "get", testID)
	require.NoError(t, err)
	assert.Contains(t, out, "mining=500")

	_, err = runApp(t, "", "--path", path, "get", "nobody")
	assert.Error(t, err)

	_, err = runApp(t, "", "--path", path, "set", "nobody", "mining", "1")
	assert.Error(t, err)
	_, err = runApp(t, "", "--path", path, "set", testID, "fishing", "1")
	assert.Error(t, err)

	out, err = runApp(t, "", "--path", path, "inspect", "--players")
	require.NoError(t, err)
	assert.Contains(t, out, "players:     1\n")
	assert.Contains(t, out, "scan ended:  end of log\n")
	assert.Contains(t, out, "(Notch)")

	out, err = runApp(t, "", "--path", path, "compact")
	require.NoError(t, err)
	assert.Contains(t, out, "compacted 1 players")

	report, err := playerlog.Scan(path)
	require.NoError(t, err)
	require.Len(t, report.Players, 1)
	// the compacted snapshot plus the one Close appends
	assert.Equal(t, 2, report.Envelopes)
}

func TestApp_BadConfig(t *testing.T) {
	_, err := runApp(t, "", "--log-level", "chatty", "inspect")
	assert.Error(t, err)
	_, err = runApp(t, "", "--config", filepath.Join(t.TempDir(), "missing.toml"), "inspect")
	assert.Error(t, err)
}

func TestShell(t *testing.T) {
	path := filepath.Join(t.TempDir(), "players.db")
	script := strings.Join([]string{
		"help",
		"set " + testID + " mining 10",
		"add " + testID + " mining 5",
		`name ` + testID + ` "Steve Jobs"`,
		`get "steve jobs"`,
		"find ste",
		"save",
		"bogus",
		"get",
		`set 'unterminated`,
		"stats",
		"compact",
		"list",
		"exit",
		"set " + testID + " mining 999",
	}, "\n")

	out, err := runApp(t, script, "--path", path, "shell")
	require.NoError(t, err)
	assert.Contains(t, out, "commands:")
	assert.Contains(t, out, testID+" mining=15")
	assert.Contains(t, out, testID+" (Steve Jobs) mining=15")
	assert.Contains(t, out, `error: unknown command "bogus"`)
	assert.Contains(t, out, "error: get takes 1 argument(s), got 0")
	assert.Contains(t, out, "error: parse:")
	assert.Contains(t, out, ": 1 players,")
	assert.Contains(t, out, "compacted 1 players")

	s, err := playerlog.Open(path)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, s.Close())
	}()
	r, ok := s.Lookup("Steve Jobs")
	require.True(t, ok)
	// nothing after exit runs
	assert.Equal(t, int64(15), r.Skills[player.Mining])
}

func TestServe_ClosesOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "players.db")
	s := &settings{
		path:             path,
		autosaveInterval: 10 * time.Millisecond,
		compactInterval:  25 * time.Millisecond,
		metricsAddr:      "127.0.0.1:0",
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	logger := s.logger(io.Discard)
	require.NoError(t, serve(ctx, s, logger))

	// the lock was released
	store, err := playerlog.Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())
}

func TestServe_BadMetricsAddr(t *testing.T) {
	path := filepath.Join(t.TempDir(), "players.db")
	s := &settings{
		path:             path,
		autosaveInterval: time.Millisecond,
		compactInterval:  time.Millisecond,
		metricsAddr:      "not-an-address",
	}

	err := serve(context.Background(), s, s.logger(io.Discard))
	assert.Error(t, err)

	// nothing was left running against the log
	_, statErr := os.Stat(path)
	assert.ErrorIs(t, statErr, os.ErrNotExist)
	store, err := playerlog.Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())
}

func TestStartMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	store, err := playerlog.Open(filepath.Join(t.TempDir(), "players.db"), playerlog.WithRegisterer(reg))
	require.NoError(t, err)
	defer func() {
		require.NoError(t, store.Close())
	}()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)
	startMetrics(ctx, g, ln, reg)

	resp, err := http.Get("http://" + ln.Addr().String() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "playerlog_log_bytes 8")

	cancel()
	require.NoError(t, g.Wait())
}
