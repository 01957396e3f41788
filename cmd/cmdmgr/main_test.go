// ABOUTME: Tests for the binary's logging, argument parsing, and local console
// ABOUTME: Runs the console against an in-memory host and registry

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-cmdconsole/internal/adminserver"
	"github.com/2389/coven-cmdconsole/internal/cmdmgr"
	"github.com/2389/coven-cmdconsole/internal/config"
	"github.com/2389/coven-cmdconsole/internal/host"
	"github.com/2389/coven-cmdconsole/internal/registry"
	"github.com/2389/coven-cmdconsole/internal/store"
)

func TestJSONLoggerRedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	logger.Info("started", "secret", "abc123", "access_token", "syt", "header", "Bearer abc", "port", 5000)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, redacted, rec["secret"])
	assert.Equal(t, redacted, rec["access_token"])
	assert.Equal(t, redacted, rec["header"])
	assert.Equal(t, float64(5000), rec["port"])
}

func TestColorLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LoggingConfig{Level: "warn", Format: "text"}, &buf)
	logger.Info("hidden")
	logger.With("component", "test").WithGroup("req").Warn("visible", "secret", "abc123")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
	assert.Contains(t, out, "component=")
	assert.Contains(t, out, "req.secret=")
	assert.NotContains(t, out, "abc123")
}

func TestParseLimit(t *testing.T) {
	n, err := parseLimit(nil)
	require.NoError(t, err)
	assert.Equal(t, 20, n)

	n, err = parseLimit([]string{"--limit", "5"})
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = parseLimit([]string{"--limit=7"})
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	for _, bad := range [][]string{{"--limit"}, {"--limit", "x"}, {"--limit=0"}, {"extra"}} {
		_, err := parseLimit(bad)
		assert.Error(t, err, bad)
	}
}

func TestConsoleLine(t *testing.T) {
	assert.Equal(t, "cmdmgr on", consoleLine("  on "))
	assert.Equal(t, "cmdmgr toggle a.b", consoleLine("toggle   a.b"))
	assert.Equal(t, "cmdmgr status", consoleLine("cmdmgr status"))
	assert.Equal(t, "weather today", consoleLine("weather today"))
	assert.Equal(t, "", consoleLine("   "))
}

func TestRunConsole(t *testing.T) {
	fw := host.New(slog.Default())
	fw.RegisterPlugin(host.Plugin{Name: "Weather", ModulePath: "plugins.weather"},
		&host.Handler{FullName: "weather.today", ModulePath: "plugins.weather",
			Filters: []host.Filter{&host.CommandFilter{Name: "today", ParentNames: []string{"weather"}}}},
	)
	kv := store.NewMockStore()
	reg := registry.New(registry.Config{Host: fw, Plugins: fw, KV: kv})
	console := cmdmgr.New(cmdmgr.Config{
		Registry:   reg,
		Server:     adminserver.New(adminserver.Config{}),
		Dispatcher: fw,
	})
	fw.RegisterPlugin(console.Info(), console.Handlers()...)

	in := strings.NewReader("weather today\nstatus\ntoggle weather.today\nweather today\n\nlist\n")
	var out bytes.Buffer
	runConsole(context.Background(), in, &out, console, fw)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.GreaterOrEqual(t, len(lines), 5)
	assert.Equal(t, "would dispatch to weather.today", lines[0])
	assert.Contains(t, lines[1], "admin console: stopped; 0 disabled handler(s)")
	assert.Equal(t, "weather.today disabled", lines[2])
	assert.Equal(t, `no active handler for "weather today"`, lines[3])
	assert.Contains(t, out.String(), "[off] Weather: weather today (weather.today)")
}
