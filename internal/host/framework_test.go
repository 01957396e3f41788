// ABOUTME: Tests for the live handler registry
// ABOUTME: Covers add/remove, plugin lookup, and dispatch matching

package host

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFramework() *Framework {
	fw := New(slog.Default())
	fw.RegisterPlugin(Plugin{Name: "Weather", ModulePath: "plugins.weather"},
		&Handler{FullName: "weather.forecast", ModulePath: "plugins.weather",
			Filters: []Filter{&CommandFilter{Name: "forecast", Aliases: []string{"fc"}}}},
		&Handler{FullName: "weather.alerts", ModulePath: "plugins.weather",
			Filters: []Filter{&CommandFilter{Name: "alerts", ParentNames: []string{"forecast"}}}},
	)
	return fw
}

func TestFramework_RemoveAndAdd(t *testing.T) {
	fw := newTestFramework()

	h := fw.Remove("weather.forecast")
	require.NotNil(t, h)
	assert.Nil(t, fw.Lookup("weather.forecast"))
	assert.Len(t, fw.Handlers(), 1)

	assert.Nil(t, fw.Remove("weather.forecast"), "second remove finds nothing")

	fw.Add(h)
	assert.NotNil(t, fw.Lookup("weather.forecast"))
	assert.Len(t, fw.Handlers(), 2)
}

func TestNew_NilLoggerUsesDefault(t *testing.T) {
	fw := New(nil)
	require.NotPanics(t, func() {
		fw.RegisterPlugin(Plugin{Name: "Echo", ModulePath: "plugins.echo"},
			&Handler{FullName: "echo.say", ModulePath: "plugins.echo",
				Filters: []Filter{&CommandFilter{Name: "say"}}})
	})
	assert.NotNil(t, fw.Lookup("echo.say"))
}

func TestFramework_HandlersIsSnapshot(t *testing.T) {
	fw := newTestFramework()
	snap := fw.Handlers()
	fw.Remove("weather.alerts")
	assert.Len(t, snap, 2)
}

func TestFramework_PluginName(t *testing.T) {
	fw := newTestFramework()

	name, ok := fw.PluginName("plugins.weather")
	assert.True(t, ok)
	assert.Equal(t, "Weather", name)

	_, ok = fw.PluginName("plugins.missing")
	assert.False(t, ok)
}

func TestFramework_Dispatch(t *testing.T) {
	fw := newTestFramework()

	got := fw.Dispatch("forecast   tomorrow")
	require.Len(t, got, 1)
	assert.Equal(t, "weather.forecast", got[0].FullName)

	got = fw.Dispatch("fc")
	require.Len(t, got, 1)
	assert.Equal(t, "weather.forecast", got[0].FullName)

	got = fw.Dispatch("forecast alerts now")
	require.Len(t, got, 1)
	assert.Equal(t, "weather.alerts", got[0].FullName, "longest path wins")

	assert.Empty(t, fw.Dispatch("forecasting"))
	assert.Empty(t, fw.Dispatch("   "))

	fw.Remove("weather.forecast")
	assert.Empty(t, fw.Dispatch("forecast tomorrow"), "removed handlers no longer dispatch")
}
