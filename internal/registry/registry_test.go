// ABOUTME: Tests for the active/disabled partition, toggling, and persistence
// ABOUTME: Includes concurrency checks and the restore-on-startup scenarios

package registry

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-cmdconsole/internal/host"
	"github.com/2389/coven-cmdconsole/internal/store"
)

type testEnv struct {
	fw    *host.Framework
	kv    *store.MockStore
	store *Store
	all   []string
}

func cmd(fullName, module, name string, parents ...string) *host.Handler {
	return &host.Handler{
		FullName:   fullName,
		ModulePath: module,
		Filters:    []host.Filter{&host.CommandFilter{Name: name, ParentNames: parents}},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	fw := host.New(slog.Default())
	fw.RegisterPlugin(host.Plugin{Name: "PluginA", ModulePath: "plugins.a"},
		cmd("pluginA.cmdX", "plugins.a", "x"),
		cmd("pluginA.cmdY", "plugins.a", "y"),
	)
	fw.RegisterPlugin(host.Plugin{Name: "PluginB", ModulePath: "plugins.b"},
		cmd("pluginB.cmdZ", "plugins.b", "z"),
	)

	kv := store.NewMockStore()
	s := New(Config{Host: fw, Plugins: fw, KV: kv, Audit: kv, Logger: slog.Default()})
	return &testEnv{
		fw:    fw,
		kv:    kv,
		store: s,
		all:   []string{"pluginA.cmdX", "pluginA.cmdY", "pluginB.cmdZ"},
	}
}

func (e *testEnv) persisted(t *testing.T) []string {
	t.Helper()
	names, err := store.GetStrings(context.Background(), e.kv, store.KeyInactivatedHandlers)
	require.NoError(t, err)
	sort.Strings(names)
	return names
}

func (e *testEnv) activeNames() []string {
	var names []string
	for _, h := range e.fw.Handlers() {
		names = append(names, h.FullName)
	}
	sort.Strings(names)
	return names
}

// assertPartition checks active and disabled are disjoint and cover every handler.
func (e *testEnv) assertPartition(t *testing.T) {
	t.Helper()
	active := e.activeNames()
	disabled := e.store.Disabled()

	for _, a := range active {
		assert.NotContains(t, disabled, a, "handler %s in both partitions", a)
	}
	union := append(append([]string{}, active...), disabled...)
	sort.Strings(union)
	assert.Equal(t, e.all, union)
}

func TestToggle_DisableThenEnable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res := env.store.Toggle(ctx, "test", "pluginA.cmdX")
	assert.Equal(t, ToggleResult{Status: StatusOK}, res)
	assert.True(t, env.store.IsDisabled("pluginA.cmdX"))
	assert.Nil(t, env.fw.Lookup("pluginA.cmdX"))
	assert.Equal(t, []string{"pluginA.cmdX"}, env.persisted(t))
	env.assertPartition(t)

	res = env.store.Toggle(ctx, "test", "pluginA.cmdX")
	assert.True(t, res.OK())
	assert.False(t, env.store.IsDisabled("pluginA.cmdX"))
	assert.NotNil(t, env.fw.Lookup("pluginA.cmdX"))
	assert.Empty(t, env.persisted(t))
	env.assertPartition(t)

	assert.Equal(t, 2, env.kv.PutCount(), "one wholesale write per toggle")
}

func TestToggle_Unknown(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.True(t, env.store.Toggle(ctx, "test", "pluginB.cmdZ").OK())
	before := env.kv.PutCount()

	res := env.store.Toggle(ctx, "test", "nonexistent.cmd")
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, "handler not found or unrecognized", res.Message)

	assert.Equal(t, before, env.kv.PutCount(), "no write for unknown handler")
	assert.Equal(t, []string{"pluginB.cmdZ"}, env.persisted(t))
	assert.Equal(t, []string{"pluginB.cmdZ"}, env.store.Disabled())
	env.assertPartition(t)

	err := env.store.ToggleErr(ctx, "test", "nonexistent.cmd")
	assert.ErrorIs(t, err, ErrHandlerNotFound)
}

func TestToggle_PersistenceFailureStillToggles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.kv.FailPuts(true)
	res := env.store.Toggle(ctx, "test", "pluginA.cmdY")
	assert.True(t, res.OK())
	assert.True(t, env.store.IsDisabled("pluginA.cmdY"))
	assert.Empty(t, env.persisted(t), "storage is stale after a failed write")

	env.kv.FailPuts(false)
	require.True(t, env.store.Toggle(ctx, "test", "pluginB.cmdZ").OK())
	assert.Equal(t, []string{"pluginA.cmdY", "pluginB.cmdZ"}, env.persisted(t),
		"next successful write carries the full set")
}

func TestToggle_WritesAudit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.store.Toggle(ctx, "alice", "pluginA.cmdX")
	env.store.Toggle(ctx, "bob", "pluginA.cmdX")
	env.store.Toggle(ctx, "carol", "missing")

	entries, err := env.kv.ListAuditLog(ctx, store.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	actions := map[store.AuditAction]string{}
	for _, e := range entries {
		assert.Equal(t, "pluginA.cmdX", e.TargetID)
		actions[e.Action] = e.Actor
	}
	assert.Equal(t, "alice", actions[store.AuditDisableCommand])
	assert.Equal(t, "bob", actions[store.AuditEnableCommand])
}

func TestToggle_ConcurrentDisjoint(t *testing.T) {
	fw := host.New(slog.Default())
	var handlers []*host.Handler
	var names []string
	for i := 0; i < 50; i++ {
		name := fmt.Sprintf("p.cmd%02d", i)
		names = append(names, name)
		handlers = append(handlers, cmd(name, "plugins.p", fmt.Sprintf("c%02d", i)))
	}
	fw.RegisterPlugin(host.Plugin{Name: "P", ModulePath: "plugins.p"}, handlers...)

	kv := store.NewMockStore()
	s := New(Config{Host: fw, Plugins: fw, KV: kv, Logger: slog.Default()})

	// Even-indexed handlers are toggled once (disabled), odd ones twice (back to active).
	var wg sync.WaitGroup
	for i, name := range names {
		times := 1
		if i%2 == 1 {
			times = 2
		}
		wg.Add(1)
		go func(name string, times int) {
			defer wg.Done()
			for j := 0; j < times; j++ {
				assert.True(t, s.Toggle(context.Background(), "test", name).OK())
			}
		}(name, times)
	}
	wg.Wait()

	var want []string
	for i, name := range names {
		if i%2 == 0 {
			want = append(want, name)
		}
	}

	assert.Equal(t, want, s.Disabled())
	persisted, err := store.GetStrings(context.Background(), kv, store.KeyInactivatedHandlers)
	require.NoError(t, err)
	assert.Equal(t, want, persisted)
	assert.Len(t, fw.Handlers(), 25)
	assert.Equal(t, 75, kv.PutCount())
}

func TestInitialize_MovesPersistedHandlers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	moved := env.store.Initialize(ctx, []string{"pluginA.cmdX", "gone.handler"})
	assert.Equal(t, 1, moved)
	assert.Equal(t, []string{"pluginA.cmdX"}, env.store.Disabled())
	assert.Nil(t, env.fw.Lookup("pluginA.cmdX"))
	env.assertPartition(t)

	// Idempotent: nothing left to move, no further write.
	puts := env.kv.PutCount()
	assert.Equal(t, 0, env.store.Initialize(ctx, []string{"pluginA.cmdX"}))
	assert.Equal(t, 0, env.store.Initialize(ctx, nil))
	assert.Equal(t, puts, env.kv.PutCount())
}

func TestReconcile_ReadsFromKV(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.kv.Put(ctx, store.KeyInactivatedHandlers, []string{"pluginB.cmdZ"}))

	moved, err := env.store.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)
	assert.True(t, env.store.IsDisabled("pluginB.cmdZ"))
	assert.Equal(t, []string{"pluginB.cmdZ"}, env.persisted(t))

	entries, err := env.kv.ListAuditLog(ctx, store.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, store.AuditRestoreDisabled, entries[0].Action)
}

func TestReconcile_EmptyStore(t *testing.T) {
	env := newTestEnv(t)

	moved, err := env.store.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Zero(t, moved)
	assert.Zero(t, env.kv.PutCount())
}

func TestReset_ReenablesWithoutPersisting(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.store.Toggle(ctx, "test", "pluginA.cmdX")
	env.store.Toggle(ctx, "test", "pluginB.cmdZ")
	puts := env.kv.PutCount()

	assert.Equal(t, 2, env.store.Reset())
	assert.Empty(t, env.store.Disabled())
	assert.Equal(t, env.all, env.activeNames())
	assert.Equal(t, puts, env.kv.PutCount())
	assert.Equal(t, []string{"pluginA.cmdX", "pluginB.cmdZ"}, env.persisted(t),
		"persisted list survives unload for the next start")
}

func TestToggle_CancelledContextStillPersists(t *testing.T) {
	fw := host.New(slog.Default())
	fw.RegisterPlugin(host.Plugin{Name: "PluginA", ModulePath: "plugins.a"},
		cmd("pluginA.cmdX", "plugins.a", "x"),
	)
	db, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "cmdmgr.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := New(Config{Host: fw, Plugins: fw, KV: db, Audit: db, Logger: slog.Default()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := s.Toggle(ctx, "webui", "pluginA.cmdX")
	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, []string{"pluginA.cmdX"}, s.Disabled())

	persisted, err := store.GetStrings(context.Background(), db, store.KeyInactivatedHandlers)
	require.NoError(t, err)
	assert.Equal(t, []string{"pluginA.cmdX"}, persisted)

	entries, err := db.ListAuditLog(context.Background(), store.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "webui", entries[0].Actor)
	assert.Equal(t, store.AuditDisableCommand, entries[0].Action)
}
