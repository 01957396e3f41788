// Package registry tracks which command handlers are enabled and builds the
// command snapshot shown in the admin UI.
//
// # Overview
//
// Every handler known to the host is in exactly one of two partitions:
//
//   - active: the host framework's live handler set (dispatchable)
//   - disabled: a map owned by the Store (not dispatchable)
//
// Handlers are never created or destroyed here, only moved between the two
// partitions. All reads and writes (Toggle, List, Initialize, Reset) are
// serialized by a single mutex, so a snapshot never observes a half-applied
// toggle.
//
// # Persistence
//
// After every successful toggle the complete set of disabled full names is
// written to the KV gateway under store.KeyInactivatedHandlers. Writes are
// never deltas. A failed write is logged; memory and storage then disagree
// until the next successful write.
//
// # Snapshots
//
// List recomputes CommandInfo records from the live filter definitions on
// every call. Nothing is cached, so a toggle or a newly registered handler is
// visible on the very next List.
//
// # Usage
//
//	reg := registry.New(registry.Config{
//	    Host:    framework,
//	    Plugins: framework,
//	    KV:      sqliteStore,
//	    Audit:   sqliteStore,
//	    Logger:  logger,
//	})
//	moved, err := reg.Reconcile(ctx)
//	res := reg.Toggle(ctx, "webui", "pluginA.cmdX")
//	cmds := reg.List()
package registry
