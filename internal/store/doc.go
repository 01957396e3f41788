// Package store provides persistence for the command console.
//
// # Overview
//
// The console persists two things:
//
//   - A small key-value namespace (the KV interface). The disabled handler
//     list lives under the key "inactivated_command_handlers" as a JSON array
//     of full names and is rewritten wholesale after every change.
//   - An append-only audit log of enable/disable actions.
//
// # Implementations
//
// SQLiteStore is the production implementation, built on modernc.org/sqlite
// (pure Go, no cgo). WAL mode is enabled and the schema is created on open.
//
// MockStore is an in-memory implementation for tests. It can be told to fail
// writes so callers can exercise their persistence-failure paths.
//
// # Values
//
// KV values are stored as JSON. Get decodes into the destination the caller
// passes in; when the key is absent the destination is left untouched, so a
// pre-populated destination acts as the default:
//
//	names := []string{}
//	found, err := kv.Get(ctx, store.KeyInactivatedHandlers, &names)
//
// # Usage
//
//	s, err := store.NewSQLiteStore("/var/lib/coven/cmdmgr.db")
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
package store
