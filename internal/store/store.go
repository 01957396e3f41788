// ABOUTME: Persistence interfaces and shared types for the command console
// ABOUTME: Defines the KV gateway used for the disabled list and the audit log contract

package store

import (
	"context"
	"errors"
)

// KeyInactivatedHandlers holds the ordered list of disabled handler full names.
const KeyInactivatedHandlers = "inactivated_command_handlers"

// ErrEmptyKey is returned when a KV operation is given an empty key
var ErrEmptyKey = errors.New("empty key")

// KV is the key-value persistence gateway.
type KV interface {
	// Get decodes the value stored under key into dest. It reports false and
	// leaves dest untouched when the key is absent.
	Get(ctx context.Context, key string, dest any) (bool, error)

	// Put replaces the value stored under key.
	Put(ctx context.Context, key string, value any) error
}

// AuditLog records enable/disable actions.
type AuditLog interface {
	AppendAuditLog(ctx context.Context, e *AuditEntry) error
	ListAuditLog(ctx context.Context, f AuditFilter) ([]AuditEntry, error)
}

// Store is the full persistence surface used by the console.
type Store interface {
	KV
	AuditLog

	// Close releases any resources held by the store
	Close() error
}

// GetStrings reads a string list from kv, returning an empty slice when the key is absent.
func GetStrings(ctx context.Context, kv KV, key string) ([]string, error) {
	out := []string{}
	if _, err := kv.Get(ctx, key, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}
