// ABOUTME: Thread-safe registry partitioning handlers into active and disabled sets
// ABOUTME: Toggles handlers between partitions and persists the disabled set wholesale

package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/2389/coven-cmdconsole/internal/host"
	"github.com/2389/coven-cmdconsole/internal/store"
)

// ErrHandlerNotFound indicates the toggle target is neither active nor disabled.
var ErrHandlerNotFound = errors.New("handler not found or unrecognized")

// Toggle result statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// LiveRegistry is the host framework's live handler set.
type LiveRegistry interface {
	Handlers() []*host.Handler
	Remove(fullName string) *host.Handler
	Add(h *host.Handler)
}

// PluginLookup resolves plugin display names by handler module path.
type PluginLookup interface {
	PluginName(modulePath string) (string, bool)
}

// ToggleItem is the sole mutation input.
type ToggleItem struct {
	HandlerFullName string `json:"handler_full_name"`
}

// ToggleResult is the structured outcome of a toggle.
type ToggleResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// OK reports whether the toggle succeeded.
func (r ToggleResult) OK() bool { return r.Status == StatusOK }

// Config holds the Store's collaborators.
type Config struct {
	Host    LiveRegistry
	Plugins PluginLookup
	KV      store.KV
	Audit   store.AuditLog // optional
	Logger  *slog.Logger
}

// Store owns the disabled partition and serializes every partition change.
type Store struct {
	mu       sync.Mutex
	host     LiveRegistry
	plugins  PluginLookup
	kv       store.KV
	audit    store.AuditLog
	disabled map[string]*host.Handler // by full name
	logger   *slog.Logger
}

// New creates a Store with an empty disabled partition.
func New(cfg Config) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		host:     cfg.Host,
		plugins:  cfg.Plugins,
		kv:       cfg.KV,
		audit:    cfg.Audit,
		disabled: make(map[string]*host.Handler),
		logger:   logger,
	}
}

// Reconcile reads the persisted disabled list and applies it with Initialize.
func (s *Store) Reconcile(ctx context.Context) (int, error) {
	names, err := store.GetStrings(ctx, s.kv, store.KeyInactivatedHandlers)
	if err != nil {
		return 0, fmt.Errorf("reading disabled list: %w", err)
	}
	return s.Initialize(ctx, names), nil
}

// Initialize moves every active handler named in persistedNames to the disabled
// partition and returns how many moved. Names that match nothing are ignored,
// so repeated calls are no-ops.
func (s *Store) Initialize(ctx context.Context, persistedNames []string) int {
	if len(persistedNames) == 0 {
		return 0
	}

	wanted := make(map[string]struct{}, len(persistedNames))
	for _, n := range persistedNames {
		wanted[n] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var moved []string
	for _, h := range s.host.Handlers() {
		if _, ok := wanted[h.FullName]; !ok {
			continue
		}
		if _, already := s.disabled[h.FullName]; already {
			continue
		}
		if removed := s.host.Remove(h.FullName); removed != nil {
			s.disabled[removed.FullName] = removed
			moved = append(moved, removed.FullName)
		}
	}

	if len(moved) == 0 {
		return 0
	}

	s.logger.Info("restored disabled command handlers", "count", len(moved))
	durable := context.WithoutCancel(ctx)
	s.persistLocked(durable)
	for _, name := range moved {
		s.appendAudit(durable, "startup", store.AuditRestoreDisabled, name)
	}
	return len(moved)
}

// Toggle flips fullName between the active and disabled partitions.
// Unknown names yield a StatusError result and no mutation.
func (s *Store) Toggle(ctx context.Context, actor, fullName string) ToggleResult {
	if err := s.ToggleErr(ctx, actor, fullName); err != nil {
		return ToggleResult{Status: StatusError, Message: err.Error()}
	}
	return ToggleResult{Status: StatusOK}
}

// ToggleErr is Toggle for programmatic callers; it returns ErrHandlerNotFound
// for unknown names.
func (s *Store) ToggleErr(ctx context.Context, actor, fullName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var action store.AuditAction
	if h := s.host.Remove(fullName); h != nil {
		s.disabled[fullName] = h
		action = store.AuditDisableCommand
		s.logger.Info("command handler disabled", "handler", fullName, "actor", actor)
	} else if h, ok := s.disabled[fullName]; ok {
		delete(s.disabled, fullName)
		s.host.Add(h)
		action = store.AuditEnableCommand
		s.logger.Info("command handler enabled", "handler", fullName, "actor", actor)
	} else {
		s.logger.Warn("toggle of unknown command handler", "handler", fullName, "actor", actor)
		return ErrHandlerNotFound
	}

	// The mutation is committed; a caller that goes away must not leave
	// storage behind memory.
	durable := context.WithoutCancel(ctx)
	s.persistLocked(durable)
	s.appendAudit(durable, actor, action, fullName)
	return nil
}

// Disabled returns the sorted full names of disabled handlers.
func (s *Store) Disabled() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disabledNamesLocked()
}

// IsDisabled reports whether fullName is in the disabled partition.
func (s *Store) IsDisabled(fullName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.disabled[fullName]
	return ok
}

// Reset returns every disabled handler to the live set without touching
// persistence. Used when the console unloads so the host is left fully enabled.
func (s *Store) Reset() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.disabled)
	for _, name := range s.disabledNamesLocked() {
		s.host.Add(s.disabled[name])
		delete(s.disabled, name)
	}
	if n > 0 {
		s.logger.Info("re-enabled disabled handlers on unload", "count", n)
	}
	return n
}

func (s *Store) disabledNamesLocked() []string {
	names := make([]string, 0, len(s.disabled))
	for name := range s.disabled {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// persistLocked writes the complete disabled set. Failures are logged, not returned.
func (s *Store) persistLocked(ctx context.Context) {
	names := s.disabledNamesLocked()
	if err := s.kv.Put(ctx, store.KeyInactivatedHandlers, names); err != nil {
		s.logger.Error("failed to persist disabled command handlers; storage is stale until the next successful toggle",
			"error", err,
			"disabled_count", len(names),
		)
	}
}

func (s *Store) appendAudit(ctx context.Context, actor string, action store.AuditAction, fullName string) {
	if s.audit == nil {
		return
	}
	err := s.audit.AppendAuditLog(ctx, &store.AuditEntry{
		Actor:      actor,
		Action:     action,
		TargetType: "handler",
		TargetID:   fullName,
	})
	if err != nil {
		s.logger.Warn("failed to append audit entry", "error", err, "handler", fullName)
	}
}
