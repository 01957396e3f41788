// ABOUTME: Thread-safe live handler registry and plugin metadata for the dispatch framework
// ABOUTME: Only handlers in the live set are matched by Dispatch

package host

import (
	"log/slog"
	"strings"
	"sync"
)

// Plugin is the metadata recorded for a loaded plugin.
type Plugin struct {
	Name       string
	ModulePath string
	Author     string
	Version    string
}

// Framework holds the live handler set in registration order.
type Framework struct {
	mu       sync.RWMutex
	handlers []*Handler
	plugins  map[string]Plugin // by module path
	logger   *slog.Logger
}

// New creates an empty Framework. A nil logger uses slog.Default.
func New(logger *slog.Logger) *Framework {
	if logger == nil {
		logger = slog.Default()
	}
	return &Framework{
		plugins: make(map[string]Plugin),
		logger:  logger,
	}
}

// RegisterPlugin records plugin metadata and appends its handlers to the live set.
func (f *Framework) RegisterPlugin(p Plugin, handlers ...*Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.plugins[p.ModulePath] = p
	f.handlers = append(f.handlers, handlers...)

	f.logger.Info("plugin registered",
		"plugin", p.Name,
		"module", p.ModulePath,
		"handler_count", len(handlers),
		"total_handlers", len(f.handlers),
	)
}

// Handlers returns a snapshot of the live handler set.
func (f *Framework) Handlers() []*Handler {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]*Handler, len(f.handlers))
	copy(out, f.handlers)
	return out
}

// Lookup returns the live handler with the given full name, or nil.
func (f *Framework) Lookup(fullName string) *Handler {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, h := range f.handlers {
		if h.FullName == fullName {
			return h
		}
	}
	return nil
}

// Remove takes the handler with the given full name out of the live set and
// returns it, or nil if it is not live.
func (f *Framework) Remove(fullName string) *Handler {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, h := range f.handlers {
		if h.FullName == fullName {
			f.handlers = append(f.handlers[:i:i], f.handlers[i+1:]...)
			return h
		}
	}
	return nil
}

// Add appends h to the live set.
func (f *Framework) Add(h *Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, h)
}

// PluginName resolves the display name of the plugin that owns modulePath.
func (f *Framework) PluginName(modulePath string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	p, ok := f.plugins[modulePath]
	if !ok || p.Name == "" {
		return "", false
	}
	return p.Name, true
}

// Dispatch returns the live handlers whose command names match the start of
// text on a word boundary. Longer command paths win over shorter ones.
func (f *Framework) Dispatch(text string) []*Handler {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	var matched []*Handler
	best := 0
	for _, h := range f.handlers {
		longest := 0
		for _, name := range h.CommandNames() {
			if matchesCommand(text, name) && len(name) > longest {
				longest = len(name)
			}
		}
		switch {
		case longest == 0:
		case longest > best:
			best = longest
			matched = []*Handler{h}
		case longest == best:
			matched = append(matched, h)
		}
	}
	return matched
}

func matchesCommand(text, name string) bool {
	if !strings.HasPrefix(text, name) {
		return false
	}
	return len(text) == len(name) || text[len(name)] == ' '
}
