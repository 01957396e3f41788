// ABOUTME: Builds display-ready command records from the registry partitions
// ABOUTME: Recomputes names from live filter definitions on every call

package registry

import (
	"sort"
	"strings"

	"github.com/2389/coven-cmdconsole/internal/host"
)

// UnknownPlugin is reported when a handler's module has no plugin metadata.
const UnknownPlugin = "unknown"

// NoDescription is reported for handlers with a blank description.
const NoDescription = "no description"

// CommandInfo describes one handler as shown in the admin UI.
type CommandInfo struct {
	HandlerFullName string `json:"handler_full_name"`
	PluginName      string `json:"plugin_name"`
	Command         string `json:"command"`
	Description     string `json:"description"`
	Activated       bool   `json:"activated"`
}

// List returns every handler that has at least one command name, active and
// disabled alike, sorted by plugin name then command.
func (s *Store) List() []CommandInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.host.Handlers()
	for _, name := range s.disabledNamesLocked() {
		all = append(all, s.disabled[name])
	}

	seen := make(map[string]struct{}, len(all))
	infos := make([]CommandInfo, 0, len(all))
	for _, h := range all {
		if _, dup := seen[h.FullName]; dup {
			continue
		}

		command := commandString(h)
		if command == "" {
			continue
		}
		seen[h.FullName] = struct{}{}

		_, isDisabled := s.disabled[h.FullName]
		infos = append(infos, CommandInfo{
			HandlerFullName: h.FullName,
			PluginName:      s.pluginName(h.ModulePath),
			Command:         command,
			Description:     description(h),
			Activated:       !isDisabled,
		})
	}

	sort.SliceStable(infos, func(i, j int) bool {
		a, b := infos[i], infos[j]
		if a.PluginName != b.PluginName {
			return a.PluginName < b.PluginName
		}
		if a.Command != b.Command {
			return a.Command < b.Command
		}
		return a.HandlerFullName < b.HandlerFullName
	})
	return infos
}

// commandString dedupes, sorts and joins every command name h contributes.
func commandString(h *host.Handler) string {
	names := h.CommandNames()
	if len(names) == 0 {
		return ""
	}

	set := make(map[string]struct{}, len(names))
	unique := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := set[n]; ok {
			continue
		}
		set[n] = struct{}{}
		unique = append(unique, n)
	}
	sort.Strings(unique)
	return strings.Join(unique, ", ")
}

func (s *Store) pluginName(modulePath string) string {
	if s.plugins == nil {
		return UnknownPlugin
	}
	if name, ok := s.plugins.PluginName(modulePath); ok {
		return name
	}
	return UnknownPlugin
}

func description(h *host.Handler) string {
	if d := strings.TrimSpace(h.Description); d != "" {
		return d
	}
	return NoDescription
}
