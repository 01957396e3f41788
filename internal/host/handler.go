// ABOUTME: Handler and filter types owned by the dispatch framework
// ABOUTME: Filters are a closed set of variants; command filters report their command names

package host

import "strings"

// Handler is a single invocable command unit.
type Handler struct {
	FullName    string
	ModulePath  string // key into plugin metadata
	Description string
	Filters     []Filter
}

// Filter is a declarative attachment describing when a handler triggers.
type Filter interface {
	filterKind() string
}

// CommandNamer is implemented by filters that trigger on textual commands.
// CommandNames returns every full command path the filter contributes.
type CommandNamer interface {
	Filter
	CommandNames() []string
}

// CommandFilter matches a single command, optionally nested under parent groups.
type CommandFilter struct {
	Name        string
	Aliases     []string
	ParentNames []string // parent group paths, e.g. "cmdmgr" or "admin users"
}

func (f *CommandFilter) filterKind() string { return "command" }

// CommandNames expands parents x (name + aliases). A filter with no parents, or
// an empty parent entry, contributes the bare base names.
func (f *CommandFilter) CommandNames() []string {
	bases := make([]string, 0, 1+len(f.Aliases))
	bases = append(bases, f.Name)
	bases = append(bases, f.Aliases...)

	parents := f.ParentNames
	if len(parents) == 0 {
		parents = []string{""}
	}

	names := make([]string, 0, len(parents)*len(bases))
	for _, parent := range parents {
		parent = strings.TrimSpace(parent)
		for _, base := range bases {
			base = strings.TrimSpace(base)
			if base == "" {
				continue
			}
			if parent == "" {
				names = append(names, base)
			} else {
				names = append(names, parent+" "+base)
			}
		}
	}
	return names
}

// CommandGroupFilter matches a command group. The complete command paths are
// computed by the framework when the group tree is built.
type CommandGroupFilter struct {
	Name          string
	CompleteNames []string
}

func (f *CommandGroupFilter) filterKind() string { return "command_group" }

// CommandNames returns a copy of the precomputed paths.
func (f *CommandGroupFilter) CommandNames() []string {
	out := make([]string, 0, len(f.CompleteNames))
	for _, n := range f.CompleteNames {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// PermissionType restricts who may trigger a handler.
type PermissionType string

const (
	PermissionMember PermissionType = "member"
	PermissionAdmin  PermissionType = "admin"
)

// PermissionFilter gates a handler by permission. It contributes no command names.
type PermissionFilter struct {
	Type PermissionType
}

func (f *PermissionFilter) filterKind() string { return "permission" }

// CommandFilters returns the filters on h that produce command names.
func (h *Handler) CommandFilters() []CommandNamer {
	var out []CommandNamer
	for _, f := range h.Filters {
		if cn, ok := f.(CommandNamer); ok {
			out = append(out, cn)
		}
	}
	return out
}

// CommandNames collects the names of every command filter attached to h.
// The result may contain duplicates.
func (h *Handler) CommandNames() []string {
	var names []string
	for _, f := range h.CommandFilters() {
		names = append(names, f.CommandNames()...)
	}
	return names
}
