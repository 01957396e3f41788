// ABOUTME: Tests for filter variants and command name derivation
// ABOUTME: Covers parent expansion, aliases, groups, and non-command filters

package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandFilter_CommandNames(t *testing.T) {
	tests := []struct {
		name   string
		filter *CommandFilter
		want   []string
	}{
		{
			name:   "bare command",
			filter: &CommandFilter{Name: "help"},
			want:   []string{"help"},
		},
		{
			name:   "aliases without parent",
			filter: &CommandFilter{Name: "help", Aliases: []string{"h", "?"}},
			want:   []string{"help", "h", "?"},
		},
		{
			name:   "empty parent entry yields base names",
			filter: &CommandFilter{Name: "on", ParentNames: []string{""}},
			want:   []string{"on"},
		},
		{
			name:   "parents times bases",
			filter: &CommandFilter{Name: "on", Aliases: []string{"start"}, ParentNames: []string{"cmdmgr", "cm"}},
			want:   []string{"cmdmgr on", "cmdmgr start", "cm on", "cm start"},
		},
		{
			name:   "whitespace is trimmed",
			filter: &CommandFilter{Name: " off ", ParentNames: []string{" cmdmgr "}},
			want:   []string{"cmdmgr off"},
		},
		{
			name:   "blank base skipped",
			filter: &CommandFilter{Name: "", Aliases: []string{"x"}},
			want:   []string{"x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.CommandNames())
		})
	}
}

func TestCommandGroupFilter_CommandNames(t *testing.T) {
	f := &CommandGroupFilter{Name: "cmdmgr", CompleteNames: []string{"cmdmgr", " cm ", ""}}
	assert.Equal(t, []string{"cmdmgr", "cm"}, f.CommandNames())
}

func TestHandler_CommandFilters(t *testing.T) {
	h := &Handler{
		FullName: "p.h",
		Filters: []Filter{
			&PermissionFilter{Type: PermissionAdmin},
			&CommandFilter{Name: "a"},
			&CommandGroupFilter{CompleteNames: []string{"g"}},
		},
	}

	assert.Len(t, h.CommandFilters(), 2)
	assert.Equal(t, []string{"a", "g"}, h.CommandNames())

	bare := &Handler{FullName: "p.none", Filters: []Filter{&PermissionFilter{Type: PermissionMember}}}
	assert.Empty(t, bare.CommandFilters())
	assert.Empty(t, bare.CommandNames())
}
